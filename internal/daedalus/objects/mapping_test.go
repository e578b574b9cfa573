package objects

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"regoth/internal/errs"
)

func TestMappingBijection(t *testing.T) {
	m := NewMapping()
	require.NoError(t, m.Map(1, 100))

	err := m.Map(1, 200)
	assert.True(t, errors.Is(err, errs.ErrInvalidState), "remap of script handle: %v", err)

	err = m.Map(2, 100)
	assert.True(t, errors.Is(err, errs.ErrInvalidState), "native handle reused: %v", err)

	native, err := m.MappedSceneObject(1)
	require.NoError(t, err)
	assert.Equal(t, NativeHandle(100), native)

	script, err := m.MappedScriptObject(100)
	require.NoError(t, err)
	assert.Equal(t, Handle(1), script)

	require.NoError(t, m.Unmap(1, 100))
	_, err = m.MappedSceneObject(1)
	assert.True(t, errors.Is(err, errs.ErrInvalidState))
	assert.False(t, m.IsMapped(1))
}

func TestUnmapRequiresExactPair(t *testing.T) {
	m := NewMapping()
	require.NoError(t, m.Map(1, 100))

	assert.Error(t, m.Unmap(1, 101))
	assert.Error(t, m.Unmap(2, 100))
	assert.True(t, m.IsMapped(1))

	require.NoError(t, m.Unmap(1, 100))
	assert.Error(t, m.Unmap(1, 100))
}

func TestMapRejectsInvalidHandles(t *testing.T) {
	m := NewMapping()
	assert.True(t, errors.Is(m.Map(InvalidHandle, 5), errs.ErrInvalidParameters))
	assert.True(t, errors.Is(m.Map(5, InvalidNativeHandle), errs.ErrInvalidParameters))
}
