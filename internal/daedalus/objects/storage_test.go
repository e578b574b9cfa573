package objects

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"regoth/internal/errs"
)

func TestCreateGetDestroy(t *testing.T) {
	s := NewStorage()

	h, err := s.Create("C_NPC")
	require.NoError(t, err)
	assert.Equal(t, Handle(1), h)

	obj, err := s.Get(h)
	require.NoError(t, err)
	assert.Equal(t, "C_NPC", obj.ClassName)
	assert.Equal(t, h, obj.Handle)

	require.NoError(t, s.Destroy(h))
	assert.True(t, s.IsDestroyed(h))

	err = s.Destroy(h)
	assert.True(t, errors.Is(err, errs.ErrInvalidState))

	_, err = s.Get(h)
	assert.True(t, errors.Is(err, errs.ErrInvalidState))

	_, err = s.Get(InvalidHandle)
	assert.True(t, errors.Is(err, errs.ErrInvalidState))
}

func TestHandlesAreUniqueUnderChurn(t *testing.T) {
	s := NewStorage()
	rng := rand.New(rand.NewSource(42))

	live := map[Handle]bool{}
	var destroyed []Handle

	for i := 0; i < 500; i++ {
		if len(live) > 0 && rng.Intn(3) == 0 {
			for h := range live {
				require.NoError(t, s.Destroy(h))
				delete(live, h)
				destroyed = append(destroyed, h)
				break
			}
			continue
		}
		h, err := s.Create("C_ITEM")
		require.NoError(t, err)
		require.False(t, live[h], "handle %d handed out twice", h)
		require.NotEqual(t, InvalidHandle, h)
		live[h] = true
	}

	for _, h := range destroyed {
		assert.True(t, s.IsDestroyed(h))
		assert.False(t, live[h])
	}
	assert.Equal(t, len(live), s.Len())
}

func TestClearResetsCounter(t *testing.T) {
	s := NewStorage()
	_, _ = s.Create("A")
	_, _ = s.Create("B")

	s.Clear()
	assert.Equal(t, 0, s.Len())

	h, err := s.Create("C")
	require.NoError(t, err)
	assert.Equal(t, Handle(1), h)
}

func TestCreateFromTemplateCopiesArrays(t *testing.T) {
	s := NewStorage()
	tpl := NewObject("C_NPC")
	tpl.Ints["ATTRIBUTE"] = make([]int32, 8)
	tpl.Strings["NAME"] = make([]string, 5)
	tpl.Functions["DAILY_ROUTINE"] = NoFunction

	a, _ := s.CreateFromTemplate(tpl)
	b, _ := s.CreateFromTemplate(tpl)
	objA, _ := s.Get(a)
	objB, _ := s.Get(b)

	require.NoError(t, objA.SetIntAt("ATTRIBUTE", 3, 99))
	v, err := objB.IntAt("ATTRIBUTE", 3)
	require.NoError(t, err)
	assert.Equal(t, int32(0), v)
	assert.Equal(t, int32(0), tpl.Ints["ATTRIBUTE"][3])
	assert.Len(t, objB.Strings["NAME"], 5)
}

func TestFieldAccessors(t *testing.T) {
	obj := NewObject("C_NPC")
	obj.Ints["ID"] = []int32{0}
	obj.Strings["WP"] = []string{""}
	obj.Floats["SPEED"] = []float32{0}
	obj.Functions["START_AISTATE"] = NoFunction

	require.NoError(t, obj.SetInt("ID", 7))
	require.NoError(t, obj.SetString("WP", "OC_CENTER"))
	require.NoError(t, obj.SetFloat("SPEED", 1.5))
	require.NoError(t, obj.SetFunctionPointer("START_AISTATE", 12))

	id, _ := obj.Int("ID")
	wp, _ := obj.StringValue("WP")
	speed, _ := obj.Float("SPEED")
	fn, _ := obj.FunctionPointerValue("START_AISTATE")
	assert.Equal(t, int32(7), id)
	assert.Equal(t, "OC_CENTER", wp)
	assert.Equal(t, float32(1.5), speed)
	assert.Equal(t, FunctionPointer(12), fn)

	tests := []struct {
		name string
		err  error
	}{
		{"int field that is a string", func() error { _, err := obj.Int("WP"); return err }()},
		{"missing string field", obj.SetString("NAME", "x")},
		{"index out of range", obj.SetIntAt("ID", 1, 3)},
		{"missing function field", obj.SetFunctionPointer("DAILY_ROUTINE", 1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, errors.Is(tt.err, errs.ErrInvalidParameters), "got %v", tt.err)
		})
	}
	assert.Equal(t, []string{"ID", "SPEED", "START_AISTATE", "WP"}, obj.FieldNames())
}

func TestRestoreKeepsHandles(t *testing.T) {
	s := NewStorage()
	obj := NewObject("C_NPC")
	obj.Handle = 41

	require.NoError(t, s.Restore(obj))
	got, err := s.Get(41)
	require.NoError(t, err)
	assert.Same(t, obj, got)

	next, err := s.Create("C_ITEM")
	require.NoError(t, err)
	assert.Equal(t, Handle(42), next)

	assert.Error(t, s.Restore(obj))
}

func TestHandleCeiling(t *testing.T) {
	s := NewStorage()
	s.limit = 3
	_, err := s.Create("A")
	require.NoError(t, err)
	_, err = s.Create("B")
	require.NoError(t, err)
	_, err = s.Create("C")
	assert.True(t, errors.Is(err, errs.ErrInvalidState))
}
