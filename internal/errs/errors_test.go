package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorKinds(t *testing.T) {
	state := InvalidState("handle %d already destroyed", 3)
	params := InvalidParameters("symbol %q not found", "ZS_TALK")

	assert.True(t, errors.Is(state, ErrInvalidState))
	assert.False(t, errors.Is(state, ErrInvalidParameters))
	assert.True(t, errors.Is(params, ErrInvalidParameters))
	assert.Equal(t, `invalid parameters: symbol "ZS_TALK" not found`, params.Error())

	wrapped := fmt.Errorf("spawn npc: %w", state)
	assert.True(t, errors.Is(wrapped, ErrInvalidState))
}
