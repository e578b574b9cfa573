package world

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGameClockAdvanceWrapsDays(t *testing.T) {
	// one game hour per second
	c := NewGameClock(60, 1, 23, 30)
	c.Advance(1)

	hour, minute := c.TimeOfDay()
	assert.Equal(t, 2, c.Day())
	assert.Equal(t, 0, hour)
	assert.Equal(t, 30, minute)
}

func TestGameClockSetTime(t *testing.T) {
	c := NewGameClock(1, 1, 10, 0)

	c.SetTime(12, 0)
	assert.Equal(t, 1, c.Day())

	c.SetTime(6, 0)
	assert.Equal(t, 2, c.Day(), "earlier time is the next morning")
	assert.Equal(t, "day 2 06:00", c.String())
}

func TestGameClockIsTime(t *testing.T) {
	c := NewGameClock(0, 1, 23, 0)

	assert.True(t, c.IsTime(22, 0, 6, 0))
	assert.False(t, c.IsTime(6, 0, 22, 0))
	assert.True(t, c.IsTime(23, 0, 23, 0), "equal bounds cover the whole day")
	assert.False(t, c.IsTime(22, 0, 23, 0), "end is exclusive")
}
