package world

import (
	"fmt"
	"math"

	"regoth/internal/ai"
)

const minutesPerDay = 24 * 60

// GameClock is the in-game calendar. Time runs MinutesPerSecond game minutes
// per simulated second.
type GameClock struct {
	day              int
	minutes          float64
	minutesPerSecond float64
}

// NewGameClock starts a clock at day, hour:minute.
func NewGameClock(minutesPerSecond float64, day, hour, minute int) *GameClock {
	c := &GameClock{day: day, minutesPerSecond: minutesPerSecond}
	c.SetTime(hour, minute)
	return c
}

// Advance moves the clock forward by dt real seconds.
func (c *GameClock) Advance(dt float64) {
	c.minutes += dt * c.minutesPerSecond
	for c.minutes >= minutesPerDay {
		c.minutes -= minutesPerDay
		c.day++
	}
}

// SetTime jumps to hour:minute. Setting an earlier time than now moves to the
// next day.
func (c *GameClock) SetTime(hour, minute int) {
	target := float64(((hour*60+minute)%minutesPerDay + minutesPerDay) % minutesPerDay)
	if target < math.Floor(c.minutes) {
		c.day++
	}
	c.minutes = target
}

// Day returns the day counter.
func (c *GameClock) Day() int { return c.day }

// TimeOfDay returns the current hour and minute.
func (c *GameClock) TimeOfDay() (hour, minute int) {
	m := int(c.minutes)
	return m / 60, m % 60
}

// MinuteOfDay returns the fractional minutes since midnight.
func (c *GameClock) MinuteOfDay() float64 { return c.minutes }

// IsTime reports whether now lies in [from, to). Ranges wrap around midnight.
func (c *GameClock) IsTime(fromHour, fromMinute, toHour, toMinute int) bool {
	hour, minute := c.TimeOfDay()
	return ai.IsTimeInTaskRange(ai.RoutineTask{
		HoursStart:   fromHour,
		MinutesStart: fromMinute,
		HoursEnd:     toHour,
		MinutesEnd:   toMinute,
	}, hour, minute)
}

func (c *GameClock) String() string {
	hour, minute := c.TimeOfDay()
	return fmt.Sprintf("day %d %02d:%02d", c.day, hour, minute)
}
