// Package ai drives NPC behaviour: script-defined AI states, the native
// engine states and the daily routine that runs when nothing else does.
package ai

import (
	"fmt"

	"regoth/internal/daedalus/symbols"
	"regoth/internal/daedalus/vm"
)

// Phase is the lifecycle position of an AIState.
type Phase int

const (
	PhaseUninitialized Phase = iota
	PhaseLoop
	PhaseEnd
	PhaseInterrupt
)

func (p Phase) String() string {
	switch p {
	case PhaseUninitialized:
		return "Uninitialized"
	case PhaseLoop:
		return "Loop"
	case PhaseEnd:
		return "End"
	case PhaseInterrupt:
		return "Interrupt"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// Suffixes of the optional phase functions of a state.
const (
	suffixLoop      = "_LOOP"
	suffixEnd       = "_END"
	suffixInterrupt = "_INTERRUPT"
)

// Engine-implemented states. Their script functions are optional.
const (
	StateAnswer      = "ZS_ANSWER"
	StateDead        = "ZS_DEAD"
	StateUnconscious = "ZS_UNCONSCIOUS"
	StateFadeAway    = "ZS_FADEAWAY"
	StateFollow      = "ZS_FOLLOW"
)

var nativeStates = map[string]bool{
	StateAnswer:      true,
	StateDead:        true,
	StateUnconscious: true,
	StateFadeAway:    true,
	StateFollow:      true,
}

// States a player-controlled character may be forced into.
var playerStates = map[string]bool{
	"ZS_ASSESSMAGIC":     true,
	"ZS_ASSESSSTOPMAGIC": true,
	"ZS_MAGICFREEZE":     true,
	"ZS_SHORTZAPPED":     true,
	"ZS_ZAPPED":          true,
	"ZS_PYRO":            true,
	"ZS_MAGICSLEEP":      true,
	StateDead:            true,
	StateUnconscious:     true,
}

// IsNativeState reports whether name is implemented by the engine.
func IsNativeState(name string) bool {
	return nativeStates[name]
}

// AIState is one slot of the state machine.
type AIState struct {
	Name string

	SymIndex     symbols.SymbolIndex
	SymLoop      symbols.SymbolIndex
	SymEnd       symbols.SymbolIndex
	SymInterrupt symbols.SymbolIndex

	Phase          Phase
	Valid          bool
	IsRoutineState bool
	IsScriptState  bool
	StateTime      float64

	// Bindings are the OTHER/VICTIM/ITEM references captured when the state
	// was requested.
	Bindings vm.Bindings
}

func invalidState() AIState {
	return AIState{
		SymIndex:     symbols.SymbolIndexInvalid,
		SymLoop:      symbols.SymbolIndexInvalid,
		SymEnd:       symbols.SymbolIndexInvalid,
		SymInterrupt: symbols.SymbolIndexInvalid,
		Phase:        PhaseInterrupt,
	}
}

// RoutineTask is one entry of a daily routine: run ScriptFunction at
// Waypoint between start (inclusive) and end (exclusive).
type RoutineTask struct {
	HoursStart     int    `json:"hours_start" yaml:"hours_start"`
	MinutesStart   int    `json:"minutes_start" yaml:"minutes_start"`
	HoursEnd       int    `json:"hours_end" yaml:"hours_end"`
	MinutesEnd     int    `json:"minutes_end" yaml:"minutes_end"`
	ScriptFunction string `json:"function" yaml:"function"`
	Waypoint       string `json:"waypoint" yaml:"waypoint"`
}

// IsTimeInTaskRange reports whether hour:minute falls in the task window.
// A window whose end lies before its start wraps around midnight; a window
// whose end equals its start covers the whole day.
func IsTimeInTaskRange(task RoutineTask, hour, minute int) bool {
	t := hour*60 + minute
	start := task.HoursStart*60 + task.MinutesStart
	end := task.HoursEnd*60 + task.MinutesEnd

	switch {
	case end == start:
		return true
	case end < start:
		return t >= start || t < end
	default:
		return t >= start && t < end
	}
}
