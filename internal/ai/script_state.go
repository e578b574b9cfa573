package ai

import (
	"log/slog"

	"regoth/internal/daedalus/objects"
	"regoth/internal/daedalus/symbols"
	"regoth/internal/daedalus/vm"
	"regoth/internal/log"
)

// Host is the character a ScriptState belongs to.
type Host interface {
	ScriptInstance() objects.Handle
	IsPlayer() bool
	IsEventQueueEmpty() bool
	ClearEventQueue()
	// OnNativeStateLoop runs the engine side of a native state every tick.
	OnNativeStateLoop(state string)
}

// Clock reports the in-game time of day.
type Clock interface {
	TimeOfDay() (hour, minute int)
}

// ScriptState is the AI state machine of one NPC. It holds the state being
// executed and the one queued to replace it.
type ScriptState struct {
	host    Host
	machine *vm.Machine
	clock   Clock

	current AIState
	next    AIState

	routine         []RoutineTask
	routineActive   int
	startNewRoutine bool

	log *slog.Logger
}

// NewScriptState creates the state machine of host.
func NewScriptState(host Host, machine *vm.Machine, clock Clock) *ScriptState {
	return &ScriptState{
		host:          host,
		machine:       machine,
		clock:         clock,
		current:       invalidState(),
		next:          invalidState(),
		routineActive: -1,
		log:           log.With("ai"),
	}
}

// Current returns a copy of the executing slot.
func (s *ScriptState) Current() AIState { return s.current }

// Next returns a copy of the queued slot.
func (s *ScriptState) Next() AIState { return s.next }

// CanPlayerUseAIState reports whether a player-controlled character may enter
// state.
func (s *ScriptState) CanPlayerUseAIState(state AIState) bool {
	return playerStates[state.Name]
}

func (s *ScriptState) optionalSymbol(name string) symbols.SymbolIndex {
	table := s.machine.Symbols()
	if !table.HasSymbolWithName(name) {
		return symbols.SymbolIndexInvalid
	}
	index, err := table.FindIndexBySymbolName(name)
	if err != nil {
		return symbols.SymbolIndexInvalid
	}
	return index
}

// prepare fills the next slot for the state called name.
func (s *ScriptState) prepare(name string, isRoutine, isScript bool) bool {
	table := s.machine.Symbols()
	name = table.NormalizeName(name)

	state := invalidState()
	state.Name = name
	state.SymIndex = s.optionalSymbol(name)
	if isScript && state.SymIndex == symbols.SymbolIndexInvalid {
		s.log.Debug("state function not found", "state", name, "npc", s.host.ScriptInstance())
		return false
	}
	state.SymLoop = s.optionalSymbol(name + suffixLoop)
	state.SymEnd = s.optionalSymbol(name + suffixEnd)
	state.SymInterrupt = s.optionalSymbol(name + suffixInterrupt)
	state.Phase = PhaseUninitialized
	state.Valid = true
	state.IsRoutineState = isRoutine
	state.IsScriptState = isScript
	state.Bindings = s.machine.Bindings()

	s.next = state
	return true
}

// StartNativeAIState queues one of the engine states.
func (s *ScriptState) StartNativeAIState(name string) bool {
	name = s.machine.Symbols().NormalizeName(name)
	if !IsNativeState(name) {
		s.log.Debug("not a native state", "state", name)
		return false
	}
	return s.prepare(name, false, false)
}

// StartScriptAIState queues the script state called name. Native state
// names are routed to StartNativeAIState.
func (s *ScriptState) StartScriptAIState(name string) bool {
	if IsNativeState(s.machine.Symbols().NormalizeName(name)) {
		return s.StartNativeAIState(name)
	}
	return s.prepare(name, false, true)
}

// StartAIState queues name and then either lets the running state end
// normally or interrupts it.
func (s *ScriptState) StartAIState(name string, endOldState bool) bool {
	if !s.StartScriptAIState(name) {
		return false
	}
	if endOldState {
		s.RequestEndActiveState()
	} else {
		s.InterruptActiveState()
	}
	return true
}

// StartRoutineState queues the active routine task. Without a routine the
// NPC's START_AISTATE function is used instead.
func (s *ScriptState) StartRoutineState() bool {
	s.startNewRoutine = false

	if len(s.routine) == 0 {
		return s.startFallbackState()
	}
	if s.routineActive < 0 || s.routineActive >= len(s.routine) {
		s.routineActive = s.findRoutineTask(-1)
		if s.routineActive < 0 {
			return s.startFallbackState()
		}
	}

	task := s.routine[s.routineActive]
	if obj, err := s.machine.Object(s.host.ScriptInstance()); err == nil && obj.HasField("WP") {
		if err := obj.SetString("WP", task.Waypoint); err != nil {
			s.log.Debug("cannot set routine waypoint", "error", err)
		}
	}
	return s.prepare(task.ScriptFunction, true, true)
}

func (s *ScriptState) startFallbackState() bool {
	fn, err := s.machine.FunctionPointerValue(s.host.ScriptInstance(), "START_AISTATE")
	if err != nil || fn == objects.NoFunction {
		return false
	}
	name := s.machine.Symbols().NameOf(symbols.SymbolIndex(fn))
	return s.prepare(name, true, true)
}

// InterruptActiveState drops the running state without running its end
// function and discards pending actions. The state's _INTERRUPT function runs
// instead, when there is one. A player keeps its actions when the queued
// state is one it may not enter.
func (s *ScriptState) InterruptActiveState() {
	if s.current.Valid {
		s.log.Debug("state interrupted", "state", s.current.Name, "npc", s.host.ScriptInstance())
		s.runPhaseFunction(s.current, s.current.SymInterrupt)
	}
	s.current.Phase = PhaseInterrupt
	s.current.Valid = false

	if s.host.IsPlayer() && s.next.Valid && !s.CanPlayerUseAIState(s.next) {
		return
	}
	s.host.ClearEventQueue()
}

// RequestEndActiveState lets the running state finish; its end function runs
// on the next tick.
func (s *ScriptState) RequestEndActiveState() {
	if s.current.Valid {
		s.current.Phase = PhaseEnd
	}
}

// ApplyStateChange tries to move the queued state into the running slot.
func (s *ScriptState) ApplyStateChange() bool {
	return s.DoAIState(0)
}

// DoAIState advances the state machine by deltaTime seconds and reports
// whether a state is running afterwards.
func (s *ScriptState) DoAIState(deltaTime float64) bool {
	if s.current.Valid && s.current.Phase == PhaseLoop {
		s.current.StateTime += deltaTime
	}

	s.updateRoutine()

	// pending actions suspend state changes
	if !s.host.IsEventQueueEmpty() {
		return s.current.Valid
	}

	isPlayer := s.host.IsPlayer()
	// a requested state keeps the next slot; the routine starts once it ends
	if s.startNewRoutine && !isPlayer && (!s.current.Valid || s.current.IsRoutineState) &&
		(!s.next.Valid || s.next.IsRoutineState) {
		s.RequestEndActiveState()
		s.StartRoutineState()
	}

	if s.current.Valid && s.current.Phase == PhaseEnd {
		s.runPhaseFunction(s.current, s.current.SymEnd)
		s.current.Valid = false
		s.current.Phase = PhaseInterrupt
	}

	if !s.current.Valid {
		if !s.next.Valid && !s.StartRoutineState() {
			return false
		}
		if isPlayer && !s.CanPlayerUseAIState(s.next) {
			s.log.Debug("player cannot use state", "state", s.next.Name)
			s.next = invalidState()
			return false
		}

		s.current = s.next
		s.current.StateTime = 0
		s.next = invalidState()
	}

	if s.current.Phase == PhaseUninitialized {
		s.runPhaseFunction(s.current, s.current.SymIndex)
		s.current.Phase = PhaseLoop
	}

	if s.current.Phase == PhaseLoop {
		// native states without a loop function run until they are ended
		done := s.current.IsScriptState
		if s.current.SymLoop != symbols.SymbolIndexInvalid {
			s.machine.SetBindings(s.current.Bindings)
			ended, err := s.machine.RunStateLoopFunction(s.current.SymLoop, s.host.ScriptInstance())
			if err != nil {
				s.log.Debug("state loop failed", "state", s.current.Name, "error", err)
			}
			done = ended
		}
		if !s.current.IsScriptState {
			s.host.OnNativeStateLoop(s.current.Name)
		}
		if done {
			s.current.Phase = PhaseEnd
		}
	}
	return s.current.Valid
}

func (s *ScriptState) runPhaseFunction(state AIState, fn symbols.SymbolIndex) {
	if fn == symbols.SymbolIndexInvalid {
		return
	}
	s.machine.SetBindings(state.Bindings)
	if err := s.machine.RunFunctionOnSelf(fn, s.host.ScriptInstance()); err != nil {
		s.log.Debug("state function failed", "state", state.Name, "function", s.machine.Symbols().NameOf(fn), "error", err)
	}
}

// updateRoutine switches to the routine task that matches the clock when the
// active one no longer does.
func (s *ScriptState) updateRoutine() {
	if len(s.routine) == 0 || s.clock == nil {
		return
	}
	hour, minute := s.clock.TimeOfDay()
	if s.routineActive >= 0 && s.routineActive < len(s.routine) &&
		IsTimeInTaskRange(s.routine[s.routineActive], hour, minute) {
		return
	}

	if i := s.findRoutineTask(s.routineActive); i >= 0 {
		s.routineActive = i
		s.startNewRoutine = true
	}
}

func (s *ScriptState) findRoutineTask(skip int) int {
	if s.clock == nil {
		return -1
	}
	hour, minute := s.clock.TimeOfDay()
	for i, task := range s.routine {
		if i == skip {
			continue
		}
		if IsTimeInTaskRange(task, hour, minute) {
			return i
		}
	}
	return -1
}

// InsertRoutineTask appends a task to the daily routine.
func (s *ScriptState) InsertRoutineTask(task RoutineTask) {
	task.ScriptFunction = s.machine.Symbols().NormalizeName(task.ScriptFunction)
	s.routine = append(s.routine, task)
}

// ReinitRoutine selects the task matching the clock and flags it to start on
// the next tick.
func (s *ScriptState) ReinitRoutine() {
	s.routineActive = s.findRoutineTask(-1)
	s.startNewRoutine = s.routineActive >= 0
}

// ClearRoutine removes every routine task.
func (s *ScriptState) ClearRoutine() {
	s.routine = nil
	s.routineActive = -1
	s.startNewRoutine = false
}

// HasRoutine reports whether a daily routine is set.
func (s *ScriptState) HasRoutine() bool { return len(s.routine) > 0 }

// Routine returns a copy of the routine tasks.
func (s *ScriptState) Routine() []RoutineTask {
	return append([]RoutineTask(nil), s.routine...)
}

// ActiveRoutineTask returns the task the routine is currently in.
func (s *ScriptState) ActiveRoutineTask() (RoutineTask, bool) {
	if s.routineActive < 0 || s.routineActive >= len(s.routine) {
		return RoutineTask{}, false
	}
	return s.routine[s.routineActive], true
}

// IsInState reports whether the running state is name.
func (s *ScriptState) IsInState(name string) bool {
	return s.current.Valid && s.current.Name == s.machine.Symbols().NormalizeName(name)
}

// IsInRoutine reports whether the running state comes from the routine.
func (s *ScriptState) IsInRoutine() bool {
	return s.current.Valid && s.current.IsRoutineState
}

// CurrentStateName returns the running state's name or "".
func (s *ScriptState) CurrentStateName() string {
	if !s.current.Valid {
		return ""
	}
	return s.current.Name
}

// StateTime returns how long the running state has been looping, in seconds.
func (s *ScriptState) StateTime() float64 {
	if !s.current.Valid {
		return 0
	}
	return s.current.StateTime
}
