package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"regoth/internal/daedalus/objects"
	"regoth/internal/daedalus/symbols"
	"regoth/internal/daedalus/vm"
)

type fakeHost struct {
	handle      objects.Handle
	player      bool
	busy        bool
	cleared     int
	nativeLoops []string
}

func (h *fakeHost) ScriptInstance() objects.Handle { return h.handle }
func (h *fakeHost) IsPlayer() bool                 { return h.player }
func (h *fakeHost) IsEventQueueEmpty() bool        { return !h.busy }
func (h *fakeHost) ClearEventQueue()               { h.cleared++ }
func (h *fakeHost) OnNativeStateLoop(state string) { h.nativeLoops = append(h.nativeLoops, state) }

type fakeClock struct{ hour, minute int }

func (c *fakeClock) TimeOfDay() (int, int) { return c.hour, c.minute }

type harness struct {
	machine *vm.Machine
	host    *fakeHost
	clock   *fakeClock
	state   *ScriptState
	calls   []string
	other   objects.Handle
}

func appendSym[T any, PT interface {
	*T
	symbols.Symbol
}](t *testing.T, s *symbols.Storage, name string, parent symbols.SymbolIndex) PT {
	t.Helper()
	sym, err := symbols.Append[T, PT](s, name)
	require.NoError(t, err)
	sym.Header().Parent = parent
	return sym
}

func newHarness(t *testing.T) *harness {
	s := symbols.NewStorage()
	npc := appendSym[symbols.ClassSymbol](t, s, "C_NPC", symbols.SymbolIndexInvalid)
	wp := appendSym[symbols.StringSymbol](t, s, "C_NPC.WP", npc.Index)
	wp.IsClassVar, wp.Count = true, 1
	start := appendSym[symbols.ScriptFunctionSymbol](t, s, "C_NPC.START_AISTATE", npc.Index)
	start.IsClassVar = true

	proto := appendSym[symbols.PrototypeSymbol](t, s, "NPC_DEFAULT", npc.Index)
	bau := appendSym[symbols.InstanceSymbol](t, s, "BAU_1", proto.Index)
	hero := appendSym[symbols.InstanceSymbol](t, s, "PC_HERO", proto.Index)
	for _, name := range []string{vm.SymbolSelf, vm.SymbolOther, vm.SymbolVictim, vm.SymbolItem, vm.SymbolHero} {
		appendSym[symbols.InstanceSymbol](t, s, name, npc.Index)
	}

	h := &harness{}
	record := func(name string) vm.ScriptFunc {
		return func(m *vm.Machine) error {
			h.calls = append(h.calls, name)
			return nil
		}
	}
	keepLooping := func(name string) vm.ScriptFunc {
		return func(m *vm.Machine) error {
			h.calls = append(h.calls, name)
			m.Stack().PushBool(false)
			return nil
		}
	}

	table := vm.NewScriptTable()
	for _, name := range []string{
		"ZS_STAND", "ZS_GUARD", "ZS_GUARD_END", "ZS_GUARD_INTERRUPT", "ZS_SLEEP", "ZS_SLEEP_END",
		"ZS_TALK_END", "ZS_MAGICSLEEP",
	} {
		appendSym[symbols.ScriptFunctionSymbol](t, s, name, symbols.SymbolIndexInvalid)
		table.Define(name, record(name))
	}
	for _, name := range []string{"ZS_GUARD_LOOP", "ZS_SLEEP_LOOP", "ZS_TALK_LOOP", "ZS_MAGICSLEEP_LOOP"} {
		appendSym[symbols.ScriptFunctionSymbol](t, s, name, symbols.SymbolIndexInvalid)
		table.Define(name, keepLooping(name))
	}
	appendSym[symbols.ScriptFunctionSymbol](t, s, "ZS_TALK", symbols.SymbolIndexInvalid)
	table.Define("ZS_TALK", func(m *vm.Machine) error {
		h.calls = append(h.calls, "ZS_TALK")
		h.other = m.Other()
		return nil
	})

	machine, err := vm.New(s, table)
	require.NoError(t, err)
	npcHandle, err := machine.InstantiateClass("C_NPC", bau.Index, 1)
	require.NoError(t, err)
	heroHandle, err := machine.InstantiateClass("C_NPC", hero.Index, 2)
	require.NoError(t, err)
	machine.SetHero(heroHandle)

	h.machine = machine
	h.host = &fakeHost{handle: npcHandle}
	h.clock = &fakeClock{hour: 10}
	h.state = NewScriptState(h.host, machine, h.clock)
	return h
}

func (h *harness) count(name string) int {
	n := 0
	for _, c := range h.calls {
		if c == name {
			n++
		}
	}
	return n
}

func TestIsTimeInTaskRange(t *testing.T) {
	night := RoutineTask{HoursStart: 22, HoursEnd: 2}
	assert.True(t, IsTimeInTaskRange(night, 23, 30))
	assert.True(t, IsTimeInTaskRange(night, 1, 0))
	assert.True(t, IsTimeInTaskRange(night, 22, 0))
	assert.False(t, IsTimeInTaskRange(night, 2, 0))
	assert.False(t, IsTimeInTaskRange(night, 10, 0))

	day := RoutineTask{HoursStart: 8, MinutesStart: 30, HoursEnd: 20}
	assert.False(t, IsTimeInTaskRange(day, 8, 29))
	assert.True(t, IsTimeInTaskRange(day, 8, 30))
	assert.True(t, IsTimeInTaskRange(day, 19, 59))
	assert.False(t, IsTimeInTaskRange(day, 20, 0))

	assert.True(t, IsTimeInTaskRange(RoutineTask{HoursStart: 6, HoursEnd: 6}, 3, 0))
}

func TestStateWithoutLoopEndsInOneTick(t *testing.T) {
	h := newHarness(t)
	require.True(t, h.state.StartScriptAIState("zs_stand"))
	assert.Equal(t, PhaseUninitialized, h.state.Next().Phase)

	assert.True(t, h.state.DoAIState(0))
	assert.Equal(t, PhaseEnd, h.state.Current().Phase)
	assert.Equal(t, []string{"ZS_STAND"}, h.calls)

	assert.False(t, h.state.DoAIState(0), "nothing to fall back to")
	assert.Empty(t, h.state.CurrentStateName())
}

func TestLoopReturningFalseKeepsLooping(t *testing.T) {
	h := newHarness(t)
	require.True(t, h.state.StartScriptAIState("ZS_GUARD"))

	for i := 0; i < 4; i++ {
		assert.True(t, h.state.DoAIState(1))
	}
	assert.Equal(t, PhaseLoop, h.state.Current().Phase)
	assert.True(t, h.state.IsInState("zs_guard"))
	assert.Equal(t, 4, h.count("ZS_GUARD_LOOP"))
	assert.Equal(t, 0, h.count("ZS_GUARD_END"))
	assert.InDelta(t, 3.0, h.state.StateTime(), 1e-9)
}

func TestRequestedStateReplacesRunningState(t *testing.T) {
	h := newHarness(t)
	require.True(t, h.state.StartScriptAIState("ZS_GUARD"))
	require.True(t, h.state.ApplyStateChange())

	h.machine.SetOther(h.machine.Hero())
	require.True(t, h.state.StartScriptAIState("ZS_TALK"))
	h.machine.SetOther(objects.InvalidHandle)

	h.state.RequestEndActiveState()
	assert.True(t, h.state.ApplyStateChange())

	assert.True(t, h.state.IsInState("ZS_TALK"))
	assert.False(t, h.state.IsInRoutine())
	assert.Equal(t, 1, h.count("ZS_GUARD_END"))
	assert.Equal(t, 1, h.count("ZS_TALK"))
	assert.Equal(t, h.machine.Hero(), h.other, "OTHER captured when the state was requested")
	assert.Equal(t, []string{"ZS_GUARD", "ZS_GUARD_LOOP", "ZS_GUARD_END", "ZS_TALK", "ZS_TALK_LOOP"}, h.calls)
}

func TestPendingActionsSuspendStateChange(t *testing.T) {
	h := newHarness(t)
	require.True(t, h.state.StartScriptAIState("ZS_GUARD"))

	h.host.busy = true
	assert.False(t, h.state.DoAIState(1))
	assert.Empty(t, h.calls)

	h.host.busy = false
	assert.True(t, h.state.DoAIState(1))
	assert.True(t, h.state.IsInState("ZS_GUARD"))
}

func TestInterruptSkipsEndFunction(t *testing.T) {
	h := newHarness(t)
	require.True(t, h.state.StartScriptAIState("ZS_GUARD"))
	require.True(t, h.state.ApplyStateChange())

	h.state.InterruptActiveState()
	assert.Empty(t, h.state.CurrentStateName())
	assert.Equal(t, PhaseInterrupt, h.state.Current().Phase)
	assert.Equal(t, 1, h.host.cleared)
	assert.Equal(t, 0, h.count("ZS_GUARD_END"))
	assert.Equal(t, 1, h.count("ZS_GUARD_INTERRUPT"))

	require.True(t, h.state.StartAIState("ZS_SLEEP", false))
	assert.Equal(t, 2, h.host.cleared)
	assert.True(t, h.state.ApplyStateChange())
	assert.True(t, h.state.IsInState("ZS_SLEEP"))
}

func TestPlayerAllowlist(t *testing.T) {
	h := newHarness(t)
	h.host.player = true

	assert.True(t, h.state.CanPlayerUseAIState(AIState{Name: "ZS_MAGICSLEEP"}))
	assert.True(t, h.state.CanPlayerUseAIState(AIState{Name: StateDead}))
	assert.False(t, h.state.CanPlayerUseAIState(AIState{Name: "ZS_TALK"}))

	require.True(t, h.state.StartScriptAIState("ZS_TALK"))
	h.state.InterruptActiveState()
	assert.Equal(t, 0, h.host.cleared, "pending actions kept for a refused state")
	assert.False(t, h.state.DoAIState(0))
	assert.Empty(t, h.calls)
	assert.False(t, h.state.Next().Valid)

	require.True(t, h.state.StartScriptAIState("ZS_MAGICSLEEP"))
	h.state.InterruptActiveState()
	assert.Equal(t, 1, h.host.cleared)
	assert.True(t, h.state.DoAIState(0))
	assert.True(t, h.state.IsInState("ZS_MAGICSLEEP"))
}

func TestNativeStates(t *testing.T) {
	h := newHarness(t)
	assert.False(t, h.state.StartNativeAIState("ZS_TALK"))
	assert.False(t, h.state.StartScriptAIState("ZS_UNKNOWN"))

	require.True(t, h.state.StartScriptAIState("zs_unconscious"))
	next := h.state.Next()
	assert.False(t, next.IsScriptState)
	assert.Equal(t, symbols.SymbolIndexInvalid, next.SymIndex)

	assert.True(t, h.state.DoAIState(0))
	assert.Equal(t, []string{StateUnconscious}, h.host.nativeLoops)
	assert.Equal(t, PhaseLoop, h.state.Current().Phase)
}

func TestNativeStateLoopsUntilEnded(t *testing.T) {
	h := newHarness(t)
	require.True(t, h.state.StartNativeAIState(StateDead))

	for i := 1; i <= 5; i++ {
		require.True(t, h.state.DoAIState(1))
		assert.True(t, h.state.IsInState(StateDead))
		assert.Equal(t, PhaseLoop, h.state.Current().Phase)
		assert.Len(t, h.host.nativeLoops, i)
	}

	h.state.RequestEndActiveState()
	assert.False(t, h.state.DoAIState(1))
	assert.Empty(t, h.state.CurrentStateName())
	assert.Len(t, h.host.nativeLoops, 5)
}

func TestStartAIStateFallback(t *testing.T) {
	h := newHarness(t)
	guard, err := h.machine.Symbols().FindIndexBySymbolName("ZS_GUARD")
	require.NoError(t, err)
	obj, err := h.machine.Object(h.host.handle)
	require.NoError(t, err)
	require.NoError(t, obj.SetFunctionPointer("START_AISTATE", objects.FunctionPointer(guard)))

	assert.True(t, h.state.DoAIState(0))
	assert.True(t, h.state.IsInState("ZS_GUARD"))
	assert.True(t, h.state.IsInRoutine())
}

func TestDailyRoutine(t *testing.T) {
	h := newHarness(t)
	assert.False(t, h.state.HasRoutine())
	h.state.InsertRoutineTask(RoutineTask{HoursStart: 8, HoursEnd: 20, ScriptFunction: "zs_guard", Waypoint: "WP_GATE"})
	h.state.InsertRoutineTask(RoutineTask{HoursStart: 20, HoursEnd: 8, ScriptFunction: "ZS_SLEEP", Waypoint: "WP_BED"})
	h.state.ReinitRoutine()
	require.True(t, h.state.HasRoutine())

	assert.True(t, h.state.DoAIState(1))
	assert.True(t, h.state.IsInState("ZS_GUARD"))
	assert.True(t, h.state.IsInRoutine())
	wp, err := h.machine.StringValue(h.host.handle, "WP")
	require.NoError(t, err)
	assert.Equal(t, "WP_GATE", wp)

	h.clock.hour = 21
	assert.True(t, h.state.DoAIState(1))
	assert.True(t, h.state.IsInState("ZS_SLEEP"))
	assert.Equal(t, 1, h.count("ZS_GUARD_END"))
	task, ok := h.state.ActiveRoutineTask()
	require.True(t, ok)
	assert.Equal(t, "ZS_SLEEP", task.ScriptFunction)
	wp, err = h.machine.StringValue(h.host.handle, "WP")
	require.NoError(t, err)
	assert.Equal(t, "WP_BED", wp)

	h.state.ClearRoutine()
	assert.False(t, h.state.HasRoutine())
	_, ok = h.state.ActiveRoutineTask()
	assert.False(t, ok)
	assert.Len(t, h.state.Routine(), 0)
}

func TestRoutineWaitsForNonRoutineState(t *testing.T) {
	h := newHarness(t)
	h.state.InsertRoutineTask(RoutineTask{HoursStart: 8, HoursEnd: 20, ScriptFunction: "ZS_GUARD", Waypoint: "WP_GATE"})
	h.state.InsertRoutineTask(RoutineTask{HoursStart: 20, HoursEnd: 8, ScriptFunction: "ZS_SLEEP", Waypoint: "WP_BED"})
	h.state.ReinitRoutine()
	require.True(t, h.state.DoAIState(1))

	require.True(t, h.state.StartAIState("ZS_TALK", true))
	require.True(t, h.state.DoAIState(1))
	require.True(t, h.state.IsInState("ZS_TALK"))

	h.clock.hour = 22
	assert.True(t, h.state.DoAIState(1))
	assert.True(t, h.state.IsInState("ZS_TALK"), "talking is not cut short by the routine")

	h.state.RequestEndActiveState()
	assert.True(t, h.state.DoAIState(1))
	assert.True(t, h.state.IsInState("ZS_SLEEP"))
}

func TestRoutineSwitchKeepsRequestedState(t *testing.T) {
	h := newHarness(t)
	h.state.InsertRoutineTask(RoutineTask{HoursStart: 8, HoursEnd: 20, ScriptFunction: "ZS_GUARD", Waypoint: "WP_GATE"})
	h.state.InsertRoutineTask(RoutineTask{HoursStart: 20, HoursEnd: 8, ScriptFunction: "ZS_SLEEP", Waypoint: "WP_BED"})
	h.state.ReinitRoutine()
	require.True(t, h.state.DoAIState(1))
	require.True(t, h.state.IsInState("ZS_GUARD"))

	// the routine wants to switch while actions are pending
	h.host.busy = true
	h.clock.hour = 21
	h.state.DoAIState(1)
	require.True(t, h.state.StartAIState("ZS_TALK", true))

	h.host.busy = false
	assert.True(t, h.state.DoAIState(1))
	assert.True(t, h.state.IsInState("ZS_TALK"))
	assert.Equal(t, 1, h.count("ZS_TALK"))
	assert.Equal(t, 1, h.count("ZS_GUARD_END"))

	assert.True(t, h.state.DoAIState(1))
	assert.True(t, h.state.IsInState("ZS_TALK"), "routine waits for the requested state")

	h.state.RequestEndActiveState()
	assert.True(t, h.state.DoAIState(1))
	assert.True(t, h.state.IsInState("ZS_SLEEP"))
	assert.True(t, h.state.IsInRoutine())
	assert.Equal(t, 1, h.count("ZS_TALK_END"))
}
