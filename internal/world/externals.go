package world

import (
	"math"

	"regoth/internal/ai"
	"regoth/internal/daedalus/objects"
	"regoth/internal/daedalus/symbols"
	"regoth/internal/daedalus/vm"
	"regoth/internal/events"
	"regoth/internal/geom"
)

// RegisterExternals binds the world's native functions on its machine.
// Arguments are popped in reverse declaration order.
func RegisterExternals(w *World) {
	registerWorldExternals(w)
	registerAIExternals(w)
	registerNpcExternals(w)
	registerHelperExternals(w)
}

func registerWorldExternals(w *World) {
	m := w.machine
	m.RegisterExternal("WLD_INSERTNPC", w.extWldInsertNpc)
	m.RegisterExternal("WLD_INSERTITEM", w.extWldInsertItem)
	m.RegisterExternal("WLD_GETDAY", w.extWldGetDay)
	m.RegisterExternal("WLD_ISTIME", w.extWldIsTime)
	m.RegisterExternal("WLD_SETTIME", w.extWldSetTime)
}

func registerAIExternals(w *World) {
	m := w.machine
	m.RegisterExternal("AI_GOTOWP", w.extAIGotoWP)
	m.RegisterExternal("AI_GOTOFP", w.extAIGotoFP)
	m.RegisterExternal("AI_GOTONPC", w.extAIGotoNpc)
	m.RegisterExternal("AI_WAIT", w.extAIWait)
	m.RegisterExternal("AI_OUTPUT", w.extAIOutput)
	m.RegisterExternal("AI_WAITTILLEND", w.extAIWaitTillEnd)
	m.RegisterExternal("AI_STARTSTATE", w.extAIStartState)
	m.RegisterExternal("AI_SETWALKMODE", w.extAISetWalkMode)
	m.RegisterExternal("AI_TURNTONPC", w.extAITurnToNpc)
	m.RegisterExternal("AI_STANDUP", w.extAIStandup)
	m.RegisterExternal("AI_DRAWWEAPON", w.extAIDrawWeapon)
	m.RegisterExternal("AI_REMOVEWEAPON", w.extAIRemoveWeapon)
	m.RegisterExternal("AI_PLAYANI", w.extAIPlayAni)
	m.RegisterExternal("AI_LOOKATNPC", w.extAILookAtNpc)
	m.RegisterExternal("AI_STOPLOOKAT", w.extAIStopLookAt)
}

func registerNpcExternals(w *World) {
	m := w.machine
	m.RegisterExternal("NPC_ISINSTATE", w.extNpcIsInState)
	m.RegisterExternal("NPC_GETSTATETIME", w.extNpcGetStateTime)
	m.RegisterExternal("NPC_ISPLAYER", w.extNpcIsPlayer)
	m.RegisterExternal("NPC_EXCHANGEROUTINE", w.extNpcExchangeRoutine)
	m.RegisterExternal("NPC_CLEARAIQUEUE", w.extNpcClearAIQueue)
	m.RegisterExternal("NPC_GETDISTTOWP", w.extNpcGetDistToWP)
}

func registerHelperExternals(w *World) {
	m := w.machine
	m.RegisterExternal("HLP_GETNPC", w.extHlpGetNpc)
	m.RegisterExternal("HLP_ISVALIDNPC", w.extHlpIsValidNpc)
	m.RegisterExternal("TA_MIN", w.extTaMin)
	m.RegisterExternal("PRINTDEBUG", w.extPrintDebug)
}

func (w *World) popCharacter(m *vm.Machine) (*Character, error) {
	h, err := m.Stack().PopInstance()
	if err != nil {
		return nil, err
	}
	return w.characterByInstance(h)
}

func (w *World) popSymbolName(m *vm.Machine) (string, error) {
	index, err := m.Stack().PopInt()
	if err != nil {
		return "", err
	}
	if _, err := m.Symbols().Symbol(symbols.SymbolIndex(index)); err != nil {
		return "", err
	}
	return m.Symbols().NameOf(symbols.SymbolIndex(index)), nil
}

// WLD_INSERTNPC(instance, spawnpoint)
func (w *World) extWldInsertNpc(m *vm.Machine) error {
	at, err := m.Stack().PopString()
	if err != nil {
		return err
	}
	instance, err := w.popSymbolName(m)
	if err != nil {
		return err
	}
	_, err = w.InsertCharacter(instance, at)
	return err
}

// WLD_INSERTITEM(instance, spawnpoint)
func (w *World) extWldInsertItem(m *vm.Machine) error {
	at, err := m.Stack().PopString()
	if err != nil {
		return err
	}
	instance, err := w.popSymbolName(m)
	if err != nil {
		return err
	}
	pos, _, err := w.resolvePoint(at)
	if err != nil {
		return err
	}
	_, err = w.InsertItem(instance, pos)
	return err
}

// WLD_GETDAY() int
func (w *World) extWldGetDay(m *vm.Machine) error {
	m.Stack().PushInt(int32(w.clock.Day()))
	return nil
}

// WLD_ISTIME(hour1, min1, hour2, min2) int
func (w *World) extWldIsTime(m *vm.Machine) error {
	var args [4]int32
	for i := len(args) - 1; i >= 0; i-- {
		v, err := m.Stack().PopInt()
		if err != nil {
			return err
		}
		args[i] = v
	}
	m.Stack().PushBool(w.clock.IsTime(int(args[0]), int(args[1]), int(args[2]), int(args[3])))
	return nil
}

// WLD_SETTIME(hour, min)
func (w *World) extWldSetTime(m *vm.Machine) error {
	minute, err := m.Stack().PopInt()
	if err != nil {
		return err
	}
	hour, err := m.Stack().PopInt()
	if err != nil {
		return err
	}
	w.clock.SetTime(int(hour), int(minute))
	return nil
}

// AI_GOTOWP(npc, waypoint)
func (w *World) extAIGotoWP(m *vm.Machine) error {
	wp, err := m.Stack().PopString()
	if err != nil {
		return err
	}
	c, err := w.popCharacter(m)
	if err != nil {
		return err
	}
	c.queue.OnMessage(events.NewMovement(events.MovementGotoPos, events.MovementPayload{TargetWaypoint: wp, WalkMode: c.walkMode}))
	return nil
}

// AI_GOTOFP(npc, freepoint)
func (w *World) extAIGotoFP(m *vm.Machine) error {
	fp, err := m.Stack().PopString()
	if err != nil {
		return err
	}
	c, err := w.popCharacter(m)
	if err != nil {
		return err
	}
	c.queue.OnMessage(events.NewMovement(events.MovementGotoFP, events.MovementPayload{TargetFreepoint: fp, WalkMode: c.walkMode}))
	return nil
}

// AI_GOTONPC(npc, other)
func (w *World) extAIGotoNpc(m *vm.Machine) error {
	target, err := w.popCharacter(m)
	if err != nil {
		return err
	}
	c, err := w.popCharacter(m)
	if err != nil {
		return err
	}
	c.queue.OnMessage(events.NewMovement(events.MovementGotoVob, events.MovementPayload{TargetVob: target.native, WalkMode: c.walkMode}))
	return nil
}

// AI_WAIT(npc, seconds)
func (w *World) extAIWait(m *vm.Machine) error {
	seconds, err := m.Stack().PopFloat()
	if err != nil {
		return err
	}
	c, err := w.popCharacter(m)
	if err != nil {
		return err
	}
	c.queue.OnMessage(events.NewState(events.StateWait, events.StatePayload{Seconds: float64(seconds)}))
	return nil
}

// AI_OUTPUT(npc, target, outputName)
func (w *World) extAIOutput(m *vm.Machine) error {
	name, err := m.Stack().PopString()
	if err != nil {
		return err
	}
	target, err := w.popCharacter(m)
	if err != nil {
		return err
	}
	c, err := w.popCharacter(m)
	if err != nil {
		return err
	}
	c.queue.OnMessageFromObject(events.NewConversation(events.ConversationOutput, events.ConversationPayload{
		Name:   name,
		Target: target.native,
	}), c.native)
	return nil
}

// AI_WAITTILLEND(npc, other) makes npc wait for the last action other has
// queued so far.
func (w *World) extAIWaitTillEnd(m *vm.Machine) error {
	other, err := w.popCharacter(m)
	if err != nil {
		return err
	}
	c, err := w.popCharacter(m)
	if err != nil {
		return err
	}
	c.queue.WaitForMessage(other.queue.Back())
	return nil
}

// AI_STARTSTATE(npc, state, endOldState, waypoint). The state starts once
// the actions queued before it are done.
func (w *World) extAIStartState(m *vm.Machine) error {
	wp, err := m.Stack().PopString()
	if err != nil {
		return err
	}
	behaviour, err := m.Stack().PopInt()
	if err != nil {
		return err
	}
	state, err := w.popSymbolName(m)
	if err != nil {
		return err
	}
	c, err := w.popCharacter(m)
	if err != nil {
		return err
	}

	msg := events.NewState(events.StateStartState, events.StatePayload{
		Function:    state,
		EndOldState: behaviour != 0,
		Other:       m.Other(),
		Victim:      m.Victim(),
		Waypoint:    wp,
	})
	msg.IsJob = true
	c.queue.OnMessage(msg)
	return nil
}

// AI_SETWALKMODE(npc, mode)
func (w *World) extAISetWalkMode(m *vm.Machine) error {
	mode, err := m.Stack().PopInt()
	if err != nil {
		return err
	}
	c, err := w.popCharacter(m)
	if err != nil {
		return err
	}
	c.queue.OnMessage(events.NewMovement(events.MovementSetWalkMode, events.MovementPayload{WalkMode: events.WalkMode(mode)}))
	return nil
}

// AI_TURNTONPC(npc, other)
func (w *World) extAITurnToNpc(m *vm.Machine) error {
	target, err := w.popCharacter(m)
	if err != nil {
		return err
	}
	c, err := w.popCharacter(m)
	if err != nil {
		return err
	}
	c.queue.OnMessage(events.NewMovement(events.MovementTurnToVob, events.MovementPayload{TargetVob: target.native}))
	return nil
}

// AI_STANDUP(npc)
func (w *World) extAIStandup(m *vm.Machine) error {
	c, err := w.popCharacter(m)
	if err != nil {
		return err
	}
	c.queue.OnMessage(events.NewMovement(events.MovementStandup, events.MovementPayload{}))
	return nil
}

// AI_DRAWWEAPON(npc)
func (w *World) extAIDrawWeapon(m *vm.Machine) error {
	c, err := w.popCharacter(m)
	if err != nil {
		return err
	}
	c.queue.OnMessage(events.NewWeapon(events.WeaponDrawWeapon, events.WeaponPayload{WeaponMode: 1}))
	return nil
}

// AI_REMOVEWEAPON(npc)
func (w *World) extAIRemoveWeapon(m *vm.Machine) error {
	c, err := w.popCharacter(m)
	if err != nil {
		return err
	}
	c.queue.OnMessage(events.NewWeapon(events.WeaponRemoveWeapon, events.WeaponPayload{}))
	return nil
}

// AI_PLAYANI(npc, animation)
func (w *World) extAIPlayAni(m *vm.Machine) error {
	ani, err := m.Stack().PopString()
	if err != nil {
		return err
	}
	c, err := w.popCharacter(m)
	if err != nil {
		return err
	}
	c.queue.OnMessage(events.NewConversation(events.ConversationPlayAni, events.ConversationPayload{Animation: ani}))
	return nil
}

// AI_LOOKATNPC(npc, other)
func (w *World) extAILookAtNpc(m *vm.Machine) error {
	target, err := w.popCharacter(m)
	if err != nil {
		return err
	}
	c, err := w.popCharacter(m)
	if err != nil {
		return err
	}
	c.queue.OnMessage(events.NewConversation(events.ConversationLookAt, events.ConversationPayload{Target: target.native}))
	return nil
}

// AI_STOPLOOKAT(npc)
func (w *World) extAIStopLookAt(m *vm.Machine) error {
	c, err := w.popCharacter(m)
	if err != nil {
		return err
	}
	c.queue.OnMessage(events.NewConversation(events.ConversationStopLookAt, events.ConversationPayload{}))
	return nil
}

// NPC_ISINSTATE(npc, state) int
func (w *World) extNpcIsInState(m *vm.Machine) error {
	state, err := w.popSymbolName(m)
	if err != nil {
		return err
	}
	c, err := w.popCharacter(m)
	if err != nil {
		return err
	}
	m.Stack().PushBool(c.state.IsInState(state))
	return nil
}

// NPC_GETSTATETIME(npc) int, in whole seconds
func (w *World) extNpcGetStateTime(m *vm.Machine) error {
	c, err := w.popCharacter(m)
	if err != nil {
		return err
	}
	m.Stack().PushInt(int32(c.state.StateTime()))
	return nil
}

// NPC_ISPLAYER(npc) int
func (w *World) extNpcIsPlayer(m *vm.Machine) error {
	c, err := w.popCharacter(m)
	if err != nil {
		return err
	}
	m.Stack().PushBool(c.player)
	return nil
}

// NPC_EXCHANGEROUTINE(npc, routine) switches to RTN_<routine>_<npc ID>.
func (w *World) extNpcExchangeRoutine(m *vm.Machine) error {
	routine, err := m.Stack().PopString()
	if err != nil {
		return err
	}
	c, err := w.popCharacter(m)
	if err != nil {
		return err
	}
	id, err := m.IntValue(c.instance, "ID")
	if err != nil {
		return err
	}
	return w.ExchangeRoutine(c, routineFunctionName(routine, id))
}

// NPC_CLEARAIQUEUE(npc)
func (w *World) extNpcClearAIQueue(m *vm.Machine) error {
	c, err := w.popCharacter(m)
	if err != nil {
		return err
	}
	c.ClearEventQueue()
	return nil
}

// NPC_GETDISTTOWP(npc, waypoint) int, in centimeters. Unknown waypoints are
// infinitely far away.
func (w *World) extNpcGetDistToWP(m *vm.Machine) error {
	name, err := m.Stack().PopString()
	if err != nil {
		return err
	}
	c, err := w.popCharacter(m)
	if err != nil {
		return err
	}
	wp, err := w.waynet.FindWaypointByName(name)
	if err != nil {
		m.Stack().PushInt(math.MaxInt32)
		return nil
	}
	m.Stack().PushInt(int32(geom.Distance(c.position, wp.Position) * 100))
	return nil
}

// HLP_GETNPC(instance) instance
func (w *World) extHlpGetNpc(m *vm.Machine) error {
	index, err := m.Stack().PopInt()
	if err != nil {
		return err
	}
	h, err := m.InstanceHandle(symbols.SymbolIndex(index))
	if err != nil {
		h = objects.InvalidHandle
	}
	m.Stack().PushInstance(h)
	return nil
}

// HLP_ISVALIDNPC(npc) int
func (w *World) extHlpIsValidNpc(m *vm.Machine) error {
	h, err := m.Stack().PopInstance()
	if err != nil {
		return err
	}
	_, err = w.characterByInstance(h)
	m.Stack().PushBool(err == nil)
	return nil
}

// TA_MIN(npc, startH, startM, stopH, stopM, state, waypoint)
func (w *World) extTaMin(m *vm.Machine) error {
	wp, err := m.Stack().PopString()
	if err != nil {
		return err
	}
	state, err := w.popSymbolName(m)
	if err != nil {
		return err
	}
	var times [4]int32
	for i := len(times) - 1; i >= 0; i-- {
		v, err := m.Stack().PopInt()
		if err != nil {
			return err
		}
		times[i] = v
	}
	c, err := w.popCharacter(m)
	if err != nil {
		return err
	}
	c.state.InsertRoutineTask(ai.RoutineTask{
		HoursStart:     int(times[0]),
		MinutesStart:   int(times[1]),
		HoursEnd:       int(times[2]),
		MinutesEnd:     int(times[3]),
		ScriptFunction: state,
		Waypoint:       wp,
	})
	return nil
}

// PRINTDEBUG(text)
func (w *World) extPrintDebug(m *vm.Machine) error {
	text, err := m.Stack().PopString()
	if err != nil {
		return err
	}
	w.log.Debug("script", "text", text)
	return nil
}
