package demo

import (
	"regoth/internal/daedalus/objects"
	"regoth/internal/daedalus/symbols"
	"regoth/internal/daedalus/vm"
)

// greetDistance is how close, in centimeters, the farmer has to be to the
// smithy before the smith greets him.
const greetDistance = 1500

// Scripts returns the Go bodies of every demo script function.
func Scripts() *vm.ScriptTable {
	return vm.NewScriptTable().
		Define("NPC_DEFAULT", npcDefault).
		Define(Hero, pcHero).
		Define(Smith, npc(100, "Harad", "RTN_START_100")).
		Define(Farmer, npc(101, "Lobart", "RTN_START_101")).
		Define(Gold, itemGold).
		Define("STARTUP_VILLAGE", startupVillage).
		Define("ZS_STAND", zsStand).
		Define("ZS_STAND_LOOP", zsStandLoop).
		Define("ZS_STAND_END", zsStandEnd).
		Define("ZS_SLEEP", zsSleep).
		Define("ZS_SLEEP_LOOP", keepLooping).
		Define("ZS_TALK", zsTalk).
		Define("ZS_TALK_LOOP", zsTalkLoop).
		Define("ZS_TALK_END", zsTalkEnd).
		Define("ZS_WALKAROUND", zsWalkaround).
		Define("ZS_WALKAROUND_LOOP", zsWalkaroundLoop).
		Define("RTN_START_100", rtnStart100).
		Define("RTN_START_101", rtnStart101).
		Define("RTN_TAVERN_101", rtnTavern101)
}

// script wraps a machine for a script body. The first failing call sticks
// and turns every later call into a no-op.
type script struct {
	m   *vm.Machine
	err error
}

func run(m *vm.Machine) *script {
	return &script{m: m}
}

func instance(h objects.Handle) vm.Value { return vm.Value{Kind: vm.ValueInstance, Instance: h} }
func str(s string) vm.Value              { return vm.Value{Kind: vm.ValueString, String: s} }
func num(i int32) vm.Value               { return vm.Value{Kind: vm.ValueInt, Int: i} }
func float(f float32) vm.Value           { return vm.Value{Kind: vm.ValueFloat, Float: f} }

func (s *script) self() vm.Value  { return instance(s.m.Self()) }
func (s *script) other() vm.Value { return instance(s.m.Other()) }

// sym pushes a symbol reference the way scripts pass functions and
// instances by name.
func (s *script) sym(name string) vm.Value {
	if s.err != nil {
		return num(0)
	}
	index, err := s.m.Symbols().FindIndexBySymbolName(name)
	if err != nil {
		s.err = err
		return num(0)
	}
	return num(int32(index))
}

func (s *script) call(external string, args ...vm.Value) {
	if s.err != nil {
		return
	}
	for _, arg := range args {
		s.m.Stack().Push(arg)
	}
	s.err = s.m.CallExternal(external)
}

func (s *script) callInt(external string, args ...vm.Value) int32 {
	s.call(external, args...)
	if s.err != nil {
		return 0
	}
	v, err := s.m.Stack().PopInt()
	s.err = err
	return v
}

func (s *script) callInstance(external string, args ...vm.Value) objects.Handle {
	s.call(external, args...)
	if s.err != nil {
		return objects.InvalidHandle
	}
	v, err := s.m.Stack().PopInstance()
	s.err = err
	return v
}

func (s *script) selfString(field string) string {
	if s.err != nil {
		return ""
	}
	v, err := s.m.StringValue(s.m.Self(), field)
	s.err = err
	return v
}

func (s *script) selfInt(field string) int32 {
	if s.err != nil {
		return 0
	}
	v, err := s.m.IntValue(s.m.Self(), field)
	s.err = err
	return v
}

func (s *script) global(name string) *symbols.IntSymbol {
	if s.err != nil {
		return nil
	}
	sym, err := symbols.GetByName[*symbols.IntSymbol](s.m.Symbols(), name)
	s.err = err
	return sym
}

func (s *script) ret(v bool) error {
	if s.err != nil {
		return s.err
	}
	s.m.Stack().PushBool(v)
	return nil
}

// constructor runs fn on the object under construction.
func constructor(fn func(obj *objects.Object, m *vm.Machine) error) vm.ScriptFunc {
	return func(m *vm.Machine) error {
		obj, err := m.CurrentObject()
		if err != nil {
			return err
		}
		return fn(obj, m)
	}
}

func functionPointer(m *vm.Machine, name string) (objects.FunctionPointer, error) {
	index, err := m.Symbols().FindIndexBySymbolName(name)
	if err != nil {
		return objects.NoFunction, err
	}
	return objects.FunctionPointer(index), nil
}

var npcDefault = constructor(func(obj *objects.Object, m *vm.Machine) error {
	if err := obj.SetInt("LEVEL", 1); err != nil {
		return err
	}
	// hitpoints
	if err := obj.SetIntAt("ATTRIBUTE", 0, 40); err != nil {
		return err
	}
	fn, err := functionPointer(m, "ZS_STAND")
	if err != nil {
		return err
	}
	return obj.SetFunctionPointer("START_AISTATE", fn)
})

var pcHero = constructor(func(obj *objects.Object, m *vm.Machine) error {
	if err := obj.SetString("NAME", "Hero"); err != nil {
		return err
	}
	if err := obj.SetInt("LEVEL", 5); err != nil {
		return err
	}
	return obj.SetFunctionPointer("START_AISTATE", objects.NoFunction)
})

func npc(id int32, name, routine string) vm.ScriptFunc {
	return constructor(func(obj *objects.Object, m *vm.Machine) error {
		if err := obj.SetInt("ID", id); err != nil {
			return err
		}
		if err := obj.SetString("NAME", name); err != nil {
			return err
		}
		fn, err := functionPointer(m, routine)
		if err != nil {
			return err
		}
		return obj.SetFunctionPointer("DAILY_ROUTINE", fn)
	})
}

var itemGold = constructor(func(obj *objects.Object, _ *vm.Machine) error {
	if err := obj.SetString("NAME", "Gold"); err != nil {
		return err
	}
	return obj.SetInt("VALUE", 1)
})

func startupVillage(m *vm.Machine) error {
	s := run(m)
	s.call("WLD_INSERTNPC", s.sym(Smith), str("WP_SMITH"))
	s.call("WLD_INSERTNPC", s.sym(Farmer), str("WP_FIELD_1"))
	s.call("WLD_INSERTITEM", s.sym(Gold), str("WP_TAVERN"))
	s.call("PRINTDEBUG", str("village populated"))
	return s.err
}

func zsStand(m *vm.Machine) error {
	s := run(m)
	s.call("AI_GOTOWP", s.self(), str(s.selfString("WP")))
	s.call("AI_GOTOFP", s.self(), str("STAND"))
	return s.err
}

func zsStandLoop(m *vm.Machine) error {
	s := run(m)
	if s.selfInt("ID") == 100 {
		smithGreetsFarmer(s)
	}
	return s.ret(false)
}

// smithGreetsFarmer starts the talk once the smith stood for a while and
// the farmer is close enough. It happens once per game.
func smithGreetsFarmer(s *script) {
	talked := s.global(SmithTalked)
	if s.err != nil || talked.Ints[0] != 0 {
		return
	}
	if s.callInt("NPC_GETSTATETIME", s.self()) < 3 {
		return
	}
	farmer := s.callInstance("HLP_GETNPC", s.sym(Farmer))
	if s.callInt("HLP_ISVALIDNPC", instance(farmer)) == 0 {
		return
	}
	if s.callInt("NPC_GETDISTTOWP", instance(farmer), str("WP_SMITH")) > greetDistance {
		return
	}
	if s.err != nil {
		return
	}
	s.m.SetOther(farmer)
	s.call("AI_STARTSTATE", s.self(), s.sym("ZS_TALK"), num(1), str(""))
}

func zsStandEnd(m *vm.Machine) error {
	s := run(m)
	s.call("PRINTDEBUG", str("stops standing"))
	return s.err
}

func zsSleep(m *vm.Machine) error {
	s := run(m)
	s.call("AI_GOTOWP", s.self(), str(s.selfString("WP")))
	s.call("AI_PLAYANI", s.self(), str("T_STAND_2_SLEEP"))
	return s.err
}

func keepLooping(m *vm.Machine) error {
	return run(m).ret(false)
}

// zsTalk is run by the smith with the farmer as OTHER. The farmer drops
// what he was doing and both wait for each other's lines.
func zsTalk(m *vm.Machine) error {
	s := run(m)
	me, other := s.self(), s.other()

	s.call("AI_TURNTONPC", me, other)
	s.call("AI_OUTPUT", me, other, str("DIA_SMITH_HELLO"))

	s.call("NPC_CLEARAIQUEUE", other)
	s.call("AI_TURNTONPC", other, me)
	s.call("AI_WAITTILLEND", other, me)
	s.call("AI_OUTPUT", other, me, str("DIA_FARMER_ANSWER"))

	s.call("AI_WAITTILLEND", me, other)
	s.call("AI_OUTPUT", me, other, str("DIA_SMITH_BYE"))

	if talked := s.global(SmithTalked); talked != nil {
		talked.Ints[0] = 1
	}
	return s.err
}

func zsTalkLoop(m *vm.Machine) error {
	return run(m).ret(true)
}

// the farmer follows the smith's advice and moves into the tavern
func zsTalkEnd(m *vm.Machine) error {
	s := run(m)
	s.call("AI_STOPLOOKAT", s.self())
	s.call("NPC_CLEARAIQUEUE", s.other())
	s.call("NPC_EXCHANGEROUTINE", s.other(), str("TAVERN"))
	return s.err
}

func zsWalkaround(m *vm.Machine) error {
	s := run(m)
	s.call("AI_SETWALKMODE", s.self(), num(1))
	return s.err
}

func zsWalkaroundLoop(m *vm.Machine) error {
	s := run(m)
	s.call("AI_GOTOWP", s.self(), str("WP_FIELD_2"))
	s.call("AI_WAIT", s.self(), float(2))
	s.call("AI_GOTOWP", s.self(), str(s.selfString("WP")))
	s.call("AI_WAIT", s.self(), float(2))
	return s.ret(false)
}

func (s *script) task(startH, startM, stopH, stopM int32, state, waypoint string) {
	s.call("TA_MIN", s.self(), num(startH), num(startM), num(stopH), num(stopM), s.sym(state), str(waypoint))
}

func rtnStart100(m *vm.Machine) error {
	s := run(m)
	s.task(6, 0, 22, 0, "ZS_STAND", "WP_SMITH")
	s.task(22, 0, 6, 0, "ZS_SLEEP", "WP_SMITH_BED")
	return s.err
}

func rtnStart101(m *vm.Machine) error {
	s := run(m)
	s.task(7, 0, 20, 0, "ZS_WALKAROUND", "WP_FIELD_1")
	s.task(20, 0, 7, 0, "ZS_SLEEP", "WP_FARM_BED")
	return s.err
}

func rtnTavern101(m *vm.Machine) error {
	s := run(m)
	s.task(0, 0, 0, 0, "ZS_STAND", "WP_TAVERN")
	return s.err
}
