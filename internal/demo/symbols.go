package demo

import (
	"regoth/internal/daedalus/symbols"
	"regoth/internal/daedalus/vm"
)

// Instances of the demo village.
const (
	Hero   = "PC_HERO"
	Smith  = "VLK_100_SMITH"
	Farmer = "VLK_101_FARMER"
	Gold   = "ITMI_GOLD"
)

// SmithTalked is a global set once the smith greeted the farmer.
const SmithTalked = "SMITH_TALKED"

type member struct {
	name  string
	kind  symbols.Kind
	count int
}

var npcMembers = []member{
	{"ID", symbols.KindInt, 1},
	{"NAME", symbols.KindString, 1},
	{"LEVEL", symbols.KindInt, 1},
	{"ATTRIBUTE", symbols.KindInt, 4},
	{"WP", symbols.KindString, 1},
	{"DAILY_ROUTINE", symbols.KindScriptFunction, 1},
	{"START_AISTATE", symbols.KindScriptFunction, 1},
}

var itemMembers = []member{
	{"NAME", symbols.KindString, 1},
	{"VALUE", symbols.KindInt, 1},
	{"WEIGHT", symbols.KindFloat, 1},
}

type external struct {
	name    string
	params  int
	returns symbols.ReturnType
}

var externals = []external{
	{"WLD_INSERTNPC", 2, symbols.ReturnVoid},
	{"WLD_INSERTITEM", 2, symbols.ReturnVoid},
	{"WLD_GETDAY", 0, symbols.ReturnInt},
	{"WLD_ISTIME", 4, symbols.ReturnInt},
	{"WLD_SETTIME", 2, symbols.ReturnVoid},
	{"AI_GOTOWP", 2, symbols.ReturnVoid},
	{"AI_GOTOFP", 2, symbols.ReturnVoid},
	{"AI_GOTONPC", 2, symbols.ReturnVoid},
	{"AI_WAIT", 2, symbols.ReturnVoid},
	{"AI_OUTPUT", 3, symbols.ReturnVoid},
	{"AI_WAITTILLEND", 2, symbols.ReturnVoid},
	{"AI_STARTSTATE", 4, symbols.ReturnVoid},
	{"AI_SETWALKMODE", 2, symbols.ReturnVoid},
	{"AI_TURNTONPC", 2, symbols.ReturnVoid},
	{"AI_STANDUP", 1, symbols.ReturnVoid},
	{"AI_DRAWWEAPON", 1, symbols.ReturnVoid},
	{"AI_REMOVEWEAPON", 1, symbols.ReturnVoid},
	{"AI_PLAYANI", 2, symbols.ReturnVoid},
	{"AI_LOOKATNPC", 2, symbols.ReturnVoid},
	{"AI_STOPLOOKAT", 1, symbols.ReturnVoid},
	{"NPC_ISINSTATE", 2, symbols.ReturnInt},
	{"NPC_GETSTATETIME", 1, symbols.ReturnInt},
	{"NPC_ISPLAYER", 1, symbols.ReturnInt},
	{"NPC_EXCHANGEROUTINE", 2, symbols.ReturnVoid},
	{"NPC_CLEARAIQUEUE", 1, symbols.ReturnVoid},
	{"NPC_GETDISTTOWP", 2, symbols.ReturnInt},
	{"HLP_GETNPC", 1, symbols.ReturnInstance},
	{"HLP_ISVALIDNPC", 1, symbols.ReturnInt},
	{"TA_MIN", 7, symbols.ReturnVoid},
	{"PRINTDEBUG", 1, symbols.ReturnVoid},
	// declared only: the world leaves it to the unimplemented-external fallback
	{"NPC_GETTALENTSKILL", 2, symbols.ReturnInt},
}

// script functions: states, routines and their loop/end variants
var functions = []struct {
	name    string
	returns symbols.ReturnType
}{
	{"ZS_STAND", symbols.ReturnVoid},
	{"ZS_STAND_LOOP", symbols.ReturnInt},
	{"ZS_STAND_END", symbols.ReturnVoid},
	{"ZS_SLEEP", symbols.ReturnVoid},
	{"ZS_SLEEP_LOOP", symbols.ReturnInt},
	{"ZS_TALK", symbols.ReturnVoid},
	{"ZS_TALK_LOOP", symbols.ReturnInt},
	{"ZS_TALK_END", symbols.ReturnVoid},
	{"ZS_WALKAROUND", symbols.ReturnVoid},
	{"ZS_WALKAROUND_LOOP", symbols.ReturnInt},
	{"RTN_START_100", symbols.ReturnVoid},
	{"RTN_START_101", symbols.ReturnVoid},
	{"RTN_TAVERN_101", symbols.ReturnVoid},
	{"STARTUP_VILLAGE", symbols.ReturnVoid},
}

// Symbols builds the symbol table of the demo program.
func Symbols() (*symbols.Storage, error) {
	s := symbols.NewStorage()

	npc, err := addClass(s, "C_NPC", npcMembers)
	if err != nil {
		return nil, err
	}
	item, err := addClass(s, "C_ITEM", itemMembers)
	if err != nil {
		return nil, err
	}

	proto, err := symbols.Append[symbols.PrototypeSymbol](s, "NPC_DEFAULT")
	if err != nil {
		return nil, err
	}
	proto.Parent = npc

	for _, name := range []string{Hero, Smith, Farmer} {
		inst, err := symbols.Append[symbols.InstanceSymbol](s, name)
		if err != nil {
			return nil, err
		}
		inst.Parent = proto.Index
	}
	gold, err := symbols.Append[symbols.InstanceSymbol](s, Gold)
	if err != nil {
		return nil, err
	}
	gold.Parent = item

	for _, name := range []string{vm.SymbolSelf, vm.SymbolOther, vm.SymbolVictim, vm.SymbolHero} {
		inst, err := symbols.Append[symbols.InstanceSymbol](s, name)
		if err != nil {
			return nil, err
		}
		inst.Parent = npc
	}
	itemInst, err := symbols.Append[symbols.InstanceSymbol](s, vm.SymbolItem)
	if err != nil {
		return nil, err
	}
	itemInst.Parent = item

	talked, err := symbols.Append[symbols.IntSymbol](s, SmithTalked)
	if err != nil {
		return nil, err
	}
	talked.Count = 1
	talked.Ints = []int32{0}

	for _, ext := range externals {
		sym, err := symbols.Append[symbols.ExternalFunctionSymbol](s, ext.name)
		if err != nil {
			return nil, err
		}
		sym.Count = ext.params
		sym.ReturnType = ext.returns
	}
	for _, fn := range functions {
		sym, err := symbols.Append[symbols.ScriptFunctionSymbol](s, fn.name)
		if err != nil {
			return nil, err
		}
		sym.ReturnType = fn.returns
	}
	return s, nil
}

func addClass(s *symbols.Storage, name string, members []member) (symbols.SymbolIndex, error) {
	class, err := symbols.Append[symbols.ClassSymbol](s, name)
	if err != nil {
		return symbols.SymbolIndexInvalid, err
	}
	class.Size = uint32(len(members))

	for _, m := range members {
		var header *symbols.Base
		full := name + "." + m.name
		switch m.kind {
		case symbols.KindInt:
			sym, err := symbols.Append[symbols.IntSymbol](s, full)
			if err != nil {
				return symbols.SymbolIndexInvalid, err
			}
			header = sym.Header()
		case symbols.KindFloat:
			sym, err := symbols.Append[symbols.FloatSymbol](s, full)
			if err != nil {
				return symbols.SymbolIndexInvalid, err
			}
			header = sym.Header()
		case symbols.KindString:
			sym, err := symbols.Append[symbols.StringSymbol](s, full)
			if err != nil {
				return symbols.SymbolIndexInvalid, err
			}
			header = sym.Header()
		default:
			sym, err := symbols.Append[symbols.ScriptFunctionSymbol](s, full)
			if err != nil {
				return symbols.SymbolIndexInvalid, err
			}
			header = sym.Header()
		}
		header.Parent = class.Index
		header.IsClassVar = true
		header.Count = m.count
	}
	return class.Index, nil
}
