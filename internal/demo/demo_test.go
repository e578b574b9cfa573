package demo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"regoth/internal/daedalus/objects"
	"regoth/internal/daedalus/symbols"
	"regoth/internal/daedalus/vm"
)

func TestEveryScriptFunctionHasABody(t *testing.T) {
	table, err := Symbols()
	require.NoError(t, err)
	scripts := Scripts()

	table.Each(func(sym symbols.Symbol) {
		if sym.Kind() == symbols.KindScriptFunction && !sym.Header().IsClassVar {
			assert.True(t, scripts.Has(sym.Header().Name), sym.Header().Name)
		}
	})
}

func TestClassTemplates(t *testing.T) {
	m, err := NewMachine()
	require.NoError(t, err)

	npc, err := m.Templates().ClassTemplate("C_NPC")
	require.NoError(t, err)
	assert.Len(t, npc.Ints["ATTRIBUTE"], 4)
	assert.Equal(t, objects.NoFunction, npc.Functions["DAILY_ROUTINE"])

	item, err := m.Templates().ClassTemplate("C_ITEM")
	require.NoError(t, err)
	assert.Contains(t, item.Floats, "WEIGHT")
}

func TestInstanceConstructors(t *testing.T) {
	m, err := NewMachine()
	require.NoError(t, err)

	index, err := m.Symbols().FindIndexBySymbolName(Smith)
	require.NoError(t, err)
	h, err := m.InstantiateClass("C_NPC", index, objects.InvalidNativeHandle)
	require.NoError(t, err)

	obj, err := m.Object(h)
	require.NoError(t, err)
	id, _ := obj.Int("ID")
	level, _ := obj.Int("LEVEL")
	hp, _ := obj.IntAt("ATTRIBUTE", 0)
	name, _ := obj.StringValue("NAME")
	assert.Equal(t, int32(100), id)
	assert.Equal(t, int32(1), level, "prototype runs first")
	assert.Equal(t, int32(40), hp)
	assert.Equal(t, "Harad", name)

	routine, err := obj.FunctionPointerValue("DAILY_ROUTINE")
	require.NoError(t, err)
	assert.Equal(t, "RTN_START_100", m.Symbols().NameOf(symbols.SymbolIndex(routine)))
	start, err := obj.FunctionPointerValue("START_AISTATE")
	require.NoError(t, err)
	assert.Equal(t, "ZS_STAND", m.Symbols().NameOf(symbols.SymbolIndex(start)))

	hero, err := m.Symbols().FindIndexBySymbolName(Hero)
	require.NoError(t, err)
	h, err = m.InstantiateClass("C_NPC", hero, objects.InvalidNativeHandle)
	require.NoError(t, err)
	fn, err := m.FunctionPointerValue(h, "START_AISTATE")
	require.NoError(t, err)
	assert.Equal(t, objects.NoFunction, fn)
}

func TestScriptCallsStopAtFirstError(t *testing.T) {
	m, err := NewMachine()
	require.NoError(t, err)
	var printed []string
	m.RegisterExternal("PRINTDEBUG", func(m *vm.Machine) error {
		text, err := m.Stack().PopString()
		printed = append(printed, text)
		return err
	})

	s := run(m)
	s.call("PRINTDEBUG", str("first"))
	s.call("NO_SUCH_EXTERNAL")
	s.call("PRINTDEBUG", str("second"))
	require.Error(t, s.err)
	assert.Equal(t, []string{"first"}, printed)
	assert.Equal(t, 0, m.Stack().Len())
}

func TestUnboundExternalKeepsStackBalanced(t *testing.T) {
	m, err := NewMachine()
	require.NoError(t, err)

	s := run(m)
	skill := s.callInt("NPC_GETTALENTSKILL", instance(objects.InvalidHandle), num(3))
	require.NoError(t, s.err)
	assert.Zero(t, skill)
	assert.Equal(t, 0, m.Stack().Len())
}

func TestRoutineFunctionsDeclareTasks(t *testing.T) {
	m, err := NewMachine()
	require.NoError(t, err)

	type task struct {
		startH, stopH int32
		state, wp     string
	}
	var tasks []task
	m.RegisterExternal("TA_MIN", func(m *vm.Machine) error {
		st := m.Stack()
		wp, _ := st.PopString()
		state, _ := st.PopInt()
		_, _ = st.PopInt()
		stopH, _ := st.PopInt()
		_, _ = st.PopInt()
		startH, _ := st.PopInt()
		_, err := st.PopInstance()
		tasks = append(tasks, task{startH, stopH, m.Symbols().NameOf(symbols.SymbolIndex(state)), wp})
		return err
	})

	require.NoError(t, m.RunFunction("RTN_START_101"))
	assert.Equal(t, []task{
		{7, 20, "ZS_WALKAROUND", "WP_FIELD_1"},
		{20, 7, "ZS_SLEEP", "WP_FARM_BED"},
	}, tasks)
}
