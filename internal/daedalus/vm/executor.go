package vm

import (
	"sort"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"regoth/internal/daedalus/symbols"
	"regoth/internal/errs"
)

// Executor runs the body of a script function, prototype or instance
// constructor. Return values are left on the machine's value stack.
type Executor interface {
	Execute(m *Machine, fn symbols.Symbol) error
}

// ScriptFunc is a Go implementation of a script function body.
type ScriptFunc func(m *Machine) error

// ScriptTable is an Executor backed by Go function bodies keyed by symbol
// name. Prototypes and instances without a body are empty constructors.
type ScriptTable struct {
	bodies map[string]ScriptFunc
	fold   cases.Caser
}

// NewScriptTable creates an empty table. Names are case-insensitive.
func NewScriptTable() *ScriptTable {
	return &ScriptTable{
		bodies: make(map[string]ScriptFunc),
		fold:   cases.Upper(language.Und),
	}
}

// Define binds body to the script function called name.
func (t *ScriptTable) Define(name string, body ScriptFunc) *ScriptTable {
	t.bodies[t.key(name)] = body
	return t
}

// Has reports whether name has a body.
func (t *ScriptTable) Has(name string) bool {
	_, ok := t.bodies[t.key(name)]
	return ok
}

// Names lists the defined bodies.
func (t *ScriptTable) Names() []string {
	names := make([]string, 0, len(t.bodies))
	for name := range t.bodies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (t *ScriptTable) key(name string) string {
	return t.fold.String(name)
}

// Execute implements Executor.
func (t *ScriptTable) Execute(m *Machine, fn symbols.Symbol) error {
	name := fn.Header().Name
	body, ok := t.bodies[t.key(name)]
	if !ok {
		switch fn.Kind() {
		case symbols.KindPrototype, symbols.KindInstance:
			return nil
		default:
			return errs.InvalidParameters("no body for script function %s", name)
		}
	}
	return body(m)
}
