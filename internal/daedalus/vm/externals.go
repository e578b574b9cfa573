package vm

import (
	"sort"

	"regoth/internal/daedalus/symbols"
	"regoth/internal/errs"
)

// ExternalFunc implements a native function callable from scripts. It pops
// its arguments from the machine's stack and pushes its result, if any.
type ExternalFunc func(m *Machine) error

// RegisterExternal binds fn to the external called name, replacing any
// previous binding.
func (m *Machine) RegisterExternal(name string, fn ExternalFunc) {
	m.externals[m.symbols.NormalizeName(name)] = fn
}

// HasExternal reports whether a native implementation exists for name.
func (m *Machine) HasExternal(name string) bool {
	_, ok := m.externals[m.symbols.NormalizeName(name)]
	return ok
}

// Externals returns the registered names in sorted order.
func (m *Machine) Externals() []string {
	names := make([]string, 0, len(m.externals))
	for name := range m.externals {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CallExternal dispatches the external called name.
//
// An external declared in the symbol table without a native implementation is
// logged and its declared return type is satisfied with a zero value, so the
// calling script keeps a balanced stack.
func (m *Machine) CallExternal(name string) error {
	key := m.symbols.NormalizeName(name)
	if fn, ok := m.externals[key]; ok {
		return fn(m)
	}

	ext, err := symbols.GetByName[*symbols.ExternalFunctionSymbol](m.symbols, key)
	if err != nil {
		return errs.InvalidParameters("unknown external %s", name)
	}

	m.log.Warn("external not implemented", "name", key)
	// discard the arguments
	m.stack.Truncate(m.stack.Len() - min(ext.Count, m.stack.Len()))
	switch ext.ReturnType {
	case symbols.ReturnInt:
		m.stack.PushInt(0)
	case symbols.ReturnFloat:
		m.stack.PushFloat(0)
	case symbols.ReturnString:
		m.stack.PushString("")
	case symbols.ReturnInstance:
		m.stack.PushInstance(0)
	}
	return nil
}
