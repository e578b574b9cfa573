// Package vm is the call contract of the Daedalus script machine.
//
// A Machine is the per-world scripting context: it owns the symbol table, the
// object heap, the script/native mapping, class templates, the value stack and
// the externals registry. Function bodies are run by an Executor.
package vm

import (
	"fmt"
	"log/slog"

	"regoth/internal/daedalus/objects"
	"regoth/internal/daedalus/symbols"
	"regoth/internal/daedalus/templates"
	"regoth/internal/errs"
	"regoth/internal/log"
)

// Names of the instance symbols the engine binds while running code.
const (
	SymbolSelf   = "SELF"
	SymbolOther  = "OTHER"
	SymbolVictim = "VICTIM"
	SymbolItem   = "ITEM"
	SymbolHero   = "HERO"
)

const maxCallDepth = 256

// Bindings are the subject references a state function runs against.
type Bindings struct {
	Self   objects.Handle
	Other  objects.Handle
	Victim objects.Handle
	Item   objects.Handle
}

// Machine runs script code against one world.
type Machine struct {
	symbols   *symbols.Storage
	objects   *objects.Storage
	mapping   *objects.Mapping
	templates *templates.Templates
	stack     *Stack
	externals map[string]ExternalFunc
	executor  Executor

	bindings Bindings
	hero     objects.Handle
	current  objects.Handle
	depth    int

	log *slog.Logger
}

// New creates a machine over a loaded symbol table and builds the class
// templates from it.
func New(table *symbols.Storage, executor Executor) (*Machine, error) {
	m := &Machine{
		symbols:   table,
		objects:   objects.NewStorage(),
		mapping:   objects.NewMapping(),
		templates: templates.New(),
		stack:     NewStack(),
		externals: make(map[string]ExternalFunc),
		executor:  executor,
		log:       log.With("vm"),
	}
	if err := m.templates.CreateClassTemplates(table); err != nil {
		return nil, fmt.Errorf("create class templates: %w", err)
	}
	return m, nil
}

func (m *Machine) Symbols() *symbols.Storage       { return m.symbols }
func (m *Machine) Objects() *objects.Storage       { return m.objects }
func (m *Machine) Mapping() *objects.Mapping       { return m.mapping }
func (m *Machine) Templates() *templates.Templates { return m.templates }
func (m *Machine) Stack() *Stack                   { return m.stack }

// Object resolves a script object handle.
func (m *Machine) Object(h objects.Handle) (*objects.Object, error) {
	return m.objects.Get(h)
}

// IntValue reads the first element of an int field of a script object.
func (m *Machine) IntValue(h objects.Handle, field string) (int32, error) {
	obj, err := m.objects.Get(h)
	if err != nil {
		return 0, err
	}
	return obj.Int(field)
}

// StringValue reads the first element of a string field of a script object.
func (m *Machine) StringValue(h objects.Handle, field string) (string, error) {
	obj, err := m.objects.Get(h)
	if err != nil {
		return "", err
	}
	return obj.StringValue(field)
}

// FunctionPointerValue reads a function-typed field of a script object.
func (m *Machine) FunctionPointerValue(h objects.Handle, field string) (objects.FunctionPointer, error) {
	obj, err := m.objects.Get(h)
	if err != nil {
		return objects.NoFunction, err
	}
	return obj.FunctionPointerValue(field)
}

// Bindings returns the current SELF/OTHER/VICTIM/ITEM references.
func (m *Machine) Bindings() Bindings { return m.bindings }

// SetBindings restores a snapshot taken with Bindings.
func (m *Machine) SetBindings(b Bindings) {
	m.SetSelf(b.Self)
	m.SetOther(b.Other)
	m.SetVictim(b.Victim)
	m.SetItem(b.Item)
}

func (m *Machine) Self() objects.Handle   { return m.bindings.Self }
func (m *Machine) Other() objects.Handle  { return m.bindings.Other }
func (m *Machine) Victim() objects.Handle { return m.bindings.Victim }
func (m *Machine) Item() objects.Handle   { return m.bindings.Item }
func (m *Machine) Hero() objects.Handle   { return m.hero }

func (m *Machine) SetSelf(h objects.Handle) {
	m.bindings.Self = h
	m.bindSymbol(SymbolSelf, h)
}

func (m *Machine) SetOther(h objects.Handle) {
	m.bindings.Other = h
	m.bindSymbol(SymbolOther, h)
}

func (m *Machine) SetVictim(h objects.Handle) {
	m.bindings.Victim = h
	m.bindSymbol(SymbolVictim, h)
}

func (m *Machine) SetItem(h objects.Handle) {
	m.bindings.Item = h
	m.bindSymbol(SymbolItem, h)
}

func (m *Machine) SetHero(h objects.Handle) {
	m.hero = h
	m.bindSymbol(SymbolHero, h)
}

// bindSymbol writes h into the named instance symbol when the program
// declares one.
func (m *Machine) bindSymbol(name string, h objects.Handle) {
	sym, err := symbols.GetByName[*symbols.InstanceSymbol](m.symbols, name)
	if err != nil {
		return
	}
	sym.Instance = h
}

// CurrentInstance is the object class-variable accesses resolve against.
// It is set for the duration of a constructor and is otherwise SELF.
func (m *Machine) CurrentInstance() objects.Handle {
	if m.current != objects.InvalidHandle {
		return m.current
	}
	return m.bindings.Self
}

// CurrentObject resolves CurrentInstance.
func (m *Machine) CurrentObject() (*objects.Object, error) {
	return m.objects.Get(m.CurrentInstance())
}

// InstanceHandle returns the object bound to an instance symbol.
func (m *Machine) InstanceHandle(index symbols.SymbolIndex) (objects.Handle, error) {
	sym, err := symbols.Get[*symbols.InstanceSymbol](m.symbols, index)
	if err != nil {
		return objects.InvalidHandle, err
	}
	return sym.Instance, nil
}

// RunFunction runs the script function called name.
func (m *Machine) RunFunction(name string) error {
	index, err := m.symbols.FindIndexBySymbolName(name)
	if err != nil {
		return err
	}
	return m.RunFunctionBySymbol(index)
}

// RunFunctionBySymbol runs the function at index. Functions bound to an
// external are dispatched natively.
func (m *Machine) RunFunctionBySymbol(index symbols.SymbolIndex) error {
	sym, err := m.symbols.Symbol(index)
	if err != nil {
		return err
	}
	switch sym.Kind() {
	case symbols.KindScriptFunction, symbols.KindPrototype, symbols.KindInstance:
		return m.execute(sym)
	case symbols.KindExternalFunction:
		return m.CallExternal(sym.Header().Name)
	default:
		return errs.InvalidParameters("symbol %s is a %s, not a function", sym.Header().Name, sym.Kind())
	}
}

func (m *Machine) execute(sym symbols.Symbol) error {
	if m.executor == nil {
		return errs.InvalidState("no executor attached to run %s", sym.Header().Name)
	}
	if m.depth >= maxCallDepth {
		return errs.InvalidState("call depth exceeded running %s", sym.Header().Name)
	}
	m.depth++
	defer func() { m.depth-- }()
	return m.executor.Execute(m, sym)
}

// RunFunctionOnSelf runs the function at index with SELF bound to self. The
// previous SELF is restored afterwards.
func (m *Machine) RunFunctionOnSelf(index symbols.SymbolIndex, self objects.Handle) error {
	previous := m.bindings.Self
	m.SetSelf(self)
	defer m.SetSelf(previous)
	return m.RunFunctionBySymbol(index)
}

// RunStateLoopFunction runs a state's loop function for self and reports
// whether the state asked to end. A loop function that returns nothing keeps
// looping.
func (m *Machine) RunStateLoopFunction(index symbols.SymbolIndex, self objects.Handle) (bool, error) {
	depth := m.stack.Len()
	if err := m.RunFunctionOnSelf(index, self); err != nil {
		m.stack.Truncate(depth)
		return false, err
	}
	if m.stack.Len() <= depth {
		return false, nil
	}
	done, err := m.stack.PopBool()
	m.stack.Truncate(depth)
	return done, err
}

// ClassOfInstance follows an instance symbol's parent chain (instance ->
// prototype -> class) to its class and prototype.
func (m *Machine) ClassOfInstance(instance symbols.SymbolIndex) (*symbols.ClassSymbol, *symbols.PrototypeSymbol, error) {
	inst, err := symbols.Get[*symbols.InstanceSymbol](m.symbols, instance)
	if err != nil {
		return nil, nil, err
	}
	parent, err := m.symbols.Symbol(inst.Parent)
	if err != nil {
		return nil, nil, errs.InvalidParameters("instance %s has no parent", inst.Name)
	}

	switch p := parent.(type) {
	case *symbols.ClassSymbol:
		return p, nil, nil
	case *symbols.PrototypeSymbol:
		class, err := symbols.Get[*symbols.ClassSymbol](m.symbols, p.Parent)
		if err != nil {
			return nil, nil, errs.InvalidParameters("prototype %s has no class", p.Name)
		}
		return class, p, nil
	default:
		return nil, nil, errs.InvalidParameters("instance %s has a %s parent", inst.Name, parent.Kind())
	}
}

// InstantiateClass creates the script object for an instance symbol.
//
// The object is a copy of the class template. It is mapped to native (when
// native is valid) and bound to the instance symbol before any constructor
// runs, so externals called from the constructor can resolve it. Then the
// prototype constructor and the instance constructor run with the new
// object as current instance and SELF.
func (m *Machine) InstantiateClass(className string, instance symbols.SymbolIndex, native objects.NativeHandle) (objects.Handle, error) {
	class, proto, err := m.ClassOfInstance(instance)
	if err != nil {
		return objects.InvalidHandle, err
	}
	if className != "" && m.symbols.NormalizeName(className) != class.Name {
		return objects.InvalidHandle, errs.InvalidParameters("instance %s is a %s, not a %s", m.symbols.NameOf(instance), class.Name, className)
	}

	template, err := m.templates.ClassTemplate(class.Name)
	if err != nil {
		return objects.InvalidHandle, err
	}
	handle, err := m.objects.CreateFromTemplate(template)
	if err != nil {
		return objects.InvalidHandle, err
	}

	if native != objects.InvalidNativeHandle {
		if err := m.mapping.Map(handle, native); err != nil {
			_ = m.objects.Destroy(handle)
			return objects.InvalidHandle, err
		}
	}

	inst, err := symbols.Get[*symbols.InstanceSymbol](m.symbols, instance)
	if err != nil {
		return objects.InvalidHandle, err
	}
	inst.Instance = handle

	previousCurrent, previousSelf := m.current, m.bindings.Self
	m.current = handle
	m.SetSelf(handle)
	defer func() {
		m.current = previousCurrent
		m.SetSelf(previousSelf)
	}()

	if proto != nil {
		if err := m.execute(proto); err != nil {
			return handle, fmt.Errorf("prototype %s: %w", proto.Name, err)
		}
	}
	if err := m.execute(inst); err != nil {
		return handle, fmt.Errorf("instance %s: %w", inst.Name, err)
	}

	m.log.Debug("instantiated", "instance", inst.Name, "class", class.Name, "handle", handle, "native", native)
	return handle, nil
}

// DestroyInstance unmaps and destroys a script object and clears every
// instance symbol still pointing at it.
func (m *Machine) DestroyInstance(h objects.Handle) error {
	if native, err := m.mapping.MappedSceneObject(h); err == nil {
		if err := m.mapping.Unmap(h, native); err != nil {
			return err
		}
	}
	if err := m.objects.Destroy(h); err != nil {
		return err
	}

	m.symbols.Each(func(sym symbols.Symbol) {
		if inst, ok := sym.(*symbols.InstanceSymbol); ok && inst.Instance == h {
			inst.Instance = objects.InvalidHandle
		}
	})
	if m.bindings.Self == h {
		m.bindings.Self = objects.InvalidHandle
	}
	if m.bindings.Other == h {
		m.bindings.Other = objects.InvalidHandle
	}
	if m.bindings.Victim == h {
		m.bindings.Victim = objects.InvalidHandle
	}
	if m.bindings.Item == h {
		m.bindings.Item = objects.InvalidHandle
	}
	if m.hero == h {
		m.hero = objects.InvalidHandle
	}
	return nil
}

// InstanceBindings lists every instance symbol bound to a live object.
func (m *Machine) InstanceBindings() map[string]objects.Handle {
	result := make(map[string]objects.Handle)
	m.symbols.Each(func(sym symbols.Symbol) {
		if inst, ok := sym.(*symbols.InstanceSymbol); ok && inst.Instance != objects.InvalidHandle {
			result[inst.Name] = inst.Instance
		}
	})
	return result
}

// RestoreInstanceBinding points the named instance symbol at h.
func (m *Machine) RestoreInstanceBinding(name string, h objects.Handle) error {
	inst, err := symbols.GetByName[*symbols.InstanceSymbol](m.symbols, name)
	if err != nil {
		return err
	}
	inst.Instance = h
	return nil
}

// Reset forgets every object, mapping and binding. Used on world reload.
func (m *Machine) Reset() {
	m.objects.Clear()
	m.mapping.Clear()
	m.stack.Clear()
	m.symbols.Each(func(sym symbols.Symbol) {
		if inst, ok := sym.(*symbols.InstanceSymbol); ok {
			inst.Instance = objects.InvalidHandle
		}
	})
	m.bindings = Bindings{}
	m.hero = objects.InvalidHandle
	m.current = objects.InvalidHandle
}
