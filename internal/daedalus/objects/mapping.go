package objects

import "regoth/internal/errs"

// Mapping is the one-to-one link between script objects and native objects.
// Every violation of the bijection is reported instead of being repaired.
type Mapping struct {
	toNative map[Handle]NativeHandle
	toScript map[NativeHandle]Handle
}

// NewMapping creates an empty mapping.
func NewMapping() *Mapping {
	return &Mapping{
		toNative: make(map[Handle]NativeHandle),
		toScript: make(map[NativeHandle]Handle),
	}
}

// Map links a script object to a native object.
func (m *Mapping) Map(script Handle, native NativeHandle) error {
	if script == InvalidHandle || native == InvalidNativeHandle {
		return errs.InvalidParameters("cannot map invalid handles (%d, %d)", script, native)
	}
	if existing, ok := m.toNative[script]; ok {
		return errs.InvalidState("script object %d is already mapped to native object %d", script, existing)
	}
	if existing, ok := m.toScript[native]; ok {
		return errs.InvalidState("native object %d is already mapped to script object %d", native, existing)
	}
	m.toNative[script] = native
	m.toScript[native] = script
	return nil
}

// Unmap removes the link between script and native.
func (m *Mapping) Unmap(script Handle, native NativeHandle) error {
	existing, ok := m.toNative[script]
	if !ok || existing != native {
		return errs.InvalidState("script object %d is not mapped to native object %d", script, native)
	}
	delete(m.toNative, script)
	delete(m.toScript, native)
	return nil
}

// IsMapped reports whether the script object has a native counterpart.
func (m *Mapping) IsMapped(script Handle) bool {
	_, ok := m.toNative[script]
	return ok
}

// MappedSceneObject returns the native object of a script object.
func (m *Mapping) MappedSceneObject(script Handle) (NativeHandle, error) {
	native, ok := m.toNative[script]
	if !ok {
		return InvalidNativeHandle, errs.InvalidState("script object %d is not mapped", script)
	}
	return native, nil
}

// MappedScriptObject returns the script object of a native object.
func (m *Mapping) MappedScriptObject(native NativeHandle) (Handle, error) {
	script, ok := m.toScript[native]
	if !ok {
		return InvalidHandle, errs.InvalidState("native object %d is not mapped", native)
	}
	return script, nil
}

// Pairs returns every link, for save-games.
func (m *Mapping) Pairs() map[Handle]NativeHandle {
	pairs := make(map[Handle]NativeHandle, len(m.toNative))
	for k, v := range m.toNative {
		pairs[k] = v
	}
	return pairs
}

// Clear drops every link.
func (m *Mapping) Clear() {
	m.toNative = make(map[Handle]NativeHandle)
	m.toScript = make(map[NativeHandle]Handle)
}
