// Package objects holds script object records, the handle-indexed storage
// they live in and the mapping between script objects and native game objects.
package objects

import (
	"sort"

	"regoth/internal/errs"
)

// Handle identifies a script object. Zero is never a live handle.
type Handle uint32

// InvalidHandle is the universal "no object" value.
const InvalidHandle Handle = 0

// NativeHandle identifies a native game object (character, item, mob).
type NativeHandle uint64

// InvalidNativeHandle is the "no native object" value.
const InvalidNativeHandle NativeHandle = 0

// FunctionPointer is the symbol index stored in a function-typed field.
type FunctionPointer uint32

// NoFunction marks an unset function pointer field.
const NoFunction FunctionPointer = 0xFFFFFFFF

// Object is a dynamic, class-shaped record. Fields are looked up by member
// name; each field holds an array even when the class declares a scalar.
type Object struct {
	Handle    Handle                     `json:"handle"`
	ClassName string                     `json:"class"`
	Ints      map[string][]int32         `json:"ints,omitempty"`
	Floats    map[string][]float32       `json:"floats,omitempty"`
	Strings   map[string][]string        `json:"strings,omitempty"`
	Functions map[string]FunctionPointer `json:"functions,omitempty"`
}

// NewObject returns an empty record of the given class.
func NewObject(className string) *Object {
	return &Object{
		ClassName: className,
		Ints:      make(map[string][]int32),
		Floats:    make(map[string][]float32),
		Strings:   make(map[string][]string),
		Functions: make(map[string]FunctionPointer),
	}
}

// Clone returns a deep copy, arrays included.
func (o *Object) Clone() *Object {
	c := NewObject(o.ClassName)
	c.Handle = o.Handle
	for k, v := range o.Ints {
		c.Ints[k] = append([]int32(nil), v...)
	}
	for k, v := range o.Floats {
		c.Floats[k] = append([]float32(nil), v...)
	}
	for k, v := range o.Strings {
		c.Strings[k] = append([]string(nil), v...)
	}
	for k, v := range o.Functions {
		c.Functions[k] = v
	}
	return c
}

// HasField reports whether any field called name exists.
func (o *Object) HasField(name string) bool {
	if _, ok := o.Ints[name]; ok {
		return true
	}
	if _, ok := o.Floats[name]; ok {
		return true
	}
	if _, ok := o.Strings[name]; ok {
		return true
	}
	_, ok := o.Functions[name]
	return ok
}

// IntArray returns the backing array of an int field.
func (o *Object) IntArray(name string) ([]int32, error) {
	v, ok := o.Ints[name]
	if !ok {
		return nil, errs.InvalidParameters("%s has no int field %q", o.ClassName, name)
	}
	return v, nil
}

// Int returns element 0 of an int field.
func (o *Object) Int(name string) (int32, error) {
	return o.IntAt(name, 0)
}

// IntAt returns element i of an int field.
func (o *Object) IntAt(name string, i int) (int32, error) {
	v, err := o.IntArray(name)
	if err != nil {
		return 0, err
	}
	if i < 0 || i >= len(v) {
		return 0, errs.InvalidParameters("%s.%s index %d out of range (%d)", o.ClassName, name, i, len(v))
	}
	return v[i], nil
}

// SetInt writes element 0 of an int field.
func (o *Object) SetInt(name string, value int32) error {
	return o.SetIntAt(name, 0, value)
}

// SetIntAt writes element i of an int field.
func (o *Object) SetIntAt(name string, i int, value int32) error {
	v, err := o.IntArray(name)
	if err != nil {
		return err
	}
	if i < 0 || i >= len(v) {
		return errs.InvalidParameters("%s.%s index %d out of range (%d)", o.ClassName, name, i, len(v))
	}
	v[i] = value
	return nil
}

// FloatArray returns the backing array of a float field.
func (o *Object) FloatArray(name string) ([]float32, error) {
	v, ok := o.Floats[name]
	if !ok {
		return nil, errs.InvalidParameters("%s has no float field %q", o.ClassName, name)
	}
	return v, nil
}

// Float returns element 0 of a float field.
func (o *Object) Float(name string) (float32, error) {
	v, err := o.FloatArray(name)
	if err != nil {
		return 0, err
	}
	if len(v) == 0 {
		return 0, errs.InvalidParameters("%s.%s is empty", o.ClassName, name)
	}
	return v[0], nil
}

// SetFloat writes element 0 of a float field.
func (o *Object) SetFloat(name string, value float32) error {
	v, err := o.FloatArray(name)
	if err != nil {
		return err
	}
	if len(v) == 0 {
		return errs.InvalidParameters("%s.%s is empty", o.ClassName, name)
	}
	v[0] = value
	return nil
}

// StringArray returns the backing array of a string field.
func (o *Object) StringArray(name string) ([]string, error) {
	v, ok := o.Strings[name]
	if !ok {
		return nil, errs.InvalidParameters("%s has no string field %q", o.ClassName, name)
	}
	return v, nil
}

// StringValue returns element 0 of a string field.
func (o *Object) StringValue(name string) (string, error) {
	v, err := o.StringArray(name)
	if err != nil {
		return "", err
	}
	if len(v) == 0 {
		return "", errs.InvalidParameters("%s.%s is empty", o.ClassName, name)
	}
	return v[0], nil
}

// SetString writes element 0 of a string field.
func (o *Object) SetString(name string, value string) error {
	v, err := o.StringArray(name)
	if err != nil {
		return err
	}
	if len(v) == 0 {
		return errs.InvalidParameters("%s.%s is empty", o.ClassName, name)
	}
	v[0] = value
	return nil
}

// FunctionPointerValue returns a function-typed field.
func (o *Object) FunctionPointerValue(name string) (FunctionPointer, error) {
	v, ok := o.Functions[name]
	if !ok {
		return NoFunction, errs.InvalidParameters("%s has no function field %q", o.ClassName, name)
	}
	return v, nil
}

// SetFunctionPointer writes a function-typed field.
func (o *Object) SetFunctionPointer(name string, fn FunctionPointer) error {
	if _, ok := o.Functions[name]; !ok {
		return errs.InvalidParameters("%s has no function field %q", o.ClassName, name)
	}
	o.Functions[name] = fn
	return nil
}

// FieldNames lists all field names, sorted.
func (o *Object) FieldNames() []string {
	var names []string
	for k := range o.Ints {
		names = append(names, k)
	}
	for k := range o.Floats {
		names = append(names, k)
	}
	for k := range o.Strings {
		names = append(names, k)
	}
	for k := range o.Functions {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
