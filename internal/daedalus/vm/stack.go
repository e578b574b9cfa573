package vm

import (
	"fmt"

	"regoth/internal/daedalus/objects"
	"regoth/internal/errs"
)

// ValueKind tags the contents of a stack slot.
type ValueKind int

const (
	ValueInt ValueKind = iota
	ValueFloat
	ValueString
	ValueInstance
)

func (k ValueKind) String() string {
	switch k {
	case ValueInt:
		return "int"
	case ValueFloat:
		return "float"
	case ValueString:
		return "string"
	case ValueInstance:
		return "instance"
	default:
		return fmt.Sprintf("ValueKind(%d)", int(k))
	}
}

// Value is one slot of the value stack.
type Value struct {
	Kind     ValueKind
	Int      int32
	Float    float32
	String   string
	Instance objects.Handle
}

// Stack is the operand stack shared by script functions and externals.
// Arguments are pushed left to right, so the last argument is on top.
type Stack struct {
	values []Value
}

// NewStack creates an empty stack
func NewStack() *Stack {
	return &Stack{values: make([]Value, 0, 16)}
}

func (s *Stack) Push(v Value) {
	s.values = append(s.values, v)
}

func (s *Stack) PushInt(v int32) {
	s.Push(Value{Kind: ValueInt, Int: v})
}

func (s *Stack) PushBool(v bool) {
	if v {
		s.PushInt(1)
		return
	}
	s.PushInt(0)
}

func (s *Stack) PushFloat(v float32) {
	s.Push(Value{Kind: ValueFloat, Float: v})
}

func (s *Stack) PushString(v string) {
	s.Push(Value{Kind: ValueString, String: v})
}

func (s *Stack) PushInstance(h objects.Handle) {
	s.Push(Value{Kind: ValueInstance, Instance: h})
}

// Pop removes and returns the top value
func (s *Stack) Pop() (Value, error) {
	if len(s.values) == 0 {
		return Value{}, errs.InvalidState("value stack is empty")
	}
	v := s.values[len(s.values)-1]
	s.values = s.values[:len(s.values)-1]
	return v, nil
}

func (s *Stack) pop(kind ValueKind) (Value, error) {
	v, err := s.Pop()
	if err != nil {
		return v, err
	}
	if v.Kind != kind {
		return v, errs.InvalidState("expected %s on value stack, found %s", kind, v.Kind)
	}
	return v, nil
}

func (s *Stack) PopInt() (int32, error) {
	v, err := s.pop(ValueInt)
	return v.Int, err
}

func (s *Stack) PopBool() (bool, error) {
	v, err := s.PopInt()
	return v != 0, err
}

func (s *Stack) PopFloat() (float32, error) {
	v, err := s.pop(ValueFloat)
	return v.Float, err
}

func (s *Stack) PopString() (string, error) {
	v, err := s.pop(ValueString)
	return v.String, err
}

func (s *Stack) PopInstance() (objects.Handle, error) {
	v, err := s.pop(ValueInstance)
	return v.Instance, err
}

// Len returns the number of values on the stack
func (s *Stack) Len() int {
	return len(s.values)
}

// Truncate drops everything above depth n.
func (s *Stack) Truncate(n int) {
	if n < len(s.values) {
		s.values = s.values[:n]
	}
}

// Clear empties the stack
func (s *Stack) Clear() {
	s.values = s.values[:0]
}
