// Package symbols stores the compiled Daedalus symbol table.
//
// Symbols are identified by their position in the table. The index assigned on
// append never changes, so every cross reference (parent class, function
// pointer, instance binding) is stored as a SymbolIndex.
package symbols

import (
	"math"
	"strings"

	"regoth/internal/daedalus/objects"
)

// SymbolIndex is the position of a symbol in the table.
type SymbolIndex uint32

// SymbolIndexInvalid marks "no symbol", e.g. a symbol without parent.
const SymbolIndexInvalid SymbolIndex = math.MaxUint32

// Kind enumerates the symbol variants.
type Kind int

const (
	KindUnsupported Kind = iota
	KindInt
	KindFloat
	KindString
	KindClass
	KindScriptFunction
	KindExternalFunction
	KindPrototype
	KindInstance
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "Int"
	case KindFloat:
		return "Float"
	case KindString:
		return "String"
	case KindClass:
		return "Class"
	case KindScriptFunction:
		return "ScriptFunction"
	case KindExternalFunction:
		return "ExternalFunction"
	case KindPrototype:
		return "Prototype"
	case KindInstance:
		return "Instance"
	default:
		return "Unsupported"
	}
}

// ReturnType is the declared return type of a function symbol.
type ReturnType int

const (
	ReturnVoid ReturnType = iota
	ReturnFloat
	ReturnInt
	ReturnString
	ReturnInstance
)

// Base carries the fields shared by every symbol.
type Base struct {
	Name   string
	Index  SymbolIndex
	Parent SymbolIndex

	// Count is the declared array length for variables and the parameter
	// count for functions.
	Count int

	IsClassVar bool
	IsConst    bool
}

func (b *Base) Header() *Base { return b }

func (b *Base) sealed() {}

// MemberName strips a "CLASS." prefix, so "C_NPC.NAME" becomes "NAME".
func (b *Base) MemberName() string {
	if i := strings.LastIndexByte(b.Name, '.'); i >= 0 {
		return b.Name[i+1:]
	}
	return b.Name
}

// Symbol is implemented by every variant in this package only.
type Symbol interface {
	Header() *Base
	Kind() Kind
	sealed()
}

// IntSymbol is an int (array) global or class member.
type IntSymbol struct {
	Base
	Ints []int32
}

func (*IntSymbol) Kind() Kind { return KindInt }

// FloatSymbol is a float (array) global or class member.
type FloatSymbol struct {
	Base
	Floats []float32
}

func (*FloatSymbol) Kind() Kind { return KindFloat }

// StringSymbol is a string (array) global or class member.
type StringSymbol struct {
	Base
	Strings []string
}

func (*StringSymbol) Kind() Kind { return KindString }

// ClassSymbol describes a script class. It has no storage of its own.
type ClassSymbol struct {
	Base
	Size   uint32
	Offset uint32
}

func (*ClassSymbol) Kind() Kind { return KindClass }

// ScriptFunctionSymbol is a function implemented in bytecode.
type ScriptFunctionSymbol struct {
	Base
	Address    uint32
	ReturnType ReturnType
}

func (*ScriptFunctionSymbol) Kind() Kind { return KindScriptFunction }

// ExternalFunctionSymbol marks a function implemented natively by the engine.
type ExternalFunctionSymbol struct {
	Base
	Address    uint32
	ReturnType ReturnType
}

func (*ExternalFunctionSymbol) Kind() Kind { return KindExternalFunction }

// PrototypeSymbol is a partial constructor for a class.
type PrototypeSymbol struct {
	Base
	Address uint32
}

func (*PrototypeSymbol) Kind() Kind { return KindPrototype }

// InstanceSymbol binds a fixed name to a script object. Its parent is either a
// prototype or a class.
type InstanceSymbol struct {
	Base
	Address  uint32
	Instance objects.Handle
}

func (*InstanceSymbol) Kind() Kind { return KindInstance }

// UnsupportedSymbol keeps an index slot for encodings the engine does not use.
type UnsupportedSymbol struct {
	Base
}

func (*UnsupportedSymbol) Kind() Kind { return KindUnsupported }
