package dat

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"sort"

	"golang.org/x/text/encoding/charmap"

	"regoth/internal/daedalus/symbols"
)

// DefaultVersion is the version byte written by the Gothic II compiler.
const DefaultVersion = 0x32

type writer struct {
	w   *bufio.Writer
	err error
}

func (w *writer) u8(v byte) {
	if w.err == nil {
		w.err = w.w.WriteByte(v)
	}
}

func (w *writer) u32(v uint32) {
	if w.err == nil {
		w.err = binary.Write(w.w, binary.LittleEndian, v)
	}
}

func (w *writer) line(s string) {
	if w.err != nil {
		return
	}
	encoded, err := charmap.Windows1252.NewEncoder().String(s)
	if err != nil {
		w.err = fmt.Errorf("encode %q: %w", s, err)
		return
	}
	_, w.err = w.w.WriteString(encoded + "\n")
}

// WriteFile stores table and bytecode as a DAT file at path.
func WriteFile(path string, table *symbols.Storage, bytecode []byte) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Write(f, table, bytecode); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Write encodes table and bytecode in DAT layout.
func Write(out io.Writer, table *symbols.Storage, bytecode []byte) error {
	w := &writer{w: bufio.NewWriter(out)}
	w.u8(DefaultVersion)
	w.u32(uint32(table.Len()))

	for _, index := range sortTable(table) {
		w.u32(uint32(index))
	}

	table.Each(func(sym symbols.Symbol) {
		writeSymbol(w, sym)
	})

	w.u32(uint32(len(bytecode)))
	if w.err == nil {
		_, w.err = w.w.Write(bytecode)
	}
	if w.err != nil {
		return w.err
	}
	return w.w.Flush()
}

// sortTable lists symbol indices ordered by name, the order the original
// compiler emits for binary search.
func sortTable(table *symbols.Storage) []symbols.SymbolIndex {
	indices := make([]symbols.SymbolIndex, 0, table.Len())
	table.Each(func(sym symbols.Symbol) {
		indices = append(indices, sym.Header().Index)
	})
	sort.SliceStable(indices, func(i, j int) bool {
		return table.NameOf(indices[i]) < table.NameOf(indices[j])
	})
	return indices
}

func writeSymbol(w *writer, sym symbols.Symbol) {
	h := sym.Header()
	if h.Name != "" {
		w.u32(1)
		w.line(h.Name)
	} else {
		w.u32(0)
	}

	var kind, flags, vary uint32
	switch s := sym.(type) {
	case *symbols.FloatSymbol:
		kind = typeFloat
	case *symbols.IntSymbol:
		kind = typeInt
	case *symbols.StringSymbol:
		kind = typeString
	case *symbols.ClassSymbol:
		kind, vary = typeClass, s.Size
	case *symbols.ScriptFunctionSymbol:
		kind = typeFunc
		vary, flags = rawReturn(s.ReturnType)
	case *symbols.ExternalFunctionSymbol:
		kind = typeFunc
		vary, flags = rawReturn(s.ReturnType)
		flags |= flagExternal
	case *symbols.PrototypeSymbol:
		kind = typePrototype
	case *symbols.InstanceSymbol:
		kind = typeInstance
	default:
		kind = typeVoid
	}
	if h.IsConst {
		flags |= flagConst
	}
	if h.IsClassVar {
		flags |= flagClassVar
	}

	w.u32(vary)
	w.u32(uint32(h.Count)&0xFFF | kind<<12 | flags<<16)
	for i := 0; i < 5; i++ {
		w.u32(0)
	}

	if !h.IsClassVar {
		switch s := sym.(type) {
		case *symbols.FloatSymbol:
			for i := 0; i < h.Count; i++ {
				w.u32(math.Float32bits(at(s.Floats, i)))
			}
		case *symbols.IntSymbol:
			for i := 0; i < h.Count; i++ {
				w.u32(uint32(at(s.Ints, i)))
			}
		case *symbols.StringSymbol:
			for i := 0; i < h.Count; i++ {
				w.line(at(s.Strings, i))
			}
		case *symbols.ClassSymbol:
			w.u32(s.Offset)
		case *symbols.ScriptFunctionSymbol:
			w.u32(s.Address)
		case *symbols.ExternalFunctionSymbol:
			w.u32(s.Address)
		case *symbols.PrototypeSymbol:
			w.u32(s.Address)
		case *symbols.InstanceSymbol:
			w.u32(s.Address)
		}
	}

	if h.Parent == symbols.SymbolIndexInvalid {
		w.u32(math.MaxUint32)
	} else {
		w.u32(uint32(h.Parent))
	}
}

func at[T any](values []T, i int) T {
	var zero T
	if i < len(values) {
		return values[i]
	}
	return zero
}

func rawReturn(rt symbols.ReturnType) (vary, flags uint32) {
	switch rt {
	case symbols.ReturnFloat:
		return typeFloat, flagReturn
	case symbols.ReturnInt:
		return typeInt, flagReturn
	case symbols.ReturnString:
		return typeString, flagReturn
	case symbols.ReturnInstance:
		return typeInstance, flagReturn
	default:
		return typeVoid, 0
	}
}
