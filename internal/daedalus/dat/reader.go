// Package dat reads and writes compiled Daedalus symbol tables (*.DAT).
//
// Layout, all integers little endian:
//
//	u8   version
//	u32  symbol count
//	u32  sort table [count]
//	     symbols [count]
//	u32  bytecode size
//	     bytecode
//
// Each symbol is a u32 "named" flag, the name terminated by '\n', a u32
// offset/size/return word, a u32 properties word (count:12 type:4 flags:6
// space:1), five u32 source location words, the content when the symbol is
// no class member, and a s32 parent index.
package dat

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"

	"golang.org/x/text/encoding/charmap"

	"regoth/internal/daedalus/symbols"
	"regoth/internal/errs"
	"regoth/internal/log"
)

// Raw symbol types as stored in the properties word.
const (
	typeVoid      = 0
	typeFloat     = 1
	typeInt       = 2
	typeString    = 3
	typeClass     = 4
	typeFunc      = 5
	typePrototype = 6
	typeInstance  = 7
)

// Property flags.
const (
	flagConst    = 1 << 0
	flagReturn   = 1 << 1
	flagClassVar = 1 << 2
	flagExternal = 1 << 3
	flagMerged   = 1 << 4
)

// Program is everything in a DAT file besides the symbols themselves.
type Program struct {
	Version   byte
	SortTable []uint32
	Bytecode  []byte
}

type reader struct {
	r   *bufio.Reader
	dec *charmap.Charmap
	err error
}

func (r *reader) u8() byte {
	if r.err != nil {
		return 0
	}
	b, err := r.r.ReadByte()
	r.err = err
	return b
}

func (r *reader) u32() uint32 {
	if r.err != nil {
		return 0
	}
	var v uint32
	r.err = binary.Read(r.r, binary.LittleEndian, &v)
	return v
}

func (r *reader) f32() float32 {
	return math.Float32frombits(r.u32())
}

func (r *reader) line() string {
	if r.err != nil {
		return ""
	}
	raw, err := r.r.ReadBytes('\n')
	if err != nil {
		r.err = err
		return ""
	}
	text, err := r.dec.NewDecoder().Bytes(raw[:len(raw)-1])
	if err != nil {
		r.err = err
		return ""
	}
	return string(text)
}

func (r *reader) bytes(n uint32) []byte {
	if r.err != nil {
		return nil
	}
	buf := make([]byte, n)
	_, r.err = io.ReadFull(r.r, buf)
	return buf
}

// LoadFile reads a DAT file into table.
func LoadFile(path string, table *symbols.Storage) (*Program, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return Load(f, table)
}

// Load reads a DAT stream into table. Symbols are appended in file order so
// their indices match the indices used by the bytecode.
func Load(in io.Reader, table *symbols.Storage) (*Program, error) {
	r := &reader{r: bufio.NewReader(in), dec: charmap.Windows1252}

	prog := &Program{Version: r.u8()}
	count := r.u32()
	if r.err != nil {
		return nil, errs.InvalidParameters("read DAT header: %v", r.err)
	}

	prog.SortTable = make([]uint32, 0, min(count, 1<<16))
	for i := uint32(0); i < count; i++ {
		prog.SortTable = append(prog.SortTable, r.u32())
	}

	for i := uint32(0); i < count && r.err == nil; i++ {
		if err := readSymbol(r, table, i); err != nil {
			return nil, err
		}
	}

	size := r.u32()
	prog.Bytecode = r.bytes(size)
	if r.err != nil {
		return nil, errs.InvalidParameters("read DAT: %v", r.err)
	}

	log.Debug("DAT loaded", "version", prog.Version, "symbols", count, "bytecode", len(prog.Bytecode))
	return prog, nil
}

func readSymbol(r *reader, table *symbols.Storage, index uint32) error {
	var name string
	if r.u32() != 0 {
		name = r.line()
	}
	vary := r.u32()
	props := r.u32()
	for i := 0; i < 5; i++ {
		r.u32()
	}
	if r.err != nil {
		return errs.InvalidParameters("read symbol %d: %v", index, r.err)
	}

	count := int(props & 0xFFF)
	kind := (props >> 12) & 0xF
	flags := (props >> 16) & 0x3F
	classVar := flags&flagClassVar != 0

	sym, err := appendSymbol(table, name, kind, flags)
	if err != nil {
		return err
	}
	header := sym.Header()
	header.Count = count
	header.IsClassVar = classVar
	header.IsConst = flags&flagConst != 0

	if !classVar {
		switch s := sym.(type) {
		case *symbols.FloatSymbol:
			s.Floats = make([]float32, count)
			for i := range s.Floats {
				s.Floats[i] = r.f32()
			}
		case *symbols.IntSymbol:
			s.Ints = make([]int32, count)
			for i := range s.Ints {
				s.Ints[i] = int32(r.u32())
			}
		case *symbols.StringSymbol:
			s.Strings = make([]string, count)
			for i := range s.Strings {
				s.Strings[i] = r.line()
			}
		case *symbols.ClassSymbol:
			s.Offset = r.u32()
		case *symbols.ScriptFunctionSymbol:
			s.Address = r.u32()
		case *symbols.ExternalFunctionSymbol:
			s.Address = r.u32()
		case *symbols.PrototypeSymbol:
			s.Address = r.u32()
		case *symbols.InstanceSymbol:
			s.Address = r.u32()
		}
	}

	switch s := sym.(type) {
	case *symbols.ClassSymbol:
		s.Size = vary
	case *symbols.ScriptFunctionSymbol:
		s.ReturnType = returnType(vary, flags)
	case *symbols.ExternalFunctionSymbol:
		s.ReturnType = returnType(vary, flags)
	}

	parent := int32(r.u32())
	if r.err != nil {
		return errs.InvalidParameters("read symbol %d (%s): %v", index, name, r.err)
	}
	if parent >= 0 {
		header.Parent = symbols.SymbolIndex(parent)
	}
	return nil
}

func appendSymbol(table *symbols.Storage, name string, kind, flags uint32) (symbols.Symbol, error) {
	switch kind {
	case typeFloat:
		return symbols.Append[symbols.FloatSymbol](table, name)
	case typeInt:
		return symbols.Append[symbols.IntSymbol](table, name)
	case typeString:
		return symbols.Append[symbols.StringSymbol](table, name)
	case typeClass:
		return symbols.Append[symbols.ClassSymbol](table, name)
	case typeFunc:
		if flags&flagExternal != 0 {
			return symbols.Append[symbols.ExternalFunctionSymbol](table, name)
		}
		return symbols.Append[symbols.ScriptFunctionSymbol](table, name)
	case typePrototype:
		return symbols.Append[symbols.PrototypeSymbol](table, name)
	case typeInstance:
		return symbols.Append[symbols.InstanceSymbol](table, name)
	default:
		return symbols.Append[symbols.UnsupportedSymbol](table, name)
	}
}

func returnType(vary, flags uint32) symbols.ReturnType {
	if flags&flagReturn == 0 {
		return symbols.ReturnVoid
	}
	switch vary {
	case typeFloat:
		return symbols.ReturnFloat
	case typeInt:
		return symbols.ReturnInt
	case typeString:
		return symbols.ReturnString
	case typeInstance:
		return symbols.ReturnInstance
	default:
		return symbols.ReturnVoid
	}
}
