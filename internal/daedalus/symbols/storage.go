package symbols

import (
	"fmt"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"regoth/internal/errs"
)

// maxSymbolCount is the ceiling on how many symbols a table may hold. The last
// representable index is reserved for SymbolIndexInvalid.
const maxSymbolCount = uint64(SymbolIndexInvalid)

// Storage is the append-only symbol table.
type Storage struct {
	symbols []Symbol
	byName  map[string]SymbolIndex
	fold    cases.Caser
	limit   uint64
}

// NewStorage creates an empty symbol table.
func NewStorage() *Storage {
	return &Storage{
		byName: make(map[string]SymbolIndex),
		fold:   cases.Upper(language.Und),
		limit:  maxSymbolCount,
	}
}

// NormalizeName folds a symbol name the way Daedalus compares identifiers.
func (s *Storage) NormalizeName(name string) string {
	return s.fold.String(name)
}

// FoldName applies the NormalizeName rule without a table. Waypoint and
// freepoint names are folded with it too, so names coming from script
// strings and scene files compare equal.
func FoldName(name string) string {
	return cases.Upper(language.Und).String(name)
}

// Append creates a new symbol of type T, stores it and returns it. The index
// of the first symbol is 0 and every further symbol gets the next index.
//
//	sym, err := symbols.Append[symbols.IntSymbol](storage, "C_NPC.ID")
func Append[T any, PT interface {
	*T
	Symbol
}](s *Storage, name string) (PT, error) {
	if uint64(len(s.symbols)) >= s.limit {
		return nil, errs.InvalidState("symbol table is full (%d symbols)", len(s.symbols))
	}

	sym := PT(new(T))
	header := sym.Header()
	header.Name = s.NormalizeName(name)
	header.Index = SymbolIndex(len(s.symbols))
	header.Parent = SymbolIndexInvalid

	s.symbols = append(s.symbols, sym)
	if header.Name != "" {
		// the first definition of a name wins, later duplicates stay reachable by index
		if _, exists := s.byName[header.Name]; !exists {
			s.byName[header.Name] = header.Index
		}
	}
	return sym, nil
}

// Get returns the symbol at index as type T.
func Get[T Symbol](s *Storage, index SymbolIndex) (T, error) {
	var zero T

	sym, err := s.Symbol(index)
	if err != nil {
		return zero, err
	}

	typed, ok := sym.(T)
	if !ok {
		return zero, errs.InvalidState("symbol %d (%s) is %s, not %T", index, sym.Header().Name, sym.Kind(), zero)
	}
	return typed, nil
}

// GetByName returns the symbol called name as type T.
func GetByName[T Symbol](s *Storage, name string) (T, error) {
	index, err := s.FindIndexBySymbolName(name)
	if err != nil {
		var zero T
		return zero, err
	}
	return Get[T](s, index)
}

// Symbol returns the symbol at index regardless of its type.
func (s *Storage) Symbol(index SymbolIndex) (Symbol, error) {
	if uint64(index) >= uint64(len(s.symbols)) {
		return nil, errs.InvalidState("symbol index %d out of range (%d symbols)", index, len(s.symbols))
	}
	sym := s.symbols[index]
	if sym == nil {
		return nil, errs.InvalidState("symbol index %d is empty", index)
	}
	return sym, nil
}

// HasSymbolWithName reports whether a symbol called name exists.
func (s *Storage) HasSymbolWithName(name string) bool {
	_, ok := s.byName[s.NormalizeName(name)]
	return ok
}

// FindIndexBySymbolName looks up the index of a named symbol.
func (s *Storage) FindIndexBySymbolName(name string) (SymbolIndex, error) {
	index, ok := s.byName[s.NormalizeName(name)]
	if !ok {
		return SymbolIndexInvalid, errs.InvalidParameters("symbol %q not found", name)
	}
	return index, nil
}

// NameOf returns the name of the symbol at index or a placeholder.
func (s *Storage) NameOf(index SymbolIndex) string {
	sym, err := s.Symbol(index)
	if err != nil {
		return fmt.Sprintf("<symbol %d>", index)
	}
	return sym.Header().Name
}

// Query returns the indices of all symbols matching the predicate, in order.
func (s *Storage) Query(match func(Symbol) bool) []SymbolIndex {
	var result []SymbolIndex
	for i, sym := range s.symbols {
		if sym != nil && match(sym) {
			result = append(result, SymbolIndex(i))
		}
	}
	return result
}

// OfKind is a Query predicate.
func OfKind(kind Kind) func(Symbol) bool {
	return func(sym Symbol) bool { return sym.Kind() == kind }
}

// ClassMembers returns the class-variable symbols parented to classIndex.
func (s *Storage) ClassMembers(classIndex SymbolIndex) []SymbolIndex {
	return s.Query(func(sym Symbol) bool {
		h := sym.Header()
		return h.IsClassVar && h.Parent == classIndex
	})
}

// Len returns the number of symbols.
func (s *Storage) Len() int {
	return len(s.symbols)
}

// Each calls fn for every symbol in index order.
func (s *Storage) Each(fn func(Symbol)) {
	for _, sym := range s.symbols {
		if sym != nil {
			fn(sym)
		}
	}
}
