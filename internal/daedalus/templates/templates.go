// Package templates derives per-class blank records from the symbol table.
//
// Daedalus classes have no static layout the engine knows at compile time, so
// the field set of every class is read off the class-variable symbols once,
// and new instances are copies of that blank record.
package templates

import (
	"regoth/internal/daedalus/objects"
	"regoth/internal/daedalus/symbols"
	"regoth/internal/errs"
	"regoth/internal/log"
)

// Templates maps class names to their blank records.
type Templates struct {
	byClass map[string]*objects.Object
}

// New returns an empty template set.
func New() *Templates {
	return &Templates{byClass: make(map[string]*objects.Object)}
}

// CreateClassTemplates rebuilds every class template from the symbol table.
func (t *Templates) CreateClassTemplates(table *symbols.Storage) error {
	t.byClass = make(map[string]*objects.Object)

	for _, classIndex := range table.Query(symbols.OfKind(symbols.KindClass)) {
		class, err := symbols.Get[*symbols.ClassSymbol](table, classIndex)
		if err != nil {
			return err
		}

		template := objects.NewObject(class.Name)
		for _, memberIndex := range table.ClassMembers(classIndex) {
			member, err := table.Symbol(memberIndex)
			if err != nil {
				return err
			}
			addField(template, member)
		}

		t.byClass[class.Name] = template
		log.Debug("class template created", "class", class.Name, "fields", len(template.FieldNames()))
	}
	return nil
}

func addField(template *objects.Object, member symbols.Symbol) {
	header := member.Header()
	name := header.MemberName()
	count := header.Count
	if count < 1 {
		count = 1
	}

	switch member.Kind() {
	case symbols.KindInt:
		template.Ints[name] = make([]int32, count)
	case symbols.KindFloat:
		template.Floats[name] = make([]float32, count)
	case symbols.KindString:
		template.Strings[name] = make([]string, count)
	case symbols.KindScriptFunction, symbols.KindExternalFunction:
		template.Functions[name] = objects.NoFunction
	default:
		log.Debug("class member ignored", "class", template.ClassName, "member", header.Name, "kind", member.Kind())
	}
}

// ClassTemplate returns the blank record for className.
func (t *Templates) ClassTemplate(className string) (*objects.Object, error) {
	template, ok := t.byClass[className]
	if !ok {
		return nil, errs.InvalidParameters("no class template for %q", className)
	}
	return template, nil
}

// HasClass reports whether a template exists for className.
func (t *Templates) HasClass(className string) bool {
	_, ok := t.byClass[className]
	return ok
}
