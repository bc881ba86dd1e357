package memory

import (
	"github.com/cs-au-dk/memsnap/analysis/value"
)

func union(names map[string]struct{}, more []string) {
	for _, n := range more {
		names[n] = struct{}{}
	}
}

// FieldNames returns the names of the fields of every object in e.
func (s *Snapshot) FieldNames(e value.Entry) []string {
	st := s.structure.Readonly()
	names := map[string]struct{}{}
	for _, id := range e.Objects() {
		if desc, ok := st.Object(id); ok {
			union(names, desc.Names())
		}
	}
	return sortedNames(names)
}

// IndexNames returns the keys of every array in e.
func (s *Snapshot) IndexNames(e value.Entry) []string {
	st := s.structure.Readonly()
	names := map[string]struct{}{}
	for _, id := range e.Arrays() {
		if desc, ok := st.Array(id); ok {
			union(names, desc.Names())
		}
	}
	return sortedNames(names)
}

// ObjectTypes returns the class names of the objects in e.
func (s *Snapshot) ObjectTypes(e value.Entry) []string {
	st := s.structure.Readonly()
	types := map[string]struct{}{}
	for _, id := range e.Objects() {
		if desc, ok := st.Object(id); ok {
			types[desc.Type] = struct{}{}
		}
	}
	return sortedNames(types)
}

// Methods resolves method name on the declared classes of the objects in
// e.
func (s *Snapshot) Methods(e value.Entry, name string) value.Entry {
	res := value.Entry{}
	for _, typ := range s.ObjectTypes(e) {
		s.Classes(typ).ForEach(func(v value.Value) {
			if decl, ok := v.(value.ClassDeclaration); ok {
				if m, ok := decl.Method(name); ok {
					res = res.Add(m)
				}
			}
		})
	}
	return res
}

// FunctionNames returns the names of every declared function.
func (s *Snapshot) FunctionNames() []string {
	return s.structure.Readonly().FunctionNames()
}

// ClassNames returns the names of every declared class.
func (s *Snapshot) ClassNames() []string {
	return s.structure.Readonly().ClassNames()
}
