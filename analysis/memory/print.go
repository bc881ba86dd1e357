package memory

import (
	"fmt"
	"strings"

	"github.com/cs-au-dk/memsnap/analysis/index"
	"github.com/cs-au-dk/memsnap/analysis/structure"
	"github.com/cs-au-dk/memsnap/utils/indenter"
)

// describeIndex prints i with its definition and entries.
func (s *Snapshot) describeIndex(i index.Index, def structure.IndexDefinition) string {
	var b strings.Builder
	b.WriteString(i.String())
	if def.HasArray() || def.Objects.Len() > 0 || !def.Aliases.IsEmpty() {
		b.WriteString(" " + def.String())
	}
	if e, ok := s.memory.Readonly().Lookup(i); ok {
		b.WriteString(" = " + e.String())
	}
	if e, ok := s.info.Readonly().Lookup(i); ok {
		b.WriteString(" info " + e.String())
	}
	return b.String()
}

// String dumps every index of the snapshot with its definition and
// entries, followed by the declarations and the must alias groups.
func (s *Snapshot) String() string {
	st := s.structure.Readonly()

	indexes := []string{}
	for _, i := range st.Indexes() {
		indexes = append(indexes, s.describeIndex(i, st.MustDefinition(i)))
	}

	sections := []func() string{
		func() string {
			return fmt.Sprintf("frames %v", st.StackLevels())
		},
		func() string {
			return indenter.Start("indexes {").NestStrings(indexes...).End("}")
		},
	}

	if objects := st.ObjectIDs(); len(objects) > 0 {
		sections = append(sections, func() string {
			strs := []string{}
			for _, id := range objects {
				desc := st.MustObject(id)
				strs = append(strs, fmt.Sprintf("%v: %s", desc.Root(), desc.Type))
			}
			return indenter.Start("objects {").NestStrings(strs...).End("}")
		})
	}

	decls := []string{}
	for _, name := range st.FunctionNames() {
		decls = append(decls, name+"() = "+st.Functions(name).String())
	}
	for _, name := range st.ClassNames() {
		decls = append(decls, name+" = "+st.Classes(name).String())
	}
	if len(decls) > 0 {
		sections = append(sections, func() string {
			return indenter.Start("declarations {").NestStrings(decls...).End("}")
		})
	}

	if groups := st.AliasGroups(); len(groups) > 0 {
		sections = append(sections, func() string {
			strs := []string{}
			for _, group := range groups {
				members := []string{}
				for _, i := range group {
					members = append(members, i.String())
				}
				strs = append(strs, strings.Join(members, " = "))
			}
			return indenter.Start("aliases {").NestStrings(strs...).End("}")
		})
	}

	head := fmt.Sprintf("%s (%s, level %d, %d transactions) {", s.Describe(), s.mode, s.callLevel, s.transactions)
	return indenter.Start(head).NestThunked(sections...).End("}")
}
