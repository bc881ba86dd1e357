package memory

import (
	"github.com/cs-au-dk/memsnap/analysis/index"
	"github.com/cs-au-dk/memsnap/analysis/structure"
	"github.com/cs-au-dk/memsnap/analysis/value"
)

// updateAliases drops aliases to indexes that do not exist in the target
// and restores the symmetry of alias sets that the per-index merge may
// have broken.
func (m *merger) updateAliases() {
	for _, i := range structure.SortedIndexes(m.aliased) {
		def, ok := m.st.Definition(i)
		if !ok {
			continue
		}

		aliases := structure.Alias{}
		def.Aliases.Must.ForEach(func(a index.Index) {
			ad, ok := m.st.Definition(a)
			switch {
			case !ok:
			case ad.Aliases.Must.Contains(i):
				aliases.Must = aliases.Must.Add(a)
			default:
				aliases.May = aliases.May.Add(a)
			}
		})
		def.Aliases.May.ForEach(func(a index.Index) {
			if m.st.IsDefined(a) {
				aliases.May = aliases.May.Add(a)
			}
		})
		if !aliases.Equal(def.Aliases) {
			m.st.SetAliases(i, aliases)
		}

		aliases.May.ForEach(func(a index.Index) {
			ad := m.st.MustDefinition(a)
			switch {
			case ad.Aliases.Must.Contains(i):
				ad.Aliases.Must = ad.Aliases.Must.Remove(i)
				ad.Aliases.May = ad.Aliases.May.Add(i)
			case !ad.Aliases.May.Contains(i):
				ad.Aliases.May = ad.Aliases.May.Add(i)
			default:
				return
			}
			m.st.SetAliases(a, ad.Aliases)
		})
	}
}

// mergeData builds the entries of every merged index from its sources and
// drops the entries of deleted indexes.
func (m *merger) mergeData() {
	for _, op := range m.visited {
		if !m.st.IsDefined(op.target) {
			continue
		}
		m.mergeMemory(op)
		m.mergeInfo(op)
	}
	for _, i := range m.deleted {
		if _, ok := m.memory.Lookup(i); ok {
			m.memory.Remove(i)
		}
		if _, ok := m.info.Lookup(i); ok {
			m.info.Remove(i)
		}
	}
}

func (m *merger) mergeMemory(op *mergeOp) {
	e := value.Entry{}
	found := false
	for _, src := range op.sources {
		if se, ok := src.src.memory.Lookup(src.idx); ok {
			e = e.Union(se.WithoutArrays())
			found = true
		} else {
			e = e.Add(value.Undefined)
		}
	}

	old, has := m.memory.Lookup(op.target)
	if !found && !op.undefined {
		if has {
			m.memory.Remove(op.target)
		}
		return
	}

	if op.undefined {
		e = e.Add(value.Undefined)
	}
	if def := m.st.MustDefinition(op.target); def.HasArray() {
		e = e.Add(value.Array{ID: def.Array})
	}
	if !has || !old.Equal(e) {
		m.memory.Set(op.target, e)
	}
}

// mergeInfo unions the info entries. A missing info entry contributes
// nothing.
func (m *merger) mergeInfo(op *mergeOp) {
	e := value.Entry{}
	found := false
	for _, src := range op.sources {
		if se, ok := src.src.info.Lookup(src.idx); ok {
			e = e.Union(se)
			found = true
		}
	}

	old, has := m.info.Lookup(op.target)
	switch {
	case !found && has:
		m.info.Remove(op.target)
	case found && (!has || !old.Equal(e)):
		m.info.Set(op.target, e)
	}
}
