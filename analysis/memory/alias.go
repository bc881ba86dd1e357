package memory

import (
	"github.com/cs-au-dk/memsnap/analysis/index"
	"github.com/cs-au-dk/memsnap/analysis/structure"
	"github.com/cs-au-dk/memsnap/analysis/value"
)

// AssignAlias makes the locations denoted by target references to the
// locations denoted by source.
func (s *Snapshot) AssignAlias(target, source index.Path) {
	defer s.bench("alias")()
	s.log.Debugf("assign %v =& %v", target, source)

	sources := s.collector(false).resolve(source)
	targets := s.collector(false).resolve(target)

	e := value.Entry{}
	for _, src := range sources {
		e = e.Union(s.entry(src.idx))
	}

	mustSources := len(sources) > 0
	for _, src := range sources {
		mustSources = mustSources && src.must
	}

	v := s.view()
	for _, t := range targets {
		if t.must && mustSources {
			if isSource(sources, t.idx) {
				continue
			}
			s.DestroyAliases(t.idx)
			for _, src := range sources {
				srcDef := s.writeStructure().MustDefinition(src.idx)
				s.link(t.idx, src.idx, true)
				srcDef.Aliases.Must.ForEach(func(alias index.Index) {
					if alias != t.idx {
						s.link(t.idx, alias, true)
					}
				})
				srcDef.Aliases.May.ForEach(func(alias index.Index) {
					if alias != t.idx {
						s.link(t.idx, alias, false)
					}
				})
			}
			s.strongWrite(v, t.idx, e)
			continue
		}

		for _, src := range sources {
			if src.idx != t.idx {
				s.link(t.idx, src.idx, false)
			}
		}
		s.weakWrite(v, t.idx, e)
	}
}

func isSource(sources []location, i index.Index) bool {
	for _, src := range sources {
		if src.idx == i {
			return true
		}
	}
	return false
}

// link records that a and b alias each other. A must link replaces a may
// link; a may link never weakens a must link.
func (s *Snapshot) link(a, b index.Index, must bool) {
	st := s.writeStructure()
	add := func(i, alias index.Index) {
		aliases := st.MustDefinition(i).Aliases
		switch {
		case must:
			aliases.Must = aliases.Must.Add(alias)
			aliases.May = aliases.May.Remove(alias)
		case !aliases.Must.Contains(alias):
			aliases.May = aliases.May.Add(alias)
		}
		st.SetAliases(i, aliases)
	}
	add(a, b)
	add(b, a)
}

// unlink removes a from the alias sets of b.
func (s *Snapshot) unlink(a, b index.Index) {
	st := s.writeStructure()
	def, ok := st.Definition(b)
	if !ok {
		return
	}
	aliases := def.Aliases
	aliases.Must = aliases.Must.Remove(a)
	aliases.May = aliases.May.Remove(a)
	st.SetAliases(b, aliases)
}

// AddAlias adds must and may aliases to i.
func (s *Snapshot) AddAlias(i index.Index, must, may []index.Index) {
	for _, a := range must {
		if a != i {
			s.link(i, a, true)
		}
	}
	for _, a := range may {
		if a != i {
			s.link(i, a, false)
		}
	}
}

// MustSetAliases replaces the aliases of i.
func (s *Snapshot) MustSetAliases(i index.Index, must, may []index.Index) {
	s.DestroyAliases(i)
	s.AddAlias(i, must, may)
}

// MaySetAliases weakly adds may aliases to i: the aliases it already has
// are kept, but none of them is certain anymore.
func (s *Snapshot) MaySetAliases(i index.Index, may []index.Index) {
	s.ConvertAliasesToMay(i)
	s.AddAlias(i, nil, may)
}

// ConvertAliasesToMay turns every must alias of i into a may alias.
func (s *Snapshot) ConvertAliasesToMay(i index.Index) {
	st := s.writeStructure()
	def := st.MustDefinition(i)
	if def.Aliases.Must.Len() == 0 {
		return
	}
	for _, a := range structure.SortedIndexes(def.Aliases.Must) {
		s.unlink(i, a)
		s.link(i, a, false)
	}
	aliases := st.MustDefinition(i).Aliases
	aliases.May = aliases.May.Union(aliases.Must)
	aliases.Must = structure.IndexSet{}
	st.SetAliases(i, aliases)
}

// CopyAliases makes to an alias of from and of everything from aliases.
// The links are must links only if isMust is set.
func (s *Snapshot) CopyAliases(from, to index.Index, isMust bool) {
	def := s.writeStructure().MustDefinition(from)
	if from != to {
		s.link(to, from, isMust)
	}
	def.Aliases.Must.ForEach(func(a index.Index) {
		if a != to {
			s.link(to, a, isMust)
		}
	})
	def.Aliases.May.ForEach(func(a index.Index) {
		if a != to {
			s.link(to, a, false)
		}
	})
}

// DestroyAliases removes every alias of i, on both sides.
func (s *Snapshot) DestroyAliases(i index.Index) {
	st := s.writeStructure()
	def, ok := st.Definition(i)
	if !ok || def.Aliases.IsEmpty() {
		return
	}
	def.Aliases.Must.Union(def.Aliases.May).ForEach(func(a index.Index) {
		s.unlink(i, a)
	})
	st.SetAliases(i, structure.Alias{})
}

// Aliases returns the aliases of i.
func (s *Snapshot) Aliases(i index.Index) structure.Alias {
	def, _ := s.structure.Readonly().Definition(i)
	return def.Aliases
}
