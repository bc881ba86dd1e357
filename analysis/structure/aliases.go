package structure

import (
	"sort"

	"github.com/cs-au-dk/memsnap/analysis/index"
	"github.com/cs-au-dk/memsnap/analysis/value"
	"github.com/cs-au-dk/memsnap/utils"

	"github.com/pkg/errors"
	uf "github.com/spakin/disjoint"
)

// AliasGroups partitions the indexes with must aliases into equivalence
// classes. Groups are ordered by their first member and every group holds
// at least two indexes.
func (s *Structure) AliasGroups() [][]index.Index {
	elements := map[index.Index]*uf.Element{}
	element := func(i index.Index) *uf.Element {
		if el, ok := elements[i]; ok {
			return el
		}
		el := uf.NewElement()
		elements[i] = el
		return el
	}

	s.ForEachDefinition(func(i index.Index, d IndexDefinition) {
		d.Aliases.Must.ForEach(func(alias index.Index) {
			uf.Union(element(i), element(alias))
		})
	})

	sets := map[*uf.Element][]index.Index{}
	for i, el := range elements {
		rep := el.Find()
		sets[rep] = append(sets[rep], i)
	}

	groups := make([][]index.Index, 0, len(sets))
	for _, group := range sets {
		index.Sort(group)
		groups = append(groups, group)
	}
	sort.Slice(groups, func(i, j int) bool {
		return groups[i][0].String() < groups[j][0].String()
	})
	return groups
}

// Validate checks the structural invariants:
//   - every index held by a frame, array or object is defined,
//   - the parent of every array points back at it,
//   - no index aliases itself and must and may aliases are disjoint,
//   - must aliasing is symmetric.
func (s *Structure) Validate() error {
	check := func(owner string, c Container) error {
		for _, i := range c.Indexes() {
			if !s.IsDefined(i) {
				return errors.Wrapf(utils.ErrStructuralInconsistency, "%s refers to undefined %v", owner, i)
			}
		}
		return nil
	}

	for _, level := range s.StackLevels() {
		ctx := s.MustStack(level)
		if err := check("variables", ctx.Variables); err != nil {
			return err
		}
		if err := check("controls", ctx.Controls); err != nil {
			return err
		}
	}
	for _, id := range s.ArrayIDs() {
		desc := s.MustArray(id)
		if err := check(desc.Parent.String(), desc.Container); err != nil {
			return err
		}
		if d, ok := s.Definition(desc.Parent); !ok || d.Array != id {
			return errors.Wrapf(utils.ErrStructuralInconsistency, "array %d is not stored at its parent %v", id, desc.Parent)
		}
	}
	for _, id := range s.ObjectIDs() {
		desc := s.MustObject(id)
		if err := check(desc.Root().String(), desc.Container); err != nil {
			return err
		}
	}

	var err error
	s.ForEachDefinition(func(i index.Index, d IndexDefinition) {
		if err != nil {
			return
		}
		switch {
		case d.Aliases.Must.Contains(i) || d.Aliases.May.Contains(i):
			err = errors.Wrapf(utils.ErrStructuralInconsistency, "%v aliases itself", i)
		case d.HasArray() && !s.hasArray(d.Array):
			err = errors.Wrapf(utils.ErrStructuralInconsistency, "%v holds unknown array %d", i, d.Array)
		}
		d.Aliases.Must.ForEach(func(alias index.Index) {
			if err == nil && d.Aliases.May.Contains(alias) {
				err = errors.Wrapf(utils.ErrStructuralInconsistency, "%v is both a must and a may alias of %v", alias, i)
			}
		})
	})
	if err != nil {
		return err
	}

	for _, group := range s.AliasGroups() {
		for _, i := range group {
			d, ok := s.Definition(i)
			if !ok {
				return errors.Wrapf(utils.ErrStructuralInconsistency, "alias %v is not defined", i)
			}
			for _, alias := range SortedIndexes(d.Aliases.Must) {
				if ad, ok := s.Definition(alias); !ok || !ad.Aliases.Must.Contains(i) {
					return errors.Wrapf(utils.ErrStructuralInconsistency, "%v must-aliases %v but not vice versa", i, alias)
				}
			}
		}
	}
	return nil
}

func (s *Structure) hasArray(id value.ArrayID) bool {
	_, ok := s.arrays.Get(id)
	return ok
}
