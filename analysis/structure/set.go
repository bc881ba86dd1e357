package structure

import (
	"sort"

	"github.com/benbjohnson/immutable"
	"github.com/cs-au-dk/memsnap/analysis/index"
	"github.com/cs-au-dk/memsnap/analysis/value"
	"github.com/cs-au-dk/memsnap/utils"
)

// Set is a persistent set. The hasher is a type parameter so that the zero
// Set is a usable empty set.
type Set[T any, H immutable.Hasher[T]] struct {
	m *immutable.Map[T, struct{}]
}

type (
	// IndexSet is a set of memory indexes.
	IndexSet = Set[index.Index, index.Hasher]
	// ObjectSet is a set of object identities.
	ObjectSet = Set[value.ObjectID, utils.IDHasher[value.ObjectID]]
	// ArraySet is a set of array identities.
	ArraySet = Set[value.ArrayID, utils.IDHasher[value.ArrayID]]
)

// NewIndexSet creates a set of the given indexes.
func NewIndexSet(is ...index.Index) IndexSet {
	return IndexSet{}.Add(is...)
}

// NewObjectSet creates a set of the given objects.
func NewObjectSet(os ...value.ObjectID) ObjectSet {
	return ObjectSet{}.Add(os...)
}

func (s Set[T, H]) Len() int {
	if s.m == nil {
		return 0
	}
	return s.m.Len()
}

func (s Set[T, H]) Contains(v T) bool {
	if s.m == nil {
		return false
	}
	_, ok := s.m.Get(v)
	return ok
}

func (s Set[T, H]) Add(vs ...T) Set[T, H] {
	if len(vs) == 0 {
		return s
	}
	m := s.m
	if m == nil {
		var h H
		m = immutable.NewMap[T, struct{}](h)
	}
	for _, v := range vs {
		m = m.Set(v, struct{}{})
	}
	return Set[T, H]{m}
}

func (s Set[T, H]) Remove(v T) Set[T, H] {
	if !s.Contains(v) {
		return s
	}
	return Set[T, H]{s.m.Delete(v)}
}

func (s Set[T, H]) ForEach(f func(T)) {
	if s.m == nil {
		return
	}
	for iter := s.m.Iterator(); !iter.Done(); {
		v, _, _ := iter.Next()
		f(v)
	}
}

// Items returns the members in unspecified order.
func (s Set[T, H]) Items() []T {
	res := make([]T, 0, s.Len())
	s.ForEach(func(v T) { res = append(res, v) })
	return res
}

func (s Set[T, H]) Union(o Set[T, H]) Set[T, H] {
	if s.m == o.m {
		return s
	}
	if s.Len() < o.Len() {
		s, o = o, s
	}
	o.ForEach(func(v T) { s = s.Add(v) })
	return s
}

func (s Set[T, H]) Equal(o Set[T, H]) bool {
	if s.m == o.m {
		return true
	}
	if s.Len() != o.Len() {
		return false
	}
	eq := true
	s.ForEach(func(v T) { eq = eq && o.Contains(v) })
	return eq
}

// SortedIndexes returns the members of an index set ordered by their
// printed form.
func SortedIndexes(s IndexSet) []index.Index {
	res := s.Items()
	index.Sort(res)
	return res
}

// SortedObjects returns the members of an object set in ascending order.
func SortedObjects(s ObjectSet) []value.ObjectID {
	res := s.Items()
	sort.Slice(res, func(i, j int) bool { return res[i] < res[j] })
	return res
}

// SortedArrays returns the members of an array set in ascending order.
func SortedArrays(s ArraySet) []value.ArrayID {
	res := s.Items()
	sort.Slice(res, func(i, j int) bool { return res[i] < res[j] })
	return res
}
