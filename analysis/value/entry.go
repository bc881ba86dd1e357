package value

import (
	"sort"
	"strings"

	"github.com/benbjohnson/immutable"
)

// Entry is a memory entry: the finite set of values a location may hold.
// Entries are persistent; every update returns a new entry. The zero Entry
// is empty.
type Entry struct {
	values *immutable.Map[Value, struct{}]
}

// NewEntry creates an entry holding the given values.
func NewEntry(vs ...Value) Entry {
	return Entry{}.Add(vs...)
}

// UndefinedEntry is the entry of a location that is certainly undefined.
func UndefinedEntry() Entry {
	return NewEntry(Undefined)
}

func (e Entry) m() *immutable.Map[Value, struct{}] {
	if e.values == nil {
		return immutable.NewMap[Value, struct{}](Hasher{})
	}
	return e.values
}

// Count returns the number of values in the entry.
func (e Entry) Count() int {
	if e.values == nil {
		return 0
	}
	return e.values.Len()
}

// IsEmpty checks whether the entry holds no values.
func (e Entry) IsEmpty() bool {
	return e.Count() == 0
}

// Contains checks for membership of v.
func (e Entry) Contains(v Value) bool {
	if e.values == nil {
		return false
	}
	_, ok := e.values.Get(v)
	return ok
}

// Add returns the entry extended with the given values.
func (e Entry) Add(vs ...Value) Entry {
	if len(vs) == 0 {
		return e
	}
	m := e.m()
	for _, v := range vs {
		m = m.Set(v, struct{}{})
	}
	return Entry{m}
}

// Remove returns the entry without v.
func (e Entry) Remove(v Value) Entry {
	if !e.Contains(v) {
		return e
	}
	return Entry{e.values.Delete(v)}
}

// Union returns an entry holding the values of both entries.
func (e Entry) Union(o Entry) Entry {
	if e.values == o.values || o.Count() == 0 {
		return e
	}
	if e.Count() == 0 {
		return o
	}
	small, large := o, e
	if small.Count() > large.Count() {
		small, large = large, small
	}
	m := large.values
	small.ForEach(func(v Value) {
		m = m.Set(v, struct{}{})
	})
	return Entry{m}
}

// Filter returns the values satisfying keep.
func (e Entry) Filter(keep func(Value) bool) Entry {
	res := e
	e.ForEach(func(v Value) {
		if !keep(v) {
			res = res.Remove(v)
		}
	})
	return res
}

// ForEach calls f for every value in the entry in unspecified order.
func (e Entry) ForEach(f func(Value)) {
	if e.values == nil {
		return
	}
	for iter := e.values.Iterator(); !iter.Done(); {
		v, _, _ := iter.Next()
		f(v)
	}
}

// Values returns the values of the entry ordered by their printed form.
func (e Entry) Values() []Value {
	res := make([]Value, 0, e.Count())
	e.ForEach(func(v Value) {
		res = append(res, v)
	})
	sort.Slice(res, func(i, j int) bool {
		return res[i].String() < res[j].String()
	})
	return res
}

// Equal checks that both entries hold the same values.
func (e Entry) Equal(o Entry) bool {
	if e.values == o.values {
		return true
	}
	if e.Count() != o.Count() {
		return false
	}
	eq := true
	e.ForEach(func(v Value) {
		eq = eq && o.Contains(v)
	})
	return eq
}

// EqualIgnoringArrays compares entries while treating all array handles as
// one value, since a committed array is only meaningful through its
// descriptor.
func (e Entry) EqualIgnoringArrays(o Entry) bool {
	if e.Count() != o.Count() {
		return false
	}
	eq := true
	e.ForEach(func(v Value) {
		if _, isArray := v.(Array); isArray {
			eq = eq && len(o.Arrays()) > 0
			return
		}
		eq = eq && o.Contains(v)
	})
	return eq
}

// HasUndefined checks whether the entry contains the undefined marker.
func (e Entry) HasUndefined() bool {
	return e.Contains(Undefined)
}

// Arrays returns the array identities in the entry.
func (e Entry) Arrays() (res []ArrayID) {
	e.ForEach(func(v Value) {
		if a, ok := v.(Array); ok {
			res = append(res, a.ID)
		}
	})
	sort.Slice(res, func(i, j int) bool { return res[i] < res[j] })
	return
}

// Objects returns the object identities in the entry.
func (e Entry) Objects() (res []ObjectID) {
	e.ForEach(func(v Value) {
		if o, ok := v.(Object); ok {
			res = append(res, o.ID)
		}
	})
	sort.Slice(res, func(i, j int) bool { return res[i] < res[j] })
	return
}

// WithoutArrays returns the entry without array handles.
func (e Entry) WithoutArrays() Entry {
	return e.Filter(func(v Value) bool {
		_, isArray := v.(Array)
		return !isArray
	})
}

// Scalars returns the entry without array and object handles.
func (e Entry) Scalars() Entry {
	return e.Filter(func(v Value) bool {
		switch v.(type) {
		case Array, Object:
			return false
		}
		return true
	})
}

func (e Entry) String() string {
	strs := []string{}
	for _, v := range e.Values() {
		strs = append(strs, v.String())
	}
	return "{" + strings.Join(strs, ", ") + "}"
}
