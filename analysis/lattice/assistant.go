package lattice

import (
	"github.com/cs-au-dk/memsnap/analysis/value"
)

// Assistant simplifies and widens entries of the reference domain.
//
// Simplification folds all numbers into their hull interval and all
// strings into AnyString. Widening additionally pushes every bound that
// grew since the old entry to infinity. Handles, declarations, booleans
// and the undefined marker are kept as they are.
type Assistant struct{}

var _ value.Assistant = Assistant{}

func isNumber(v value.Value) bool {
	switch v.(type) {
	case Int, Interval:
		return true
	}
	return false
}

func isString(v value.Value) bool {
	switch v.(type) {
	case Str, AnyString:
		return true
	}
	return false
}

func (Assistant) Simplify(e value.Entry) value.Entry {
	res := e.Filter(func(v value.Value) bool {
		return !isNumber(v) && !isString(v)
	})
	if h, ok := hull(e); ok {
		res = res.Add(h)
	}
	if !e.Filter(isString).IsEmpty() {
		res = res.Add(AnyString{})
	}
	return res
}

func (a Assistant) Widen(old, new value.Entry) value.Entry {
	res := new.Filter(func(v value.Value) bool {
		return !isNumber(v) && !isString(v)
	})
	// Handles of the new entry replace the old ones; everything else
	// accumulates.
	res = res.Union(old.Filter(func(v value.Value) bool {
		switch v.(type) {
		case value.Array, value.Object:
			return false
		}
		return !isNumber(v) && !isString(v)
	}))

	oldHull, oldOk := hull(old)
	newHull, newOk := hull(new)
	switch {
	case oldOk && newOk:
		res = res.Add(oldHull.Widen(newHull))
	case newOk:
		res = res.Add(newHull)
	case oldOk:
		res = res.Add(oldHull)
	}

	oldStrs := old.Filter(isString)
	newStrs := new.Filter(isString)
	switch {
	case newStrs.IsEmpty() && oldStrs.IsEmpty():
	case oldStrs.Union(newStrs).Equal(oldStrs) && oldStrs.Count() == 1:
		res = res.Union(oldStrs)
	default:
		res = res.Add(AnyString{})
	}
	return res
}
