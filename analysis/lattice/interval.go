package lattice

import (
	"github.com/cs-au-dk/memsnap/analysis/value"
	"github.com/cs-au-dk/memsnap/utils"
)

// Interval is an integer interval. Both bounds may be infinite.
type Interval struct {
	low  IntervalBound
	high IntervalBound
}

// NewInterval creates an interval with possibly infinite bounds.
func NewInterval(low, high IntervalBound) Interval {
	return Interval{low, high}
}

// IntervalFinite creates an interval with finite bounds.
func IntervalFinite(low, high int) Interval {
	return Interval{FiniteBound(low), FiniteBound(high)}
}

// Top is [-∞, ∞].
func Top() Interval {
	return Interval{MinusInfinity{}, PlusInfinity{}}
}

func (e Interval) Low() IntervalBound  { return e.low }
func (e Interval) High() IntervalBound { return e.high }

func (e Interval) Hash() uint32 {
	return utils.HashCombine(27, e.low.Hash(), e.high.Hash())
}

func (e Interval) Equal(o value.Value) bool {
	f, ok := o.(Interval)
	return ok && e.low.Eq(f.low) && e.high.Eq(f.high)
}

func (e Interval) String() string {
	return "[" + e.low.String() + ", " + e.high.String() + "]"
}

// Contains checks whether the interval holds the integer n.
func (e Interval) Contains(n int) bool {
	return e.low.Leq(FiniteBound(n)) && e.high.Geq(FiniteBound(n))
}

// Join takes the lowest of the lower bounds and the highest of the upper
// bounds.
func (e Interval) Join(o Interval) Interval {
	return Interval{e.low.Min(o.low), e.high.Max(o.high)}
}

// Widen extrapolates every bound of o that grew beyond e to infinity.
func (e Interval) Widen(o Interval) Interval {
	res := e
	if o.low.Lt(e.low) {
		res.low = MinusInfinity{}
	}
	if o.high.Gt(e.high) {
		res.high = PlusInfinity{}
	}
	return res
}

// Leq checks whether e is contained in o.
func (e Interval) Leq(o Interval) bool {
	return e.low.Geq(o.low) && e.high.Leq(o.high)
}

// hull returns the smallest interval covering every integer and interval in
// the entry. ok is false when the entry holds no numbers.
func hull(e value.Entry) (res Interval, ok bool) {
	e.ForEach(func(v value.Value) {
		var i Interval
		switch v := v.(type) {
		case Int:
			i = IntervalFinite(int(v), int(v))
		case Interval:
			i = v
		default:
			return
		}
		if !ok {
			res, ok = i, true
			return
		}
		res = res.Join(i)
	})
	return
}
