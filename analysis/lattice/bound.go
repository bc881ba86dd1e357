package lattice

import (
	"strconv"
)

// IntervalBound is implemented by all interval bounds: any FiniteBound
// value, PlusInfinity and MinusInfinity.
type IntervalBound interface {
	String() string
	Hash() uint32

	// IsInfinite checks whether the bound is infinite.
	IsInfinite() bool

	// Eq checks for bound equality.
	Eq(IntervalBound) bool
	// Leq computes b1 ≤ b2. The semantics is -∞ ≤ c ≤ ∞, where c ∈ ℤ.
	Leq(IntervalBound) bool
	// Geq computes b1 ≥ b2. The semantics is ∞ ≥ c ≥ -∞, where c ∈ ℤ.
	Geq(IntervalBound) bool
	// Lt computes b1 < b2.
	Lt(IntervalBound) bool
	// Gt computes b1 > b2.
	Gt(IntervalBound) bool

	// Max computes max(b1, b2).
	Max(IntervalBound) IntervalBound
	// Min computes min(b1, b2).
	Min(IntervalBound) IntervalBound
}

type (
	// FiniteBound is used to represent finite limits of an interval value.
	FiniteBound int
	// PlusInfinity represents ∞.
	PlusInfinity struct{}
	// MinusInfinity represents -∞.
	MinusInfinity struct{}
)

// IsInfinite is false for the finite bound.
func (FiniteBound) IsInfinite() bool {
	return false
}

func (b FiniteBound) String() string {
	return colorize.Number(strconv.Itoa(int(b)))
}

func (b FiniteBound) Hash() uint32 {
	return uint32(b)
}

// Eq compares for equality with another bound. Two finite bounds
// are equal if their underlying values are equal.
func (b1 FiniteBound) Eq(b2 IntervalBound) bool {
	switch b2 := b2.(type) {
	case FiniteBound:
		return b1 == b2
	}
	return false
}

// Leq computes b1 ≤ b2. The semantics is -∞ ≤ c ≤ ∞, where c ∈ ℤ.
func (b1 FiniteBound) Leq(b2 IntervalBound) bool {
	switch b2 := b2.(type) {
	case FiniteBound:
		return b1 <= b2
	case PlusInfinity:
		return true
	}
	return false
}

// Geq computes b1 ≥ b2. The semantics is ∞ ≥ c ≥ -∞, where c ∈ ℤ.
func (b1 FiniteBound) Geq(b2 IntervalBound) bool {
	switch b2 := b2.(type) {
	case FiniteBound:
		return b1 >= b2
	case MinusInfinity:
		return true
	}
	return false
}

// Lt computes b1 < b2. The semantics is -∞ < c < ∞, where c ∈ ℤ.
func (b1 FiniteBound) Lt(b2 IntervalBound) bool {
	return !b1.Geq(b2)
}

// Gt computes b1 > b2. The semantics is -∞ < c < ∞, where c ∈ ℤ.
func (b1 FiniteBound) Gt(b2 IntervalBound) bool {
	return !b1.Leq(b2)
}

// Max computes max(b1, b2). The semantics of maximum is:
//
//	.-----------------------.
//	|   b2   | max(b1, b2)  |
//	|========|==============|
//	|  ∈  ℤ  | max(b1, b2)  |
//	|--------|--------------|
//	|   -∞   |      b1      |
//	|--------|--------------|
//	|    ∞   |      ∞       |
//	 -----------------------
func (b1 FiniteBound) Max(b2 IntervalBound) IntervalBound {
	switch b2 := b2.(type) {
	case FiniteBound:
		if b1 < b2 {
			return b2
		}
		return b1
	case PlusInfinity:
		return b2
	}
	return b1
}

// Min computes min(b1, b2). The semantics of minimum is:
//
//	.-----------------------.
//	|   b2   | min(b1, b2)  |
//	|========|==============|
//	|  ∈  ℤ  | min(b1, b2)  |
//	|--------|--------------|
//	|   -∞   |     -∞       |
//	|--------|--------------|
//	|    ∞   |      b1      |
//	 -----------------------
func (b1 FiniteBound) Min(b2 IntervalBound) IntervalBound {
	switch b2 := b2.(type) {
	case FiniteBound:
		if b1 < b2 {
			return b1
		}
		return b2
	case MinusInfinity:
		return b2
	}
	return b1
}

// IsInfinite is true for ∞.
func (PlusInfinity) IsInfinite() bool {
	return true
}

func (PlusInfinity) String() string {
	return colorize.Number("∞")
}

func (PlusInfinity) Hash() uint32 {
	return 0x7fffffff
}

// Eq checks for interval bound equality.
func (PlusInfinity) Eq(b2 IntervalBound) bool {
	_, ok := b2.(PlusInfinity)
	return ok
}

// Leq computes ∞ ≤ b.
func (b1 PlusInfinity) Leq(b2 IntervalBound) bool {
	return b1.Eq(b2)
}

// Geq computes ∞ ≥ b. It is always true as ∞ is the largest possible bound.
func (PlusInfinity) Geq(IntervalBound) bool {
	return true
}

// Lt computes ∞ < b. It is always false as ∞ is the largest possible bound.
func (PlusInfinity) Lt(IntervalBound) bool {
	return false
}

// Gt computes ∞ > b.
func (b1 PlusInfinity) Gt(b2 IntervalBound) bool {
	return !b1.Eq(b2)
}

func (b1 PlusInfinity) Max(IntervalBound) IntervalBound {
	return b1
}

func (PlusInfinity) Min(b2 IntervalBound) IntervalBound {
	return b2
}

// IsInfinite is true for -∞.
func (MinusInfinity) IsInfinite() bool {
	return true
}

func (MinusInfinity) String() string {
	return colorize.Number("-∞")
}

func (MinusInfinity) Hash() uint32 {
	return 0x80000000
}

// Eq checks for interval bound equality.
func (MinusInfinity) Eq(b2 IntervalBound) bool {
	_, ok := b2.(MinusInfinity)
	return ok
}

// Leq computes -∞ ≤ b. It is always true as -∞ is the smallest possible bound.
func (MinusInfinity) Leq(IntervalBound) bool {
	return true
}

// Geq computes -∞ ≥ b.
func (b1 MinusInfinity) Geq(b2 IntervalBound) bool {
	return b1.Eq(b2)
}

// Lt computes -∞ < b.
func (b1 MinusInfinity) Lt(b2 IntervalBound) bool {
	return !b1.Eq(b2)
}

// Gt computes -∞ > b. It is always false as -∞ is the smallest possible bound.
func (MinusInfinity) Gt(IntervalBound) bool {
	return false
}

func (MinusInfinity) Max(b2 IntervalBound) IntervalBound {
	return b2
}

func (b1 MinusInfinity) Min(IntervalBound) IntervalBound {
	return b1
}
