package utils

import (
	"github.com/benbjohnson/immutable"
)

type (
	// Hashable is implemented by all hashable types.
	Hashable interface {
		Hash() uint32
	}
	// HashableEq is implemented by all hashable types that can be compared for equality.
	HashableEq[T any] interface {
		Hashable
		Equal(T) bool
	}

	// hashableHasher is a hasher for hashable and equality comparable entities.
	hashableHasher[T HashableEq[T]] struct{}
)

// Equal checks that two hashable entities a and b are equal.
func (hashableHasher[T]) Equal(a, b T) bool { return a.Equal(b) }

// Hash computes the uint32 hash of hashable entity a.
func (hashableHasher[T]) Hash(a T) uint32 { return a.Hash() }

// HashableHasher is a generic hasher factory of hashable and equality comparable entities.
func HashableHasher[T HashableEq[T]]() immutable.Hasher[T] { return hashableHasher[T]{} }

// NewImmMap creates an immutable map where the keys must be hashable and equality comparable.
func NewImmMap[K HashableEq[K], V any]() *immutable.Map[K, V] {
	return immutable.NewMap[K, V](HashableHasher[K]())
}

// IDHasher hashes small integer identities such as arena handles.
type IDHasher[T ~uint32 | ~int] struct{}

// Hash spreads the identity with Knuth's multiplicative constant.
func (IDHasher[T]) Hash(v T) uint32 { return uint32(v) * 2654435761 }

// Equal compares two identities.
func (IDHasher[T]) Equal(a, b T) bool { return a == b }

var stringHasher = immutable.NewHasher("")

// StringHasher returns the hasher used for name-keyed maps.
func StringHasher() immutable.Hasher[string] { return stringHasher }

// HashString hashes a name.
func HashString(s string) uint32 { return stringHasher.Hash(s) }

// HashCombine uses the C++ boost algorithm for combining multiple hash values.
func HashCombine(hs ...uint32) (seed uint32) {
	for _, v := range hs {
		seed = v + 0x9e3779b9 + (seed << 6) + (seed >> 2)
	}

	return
}
