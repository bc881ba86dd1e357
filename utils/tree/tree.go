package tree

import (
	"github.com/benbjohnson/immutable"
)

// NewTree constructs an empty persistent map with the specified hasher.
func NewTree[K, V any](hasher immutable.Hasher[K]) Tree[K, V] {
	return Tree[K, V]{hasher, nil, 0}
}

// Tree is a persistent map. Updates return a new tree that shares all
// untouched subtrees with the receiver, so copying a tree is free.
type Tree[K, V any] struct {
	hasher immutable.Hasher[K]
	root   node[K, V]
	size   int
}

func (tree Tree[K, V]) Lookup(key K) (V, bool) {
	// Hashing can be expensive, so we hash the key once here and pass it on.
	return lookup(tree.root, tree.hasher.Hash(key), key, tree.hasher)
}

// Insert the given key-value pair into the map.
// Replaces previous value with the same key if it exists.
func (tree Tree[K, V]) Insert(key K, value V) Tree[K, V] {
	var added bool
	tree.root, added = insert(tree.root, tree.hasher.Hash(key), key, value, tree.hasher)
	if added {
		tree.size++
	}
	return tree
}

// Remove a mapping for the given key if it exists.
func (tree Tree[K, V]) Remove(key K) Tree[K, V] {
	hash := tree.hasher.Hash(key)
	if _, found := lookup(tree.root, hash, key, tree.hasher); !found {
		// Keep the old root to preserve pointer equality with other versions.
		return tree
	}
	tree.root = remove(tree.root, hash, key, tree.hasher)
	tree.size--
	return tree
}

// ForEach calls the given function once for each key-value pair in the map.
func (tree Tree[K, V]) ForEach(f eachFunc[K, V]) {
	if tree.root != nil {
		tree.root.each(f)
	}
}

// Equal returns whether two maps are equal. Values are compared with the
// provided function. Shared subtrees are skipped.
func (tree Tree[K, V]) Equal(other Tree[K, V], f cmpFunc[V]) bool {
	return tree.size == other.size && equal(tree.root, other.root, tree.hasher, f)
}

// Difference calls f for every key whose mapping differs between the two
// trees. A key missing on one side is reported with the corresponding found
// flag unset. Shared subtrees are skipped, so comparing a tree with a
// version of itself after r updates costs O(r * keysize).
func (tree Tree[K, V]) Difference(other Tree[K, V], eq cmpFunc[V], f diffFunc[K, V]) {
	difference(tree.root, other.root, tree.hasher, eq, f)
}

// Size returns the number of key-value pairs in the map.
func (tree Tree[K, V]) Size() int {
	return tree.size
}

// End of public interface

// The patricia tree implementation is based on:
// http://ittc.ku.edu/~andygill/papers/IntMap98.pdf

type eachFunc[K, V any] func(key K, value V)
type cmpFunc[V any] func(a, b V) bool
type diffFunc[K, V any] func(key K, a V, inA bool, b V, inB bool)

type node[K, V any] interface {
	each(eachFunc[K, V])
}

type keyt = uint32

type branch[K, V any] struct {
	prefix keyt // Common prefix of all keys in the left and right subtrees
	// A number with exactly one positive bit. The position of the bit
	// determines where the prefixes of the left and right subtrees diverge.
	branchBit keyt
	left      node[K, V]
	right     node[K, V]
}

func (b *branch[K, V]) each(f eachFunc[K, V]) {
	b.left.each(f)
	b.right.each(f)
}

// Returns whether the key matches the prefix up until the branching bit.
func (b *branch[K, V]) match(key keyt) bool {
	return (key & (b.branchBit - 1)) == b.prefix
}

type pair[K, V any] struct {
	key   K
	value V
}

type leaf[K, V any] struct {
	// The (shared) hash value of all keys in the leaf.
	key keyt
	// Hash collisions are chained.
	values []pair[K, V]
}

func (l *leaf[K, V]) copy() *leaf[K, V] {
	return &leaf[K, V]{
		l.key,
		append([]pair[K, V](nil), l.values...),
	}
}

func (l *leaf[K, V]) each(f eachFunc[K, V]) {
	for _, pr := range l.values {
		f(pr.key, pr.value)
	}
}

// Smart branch constructor
func br[K, V any](prefix, branchBit keyt, left, right node[K, V]) node[K, V] {
	if left == nil {
		return right
	} else if right == nil {
		return left
	}

	return &branch[K, V]{prefix, branchBit, left, right}
}

func lookup[K, V any](tree node[K, V], hash keyt, key K, hasher immutable.Hasher[K]) (ret V, found bool) {
	for tree != nil {
		switch t := tree.(type) {
		case *leaf[K, V]:
			if t.key == hash {
				for _, pr := range t.values {
					if hasher.Equal(key, pr.key) {
						return pr.value, true
					}
				}
			}
			return

		case *branch[K, V]:
			if !t.match(hash) {
				return
			}
			if zeroBit(hash, t.branchBit) {
				tree = t.left
			} else {
				tree = t.right
			}

		default:
			panic("unknown tree node")
		}
	}
	return
}

// Joins two trees t0 and t1 which have prefixes p0 and p1 respectively.
// The prefixes must not be equal!
func join[K, V any](p0, p1 keyt, t0, t1 node[K, V]) node[K, V] {
	bbit := branchingBit(p0, p1)
	prefix := p0 & (bbit - 1)
	if zeroBit(p0, bbit) {
		return &branch[K, V]{prefix, bbit, t0, t1}
	}
	return &branch[K, V]{prefix, bbit, t1, t0}
}

// insert returns the new subtree and whether a new key was added.
func insert[K, V any](tree node[K, V], hash keyt, key K, value V, hasher immutable.Hasher[K]) (node[K, V], bool) {
	if tree == nil {
		return &leaf[K, V]{key: hash, values: []pair[K, V]{{key, value}}}, true
	}

	var prefix keyt
	switch tree := tree.(type) {
	case *leaf[K, V]:
		if tree.key == hash {
			lf := tree.copy()
			for i, pr := range tree.values {
				if hasher.Equal(key, pr.key) {
					lf.values[i].value = value
					return lf, false
				}
			}

			lf.values = append(lf.values, pair[K, V]{key, value})
			return lf, true
		}

		prefix = tree.key

	case *branch[K, V]:
		if tree.match(hash) {
			l, r := tree.left, tree.right
			var added bool
			if zeroBit(hash, tree.branchBit) {
				l, added = insert(l, hash, key, value, hasher)
			} else {
				r, added = insert(r, hash, key, value, hasher)
			}
			return &branch[K, V]{tree.prefix, tree.branchBit, l, r}, added
		}

		prefix = tree.prefix

	default:
		panic("unknown tree node")
	}

	newLeaf, _ := insert(nil, hash, key, value, hasher)
	return join(hash, prefix, newLeaf, tree), true
}

func remove[K, V any](tree node[K, V], hash keyt, key K, hasher immutable.Hasher[K]) node[K, V] {
	if tree == nil {
		return tree
	}

	switch tree := tree.(type) {
	case *leaf[K, V]:
		if tree.key == hash {
			newLeaf := &leaf[K, V]{tree.key, nil}
			for _, pr := range tree.values {
				if !hasher.Equal(key, pr.key) {
					newLeaf.values = append(newLeaf.values, pr)
				}
			}

			if len(newLeaf.values) == 0 {
				return nil
			}

			return newLeaf
		}
	case *branch[K, V]:
		if tree.match(hash) {
			left, right := tree.left, tree.right
			if zeroBit(hash, tree.branchBit) {
				left = remove(left, hash, key, hasher)
			} else {
				right = remove(right, hash, key, hasher)
			}
			return br(tree.prefix, tree.branchBit, left, right)
		}
	default:
		panic("unknown tree node")
	}

	return tree
}

func equal[K, V any](a, b node[K, V], hasher immutable.Hasher[K], f cmpFunc[V]) bool {
	if a == b {
		return true
	} else if a == nil || b == nil {
		return false
	}

	switch a := a.(type) {
	case *leaf[K, V]:
		b, ok := b.(*leaf[K, V])
		if !ok || a.key != b.key || len(a.values) != len(b.values) {
			return false
		}

	FOUND:
		for _, apr := range a.values {
			for _, bpr := range b.values {
				if hasher.Equal(apr.key, bpr.key) {
					if !f(apr.value, bpr.value) {
						return false
					}

					continue FOUND
				}
			}

			return false
		}

		return true

	case *branch[K, V]:
		b, ok := b.(*branch[K, V])
		if !ok {
			return false
		}

		return a.prefix == b.prefix && a.branchBit == b.branchBit &&
			equal(a.left, b.left, hasher, f) && equal(a.right, b.right, hasher, f)

	default:
		panic("unknown tree node")
	}
}

func difference[K, V any](a, b node[K, V], hasher immutable.Hasher[K], eq cmpFunc[V], f diffFunc[K, V]) {
	if a == b {
		return
	}

	var zero V
	switch {
	case a == nil:
		b.each(func(k K, v V) { f(k, zero, false, v, true) })
		return
	case b == nil:
		a.each(func(k K, v V) { f(k, v, true, zero, false) })
		return
	}

	s, sok := a.(*branch[K, V])
	t, tok := b.(*branch[K, V])
	if sok && tok && s.prefix == t.prefix && s.branchBit == t.branchBit {
		difference(s.left, t.left, hasher, eq, f)
		difference(s.right, t.right, hasher, eq, f)
		return
	}

	// Shapes disagree, compare the subtrees key by key.
	a.each(func(k K, v V) {
		w, found := lookup(b, hasher.Hash(k), k, hasher)
		if !found || !eq(v, w) {
			f(k, v, true, w, found)
		}
	})
	b.each(func(k K, w V) {
		if _, found := lookup(a, hasher.Hash(k), k, hasher); !found {
			f(k, zero, false, w, true)
		}
	})
}
