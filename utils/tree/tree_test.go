package tree

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/benbjohnson/immutable"
	"github.com/google/go-cmp/cmp"
)

var intHasher = immutable.NewHasher[any](int(0))
var uint32Hasher = immutable.NewHasher[any](uint32(0))

type tree = Tree[any, any]

func mkTest(t *testing.T) (
	func(tree tree, key, val interface{}),
	func(tree, interface{}),
) {
	return func(tree tree, key, expectVal interface{}) {
			if val, found := tree.Lookup(key); found {
				if val != expectVal {
					t.Errorf("Lookup(%v) = %v, expected: %v", key, val, expectVal)
				}
			} else {
				t.Error("Expected hit for", key)
			}
		}, func(tree tree, key interface{}) {
			if _, found := tree.Lookup(key); found {
				t.Fatal("Expected miss for", key)
			}
		}
}

func itfEq(a, b interface{}) bool {
	return a == b
}

type badHasher struct{}

func (badHasher) Hash(interface{}) uint32     { return 0 }
func (badHasher) Equal(a, b interface{}) bool { return a == b }

// memHasher maps keys to a small random range to provoke collisions and
// deep shared prefixes.
type memHasher struct {
	mem   map[int]uint32
	limit int
}

func (m memHasher) Hash(i interface{}) uint32 {
	x := i.(int)
	if v, ok := m.mem[x]; ok {
		return v
	}
	h := uint32(rand.Intn(m.limit))
	m.mem[x] = h
	return h
}

func (m memHasher) Equal(a, b interface{}) bool {
	return a == b
}

func mkMemHasher(limit int) memHasher {
	return memHasher{make(map[int]uint32), limit}
}

func TestEmpty(t *testing.T) {
	_, miss := mkTest(t)
	tree := NewTree[any, any](intHasher)
	miss(tree, 0)
	if tree.Size() != 0 {
		t.Error("Empty tree has size", tree.Size())
	}
}

func TestSameKey(t *testing.T) {
	for _, hasher := range []immutable.Hasher[any]{intHasher, badHasher{}} {
		hit, miss := mkTest(t)
		tree0 := NewTree[any, any](hasher)
		tree1 := tree0.Insert(0, "v1")
		tree2 := tree1.Insert(0, "v2")

		miss(tree0, 0)
		hit(tree1, 0, "v1")
		hit(tree2, 0, "v2")

		if tree2.Size() != 1 {
			t.Error("Overwriting a key changed the size to", tree2.Size())
		}
		if tree1.Equal(tree2, itfEq) {
			t.Error("v1 tree should not equal v2 tree")
		}
	}
}

func TestHashCollision(t *testing.T) {
	hit, miss := mkTest(t)
	tree0 := NewTree[any, any](badHasher{})
	tree1 := tree0.Insert(1, "v1")
	tree2 := tree1.Insert(2, "v2")

	miss(tree0, 1)
	miss(tree0, 2)

	hit(tree1, 1, "v1")
	miss(tree1, 2)

	hit(tree2, 1, "v1")
	hit(tree2, 2, "v2")

	tree3 := tree2.Remove(1)
	miss(tree3, 1)
	hit(tree3, 2, "v2")
}

func TestHistory(t *testing.T) {
	hit, miss := mkTest(t)
	N := 100

	for _, hasher := range []immutable.Hasher[any]{intHasher, mkMemHasher(N / 5)} {
		tree := NewTree[any, any](hasher)
		history := []Tree[any, any]{tree}

		for i := 0; i < N; i++ {
			tree = tree.Insert(i, i)
			history = append(history, tree)
		}

		for vidx, tree := range history {
			if tree.Size() != vidx {
				t.Errorf("Version %d has size %d", vidx, tree.Size())
			}
			for i := 0; i < N; i++ {
				if vidx <= i {
					miss(tree, i)
				} else {
					hit(tree, i, i)
				}
			}
		}
	}
}

func TestRemove(t *testing.T) {
	hit, miss := mkTest(t)
	iterations := 100
	N := 100
	N_remove := 20

	for iter := 0; iter < iterations; iter++ {
		tree := NewTree[any, any](uint32Hasher)

		var keys []uint32
		for i := 0; i < N; i++ {
			k := uint32(iter*N + i)
			keys = append(keys, k)
			tree = tree.Insert(k, k)
		}

		rand.Shuffle(N, func(i, j int) {
			keys[i], keys[j] = keys[j], keys[i]
		})

		removed := keys[:N_remove]
		for _, k := range removed {
			tree = tree.Remove(k)
		}

		if sz := tree.Size(); sz != N-N_remove {
			t.Error("Expected sz to be", N-N_remove, "was", sz)
		}

		for _, k := range removed {
			miss(tree, k)
		}

		for _, k := range keys[N_remove:] {
			hit(tree, k, k)
		}
	}
}

func TestRemoveMissingKeepsRoot(t *testing.T) {
	a := NewTree[any, any](intHasher).Insert(1, 1).Insert(2, 2)
	b := a.Remove(3)
	if a.root != b.root || b.Size() != 2 {
		t.Error("Removing a missing key should not touch the tree")
	}
}

func diffKeys(a, b tree) (keys []int) {
	a.Difference(b, itfEq, func(k any, _ any, _ bool, _ any, _ bool) {
		keys = append(keys, k.(int))
	})
	sort.Ints(keys)
	return
}

func TestDifference(t *testing.T) {
	for _, hasher := range []immutable.Hasher[any]{intHasher, badHasher{}, mkMemHasher(8)} {
		base := NewTree[any, any](hasher)
		for i := 0; i < 50; i++ {
			base = base.Insert(i, i)
		}

		changed := base.Insert(3, -3).Remove(7).Insert(60, 60)

		if d := diffKeys(base, base); len(d) != 0 {
			t.Errorf("A tree differs from itself at %v", d)
		}
		if diff := cmp.Diff([]int{3, 7, 60}, diffKeys(base, changed)); diff != "" {
			t.Errorf("Unexpected difference (-want +got):\n%s", diff)
		}
		if diff := cmp.Diff([]int{3, 7, 60}, diffKeys(changed, base)); diff != "" {
			t.Errorf("Difference is not symmetric (-want +got):\n%s", diff)
		}
	}
}

func TestDifferenceReportsSides(t *testing.T) {
	a := NewTree[any, any](intHasher).Insert(1, "a")
	b := NewTree[any, any](intHasher).Insert(2, "b")

	a.Difference(b, itfEq, func(k, va any, inA bool, vb any, inB bool) {
		switch k {
		case 1:
			if !inA || inB || va != "a" {
				t.Errorf("Key 1 reported as (%v, %v, %v, %v)", va, inA, vb, inB)
			}
		case 2:
			if inA || !inB || vb != "b" {
				t.Errorf("Key 2 reported as (%v, %v, %v, %v)", va, inA, vb, inB)
			}
		default:
			t.Errorf("Unexpected key %v", k)
		}
	})
}

func TestEqualSkipsValuesOnSharedTrees(t *testing.T) {
	a := NewTree[any, any](intHasher).Insert(1, 1)
	calls := 0
	if !a.Equal(a, func(x, y any) bool { calls++; return x == y }) {
		t.Error("Tree not equal to itself")
	}
	if calls != 0 {
		t.Error("Comparison function called on a shared tree")
	}
}
