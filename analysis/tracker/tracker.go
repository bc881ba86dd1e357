// Package tracker implements change trackers: versioned delta logs linked
// into persistent chains, one node per container version.
package tracker

import (
	"fmt"
	"sort"
	"sync/atomic"

	"github.com/cs-au-dk/memsnap/analysis/index"
)

// ID identifies a tracker. IDs strictly increase from older to newer
// trackers sharing a Sequence.
type ID uint64

// Sequence hands out tracker IDs.
type Sequence struct {
	last uint64
}

// Next returns a fresh ID, greater than every ID handed out before.
func (s *Sequence) Next() ID {
	return ID(atomic.AddUint64(&s.last, 1))
}

// ConnectionType describes how a tracker relates to its predecessor.
type ConnectionType int

const (
	// Extend is a plain copy within one frame.
	Extend ConnectionType = iota
	// CallExtend opens the frame of a callee.
	CallExtend
	// Merge joins sibling control flow paths.
	Merge
	// SubprogramMerge joins the entries of a subprogram coming from
	// several call sites.
	SubprogramMerge
	// CallMerge joins the exits of a callee back into the caller.
	CallMerge
)

func (c ConnectionType) String() string {
	switch c {
	case Extend:
		return "extend"
	case CallExtend:
		return "call-extend"
	case Merge:
		return "merge"
	case SubprogramMerge:
		return "subprogram-merge"
	case CallMerge:
		return "call-merge"
	}
	return fmt.Sprintf("connection(%d)", int(c))
}

// Tracker records what changed in one version of a container of type C
// relative to the previous version.
type Tracker[C any] struct {
	id         ID
	container  C
	previous   *Tracker[C]
	callLevel  int
	connection ConnectionType

	indexChanges    map[index.Index]struct{}
	functionChanges map[string]struct{}
	classChanges    map[string]struct{}

	callRouting map[any]*Tracker[C]
}

// New creates a tracker for container linked to previous, which may be nil
// for the first version.
func New[C any](seq *Sequence, container C, previous *Tracker[C], callLevel int, connection ConnectionType) *Tracker[C] {
	return &Tracker[C]{
		id:         seq.Next(),
		container:  container,
		previous:   previous,
		callLevel:  callLevel,
		connection: connection,
	}
}

func (t *Tracker[C]) ID() ID                     { return t.id }
func (t *Tracker[C]) Container() C               { return t.container }
func (t *Tracker[C]) Previous() *Tracker[C]      { return t.previous }
func (t *Tracker[C]) CallLevel() int             { return t.callLevel }
func (t *Tracker[C]) Connection() ConnectionType { return t.connection }

// SetConnection retypes the link to the predecessor. Merges create their
// container by copy and only then learn what kind of join it is.
func (t *Tracker[C]) SetConnection(connection ConnectionType, callLevel int) {
	t.connection = connection
	t.callLevel = callLevel
}

// InsertIndexChange records a change of i. Temporaries are not recorded.
func (t *Tracker[C]) InsertIndexChange(i index.Index) {
	if _, ok := i.(index.Temporary); ok {
		return
	}
	if t.indexChanges == nil {
		t.indexChanges = make(map[index.Index]struct{})
	}
	t.indexChanges[i] = struct{}{}
}

// RemoveIndexChange forgets the change of i.
func (t *Tracker[C]) RemoveIndexChange(i index.Index) {
	delete(t.indexChanges, i)
}

// HasIndexChange checks whether i changed in this version.
func (t *Tracker[C]) HasIndexChange(i index.Index) bool {
	_, ok := t.indexChanges[i]
	return ok
}

// IndexChanges returns the changed indexes in a deterministic order.
func (t *Tracker[C]) IndexChanges() []index.Index {
	res := make([]index.Index, 0, len(t.indexChanges))
	for i := range t.indexChanges {
		res = append(res, i)
	}
	index.Sort(res)
	return res
}

// ChangeCount is the number of changed indexes.
func (t *Tracker[C]) ChangeCount() int {
	return len(t.indexChanges)
}

// InsertFunctionChange records a change of the function declarations of name.
func (t *Tracker[C]) InsertFunctionChange(name string) {
	if t.functionChanges == nil {
		t.functionChanges = make(map[string]struct{})
	}
	t.functionChanges[name] = struct{}{}
}

// InsertClassChange records a change of the class declarations of name.
func (t *Tracker[C]) InsertClassChange(name string) {
	if t.classChanges == nil {
		t.classChanges = make(map[string]struct{})
	}
	t.classChanges[name] = struct{}{}
}

// FunctionChanges returns the changed function names, sorted.
func (t *Tracker[C]) FunctionChanges() []string {
	return sortedKeys(t.functionChanges)
}

// ClassChanges returns the changed class names, sorted.
func (t *Tracker[C]) ClassChanges() []string {
	return sortedKeys(t.classChanges)
}

// AddCallTracker routes the call made from callSnapshot to callee.
func (t *Tracker[C]) AddCallTracker(callSnapshot any, callee *Tracker[C]) {
	if t.callRouting == nil {
		t.callRouting = make(map[any]*Tracker[C])
	}
	t.callRouting[callSnapshot] = callee
}

// CallTracker returns the tracker routed for callSnapshot.
func (t *Tracker[C]) CallTracker(callSnapshot any) (*Tracker[C], bool) {
	callee, ok := t.callRouting[callSnapshot]
	return callee, ok
}

func (t *Tracker[C]) String() string {
	return fmt.Sprintf("tracker#%d(%s, level %d, %d changes)", t.id, t.connection, t.callLevel, len(t.indexChanges))
}

func sortedKeys(m map[string]struct{}) []string {
	res := make([]string, 0, len(m))
	for k := range m {
		res = append(res, k)
	}
	sort.Strings(res)
	return res
}

// CommonAncestor finds the nearest tracker shared by the chains of a and b.
// It always advances the chain whose head has the larger ID and calls
// visit on every tracker it steps over, on both chains; the ancestor
// itself is not visited. It returns nil when the chains are disjoint, in
// which case every tracker of both chains has been visited.
func CommonAncestor[C any](a, b *Tracker[C], visit func(*Tracker[C])) *Tracker[C] {
	for a != b {
		switch {
		case a == nil:
			visit(b)
			b = b.previous
		case b == nil:
			visit(a)
			a = a.previous
		case a.id > b.id:
			visit(a)
			a = a.previous
		default:
			visit(b)
			b = b.previous
		}
	}
	return a
}

// CollectCallChanges walks from t back to the tracker that opened the
// frame at t's call level, visiting every tracker on the way. Subprogram
// merges are crossed through the routing recorded for callSnapshot.
// It returns the opening tracker, or nil when none exists.
func CollectCallChanges[C any](t *Tracker[C], callSnapshot any, visit func(*Tracker[C])) *Tracker[C] {
	for t != nil {
		if t.connection == CallExtend {
			visit(t)
			return t
		}
		visit(t)
		if t.connection == SubprogramMerge {
			if routed, ok := t.CallTracker(callSnapshot); ok {
				t = routed
				continue
			}
		}
		t = t.previous
	}
	return nil
}
