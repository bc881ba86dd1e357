package memory

import (
	"sort"

	"github.com/cs-au-dk/memsnap/analysis/index"
	"github.com/cs-au-dk/memsnap/analysis/structure"
	"github.com/cs-au-dk/memsnap/analysis/tracker"
	"github.com/cs-au-dk/memsnap/analysis/value"
)

// changeNode is a node of the change tree. It mirrors one container level
// of the structure: named children and the unknown child.
type changeNode struct {
	children map[string]*changeNode
	unknown  *changeNode
}

func (n *changeNode) child(name string) *changeNode {
	if n.children == nil {
		n.children = make(map[string]*changeNode)
	}
	c, ok := n.children[name]
	if !ok {
		c = &changeNode{}
		n.children[name] = c
	}
	return c
}

func (n *changeNode) unknownChild() *changeNode {
	if n.unknown == nil {
		n.unknown = &changeNode{}
	}
	return n.unknown
}

// frameChanges holds the changes of one stack frame.
type frameChanges struct {
	variables changeNode
	controls  changeNode
}

// changeTree collects the indexes a merge has to visit, organised like the
// structure they live in.
type changeTree struct {
	frames      map[int]*frameChanges
	temporaries map[index.Temporary]*changeNode
	objects     map[value.ObjectID]*changeNode
	functions   map[string]struct{}
	classes     map[string]struct{}
}

func newChangeTree() *changeTree {
	return &changeTree{
		frames:      make(map[int]*frameChanges),
		temporaries: make(map[index.Temporary]*changeNode),
		objects:     make(map[value.ObjectID]*changeNode),
		functions:   make(map[string]struct{}),
		classes:     make(map[string]struct{}),
	}
}

func (t *changeTree) frame(level int) *frameChanges {
	f, ok := t.frames[level]
	if !ok {
		f = &frameChanges{}
		t.frames[level] = f
	}
	return f
}

// peekFrame returns the changes of level without recording the frame.
func (t *changeTree) peekFrame(level int) *frameChanges {
	if f, ok := t.frames[level]; ok {
		return f
	}
	return &frameChanges{}
}

func (t *changeTree) root(i index.Index) *changeNode {
	switch i := i.(type) {
	case index.Variable:
		return t.frame(i.Level).variables.child(i.Name)
	case index.AnyVariable:
		return t.frame(i.Level).variables.unknownChild()
	case index.Control:
		return t.frame(i.Level).controls.child(i.Name)
	case index.AnyControl:
		return t.frame(i.Level).controls.unknownChild()
	case index.Temporary:
		n, ok := t.temporaries[i]
		if !ok {
			n = &changeNode{}
			t.temporaries[i] = n
		}
		return n
	case index.ObjectRoot:
		n, ok := t.objects[i.Object]
		if !ok {
			n = &changeNode{}
			t.objects[i.Object] = n
		}
		return n
	}
	inconsistent("%v is not a root index", i)
	return nil
}

// insert records i and the chain of indexes it is derived from.
func (t *changeTree) insert(i index.Index) {
	chain := index.Chain(i)
	n := t.root(chain[0])
	for _, step := range chain[1:] {
		switch step := step.(type) {
		case index.ArrayIndex:
			n = n.child(step.Name)
		case index.Field:
			n = n.child(step.Name)
		case index.AnyIndex, index.AnyField:
			n = n.unknownChild()
		}
	}
}

func insertChanges[C any](t *changeTree, tr *tracker.Tracker[C]) {
	for _, i := range tr.IndexChanges() {
		t.insert(i)
	}
	for _, name := range tr.FunctionChanges() {
		t.functions[name] = struct{}{}
	}
	for _, name := range tr.ClassChanges() {
		t.classes[name] = struct{}{}
	}
}

// insertAll records every index and declaration of a structure and the
// entries of its data containers.
func (t *changeTree) insertAll(st *structure.Structure, ds ...interface{ Indexes() []index.Index }) {
	st.ForEachDefinition(func(i index.Index, _ structure.IndexDefinition) {
		t.insert(i)
	})
	for _, d := range ds {
		for _, i := range d.Indexes() {
			t.insert(i)
		}
	}
	for _, name := range st.FunctionNames() {
		t.functions[name] = struct{}{}
	}
	for _, name := range st.ClassNames() {
		t.classes[name] = struct{}{}
	}
}

// commonAncestor folds tracker.CommonAncestor over the heads, starting
// from heads[parent], and records every tracker stepped over.
func commonAncestor[C any](t *changeTree, heads []*tracker.Tracker[C], parent int) *tracker.Tracker[C] {
	visit := func(tr *tracker.Tracker[C]) { insertChanges(t, tr) }
	anc := heads[parent]
	for i, h := range heads {
		if i != parent {
			anc = tracker.CommonAncestor(anc, h, visit)
		}
	}
	return anc
}

func sortedNames(m map[string]struct{}) []string {
	res := make([]string, 0, len(m))
	for name := range m {
		res = append(res, name)
	}
	sort.Strings(res)
	return res
}
