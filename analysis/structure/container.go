package structure

import (
	"sort"

	"github.com/benbjohnson/immutable"
	"github.com/cs-au-dk/memsnap/analysis/index"
	"github.com/cs-au-dk/memsnap/analysis/value"
	"github.com/cs-au-dk/memsnap/utils"

	"golang.org/x/tools/container/intsets"
)

// Container maps names to the indexes of a stack frame, array or object,
// together with the unknown index that stands for every other name.
type Container struct {
	indexes *immutable.Map[string, index.Index]
	unknown index.Index
}

// NewContainer creates an empty container with the given unknown index.
func NewContainer(unknown index.Index) Container {
	return Container{
		indexes: immutable.NewMap[string, index.Index](utils.StringHasher()),
		unknown: unknown,
	}
}

// Unknown returns the index standing for all names without their own index.
func (c Container) Unknown() index.Index {
	return c.unknown
}

func (c Container) Lookup(name string) (index.Index, bool) {
	return c.indexes.Get(name)
}

func (c Container) Len() int {
	return c.indexes.Len()
}

// With returns the container with name bound to i.
func (c Container) With(name string, i index.Index) Container {
	c.indexes = c.indexes.Set(name, i)
	return c
}

// Without returns the container without name.
func (c Container) Without(name string) Container {
	c.indexes = c.indexes.Delete(name)
	return c
}

// ForEach calls f on every named index in unspecified order.
func (c Container) ForEach(f func(name string, i index.Index)) {
	for iter := c.indexes.Iterator(); !iter.Done(); {
		name, i, _ := iter.Next()
		f(name, i)
	}
}

// Names returns the names of the container in ascending order.
func (c Container) Names() []string {
	res := make([]string, 0, c.Len())
	c.ForEach(func(name string, _ index.Index) {
		res = append(res, name)
	})
	sort.Strings(res)
	return res
}

// Indexes returns the named indexes followed by the unknown index.
func (c Container) Indexes() []index.Index {
	res := make([]index.Index, 0, c.Len()+1)
	for _, name := range c.Names() {
		i, _ := c.Lookup(name)
		res = append(res, i)
	}
	return append(res, c.unknown)
}

// rebuild copies the name map into fresh storage.
func (c Container) rebuild() Container {
	n := NewContainer(c.unknown)
	c.ForEach(func(name string, i index.Index) {
		n.indexes = n.indexes.Set(name, i)
	})
	return n
}

// ArrayDescriptor describes the array stored at Parent.
type ArrayDescriptor struct {
	Container
	ID     value.ArrayID
	Parent index.Index
}

// ObjectDescriptor describes an object. Type is the class name the object
// was created from.
type ObjectDescriptor struct {
	Container
	ID   value.ObjectID
	Type string
}

// Root is the index rooting the fields of the object.
func (d ObjectDescriptor) Root() index.ObjectRoot {
	return index.ObjectRoot{Object: d.ID}
}

// StackContext is one frame of the stack.
type StackContext struct {
	Level     int
	Variables Container
	Controls  Container
	// Arrays holds the arrays rooted in this frame.
	Arrays ArraySet

	temporaries *intsets.Sparse
}

func newStackContext(level int) StackContext {
	return StackContext{
		Level:       level,
		Variables:   NewContainer(index.AnyVariable{Level: level}),
		Controls:    NewContainer(index.AnyControl{Level: level}),
		temporaries: &intsets.Sparse{},
	}
}

// HasTemporary checks whether temporary id is live in the frame.
func (s StackContext) HasTemporary(id int) bool {
	return s.temporaries != nil && s.temporaries.Has(id)
}

// WithTemporary returns the frame with temporary id live. The receiver is
// not modified.
func (s StackContext) WithTemporary(id int) StackContext {
	ts := &intsets.Sparse{}
	if s.temporaries != nil {
		ts.Copy(s.temporaries)
	}
	ts.Insert(id)
	s.temporaries = ts
	return s
}

// WithoutTemporary returns the frame with temporary id released.
func (s StackContext) WithoutTemporary(id int) StackContext {
	if !s.HasTemporary(id) {
		return s
	}
	ts := &intsets.Sparse{}
	ts.Copy(s.temporaries)
	ts.Remove(id)
	s.temporaries = ts
	return s
}

// Temporaries returns the live temporaries in ascending order.
func (s StackContext) Temporaries() []int {
	if s.temporaries == nil {
		return nil
	}
	return s.temporaries.AppendTo(nil)
}

// FreeTemporary returns the smallest temporary id not live in the frame.
func (s StackContext) FreeTemporary() int {
	id := 0
	for s.HasTemporary(id) {
		id++
	}
	return id
}

// UnionTemporaries returns the frame with the temporaries of o added.
func (s StackContext) UnionTemporaries(o StackContext) StackContext {
	if o.temporaries == nil || o.temporaries.IsEmpty() || o.temporaries == s.temporaries {
		return s
	}
	ts := &intsets.Sparse{}
	if s.temporaries != nil {
		ts.Copy(s.temporaries)
	}
	ts.UnionWith(o.temporaries)
	s.temporaries = ts
	return s
}

func (s StackContext) rebuild() StackContext {
	s.Variables = s.Variables.rebuild()
	s.Controls = s.Controls.rebuild()
	s.Arrays = ArraySet{}.Add(s.Arrays.Items()...)
	ts := &intsets.Sparse{}
	if s.temporaries != nil {
		ts.Copy(s.temporaries)
	}
	s.temporaries = ts
	return s
}
