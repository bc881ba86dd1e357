// Package structure implements the structural half of a memory snapshot:
// which indexes exist, what arrays and objects they hold, how they alias,
// and which functions and classes are declared.
package structure

import (
	"sort"

	"github.com/benbjohnson/immutable"
	"github.com/cs-au-dk/memsnap/analysis/index"
	"github.com/cs-au-dk/memsnap/analysis/tracker"
	"github.com/cs-au-dk/memsnap/analysis/value"
	"github.com/cs-au-dk/memsnap/utils"

	"github.com/pkg/errors"
)

// Structure is a versioned structure container. Every table is a
// persistent map, so a copy shares all storage with its source until
// either side is written. A frozen structure is shared and must not be
// written; doing so is a structural inconsistency.
type Structure struct {
	seq    *tracker.Sequence
	eager  bool
	frozen bool
	tr     *tracker.Tracker[*Structure]

	definitions *immutable.Map[index.Index, IndexDefinition]
	arrays      *immutable.Map[value.ArrayID, ArrayDescriptor]
	objects     *immutable.Map[value.ObjectID, ObjectDescriptor]
	stacks      *immutable.Map[int, StackContext]
	functions   *immutable.Map[string, value.Entry]
	classes     *immutable.Map[string, value.Entry]

	callLevel       int
	differsOnCommit bool
}

var (
	arrayHasher  = utils.IDHasher[value.ArrayID]{}
	objectHasher = utils.IDHasher[value.ObjectID]{}
	levelHasher  = utils.IDHasher[int]{}
)

// Empty creates a structure without any stack frame. When eager is set,
// every copy rebuilds all tables instead of sharing them.
func Empty(seq *tracker.Sequence, eager bool) *Structure {
	s := &Structure{
		seq:         seq,
		eager:       eager,
		definitions: immutable.NewMap[index.Index, IndexDefinition](index.Hasher{}),
		arrays:      immutable.NewMap[value.ArrayID, ArrayDescriptor](arrayHasher),
		objects:     immutable.NewMap[value.ObjectID, ObjectDescriptor](objectHasher),
		stacks:      immutable.NewMap[int, StackContext](levelHasher),
		functions:   immutable.NewMap[string, value.Entry](utils.StringHasher()),
		classes:     immutable.NewMap[string, value.Entry](utils.StringHasher()),
	}
	s.tr = tracker.New(seq, s, nil, index.GlobalLevel, tracker.Extend)
	return s
}

// New creates a structure holding only the global frame.
func New(seq *tracker.Sequence, eager bool) *Structure {
	s := Empty(seq, eager)
	s.AddStackLevel(index.GlobalLevel)
	return s
}

// Empty creates an empty structure sharing the configuration of s.
func (s *Structure) Empty() *Structure {
	return Empty(s.seq, s.eager)
}

// Copy freezes s and returns a writeable successor linked to it by an
// Extend tracker.
func (s *Structure) Copy() *Structure {
	s.frozen = true

	c := *s
	c.frozen = false
	c.tr = tracker.New(s.seq, &c, s.tr, s.callLevel, tracker.Extend)
	if s.eager {
		c.rebuild()
	}
	return &c
}

func rebuildMap[K, V any](m *immutable.Map[K, V], h immutable.Hasher[K], f func(V) V) *immutable.Map[K, V] {
	res := immutable.NewMap[K, V](h)
	for iter := m.Iterator(); !iter.Done(); {
		k, v, _ := iter.Next()
		res = res.Set(k, f(v))
	}
	return res
}

func same[V any](v V) V { return v }

func (s *Structure) rebuild() {
	s.definitions = rebuildMap(s.definitions, index.Hasher{}, same[IndexDefinition])
	s.arrays = rebuildMap(s.arrays, arrayHasher, func(d ArrayDescriptor) ArrayDescriptor {
		d.Container = d.Container.rebuild()
		return d
	})
	s.objects = rebuildMap(s.objects, objectHasher, func(d ObjectDescriptor) ObjectDescriptor {
		d.Container = d.Container.rebuild()
		return d
	})
	s.stacks = rebuildMap(s.stacks, levelHasher, StackContext.rebuild)
	s.functions = rebuildMap(s.functions, utils.StringHasher(), same[value.Entry])
	s.classes = rebuildMap(s.classes, utils.StringHasher(), same[value.Entry])
}

// View returns a frozen snapshot of the current state of s. Later writes
// to s are not visible through the view.
func (s *Structure) View() *Structure {
	v := *s
	v.frozen = true
	return &v
}

// Freeze marks the structure as shared.
func (s *Structure) Freeze() {
	s.frozen = true
}

func (s *Structure) IsFrozen() bool {
	return s.frozen
}

func (s *Structure) writeable() {
	if s.frozen {
		panic(errors.Wrapf(utils.ErrStructuralInconsistency, "write to frozen structure %v", s.tr))
	}
}

// Tracker returns the change tracker of this version.
func (s *Structure) Tracker() *tracker.Tracker[*Structure] {
	return s.tr
}

func (s *Structure) CallLevel() int {
	return s.callLevel
}

func (s *Structure) SetCallLevel(level int) {
	s.writeable()
	s.callLevel = level
}

// DiffersOnCommit is the result of the last commit of this version.
func (s *Structure) DiffersOnCommit() bool {
	return s.differsOnCommit
}

func (s *Structure) SetDiffersOnCommit(differs bool) {
	s.differsOnCommit = differs
}

// IsDefined checks whether i has a definition.
func (s *Structure) IsDefined(i index.Index) bool {
	_, ok := s.definitions.Get(i)
	return ok
}

func (s *Structure) Definition(i index.Index) (IndexDefinition, bool) {
	return s.definitions.Get(i)
}

// MustDefinition returns the definition of i, which must exist.
func (s *Structure) MustDefinition(i index.Index) IndexDefinition {
	d, ok := s.definitions.Get(i)
	if !ok {
		panic(errors.Wrapf(utils.ErrStructuralInconsistency, "index %v is not defined", i))
	}
	return d
}

// ForEachDefinition calls f on every defined index in unspecified order.
func (s *Structure) ForEachDefinition(f func(index.Index, IndexDefinition)) {
	for iter := s.definitions.Iterator(); !iter.Done(); {
		i, d, _ := iter.Next()
		f(i, d)
	}
}

// Indexes returns every defined index ordered by printed form.
func (s *Structure) Indexes() []index.Index {
	res := make([]index.Index, 0, s.definitions.Len())
	s.ForEachDefinition(func(i index.Index, _ IndexDefinition) {
		res = append(res, i)
	})
	index.Sort(res)
	return res
}

func (s *Structure) DefinitionCount() int {
	return s.definitions.Len()
}

// NewIndex defines i with an empty definition unless it is already
// defined.
func (s *Structure) NewIndex(i index.Index) {
	if s.IsDefined(i) {
		return
	}
	s.SetDefinition(i, IndexDefinition{})
}

// SetDefinition defines or replaces the definition of i.
func (s *Structure) SetDefinition(i index.Index, d IndexDefinition) {
	s.writeable()
	s.definitions = s.definitions.Set(i, d)
	s.tr.InsertIndexChange(i)
}

// RemoveIndex drops the definition of i. Descriptors referring to i are
// the caller's responsibility.
func (s *Structure) RemoveIndex(i index.Index) {
	s.writeable()
	if !s.IsDefined(i) {
		return
	}
	s.definitions = s.definitions.Delete(i)
	s.tr.InsertIndexChange(i)
}

// SetArrayOf stores the array id at i.
func (s *Structure) SetArrayOf(i index.Index, id value.ArrayID) {
	d := s.MustDefinition(i)
	d.Array = id
	s.SetDefinition(i, d)
}

// SetObjects replaces the object set of i.
func (s *Structure) SetObjects(i index.Index, objects ObjectSet) {
	d := s.MustDefinition(i)
	d.Objects = objects
	s.SetDefinition(i, d)
}

// SetAliases replaces the aliases of i.
func (s *Structure) SetAliases(i index.Index, aliases Alias) {
	d := s.MustDefinition(i)
	d.Aliases = aliases
	s.SetDefinition(i, d)
}

// NewArray creates the descriptor of array id stored at parent and
// defines its unknown element.
func (s *Structure) NewArray(parent index.Index, id value.ArrayID) ArrayDescriptor {
	d := s.MustDefinition(parent)
	if d.HasArray() {
		panic(errors.Wrapf(utils.ErrStructuralInconsistency, "%v already holds %v", parent, value.Array{ID: d.Array}))
	}

	unknown := index.UnknownElement(parent)
	desc := ArrayDescriptor{
		Container: NewContainer(unknown),
		ID:        id,
		Parent:    parent,
	}
	s.SetArray(desc)
	s.NewIndex(unknown)
	s.SetArrayOf(parent, id)

	if stack, ok := s.Stack(parent.CallLevel()); ok {
		stack.Arrays = stack.Arrays.Add(id)
		s.SetStack(stack)
	}
	return desc
}

func (s *Structure) Array(id value.ArrayID) (ArrayDescriptor, bool) {
	return s.arrays.Get(id)
}

// MustArray returns the descriptor of array id, which must exist.
func (s *Structure) MustArray(id value.ArrayID) ArrayDescriptor {
	d, ok := s.arrays.Get(id)
	if !ok {
		panic(errors.Wrapf(utils.ErrStructuralInconsistency, "array %d has no descriptor", id))
	}
	return d
}

// SetArray stores the descriptor d.
func (s *Structure) SetArray(d ArrayDescriptor) {
	s.writeable()
	s.arrays = s.arrays.Set(d.ID, d)
	s.tr.InsertIndexChange(d.Parent)
}

// RemoveArray drops the descriptor of array id and detaches it from its
// parent and frame. The elements are left to the caller.
func (s *Structure) RemoveArray(id value.ArrayID) {
	s.writeable()
	desc, ok := s.arrays.Get(id)
	if !ok {
		return
	}
	s.arrays = s.arrays.Delete(id)
	if d, ok := s.Definition(desc.Parent); ok && d.Array == id {
		d.Array = value.NoArray
		s.SetDefinition(desc.Parent, d)
	}
	if stack, ok := s.Stack(desc.Parent.CallLevel()); ok && stack.Arrays.Contains(id) {
		stack.Arrays = stack.Arrays.Remove(id)
		s.SetStack(stack)
	}
}

// ArrayIDs returns the identities of every array in ascending order.
func (s *Structure) ArrayIDs() []value.ArrayID {
	res := make([]value.ArrayID, 0, s.arrays.Len())
	for iter := s.arrays.Iterator(); !iter.Done(); {
		id, _, _ := iter.Next()
		res = append(res, id)
	}
	sort.Slice(res, func(i, j int) bool { return res[i] < res[j] })
	return res
}

// NewObject creates the descriptor of object id with class name typ and
// defines its unknown field.
func (s *Structure) NewObject(id value.ObjectID, typ string) ObjectDescriptor {
	unknown := index.UnknownField(id)
	desc := ObjectDescriptor{
		Container: NewContainer(unknown),
		ID:        id,
		Type:      typ,
	}
	s.SetObject(desc)
	s.NewIndex(unknown)
	return desc
}

func (s *Structure) Object(id value.ObjectID) (ObjectDescriptor, bool) {
	return s.objects.Get(id)
}

// MustObject returns the descriptor of object id, which must exist.
func (s *Structure) MustObject(id value.ObjectID) ObjectDescriptor {
	d, ok := s.objects.Get(id)
	if !ok {
		panic(errors.Wrapf(utils.ErrStructuralInconsistency, "object %d has no descriptor", id))
	}
	return d
}

// SetObject stores the descriptor d. The change is recorded on the
// unknown field of the object.
func (s *Structure) SetObject(d ObjectDescriptor) {
	s.writeable()
	s.objects = s.objects.Set(d.ID, d)
	s.tr.InsertIndexChange(index.UnknownField(d.ID))
}

// RemoveObject drops the descriptor of object id together with the
// definitions of its fields.
func (s *Structure) RemoveObject(id value.ObjectID) {
	s.writeable()
	desc, ok := s.objects.Get(id)
	if !ok {
		return
	}
	for _, i := range desc.Indexes() {
		s.RemoveIndex(i)
	}
	s.objects = s.objects.Delete(id)
}

// ObjectIDs returns the identities of every object in ascending order.
func (s *Structure) ObjectIDs() []value.ObjectID {
	res := make([]value.ObjectID, 0, s.objects.Len())
	for iter := s.objects.Iterator(); !iter.Done(); {
		id, _, _ := iter.Next()
		res = append(res, id)
	}
	sort.Slice(res, func(i, j int) bool { return res[i] < res[j] })
	return res
}

// AddStackLevel creates the frame for level and defines its unknown
// variable and control indexes.
func (s *Structure) AddStackLevel(level int) StackContext {
	if ctx, ok := s.Stack(level); ok {
		return ctx
	}
	ctx := newStackContext(level)
	s.SetStack(ctx)
	s.NewIndex(ctx.Variables.Unknown())
	s.NewIndex(ctx.Controls.Unknown())
	return ctx
}

func (s *Structure) Stack(level int) (StackContext, bool) {
	return s.stacks.Get(level)
}

// MustStack returns the frame of level, which must exist.
func (s *Structure) MustStack(level int) StackContext {
	ctx, ok := s.stacks.Get(level)
	if !ok {
		panic(errors.Wrapf(utils.ErrStructuralInconsistency, "no stack frame at level %d", level))
	}
	return ctx
}

func (s *Structure) SetStack(ctx StackContext) {
	s.writeable()
	s.stacks = s.stacks.Set(ctx.Level, ctx)
}

// RemoveStackLevel drops the frame of level. Its indexes are left to the
// caller.
func (s *Structure) RemoveStackLevel(level int) {
	s.writeable()
	s.stacks = s.stacks.Delete(level)
}

// StackLevels returns the levels of every frame in ascending order.
func (s *Structure) StackLevels() []int {
	res := make([]int, 0, s.stacks.Len())
	for iter := s.stacks.Iterator(); !iter.Done(); {
		l, _, _ := iter.Next()
		res = append(res, l)
	}
	sort.Ints(res)
	return res
}

// Functions returns the declarations of function name.
func (s *Structure) Functions(name string) value.Entry {
	e, _ := s.functions.Get(name)
	return e
}

// SetFunctions replaces the declarations of function name.
func (s *Structure) SetFunctions(name string, decls value.Entry) {
	s.writeable()
	if decls.IsEmpty() {
		s.functions = s.functions.Delete(name)
	} else {
		s.functions = s.functions.Set(name, decls)
	}
	s.tr.InsertFunctionChange(name)
}

// AddFunction adds a declaration of function name.
func (s *Structure) AddFunction(name string, decl value.Value) {
	s.SetFunctions(name, s.Functions(name).Add(decl))
}

// FunctionNames returns the declared function names in ascending order.
func (s *Structure) FunctionNames() []string {
	return keys(s.functions)
}

// Classes returns the declarations of class name.
func (s *Structure) Classes(name string) value.Entry {
	e, _ := s.classes.Get(name)
	return e
}

// SetClasses replaces the declarations of class name.
func (s *Structure) SetClasses(name string, decls value.Entry) {
	s.writeable()
	if decls.IsEmpty() {
		s.classes = s.classes.Delete(name)
	} else {
		s.classes = s.classes.Set(name, decls)
	}
	s.tr.InsertClassChange(name)
}

// AddClass adds a declaration of class name.
func (s *Structure) AddClass(name string, decl value.Value) {
	s.SetClasses(name, s.Classes(name).Add(decl))
}

// ClassNames returns the declared class names in ascending order.
func (s *Structure) ClassNames() []string {
	return keys(s.classes)
}

func keys(m *immutable.Map[string, value.Entry]) []string {
	res := make([]string, 0, m.Len())
	for iter := m.Iterator(); !iter.Done(); {
		k, _, _ := iter.Next()
		res = append(res, k)
	}
	sort.Strings(res)
	return res
}
