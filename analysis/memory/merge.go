package memory

import (
	"sort"

	"github.com/cs-au-dk/memsnap/analysis/data"
	"github.com/cs-au-dk/memsnap/analysis/index"
	"github.com/cs-au-dk/memsnap/analysis/structure"
	"github.com/cs-au-dk/memsnap/analysis/tracker"
	"github.com/cs-au-dk/memsnap/analysis/value"
	"github.com/cs-au-dk/memsnap/utils/worklist"

	"github.com/pkg/errors"
)

// mergeSource is the frozen state of one merged snapshot.
type mergeSource struct {
	snapshot *Snapshot
	st       *structure.Structure
	memory   *data.Data
	info     *data.Data
}

// containerSource is one source container contributing to a target
// container. A whole source is not matched with the target by path, so
// every child it has must be visited.
type containerSource struct {
	c     structure.Container
	src   *mergeSource
	whole bool
}

// sourceIndex is an index of a source contributing to a target index.
type sourceIndex struct {
	idx   index.Index
	src   *mergeSource
	whole bool
}

// mergeOp merges the sources into one target index, or deletes the target.
type mergeOp struct {
	target    index.Index
	node      *changeNode
	sources   []sourceIndex
	undefined bool
	delete    bool
}

// DataSource is an index of a merged snapshot that contributed to an index
// of the merge result.
type DataSource struct {
	Snapshot uint64
	Index    index.Index
}

// merger builds the join of several snapshots into target containers.
type merger struct {
	s       *Snapshot
	sources []*mergeSource

	st     *structure.Structure
	memory *data.Data
	info   *data.Data

	tree *changeTree
	// full visits every index of the sources instead of the change tree.
	full bool
	// maxLevel bounds the stack frames kept by a call merge; -1 keeps all.
	maxLevel int

	queue          worklist.Worklist[*mergeOp]
	visited        []*mergeOp
	deleted        []index.Index
	aliased        structure.IndexSet
	droppedLevels  []int
	removedObjects []value.ObjectID
}

// Extend replaces the state of s with the state of the inputs: a copy of a
// single input or the merge of several.
func (s *Snapshot) Extend(inputs ...*Snapshot) error {
	s.checkTransaction()
	switch len(inputs) {
	case 0:
		return errors.Errorf("extending %s without inputs", s.Describe())
	case 1:
		defer s.bench("extend")()
		s.copyFrom(inputs[0])
		return nil
	}
	defer s.bench("merge")()
	_, err := s.merge(inputs, tracker.Merge)
	return err
}

// copyFrom makes s a successor of src.
func (s *Snapshot) copyFrom(src *Snapshot) {
	src.share()
	s.structure.Set(src.structure.Readonly().Copy(), true)
	s.memory.Set(src.memory.Readonly().Copy(), true)
	s.info.Set(src.info.Readonly().Copy(), true)
	s.callLevel = src.callLevel
	s.dataSources = nil
}

func (s *Snapshot) merge(inputs []*Snapshot, conn tracker.ConnectionType) (*merger, error) {
	level := inputs[0].callLevel
	for _, in := range inputs[1:] {
		if in.callLevel != level {
			return nil, errors.Wrapf(ErrUnsupportedOperation, "merging %s at level %d with %s at level %d",
				inputs[0].Describe(), level, in.Describe(), in.callLevel)
		}
	}
	s.log.Debugf("merge of %d snapshots at level %d", len(inputs), level)

	m := s.newMerger(inputs, -1)
	if s.factory.tracking() {
		m.initTracking()
	} else {
		m.initCopy()
	}
	m.build()
	s.install(m, inputs, conn, level)
	return m, nil
}

func (s *Snapshot) newMerger(inputs []*Snapshot, maxLevel int) *merger {
	m := &merger{s: s, tree: newChangeTree(), maxLevel: maxLevel}
	for _, in := range inputs {
		in.share()
		in.Lock()
		m.sources = append(m.sources, &mergeSource{
			snapshot: in,
			st:       in.structure.Readonly(),
			memory:   in.memory.Readonly(),
			info:     in.info.Readonly(),
		})
	}
	return m
}

// install unlocks the inputs and makes the merge result the state of s.
// s may be one of the inputs.
func (s *Snapshot) install(m *merger, inputs []*Snapshot, conn tracker.ConnectionType, level int) {
	for _, in := range inputs {
		in.Unlock()
	}

	m.st.SetCallLevel(level)
	m.memory.SetCallLevel(level)
	m.info.SetCallLevel(level)
	m.st.Tracker().SetConnection(conn, level)
	m.memory.Tracker().SetConnection(conn, level)
	m.info.Tracker().SetConnection(conn, level)

	s.structure.Set(m.st, true)
	s.memory.Set(m.memory, true)
	s.info.Set(m.info, true)
	s.callLevel = level

	s.dataSources = make(map[index.Index][]DataSource, len(m.visited))
	for _, op := range m.visited {
		if !m.st.IsDefined(op.target) {
			continue
		}
		for _, src := range op.sources {
			s.dataSources[op.target] = append(s.dataSources[op.target], DataSource{src.src.snapshot.id, src.idx})
		}
	}
}

// DataSources returns the indexes the last merge into s read to build i.
func (s *Snapshot) DataSources(i index.Index) []DataSource {
	return s.dataSources[i]
}

// initTracking starts the target from the nearest common version of the
// sources and collects what changed since then.
func (m *merger) initTracking() {
	parent := 0
	for i, src := range m.sources {
		if src.st.Tracker().ChangeCount() > m.sources[parent].st.Tracker().ChangeCount() {
			parent = i
		}
	}

	sts := make([]*tracker.Tracker[*structure.Structure], len(m.sources))
	mems := make([]*tracker.Tracker[*data.Data], len(m.sources))
	infos := make([]*tracker.Tracker[*data.Data], len(m.sources))
	for i, src := range m.sources {
		sts[i] = src.st.Tracker()
		mems[i] = src.memory.Tracker()
		infos[i] = src.info.Tracker()
	}

	if anc := commonAncestor(m.tree, sts, parent); anc != nil {
		m.st = anc.Container().Copy()
	} else {
		m.st = m.sources[0].st.Empty()
	}
	m.memory = dataFrom(commonAncestor(m.tree, mems, parent), m.sources[0].memory)
	m.info = dataFrom(commonAncestor(m.tree, infos, parent), m.sources[0].info)
}

func dataFrom(anc *tracker.Tracker[*data.Data], fallback *data.Data) *data.Data {
	if anc != nil {
		return anc.Container().Copy()
	}
	return fallback.Empty()
}

// initCopy starts the target empty and visits everything.
func (m *merger) initCopy() {
	m.full = true
	m.st = m.sources[0].st.Empty()
	m.memory = m.sources[0].memory.Empty()
	m.info = m.sources[0].info.Empty()
	for _, src := range m.sources {
		m.tree.insertAll(src.st, src.memory, src.info)
	}
}

func (m *merger) build() {
	m.mergeStackLevels()
	m.mergeDeclarations()
	m.mergeObjects()

	m.queue.Process(func(op *mergeOp, _ func(*mergeOp)) {
		m.process(op)
	})

	for _, id := range m.removedObjects {
		m.st.RemoveObject(id)
	}
	for _, level := range m.droppedLevels {
		m.st.RemoveStackLevel(level)
	}

	m.updateAliases()
	m.mergeData()
}

func (m *merger) keepsLevel(level int) bool {
	return m.maxLevel < 0 || level <= m.maxLevel
}

func (m *merger) mergeStackLevels() {
	levels := map[int]bool{}
	for _, src := range m.sources {
		for _, level := range src.st.StackLevels() {
			if m.keepsLevel(level) {
				levels[level] = true
			}
		}
	}
	for _, level := range m.st.StackLevels() {
		if !levels[level] {
			m.dropLevel(level)
		}
	}

	for _, level := range sortedLevels(levels) {
		fresh := false
		if _, ok := m.st.Stack(level); !ok {
			m.st.AddStackLevel(level)
			fresh = true
		}

		var vars, ctrls []containerSource
		always := true
		for _, src := range m.sources {
			ctx, ok := src.st.Stack(level)
			if !ok {
				always = false
				continue
			}
			vars = append(vars, containerSource{ctx.Variables, src, false})
			ctrls = append(ctrls, containerSource{ctx.Controls, src, false})
		}

		changes := m.tree.peekFrame(level)
		m.enqueueContainer(&changes.variables, variablesRef(m.st, level), vars, always, fresh)
		m.enqueueContainer(&changes.controls, controlsRef(m.st, level), ctrls, always, fresh)
		m.mergeTemporaries(level)
	}
}

func sortedLevels(levels map[int]bool) []int {
	res := make([]int, 0, len(levels))
	for level := range levels {
		res = append(res, level)
	}
	sort.Ints(res)
	return res
}

// mergeTemporaries visits every live temporary of the frame, since
// temporaries are not change-tracked.
func (m *merger) mergeTemporaries(level int) {
	ids := map[int]bool{}
	target := m.st.MustStack(level)
	for _, id := range target.Temporaries() {
		ids[id] = true
	}
	for _, src := range m.sources {
		if ctx, ok := src.st.Stack(level); ok {
			for _, id := range ctx.Temporaries() {
				ids[id] = true
			}
		}
	}

	for _, id := range sortedLevels(ids) {
		tmp := index.Temporary{ID: id, Level: level}
		op := &mergeOp{target: tmp, node: m.tree.temporaries[tmp]}
		for _, src := range m.sources {
			if ctx, ok := src.st.Stack(level); ok && ctx.HasTemporary(id) {
				op.sources = append(op.sources, sourceIndex{tmp, src, false})
			} else {
				op.undefined = true
			}
		}

		ctx := m.st.MustStack(level)
		switch {
		case len(op.sources) > 0:
			if !ctx.HasTemporary(id) {
				m.st.SetStack(ctx.WithTemporary(id))
				m.st.NewIndex(tmp)
			}
		case ctx.HasTemporary(id):
			m.st.SetStack(ctx.WithoutTemporary(id))
			op = &mergeOp{target: tmp, delete: true}
		default:
			continue
		}
		m.queue.Add(op)
	}
}

// dropLevel tears down a frame no source has.
func (m *merger) dropLevel(level int) {
	ctx := m.st.MustStack(level)
	for _, c := range []structure.Container{ctx.Variables, ctx.Controls} {
		for _, i := range c.Indexes() {
			m.queue.Add(&mergeOp{target: i, delete: true})
		}
	}
	for _, id := range ctx.Temporaries() {
		m.queue.Add(&mergeOp{target: index.Temporary{ID: id, Level: level}, delete: true})
	}
	m.droppedLevels = append(m.droppedLevels, level)
}

// mergeDeclarations unions the function and class tables.
func (m *merger) mergeDeclarations() {
	names := func(tracked map[string]struct{}, all func(*structure.Structure) []string) []string {
		if !m.full {
			return sortedNames(tracked)
		}
		set := map[string]struct{}{}
		for _, src := range m.sources {
			for _, name := range all(src.st) {
				set[name] = struct{}{}
			}
		}
		return sortedNames(set)
	}

	for _, name := range names(m.tree.functions, (*structure.Structure).FunctionNames) {
		decls := value.Entry{}
		for _, src := range m.sources {
			decls = decls.Union(src.st.Functions(name))
		}
		if !decls.Equal(m.st.Functions(name)) {
			m.st.SetFunctions(name, decls)
		}
	}
	for _, name := range names(m.tree.classes, (*structure.Structure).ClassNames) {
		decls := value.Entry{}
		for _, src := range m.sources {
			decls = decls.Union(src.st.Classes(name))
		}
		if !decls.Equal(m.st.Classes(name)) {
			m.st.SetClasses(name, decls)
		}
	}
}

// mergeObjects creates the descriptors of objects the target lacks and
// removes those no source has.
func (m *merger) mergeObjects() {
	ids := map[value.ObjectID]bool{}
	for _, src := range m.sources {
		for _, id := range src.st.ObjectIDs() {
			ids[id] = true
		}
	}
	for _, id := range m.st.ObjectIDs() {
		if !ids[id] {
			for _, i := range m.st.MustObject(id).Indexes() {
				m.queue.Add(&mergeOp{target: i, delete: true})
			}
			m.removedObjects = append(m.removedObjects, id)
		}
	}

	for _, id := range structure.SortedObjects(structure.NewObjectSet(keys(ids)...)) {
		var sources []containerSource
		typ := ""
		for _, src := range m.sources {
			if desc, ok := src.st.Object(id); ok {
				if typ == "" {
					typ = desc.Type
				}
				sources = append(sources, containerSource{desc.Container, src, false})
			}
		}

		fresh := false
		if _, ok := m.st.Object(id); !ok {
			m.st.NewObject(id, typ)
			fresh = true
		}
		m.enqueueContainer(m.tree.objects[id], objectRef(m.st, id), sources, len(sources) == len(m.sources), fresh)
	}
}

func keys[K comparable](m map[K]bool) []K {
	res := make([]K, 0, len(m))
	for k := range m {
		res = append(res, k)
	}
	return res
}

// enqueueContainer schedules the children of a target container. A child
// is merged when it changed in some source, or when the container cannot
// be matched by path; a child no source defines is deleted.
func (m *merger) enqueueContainer(node *changeNode, ref containerRef, sources []containerSource, alwaysDefined, fresh bool) {
	if len(sources) == 0 {
		return
	}
	if node == nil {
		node = &changeNode{}
	}

	names := map[string]struct{}{}
	for name := range node.children {
		names[name] = struct{}{}
	}
	visitAll := fresh || m.full
	for _, src := range sources {
		if src.whole || visitAll {
			for _, name := range src.c.Names() {
				names[name] = struct{}{}
			}
		}
		visitAll = visitAll || src.whole
	}
	if m.full {
		for _, name := range ref.get().Names() {
			names[name] = struct{}{}
		}
	}

	for _, name := range sortedNames(names) {
		target := ref.derive(name)
		op := &mergeOp{target: target, node: node.children[name], undefined: !alwaysDefined}
		defined := false
		for _, src := range sources {
			if i, ok := src.c.Lookup(name); ok {
				op.sources = append(op.sources, sourceIndex{i, src.src, src.whole})
				defined = true
			} else {
				op.sources = append(op.sources, sourceIndex{src.c.Unknown(), src.src, true})
				op.undefined = true
			}
		}

		c := ref.get()
		_, has := c.Lookup(name)
		switch {
		case defined:
			if !has {
				m.st.NewIndex(target)
				ref.set(c.With(name, target))
			}
		case has:
			ref.set(c.Without(name))
			op = &mergeOp{target: target, delete: true}
		default:
			continue
		}
		m.queue.Add(op)
	}

	if visitAll || node.unknown != nil {
		op := &mergeOp{target: ref.get().Unknown(), node: node.unknown, undefined: !alwaysDefined}
		for _, src := range sources {
			op.sources = append(op.sources, sourceIndex{src.c.Unknown(), src.src, src.whole})
		}
		m.queue.Add(op)
	}
}

// process merges the definitions of the sources of op into its target
// and schedules the elements of the merged array.
func (m *merger) process(op *mergeOp) {
	if op.delete {
		m.deleteIndex(op.target)
		return
	}

	var objects structure.ObjectSet
	var all, must structure.IndexSet
	var arrays []containerSource
	allArrays := true
	first := true
	for _, src := range op.sources {
		d, ok := src.src.st.Definition(src.idx)
		if !ok {
			allArrays = false
			continue
		}
		objects = objects.Union(d.Objects)
		all = all.Union(d.Aliases.Must).Union(d.Aliases.May)
		if first {
			must = d.Aliases.Must
			first = false
		} else {
			must = intersect(must, d.Aliases.Must)
		}
		if d.HasArray() {
			arrays = append(arrays, containerSource{src.src.st.MustArray(d.Array).Container, src.src, src.whole})
		} else {
			allArrays = false
		}
	}
	if op.undefined {
		// A must alias that does not hold on every path is only a may alias.
		must = structure.IndexSet{}
	}
	must = must.Remove(op.target)
	may := structure.IndexSet{}
	all.Remove(op.target).ForEach(func(i index.Index) {
		if !must.Contains(i) {
			may = may.Add(i)
		}
	})

	def := m.st.MustDefinition(op.target)
	def.Objects = objects
	def.Aliases = structure.Alias{Must: must, May: may}
	m.st.SetDefinition(op.target, def)
	if !def.Aliases.IsEmpty() {
		m.aliased = m.aliased.Add(op.target)
	}
	m.visited = append(m.visited, op)

	switch {
	case len(arrays) > 0:
		fresh := false
		if !def.HasArray() {
			m.st.NewArray(op.target, m.s.factory.newArrayID())
			fresh = true
		}
		id := m.st.MustDefinition(op.target).Array
		m.enqueueContainer(op.node, arrayRef(m.st, op.target, id), arrays, allArrays && !op.undefined, fresh)
	case def.HasArray():
		m.deleteArray(op.target)
	}
}

func intersect(a, b structure.IndexSet) structure.IndexSet {
	res := structure.IndexSet{}
	a.ForEach(func(i index.Index) {
		if b.Contains(i) {
			res = res.Add(i)
		}
	})
	return res
}

func (m *merger) deleteIndex(i index.Index) {
	def, ok := m.st.Definition(i)
	if !ok {
		return
	}
	if def.HasArray() {
		m.deleteArray(i)
	}
	def.Aliases.Must.Union(def.Aliases.May).ForEach(func(alias index.Index) {
		if ad, ok := m.st.Definition(alias); ok {
			ad.Aliases.Must = ad.Aliases.Must.Remove(i)
			ad.Aliases.May = ad.Aliases.May.Remove(i)
			m.st.SetAliases(alias, ad.Aliases)
		}
	})
	m.st.RemoveIndex(i)
	m.deleted = append(m.deleted, i)
}

// deleteArray schedules the deletion of the elements of the array at
// parent and drops its descriptor.
func (m *merger) deleteArray(parent index.Index) {
	id := m.st.MustDefinition(parent).Array
	for _, i := range m.st.MustArray(id).Indexes() {
		m.queue.Add(&mergeOp{target: i, delete: true})
	}
	m.st.RemoveArray(id)
}
