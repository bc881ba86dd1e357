package memory

import (
	"github.com/cs-au-dk/memsnap/analysis/index"
	"github.com/cs-au-dk/memsnap/analysis/structure"
	"github.com/cs-au-dk/memsnap/analysis/value"
)

// implicitObjectType is the class of objects created by writing a field
// of a location that holds no object.
const implicitObjectType = "stdClass"

// location is an index selected by a path. A must location is the only
// location the path can denote.
type location struct {
	idx  index.Index
	must bool
}

// containerRef gives the resolver access to one container of the
// structure: a frame, an array or an object.
type containerRef struct {
	get    func() structure.Container
	set    func(structure.Container)
	derive func(name string) index.Index
}

func variablesRef(st *structure.Structure, level int) containerRef {
	return containerRef{
		get: func() structure.Container { return st.MustStack(level).Variables },
		set: func(c structure.Container) {
			ctx := st.MustStack(level)
			ctx.Variables = c
			st.SetStack(ctx)
		},
		derive: func(name string) index.Index { return index.Variable{Name: name, Level: level} },
	}
}

func controlsRef(st *structure.Structure, level int) containerRef {
	return containerRef{
		get: func() structure.Container { return st.MustStack(level).Controls },
		set: func(c structure.Container) {
			ctx := st.MustStack(level)
			ctx.Controls = c
			st.SetStack(ctx)
		},
		derive: func(name string) index.Index { return index.Control{Name: name, Level: level} },
	}
}

func arrayRef(st *structure.Structure, parent index.Index, id value.ArrayID) containerRef {
	return containerRef{
		get: func() structure.Container { return st.MustArray(id).Container },
		set: func(c structure.Container) {
			desc := st.MustArray(id)
			desc.Container = c
			st.SetArray(desc)
		},
		derive: func(name string) index.Index { return index.Element(parent, name) },
	}
}

func objectRef(st *structure.Structure, id value.ObjectID) containerRef {
	return containerRef{
		get: func() structure.Container { return st.MustObject(id).Container },
		set: func(c structure.Container) {
			desc := st.MustObject(id)
			desc.Container = c
			st.SetObject(desc)
		},
		derive: func(name string) index.Index { return index.FieldOf(id, name) },
	}
}

// resolver turns paths into locations. Without create it never mutates the
// snapshot and reports through defined and undefined what it could not
// find. With create every missing location is created on the way.
type resolver struct {
	s      *Snapshot
	st     *structure.Structure
	create bool
	strong bool

	// defined is cleared when a name falls back to an unknown index.
	defined bool
	// undefined is set when a segment is applied to a location holding
	// no array or no object.
	undefined bool
}

func (s *Snapshot) reader() *resolver {
	return &resolver{s: s, st: s.structure.Readonly(), defined: true}
}

func (s *Snapshot) collector(strong bool) *resolver {
	return &resolver{s: s, st: s.writeStructure(), create: true, strong: strong, defined: true}
}

func (r *resolver) resolve(p index.Path) []location {
	segments := p.Segments()
	root := segments[0]

	var locs []location
	switch root.Kind {
	case index.TemporarySegment:
		tmp := root.Temporary
		switch {
		case r.st.IsDefined(tmp):
			locs = []location{{tmp, true}}
		case r.create:
			r.s.defineTemporary(tmp)
			locs = []location{{tmp, true}}
		default:
			r.defined = false
			r.undefined = true
			return nil
		}
	default:
		level := p.RootLevel()
		if _, ok := r.st.Stack(level); !ok {
			if !r.create {
				r.defined = false
				r.undefined = true
				return nil
			}
			r.st.AddStackLevel(level)
		}
		ref := variablesRef(r.st, level)
		if root.Kind == index.ControlSegment {
			ref = controlsRef(r.st, level)
		}
		locs = r.selectNames(root, true, ref)
	}

	for _, seg := range segments[1:] {
		if seg.Kind != index.FieldSegment {
			locs = r.withAliases(locs, r.create)
		}
		var next []location
		for _, loc := range locs {
			if seg.Kind == index.FieldSegment {
				next = append(next, r.selectFields(loc, seg)...)
			} else {
				next = append(next, r.selectElements(loc, seg)...)
			}
		}
		locs = next
	}
	return dedupe(locs)
}

// withAliases adds the aliases of every location. Each alias holds its own
// copy of the array, so a write through an element has to reach all of
// them. A must alias of a must location is a must location. May aliases are
// followed only when writing.
func (r *resolver) withAliases(locs []location, may bool) []location {
	res := append([]location(nil), locs...)
	for _, loc := range locs {
		def, ok := r.st.Definition(loc.idx)
		if !ok || def.Aliases.IsEmpty() {
			continue
		}
		for _, a := range structure.SortedIndexes(def.Aliases.Must) {
			if r.st.IsDefined(a) {
				res = append(res, location{a, loc.must})
			}
		}
		if !may {
			continue
		}
		for _, a := range structure.SortedIndexes(def.Aliases.May) {
			if r.st.IsDefined(a) {
				res = append(res, location{a, false})
			}
		}
	}
	return dedupe(res)
}

func dedupe(locs []location) []location {
	pos := map[index.Index]int{}
	res := make([]location, 0, len(locs))
	for _, loc := range locs {
		if at, ok := pos[loc.idx]; ok {
			res[at].must = res[at].must || loc.must
			continue
		}
		pos[loc.idx] = len(res)
		res = append(res, loc)
	}
	return res
}

// selectNames picks the children of a container denoted by seg. When
// writing, an unknown segment denotes every child, since a write through
// an abstract key may hit any of them.
func (r *resolver) selectNames(seg index.Segment, parentMust bool, ref containerRef) (res []location) {
	c := ref.get()
	must := parentMust && seg.IsDirect()

	switch {
	case seg.IsAny || (r.create && seg.IsUnknown()):
		for _, i := range c.Indexes() {
			res = append(res, location{i, false})
		}
		return
	case seg.IsUnknown():
		return []location{{c.Unknown(), false}}
	}

	for _, name := range seg.Names {
		if i, ok := c.Lookup(name); ok {
			res = append(res, location{i, must})
			continue
		}
		if !r.create {
			r.defined = false
			res = append(res, location{c.Unknown(), false})
			continue
		}

		i := ref.derive(name)
		r.st.NewIndex(i)
		c = c.With(name, i)
		ref.set(c)
		r.s.initFromUnknown(c.Unknown(), i, must || r.strong)
		c = ref.get()
		res = append(res, location{i, must})
	}
	return
}

func (r *resolver) selectElements(loc location, seg index.Segment) []location {
	def := r.st.MustDefinition(loc.idx)
	if e := r.s.memoryEntry(loc.idx); !r.create && e.Count() > len(e.Arrays()) {
		// Indexing the scalar values of the location yields nothing.
		r.undefined = true
	}
	if !def.HasArray() {
		if !r.create {
			r.undefined = true
			return nil
		}
		r.s.implicitArray(loc.idx, loc.must || r.strong)
		def = r.st.MustDefinition(loc.idx)
	}
	return r.selectNames(seg, loc.must, arrayRef(r.st, loc.idx, def.Array))
}

func (r *resolver) selectFields(loc location, seg index.Segment) (res []location) {
	def := r.st.MustDefinition(loc.idx)
	if def.Objects.Len() == 0 {
		if !r.create {
			r.undefined = true
			return nil
		}
		r.s.implicitObject(loc.idx, loc.must || r.strong)
		def = r.st.MustDefinition(loc.idx)
	}

	objects := structure.SortedObjects(def.Objects)
	for _, id := range objects {
		res = append(res, r.selectNames(seg, loc.must && len(objects) == 1, objectRef(r.st, id))...)
	}
	return
}

// implicitArray creates an array at i for a write through one of its
// elements.
func (s *Snapshot) implicitArray(i index.Index, strong bool) {
	arr := value.Array{ID: s.newArray(i)}
	d := s.writeMemory()
	if strong {
		d.Set(i, value.NewEntry(arr))
		return
	}
	d.Set(i, s.memoryEntry(i).Add(arr))
}

// implicitObject creates an object at i for a write through one of its
// fields. The aliases of i receive the same object.
func (s *Snapshot) implicitObject(i index.Index, strong bool) {
	obj := s.CreateObject(implicitObjectType)
	st := s.writeStructure()
	aliases := st.MustDefinition(i).Aliases

	s.storeObject(i, obj, strong)
	for _, a := range structure.SortedIndexes(aliases.Must) {
		if st.IsDefined(a) {
			s.storeObject(a, obj, strong)
		}
	}
	for _, a := range structure.SortedIndexes(aliases.May) {
		if st.IsDefined(a) {
			s.storeObject(a, obj, false)
		}
	}
}

func (s *Snapshot) storeObject(i index.Index, obj value.Object, strong bool) {
	st := s.writeStructure()
	d := s.writeMemory()
	if strong {
		st.SetObjects(i, structure.NewObjectSet(obj.ID))
		d.Set(i, value.NewEntry(obj))
		return
	}
	st.SetObjects(i, st.MustDefinition(i).Objects.Add(obj.ID))
	d.Set(i, s.memoryEntry(i).Add(obj))
}

// initFromUnknown gives the freshly created index i the contents of the
// unknown index of its container. A strong initialisation drops the
// undefined marker, a weak one adds it.
func (s *Snapshot) initFromUnknown(unknown, i index.Index, strong bool) {
	st := s.writeStructure()
	ud := st.MustDefinition(unknown)

	e := s.memoryEntry(unknown).WithoutArrays()
	if strong {
		e = e.Remove(value.Undefined)
	} else {
		e = e.Add(value.Undefined)
	}

	if ud.Objects.Len() > 0 {
		st.SetObjects(i, ud.Objects)
	}
	if ud.HasArray() {
		v := s.view()
		id := s.newArray(i)
		s.copyArray(v, ud.Array, i, !strong)
		e = e.Add(value.Array{ID: id})
	}
	s.writeMemory().Set(i, e)

	if ie, ok := s.info.Readonly().Lookup(unknown); ok {
		s.info.Writeable().Set(i, ie)
	}

	ud.Aliases.Must.Union(ud.Aliases.May).ForEach(func(alias index.Index) {
		if alias != i {
			s.link(i, alias, false)
		}
	})
}
