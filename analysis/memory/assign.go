package memory

import (
	"github.com/cs-au-dk/memsnap/analysis/data"
	"github.com/cs-au-dk/memsnap/analysis/index"
	"github.com/cs-au-dk/memsnap/analysis/structure"
	"github.com/cs-au-dk/memsnap/analysis/value"
)

// view is a frozen copy of the snapshot state. Arrays are copied out of a
// view so that a write may tear down its own source.
type view struct {
	st     *structure.Structure
	memory *data.Data
	info   *data.Data
}

func (s *Snapshot) view() view {
	return view{
		st:     s.structure.Readonly().View(),
		memory: s.memory.Readonly().View(),
		info:   s.info.Readonly().View(),
	}
}

// Assign writes e to every location denoted by p. Locations the path
// denotes unambiguously are overwritten, every other location receives e
// in addition to what it holds. forceStrong overwrites every location.
func (s *Snapshot) Assign(p index.Path, e value.Entry, forceStrong bool) {
	defer s.bench("assign")()
	s.log.Debugf("assign %v := %v", p, e)

	locs := s.collector(forceStrong).resolve(p)
	must, may := s.classify(locs, forceStrong)

	v := s.view()
	for _, i := range must {
		s.strongWrite(v, i, e)
	}
	for _, i := range may {
		s.weakWrite(v, i, e)
	}
}

// AssignWithoutCopy writes e like Assign, except that locations keep the
// arrays they hold and array values of e are ignored.
func (s *Snapshot) AssignWithoutCopy(p index.Path, e value.Entry) {
	defer s.bench("assign")()
	s.log.Debugf("assign without copy %v := %v", p, e)

	locs := s.collector(false).resolve(p)
	must, may := s.classify(locs, false)

	st := s.writeStructure()
	d := s.writeData()
	scalars := e.WithoutArrays()
	withOwnArray := func(i index.Index, e value.Entry) value.Entry {
		if def := st.MustDefinition(i); def.HasArray() && s.mode == MemoryLevel {
			return e.Add(value.Array{ID: def.Array})
		}
		return e
	}

	for _, i := range must {
		if s.mode == MemoryLevel {
			st.SetObjects(i, structure.NewObjectSet(e.Objects()...))
		}
		d.Set(i, withOwnArray(i, scalars))
	}
	for _, i := range may {
		if s.mode == MemoryLevel {
			def := st.MustDefinition(i)
			st.SetObjects(i, def.Objects.Add(e.Objects()...))
		}
		d.Set(i, withOwnArray(i, s.entry(i).WithoutArrays().Union(scalars)))
	}
}

// classify splits the collected locations into the ones written strongly
// and weakly, following their aliases.
func (s *Snapshot) classify(locs []location, forceStrong bool) (must, may []index.Index) {
	st := s.structure.Readonly()
	mustSet := structure.IndexSet{}
	maySet := structure.IndexSet{}

	for _, loc := range locs {
		if forceStrong || loc.must {
			mustSet = mustSet.Add(loc.idx)
		} else {
			maySet = maySet.Add(loc.idx)
		}
	}

	aliasedMust := mustSet
	for _, i := range structure.SortedIndexes(mustSet) {
		def := st.MustDefinition(i)
		aliasedMust = aliasedMust.Union(def.Aliases.Must)
		maySet = maySet.Union(def.Aliases.May)
	}
	for _, i := range structure.SortedIndexes(maySet) {
		if def, ok := st.Definition(i); ok {
			maySet = maySet.Union(def.Aliases.Must).Union(def.Aliases.May)
		}
	}

	for _, i := range structure.SortedIndexes(aliasedMust) {
		if st.IsDefined(i) {
			must = append(must, i)
		}
	}
	for _, i := range structure.SortedIndexes(maySet) {
		if !aliasedMust.Contains(i) && st.IsDefined(i) {
			may = append(may, i)
		}
	}
	return
}

// strongWrite overwrites i with e. The array previously held by i is torn
// down and arrays in e are copied into a fresh array at i.
func (s *Snapshot) strongWrite(v view, i index.Index, e value.Entry) {
	if s.mode == InfoLevel {
		s.writeData().Set(i, e)
		return
	}

	st := s.writeStructure()
	if st.MustDefinition(i).HasArray() {
		s.destroyArray(i)
	}

	res := e.WithoutArrays()
	if arrays := e.Arrays(); len(arrays) > 0 {
		id := s.newArray(i)
		for n, arr := range arrays {
			s.copyArray(v, arr, i, n > 0)
		}
		res = res.Add(value.Array{ID: id})
	}
	st.SetObjects(i, structure.NewObjectSet(e.Objects()...))
	s.writeMemory().Set(i, res)
}

// weakWrite adds e to the values of i. An array at i is kept and the
// arrays of e are merged into it.
func (s *Snapshot) weakWrite(v view, i index.Index, e value.Entry) {
	if s.mode == InfoLevel {
		s.writeData().Set(i, s.entry(i).Union(e))
		return
	}

	st := s.writeStructure()
	res := s.memoryEntry(i).WithoutArrays().Union(e.WithoutArrays())
	if arrays := e.Arrays(); len(arrays) > 0 {
		if !st.MustDefinition(i).HasArray() {
			s.newArray(i)
		}
		for _, arr := range arrays {
			s.copyArray(v, arr, i, true)
		}
	}

	def := st.MustDefinition(i)
	if def.HasArray() {
		res = res.Add(value.Array{ID: def.Array})
	}
	st.SetObjects(i, def.Objects.Add(e.Objects()...))
	s.writeMemory().Set(i, res)
}

// copyArray copies the elements of array src, as seen in v, into the array
// held by dst. A weak copy merges them with the elements already there.
func (s *Snapshot) copyArray(v view, src value.ArrayID, dst index.Index, weak bool) {
	st := s.writeStructure()
	from := v.st.MustArray(src)
	to := arrayRef(st, dst, st.MustDefinition(dst).Array)

	s.copyIndex(v, from.Unknown(), index.UnknownElement(dst), weak)

	for _, name := range from.Names() {
		srcIdx, _ := from.Lookup(name)
		c := to.get()
		dstIdx, ok := c.Lookup(name)
		if !ok {
			dstIdx = to.derive(name)
			st.NewIndex(dstIdx)
			to.set(c.With(name, dstIdx))
			if weak {
				s.initFromUnknown(c.Unknown(), dstIdx, false)
			}
		}
		s.copyIndex(v, srcIdx, dstIdx, weak)
	}

	if !weak {
		return
	}
	// Elements the source lacks may now hold whatever its unknown element
	// holds.
	for _, name := range to.get().Names() {
		if _, ok := from.Lookup(name); ok {
			continue
		}
		dstIdx, _ := to.get().Lookup(name)
		s.copyIndex(v, from.Unknown(), dstIdx, true)
	}
}

// copyIndex copies the contents of src, as seen in v, to dst.
func (s *Snapshot) copyIndex(v view, src, dst index.Index, weak bool) {
	st := s.writeStructure()
	srcDef := v.st.MustDefinition(src)
	e := lookup(v.memory, src, MemoryLevel).WithoutArrays()

	if !weak {
		if st.MustDefinition(dst).HasArray() {
			s.destroyArray(dst)
		}
		if srcDef.HasArray() {
			id := s.newArray(dst)
			s.copyArray(v, srcDef.Array, dst, false)
			e = e.Add(value.Array{ID: id})
		}
		st.SetObjects(dst, srcDef.Objects)
		s.writeMemory().Set(dst, e)
		if ie, ok := v.info.Lookup(src); ok {
			s.info.Writeable().Set(dst, ie)
		}
		return
	}

	e = s.memoryEntry(dst).WithoutArrays().Union(e)
	if srcDef.HasArray() {
		if !st.MustDefinition(dst).HasArray() {
			s.newArray(dst)
		}
		s.copyArray(v, srcDef.Array, dst, true)
	}
	def := st.MustDefinition(dst)
	if def.HasArray() {
		e = e.Add(value.Array{ID: def.Array})
	}
	st.SetObjects(dst, def.Objects.Union(srcDef.Objects))
	s.writeMemory().Set(dst, e)
	if ie, ok := v.info.Lookup(src); ok {
		old, _ := s.info.Readonly().Lookup(dst)
		s.info.Writeable().Set(dst, old.Union(ie))
	}
}

// destroyIndex tears down i together with its array, its aliases and its
// data.
func (s *Snapshot) destroyIndex(i index.Index) {
	st := s.writeStructure()
	def, ok := st.Definition(i)
	if !ok {
		return
	}
	if def.HasArray() {
		s.destroyArray(i)
	}
	s.DestroyAliases(i)
	st.RemoveIndex(i)
	s.removeData(i)
}

// destroyArray tears down the array held by parent and all its elements.
func (s *Snapshot) destroyArray(parent index.Index) {
	st := s.writeStructure()
	def := st.MustDefinition(parent)
	desc := st.MustArray(def.Array)
	for _, i := range desc.Indexes() {
		s.destroyIndex(i)
	}
	st.RemoveArray(def.Array)
}
