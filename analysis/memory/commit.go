package memory

import (
	"github.com/cs-au-dk/memsnap/analysis/data"
	"github.com/cs-au-dk/memsnap/analysis/index"
	"github.com/cs-au-dk/memsnap/analysis/structure"
	"github.com/cs-au-dk/memsnap/analysis/tracker"
	"github.com/cs-au-dk/memsnap/analysis/value"
)

// Commit closes the current transaction and reports whether the snapshot
// differs from its state at the start of the transaction. Entries with
// more than simplifyLimit values are simplified.
func (s *Snapshot) Commit(simplifyLimit int) bool {
	defer s.bench("commit")()
	return s.commit(simplifyLimit, false)
}

// CommitAndWiden is Commit, except that every changed entry is widened
// against its value at the start of the transaction.
func (s *Snapshot) CommitAndWiden(simplifyLimit int) bool {
	defer s.bench("widen")()
	return s.commit(simplifyLimit, true)
}

// CommitTransaction commits with the limits of the factory options,
// widening once the snapshot went through more transactions than the
// widening limit.
func (s *Snapshot) CommitTransaction() bool {
	opts := s.factory.opts
	if s.transactions > opts.WideningLimit {
		return s.CommitAndWiden(opts.SimplifyLimit)
	}
	return s.Commit(opts.SimplifyLimit)
}

func (s *Snapshot) commit(limit int, widen bool) (differs bool) {
	if !s.inTransaction {
		inconsistent("commit of %s outside of a transaction", s.Describe())
	}
	defer s.finishCommit()

	d := s.dataProxy()
	structureWritten := func() bool {
		return s.mode == MemoryLevel && s.structure.IsWriteable()
	}

	if !structureWritten() && !d.IsWriteable() {
		if s.transactions <= 1 {
			return true
		}
		differs = d.Readonly().DiffersOnCommit()
		if s.mode == MemoryLevel {
			differs = differs || s.structure.Readonly().DiffersOnCommit()
		}
		s.log.Debugf("commit without writes, differs: %v", differs)
		return
	}

	areSame := s.transactions > 1
	if d.IsWriteable() {
		s.prepareData(limit, widen)
		areSame = s.compareData() && areSame
		d.Readonly().SetDiffersOnCommit(!areSame)
	}
	if structureWritten() {
		if s.factory.tracking() {
			s.clearStructureTracker()
		}
		areSame = s.compareStructure() && areSame
		s.structure.Readonly().SetDiffersOnCommit(!areSame)
	}

	s.log.Debugf("commit %d (widen: %v), differs: %v", s.transactions, widen, !areSame)
	return !areSame
}

func (s *Snapshot) finishCommit() {
	s.inTransaction = false
	s.share()
	s.oldStructure = nil
	s.oldMemory = nil
	s.oldInfo = nil
}

func (s *Snapshot) oldData() *data.Data {
	if s.mode == InfoLevel {
		return s.oldInfo
	}
	return s.oldMemory
}

// changedData lists the indexes whose entries may differ between the
// current and the old data container.
func (s *Snapshot) changedData() []index.Index {
	cur, old := s.dataProxy().Readonly(), s.oldData()
	if !s.factory.tracking() {
		var res []index.Index
		cur.ForEachDifference(old, value.Entry.Equal, func(i index.Index, _ value.Entry, _ bool, _ value.Entry, _ bool) {
			res = append(res, i)
		})
		index.Sort(res)
		return res
	}

	set := structure.IndexSet{}
	tracker.CommonAncestor(cur.Tracker(), old.Tracker(), func(t *tracker.Tracker[*data.Data]) {
		for _, i := range t.IndexChanges() {
			set = set.Add(i)
		}
	})
	return structure.SortedIndexes(set)
}

// prepareData simplifies and widens the changed entries and drops changes
// that restored the previous entry.
func (s *Snapshot) prepareData(limit int, widen bool) {
	assistant := s.factory.assistant
	d := s.dataProxy().Readonly()
	old := s.oldData()

	for _, i := range s.changedData() {
		e, ok := d.Lookup(i)
		if !ok {
			continue
		}
		acc := e
		if acc.Count() > limit {
			acc = assistant.Simplify(acc)
		}
		if widen {
			if oe, ok := old.Lookup(i); ok && !oe.Equal(acc) {
				acc = assistant.Widen(oe, acc)
			}
		}
		if !acc.Equal(e) {
			s.setNewEntry(i, acc)
		}
	}

	if !s.factory.tracking() {
		return
	}
	d = s.dataProxy().Readonly()
	tr := d.Tracker()
	prev := tr.Previous()
	if prev == nil {
		return
	}
	for _, i := range tr.IndexChanges() {
		pe, pok := prev.Container().Lookup(i)
		ce, cok := d.Lookup(i)
		if pok == cok && pe.Equal(ce) {
			tr.RemoveIndexChange(i)
		}
	}
}

// setNewEntry replaces the entry of i by a simplified or widened one,
// keeping the structure in line with the handles it holds.
func (s *Snapshot) setNewEntry(i index.Index, e value.Entry) {
	if s.mode == MemoryLevel {
		if def, ok := s.structure.Readonly().Definition(i); ok {
			if def.HasArray() && len(e.Arrays()) == 0 {
				s.destroyArray(i)
			}
			if objects := structure.NewObjectSet(e.Objects()...); !objects.Equal(def.Objects) {
				s.writeStructure().SetObjects(i, objects)
			}
		}
	}
	s.writeData().Set(i, e)
}

// compareData checks that no entry changed, treating arrays as equal.
func (s *Snapshot) compareData() bool {
	cur, old := s.dataProxy().Readonly(), s.oldData()
	if !s.factory.tracking() {
		return cur.Equal(old, value.Entry.EqualIgnoringArrays)
	}
	for _, i := range s.changedData() {
		ce, cok := cur.Lookup(i)
		oe, ook := old.Lookup(i)
		if cok != ook || !ce.EqualIgnoringArrays(oe) {
			return false
		}
	}
	return true
}

// clearStructureTracker drops changes that restored the previous
// definition.
func (s *Snapshot) clearStructureTracker() {
	st := s.structure.Readonly()
	tr := st.Tracker()
	prev := tr.Previous()
	if prev == nil {
		return
	}
	for _, i := range tr.IndexChanges() {
		pd, pok := prev.Container().Definition(i)
		cd, cok := st.Definition(i)
		if pok == cok && (!pok || (pd.Array == cd.Array && pd.Equal(cd))) {
			tr.RemoveIndexChange(i)
		}
	}
}

// compareStructure checks that no definition and no declaration changed.
func (s *Snapshot) compareStructure() bool {
	cur, old := s.structure.Readonly(), s.oldStructure
	same := func(i index.Index) bool {
		cd, cok := cur.Definition(i)
		od, ook := old.Definition(i)
		return cok == ook && cd.Equal(od)
	}
	sameDecls := func(fs, cs []string) bool {
		for _, name := range fs {
			if !cur.Functions(name).Equal(old.Functions(name)) {
				return false
			}
		}
		for _, name := range cs {
			if !cur.Classes(name).Equal(old.Classes(name)) {
				return false
			}
		}
		return true
	}

	if !s.factory.tracking() {
		if cur.DefinitionCount() != old.DefinitionCount() {
			return false
		}
		eq := true
		cur.ForEachDefinition(func(i index.Index, _ structure.IndexDefinition) {
			eq = eq && same(i)
		})
		names := func(a, b []string) []string { return append(append([]string{}, a...), b...) }
		return eq && sameDecls(names(cur.FunctionNames(), old.FunctionNames()), names(cur.ClassNames(), old.ClassNames()))
	}

	indexes := structure.IndexSet{}
	functions, classes := map[string]struct{}{}, map[string]struct{}{}
	tracker.CommonAncestor(cur.Tracker(), old.Tracker(), func(t *tracker.Tracker[*structure.Structure]) {
		for _, i := range t.IndexChanges() {
			indexes = indexes.Add(i)
		}
		for _, name := range t.FunctionChanges() {
			functions[name] = struct{}{}
		}
		for _, name := range t.ClassChanges() {
			classes[name] = struct{}{}
		}
	})

	eq := true
	indexes.ForEach(func(i index.Index) {
		eq = eq && same(i)
	})
	return eq && sameDecls(sortedNames(functions), sortedNames(classes))
}
