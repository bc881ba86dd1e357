package memory

import (
	"github.com/cs-au-dk/memsnap/analysis/data"
	"github.com/cs-au-dk/memsnap/analysis/index"
	"github.com/cs-au-dk/memsnap/analysis/structure"
	"github.com/cs-au-dk/memsnap/analysis/tracker"
	"github.com/cs-au-dk/memsnap/analysis/value"

	"github.com/pkg/errors"
)

// Argument is a value bound to a local variable of a callee frame.
type Argument struct {
	Name  string
	Value value.Entry
}

// ExtendAsCall makes s the entry state of a call made from caller: a copy
// of caller with a fresh frame one level deeper. A non-empty this is bound
// to $this, and every argument to the local variable it names.
func (s *Snapshot) ExtendAsCall(caller *Snapshot, this value.Entry, args ...Argument) {
	s.checkTransaction()
	defer s.bench("extend-call")()

	level := caller.callLevel + 1
	s.log.Debugf("call from %s into level %d", caller.Describe(), level)

	caller.share()
	st := caller.structure.Readonly().Copy()
	st.SetCallLevel(level)
	st.Tracker().SetConnection(tracker.CallExtend, level)
	s.structure.Set(st, true)
	for _, p := range []struct{ dst, src *Proxy[*data.Data] }{{s.memory, caller.memory}, {s.info, caller.info}} {
		d := p.src.Readonly().Copy()
		d.SetCallLevel(level)
		d.Tracker().SetConnection(tracker.CallExtend, level)
		p.dst.Set(d, true)
	}
	s.callLevel = level
	s.dataSources = nil

	st.AddStackLevel(level)
	if !this.IsEmpty() {
		s.Assign(index.VariablePath(index.LocalOnly, level, "this"), this, true)
	}
	for _, arg := range args {
		s.Assign(index.VariablePath(index.LocalOnly, level, arg.Name), arg.Value, true)
	}
}

// MergeWithCall makes s the state after returning from a call: the caller
// state call joined with the exit states of the callee. Frames of the
// callee are dropped.
func (s *Snapshot) MergeWithCall(call *Snapshot, exits ...*Snapshot) error {
	s.checkTransaction()
	defer s.bench("merge-call")()

	if len(exits) == 0 {
		return errors.Errorf("merging call %s without exits", call.Describe())
	}
	level := call.callLevel
	for _, exit := range exits {
		if exit.callLevel != level+1 {
			return errors.Wrapf(ErrUnsupportedOperation, "exit %s at level %d does not return to %s at level %d",
				exit.Describe(), exit.callLevel, call.Describe(), level)
		}
	}
	s.log.Debugf("merge of %d exits into call %s", len(exits), call.Describe())

	m := s.newMerger(exits, level)
	call.share()
	m.st = call.structure.Readonly().Copy()
	m.memory = call.memory.Readonly().Copy()
	m.info = call.info.Readonly().Copy()

	if s.factory.tracking() {
		for _, src := range m.sources {
			collectCallChanges(m.tree, src.st.Tracker(), call)
			collectCallChanges(m.tree, src.memory.Tracker(), call)
			collectCallChanges(m.tree, src.info.Tracker(), call)
		}
	} else {
		m.full = true
		for _, src := range m.sources {
			m.tree.insertAll(src.st, src.memory, src.info)
		}
	}

	m.build()
	s.install(m, exits, tracker.CallMerge, level)
	return nil
}

func collectCallChanges[C any](t *changeTree, exit *tracker.Tracker[C], call *Snapshot) {
	tracker.CollectCallChanges(exit, call, func(tr *tracker.Tracker[C]) {
		insertChanges(t, tr)
	})
}

// MergeAtSubprogram makes s the entry state of a subprogram reached from
// several call sites: the merge of inputs, where inputs[i] was entered
// from calls[i]. A later MergeWithCall for calls[i] only collects the
// changes made along the branch of inputs[i].
func (s *Snapshot) MergeAtSubprogram(inputs, calls []*Snapshot) error {
	s.checkTransaction()
	defer s.bench("merge-subprogram")()

	if len(inputs) != len(calls) {
		return errors.Errorf("%d subprogram inputs for %d calls", len(inputs), len(calls))
	}
	if len(inputs) == 0 {
		return errors.Errorf("merging subprogram %s without inputs", s.Describe())
	}

	var (
		st         []*tracker.Tracker[*structure.Structure]
		mem, infos []*tracker.Tracker[*data.Data]
	)
	for _, in := range inputs {
		in.share()
		st = append(st, in.structure.Readonly().Tracker())
		mem = append(mem, in.memory.Readonly().Tracker())
		infos = append(infos, in.info.Readonly().Tracker())
	}

	if len(inputs) == 1 {
		s.copyFrom(inputs[0])
		s.structure.Readonly().Tracker().SetConnection(tracker.SubprogramMerge, s.callLevel)
		s.memory.Readonly().Tracker().SetConnection(tracker.SubprogramMerge, s.callLevel)
		s.info.Readonly().Tracker().SetConnection(tracker.SubprogramMerge, s.callLevel)
	} else if _, err := s.merge(inputs, tracker.SubprogramMerge); err != nil {
		return err
	}

	for i, call := range calls {
		s.structure.Readonly().Tracker().AddCallTracker(call, st[i])
		s.memory.Readonly().Tracker().AddCallTracker(call, mem[i])
		s.info.Readonly().Tracker().AddCallTracker(call, infos[i])
	}
	return nil
}
