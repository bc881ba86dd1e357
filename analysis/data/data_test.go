package data

import (
	"testing"

	"github.com/cs-au-dk/memsnap/analysis/index"
	"github.com/cs-au-dk/memsnap/analysis/tracker"
	"github.com/cs-au-dk/memsnap/analysis/value"
	"github.com/cs-au-dk/memsnap/utils"

	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"
)

var (
	a = index.Variable{Name: "a"}
	b = index.Variable{Name: "b"}
	c = index.Variable{Name: "c"}
)

func names(is []index.Index) (res []string) {
	for _, i := range is {
		res = append(res, i.(index.Variable).Name)
	}
	return
}

func TestCopyOnWrite(t *testing.T) {
	for _, eager := range []bool{false, true} {
		d := New(&tracker.Sequence{}, eager)
		d.Set(a, value.UndefinedEntry())

		cp := d.Copy()
		cp.Set(b, value.NewEntry(value.Object{ID: 1}))

		if _, found := d.Lookup(b); found {
			t.Errorf("eager=%v: write to the copy is visible in the source", eager)
		}
		if e, _ := cp.Lookup(a); !e.HasUndefined() {
			t.Errorf("eager=%v: the copy lost %v", eager, a)
		}
		if cp.Tracker().Previous() != d.Tracker() || cp.Tracker().ChangeCount() != 1 {
			t.Errorf("eager=%v: copy tracker is %v", eager, cp.Tracker())
		}

		func() {
			defer func() {
				err, _ := recover().(error)
				if !errors.Is(err, utils.ErrStructuralInconsistency) {
					t.Errorf("eager=%v: write to frozen data did not panic: %v", eager, err)
				}
			}()
			d.Set(a, value.Entry{})
		}()
	}
}

func TestRemove(t *testing.T) {
	d := New(&tracker.Sequence{}, false)
	d.Set(a, value.UndefinedEntry())
	d = d.Copy()
	d.Remove(b)
	if d.Tracker().ChangeCount() != 0 {
		t.Error("Removing a missing entry recorded a change")
	}
	d.Remove(a)
	if d.Len() != 0 || !d.Tracker().HasIndexChange(a) {
		t.Errorf("Remove(%v) left %v", a, d.Indexes())
	}
}

func TestForEachDifference(t *testing.T) {
	base := New(&tracker.Sequence{}, false)
	base.Set(a, value.NewEntry(value.Array{ID: 1}))
	base.Set(b, value.UndefinedEntry())

	next := base.Copy()
	next.Set(a, value.NewEntry(value.Array{ID: 2}))
	next.Remove(b)
	next.Set(c, value.UndefinedEntry())

	var strict, loose []index.Index
	base.ForEachDifference(next, value.Entry.Equal, func(i index.Index, _ value.Entry, _ bool, _ value.Entry, _ bool) {
		strict = append(strict, i)
	})
	base.ForEachDifference(next, value.Entry.EqualIgnoringArrays, func(i index.Index, _ value.Entry, _ bool, _ value.Entry, _ bool) {
		loose = append(loose, i)
	})
	index.Sort(strict)
	index.Sort(loose)

	if diff := cmp.Diff([]string{"a", "b", "c"}, names(strict)); diff != "" {
		t.Errorf("Differences (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"b", "c"}, names(loose)); diff != "" {
		t.Errorf("Differences ignoring arrays (-want +got):\n%s", diff)
	}
	if base.Equal(next, value.Entry.EqualIgnoringArrays) {
		t.Error("Versions with different keys are equal")
	}
}
