// Package data implements the value half of a memory snapshot: a
// versioned map from memory indexes to memory entries.
package data

import (
	"github.com/cs-au-dk/memsnap/analysis/index"
	"github.com/cs-au-dk/memsnap/analysis/tracker"
	"github.com/cs-au-dk/memsnap/analysis/value"
	"github.com/cs-au-dk/memsnap/utils"
	"github.com/cs-au-dk/memsnap/utils/tree"

	"github.com/pkg/errors"
)

// Data is a versioned data container. A missing key means the index was
// never written, which differs from an entry holding value.Undefined.
type Data struct {
	seq    *tracker.Sequence
	eager  bool
	frozen bool
	tr     *tracker.Tracker[*Data]

	entries tree.Tree[index.Index, value.Entry]

	callLevel       int
	differsOnCommit bool
}

// New creates an empty data container. When eager is set, every copy
// rebuilds the whole map instead of sharing it.
func New(seq *tracker.Sequence, eager bool) *Data {
	d := &Data{
		seq:     seq,
		eager:   eager,
		entries: tree.NewTree[index.Index, value.Entry](index.Hasher{}),
	}
	d.tr = tracker.New(seq, d, nil, index.GlobalLevel, tracker.Extend)
	return d
}

// Empty creates an empty container sharing the configuration of d.
func (d *Data) Empty() *Data {
	return New(d.seq, d.eager)
}

// Copy freezes d and returns a writeable successor linked to it by an
// Extend tracker.
func (d *Data) Copy() *Data {
	d.frozen = true

	c := *d
	c.frozen = false
	c.tr = tracker.New(d.seq, &c, d.tr, d.callLevel, tracker.Extend)
	if d.eager {
		entries := tree.NewTree[index.Index, value.Entry](index.Hasher{})
		d.entries.ForEach(func(i index.Index, e value.Entry) {
			entries = entries.Insert(i, e)
		})
		c.entries = entries
	}
	return &c
}

// View returns a frozen snapshot of the current entries of d.
func (d *Data) View() *Data {
	v := *d
	v.frozen = true
	return &v
}

func (d *Data) Freeze()        { d.frozen = true }
func (d *Data) IsFrozen() bool { return d.frozen }

func (d *Data) writeable() {
	if d.frozen {
		panic(errors.Wrapf(utils.ErrStructuralInconsistency, "write to frozen data %v", d.tr))
	}
}

func (d *Data) Tracker() *tracker.Tracker[*Data] { return d.tr }

func (d *Data) CallLevel() int { return d.callLevel }

func (d *Data) SetCallLevel(level int) {
	d.writeable()
	d.callLevel = level
}

func (d *Data) DiffersOnCommit() bool { return d.differsOnCommit }

func (d *Data) SetDiffersOnCommit(differs bool) { d.differsOnCommit = differs }

func (d *Data) Lookup(i index.Index) (value.Entry, bool) {
	return d.entries.Lookup(i)
}

// Set stores entry e at i and records the change.
func (d *Data) Set(i index.Index, e value.Entry) {
	d.writeable()
	d.entries = d.entries.Insert(i, e)
	d.tr.InsertIndexChange(i)
}

// Remove forgets the entry at i.
func (d *Data) Remove(i index.Index) {
	d.writeable()
	if _, found := d.entries.Lookup(i); !found {
		return
	}
	d.entries = d.entries.Remove(i)
	d.tr.InsertIndexChange(i)
}

// ForEach calls f on every stored entry in unspecified order.
func (d *Data) ForEach(f func(index.Index, value.Entry)) {
	d.entries.ForEach(f)
}

func (d *Data) Len() int {
	return d.entries.Size()
}

// Indexes returns the indexes holding an entry, ordered by printed form.
func (d *Data) Indexes() []index.Index {
	res := make([]index.Index, 0, d.Len())
	d.ForEach(func(i index.Index, _ value.Entry) {
		res = append(res, i)
	})
	index.Sort(res)
	return res
}

// ForEachDifference calls f on every index whose entries differ between d
// and o according to eq. Storage shared between the two versions is not
// visited.
func (d *Data) ForEachDifference(o *Data, eq func(a, b value.Entry) bool, f func(i index.Index, a value.Entry, inA bool, b value.Entry, inB bool)) {
	d.entries.Difference(o.entries, eq, f)
}

// Equal checks that d and o hold equal entries at the same indexes.
func (d *Data) Equal(o *Data, eq func(a, b value.Entry) bool) bool {
	return d.entries.Equal(o.entries, eq)
}
