package value

import (
	"testing"
)

// num is a minimal domain value for tests.
type num int

func (n num) Hash() uint32 { return uint32(n) }

func (n num) Equal(o Value) bool {
	m, ok := o.(num)
	return ok && n == m
}

func (n num) String() string { return string(rune('0' + n)) }

func TestEntryPersistence(t *testing.T) {
	e1 := NewEntry(num(1))
	e2 := e1.Add(num(2))

	if e1.Count() != 1 || e2.Count() != 2 {
		t.Errorf("Add mutated its receiver: %v %v", e1, e2)
	}
	if e2.Remove(num(2)).Equal(e1) == false {
		t.Errorf("%v without 2 should equal %v", e2, e1)
	}
}

func TestEntryEqual(t *testing.T) {
	tests := []struct {
		a, b  Entry
		equal bool
	}{
		{Entry{}, NewEntry(), true},
		{NewEntry(num(1), num(2)), NewEntry(num(2), num(1)), true},
		{NewEntry(num(1)), NewEntry(num(1), Undefined), false},
		{NewEntry(Array{1}), NewEntry(Array{2}), false},
	}

	for _, test := range tests {
		if res := test.a.Equal(test.b); res != test.equal {
			t.Errorf("%v = %v is %v, expected %v", test.a, test.b, res, test.equal)
		}
	}
}

func TestEntryEqualIgnoringArrays(t *testing.T) {
	a := NewEntry(num(1), Array{1})
	b := NewEntry(num(1), Array{7})
	if !a.EqualIgnoringArrays(b) {
		t.Errorf("%v and %v differ only by array identity", a, b)
	}
	if a.EqualIgnoringArrays(NewEntry(num(1), num(2))) {
		t.Errorf("an array is not a scalar")
	}
}

func TestEntryUnion(t *testing.T) {
	a := NewEntry(num(1), Undefined)
	b := NewEntry(num(2), Object{3})

	u := a.Union(b)
	for _, v := range []Value{num(1), num(2), Undefined, Object{3}} {
		if !u.Contains(v) {
			t.Errorf("%v does not contain %v", u, v)
		}
	}
	if !u.HasUndefined() {
		t.Error("union lost the undefined marker")
	}
	if objs := u.Objects(); len(objs) != 1 || objs[0] != 3 {
		t.Errorf("Objects() = %v", objs)
	}
	if s := u.Scalars(); s.Count() != 3 {
		t.Errorf("Scalars() = %v", s)
	}
}
