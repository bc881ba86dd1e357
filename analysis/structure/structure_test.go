package structure

import (
	"testing"

	"github.com/cs-au-dk/memsnap/analysis/index"
	"github.com/cs-au-dk/memsnap/analysis/tracker"
	"github.com/cs-au-dk/memsnap/analysis/value"
	"github.com/cs-au-dk/memsnap/utils"

	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"
)

func expectInconsistency(t *testing.T, f func()) {
	t.Helper()
	defer func() {
		err, _ := recover().(error)
		if !errors.Is(err, utils.ErrStructuralInconsistency) {
			t.Errorf("Expected a structural inconsistency, got %v", err)
		}
	}()
	f()
}

func TestNewHasGlobalFrame(t *testing.T) {
	s := New(&tracker.Sequence{}, false)
	if diff := cmp.Diff([]int{index.GlobalLevel}, s.StackLevels()); diff != "" {
		t.Errorf("Stack levels (-want +got):\n%s", diff)
	}
	for _, i := range []index.Index{index.AnyVariable{}, index.AnyControl{}} {
		if !s.IsDefined(i) {
			t.Errorf("%v is not defined", i)
		}
	}
	if err := s.Validate(); err != nil {
		t.Error(err)
	}
}

func TestCopy(t *testing.T) {
	for _, eager := range []bool{false, true} {
		s := New(&tracker.Sequence{}, eager)
		a := index.Variable{Name: "a"}
		s.NewIndex(a)

		c := s.Copy()
		b := index.Variable{Name: "b"}
		c.NewIndex(b)

		if s.IsDefined(b) {
			t.Errorf("eager=%v: write to the copy is visible in the source", eager)
		}
		if !c.IsDefined(a) {
			t.Errorf("eager=%v: the copy lost %v", eager, a)
		}
		if c.Tracker().Previous() != s.Tracker() {
			t.Errorf("eager=%v: the copy is not linked to its source", eager)
		}
		if !c.Tracker().HasIndexChange(b) || c.Tracker().HasIndexChange(a) {
			t.Errorf("eager=%v: changes of the copy are %v", eager, c.Tracker().IndexChanges())
		}
		if !s.IsFrozen() {
			t.Errorf("eager=%v: the source of a copy must be frozen", eager)
		}
		expectInconsistency(t, func() { s.NewIndex(index.Variable{Name: "c"}) })
	}
}

func TestMustDefinition(t *testing.T) {
	s := New(&tracker.Sequence{}, false)
	expectInconsistency(t, func() { s.MustDefinition(index.Variable{Name: "x"}) })
	expectInconsistency(t, func() { s.MustArray(4) })
	expectInconsistency(t, func() { s.MustStack(2) })
}

func TestArrays(t *testing.T) {
	s := New(&tracker.Sequence{}, false)
	a := index.Variable{Name: "a"}
	s.NewIndex(a)

	desc := s.NewArray(a, 1)
	if desc.Unknown() != index.Index(index.UnknownElement(a)) || !s.IsDefined(desc.Unknown()) {
		t.Errorf("Unknown element of the new array is %v", desc.Unknown())
	}
	if s.MustDefinition(a).Array != 1 {
		t.Errorf("%v does not hold the new array", a)
	}
	if !s.MustStack(index.GlobalLevel).Arrays.Contains(1) {
		t.Error("The array is not registered in its frame")
	}
	expectInconsistency(t, func() { s.NewArray(a, 2) })

	elem := index.Element(a, "k")
	s.NewIndex(elem)
	desc.Container = desc.With("k", elem)
	s.SetArray(desc)
	if err := s.Validate(); err != nil {
		t.Error(err)
	}

	s.RemoveArray(1)
	if s.MustDefinition(a).HasArray() {
		t.Error("The parent still holds a removed array")
	}
	if s.MustStack(index.GlobalLevel).Arrays.Contains(1) {
		t.Error("The frame still holds a removed array")
	}
	if diff := cmp.Diff([]value.ArrayID{}, s.ArrayIDs()); diff != "" {
		t.Errorf("Arrays (-want +got):\n%s", diff)
	}
}

func TestObjects(t *testing.T) {
	s := New(&tracker.Sequence{}, false)
	desc := s.NewObject(3, "Foo")
	f := index.FieldOf(3, "f")
	s.NewIndex(f)
	s.SetObject(ObjectDescriptor{desc.With("f", f), desc.ID, desc.Type})

	if got := s.MustObject(3).Type; got != "Foo" {
		t.Errorf("Object type is %q", got)
	}
	if err := s.Validate(); err != nil {
		t.Error(err)
	}

	s.RemoveObject(3)
	if s.IsDefined(f) || s.IsDefined(index.UnknownField(3)) {
		t.Error("Fields of a removed object are still defined")
	}
}

func TestObjectChangesTracked(t *testing.T) {
	s := New(&tracker.Sequence{}, false)
	desc := s.NewObject(4, "Foo")

	c := s.Copy()
	f := index.FieldOf(4, "f")
	c.NewIndex(f)
	c.SetObject(ObjectDescriptor{desc.With("f", f), desc.ID, desc.Type})
	if !c.Tracker().HasIndexChange(index.UnknownField(4)) {
		t.Errorf("Object update is not tracked: %v", c.Tracker().IndexChanges())
	}
	if s.Tracker().HasIndexChange(f) {
		t.Error("The change is recorded in the source")
	}
}

func TestTemporaries(t *testing.T) {
	s := New(&tracker.Sequence{}, false)
	ctx := s.MustStack(index.GlobalLevel)

	with := ctx.WithTemporary(ctx.FreeTemporary())
	with = with.WithTemporary(with.FreeTemporary())
	if ctx.HasTemporary(0) {
		t.Error("WithTemporary modified its receiver")
	}
	if diff := cmp.Diff([]int{0, 1}, with.Temporaries()); diff != "" {
		t.Errorf("Temporaries (-want +got):\n%s", diff)
	}

	without := with.WithoutTemporary(0)
	if without.FreeTemporary() != 0 || !with.HasTemporary(0) {
		t.Error("WithoutTemporary is not persistent")
	}

	other := ctx.WithTemporary(5)
	if diff := cmp.Diff([]int{1, 5}, without.UnionTemporaries(other).Temporaries()); diff != "" {
		t.Errorf("Union of temporaries (-want +got):\n%s", diff)
	}
}

type decl string

func (d decl) Hash() uint32             { return utils.HashString(string(d)) }
func (d decl) Equal(o value.Value) bool { return d == o }
func (d decl) String() string           { return string(d) }

func TestDeclarations(t *testing.T) {
	s := New(&tracker.Sequence{}, false)
	s.AddFunction("f", decl("f#1"))
	s.AddFunction("f", decl("f#2"))
	s.AddClass("C", decl("C#1"))

	if s.Functions("f").Count() != 2 {
		t.Errorf("Declarations of f: %v", s.Functions("f"))
	}
	if diff := cmp.Diff([]string{"C"}, s.ClassNames()); diff != "" {
		t.Errorf("Class names (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"f"}, s.Tracker().FunctionChanges()); diff != "" {
		t.Errorf("Function changes (-want +got):\n%s", diff)
	}

	s.SetFunctions("f", value.Entry{})
	if len(s.FunctionNames()) != 0 {
		t.Error("Clearing the declarations did not remove the name")
	}
}

func TestAliasGroups(t *testing.T) {
	s := New(&tracker.Sequence{}, false)
	a, b, c, d := index.Variable{Name: "a"}, index.Variable{Name: "b"}, index.Variable{Name: "c"}, index.Variable{Name: "d"}
	for _, i := range []index.Index{a, b, c, d} {
		s.NewIndex(i)
	}
	s.SetAliases(a, Alias{Must: NewIndexSet(b)})
	s.SetAliases(b, Alias{Must: NewIndexSet(a, c)})
	s.SetAliases(c, Alias{Must: NewIndexSet(b), May: NewIndexSet(d)})
	s.SetAliases(d, Alias{May: NewIndexSet(c)})

	groups := s.AliasGroups()
	if len(groups) != 1 || len(groups[0]) != 3 {
		t.Fatalf("Alias groups: %v", groups)
	}
	if groups[0][0] != index.Index(a) {
		t.Errorf("Group is not sorted: %v", groups[0])
	}
	if err := s.Validate(); err != nil {
		t.Error(err)
	}

	s.SetAliases(a, Alias{Must: NewIndexSet(b, d)})
	if err := s.Validate(); !errors.Is(err, utils.ErrStructuralInconsistency) {
		t.Errorf("An asymmetric must alias passed validation: %v", err)
	}
}

func TestDefinitionEqual(t *testing.T) {
	a := index.Variable{Name: "a"}
	tests := []struct {
		a, b  IndexDefinition
		equal bool
	}{
		{IndexDefinition{}, IndexDefinition{}, true},
		{IndexDefinition{Array: 1}, IndexDefinition{Array: 2}, true},
		{IndexDefinition{Array: 1}, IndexDefinition{}, false},
		{IndexDefinition{Objects: NewObjectSet(1)}, IndexDefinition{Objects: NewObjectSet(1)}, true},
		{IndexDefinition{Objects: NewObjectSet(1)}, IndexDefinition{}, false},
		{IndexDefinition{Aliases: Alias{Must: NewIndexSet(a)}}, IndexDefinition{Aliases: Alias{May: NewIndexSet(a)}}, false},
	}

	for _, test := range tests {
		if res := test.a.Equal(test.b); res != test.equal {
			t.Errorf("%v = %v is %v, expected %v", test.a, test.b, res, test.equal)
		}
	}
}
