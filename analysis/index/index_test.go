package index

import (
	"testing"
)

func TestIndexEquality(t *testing.T) {
	a := Variable{"a", 0}
	tests := []struct {
		i, j  Index
		equal bool
	}{
		{a, Variable{"a", 0}, true},
		{a, Variable{"a", 1}, false},
		{a, Control{"a", 0}, false},
		{Element(a, "1"), Element(Variable{"a", 0}, "1"), true},
		{Element(a, "1"), Element(a, "2"), false},
		{Element(Element(a, "1"), "x"), Element(Element(a, "1"), "x"), true},
		{UnknownElement(a), UnknownElement(a), true},
		{UnknownElement(a), Element(a, "?"), false},
		{FieldOf(3, "f"), FieldOf(3, "f"), true},
		{FieldOf(3, "f"), FieldOf(4, "f"), false},
		{UnknownField(3), UnknownField(3), true},
	}

	for _, test := range tests {
		if res := test.i.Equal(test.j); res != test.equal {
			t.Errorf("%v = %v is %v, expected %v", test.i, test.j, res, test.equal)
		}
		if test.equal && test.i.Hash() != test.j.Hash() {
			t.Errorf("equal indexes %v and %v hash differently", test.i, test.j)
		}
	}
}

func TestIndexAsMapKey(t *testing.T) {
	m := map[Index]int{}
	m[Element(Variable{"a", 0}, "1")] = 1
	if m[Element(Variable{"a", 0}, "1")] != 1 {
		t.Error("structurally equal indexes are different map keys")
	}
}

func TestDerivation(t *testing.T) {
	a := Variable{"a", 2}
	a1 := Element(a, "1")
	a1x := Element(a1, "x")

	if Root(a1x) != Index(a) {
		t.Errorf("Root(%v) = %v", a1x, Root(a1x))
	}
	if Depth(a1x) != 2 {
		t.Errorf("Depth(%v) = %d", a1x, Depth(a1x))
	}
	if a1x.CallLevel() != 2 {
		t.Errorf("%v inherits call level %d", a1x, a1x.CallLevel())
	}
	if !IsPrefixOf(a, a1x) || !IsPrefixOf(a1x, a1x) || IsPrefixOf(a1x, a1) {
		t.Error("IsPrefixOf is wrong")
	}
	chain := Chain(a1x)
	if len(chain) != 3 || chain[0] != Index(a) || chain[1] != Index(a1) || chain[2] != Index(a1x) {
		t.Errorf("Chain(%v) = %v", a1x, chain)
	}
	if FieldOf(1, "f").CallLevel() != GlobalLevel {
		t.Error("object fields live in the global frame")
	}
}

func TestIsUnknown(t *testing.T) {
	for _, i := range []Index{AnyVariable{0}, AnyControl{1}, UnknownElement(Variable{"a", 0}), UnknownField(1)} {
		if !IsUnknown(i) {
			t.Errorf("%v should be unknown", i)
		}
	}
	for _, i := range []Index{Variable{"a", 0}, Element(Variable{"a", 0}, "k"), FieldOf(1, "f"), Temporary{1, 0}} {
		if IsUnknown(i) {
			t.Errorf("%v should not be unknown", i)
		}
	}
}

func TestPath(t *testing.T) {
	base := VariablePath(LocalOnly, 1, "a")
	direct := base.Index("1").Field("f")
	weak := base.Index("1", "2")

	if !direct.IsDirect() || weak.IsDirect() || base.AnyIndex().IsDirect() || base.UnknownIndex().IsDirect() {
		t.Error("IsDirect classification is wrong")
	}
	if len(base.Segments()) != 1 {
		t.Error("extending a path modified its base")
	}
	if !base.UnknownIndex().Segments()[1].IsUnknown() || base.AnyIndex().Segments()[1].IsUnknown() {
		t.Error("unknown and any segments are confused")
	}
	if VariablePath(GlobalOnly, 3, "g").RootLevel() != GlobalLevel {
		t.Error("global paths resolve in the global frame")
	}
	if !TemporaryPath(Temporary{4, 1}).IsDirect() {
		t.Error("temporaries are direct")
	}
}
