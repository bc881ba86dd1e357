package indenter

import (
	"testing"
)

func TestNesting(t *testing.T) {
	inner := Start("[").NestStrings("x", "y").End("]")
	tests := []struct {
		got, want string
	}{
		{Start("{").End("}"), "{}"},
		{Start("{").NestStrings("a").End("}"), "{a}"},
		{Start("{").NestStrings("a", "b").End("}"), "{\n  a\n  b\n}"},
		{Start("{").NestStringsSep(",", "a", "b").End("}"), "{\n  a,\n  b\n}"},
		{Start("{").NestStrings("k: "+inner, "c").End("}"), "{\n  k: [\n    x\n    y\n  ]\n  c\n}"},
	}

	for _, test := range tests {
		if test.got != test.want {
			t.Errorf("Got:\n%s\nExpected:\n%s", test.got, test.want)
		}
	}
}
