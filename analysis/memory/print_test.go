package memory

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cs-au-dk/memsnap/analysis/lattice"

	"github.com/sebdah/goldie/v2"
)

func dumpSnapshot(t *testing.T) *Snapshot {
	return extended(t, newFactory(Tracking), func(s *Snapshot) {
		s.Assign(local("x"), lattice.Ints(1), false)
		s.Assign(local("a").Index("k"), lattice.Strs("v"), false)
		s.AssignAlias(local("b"), local("x"))
		s.DeclareFunction("f", lattice.Function{Name: "f", Decl: 1})
	})
}

func TestString(t *testing.T) {
	s := dumpSnapshot(t)
	goldie.New(t).Assert(t, "dump", []byte(s.String()))
}

func TestWriteDot(t *testing.T) {
	s := dumpSnapshot(t)
	var buf bytes.Buffer
	if err := s.WriteDot(&buf); err != nil {
		t.Fatal(err)
	}

	out := buf.String()
	for _, expected := range []string{"digraph", "frame 0", "$a[k]", "dashed"} {
		if !strings.Contains(out, expected) {
			t.Errorf("DOT output misses %q:\n%s", expected, out)
		}
	}
	if n := s.DotGraph().CountNodes(); n != len(s.Structure().Indexes()) {
		t.Errorf("Expected one node per index, got %d nodes for %d indexes", n, len(s.Structure().Indexes()))
	}
}

func TestRenderDot(t *testing.T) {
	s := dumpSnapshot(t)
	img, err := s.RenderDot(filepath.Join(t.TempDir(), "snapshot"), "svg")
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Ext(img) != ".svg" {
		t.Errorf("Unexpected image path %s", img)
	}
	info, err := os.Stat(img)
	if err != nil {
		t.Fatal(err)
	}
	if info.Size() == 0 {
		t.Errorf("%s is empty", img)
	}
}
