package memory

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"github.com/cs-au-dk/memsnap/analysis/index"
	"github.com/cs-au-dk/memsnap/analysis/lattice"
	"github.com/cs-au-dk/memsnap/analysis/value"
	"github.com/cs-au-dk/memsnap/utils"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

func TestMain(m *testing.M) {
	utils.Options{NoColorize: true}.Apply()
	os.Exit(m.Run())
}

var allStrategies = []Strategy{Eager, Lazy, Tracking}

func newFactory(strategy Strategy) *Factory {
	opts := utils.DefaultOptions()
	opts.Strategy = strategy
	return NewFactory(opts, lattice.Assistant{}, Context{})
}

// forEachStrategy runs f once per container strategy.
func forEachStrategy(t *testing.T, f func(t *testing.T, fac *Factory)) {
	for _, strategy := range allStrategies {
		strategy := strategy
		t.Run(string(strategy), func(t *testing.T) {
			f(t, newFactory(strategy))
		})
	}
}

// transaction runs f in a transaction of s and returns the commit result.
func transaction(s *Snapshot, f func()) bool {
	s.StartTransaction()
	f()
	return s.CommitTransaction()
}

// extended creates a snapshot extending the inputs and runs f on it.
func extended(t *testing.T, fac *Factory, f func(s *Snapshot), inputs ...*Snapshot) *Snapshot {
	t.Helper()
	s := fac.New()
	transaction(s, func() {
		if len(inputs) > 0 {
			if err := s.Extend(inputs...); err != nil {
				t.Fatal(err)
			}
		}
		if f != nil {
			f(s)
		}
	})
	return s
}

func local(names ...string) index.Path {
	return index.VariablePath(index.LocalOnly, index.GlobalLevel, names...)
}

func expectEntry(t *testing.T, s *Snapshot, p index.Path, expected value.Entry) {
	t.Helper()
	if got := s.Read(p); !got.Equal(expected) {
		t.Errorf("Read(%v) = %v, expected %v", p, got, expected)
	}
}

func expectContains(t *testing.T, s *Snapshot, p index.Path, vs ...value.Value) {
	t.Helper()
	got := s.Read(p)
	for _, v := range vs {
		if !got.Contains(v) {
			t.Errorf("Read(%v) = %v, expected it to contain %v", p, got, v)
		}
	}
}

func expectInconsistency(t *testing.T, f func()) {
	t.Helper()
	defer func() {
		err, _ := recover().(error)
		if !errors.Is(err, ErrStructuralInconsistency) {
			t.Errorf("Expected a structural inconsistency, got %v", err)
		}
	}()
	f()
}

func TestStrongWrite(t *testing.T) {
	forEachStrategy(t, func(t *testing.T, fac *Factory) {
		s := extended(t, fac, func(s *Snapshot) {
			s.Assign(local("x"), lattice.Ints(1), false)
			s.Assign(local("x"), lattice.Ints(2), false)
		})
		expectEntry(t, s, local("x"), lattice.Ints(2))
		if !s.IsDefined(local("x")) {
			t.Error("$x is not defined")
		}
	})
}

func TestReadUndefined(t *testing.T) {
	forEachStrategy(t, func(t *testing.T, fac *Factory) {
		s := extended(t, fac, nil)
		expectEntry(t, s, local("y"), value.UndefinedEntry())
		if s.IsDefined(local("y")) {
			t.Error("$y is defined in an empty snapshot")
		}
		expectEntry(t, s, index.VariablePath(index.LocalOnly, 3, "y"), value.UndefinedEntry())
	})
}

func TestWriteThroughUnknownKey(t *testing.T) {
	forEachStrategy(t, func(t *testing.T, fac *Factory) {
		s := extended(t, fac, func(s *Snapshot) {
			s.Assign(local("a").Index("1"), lattice.Ints(1), false)
			s.Assign(local("a").UnknownIndex(), lattice.Strs("x"), false)
			s.Assign(local("a").Index("2"), lattice.Ints(2), false)
		})

		expectEntry(t, s, local("a").Index("1"), value.NewEntry(lattice.Int(1), lattice.Str("x")))
		expectEntry(t, s, local("a").Index("2"), lattice.Ints(2))
		expectEntry(t, s, local("a").UnknownIndex(), value.NewEntry(value.Undefined, lattice.Str("x")))
		expectContains(t, s, local("a").AnyIndex(), lattice.Int(1), lattice.Int(2), lattice.Str("x"))

		// Reading an element that was never written goes to the unknown
		// element.
		expectEntry(t, s, local("a").Index("3"), value.NewEntry(value.Undefined, lattice.Str("x")))
		if err := s.Structure().Validate(); err != nil {
			t.Error(err)
		}
	})
}

func TestWriteAmbiguousPath(t *testing.T) {
	forEachStrategy(t, func(t *testing.T, fac *Factory) {
		s := extended(t, fac, func(s *Snapshot) {
			s.Assign(local("a"), lattice.Ints(1), false)
			s.Assign(local("b"), lattice.Ints(2), false)
			s.Assign(local("a", "b"), lattice.Ints(3), false)
		})
		expectEntry(t, s, local("a"), lattice.Ints(1, 3))
		expectEntry(t, s, local("b"), lattice.Ints(2, 3))

		s2 := extended(t, fac, func(s *Snapshot) {
			s.Assign(local("a", "b"), lattice.Ints(4), true)
		}, s)
		expectEntry(t, s2, local("a"), lattice.Ints(4))
		expectEntry(t, s2, local("b"), lattice.Ints(4))
	})
}

func TestArrayCopy(t *testing.T) {
	forEachStrategy(t, func(t *testing.T, fac *Factory) {
		s := extended(t, fac, func(s *Snapshot) {
			s.Assign(local("a").Index("k"), lattice.Ints(1), false)
			s.Assign(local("b"), s.Read(local("a")), false)
			s.Assign(local("b").Index("k"), lattice.Ints(2), false)
		})

		expectEntry(t, s, local("a").Index("k"), lattice.Ints(1))
		expectEntry(t, s, local("b").Index("k"), lattice.Ints(2))
		a, b := s.Read(local("a")).Arrays(), s.Read(local("b")).Arrays()
		if len(a) != 1 || len(b) != 1 || a[0] == b[0] {
			t.Errorf("Expected distinct arrays, got %v and %v", a, b)
		}
	})
}

func TestTemporaryArray(t *testing.T) {
	forEachStrategy(t, func(t *testing.T, fac *Factory) {
		s := extended(t, fac, func(s *Snapshot) {
			tmp, arr := s.CreateArray()
			s.Assign(index.TemporaryPath(tmp).Index("k"), lattice.Ints(7), false)
			s.Assign(local("a"), value.NewEntry(arr), false)
			s.ReleaseTemporary(tmp)
		})

		expectEntry(t, s, local("a").Index("k"), lattice.Ints(7))
		if len(s.Structure().MustStack(index.GlobalLevel).Temporaries()) != 0 {
			t.Error("The temporary is still live")
		}
		if err := s.Structure().Validate(); err != nil {
			t.Error(err)
		}
	})
}

func TestImplicitObject(t *testing.T) {
	forEachStrategy(t, func(t *testing.T, fac *Factory) {
		s := extended(t, fac, func(s *Snapshot) {
			s.Assign(local("o").Field("f"), lattice.Ints(5), false)
		})
		expectEntry(t, s, local("o").Field("f"), lattice.Ints(5))
		if types := s.ObjectTypes(s.Read(local("o"))); len(types) != 1 || types[0] != "stdClass" {
			t.Errorf("Expected an implicit stdClass object, got %v", types)
		}
	})
}

func TestAliases(t *testing.T) {
	forEachStrategy(t, func(t *testing.T, fac *Factory) {
		s := extended(t, fac, func(s *Snapshot) {
			s.Assign(local("a"), lattice.Ints(1), false)
			s.AssignAlias(local("b"), local("a"))
			s.Assign(local("b"), lattice.Ints(2), false)
		})
		expectEntry(t, s, local("a"), lattice.Ints(2))
		expectEntry(t, s, local("b"), lattice.Ints(2))

		a := index.Variable{Name: "a"}
		b := index.Variable{Name: "b"}
		if !s.Aliases(a).Must.Contains(b) || !s.Aliases(b).Must.Contains(a) {
			t.Errorf("Expected $a and $b to be must aliases, got %v and %v", s.Structure().MustDefinition(a), s.Structure().MustDefinition(b))
		}

		// Writing the other side is visible as well.
		s2 := extended(t, fac, func(s *Snapshot) {
			s.Assign(local("a"), lattice.Ints(3), false)
		}, s)
		expectEntry(t, s2, local("b"), lattice.Ints(3))
	})
}

func TestAliasTransitive(t *testing.T) {
	forEachStrategy(t, func(t *testing.T, fac *Factory) {
		s := extended(t, fac, func(s *Snapshot) {
			s.Assign(local("a"), lattice.Ints(1), false)
			s.AssignAlias(local("b"), local("a"))
			s.AssignAlias(local("c"), local("b"))
			s.Assign(local("c"), lattice.Ints(9), false)
		})
		for _, name := range []string{"a", "b", "c"} {
			expectEntry(t, s, local(name), lattice.Ints(9))
		}
		if groups := s.Structure().AliasGroups(); len(groups) != 1 || len(groups[0]) != 3 {
			t.Errorf("Expected one alias group of three, got %v", groups)
		}
	})
}

func TestMayAlias(t *testing.T) {
	forEachStrategy(t, func(t *testing.T, fac *Factory) {
		s := extended(t, fac, func(s *Snapshot) {
			s.Assign(local("a"), lattice.Ints(1), false)
			s.Assign(local("b"), lattice.Ints(2), false)
			s.AssignAlias(local("c"), local("a", "b"))
			s.Assign(local("c"), lattice.Ints(3), false)
		})
		expectEntry(t, s, local("c"), lattice.Ints(3))
		expectContains(t, s, local("a"), lattice.Int(1), lattice.Int(3))
		expectContains(t, s, local("b"), lattice.Int(2), lattice.Int(3))

		c := index.Variable{Name: "c"}
		if al := s.Aliases(c); al.Must.Len() != 0 || al.May.Len() != 2 {
			t.Errorf("Expected two may aliases of $c, got %v", s.Structure().MustDefinition(c))
		}
	})
}

func TestAliasElementWrites(t *testing.T) {
	tests := []struct {
		name     string
		program  func(s *Snapshot)
		expected map[string]value.Entry
	}{
		{
			"write through the alias",
			func(s *Snapshot) {
				s.Assign(local("a").Index("1"), lattice.Ints(1), false)
				s.AssignAlias(local("b"), local("a"))
				s.Assign(local("b").Index("1"), lattice.Ints(5), false)
			},
			map[string]value.Entry{"a[1]": lattice.Ints(5), "b[1]": lattice.Ints(5)},
		},
		{
			"write through the source",
			func(s *Snapshot) {
				s.Assign(local("a").Index("1"), lattice.Ints(1), false)
				s.AssignAlias(local("b"), local("a"))
				s.Assign(local("a").Index("2"), lattice.Ints(7), false)
			},
			map[string]value.Entry{"b[1]": lattice.Ints(1), "b[2]": lattice.Ints(7), "a[2]": lattice.Ints(7)},
		},
		{
			"elements written before the alias",
			func(s *Snapshot) {
				s.Assign(local("a").Index("1"), lattice.Ints(1), false)
				s.Assign(local("a").Index("2"), lattice.Ints(2), false)
				s.AssignAlias(local("b"), local("a"))
			},
			map[string]value.Entry{"b[1]": lattice.Ints(1), "b[2]": lattice.Ints(2)},
		},
		{
			"alias of an element",
			func(s *Snapshot) {
				s.Assign(local("a").Index("1"), lattice.Ints(1), false)
				s.AssignAlias(local("b"), local("a").Index("1"))
				s.Assign(local("b"), lattice.Ints(5), false)
				s.Assign(local("a").Index("2"), lattice.Ints(2), false)
			},
			map[string]value.Entry{"a[1]": lattice.Ints(5), "b": lattice.Ints(5), "a[2]": lattice.Ints(2)},
		},
		{
			"element written back through an element alias",
			func(s *Snapshot) {
				s.Assign(local("a").Index("1"), lattice.Ints(1), false)
				s.AssignAlias(local("b"), local("a").Index("1"))
				s.Assign(local("a").Index("1"), lattice.Ints(6), false)
			},
			map[string]value.Entry{"a[1]": lattice.Ints(6), "b": lattice.Ints(6)},
		},
		{
			"nested array through an element alias",
			func(s *Snapshot) {
				s.Assign(local("a").Index("1"), lattice.Ints(1), false)
				s.AssignAlias(local("b"), local("a").Index("1"))
				s.Assign(local("b").Index("2"), lattice.Ints(3), false)
			},
			map[string]value.Entry{"a[1][2]": lattice.Ints(3), "b[2]": lattice.Ints(3)},
		},
	}

	paths := map[string]index.Path{
		"a[1]":    local("a").Index("1"),
		"a[2]":    local("a").Index("2"),
		"a[1][2]": local("a").Index("1").Index("2"),
		"b":       local("b"),
		"b[1]":    local("b").Index("1"),
		"b[2]":    local("b").Index("2"),
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			forEachStrategy(t, func(t *testing.T, fac *Factory) {
				s := extended(t, fac, test.program)
				for name, expected := range test.expected {
					expectEntry(t, s, paths[name], expected)
				}
			})
		})
	}
}

func TestMayAliasElementWrite(t *testing.T) {
	forEachStrategy(t, func(t *testing.T, fac *Factory) {
		s := extended(t, fac, func(s *Snapshot) {
			s.Assign(local("a").Index("1"), lattice.Ints(1), false)
			s.Assign(local("b").Index("1"), lattice.Ints(2), false)
			s.AssignAlias(local("c"), local("a", "b"))
			s.Assign(local("c").Index("1"), lattice.Ints(3), false)
		})
		expectEntry(t, s, local("c").Index("1"), lattice.Ints(3))
		expectContains(t, s, local("a").Index("1"), lattice.Int(1), lattice.Int(3))
		expectContains(t, s, local("b").Index("1"), lattice.Int(2), lattice.Int(3))
	})
}

func TestAliasImplicitObject(t *testing.T) {
	forEachStrategy(t, func(t *testing.T, fac *Factory) {
		s := extended(t, fac, func(s *Snapshot) {
			s.Assign(local("a"), lattice.Ints(1), false)
			s.AssignAlias(local("b"), local("a"))
			s.Assign(local("b").Field("f"), lattice.Ints(5), false)
		})
		expectEntry(t, s, local("a").Field("f"), lattice.Ints(5))
		if a, b := s.Read(local("a")), s.Read(local("b")); !a.Equal(b) || len(a.Objects()) != 1 {
			t.Errorf("Expected $a and $b to hold the same object, got %v and %v", a, b)
		}
	})
}

func TestAliasHelpers(t *testing.T) {
	forEachStrategy(t, func(t *testing.T, fac *Factory) {
		a := index.Variable{Name: "a"}
		b := index.Variable{Name: "b"}
		c := index.Variable{Name: "c"}

		s := extended(t, fac, func(s *Snapshot) {
			for _, name := range []string{"a", "b", "c"} {
				s.Assign(local(name), lattice.Ints(0), false)
			}
			s.MustSetAliases(a, []index.Index{b}, []index.Index{c})
		})
		if al := s.Aliases(a); !al.Must.Contains(b) || !al.May.Contains(c) {
			t.Errorf("Unexpected aliases of $a: %v", s.Structure().MustDefinition(a))
		}
		if !s.Aliases(c).May.Contains(a) {
			t.Error("May aliases are not symmetric")
		}

		s2 := extended(t, fac, func(s *Snapshot) {
			s.ConvertAliasesToMay(a)
		}, s)
		if al := s2.Aliases(a); al.Must.Len() != 0 || !al.May.Contains(b) {
			t.Errorf("Unexpected aliases of $a after conversion: %v", s2.Structure().MustDefinition(a))
		}

		s3 := extended(t, fac, func(s *Snapshot) {
			s.DestroyAliases(a)
		}, s2)
		for _, i := range []index.Index{a, b, c} {
			if !s3.Aliases(i).IsEmpty() {
				t.Errorf("%v still has aliases: %v", i, s3.Structure().MustDefinition(i))
			}
		}
	})
}

func TestInfoMode(t *testing.T) {
	forEachStrategy(t, func(t *testing.T, fac *Factory) {
		s := extended(t, fac, func(s *Snapshot) {
			s.Assign(local("x"), lattice.Ints(1), false)
			s.SetMode(InfoLevel)
			s.Assign(local("x"), lattice.Strs("tainted"), false)
			s.SetMode(MemoryLevel)
		})

		expectEntry(t, s, local("x"), lattice.Ints(1))
		s.SetMode(InfoLevel)
		expectEntry(t, s, local("x"), lattice.Strs("tainted"))
		expectEntry(t, s, local("y"), value.Entry{})
	})
}

func TestWriteOutsideTransaction(t *testing.T) {
	s := newFactory(Tracking).New()
	expectInconsistency(t, func() {
		s.Assign(local("x"), lattice.Ints(1), false)
	})
	expectInconsistency(t, func() {
		s.Commit(5)
	})

	s.StartTransaction()
	expectInconsistency(t, s.StartTransaction)
}

func TestLockedSnapshot(t *testing.T) {
	s := newFactory(Tracking).New()
	s.Lock()
	s.StartTransaction()
	expectInconsistency(t, func() {
		s.Assign(local("x"), lattice.Ints(1), false)
	})

	s.Unlock()
	s.Assign(local("x"), lattice.Ints(1), false)
	s.CommitTransaction()
	expectEntry(t, s, local("x"), lattice.Ints(1))
}

func TestBenchmark(t *testing.T) {
	opts := utils.DefaultOptions()
	bench := NewBenchmark()
	fac := NewFactory(opts, lattice.Assistant{}, Context{Benchmark: bench})

	s := fac.New()
	transaction(s, func() {
		s.Assign(local("x"), lattice.Ints(1), false)
		s.Assign(local("y"), lattice.Ints(2), false)
	})

	if n := bench.Count("assign"); n != 2 {
		t.Errorf("Expected 2 assignments, got %d", n)
	}
	if n := bench.Count("commit"); n != 1 {
		t.Errorf("Expected 1 commit, got %d", n)
	}
	if !strings.Contains(bench.String(), "assign") {
		t.Errorf("Benchmark report misses assignments:\n%s", bench)
	}

	var disabled *Benchmark
	if disabled.Enabled() || disabled.Count("assign") != 0 {
		t.Error("A nil benchmark is not disabled")
	}
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	l := logrus.New()
	l.SetOutput(&buf)
	l.SetLevel(logrus.DebugLevel)
	l.SetFormatter(&logrus.TextFormatter{DisableColors: true, DisableTimestamp: true})

	fac := NewFactory(utils.DefaultOptions(), lattice.Assistant{}, Context{Logger: NewLogrusLogger(l)})
	s := fac.New()
	transaction(s, func() {})

	if out := buf.String(); !strings.Contains(out, "start transaction 1") || !strings.Contains(out, "snapshot=1") {
		t.Errorf("Unexpected log output:\n%s", out)
	}

	opts := utils.DefaultOptions()
	opts.LogLevel = "loud"
	if _, err := NewLogger(opts); err == nil {
		t.Error("Expected an error for an unknown log level")
	}
	opts.LogLevel = "info"
	if _, err := NewLogger(opts); err != nil {
		t.Error(err)
	}
}
