package index

import (
	"fmt"
	"strings"
)

// GlobalContext selects the frame that the root variable of a path is
// resolved in.
type GlobalContext int

const (
	// LocalOnly resolves the root in the frame of the path's call level.
	LocalOnly GlobalContext = iota
	// GlobalOnly resolves the root in the global frame.
	GlobalOnly
)

// SegmentKind is the kind of a path segment.
type SegmentKind int

const (
	VariableSegment SegmentKind = iota
	ControlSegment
	TemporarySegment
	FieldSegment
	IndexSegment
)

// Segment is one step of a memory path. A segment with several names may
// denote any of them; an Any segment denotes every child plus the unknown
// child; a segment without names that is not Any denotes only the unknown
// child.
type Segment struct {
	Kind      SegmentKind
	Names     []string
	IsAny     bool
	Temporary Temporary
}

// IsUnknown checks whether the segment denotes only the unknown child.
func (s Segment) IsUnknown() bool {
	return s.Kind != TemporarySegment && !s.IsAny && len(s.Names) == 0
}

// IsDirect checks whether the segment denotes exactly one location.
func (s Segment) IsDirect() bool {
	return s.Kind == TemporarySegment || (!s.IsAny && len(s.Names) == 1)
}

func (s Segment) String() string {
	var names string
	switch {
	case s.Kind == TemporarySegment:
		return s.Temporary.String()
	case s.IsAny:
		names = colorize.Any("*")
	case s.IsUnknown():
		names = colorize.Any("?")
	default:
		keys := make([]string, len(s.Names))
		for i, n := range s.Names {
			keys[i] = colorize.Key(n)
		}
		names = strings.Join(keys, "|")
	}

	switch s.Kind {
	case VariableSegment:
		return colorize.Variable("$") + names
	case ControlSegment:
		return colorize.Control("#") + names
	case FieldSegment:
		return "->" + names
	default:
		return "[" + names + "]"
	}
}

// Path is an access expression: a root segment followed by field and index
// segments. Paths are immutable; extending a path copies it.
type Path struct {
	segments []Segment
	Global   GlobalContext
	Level    int
}

func rootPath(seg Segment, global GlobalContext, level int) Path {
	return Path{[]Segment{seg}, global, level}
}

// VariablePath creates a path to the variable(s) with the given names.
func VariablePath(global GlobalContext, level int, names ...string) Path {
	return rootPath(Segment{Kind: VariableSegment, Names: names}, global, level)
}

// AnyVariablePath creates a path to every variable of the frame.
func AnyVariablePath(global GlobalContext, level int) Path {
	return rootPath(Segment{Kind: VariableSegment, IsAny: true}, global, level)
}

// ControlPath creates a path to the control variable(s) with the given names.
func ControlPath(global GlobalContext, level int, names ...string) Path {
	return rootPath(Segment{Kind: ControlSegment, Names: names}, global, level)
}

// TemporaryPath creates a path to a temporary location.
func TemporaryPath(tmp Temporary) Path {
	return rootPath(Segment{Kind: TemporarySegment, Temporary: tmp}, LocalOnly, tmp.Level)
}

func (p Path) extend(seg Segment) Path {
	segments := make([]Segment, len(p.segments)+1)
	copy(segments, p.segments)
	segments[len(p.segments)] = seg
	return Path{segments, p.Global, p.Level}
}

// Field extends the path with access to the named field(s).
func (p Path) Field(names ...string) Path {
	return p.extend(Segment{Kind: FieldSegment, Names: names})
}

// AnyField extends the path with access to every field.
func (p Path) AnyField() Path {
	return p.extend(Segment{Kind: FieldSegment, IsAny: true})
}

// UnknownField extends the path with access to the unknown field.
func (p Path) UnknownField() Path {
	return p.extend(Segment{Kind: FieldSegment})
}

// Index extends the path with access to the named element(s).
func (p Path) Index(names ...string) Path {
	return p.extend(Segment{Kind: IndexSegment, Names: names})
}

// AnyIndex extends the path with access to every element.
func (p Path) AnyIndex() Path {
	return p.extend(Segment{Kind: IndexSegment, IsAny: true})
}

// UnknownIndex extends the path with access through an abstract key.
func (p Path) UnknownIndex() Path {
	return p.extend(Segment{Kind: IndexSegment})
}

// Segments returns the segments of the path, root first.
func (p Path) Segments() []Segment {
	return p.segments
}

// RootLevel is the call level the root segment is resolved in.
func (p Path) RootLevel() int {
	if p.Global == GlobalOnly {
		return GlobalLevel
	}
	return p.Level
}

// IsDirect checks whether the path denotes exactly one location.
func (p Path) IsDirect() bool {
	for _, s := range p.segments {
		if !s.IsDirect() {
			return false
		}
	}
	return true
}

func (p Path) String() string {
	var b strings.Builder
	for _, s := range p.segments {
		b.WriteString(s.String())
	}
	if l := p.RootLevel(); l != GlobalLevel && p.segments[0].Kind != TemporarySegment {
		b.WriteString(colorize.Level(fmt.Sprintf("@%d", l)))
	}
	return b.String()
}
