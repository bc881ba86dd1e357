package memory

import (
	"github.com/cs-au-dk/memsnap/analysis/index"
	"github.com/cs-au-dk/memsnap/analysis/value"
)

// Entry is a memory path bound to a snapshot. It lets a driver navigate
// and update the snapshot without building paths itself.
type Entry struct {
	s    *Snapshot
	path index.Path
}

// At binds p to s.
func (s *Snapshot) At(p index.Path) Entry {
	return Entry{s, p}
}

// Variable is the entry of the local variable(s) of the current frame.
func (s *Snapshot) Variable(names ...string) Entry {
	return s.At(index.VariablePath(index.LocalOnly, s.callLevel, names...))
}

// GlobalVariable is the entry of the global variable(s).
func (s *Snapshot) GlobalVariable(names ...string) Entry {
	return s.At(index.VariablePath(index.GlobalOnly, s.callLevel, names...))
}

// ControlVariable is the entry of the control variable(s) of the current
// frame.
func (s *Snapshot) ControlVariable(names ...string) Entry {
	return s.At(index.ControlPath(index.LocalOnly, s.callLevel, names...))
}

func (s *Snapshot) TemporaryEntry(tmp index.Temporary) Entry {
	return s.At(index.TemporaryPath(tmp))
}

func (e Entry) Path() index.Path        { return e.path }
func (e Entry) Snapshot() *Snapshot     { return e.s }
func (e Entry) String() string          { return e.path.String() }
func (e Entry) Read() value.Entry       { return e.s.Read(e.path) }
func (e Entry) IsDefined() bool         { return e.s.IsDefined(e.path) }
func (e Entry) ReadAnyIndex() Entry     { return Entry{e.s, e.path.AnyIndex()} }
func (e Entry) ReadAnyField() Entry     { return Entry{e.s, e.path.AnyField()} }
func (e Entry) ReadUnknownIndex() Entry { return Entry{e.s, e.path.UnknownIndex()} }

// ReadIndex is the entry of the element(s) with the given keys.
func (e Entry) ReadIndex(names ...string) Entry {
	return Entry{e.s, e.path.Index(names...)}
}

// ReadField is the entry of the field(s) with the given names.
func (e Entry) ReadField(names ...string) Entry {
	return Entry{e.s, e.path.Field(names...)}
}

func (e Entry) Write(v value.Entry, forceStrong bool) {
	e.s.Assign(e.path, v, forceStrong)
}

func (e Entry) WriteWithoutCopy(v value.Entry) {
	e.s.AssignWithoutCopy(e.path, v)
}

// SetAliases makes the locations of e references to those of source.
func (e Entry) SetAliases(source Entry) {
	e.s.AssignAlias(e.path, source.path)
}

// IterateFields returns an entry for every field of the objects e holds.
func (e Entry) IterateFields() []Entry {
	var res []Entry
	for _, name := range e.s.FieldNames(e.Read()) {
		res = append(res, e.ReadField(name))
	}
	return res
}

// IterateIndexes returns an entry for every element of the arrays e holds.
func (e Entry) IterateIndexes() []Entry {
	var res []Entry
	for _, name := range e.s.IndexNames(e.Read()) {
		res = append(res, e.ReadIndex(name))
	}
	return res
}

// ResolveType returns the class names of the objects e holds.
func (e Entry) ResolveType() []string {
	return e.s.ObjectTypes(e.Read())
}

// ResolveMethod resolves method name on the objects e holds.
func (e Entry) ResolveMethod(name string) value.Entry {
	return e.s.Methods(e.Read(), name)
}
