// Package memory implements memory snapshots: the program state of the
// abstract interpreter, together with the algorithms that read, write,
// merge and commit it.
package memory

import (
	"fmt"

	"github.com/cs-au-dk/memsnap/analysis/data"
	"github.com/cs-au-dk/memsnap/analysis/index"
	"github.com/cs-au-dk/memsnap/analysis/structure"
	"github.com/cs-au-dk/memsnap/analysis/value"
)

// Mode selects which data container the snapshot reads and writes.
type Mode int

const (
	// MemoryLevel holds the abstract values of locations.
	MemoryLevel Mode = iota
	// InfoLevel holds auxiliary facts about locations.
	InfoLevel
)

func (m Mode) String() string {
	if m == InfoLevel {
		return "info"
	}
	return "memory"
}

// Snapshot is one abstract program state. It is mutated only between
// StartTransaction and a commit.
type Snapshot struct {
	factory *Factory
	id      uint64

	structure *Proxy[*structure.Structure]
	memory    *Proxy[*data.Data]
	info      *Proxy[*data.Data]

	mode          Mode
	callLevel     int
	transactions  int
	inTransaction bool

	// State at the start of the current transaction.
	oldStructure *structure.Structure
	oldMemory    *data.Data
	oldInfo      *data.Data

	// Sources of the indexes built by the last merge.
	dataSources map[index.Index][]DataSource

	log Logger
}

func (s *Snapshot) ID() uint64                { return s.id }
func (s *Snapshot) Factory() *Factory         { return s.factory }
func (s *Snapshot) CallLevel() int            { return s.callLevel }
func (s *Snapshot) NumberOfTransactions() int { return s.transactions }
func (s *Snapshot) InTransaction() bool       { return s.inTransaction }
func (s *Snapshot) Mode() Mode                { return s.mode }

// SetMode switches the data container used by reads and writes.
func (s *Snapshot) SetMode(m Mode) {
	s.mode = m
}

// Structure returns the current structure for inspection.
func (s *Snapshot) Structure() *structure.Structure {
	return s.structure.Readonly()
}

// Data returns the current data container of the active mode.
func (s *Snapshot) Data() *data.Data {
	return s.dataProxy().Readonly()
}

// Lock prevents write access to the containers of the snapshot.
func (s *Snapshot) Lock() {
	s.structure.Lock()
	s.memory.Lock()
	s.info.Lock()
}

func (s *Snapshot) Unlock() {
	s.structure.Unlock()
	s.memory.Unlock()
	s.info.Unlock()
}

// StartTransaction opens a transaction. The current state is kept for the
// comparison done by the commit closing it.
func (s *Snapshot) StartTransaction() {
	if s.inTransaction {
		inconsistent("%s is already in a transaction", s.Describe())
	}
	s.oldStructure = s.structure.Share()
	s.oldMemory = s.memory.Share()
	s.oldInfo = s.info.Share()
	s.transactions++
	s.inTransaction = true
	s.log.Debugf("start transaction %d", s.transactions)
}

func (s *Snapshot) share() {
	s.structure.Share()
	s.memory.Share()
	s.info.Share()
}

func (s *Snapshot) dataProxy() *Proxy[*data.Data] {
	if s.mode == InfoLevel {
		return s.info
	}
	return s.memory
}

func (s *Snapshot) checkTransaction() {
	if !s.inTransaction {
		inconsistent("write to %s outside of a transaction", s.Describe())
	}
}

func (s *Snapshot) writeStructure() *structure.Structure {
	s.checkTransaction()
	return s.structure.Writeable()
}

func (s *Snapshot) writeData() *data.Data {
	s.checkTransaction()
	return s.dataProxy().Writeable()
}

func (s *Snapshot) writeMemory() *data.Data {
	s.checkTransaction()
	return s.memory.Writeable()
}

// missing is the entry read from an index without one.
func missing(m Mode) value.Entry {
	if m == MemoryLevel {
		return value.UndefinedEntry()
	}
	return value.Entry{}
}

func lookup(d *data.Data, i index.Index, m Mode) value.Entry {
	if e, ok := d.Lookup(i); ok {
		return e
	}
	return missing(m)
}

// entry reads i from the active data container.
func (s *Snapshot) entry(i index.Index) value.Entry {
	return lookup(s.dataProxy().Readonly(), i, s.mode)
}

func (s *Snapshot) memoryEntry(i index.Index) value.Entry {
	return lookup(s.memory.Readonly(), i, MemoryLevel)
}

// removeData drops the entries of i from both data containers.
func (s *Snapshot) removeData(i index.Index) {
	if _, ok := s.memory.Readonly().Lookup(i); ok {
		s.memory.Writeable().Remove(i)
	}
	if _, ok := s.info.Readonly().Lookup(i); ok {
		s.info.Writeable().Remove(i)
	}
}

func (s *Snapshot) newArray(parent index.Index) value.ArrayID {
	id := s.factory.newArrayID()
	s.writeStructure().NewArray(parent, id)
	return id
}

// CreateTemporary allocates a temporary in the current frame.
func (s *Snapshot) CreateTemporary() index.Temporary {
	st := s.writeStructure()
	ctx := st.AddStackLevel(s.callLevel)
	tmp := index.Temporary{ID: ctx.FreeTemporary(), Level: s.callLevel}
	s.defineTemporary(tmp)
	return tmp
}

func (s *Snapshot) defineTemporary(tmp index.Temporary) {
	st := s.writeStructure()
	ctx := st.AddStackLevel(tmp.Level)
	st.SetStack(ctx.WithTemporary(tmp.ID))
	st.NewIndex(tmp)
}

// ReleaseTemporary tears down tmp and everything stored below it.
func (s *Snapshot) ReleaseTemporary(tmp index.Temporary) {
	st := s.writeStructure()
	s.destroyIndex(tmp)
	if ctx, ok := st.Stack(tmp.Level); ok {
		st.SetStack(ctx.WithoutTemporary(tmp.ID))
	}
}

// CreateObject allocates an object of class typ.
func (s *Snapshot) CreateObject(typ string) value.Object {
	id := s.factory.newObjectID()
	s.writeStructure().NewObject(id, typ)
	return value.Object{ID: id}
}

// CreateArray allocates an empty array held by a fresh temporary. Assigning
// the returned value copies the array to its destination.
func (s *Snapshot) CreateArray() (index.Temporary, value.Array) {
	tmp := s.CreateTemporary()
	arr := value.Array{ID: s.newArray(tmp)}
	s.writeMemory().Set(tmp, value.NewEntry(arr))
	return tmp, arr
}

// DeclareFunction adds decl to the declarations of function name.
func (s *Snapshot) DeclareFunction(name string, decl value.Value) {
	s.writeStructure().AddFunction(name, decl)
}

// DeclareClass adds decl to the declarations of its class name.
func (s *Snapshot) DeclareClass(decl value.ClassDeclaration) {
	s.writeStructure().AddClass(decl.Name(), decl)
}

func (s *Snapshot) Functions(name string) value.Entry {
	return s.structure.Readonly().Functions(name)
}

func (s *Snapshot) Classes(name string) value.Entry {
	return s.structure.Readonly().Classes(name)
}

func (s *Snapshot) bench(op string) func() {
	return s.factory.ctx.Benchmark.Start(op)
}

func (s *Snapshot) Describe() string {
	return fmt.Sprintf("snapshot#%d", s.id)
}
