// Package value defines how the memory model sees abstract values. The
// model never inspects domain values beyond hashing and equality; the only
// values it understands are the undefined marker and the array and object
// handles it allocates itself.
package value

import (
	"fmt"

	"github.com/cs-au-dk/memsnap/utils"

	"github.com/fatih/color"
)

var colorize = struct {
	Undefined func(...interface{}) string
	Handle    func(...interface{}) string
}{
	Undefined: func(is ...interface{}) string {
		return utils.CanColorize(color.New(color.FgHiRed).SprintFunc())(is...)
	},
	Handle: func(is ...interface{}) string {
		return utils.CanColorize(color.New(color.FgHiMagenta).SprintFunc())(is...)
	},
}

// Value is an abstract value stored in a memory entry. Implementations must
// be immutable.
type Value interface {
	Hash() uint32
	Equal(Value) bool
	String() string
}

// Hasher is needed for immutable maps keyed by values.
type Hasher struct{}

func (Hasher) Hash(v Value) uint32 { return v.Hash() }

func (Hasher) Equal(a, b Value) bool { return a.Equal(b) }

type (
	// ArrayID is the identity of an array allocated by a snapshot factory.
	// The zero identity denotes "no array".
	ArrayID uint32
	// ObjectID is the identity of an object allocated by a snapshot factory.
	ObjectID uint32
)

// NoArray is the absent array identity.
const NoArray ArrayID = 0

type (
	// UndefinedValue marks that a location may hold no value.
	UndefinedValue struct{}
	// Array is the value pointing to the array with the given identity.
	Array struct{ ID ArrayID }
	// Object is the value pointing to the object with the given identity.
	Object struct{ ID ObjectID }
)

// Undefined is the single undefined marker.
var Undefined Value = UndefinedValue{}

func (UndefinedValue) Hash() uint32 { return 0x5bd1e995 }

func (UndefinedValue) Equal(o Value) bool {
	_, ok := o.(UndefinedValue)
	return ok
}

func (UndefinedValue) String() string { return colorize.Undefined("undefined") }

func (a Array) Hash() uint32 { return utils.HashCombine(1, utils.IDHasher[ArrayID]{}.Hash(a.ID)) }

func (a Array) Equal(o Value) bool {
	b, ok := o.(Array)
	return ok && a == b
}

func (a Array) String() string { return colorize.Handle(fmt.Sprintf("array#%d", a.ID)) }

func (a Object) Hash() uint32 { return utils.HashCombine(2, utils.IDHasher[ObjectID]{}.Hash(a.ID)) }

func (a Object) Equal(o Value) bool {
	b, ok := o.(Object)
	return ok && a == b
}

func (a Object) String() string { return colorize.Handle(fmt.Sprintf("object#%d", a.ID)) }

// ClassDeclaration is implemented by declarations stored in the class
// table, letting the model resolve methods of object types.
type ClassDeclaration interface {
	Value
	Name() string
	Method(name string) (Value, bool)
}

// Assistant is the value domain collaborator invoked on commit.
type Assistant interface {
	// Simplify compacts an entry whose size exceeds the simplify limit.
	Simplify(Entry) Entry
	// Widen returns an upper bound of old and new that stabilizes after
	// finitely many iterations.
	Widen(old, new Entry) Entry
}
