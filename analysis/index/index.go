// Package index defines memory indexes, the addresses of locations in a
// snapshot, and memory paths, the access expressions resolved to indexes.
package index

import (
	"fmt"
	"sort"

	"github.com/cs-au-dk/memsnap/analysis/value"
	"github.com/cs-au-dk/memsnap/utils"

	"github.com/fatih/color"
)

// colorize is used for pretty-printing.
var colorize = struct {
	Variable func(...interface{}) string
	Control  func(...interface{}) string
	Temp     func(...interface{}) string
	Object   func(...interface{}) string
	Key      func(...interface{}) string
	Any      func(...interface{}) string
	Level    func(...interface{}) string
}{
	Variable: func(is ...interface{}) string {
		return utils.CanColorize(color.New(color.FgHiGreen).SprintFunc())(is...)
	},
	Control: func(is ...interface{}) string {
		return utils.CanColorize(color.New(color.FgGreen).SprintFunc())(is...)
	},
	Temp: func(is ...interface{}) string {
		return utils.CanColorize(color.New(color.FgHiWhite, color.Faint).SprintFunc())(is...)
	},
	Object: func(is ...interface{}) string {
		return utils.CanColorize(color.New(color.FgHiMagenta).SprintFunc())(is...)
	},
	Key: func(is ...interface{}) string {
		return utils.CanColorize(color.New(color.FgYellow).SprintFunc())(is...)
	},
	Any: func(is ...interface{}) string {
		return utils.CanColorize(color.New(color.FgHiRed).SprintFunc())(is...)
	},
	Level: func(is ...interface{}) string {
		return utils.CanColorize(color.New(color.FgHiBlue).SprintFunc())(is...)
	},
}

// GlobalLevel is the call level of the global frame.
const GlobalLevel = 0

// Index identifies a memory location. Indexes are comparable values: two
// indexes are equal iff their derivation chains are equal, so they can be
// used directly as map keys.
type Index interface {
	Hash() uint32
	Equal(Index) bool
	String() string
	// Parent returns the index this one is derived from. Roots have none.
	Parent() (Index, bool)
	// CallLevel is the stack frame owning the index. Object fields live in
	// the heap and report GlobalLevel.
	CallLevel() int

	indexTag()
}

// Hasher is needed for immutable.Map
type Hasher struct{}

func (Hasher) Hash(key Index) uint32 {
	return key.Hash()
}

func (Hasher) Equal(a, b Index) bool {
	return a.Equal(b)
}

type (
	// Variable is a named variable of a stack frame.
	Variable struct {
		Name  string
		Level int
	}
	// Control is a control variable of a stack frame, such as a return
	// address or an iterator.
	Control struct {
		Name  string
		Level int
	}
	// Temporary is an evaluator scratch location. Temporaries are never
	// change-tracked.
	Temporary struct {
		ID    int
		Level int
	}
	// AnyVariable is the unknown variable of a frame, standing for every
	// variable without its own index.
	AnyVariable struct {
		Level int
	}
	// AnyControl is the unknown control variable of a frame.
	AnyControl struct {
		Level int
	}
	// ObjectRoot roots the fields of an object. It is not a storage
	// location itself.
	ObjectRoot struct {
		Object value.ObjectID
	}
)

type (
	// ArrayIndex is a named element of the array stored at its parent.
	ArrayIndex struct {
		parent Index
		Name   string
		hash   uint32
	}
	// AnyIndex is the unknown element of the array stored at its parent.
	AnyIndex struct {
		parent Index
		hash   uint32
	}
	// Field is a named field of an object.
	Field struct {
		parent ObjectRoot
		Name   string
		hash   uint32
	}
	// AnyField is the unknown field of an object.
	AnyField struct {
		parent ObjectRoot
		hash   uint32
	}
)

// Element creates the index of the element name of the array at parent.
func Element(parent Index, name string) ArrayIndex {
	return ArrayIndex{parent, name, utils.HashCombine(3, parent.Hash(), utils.HashString(name))}
}

// UnknownElement creates the unknown index of the array at parent.
func UnknownElement(parent Index) AnyIndex {
	return AnyIndex{parent, utils.HashCombine(4, parent.Hash())}
}

// FieldOf creates the index of field name of the object.
func FieldOf(object value.ObjectID, name string) Field {
	root := ObjectRoot{object}
	return Field{root, name, utils.HashCombine(5, root.Hash(), utils.HashString(name))}
}

// UnknownField creates the unknown field index of the object.
func UnknownField(object value.ObjectID) AnyField {
	root := ObjectRoot{object}
	return AnyField{root, utils.HashCombine(6, root.Hash())}
}

func (i Variable) Hash() uint32 {
	return utils.HashCombine(7, utils.HashString(i.Name), uint32(i.Level))
}
func (i Control) Hash() uint32 {
	return utils.HashCombine(8, utils.HashString(i.Name), uint32(i.Level))
}
func (i Temporary) Hash() uint32   { return utils.HashCombine(9, uint32(i.ID), uint32(i.Level)) }
func (i AnyVariable) Hash() uint32 { return utils.HashCombine(10, uint32(i.Level)) }
func (i AnyControl) Hash() uint32  { return utils.HashCombine(11, uint32(i.Level)) }
func (i ObjectRoot) Hash() uint32  { return utils.HashCombine(12, uint32(i.Object)) }
func (i ArrayIndex) Hash() uint32  { return i.hash }
func (i AnyIndex) Hash() uint32    { return i.hash }
func (i Field) Hash() uint32       { return i.hash }
func (i AnyField) Hash() uint32    { return i.hash }

func (i Variable) Equal(o Index) bool    { return Index(i) == o }
func (i Control) Equal(o Index) bool     { return Index(i) == o }
func (i Temporary) Equal(o Index) bool   { return Index(i) == o }
func (i AnyVariable) Equal(o Index) bool { return Index(i) == o }
func (i AnyControl) Equal(o Index) bool  { return Index(i) == o }
func (i ObjectRoot) Equal(o Index) bool  { return Index(i) == o }
func (i ArrayIndex) Equal(o Index) bool  { return Index(i) == o }
func (i AnyIndex) Equal(o Index) bool    { return Index(i) == o }
func (i Field) Equal(o Index) bool       { return Index(i) == o }
func (i AnyField) Equal(o Index) bool    { return Index(i) == o }

func (Variable) Parent() (Index, bool)    { return nil, false }
func (Control) Parent() (Index, bool)     { return nil, false }
func (Temporary) Parent() (Index, bool)   { return nil, false }
func (AnyVariable) Parent() (Index, bool) { return nil, false }
func (AnyControl) Parent() (Index, bool)  { return nil, false }
func (ObjectRoot) Parent() (Index, bool)  { return nil, false }
func (i ArrayIndex) Parent() (Index, bool) {
	return i.parent, true
}
func (i AnyIndex) Parent() (Index, bool) { return i.parent, true }
func (i Field) Parent() (Index, bool)    { return i.parent, true }
func (i AnyField) Parent() (Index, bool) { return i.parent, true }

func (i Variable) CallLevel() int    { return i.Level }
func (i Control) CallLevel() int     { return i.Level }
func (i Temporary) CallLevel() int   { return i.Level }
func (i AnyVariable) CallLevel() int { return i.Level }
func (i AnyControl) CallLevel() int  { return i.Level }
func (ObjectRoot) CallLevel() int    { return GlobalLevel }
func (i ArrayIndex) CallLevel() int  { return i.parent.CallLevel() }
func (i AnyIndex) CallLevel() int    { return i.parent.CallLevel() }
func (Field) CallLevel() int         { return GlobalLevel }
func (AnyField) CallLevel() int      { return GlobalLevel }

func (Variable) indexTag()    {}
func (Control) indexTag()     {}
func (Temporary) indexTag()   {}
func (AnyVariable) indexTag() {}
func (AnyControl) indexTag()  {}
func (ObjectRoot) indexTag()  {}
func (ArrayIndex) indexTag()  {}
func (AnyIndex) indexTag()    {}
func (Field) indexTag()       {}
func (AnyField) indexTag()    {}

func level(l int) string {
	if l == GlobalLevel {
		return ""
	}
	return colorize.Level(fmt.Sprintf("@%d", l))
}

func (i Variable) String() string    { return colorize.Variable("$"+i.Name) + level(i.Level) }
func (i Control) String() string     { return colorize.Control("#"+i.Name) + level(i.Level) }
func (i Temporary) String() string   { return colorize.Temp(fmt.Sprintf("tmp%d", i.ID)) + level(i.Level) }
func (i AnyVariable) String() string { return colorize.Any("$?") + level(i.Level) }
func (i AnyControl) String() string  { return colorize.Any("#?") + level(i.Level) }
func (i ObjectRoot) String() string  { return colorize.Object(fmt.Sprintf("object#%d", i.Object)) }
func (i ArrayIndex) String() string {
	return i.parent.String() + "[" + colorize.Key(i.Name) + "]"
}
func (i AnyIndex) String() string { return i.parent.String() + "[" + colorize.Any("?") + "]" }
func (i Field) String() string    { return i.parent.String() + "->" + colorize.Key(i.Name) }
func (i AnyField) String() string { return i.parent.String() + "->" + colorize.Any("?") }

// IsUnknown checks whether the index stands for all untracked children of
// its container.
func IsUnknown(i Index) bool {
	switch i.(type) {
	case AnyVariable, AnyControl, AnyIndex, AnyField:
		return true
	}
	return false
}

// Root returns the root of the derivation chain of i.
func Root(i Index) Index {
	for {
		p, ok := i.Parent()
		if !ok {
			return i
		}
		i = p
	}
}

// Depth is the length of the derivation chain below the root.
func Depth(i Index) (d int) {
	for p, ok := i.Parent(); ok; p, ok = p.Parent() {
		d++
	}
	return
}

// IsPrefixOf checks whether i is o or one of its ancestors.
func IsPrefixOf(i, o Index) bool {
	for {
		if i.Equal(o) {
			return true
		}
		p, ok := o.Parent()
		if !ok {
			return false
		}
		o = p
	}
}

// Chain returns the derivation chain of i from the root down to i.
func Chain(i Index) []Index {
	chain := make([]Index, Depth(i)+1)
	for pos := len(chain) - 1; pos >= 0; pos-- {
		chain[pos] = i
		i, _ = i.Parent()
	}
	return chain
}

// Sort orders indexes by their printed form.
func Sort(is []Index) {
	sort.Slice(is, func(a, b int) bool {
		return is[a].String() < is[b].String()
	})
}
