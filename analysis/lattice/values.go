// Package lattice is a small reference value domain for the memory model:
// integer and string constants, integer intervals, and function and class
// declarations. It exists to drive the model in tests.
package lattice

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/benbjohnson/immutable"
	"github.com/cs-au-dk/memsnap/analysis/value"
	"github.com/cs-au-dk/memsnap/utils"

	"github.com/fatih/color"
)

// colorize is used for pretty-printing.
var colorize = struct {
	Number      func(...interface{}) string
	String      func(...interface{}) string
	Keyword     func(...interface{}) string
	Declaration func(...interface{}) string
}{
	Number: func(is ...interface{}) string {
		return utils.CanColorize(color.New(color.FgHiCyan).SprintFunc())(is...)
	},
	String: func(is ...interface{}) string {
		return utils.CanColorize(color.New(color.FgYellow).SprintFunc())(is...)
	},
	Keyword: func(is ...interface{}) string {
		return utils.CanColorize(color.New(color.FgHiBlue).SprintFunc())(is...)
	},
	Declaration: func(is ...interface{}) string {
		return utils.CanColorize(color.New(color.FgGreen).SprintFunc())(is...)
	},
}

type (
	// Int is an integer constant.
	Int int
	// Str is a string constant.
	Str string
	// Bool is a boolean constant.
	Bool bool
	// AnyString is any string.
	AnyString struct{}
)

func (v Int) Hash() uint32 { return utils.HashCombine(21, uint32(v)) }
func (v Str) Hash() uint32 { return utils.HashCombine(22, utils.HashString(string(v))) }
func (v Bool) Hash() uint32 {
	if v {
		return utils.HashCombine(23, 1)
	}
	return utils.HashCombine(23, 0)
}
func (AnyString) Hash() uint32 { return utils.HashCombine(24) }

func (v Int) Equal(o value.Value) bool       { return v == o }
func (v Str) Equal(o value.Value) bool       { return v == o }
func (v Bool) Equal(o value.Value) bool      { return v == o }
func (v AnyString) Equal(o value.Value) bool { return v == o }

func (v Int) String() string     { return colorize.Number(strconv.Itoa(int(v))) }
func (v Str) String() string     { return colorize.String(strconv.Quote(string(v))) }
func (v Bool) String() string    { return colorize.Keyword(strconv.FormatBool(bool(v))) }
func (AnyString) String() string { return colorize.Keyword("string") }

// Function is a function declaration. Several declarations may share a
// name; Decl tells them apart.
type Function struct {
	Name string
	Decl int
}

func (f Function) Hash() uint32 {
	return utils.HashCombine(25, utils.HashString(f.Name), uint32(f.Decl))
}

func (f Function) Equal(o value.Value) bool { return f == o }

func (f Function) String() string {
	return colorize.Keyword("function ") + colorize.Declaration(fmt.Sprintf("%s#%d", f.Name, f.Decl))
}

// Class is a class declaration with its methods.
type Class struct {
	name    string
	decl    int
	methods *immutable.Map[string, Function]
}

// NewClass declares class name with the given methods.
func NewClass(name string, decl int, methods ...Function) Class {
	m := immutable.NewMap[string, Function](utils.StringHasher())
	for _, f := range methods {
		m = m.Set(f.Name, f)
	}
	return Class{name, decl, m}
}

func (c Class) Name() string { return c.name }

// Method resolves the method called name.
func (c Class) Method(name string) (value.Value, bool) {
	if c.methods == nil {
		return nil, false
	}
	f, ok := c.methods.Get(name)
	return f, ok
}

// MethodNames returns the names of the declared methods in ascending order.
func (c Class) MethodNames() []string {
	res := []string{}
	if c.methods == nil {
		return res
	}
	for iter := c.methods.Iterator(); !iter.Done(); {
		name, _, _ := iter.Next()
		res = append(res, name)
	}
	sort.Strings(res)
	return res
}

func (c Class) Hash() uint32 {
	return utils.HashCombine(26, utils.HashString(c.name), uint32(c.decl))
}

// Equal compares declarations by name and declaration site.
func (c Class) Equal(o value.Value) bool {
	d, ok := o.(Class)
	return ok && c.name == d.name && c.decl == d.decl
}

func (c Class) String() string {
	return colorize.Keyword("class ") + colorize.Declaration(fmt.Sprintf("%s#%d", c.name, c.decl))
}

var _ value.ClassDeclaration = Class{}

// Ints creates an entry holding the given integers.
func Ints(is ...int) value.Entry {
	e := value.Entry{}
	for _, i := range is {
		e = e.Add(Int(i))
	}
	return e
}

// Strs creates an entry holding the given strings.
func Strs(ss ...string) value.Entry {
	e := value.Entry{}
	for _, s := range ss {
		e = e.Add(Str(s))
	}
	return e
}
