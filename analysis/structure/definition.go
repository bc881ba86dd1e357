package structure

import (
	"fmt"
	"strings"

	"github.com/cs-au-dk/memsnap/analysis/index"
	"github.com/cs-au-dk/memsnap/analysis/value"
)

// Alias holds the must and may aliases of an index. The sets never
// contain the index itself and never share members.
type Alias struct {
	Must IndexSet
	May  IndexSet
}

// IsEmpty checks whether the index has no aliases.
func (a Alias) IsEmpty() bool {
	return a.Must.Len() == 0 && a.May.Len() == 0
}

func (a Alias) Equal(o Alias) bool {
	return a.Must.Equal(o.Must) && a.May.Equal(o.May)
}

// IndexDefinition is the structural information of an index.
type IndexDefinition struct {
	// Array stored at the index, or value.NoArray.
	Array   value.ArrayID
	Objects ObjectSet
	Aliases Alias
}

func (d IndexDefinition) HasArray() bool {
	return d.Array != value.NoArray
}

// Equal compares definitions by array presence and set equality of
// objects and aliases. Array identities may legitimately differ between
// versions of the same logical array.
func (d IndexDefinition) Equal(o IndexDefinition) bool {
	return d.HasArray() == o.HasArray() &&
		d.Objects.Equal(o.Objects) &&
		d.Aliases.Equal(o.Aliases)
}

func (d IndexDefinition) String() string {
	parts := []string{}
	if d.HasArray() {
		parts = append(parts, value.Array{ID: d.Array}.String())
	}
	if d.Objects.Len() > 0 {
		objs := []string{}
		for _, o := range SortedObjects(d.Objects) {
			objs = append(objs, value.Object{ID: o}.String())
		}
		parts = append(parts, "objects: "+strings.Join(objs, ", "))
	}
	if d.Aliases.Must.Len() > 0 {
		parts = append(parts, "must: "+indexList(d.Aliases.Must))
	}
	if d.Aliases.May.Len() > 0 {
		parts = append(parts, "may: "+indexList(d.Aliases.May))
	}
	return fmt.Sprintf("(%s)", strings.Join(parts, "; "))
}

func indexList(s IndexSet) string {
	strs := []string{}
	for _, i := range SortedIndexes(s) {
		strs = append(strs, i.String())
	}
	return strings.Join(strs, ", ")
}

// Describe is a short-hand used by the printers.
func Describe(i index.Index, d IndexDefinition) string {
	return i.String() + " " + d.String()
}
