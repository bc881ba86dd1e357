// Package indenter builds nested, indented multi-line strings.
//
//	indenter.Start("{").NestStrings("a", "b").End("}")
//
// yields "{\n  a\n  b\n}". A single nested element is kept on the line of
// its parent, and multi-line elements are indented as a whole.
package indenter

import (
	"fmt"
	"strings"
)

const unit = "  "

type Indenter struct {
	buf *strings.Builder
}

// Start a new indented block with the given opening string.
func Start(str string) Indenter {
	i := Indenter{&strings.Builder{}}
	i.buf.WriteString(str)
	return i
}

type stringableString string

func (s stringableString) String() string {
	return string(s)
}

func indent(str string) string {
	return unit + strings.ReplaceAll(str, "\n", "\n"+unit)
}

func (i Indenter) NestStrings(strs ...string) Indenter {
	return i.NestStringsSep("", strs...)
}

func (i Indenter) NestStringsSep(sep string, strs ...string) Indenter {
	stringers := make([]fmt.Stringer, len(strs))
	for i, v := range strs {
		stringers[i] = stringableString(v)
	}
	return i.NestSep(sep, stringers...)
}

func (i Indenter) Nest(strs ...fmt.Stringer) Indenter {
	return i.NestSep("", strs...)
}

func (i Indenter) NestSep(sep string, strs ...fmt.Stringer) Indenter {
	thunks := make([]func() string, len(strs))
	for j, str := range strs {
		thunks[j] = str.String
	}
	return i.NestThunkedSep(sep, thunks...)
}

func (i Indenter) NestThunked(strs ...func() string) Indenter {
	return i.NestThunkedSep("", strs...)
}

func (i Indenter) NestThunkedSep(sep string, strs ...func() string) Indenter {
	switch len(strs) {
	case 0:
		return i
	case 1:
		i.buf.WriteString(strs[0]())
		return i
	}

	for j, str := range strs {
		i.buf.WriteString("\n" + indent(str()))
		if j < len(strs)-1 {
			i.buf.WriteString(sep)
		}
	}
	i.buf.WriteString("\n")
	return i
}

// Append writes str on its own line at the current depth.
func (i Indenter) Append(str string) Indenter {
	i.buf.WriteString("\n" + indent(str) + "\n")
	return i
}

// End closes the block with the given string and returns the result.
func (i Indenter) End(str string) string {
	return i.buf.String() + str
}
