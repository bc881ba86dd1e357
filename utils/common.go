package utils

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

var (
	// ErrStructuralInconsistency signals a broken memory model invariant, such
	// as a reference to an undeclared index or a write to a shared container.
	ErrStructuralInconsistency = errors.New("StructuralInconsistency")
	// ErrUnsupportedOperation signals an operation shape the model does not
	// handle, such as merging snapshots at different call levels.
	ErrUnsupportedOperation = errors.New("UnsupportedOperationError")
)

var noColorize = false

// CanColorize wraps a color function so that it degrades to plain printing
// when colors are disabled.
func CanColorize(col func(...interface{}) string) func(...interface{}) string {
	return func(is ...interface{}) string {
		if noColorize {
			return fmt.Sprintf(strings.Repeat("%v", len(is)), is...)
		}
		return col(is...)
	}
}
