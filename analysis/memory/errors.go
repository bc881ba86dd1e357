package memory

import (
	"github.com/cs-au-dk/memsnap/utils"

	"github.com/pkg/errors"
)

var (
	// ErrStructuralInconsistency is raised (as a panic) when a caller breaks
	// the snapshot protocol.
	ErrStructuralInconsistency = utils.ErrStructuralInconsistency
	// ErrUnsupportedOperation is returned for merge shapes the model does
	// not implement.
	ErrUnsupportedOperation = utils.ErrUnsupportedOperation
)

// Strategy selects the container and algorithm flavour of a factory.
type Strategy = utils.Strategy

const (
	Eager    = utils.Eager
	Lazy     = utils.Lazy
	Tracking = utils.Tracking
)

func inconsistent(format string, args ...interface{}) {
	panic(errors.Wrapf(ErrStructuralInconsistency, format, args...))
}
