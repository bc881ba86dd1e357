package memory

import (
	"sync/atomic"

	"github.com/cs-au-dk/memsnap/analysis/data"
	"github.com/cs-au-dk/memsnap/analysis/structure"
	"github.com/cs-au-dk/memsnap/analysis/tracker"
	"github.com/cs-au-dk/memsnap/analysis/value"
	"github.com/cs-au-dk/memsnap/utils"
)

// Factory creates snapshots sharing one configuration, one tracker
// sequence and one allocator of array and object identities.
type Factory struct {
	opts      utils.Options
	assistant value.Assistant
	ctx       Context

	seq        tracker.Sequence
	lastArray  uint32
	lastObject uint32
	lastID     uint64
}

// NewFactory creates a factory. The options must be valid.
func NewFactory(opts utils.Options, assistant value.Assistant, ctx Context) *Factory {
	return &Factory{
		opts:      opts,
		assistant: assistant,
		ctx:       ctx,
	}
}

func (f *Factory) Options() utils.Options      { return f.opts }
func (f *Factory) Assistant() value.Assistant { return f.assistant }
func (f *Factory) Context() Context           { return f.ctx }

func (f *Factory) tracking() bool {
	return f.opts.Strategy == Tracking
}

// New creates an empty snapshot holding only the global frame.
func (f *Factory) New() *Snapshot {
	eager := f.opts.Strategy == Eager
	s := &Snapshot{
		factory:   f,
		id:        atomic.AddUint64(&f.lastID, 1),
		structure: newProxy(structure.New(&f.seq, eager)),
		memory:    newProxy(data.New(&f.seq, eager)),
		info:      newProxy(data.New(&f.seq, eager)),
	}
	s.log = f.ctx.logger().With(map[string]interface{}{"snapshot": s.id})
	return s
}

func (f *Factory) newArrayID() value.ArrayID {
	return value.ArrayID(atomic.AddUint32(&f.lastArray, 1))
}

func (f *Factory) newObjectID() value.ObjectID {
	return value.ObjectID(atomic.AddUint32(&f.lastObject, 1))
}
