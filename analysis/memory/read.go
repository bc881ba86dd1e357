package memory

import (
	"github.com/cs-au-dk/memsnap/analysis/index"
	"github.com/cs-au-dk/memsnap/analysis/value"
)

// Read returns the values of every location denoted by p. Reading never
// modifies the snapshot.
func (s *Snapshot) Read(p index.Path) value.Entry {
	defer s.bench("read")()

	r := s.reader()
	res := value.Entry{}
	for _, loc := range r.resolve(p) {
		res = res.Union(s.entry(loc.idx))
	}
	if r.undefined {
		res = res.Union(missing(s.mode))
	}
	return res
}

// IsDefined checks whether every location denoted by p exists in the
// structure.
func (s *Snapshot) IsDefined(p index.Path) bool {
	r := s.reader()
	locs := r.resolve(p)
	return len(locs) > 0 && r.defined && !r.undefined
}

// ReadIndex returns the values stored at i.
func (s *Snapshot) ReadIndex(i index.Index) value.Entry {
	return s.entry(i)
}
