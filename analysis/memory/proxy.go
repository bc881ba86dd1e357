package memory

// container is implemented by the versioned snapshot containers.
type container[C any] interface {
	Copy() C
	Freeze()
	IsFrozen() bool
}

// Proxy guards a snapshot container. It hands out the shared container for
// reading and copies it on the first request for write access. A locked
// proxy refuses write access.
type Proxy[C container[C]] struct {
	c         C
	writeable bool
	locked    bool
}

func newProxy[C container[C]](c C) *Proxy[C] {
	c.Freeze()
	return &Proxy[C]{c: c}
}

// Readonly returns the current container, which must not be written.
func (p *Proxy[C]) Readonly() C {
	return p.c
}

// Writeable returns a container owned by the proxy, copying the shared one
// on first use.
func (p *Proxy[C]) Writeable() C {
	if p.locked {
		inconsistent("write access to a locked container")
	}
	if !p.writeable {
		p.c = p.c.Copy()
		p.writeable = true
	}
	return p.c
}

// IsWriteable checks whether the proxy owns a private copy.
func (p *Proxy[C]) IsWriteable() bool {
	return p.writeable
}

// Set installs c as the container of the proxy. Containers produced by
// merges are installed writeable.
func (p *Proxy[C]) Set(c C, writeable bool) {
	if p.locked {
		inconsistent("replacing a locked container")
	}
	if !writeable {
		c.Freeze()
	}
	p.c = c
	p.writeable = writeable
}

// Share freezes the container so it can be read by other snapshots and
// returns it. The next write access copies it.
func (p *Proxy[C]) Share() C {
	p.c.Freeze()
	p.writeable = false
	return p.c
}

func (p *Proxy[C]) Lock()          { p.locked = true }
func (p *Proxy[C]) Unlock()        { p.locked = false }
func (p *Proxy[C]) IsLocked() bool { return p.locked }
