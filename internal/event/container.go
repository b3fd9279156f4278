package event

// Container is the result of one device poll: an ordered set of packet
// slots, any of which may be nil.
type Container struct {
	slots    []Packet
	release  func()
	released bool
}

// NewContainer returns a container with n empty slots. release, if not nil,
// runs once on the first call to Release.
func NewContainer(n int, release func()) *Container {
	return &Container{
		slots:   make([]Packet, n),
		release: release,
	}
}

// Set stores p in slot i, growing the container if needed.
func (c *Container) Set(i int, p Packet) {
	if i >= len(c.slots) {
		grown := make([]Packet, i+1)
		copy(grown, c.slots)
		c.slots = grown
	}
	c.slots[i] = p
}

// Put stores p in the slot the driver reserves for its kind.
func (c *Container) Put(p Packet) {
	c.Set(int(p.Kind()), p)
}

// Len returns the number of slots, present or not.
func (c *Container) Len() int {
	return len(c.slots)
}

// Packet returns slot i, or nil if it is absent.
func (c *Container) Packet(i int) Packet {
	if i < 0 || i >= len(c.slots) {
		return nil
	}
	return c.slots[i]
}

// Release frees the container's buffers. Only the first call has an effect.
func (c *Container) Release() {
	if c.released {
		return
	}
	c.released = true
	c.slots = nil
	if c.release != nil {
		c.release()
	}
}

// Released reports whether Release has been called.
func (c *Container) Released() bool {
	return c.released
}
