package event

import "sync"

// Handler Each kind of event has his own handler
// Based on the Chain of responsibility pattern
type Handler interface {
	Handle(event Event)
}

// Counter accumulates per-type event totals for the heartbeat report.
type Counter struct {
	mu     sync.Mutex
	totals map[Type]uint64
}

func NewCounter() *Counter {
	return &Counter{totals: make(map[Type]uint64)}
}

func (c *Counter) Increment(t Type) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.totals[t]++
}

func (c *Counter) Get(t Type) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.totals[t]
}

// Snapshot returns a copy of all totals.
func (c *Counter) Snapshot() map[Type]uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[Type]uint64, len(c.totals))
	for t, n := range c.totals {
		out[t] = n
	}
	return out
}
