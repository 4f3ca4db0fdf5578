package state

import (
	"sync"
	"time"
)

// Clock hands out element timestamps in milliseconds since epoch.
//
// Ticks follow the wall clock but never repeat or go backwards, and a tick
// taken after Observe(ts) is always greater than ts. That makes a local edit
// issued after seeing a peer's edit win the last-writer-wins comparison even
// when the two machines' wall clocks disagree.
type Clock struct {
	mu   sync.Mutex
	last int64
	now  func() time.Time
}

// NewClock returns a Clock backed by time.Now.
func NewClock() *Clock {
	return &Clock{now: time.Now}
}

// NewClockAt returns a Clock reading from now; tests use it to pin wall time.
func NewClockAt(now func() time.Time) *Clock {
	return &Clock{now: now}
}

// Tick returns the next timestamp.
func (c *Clock) Tick() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	ts := c.now().UnixMilli()
	if ts <= c.last {
		ts = c.last + 1
	}
	c.last = ts
	return ts
}

// Observe advances the clock past a timestamp seen on the wire.
func (c *Clock) Observe(ts int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ts > c.last {
		c.last = ts
	}
}

// Last returns the most recent timestamp issued or observed.
func (c *Clock) Last() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}
