package testfixtures

import (
	"sync"
	"time"
)

// Clock is a controllable time source for tests that walk a visit through
// check-in, waiting, and check-out at fixed instants.
type Clock struct {
	mu      sync.Mutex
	current time.Time
}

// NewClock returns a clock set to the supplied start time. The zero value
// starts at the shared ReferenceTime so fixtures and clock agree.
func NewClock(start time.Time) *Clock {
	if start.IsZero() {
		start = ReferenceTime()
	}
	return &Clock{current: start}
}

// Now returns the instant the clock currently reports.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// NowFunc adapts the clock to the now-func dependency the services take.
func (c *Clock) NowFunc() func() time.Time {
	if c == nil {
		return time.Now
	}
	return c.Now
}

// Set jumps the clock to the provided time.
func (c *Clock) Set(t time.Time) {
	c.mu.Lock()
	c.current = t
	c.mu.Unlock()
}

// Advance moves the clock forward, e.g. past the cache retention window, and
// returns the updated time.
func (c *Clock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	c.current = c.current.Add(d)
	updated := c.current
	c.mu.Unlock()
	return updated
}
