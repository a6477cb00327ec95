package timer

import (
	"sync"
	"time"
)

// Clock supplies wall-clock readings to the engine. The engine never calls
// time.Now directly so tests can drive transitions with a ManualClock.
type Clock interface {
	Now() time.Time
}

// SystemClock implements Clock in terms of the stdlib time package.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// ManualClock is a Clock whose reading only moves when told to. Used by
// tests to replay sleep/wake gaps and exact threshold crossings.
type ManualClock struct {
	mu  sync.Mutex
	now time.Time
}

func NewManualClock(start time.Time) *ManualClock {
	return &ManualClock{now: start}
}

func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Set jumps the clock to a specific instant. Jumping backwards is allowed;
// the engine only ever compares readings against persisted deadlines.
func (c *ManualClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}
