package testutil

import (
	"sync"
	"time"
)

// Epoch is the first instant returned by a fresh DeterministicClock.
var Epoch = time.Date(2026, 1, 5, 8, 0, 0, 0, time.UTC)

// DeterministicClock is a thread-safe clock for tests. Every call to Now
// advances it by a fixed step, so repeated runs of the same scenario see
// identical timestamps.
//
// Unlike engine.SystemClock, DeterministicClock can be reset for test reuse.
type DeterministicClock struct {
	mu   sync.Mutex
	step time.Duration
	seq  int64
}

// NewDeterministicClock creates a clock that advances one second per call.
//
// The first call to Now() returns Epoch.
func NewDeterministicClock() *DeterministicClock {
	return &DeterministicClock{step: time.Second}
}

// Now returns the next instant.
func (c *DeterministicClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := Epoch.Add(time.Duration(c.seq) * c.step)
	c.seq++
	return t
}

// Current returns the instant the next Now call will return, without
// advancing.
func (c *DeterministicClock) Current() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Epoch.Add(time.Duration(c.seq) * c.step)
}

// Advance skips d worth of steps. d is rounded down to a whole step.
func (c *DeterministicClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq += int64(d / c.step)
}

// Reset rewinds the clock to Epoch.
func (c *DeterministicClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq = 0
}
