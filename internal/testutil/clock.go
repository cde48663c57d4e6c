package testutil

import "sync"

// DeterministicClock is a resettable logical clock. Scenario runs use it to
// number trace events so that two runs of the same scenario produce
// byte-identical traces.
//
// All methods are safe for concurrent use.
type DeterministicClock struct {
	mu   sync.Mutex
	tick int64
}

// NewDeterministicClock returns a clock whose first Tick is 1.
func NewDeterministicClock() *DeterministicClock {
	return &DeterministicClock{}
}

// Tick advances the clock and returns the new value.
func (c *DeterministicClock) Tick() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tick++
	return c.tick
}

// Now returns the last value handed out by Tick, or 0.
func (c *DeterministicClock) Now() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tick
}

// Reset rewinds the clock to 0.
func (c *DeterministicClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tick = 0
}
