// Package testutil holds helpers shared by tests across packages.
package testutil

import "sync"

// StepClock is a deterministic timex.Clock. Every call to NowMs returns the
// current value and then advances it by Step (1 when Step is zero).
type StepClock struct {
	mu   sync.Mutex
	cur  int64
	Step int64
}

// NewStepClock returns a clock that starts at start.
func NewStepClock(start int64) *StepClock {
	return &StepClock{cur: start, Step: 1}
}

func (c *StepClock) NowMs() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	v := c.cur
	step := c.Step
	if step == 0 {
		step = 1
	}
	c.cur += step
	return v
}

// Set moves the clock to ms. Moving backwards is allowed so tests can
// simulate wall-clock skew.
func (c *StepClock) Set(ms int64) {
	c.mu.Lock()
	c.cur = ms
	c.mu.Unlock()
}

// Peek returns the value the next NowMs call would return.
func (c *StepClock) Peek() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cur
}
