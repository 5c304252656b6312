// Package timex holds time helpers shared by client and server: a strictly
// monotonic epoch-millisecond clock and a JSON-friendly Duration.
package timex

import (
	"sync"
	"time"
)

// Clock yields epoch-millisecond timestamps used to stamp local mutations
// and to record sync cursors.
type Clock interface {
	NowMs() int64
}

// SystemClock reads the wall clock but never returns a value less than or
// equal to one it returned before. Two stamps taken by the same process are
// therefore always ordered, even within one millisecond or across a
// backwards wall-clock step.
//
// SystemClock is safe for concurrent use.
type SystemClock struct {
	mu   sync.Mutex
	last int64
	now  func() time.Time
}

// NewSystemClock returns a SystemClock backed by time.Now.
func NewSystemClock() *SystemClock {
	return &SystemClock{now: time.Now}
}

// NowMs implements Clock.
func (c *SystemClock) NowMs() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	ms := c.now().UnixMilli()
	if ms <= c.last {
		ms = c.last + 1
	}
	c.last = ms
	return ms
}

// FromMs converts an epoch-millisecond value into a UTC time.Time.
func FromMs(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
