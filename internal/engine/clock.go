package engine

import (
	"sync/atomic"
	"time"
)

// Clock stamps each processed event with a sequence number and supplies
// the wall time used as event time.
//
// Next is safe for concurrent use, but only the Run loop calls it.
type Clock struct {
	seq atomic.Int64
	now func() time.Time
}

// NewClock creates a clock starting at sequence 0. A nil now uses time.Now.
func NewClock(now func() time.Time) *Clock {
	if now == nil {
		now = time.Now
	}
	return &Clock{now: now}
}

// Next returns the next sequence number.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the last issued sequence number.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}

// Now returns the current event time.
func (c *Clock) Now() time.Time {
	return c.now()
}
