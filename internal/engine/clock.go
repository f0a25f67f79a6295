package engine

import "sync/atomic"

// Clock is a monotonic logical clock. Every recorded operation result is
// stamped with a strictly increasing seq so history rows have a total order
// independent of wall-clock time.
//
// Clock is safe for concurrent use; the parallel driver stamps results from
// several workers.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a new clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// Next returns the next sequence number and increments the clock.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the current sequence number without incrementing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
