package engine

import "sync/atomic"

// SeqClock stamps evaluations with a monotonic seq.
type SeqClock interface {
	Next() int64
	Current() int64
}

// Clock is the production SeqClock, an atomic counter. The evaluation log is
// ordered by the seqs it hands out, never by wall time.
type Clock struct {
	seq atomic.Int64
}

// NewClock returns a clock whose first seq is 1.
func NewClock() *Clock {
	return NewClockAt(0)
}

// NewClockAt returns a clock whose first seq is start+1. Pass the last seq
// of an existing log to keep one total order across runs.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

func (c *Clock) Next() int64    { return c.seq.Add(1) }
func (c *Clock) Current() int64 { return c.seq.Load() }
