package testutil

import "sync/atomic"

// DeterministicClock is an engine.SeqClock for scenario runs. Reset lets a
// rerun stamp the same seqs, starting again from 1.
type DeterministicClock struct {
	seq atomic.Int64
}

// NewDeterministicClock returns a clock at 0.
func NewDeterministicClock() *DeterministicClock {
	return new(DeterministicClock)
}

func (c *DeterministicClock) Next() int64    { return c.seq.Add(1) }
func (c *DeterministicClock) Current() int64 { return c.seq.Load() }
func (c *DeterministicClock) Reset()         { c.seq.Store(0) }
