package storage

import (
	"sync"
	"time"
)

// Clock hands out creation timestamps (Unix milliseconds) that never go
// backwards, even if the wall clock does.
type Clock struct {
	mu   sync.Mutex
	last int64
	now  func() time.Time
}

// NewClock returns a clock whose first reading is at least last.
func NewClock(last int64) *Clock {
	return &Clock{last: last, now: time.Now}
}

// Stamp calls write with the next reading, max(now, previous reading),
// while holding the clock. Writes stamped by one Clock therefore commit in
// timestamp order. The reading is kept only when write succeeds.
func (c *Clock) Stamp(write func(ts int64) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	ts := c.now().UnixMilli()
	if ts < c.last {
		ts = c.last
	}
	if err := write(ts); err != nil {
		return err
	}
	c.last = ts
	return nil
}
