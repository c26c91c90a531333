package store

import (
	"sync"
	"time"
)

// Clock mints CreatedAt values.
type Clock interface {
	Now() int64
}

// LogicalClock returns wall-clock unix millis, bumped by one whenever the wall clock
// has not advanced (or went backwards), so successive values are strictly increasing.
type LogicalClock struct {
	mu   sync.Mutex
	last int64
	wall func() time.Time
}

func NewLogicalClock() *LogicalClock {
	return &LogicalClock{wall: time.Now}
}

// NewLogicalClockAt is NewLogicalClock with an injected wall clock.
func NewLogicalClockAt(wall func() time.Time) *LogicalClock {
	if wall == nil {
		wall = time.Now
	}
	return &LogicalClock{wall: wall}
}

func (c *LogicalClock) Now() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	ms := c.wall().UnixMilli()
	if ms <= c.last {
		ms = c.last + 1
	}
	c.last = ms
	return ms
}

// Observe raises the floor to v so later values sort after hydrated records.
func (c *LogicalClock) Observe(v int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if v > c.last {
		c.last = v
	}
}
