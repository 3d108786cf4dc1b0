// Package tick derives the controller's free-running 16-bit millisecond tick
// from wall-clock time.
package tick

import "time"

// Clock converts elapsed time since a start instant into a tick that wraps
// modulo 2^16.
type Clock struct {
	start time.Time
}

// NewClock returns a clock whose tick is zero at start.
func NewClock(start time.Time) *Clock {
	return &Clock{start: start}
}

// Now returns the tick for t. Times before the start map to zero.
func (c *Clock) Now(t time.Time) uint16 {
	d := t.Sub(c.start)
	if d < 0 {
		return 0
	}
	return uint16(d / time.Millisecond)
}
