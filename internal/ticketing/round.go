// Package ticketing implements the sale itself: sales rounds, seat
// holds with expiry, and the reservation lifecycle from PENDING to a
// terminal state.
package ticketing

import "time"

// RoundClock derives the current sales round from wall time.  Rounds
// are consecutive fixed-length windows counted from a configured
// epoch, so every instance computes the same round number without
// coordination.
type RoundClock struct {
	epoch  time.Time
	window time.Duration
	now    func() time.Time // test hook, defaults to time.Now
}

// NewRoundClock constructs a clock with the given epoch and window.
func NewRoundClock(epoch time.Time, window time.Duration) *RoundClock {
	return &RoundClock{epoch: epoch.UTC(), window: window}
}

// Now returns the current UTC time.
func (c *RoundClock) Now() time.Time {
	if c.now != nil {
		return c.now().UTC()
	}
	return time.Now().UTC()
}

// Current returns the round number the current time falls into.
// Times before the epoch yield negative rounds; the division floors
// so round boundaries are consistent on both sides of the epoch.
func (c *RoundClock) Current() int64 {
	d := c.Now().Sub(c.epoch)
	r := int64(d / c.window)
	if d < 0 && d%c.window != 0 {
		r--
	}
	return r
}

// NextBoundary returns the instant the current round ends.
func (c *RoundClock) NextBoundary() time.Time {
	return c.epoch.Add(time.Duration(c.Current()+1) * c.window)
}
