package ticketing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRoundClockCurrent(t *testing.T) {
	epoch := time.Date(2025, 12, 9, 10, 0, 0, 0, time.UTC)
	at := epoch
	clock := testClock(epoch, time.Minute, &at)

	assert.Equal(t, int64(0), clock.Current())

	at = epoch.Add(59 * time.Second)
	assert.Equal(t, int64(0), clock.Current())

	at = epoch.Add(time.Minute)
	assert.Equal(t, int64(1), clock.Current())

	at = epoch.Add(90 * time.Second)
	assert.Equal(t, int64(1), clock.Current())

	// before the epoch the division still floors
	at = epoch.Add(-time.Second)
	assert.Equal(t, int64(-1), clock.Current())

	at = epoch.Add(-time.Minute)
	assert.Equal(t, int64(-1), clock.Current())
}

func TestRoundClockNextBoundary(t *testing.T) {
	epoch := time.Date(2025, 12, 9, 10, 0, 0, 0, time.UTC)
	at := epoch.Add(42 * time.Second)
	clock := testClock(epoch, time.Minute, &at)

	assert.Equal(t, epoch.Add(time.Minute), clock.NextBoundary())

	at = epoch.Add(3*time.Minute + 59*time.Second)
	assert.Equal(t, epoch.Add(4*time.Minute), clock.NextBoundary())
}
