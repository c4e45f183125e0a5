// Package scheduler runs the sale's periodic maintenance: promoting
// waiting users into freed capacity, sweeping expired seat holds and
// clearing the seat map at round boundaries.
package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/minjae-ko/ticket-rush/internal/ticketing"
)

// Task is one unit of periodic work.
type Task func(ctx context.Context) error

// Scheduler drives the three background jobs.  Failures are logged
// and the next tick tries again; a transient database error must not
// stop the sweep permanently.
type Scheduler struct {
	promote Task
	sweep   Task
	reset   Task

	clock        *ticketing.RoundClock
	promoteEvery time.Duration
	sweepEvery   time.Duration
}

// New constructs a scheduler.
func New(promote, sweep, reset Task, clock *ticketing.RoundClock, promoteEvery, sweepEvery time.Duration) *Scheduler {
	return &Scheduler{
		promote:      promote,
		sweep:        sweep,
		reset:        reset,
		clock:        clock,
		promoteEvery: promoteEvery,
		sweepEvery:   sweepEvery,
	}
}

// Run blocks until ctx is cancelled.  The round reset fires at each
// round boundary computed from the shared clock, so every instance
// resets at the same wall-clock instant regardless of when it
// started.
func (s *Scheduler) Run(ctx context.Context) {
	promoteTicker := time.NewTicker(s.promoteEvery)
	defer promoteTicker.Stop()
	sweepTicker := time.NewTicker(s.sweepEvery)
	defer sweepTicker.Stop()
	boundary := time.NewTimer(s.untilBoundary())
	defer boundary.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-promoteTicker.C:
			if err := s.promote(ctx); err != nil {
				log.Printf("scheduler: promote failed: %v", err)
			}
		case <-sweepTicker.C:
			if err := s.sweep(ctx); err != nil {
				log.Printf("scheduler: sweep failed: %v", err)
			}
		case <-boundary.C:
			if err := s.reset(ctx); err != nil {
				log.Printf("scheduler: round reset failed: %v", err)
			}
			boundary.Reset(s.untilBoundary())
		}
	}
}

func (s *Scheduler) untilBoundary() time.Duration {
	d := s.clock.NextBoundary().Sub(s.clock.Now())
	if d <= 0 {
		// already past the boundary, fire on the next cycle
		d = time.Millisecond
	}
	return d
}
