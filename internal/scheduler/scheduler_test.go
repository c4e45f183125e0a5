package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/minjae-ko/ticket-rush/internal/ticketing"
)

func counter(n *atomic.Int32) Task {
	return func(context.Context) error {
		n.Add(1)
		return nil
	}
}

func TestRunDrivesAllThreeJobs(t *testing.T) {
	var promotes, sweeps, resets atomic.Int32
	clock := ticketing.NewRoundClock(time.Now().UTC(), 30*time.Millisecond)
	s := New(counter(&promotes), counter(&sweeps), counter(&resets), clock, 10*time.Millisecond, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()
	s.Run(ctx)

	assert.GreaterOrEqual(t, promotes.Load(), int32(3))
	assert.GreaterOrEqual(t, sweeps.Load(), int32(3))
	assert.GreaterOrEqual(t, resets.Load(), int32(2), "reset fires at every round boundary")
}

func TestRunSurvivesFailingJobs(t *testing.T) {
	var sweeps atomic.Int32
	failing := func(context.Context) error {
		sweeps.Add(1)
		return errors.New("transient database error")
	}
	clock := ticketing.NewRoundClock(time.Now().UTC(), time.Hour)
	s := New(counter(new(atomic.Int32)), failing, counter(new(atomic.Int32)), clock, time.Hour, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	s.Run(ctx)

	assert.GreaterOrEqual(t, sweeps.Load(), int32(3), "a failing sweep keeps being retried")
}

func TestRunStopsOnCancel(t *testing.T) {
	clock := ticketing.NewRoundClock(time.Now().UTC(), time.Hour)
	s := New(counter(new(atomic.Int32)), counter(new(atomic.Int32)), counter(new(atomic.Int32)), clock, time.Hour, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop on cancel")
	}
}
