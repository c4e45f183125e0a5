package gate

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/minjae-ko/ticket-rush/internal/model"
	"github.com/minjae-ko/ticket-rush/internal/utils"
)

// OptimisticGate admits without locks.  It speculatively inserts an
// ACTIVE entry and recounts inside the same transaction; when the
// recount shows the capacity was overshot the transaction is rolled
// back and the attempt retried after a short randomized backoff.  A
// user whose every attempt loses the race is enqueued WAITING, so
// contention degrades admission into queueing and never into an error.
type OptimisticGate struct {
	core
	maxRetries int
	backoff    time.Duration
}

func (g *OptimisticGate) Enter(ctx context.Context, userID uint64) (EnterResult, error) {
	if err := g.users.Exists(ctx, userID); err != nil {
		return EnterResult{}, err
	}
	for attempt := 0; attempt < g.maxRetries; attempt++ {
		var res EnterResult
		err := g.store.Atomic(ctx, func(s Store) error {
			r, err := g.tryAdmit(ctx, s, userID)
			res = r
			return err
		})
		if err == nil {
			return res, nil
		}
		if !errors.Is(err, errAdmissionConflict) {
			return EnterResult{}, err
		}
		select {
		case <-ctx.Done():
			return EnterResult{}, ctx.Err()
		case <-time.After(jitter(g.backoff)):
		}
	}
	var res EnterResult
	err := g.store.Atomic(ctx, func(s Store) error {
		if err := s.DeleteLiveByUser(ctx, userID); err != nil {
			return err
		}
		r, err := g.enqueue(ctx, s, userID, g.clock())
		res = r
		return err
	})
	return res, err
}

// tryAdmit is one speculative attempt.  The insert happens before the
// capacity is known to hold; the recount after the insert sees every
// committed admission plus this transaction's own, and a result above
// the capacity means this attempt lost the race.
func (g *OptimisticGate) tryAdmit(ctx context.Context, s Store, userID uint64) (EnterResult, error) {
	now := g.clock()
	if err := s.DeleteLiveByUser(ctx, userID); err != nil {
		return EnterResult{}, err
	}
	active, err := s.CountByStatus(ctx, model.QueueActive)
	if err != nil {
		return EnterResult{}, err
	}
	if active >= g.capacity {
		return g.enqueue(ctx, s, userID, now)
	}
	entry := &model.QueueEntry{
		UserID:      userID,
		Token:       utils.NewQueueToken(),
		Status:      model.QueueActive,
		EnteredAt:   now,
		ActivatedAt: &now,
		UpdatedAt:   now,
	}
	if err := s.Insert(ctx, entry); err != nil {
		return EnterResult{}, err
	}
	recount, err := s.CountByStatus(ctx, model.QueueActive)
	if err != nil {
		return EnterResult{}, err
	}
	if recount > g.capacity {
		return EnterResult{}, errAdmissionConflict
	}
	return EnterResult{Token: entry.Token, Status: model.QueueActive, EnteredAt: now}, nil
}

func (g *OptimisticGate) Exit(ctx context.Context, token string) error {
	return g.exitThen(ctx, token, g.Promote)
}

func (g *OptimisticGate) Expire(ctx context.Context, token string) error {
	return g.expireThen(ctx, token, g.Promote)
}

// Promote runs under the exclusive store guard.  Optimistic recounting
// works for admissions because each transaction inserts a single row
// it can recount, but a batch activation has no equivalent check, so
// promotion borrows the row-lock guard instead.
func (g *OptimisticGate) Promote(ctx context.Context) error {
	return g.store.Exclusive(ctx, func(s Store) error {
		return g.promote(ctx, s)
	})
}

// jitter spreads retries of colliding writers apart: a value in
// [d/2, 3d/2).
func jitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return d/2 + time.Duration(rand.Int63n(int64(d)))
}
