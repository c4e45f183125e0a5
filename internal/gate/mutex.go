package gate

import (
	"context"
	"sync"
)

// MutexGate serializes every admission decision behind one in-process
// mutex.  It is the simplest strategy and the baseline the others are
// measured against, but it is only correct while a single application
// instance runs: a second instance has its own mutex and the two can
// overshoot the capacity together.
type MutexGate struct {
	core
	mu sync.Mutex
}

func (g *MutexGate) Enter(ctx context.Context, userID uint64) (EnterResult, error) {
	if err := g.users.Exists(ctx, userID); err != nil {
		return EnterResult{}, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	var res EnterResult
	err := g.store.Atomic(ctx, func(s Store) error {
		r, err := g.admit(ctx, s, userID)
		res = r
		return err
	})
	return res, err
}

func (g *MutexGate) Exit(ctx context.Context, token string) error {
	return g.exitThen(ctx, token, g.Promote)
}

func (g *MutexGate) Expire(ctx context.Context, token string) error {
	return g.expireThen(ctx, token, g.Promote)
}

func (g *MutexGate) Promote(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.store.Atomic(ctx, func(s Store) error {
		return g.promote(ctx, s)
	})
}
