package gate

import (
	"context"
	"time"
)

// NamedLockGate serializes admissions with MySQL advisory locks, so
// exclusion holds across every application instance sharing the
// database without locking any table rows.  Assignment runs under
// "queue:assign"; promotion additionally takes "queue:activate" so
// concurrent promoters serialize among themselves before contending
// with the Enter hot path.  The locks are released in a defer even
// when the guarded work fails.
type NamedLockGate struct {
	core
	locker  AdvisoryLocker
	timeout time.Duration
}

func (g *NamedLockGate) Enter(ctx context.Context, userID uint64) (EnterResult, error) {
	if err := g.users.Exists(ctx, userID); err != nil {
		return EnterResult{}, err
	}
	var res EnterResult
	err := g.locker.WithLock(ctx, lockAssign, g.timeout, func() error {
		return g.store.Atomic(ctx, func(s Store) error {
			r, err := g.admit(ctx, s, userID)
			res = r
			return err
		})
	})
	return res, err
}

func (g *NamedLockGate) Exit(ctx context.Context, token string) error {
	return g.exitThen(ctx, token, g.Promote)
}

func (g *NamedLockGate) Expire(ctx context.Context, token string) error {
	return g.expireThen(ctx, token, g.Promote)
}

func (g *NamedLockGate) Promote(ctx context.Context) error {
	return g.locker.WithLock(ctx, lockActivate, g.timeout, func() error {
		return g.locker.WithLock(ctx, lockAssign, g.timeout, func() error {
			return g.store.Atomic(ctx, func(s Store) error {
				return g.promote(ctx, s)
			})
		})
	})
}
