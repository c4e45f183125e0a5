package gate

import "context"

// RowLockGate serializes admissions with an exclusive row lock: the
// active-count read inside the transaction locks the counted rows
// until commit, so two concurrent decisions cannot both observe a free
// slot.  Lock waits are bounded by the store's lock timeout; an Enter
// that cannot acquire the lock in time fails outright and the user
// must retry.
type RowLockGate struct {
	core
}

func (g *RowLockGate) Enter(ctx context.Context, userID uint64) (EnterResult, error) {
	if err := g.users.Exists(ctx, userID); err != nil {
		return EnterResult{}, err
	}
	var res EnterResult
	err := g.store.Exclusive(ctx, func(s Store) error {
		r, err := g.admit(ctx, s, userID)
		res = r
		return err
	})
	return res, err
}

func (g *RowLockGate) Exit(ctx context.Context, token string) error {
	return g.exitThen(ctx, token, g.Promote)
}

func (g *RowLockGate) Expire(ctx context.Context, token string) error {
	return g.expireThen(ctx, token, g.Promote)
}

func (g *RowLockGate) Promote(ctx context.Context) error {
	return g.store.Exclusive(ctx, func(s Store) error {
		return g.promote(ctx, s)
	})
}
