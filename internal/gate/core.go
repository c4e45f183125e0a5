package gate

import (
	"context"
	"log"
	"time"

	"github.com/minjae-ko/ticket-rush/internal/model"
	"github.com/minjae-ko/ticket-rush/internal/utils"
)

// core holds the state and behavior shared by every strategy.  The
// strategies differ only in the guard they wrap around admit and
// promote; the decision bodies themselves are identical.
type core struct {
	store    Store
	users    UserDirectory
	capacity int
	now      func() time.Time // test hook, defaults to time.Now
}

func (c *core) clock() time.Time {
	if c.now != nil {
		return c.now().UTC()
	}
	return time.Now().UTC()
}

// admit decides WAITING versus ACTIVE for one user and persists the
// entry.  It must run under the strategy's guard so the active count
// it reads cannot be stale by commit time.  Any live entry the user
// already owns is deleted first, so re-entering replaces the previous
// entry instead of duplicating the user.
func (c *core) admit(ctx context.Context, s Store, userID uint64) (EnterResult, error) {
	now := c.clock()
	if err := s.DeleteLiveByUser(ctx, userID); err != nil {
		return EnterResult{}, err
	}
	active, err := s.CountByStatus(ctx, model.QueueActive)
	if err != nil {
		return EnterResult{}, err
	}
	if active < c.capacity {
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
		return EnterResult{Token: entry.Token, Status: model.QueueActive, EnteredAt: now}, nil
	}
	return c.enqueue(ctx, s, userID, now)
}

// enqueue appends the user to the back of the WAITING line.
func (c *core) enqueue(ctx context.Context, s Store, userID uint64, now time.Time) (EnterResult, error) {
	waiting, err := s.CountByStatus(ctx, model.QueueWaiting)
	if err != nil {
		return EnterResult{}, err
	}
	entry := &model.QueueEntry{
		UserID:    userID,
		Token:     utils.NewQueueToken(),
		Status:    model.QueueWaiting,
		Position:  waiting + 1,
		EnteredAt: now,
		UpdatedAt: now,
	}
	if err := s.Insert(ctx, entry); err != nil {
		return EnterResult{}, err
	}
	return EnterResult{Token: entry.Token, Status: model.QueueWaiting, Position: entry.Position, EnteredAt: now}, nil
}

// Status reports the entry's state.  The position of a WAITING entry
// is recomputed from its place in the entered_at ordering, so exits
// and promotions ahead of the user are reflected immediately.
func (c *core) Status(ctx context.Context, token string) (StatusResult, error) {
	entry, err := c.store.FindByToken(ctx, token)
	if err != nil {
		return StatusResult{}, err
	}
	res := StatusResult{
		Token:       entry.Token,
		Status:      entry.Status,
		EnteredAt:   entry.EnteredAt,
		ActivatedAt: entry.ActivatedAt,
	}
	if entry.IsWaiting() {
		ahead, err := c.store.CountWaitingBefore(ctx, entry.EnteredAt, entry.ID)
		if err != nil {
			return StatusResult{}, err
		}
		res.Position = ahead + 1
	}
	return res, nil
}

// exitThen removes the entry and, when an ACTIVE slot was freed, runs
// the strategy's promote under its own guard.  Exiting an EXPIRED
// entry just deletes the leftover row.
func (c *core) exitThen(ctx context.Context, token string, promote func(context.Context) error) error {
	entry, err := c.store.FindByToken(ctx, token)
	if err != nil {
		return err
	}
	wasActive := entry.IsActive()
	if err := c.store.DeleteByID(ctx, entry.ID); err != nil {
		return err
	}
	if wasActive {
		return promote(ctx)
	}
	return nil
}

// expireThen marks an ACTIVE entry EXPIRED and promotes into the freed
// slot.  Expiring a WAITING or already EXPIRED entry is a no-op: the
// admission was never granted or already consumed.
func (c *core) expireThen(ctx context.Context, token string, promote func(context.Context) error) error {
	entry, err := c.store.FindByToken(ctx, token)
	if err != nil {
		return err
	}
	if !entry.IsActive() {
		log.Printf("gate: expire of %s entry %d is a no-op", entry.Status, entry.ID)
		return nil
	}
	if err := c.store.MarkExpired(ctx, entry.ID, c.clock()); err != nil {
		return err
	}
	return promote(ctx)
}

// promote fills every free ACTIVE slot with the oldest WAITING
// entries.  It must run under the strategy's guard; the count and the
// activation must not interleave with concurrent admissions.
func (c *core) promote(ctx context.Context, s Store) error {
	active, err := s.CountByStatus(ctx, model.QueueActive)
	if err != nil {
		return err
	}
	free := c.capacity - active
	if free <= 0 {
		return nil
	}
	waiting, err := s.OldestWaiting(ctx, free)
	if err != nil {
		return err
	}
	if len(waiting) == 0 {
		return nil
	}
	ids := make([]uint64, len(waiting))
	for i, e := range waiting {
		ids[i] = e.ID
	}
	return s.Activate(ctx, ids, c.clock())
}
