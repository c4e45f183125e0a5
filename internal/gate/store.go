package gate

import (
	"context"
	"time"

	"github.com/minjae-ko/ticket-rush/internal/model"
)

// Store is the persistence contract of the gate.  The MySQL-backed
// implementation lives in internal/repository; tests use an in-memory
// fake.  All methods observe the transaction of the Store instance
// they are called on: inside Atomic or Exclusive the callback receives
// a transaction-bound Store and must use it for every access.
type Store interface {
	// CountByStatus counts entries in the given status.
	CountByStatus(ctx context.Context, status model.QueueStatus) (int, error)

	// CountWaitingBefore counts WAITING entries strictly ahead of the
	// entry identified by enteredAt and id.  Ties on entered_at are
	// broken by ascending id.
	CountWaitingBefore(ctx context.Context, enteredAt time.Time, id uint64) (int, error)

	// FindByToken loads an entry by its opaque token.
	FindByToken(ctx context.Context, token string) (*model.QueueEntry, error)

	// DeleteLiveByUser removes the user's WAITING or ACTIVE entry if
	// one exists.  Deleting a user with no live entry is a no-op.
	DeleteLiveByUser(ctx context.Context, userID uint64) error

	// Insert persists a new entry and fills in its id.
	Insert(ctx context.Context, entry *model.QueueEntry) error

	// DeleteByID removes an entry outright.  Used when a user leaves
	// the line before being admitted.
	DeleteByID(ctx context.Context, id uint64) error

	// MarkExpired moves an entry to EXPIRED at the given time.
	MarkExpired(ctx context.Context, id uint64, at time.Time) error

	// OldestWaiting returns up to limit WAITING entries in FIFO order
	// (entered_at ascending, id ascending).
	OldestWaiting(ctx context.Context, limit int) ([]model.QueueEntry, error)

	// Activate moves the given entries to ACTIVE at the given time.
	Activate(ctx context.Context, ids []uint64, at time.Time) error

	// Atomic runs fn inside a transaction.  Reads take no locks; the
	// transaction is rolled back when fn returns an error.
	Atomic(ctx context.Context, fn func(Store) error) error

	// Exclusive runs fn inside a transaction whose CountByStatus reads
	// lock the matching rows until commit, serializing concurrent
	// admission decisions.  Lock waits are bounded; on timeout the
	// transaction fails with the implementation's lock-timeout error.
	Exclusive(ctx context.Context, fn func(Store) error) error
}

// UserDirectory resolves user ids before an entry is created.
type UserDirectory interface {
	// Exists returns a not-found error when the user id is unknown and
	// nil when it exists.
	Exists(ctx context.Context, userID uint64) error
}

// AdvisoryLocker provides named, database-global mutual exclusion for
// the named-lock strategy.  WithLock acquires the named lock, runs fn
// and releases the lock even when fn fails.  Acquisition is bounded by
// timeout; on expiry fn is not run and a lock-timeout error is
// returned.
type AdvisoryLocker interface {
	WithLock(ctx context.Context, name string, timeout time.Duration, fn func() error) error
}

// Advisory lock names used by the named strategy.  Assignment and
// activation are guarded separately so promotions do not serialize
// behind the Enter hot path more than necessary.
const (
	lockAssign   = "queue:assign"
	lockActivate = "queue:activate"
)
