// Package gate implements the admission gate for the flash sale: a
// capacity-limited set of ACTIVE entries plus a FIFO line of WAITING
// entries.  Four interchangeable strategies implement the same
// contract and differ only in how the active-count check and the
// ACTIVE insert are made atomic; they exist side by side so their
// correctness and performance can be compared under load.
package gate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/minjae-ko/ticket-rush/internal/model"
)

// Strategy names accepted by New.
const (
	StrategyMutex      = "mutex"
	StrategyRowLock    = "rowlock"
	StrategyOptimistic = "optimistic"
	StrategyNamed      = "named"
)

// errAdmissionConflict signals that a speculative ACTIVE admission
// overshot the capacity and was rolled back.  It never leaves this
// package: the optimistic gate retries and finally falls back to a
// WAITING assignment.
var errAdmissionConflict = errors.New("admission conflict")

// EnterResult is returned to a user who joined the waiting room.
type EnterResult struct {
	Token     string
	Status    model.QueueStatus
	Position  int
	EnteredAt time.Time
}

// StatusResult reports the current state of a queue entry.  Position
// is recomputed at read time for WAITING entries and 0 otherwise.
type StatusResult struct {
	Token       string
	Status      model.QueueStatus
	Position    int
	EnteredAt   time.Time
	ActivatedAt *time.Time
}

// Gate is the admission contract shared by all strategies.
//
// Enter admits the user immediately when fewer than the configured
// capacity are ACTIVE and queues them at the back of the line
// otherwise.  It replaces any live entry the user already owns and
// never surfaces an internal admission conflict to the caller.
//
// Promote fills freed capacity with the oldest WAITING entries.  It
// is safe to call concurrently from Exit, Expire and the background
// scheduler: the total number of promotions never pushes the ACTIVE
// count above capacity and never leaves a free slot unfilled while
// someone is waiting.
type Gate interface {
	Enter(ctx context.Context, userID uint64) (EnterResult, error)
	Status(ctx context.Context, token string) (StatusResult, error)
	Exit(ctx context.Context, token string) error
	Expire(ctx context.Context, token string) error
	Promote(ctx context.Context) error
}

// Config carries the tunables shared by the strategies.
type Config struct {
	// Capacity is the maximum number of simultaneously ACTIVE entries.
	Capacity int
	// LockTimeout bounds row-lock and advisory-lock acquisition.
	LockTimeout time.Duration
	// MaxRetries caps optimistic Enter attempts before the WAITING
	// fallback.
	MaxRetries int
	// RetryBackoff is the base sleep between optimistic retries; the
	// actual sleep is randomized around it.
	RetryBackoff time.Duration
}

// New selects a gate implementation by strategy name.  The advisory
// locker is only required by the named strategy.
func New(strategy string, store Store, users UserDirectory, locker AdvisoryLocker, cfg Config) (Gate, error) {
	if cfg.Capacity <= 0 {
		return nil, fmt.Errorf("gate: capacity must be positive, got %d", cfg.Capacity)
	}
	c := core{store: store, users: users, capacity: cfg.Capacity}
	switch strategy {
	case StrategyMutex:
		return &MutexGate{core: c}, nil
	case StrategyRowLock:
		return &RowLockGate{core: c}, nil
	case StrategyOptimistic:
		return &OptimisticGate{core: c, maxRetries: cfg.MaxRetries, backoff: cfg.RetryBackoff}, nil
	case StrategyNamed:
		if locker == nil {
			return nil, errors.New("gate: named strategy requires an advisory locker")
		}
		return &NamedLockGate{core: c, locker: locker, timeout: cfg.LockTimeout}, nil
	default:
		return nil, fmt.Errorf("gate: unknown strategy %q", strategy)
	}
}
