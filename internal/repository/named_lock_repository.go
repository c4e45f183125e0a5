package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// NamedLockRepo implements advisory locking on top of MySQL's
// GET_LOCK and RELEASE_LOCK.  Every WithLock call checks out its own
// connection from the pool: named locks are session-scoped and
// re-entrant within a session, so sharing one session between
// goroutines would silently void the mutual exclusion.
type NamedLockRepo struct {
	db *sql.DB
}

// NewNamedLockRepo constructs the locker.
func NewNamedLockRepo(db *sql.DB) *NamedLockRepo {
	return &NamedLockRepo{db: db}
}

// WithLock acquires the named lock, runs fn and releases the lock
// afterwards whether or not fn failed.  GET_LOCK returns 1 on
// success, 0 when the timeout elapsed and NULL on error; a 0 maps to
// ErrLockTimeout and fn is never run.
func (r *NamedLockRepo) WithLock(ctx context.Context, name string, timeout time.Duration, fn func() error) error {
	conn, err := r.db.Conn(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	seconds := int(timeout / time.Second)
	var got sql.NullInt64
	if err := conn.QueryRowContext(ctx, `SELECT GET_LOCK(?, ?)`, name, seconds).Scan(&got); err != nil {
		return fmt.Errorf("advisory lock %q: %w", name, err)
	}
	if !got.Valid {
		return fmt.Errorf("advisory lock %q: server error", name)
	}
	if got.Int64 != 1 {
		return fmt.Errorf("advisory lock %q: %w", name, ErrLockTimeout)
	}
	// Release before the connection returns to the pool; an unreleased
	// lock would otherwise stay held for the life of the pooled session.
	defer func() {
		var released sql.NullInt64
		_ = conn.QueryRowContext(context.WithoutCancel(ctx), `SELECT RELEASE_LOCK(?)`, name).Scan(&released)
	}()
	return fn()
}
