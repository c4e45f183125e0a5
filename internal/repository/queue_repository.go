package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/minjae-ko/ticket-rush/internal/gate"
	"github.com/minjae-ko/ticket-rush/internal/model"
)

// queueColumns is the column list shared by every queue_entries SELECT.
const queueColumns = "id, user_id, token, status, position, entered_at, activated_at, updated_at"

// QueueRepo provides access to the queue_entries table and implements
// the gate's Store contract.  A repo is either bound to the pool or,
// inside Atomic and Exclusive, to a single transaction; the locking
// flag makes the count and FIFO reads take exclusive row locks.
//
// Expected schema:
//
//	CREATE TABLE queue_entries (
//	  id           BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
//	  user_id      BIGINT UNSIGNED NOT NULL,
//	  token        CHAR(36) NOT NULL,
//	  status       ENUM('WAITING','ACTIVE','EXPIRED') NOT NULL,
//	  position     INT NOT NULL DEFAULT 0,
//	  entered_at   DATETIME(3) NOT NULL,
//	  activated_at DATETIME(3) NULL,
//	  updated_at   DATETIME(3) NOT NULL,
//	  UNIQUE KEY uq_queue_token (token),
//	  KEY idx_queue_status_entered (status, entered_at, id),
//	  KEY idx_queue_user_status (user_id, status)
//	);
type QueueRepo struct {
	db      *sql.DB
	tx      *sql.Tx
	locking bool
}

// NewQueueRepo constructs a pool-bound repo.
func NewQueueRepo(db *sql.DB) *QueueRepo {
	return &QueueRepo{db: db}
}

// runner abstracts *sql.DB and *sql.Tx.
type runner interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (r *QueueRepo) conn() runner {
	if r.tx != nil {
		return r.tx
	}
	return r.db
}

// forUpdate appends the locking clause inside an exclusive transaction.
func (r *QueueRepo) forUpdate(query string) string {
	if r.locking {
		return query + " FOR UPDATE"
	}
	return query
}

// CountByStatus counts entries in the given status.  Inside Exclusive
// the counted rows stay locked until commit, which is what serializes
// concurrent admission decisions for the row-lock strategy.
func (r *QueueRepo) CountByStatus(ctx context.Context, status model.QueueStatus) (int, error) {
	query := r.forUpdate(`SELECT COUNT(*) FROM queue_entries WHERE status = ?`)
	var n int
	if err := r.conn().QueryRowContext(ctx, query, string(status)).Scan(&n); err != nil {
		return 0, mapLockErr(err)
	}
	return n, nil
}

// CountWaitingBefore counts WAITING entries ahead of the given entry
// in FIFO order.  Equal timestamps are ordered by id, so the position
// is total even when entries land on the same millisecond.
func (r *QueueRepo) CountWaitingBefore(ctx context.Context, enteredAt time.Time, id uint64) (int, error) {
	const query = `
		SELECT COUNT(*) FROM queue_entries
		WHERE status = 'WAITING'
		  AND (entered_at < ? OR (entered_at = ? AND id < ?))`
	var n int
	if err := r.conn().QueryRowContext(ctx, query, enteredAt.UTC(), enteredAt.UTC(), id).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// FindByToken loads an entry by its opaque token.
func (r *QueueRepo) FindByToken(ctx context.Context, token string) (*model.QueueEntry, error) {
	row := r.conn().QueryRowContext(ctx,
		`SELECT `+queueColumns+` FROM queue_entries WHERE token = ?`, token)
	entry, err := scanQueueEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrQueueNotFound
	}
	return entry, err
}

// DeleteLiveByUser removes the user's WAITING or ACTIVE entry.
func (r *QueueRepo) DeleteLiveByUser(ctx context.Context, userID uint64) error {
	_, err := r.conn().ExecContext(ctx,
		`DELETE FROM queue_entries WHERE user_id = ? AND status IN ('WAITING','ACTIVE')`, userID)
	return mapLockErr(err)
}

// Insert persists a new entry and fills in its generated id.
func (r *QueueRepo) Insert(ctx context.Context, entry *model.QueueEntry) error {
	var activatedAt any
	if entry.ActivatedAt != nil {
		activatedAt = entry.ActivatedAt.UTC()
	}
	res, err := r.conn().ExecContext(ctx, `
		INSERT INTO queue_entries (user_id, token, status, position, entered_at, activated_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.UserID, entry.Token, string(entry.Status), entry.Position,
		entry.EnteredAt.UTC(), activatedAt, entry.UpdatedAt.UTC())
	if err != nil {
		return mapLockErr(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	entry.ID = uint64(id)
	return nil
}

// DeleteByID removes an entry outright.
func (r *QueueRepo) DeleteByID(ctx context.Context, id uint64) error {
	_, err := r.conn().ExecContext(ctx, `DELETE FROM queue_entries WHERE id = ?`, id)
	return mapLockErr(err)
}

// MarkExpired moves an entry to EXPIRED.
func (r *QueueRepo) MarkExpired(ctx context.Context, id uint64, at time.Time) error {
	_, err := r.conn().ExecContext(ctx,
		`UPDATE queue_entries SET status = 'EXPIRED', updated_at = ? WHERE id = ?`, at.UTC(), id)
	return mapLockErr(err)
}

// OldestWaiting returns up to limit WAITING entries in FIFO order.
func (r *QueueRepo) OldestWaiting(ctx context.Context, limit int) ([]model.QueueEntry, error) {
	query := r.forUpdate(`SELECT ` + queueColumns + `
		FROM queue_entries WHERE status = 'WAITING'
		ORDER BY entered_at, id LIMIT ?`)
	rows, err := r.conn().QueryContext(ctx, query, limit)
	if err != nil {
		return nil, mapLockErr(err)
	}
	defer rows.Close()
	var out []model.QueueEntry
	for rows.Next() {
		entry, err := scanQueueEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *entry)
	}
	return out, rows.Err()
}

// Activate moves the given entries to ACTIVE.
func (r *QueueRepo) Activate(ctx context.Context, ids []uint64, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, 0, len(ids)+2)
	args = append(args, at.UTC(), at.UTC())
	for _, id := range ids {
		args = append(args, id)
	}
	_, err := r.conn().ExecContext(ctx, `
		UPDATE queue_entries SET status = 'ACTIVE', activated_at = ?, updated_at = ?
		WHERE id IN (`+placeholders+`)`, args...)
	return mapLockErr(err)
}

// Atomic runs fn inside a plain transaction at READ COMMITTED.  Under
// InnoDB's default REPEATABLE READ a recount inside the transaction
// would read the opening snapshot and miss rivals committing alongside
// it; READ COMMITTED makes each count see the latest committed state,
// which is what the optimistic strategy's conflict check relies on.
func (r *QueueRepo) Atomic(ctx context.Context, fn func(gate.Store) error) error {
	return r.inTx(ctx, false, fn)
}

// Exclusive runs fn inside a transaction whose count and FIFO reads
// take exclusive row locks.  Lock waits are bounded by the
// innodb_lock_wait_timeout the connection pool is configured with;
// timing out surfaces as ErrLockTimeout and rolls the transaction
// back.
func (r *QueueRepo) Exclusive(ctx context.Context, fn func(gate.Store) error) error {
	return r.inTx(ctx, true, fn)
}

func (r *QueueRepo) inTx(ctx context.Context, locking bool, fn func(gate.Store) error) error {
	if r.tx != nil {
		return errors.New("queue repository: nested transaction")
	}
	opts := &sql.TxOptions{Isolation: sql.LevelReadCommitted}
	if locking {
		// FOR UPDATE reads lock the current rows regardless of the
		// snapshot, so the exclusive path keeps the server default.
		opts = nil
	}
	tx, err := r.db.BeginTx(ctx, opts)
	if err != nil {
		return err
	}
	bound := &QueueRepo{db: r.db, tx: tx, locking: locking}
	if err := fn(bound); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return mapLockErr(err)
	}
	return nil
}

// mapLockErr translates InnoDB lock wait timeouts into the shared
// sentinel so callers do not need driver knowledge.
func mapLockErr(err error) error {
	if err == nil {
		return nil
	}
	if isLockWaitTimeout(err) {
		return fmt.Errorf("%w: %v", ErrLockTimeout, err)
	}
	return err
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanQueueEntry(row rowScanner) (*model.QueueEntry, error) {
	var (
		entry       model.QueueEntry
		status      string
		activatedAt sql.NullTime
	)
	err := row.Scan(&entry.ID, &entry.UserID, &entry.Token, &status, &entry.Position,
		&entry.EnteredAt, &activatedAt, &entry.UpdatedAt)
	if err != nil {
		return nil, err
	}
	entry.Status = model.QueueStatus(status)
	if activatedAt.Valid {
		t := activatedAt.Time
		entry.ActivatedAt = &t
	}
	return &entry, nil
}
