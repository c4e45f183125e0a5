package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/minjae-ko/ticket-rush/internal/model"
)

// SeatHoldRepo persists seat holds.  The UNIQUE (seat_id, round) index
// is the final arbiter of seat contention: whatever the advisory
// pre-check saw, at most one INSERT per seat and round can commit, and
// the loser's duplicate-key error is mapped to SeatAlreadyHeldError.
//
// Expected schema:
//
//	CREATE TABLE seat_holds (
//	  id             BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
//	  seat_id        BIGINT UNSIGNED NOT NULL,
//	  reservation_id BIGINT UNSIGNED NOT NULL,
//	  round          BIGINT NOT NULL,
//	  expires_at     DATETIME(3) NOT NULL,
//	  created_at     DATETIME(3) NOT NULL,
//	  UNIQUE KEY uq_hold_seat_round (seat_id, round),
//	  KEY idx_hold_reservation (reservation_id),
//	  KEY idx_hold_expires (expires_at)
//	);
type SeatHoldRepo struct {
	db *sql.DB
}

// NewSeatHoldRepo constructs the repo.
func NewSeatHoldRepo(db *sql.DB) *SeatHoldRepo {
	return &SeatHoldRepo{db: db}
}

// Insert persists a hold.  A duplicate-key violation on the seat and
// round index is returned as SeatAlreadyHeldError.
func (r *SeatHoldRepo) Insert(ctx context.Context, hold *model.SeatHold) error {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO seat_holds (seat_id, reservation_id, round, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		hold.SeatID, hold.ReservationID, hold.Round, hold.ExpiresAt.UTC(), hold.CreatedAt.UTC())
	if err != nil {
		if isDuplicateEntry(err) {
			return &SeatAlreadyHeldError{SeatID: hold.SeatID, Round: hold.Round}
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	hold.ID = uint64(id)
	return nil
}

// Exists reports whether a hold for the seat and round is present.
// This is only an advisory pre-check; the unique index decides races.
func (r *SeatHoldRepo) Exists(ctx context.Context, seatID uint64, round int64) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx,
		`SELECT 1 FROM seat_holds WHERE seat_id = ? AND round = ?`, seatID, round).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Delete removes the hold a reservation has on a seat in a round and
// reports whether a row was actually deleted.
func (r *SeatHoldRepo) Delete(ctx context.Context, reservationID uint64, round int64, seatID uint64) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM seat_holds WHERE reservation_id = ? AND round = ? AND seat_id = ?`,
		reservationID, round, seatID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// RefreshByReservation pushes the expiry of every hold owned by the
// reservation to the given time.
func (r *SeatHoldRepo) RefreshByReservation(ctx context.Context, reservationID uint64, until time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE seat_holds SET expires_at = ? WHERE reservation_id = ?`, until.UTC(), reservationID)
	return err
}

// ListExpired returns every hold whose expiry lies before now.
func (r *SeatHoldRepo) ListExpired(ctx context.Context, now time.Time) ([]model.SeatHold, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, seat_id, reservation_id, round, expires_at, created_at
		FROM seat_holds WHERE expires_at < ?`, now.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectHolds(rows)
}

// DeleteExpired removes the given holds, re-checking the expiry so a
// hold refreshed between the sweep's read and this delete survives.
func (r *SeatHoldRepo) DeleteExpired(ctx context.Context, ids []uint64, now time.Time) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, 0, len(ids)+1)
	for _, id := range ids {
		args = append(args, id)
	}
	args = append(args, now.UTC())
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM seat_holds WHERE id IN (`+placeholders+`) AND expires_at < ?`, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ListSeatsByRound returns the seat ids currently held in the round,
// the snapshot a fresh reservation uses to grey out the seat map.
func (r *SeatHoldRepo) ListSeatsByRound(ctx context.Context, round int64) ([]uint64, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT seat_id FROM seat_holds WHERE round = ? ORDER BY seat_id`, round)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []uint64
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// ListByReservation returns every hold owned by the reservation.
func (r *SeatHoldRepo) ListByReservation(ctx context.Context, reservationID uint64) ([]model.SeatHold, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, seat_id, reservation_id, round, expires_at, created_at
		FROM seat_holds WHERE reservation_id = ?`, reservationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectHolds(rows)
}

// DeleteByReservation removes every hold owned by the reservation.
func (r *SeatHoldRepo) DeleteByReservation(ctx context.Context, reservationID uint64) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM seat_holds WHERE reservation_id = ?`, reservationID)
	return err
}

// DeleteAll clears the table at a round boundary.
func (r *SeatHoldRepo) DeleteAll(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM seat_holds`)
	return err
}

func collectHolds(rows *sql.Rows) ([]model.SeatHold, error) {
	var out []model.SeatHold
	for rows.Next() {
		var h model.SeatHold
		if err := rows.Scan(&h.ID, &h.SeatID, &h.ReservationID, &h.Round, &h.ExpiresAt, &h.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}
