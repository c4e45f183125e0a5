package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/minjae-ko/ticket-rush/internal/model"
)

// ReservationRepo persists reservations.  State changes go through a
// compare-and-set on the current state so a payment completing
// concurrently with the expiry sweep cannot have its CONFIRMED row
// overwritten by TIMEOUT.
//
// Expected schema:
//
//	CREATE TABLE reservations (
//	  id         BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
//	  user_id    BIGINT UNSIGNED NOT NULL,
//	  round      BIGINT NOT NULL,
//	  state      ENUM('PENDING','PAYING','CONFIRMED','CANCELLED','TIMEOUT') NOT NULL,
//	  created_at DATETIME(3) NOT NULL,
//	  updated_at DATETIME(3) NOT NULL,
//	  KEY idx_reservation_round_state (round, state, updated_at)
//	);
type ReservationRepo struct {
	db *sql.DB
}

// NewReservationRepo constructs the repo.
func NewReservationRepo(db *sql.DB) *ReservationRepo {
	return &ReservationRepo{db: db}
}

// Create inserts a PENDING reservation for the user and round.
func (r *ReservationRepo) Create(ctx context.Context, userID uint64, round int64, now time.Time) (*model.Reservation, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO reservations (user_id, round, state, created_at, updated_at)
		VALUES (?, ?, 'PENDING', ?, ?)`,
		userID, round, now.UTC(), now.UTC())
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &model.Reservation{
		ID:        uint64(id),
		UserID:    userID,
		Round:     round,
		State:     model.ReservationPending,
		CreatedAt: now.UTC(),
		UpdatedAt: now.UTC(),
	}, nil
}

// GetByID loads a reservation.
func (r *ReservationRepo) GetByID(ctx context.Context, id uint64) (*model.Reservation, error) {
	var (
		res   model.Reservation
		state string
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, round, state, created_at, updated_at
		FROM reservations WHERE id = ?`, id).
		Scan(&res.ID, &res.UserID, &res.Round, &state, &res.CreatedAt, &res.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrReservationNotFound
	}
	if err != nil {
		return nil, err
	}
	res.State = model.ReservationState(state)
	return &res, nil
}

// UpdateState moves the reservation from one state to another and
// reports whether the transition was applied.  A false result means
// the row was no longer in the expected state.
func (r *ReservationRepo) UpdateState(ctx context.Context, id uint64, from, to model.ReservationState, at time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE reservations SET state = ?, updated_at = ?
		WHERE id = ? AND state = ?`,
		string(to), at.UTC(), id, string(from))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// ListConfirmedByRound returns the names and completion times of the
// round's confirmed reservations, earliest completion first.
func (r *ReservationRepo) ListConfirmedByRound(ctx context.Context, round int64) ([]model.RankEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT u.name, r.updated_at
		FROM reservations r
		JOIN users u ON u.id = r.user_id
		WHERE r.round = ? AND r.state = 'CONFIRMED'
		ORDER BY r.updated_at, r.id`, round)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.RankEntry
	for rows.Next() {
		var e model.RankEntry
		if err := rows.Scan(&e.Name, &e.CompletedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
