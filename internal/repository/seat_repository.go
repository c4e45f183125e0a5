package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/minjae-ko/ticket-rush/internal/model"
)

// SeatRepo reads the seeded seat catalog.
//
// Expected schema:
//
//	CREATE TABLE seats (
//	  id          BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
//	  floor       INT UNSIGNED NOT NULL,
//	  section     CHAR(1) NOT NULL,
//	  price_cents INT UNSIGNED NOT NULL
//	);
type SeatRepo struct {
	db *sql.DB
}

// NewSeatRepo constructs the repo.
func NewSeatRepo(db *sql.DB) *SeatRepo {
	return &SeatRepo{db: db}
}

// Exists returns ErrSeatNotFound when the seat is not in the catalog.
func (r *SeatRepo) Exists(ctx context.Context, seatID uint64) error {
	var one int
	err := r.db.QueryRowContext(ctx, `SELECT 1 FROM seats WHERE id = ?`, seatID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrSeatNotFound
	}
	return err
}

// FindByID loads a seat.
func (r *SeatRepo) FindByID(ctx context.Context, seatID uint64) (*model.Seat, error) {
	var s model.Seat
	err := r.db.QueryRowContext(ctx,
		`SELECT id, floor, section, price_cents FROM seats WHERE id = ?`, seatID).
		Scan(&s.ID, &s.Floor, &s.Section, &s.PriceCents)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSeatNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}
