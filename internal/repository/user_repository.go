package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/minjae-ko/ticket-rush/internal/model"
)

// UserRepo reads the users table.  Accounts are owned by an external
// auth service; this application never writes them.
//
// Expected schema:
//
//	CREATE TABLE users (
//	  id         BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
//	  email      VARCHAR(255) NOT NULL UNIQUE,
//	  name       VARCHAR(100) NOT NULL,
//	  created_at DATETIME(3) NOT NULL
//	);
type UserRepo struct {
	db *sql.DB
}

// NewUserRepo constructs the repo.
func NewUserRepo(db *sql.DB) *UserRepo {
	return &UserRepo{db: db}
}

// Exists returns ErrUserNotFound when the id is unknown.
func (r *UserRepo) Exists(ctx context.Context, userID uint64) error {
	var one int
	err := r.db.QueryRowContext(ctx, `SELECT 1 FROM users WHERE id = ?`, userID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrUserNotFound
	}
	return err
}

// FindByID loads a user.
func (r *UserRepo) FindByID(ctx context.Context, userID uint64) (*model.User, error) {
	var u model.User
	err := r.db.QueryRowContext(ctx,
		`SELECT id, email, name, created_at FROM users WHERE id = ?`, userID).
		Scan(&u.ID, &u.Email, &u.Name, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}
