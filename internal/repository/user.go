package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/andywalner/pa-mmi-mock-interviewer/pkg/model"
)

// CreateUser inserts a new user and returns the new user's id.
func (r *Repository) CreateUser(ctx context.Context, email, passwordHash string) (string, error) {
	id := uuid.New().String()
	const q = `
INSERT INTO users (id, email, password_hash, created_at, updated_at)
VALUES ($1, $2, $3, now(), now())
`
	_, err := r.db.Exec(ctx, q, id, email, passwordHash)
	if err != nil {
		var pgErr *pgconn.PgError
		// PostgreSQL unique_violation code is "23505"
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return "", fmt.Errorf("%w: %s", ErrDuplicateUser, email)
		}
		return "", fmt.Errorf("insert user: %w", err)
	}
	return id, nil
}

// GetUserByEmail returns a user by email.
func (r *Repository) GetUserByEmail(ctx context.Context, email string) (model.User, error) {
	const q = `
SELECT id, email, password_hash, created_at, updated_at
FROM users
WHERE email = $1
`
	var u model.User
	row := r.db.QueryRow(ctx, q, email)
	if err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.User{}, fmt.Errorf("user %s: %w", email, ErrNotFound)
		}
		return model.User{}, fmt.Errorf("scan user by email: %w", err)
	}
	return u, nil
}

// GetUserByID returns a user by id.
func (r *Repository) GetUserByID(ctx context.Context, id string) (model.User, error) {
	const q = `
SELECT id, email, password_hash, created_at, updated_at
FROM users
WHERE id = $1
`
	var u model.User
	row := r.db.QueryRow(ctx, q, id)
	if err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.User{}, fmt.Errorf("user %s: %w", id, ErrNotFound)
		}
		return model.User{}, fmt.Errorf("scan user by id: %w", err)
	}
	return u, nil
}
