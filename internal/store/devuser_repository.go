package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/brightforge/gamevault/internal/model"
)

// DevUserRepository persists developer accounts (spec §3 DevUser).
type DevUserRepository struct {
	pool *pgxpool.Pool
}

func NewDevUserRepository(pool *pgxpool.Pool) *DevUserRepository {
	return &DevUserRepository{pool: pool}
}

// Create inserts a new developer account. Returns ErrUsernameTaken if the
// username is already registered.
func (r *DevUserRepository) Create(ctx context.Context, username string, salt, hash []byte) (*model.DevUser, error) {
	var u model.DevUser
	err := r.pool.QueryRow(ctx,
		`INSERT INTO dev_user(username, pw_salt, pw_hash) VALUES ($1, $2, $3)
		 RETURNING id, username, pw_salt, pw_hash, created_at, last_login_at`,
		username, salt, hash,
	).Scan(&u.ID, &u.Username, &u.Salt, &u.PasswordHash, &u.CreatedAt, &u.LastLoginAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrUsernameTaken
		}
		return nil, fmt.Errorf("store: creating dev user %q: %w", username, err)
	}
	return &u, nil
}

// GetByUsername returns the developer with username, or nil if not found.
func (r *DevUserRepository) GetByUsername(ctx context.Context, username string) (*model.DevUser, error) {
	var u model.DevUser
	err := r.pool.QueryRow(ctx,
		`SELECT id, username, pw_salt, pw_hash, created_at, last_login_at
		 FROM dev_user WHERE username = $1`, username,
	).Scan(&u.ID, &u.Username, &u.Salt, &u.PasswordHash, &u.CreatedAt, &u.LastLoginAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("store: querying dev user %q: %w", username, err)
	}
	return &u, nil
}

// GetByID returns the developer with id, or nil if not found.
func (r *DevUserRepository) GetByID(ctx context.Context, id int64) (*model.DevUser, error) {
	var u model.DevUser
	err := r.pool.QueryRow(ctx,
		`SELECT id, username, pw_salt, pw_hash, created_at, last_login_at
		 FROM dev_user WHERE id = $1`, id,
	).Scan(&u.ID, &u.Username, &u.Salt, &u.PasswordHash, &u.CreatedAt, &u.LastLoginAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("store: querying dev user %d: %w", id, err)
	}
	return &u, nil
}

// TouchLastLogin stamps last_login_at to now for id.
func (r *DevUserRepository) TouchLastLogin(ctx context.Context, id int64) error {
	_, err := r.pool.Exec(ctx, `UPDATE dev_user SET last_login_at = now() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("store: touching dev user %d last login: %w", id, err)
	}
	return nil
}
