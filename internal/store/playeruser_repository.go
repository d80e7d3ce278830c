package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/brightforge/gamevault/internal/model"
)

// PlayerUserRepository persists player accounts (spec §3 PlayerUser).
type PlayerUserRepository struct {
	pool *pgxpool.Pool
}

func NewPlayerUserRepository(pool *pgxpool.Pool) *PlayerUserRepository {
	return &PlayerUserRepository{pool: pool}
}

func (r *PlayerUserRepository) Create(ctx context.Context, username string, salt, hash []byte) (*model.PlayerUser, error) {
	var u model.PlayerUser
	err := r.pool.QueryRow(ctx,
		`INSERT INTO player_user(username, pw_salt, pw_hash) VALUES ($1, $2, $3)
		 RETURNING id, username, pw_salt, pw_hash, created_at, last_login_at`,
		username, salt, hash,
	).Scan(&u.ID, &u.Username, &u.Salt, &u.PasswordHash, &u.CreatedAt, &u.LastLoginAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrUsernameTaken
		}
		return nil, fmt.Errorf("store: creating player user %q: %w", username, err)
	}
	return &u, nil
}

func (r *PlayerUserRepository) GetByUsername(ctx context.Context, username string) (*model.PlayerUser, error) {
	var u model.PlayerUser
	err := r.pool.QueryRow(ctx,
		`SELECT id, username, pw_salt, pw_hash, created_at, last_login_at
		 FROM player_user WHERE username = $1`, username,
	).Scan(&u.ID, &u.Username, &u.Salt, &u.PasswordHash, &u.CreatedAt, &u.LastLoginAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("store: querying player user %q: %w", username, err)
	}
	return &u, nil
}

func (r *PlayerUserRepository) GetByID(ctx context.Context, id int64) (*model.PlayerUser, error) {
	var u model.PlayerUser
	err := r.pool.QueryRow(ctx,
		`SELECT id, username, pw_salt, pw_hash, created_at, last_login_at
		 FROM player_user WHERE id = $1`, id,
	).Scan(&u.ID, &u.Username, &u.Salt, &u.PasswordHash, &u.CreatedAt, &u.LastLoginAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("store: querying player user %d: %w", id, err)
	}
	return &u, nil
}

func (r *PlayerUserRepository) TouchLastLogin(ctx context.Context, id int64) error {
	_, err := r.pool.Exec(ctx, `UPDATE player_user SET last_login_at = now() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("store: touching player user %d last login: %w", id, err)
	}
	return nil
}
