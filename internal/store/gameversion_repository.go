package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/brightforge/gamevault/internal/model"
)

// GameVersionRepository persists immutable game releases (spec §3
// GameVersion).
type GameVersionRepository struct {
	pool *pgxpool.Pool
}

func NewGameVersionRepository(pool *pgxpool.Pool) *GameVersionRepository {
	return &GameVersionRepository{pool: pool}
}

const gameVersionColumns = `id, game_ref, version, changelog, uploaded_at, file_name, size_bytes,
	sha256, zip_path, extracted_path, manifest_json, client_type, min_players, max_players`

func scanGameVersion(row pgx.Row) (*model.GameVersion, error) {
	var v model.GameVersion
	err := row.Scan(&v.ID, &v.GameRef, &v.Version, &v.Changelog, &v.UploadedAt, &v.FileName, &v.SizeBytes,
		&v.SHA256, &v.ZipPath, &v.ExtractedPath, &v.ManifestJSON, &v.ClientType, &v.MinPlayers, &v.MaxPlayers)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// CreateParams carries the fields needed to persist one new GameVersion.
type CreateParams struct {
	GameRef       int64
	Version       string
	Changelog     string
	FileName      string
	SizeBytes     int64
	SHA256        string
	ZipPath       string
	ExtractedPath string
	ManifestJSON  string
	ClientType    model.ClientType
	MinPlayers    int
	MaxPlayers    int
}

// Create inserts a new GameVersion and bumps the parent Game's updated_at
// within the same transaction. Returns ErrVersionTaken on a duplicate
// (game_ref, version).
func (r *GameVersionRepository) Create(ctx context.Context, p CreateParams) (*model.GameVersion, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("store: beginning game version create tx: %w", err)
	}
	defer tx.Rollback(ctx)

	v, err := scanGameVersion(tx.QueryRow(ctx,
		`INSERT INTO game_version(game_ref, version, changelog, file_name, size_bytes, sha256,
		  zip_path, extracted_path, manifest_json, client_type, min_players, max_players)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		 RETURNING `+gameVersionColumns,
		p.GameRef, p.Version, p.Changelog, p.FileName, p.SizeBytes, p.SHA256,
		p.ZipPath, p.ExtractedPath, p.ManifestJSON, p.ClientType, p.MinPlayers, p.MaxPlayers,
	))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrVersionTaken
		}
		return nil, fmt.Errorf("store: creating game version %q: %w", p.Version, err)
	}

	if _, err := tx.Exec(ctx, `UPDATE game SET updated_at = now() WHERE id = $1`, p.GameRef); err != nil {
		return nil, fmt.Errorf("store: bumping game %d updated_at: %w", p.GameRef, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("store: committing game version create: %w", err)
	}
	return v, nil
}

// ListForGame returns every version of gameRef, newest first.
func (r *GameVersionRepository) ListForGame(ctx context.Context, gameRef int64) ([]model.GameVersion, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+gameVersionColumns+` FROM game_version WHERE game_ref = $1 ORDER BY uploaded_at DESC, id DESC`, gameRef)
	if err != nil {
		return nil, fmt.Errorf("store: listing versions for game %d: %w", gameRef, err)
	}
	defer rows.Close()

	var out []model.GameVersion
	for rows.Next() {
		v, err := scanGameVersion(rows)
		if err != nil {
			return nil, fmt.Errorf("store: scanning game version row: %w", err)
		}
		out = append(out, *v)
	}
	return out, rows.Err()
}

// GetByGameRefAndVersion returns one specific version, or nil if not found.
func (r *GameVersionRepository) GetByGameRefAndVersion(ctx context.Context, gameRef int64, version string) (*model.GameVersion, error) {
	v, err := scanGameVersion(r.pool.QueryRow(ctx,
		`SELECT `+gameVersionColumns+` FROM game_version WHERE game_ref = $1 AND version = $2 LIMIT 1`, gameRef, version))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("store: querying game %d version %q: %w", gameRef, version, err)
	}
	return v, nil
}

// Latest returns the most recently uploaded version of gameRef, or nil.
func (r *GameVersionRepository) Latest(ctx context.Context, gameRef int64) (*model.GameVersion, error) {
	v, err := scanGameVersion(r.pool.QueryRow(ctx,
		`SELECT `+gameVersionColumns+` FROM game_version WHERE game_ref = $1
		 ORDER BY uploaded_at DESC, id DESC LIMIT 1`, gameRef))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("store: querying latest version for game %d: %w", gameRef, err)
	}
	return v, nil
}

// GetByID returns one GameVersion by surrogate key, or nil if not found.
func (r *GameVersionRepository) GetByID(ctx context.Context, id int64) (*model.GameVersion, error) {
	v, err := scanGameVersion(r.pool.QueryRow(ctx, `SELECT `+gameVersionColumns+` FROM game_version WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("store: querying game version %d: %w", id, err)
	}
	return v, nil
}
