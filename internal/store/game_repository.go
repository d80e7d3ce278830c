package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/brightforge/gamevault/internal/model"
)

// GameRepository persists published titles (spec §3 Game).
type GameRepository struct {
	pool *pgxpool.Pool
}

func NewGameRepository(pool *pgxpool.Pool) *GameRepository {
	return &GameRepository{pool: pool}
}

const gameColumns = `id, game_id, name, description, developer_id, delisted, created_at, updated_at`

func scanGame(row pgx.Row) (*model.Game, error) {
	var g model.Game
	if err := row.Scan(&g.ID, &g.GameID, &g.Name, &g.Description, &g.DeveloperID, &g.Delisted, &g.CreatedAt, &g.UpdatedAt); err != nil {
		return nil, err
	}
	return &g, nil
}

// Create inserts a new Game. Returns ErrGameIDTaken if gameId is already
// registered by any developer.
func (r *GameRepository) Create(ctx context.Context, gameID, name, description string, developerID int64) (*model.Game, error) {
	g, err := scanGame(r.pool.QueryRow(ctx,
		`INSERT INTO game(game_id, name, description, developer_id) VALUES ($1, $2, $3, $4)
		 RETURNING `+gameColumns,
		gameID, name, description, developerID,
	))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrGameIDTaken
		}
		return nil, fmt.Errorf("store: creating game %q: %w", gameID, err)
	}
	return g, nil
}

// GetByGameID returns the Game with the given slug, or nil if not found.
func (r *GameRepository) GetByGameID(ctx context.Context, gameID string) (*model.Game, error) {
	g, err := scanGame(r.pool.QueryRow(ctx, `SELECT `+gameColumns+` FROM game WHERE game_id = $1`, gameID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("store: querying game %q: %w", gameID, err)
	}
	return g, nil
}

// ListPublic returns every non-delisted game, newest-updated first.
func (r *GameRepository) ListPublic(ctx context.Context) ([]model.Game, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+gameColumns+` FROM game WHERE delisted = false ORDER BY updated_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("store: listing public games: %w", err)
	}
	return collectGames(rows)
}

// ListByDeveloper returns every game owned by developerID, including
// delisted ones, newest-updated first.
func (r *GameRepository) ListByDeveloper(ctx context.Context, developerID int64) ([]model.Game, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+gameColumns+` FROM game WHERE developer_id = $1 ORDER BY updated_at DESC, id DESC`, developerID)
	if err != nil {
		return nil, fmt.Errorf("store: listing games for developer %d: %w", developerID, err)
	}
	return collectGames(rows)
}

func collectGames(rows pgx.Rows) ([]model.Game, error) {
	defer rows.Close()
	var games []model.Game
	for rows.Next() {
		g, err := scanGame(rows)
		if err != nil {
			return nil, fmt.Errorf("store: scanning game row: %w", err)
		}
		games = append(games, *g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterating game rows: %w", err)
	}
	return games, nil
}

// SetDelisted flips the delisted flag, but only if requesterDeveloperID owns
// the game. Returns ErrNotFound / store.ErrNotOwner-equivalent via a bool.
func (r *GameRepository) SetDelisted(ctx context.Context, gameID string, requesterDeveloperID int64, delisted bool) (owned bool, err error) {
	var ownerID int64
	err = r.pool.QueryRow(ctx, `SELECT developer_id FROM game WHERE game_id = $1`, gameID).Scan(&ownerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, ErrNotFound
		}
		return false, fmt.Errorf("store: looking up game %q owner: %w", gameID, err)
	}
	if ownerID != requesterDeveloperID {
		return false, nil
	}
	_, err = r.pool.Exec(ctx, `UPDATE game SET delisted = $1, updated_at = now() WHERE game_id = $2`, delisted, gameID)
	if err != nil {
		return true, fmt.Errorf("store: updating game %q delisted flag: %w", gameID, err)
	}
	return true, nil
}

// TouchUpdatedAt bumps a game's updated_at. No caller in this repository
// uses it; GameVersionRepository.Create bumps updated_at itself.
func (r *GameRepository) TouchUpdatedAt(ctx context.Context, id int64) error {
	_, err := r.pool.Exec(ctx, `UPDATE game SET updated_at = now() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("store: touching game %d updated_at: %w", id, err)
	}
	return nil
}
