package store

import (
	"fmt"

	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/brightforge/gamevault/internal/model"
)

// MatchLogRepository persists the append-only match history (spec §3
// MatchLog).
type MatchLogRepository struct {
	pool *pgxpool.Pool
}

func NewMatchLogRepository(pool *pgxpool.Pool) *MatchLogRepository {
	return &MatchLogRepository{pool: pool}
}

// Create inserts one MatchLog row and returns its surrogate id. winnerPlayerID
// may be nil (no single winner recorded).
func (r *MatchLogRepository) Create(ctx context.Context, ml model.MatchLog) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO match_log(room_id, game_ref, game_version_ref, started_at, ended_at, reason, winner_player_id, results_json)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8) RETURNING id`,
		ml.RoomID, ml.GameRef, ml.GameVersionRef, ml.StartedAt, ml.EndedAt, ml.Reason, ml.WinnerPlayerID, ml.ResultsJSON,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("store: creating match log for room %d: %w", ml.RoomID, err)
	}
	return id, nil
}

// HasPlayerPlayed reports whether playerId appears in any recorded match's
// resultsJson for gameRef. It matches the participant object
// `{"userId":<id>}` that the lobby's persistMatchLog writes into the
// envelope's "players" list.
func (r *MatchLogRepository) HasPlayerPlayed(ctx context.Context, gameRef, playerID int64) (bool, error) {
	marker := fmt.Sprintf(`%%{"userId":%d}%%`, playerID)
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM match_log WHERE game_ref = $1 AND results_json LIKE $2)`,
		gameRef, marker,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("store: checking play history for game %d player %d: %w", gameRef, playerID, err)
	}
	return exists, nil
}

// ListByPlayer returns the 50 most recent match logs mentioning playerId,
// newest first, with denormalized gameId/version.
func (r *MatchLogRepository) ListByPlayer(ctx context.Context, playerID int64) ([]model.MatchLog, error) {
	marker := fmt.Sprintf(`%%{"userId":%d}%%`, playerID)
	rows, err := r.pool.Query(ctx,
		`SELECT ml.id, ml.room_id, ml.game_ref, ml.game_version_ref, ml.started_at, ml.ended_at,
		        ml.reason, ml.winner_player_id, ml.results_json, g.game_id, gv.version
		 FROM match_log ml
		 JOIN game g ON g.id = ml.game_ref
		 JOIN game_version gv ON gv.id = ml.game_version_ref
		 WHERE ml.results_json LIKE $1
		 ORDER BY ml.ended_at DESC, ml.id DESC
		 LIMIT 50`, marker,
	)
	if err != nil {
		return nil, fmt.Errorf("store: listing match logs for player %d: %w", playerID, err)
	}
	defer rows.Close()

	var out []model.MatchLog
	for rows.Next() {
		var m model.MatchLog
		if err := rows.Scan(&m.ID, &m.RoomID, &m.GameRef, &m.GameVersionRef, &m.StartedAt, &m.EndedAt,
			&m.Reason, &m.WinnerPlayerID, &m.ResultsJSON, &m.GameID, &m.Version); err != nil {
			return nil, fmt.Errorf("store: scanning match log row: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
