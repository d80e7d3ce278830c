package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/brightforge/gamevault/internal/model"
)

// ReviewRepository persists player ratings/comments (spec §3 Review).
type ReviewRepository struct {
	pool *pgxpool.Pool
}

func NewReviewRepository(pool *pgxpool.Pool) *ReviewRepository {
	return &ReviewRepository{pool: pool}
}

// Upsert inserts or updates the review for (gameRef, playerID).
func (r *ReviewRepository) Upsert(ctx context.Context, gameRef, playerID int64, rating int, comment string) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO review(game_ref, player_id, rating, comment) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (game_ref, player_id) DO UPDATE SET
		   rating = excluded.rating, comment = excluded.comment, updated_at = now()`,
		gameRef, playerID, rating, comment,
	)
	if err != nil {
		return fmt.Errorf("store: upserting review for game %d player %d: %w", gameRef, playerID, err)
	}
	return nil
}

// ListForGame returns every review of gameRef, newest-updated first.
func (r *ReviewRepository) ListForGame(ctx context.Context, gameRef int64) ([]model.Review, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, game_ref, player_id, rating, comment, created_at, updated_at
		 FROM review WHERE game_ref = $1 ORDER BY updated_at DESC, id DESC`, gameRef)
	if err != nil {
		return nil, fmt.Errorf("store: listing reviews for game %d: %w", gameRef, err)
	}
	defer rows.Close()

	var out []model.Review
	for rows.Next() {
		var rv model.Review
		if err := scanReview(rows, &rv); err != nil {
			return nil, fmt.Errorf("store: scanning review row: %w", err)
		}
		out = append(out, rv)
	}
	return out, rows.Err()
}

func scanReview(row pgx.Row, rv *model.Review) error {
	return row.Scan(&rv.ID, &rv.GameRef, &rv.PlayerID, &rv.Rating, &rv.Comment, &rv.CreatedAt, &rv.UpdatedAt)
}
