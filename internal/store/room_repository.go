package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/brightforge/gamevault/internal/model"
)

// RoomRepository persists pre-match/in-match groups (spec §3 Room,
// RoomMember).
type RoomRepository struct {
	pool *pgxpool.Pool
}

func NewRoomRepository(pool *pgxpool.Pool) *RoomRepository {
	return &RoomRepository{pool: pool}
}

// Create inserts a new Room in the waiting state and adds the host as its
// first member, atomically.
func (r *RoomRepository) Create(ctx context.Context, hostPlayerID, gameRef, gameVersionRef int64) (int64, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("store: beginning room create tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var roomID int64
	err = tx.QueryRow(ctx,
		`INSERT INTO room(host_player_id, game_ref, game_version_ref, status) VALUES ($1, $2, $3, 'waiting') RETURNING id`,
		hostPlayerID, gameRef, gameVersionRef,
	).Scan(&roomID)
	if err != nil {
		return 0, fmt.Errorf("store: creating room: %w", err)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO room_member(room_id, player_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		roomID, hostPlayerID,
	)
	if err != nil {
		return 0, fmt.Errorf("store: seeding host membership for room %d: %w", roomID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("store: committing room create: %w", err)
	}
	return roomID, nil
}

// HasPlayingForGame reports whether any room for gameID is currently
// playing; game_delist uses it to refuse delisting a game mid-match.
func (r *RoomRepository) HasPlayingForGame(ctx context.Context, gameID string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(
		   SELECT 1 FROM room r JOIN game g ON g.id = r.game_ref
		   WHERE g.game_id = $1 AND r.status = 'playing'
		 )`, gameID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("store: checking playing room for game %q: %w", gameID, err)
	}
	return exists, nil
}

const roomListQuery = `
SELECT r.id, r.host_player_id, r.status, r.created_at, r.updated_at,
       g.game_id, g.name, gv.version
FROM room r
JOIN game g ON g.id = r.game_ref
JOIN game_version gv ON gv.id = r.game_version_ref
ORDER BY r.updated_at DESC, r.id DESC`

// List returns every room, with membership populated, newest-updated first.
func (r *RoomRepository) List(ctx context.Context) ([]model.Room, error) {
	rows, err := r.pool.Query(ctx, roomListQuery)
	if err != nil {
		return nil, fmt.Errorf("store: listing rooms: %w", err)
	}

	var rooms []model.Room
	for rows.Next() {
		var rm model.Room
		if err := rows.Scan(&rm.ID, &rm.HostPlayerID, &rm.Status, &rm.CreatedAt, &rm.UpdatedAt,
			&rm.GameID, &rm.GameName, &rm.Version); err != nil {
			rows.Close()
			return nil, fmt.Errorf("store: scanning room row: %w", err)
		}
		rooms = append(rooms, rm)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("store: iterating room rows: %w", err)
	}
	rows.Close()

	for i := range rooms {
		players, err := r.membersOf(ctx, rooms[i].ID)
		if err != nil {
			return nil, err
		}
		rooms[i].Players = players
	}
	return rooms, nil
}

const roomGetQuery = `
SELECT r.id, r.host_player_id, r.status, r.created_at, r.updated_at,
       g.id, g.game_id, g.name, g.delisted,
       gv.id, gv.version, gv.client_type, gv.min_players, gv.max_players
FROM room r
JOIN game g ON g.id = r.game_ref
JOIN game_version gv ON gv.id = r.game_version_ref
WHERE r.id = $1`

// Get returns one Room with full denormalized fields, or nil if not found.
func (r *RoomRepository) Get(ctx context.Context, roomID int64) (*model.Room, error) {
	var rm model.Room
	var delisted bool
	err := r.pool.QueryRow(ctx, roomGetQuery, roomID).Scan(
		&rm.ID, &rm.HostPlayerID, &rm.Status, &rm.CreatedAt, &rm.UpdatedAt,
		&rm.GameRef, &rm.GameID, &rm.GameName, &delisted,
		&rm.GameVersionRef, &rm.Version, &rm.ClientType, &rm.MinPlayers, &rm.MaxPlayers,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("store: querying room %d: %w", roomID, err)
	}
	players, err := r.membersOf(ctx, roomID)
	if err != nil {
		return nil, err
	}
	rm.Players = players
	_ = delisted // surfaced to callers that need it via Game lookups, not duplicated on Room
	return &rm, nil
}

func (r *RoomRepository) membersOf(ctx context.Context, roomID int64) ([]int64, error) {
	rows, err := r.pool.Query(ctx, `SELECT player_id FROM room_member WHERE room_id = $1 ORDER BY joined_at ASC`, roomID)
	if err != nil {
		return nil, fmt.Errorf("store: listing members of room %d: %w", roomID, err)
	}
	defer rows.Close()
	var players []int64
	for rows.Next() {
		var p int64
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("store: scanning room member row: %w", err)
		}
		players = append(players, p)
	}
	return players, rows.Err()
}

// AddMember adds playerID to roomID, idempotently, bumping updated_at.
func (r *RoomRepository) AddMember(ctx context.Context, roomID, playerID int64) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("store: beginning add member tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`INSERT INTO room_member(room_id, player_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`, roomID, playerID,
	); err != nil {
		return fmt.Errorf("store: adding member %d to room %d: %w", playerID, roomID, err)
	}
	if _, err := tx.Exec(ctx, `UPDATE room SET updated_at = now() WHERE id = $1`, roomID); err != nil {
		return fmt.Errorf("store: bumping room %d updated_at: %w", roomID, err)
	}
	return tx.Commit(ctx)
}

// RemoveMember removes playerID from roomID, bumping updated_at.
func (r *RoomRepository) RemoveMember(ctx context.Context, roomID, playerID int64) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("store: beginning remove member tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM room_member WHERE room_id = $1 AND player_id = $2`, roomID, playerID); err != nil {
		return fmt.Errorf("store: removing member %d from room %d: %w", playerID, roomID, err)
	}
	if _, err := tx.Exec(ctx, `UPDATE room SET updated_at = now() WHERE id = $1`, roomID); err != nil {
		return fmt.Errorf("store: bumping room %d updated_at: %w", roomID, err)
	}
	return tx.Commit(ctx)
}

// SetStatus transitions roomID to status (spec §3 RoomStatus).
func (r *RoomRepository) SetStatus(ctx context.Context, roomID int64, status model.RoomStatus) error {
	_, err := r.pool.Exec(ctx, `UPDATE room SET status = $1, updated_at = now() WHERE id = $2`, status, roomID)
	if err != nil {
		return fmt.Errorf("store: setting room %d status to %s: %w", roomID, status, err)
	}
	return nil
}

// SetHost reassigns hostPlayerId, used on host-succession (spec §4.3).
func (r *RoomRepository) SetHost(ctx context.Context, roomID, hostPlayerID int64) error {
	_, err := r.pool.Exec(ctx, `UPDATE room SET host_player_id = $1, updated_at = now() WHERE id = $2`, hostPlayerID, roomID)
	if err != nil {
		return fmt.Errorf("store: setting room %d host to %d: %w", roomID, hostPlayerID, err)
	}
	return nil
}

// DeleteIfEmpty deletes roomID only if it has no remaining members.
// Returns ErrRoomNotEmpty if membership is non-zero.
func (r *RoomRepository) DeleteIfEmpty(ctx context.Context, roomID int64) error {
	var n int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM room_member WHERE room_id = $1`, roomID).Scan(&n); err != nil {
		return fmt.Errorf("store: counting members of room %d: %w", roomID, err)
	}
	if n != 0 {
		return ErrRoomNotEmpty
	}
	if _, err := r.pool.Exec(ctx, `DELETE FROM room WHERE id = $1`, roomID); err != nil {
		return fmt.Errorf("store: deleting empty room %d: %w", roomID, err)
	}
	return nil
}
