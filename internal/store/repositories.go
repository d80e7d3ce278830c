package store

import "github.com/jackc/pgx/v5/pgxpool"

// Repositories bundles one repository per persisted collection (spec §3),
// handed to the dispatch table as a single unit.
type Repositories struct {
	DevUser     *DevUserRepository
	PlayerUser  *PlayerUserRepository
	Game        *GameRepository
	GameVersion *GameVersionRepository
	Review      *ReviewRepository
	Room        *RoomRepository
	MatchLog    *MatchLogRepository
}

// NewRepositories constructs one repository of each kind over pool.
func NewRepositories(pool *pgxpool.Pool) *Repositories {
	return &Repositories{
		DevUser:     NewDevUserRepository(pool),
		PlayerUser:  NewPlayerUserRepository(pool),
		Game:        NewGameRepository(pool),
		GameVersion: NewGameVersionRepository(pool),
		Review:      NewReviewRepository(pool),
		Room:        NewRoomRepository(pool),
		MatchLog:    NewMatchLogRepository(pool),
	}
}
