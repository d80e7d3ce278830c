// Package model holds the persisted record shapes owned by the store
// service. All identifiers are integer surrogate keys unless noted.
package model

import "time"

// DevUser is a developer account. The username namespace is independent of
// PlayerUser.
type DevUser struct {
	ID            int64
	Username      string
	Salt          []byte
	PasswordHash  []byte
	CreatedAt     time.Time
	LastLoginAt   *time.Time
}

// PlayerUser is a player account, independent of the DevUser namespace.
type PlayerUser struct {
	ID           int64
	Username     string
	Salt         []byte
	PasswordHash []byte
	CreatedAt    time.Time
	LastLoginAt  *time.Time
}

// Game is a published title. GameId is an immutable, unique slug; only the
// owning developer may mutate it.
type Game struct {
	ID          int64
	GameID      string
	Name        string
	Description string
	DeveloperID int64
	Delisted    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ClientType enumerates the kind of client a game version ships.
type ClientType string

const (
	ClientTypeCLI ClientType = "cli"
	ClientTypeGUI ClientType = "gui"
)

// GameVersion is one immutable release of a Game.
type GameVersion struct {
	ID             int64
	GameRef        int64
	Version        string
	Changelog      string
	UploadedAt     time.Time
	FileName       string
	SizeBytes      int64
	SHA256         string
	ZipPath        string
	ExtractedPath  string
	ManifestJSON   string
	ClientType     ClientType
	MinPlayers     int
	MaxPlayers     int
}

// Review is a player's rating and comment for a game. Upserted by
// (GameRef, PlayerID).
type Review struct {
	ID        int64
	GameRef   int64
	PlayerID  int64
	Rating    int
	Comment   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// RoomStatus enumerates the lifecycle state of a Room.
type RoomStatus string

const (
	RoomWaiting RoomStatus = "waiting"
	RoomPlaying RoomStatus = "playing"
)

// Room is a pre-match (or in-match) group of players targeting one
// GameVersion. Deleted once membership becomes empty.
type Room struct {
	ID             int64
	HostPlayerID   int64
	GameRef        int64
	GameVersionRef int64
	Status         RoomStatus
	CreatedAt      time.Time
	UpdatedAt      time.Time

	// Denormalized fields populated by the store on reads for client
	// convenience; not separately persisted columns.
	GameID     string
	GameName   string
	Version    string
	ClientType ClientType
	MinPlayers int
	MaxPlayers int
	Players    []int64
}

// RoomMember is the composite-unique membership row for a Room.
type RoomMember struct {
	RoomID    int64
	PlayerID  int64
	JoinedAt  time.Time
}

// MatchLog is an append-only record of one playing excursion of a room.
type MatchLog struct {
	ID             int64
	RoomID         int64
	GameRef        int64
	GameVersionRef int64
	StartedAt      time.Time
	EndedAt        time.Time
	Reason         string
	WinnerPlayerID *int64
	ResultsJSON    string

	// Denormalized for list_by_player convenience.
	GameID  string
	Version string
}
