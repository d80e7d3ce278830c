package store

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/brightforge/gamevault/internal/model"
	"github.com/brightforge/gamevault/internal/security"
	"github.com/brightforge/gamevault/internal/wire"
)

// handlerFunc answers one (collection, action) RPC call (spec §6.2).
type handlerFunc func(ctx context.Context, repos *Repositories, data json.RawMessage) wire.Reply

// dispatchTable is the closed-set collection->action mapping spec §9 calls
// for, generalizing the teacher's byte-opcode switch in
// internal/login/handler.go to request-string routing.
var dispatchTable = map[string]map[string]handlerFunc{
	"DevUser": {
		"register":       devUserRegister,
		"login":          devUserLogin,
		"get_by_username": devUserGetByUsername,
		"get_by_id":       devUserGetByID,
	},
	"PlayerUser": {
		"register":        playerUserRegister,
		"login":           playerUserLogin,
		"get_by_username": playerUserGetByUsername,
	},
	"Game": {
		"create":         gameCreate,
		"get_by_gameId":  gameGetByGameID,
		"list_public":    gameListPublic,
		"list_by_dev":    gameListByDev,
		"set_delisted":   gameSetDelisted,
	},
	"GameVersion": {
		"create":                gameVersionCreate,
		"list_for_gameId":       gameVersionListForGame,
		"get_for_gameId_version": gameVersionGetForGameVersion,
		"latest_for_gameId":     gameVersionLatestForGame,
		"get_by_id":             gameVersionGetByID,
	},
	"Review": {
		"upsert":          reviewUpsert,
		"list_for_gameId": reviewListForGame,
	},
	"Room": {
		"create":                  roomCreate,
		"has_playing_for_gameId":  roomHasPlayingForGame,
		"list":                    roomList,
		"get":                     roomGet,
		"add_member":              roomAddMember,
		"remove_member":           roomRemoveMember,
		"set_status":              roomSetStatus,
		"set_host":                roomSetHost,
		"delete_if_empty":         roomDeleteIfEmpty,
	},
	"MatchLog": {
		"create":            matchLogCreate,
		"has_player_played": matchLogHasPlayerPlayed,
		"list_by_player":    matchLogListByPlayer,
	},
}

// Dispatch routes one store RPC request (spec §6.2) to its handler,
// returning wire.ErrUnknownType for an unrecognized collection or action.
func Dispatch(ctx context.Context, repos *Repositories, collection, action string, data json.RawMessage) wire.Reply {
	actions, ok := dispatchTable[collection]
	if !ok {
		return wire.Err(wire.ErrUnknownType, map[string]any{"collection": collection})
	}
	fn, ok := actions[action]
	if !ok {
		return wire.Err(wire.ErrUnknownType, map[string]any{"collection": collection, "action": action})
	}
	return fn(ctx, repos, data)
}

func dbError(err error) wire.Reply {
	return wire.Err(wire.ErrDBError, map[string]any{"detail": err.Error()})
}

// --- DevUser ---

type credentialsReq struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func devUserRegister(ctx context.Context, repos *Repositories, data json.RawMessage) wire.Reply {
	var req credentialsReq
	if err := json.Unmarshal(data, &req); err != nil {
		return wire.Err(wire.ErrMissingFields, nil)
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		return wire.Err(wire.ErrMissingFields, nil)
	}
	salt, err := security.NewSalt()
	if err != nil {
		return dbError(err)
	}
	hash := security.HashPassword(req.Password, salt)
	u, err := repos.DevUser.Create(ctx, req.Username, salt, hash)
	if err != nil {
		if err == ErrUsernameTaken {
			return wire.Err(wire.ErrUsernameExists, nil)
		}
		return dbError(err)
	}
	return wire.OK(map[string]any{"developerId": u.ID, "username": u.Username})
}

func devUserLogin(ctx context.Context, repos *Repositories, data json.RawMessage) wire.Reply {
	var req credentialsReq
	if err := json.Unmarshal(data, &req); err != nil {
		return wire.Err(wire.ErrMissingFields, nil)
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		return wire.Err(wire.ErrMissingFields, nil)
	}
	u, err := repos.DevUser.GetByUsername(ctx, req.Username)
	if err != nil {
		return dbError(err)
	}
	if u == nil || !security.VerifyPassword(req.Password, u.Salt, u.PasswordHash) {
		return wire.Err(wire.ErrBadCredentials, nil)
	}
	if err := repos.DevUser.TouchLastLogin(ctx, u.ID); err != nil {
		return dbError(err)
	}
	return wire.OK(map[string]any{"developerId": u.ID, "username": u.Username})
}

func devUserGetByUsername(ctx context.Context, repos *Repositories, data json.RawMessage) wire.Reply {
	var req struct {
		Username string `json:"username"`
	}
	if err := json.Unmarshal(data, &req); err != nil || req.Username == "" {
		return wire.Err(wire.ErrMissingFields, nil)
	}
	u, err := repos.DevUser.GetByUsername(ctx, req.Username)
	if err != nil {
		return dbError(err)
	}
	if u == nil {
		return wire.Err(wire.ErrNotFound, nil)
	}
	return wire.OK(map[string]any{"developerId": u.ID, "username": u.Username, "createdAt": u.CreatedAt})
}

func devUserGetByID(ctx context.Context, repos *Repositories, data json.RawMessage) wire.Reply {
	var req struct {
		DeveloperID int64 `json:"developerId"`
	}
	if err := json.Unmarshal(data, &req); err != nil || req.DeveloperID <= 0 {
		return wire.Err(wire.ErrMissingFields, nil)
	}
	u, err := repos.DevUser.GetByID(ctx, req.DeveloperID)
	if err != nil {
		return dbError(err)
	}
	if u == nil {
		return wire.Err(wire.ErrNotFound, nil)
	}
	return wire.OK(map[string]any{"developerId": u.ID, "username": u.Username})
}

// --- PlayerUser ---

func playerUserRegister(ctx context.Context, repos *Repositories, data json.RawMessage) wire.Reply {
	var req credentialsReq
	if err := json.Unmarshal(data, &req); err != nil {
		return wire.Err(wire.ErrMissingFields, nil)
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		return wire.Err(wire.ErrMissingFields, nil)
	}
	salt, err := security.NewSalt()
	if err != nil {
		return dbError(err)
	}
	hash := security.HashPassword(req.Password, salt)
	u, err := repos.PlayerUser.Create(ctx, req.Username, salt, hash)
	if err != nil {
		if err == ErrUsernameTaken {
			return wire.Err(wire.ErrUsernameExists, nil)
		}
		return dbError(err)
	}
	return wire.OK(map[string]any{"playerId": u.ID, "username": u.Username})
}

func playerUserLogin(ctx context.Context, repos *Repositories, data json.RawMessage) wire.Reply {
	var req credentialsReq
	if err := json.Unmarshal(data, &req); err != nil {
		return wire.Err(wire.ErrMissingFields, nil)
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		return wire.Err(wire.ErrMissingFields, nil)
	}
	u, err := repos.PlayerUser.GetByUsername(ctx, req.Username)
	if err != nil {
		return dbError(err)
	}
	if u == nil || !security.VerifyPassword(req.Password, u.Salt, u.PasswordHash) {
		return wire.Err(wire.ErrBadCredentials, nil)
	}
	if err := repos.PlayerUser.TouchLastLogin(ctx, u.ID); err != nil {
		return dbError(err)
	}
	return wire.OK(map[string]any{"playerId": u.ID, "username": u.Username})
}

func playerUserGetByUsername(ctx context.Context, repos *Repositories, data json.RawMessage) wire.Reply {
	var req struct {
		Username string `json:"username"`
	}
	if err := json.Unmarshal(data, &req); err != nil || req.Username == "" {
		return wire.Err(wire.ErrMissingFields, nil)
	}
	u, err := repos.PlayerUser.GetByUsername(ctx, req.Username)
	if err != nil {
		return dbError(err)
	}
	if u == nil {
		return wire.Err(wire.ErrNotFound, nil)
	}
	return wire.OK(map[string]any{"playerId": u.ID, "username": u.Username})
}

// --- Game ---

func gameCreate(ctx context.Context, repos *Repositories, data json.RawMessage) wire.Reply {
	var req struct {
		GameID      string `json:"gameId"`
		Name        string `json:"name"`
		Description string `json:"description"`
		DeveloperID int64  `json:"developerId"`
	}
	if err := json.Unmarshal(data, &req); err != nil {
		return wire.Err(wire.ErrMissingFields, nil)
	}
	req.GameID, req.Name, req.Description = strings.TrimSpace(req.GameID), strings.TrimSpace(req.Name), strings.TrimSpace(req.Description)
	if req.GameID == "" || req.Name == "" || req.Description == "" || req.DeveloperID <= 0 {
		return wire.Err(wire.ErrMissingFields, nil)
	}
	g, err := repos.Game.Create(ctx, req.GameID, req.Name, req.Description, req.DeveloperID)
	if err != nil {
		if err == ErrGameIDTaken {
			return wire.Err(wire.ErrGameExists, nil)
		}
		return dbError(err)
	}
	return wire.OK(map[string]any{"gameDbId": g.ID})
}

func gameGetByGameID(ctx context.Context, repos *Repositories, data json.RawMessage) wire.Reply {
	var req struct {
		GameID string `json:"gameId"`
	}
	if err := json.Unmarshal(data, &req); err != nil || req.GameID == "" {
		return wire.Err(wire.ErrMissingFields, nil)
	}
	g, err := repos.Game.GetByGameID(ctx, req.GameID)
	if err != nil {
		return dbError(err)
	}
	if g == nil {
		return wire.Err(wire.ErrNoSuchGame, nil)
	}
	return wire.OK(map[string]any{"game": g})
}

func gameListPublic(ctx context.Context, repos *Repositories, _ json.RawMessage) wire.Reply {
	games, err := repos.Game.ListPublic(ctx)
	if err != nil {
		return dbError(err)
	}
	return wire.OK(map[string]any{"games": games})
}

func gameListByDev(ctx context.Context, repos *Repositories, data json.RawMessage) wire.Reply {
	var req struct {
		DeveloperID int64 `json:"developerId"`
	}
	if err := json.Unmarshal(data, &req); err != nil || req.DeveloperID <= 0 {
		return wire.Err(wire.ErrMissingFields, nil)
	}
	games, err := repos.Game.ListByDeveloper(ctx, req.DeveloperID)
	if err != nil {
		return dbError(err)
	}
	return wire.OK(map[string]any{"games": games})
}

func gameSetDelisted(ctx context.Context, repos *Repositories, data json.RawMessage) wire.Reply {
	var req struct {
		GameID      string `json:"gameId"`
		DeveloperID int64  `json:"developerId"`
		Delisted    bool   `json:"delisted"`
	}
	if err := json.Unmarshal(data, &req); err != nil || req.GameID == "" || req.DeveloperID <= 0 {
		return wire.Err(wire.ErrMissingFields, nil)
	}
	owned, err := repos.Game.SetDelisted(ctx, req.GameID, req.DeveloperID, req.Delisted)
	if err != nil {
		if err == ErrNotFound {
			return wire.Err(wire.ErrNoSuchGame, nil)
		}
		return dbError(err)
	}
	if !owned {
		return wire.Err(wire.ErrNotOwner, nil)
	}
	return wire.OK(nil)
}

// --- GameVersion ---

func gameVersionCreate(ctx context.Context, repos *Repositories, data json.RawMessage) wire.Reply {
	var req struct {
		GameDbID      int64            `json:"gameDbId"`
		Version       string           `json:"version"`
		Changelog     string           `json:"changelog"`
		FileName      string           `json:"fileName"`
		SizeBytes     int64            `json:"sizeBytes"`
		SHA256        string           `json:"sha256"`
		ZipPath       string           `json:"zipPath"`
		ExtractedPath string           `json:"extractedPath"`
		ManifestJSON  string           `json:"manifestJson"`
		ClientType    model.ClientType `json:"clientType"`
		MinPlayers    int              `json:"minPlayers"`
		MaxPlayers    int              `json:"maxPlayers"`
	}
	if err := json.Unmarshal(data, &req); err != nil {
		return wire.Err(wire.ErrMissingFields, nil)
	}
	req.Version = strings.TrimSpace(req.Version)
	if req.GameDbID <= 0 || req.Version == "" || req.FileName == "" || req.SHA256 == "" ||
		req.ZipPath == "" || req.ExtractedPath == "" || req.ManifestJSON == "" || req.ClientType == "" {
		return wire.Err(wire.ErrMissingFields, nil)
	}
	v, err := repos.GameVersion.Create(ctx, CreateParams{
		GameRef: req.GameDbID, Version: req.Version, Changelog: strings.TrimSpace(req.Changelog),
		FileName: req.FileName, SizeBytes: req.SizeBytes, SHA256: req.SHA256,
		ZipPath: req.ZipPath, ExtractedPath: req.ExtractedPath, ManifestJSON: req.ManifestJSON,
		ClientType: req.ClientType, MinPlayers: req.MinPlayers, MaxPlayers: req.MaxPlayers,
	})
	if err != nil {
		if err == ErrVersionTaken {
			return wire.Err(wire.ErrVersionExists, nil)
		}
		return dbError(err)
	}
	return wire.OK(map[string]any{"gameVersionId": v.ID})
}

func gameVersionListForGame(ctx context.Context, repos *Repositories, data json.RawMessage) wire.Reply {
	var req struct {
		GameID string `json:"gameId"`
	}
	if err := json.Unmarshal(data, &req); err != nil || req.GameID == "" {
		return wire.Err(wire.ErrMissingFields, nil)
	}
	g, err := repos.Game.GetByGameID(ctx, req.GameID)
	if err != nil {
		return dbError(err)
	}
	if g == nil {
		return wire.Err(wire.ErrNoSuchGame, nil)
	}
	versions, err := repos.GameVersion.ListForGame(ctx, g.ID)
	if err != nil {
		return dbError(err)
	}
	return wire.OK(map[string]any{"versions": versions})
}

func gameVersionGetForGameVersion(ctx context.Context, repos *Repositories, data json.RawMessage) wire.Reply {
	var req struct {
		GameID  string `json:"gameId"`
		Version string `json:"version"`
	}
	if err := json.Unmarshal(data, &req); err != nil || req.GameID == "" || req.Version == "" {
		return wire.Err(wire.ErrMissingFields, nil)
	}
	g, err := repos.Game.GetByGameID(ctx, req.GameID)
	if err != nil {
		return dbError(err)
	}
	if g == nil {
		return wire.Err(wire.ErrNoSuchGame, nil)
	}
	if g.Delisted {
		return wire.Err(wire.ErrGameDelisted, nil)
	}
	v, err := repos.GameVersion.GetByGameRefAndVersion(ctx, g.ID, req.Version)
	if err != nil {
		return dbError(err)
	}
	if v == nil {
		return wire.Err(wire.ErrNoVersion, nil)
	}
	return wire.OK(map[string]any{"version": v})
}

func gameVersionLatestForGame(ctx context.Context, repos *Repositories, data json.RawMessage) wire.Reply {
	var req struct {
		GameID string `json:"gameId"`
	}
	if err := json.Unmarshal(data, &req); err != nil || req.GameID == "" {
		return wire.Err(wire.ErrMissingFields, nil)
	}
	g, err := repos.Game.GetByGameID(ctx, req.GameID)
	if err != nil {
		return dbError(err)
	}
	if g == nil {
		return wire.Err(wire.ErrNoSuchGame, nil)
	}
	if g.Delisted {
		return wire.Err(wire.ErrGameDelisted, nil)
	}
	v, err := repos.GameVersion.Latest(ctx, g.ID)
	if err != nil {
		return dbError(err)
	}
	if v == nil {
		return wire.Err(wire.ErrNoVersion, nil)
	}
	return wire.OK(map[string]any{"version": v})
}

func gameVersionGetByID(ctx context.Context, repos *Repositories, data json.RawMessage) wire.Reply {
	var req struct {
		GameVersionID int64 `json:"gameVersionId"`
	}
	if err := json.Unmarshal(data, &req); err != nil || req.GameVersionID <= 0 {
		return wire.Err(wire.ErrMissingFields, nil)
	}
	v, err := repos.GameVersion.GetByID(ctx, req.GameVersionID)
	if err != nil {
		return dbError(err)
	}
	if v == nil {
		return wire.Err(wire.ErrNoVersion, nil)
	}
	return wire.OK(map[string]any{"version": v})
}

// --- Review ---

func reviewUpsert(ctx context.Context, repos *Repositories, data json.RawMessage) wire.Reply {
	var req struct {
		GameID   string `json:"gameId"`
		PlayerID int64  `json:"playerId"`
		Rating   int    `json:"rating"`
		Comment  string `json:"comment"`
	}
	if err := json.Unmarshal(data, &req); err != nil || req.GameID == "" || req.PlayerID <= 0 || req.Rating < 1 || req.Rating > 5 {
		return wire.Err(wire.ErrMissingFields, nil)
	}
	g, err := repos.Game.GetByGameID(ctx, req.GameID)
	if err != nil {
		return dbError(err)
	}
	if g == nil {
		return wire.Err(wire.ErrNoSuchGame, nil)
	}
	if err := repos.Review.Upsert(ctx, g.ID, req.PlayerID, req.Rating, strings.TrimSpace(req.Comment)); err != nil {
		return dbError(err)
	}
	return wire.OK(nil)
}

func reviewListForGame(ctx context.Context, repos *Repositories, data json.RawMessage) wire.Reply {
	var req struct {
		GameID string `json:"gameId"`
	}
	if err := json.Unmarshal(data, &req); err != nil || req.GameID == "" {
		return wire.Err(wire.ErrMissingFields, nil)
	}
	g, err := repos.Game.GetByGameID(ctx, req.GameID)
	if err != nil {
		return dbError(err)
	}
	if g == nil {
		return wire.Err(wire.ErrNoSuchGame, nil)
	}
	reviews, err := repos.Review.ListForGame(ctx, g.ID)
	if err != nil {
		return dbError(err)
	}
	return wire.OK(map[string]any{"reviews": reviews})
}

// --- Room ---

func roomCreate(ctx context.Context, repos *Repositories, data json.RawMessage) wire.Reply {
	var req struct {
		HostPlayerID   int64 `json:"hostPlayerId"`
		GameDbID       int64 `json:"gameDbId"`
		GameVersionID  int64 `json:"gameVersionId"`
	}
	if err := json.Unmarshal(data, &req); err != nil || req.HostPlayerID <= 0 || req.GameDbID <= 0 || req.GameVersionID <= 0 {
		return wire.Err(wire.ErrMissingFields, nil)
	}
	roomID, err := repos.Room.Create(ctx, req.HostPlayerID, req.GameDbID, req.GameVersionID)
	if err != nil {
		return dbError(err)
	}
	return wire.OK(map[string]any{"roomId": roomID})
}

func roomHasPlayingForGame(ctx context.Context, repos *Repositories, data json.RawMessage) wire.Reply {
	var req struct {
		GameID string `json:"gameId"`
	}
	if err := json.Unmarshal(data, &req); err != nil || req.GameID == "" {
		return wire.Err(wire.ErrMissingFields, nil)
	}
	playing, err := repos.Room.HasPlayingForGame(ctx, req.GameID)
	if err != nil {
		return dbError(err)
	}
	return wire.OK(map[string]any{"playing": playing})
}

func roomList(ctx context.Context, repos *Repositories, _ json.RawMessage) wire.Reply {
	rooms, err := repos.Room.List(ctx)
	if err != nil {
		return dbError(err)
	}
	return wire.OK(map[string]any{"rooms": rooms})
}

func roomGet(ctx context.Context, repos *Repositories, data json.RawMessage) wire.Reply {
	var req struct {
		RoomID int64 `json:"roomId"`
	}
	if err := json.Unmarshal(data, &req); err != nil || req.RoomID <= 0 {
		return wire.Err(wire.ErrMissingFields, nil)
	}
	room, err := repos.Room.Get(ctx, req.RoomID)
	if err != nil {
		return dbError(err)
	}
	if room == nil {
		return wire.Err(wire.ErrNoSuchRoom, nil)
	}
	return wire.OK(map[string]any{"room": room})
}

func roomAddMember(ctx context.Context, repos *Repositories, data json.RawMessage) wire.Reply {
	var req struct {
		RoomID   int64 `json:"roomId"`
		PlayerID int64 `json:"playerId"`
	}
	if err := json.Unmarshal(data, &req); err != nil || req.RoomID <= 0 || req.PlayerID <= 0 {
		return wire.Err(wire.ErrMissingFields, nil)
	}
	if err := repos.Room.AddMember(ctx, req.RoomID, req.PlayerID); err != nil {
		return dbError(err)
	}
	return wire.OK(nil)
}

func roomRemoveMember(ctx context.Context, repos *Repositories, data json.RawMessage) wire.Reply {
	var req struct {
		RoomID   int64 `json:"roomId"`
		PlayerID int64 `json:"playerId"`
	}
	if err := json.Unmarshal(data, &req); err != nil || req.RoomID <= 0 || req.PlayerID <= 0 {
		return wire.Err(wire.ErrMissingFields, nil)
	}
	if err := repos.Room.RemoveMember(ctx, req.RoomID, req.PlayerID); err != nil {
		return dbError(err)
	}
	return wire.OK(nil)
}

func roomSetStatus(ctx context.Context, repos *Repositories, data json.RawMessage) wire.Reply {
	var req struct {
		RoomID int64             `json:"roomId"`
		Status model.RoomStatus `json:"status"`
	}
	if err := json.Unmarshal(data, &req); err != nil || req.RoomID <= 0 || req.Status == "" {
		return wire.Err(wire.ErrMissingFields, nil)
	}
	if err := repos.Room.SetStatus(ctx, req.RoomID, req.Status); err != nil {
		return dbError(err)
	}
	return wire.OK(nil)
}

func roomSetHost(ctx context.Context, repos *Repositories, data json.RawMessage) wire.Reply {
	var req struct {
		RoomID       int64 `json:"roomId"`
		HostPlayerID int64 `json:"hostPlayerId"`
	}
	if err := json.Unmarshal(data, &req); err != nil || req.RoomID <= 0 || req.HostPlayerID <= 0 {
		return wire.Err(wire.ErrMissingFields, nil)
	}
	if err := repos.Room.SetHost(ctx, req.RoomID, req.HostPlayerID); err != nil {
		return dbError(err)
	}
	return wire.OK(nil)
}

func roomDeleteIfEmpty(ctx context.Context, repos *Repositories, data json.RawMessage) wire.Reply {
	var req struct {
		RoomID int64 `json:"roomId"`
	}
	if err := json.Unmarshal(data, &req); err != nil || req.RoomID <= 0 {
		return wire.Err(wire.ErrMissingFields, nil)
	}
	if err := repos.Room.DeleteIfEmpty(ctx, req.RoomID); err != nil {
		if err == ErrRoomNotEmpty {
			return wire.OK(map[string]any{"deleted": false})
		}
		return dbError(err)
	}
	return wire.OK(map[string]any{"deleted": true})
}

// --- MatchLog ---

func matchLogCreate(ctx context.Context, repos *Repositories, data json.RawMessage) wire.Reply {
	var req struct {
		RoomID         int64  `json:"roomId"`
		GameDbID       int64  `json:"gameDbId"`
		GameVersionID  int64  `json:"gameVersionId"`
		StartedAt      int64  `json:"startedAt"`
		EndedAt        int64  `json:"endedAt"`
		Reason         string `json:"reason"`
		WinnerPlayerID *int64 `json:"winnerPlayerId"`
		ResultsJSON    string `json:"resultsJson"`
	}
	if err := json.Unmarshal(data, &req); err != nil || req.RoomID <= 0 || req.GameDbID <= 0 ||
		req.GameVersionID <= 0 || req.Reason == "" || req.ResultsJSON == "" {
		return wire.Err(wire.ErrMissingFields, nil)
	}
	id, err := repos.MatchLog.Create(ctx, model.MatchLog{
		RoomID: req.RoomID, GameRef: req.GameDbID, GameVersionRef: req.GameVersionID,
		StartedAt: time.Unix(req.StartedAt, 0).UTC(), EndedAt: time.Unix(req.EndedAt, 0).UTC(),
		Reason: req.Reason, WinnerPlayerID: req.WinnerPlayerID, ResultsJSON: req.ResultsJSON,
	})
	if err != nil {
		return dbError(err)
	}
	return wire.OK(map[string]any{"matchLogId": id})
}

func matchLogHasPlayerPlayed(ctx context.Context, repos *Repositories, data json.RawMessage) wire.Reply {
	var req struct {
		GameID   string `json:"gameId"`
		PlayerID int64  `json:"playerId"`
	}
	if err := json.Unmarshal(data, &req); err != nil || req.GameID == "" || req.PlayerID <= 0 {
		return wire.Err(wire.ErrMissingFields, nil)
	}
	g, err := repos.Game.GetByGameID(ctx, req.GameID)
	if err != nil {
		return dbError(err)
	}
	if g == nil {
		return wire.Err(wire.ErrNoSuchGame, nil)
	}
	played, err := repos.MatchLog.HasPlayerPlayed(ctx, g.ID, req.PlayerID)
	if err != nil {
		return dbError(err)
	}
	return wire.OK(map[string]any{"played": played})
}

func matchLogListByPlayer(ctx context.Context, repos *Repositories, data json.RawMessage) wire.Reply {
	var req struct {
		PlayerID int64 `json:"playerId"`
	}
	if err := json.Unmarshal(data, &req); err != nil || req.PlayerID <= 0 {
		return wire.Err(wire.ErrMissingFields, nil)
	}
	logs, err := repos.MatchLog.ListByPlayer(ctx, req.PlayerID)
	if err != nil {
		return dbError(err)
	}
	return wire.OK(map[string]any{"logs": logs})
}
