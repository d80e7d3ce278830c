package lobby

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net"
	"sort"
	"strings"

	"github.com/brightforge/gamevault/internal/lobby/room"
	"github.com/brightforge/gamevault/internal/manifest"
	"github.com/brightforge/gamevault/internal/model"
	"github.com/brightforge/gamevault/internal/storerpc"
	"github.com/brightforge/gamevault/internal/wire"
)

// Deps bundles the dependencies every lobby handler needs, mirroring
// internal/developer's Deps shape.
type Deps struct {
	Store     *storerpc.Client
	Sessions  *SessionManager
	Downloads *downloadManager
	Engine    *room.Engine
}

type handlerFunc func(ctx context.Context, d *Deps, conn net.Conn, data json.RawMessage) wire.Reply

// dispatchTable is the closed-set type->handler mapping (spec §4.3/§4.4).
// post_result is reachable without a session, matching spec's "accepted
// from any connection (game servers use a fresh connection, unauthenticated)".
var dispatchTable = map[string]handlerFunc{
	"player_register": handlePlayerRegister,
	"player_login":    handlePlayerLogin,
	"player_logout":   handlePlayerLogout,
	"player_list":     handlePlayerList,

	"store_list_games":     handleStoreListGames,
	"store_game_detail":    handleStoreGameDetail,
	"store_download_init":  handleStoreDownloadInit,
	"store_download_chunk": handleStoreDownloadChunk,

	"room_list":   handleRoomList,
	"room_detail": handleRoomDetail,
	"room_create": handleRoomCreate,
	"room_join":   handleRoomJoin,
	"room_leave":  handleRoomLeave,
	"room_start":  handleRoomStart,

	"post_result": handlePostResult,

	"review_create_or_update": handleReviewUpsert,
	"match_list_mine":         handleMatchListMine,
}

// Dispatch routes one request by its type string.
func Dispatch(ctx context.Context, d *Deps, conn net.Conn, typ string, data json.RawMessage) wire.Reply {
	fn, ok := dispatchTable[typ]
	if !ok {
		return wire.Err(wire.ErrUnknownType, nil)
	}
	return fn(ctx, d, conn, data)
}

func requireLogin(d *Deps, conn net.Conn) (*Session, bool) {
	return d.Sessions.Get(conn)
}

func dbError(err error) wire.Reply {
	return wire.Err(wire.ErrDBError, map[string]any{"detail": err.Error()})
}

// --- Player auth ---

func handlePlayerRegister(ctx context.Context, d *Deps, _ net.Conn, data json.RawMessage) wire.Reply {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		raw = map[string]any{}
	}
	reply, err := d.Store.Call(ctx, "PlayerUser", "register", raw)
	if err != nil {
		return dbError(err)
	}
	if !reply.OK() {
		return wire.Err(reply.Error(), nil)
	}
	return wire.OK(map[string]any{"playerId": reply["playerId"], "username": reply["username"]})
}

func handlePlayerLogin(ctx context.Context, d *Deps, conn net.Conn, data json.RawMessage) wire.Reply {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		raw = map[string]any{}
	}
	reply, err := d.Store.Call(ctx, "PlayerUser", "login", raw)
	if err != nil {
		return dbError(err)
	}
	if !reply.OK() {
		return wire.Err(reply.Error(), nil)
	}
	var playerID int64
	var username string
	if err := reply.Decode("playerId", &playerID); err != nil {
		return dbError(err)
	}
	_ = reply.Decode("username", &username)
	if playerID <= 0 {
		return wire.Err(wire.ErrDBError, map[string]any{"detail": "bad_db_user"})
	}
	if _, ok := d.Sessions.Login(conn, playerID, username); !ok {
		return wire.Err(wire.ErrAlreadyOnline, nil)
	}
	return wire.OK(map[string]any{"playerId": playerID, "username": username})
}

func handlePlayerLogout(_ context.Context, d *Deps, conn net.Conn, _ json.RawMessage) wire.Reply {
	d.Sessions.Logout(conn)
	return wire.OK(map[string]any{"loggedOut": true})
}

func handlePlayerList(_ context.Context, d *Deps, conn net.Conn, _ json.RawMessage) wire.Reply {
	if _, ok := requireLogin(d, conn); !ok {
		return wire.Err(wire.ErrNotLoggedIn, nil)
	}
	online := d.Sessions.Online()
	out := make([]map[string]any, 0, len(online))
	for _, s := range online {
		out = append(out, map[string]any{"playerId": s.PlayerID, "username": s.Username})
	}
	return wire.OK(map[string]any{"players": out})
}

// --- Catalog & download ---

func handleStoreListGames(ctx context.Context, d *Deps, conn net.Conn, _ json.RawMessage) wire.Reply {
	if _, ok := requireLogin(d, conn); !ok {
		return wire.Err(wire.ErrNotLoggedIn, nil)
	}
	reply, err := d.Store.Call(ctx, "Game", "list_public", nil)
	if err != nil {
		return dbError(err)
	}
	if !reply.OK() {
		return wire.Err(reply.Error(), nil)
	}
	var games []model.Game
	if err := reply.Decode("games", &games); err != nil {
		return dbError(err)
	}

	out := make([]map[string]any, 0, len(games))
	for _, g := range games {
		entry := map[string]any{
			"gameId":      g.GameID,
			"name":        g.Name,
			"description": g.Description,
		}
		if dev, err := d.Store.Call(ctx, "DevUser", "get_by_id", map[string]any{"developerId": g.DeveloperID}); err == nil && dev.OK() {
			entry["developerUsername"] = dev["username"]
		}
		if latest, err := d.Store.Call(ctx, "GameVersion", "latest_for_gameId", map[string]any{"gameId": g.GameID}); err == nil && latest.OK() {
			var v model.GameVersion
			if latest.Decode("version", &v) == nil {
				entry["latestVersion"] = v.Version
				entry["clientType"] = v.ClientType
				entry["minPlayers"] = v.MinPlayers
				entry["maxPlayers"] = v.MaxPlayers
			}
		}
		out = append(out, entry)
	}
	return wire.OK(map[string]any{"games": out})
}

func handleStoreGameDetail(ctx context.Context, d *Deps, conn net.Conn, data json.RawMessage) wire.Reply {
	if _, ok := requireLogin(d, conn); !ok {
		return wire.Err(wire.ErrNotLoggedIn, nil)
	}
	var req struct {
		GameID string `json:"gameId"`
	}
	if err := json.Unmarshal(data, &req); err != nil || strings.TrimSpace(req.GameID) == "" {
		return wire.Err(wire.ErrMissingFields, nil)
	}
	gReply, err := d.Store.Call(ctx, "Game", "get_by_gameId", map[string]any{"gameId": req.GameID})
	if err != nil {
		return dbError(err)
	}
	if !gReply.OK() {
		return wire.Err(gReply.Error(), nil)
	}

	latest, err := d.Store.Call(ctx, "GameVersion", "latest_for_gameId", map[string]any{"gameId": req.GameID})
	if err != nil {
		return dbError(err)
	}
	var latestVersion any
	if latest.OK() {
		latestVersion = latest["version"]
	}

	reviews, err := d.Store.Call(ctx, "Review", "list_for_gameId", map[string]any{"gameId": req.GameID})
	if err != nil {
		return dbError(err)
	}
	var reviewList any
	if reviews.OK() {
		reviewList = reviews["reviews"]
	}

	return wire.OK(map[string]any{"game": gReply["game"], "latestVersion": latestVersion, "reviews": reviewList})
}

func handleStoreDownloadInit(ctx context.Context, d *Deps, conn net.Conn, data json.RawMessage) wire.Reply {
	if _, ok := requireLogin(d, conn); !ok {
		return wire.Err(wire.ErrNotLoggedIn, nil)
	}
	var req struct {
		GameID  string `json:"gameId"`
		Version string `json:"version"`
	}
	if err := json.Unmarshal(data, &req); err != nil || strings.TrimSpace(req.GameID) == "" {
		return wire.Err(wire.ErrMissingFields, nil)
	}

	gReply, err := d.Store.Call(ctx, "Game", "get_by_gameId", map[string]any{"gameId": req.GameID})
	if err != nil {
		return dbError(err)
	}
	if !gReply.OK() {
		return wire.Err(gReply.Error(), nil)
	}
	var g model.Game
	if err := gReply.Decode("game", &g); err != nil {
		return dbError(err)
	}
	if g.Delisted {
		return wire.Err(wire.ErrGameDelisted, nil)
	}

	var vReply storerpc.Reply
	if req.Version != "" {
		vReply, err = d.Store.Call(ctx, "GameVersion", "get_for_gameId_version", map[string]any{"gameId": req.GameID, "version": req.Version})
	} else {
		vReply, err = d.Store.Call(ctx, "GameVersion", "latest_for_gameId", map[string]any{"gameId": req.GameID})
	}
	if err != nil {
		return dbError(err)
	}
	if !vReply.OK() {
		return wire.Err(vReply.Error(), nil)
	}
	var v model.GameVersion
	if err := vReply.Decode("version", &v); err != nil {
		return dbError(err)
	}

	sess := d.Downloads.begin(downloadSession{
		ZipPath: v.ZipPath, FileName: v.FileName, SizeBytes: v.SizeBytes,
		SHA256: v.SHA256, GameID: req.GameID, Version: v.Version,
	})
	return wire.OK(map[string]any{
		"downloadId": sess.DownloadID, "version": v.Version,
		"fileName": v.FileName, "sizeBytes": v.SizeBytes, "sha256": v.SHA256,
	})
}

func handleStoreDownloadChunk(_ context.Context, d *Deps, conn net.Conn, data json.RawMessage) wire.Reply {
	if _, ok := requireLogin(d, conn); !ok {
		return wire.Err(wire.ErrNotLoggedIn, nil)
	}
	var req struct {
		DownloadID string `json:"downloadId"`
		Offset     int64  `json:"offset"`
		Limit      int    `json:"limit"`
	}
	if err := json.Unmarshal(data, &req); err != nil || req.DownloadID == "" || req.Offset < 0 {
		return wire.Err(wire.ErrMissingFields, nil)
	}

	sess, ok := d.Downloads.get(req.DownloadID)
	if !ok {
		return wire.Err(wire.ErrNoSuchDownload, nil)
	}
	chunk, done, err := sess.readChunk(req.Offset, req.Limit)
	if err != nil {
		return dbError(err)
	}
	if done {
		d.Downloads.remove(req.DownloadID)
	}
	return wire.OK(map[string]any{"dataB64": base64.StdEncoding.EncodeToString(chunk), "done": done})
}

// --- Rooms ---

func handleRoomList(ctx context.Context, d *Deps, conn net.Conn, _ json.RawMessage) wire.Reply {
	if _, ok := requireLogin(d, conn); !ok {
		return wire.Err(wire.ErrNotLoggedIn, nil)
	}
	reply, err := d.Store.Call(ctx, "Room", "list", nil)
	if err != nil {
		return dbError(err)
	}
	if !reply.OK() {
		return wire.Err(reply.Error(), nil)
	}
	return wire.OK(map[string]any{"rooms": reply["rooms"]})
}

func handleRoomDetail(ctx context.Context, d *Deps, conn net.Conn, data json.RawMessage) wire.Reply {
	if _, ok := requireLogin(d, conn); !ok {
		return wire.Err(wire.ErrNotLoggedIn, nil)
	}
	var req struct {
		RoomID int64 `json:"roomId"`
	}
	if err := json.Unmarshal(data, &req); err != nil || req.RoomID <= 0 {
		return wire.Err(wire.ErrMissingFields, nil)
	}
	reply, err := d.Store.Call(ctx, "Room", "get", map[string]any{"roomId": req.RoomID})
	if err != nil {
		return dbError(err)
	}
	if !reply.OK() {
		return wire.Err(reply.Error(), nil)
	}
	return wire.OK(map[string]any{"room": reply["room"]})
}

func handleRoomCreate(ctx context.Context, d *Deps, conn net.Conn, data json.RawMessage) wire.Reply {
	sess, ok := requireLogin(d, conn)
	if !ok {
		return wire.Err(wire.ErrNotLoggedIn, nil)
	}
	if sess.RoomID() != 0 {
		return wire.Err(wire.ErrAlreadyInRoom, nil)
	}
	var req struct {
		GameID string `json:"gameId"`
	}
	if err := json.Unmarshal(data, &req); err != nil || strings.TrimSpace(req.GameID) == "" {
		return wire.Err(wire.ErrMissingFields, nil)
	}

	gReply, err := d.Store.Call(ctx, "Game", "get_by_gameId", map[string]any{"gameId": req.GameID})
	if err != nil {
		return dbError(err)
	}
	if !gReply.OK() {
		return wire.Err(gReply.Error(), nil)
	}
	var g model.Game
	if err := gReply.Decode("game", &g); err != nil {
		return dbError(err)
	}
	if g.Delisted {
		return wire.Err(wire.ErrGameDelisted, nil)
	}

	vReply, err := d.Store.Call(ctx, "GameVersion", "latest_for_gameId", map[string]any{"gameId": req.GameID})
	if err != nil {
		return dbError(err)
	}
	if !vReply.OK() {
		return wire.Err(vReply.Error(), nil)
	}
	var v model.GameVersion
	if err := vReply.Decode("version", &v); err != nil {
		return dbError(err)
	}

	created, err := d.Store.Call(ctx, "Room", "create", map[string]any{
		"hostPlayerId": sess.PlayerID, "gameDbId": g.ID, "gameVersionId": v.ID,
	})
	if err != nil {
		return dbError(err)
	}
	if !created.OK() {
		return wire.Err(created.Error(), nil)
	}
	var roomID int64
	if err := created.Decode("roomId", &roomID); err != nil {
		return dbError(err)
	}
	if _, err := d.Store.Call(ctx, "Room", "add_member", map[string]any{"roomId": roomID, "playerId": sess.PlayerID}); err != nil {
		return dbError(err)
	}

	d.Engine.Registry.Delete(roomID)
	sess.SetRoomID(roomID)
	return wire.OK(map[string]any{"roomId": roomID})
}

func handleRoomJoin(ctx context.Context, d *Deps, conn net.Conn, data json.RawMessage) wire.Reply {
	sess, ok := requireLogin(d, conn)
	if !ok {
		return wire.Err(wire.ErrNotLoggedIn, nil)
	}
	var req struct {
		RoomID int64 `json:"roomId"`
	}
	if err := json.Unmarshal(data, &req); err != nil || req.RoomID <= 0 {
		return wire.Err(wire.ErrMissingFields, nil)
	}

	live, err := d.Engine.Registry.Ensure(ctx, d.Store, req.RoomID)
	if err != nil {
		return dbError(err)
	}
	if live == nil {
		return wire.Err(wire.ErrNoSuchRoom, nil)
	}
	snap := live.Snapshot()

	alreadyMember := false
	for _, p := range snap.Players {
		if p == sess.PlayerID {
			alreadyMember = true
			break
		}
	}
	if alreadyMember {
		sess.SetRoomID(req.RoomID)
		return wire.OK(map[string]any{"roomId": req.RoomID, "players": snap.Players})
	}

	if sess.RoomID() != 0 {
		return wire.Err(wire.ErrAlreadyInRoom, nil)
	}
	if snap.Status == model.RoomPlaying {
		return wire.Err(wire.ErrRoomPlaying, nil)
	}
	if snap.MaxPlayers > 0 && len(snap.Players) >= snap.MaxPlayers {
		return wire.Err(wire.ErrRoomFull, nil)
	}

	players := live.AddPlayer(sess.PlayerID)
	if _, err := d.Store.Call(ctx, "Room", "add_member", map[string]any{"roomId": req.RoomID, "playerId": sess.PlayerID}); err != nil {
		return dbError(err)
	}
	sess.SetRoomID(req.RoomID)

	for _, pid := range players {
		if pid != sess.PlayerID {
			d.Sessions.Push(pid, "player_joined", map[string]any{"roomId": req.RoomID, "playerId": sess.PlayerID, "players": players})
		}
	}
	return wire.OK(map[string]any{"roomId": req.RoomID, "players": players})
}

func handleRoomLeave(ctx context.Context, d *Deps, conn net.Conn, _ json.RawMessage) wire.Reply {
	sess, ok := requireLogin(d, conn)
	if !ok {
		return wire.Err(wire.ErrNotLoggedIn, nil)
	}
	roomID := sess.RoomID()
	if roomID == 0 {
		return wire.Err(wire.ErrNoSuchRoom, nil)
	}
	live, err := d.Engine.Registry.Ensure(ctx, d.Store, roomID)
	if err != nil {
		return dbError(err)
	}
	if live == nil {
		sess.SetRoomID(0)
		return wire.OK(nil)
	}
	if live.Snapshot().Status == model.RoomPlaying {
		return wire.Err(wire.ErrRoomPlaying, nil)
	}

	players, hostChanged, newHost := live.RemovePlayer(sess.PlayerID)
	sess.SetRoomID(0)
	if _, err := d.Store.Call(ctx, "Room", "remove_member", map[string]any{"roomId": roomID, "playerId": sess.PlayerID}); err != nil {
		return dbError(err)
	}
	if hostChanged {
		if _, err := d.Store.Call(ctx, "Room", "set_host", map[string]any{"roomId": roomID, "hostPlayerId": newHost}); err != nil {
			return dbError(err)
		}
	}
	if len(players) == 0 {
		if _, err := d.Store.Call(ctx, "Room", "delete_if_empty", map[string]any{"roomId": roomID}); err != nil {
			return dbError(err)
		}
		d.Engine.Registry.Delete(roomID)
		return wire.OK(nil)
	}

	for _, pid := range players {
		d.Sessions.Push(pid, "player_left", map[string]any{"roomId": roomID, "playerId": sess.PlayerID, "players": players})
		if hostChanged {
			d.Sessions.Push(pid, "host_changed", map[string]any{"roomId": roomID, "hostPlayerId": newHost})
		}
	}
	return wire.OK(nil)
}

func handleRoomStart(ctx context.Context, d *Deps, conn net.Conn, data json.RawMessage) wire.Reply {
	sess, ok := requireLogin(d, conn)
	if !ok {
		return wire.Err(wire.ErrNotLoggedIn, nil)
	}
	var req struct {
		RoomID int64 `json:"roomId"`
	}
	if err := json.Unmarshal(data, &req); err != nil || req.RoomID <= 0 {
		return wire.Err(wire.ErrMissingFields, nil)
	}

	port, err := d.Engine.StartMatch(ctx, req.RoomID, sess.PlayerID)
	if err != nil {
		switch e := err.(type) {
		case *room.ErrNeedMorePlayers:
			return wire.Err(wire.ErrNeedMorePlayers, map[string]any{"minPlayers": e.MinPlayers})
		}
		switch err {
		case room.ErrNotHost:
			return wire.Err(wire.ErrNotHost, nil)
		case room.ErrAlreadyPlayingErr:
			return wire.Err(wire.ErrAlreadyPlaying, nil)
		case room.ErrNoSuchRoom:
			return wire.Err(wire.ErrNoSuchRoom, nil)
		case room.ErrNoFreePort:
			return wire.Err(wire.ErrNoPort, nil)
		case manifest.ErrMissingManifest, manifest.ErrBadManifestJSON:
			return wire.Err(wire.ErrBadManifest, map[string]any{"detail": err.Error()})
		}
		if _, ok := err.(*manifest.ErrUnresolvedPlaceholder); ok {
			return wire.Err(wire.ErrBadArgvTemplate, map[string]any{"detail": err.Error()})
		}
		if _, ok := err.(*manifest.ErrBadManifest); ok {
			return wire.Err(wire.ErrBadManifest, map[string]any{"detail": err.Error()})
		}
		return wire.Err(wire.ErrSpawnFailed, map[string]any{"detail": err.Error()})
	}
	return wire.OK(map[string]any{"roomId": req.RoomID, "port": port})
}

// handlePostResult finalizes a match; reachable without a session, matching
// spec's "accepted from any connection".
func handlePostResult(ctx context.Context, d *Deps, _ net.Conn, data json.RawMessage) wire.Reply {
	var req struct {
		RoomID    int64  `json:"roomId"`
		StartedAt int64  `json:"startedAt"`
		EndedAt   int64  `json:"endedAt"`
		Winner    *int64 `json:"winner"`
		Reason    string `json:"reason"`
		Results   []any  `json:"results"`
	}
	if err := json.Unmarshal(data, &req); err != nil || req.RoomID <= 0 {
		return wire.Err(wire.ErrMissingFields, nil)
	}
	result := &room.MatchResult{
		RoomID: req.RoomID, StartedAt: req.StartedAt, EndedAt: req.EndedAt,
		Winner: req.Winner, Reason: req.Reason, Results: req.Results,
	}
	if err := d.Engine.FinishMatch(ctx, req.RoomID, result); err != nil {
		return dbError(err)
	}
	return wire.OK(nil)
}

// --- Reviews & history ---

func handleReviewUpsert(ctx context.Context, d *Deps, conn net.Conn, data json.RawMessage) wire.Reply {
	sess, ok := requireLogin(d, conn)
	if !ok {
		return wire.Err(wire.ErrNotLoggedIn, nil)
	}
	var req struct {
		GameID  string `json:"gameId"`
		Rating  int    `json:"rating"`
		Comment string `json:"comment"`
	}
	if err := json.Unmarshal(data, &req); err != nil || strings.TrimSpace(req.GameID) == "" || req.Rating < 1 || req.Rating > 5 {
		return wire.Err(wire.ErrMissingFields, nil)
	}

	played, err := d.Store.Call(ctx, "MatchLog", "has_player_played", map[string]any{"gameId": req.GameID, "playerId": sess.PlayerID})
	if err != nil {
		return dbError(err)
	}
	if !played.OK() {
		return wire.Err(played.Error(), nil)
	}
	var hasPlayed bool
	_ = played.Decode("played", &hasPlayed)
	if !hasPlayed {
		return wire.Err(wire.ErrNotPlayed, nil)
	}

	reply, err := d.Store.Call(ctx, "Review", "upsert", map[string]any{
		"gameId": req.GameID, "playerId": sess.PlayerID, "rating": req.Rating, "comment": req.Comment,
	})
	if err != nil {
		return dbError(err)
	}
	if !reply.OK() {
		return wire.Err(reply.Error(), nil)
	}
	return wire.OK(nil)
}

func handleMatchListMine(ctx context.Context, d *Deps, conn net.Conn, _ json.RawMessage) wire.Reply {
	sess, ok := requireLogin(d, conn)
	if !ok {
		return wire.Err(wire.ErrNotLoggedIn, nil)
	}
	reply, err := d.Store.Call(ctx, "MatchLog", "list_by_player", map[string]any{"playerId": sess.PlayerID})
	if err != nil {
		return dbError(err)
	}
	if !reply.OK() {
		return wire.Err(reply.Error(), nil)
	}
	var logs []model.MatchLog
	if err := reply.Decode("logs", &logs); err != nil {
		return dbError(err)
	}
	sort.Slice(logs, func(i, j int) bool { return logs[i].EndedAt.After(logs[j].EndedAt) })
	if len(logs) > 50 {
		logs = logs[:50]
	}
	return wire.OK(map[string]any{"logs": logs})
}
