package room

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/brightforge/gamevault/internal/manifest"
	"github.com/brightforge/gamevault/internal/model"
	"github.com/brightforge/gamevault/internal/security"
	"github.com/brightforge/gamevault/internal/storerpc"
)

func newMatchToken() (string, error) { return security.NewToken() }

// Broadcaster pushes a named event to one connected player, letting this
// package stay independent of the lobby's session bookkeeping.
type Broadcaster interface {
	Push(playerID int64, name string, data any)
}

// Config bundles the match-engine's fixed parameters, grounded on
// original_source's module-level GAME_PORT_MIN/MAX, RUN_ROOT, LOBBY_HOST*
// constants (server/lobby_server.py).
type Config struct {
	PortMin, PortMax          int
	RunRoot                   string
	LobbyHostPublic           string
	LobbyHostInternal         string
	LobbyPort                 int
	MatchExitGrace            time.Duration
}

// Engine runs the room/match lifecycle over a Registry, grounded on
// original_source's handle_room_start/_finish_match/_watch_game.
type Engine struct {
	Store       *storerpc.Client
	Registry    *Registry
	Broadcaster Broadcaster
	Config      Config
}

// NewEngine returns an Engine wired to store/registry/broadcaster/cfg.
func NewEngine(store *storerpc.Client, reg *Registry, bc Broadcaster, cfg Config) *Engine {
	return &Engine{Store: store, Registry: reg, Broadcaster: bc, Config: cfg}
}

// MatchResult is the payload carried by post_result / the synthesized
// process-exit/stale-state results, matching original_source's loosely
// typed "result" dict.
type MatchResult struct {
	RoomID    int64  `json:"roomId"`
	StartedAt int64  `json:"startedAt,omitempty"`
	EndedAt   int64  `json:"endedAt,omitempty"`
	Reason    string `json:"reason,omitempty"`
	Winner    *int64 `json:"winner,omitempty"`
	Results   []any  `json:"results,omitempty"`
}

// Errors returned by StartMatch, mapped to stable wire codes by the caller.
var (
	ErrNotHost          = errors.New("not_host")
	ErrAlreadyPlayingErr = errors.New("already_playing")
	ErrNoSuchRoom       = errors.New("no_such_room")
)

// ErrNeedMorePlayers reports that the room's membership is below the
// GameVersion's minPlayers.
type ErrNeedMorePlayers struct{ MinPlayers int }

func (e *ErrNeedMorePlayers) Error() string { return fmt.Sprintf("need_more_players: min %d", e.MinPlayers) }

// StartMatch validates and executes a room_start request for
// requestingPlayerID, matching handle_room_start end to end: stale-state
// auto-recovery, minPlayers validation, GameVersion/manifest lookup, free
// port selection, token mint, argv/env render, spawn, live-state commit,
// game_info broadcast, and supervisor launch.
func (e *Engine) StartMatch(ctx context.Context, roomID, requestingPlayerID int64) (port int, err error) {
	live, err := e.Registry.Ensure(ctx, e.Store, roomID)
	if err != nil {
		return 0, err
	}
	if live == nil {
		return 0, ErrNoSuchRoom
	}

	snap := live.Snapshot()
	if requestingPlayerID != snap.HostPlayerID {
		return 0, ErrNotHost
	}

	if snap.Status == model.RoomPlaying {
		switch {
		case snap.Proc == nil:
			if err := e.FinishMatch(ctx, roomID, &MatchResult{RoomID: roomID, Reason: "stale_state"}); err != nil {
				return 0, err
			}
		case processExited(snap.Exited):
			if err := e.FinishMatch(ctx, roomID, &MatchResult{RoomID: roomID, Reason: "process_exit"}); err != nil {
				return 0, err
			}
		default:
			return 0, ErrAlreadyPlayingErr
		}
		snap = live.Snapshot()
	}

	roomReply, err := e.Store.Call(ctx, "Room", "get", map[string]any{"roomId": roomID})
	if err != nil {
		return 0, err
	}
	if !roomReply.OK() {
		return 0, ErrNoSuchRoom
	}
	var roomRow model.Room
	if err := roomReply.Decode("room", &roomRow); err != nil {
		return 0, err
	}
	minPlayers := roomRow.MinPlayers
	if minPlayers <= 0 {
		minPlayers = 2
	}
	players := append([]int64(nil), roomRow.Players...)
	if len(players) < minPlayers {
		return 0, &ErrNeedMorePlayers{MinPlayers: minPlayers}
	}

	gvReply, err := e.Store.Call(ctx, "GameVersion", "get_by_id", map[string]any{"gameVersionId": snap.GameVersionID})
	if err != nil {
		return 0, err
	}
	if !gvReply.OK() {
		return 0, fmt.Errorf("bad_game_version")
	}
	var gv model.GameVersion
	if err := gvReply.Decode("version", &gv); err != nil {
		return 0, err
	}

	m, err := manifest.LoadFromDir(gv.ExtractedPath)
	if err != nil {
		return 0, err
	}

	gamePort, err := SelectFreePort(e.Config.PortMin, e.Config.PortMax)
	if err != nil {
		return 0, err
	}
	token, err := newMatchToken()
	if err != nil {
		return 0, err
	}

	mapping := map[string]string{
		"host":      e.Config.LobbyHostPublic,
		"port":      fmt.Sprint(gamePort),
		"token":     token,
		"roomId":    fmt.Sprint(roomID),
		"gameId":    snap.GameID,
		"version":   snap.Version,
		"lobbyHost": e.Config.LobbyHostInternal,
		"lobbyPort": fmt.Sprint(e.Config.LobbyPort),
	}
	argv, err := manifest.Render(m.Server.Argv, mapping)
	if err != nil {
		return 0, err
	}

	env := append(os.Environ(),
		fmt.Sprintf("HW3_LOBBY_HOST=%s", mapping["lobbyHost"]),
		fmt.Sprintf("HW3_LOBBY_PORT=%s", mapping["lobbyPort"]),
		fmt.Sprintf("HW3_ROOM_ID=%d", roomID),
		fmt.Sprintf("HW3_TOKEN=%s", token),
		fmt.Sprintf("HW3_GAME_ID=%s", snap.GameID),
		fmt.Sprintf("HW3_VERSION=%s", snap.Version),
		fmt.Sprintf("HW3_EXPECTED_PLAYERS=%d", len(players)),
	)

	logPath := fmt.Sprintf("%s/logs/game_room_%d.log", e.Config.RunRoot, roomID)
	cmd, logFile, exited, err := spawnGameServer(gv.ExtractedPath, m.Server, argv, env, logPath)
	if err != nil {
		return 0, err
	}

	live.mu.Lock()
	live.Status = model.RoomPlaying
	live.Players = players
	live.Token = token
	live.GamePort = gamePort
	live.Proc = cmd
	live.Exited = exited
	live.mu.Unlock()

	if _, err := e.Store.Call(ctx, "Room", "set_status", map[string]any{"roomId": roomID, "status": string(model.RoomPlaying)}); err != nil {
		slog.Warn("room: persisting playing status failed", "roomId", roomID, "error", err)
	}

	for _, pid := range players {
		e.Broadcaster.Push(pid, "game_info", map[string]any{
			"roomId": roomID, "gameId": snap.GameID, "version": snap.Version,
			"host": e.Config.LobbyHostPublic, "port": gamePort, "token": token,
		})
	}

	go e.watch(roomID, exited, logFile)

	return gamePort, nil
}

func processExited(exited chan struct{}) bool {
	select {
	case <-exited:
		return true
	default:
		return false
	}
}

// watch awaits the spawned process's exit, gives it a grace window to post
// a late result, and force-finalizes the match if none arrives, matching
// _watch_game exactly.
func (e *Engine) watch(roomID int64, exited chan struct{}, logFile *os.File) {
	<-exited
	logFile.Close()

	ctx := context.Background()
	live, ok := e.Registry.Get(roomID)
	if !ok || live.Snapshot().Status != model.RoomPlaying {
		return
	}
	time.Sleep(e.Config.MatchExitGrace)

	live, ok = e.Registry.Get(roomID)
	if !ok || live.Snapshot().Status != model.RoomPlaying {
		return
	}
	if err := e.FinishMatch(ctx, roomID, &MatchResult{RoomID: roomID, Reason: "process_exit"}); err != nil {
		slog.Warn("room: auto-finish on process exit failed", "roomId", roomID, "error", err)
	}
}

// FinishMatch idempotently transitions a room out of "playing", matching
// _finish_match: a duplicate call with no result is a no-op once already
// finished; a duplicate call carrying a result still appends a MatchLog row
// (accepted duplicate post_result) but does not re-broadcast game_ready.
func (e *Engine) FinishMatch(ctx context.Context, roomID int64, result *MatchResult) error {
	live, err := e.Registry.Ensure(ctx, e.Store, roomID)
	if err != nil {
		return err
	}
	if live == nil {
		return nil
	}

	live.mu.Lock()
	alreadyFinished := live.Status != model.RoomPlaying && live.Proc == nil && live.Token == ""
	proc := live.Proc
	exited := live.Exited
	players := append([]int64(nil), live.Players...)
	gameDbID, gameVersionID := live.GameDbID, live.GameVersionID
	// The claim happens in the same critical section as the read: whichever
	// caller observes alreadyFinished==false first flips the state here,
	// before any unlocked I/O, so a concurrent caller sees alreadyFinished
	// as true and cannot also claim the finish.
	claimed := !alreadyFinished
	if claimed {
		live.Status = model.RoomWaiting
		live.Token = ""
		live.GamePort = 0
		live.Proc = nil
		live.Exited = nil
	}
	live.mu.Unlock()

	if alreadyFinished && result == nil {
		return nil
	}

	if proc != nil && !processExited(exited) {
		terminateWithGrace(proc, exited, 2*time.Second)
	}

	if result != nil {
		persistMatchLog(ctx, e.Store, roomID, gameDbID, gameVersionID, players, result)
	}

	if !claimed {
		return nil
	}

	if _, err := e.Store.Call(ctx, "Room", "set_status", map[string]any{"roomId": roomID, "status": string(model.RoomWaiting)}); err != nil {
		slog.Warn("room: persisting waiting status failed", "roomId", roomID, "error", err)
	}

	var payload any
	if result != nil {
		payload = result
	} else {
		payload = map[string]any{}
	}
	for _, pid := range players {
		e.Broadcaster.Push(pid, "game_ready", map[string]any{"roomId": roomID, "result": payload})
	}
	return nil
}

func persistMatchLog(ctx context.Context, store *storerpc.Client, roomID, gameDbID, gameVersionID int64, players []int64, result *MatchResult) {
	startedAt, endedAt := result.StartedAt, result.EndedAt
	now := time.Now().Unix()
	if startedAt == 0 {
		startedAt = now
	}
	if endedAt == 0 {
		endedAt = now
	}
	reason := result.Reason
	if reason == "" {
		reason = "finished"
	}

	type participant struct {
		UserID int64 `json:"userId"`
	}
	participants := make([]participant, 0, len(players))
	for _, pid := range players {
		participants = append(participants, participant{UserID: pid})
	}
	results := result.Results
	if results == nil {
		results = []any{}
	}
	envelope, err := json.Marshal(map[string]any{"players": participants, "results": results})
	if err != nil {
		slog.Error("room: marshaling match results envelope failed", "roomId", roomID, "error", err)
		return
	}

	if _, err := store.Call(ctx, "MatchLog", "create", map[string]any{
		"roomId": roomID, "gameDbId": gameDbID, "gameVersionId": gameVersionID,
		"startedAt": startedAt, "endedAt": endedAt, "reason": reason,
		"winnerPlayerId": result.Winner, "resultsJson": string(envelope),
	}); err != nil {
		slog.Warn("room: persisting match log failed", "roomId", roomID, "error", err)
	}
}
