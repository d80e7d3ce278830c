// Package room implements the lobby's per-room live state and the
// room/match lifecycle, grounded on original_source's server/lobby_server.py
// (RoomLive dataclass, _ensure_room_live, handle_room_*, _finish_match,
// _watch_game) and on the teacher's per-connection mutex/goroutine shape.
package room

import (
	"context"
	"fmt"
	"os/exec"
	"sort"
	"sync"

	"github.com/brightforge/gamevault/internal/model"
	"github.com/brightforge/gamevault/internal/storerpc"
)

// Live is the in-memory counterpart of a Room row: the authoritative
// membership/host/status live here between store RPC calls, and the
// in-progress match's token/port/process, which the store never persists.
type Live struct {
	mu sync.Mutex

	RoomID         int64
	HostPlayerID   int64
	GameDbID       int64
	GameVersionID  int64
	GameID         string
	Version        string
	ClientType     model.ClientType
	MinPlayers     int
	MaxPlayers     int
	Players        []int64
	Status         model.RoomStatus

	// In-progress match state; zero/nil when Status is "waiting".
	Token    string
	GamePort int
	Proc     *exec.Cmd
	Exited   chan struct{}
}

// snapshot is a value copy safe to read without holding Live's lock.
type snapshot struct {
	RoomID        int64
	HostPlayerID  int64
	GameDbID      int64
	GameVersionID int64
	GameID        string
	Version       string
	ClientType    model.ClientType
	MinPlayers    int
	MaxPlayers    int
	Players       []int64
	Status        model.RoomStatus
	Token         string
	GamePort      int
	Proc          *exec.Cmd
	Exited        chan struct{}
}

// Snapshot returns a consistent copy of the live room's fields.
func (l *Live) Snapshot() snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	return snapshot{
		RoomID: l.RoomID, HostPlayerID: l.HostPlayerID, GameDbID: l.GameDbID,
		GameVersionID: l.GameVersionID, GameID: l.GameID, Version: l.Version,
		ClientType: l.ClientType, MinPlayers: l.MinPlayers, MaxPlayers: l.MaxPlayers,
		Players: append([]int64(nil), l.Players...), Status: l.Status,
		Token: l.Token, GamePort: l.GamePort, Proc: l.Proc, Exited: l.Exited,
	}
}

// AddPlayer merges playerID into the live membership set (sorted, unique),
// matching handle_room_join's `sorted(set(players + [sess.player_id]))`.
// It returns the resulting player list.
func (l *Live) AddPlayer(playerID int64) []int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, p := range l.Players {
		if p == playerID {
			return append([]int64(nil), l.Players...)
		}
	}
	l.Players = append(l.Players, playerID)
	sort.Slice(l.Players, func(i, j int) bool { return l.Players[i] < l.Players[j] })
	return append([]int64(nil), l.Players...)
}

// RemovePlayer drops playerID from the live membership, reassigning the
// host to the new first member if the departing player was host, matching
// _handle_room_leave's removal + host-reassignment block.
func (l *Live) RemovePlayer(playerID int64) (players []int64, hostChanged bool, newHost int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := l.Players[:0:0]
	for _, p := range l.Players {
		if p != playerID {
			out = append(out, p)
		}
	}
	l.Players = out

	if len(l.Players) > 0 && l.HostPlayerID == playerID {
		newHost = l.Players[0]
		l.HostPlayerID = newHost
		hostChanged = true
	}
	return append([]int64(nil), l.Players...), hostChanged, newHost
}

// Registry holds one Live per active room, keyed by room id, matching
// original_source's module-level ROOMS dict.
type Registry struct {
	mu    sync.Mutex
	rooms map[int64]*Live
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{rooms: make(map[int64]*Live)}
}

// Get returns the cached Live for roomID, if any.
func (r *Registry) Get(roomID int64) (*Live, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.rooms[roomID]
	return l, ok
}

// Delete removes roomID from the registry, matching ROOMS.pop on
// delete_if_empty.
func (r *Registry) Delete(roomID int64) {
	r.mu.Lock()
	delete(r.rooms, roomID)
	r.mu.Unlock()
}

// Ensure returns the cached Live for roomID, or builds one from the store's
// authoritative Room row on first reference, matching
// original_source's _ensure_room_live. Returns (nil, nil) if the room does
// not exist in the store.
func (r *Registry) Ensure(ctx context.Context, store *storerpc.Client, roomID int64) (*Live, error) {
	r.mu.Lock()
	if l, ok := r.rooms[roomID]; ok {
		r.mu.Unlock()
		return l, nil
	}
	r.mu.Unlock()

	reply, err := store.Call(ctx, "Room", "get", map[string]any{"roomId": roomID})
	if err != nil {
		return nil, fmt.Errorf("room: fetching room %d: %w", roomID, err)
	}
	if !reply.OK() {
		return nil, nil
	}
	var row model.Room
	if err := reply.Decode("room", &row); err != nil {
		return nil, fmt.Errorf("room: decoding room %d: %w", roomID, err)
	}

	l := &Live{
		RoomID: row.ID, HostPlayerID: row.HostPlayerID, GameDbID: row.GameRef,
		GameVersionID: row.GameVersionRef, GameID: row.GameID, Version: row.Version,
		ClientType: row.ClientType, MinPlayers: row.MinPlayers, MaxPlayers: row.MaxPlayers,
		Players: append([]int64(nil), row.Players...), Status: row.Status,
	}

	r.mu.Lock()
	if existing, ok := r.rooms[roomID]; ok {
		r.mu.Unlock()
		return existing, nil
	}
	r.rooms[roomID] = l
	r.mu.Unlock()
	return l, nil
}
