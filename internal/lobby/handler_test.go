package lobby

import (
	"context"
	"encoding/json"
	"net"
	"testing"

	"github.com/brightforge/gamevault/internal/frame"
	"github.com/brightforge/gamevault/internal/lobby/room"
	"github.com/brightforge/gamevault/internal/storerpc"
	"github.com/brightforge/gamevault/internal/wire"
)

// fakeStore is a minimal in-memory stand-in for the store service, grounded
// on internal/developer/handler_test.go's local-listener fake.
type fakeStore struct {
	rooms map[int64]map[string]any
}

func newFakeStore() *fakeStore {
	return &fakeStore{rooms: make(map[int64]map[string]any)}
}

func (fs *fakeStore) serve(ln net.Listener) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		go fs.handle(conn)
	}
}

func (fs *fakeStore) handle(conn net.Conn) {
	defer conn.Close()
	for {
		var req struct {
			Collection string         `json:"collection"`
			Action     string         `json:"action"`
			Data       map[string]any `json:"data"`
		}
		if err := frame.Read(conn, &req); err != nil {
			return
		}
		reply := fs.dispatch(req.Collection, req.Action, req.Data)
		if err := frame.Write(conn, reply); err != nil {
			return
		}
	}
}

func (fs *fakeStore) dispatch(collection, action string, data map[string]any) map[string]any {
	switch collection + "." + action {
	case "PlayerUser.register":
		return map[string]any{"ok": true, "playerId": int64(1), "username": data["username"]}
	case "PlayerUser.login":
		return map[string]any{"ok": true, "playerId": int64(1), "username": data["username"]}
	case "Room.get":
		rid, _ := data["roomId"].(float64)
		row, ok := fs.rooms[int64(rid)]
		if !ok {
			return map[string]any{"ok": false, "error": "no_such_room"}
		}
		return map[string]any{"ok": true, "room": row}
	case "Room.set_status":
		return map[string]any{"ok": true}
	case "MatchLog.create":
		return map[string]any{"ok": true}
	default:
		return map[string]any{"ok": false, "error": "unknown_type"}
	}
}

func startFakeStore(t *testing.T) (*storerpc.Client, *fakeStore) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })
	fs := newFakeStore()
	go fs.serve(ln)
	return storerpc.New(ln.Addr().String()), fs
}

func newTestDeps(t *testing.T) (*Deps, *fakeStore) {
	store, fs := startFakeStore(t)
	sessions := NewSessionManager()
	engine := room.NewEngine(store, room.NewRegistry(), sessions, room.Config{})
	return &Deps{Store: store, Sessions: sessions, Downloads: newDownloadManager(), Engine: engine}, fs
}

func fakeConn() net.Conn {
	c1, c2 := net.Pipe()
	go c2.Close()
	return c1
}

func dispatchJSON(d *Deps, conn net.Conn, typ string, data any) wire.Reply {
	raw, _ := json.Marshal(data)
	return Dispatch(context.Background(), d, conn, typ, raw)
}

func TestDispatchUnknownType(t *testing.T) {
	d, _ := newTestDeps(t)
	r := dispatchJSON(d, fakeConn(), "not_a_real_type", nil)
	if r.OK() {
		t.Fatal("expected unknown_type error")
	}
	if r["error"] != wire.ErrUnknownType {
		t.Fatalf("error = %v, want %v", r["error"], wire.ErrUnknownType)
	}
}

func TestHandlePlayerLoginRejectsSecondSession(t *testing.T) {
	d, _ := newTestDeps(t)
	conn1 := fakeConn()
	conn2 := fakeConn()

	r1 := dispatchJSON(d, conn1, "player_login", map[string]any{"username": "alice", "password": "secret"})
	if !r1.OK() {
		t.Fatalf("expected login ok, got %#v", r1)
	}

	r2 := dispatchJSON(d, conn2, "player_login", map[string]any{"username": "alice", "password": "secret"})
	if r2.OK() {
		t.Fatal("expected second login to fail")
	}
	if r2["error"] != wire.ErrAlreadyOnline {
		t.Fatalf("error = %v, want %v", r2["error"], wire.ErrAlreadyOnline)
	}
}

func TestHandleRoomListRequiresLogin(t *testing.T) {
	d, _ := newTestDeps(t)
	r := dispatchJSON(d, fakeConn(), "room_list", nil)
	if r.OK() {
		t.Fatal("expected not_logged_in error")
	}
	if r["error"] != wire.ErrNotLoggedIn {
		t.Fatalf("error = %v, want %v", r["error"], wire.ErrNotLoggedIn)
	}
}

// TestHandlePostResultReachableWithoutSession confirms post_result is
// dispatched on a connection with no logged-in session (game servers call
// back on a fresh, unauthenticated connection).
func TestHandlePostResultReachableWithoutSession(t *testing.T) {
	d, fs := newTestDeps(t)
	fs.rooms[7] = map[string]any{
		"ID": int64(7), "HostPlayerID": int64(1), "GameRef": int64(1), "GameVersionRef": int64(1),
		"Status": "playing", "Players": []int64{1, 2},
	}

	r := dispatchJSON(d, fakeConn(), "post_result", map[string]any{
		"roomId": 7, "startedAt": 100, "endedAt": 200, "reason": "finished",
	})
	if !r.OK() {
		t.Fatalf("post_result without a session failed: %#v", r)
	}
}
