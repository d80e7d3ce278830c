package room

import (
	"context"
	"net"
	"sync"
	"testing"

	"github.com/brightforge/gamevault/internal/frame"
	"github.com/brightforge/gamevault/internal/storerpc"
)

type noopBroadcaster struct{}

func (noopBroadcaster) Push(playerID int64, name string, data any) {}

// countingBroadcaster counts pushes per event name, safe for concurrent use,
// used to assert that a finisher race yields one game_ready push per member.
type countingBroadcaster struct {
	mu     sync.Mutex
	counts map[string]int
}

func (b *countingBroadcaster) Push(playerID int64, name string, data any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.counts == nil {
		b.counts = make(map[string]int)
	}
	b.counts[name]++
}

func (b *countingBroadcaster) count(name string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.counts[name]
}

// fakeRoomStore answers Room.get, Room.set_status and MatchLog.create,
// enough to exercise StartMatch's rejections before any process spawn is
// attempted and FinishMatch's persist-and-broadcast path.
type fakeRoomStore struct {
	rooms map[int64]map[string]any
}

func (fs *fakeRoomStore) serve(ln net.Listener) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		go fs.handle(conn)
	}
}

func (fs *fakeRoomStore) handle(conn net.Conn) {
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
		var reply map[string]any
		switch {
		case req.Collection == "Room" && req.Action == "get":
			rid, _ := req.Data["roomId"].(float64)
			row, ok := fs.rooms[int64(rid)]
			if !ok {
				reply = map[string]any{"ok": false, "error": "no_such_room"}
			} else {
				reply = map[string]any{"ok": true, "room": row}
			}
		case req.Collection == "Room" && req.Action == "set_status":
			reply = map[string]any{"ok": true}
		case req.Collection == "MatchLog" && req.Action == "create":
			reply = map[string]any{"ok": true}
		default:
			reply = map[string]any{"ok": false, "error": "unknown_type"}
		}
		if err := frame.Write(conn, reply); err != nil {
			return
		}
	}
}

func startFakeRoomStore(t *testing.T) *storerpc.Client {
	t.Helper()
	return startFakeRoomStoreWithRooms(t, map[int64]map[string]any{
		3: {"ID": int64(3), "HostPlayerID": int64(1), "GameRef": int64(1), "GameVersionRef": int64(1), "Status": "waiting", "Players": []int64{1, 2}},
	})
}

func startFakeRoomStoreWithRooms(t *testing.T, rooms map[int64]map[string]any) *storerpc.Client {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })
	fs := &fakeRoomStore{rooms: rooms}
	go fs.serve(ln)
	return storerpc.New(ln.Addr().String())
}

func TestStartMatchRejectsNonHost(t *testing.T) {
	store := startFakeRoomStore(t)
	engine := NewEngine(store, NewRegistry(), noopBroadcaster{}, Config{})

	_, err := engine.StartMatch(context.Background(), 3, 2)
	if err != ErrNotHost {
		t.Fatalf("StartMatch by non-host = %v, want ErrNotHost", err)
	}
}

func TestStartMatchRejectsUnknownRoom(t *testing.T) {
	store := startFakeRoomStore(t)
	engine := NewEngine(store, NewRegistry(), noopBroadcaster{}, Config{})

	_, err := engine.StartMatch(context.Background(), 999, 1)
	if err != ErrNoSuchRoom {
		t.Fatalf("StartMatch on unknown room = %v, want ErrNoSuchRoom", err)
	}
}

// TestFinishMatchConcurrentCallersEmitExactlyOneGameReady drives two
// concurrent FinishMatch callers against the same playing room, modeling a
// post_result handler racing the watch goroutine's process-exit path. Only
// one caller may claim the finish, so exactly one game_ready broadcast must
// result regardless of scheduling: one push to each of the room's two
// members.
func TestFinishMatchConcurrentCallersEmitExactlyOneGameReady(t *testing.T) {
	store := startFakeRoomStoreWithRooms(t, map[int64]map[string]any{
		5: {"ID": int64(5), "HostPlayerID": int64(1), "GameRef": int64(1), "GameVersionRef": int64(1), "Status": "playing", "Players": []int64{1, 2}},
	})
	bc := &countingBroadcaster{}
	engine := NewEngine(store, NewRegistry(), bc, Config{})

	start := make(chan struct{})
	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			errs[i] = engine.FinishMatch(context.Background(), 5, &MatchResult{RoomID: 5, Reason: "process_exit"})
		}(i)
	}
	close(start)
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("FinishMatch call %d: %v", i, err)
		}
	}
	if n := bc.count("game_ready"); n != 2 {
		t.Fatalf("got %d game_ready pushes from concurrent finishers, want exactly 2 (one per member)", n)
	}
}
