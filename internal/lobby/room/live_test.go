package room

import "testing"

func TestLiveAddPlayerDedupesAndSorts(t *testing.T) {
	l := &Live{Players: []int64{3, 1}}

	got := l.AddPlayer(2)
	want := []int64{1, 2, 3}
	if !int64SliceEqual(got, want) {
		t.Fatalf("AddPlayer(2) = %v, want %v", got, want)
	}

	// re-adding an existing member is a no-op, matching the join
	// operation's idempotence for an already-joined player.
	got = l.AddPlayer(2)
	if !int64SliceEqual(got, want) {
		t.Fatalf("AddPlayer(2) again = %v, want unchanged %v", got, want)
	}
}

func TestLiveRemovePlayerReassignsHost(t *testing.T) {
	l := &Live{HostPlayerID: 1, Players: []int64{1, 2, 3}}

	players, changed, newHost := l.RemovePlayer(1)
	if !changed {
		t.Fatalf("expected host change when host leaves")
	}
	if newHost != 2 {
		t.Fatalf("newHost = %d, want 2", newHost)
	}
	if !int64SliceEqual(players, []int64{2, 3}) {
		t.Fatalf("players after removal = %v, want [2 3]", players)
	}
	if l.HostPlayerID != 2 {
		t.Fatalf("HostPlayerID not updated, got %d", l.HostPlayerID)
	}
}

func TestLiveRemovePlayerNonHostLeavesHostUnchanged(t *testing.T) {
	l := &Live{HostPlayerID: 1, Players: []int64{1, 2, 3}}

	players, changed, _ := l.RemovePlayer(2)
	if changed {
		t.Fatalf("expected no host change when a non-host leaves")
	}
	if !int64SliceEqual(players, []int64{1, 3}) {
		t.Fatalf("players after removal = %v, want [1 3]", players)
	}
	if l.HostPlayerID != 1 {
		t.Fatalf("HostPlayerID changed unexpectedly to %d", l.HostPlayerID)
	}
}

func TestLiveRemoveLastPlayerLeavesEmptyRoom(t *testing.T) {
	l := &Live{HostPlayerID: 1, Players: []int64{1}}

	players, changed, _ := l.RemovePlayer(1)
	if changed {
		t.Fatalf("expected no host reassignment when room becomes empty")
	}
	if len(players) != 0 {
		t.Fatalf("players after removing last member = %v, want empty", players)
	}
}

func TestRegistryGetDelete(t *testing.T) {
	r := NewRegistry()
	if _, ok := r.Get(42); ok {
		t.Fatalf("Get on empty registry returned ok=true")
	}

	l := &Live{RoomID: 42}
	r.mu.Lock()
	r.rooms[42] = l
	r.mu.Unlock()

	got, ok := r.Get(42)
	if !ok || got != l {
		t.Fatalf("Get(42) = %v, %v; want %v, true", got, ok, l)
	}

	r.Delete(42)
	if _, ok := r.Get(42); ok {
		t.Fatalf("room still present after Delete")
	}
}

func int64SliceEqual(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
