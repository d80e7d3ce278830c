package lobby

import (
	"net"
	"testing"
)

func TestSessionManagerLoginRejectsSecondConnForSamePlayer(t *testing.T) {
	m := NewSessionManager()
	c1, c1peer := net.Pipe()
	defer c1.Close()
	defer c1peer.Close()
	c2, c2peer := net.Pipe()
	defer c2.Close()
	defer c2peer.Close()

	sess1, ok := m.Login(c1, 7, "alice")
	if !ok || sess1.PlayerID != 7 {
		t.Fatalf("first login failed: sess=%v ok=%v", sess1, ok)
	}

	_, ok = m.Login(c2, 7, "alice")
	if ok {
		t.Fatalf("second login for the same player succeeded, want rejection")
	}
}

func TestSessionManagerLogoutThenReloginSucceeds(t *testing.T) {
	m := NewSessionManager()
	c1, c1peer := net.Pipe()
	defer c1.Close()
	defer c1peer.Close()

	if _, ok := m.Login(c1, 9, "bob"); !ok {
		t.Fatalf("initial login failed")
	}
	sess, ok := m.Logout(c1)
	if !ok || sess.PlayerID != 9 {
		t.Fatalf("logout failed: sess=%v ok=%v", sess, ok)
	}

	c2, c2peer := net.Pipe()
	defer c2.Close()
	defer c2peer.Close()
	if _, ok := m.Login(c2, 9, "bob"); !ok {
		t.Fatalf("relogin after logout was rejected, want success")
	}
}

func TestSessionManagerGetByPlayerID(t *testing.T) {
	m := NewSessionManager()
	c1, c1peer := net.Pipe()
	defer c1.Close()
	defer c1peer.Close()

	m.Login(c1, 5, "carol")

	got, ok := m.GetByPlayerID(5)
	if !ok || got.Username != "carol" {
		t.Fatalf("GetByPlayerID(5) = %v, %v", got, ok)
	}

	if _, ok := m.GetByPlayerID(999); ok {
		t.Fatalf("GetByPlayerID for unknown player returned ok=true")
	}
}

func TestSessionManagerPushIgnoresOfflinePlayer(t *testing.T) {
	m := NewSessionManager()
	// Push to a player with no session must not panic or block.
	m.Push(123, "player_left", map[string]any{"roomId": 1})
}
