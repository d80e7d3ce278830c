package storerpc

import (
	"context"
	"net"
	"testing"

	"github.com/brightforge/gamevault/internal/frame"
)

func TestClientCallRoundTrip(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		var req map[string]any
		if err := frame.Read(conn, &req); err != nil {
			return
		}
		if req["collection"] != "Game" || req["action"] != "list_public" {
			frame.Write(conn, map[string]any{"ok": false, "error": "unexpected_request"})
			return
		}
		frame.Write(conn, map[string]any{"ok": true, "games": []string{"a", "b"}})
	}()

	c := New(ln.Addr().String())
	reply, err := c.Call(context.Background(), "Game", "list_public", nil)
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if !reply.OK() {
		t.Fatalf("expected ok reply, got %#v", reply)
	}
	var games []string
	if err := reply.Decode("games", &games); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(games) != 2 {
		t.Fatalf("expected 2 games, got %v", games)
	}
}

func TestClientCallErrorReply(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		var req map[string]any
		frame.Read(conn, &req)
		frame.Write(conn, map[string]any{"ok": false, "error": "bad_credentials"})
	}()

	c := New(ln.Addr().String())
	reply, err := c.Call(context.Background(), "PlayerUser", "login", map[string]any{"username": "x", "password": "y"})
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if reply.OK() {
		t.Fatal("expected failure reply")
	}
	if reply.Error() != "bad_credentials" {
		t.Fatalf("expected bad_credentials, got %q", reply.Error())
	}
}
