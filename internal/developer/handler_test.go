package developer

import (
	"archive/zip"
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/brightforge/gamevault/internal/developer/ingest"
	"github.com/brightforge/gamevault/internal/frame"
	"github.com/brightforge/gamevault/internal/storerpc"
	"github.com/brightforge/gamevault/internal/wire"
)

// fakeStore is a minimal in-memory stand-in for the store service,
// grounded on storerpc/client_test.go's local-listener fake.
type fakeStore struct {
	games map[string]map[string]any
}

func newFakeStore() *fakeStore {
	return &fakeStore{games: make(map[string]map[string]any)}
}

func (fs *fakeStore) serve(t *testing.T, ln net.Listener) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		go fs.handle(t, conn)
	}
}

func (fs *fakeStore) handle(t *testing.T, conn net.Conn) {
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
	case "DevUser.register":
		return map[string]any{"ok": true, "developerId": 1, "username": data["username"]}
	case "DevUser.login":
		return map[string]any{"ok": true, "developerId": 1, "username": data["username"]}
	case "Game.get_by_gameId":
		gid, _ := data["gameId"].(string)
		g, ok := fs.games[gid]
		if !ok {
			return map[string]any{"ok": false, "error": "no_such_game"}
		}
		return map[string]any{"ok": true, "game": g}
	case "Game.create":
		gid, _ := data["gameId"].(string)
		if _, exists := fs.games[gid]; exists {
			return map[string]any{"ok": false, "error": "game_exists"}
		}
		fs.games[gid] = map[string]any{
			"ID":          int64(len(fs.games) + 1),
			"GameID":      gid,
			"Name":        data["name"],
			"Description": data["description"],
			"DeveloperID": data["developerId"],
			"Delisted":    false,
		}
		return map[string]any{"ok": true, "gameDbId": fs.games[gid]["ID"]}
	case "Game.list_by_dev":
		var out []map[string]any
		for _, g := range fs.games {
			out = append(out, g)
		}
		return map[string]any{"ok": true, "games": out}
	case "Game.set_delisted":
		gid, _ := data["gameId"].(string)
		g, ok := fs.games[gid]
		if !ok {
			return map[string]any{"ok": false, "error": "no_such_game"}
		}
		g["Delisted"] = data["delisted"]
		return map[string]any{"ok": true}
	case "Room.has_playing_for_gameId":
		return map[string]any{"ok": true, "playing": false}
	case "GameVersion.latest_for_gameId":
		return map[string]any{"ok": false, "error": "no_version"}
	case "GameVersion.create":
		return map[string]any{"ok": true, "gameVersionId": int64(1)}
	default:
		return map[string]any{"ok": false, "error": "unknown_type"}
	}
}

func startFakeStore(t *testing.T) *storerpc.Client {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })
	fs := newFakeStore()
	go fs.serve(t, ln)
	return storerpc.New(ln.Addr().String())
}

func newTestDeps(t *testing.T) *Deps {
	return &Deps{
		Store:      startFakeStore(t),
		Sessions:   NewSessionManager(),
		Uploads:    ingest.NewManager(t.TempDir()),
		UploadRoot: t.TempDir(),
	}
}

func fakeConn() net.Conn {
	c1, c2 := net.Pipe()
	go c2.Close()
	return c1
}

func callJSON(t *testing.T, fn handlerFunc, d *Deps, conn net.Conn, data any) wire.Reply {
	t.Helper()
	raw, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return fn(context.Background(), d, conn, raw)
}

func TestHandleLoginRejectsSecondSession(t *testing.T) {
	d := newTestDeps(t)
	conn1 := fakeConn()
	conn2 := fakeConn()

	r1 := callJSON(t, handleLogin, d, conn1, map[string]any{"username": "alice", "password": "secret"})
	if !r1.OK() {
		t.Fatalf("expected login ok, got %#v", r1)
	}

	r2 := callJSON(t, handleLogin, d, conn2, map[string]any{"username": "alice", "password": "secret"})
	if r2.OK() {
		t.Fatal("expected second login to fail")
	}
	if r2["error"] != wire.ErrAlreadyOnline {
		t.Fatalf("expected already_online, got %v", r2["error"])
	}
}

func TestHandleGameListMineRequiresLogin(t *testing.T) {
	d := newTestDeps(t)
	conn := fakeConn()
	r := callJSON(t, handleGameListMine, d, conn, nil)
	if r.OK() {
		t.Fatal("expected not_logged_in error")
	}
	if r["error"] != wire.ErrNotLoggedIn {
		t.Fatalf("expected not_logged_in, got %v", r["error"])
	}
}

func buildTestZip(t *testing.T, gameID, version string) ([]byte, string) {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	manifestJSON := `{
		"gameId": "` + gameID + `",
		"name": "Test Game",
		"version": "` + version + `",
		"developer": "alice",
		"description": "d",
		"clientType": "cli",
		"minPlayers": 2,
		"maxPlayers": 2,
		"entrypoints": {
			"server": {"module": "server.py", "argv": []},
			"client": {"module": "client.py", "argv": []}
		}
	}`
	for _, f := range []struct{ name, content string }{
		{"manifest.json", manifestJSON},
		{"server.py", "# server"},
		{"client.py", "# client"},
	} {
		w, err := zw.Create(f.name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write([]byte(f.content)); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	sum := sha256.Sum256(buf.Bytes())
	return buf.Bytes(), hex.EncodeToString(sum[:])
}

func TestUploadInitChunkFinishRoundTrip(t *testing.T) {
	d := newTestDeps(t)
	conn := fakeConn()

	loginReply := callJSON(t, handleLogin, d, conn, map[string]any{"username": "alice", "password": "secret"})
	if !loginReply.OK() {
		t.Fatalf("login: %#v", loginReply)
	}

	zipBytes, hash := buildTestZip(t, "tic-tac-toe", "1.0.0")

	initReply := callJSON(t, handleUploadInit, d, conn, map[string]any{
		"gameId": "tic-tac-toe", "version": "1.0.0", "fileName": "game.zip",
		"sizeBytes": len(zipBytes), "sha256": hash,
		"name": "Tic Tac Toe", "description": "classic", "clientType": "cli",
		"minPlayers": 2, "maxPlayers": 2,
	})
	if !initReply.OK() {
		t.Fatalf("upload init: %#v", initReply)
	}
	uploadID, _ := initReply["uploadId"].(string)
	if uploadID == "" {
		t.Fatal("expected uploadId")
	}

	chunkReply := callJSON(t, handleUploadChunk, d, conn, map[string]any{
		"uploadId": uploadID, "seq": 0, "dataB64": base64.StdEncoding.EncodeToString(zipBytes),
	})
	if !chunkReply.OK() {
		t.Fatalf("upload chunk: %#v", chunkReply)
	}

	finishReply := callJSON(t, handleUploadFinish, d, conn, map[string]any{"uploadId": uploadID})
	if !finishReply.OK() {
		t.Fatalf("upload finish: %#v", finishReply)
	}
	if finishReply["gameVersionId"] == nil {
		t.Fatal("expected gameVersionId in finish reply")
	}
}

// buildTraversalZip returns a zip whose manifest is otherwise valid but
// which also carries a "../evil" entry, matching spec scenario S6.
func buildTraversalZip(t *testing.T, gameID, version string) ([]byte, string) {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	manifestJSON := `{
		"gameId": "` + gameID + `",
		"name": "Test Game",
		"version": "` + version + `",
		"developer": "alice",
		"description": "d",
		"clientType": "cli",
		"minPlayers": 2,
		"maxPlayers": 2,
		"entrypoints": {
			"server": {"module": "server.py", "argv": []},
			"client": {"module": "client.py", "argv": []}
		}
	}`
	for _, f := range []struct{ name, content string }{
		{"manifest.json", manifestJSON},
		{"server.py", "# server"},
		{"client.py", "# client"},
		{"../evil", "escape"},
	} {
		w, err := zw.Create(f.name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write([]byte(f.content)); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	sum := sha256.Sum256(buf.Bytes())
	return buf.Bytes(), hex.EncodeToString(sum[:])
}

// TestUploadFinishRejectsTraversalAndRollsBack drives scenario S6 through
// the actual handler (not ingest.SafeExtract directly): a zip with a
// traversal entry must be rejected by game_upload_finish with no files
// landing under uploadRoot and no GameVersion row created, and the upload
// session/temp file must be fully cleaned up.
func TestUploadFinishRejectsTraversalAndRollsBack(t *testing.T) {
	d := newTestDeps(t)
	conn := fakeConn()

	loginReply := callJSON(t, handleLogin, d, conn, map[string]any{"username": "alice", "password": "secret"})
	if !loginReply.OK() {
		t.Fatalf("login: %#v", loginReply)
	}

	zipBytes, hash := buildTraversalZip(t, "evil-game", "1.0.0")

	initReply := callJSON(t, handleUploadInit, d, conn, map[string]any{
		"gameId": "evil-game", "version": "1.0.0", "fileName": "game.zip",
		"sizeBytes": len(zipBytes), "sha256": hash,
		"name": "Evil Game", "description": "d", "clientType": "cli",
		"minPlayers": 2, "maxPlayers": 2,
	})
	if !initReply.OK() {
		t.Fatalf("upload init: %#v", initReply)
	}
	uploadID, _ := initReply["uploadId"].(string)
	if uploadID == "" {
		t.Fatal("expected uploadId")
	}
	up, ok := d.Uploads.Get(uploadID)
	if !ok {
		t.Fatal("expected upload session to exist after init")
	}
	tempPath := up.TempPath

	chunkReply := callJSON(t, handleUploadChunk, d, conn, map[string]any{
		"uploadId": uploadID, "seq": 0, "dataB64": base64.StdEncoding.EncodeToString(zipBytes),
	})
	if !chunkReply.OK() {
		t.Fatalf("upload chunk: %#v", chunkReply)
	}

	finishReply := callJSON(t, handleUploadFinish, d, conn, map[string]any{"uploadId": uploadID})
	if finishReply.OK() {
		t.Fatalf("expected finish to reject traversal, got %#v", finishReply)
	}
	if finishReply["error"] != wire.ErrUnsafeZipEntry {
		t.Fatalf("expected unsafe_zip_entry, got %v", finishReply["error"])
	}

	if _, err := os.Stat(filepath.Join(d.UploadRoot, "evil-game")); !os.IsNotExist(err) {
		t.Fatalf("expected no files under uploadRoot for evil-game, stat err = %v", err)
	}
	if _, ok := d.Uploads.Get(uploadID); ok {
		t.Fatal("expected upload session to be removed after finish failure")
	}
	if _, err := os.Stat(tempPath); !os.IsNotExist(err) {
		t.Fatalf("expected temp upload file to be deleted, stat err = %v", err)
	}
}
