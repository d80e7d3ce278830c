package manifest

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func validManifestJSON() []byte {
	return []byte(`{
		"gameId": "tic-tac-toe",
		"name": "Tic Tac Toe",
		"version": "1.0.0",
		"developer": "alice",
		"description": "classic game",
		"clientType": "cli",
		"minPlayers": 2,
		"maxPlayers": 2,
		"entrypoints": {
			"server": {"module": "server.py", "argv": ["--host", "{host}", "--port", "{port}", "--token", "{token}"]},
			"client": {"module": "client.py", "argv": ["--host", "{lobbyHost}"]}
		}
	}`)
}

func TestParseValid(t *testing.T) {
	m, err := Parse(validManifestJSON())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if m.GameID != "tic-tac-toe" || m.MinPlayers != 2 || m.MaxPlayers != 2 {
		t.Fatalf("unexpected manifest: %+v", m)
	}
	if m.ClientType != "cli" {
		t.Fatalf("expected clientType cli, got %q", m.ClientType)
	}
}

func TestParseMissingField(t *testing.T) {
	_, err := Parse([]byte(`{"name": "x"}`))
	if err == nil {
		t.Fatal("expected error for missing gameId")
	}
}

func TestParseBadClientType(t *testing.T) {
	bad := []byte(`{
		"gameId": "g", "name": "n", "version": "1", "developer": "d", "description": "",
		"clientType": "web", "minPlayers": 1, "maxPlayers": 2,
		"entrypoints": {"server": {"module": "s", "argv": []}, "client": {"module": "c", "argv": []}}
	}`)
	_, err := Parse(bad)
	if err == nil {
		t.Fatal("expected bad:clientType error")
	}
	var bm *ErrBadManifest
	if !errors.As(err, &bm) {
		t.Fatalf("expected ErrBadManifest, got %T", err)
	}
}

func TestParseBadPlayerRange(t *testing.T) {
	bad := []byte(`{
		"gameId": "g", "name": "n", "version": "1", "developer": "d", "description": "",
		"clientType": "cli", "minPlayers": 4, "maxPlayers": 2,
		"entrypoints": {"server": {"module": "s", "argv": []}, "client": {"module": "c", "argv": []}}
	}`)
	if _, err := Parse(bad); err == nil {
		t.Fatal("expected bad:playerRange error")
	}
}

func TestLoadFromDirMissing(t *testing.T) {
	dir := t.TempDir()
	_, err := LoadFromDir(dir)
	if !errors.Is(err, ErrMissingManifest) {
		t.Fatalf("expected ErrMissingManifest, got %v", err)
	}
}

func TestLoadFromDirBadJSON(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "manifest.json"), []byte("not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := LoadFromDir(dir)
	if !errors.Is(err, ErrBadManifestJSON) {
		t.Fatalf("expected ErrBadManifestJSON, got %v", err)
	}
}

func TestLoadFromDirValid(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "manifest.json"), validManifestJSON(), 0o644); err != nil {
		t.Fatal(err)
	}
	m, err := LoadFromDir(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if m.GameID != "tic-tac-toe" {
		t.Fatalf("unexpected gameId %q", m.GameID)
	}
}

func TestRenderSubstitutesPlaceholders(t *testing.T) {
	argv, err := Render([]string{"--host", "{host}", "--port", "{port}"}, map[string]string{
		"host": "127.0.0.1",
		"port": "5000",
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	want := []string{"--host", "127.0.0.1", "--port", "5000"}
	for i, w := range want {
		if argv[i] != w {
			t.Fatalf("argv[%d] = %q, want %q", i, argv[i], w)
		}
	}
}

func TestRenderUnresolvedPlaceholder(t *testing.T) {
	_, err := Render([]string{"{missing}"}, map[string]string{"host": "x"})
	if err == nil {
		t.Fatal("expected unresolved placeholder error")
	}
	var up *ErrUnresolvedPlaceholder
	if !errors.As(err, &up) {
		t.Fatalf("expected ErrUnresolvedPlaceholder, got %T", err)
	}
}
