package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadStoreConfigDefaultsWhenMissing(t *testing.T) {
	cfg, err := LoadStoreConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != DefaultStoreConfig().Port {
		t.Fatalf("expected default port, got %d", cfg.Port)
	}
}

func TestLoadStoreConfigEnvOverride(t *testing.T) {
	t.Setenv("GAMEHUB_STORE_PORT", "9999")
	cfg, err := LoadStoreConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != 9999 {
		t.Fatalf("expected env override port 9999, got %d", cfg.Port)
	}
}

func TestLoadLobbyConfigFromYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "lobby.yaml")
	content := "port: 7000\nrun_root: /tmp/runs\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadLobbyConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != 7000 || cfg.RunRoot != "/tmp/runs" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.DownloadChunkBytes != DefaultLobbyConfig().DownloadChunkBytes {
		t.Fatalf("expected default chunk size preserved, got %d", cfg.DownloadChunkBytes)
	}
}

func TestDatabaseConfigDSN(t *testing.T) {
	d := DatabaseConfig{
		Host: "db", Port: 5432, User: "u", Password: "p", DBName: "n", SSLMode: "disable",
	}
	want := "postgres://u:p@db:5432/n?sslmode=disable"
	if got := d.DSN(); got != want {
		t.Fatalf("dsn = %q, want %q", got, want)
	}
}
