// Package config loads the YAML configuration for each service, with
// programmatic defaults and environment variable overrides, grounded on the
// teacher's internal/config.LoadLoginServer pattern.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// DatabaseConfig holds the Store service's Postgres connection parameters.
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`

	// SQLitePath is recognized for parity with spec §6.5's persisted-layout
	// vocabulary but is not used: this deployment persists to Postgres (see
	// SPEC_FULL.md §3 "Persistence engine").
	SQLitePath string `yaml:"sqlite_path"`

	MaxConns int32 `yaml:"max_conns"`
	MinConns int32 `yaml:"min_conns"`
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	base := fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
	var params []string
	if d.MaxConns > 0 {
		params = append(params, fmt.Sprintf("pool_max_conns=%d", d.MaxConns))
	}
	if d.MinConns > 0 {
		params = append(params, fmt.Sprintf("pool_min_conns=%d", d.MinConns))
	}
	if len(params) > 0 {
		return base + "&" + strings.Join(params, "&")
	}
	return base
}

func defaultDatabase() DatabaseConfig {
	return DatabaseConfig{
		Host:     "127.0.0.1",
		Port:     5432,
		User:     "gamevault",
		Password: "gamevault",
		DBName:   "gamevault",
		SSLMode:  "disable",
	}
}

// StoreConfig configures the store service.
type StoreConfig struct {
	BindAddress string         `yaml:"bind_address"`
	Port        int            `yaml:"port"`
	LogLevel    string         `yaml:"log_level"`
	Database    DatabaseConfig `yaml:"database"`
}

// DefaultStoreConfig returns StoreConfig with sensible defaults.
func DefaultStoreConfig() StoreConfig {
	return StoreConfig{
		BindAddress: "0.0.0.0",
		Port:        9001,
		LogLevel:    "info",
		Database:    defaultDatabase(),
	}
}

// LoadStoreConfig loads store config from a YAML file, falling back to
// defaults if path does not exist, then applies GAMEHUB_STORE_* env
// overrides.
func LoadStoreConfig(path string) (StoreConfig, error) {
	cfg := DefaultStoreConfig()
	if err := loadYAML(path, &cfg); err != nil {
		return cfg, err
	}
	envOverrideString("GAMEHUB_STORE_BIND_ADDRESS", &cfg.BindAddress)
	envOverrideInt("GAMEHUB_STORE_PORT", &cfg.Port)
	envOverrideString("GAMEHUB_STORE_LOG_LEVEL", &cfg.LogLevel)
	envOverrideString("GAMEHUB_DB_HOST", &cfg.Database.Host)
	envOverrideInt("GAMEHUB_DB_PORT", &cfg.Database.Port)
	envOverrideString("GAMEHUB_DB_USER", &cfg.Database.User)
	envOverrideString("GAMEHUB_DB_PASSWORD", &cfg.Database.Password)
	envOverrideString("GAMEHUB_DB_NAME", &cfg.Database.DBName)
	return cfg, nil
}

// StoreRPCConfig is the client-side address of the store service, shared by
// the developer and lobby configs.
type StoreRPCConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

func defaultStoreRPC() StoreRPCConfig {
	return StoreRPCConfig{Host: "127.0.0.1", Port: 9001}
}

// DeveloperConfig configures the developer service.
type DeveloperConfig struct {
	BindAddress string         `yaml:"bind_address"`
	Port        int            `yaml:"port"`
	LogLevel    string         `yaml:"log_level"`
	Store       StoreRPCConfig `yaml:"store"`

	// UploadRoot is the directory tree under which zip uploads and their
	// extracted trees are persisted (spec §6.4).
	UploadRoot string `yaml:"upload_root"`

	// MaxUploadSizeBytes is loaded from config but not read by the developer
	// service; an upload is bounded only by the sizeBytes declared at init.
	MaxUploadSizeBytes int64 `yaml:"max_upload_size_bytes"`
}

// DefaultDeveloperConfig returns DeveloperConfig with sensible defaults.
func DefaultDeveloperConfig() DeveloperConfig {
	return DeveloperConfig{
		BindAddress:        "0.0.0.0",
		Port:               9002,
		LogLevel:           "info",
		Store:              defaultStoreRPC(),
		UploadRoot:         "./data/uploads",
		MaxUploadSizeBytes: 512 * 1024 * 1024,
	}
}

// LoadDeveloperConfig loads developer config from a YAML file, applying
// GAMEHUB_DEV_* env overrides.
func LoadDeveloperConfig(path string) (DeveloperConfig, error) {
	cfg := DefaultDeveloperConfig()
	if err := loadYAML(path, &cfg); err != nil {
		return cfg, err
	}
	envOverrideString("GAMEHUB_DEV_BIND_ADDRESS", &cfg.BindAddress)
	envOverrideInt("GAMEHUB_DEV_PORT", &cfg.Port)
	envOverrideString("GAMEHUB_DEV_LOG_LEVEL", &cfg.LogLevel)
	envOverrideString("GAMEHUB_DEV_STORE_HOST", &cfg.Store.Host)
	envOverrideInt("GAMEHUB_DEV_STORE_PORT", &cfg.Store.Port)
	envOverrideString("GAMEHUB_DEV_UPLOAD_ROOT", &cfg.UploadRoot)
	return cfg, nil
}

// LobbyConfig configures the lobby service.
type LobbyConfig struct {
	BindAddress string         `yaml:"bind_address"`
	Port        int            `yaml:"port"`
	LogLevel    string         `yaml:"log_level"`
	Store       StoreRPCConfig `yaml:"store"`

	// RunRoot is the directory under which spawned game-process logs and
	// working directories live (spec §4.5, §6.4).
	RunRoot string `yaml:"run_root"`

	// DownloadChunkBytes is loaded from config but not read by the lobby;
	// download chunks are capped by the fixed maxB64Chunk in download.go.
	DownloadChunkBytes int `yaml:"download_chunk_bytes"`

	// PortRangeStart/End bound the ephemeral ports offered to spawned game
	// processes (spec §4.5).
	PortRangeStart int `yaml:"port_range_start"`
	PortRangeEnd   int `yaml:"port_range_end"`

	// MatchExitGraceMillis is the delay after process exit before a match is
	// force-finalized if no post_result callback arrives (spec §4.3).
	MatchExitGraceMillis int `yaml:"match_exit_grace_millis"`

	// LobbyHostPublic is the address given to spawned game servers and
	// players for the `{host}` argv placeholder; LobbyHostInternal is what
	// the child uses to call back to this lobby (HW3_LOBBY_HOST/PORT).
	LobbyHostPublic   string `yaml:"lobby_host_public"`
	LobbyHostInternal string `yaml:"lobby_host_internal"`
}

// DefaultLobbyConfig returns LobbyConfig with sensible defaults.
func DefaultLobbyConfig() LobbyConfig {
	return LobbyConfig{
		BindAddress:          "0.0.0.0",
		Port:                 9003,
		LogLevel:             "info",
		Store:                defaultStoreRPC(),
		RunRoot:              "./data/run",
		DownloadChunkBytes:   32 * 1024,
		PortRangeStart:       20000,
		PortRangeEnd:         20999,
		MatchExitGraceMillis: 500,
		LobbyHostPublic:      "127.0.0.1",
		LobbyHostInternal:    "127.0.0.1",
	}
}

// LoadLobbyConfig loads lobby config from a YAML file, applying
// GAMEHUB_LOBBY_* env overrides.
func LoadLobbyConfig(path string) (LobbyConfig, error) {
	cfg := DefaultLobbyConfig()
	if err := loadYAML(path, &cfg); err != nil {
		return cfg, err
	}
	envOverrideString("GAMEHUB_LOBBY_BIND_ADDRESS", &cfg.BindAddress)
	envOverrideInt("GAMEHUB_LOBBY_PORT", &cfg.Port)
	envOverrideString("GAMEHUB_LOBBY_LOG_LEVEL", &cfg.LogLevel)
	envOverrideString("GAMEHUB_LOBBY_STORE_HOST", &cfg.Store.Host)
	envOverrideInt("GAMEHUB_LOBBY_STORE_PORT", &cfg.Store.Port)
	envOverrideString("GAMEHUB_LOBBY_RUN_ROOT", &cfg.RunRoot)
	envOverrideString("GAMEHUB_LOBBY_HOST_PUBLIC", &cfg.LobbyHostPublic)
	envOverrideString("GAMEHUB_LOBBY_HOST_INTERNAL", &cfg.LobbyHostInternal)
	return cfg, nil
}

func loadYAML(path string, cfg any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing config %s: %w", path, err)
	}
	return nil
}

func envOverrideString(key string, dst *string) {
	if v, ok := os.LookupEnv(key); ok {
		*dst = v
	}
}

func envOverrideInt(key string, dst *int) {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}
