// Package manifest parses and renders a game's manifest.json, grounded on
// original_source's common/manifest.py (GameManifest, parse_manifest,
// load_manifest_from_dir).
package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Entrypoint names the module to run plus its argv template, e.g.
// {"module": "server.py", "argv": ["--host", "{host}", "--port", "{port}"]}.
type Entrypoint struct {
	Module string   `json:"module"`
	Argv   []string `json:"argv"`
}

// Manifest is a validated game manifest (spec §3.2, §5).
type Manifest struct {
	GameID      string     `json:"gameId"`
	Name        string     `json:"name"`
	Version     string     `json:"version"`
	Developer   string     `json:"developer"`
	Description string     `json:"description"`
	ClientType  string     `json:"clientType"` // "cli" | "gui"
	MinPlayers  int        `json:"minPlayers"`
	MaxPlayers  int        `json:"maxPlayers"`
	Server      Entrypoint `json:"server"`
	Client      Entrypoint `json:"client"`
}

// ErrBadManifest wraps a specific validation failure. The message is one of
// the bad:* reasons parse_manifest raises in original_source.
type ErrBadManifest struct {
	Reason string
}

func (e *ErrBadManifest) Error() string { return "bad manifest: " + e.Reason }

func badManifest(reason string) error { return &ErrBadManifest{Reason: reason} }

type rawEntrypoint struct {
	Module string   `json:"module"`
	Argv   []string `json:"argv"`
}

type rawManifest struct {
	GameID      *string `json:"gameId"`
	Name        *string `json:"name"`
	Version     *string `json:"version"`
	Developer   *string `json:"developer"`
	Description *string `json:"description"`
	ClientType  *string `json:"clientType"`
	MinPlayers  *int    `json:"minPlayers"`
	MaxPlayers  *int    `json:"maxPlayers"`
	Entrypoints *struct {
		Server *rawEntrypoint `json:"server"`
		Client *rawEntrypoint `json:"client"`
	} `json:"entrypoints"`
}

func require[T any](v *T, field string) (T, error) {
	var zero T
	if v == nil {
		return zero, badManifest("missing:" + field)
	}
	return *v, nil
}

// Parse validates a decoded manifest.json body, matching parse_manifest's
// field requirements and range checks exactly.
func Parse(data []byte) (*Manifest, error) {
	var raw rawManifest
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("bad manifest json: %w", err)
	}

	gameID, err := require(raw.GameID, "gameId")
	if err != nil {
		return nil, err
	}
	name, err := require(raw.Name, "name")
	if err != nil {
		return nil, err
	}
	version, err := require(raw.Version, "version")
	if err != nil {
		return nil, err
	}
	developer, err := require(raw.Developer, "developer")
	if err != nil {
		return nil, err
	}
	description, err := require(raw.Description, "description")
	if err != nil {
		return nil, err
	}
	clientType, err := require(raw.ClientType, "clientType")
	if err != nil {
		return nil, err
	}
	minPlayers, err := require(raw.MinPlayers, "minPlayers")
	if err != nil {
		return nil, err
	}
	maxPlayers, err := require(raw.MaxPlayers, "maxPlayers")
	if err != nil {
		return nil, err
	}
	if raw.Entrypoints == nil {
		return nil, badManifest("missing:entrypoints")
	}
	if raw.Entrypoints.Server == nil {
		return nil, badManifest("missing:entrypoints.server")
	}
	if raw.Entrypoints.Client == nil {
		return nil, badManifest("missing:entrypoints.client")
	}

	gameID = strings.TrimSpace(gameID)
	name = strings.TrimSpace(name)
	version = strings.TrimSpace(version)
	developer = strings.TrimSpace(developer)
	description = strings.TrimSpace(description)
	clientType = strings.ToLower(strings.TrimSpace(clientType))

	srvModule := strings.TrimSpace(raw.Entrypoints.Server.Module)
	cliModule := strings.TrimSpace(raw.Entrypoints.Client.Module)
	if srvModule == "" {
		return nil, badManifest("missing:entrypoints.server.module")
	}
	if cliModule == "" {
		return nil, badManifest("missing:entrypoints.client.module")
	}

	if clientType != "cli" && clientType != "gui" {
		return nil, badManifest("bad:clientType")
	}
	if minPlayers <= 0 || maxPlayers <= 0 || minPlayers > maxPlayers {
		return nil, badManifest("bad:playerRange")
	}
	if gameID == "" || name == "" || version == "" || developer == "" {
		return nil, badManifest("bad:identity")
	}

	return &Manifest{
		GameID:      gameID,
		Name:        name,
		Version:     version,
		Developer:   developer,
		Description: description,
		ClientType:  clientType,
		MinPlayers:  minPlayers,
		MaxPlayers:  maxPlayers,
		Server:      Entrypoint{Module: srvModule, Argv: append([]string(nil), raw.Entrypoints.Server.Argv...)},
		Client:      Entrypoint{Module: cliModule, Argv: append([]string(nil), raw.Entrypoints.Client.Argv...)},
	}, nil
}

// LoadFromDir reads and validates "<dir>/manifest.json", returning the
// missing_manifest / bad_manifest_json sentinel errors on I/O or decode
// failure, so callers can map them directly to wire error codes.
func LoadFromDir(dir string) (*Manifest, error) {
	raw, err := os.ReadFile(filepath.Join(dir, "manifest.json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrMissingManifest
		}
		return nil, fmt.Errorf("reading manifest.json: %w", err)
	}

	var probe any
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, ErrBadManifestJSON
	}
	if _, ok := probe.(map[string]any); !ok {
		return nil, ErrBadManifestJSON
	}

	m, err := Parse(raw)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// Sentinel errors returned by LoadFromDir, mirroring original_source's
// load_manifest_from_dir error strings.
var (
	ErrMissingManifest = errors.New("missing_manifest")
	ErrBadManifestJSON = errors.New("bad_manifest_json")
)

// ErrUnresolvedPlaceholder is returned by Render when an argv template
// references a mapping key that wasn't supplied, matching _fmt_argv's
// bad_argv_template ValueError.
type ErrUnresolvedPlaceholder struct {
	Key string
}

func (e *ErrUnresolvedPlaceholder) Error() string {
	return fmt.Sprintf("bad_argv_template: unresolved placeholder %q", e.Key)
}

// Render expands "{key}" placeholders in argv against mapping, grounded on
// _fmt_argv(argv, mapping). Every placeholder must resolve; an unresolved
// one fails closed rather than being passed through to the child process.
func Render(argv []string, mapping map[string]string) ([]string, error) {
	out := make([]string, len(argv))
	for i, a := range argv {
		rendered, err := renderOne(a, mapping)
		if err != nil {
			return nil, err
		}
		out[i] = rendered
	}
	return out, nil
}

func renderOne(s string, mapping map[string]string) (string, error) {
	var b strings.Builder
	for {
		start := strings.IndexByte(s, '{')
		if start < 0 {
			b.WriteString(s)
			return b.String(), nil
		}
		end := strings.IndexByte(s[start:], '}')
		if end < 0 {
			b.WriteString(s)
			return b.String(), nil
		}
		end += start
		key := s[start+1 : end]
		val, ok := mapping[key]
		if !ok {
			return "", &ErrUnresolvedPlaceholder{Key: key}
		}
		b.WriteString(s[:start])
		b.WriteString(val)
		s = s[end+1:]
	}
}
