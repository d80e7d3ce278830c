package developer

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"

	"github.com/brightforge/gamevault/internal/developer/ingest"
	"github.com/brightforge/gamevault/internal/manifest"
	"github.com/brightforge/gamevault/internal/model"
	"github.com/brightforge/gamevault/internal/storerpc"
	"github.com/brightforge/gamevault/internal/wire"
)

// Deps bundles the dependencies every developer-service handler needs,
// grounded on the teacher's Handler struct (internal/login/handler.go)
// which closes over an AccountRepository/SessionManager/config.
type Deps struct {
	Store      *storerpc.Client
	Sessions   *SessionManager
	Uploads    *ingest.Manager
	UploadRoot string
}

type handlerFunc func(ctx context.Context, d *Deps, conn net.Conn, data json.RawMessage) wire.Reply

// dispatchTable is the closed-set type->handler mapping, matching
// handle()'s type-string switch in original_source's developer_server.py.
var dispatchTable = map[string]handlerFunc{
	"dev_register":        handleRegister,
	"dev_login":           handleLogin,
	"dev_logout":          handleLogout,
	"game_list_mine":      handleGameListMine,
	"game_delist":         handleGameDelist,
	"game_list_versions":  handleGameVersions,
	"game_upload_init":    handleUploadInit,
	"game_upload_chunk":   handleUploadChunk,
	"game_upload_finish":  handleUploadFinish,
}

// Dispatch routes one request by its type string, returning
// wire.ErrUnknownType for anything not in the table.
func Dispatch(ctx context.Context, d *Deps, conn net.Conn, typ string, data json.RawMessage) wire.Reply {
	fn, ok := dispatchTable[typ]
	if !ok {
		return wire.Err(wire.ErrUnknownType, nil)
	}
	return fn(ctx, d, conn, data)
}

func requireLogin(d *Deps, conn net.Conn) (*Session, bool) {
	return d.Sessions.Get(conn)
}

// --- Auth ---

func handleRegister(ctx context.Context, d *Deps, _ net.Conn, data json.RawMessage) wire.Reply {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		raw = map[string]any{}
	}
	reply, err := d.Store.Call(ctx, "DevUser", "register", raw)
	if err != nil {
		return dbError(err)
	}
	if !reply.OK() {
		return wire.Err(reply.Error(), nil)
	}
	return wire.OK(map[string]any{"developerId": reply["developerId"], "username": reply["username"]})
}

func handleLogin(ctx context.Context, d *Deps, conn net.Conn, data json.RawMessage) wire.Reply {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		raw = map[string]any{}
	}
	reply, err := d.Store.Call(ctx, "DevUser", "login", raw)
	if err != nil {
		return dbError(err)
	}
	if !reply.OK() {
		return wire.Err(reply.Error(), nil)
	}
	var devID int64
	var username string
	if err := reply.Decode("developerId", &devID); err != nil {
		return dbError(err)
	}
	_ = reply.Decode("username", &username)
	if devID <= 0 {
		return wire.Err(wire.ErrDBError, map[string]any{"detail": "bad_db_user"})
	}
	if !d.Sessions.Login(conn, devID, username) {
		return wire.Err(wire.ErrAlreadyOnline, nil)
	}
	return wire.OK(map[string]any{"developerId": devID, "username": username})
}

func handleLogout(_ context.Context, d *Deps, conn net.Conn, _ json.RawMessage) wire.Reply {
	d.Sessions.Logout(conn)
	return wire.OK(map[string]any{"loggedOut": true})
}

// --- Games ---

func handleGameListMine(ctx context.Context, d *Deps, conn net.Conn, _ json.RawMessage) wire.Reply {
	sess, ok := requireLogin(d, conn)
	if !ok {
		return wire.Err(wire.ErrNotLoggedIn, nil)
	}
	reply, err := d.Store.Call(ctx, "Game", "list_by_dev", map[string]any{"developerId": sess.DeveloperID})
	if err != nil {
		return dbError(err)
	}
	if !reply.OK() {
		return wire.Err(reply.Error(), nil)
	}
	var games []model.Game
	if err := reply.Decode("games", &games); err != nil {
		return dbError(err)
	}
	out := make([]map[string]any, 0, len(games))
	for _, g := range games {
		entry := map[string]any{
			"gameId":      g.GameID,
			"name":        g.Name,
			"description": g.Description,
			"delisted":    g.Delisted,
		}
		latest, err := d.Store.Call(ctx, "GameVersion", "latest_for_gameId", map[string]any{"gameId": g.GameID})
		if err == nil && latest.OK() {
			var v model.GameVersion
			if latest.Decode("version", &v) == nil {
				entry["latestVersion"] = v.Version
				entry["clientType"] = v.ClientType
				entry["minPlayers"] = v.MinPlayers
				entry["maxPlayers"] = v.MaxPlayers
			}
		} else {
			entry["latestVersion"] = nil
		}
		out = append(out, entry)
	}
	return wire.OK(map[string]any{"games": out})
}

func handleGameDelist(ctx context.Context, d *Deps, conn net.Conn, data json.RawMessage) wire.Reply {
	sess, ok := requireLogin(d, conn)
	if !ok {
		return wire.Err(wire.ErrNotLoggedIn, nil)
	}
	var req struct {
		GameID   string `json:"gameId"`
		Delisted bool   `json:"delisted"`
	}
	if err := json.Unmarshal(data, &req); err != nil {
		return wire.Err(wire.ErrMissingFields, nil)
	}
	req.GameID = strings.TrimSpace(req.GameID)

	if req.Delisted && req.GameID != "" {
		active, err := d.Store.Call(ctx, "Room", "has_playing_for_gameId", map[string]any{"gameId": req.GameID})
		if err == nil && active.OK() {
			var playing bool
			if active.Decode("playing", &playing) == nil && playing {
				return wire.Err(wire.ErrGameInProgress, nil)
			}
		}
	}

	reply, err := d.Store.Call(ctx, "Game", "set_delisted", map[string]any{
		"gameId": req.GameID, "delisted": req.Delisted, "developerId": sess.DeveloperID,
	})
	if err != nil {
		return dbError(err)
	}
	if !reply.OK() {
		return wire.Err(reply.Error(), nil)
	}
	return wire.OK(nil)
}

func handleGameVersions(ctx context.Context, d *Deps, conn net.Conn, data json.RawMessage) wire.Reply {
	sess, ok := requireLogin(d, conn)
	if !ok {
		return wire.Err(wire.ErrNotLoggedIn, nil)
	}
	var req struct {
		GameID string `json:"gameId"`
	}
	if err := json.Unmarshal(data, &req); err != nil || strings.TrimSpace(req.GameID) == "" {
		return wire.Err(wire.ErrMissingFields, nil)
	}
	req.GameID = strings.TrimSpace(req.GameID)

	g, err := getGameByID(ctx, d.Store, req.GameID)
	if err != nil {
		return dbError(err)
	}
	if g == nil {
		return wire.Err(wire.ErrNoSuchGame, nil)
	}
	if g.DeveloperID != sess.DeveloperID {
		return wire.Err(wire.ErrNotOwner, nil)
	}

	reply, err := d.Store.Call(ctx, "GameVersion", "list_for_gameId", map[string]any{"gameId": req.GameID})
	if err != nil {
		return dbError(err)
	}
	if !reply.OK() {
		return wire.Err(reply.Error(), nil)
	}
	return wire.OK(map[string]any{"gameId": req.GameID, "versions": reply["versions"]})
}

// --- Upload ---

func handleUploadInit(ctx context.Context, d *Deps, conn net.Conn, data json.RawMessage) wire.Reply {
	sess, ok := requireLogin(d, conn)
	if !ok {
		return wire.Err(wire.ErrNotLoggedIn, nil)
	}

	var req struct {
		GameID      string `json:"gameId"`
		Version     string `json:"version"`
		FileName    string `json:"fileName"`
		SizeBytes   int64  `json:"sizeBytes"`
		SHA256      string `json:"sha256"`
		Name        string `json:"name"`
		Description string `json:"description"`
		ClientType  string `json:"clientType"`
		MinPlayers  int    `json:"minPlayers"`
		MaxPlayers  int    `json:"maxPlayers"`
	}
	if err := json.Unmarshal(data, &req); err != nil {
		return wire.Err(wire.ErrMissingFields, nil)
	}
	req.GameID = strings.TrimSpace(req.GameID)
	req.Version = strings.TrimSpace(req.Version)
	req.FileName = strings.TrimSpace(req.FileName)
	req.SHA256 = strings.ToLower(strings.TrimSpace(req.SHA256))

	if req.Version == "" || req.SizeBytes <= 0 || req.SHA256 == "" {
		return wire.Err(wire.ErrMissingFields, nil)
	}
	if !versionRe.MatchString(req.Version) {
		return wire.Err(wire.ErrBadVersion, nil)
	}
	if req.GameID != "" && !gameIDRe.MatchString(req.GameID) {
		return wire.Err(wire.ErrBadGameID, nil)
	}

	autoCreated := false
	gameID := req.GameID

	if gameID == "" {
		if req.Name == "" || req.Description == "" {
			return wire.Err(wire.ErrMissingFields, nil)
		}
		clientType := defaultClientType(req.ClientType)
		minP, maxP := defaultPlayerCounts(req.MinPlayers, req.MaxPlayers)

		newID, err := reserveUniqueGameID(ctx, d.Store, slugify(req.Name), sess.DeveloperID)
		if err != nil {
			return dbError(err)
		}
		gameID = newID
		autoCreated = true

		created, err := d.Store.Call(ctx, "Game", "create", map[string]any{
			"gameId": gameID, "name": req.Name, "description": req.Description,
			"developerId": sess.DeveloperID, "clientType": clientType, "minPlayers": minP, "maxPlayers": maxP,
		})
		if err != nil {
			return dbError(err)
		}
		if !created.OK() {
			return wire.Err(created.Error(), nil)
		}
	} else {
		g, err := getGameByID(ctx, d.Store, gameID)
		if err != nil {
			return dbError(err)
		}
		if g != nil {
			if g.DeveloperID != sess.DeveloperID {
				return wire.Err(wire.ErrNotOwner, nil)
			}
		} else {
			if req.Name == "" || req.Description == "" {
				return wire.Err(wire.ErrMissingFields, nil)
			}
			clientType := defaultClientType(req.ClientType)
			minP, maxP := defaultPlayerCounts(req.MinPlayers, req.MaxPlayers)
			autoCreated = true

			created, err := d.Store.Call(ctx, "Game", "create", map[string]any{
				"gameId": gameID, "name": req.Name, "description": req.Description,
				"developerId": sess.DeveloperID, "clientType": clientType, "minPlayers": minP, "maxPlayers": maxP,
			})
			if err != nil {
				return dbError(err)
			}
			if !created.OK() {
				if created.Error() == wire.ErrGameExists {
					g2, err := getGameByID(ctx, d.Store, gameID)
					if err == nil && g2 != nil && g2.DeveloperID == sess.DeveloperID {
						autoCreated = false
					} else {
						return wire.Err(created.Error(), nil)
					}
				} else {
					return wire.Err(created.Error(), nil)
				}
			}
		}
	}

	if req.FileName == "" {
		req.FileName = fmt.Sprintf("%s-%s.zip", gameID, req.Version)
	}

	sess2, err := d.Uploads.Begin(sess.DeveloperID, gameID, req.Version, req.FileName, req.SizeBytes, req.SHA256, autoCreated)
	if err != nil {
		return dbError(err)
	}
	return wire.OK(map[string]any{"uploadId": sess2.UploadID, "gameId": gameID, "created": autoCreated})
}

func handleUploadChunk(_ context.Context, d *Deps, conn net.Conn, data json.RawMessage) wire.Reply {
	sess, ok := requireLogin(d, conn)
	if !ok {
		return wire.Err(wire.ErrNotLoggedIn, nil)
	}
	var req struct {
		UploadID string `json:"uploadId"`
		Seq      int    `json:"seq"`
		DataB64  string `json:"dataB64"`
	}
	if err := json.Unmarshal(data, &req); err != nil {
		return wire.Err(wire.ErrMissingFields, nil)
	}
	req.UploadID = strings.TrimSpace(req.UploadID)

	up, ok := d.Uploads.Get(req.UploadID)
	if !ok {
		return wire.Err(wire.ErrNoSuchUpload, nil)
	}
	if up.DeveloperID != sess.DeveloperID {
		return wire.Err(wire.ErrNotOwner, nil)
	}

	chunk, err := base64.StdEncoding.DecodeString(req.DataB64)
	if err != nil {
		return wire.Err(wire.ErrBadBase64, nil)
	}

	received, err := up.AppendChunk(req.Seq, chunk)
	if err != nil {
		switch e := err.(type) {
		case *ingest.ErrBadSeq:
			return wire.Err(wire.ErrBadSeq, map[string]any{"expected": e.Expected})
		default:
			if err == ingest.ErrEmptyChunk {
				return wire.Err(wire.ErrEmptyChunk, nil)
			}
			if err == ingest.ErrTooLarge {
				return wire.Err(wire.ErrTooLarge, nil)
			}
			return dbError(err)
		}
	}
	return wire.OK(map[string]any{"received": received, "expected": up.ExpectedSize})
}

func handleUploadFinish(ctx context.Context, d *Deps, conn net.Conn, data json.RawMessage) wire.Reply {
	sess, ok := requireLogin(d, conn)
	if !ok {
		return wire.Err(wire.ErrNotLoggedIn, nil)
	}
	var req struct {
		UploadID  string `json:"uploadId"`
		Changelog string `json:"changelog"`
	}
	if err := json.Unmarshal(data, &req); err != nil {
		return wire.Err(wire.ErrMissingFields, nil)
	}
	req.UploadID = strings.TrimSpace(req.UploadID)

	up, ok := d.Uploads.Get(req.UploadID)
	if !ok {
		return wire.Err(wire.ErrNoSuchUpload, nil)
	}
	if up.DeveloperID != sess.DeveloperID {
		return wire.Err(wire.ErrNotOwner, nil)
	}

	if err := up.Finish(); err != nil {
		abortUpload(d, req.UploadID, up.TempPath)
		switch e := err.(type) {
		case *ingest.ErrSizeMismatch:
			return wire.Err(wire.ErrSizeMismatch, map[string]any{"received": e.Received, "expected": e.Expected})
		case *ingest.ErrHashMismatch:
			return wire.Err(wire.ErrHashMismatch, map[string]any{"got": e.Got, "expected": e.Expected})
		default:
			return dbError(err)
		}
	}

	// Extract and validate into a staging directory before anything touches
	// the permanent <uploadRoot>/<gameId>/<version> tree: a traversal-unsafe
	// zip, a bad manifest, an id/version mismatch, a missing entrypoint, or a
	// GameVersion store failure must all leave uploadRoot's package tree
	// untouched, per the finish rollback contract.
	stagingDir := up.TempPath + ".staging"
	defer os.RemoveAll(stagingDir)

	if err := ingest.SafeExtract(up.TempPath, stagingDir); err != nil {
		abortUpload(d, req.UploadID, up.TempPath)
		if err == ingest.ErrUnsafeZipEntry {
			return wire.Err(wire.ErrUnsafeZipEntry, nil)
		}
		return dbError(err)
	}

	packageRoot, err := ingest.PackageRoot(stagingDir)
	if err != nil {
		abortUpload(d, req.UploadID, up.TempPath)
		return dbError(err)
	}

	m, err := manifest.LoadFromDir(packageRoot)
	if err != nil {
		abortUpload(d, req.UploadID, up.TempPath)
		switch err {
		case manifest.ErrMissingManifest:
			return wire.Err(wire.ErrMissingManifest, nil)
		case manifest.ErrBadManifestJSON:
			return wire.Err(wire.ErrBadManifestJSON, nil)
		default:
			return wire.Err(wire.ErrBadManifest, map[string]any{"detail": err.Error()})
		}
	}
	if m.GameID != up.GameID {
		abortUpload(d, req.UploadID, up.TempPath)
		return wire.Err(wire.ErrManifestGameIDMismatch, map[string]any{"manifestGameId": m.GameID, "expected": up.GameID})
	}
	if m.Version != up.Version {
		abortUpload(d, req.UploadID, up.TempPath)
		return wire.Err(wire.ErrManifestVersionMismatch, map[string]any{"manifestVersion": m.Version, "expected": up.Version})
	}

	if _, err := os.Stat(filepath.Join(packageRoot, m.Server.Module)); err != nil {
		abortUpload(d, req.UploadID, up.TempPath)
		return wire.Err(wire.ErrMissingServerEntry, map[string]any{"path": m.Server.Module})
	}
	if _, err := os.Stat(filepath.Join(packageRoot, m.Client.Module)); err != nil {
		abortUpload(d, req.UploadID, up.TempPath)
		return wire.Err(wire.ErrMissingClientEntry, map[string]any{"path": m.Client.Module})
	}

	g, err := getGameByID(ctx, d.Store, up.GameID)
	if err != nil {
		abortUpload(d, req.UploadID, up.TempPath)
		return dbError(err)
	}
	if g == nil {
		abortUpload(d, req.UploadID, up.TempPath)
		return wire.Err(wire.ErrNoSuchGame, nil)
	}

	rawManifest, err := os.ReadFile(filepath.Join(packageRoot, "manifest.json"))
	if err != nil {
		abortUpload(d, req.UploadID, up.TempPath)
		return dbError(err)
	}

	gameDir := filepath.Join(d.UploadRoot, up.GameID, up.Version)
	zipPath := filepath.Join(gameDir, "package.zip")
	extractedPath := filepath.Join(gameDir, "extracted")

	gv, err := d.Store.Call(ctx, "GameVersion", "create", map[string]any{
		"gameDbId":      g.ID,
		"version":       up.Version,
		"changelog":     strings.TrimSpace(req.Changelog),
		"fileName":      up.FileName,
		"sizeBytes":     up.ExpectedSize,
		"sha256":        up.ExpectedSHA256,
		"zipPath":       zipPath,
		"extractedPath": strings.Replace(packageRoot, stagingDir, extractedPath, 1),
		"manifestJson":  string(rawManifest),
		"clientType":    m.ClientType,
		"minPlayers":    m.MinPlayers,
		"maxPlayers":    m.MaxPlayers,
	})
	if err != nil {
		abortUpload(d, req.UploadID, up.TempPath)
		return dbError(err)
	}
	if !gv.OK() {
		abortUpload(d, req.UploadID, up.TempPath)
		return wire.Err(gv.Error(), nil)
	}

	// Every validation passed and the GameVersion row is committed: only now
	// do the bytes land under uploadRoot's permanent per-version tree.
	if err := os.MkdirAll(gameDir, 0o755); err != nil {
		abortUpload(d, req.UploadID, up.TempPath)
		return dbError(err)
	}
	os.RemoveAll(extractedPath)
	if err := os.Rename(stagingDir, extractedPath); err != nil {
		abortUpload(d, req.UploadID, up.TempPath)
		return dbError(fmt.Errorf("moving extracted package into place: %w", err))
	}
	if err := os.Rename(up.TempPath, zipPath); err != nil {
		abortUpload(d, req.UploadID, up.TempPath)
		return dbError(fmt.Errorf("moving uploaded zip into place: %w", err))
	}

	d.Uploads.Remove(req.UploadID)
	return wire.OK(map[string]any{"gameVersionId": gv["gameVersionId"]})
}

// abortUpload discards an upload session's temp file and bookkeeping entry
// on any finish failure, matching the finish rollback contract: the upload
// session is removed and the temp file deleted so no trace remains.
func abortUpload(d *Deps, uploadID, tempPath string) {
	d.Uploads.Remove(uploadID)
	os.Remove(tempPath)
}

func getGameByID(ctx context.Context, store *storerpc.Client, gameID string) (*model.Game, error) {
	reply, err := store.Call(ctx, "Game", "get_by_gameId", map[string]any{"gameId": gameID})
	if err != nil {
		return nil, err
	}
	if !reply.OK() {
		if reply.Error() == wire.ErrNoSuchGame || reply.Error() == wire.ErrNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("store: %s", reply.Error())
	}
	var g model.Game
	if err := reply.Decode("game", &g); err != nil {
		return nil, err
	}
	return &g, nil
}

func defaultClientType(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return "cli"
	}
	return s
}

func defaultPlayerCounts(minP, maxP int) (int, int) {
	if minP <= 0 {
		minP = 2
	}
	if maxP <= 0 {
		maxP = 2
	}
	return minP, maxP
}

func dbError(err error) wire.Reply {
	return wire.Err(wire.ErrDBError, map[string]any{"detail": err.Error()})
}
