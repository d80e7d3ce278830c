package developer

import (
	"context"
	"regexp"
	"strings"

	"github.com/brightforge/gamevault/internal/security"
	"github.com/brightforge/gamevault/internal/storerpc"
)

var (
	slugRe    = regexp.MustCompile(`[^a-z0-9]+`)
	gameIDRe  = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)
	versionRe = regexp.MustCompile(`^[A-Za-z0-9_.-]{1,64}$`)
)

// slugify derives a gameId-friendly slug from a display name, matching
// original_source's _slugify.
func slugify(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = slugRe.ReplaceAllString(s, "_")
	s = strings.Trim(s, "_")
	if s == "" {
		return ""
	}
	if len(s) > 32 {
		s = s[:32]
	}
	return s
}

// reserveUniqueGameID probes the store for an unused gameId derived from
// base, falling back to random suffixes, matching
// original_source's _reserve_unique_game_id.
func reserveUniqueGameID(ctx context.Context, store *storerpc.Client, base string, developerID int64) (string, error) {
	if base == "" {
		base = "game"
	}
	for i := 0; i < 20; i++ {
		gid := base
		if i > 0 {
			suffix, err := security.NewTokenN(2)
			if err != nil {
				return "", err
			}
			gid = base + "_" + suffix
		}
		reply, err := store.Call(ctx, "Game", "get_by_gameId", map[string]any{"gameId": gid})
		if err != nil {
			return "", err
		}
		if !reply.OK() {
			return gid, nil
		}
	}
	suffix, err := security.NewTokenN(6)
	if err != nil {
		return "", err
	}
	return base + "_" + suffix, nil
}
