// Command lobbyserver runs the lobby service (L): player account auth,
// catalog browsing, chunked downloads, and the room/match engine (spec §2,
// §4.3, §4.4, §4.5).
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/brightforge/gamevault/internal/config"
	"github.com/brightforge/gamevault/internal/lobby"
	"github.com/brightforge/gamevault/internal/lobby/room"
	"github.com/brightforge/gamevault/internal/storerpc"
)

const configPathEnv = "GAMEHUB_CONFIG"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return run(gctx) })

	if err := g.Wait(); err != nil {
		slog.Error("fatal", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})))
	slog.Info("lobby server starting")

	cfgPath := "config/lobbyserver.yaml"
	if p := os.Getenv(configPathEnv); p != "" {
		cfgPath = p
	}
	cfg, err := config.LoadLobbyConfig(cfgPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	slog.Info("config loaded", "bind", cfg.BindAddress, "port", cfg.Port, "runRoot", cfg.RunRoot)

	storeAddr := fmt.Sprintf("%s:%d", cfg.Store.Host, cfg.Store.Port)
	store := storerpc.New(storeAddr)

	sessions := lobby.NewSessionManager()
	engine := room.NewEngine(store, room.NewRegistry(), sessions, room.Config{
		PortMin:           cfg.PortRangeStart,
		PortMax:           cfg.PortRangeEnd,
		RunRoot:           cfg.RunRoot,
		LobbyHostPublic:   cfg.LobbyHostPublic,
		LobbyHostInternal: cfg.LobbyHostInternal,
		LobbyPort:         cfg.Port,
		MatchExitGrace:    time.Duration(cfg.MatchExitGraceMillis) * time.Millisecond,
	})

	srv := lobby.NewServer(store, engine, sessions)

	addr := fmt.Sprintf("%s:%d", cfg.BindAddress, cfg.Port)
	if err := srv.Run(ctx, addr); err != nil {
		return fmt.Errorf("running lobby server: %w", err)
	}
	return nil
}
