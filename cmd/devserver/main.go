// Command devserver runs the developer service (D): developer account auth
// and the game/version ingestion pipeline (spec §2, §4.2).
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/brightforge/gamevault/internal/config"
	"github.com/brightforge/gamevault/internal/developer"
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
	slog.Info("developer server starting")

	cfgPath := "config/devserver.yaml"
	if p := os.Getenv(configPathEnv); p != "" {
		cfgPath = p
	}
	cfg, err := config.LoadDeveloperConfig(cfgPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	slog.Info("config loaded", "bind", cfg.BindAddress, "port", cfg.Port, "uploadRoot", cfg.UploadRoot)

	storeAddr := fmt.Sprintf("%s:%d", cfg.Store.Host, cfg.Store.Port)
	store := storerpc.New(storeAddr)

	tmpRoot := filepath.Join(cfg.UploadRoot, "tmp")
	srv := developer.NewServer(store, cfg.UploadRoot, tmpRoot)

	addr := fmt.Sprintf("%s:%d", cfg.BindAddress, cfg.Port)
	if err := srv.Run(ctx, addr); err != nil {
		return fmt.Errorf("running developer server: %w", err)
	}
	return nil
}
