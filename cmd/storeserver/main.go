// Command storeserver runs the store service (S): the sole owner of
// persisted state, reachable only by the developer and lobby services
// (spec §2, §4, §6.2).
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/brightforge/gamevault/internal/config"
	"github.com/brightforge/gamevault/internal/store"
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
	slog.Info("store server starting")

	cfgPath := "config/storeserver.yaml"
	if p := os.Getenv(configPathEnv); p != "" {
		cfgPath = p
	}
	cfg, err := config.LoadStoreConfig(cfgPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	slog.Info("config loaded", "bind", cfg.BindAddress, "port", cfg.Port)

	dsn := cfg.Database.DSN()
	if err := store.RunMigrations(ctx, dsn); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	slog.Info("database migrations applied")

	pool, err := store.Open(ctx, dsn)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer pool.Close()

	repos := store.NewRepositories(pool.Raw())
	srv := store.NewServer(repos)

	addr := fmt.Sprintf("%s:%d", cfg.BindAddress, cfg.Port)
	if err := srv.Run(ctx, addr); err != nil {
		return fmt.Errorf("running store server: %w", err)
	}
	return nil
}
