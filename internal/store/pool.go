// Package store implements the Store service (S): the sole owner of
// persisted state, reachable only by the developer and lobby services over
// the store RPC protocol (spec §4, §6.2). Grounded on the teacher's
// internal/db package for the pgxpool + goose wiring shape.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/brightforge/gamevault/internal/store/migrations"
)

// Pool wraps a pgx connection pool shared by every collection repository.
type Pool struct {
	pool *pgxpool.Pool
}

// Open connects to PostgreSQL and returns a Pool handle.
func Open(ctx context.Context, dsn string) (*Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("store: connecting to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("store: pinging database: %w", err)
	}
	return &Pool{pool: pool}, nil
}

// Close closes the underlying connection pool.
func (p *Pool) Close() {
	p.pool.Close()
}

// Raw returns the underlying pgx pool.
func (p *Pool) Raw() *pgxpool.Pool {
	return p.pool
}

var gooseOnce sync.Once

// RunMigrations applies every pending goose migration to dsn.
func RunMigrations(ctx context.Context, dsn string) error {
	sqlDB, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("store: opening sql connection for migrations: %w", err)
	}
	defer sqlDB.Close()

	var dialectErr error
	gooseOnce.Do(func() {
		goose.SetBaseFS(migrations.FS)
		dialectErr = goose.SetDialect("postgres")
	})
	if dialectErr != nil {
		return fmt.Errorf("store: setting goose dialect: %w", dialectErr)
	}
	if err := goose.UpContext(ctx, sqlDB, "."); err != nil {
		return fmt.Errorf("store: running migrations: %w", err)
	}
	return nil
}
