package store

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// RepositorySuite is the shared testcontainers-backed harness for every
// repository in this package, grounded on the teacher's
// tests/integration/suite_test.go IntegrationSuite.
type RepositorySuite struct {
	suite.Suite
	pool      *pgxpool.Pool
	container *postgres.PostgresContainer
	ctx       context.Context
}

func (s *RepositorySuite) SetupSuite() {
	s.ctx = context.Background()

	dsn := os.Getenv("STORE_TEST_DSN")
	if dsn == "" {
		var err error
		s.container, err = postgres.Run(s.ctx, "postgres:17-alpine",
			postgres.WithDatabase("gamevault_test"),
			postgres.WithUsername("gamevault"),
			postgres.WithPassword("testpass"),
			testcontainers.WithWaitStrategy(
				wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
			),
		)
		s.Require().NoError(err, "failed to start postgres container")

		dsn, err = s.container.ConnectionString(s.ctx, "sslmode=disable")
		s.Require().NoError(err, "failed to get connection string")
	}

	s.Require().NoError(RunMigrations(s.ctx, dsn), "failed to run migrations")

	pool, err := pgxpool.New(s.ctx, dsn)
	s.Require().NoError(err, "failed to connect to database")
	s.pool = pool
}

func (s *RepositorySuite) TearDownSuite() {
	if s.pool != nil {
		s.pool.Close()
	}
	if s.container != nil {
		if err := testcontainers.TerminateContainer(s.container); err != nil {
			s.T().Logf("failed to terminate postgres container: %v", err)
		}
	}
}

func TestRepositorySuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping store repository tests in short mode (requires Docker via testcontainers)")
	}
	suite.Run(t, new(RepositorySuite))
}
