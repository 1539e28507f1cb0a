package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"incentive-token/internal/storage/migrations"
	"incentive-token/internal/storage/postgres"
)

// setupTestDB starts a disposable PostgreSQL and applies the embedded ledger
// schema through the migration runner.
func setupTestDB(t *testing.T) (*postgres.Pool, func()) {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:15-alpine",
		tcpostgres.WithDatabase("ledger"),
		tcpostgres.WithUsername("ledger"),
		tcpostgres.WithPassword("ledger"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err, "start postgres container")

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := postgres.NewPoolWithOptions(ctx, dsn, postgres.PoolOptions{
		MaxConns:        4,
		ApplicationName: "incentive-token-test",
	})
	require.NoError(t, err, "connect to postgres container")

	applied, err := migrations.RunPostgresMigrations(ctx, pool)
	require.NoError(t, err, "apply migrations")
	require.NotEmpty(t, applied)

	return pool, func() {
		pool.Close()
		if err := container.Terminate(ctx); err != nil {
			t.Logf("terminate postgres container: %v", err)
		}
	}
}

func ptr[T any](v T) *T {
	return &v
}
