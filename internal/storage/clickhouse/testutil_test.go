package clickhouse_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"incentive-token/internal/storage/clickhouse"
	"incentive-token/internal/storage/migrations"
)

// setupTestDB starts a disposable ClickHouse server and lets the migration
// runner create the event log database on it.
func setupTestDB(t *testing.T) (*clickhouse.Conn, func()) {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "clickhouse/clickhouse-server:24.1-alpine",
			ExposedPorts: []string{"9000/tcp"},
			Env: map[string]string{
				"CLICKHOUSE_USER":                      "default",
				"CLICKHOUSE_PASSWORD":                  "",
				"CLICKHOUSE_DEFAULT_ACCESS_MANAGEMENT": "1",
			},
			WaitingFor: wait.ForAll(
				wait.ForLog("Ready for connections").WithStartupTimeout(60*time.Second),
				wait.ForListeningPort("9000/tcp"),
			),
		},
		Started: true,
	})
	require.NoError(t, err, "start clickhouse container")

	endpoint, err := container.PortEndpoint(ctx, "9000/tcp", "")
	require.NoError(t, err)

	dsn := fmt.Sprintf("clickhouse://default@%s/ledger_events_test?dial_timeout=10s", endpoint)
	conn, err := migrations.RunClickhouseMigrations(ctx, dsn)
	require.NoError(t, err, "apply clickhouse migrations")

	return conn, func() {
		conn.Close()
		if err := container.Terminate(ctx); err != nil {
			t.Logf("terminate clickhouse container: %v", err)
		}
	}
}

func ptr[T any](v T) *T {
	return &v
}
