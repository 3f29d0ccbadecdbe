//go:build database

package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/huangsam/envgap/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// TestEnvgapWithMySQL tests the envgap CLI with a MySQL history backend.
func TestEnvgapWithMySQL(t *testing.T) {
	ctx := context.Background()

	// Start MySQL container
	req := testcontainers.ContainerRequest{
		Image:        "mysql:8",
		ExposedPorts: []string{"3306/tcp"},
		Env: map[string]string{
			"MYSQL_ROOT_PASSWORD": "secret123",
			"MYSQL_DATABASE":      "envgap",
		},
		WaitingFor: wait.ForLog("port: 3306  MySQL Community Server").WithStartupTimeout(60 * time.Second),
	}
	mysqlC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	defer func() { _ = mysqlC.Terminate(ctx) }()

	// Get connection details
	host, err := mysqlC.Host(ctx)
	require.NoError(t, err)
	port, err := mysqlC.MappedPort(ctx, "3306")
	require.NoError(t, err)

	connStr := fmt.Sprintf("root:secret123@tcp(%s:%s)/envgap?parseTime=true", host, port.Port())
	exerciseHistory(t, []string{
		"ENVGAP_HISTORY_BACKEND=mysql",
		"ENVGAP_HISTORY_DB_CONNECT=" + connStr,
	})
}

// TestEnvgapWithPostgres tests the envgap CLI with a PostgreSQL history backend.
func TestEnvgapWithPostgres(t *testing.T) {
	ctx := context.Background()

	// Start Postgres container
	req := testcontainers.ContainerRequest{
		Image:        "postgres:18-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_HOST_AUTH_METHOD": "trust",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}
	pgC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	defer func() { _ = pgC.Terminate(ctx) }()

	// Get connection details
	host, err := pgC.Host(ctx)
	require.NoError(t, err)
	port, err := pgC.MappedPort(ctx, "5432")
	require.NoError(t, err)

	connStr := fmt.Sprintf("host=%s port=%s user=postgres dbname=postgres sslmode=disable", host, port.Port())
	exerciseHistory(t, []string{
		"ENVGAP_HISTORY_BACKEND=postgresql",
		"ENVGAP_HISTORY_DB_CONNECT=" + connStr,
	})
}

// exerciseHistory migrates, records two runs and reads them back.
func exerciseHistory(t *testing.T, env []string) {
	t.Helper()
	dataset := writeCounties(t)

	_, err := runEnvgapCommand(t, env, "history", "migrate")
	require.NoError(t, err)

	_, err = runEnvgapCommand(t, env, "history", "clear")
	require.NoError(t, err)

	for range 2 {
		_, err = runEnvgapCommand(t, env, "index", dataset, "--exposure-column", "pm25", "--output", "json")
		require.NoError(t, err)
	}

	out, err := runEnvgapCommand(t, env, "history", "status", "--output", "json")
	require.NoError(t, err)
	var status schema.HistoryStatus
	require.NoError(t, json.Unmarshal([]byte(out), &status))
	assert.True(t, status.Connected)
	assert.Equal(t, 2, status.TotalRuns)
	assert.Equal(t, 10, status.TotalEntities)

	out, err = runEnvgapCommand(t, env, "history", "list", "--output", "json", "--limit", "1")
	require.NoError(t, err)
	var runs []schema.RunSummary
	require.NoError(t, json.Unmarshal([]byte(out), &runs))
	require.Len(t, runs, 1)
	assert.Equal(t, 5, runs[0].TotalEntities)
	assert.Equal(t, 3, runs[0].Regression.N, "Bibb has a gap and Blount has no exposure")

	// Roll back to the initial state and forward again.
	_, err = runEnvgapCommand(t, env, "history", "migrate", "--target-version", "0")
	require.NoError(t, err)
	_, err = runEnvgapCommand(t, env, "history", "migrate")
	require.NoError(t, err)
}
