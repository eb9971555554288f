// Package testdb provides Postgres helpers for integration tests.
//
// Tests get a migrated database either from REVERIE_TEST_DATABASE_URL, when
// set, or from a throwaway container started through testcontainers.
package testdb

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	"github.com/phrazzld/reverie-api/internal/platform/logger"
	"github.com/phrazzld/reverie-api/internal/platform/postgres"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// EnvTestDatabaseURL names the variable that points tests at an existing database.
const EnvTestDatabaseURL = "REVERIE_TEST_DATABASE_URL"

const postgresImage = "postgres:16-alpine"

// SkipIfShort skips integration tests under `go test -short`.
func SkipIfShort(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
}

// Setup returns an open, migrated database whose entries table is empty.
// Everything it creates is released through t.Cleanup.
func Setup(t *testing.T) *sql.DB {
	t.Helper()
	ctx := context.Background()

	url := os.Getenv(EnvTestDatabaseURL)
	if url == "" {
		url = startContainer(ctx, t)
	}

	db, err := postgres.Open(ctx, url, 10, 5)
	require.NoError(t, err, "failed to open test database")
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, postgres.Migrate(ctx, db, "up", logger.Discard()), "failed to apply migrations")
	Reset(t, db)
	return db
}

// Reset removes every row written by a previous test.
func Reset(t *testing.T, db *sql.DB) {
	t.Helper()
	_, err := db.ExecContext(context.Background(), "TRUNCATE TABLE entries")
	require.NoError(t, err, "failed to truncate entries")
}

func startContainer(ctx context.Context, t *testing.T) string {
	t.Helper()

	container, err := tcpostgres.Run(ctx,
		postgresImage,
		tcpostgres.WithDatabase("reverie_test"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err, "failed to start postgres container")
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("failed to terminate postgres container: %v", err)
		}
	})

	url, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	return url
}
