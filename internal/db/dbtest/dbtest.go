// Package dbtest opens a migrated Postgres database for repository tests.
package dbtest

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/foozio/prodmatic-sub002/internal/db"
	"github.com/foozio/prodmatic-sub002/internal/db/migrate"
)

// EnvDSN names the variable holding the test database URL.
const EnvDSN = "PRODMATIC_TEST_DATABASE_URL"

// Open connects to the database named by EnvDSN and applies every migration.
// The test is skipped when EnvDSN is unset.
func Open(t *testing.T) *sql.DB {
	t.Helper()
	dsn := os.Getenv(EnvDSN)
	if dsn == "" {
		t.Skip(EnvDSN + " not set")
	}
	require.NoError(t, migrate.Run(dsn, migrate.Up))
	conn, err := db.Open(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// ID returns a fresh identifier so tests sharing a database never collide.
func ID(prefix string) string {
	return prefix + "-" + uuid.NewString()
}

// SeedOrg inserts a user and an organization it created and returns their ids.
func SeedOrg(t *testing.T, conn *sql.DB) (userID, orgID string) {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC()
	userID, orgID = ID("user"), ID("org")
	_, err := conn.ExecContext(ctx,
		`INSERT INTO users (id, email, name, status, created_at, updated_at) VALUES ($1, $2, 'Seed', 'active', $3, $3)`,
		userID, userID+"@example.com", now)
	require.NoError(t, err)
	_, err = conn.ExecContext(ctx,
		`INSERT INTO organizations (id, name, slug, created_by, created_at, updated_at) VALUES ($1, 'Seed', $1, $2, $3, $3)`,
		orgID, userID, now)
	require.NoError(t, err)
	return userID, orgID
}
