package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foozio/prodmatic-sub002/internal/audit/domain"
	"github.com/foozio/prodmatic-sub002/internal/db/dbtest"
)

func TestPostgresRepository_EntriesAreImmutable(t *testing.T) {
	conn := dbtest.Open(t)
	ctx := context.Background()
	repo := NewPostgresRepository(conn)

	entry := &domain.Entry{
		ID: dbtest.ID("audit"), OrgID: dbtest.ID("org"), ActorID: "user-1", Action: "create",
		EntityType: "product", EntityID: "prod-1", Metadata: map[string]any{"name": "Checkout"},
		IP: "203.0.113.7", CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
	}
	require.NoError(t, repo.Create(ctx, entry))

	_, err := conn.ExecContext(ctx, `UPDATE audit_logs SET action = 'delete' WHERE id = $1`, entry.ID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "immutable")

	_, err = conn.ExecContext(ctx, `DELETE FROM audit_logs WHERE id = $1`, entry.ID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "immutable")

	got, err := repo.GetByID(ctx, entry.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "create", got.Action)
	assert.Equal(t, "Checkout", got.Metadata["name"])
	assert.True(t, entry.CreatedAt.Equal(got.CreatedAt))

	list, err := repo.List(ctx, domain.Filter{OrgID: entry.OrgID}, 10, 0)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
