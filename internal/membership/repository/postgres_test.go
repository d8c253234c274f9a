package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foozio/prodmatic-sub002/internal/db/dbtest"
	"github.com/foozio/prodmatic-sub002/internal/membership/domain"
	orgrepo "github.com/foozio/prodmatic-sub002/internal/organization/repository"
)

func TestPostgresRepository_DeletedOrganizationHidesMemberships(t *testing.T) {
	conn := dbtest.Open(t)
	ctx := context.Background()
	userID, liveOrg := dbtest.SeedOrg(t, conn)
	_, deletedOrg := dbtest.SeedOrg(t, conn)
	now := time.Now().UTC()

	repo := NewPostgresRepository(conn)
	for _, orgID := range []string{liveOrg, deletedOrg} {
		require.NoError(t, repo.CreateMembership(ctx, &domain.Membership{
			ID: dbtest.ID("mem"), UserID: userID, OrgID: orgID, Role: domain.RoleAdmin, CreatedAt: now, UpdatedAt: now,
		}))
	}

	all, err := repo.ListMembershipsByUser(ctx, userID)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	ok, err := orgrepo.NewPostgresRepository(conn).DeleteOrganization(ctx, deletedOrg, now.Add(time.Minute))
	require.NoError(t, err)
	require.True(t, ok)

	m, err := repo.GetMembershipByUserAndOrg(ctx, userID, deletedOrg)
	require.NoError(t, err)
	assert.Nil(t, m)

	m, err = repo.GetMembershipByUserAndOrg(ctx, userID, liveOrg)
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, domain.RoleAdmin, m.Role)

	all, err = repo.ListMembershipsByUser(ctx, userID)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, liveOrg, all[0].OrgID)
}
