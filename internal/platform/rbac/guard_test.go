package rbac

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foozio/prodmatic-sub002/internal/membership/domain"
	"github.com/foozio/prodmatic-sub002/internal/platform/apperr"
	"github.com/foozio/prodmatic-sub002/internal/server/interceptors"
)

// mockMembershipGetter implements OrgMembershipGetter keyed by "user:org" and counts lookups.
type mockMembershipGetter struct {
	memberships map[string]*domain.Membership
	err         error
	calls       int
}

func (m *mockMembershipGetter) GetMembershipByUserAndOrg(ctx context.Context, userID, orgID string) (*domain.Membership, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.memberships[userID+":"+orgID], nil
}

func getterWith(role domain.Role) *mockMembershipGetter {
	return &mockMembershipGetter{memberships: map[string]*domain.Membership{
		"user-1:org-1": {ID: "m1", UserID: "user-1", OrgID: "org-1", Role: role},
	}}
}

func TestGuard_NonMemberAlwaysUnauthorized(t *testing.T) {
	g := NewGuard(getterWith(domain.RoleAdmin))
	for _, min := range domain.Roles() {
		_, err := g.Require(context.Background(), "user-2", "org-1", min)
		assert.True(t, apperr.IsUnauthorized(err), "min %s", min)

		_, err = g.Require(context.Background(), "user-1", "org-2", min)
		assert.True(t, apperr.IsUnauthorized(err), "other org, min %s", min)
	}
}

func TestGuard_Hierarchy(t *testing.T) {
	for _, held := range domain.Roles() {
		for _, min := range domain.Roles() {
			t.Run(fmt.Sprintf("%s_for_%s", held, min), func(t *testing.T) {
				getter := getterWith(held)
				m, err := NewGuard(getter).Require(context.Background(), "user-1", "org-1", min)
				assert.Equal(t, 1, getter.calls)
				if held.Rank() >= min.Rank() {
					require.NoError(t, err)
					assert.Equal(t, held, m.Role)
				} else {
					assert.True(t, apperr.IsUnauthorized(err))
				}
			})
		}
	}
}

func TestGuard_ContributorExample(t *testing.T) {
	g := NewGuard(getterWith(domain.RoleContributor))
	_, err := g.Require(context.Background(), "user-1", "org-1", domain.RoleContributor)
	assert.NoError(t, err)
	_, err = g.Require(context.Background(), "user-1", "org-1", domain.RoleProductManager)
	assert.True(t, apperr.IsUnauthorized(err))
}

func TestGuard_LookupFailureIsStorageError(t *testing.T) {
	g := NewGuard(&mockMembershipGetter{err: errors.New("connection refused")})
	_, err := g.Require(context.Background(), "user-1", "org-1", domain.RoleStakeholder)
	var se *apperr.StorageError
	assert.True(t, errors.As(err, &se))
}

func TestGuard_MissingIdentity(t *testing.T) {
	g := NewGuard(getterWith(domain.RoleAdmin))
	_, err := g.Require(context.Background(), "", "org-1", domain.RoleStakeholder)
	var ua *apperr.UnauthenticatedError
	assert.True(t, errors.As(err, &ua))

	_, err = g.Require(context.Background(), "user-1", "", domain.RoleStakeholder)
	assert.True(t, apperr.IsUnauthorized(err))
}

// Every allow-list implied by a higher minimum must be contained in the one implied by a
// lower minimum, and each must contain ADMIN.
func TestAllowedRoles_Monotonic(t *testing.T) {
	roles := domain.Roles()
	for i := 0; i < len(roles); i++ {
		upper := AllowedRoles(roles[i])
		assert.Contains(t, upper, domain.RoleAdmin)
		assert.Len(t, upper, i+1)
		for j := i + 1; j < len(roles); j++ {
			lower := AllowedRoles(roles[j])
			assert.Subset(t, lower, upper, "%s ⊆ %s", roles[i], roles[j])
		}
	}
}

func TestRequireOrgHelpers(t *testing.T) {
	ctx := interceptors.WithIdentity(context.Background(), "user-1", "session-1")

	_, err := RequireOrgMember(ctx, NewGuard(getterWith(domain.RoleStakeholder)), "org-1")
	assert.NoError(t, err)

	_, err = RequireOrgAdmin(ctx, NewGuard(getterWith(domain.RoleProductManager)), "org-1")
	assert.True(t, apperr.IsUnauthorized(err))

	_, err = RequireOrgRole(ctx, NewGuard(getterWith(domain.RoleProductManager)), "org-1", domain.RoleContributor)
	assert.NoError(t, err)

	_, err = RequireOrgMember(context.Background(), NewGuard(getterWith(domain.RoleAdmin)), "org-1")
	var ua *apperr.UnauthenticatedError
	assert.True(t, errors.As(err, &ua))
}
