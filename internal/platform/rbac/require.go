package rbac

import (
	"context"

	"github.com/foozio/prodmatic-sub002/internal/membership/domain"
	"github.com/foozio/prodmatic-sub002/internal/platform/apperr"
	"github.com/foozio/prodmatic-sub002/internal/server/interceptors"
)

// RequireOrgMember checks that the authenticated caller belongs to orgID with any role.
func RequireOrgMember(ctx context.Context, g *Guard, orgID string) (*domain.Membership, error) {
	return RequireOrgRole(ctx, g, orgID, domain.RoleStakeholder)
}

// RequireOrgAdmin checks that the authenticated caller is an ADMIN of orgID.
func RequireOrgAdmin(ctx context.Context, g *Guard, orgID string) (*domain.Membership, error) {
	return RequireOrgRole(ctx, g, orgID, domain.RoleAdmin)
}

// RequireOrgRole checks that the user set on ctx by the auth interceptor holds at least min in
// orgID. Returns *apperr.UnauthenticatedError when ctx carries no user.
func RequireOrgRole(ctx context.Context, g *Guard, orgID string, min domain.Role) (*domain.Membership, error) {
	userID, ok := interceptors.GetUserID(ctx)
	if !ok {
		return nil, &apperr.UnauthenticatedError{}
	}
	return g.Require(ctx, userID, orgID, min)
}
