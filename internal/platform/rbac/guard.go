// Package rbac decides whether a principal may act in an organization. Every role check in
// the service goes through Guard.Require with a minimum role; the permitted set is derived
// from the role hierarchy rather than listed per call site.
package rbac

import (
	"context"

	"github.com/foozio/prodmatic-sub002/internal/membership/domain"
	"github.com/foozio/prodmatic-sub002/internal/platform/apperr"
)

// OrgMembershipGetter returns a user's membership in an org, or (nil, nil) when there is none.
type OrgMembershipGetter interface {
	GetMembershipByUserAndOrg(ctx context.Context, userID, orgID string) (*domain.Membership, error)
}

// Guard enforces minimum roles. It performs exactly one membership lookup per call and keeps
// no state between calls.
type Guard struct {
	memberships OrgMembershipGetter
}

// NewGuard returns a Guard backed by memberships.
func NewGuard(memberships OrgMembershipGetter) *Guard {
	return &Guard{memberships: memberships}
}

// Require returns the caller's membership when userID holds at least min in orgID.
// A missing membership or an insufficient role yields *apperr.UnauthorizedError; a failed
// lookup yields *apperr.StorageError.
func (g *Guard) Require(ctx context.Context, userID, orgID string, min domain.Role) (*domain.Membership, error) {
	if userID == "" {
		return nil, &apperr.UnauthenticatedError{}
	}
	if orgID == "" {
		return nil, apperr.Unauthorized("organization required")
	}
	m, err := g.memberships.GetMembershipByUserAndOrg(ctx, userID, orgID)
	if err != nil {
		return nil, apperr.Storage("resolve membership", err)
	}
	if m == nil {
		return nil, apperr.Unauthorized("not a member of this organization")
	}
	if !m.Role.AtLeast(min) {
		return nil, apperr.Unauthorized("role " + string(m.Role) + " below " + string(min))
	}
	return m, nil
}

// AllowedRoles returns every role that satisfies min, highest first.
func AllowedRoles(min domain.Role) []domain.Role {
	var out []domain.Role
	for _, r := range domain.Roles() {
		if r.AtLeast(min) {
			out = append(out, r)
		}
	}
	return out
}
