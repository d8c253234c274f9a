package repository

import (
	"context"
	"time"

	"github.com/foozio/prodmatic-sub002/internal/membership/domain"
)

// Repository defines persistence for memberships and invitations.
type Repository interface {
	GetMembershipByID(ctx context.Context, id string) (*domain.Membership, error)
	GetMembershipByUserAndOrg(ctx context.Context, userID, orgID string) (*domain.Membership, error)
	ListMembershipsByUser(ctx context.Context, userID string) ([]*domain.Membership, error)
	ListMembershipsByOrg(ctx context.Context, orgID string, limit, offset int32) ([]*domain.Membership, error)
	CreateMembership(ctx context.Context, m *domain.Membership) error
	// DeleteByUserAndOrg removes the membership row. It reports whether a row was removed.
	DeleteByUserAndOrg(ctx context.Context, userID, orgID string) (bool, error)
	UpdateRole(ctx context.Context, userID, orgID string, role domain.Role, at time.Time) (*domain.Membership, error)
	// CountAdminsForUpdate counts the org's ADMIN memberships and locks them until the transaction ends.
	CountAdminsForUpdate(ctx context.Context, orgID string) (int64, error)

	CreateInvitation(ctx context.Context, inv *domain.Invitation) error
	GetInvitationByTokenHash(ctx context.Context, tokenHash string) (*domain.Invitation, error)
	MarkInvitationAccepted(ctx context.Context, id, userID string, at time.Time) (bool, error)
	ListPendingInvitations(ctx context.Context, orgID string, now time.Time) ([]*domain.Invitation, error)
}
