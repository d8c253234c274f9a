package repository

import (
	"context"
	"time"

	"github.com/foozio/prodmatic-sub002/internal/organization/domain"
)

// Repository defines persistence for organizations and their teams. Reads never return
// soft-deleted rows.
type Repository interface {
	GetOrganizationByID(ctx context.Context, id string) (*domain.Org, error)
	ListOrganizationsByIDs(ctx context.Context, ids []string) ([]*domain.Org, error)
	CreateOrganization(ctx context.Context, o *domain.Org) error
	UpdateOrganization(ctx context.Context, o *domain.Org) (bool, error)
	DeleteOrganization(ctx context.Context, id string, at time.Time) (bool, error)

	GetTeam(ctx context.Context, orgID, id string) (*domain.Team, error)
	ListTeams(ctx context.Context, orgID string) ([]*domain.Team, error)
	CreateTeam(ctx context.Context, t *domain.Team) error
	UpdateTeam(ctx context.Context, t *domain.Team) (bool, error)
	DeleteTeam(ctx context.Context, orgID, id string, at time.Time) (bool, error)
}
