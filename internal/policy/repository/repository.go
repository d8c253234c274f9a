package repository

import (
	"context"
	"time"

	"github.com/foozio/prodmatic-sub002/internal/policy/domain"
)

// Repository defines persistence for organization policies.
type Repository interface {
	GetByID(ctx context.Context, orgID, id string) (*domain.Policy, error)
	ListByOrg(ctx context.Context, orgID string) ([]*domain.Policy, error)
	GetEnabledPoliciesByOrg(ctx context.Context, orgID string) ([]*domain.Policy, error)
	Create(ctx context.Context, p *domain.Policy) error
	Update(ctx context.Context, p *domain.Policy) (bool, error)
	Delete(ctx context.Context, orgID, id string, at time.Time) (bool, error)
}
