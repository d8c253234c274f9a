package repository

import (
	"context"
	"time"

	"github.com/foozio/prodmatic-sub002/internal/okr/domain"
)

// Repository defines persistence for objectives and their key results.
type Repository interface {
	GetObjective(ctx context.Context, orgID, id string) (*domain.Objective, error)
	ListObjectives(ctx context.Context, orgID string, f domain.Filter, limit, offset int32) ([]*domain.Objective, error)
	CreateObjective(ctx context.Context, o *domain.Objective) error
	UpdateObjective(ctx context.Context, o *domain.Objective) (bool, error)
	// DeleteObjective soft-deletes the objective and its key results.
	DeleteObjective(ctx context.Context, orgID, id string, at time.Time) (bool, error)

	GetKeyResult(ctx context.Context, orgID, id string) (*domain.KeyResult, error)
	// ListKeyResults returns the live key results of the given objectives in creation order.
	ListKeyResults(ctx context.Context, orgID string, objectiveIDs []string) ([]*domain.KeyResult, error)
	CreateKeyResult(ctx context.Context, k *domain.KeyResult) error
	UpdateKeyResult(ctx context.Context, k *domain.KeyResult) (bool, error)
	DeleteKeyResult(ctx context.Context, orgID, id string, at time.Time) (bool, error)
}
