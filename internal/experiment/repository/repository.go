package repository

import (
	"context"
	"time"

	"github.com/foozio/prodmatic-sub002/internal/experiment/domain"
)

// Repository defines persistence for experiments.
type Repository interface {
	GetExperiment(ctx context.Context, orgID, id string) (*domain.Experiment, error)
	// ListExperiments returns a product's live experiments, newest first. status "" matches all.
	ListExperiments(ctx context.Context, orgID, productID string, status domain.Status, limit, offset int32) ([]*domain.Experiment, error)
	CreateExperiment(ctx context.Context, e *domain.Experiment) error
	UpdateExperiment(ctx context.Context, e *domain.Experiment) (bool, error)
	DeleteExperiment(ctx context.Context, orgID, id string, at time.Time) (bool, error)
}
