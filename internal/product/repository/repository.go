package repository

import (
	"context"
	"time"

	"github.com/foozio/prodmatic-sub002/internal/product/domain"
)

// Repository defines persistence for products and the aggregate reads behind product stats.
type Repository interface {
	GetProduct(ctx context.Context, orgID, id string) (*domain.Product, error)
	ProductExists(ctx context.Context, orgID, id string) (bool, error)
	ListProducts(ctx context.Context, orgID string, limit, offset int32) ([]*domain.Product, error)
	CreateProduct(ctx context.Context, p *domain.Product) error
	UpdateProduct(ctx context.Context, p *domain.Product) (bool, error)
	DeleteProduct(ctx context.Context, orgID, id string, at time.Time) (bool, error)

	CountIdeasByStatus(ctx context.Context, orgID, productID string) (map[string]int64, error)
	CountTasksByStatus(ctx context.Context, orgID, productID string) (map[string]int64, error)
	AverageOKRProgress(ctx context.Context, orgID, productID string) (float64, error)
	CountRunningExperiments(ctx context.Context, orgID, productID string) (int64, error)
}
