package repository

import (
	"context"

	"github.com/foozio/prodmatic-sub002/internal/audit/domain"
)

// Repository defines persistence for activity entries. There is no update or delete.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.Entry, error)
	List(ctx context.Context, f domain.Filter, limit, offset int32) ([]*domain.Entry, error)
	// Create appends e using the transaction in ctx when there is one.
	Create(ctx context.Context, e *domain.Entry) error
}
