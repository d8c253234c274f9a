package repository

import (
	"context"
	"time"

	"github.com/foozio/prodmatic-sub002/internal/checklist/domain"
)

// Repository defines persistence for checklist items.
type Repository interface {
	GetItem(ctx context.Context, orgID, id string) (*domain.Item, error)
	// ListItems returns a product's live items ordered by list then position. list "" matches all.
	ListItems(ctx context.Context, orgID, productID, list string) ([]*domain.Item, error)
	// MaxPosition returns the highest position in the list, or -1 when it is empty.
	MaxPosition(ctx context.Context, orgID, productID, list string) (int, error)
	// InsertItems writes all items in one statement.
	InsertItems(ctx context.Context, items []*domain.Item) error
	UpdateItem(ctx context.Context, it *domain.Item) (bool, error)
	DeleteItem(ctx context.Context, orgID, id string, at time.Time) (bool, error)
}
