package repository

import (
	"context"
	"time"

	"github.com/foozio/prodmatic-sub002/internal/roadmap/domain"
)

// Repository defines persistence for roadmap items, releases and changelog entries.
type Repository interface {
	GetItem(ctx context.Context, orgID, id string) (*domain.Item, error)
	ListItems(ctx context.Context, orgID, productID string) ([]*domain.Item, error)
	CreateItem(ctx context.Context, i *domain.Item) error
	UpdateItem(ctx context.Context, i *domain.Item) (bool, error)
	DeleteItem(ctx context.Context, orgID, id string, at time.Time) (bool, error)

	GetRelease(ctx context.Context, orgID, id string) (*domain.Release, error)
	ListReleases(ctx context.Context, orgID, productID string) ([]*domain.Release, error)
	// CreateRelease fails with a unique violation when the product already has the version.
	CreateRelease(ctx context.Context, r *domain.Release) error
	UpdateRelease(ctx context.Context, r *domain.Release) (bool, error)
	DeleteRelease(ctx context.Context, orgID, id string, at time.Time) (bool, error)

	GetEntry(ctx context.Context, orgID, id string) (*domain.ChangelogEntry, error)
	// ListEntries returns a product's entries, newest first. publishedOnly drops drafts.
	ListEntries(ctx context.Context, orgID, productID string, publishedOnly bool) ([]*domain.ChangelogEntry, error)
	CreateEntry(ctx context.Context, c *domain.ChangelogEntry) error
	UpdateEntry(ctx context.Context, c *domain.ChangelogEntry) (bool, error)
	DeleteEntry(ctx context.Context, orgID, id string, at time.Time) (bool, error)
}
