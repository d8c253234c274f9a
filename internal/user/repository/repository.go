package repository

import (
	"context"
	"time"

	"github.com/foozio/prodmatic-sub002/internal/user/domain"
)

// Repository defines persistence for users.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
	// GetByEmail matches case-insensitively.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Create(ctx context.Context, u *domain.User) error
	UpdateName(ctx context.Context, id, name string, at time.Time) (*domain.User, error)
}
