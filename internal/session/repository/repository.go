package repository

import (
	"context"
	"time"

	"github.com/foozio/prodmatic-sub002/internal/session/domain"
)

// Repository defines persistence for sessions.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.Session, error)
	ListActiveByUser(ctx context.Context, userID string, now time.Time) ([]*domain.Session, error)
	Create(ctx context.Context, s *domain.Session) error
	Revoke(ctx context.Context, id string, at time.Time) error
	RevokeAllByUser(ctx context.Context, userID string, at time.Time) error
	UpdateLastSeen(ctx context.Context, id string, at time.Time) error
	// UpdateRefreshToken swaps the current refresh token only when the stored jti still equals
	// prevJti. It reports whether the swap happened.
	UpdateRefreshToken(ctx context.Context, sessionID, prevJti, jti, refreshTokenHash string) (bool, error)
}
