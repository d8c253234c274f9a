package repository

import (
	"context"
	"time"

	"github.com/foozio/prodmatic-sub002/internal/idea/domain"
)

// Repository defines persistence for ideas and their votes.
type Repository interface {
	GetIdea(ctx context.Context, orgID, id string) (*domain.Idea, error)
	ListIdeas(ctx context.Context, orgID string, f domain.Filter, limit, offset int32) ([]*domain.Idea, error)
	CreateIdea(ctx context.Context, i *domain.Idea) error
	UpdateIdea(ctx context.Context, i *domain.Idea) (bool, error)
	DeleteIdea(ctx context.Context, orgID, id string, at time.Time) (bool, error)
	// AddVote records userID's vote and bumps the idea's count. It reports false when the user
	// already voted.
	AddVote(ctx context.Context, orgID, ideaID, userID string, at time.Time) (bool, error)
	// RemoveVote reports false when the user had not voted.
	RemoveVote(ctx context.Context, orgID, ideaID, userID string, at time.Time) (bool, error)
}
