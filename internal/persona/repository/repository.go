package repository

import (
	"context"
	"time"

	"github.com/foozio/prodmatic-sub002/internal/persona/domain"
)

// Repository defines persistence for personas.
type Repository interface {
	GetPersona(ctx context.Context, orgID, id string) (*domain.Persona, error)
	// ListPersonas returns a product's live personas ordered by name.
	ListPersonas(ctx context.Context, orgID, productID string, limit, offset int32) ([]*domain.Persona, error)
	CreatePersona(ctx context.Context, p *domain.Persona) error
	UpdatePersona(ctx context.Context, p *domain.Persona) (bool, error)
	DeletePersona(ctx context.Context, orgID, id string, at time.Time) (bool, error)
}
