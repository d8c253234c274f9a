package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/foozio/prodmatic-sub002/internal/db"
	"github.com/foozio/prodmatic-sub002/internal/identity/domain"
)

const identityCols = `id, user_id, provider, provider_id, password_hash, created_at`

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns an identity repository that uses the given db for persistence.
func NewPostgresRepository(conn *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: conn}
}

// GetByUserAndProvider returns the user's identity for provider, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByUserAndProvider(ctx context.Context, userID string, provider domain.IdentityProvider) (*domain.Identity, error) {
	return r.getOne(ctx,
		`SELECT `+identityCols+` FROM identities WHERE user_id = $1 AND provider = $2 ORDER BY created_at LIMIT 1`,
		userID, string(provider))
}

// GetByProviderID returns the identity with the provider's subject, or nil if not found.
func (r *PostgresRepository) GetByProviderID(ctx context.Context, provider domain.IdentityProvider, providerID string) (*domain.Identity, error) {
	return r.getOne(ctx,
		`SELECT `+identityCols+` FROM identities WHERE provider = $1 AND provider_id = $2`,
		string(provider), providerID)
}

// Create persists the identity. The identity must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, i *domain.Identity) error {
	_, err := db.Conn(ctx, r.db).ExecContext(ctx,
		`INSERT INTO identities (`+identityCols+`) VALUES ($1, $2, $3, $4, $5, $6)`,
		i.ID, i.UserID, string(i.Provider), i.ProviderID, db.NullString(i.PasswordHash), i.CreatedAt)
	return err
}

// UpdatePasswordHash replaces the password hash of the identity with the given id.
func (r *PostgresRepository) UpdatePasswordHash(ctx context.Context, id string, passwordHash string) error {
	_, err := db.Conn(ctx, r.db).ExecContext(ctx,
		`UPDATE identities SET password_hash = $2 WHERE id = $1`, id, db.NullString(passwordHash))
	return err
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, args ...any) (*domain.Identity, error) {
	var (
		i        domain.Identity
		provider string
		hash     sql.NullString
	)
	err := db.Conn(ctx, r.db).QueryRowContext(ctx, query, args...).
		Scan(&i.ID, &i.UserID, &provider, &i.ProviderID, &hash, &i.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	i.Provider = domain.IdentityProvider(provider)
	i.PasswordHash = hash.String
	return &i, nil
}
