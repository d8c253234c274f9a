package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/foozio/prodmatic-sub002/internal/db"
	"github.com/foozio/prodmatic-sub002/internal/user/domain"
)

const userCols = `id, email, name, status, created_at, updated_at, deleted_at`

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a user repository that uses the given db for persistence.
func NewPostgresRepository(conn *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: conn}
}

// GetByID returns the user for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return r.getOne(ctx, `SELECT `+userCols+` FROM users WHERE id = $1`, id)
}

// GetByEmail returns the user with the given email, or nil if not found.
func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.getOne(ctx, `SELECT `+userCols+` FROM users WHERE lower(email) = lower($1)`, email)
}

// Create persists the user. The user must have ID set; it is not assigned by this method.
func (r *PostgresRepository) Create(ctx context.Context, u *domain.User) error {
	_, err := db.Conn(ctx, r.db).ExecContext(ctx,
		`INSERT INTO users (`+userCols+`) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		u.ID, u.Email, u.Name, string(u.Status), u.CreatedAt, u.UpdatedAt, db.NullTime(u.DeletedAt))
	return err
}

// UpdateName sets the display name and returns the updated user, or nil when the user does not exist.
func (r *PostgresRepository) UpdateName(ctx context.Context, id, name string, at time.Time) (*domain.User, error) {
	return r.getOne(ctx,
		`UPDATE users SET name = $2, updated_at = $3 WHERE id = $1 AND deleted_at IS NULL RETURNING `+userCols,
		id, name, at)
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, args ...any) (*domain.User, error) {
	var (
		u       domain.User
		status  string
		deleted sql.NullTime
	)
	err := db.Conn(ctx, r.db).QueryRowContext(ctx, query, args...).
		Scan(&u.ID, &u.Email, &u.Name, &status, &u.CreatedAt, &u.UpdatedAt, &deleted)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	u.Status = domain.UserStatus(status)
	u.DeletedAt = db.TimePtr(deleted)
	return &u, nil
}
