package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/foozio/prodmatic-sub002/internal/db"
	"github.com/foozio/prodmatic-sub002/internal/policy/domain"
)

const policyCols = `id, org_id, name, rules, enabled, created_at, updated_at`

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a policy repository that uses the given db for persistence.
func NewPostgresRepository(conn *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: conn}
}

// GetByID returns the live policy, or nil if not found in orgID.
func (r *PostgresRepository) GetByID(ctx context.Context, orgID, id string) (*domain.Policy, error) {
	q, args := db.SelectPage(policyCols, "policies", db.Live(orgID).And("id = ?", id), "", 0, 0)
	p, err := scanPolicy(db.Conn(ctx, r.db).QueryRowContext(ctx, q, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return p, err
}

// ListByOrg returns the org's live policies ordered by name.
func (r *PostgresRepository) ListByOrg(ctx context.Context, orgID string) ([]*domain.Policy, error) {
	return r.list(ctx, db.Live(orgID))
}

// GetEnabledPoliciesByOrg returns the org's live, enabled policies.
func (r *PostgresRepository) GetEnabledPoliciesByOrg(ctx context.Context, orgID string) ([]*domain.Policy, error) {
	return r.list(ctx, db.Live(orgID).And("enabled"))
}

// Create persists p.
func (r *PostgresRepository) Create(ctx context.Context, p *domain.Policy) error {
	_, err := db.Conn(ctx, r.db).ExecContext(ctx,
		`INSERT INTO policies (`+policyCols+`) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		p.ID, p.OrgID, p.Name, p.Rules, p.Enabled, p.CreatedAt, p.UpdatedAt)
	return err
}

// Update writes name, rules and enabled. It reports false when the policy is missing or deleted.
func (r *PostgresRepository) Update(ctx context.Context, p *domain.Policy) (bool, error) {
	res, err := db.Conn(ctx, r.db).ExecContext(ctx,
		`UPDATE policies SET name = $3, rules = $4, enabled = $5, updated_at = $6
		 WHERE id = $1 AND org_id = $2 AND deleted_at IS NULL`,
		p.ID, p.OrgID, p.Name, p.Rules, p.Enabled, p.UpdatedAt)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// Delete soft-deletes the policy.
func (r *PostgresRepository) Delete(ctx context.Context, orgID, id string, at time.Time) (bool, error) {
	return db.SoftDelete(ctx, db.Conn(ctx, r.db), "policies", orgID, id, at)
}

func (r *PostgresRepository) list(ctx context.Context, w *db.Where) ([]*domain.Policy, error) {
	q, args := db.SelectPage(policyCols, "policies", w, "name, id", 0, 0)
	rows, err := db.Conn(ctx, r.db).QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.Policy
	for rows.Next() {
		p, err := scanPolicy(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPolicy(row scanner) (*domain.Policy, error) {
	var p domain.Policy
	if err := row.Scan(&p.ID, &p.OrgID, &p.Name, &p.Rules, &p.Enabled, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}
