package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/foozio/prodmatic-sub002/internal/db"
	"github.com/foozio/prodmatic-sub002/internal/organization/domain"
)

const (
	orgCols  = `id, name, slug, created_by, created_at, updated_at, deleted_at`
	teamCols = `id, org_id, name, description, created_at, updated_at`
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns an organization repository that uses the given db for persistence.
func NewPostgresRepository(conn *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: conn}
}

// GetOrganizationByID returns the live organization for id, or nil if not found.
func (r *PostgresRepository) GetOrganizationByID(ctx context.Context, id string) (*domain.Org, error) {
	o, err := scanOrg(db.Conn(ctx, r.db).QueryRowContext(ctx,
		`SELECT `+orgCols+` FROM organizations WHERE id = $1 AND deleted_at IS NULL`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return o, err
}

// ListOrganizationsByIDs returns the live organizations among ids, ordered by name.
func (r *PostgresRepository) ListOrganizationsByIDs(ctx context.Context, ids []string) ([]*domain.Org, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := db.Conn(ctx, r.db).QueryContext(ctx,
		`SELECT `+orgCols+` FROM organizations WHERE id = ANY($1) AND deleted_at IS NULL ORDER BY name, id`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.Org
	for rows.Next() {
		o, err := scanOrg(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// CreateOrganization persists o. The slug must be unique among live organizations.
func (r *PostgresRepository) CreateOrganization(ctx context.Context, o *domain.Org) error {
	_, err := db.Conn(ctx, r.db).ExecContext(ctx,
		`INSERT INTO organizations (`+orgCols+`) VALUES ($1, $2, $3, $4, $5, $6, NULL)`,
		o.ID, o.Name, o.Slug, o.CreatedBy, o.CreatedAt, o.UpdatedAt)
	return err
}

// UpdateOrganization writes name and slug. It reports whether a live row was updated.
func (r *PostgresRepository) UpdateOrganization(ctx context.Context, o *domain.Org) (bool, error) {
	res, err := db.Conn(ctx, r.db).ExecContext(ctx,
		`UPDATE organizations SET name = $2, slug = $3, updated_at = $4 WHERE id = $1 AND deleted_at IS NULL`,
		o.ID, o.Name, o.Slug, o.UpdatedAt)
	return affected(res, err)
}

// DeleteOrganization soft-deletes the organization.
func (r *PostgresRepository) DeleteOrganization(ctx context.Context, id string, at time.Time) (bool, error) {
	res, err := db.Conn(ctx, r.db).ExecContext(ctx,
		`UPDATE organizations SET deleted_at = $2, updated_at = $2 WHERE id = $1 AND deleted_at IS NULL`, id, at)
	return affected(res, err)
}

// GetTeam returns the live team, or nil if not found in orgID.
func (r *PostgresRepository) GetTeam(ctx context.Context, orgID, id string) (*domain.Team, error) {
	q, args := db.SelectPage(teamCols, "teams", db.Live(orgID).And("id = ?", id), "", 0, 0)
	t, err := scanTeam(db.Conn(ctx, r.db).QueryRowContext(ctx, q, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return t, err
}

// ListTeams returns the organization's live teams ordered by name.
func (r *PostgresRepository) ListTeams(ctx context.Context, orgID string) ([]*domain.Team, error) {
	q, args := db.SelectPage(teamCols, "teams", db.Live(orgID), "name, id", 0, 0)
	rows, err := db.Conn(ctx, r.db).QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.Team
	for rows.Next() {
		t, err := scanTeam(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) CreateTeam(ctx context.Context, t *domain.Team) error {
	_, err := db.Conn(ctx, r.db).ExecContext(ctx,
		`INSERT INTO teams (`+teamCols+`) VALUES ($1, $2, $3, $4, $5, $6)`,
		t.ID, t.OrgID, t.Name, t.Description, t.CreatedAt, t.UpdatedAt)
	return err
}

func (r *PostgresRepository) UpdateTeam(ctx context.Context, t *domain.Team) (bool, error) {
	res, err := db.Conn(ctx, r.db).ExecContext(ctx,
		`UPDATE teams SET name = $3, description = $4, updated_at = $5 WHERE id = $1 AND org_id = $2 AND deleted_at IS NULL`,
		t.ID, t.OrgID, t.Name, t.Description, t.UpdatedAt)
	return affected(res, err)
}

func (r *PostgresRepository) DeleteTeam(ctx context.Context, orgID, id string, at time.Time) (bool, error) {
	return db.SoftDelete(ctx, db.Conn(ctx, r.db), "teams", orgID, id, at)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanOrg(row scanner) (*domain.Org, error) {
	var (
		o       domain.Org
		deleted sql.NullTime
	)
	if err := row.Scan(&o.ID, &o.Name, &o.Slug, &o.CreatedBy, &o.CreatedAt, &o.UpdatedAt, &deleted); err != nil {
		return nil, err
	}
	o.DeletedAt = db.TimePtr(deleted)
	return &o, nil
}

func scanTeam(row scanner) (*domain.Team, error) {
	var t domain.Team
	if err := row.Scan(&t.ID, &t.OrgID, &t.Name, &t.Description, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	return &t, nil
}

func affected(res sql.Result, err error) (bool, error) {
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
