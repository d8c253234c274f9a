package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/foozio/prodmatic-sub002/internal/db"
	"github.com/foozio/prodmatic-sub002/internal/okr/domain"
)

const (
	objectiveCols = `id, org_id, product_id, title, description, period, owner_id, status, created_at, updated_at`
	keyResultCols = `id, org_id, objective_id, title, start_value, target_value, current_value, unit, created_at, updated_at`
)

type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(conn *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: conn}
}

func (r *PostgresRepository) GetObjective(ctx context.Context, orgID, id string) (*domain.Objective, error) {
	q, args := db.SelectPage(objectiveCols, "objectives", db.Live(orgID).And("id = ?", id), "", 0, 0)
	return db.One(db.Conn(ctx, r.db).QueryRowContext(ctx, q, args...), scanObjective)
}

func (r *PostgresRepository) ListObjectives(ctx context.Context, orgID string, f domain.Filter, limit, offset int32) ([]*domain.Objective, error) {
	w := db.Live(orgID).
		AndIf(f.ProductID != "", "product_id = ?", f.ProductID).
		AndIf(f.Period != "", "period = ?", f.Period).
		AndIf(f.OwnerID != "", "owner_id = ?", f.OwnerID)
	q, args := db.SelectPage(objectiveCols, "objectives", w, "period DESC, created_at, id", limit, offset)
	rows, err := db.Conn(ctx, r.db).QueryContext(ctx, q, args...)
	return db.Collect(rows, err, scanObjective)
}

func (r *PostgresRepository) CreateObjective(ctx context.Context, o *domain.Objective) error {
	_, err := db.Conn(ctx, r.db).ExecContext(ctx,
		`INSERT INTO objectives (`+objectiveCols+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		o.ID, o.OrgID, db.NullString(o.ProductID), o.Title, o.Description, o.Period, db.NullString(o.OwnerID),
		string(o.Status), o.CreatedAt, o.UpdatedAt)
	return err
}

func (r *PostgresRepository) UpdateObjective(ctx context.Context, o *domain.Objective) (bool, error) {
	return db.Affected(db.Conn(ctx, r.db).ExecContext(ctx,
		`UPDATE objectives SET title = $3, description = $4, period = $5, owner_id = $6, status = $7, updated_at = $8
		 WHERE id = $1 AND org_id = $2 AND deleted_at IS NULL`,
		o.ID, o.OrgID, o.Title, o.Description, o.Period, db.NullString(o.OwnerID), string(o.Status), o.UpdatedAt))
}

func (r *PostgresRepository) DeleteObjective(ctx context.Context, orgID, id string, at time.Time) (bool, error) {
	q := db.Conn(ctx, r.db)
	ok, err := db.SoftDelete(ctx, q, "objectives", orgID, id, at)
	if err != nil || !ok {
		return ok, err
	}
	_, err = q.ExecContext(ctx,
		`UPDATE key_results SET deleted_at = $3, updated_at = $3
		 WHERE org_id = $1 AND objective_id = $2 AND deleted_at IS NULL`, orgID, id, at)
	return true, err
}

func (r *PostgresRepository) GetKeyResult(ctx context.Context, orgID, id string) (*domain.KeyResult, error) {
	q, args := db.SelectPage(keyResultCols, "key_results", db.Live(orgID).And("id = ?", id), "", 0, 0)
	return db.One(db.Conn(ctx, r.db).QueryRowContext(ctx, q, args...), scanKeyResult)
}

func (r *PostgresRepository) ListKeyResults(ctx context.Context, orgID string, objectiveIDs []string) ([]*domain.KeyResult, error) {
	if len(objectiveIDs) == 0 {
		return nil, nil
	}
	q, args := db.SelectPage(keyResultCols, "key_results", db.Live(orgID).And("objective_id = ANY(?)", objectiveIDs), "created_at, id", 0, 0)
	rows, err := db.Conn(ctx, r.db).QueryContext(ctx, q, args...)
	return db.Collect(rows, err, scanKeyResult)
}

func (r *PostgresRepository) CreateKeyResult(ctx context.Context, k *domain.KeyResult) error {
	_, err := db.Conn(ctx, r.db).ExecContext(ctx,
		`INSERT INTO key_results (`+keyResultCols+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		k.ID, k.OrgID, k.ObjectiveID, k.Title, k.StartValue, k.TargetValue, k.CurrentValue, k.Unit, k.CreatedAt, k.UpdatedAt)
	return err
}

func (r *PostgresRepository) UpdateKeyResult(ctx context.Context, k *domain.KeyResult) (bool, error) {
	return db.Affected(db.Conn(ctx, r.db).ExecContext(ctx,
		`UPDATE key_results SET title = $3, start_value = $4, target_value = $5, current_value = $6, unit = $7, updated_at = $8
		 WHERE id = $1 AND org_id = $2 AND deleted_at IS NULL`,
		k.ID, k.OrgID, k.Title, k.StartValue, k.TargetValue, k.CurrentValue, k.Unit, k.UpdatedAt))
}

func (r *PostgresRepository) DeleteKeyResult(ctx context.Context, orgID, id string, at time.Time) (bool, error) {
	return db.SoftDelete(ctx, db.Conn(ctx, r.db), "key_results", orgID, id, at)
}

func scanObjective(row db.Scanner) (*domain.Objective, error) {
	var (
		o              domain.Objective
		product, owner sql.NullString
	)
	if err := row.Scan(&o.ID, &o.OrgID, &product, &o.Title, &o.Description, &o.Period, &owner, &o.Status,
		&o.CreatedAt, &o.UpdatedAt); err != nil {
		return nil, err
	}
	o.ProductID, o.OwnerID = product.String, owner.String
	return &o, nil
}

func scanKeyResult(row db.Scanner) (*domain.KeyResult, error) {
	var k domain.KeyResult
	if err := row.Scan(&k.ID, &k.OrgID, &k.ObjectiveID, &k.Title, &k.StartValue, &k.TargetValue, &k.CurrentValue,
		&k.Unit, &k.CreatedAt, &k.UpdatedAt); err != nil {
		return nil, err
	}
	return &k, nil
}
