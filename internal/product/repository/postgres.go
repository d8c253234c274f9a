package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/foozio/prodmatic-sub002/internal/db"
	"github.com/foozio/prodmatic-sub002/internal/product/domain"
)

const productCols = `id, org_id, team_id, name, key, description, stage, created_by, created_at, updated_at`

type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(conn *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: conn}
}

func (r *PostgresRepository) GetProduct(ctx context.Context, orgID, id string) (*domain.Product, error) {
	q, args := db.SelectPage(productCols, "products", db.Live(orgID).And("id = ?", id), "", 0, 0)
	return db.One(db.Conn(ctx, r.db).QueryRowContext(ctx, q, args...), scanProduct)
}

func (r *PostgresRepository) ProductExists(ctx context.Context, orgID, id string) (bool, error) {
	return db.Exists(ctx, db.Conn(ctx, r.db), "products", orgID, id)
}

// ListProducts returns live products ordered by name.
func (r *PostgresRepository) ListProducts(ctx context.Context, orgID string, limit, offset int32) ([]*domain.Product, error) {
	q, args := db.SelectPage(productCols, "products", db.Live(orgID), "name, id", limit, offset)
	rows, err := db.Conn(ctx, r.db).QueryContext(ctx, q, args...)
	return db.Collect(rows, err, scanProduct)
}

// CreateProduct inserts p. A duplicate live key surfaces as a unique violation.
func (r *PostgresRepository) CreateProduct(ctx context.Context, p *domain.Product) error {
	_, err := db.Conn(ctx, r.db).ExecContext(ctx,
		`INSERT INTO products (`+productCols+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		p.ID, p.OrgID, db.NullString(p.TeamID), p.Name, p.Key, p.Description, string(p.Stage), p.CreatedBy, p.CreatedAt, p.UpdatedAt)
	return err
}

func (r *PostgresRepository) UpdateProduct(ctx context.Context, p *domain.Product) (bool, error) {
	return db.Affected(db.Conn(ctx, r.db).ExecContext(ctx,
		`UPDATE products SET team_id = $3, name = $4, key = $5, description = $6, stage = $7, updated_at = $8
		 WHERE id = $1 AND org_id = $2 AND deleted_at IS NULL`,
		p.ID, p.OrgID, db.NullString(p.TeamID), p.Name, p.Key, p.Description, string(p.Stage), p.UpdatedAt))
}

func (r *PostgresRepository) DeleteProduct(ctx context.Context, orgID, id string, at time.Time) (bool, error) {
	return db.SoftDelete(ctx, db.Conn(ctx, r.db), "products", orgID, id, at)
}

func (r *PostgresRepository) CountIdeasByStatus(ctx context.Context, orgID, productID string) (map[string]int64, error) {
	return db.CountBy(db.Conn(ctx, r.db).QueryContext(ctx,
		`SELECT status, count(*) FROM ideas WHERE org_id = $1 AND product_id = $2 AND deleted_at IS NULL GROUP BY status`,
		orgID, productID))
}

func (r *PostgresRepository) CountTasksByStatus(ctx context.Context, orgID, productID string) (map[string]int64, error) {
	return db.CountBy(db.Conn(ctx, r.db).QueryContext(ctx,
		`SELECT status, count(*) FROM tasks WHERE org_id = $1 AND product_id = $2 AND deleted_at IS NULL GROUP BY status`,
		orgID, productID))
}

// AverageOKRProgress averages objective progress, each the mean of its clamped key result progress.
func (r *PostgresRepository) AverageOKRProgress(ctx context.Context, orgID, productID string) (float64, error) {
	var avg float64
	err := db.Conn(ctx, r.db).QueryRowContext(ctx, `
		SELECT COALESCE(AVG(progress), 0) FROM (
			SELECT COALESCE(AVG(GREATEST(0, LEAST(1,
				(kr.current_value - kr.start_value) / (kr.target_value - kr.start_value)))), 0) AS progress
			FROM objectives o
			LEFT JOIN key_results kr ON kr.objective_id = o.id AND kr.deleted_at IS NULL
			WHERE o.org_id = $1 AND o.product_id = $2 AND o.deleted_at IS NULL
			GROUP BY o.id
		) per_objective`, orgID, productID).Scan(&avg)
	return avg, err
}

func (r *PostgresRepository) CountRunningExperiments(ctx context.Context, orgID, productID string) (int64, error) {
	var n int64
	err := db.Conn(ctx, r.db).QueryRowContext(ctx,
		`SELECT count(*) FROM experiments WHERE org_id = $1 AND product_id = $2 AND status = 'RUNNING' AND deleted_at IS NULL`,
		orgID, productID).Scan(&n)
	return n, err
}

func scanProduct(row db.Scanner) (*domain.Product, error) {
	var (
		p    domain.Product
		team sql.NullString
	)
	if err := row.Scan(&p.ID, &p.OrgID, &team, &p.Name, &p.Key, &p.Description, &p.Stage, &p.CreatedBy, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.TeamID = team.String
	return &p, nil
}
