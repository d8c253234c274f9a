package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/foozio/prodmatic-sub002/internal/db"
	"github.com/foozio/prodmatic-sub002/internal/experiment/domain"
)

const experimentCols = `id, org_id, product_id, idea_id, name, hypothesis, metric, status, outcome, learnings,
	started_at, ended_at, created_at, updated_at`

type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(conn *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: conn}
}

func (r *PostgresRepository) GetExperiment(ctx context.Context, orgID, id string) (*domain.Experiment, error) {
	q, args := db.SelectPage(experimentCols, "experiments", db.Live(orgID).And("id = ?", id), "", 0, 0)
	return db.One(db.Conn(ctx, r.db).QueryRowContext(ctx, q, args...), scanExperiment)
}

func (r *PostgresRepository) ListExperiments(ctx context.Context, orgID, productID string, status domain.Status, limit, offset int32) ([]*domain.Experiment, error) {
	w := db.Live(orgID).
		AndIf(productID != "", "product_id = ?", productID).
		AndIf(status != "", "status = ?", string(status))
	q, args := db.SelectPage(experimentCols, "experiments", w, "created_at DESC, id", limit, offset)
	rows, err := db.Conn(ctx, r.db).QueryContext(ctx, q, args...)
	return db.Collect(rows, err, scanExperiment)
}

func (r *PostgresRepository) CreateExperiment(ctx context.Context, e *domain.Experiment) error {
	_, err := db.Conn(ctx, r.db).ExecContext(ctx,
		`INSERT INTO experiments (`+experimentCols+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		e.ID, e.OrgID, e.ProductID, db.NullString(e.IdeaID), e.Name, e.Hypothesis, e.Metric, string(e.Status),
		db.NullString(string(e.Outcome)), e.Learnings, db.NullTime(e.StartedAt), db.NullTime(e.EndedAt), e.CreatedAt, e.UpdatedAt)
	return err
}

func (r *PostgresRepository) UpdateExperiment(ctx context.Context, e *domain.Experiment) (bool, error) {
	return db.Affected(db.Conn(ctx, r.db).ExecContext(ctx,
		`UPDATE experiments SET idea_id = $3, name = $4, hypothesis = $5, metric = $6, status = $7, outcome = $8,
			learnings = $9, started_at = $10, ended_at = $11, updated_at = $12
		 WHERE id = $1 AND org_id = $2 AND deleted_at IS NULL`,
		e.ID, e.OrgID, db.NullString(e.IdeaID), e.Name, e.Hypothesis, e.Metric, string(e.Status),
		db.NullString(string(e.Outcome)), e.Learnings, db.NullTime(e.StartedAt), db.NullTime(e.EndedAt), e.UpdatedAt))
}

func (r *PostgresRepository) DeleteExperiment(ctx context.Context, orgID, id string, at time.Time) (bool, error) {
	return db.SoftDelete(ctx, db.Conn(ctx, r.db), "experiments", orgID, id, at)
}

func scanExperiment(row db.Scanner) (*domain.Experiment, error) {
	var (
		e              domain.Experiment
		idea, outcome  sql.NullString
		started, ended sql.NullTime
	)
	if err := row.Scan(&e.ID, &e.OrgID, &e.ProductID, &idea, &e.Name, &e.Hypothesis, &e.Metric, &e.Status, &outcome,
		&e.Learnings, &started, &ended, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return nil, err
	}
	e.IdeaID, e.Outcome = idea.String, domain.Outcome(outcome.String)
	e.StartedAt, e.EndedAt = db.TimePtr(started), db.TimePtr(ended)
	return &e, nil
}
