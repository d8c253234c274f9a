package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/foozio/prodmatic-sub002/internal/db"
	"github.com/foozio/prodmatic-sub002/internal/idea/domain"
)

const ideaCols = `id, org_id, product_id, title, description, status,
	reach, impact, confidence, effort, ice_impact, ice_confidence, ease,
	business_value, time_criticality, risk_reduction, job_size,
	rice_score, ice_score, wsjf_score, vote_count, created_by, created_at, updated_at`

var orderBy = map[domain.SortKey]string{
	domain.SortNewest: "created_at DESC, id",
	domain.SortRICE:   "rice_score DESC NULLS LAST, created_at DESC, id",
	domain.SortICE:    "ice_score DESC NULLS LAST, created_at DESC, id",
	domain.SortWSJF:   "wsjf_score DESC NULLS LAST, created_at DESC, id",
	domain.SortVotes:  "vote_count DESC, created_at DESC, id",
}

type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(conn *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: conn}
}

func (r *PostgresRepository) GetIdea(ctx context.Context, orgID, id string) (*domain.Idea, error) {
	q, args := db.SelectPage(ideaCols, "ideas", db.Live(orgID).And("id = ?", id), "", 0, 0)
	return db.One(db.Conn(ctx, r.db).QueryRowContext(ctx, q, args...), scanIdea)
}

func (r *PostgresRepository) ListIdeas(ctx context.Context, orgID string, f domain.Filter, limit, offset int32) ([]*domain.Idea, error) {
	w := db.Live(orgID).
		AndIf(f.ProductID != "", "product_id = ?", f.ProductID).
		AndIf(f.Status != "", "status = ?", string(f.Status))
	order, ok := orderBy[f.Sort]
	if !ok {
		order = orderBy[domain.SortNewest]
	}
	q, args := db.SelectPage(ideaCols, "ideas", w, order, limit, offset)
	rows, err := db.Conn(ctx, r.db).QueryContext(ctx, q, args...)
	return db.Collect(rows, err, scanIdea)
}

func (r *PostgresRepository) CreateIdea(ctx context.Context, i *domain.Idea) error {
	in := i.Inputs
	_, err := db.Conn(ctx, r.db).ExecContext(ctx,
		`INSERT INTO ideas (`+ideaCols+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24)`,
		i.ID, i.OrgID, i.ProductID, i.Title, i.Description, string(i.Status),
		in.Reach, in.Impact, in.Confidence, in.Effort, in.ICEImpact, in.ICEConfidence, in.Ease,
		in.BusinessValue, in.TimeCriticality, in.RiskReduction, in.JobSize,
		i.RICEScore, i.ICEScore, i.WSJFScore, i.VoteCount, i.CreatedBy, i.CreatedAt, i.UpdatedAt)
	return err
}

// UpdateIdea writes every mutable column except vote_count, which only votes change.
func (r *PostgresRepository) UpdateIdea(ctx context.Context, i *domain.Idea) (bool, error) {
	in := i.Inputs
	return db.Affected(db.Conn(ctx, r.db).ExecContext(ctx,
		`UPDATE ideas SET title = $3, description = $4, status = $5,
			reach = $6, impact = $7, confidence = $8, effort = $9, ice_impact = $10, ice_confidence = $11, ease = $12,
			business_value = $13, time_criticality = $14, risk_reduction = $15, job_size = $16,
			rice_score = $17, ice_score = $18, wsjf_score = $19, updated_at = $20
		 WHERE id = $1 AND org_id = $2 AND deleted_at IS NULL`,
		i.ID, i.OrgID, i.Title, i.Description, string(i.Status),
		in.Reach, in.Impact, in.Confidence, in.Effort, in.ICEImpact, in.ICEConfidence, in.Ease,
		in.BusinessValue, in.TimeCriticality, in.RiskReduction, in.JobSize,
		i.RICEScore, i.ICEScore, i.WSJFScore, i.UpdatedAt))
}

func (r *PostgresRepository) DeleteIdea(ctx context.Context, orgID, id string, at time.Time) (bool, error) {
	return db.SoftDelete(ctx, db.Conn(ctx, r.db), "ideas", orgID, id, at)
}

func (r *PostgresRepository) AddVote(ctx context.Context, orgID, ideaID, userID string, at time.Time) (bool, error) {
	q := db.Conn(ctx, r.db)
	ok, err := db.Affected(q.ExecContext(ctx,
		`INSERT INTO idea_votes (idea_id, user_id, org_id, created_at) VALUES ($1, $2, $3, $4) ON CONFLICT DO NOTHING`,
		ideaID, userID, orgID, at))
	if err != nil || !ok {
		return ok, err
	}
	_, err = q.ExecContext(ctx,
		`UPDATE ideas SET vote_count = vote_count + 1, updated_at = $3 WHERE id = $1 AND org_id = $2`, ideaID, orgID, at)
	return true, err
}

func (r *PostgresRepository) RemoveVote(ctx context.Context, orgID, ideaID, userID string, at time.Time) (bool, error) {
	q := db.Conn(ctx, r.db)
	ok, err := db.Affected(q.ExecContext(ctx,
		`DELETE FROM idea_votes WHERE idea_id = $1 AND user_id = $2 AND org_id = $3`, ideaID, userID, orgID))
	if err != nil || !ok {
		return ok, err
	}
	_, err = q.ExecContext(ctx,
		`UPDATE ideas SET vote_count = GREATEST(vote_count - 1, 0), updated_at = $3 WHERE id = $1 AND org_id = $2`, ideaID, orgID, at)
	return true, err
}

func scanIdea(row db.Scanner) (*domain.Idea, error) {
	var (
		i               domain.Idea
		rice, ice, wsjf sql.NullFloat64
	)
	in := &i.Inputs
	if err := row.Scan(&i.ID, &i.OrgID, &i.ProductID, &i.Title, &i.Description, &i.Status,
		&in.Reach, &in.Impact, &in.Confidence, &in.Effort, &in.ICEImpact, &in.ICEConfidence, &in.Ease,
		&in.BusinessValue, &in.TimeCriticality, &in.RiskReduction, &in.JobSize,
		&rice, &ice, &wsjf, &i.VoteCount, &i.CreatedBy, &i.CreatedAt, &i.UpdatedAt); err != nil {
		return nil, err
	}
	i.RICEScore, i.ICEScore, i.WSJFScore = db.FloatPtr(rice), db.FloatPtr(ice), db.FloatPtr(wsjf)
	return &i, nil
}
