package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/foozio/prodmatic-sub002/internal/db"
	"github.com/foozio/prodmatic-sub002/internal/persona/domain"
)

const personaCols = `id, org_id, product_id, name, title, description, goals, pain_points, created_at, updated_at`

type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(conn *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: conn}
}

func (r *PostgresRepository) GetPersona(ctx context.Context, orgID, id string) (*domain.Persona, error) {
	q, args := db.SelectPage(personaCols, "personas", db.Live(orgID).And("id = ?", id), "", 0, 0)
	return db.One(db.Conn(ctx, r.db).QueryRowContext(ctx, q, args...), personaScanner())
}

func (r *PostgresRepository) ListPersonas(ctx context.Context, orgID, productID string, limit, offset int32) ([]*domain.Persona, error) {
	q, args := db.SelectPage(personaCols, "personas", db.Live(orgID).And("product_id = ?", productID), "name, id", limit, offset)
	rows, err := db.Conn(ctx, r.db).QueryContext(ctx, q, args...)
	return db.Collect(rows, err, personaScanner())
}

func (r *PostgresRepository) CreatePersona(ctx context.Context, p *domain.Persona) error {
	_, err := db.Conn(ctx, r.db).ExecContext(ctx,
		`INSERT INTO personas (`+personaCols+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		p.ID, p.OrgID, p.ProductID, p.Name, p.Title, p.Description, p.Goals, p.PainPoints, p.CreatedAt, p.UpdatedAt)
	return err
}

func (r *PostgresRepository) UpdatePersona(ctx context.Context, p *domain.Persona) (bool, error) {
	return db.Affected(db.Conn(ctx, r.db).ExecContext(ctx,
		`UPDATE personas SET name = $3, title = $4, description = $5, goals = $6, pain_points = $7, updated_at = $8
		 WHERE id = $1 AND org_id = $2 AND deleted_at IS NULL`,
		p.ID, p.OrgID, p.Name, p.Title, p.Description, p.Goals, p.PainPoints, p.UpdatedAt))
}

func (r *PostgresRepository) DeletePersona(ctx context.Context, orgID, id string, at time.Time) (bool, error) {
	return db.SoftDelete(ctx, db.Conn(ctx, r.db), "personas", orgID, id, at)
}

// personaScanner decodes the text[] columns through a pgtype.Map, which is not safe for
// concurrent use, so each query gets its own.
func personaScanner() func(db.Scanner) (*domain.Persona, error) {
	m := pgtype.NewMap()
	return func(row db.Scanner) (*domain.Persona, error) {
		var p domain.Persona
		if err := row.Scan(&p.ID, &p.OrgID, &p.ProductID, &p.Name, &p.Title, &p.Description,
			m.SQLScanner(&p.Goals), m.SQLScanner(&p.PainPoints), &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		p.Goals, p.PainPoints = domain.CleanList(p.Goals), domain.CleanList(p.PainPoints)
		return &p, nil
	}
}
