package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/foozio/prodmatic-sub002/internal/audit/domain"
	"github.com/foozio/prodmatic-sub002/internal/db"
)

const entryCols = `id, org_id, actor_id, action, entity_type, entity_id, metadata, ip, created_at`

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns an audit repository that uses the given db for persistence.
func NewPostgresRepository(conn *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: conn}
}

// GetByID returns the entry for id, or nil if not found.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Entry, error) {
	row := db.Conn(ctx, r.db).QueryRowContext(ctx, `SELECT `+entryCols+` FROM audit_logs WHERE id = $1`, id)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return e, err
}

// List returns entries of f.OrgID matching f, newest first.
func (r *PostgresRepository) List(ctx context.Context, f domain.Filter, limit, offset int32) ([]*domain.Entry, error) {
	w := db.NewWhere("org_id = ?", f.OrgID).
		AndIf(f.EntityType != "", "entity_type = ?", f.EntityType).
		AndIf(f.EntityID != "", "entity_id = ?", f.EntityID).
		AndIf(f.ActorID != "", "actor_id = ?", f.ActorID)
	q, args := db.SelectPage(entryCols, "audit_logs", w, "created_at DESC, id DESC", limit, offset)
	rows, err := db.Conn(ctx, r.db).QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Create appends e.
func (r *PostgresRepository) Create(ctx context.Context, e *domain.Entry) error {
	meta := e.Metadata
	if meta == nil {
		meta = map[string]any{}
	}
	raw, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	_, err = db.Conn(ctx, r.db).ExecContext(ctx,
		`INSERT INTO audit_logs (`+entryCols+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		e.ID, e.OrgID, e.ActorID, e.Action, e.EntityType, e.EntityID, raw, e.IP, e.CreatedAt)
	return err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (*domain.Entry, error) {
	var (
		e   domain.Entry
		raw []byte
	)
	if err := row.Scan(&e.ID, &e.OrgID, &e.ActorID, &e.Action, &e.EntityType, &e.EntityID, &raw, &e.IP, &e.CreatedAt); err != nil {
		return nil, err
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &e.Metadata); err != nil {
			return nil, err
		}
	}
	return &e, nil
}
