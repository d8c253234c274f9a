package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/foozio/prodmatic-sub002/internal/checklist/domain"
	"github.com/foozio/prodmatic-sub002/internal/db"
)

const (
	itemCols    = `id, org_id, product_id, list, title, position, done, done_by, done_at, created_at, updated_at`
	itemColsLen = 11
)

type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(conn *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: conn}
}

func (r *PostgresRepository) GetItem(ctx context.Context, orgID, id string) (*domain.Item, error) {
	q, args := db.SelectPage(itemCols, "checklist_items", db.Live(orgID).And("id = ?", id), "", 0, 0)
	return db.One(db.Conn(ctx, r.db).QueryRowContext(ctx, q, args...), scanItem)
}

func (r *PostgresRepository) ListItems(ctx context.Context, orgID, productID, list string) ([]*domain.Item, error) {
	w := db.Live(orgID).And("product_id = ?", productID).AndIf(list != "", "list = ?", list)
	q, args := db.SelectPage(itemCols, "checklist_items", w, "list, position, id", 0, 0)
	rows, err := db.Conn(ctx, r.db).QueryContext(ctx, q, args...)
	return db.Collect(rows, err, scanItem)
}

func (r *PostgresRepository) MaxPosition(ctx context.Context, orgID, productID, list string) (int, error) {
	var pos int
	err := db.Conn(ctx, r.db).QueryRowContext(ctx,
		`SELECT COALESCE(MAX(position), -1) FROM checklist_items
		 WHERE org_id = $1 AND product_id = $2 AND list = $3 AND deleted_at IS NULL`,
		orgID, productID, list).Scan(&pos)
	return pos, err
}

func (r *PostgresRepository) InsertItems(ctx context.Context, items []*domain.Item) error {
	if len(items) == 0 {
		return nil
	}
	var b strings.Builder
	b.WriteString("INSERT INTO checklist_items (" + itemCols + ") VALUES ")
	args := make([]any, 0, len(items)*itemColsLen)
	for i, it := range items {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString("(")
		for j := 0; j < itemColsLen; j++ {
			if j > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "$%d", i*itemColsLen+j+1)
		}
		b.WriteString(")")
		args = append(args, it.ID, it.OrgID, it.ProductID, it.List, it.Title, it.Position, it.Done,
			db.NullString(it.DoneBy), db.NullTime(it.DoneAt), it.CreatedAt, it.UpdatedAt)
	}
	_, err := db.Conn(ctx, r.db).ExecContext(ctx, b.String(), args...)
	return err
}

func (r *PostgresRepository) UpdateItem(ctx context.Context, it *domain.Item) (bool, error) {
	return db.Affected(db.Conn(ctx, r.db).ExecContext(ctx,
		`UPDATE checklist_items SET title = $3, position = $4, done = $5, done_by = $6, done_at = $7, updated_at = $8
		 WHERE id = $1 AND org_id = $2 AND deleted_at IS NULL`,
		it.ID, it.OrgID, it.Title, it.Position, it.Done, db.NullString(it.DoneBy), db.NullTime(it.DoneAt), it.UpdatedAt))
}

func (r *PostgresRepository) DeleteItem(ctx context.Context, orgID, id string, at time.Time) (bool, error) {
	return db.SoftDelete(ctx, db.Conn(ctx, r.db), "checklist_items", orgID, id, at)
}

func scanItem(row db.Scanner) (*domain.Item, error) {
	var (
		it     domain.Item
		doneBy sql.NullString
		doneAt sql.NullTime
	)
	if err := row.Scan(&it.ID, &it.OrgID, &it.ProductID, &it.List, &it.Title, &it.Position, &it.Done, &doneBy, &doneAt,
		&it.CreatedAt, &it.UpdatedAt); err != nil {
		return nil, err
	}
	it.DoneBy, it.DoneAt = doneBy.String, db.TimePtr(doneAt)
	return &it, nil
}
