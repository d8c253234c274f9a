package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/foozio/prodmatic-sub002/internal/db"
	"github.com/foozio/prodmatic-sub002/internal/document/domain"
)

const (
	documentCols   = `id, org_id, product_id, title, body, kind, status, created_by, created_at, updated_at`
	attachmentCols = `id, org_id, document_id, filename, content_type, size_bytes, blob_key, created_at, updated_at`
)

type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(conn *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: conn}
}

func (r *PostgresRepository) GetDocument(ctx context.Context, orgID, id string) (*domain.Document, error) {
	q, args := db.SelectPage(documentCols, "documents", db.Live(orgID).And("id = ?", id), "", 0, 0)
	return db.One(db.Conn(ctx, r.db).QueryRowContext(ctx, q, args...), scanDocument)
}

func (r *PostgresRepository) ListDocuments(ctx context.Context, orgID string, f domain.Filter, limit, offset int32) ([]*domain.Document, error) {
	w := db.Live(orgID).
		AndIf(f.ProductID != "", "product_id = ?", f.ProductID).
		AndIf(f.Kind != "", "kind = ?", string(f.Kind)).
		AndIf(f.Status != "", "status = ?", string(f.Status))
	q, args := db.SelectPage(documentCols, "documents", w, "updated_at DESC, id", limit, offset)
	rows, err := db.Conn(ctx, r.db).QueryContext(ctx, q, args...)
	return db.Collect(rows, err, scanDocument)
}

func (r *PostgresRepository) CreateDocument(ctx context.Context, d *domain.Document) error {
	_, err := db.Conn(ctx, r.db).ExecContext(ctx,
		`INSERT INTO documents (`+documentCols+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		d.ID, d.OrgID, d.ProductID, d.Title, d.Body, string(d.Kind), string(d.Status), d.CreatedBy, d.CreatedAt, d.UpdatedAt)
	return err
}

func (r *PostgresRepository) UpdateDocument(ctx context.Context, d *domain.Document) (bool, error) {
	return db.Affected(db.Conn(ctx, r.db).ExecContext(ctx,
		`UPDATE documents SET title = $3, body = $4, kind = $5, status = $6, updated_at = $7
		 WHERE id = $1 AND org_id = $2 AND deleted_at IS NULL`,
		d.ID, d.OrgID, d.Title, d.Body, string(d.Kind), string(d.Status), d.UpdatedAt))
}

func (r *PostgresRepository) DeleteDocument(ctx context.Context, orgID, id string, at time.Time) (bool, error) {
	q := db.Conn(ctx, r.db)
	ok, err := db.SoftDelete(ctx, q, "documents", orgID, id, at)
	if err != nil || !ok {
		return ok, err
	}
	_, err = q.ExecContext(ctx,
		`UPDATE attachments SET deleted_at = $3, updated_at = $3
		 WHERE org_id = $1 AND document_id = $2 AND deleted_at IS NULL`, orgID, id, at)
	return true, err
}

func (r *PostgresRepository) GetAttachment(ctx context.Context, orgID, id string) (*domain.Attachment, error) {
	q, args := db.SelectPage(attachmentCols, "attachments", db.Live(orgID).And("id = ?", id), "", 0, 0)
	return db.One(db.Conn(ctx, r.db).QueryRowContext(ctx, q, args...), scanAttachment)
}

func (r *PostgresRepository) ListAttachments(ctx context.Context, orgID, documentID string) ([]*domain.Attachment, error) {
	q, args := db.SelectPage(attachmentCols, "attachments", db.Live(orgID).And("document_id = ?", documentID), "created_at, id", 0, 0)
	rows, err := db.Conn(ctx, r.db).QueryContext(ctx, q, args...)
	return db.Collect(rows, err, scanAttachment)
}

func (r *PostgresRepository) CreateAttachment(ctx context.Context, a *domain.Attachment) error {
	_, err := db.Conn(ctx, r.db).ExecContext(ctx,
		`INSERT INTO attachments (`+attachmentCols+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		a.ID, a.OrgID, a.DocumentID, a.Filename, a.ContentType, a.SizeBytes, a.BlobKey, a.CreatedAt, a.UpdatedAt)
	return err
}

func (r *PostgresRepository) DeleteAttachment(ctx context.Context, orgID, id string, at time.Time) (bool, error) {
	return db.SoftDelete(ctx, db.Conn(ctx, r.db), "attachments", orgID, id, at)
}

func scanDocument(row db.Scanner) (*domain.Document, error) {
	var d domain.Document
	if err := row.Scan(&d.ID, &d.OrgID, &d.ProductID, &d.Title, &d.Body, &d.Kind, &d.Status, &d.CreatedBy,
		&d.CreatedAt, &d.UpdatedAt); err != nil {
		return nil, err
	}
	return &d, nil
}

func scanAttachment(row db.Scanner) (*domain.Attachment, error) {
	var a domain.Attachment
	if err := row.Scan(&a.ID, &a.OrgID, &a.DocumentID, &a.Filename, &a.ContentType, &a.SizeBytes, &a.BlobKey,
		&a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	return &a, nil
}
