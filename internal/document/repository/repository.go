package repository

import (
	"context"
	"time"

	"github.com/foozio/prodmatic-sub002/internal/document/domain"
)

// Repository defines persistence for documents and attachments.
type Repository interface {
	GetDocument(ctx context.Context, orgID, id string) (*domain.Document, error)
	// ListDocuments returns live documents, most recently updated first.
	ListDocuments(ctx context.Context, orgID string, f domain.Filter, limit, offset int32) ([]*domain.Document, error)
	CreateDocument(ctx context.Context, d *domain.Document) error
	UpdateDocument(ctx context.Context, d *domain.Document) (bool, error)
	// DeleteDocument soft-deletes the document and its attachments.
	DeleteDocument(ctx context.Context, orgID, id string, at time.Time) (bool, error)

	GetAttachment(ctx context.Context, orgID, id string) (*domain.Attachment, error)
	ListAttachments(ctx context.Context, orgID, documentID string) ([]*domain.Attachment, error)
	CreateAttachment(ctx context.Context, a *domain.Attachment) error
	DeleteAttachment(ctx context.Context, orgID, id string, at time.Time) (bool, error)
}
