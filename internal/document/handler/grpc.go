package handler

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	commonv1 "github.com/foozio/prodmatic-sub002/api/common/v1"
	documentv1 "github.com/foozio/prodmatic-sub002/api/document/v1"
	"github.com/foozio/prodmatic-sub002/internal/blob"
	"github.com/foozio/prodmatic-sub002/internal/document/domain"
	documentrepo "github.com/foozio/prodmatic-sub002/internal/document/repository"
	membershipdomain "github.com/foozio/prodmatic-sub002/internal/membership/domain"
	"github.com/foozio/prodmatic-sub002/internal/platform/apperr"
	"github.com/foozio/prodmatic-sub002/internal/platform/mutation"
	"github.com/foozio/prodmatic-sub002/internal/product/scope"
	"github.com/foozio/prodmatic-sub002/internal/revalidate"
	"github.com/foozio/prodmatic-sub002/internal/session"
)

// URLExpiry is the lifetime of attachment download URLs.
const URLExpiry = 15 * time.Minute

// Server implements DocumentService.
type Server struct {
	repo     documentrepo.Repository
	products scope.Checker
	blobs    blob.Store
	pipeline *mutation.Pipeline
	maxBytes int64
	log      *zap.Logger
}

func NewServer(repo documentrepo.Repository, products scope.Checker, blobs blob.Store, pipeline *mutation.Pipeline, maxBytes int64, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{repo: repo, products: products, blobs: blobs, pipeline: pipeline, maxBytes: maxBytes, log: log}
}

func (s *Server) CreateDocument(ctx context.Context, req *documentv1.CreateDocumentRequest) (*documentv1.DocumentResponse, error) {
	var d *domain.Document
	op := mutation.Op[documentv1.CreateDocumentRequest, documentv1.DocumentResponse]{
		Action:     "create",
		EntityType: "document",
		MinRole:    membershipdomain.RoleContributor,
		Validate: func(in *documentv1.CreateDocumentRequest) error {
			d = &domain.Document{
				ProductID: in.ProductID,
				Title:     in.Title,
				Body:      in.Body,
				Kind:      domain.Kind(upper(in.Kind, string(domain.KindNote))),
				Status:    domain.StatusDraft,
			}
			var v apperr.Validator
			v.Check(in.ProductID != "", "product_id", "is required")
			v.Merge(d.Validate())
			return v.Err()
		},
		Apply: func(ctx context.Context, p *session.Principal, in *documentv1.CreateDocumentRequest) (*documentv1.DocumentResponse, mutation.Result, error) {
			if err := scope.Require(ctx, s.products, in.OrgID, in.ProductID); err != nil {
				return nil, mutation.Result{}, err
			}
			now := s.pipeline.Now()
			d.ID, d.OrgID, d.CreatedBy, d.CreatedAt, d.UpdatedAt = uuid.NewString(), in.OrgID, p.UserID, now, now
			if err := s.repo.CreateDocument(ctx, d); err != nil {
				return nil, mutation.Result{}, err
			}
			return respondDocument(d, nil, map[string]any{"title": d.Title, "kind": string(d.Kind)})
		},
	}
	return mutation.Run(ctx, s.pipeline, req.OrgID, op, req)
}

func (s *Server) UpdateDocument(ctx context.Context, req *documentv1.UpdateDocumentRequest) (*documentv1.DocumentResponse, error) {
	op := mutation.Op[documentv1.UpdateDocumentRequest, documentv1.DocumentResponse]{
		Action:     "update",
		EntityType: "document",
		MinRole:    membershipdomain.RoleContributor,
		Validate:   func(in *documentv1.UpdateDocumentRequest) error { return requireID("document_id", in.DocumentID) },
		Apply: func(ctx context.Context, _ *session.Principal, in *documentv1.UpdateDocumentRequest) (*documentv1.DocumentResponse, mutation.Result, error) {
			d, err := s.loadDocument(ctx, in.OrgID, in.DocumentID)
			if err != nil {
				return nil, mutation.Result{}, err
			}
			from := d.Status
			if in.Title != nil {
				d.Title = *in.Title
			}
			if in.Body != nil {
				d.Body = *in.Body
			}
			if in.Kind != nil {
				d.Kind = domain.Kind(upper(*in.Kind, ""))
			}
			if in.Status != nil {
				d.Status = domain.Status(upper(*in.Status, ""))
			}
			if err := d.Validate(); err != nil {
				return nil, mutation.Result{}, err
			}
			d.UpdatedAt = s.pipeline.Now()
			if _, err := s.repo.UpdateDocument(ctx, d); err != nil {
				return nil, mutation.Result{}, err
			}
			meta := map[string]any{"title": d.Title}
			if d.Status != from {
				meta["from_status"], meta["to_status"] = string(from), string(d.Status)
			}
			return respondDocument(d, nil, meta)
		},
	}
	return mutation.Run(ctx, s.pipeline, req.OrgID, op, req)
}

// DeleteDocument soft-deletes the document and its attachments. Stored objects are kept.
func (s *Server) DeleteDocument(ctx context.Context, req *documentv1.DocumentRequest) (*commonv1.Empty, error) {
	op := mutation.Op[documentv1.DocumentRequest, commonv1.Empty]{
		Action:     "delete",
		EntityType: "document",
		MinRole:    membershipdomain.RoleContributor,
		Validate:   func(in *documentv1.DocumentRequest) error { return requireID("document_id", in.DocumentID) },
		Apply: func(ctx context.Context, _ *session.Principal, in *documentv1.DocumentRequest) (*commonv1.Empty, mutation.Result, error) {
			d, err := s.loadDocument(ctx, in.OrgID, in.DocumentID)
			if err != nil {
				return nil, mutation.Result{}, err
			}
			if _, err := s.repo.DeleteDocument(ctx, in.OrgID, d.ID, s.pipeline.Now()); err != nil {
				return nil, mutation.Result{}, err
			}
			_, res, _ := respondDocument(d, nil, map[string]any{"title": d.Title})
			return &commonv1.Empty{}, res, nil
		},
	}
	return mutation.Run(ctx, s.pipeline, req.OrgID, op, req)
}

func (s *Server) GetDocument(ctx context.Context, req *documentv1.DocumentRequest) (*documentv1.DocumentResponse, error) {
	if _, err := s.pipeline.Authorize(ctx, req.OrgID, membershipdomain.RoleStakeholder); err != nil {
		return nil, err
	}
	d, err := s.loadDocument(ctx, req.OrgID, req.DocumentID)
	if err != nil {
		return nil, apperr.Storage("get document", err)
	}
	atts, err := s.repo.ListAttachments(ctx, req.OrgID, d.ID)
	if err != nil {
		return nil, apperr.Storage("list attachments", err)
	}
	return &documentv1.DocumentResponse{Document: toProto(d, atts)}, nil
}

// ListDocuments returns documents without bodies.
func (s *Server) ListDocuments(ctx context.Context, req *documentv1.ListDocumentsRequest) (*documentv1.ListDocumentsResponse, error) {
	f := domain.Filter{
		ProductID: req.ProductID,
		Kind:      domain.Kind(upper(req.Kind, "")),
		Status:    domain.Status(upper(req.Status, "")),
	}
	var v apperr.Validator
	v.Check(f.Kind == "" || f.Kind.Valid(), "kind", "is not a known document kind")
	v.Check(f.Status == "" || f.Status.Valid(), "status", "is not a known document status")
	if err := v.Err(); err != nil {
		return nil, err
	}
	if _, err := s.pipeline.Authorize(ctx, req.OrgID, membershipdomain.RoleStakeholder); err != nil {
		return nil, err
	}
	limit, offset := req.Pagination.LimitOffset()
	list, err := s.repo.ListDocuments(ctx, req.OrgID, f, limit, offset)
	if err != nil {
		return nil, apperr.Storage("list documents", err)
	}
	out := make([]*documentv1.Document, len(list))
	for i, d := range list {
		out[i] = toProto(d, nil)
		out[i].Body = ""
	}
	return &documentv1.ListDocumentsResponse{Documents: out, Pagination: commonv1.Next(limit, offset, len(list))}, nil
}

// AddAttachment uploads the content to the blob store and records the attachment. The object
// is removed again when the mutation does not commit.
func (s *Server) AddAttachment(ctx context.Context, req *documentv1.AddAttachmentRequest) (*documentv1.AttachmentResponse, error) {
	var (
		a   *domain.Attachment
		key string
	)
	op := mutation.Op[documentv1.AddAttachmentRequest, documentv1.AttachmentResponse]{
		Action:     "attach",
		EntityType: "document",
		MinRole:    membershipdomain.RoleContributor,
		Validate: func(in *documentv1.AddAttachmentRequest) error {
			a = &domain.Attachment{
				DocumentID:  in.DocumentID,
				ContentType: strings.TrimSpace(in.ContentType),
				SizeBytes:   int64(len(in.Content)),
			}
			if strings.TrimSpace(in.Filename) != "" {
				a.Filename = blob.SafeName(in.Filename)
			}
			if a.ContentType == "" {
				a.ContentType = http.DetectContentType(in.Content)
			}
			var v apperr.Validator
			v.Merge(requireID("document_id", in.DocumentID))
			v.Merge(a.Validate(s.maxBytes))
			return v.Err()
		},
		Apply: func(ctx context.Context, _ *session.Principal, in *documentv1.AddAttachmentRequest) (*documentv1.AttachmentResponse, mutation.Result, error) {
			d, err := s.loadDocument(ctx, in.OrgID, in.DocumentID)
			if err != nil {
				return nil, mutation.Result{}, err
			}
			now := s.pipeline.Now()
			a.ID, a.OrgID, a.CreatedAt, a.UpdatedAt = uuid.NewString(), in.OrgID, now, now
			a.BlobKey = blob.AttachmentKey(in.OrgID, d.ID, a.ID, a.Filename)
			if err := s.blobs.Put(ctx, a.BlobKey, bytes.NewReader(in.Content), a.SizeBytes, a.ContentType); err != nil {
				return nil, mutation.Result{}, err
			}
			key = a.BlobKey
			if err := s.repo.CreateAttachment(ctx, a); err != nil {
				return nil, mutation.Result{}, err
			}
			return &documentv1.AttachmentResponse{Attachment: attachmentToProto(a)}, mutation.Result{
				EntityIDs: []string{d.ID},
				Metadata:  map[string]any{"attachment_id": a.ID, "filename": a.Filename, "size_bytes": a.SizeBytes},
				Paths:     []string{revalidate.ProductPath(d.OrgID, d.ProductID)},
			}, nil
		},
	}
	out, err := mutation.Run(ctx, s.pipeline, req.OrgID, op, req)
	if err != nil && key != "" {
		if derr := s.blobs.Delete(context.WithoutCancel(ctx), key); derr != nil {
			s.log.Warn("document: orphaned attachment object", zap.String("blob_key", key), zap.Error(derr))
		}
	}
	return out, err
}

// DeleteAttachment soft-deletes the attachment row and removes the stored object after commit.
func (s *Server) DeleteAttachment(ctx context.Context, req *documentv1.AttachmentRequest) (*commonv1.Empty, error) {
	var key string
	op := mutation.Op[documentv1.AttachmentRequest, commonv1.Empty]{
		Action:     "detach",
		EntityType: "document",
		MinRole:    membershipdomain.RoleContributor,
		Validate:   func(in *documentv1.AttachmentRequest) error { return requireID("attachment_id", in.AttachmentID) },
		Apply: func(ctx context.Context, _ *session.Principal, in *documentv1.AttachmentRequest) (*commonv1.Empty, mutation.Result, error) {
			a, err := s.loadAttachment(ctx, in.OrgID, in.AttachmentID)
			if err != nil {
				return nil, mutation.Result{}, err
			}
			d, err := s.loadDocument(ctx, in.OrgID, a.DocumentID)
			if err != nil {
				return nil, mutation.Result{}, err
			}
			if _, err := s.repo.DeleteAttachment(ctx, in.OrgID, a.ID, s.pipeline.Now()); err != nil {
				return nil, mutation.Result{}, err
			}
			key = a.BlobKey
			return &commonv1.Empty{}, mutation.Result{
				EntityIDs: []string{d.ID},
				Metadata:  map[string]any{"attachment_id": a.ID, "filename": a.Filename},
				Paths:     []string{revalidate.ProductPath(d.OrgID, d.ProductID)},
			}, nil
		},
	}
	out, err := mutation.Run(ctx, s.pipeline, req.OrgID, op, req)
	if err == nil {
		if derr := s.blobs.Delete(context.WithoutCancel(ctx), key); derr != nil {
			s.log.Warn("document: attachment object not removed", zap.String("blob_key", key), zap.Error(derr))
		}
	}
	return out, err
}

// GetAttachmentURL returns a short-lived download URL for an attachment.
func (s *Server) GetAttachmentURL(ctx context.Context, req *documentv1.AttachmentRequest) (*documentv1.AttachmentURLResponse, error) {
	if err := requireID("attachment_id", req.AttachmentID); err != nil {
		return nil, err
	}
	if _, err := s.pipeline.Authorize(ctx, req.OrgID, membershipdomain.RoleStakeholder); err != nil {
		return nil, err
	}
	a, err := s.loadAttachment(ctx, req.OrgID, req.AttachmentID)
	if err != nil {
		return nil, apperr.Storage("get attachment", err)
	}
	u, err := s.blobs.URL(ctx, a.BlobKey, URLExpiry)
	if errors.Is(err, blob.ErrNotFound) {
		return nil, apperr.NotFound("attachment", a.ID)
	}
	if err != nil {
		return nil, apperr.Storage("attachment url", err)
	}
	return &documentv1.AttachmentURLResponse{URL: u, ExpiresAt: s.pipeline.Now().Add(URLExpiry)}, nil
}

func (s *Server) loadDocument(ctx context.Context, orgID, id string) (*domain.Document, error) {
	d, err := s.repo.GetDocument(ctx, orgID, id)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, apperr.NotFound("document", id)
	}
	return d, nil
}

func (s *Server) loadAttachment(ctx context.Context, orgID, id string) (*domain.Attachment, error) {
	a, err := s.repo.GetAttachment(ctx, orgID, id)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, apperr.NotFound("attachment", id)
	}
	return a, nil
}

func respondDocument(d *domain.Document, atts []*domain.Attachment, meta map[string]any) (*documentv1.DocumentResponse, mutation.Result, error) {
	return &documentv1.DocumentResponse{Document: toProto(d, atts)}, mutation.Result{
		EntityIDs: []string{d.ID},
		Metadata:  meta,
		Paths:     []string{revalidate.ProductPath(d.OrgID, d.ProductID)},
	}, nil
}

func requireID(field, id string) error {
	var v apperr.Validator
	v.Check(id != "", field, "is required")
	return v.Err()
}

func upper(s, def string) string {
	if s = strings.ToUpper(strings.TrimSpace(s)); s != "" {
		return s
	}
	return def
}

func toProto(d *domain.Document, atts []*domain.Attachment) *documentv1.Document {
	out := &documentv1.Document{
		ID:        d.ID,
		OrgID:     d.OrgID,
		ProductID: d.ProductID,
		Title:     d.Title,
		Body:      d.Body,
		Kind:      string(d.Kind),
		Status:    string(d.Status),
		CreatedBy: d.CreatedBy,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
	for _, a := range atts {
		out.Attachments = append(out.Attachments, attachmentToProto(a))
	}
	return out
}

func attachmentToProto(a *domain.Attachment) *documentv1.Attachment {
	return &documentv1.Attachment{
		ID:          a.ID,
		DocumentID:  a.DocumentID,
		Filename:    a.Filename,
		ContentType: a.ContentType,
		SizeBytes:   a.SizeBytes,
		CreatedAt:   a.CreatedAt,
	}
}
