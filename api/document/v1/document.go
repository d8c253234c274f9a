// Package documentv1 defines DocumentService.
package documentv1

import (
	"context"
	"time"

	"google.golang.org/grpc"

	commonv1 "github.com/foozio/prodmatic-sub002/api/common/v1"
	"github.com/foozio/prodmatic-sub002/api/rpc"
)

const ServiceName = "prodmatic.document.v1.DocumentService"

type Document struct {
	ID          string        `json:"id"`
	OrgID       string        `json:"org_id"`
	ProductID   string        `json:"product_id"`
	Title       string        `json:"title"`
	Body        string        `json:"body,omitempty"`
	Kind        string        `json:"kind"`
	Status      string        `json:"status"`
	CreatedBy   string        `json:"created_by"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
	Attachments []*Attachment `json:"attachments,omitempty"`
}

type Attachment struct {
	ID          string    `json:"id"`
	DocumentID  string    `json:"document_id"`
	Filename    string    `json:"filename"`
	ContentType string    `json:"content_type"`
	SizeBytes   int64     `json:"size_bytes"`
	CreatedAt   time.Time `json:"created_at"`
}

type CreateDocumentRequest struct {
	OrgID     string `json:"org_id"`
	ProductID string `json:"product_id"`
	Title     string `json:"title"`
	Body      string `json:"body,omitempty"`
	Kind      string `json:"kind"`
}

// UpdateDocumentRequest changes only the fields that are set.
type UpdateDocumentRequest struct {
	OrgID      string  `json:"org_id"`
	DocumentID string  `json:"document_id"`
	Title      *string `json:"title,omitempty"`
	Body       *string `json:"body,omitempty"`
	Kind       *string `json:"kind,omitempty"`
	Status     *string `json:"status,omitempty"`
}

type DocumentRequest struct {
	OrgID      string `json:"org_id"`
	DocumentID string `json:"document_id"`
}

type ListDocumentsRequest struct {
	OrgID      string               `json:"org_id"`
	ProductID  string               `json:"product_id,omitempty"`
	Kind       string               `json:"kind,omitempty"`
	Status     string               `json:"status,omitempty"`
	Pagination *commonv1.Pagination `json:"pagination,omitempty"`
}

type DocumentResponse struct {
	Document *Document `json:"document"`
}

type ListDocumentsResponse struct {
	Documents  []*Document                `json:"documents"`
	Pagination *commonv1.PaginationResult `json:"pagination,omitempty"`
}

// AddAttachmentRequest carries the file inline; Content is base64 in JSON.
type AddAttachmentRequest struct {
	OrgID       string `json:"org_id"`
	DocumentID  string `json:"document_id"`
	Filename    string `json:"filename"`
	ContentType string `json:"content_type,omitempty"`
	Content     []byte `json:"content"`
}

type AttachmentRequest struct {
	OrgID        string `json:"org_id"`
	AttachmentID string `json:"attachment_id"`
}

type AttachmentResponse struct {
	Attachment *Attachment `json:"attachment"`
}

type AttachmentURLResponse struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

type DocumentServiceServer interface {
	CreateDocument(context.Context, *CreateDocumentRequest) (*DocumentResponse, error)
	UpdateDocument(context.Context, *UpdateDocumentRequest) (*DocumentResponse, error)
	DeleteDocument(context.Context, *DocumentRequest) (*commonv1.Empty, error)
	GetDocument(context.Context, *DocumentRequest) (*DocumentResponse, error)
	ListDocuments(context.Context, *ListDocumentsRequest) (*ListDocumentsResponse, error)
	AddAttachment(context.Context, *AddAttachmentRequest) (*AttachmentResponse, error)
	DeleteAttachment(context.Context, *AttachmentRequest) (*commonv1.Empty, error)
	GetAttachmentURL(context.Context, *AttachmentRequest) (*AttachmentURLResponse, error)
}

var DocumentService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*DocumentServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		rpc.Unary(ServiceName, "CreateDocument", DocumentServiceServer.CreateDocument),
		rpc.Unary(ServiceName, "UpdateDocument", DocumentServiceServer.UpdateDocument),
		rpc.Unary(ServiceName, "DeleteDocument", DocumentServiceServer.DeleteDocument),
		rpc.Unary(ServiceName, "GetDocument", DocumentServiceServer.GetDocument),
		rpc.Unary(ServiceName, "ListDocuments", DocumentServiceServer.ListDocuments),
		rpc.Unary(ServiceName, "AddAttachment", DocumentServiceServer.AddAttachment),
		rpc.Unary(ServiceName, "DeleteAttachment", DocumentServiceServer.DeleteAttachment),
		rpc.Unary(ServiceName, "GetAttachmentURL", DocumentServiceServer.GetAttachmentURL),
	},
	Metadata: "prodmatic/document/v1/document.proto",
}

func RegisterDocumentServiceServer(s grpc.ServiceRegistrar, srv DocumentServiceServer) {
	s.RegisterService(&DocumentService_ServiceDesc, srv)
}
