// Package domain holds product documents and their file attachments.
package domain

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/foozio/prodmatic-sub002/internal/platform/apperr"
)

type Kind string

const (
	KindPRD      Kind = "PRD"
	KindSpec     Kind = "SPEC"
	KindResearch Kind = "RESEARCH"
	KindNote     Kind = "NOTE"
)

func (k Kind) Valid() bool {
	return k == KindPRD || k == KindSpec || k == KindResearch || k == KindNote
}

type Status string

const (
	StatusDraft     Status = "DRAFT"
	StatusPublished Status = "PUBLISHED"
	StatusArchived  Status = "ARCHIVED"
)

func (s Status) Valid() bool {
	return s == StatusDraft || s == StatusPublished || s == StatusArchived
}

// MaxBodyBytes bounds the markdown body of a document.
const MaxBodyBytes = 1 << 20

type Document struct {
	ID        string
	OrgID     string
	ProductID string
	Title     string
	Body      string
	Kind      Kind
	Status    Status
	CreatedBy string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (d *Document) Validate() error {
	d.Title = strings.TrimSpace(d.Title)
	var v apperr.Validator
	v.Check(d.Title != "", "title", "is required")
	v.Check(utf8.RuneCountInString(d.Title) <= 200, "title", "must be at most 200 characters")
	v.Check(len(d.Body) <= MaxBodyBytes, "body", "is too large")
	v.Check(d.Kind.Valid(), "kind", "must be one of PRD, SPEC, RESEARCH, NOTE")
	v.Check(d.Status.Valid(), "status", "must be one of DRAFT, PUBLISHED, ARCHIVED")
	return v.Err()
}

// Filter narrows ListDocuments. Empty fields match everything.
type Filter struct {
	ProductID string
	Kind      Kind
	Status    Status
}

type Attachment struct {
	ID          string
	OrgID       string
	DocumentID  string
	Filename    string
	ContentType string
	SizeBytes   int64
	BlobKey     string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Validate checks the attachment against maxBytes.
func (a *Attachment) Validate(maxBytes int64) error {
	a.Filename = strings.TrimSpace(a.Filename)
	var v apperr.Validator
	v.Check(a.Filename != "", "filename", "is required")
	v.Check(len(a.Filename) <= 255, "filename", "must be at most 255 bytes")
	v.Check(a.SizeBytes > 0, "content", "must not be empty")
	v.Check(a.SizeBytes <= maxBytes, "content", "exceeds the attachment size limit")
	return v.Err()
}
