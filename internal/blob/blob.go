// Package blob stores document attachments behind a small object-store interface.
package blob

import (
	"context"
	"errors"
	"io"
	"net/url"
	"path"
	"strings"
	"time"
)

// ErrNotFound is returned when no object exists under a key.
var ErrNotFound = errors.New("blob: not found")

// DefaultURLExpiry is used by URL when expiry is zero.
const DefaultURLExpiry = 15 * time.Minute

// Store is an object store keyed by slash-separated paths.
type Store interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Delete(ctx context.Context, key string) error
	// URL returns a time-limited download URL for key.
	URL(ctx context.Context, key string, expiry time.Duration) (string, error)
}

// AttachmentKey is the object key of a document attachment.
func AttachmentKey(orgID, documentID, attachmentID, filename string) string {
	return strings.Join([]string{"orgs", orgID, "documents", documentID, attachmentID, url.PathEscape(SafeName(filename))}, "/")
}

// SafeName reduces filename to its base name; empty and dot names become "file".
func SafeName(filename string) string {
	name := path.Base(strings.ReplaceAll(strings.TrimSpace(filename), "\\", "/"))
	if name == "." || name == "/" || name == ".." || name == "" {
		return "file"
	}
	return name
}
