// Package audit appends activity entries. Recorder writes inside the caller's transaction and
// fails the mutation when the write fails; Logger is the best-effort variant for sign-in events
// that have no surrounding mutation.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/foozio/prodmatic-sub002/internal/audit/domain"
	auditrepo "github.com/foozio/prodmatic-sub002/internal/audit/repository"
	"github.com/foozio/prodmatic-sub002/internal/platform/apperr"
)

// IPExtractor returns the client IP from the request context (e.g. gRPC metadata or peer).
type IPExtractor func(context.Context) string

// Recorder appends entries through the transaction carried by ctx.
type Recorder struct {
	repo        auditrepo.Repository
	ipExtractor IPExtractor
	now         func() time.Time
}

// NewRecorder returns a Recorder that persists to repo. ipExtractor may be nil; then IP is
// recorded as "unknown".
func NewRecorder(repo auditrepo.Repository, ipExtractor IPExtractor) *Recorder {
	return &Recorder{repo: repo, ipExtractor: ipExtractor, now: time.Now}
}

// Record fills in id, IP and timestamp and appends e. A failed write is a *apperr.StorageError.
func (r *Recorder) Record(ctx context.Context, e domain.Entry) (*domain.Entry, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.OrgID == "" {
		e.OrgID = domain.SystemOrgID
	}
	if e.IP == "" {
		e.IP = "unknown"
		if r.ipExtractor != nil {
			e.IP = r.ipExtractor(ctx)
		}
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = r.now().UTC()
	}
	if err := r.repo.Create(ctx, &e); err != nil {
		return nil, &apperr.StorageError{Op: "record activity", Err: err}
	}
	return &e, nil
}

// AuditLogger writes a single audit event outside any mutation. Failures are logged, not returned.
type AuditLogger interface {
	LogEvent(ctx context.Context, orgID, userID, action, entityType, entityID string, metadata map[string]any)
}

// Logger implements AuditLogger on top of a Recorder.
type Logger struct {
	rec *Recorder
	log *zap.Logger
}

// NewLogger returns a best-effort AuditLogger.
func NewLogger(rec *Recorder, log *zap.Logger) *Logger {
	if log == nil {
		log = zap.NewNop()
	}
	return &Logger{rec: rec, log: log}
}

// LogEvent writes one entry. An empty orgID is recorded under domain.SystemOrgID.
func (l *Logger) LogEvent(ctx context.Context, orgID, userID, action, entityType, entityID string, metadata map[string]any) {
	if l == nil || l.rec == nil {
		return
	}
	_, err := l.rec.Record(ctx, domain.Entry{
		OrgID:      orgID,
		ActorID:    userID,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Metadata:   metadata,
	})
	if err != nil {
		l.log.Warn("audit: failed to log event",
			zap.String("action", action),
			zap.String("entity_type", entityType),
			zap.Error(err))
	}
}
