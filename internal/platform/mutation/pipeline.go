// Package mutation runs every state-changing operation through one sequence: resolve the
// principal, validate, authorize, apply and audit in a single transaction, then signal cache
// invalidation and publish activity events after commit.
package mutation

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	auditdomain "github.com/foozio/prodmatic-sub002/internal/audit/domain"
	membershipdomain "github.com/foozio/prodmatic-sub002/internal/membership/domain"
	"github.com/foozio/prodmatic-sub002/internal/metrics"
	"github.com/foozio/prodmatic-sub002/internal/platform/apperr"
	"github.com/foozio/prodmatic-sub002/internal/platform/rbac"
	"github.com/foozio/prodmatic-sub002/internal/policy/engine"
	"github.com/foozio/prodmatic-sub002/internal/revalidate"
	"github.com/foozio/prodmatic-sub002/internal/server/interceptors"
	"github.com/foozio/prodmatic-sub002/internal/session"
	telemetrydomain "github.com/foozio/prodmatic-sub002/internal/telemetry/domain"
)

// PrincipalResolver returns the caller of the current request.
type PrincipalResolver interface {
	Principal(ctx context.Context) (*session.Principal, error)
}

// TxRunner runs fn inside a transaction carried by ctx.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Recorder appends one activity entry through the transaction in ctx.
type Recorder interface {
	Record(ctx context.Context, e auditdomain.Entry) (*auditdomain.Entry, error)
}

// EventSink receives the committed activity as events. Implementations must not block.
type EventSink interface {
	Emit(events ...*telemetrydomain.ActivityEvent)
}

// Deps are the collaborators of a Pipeline. Policy, Invalidator, Events and Metrics are optional.
type Deps struct {
	Principals  PrincipalResolver
	Guard       *rbac.Guard
	Policy      engine.Evaluator
	Tx          TxRunner
	Audit       Recorder
	Invalidator revalidate.Invalidator
	Events      EventSink
	Metrics     *metrics.Metrics
	Log         *zap.Logger
}

// Pipeline holds the shared collaborators of every mutation.
type Pipeline struct {
	deps Deps
	now  func() time.Time
}

// New returns a Pipeline.
func New(deps Deps) *Pipeline {
	if deps.Log == nil {
		deps.Log = zap.NewNop()
	}
	return &Pipeline{deps: deps, now: time.Now}
}

// Now returns the pipeline clock in UTC. Apply functions use it for timestamps.
func (p *Pipeline) Now() time.Time {
	return p.now().UTC()
}

// Result describes what Apply changed.
type Result struct {
	// OrgID overrides the organization recorded in the audit trail, e.g. for a newly created
	// organization or for profile edits recorded under the system organization.
	OrgID string
	// EntityIDs receive one audit entry each.
	EntityIDs []string
	Metadata  map[string]any
	// Paths are invalidated after commit.
	Paths []string
}

// Op is one mutation.
type Op[In, Out any] struct {
	Action     string
	EntityType string
	// MinRole is the least role allowed to run the operation in the target organization. Empty
	// means any authenticated user, with no organization check.
	MinRole membershipdomain.Role
	// SkipPolicy bypasses the organization policy overlay. Used by policy management so a
	// broken policy can always be repaired.
	SkipPolicy bool
	Validate   func(in *In) error
	Apply      func(ctx context.Context, p *session.Principal, in *In) (*Out, Result, error)
}

// Run executes op against orgID.
func Run[In, Out any](ctx context.Context, p *Pipeline, orgID string, op Op[In, Out], in *In) (*Out, error) {
	out, err := run(ctx, p, orgID, op, in)
	p.deps.Metrics.ObserveMutation(op.EntityType, op.Action, outcome(err))
	return out, err
}

func run[In, Out any](ctx context.Context, p *Pipeline, orgID string, op Op[In, Out], in *In) (*Out, error) {
	principal, err := p.deps.Principals.Principal(ctx)
	if err != nil {
		return nil, err
	}
	if in == nil {
		in = new(In)
	}
	if op.Validate != nil {
		if err := op.Validate(in); err != nil {
			return nil, err
		}
	}
	if op.MinRole != "" {
		if err := p.authorize(ctx, principal, orgID, op.Action, op.EntityType, op.MinRole, op.SkipPolicy); err != nil {
			return nil, err
		}
	}

	var (
		out     *Out
		res     Result
		entries []*auditdomain.Entry
	)
	err = p.deps.Tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		out, res, err = op.Apply(ctx, principal, in)
		if err != nil {
			return err
		}
		auditOrg := orgID
		if res.OrgID != "" {
			auditOrg = res.OrgID
		}
		entries = entries[:0]
		for _, id := range res.EntityIDs {
			e, err := p.deps.Audit.Record(ctx, auditdomain.Entry{
				OrgID:      auditOrg,
				ActorID:    principal.UserID,
				Action:     op.Action,
				EntityType: op.EntityType,
				EntityID:   id,
				Metadata:   res.Metadata,
			})
			if err != nil {
				return err
			}
			entries = append(entries, e)
		}
		return nil
	})
	if err != nil {
		return nil, apperr.Storage(op.EntityType+" "+op.Action, err)
	}

	p.afterCommit(ctx, orgID, res, entries)
	return out, nil
}

// authorize applies the role guard, then the org policy overlay. Policy evaluation failures deny.
func (p *Pipeline) authorize(ctx context.Context, principal *session.Principal, orgID, action, entityType string, min membershipdomain.Role, skipPolicy bool) error {
	m, err := p.deps.Guard.Require(ctx, principal.UserID, orgID, min)
	if err != nil {
		return err
	}
	if skipPolicy || p.deps.Policy == nil {
		return nil
	}
	msgs, err := p.deps.Policy.Deny(ctx, engine.Input{
		UserID:     principal.UserID,
		OrgID:      orgID,
		Role:       string(m.Role),
		Action:     action,
		EntityType: entityType,
	})
	if err != nil {
		p.deps.Log.Warn("mutation: policy evaluation failed, denying",
			zap.String("org_id", orgID),
			zap.String("entity_type", entityType),
			zap.String("action", action),
			zap.Error(err))
		return apperr.Unauthorized("organization policy could not be evaluated")
	}
	if len(msgs) > 0 {
		return apperr.Unauthorized(msgs[0])
	}
	return nil
}

// Authorize resolves the caller and checks min in orgID without a mutation. Read handlers use
// it. An empty min only requires an authenticated, active user.
func (p *Pipeline) Authorize(ctx context.Context, orgID string, min membershipdomain.Role) (*session.Principal, error) {
	principal, err := p.deps.Principals.Principal(ctx)
	if err != nil {
		return nil, err
	}
	if min == "" {
		return principal, nil
	}
	if _, err := rbac.RequireOrgRole(ctx, p.deps.Guard, orgID, min); err != nil {
		return nil, err
	}
	return principal, nil
}

func (p *Pipeline) afterCommit(ctx context.Context, orgID string, res Result, entries []*auditdomain.Entry) {
	if p.deps.Invalidator != nil && len(res.Paths) > 0 {
		target := orgID
		if res.OrgID != "" {
			target = res.OrgID
		}
		if err := p.deps.Invalidator.Invalidate(ctx, target, res.Paths); err != nil {
			p.deps.Log.Warn("mutation: cache invalidation failed",
				zap.String("org_id", target),
				zap.Strings("paths", res.Paths),
				zap.Error(err))
		}
	}
	if p.deps.Events == nil || len(entries) == 0 {
		return
	}
	requestID := interceptors.GetRequestID(ctx)
	events := make([]*telemetrydomain.ActivityEvent, len(entries))
	for i, e := range entries {
		events[i] = &telemetrydomain.ActivityEvent{
			ID:         e.ID,
			OrgID:      e.OrgID,
			ActorID:    e.ActorID,
			Action:     e.Action,
			EntityType: e.EntityType,
			EntityID:   e.EntityID,
			Metadata:   e.Metadata,
			IP:         e.IP,
			RequestID:  requestID,
			OccurredAt: e.CreatedAt,
		}
	}
	p.deps.Events.Emit(events...)
}

func outcome(err error) string {
	var ua *apperr.UnauthenticatedError
	switch {
	case err == nil:
		return metrics.OutcomeOK
	case apperr.IsValidation(err):
		return metrics.OutcomeInvalid
	case apperr.IsUnauthorized(err), errors.As(err, &ua):
		return metrics.OutcomeUnauthorized
	default:
		return metrics.OutcomeError
	}
}
