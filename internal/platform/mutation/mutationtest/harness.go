// Package mutationtest wires a mutation.Pipeline over in-memory collaborators for handler tests.
package mutationtest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/foozio/prodmatic-sub002/internal/audit"
	"github.com/foozio/prodmatic-sub002/internal/audit/audittest"
	membershipdomain "github.com/foozio/prodmatic-sub002/internal/membership/domain"
	"github.com/foozio/prodmatic-sub002/internal/platform/mutation"
	"github.com/foozio/prodmatic-sub002/internal/platform/rbac"
	"github.com/foozio/prodmatic-sub002/internal/policy/engine"
	"github.com/foozio/prodmatic-sub002/internal/revalidate"
	"github.com/foozio/prodmatic-sub002/internal/server/interceptors"
	"github.com/foozio/prodmatic-sub002/internal/session"
	telemetrydomain "github.com/foozio/prodmatic-sub002/internal/telemetry/domain"
	userdomain "github.com/foozio/prodmatic-sub002/internal/user/domain"
)

// Memberships is an in-memory membership and user store.
type Memberships struct {
	mu    sync.Mutex
	byKey map[string]*membershipdomain.Membership
	users map[string]*userdomain.User
}

func NewMemberships() *Memberships {
	return &Memberships{
		byKey: make(map[string]*membershipdomain.Membership),
		users: make(map[string]*userdomain.User),
	}
}

// Add makes userID a member of orgID with role, creating an active user when needed. An
// existing membership keeps its id and takes the new role.
func (m *Memberships) Add(userID, orgID string, role membershipdomain.Role) *membershipdomain.Membership {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ensureUser(userID)
	now := time.Now().UTC()
	if cur, ok := m.byKey[userID+":"+orgID]; ok {
		cur.Role, cur.UpdatedAt = role, now
		return cur
	}
	mem := &membershipdomain.Membership{
		ID: uuid.NewString(), UserID: userID, OrgID: orgID, Role: role, CreatedAt: now, UpdatedAt: now,
	}
	m.byKey[userID+":"+orgID] = mem
	return mem
}

// AddUser registers an active user with no memberships.
func (m *Memberships) AddUser(userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ensureUser(userID)
}

// Remove drops userID's membership in orgID.
func (m *Memberships) Remove(userID, orgID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.byKey, userID+":"+orgID)
}

func (m *Memberships) ensureUser(userID string) {
	if _, ok := m.users[userID]; ok {
		return
	}
	now := time.Now().UTC()
	m.users[userID] = &userdomain.User{
		ID: userID, Email: userID + "@example.com", Name: userID,
		Status: userdomain.UserStatusActive, CreatedAt: now, UpdatedAt: now,
	}
}

func (m *Memberships) GetByID(ctx context.Context, id string) (*userdomain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.users[id], nil
}

func (m *Memberships) GetMembershipByUserAndOrg(ctx context.Context, userID, orgID string) (*membershipdomain.Membership, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.byKey[userID+":"+orgID], nil
}

func (m *Memberships) ListMembershipsByUser(ctx context.Context, userID string) ([]*membershipdomain.Membership, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*membershipdomain.Membership
	for _, mem := range m.byKey {
		if mem.UserID == userID {
			out = append(out, mem)
		}
	}
	return out, nil
}

// ListByOrg returns orgID's memberships, oldest first.
func (m *Memberships) ListByOrg(orgID string) []*membershipdomain.Membership {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*membershipdomain.Membership
	for _, mem := range m.byKey {
		if mem.OrgID == orgID {
			out = append(out, mem)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].UserID < out[j].UserID
	})
	return out
}

// Tx runs fn directly and counts commits and rollbacks.
type Tx struct {
	mu        sync.Mutex
	Commits   int
	Rollbacks int
}

func (t *Tx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	err := fn(ctx)
	t.mu.Lock()
	defer t.mu.Unlock()
	if err != nil {
		t.Rollbacks++
	} else {
		t.Commits++
	}
	return err
}

// Sink captures emitted events.
type Sink struct {
	mu     sync.Mutex
	events []*telemetrydomain.ActivityEvent
}

func (s *Sink) Emit(events ...*telemetrydomain.ActivityEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, events...)
}

func (s *Sink) Events() []*telemetrydomain.ActivityEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*telemetrydomain.ActivityEvent(nil), s.events...)
}

// Harness is a pipeline over in-memory stores.
type Harness struct {
	Pipeline    *mutation.Pipeline
	Memberships *Memberships
	Audit       *audittest.Repository
	Tx          *Tx
	Events      *Sink
	Cache       *revalidate.ViewCache
}

// Option customizes the pipeline dependencies before it is built.
type Option func(*mutation.Deps)

// WithPolicy installs a policy evaluator.
func WithPolicy(e engine.Evaluator) Option {
	return func(d *mutation.Deps) { d.Policy = e }
}

// New returns a Harness with no members.
func New(opts ...Option) *Harness {
	h := &Harness{
		Memberships: NewMemberships(),
		Audit:       &audittest.Repository{},
		Tx:          &Tx{},
		Events:      &Sink{},
		Cache:       revalidate.NewViewCache(time.Minute),
	}
	resolver := session.NewResolver(h.Memberships, h.Memberships)
	deps := mutation.Deps{
		Principals:  resolver,
		Guard:       rbac.NewGuard(session.NewMemoGetter(resolver, h.Memberships)),
		Tx:          h.Tx,
		Audit:       audit.NewRecorder(h.Audit, nil),
		Invalidator: h.Cache,
		Events:      h.Events,
	}
	for _, o := range opts {
		o(&deps)
	}
	h.Pipeline = mutation.New(deps)
	return h
}

// Ctx returns a request context authenticated as userID.
func Ctx(userID string) context.Context {
	ctx := interceptors.WithIdentity(context.Background(), userID, "session-"+userID)
	return session.WithScope(ctx)
}

// Anonymous returns a request context with no identity.
func Anonymous() context.Context {
	return session.WithScope(context.Background())
}
