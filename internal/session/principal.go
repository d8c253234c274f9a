// Package session resolves the authenticated principal of a request and its memberships.
// The result is memoized in a request scope so every role check within one request reuses a
// single lookup; nothing is cached across requests.
package session

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	membershipdomain "github.com/foozio/prodmatic-sub002/internal/membership/domain"
	"github.com/foozio/prodmatic-sub002/internal/platform/apperr"
	"github.com/foozio/prodmatic-sub002/internal/server/interceptors"
	userdomain "github.com/foozio/prodmatic-sub002/internal/user/domain"
)

// Principal is the authenticated user of a request together with every organization membership.
type Principal struct {
	UserID      string
	SessionID   string
	Email       string
	Name        string
	Memberships map[string]*membershipdomain.Membership // keyed by org id
}

// Membership returns the principal's membership in orgID, or nil.
func (p *Principal) Membership(orgID string) *membershipdomain.Membership {
	if p == nil {
		return nil
	}
	return p.Memberships[orgID]
}

// UserGetter loads users by id.
type UserGetter interface {
	GetByID(ctx context.Context, id string) (*userdomain.User, error)
}

// MembershipLister lists a user's memberships.
type MembershipLister interface {
	ListMembershipsByUser(ctx context.Context, userID string) ([]*membershipdomain.Membership, error)
}

// Resolver builds the Principal for the user id set by the auth interceptor.
type Resolver struct {
	users       UserGetter
	memberships MembershipLister
}

// NewResolver returns a Resolver over the given repositories.
func NewResolver(users UserGetter, memberships MembershipLister) *Resolver {
	return &Resolver{users: users, memberships: memberships}
}

type scopeKey struct{}

type scope struct {
	mu        sync.Mutex
	principal *Principal
}

// WithScope installs an empty request scope. The gRPC server adds it to every request through
// interceptors.ContextUnary.
func WithScope(ctx context.Context) context.Context {
	if _, ok := ctx.Value(scopeKey{}).(*scope); ok {
		return ctx
	}
	return context.WithValue(ctx, scopeKey{}, &scope{})
}

// Forget drops the memoized principal so the next call reloads it. Used after a request
// changes the caller's own memberships.
func Forget(ctx context.Context) {
	if s, ok := ctx.Value(scopeKey{}).(*scope); ok {
		s.mu.Lock()
		s.principal = nil
		s.mu.Unlock()
	}
}

// Principal returns the caller's Principal. Without an authenticated user, or when the user is
// disabled or deleted, it returns *apperr.UnauthenticatedError. Load failures are StorageErrors.
func (r *Resolver) Principal(ctx context.Context) (*Principal, error) {
	userID, ok := interceptors.GetUserID(ctx)
	if !ok {
		return nil, &apperr.UnauthenticatedError{}
	}
	s, scoped := ctx.Value(scopeKey{}).(*scope)
	if scoped {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.principal != nil && s.principal.UserID == userID {
			return s.principal, nil
		}
	}
	p, err := r.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	p.SessionID, _ = interceptors.GetSessionID(ctx)
	if scoped {
		s.principal = p
	}
	return p, nil
}

func (r *Resolver) load(ctx context.Context, userID string) (*Principal, error) {
	var (
		user        *userdomain.User
		memberships []*membershipdomain.Membership
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		user, err = r.users.GetByID(gctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		memberships, err = r.memberships.ListMembershipsByUser(gctx, userID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, &apperr.StorageError{Op: "resolve principal", Err: err}
	}
	if !user.Active() {
		return nil, &apperr.UnauthenticatedError{}
	}
	p := &Principal{
		UserID:      user.ID,
		Email:       user.Email,
		Name:        user.Name,
		Memberships: make(map[string]*membershipdomain.Membership, len(memberships)),
	}
	for _, m := range memberships {
		p.Memberships[m.OrgID] = m
	}
	return p, nil
}

// MemoGetter serves the guard's membership lookups from the request's Principal. Lookups for
// any other user fall through to the repository.
type MemoGetter struct {
	resolver *Resolver
	fallback interface {
		GetMembershipByUserAndOrg(ctx context.Context, userID, orgID string) (*membershipdomain.Membership, error)
	}
}

// NewMemoGetter returns a MemoGetter. fallback answers lookups for users other than the caller.
func NewMemoGetter(resolver *Resolver, fallback interface {
	GetMembershipByUserAndOrg(ctx context.Context, userID, orgID string) (*membershipdomain.Membership, error)
}) *MemoGetter {
	return &MemoGetter{resolver: resolver, fallback: fallback}
}

// GetMembershipByUserAndOrg implements rbac.OrgMembershipGetter.
func (g *MemoGetter) GetMembershipByUserAndOrg(ctx context.Context, userID, orgID string) (*membershipdomain.Membership, error) {
	if caller, ok := interceptors.GetUserID(ctx); ok && caller == userID {
		p, err := g.resolver.Principal(ctx)
		if err != nil {
			return nil, err
		}
		return p.Membership(orgID), nil
	}
	if g.fallback == nil {
		return nil, nil
	}
	return g.fallback.GetMembershipByUserAndOrg(ctx, userID, orgID)
}
