package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auditdomain "github.com/foozio/prodmatic-sub002/internal/audit/domain"
	identitydomain "github.com/foozio/prodmatic-sub002/internal/identity/domain"
	"github.com/foozio/prodmatic-sub002/internal/platform/apperr"
	"github.com/foozio/prodmatic-sub002/internal/security"
	"github.com/foozio/prodmatic-sub002/internal/server/interceptors"
	sessiondomain "github.com/foozio/prodmatic-sub002/internal/session/domain"
	userdomain "github.com/foozio/prodmatic-sub002/internal/user/domain"
)

const goodPassword = "Correct-Horse-42"

type memUserRepo struct {
	mu      sync.Mutex
	byID    map[string]*userdomain.User
	byEmail map[string]*userdomain.User
}

func (r *memUserRepo) GetByID(ctx context.Context, id string) (*userdomain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.byID[id], nil
}

func (r *memUserRepo) GetByEmail(ctx context.Context, email string) (*userdomain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.byEmail[email], nil
}

func (r *memUserRepo) Create(ctx context.Context, u *userdomain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[u.ID] = u
	r.byEmail[u.Email] = u
	return nil
}

type memIdentityRepo struct {
	mu sync.Mutex
	m  map[string]*identitydomain.Identity
}

func (r *memIdentityRepo) GetByUserAndProvider(ctx context.Context, userID string, provider identitydomain.IdentityProvider) (*identitydomain.Identity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, i := range r.m {
		if i.UserID == userID && i.Provider == provider {
			return i, nil
		}
	}
	return nil, nil
}

func (r *memIdentityRepo) GetByProviderID(ctx context.Context, provider identitydomain.IdentityProvider, providerID string) (*identitydomain.Identity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, i := range r.m {
		if i.Provider == provider && i.ProviderID == providerID {
			return i, nil
		}
	}
	return nil, nil
}

func (r *memIdentityRepo) Create(ctx context.Context, i *identitydomain.Identity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.m[i.ID] = i
	return nil
}

type memSessionRepo struct {
	mu sync.Mutex
	m  map[string]*sessiondomain.Session
}

func (r *memSessionRepo) GetByID(ctx context.Context, id string) (*sessiondomain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.m[id]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, nil
}

func (r *memSessionRepo) Create(ctx context.Context, s *sessiondomain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *s
	r.m[s.ID] = &cp
	return nil
}

func (r *memSessionRepo) Revoke(ctx context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.m[id]; ok && s.RevokedAt == nil {
		s.RevokedAt = &at
	}
	return nil
}

func (r *memSessionRepo) RevokeAllByUser(ctx context.Context, userID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.m {
		if s.UserID == userID && s.RevokedAt == nil {
			s.RevokedAt = &at
		}
	}
	return nil
}

func (r *memSessionRepo) UpdateRefreshToken(ctx context.Context, sessionID, prevJti, jti, hash string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.m[sessionID]
	if !ok || s.RefreshJti != prevJti || s.RevokedAt != nil {
		return false, nil
	}
	s.RefreshJti, s.RefreshTokenHash = jti, hash
	return true, nil
}

func (r *memSessionRepo) UpdateLastSeen(ctx context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.m[id]; ok {
		s.LastSeenAt = &at
	}
	return nil
}

func (r *memSessionRepo) revoked(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.m[id].RevokedAt != nil
}

// snapshotTx restores the fixture's repositories when fn fails.
type snapshotTx struct{ f *fixture }

func (tx snapshotTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	f := tx.f
	users, emails := copyMap(f.users.byID), copyMap(f.users.byEmail)
	idents, sessions := copyMap(f.identities.m), copyMap(f.sessions.m)
	entries := len(f.recorder.entries)
	if err := fn(ctx); err != nil {
		f.users.byID, f.users.byEmail = users, emails
		f.identities.m, f.sessions.m = idents, sessions
		f.recorder.entries = f.recorder.entries[:entries]
		return err
	}
	return nil
}

func copyMap[V any](m map[string]V) map[string]V {
	out := make(map[string]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

type memRecorder struct {
	err     error
	entries []auditdomain.Entry
}

func (r *memRecorder) Record(ctx context.Context, e auditdomain.Entry) (*auditdomain.Entry, error) {
	if r.err != nil {
		return nil, r.err
	}
	r.entries = append(r.entries, e)
	return &e, nil
}

func (r *memRecorder) actions() []string {
	out := make([]string, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.Action
	}
	return out
}

type loggedEvent struct {
	orgID, userID, action, entityType, entityID string
}

type memEvents struct {
	mu     sync.Mutex
	events []loggedEvent
}

func (m *memEvents) LogEvent(ctx context.Context, orgID, userID, action, entityType, entityID string, _ map[string]any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, loggedEvent{orgID, userID, action, entityType, entityID})
}

func (m *memEvents) actions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.events))
	for i, e := range m.events {
		out[i] = e.action
	}
	return out
}

type fakeVerifier struct {
	claims *IDTokenClaims
	err    error
}

func (f *fakeVerifier) Verify(ctx context.Context, raw string) (*IDTokenClaims, error) {
	return f.claims, f.err
}

type fixture struct {
	svc        *AuthService
	users      *memUserRepo
	identities *memIdentityRepo
	sessions   *memSessionRepo
	recorder   *memRecorder
	events     *memEvents
}

func newFixture(t *testing.T, verifier IDTokenVerifier) *fixture {
	t.Helper()
	tokens, err := security.NewTestTokenProvider()
	require.NoError(t, err)
	f := &fixture{
		users:      &memUserRepo{byID: map[string]*userdomain.User{}, byEmail: map[string]*userdomain.User{}},
		identities: &memIdentityRepo{m: map[string]*identitydomain.Identity{}},
		sessions:   &memSessionRepo{m: map[string]*sessiondomain.Session{}},
		recorder:   &memRecorder{},
		events:     &memEvents{},
	}
	f.svc = NewAuthService(Deps{
		Users:      f.users,
		Identities: f.identities,
		Sessions:   f.sessions,
		Tx:         snapshotTx{f: f},
		Hasher:     security.NewHasher(4),
		Tokens:     tokens,
		RefreshTTL: 24 * time.Hour,
		OIDC:       verifier,
		Recorder:   f.recorder,
		Audit:      f.events,
	})
	return f
}

func TestRegister_CreatesUserIdentityAndSession(t *testing.T) {
	f := newFixture(t, nil)
	res, err := f.svc.Register(context.Background(), " Ada@Example.com ", goodPassword, "Ada")
	require.NoError(t, err)
	assert.NotEmpty(t, res.AccessToken)
	assert.NotEmpty(t, res.RefreshToken)

	u, _ := f.users.GetByEmail(context.Background(), "ada@example.com")
	require.NotNil(t, u)
	assert.Equal(t, res.UserID, u.ID)
	ident, _ := f.identities.GetByUserAndProvider(context.Background(), u.ID, identitydomain.IdentityProviderLocal)
	require.NotNil(t, ident)
	assert.NotEqual(t, goodPassword, ident.PasswordHash)
	sess, _ := f.sessions.GetByID(context.Background(), res.SessionID)
	require.NotNil(t, sess)
	assert.True(t, security.SecretMatches(res.RefreshToken, sess.RefreshTokenHash))
	require.Len(t, f.recorder.entries, 1)
	e := f.recorder.entries[0]
	assert.Equal(t, "register", e.Action)
	assert.Equal(t, u.ID, e.EntityID)
	assert.Equal(t, auditdomain.SystemOrgID, e.OrgID)
	assert.Empty(t, f.events.actions())
}

func TestRegister_AuditFailureRollsBack(t *testing.T) {
	f := newFixture(t, nil)
	f.recorder.err = errors.New("audit insert failed")

	_, err := f.svc.Register(context.Background(), "ada@example.com", goodPassword, "Ada")
	require.Error(t, err)

	u, _ := f.users.GetByEmail(context.Background(), "ada@example.com")
	assert.Nil(t, u, "the user row is rolled back with the audit entry")
	assert.Empty(t, f.identities.m)
	assert.Empty(t, f.sessions.m)

	f.recorder.err = nil
	_, err = f.svc.Register(context.Background(), "ada@example.com", goodPassword, "Ada")
	require.NoError(t, err)
	assert.Equal(t, []string{"register"}, f.recorder.actions())
}

func TestRegister_Validation(t *testing.T) {
	f := newFixture(t, nil)
	_, err := f.svc.Register(context.Background(), "not-an-email", "short", "Ada")
	var ve *apperr.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.NotEmpty(t, ve.Field("email"))
	assert.NotEmpty(t, ve.Field("password"))
}

func TestRegister_DuplicateEmail(t *testing.T) {
	f := newFixture(t, nil)
	_, err := f.svc.Register(context.Background(), "ada@example.com", goodPassword, "Ada")
	require.NoError(t, err)
	_, err = f.svc.Register(context.Background(), "ADA@example.com", goodPassword, "Ada")
	assert.ErrorIs(t, err, ErrEmailAlreadyRegistered)
}

func TestLogin(t *testing.T) {
	f := newFixture(t, nil)
	_, err := f.svc.Register(context.Background(), "ada@example.com", goodPassword, "Ada")
	require.NoError(t, err)

	res, err := f.svc.Login(context.Background(), "ada@example.com", goodPassword)
	require.NoError(t, err)
	claims, err := f.svc.Tokens.ValidateAccess(res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, res.UserID, claims.Subject)
	assert.Equal(t, res.SessionID, claims.SessionID)

	_, err = f.svc.Login(context.Background(), "ada@example.com", "Wrong-Password-1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = f.svc.Login(context.Background(), "nobody@example.com", goodPassword)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.Equal(t, []string{"login", "login_failed"}, f.events.actions())
}

func TestLogin_DisabledUser(t *testing.T) {
	f := newFixture(t, nil)
	res, err := f.svc.Register(context.Background(), "ada@example.com", goodPassword, "Ada")
	require.NoError(t, err)
	f.users.byID[res.UserID].Status = userdomain.UserStatusDisabled

	_, err = f.svc.Login(context.Background(), "ada@example.com", goodPassword)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestRefresh_RotatesToken(t *testing.T) {
	f := newFixture(t, nil)
	first, err := f.svc.Register(context.Background(), "ada@example.com", goodPassword, "Ada")
	require.NoError(t, err)

	second, err := f.svc.Refresh(context.Background(), first.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, first.SessionID, second.SessionID)
	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)

	third, err := f.svc.Refresh(context.Background(), second.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, third.AccessToken)
}

func TestRefresh_ReuseRevokesAllSessions(t *testing.T) {
	f := newFixture(t, nil)
	first, err := f.svc.Register(context.Background(), "ada@example.com", goodPassword, "Ada")
	require.NoError(t, err)
	other, err := f.svc.Login(context.Background(), "ada@example.com", goodPassword)
	require.NoError(t, err)

	_, err = f.svc.Refresh(context.Background(), first.RefreshToken)
	require.NoError(t, err)
	_, err = f.svc.Refresh(context.Background(), first.RefreshToken)
	assert.ErrorIs(t, err, ErrRefreshTokenReuse)

	assert.True(t, f.sessions.revoked(first.SessionID))
	assert.True(t, f.sessions.revoked(other.SessionID))
	assert.Contains(t, f.events.actions(), "refresh_reuse")
}

func TestRefresh_Invalid(t *testing.T) {
	f := newFixture(t, nil)
	_, err := f.svc.Refresh(context.Background(), "")
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)
	_, err = f.svc.Refresh(context.Background(), "garbage")
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)

	res, err := f.svc.Register(context.Background(), "ada@example.com", goodPassword, "Ada")
	require.NoError(t, err)
	_, err = f.svc.Refresh(context.Background(), res.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidRefreshToken, "access tokens are not refresh tokens")
}

func TestLogout(t *testing.T) {
	f := newFixture(t, nil)
	res, err := f.svc.Register(context.Background(), "ada@example.com", goodPassword, "Ada")
	require.NoError(t, err)

	require.NoError(t, f.svc.Logout(context.Background(), res.RefreshToken))
	assert.True(t, f.sessions.revoked(res.SessionID))
	_, err = f.svc.Refresh(context.Background(), res.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)

	second, err := f.svc.Login(context.Background(), "ada@example.com", goodPassword)
	require.NoError(t, err)
	ctx := interceptors.WithIdentity(context.Background(), second.UserID, second.SessionID)
	require.NoError(t, f.svc.Logout(ctx, ""))
	assert.True(t, f.sessions.revoked(second.SessionID))

	assert.NoError(t, f.svc.Logout(context.Background(), ""), "no token is a no-op")
}

func TestOIDCLogin_CreatesThenReusesUser(t *testing.T) {
	v := &fakeVerifier{claims: &IDTokenClaims{Subject: "sub-1", Email: "grace@example.com", EmailVerified: true, Name: "Grace"}}
	f := newFixture(t, v)

	first, err := f.svc.OIDCLogin(context.Background(), "raw")
	require.NoError(t, err)
	second, err := f.svc.OIDCLogin(context.Background(), "raw")
	require.NoError(t, err)
	assert.Equal(t, first.UserID, second.UserID)
	assert.NotEqual(t, first.SessionID, second.SessionID)
	assert.Equal(t, []string{"register"}, f.recorder.actions())
	assert.Equal(t, []string{"login", "login"}, f.events.actions())
}

func TestOIDCLogin_AuditFailureRollsBackNewUser(t *testing.T) {
	v := &fakeVerifier{claims: &IDTokenClaims{Subject: "sub-1", Email: "grace@example.com", EmailVerified: true}}
	f := newFixture(t, v)
	f.recorder.err = errors.New("audit insert failed")

	_, err := f.svc.OIDCLogin(context.Background(), "raw")
	require.Error(t, err)
	u, _ := f.users.GetByEmail(context.Background(), "grace@example.com")
	assert.Nil(t, u)
	assert.Empty(t, f.identities.m)
}

func TestOIDCLogin_LinksExistingEmail(t *testing.T) {
	v := &fakeVerifier{claims: &IDTokenClaims{Subject: "sub-2", Email: "ada@example.com", EmailVerified: true}}
	f := newFixture(t, v)
	reg, err := f.svc.Register(context.Background(), "ada@example.com", goodPassword, "Ada")
	require.NoError(t, err)

	res, err := f.svc.OIDCLogin(context.Background(), "raw")
	require.NoError(t, err)
	assert.Equal(t, reg.UserID, res.UserID)
	ident, _ := f.identities.GetByProviderID(context.Background(), identitydomain.IdentityProviderOIDC, "sub-2")
	require.NotNil(t, ident)
	assert.Equal(t, reg.UserID, ident.UserID)
}

func TestOIDCLogin_Rejections(t *testing.T) {
	f := newFixture(t, nil)
	_, err := f.svc.OIDCLogin(context.Background(), "raw")
	assert.ErrorIs(t, err, ErrOIDCDisabled)

	f = newFixture(t, &fakeVerifier{err: errors.New("bad signature")})
	_, err = f.svc.OIDCLogin(context.Background(), "raw")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	f = newFixture(t, &fakeVerifier{claims: &IDTokenClaims{Subject: "s", Email: "x@example.com", EmailVerified: false}})
	_, err = f.svc.OIDCLogin(context.Background(), "raw")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}
