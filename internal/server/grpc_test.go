package server

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	authv1 "github.com/foozio/prodmatic-sub002/api/auth/v1"
	healthv1 "github.com/foozio/prodmatic-sub002/api/health/v1"
	productv1 "github.com/foozio/prodmatic-sub002/api/product/v1"
	"github.com/foozio/prodmatic-sub002/api/rpc"
	userv1 "github.com/foozio/prodmatic-sub002/api/user/v1"
	"github.com/foozio/prodmatic-sub002/internal/platform/mutation/mutationtest"
	"github.com/foozio/prodmatic-sub002/internal/security"
	sessiondomain "github.com/foozio/prodmatic-sub002/internal/session/domain"
	sessionrepo "github.com/foozio/prodmatic-sub002/internal/session/repository"
	userdomain "github.com/foozio/prodmatic-sub002/internal/user/domain"
	userrepo "github.com/foozio/prodmatic-sub002/internal/user/repository"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// mockServiceRegistrar implements grpc.ServiceRegistrar for testing.
type mockServiceRegistrar struct {
	services []string
}

func (m *mockServiceRegistrar) RegisterService(desc *grpc.ServiceDesc, impl interface{}) {
	m.services = append(m.services, desc.ServiceName)
}

func TestRegisterServices_AllServicesRegistered(t *testing.T) {
	reg := &mockServiceRegistrar{}
	RegisterServices(reg, Deps{})

	assert.Len(t, reg.services, 17)
	assert.Contains(t, reg.services, productv1.ServiceName)
	assert.Contains(t, reg.services, healthv1.ServiceName)
}

func TestRegisterServices_RegistryForwards(t *testing.T) {
	next := &mockServiceRegistrar{}
	reg := rpc.NewRegistry(next)
	RegisterServices(reg, Deps{})

	assert.Len(t, next.services, 17)
	_, ok := reg.Lookup(productv1.ServiceName, "CreateProduct")
	assert.True(t, ok)
	_, ok = reg.Lookup(productv1.ServiceName, "Nope")
	assert.False(t, ok)
}

func TestPublicMethods(t *testing.T) {
	public := PublicMethods()
	assert.True(t, public[healthv1.HealthCheckMethod])
	assert.True(t, public[rpc.FullMethod(authv1.ServiceName, "Login")])
	assert.False(t, public[rpc.FullMethod(authv1.ServiceName, "Logout")])
	assert.False(t, public[rpc.FullMethod(productv1.ServiceName, "ListProducts")])
}

type users struct {
	userrepo.Repository
	byID map[string]*userdomain.User
}

func (u users) GetByID(_ context.Context, id string) (*userdomain.User, error) {
	return u.byID[id], nil
}

type sessions struct {
	sessionrepo.Repository
	byID map[string]*sessiondomain.Session
}

func (s sessions) GetByID(_ context.Context, id string) (*sessiondomain.Session, error) {
	return s.byID[id], nil
}

type testEnv struct {
	conn   *grpc.ClientConn
	tokens *security.TokenProvider
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	tokens, err := security.NewTestTokenProvider()
	require.NoError(t, err)

	h := mutationtest.New()
	h.Memberships.Add("u1", "org-1", "ADMIN")
	now := time.Now()
	revokedAt := now.Add(-time.Minute)
	sess := sessions{byID: map[string]*sessiondomain.Session{
		"s1":      {ID: "s1", UserID: "u1", ExpiresAt: now.Add(time.Hour)},
		"revoked": {ID: "revoked", UserID: "u1", ExpiresAt: now.Add(time.Hour), RevokedAt: &revokedAt},
	}}

	srv := NewGRPCServer(UnaryChain(ChainConfig{Tokens: tokens, Sessions: SessionValidator(sess, nil)}))
	RegisterServices(srv, Deps{
		Pipeline: h.Pipeline,
		Users:    users{byID: map[string]*userdomain.User{"u1": {ID: "u1", Email: "u1@example.com", Name: "U One", Status: "ACTIVE"}}},
		Sessions: sess,
	})

	lis := bufconn.Listen(1 << 20)
	go func() { _ = srv.Serve(lis) }()
	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = conn.Close()
		srv.Stop()
	})
	return &testEnv{conn: conn, tokens: tokens}
}

func (e *testEnv) authed(t *testing.T, sessionID string) context.Context {
	t.Helper()
	issued, err := e.tokens.IssueAccess(sessionID, "u1")
	require.NoError(t, err)
	return metadata.AppendToOutgoingContext(context.Background(), "authorization", "Bearer "+issued.Token)
}

func TestGRPC_HealthCheckIsPublic(t *testing.T) {
	env := newTestEnv(t)
	resp, err := rpc.Invoke[healthv1.HealthCheckResponse](context.Background(), env.conn,
		healthv1.ServiceName, "HealthCheck", &healthv1.HealthCheckRequest{})
	require.NoError(t, err)
	assert.Equal(t, healthv1.StatusServing, resp.Status)
}

func TestGRPC_ProtectedMethodRequiresToken(t *testing.T) {
	env := newTestEnv(t)
	_, err := rpc.Invoke[userv1.GetMeResponse](context.Background(), env.conn,
		userv1.ServiceName, "GetMe", &userv1.GetMeRequest{})
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
}

func TestGRPC_RevokedSessionRejected(t *testing.T) {
	env := newTestEnv(t)
	_, err := rpc.Invoke[userv1.GetMeResponse](env.authed(t, "revoked"), env.conn,
		userv1.ServiceName, "GetMe", &userv1.GetMeRequest{})
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
}

func TestGRPC_GetMeWithToken(t *testing.T) {
	env := newTestEnv(t)
	resp, err := rpc.Invoke[userv1.GetMeResponse](env.authed(t, "s1"), env.conn,
		userv1.ServiceName, "GetMe", &userv1.GetMeRequest{})
	require.NoError(t, err)
	require.NotNil(t, resp.User)
	assert.Equal(t, "u1@example.com", resp.User.Email)
	require.Len(t, resp.Memberships, 1)
	assert.Equal(t, "org-1", resp.Memberships[0].OrgID)
}

func TestGRPC_AuthWithoutServiceIsUnimplemented(t *testing.T) {
	env := newTestEnv(t)
	_, err := rpc.Invoke[authv1.AuthResponse](context.Background(), env.conn,
		authv1.ServiceName, "Login", &authv1.LoginRequest{Email: "a@b.c", Password: "x"})
	assert.Equal(t, codes.Unimplemented, status.Code(err))
}
