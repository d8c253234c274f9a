package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/grpc"

	healthv1 "github.com/foozio/prodmatic-sub002/api/health/v1"
	"github.com/foozio/prodmatic-sub002/api/rpc"
	healthhandler "github.com/foozio/prodmatic-sub002/internal/health/handler"
	"github.com/foozio/prodmatic-sub002/internal/metrics"
	"github.com/foozio/prodmatic-sub002/internal/platform/apperr"
	"github.com/foozio/prodmatic-sub002/internal/security"
	"github.com/foozio/prodmatic-sub002/internal/server/interceptors"
)

const echoService = "prodmatic.test.v1.EchoService"

type echoRequest struct {
	Name  string   `json:"name"`
	Count int32    `json:"count"`
	Tags  []string `json:"tags"`
	Fail  string   `json:"fail"`
}

type echoResponse struct {
	Name   string   `json:"name"`
	Count  int32    `json:"count"`
	Tags   []string `json:"tags"`
	UserID string   `json:"user_id"`
}

type echoServer interface {
	Echo(context.Context, *echoRequest) (*echoResponse, error)
	Whoami(context.Context, *echoRequest) (*echoResponse, error)
	Whereami(context.Context, *echoRequest) (*echoResponse, error)
}

type echo struct{}

func (echo) Echo(_ context.Context, req *echoRequest) (*echoResponse, error) {
	switch req.Fail {
	case "validation":
		var v apperr.Validator
		v.Add("name", "is required")
		return nil, v.Err()
	case "notfound":
		return nil, apperr.NotFound("product", "p1")
	case "conflict":
		return nil, apperr.Conflict("already published")
	case "forbidden":
		return nil, apperr.Unauthorized("insufficient role")
	case "panic":
		panic("boom")
	}
	return &echoResponse{Name: req.Name, Count: req.Count, Tags: req.Tags}, nil
}

func (echo) Whoami(ctx context.Context, _ *echoRequest) (*echoResponse, error) {
	userID, _ := interceptors.GetUserID(ctx)
	return &echoResponse{UserID: userID}, nil
}

func (echo) Whereami(ctx context.Context, _ *echoRequest) (*echoResponse, error) {
	return &echoResponse{Name: interceptors.ClientIP(ctx)}, nil
}

var echoDesc = grpc.ServiceDesc{
	ServiceName: echoService,
	HandlerType: (*echoServer)(nil),
	Methods: []grpc.MethodDesc{
		rpc.Unary(echoService, "Echo", echoServer.Echo),
		rpc.Unary(echoService, "Whoami", echoServer.Whoami),
		rpc.Unary(echoService, "Whereami", echoServer.Whereami),
	},
}

type fixture struct {
	handler http.Handler
	tokens  *security.TokenProvider
	metrics *metrics.Metrics
}

func newFixture(t *testing.T, limit RateLimitConfig) *fixture {
	t.Helper()
	tokens, err := security.NewTestTokenProvider()
	require.NoError(t, err)
	reg := rpc.NewRegistry()
	reg.RegisterService(&echoDesc, echo{})
	healthv1.RegisterHealthServiceServer(reg, healthhandler.NewServer(nil, nil))

	public := map[string]bool{
		rpc.FullMethod(echoService, "Echo"):     true,
		rpc.FullMethod(echoService, "Whereami"): true,
		healthv1.HealthCheckMethod:              true,
	}
	m := metrics.New()
	chain := interceptors.Chain(
		interceptors.RecoveryUnary(zap.NewNop()),
		interceptors.ErrorsUnary(zap.NewNop()),
		interceptors.AuthUnary(tokens, public, nil),
	)
	h := NewRouter(Config{
		Registry:       reg,
		Interceptor:    chain,
		Metrics:        m,
		AllowedOrigins: []string{"https://app.example.com"},
		RateLimit:      limit,
	})
	return &fixture{handler: h, tokens: tokens, metrics: m}
}

func (f *fixture) post(path, contentType, body string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", contentType)
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestGateway_FormDispatch(t *testing.T) {
	f := newFixture(t, RateLimitConfig{})
	form := url.Values{"name": {"roadmap"}, "count": {"3"}, "tags": {"a", "b"}}
	rec := f.post("/rpc/"+echoService+"/Echo", "application/x-www-form-urlencoded", form.Encode(), nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
	got := decodeBody[echoResponse](t, rec)
	assert.Equal(t, "roadmap", got.Name)
	assert.Equal(t, int32(3), got.Count)
	assert.Equal(t, []string{"a", "b"}, got.Tags)
}

func TestGateway_JSONDispatch(t *testing.T) {
	f := newFixture(t, RateLimitConfig{})
	rec := f.post("/rpc/"+echoService+"/Echo", "application/json", `{"name":"x","count":2}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int32(2), decodeBody[echoResponse](t, rec).Count)

	rec = f.post("/rpc/"+echoService+"/Echo", "application/json", `{"name":`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGateway_ErrorMapping(t *testing.T) {
	f := newFixture(t, RateLimitConfig{})
	tests := []struct {
		fail string
		code int
	}{
		{"validation", http.StatusBadRequest},
		{"notfound", http.StatusNotFound},
		{"conflict", http.StatusConflict},
		{"forbidden", http.StatusForbidden},
		{"panic", http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.fail, func(t *testing.T) {
			rec := f.post("/rpc/"+echoService+"/Echo", "application/x-www-form-urlencoded", "fail="+tt.fail, nil)
			assert.Equal(t, tt.code, rec.Code)
			body := decodeBody[errorBody](t, rec)
			assert.NotEmpty(t, body.Error)
			if tt.fail == "validation" {
				require.Len(t, body.Fields, 1)
				assert.Equal(t, fieldBody{Field: "name", Message: "is required"}, body.Fields[0])
			}
		})
	}
}

func TestGateway_FormFieldError(t *testing.T) {
	f := newFixture(t, RateLimitConfig{})
	rec := f.post("/rpc/"+echoService+"/Echo", "application/x-www-form-urlencoded", "count=many", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeBody[errorBody](t, rec)
	require.Len(t, body.Fields, 1)
	assert.Equal(t, "count", body.Fields[0].Field)
}

func TestGateway_UnknownMethod(t *testing.T) {
	f := newFixture(t, RateLimitConfig{})
	rec := f.post("/rpc/"+echoService+"/Nope", "application/json", `{}`, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGateway_AuthorizationForwarded(t *testing.T) {
	f := newFixture(t, RateLimitConfig{})
	rec := f.post("/rpc/"+echoService+"/Whoami", "application/json", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	issued, err := f.tokens.IssueAccess("s1", "u1")
	require.NoError(t, err)
	rec = f.post("/rpc/"+echoService+"/Whoami", "application/json", "",
		http.Header{"Authorization": {"Bearer " + issued.Token}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "u1", decodeBody[echoResponse](t, rec).UserID)
}

func TestGateway_ClientIPIsRemoteAddr(t *testing.T) {
	f := newFixture(t, RateLimitConfig{})
	rec := f.post("/rpc/"+echoService+"/Whereami", "application/json", "",
		http.Header{"X-Forwarded-For": {"203.0.113.1"}, "X-Real-Ip": {"198.51.100.7"}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "192.0.2.1", decodeBody[echoResponse](t, rec).Name, "httptest.NewRequest remote address")
}

func TestGateway_RateLimit(t *testing.T) {
	f := newFixture(t, RateLimitConfig{RequestsPerSecond: 1, Burst: 2})
	path := "/rpc/" + echoService + "/Echo"
	for i := 0; i < 2; i++ {
		rec := f.post(path, "application/json", `{}`, nil)
		require.Equal(t, http.StatusOK, rec.Code)
	}
	rec := f.post(path, "application/json", `{}`, nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.HTTPLimited))
}

func TestGateway_HealthzAndMetrics(t *testing.T) {
	f := newFixture(t, RateLimitConfig{})
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, healthv1.StatusServing, decodeBody[healthv1.HealthCheckResponse](t, rec).Status)

	rec = httptest.NewRecorder()
	f.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "prodmatic_http_rate_limited_total")
}

func TestGateway_CORSPreflight(t *testing.T) {
	f := newFixture(t, RateLimitConfig{})
	req := httptest.NewRequest(http.MethodOptions, "/rpc/"+echoService+"/Echo", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
}
