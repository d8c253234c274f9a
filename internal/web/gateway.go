// Package web serves the HTTP form gateway: every registered unary method is reachable as
// POST /rpc/{service}/{method} with a form-urlencoded or JSON body, and runs through the same
// interceptor chain as a gRPC call.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"

	healthv1 "github.com/foozio/prodmatic-sub002/api/health/v1"
	"github.com/foozio/prodmatic-sub002/api/rpc"
	"github.com/foozio/prodmatic-sub002/internal/metrics"
	"github.com/foozio/prodmatic-sub002/internal/platform/apperr"
)

// DefaultMaxBodyBytes bounds a gateway request body when Config.MaxBodyBytes is unset.
const DefaultMaxBodyBytes = 32 << 20

// Config configures NewRouter.
type Config struct {
	Registry *rpc.Registry
	// Interceptor is the unary chain applied to every call, usually server.UnaryChain.
	Interceptor    grpc.UnaryServerInterceptor
	Metrics        *metrics.Metrics
	AllowedOrigins []string
	RateLimit      RateLimitConfig
	MaxBodyBytes   int64
	Log            *zap.Logger
}

type gateway struct {
	registry    *rpc.Registry
	interceptor grpc.UnaryServerInterceptor
	maxBody     int64
	log         *zap.Logger
}

// NewRouter returns the gateway handler.
func NewRouter(cfg Config) http.Handler {
	g := &gateway{
		registry:    cfg.Registry,
		interceptor: cfg.Interceptor,
		maxBody:     cfg.MaxBodyBytes,
		log:         cfg.Log,
	}
	if g.maxBody <= 0 {
		g.maxBody = DefaultMaxBodyBytes
	}
	if g.log == nil {
		g.log = zap.NewNop()
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(echoRequestID)
	r.Use(chimw.Recoverer)
	if len(cfg.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: cfg.AllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Authorization", "Content-Type", "X-Request-Id"},
			ExposedHeaders: []string{"X-Request-Id", "Retry-After"},
			MaxAge:         300,
		}))
	}

	r.Get("/healthz", g.healthz)
	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(cfg.Metrics.Registry, promhttp.HandlerOpts{}))
	}
	r.Group(func(r chi.Router) {
		var onLimited func()
		if cfg.Metrics != nil {
			onLimited = cfg.Metrics.HTTPLimited.Inc
		}
		r.Use(RateLimiter(cfg.RateLimit, onLimited))
		r.Post("/rpc/{service}/{method}", g.dispatch)
	})
	return r
}

func echoRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := chimw.GetReqID(r.Context()); id != "" {
			w.Header().Set(chimw.RequestIDHeader, id)
		}
		next.ServeHTTP(w, r)
	})
}

func (g *gateway) dispatch(w http.ResponseWriter, r *http.Request) {
	m, ok := g.registry.Lookup(chi.URLParam(r, "service"), chi.URLParam(r, "method"))
	if !ok {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "unknown method"})
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, g.maxBody)
	resp, err := m.Call(incomingContext(r), g.decoder(r), g.interceptor)
	if err != nil {
		g.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// decoder returns the request decoder for the body's content type. Decode failures are
// returned as *requestError so they map to 400 without reaching the handler.
func (g *gateway) decoder(r *http.Request) func(any) error {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return func(v any) error {
		if mediaType == "application/json" {
			body, err := io.ReadAll(r.Body)
			if err != nil {
				return &requestError{msg: "request body too large or unreadable"}
			}
			if len(body) == 0 {
				return nil
			}
			if err := json.Unmarshal(body, v); err != nil {
				return &requestError{msg: "malformed JSON body"}
			}
			return nil
		}
		if err := r.ParseForm(); err != nil {
			return &requestError{msg: "malformed form body"}
		}
		if err := DecodeForm(r.PostForm, v); err != nil {
			var fe *FormError
			if errors.As(err, &fe) {
				return &requestError{msg: "invalid form value", fields: []fieldBody{{Field: fe.Field, Message: fe.Err.Error()}}}
			}
			return &requestError{msg: err.Error()}
		}
		return nil
	}
}

// incomingContext exposes the caller's credentials and request id to the interceptor chain as
// gRPC metadata, and RemoteAddr as the gRPC peer.
func incomingContext(r *http.Request) context.Context {
	md := metadata.MD{}
	if auth := r.Header.Get("Authorization"); auth != "" {
		md.Set("authorization", auth)
	}
	if id := chimw.GetReqID(r.Context()); id != "" {
		md.Set("x-request-id", id)
	}
	if ua := r.UserAgent(); ua != "" {
		md.Set("user-agent", ua)
	}
	if fwd := r.Header.Values("X-Forwarded-For"); len(fwd) > 0 {
		md.Set("x-forwarded-for", fwd...)
	}
	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		md.Set("x-real-ip", realIP)
	}
	ctx := metadata.NewIncomingContext(r.Context(), md)
	if addr, err := net.ResolveTCPAddr("tcp", r.RemoteAddr); err == nil {
		ctx = peer.NewContext(ctx, &peer.Peer{Addr: addr})
	}
	return ctx
}

func (g *gateway) healthz(w http.ResponseWriter, r *http.Request) {
	m, ok := g.registry.Lookup(healthv1.ServiceName, "HealthCheck")
	if !ok {
		writeJSON(w, http.StatusOK, healthv1.HealthCheckResponse{Status: healthv1.StatusServing})
		return
	}
	resp, err := m.Call(incomingContext(r), func(any) error { return nil }, g.interceptor)
	if err != nil {
		g.writeError(w, r, err)
		return
	}
	hc, _ := resp.(*healthv1.HealthCheckResponse)
	code := http.StatusOK
	if hc == nil || hc.Status != healthv1.StatusServing {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, resp)
}

type requestError struct {
	msg    string
	fields []fieldBody
}

func (e *requestError) Error() string { return e.msg }

type fieldBody struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type errorBody struct {
	Error  string      `json:"error"`
	Fields []fieldBody `json:"fields,omitempty"`
}

func (g *gateway) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var re *requestError
	if errors.As(err, &re) {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: re.msg, Fields: re.fields})
		return
	}
	st, ok := status.FromError(err)
	if !ok {
		st = status.FromContextError(err)
		if st.Code() == codes.Unknown {
			g.log.Error("web: unmapped error",
				zap.String("path", r.URL.Path),
				zap.String("request_id", chimw.GetReqID(r.Context())),
				zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
			return
		}
	}
	body := errorBody{Error: st.Message()}
	for _, fv := range apperr.FieldViolations(st.Err()) {
		body.Fields = append(body.Fields, fieldBody{Field: fv.Field, Message: fv.Message})
	}
	writeJSON(w, httpStatus(st.Code()), body)
}

func httpStatus(c codes.Code) int {
	switch c {
	case codes.OK:
		return http.StatusOK
	case codes.InvalidArgument, codes.FailedPrecondition, codes.OutOfRange:
		return http.StatusBadRequest
	case codes.Unauthenticated:
		return http.StatusUnauthorized
	case codes.PermissionDenied:
		return http.StatusForbidden
	case codes.NotFound:
		return http.StatusNotFound
	case codes.AlreadyExists, codes.Aborted:
		return http.StatusConflict
	case codes.ResourceExhausted:
		return http.StatusTooManyRequests
	case codes.Unimplemented:
		return http.StatusNotImplemented
	case codes.Unavailable:
		return http.StatusServiceUnavailable
	case codes.DeadlineExceeded:
		return http.StatusGatewayTimeout
	case codes.Canceled:
		return 499
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
