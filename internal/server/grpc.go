// Package server wires every ProdMatic service onto a gRPC server and builds the unary
// interceptor chain shared by the gRPC listener and the HTTP gateway.
package server

import (
	"context"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.uber.org/zap"
	"google.golang.org/grpc"

	auditv1 "github.com/foozio/prodmatic-sub002/api/audit/v1"
	authv1 "github.com/foozio/prodmatic-sub002/api/auth/v1"
	checklistv1 "github.com/foozio/prodmatic-sub002/api/checklist/v1"
	deliveryv1 "github.com/foozio/prodmatic-sub002/api/delivery/v1"
	documentv1 "github.com/foozio/prodmatic-sub002/api/document/v1"
	experimentv1 "github.com/foozio/prodmatic-sub002/api/experiment/v1"
	healthv1 "github.com/foozio/prodmatic-sub002/api/health/v1"
	ideav1 "github.com/foozio/prodmatic-sub002/api/idea/v1"
	membershipv1 "github.com/foozio/prodmatic-sub002/api/membership/v1"
	okrv1 "github.com/foozio/prodmatic-sub002/api/okr/v1"
	organizationv1 "github.com/foozio/prodmatic-sub002/api/organization/v1"
	personav1 "github.com/foozio/prodmatic-sub002/api/persona/v1"
	policyv1 "github.com/foozio/prodmatic-sub002/api/policy/v1"
	productv1 "github.com/foozio/prodmatic-sub002/api/product/v1"
	roadmapv1 "github.com/foozio/prodmatic-sub002/api/roadmap/v1"
	"github.com/foozio/prodmatic-sub002/api/rpc"
	sessionv1 "github.com/foozio/prodmatic-sub002/api/session/v1"
	userv1 "github.com/foozio/prodmatic-sub002/api/user/v1"

	audithandler "github.com/foozio/prodmatic-sub002/internal/audit/handler"
	auditrepo "github.com/foozio/prodmatic-sub002/internal/audit/repository"
	"github.com/foozio/prodmatic-sub002/internal/blob"
	checklisthandler "github.com/foozio/prodmatic-sub002/internal/checklist/handler"
	checklistrepo "github.com/foozio/prodmatic-sub002/internal/checklist/repository"
	deliveryhandler "github.com/foozio/prodmatic-sub002/internal/delivery/handler"
	deliveryrepo "github.com/foozio/prodmatic-sub002/internal/delivery/repository"
	documenthandler "github.com/foozio/prodmatic-sub002/internal/document/handler"
	documentrepo "github.com/foozio/prodmatic-sub002/internal/document/repository"
	experimenthandler "github.com/foozio/prodmatic-sub002/internal/experiment/handler"
	experimentrepo "github.com/foozio/prodmatic-sub002/internal/experiment/repository"
	healthhandler "github.com/foozio/prodmatic-sub002/internal/health/handler"
	ideahandler "github.com/foozio/prodmatic-sub002/internal/idea/handler"
	idearepo "github.com/foozio/prodmatic-sub002/internal/idea/repository"
	identityhandler "github.com/foozio/prodmatic-sub002/internal/identity/handler"
	identityservice "github.com/foozio/prodmatic-sub002/internal/identity/service"
	membershiphandler "github.com/foozio/prodmatic-sub002/internal/membership/handler"
	membershiprepo "github.com/foozio/prodmatic-sub002/internal/membership/repository"
	"github.com/foozio/prodmatic-sub002/internal/metrics"
	okrhandler "github.com/foozio/prodmatic-sub002/internal/okr/handler"
	okrrepo "github.com/foozio/prodmatic-sub002/internal/okr/repository"
	organizationhandler "github.com/foozio/prodmatic-sub002/internal/organization/handler"
	orgrepo "github.com/foozio/prodmatic-sub002/internal/organization/repository"
	personahandler "github.com/foozio/prodmatic-sub002/internal/persona/handler"
	personarepo "github.com/foozio/prodmatic-sub002/internal/persona/repository"
	"github.com/foozio/prodmatic-sub002/internal/platform/mutation"
	policyhandler "github.com/foozio/prodmatic-sub002/internal/policy/handler"
	policyrepo "github.com/foozio/prodmatic-sub002/internal/policy/repository"
	producthandler "github.com/foozio/prodmatic-sub002/internal/product/handler"
	productrepo "github.com/foozio/prodmatic-sub002/internal/product/repository"
	"github.com/foozio/prodmatic-sub002/internal/revalidate"
	roadmaphandler "github.com/foozio/prodmatic-sub002/internal/roadmap/handler"
	roadmaprepo "github.com/foozio/prodmatic-sub002/internal/roadmap/repository"
	"github.com/foozio/prodmatic-sub002/internal/security"
	"github.com/foozio/prodmatic-sub002/internal/server/interceptors"
	"github.com/foozio/prodmatic-sub002/internal/session"
	sessionhandler "github.com/foozio/prodmatic-sub002/internal/session/handler"
	sessionrepo "github.com/foozio/prodmatic-sub002/internal/session/repository"
	userhandler "github.com/foozio/prodmatic-sub002/internal/user/handler"
	userrepo "github.com/foozio/prodmatic-sub002/internal/user/repository"
)

// Deps holds the repositories and shared collaborators behind every service.
type Deps struct {
	Pipeline *mutation.Pipeline
	// Auth backs AuthService. Nil makes every auth RPC return Unimplemented.
	Auth  *identityservice.AuthService
	Cache *revalidate.ViewCache
	Blobs blob.Store
	// MaxAttachmentBytes caps AddAttachment content; 0 uses the document default.
	MaxAttachmentBytes int64

	Audit         auditrepo.Repository
	Users         userrepo.Repository
	Sessions      sessionrepo.Repository
	Organizations orgrepo.Repository
	Memberships   membershiprepo.Repository
	Policies      policyrepo.Repository
	Products      productrepo.Repository
	Ideas         idearepo.Repository
	Delivery      deliveryrepo.Repository
	Roadmap       roadmaprepo.Repository
	OKRs          okrrepo.Repository
	Experiments   experimentrepo.Repository
	Documents     documentrepo.Repository
	Personas      personarepo.Repository
	Checklists    checklistrepo.Repository

	// HealthPinger is used by HealthService for readiness (e.g. *sql.DB). If nil, HealthCheck skips DB ping.
	HealthPinger healthhandler.Pinger
	// HealthPolicyChecker is used by HealthService for readiness (e.g. OPA evaluator). If nil, HealthCheck skips policy check.
	HealthPolicyChecker healthhandler.PolicyChecker

	Log *zap.Logger
}

// RegisterServices registers every service with s. s is usually an rpc.Registry forwarding to
// the *grpc.Server, so the HTTP gateway sees the same handlers.
//
// Service → handler mapping:
//   - AuthService         → internal/identity/handler
//   - UserService         → internal/user/handler
//   - SessionService      → internal/session/handler
//   - OrganizationService → internal/organization/handler
//   - MembershipService   → internal/membership/handler
//   - PolicyService       → internal/policy/handler
//   - AuditService        → internal/audit/handler
//   - ProductService      → internal/product/handler
//   - IdeaService         → internal/idea/handler
//   - DeliveryService     → internal/delivery/handler
//   - RoadmapService      → internal/roadmap/handler
//   - OKRService          → internal/okr/handler
//   - ExperimentService   → internal/experiment/handler
//   - DocumentService     → internal/document/handler
//   - PersonaService      → internal/persona/handler
//   - ChecklistService    → internal/checklist/handler
//   - HealthService       → internal/health/handler
func RegisterServices(s grpc.ServiceRegistrar, deps Deps) {
	p := deps.Pipeline
	authv1.RegisterAuthServiceServer(s, identityhandler.NewAuthServer(deps.Auth))
	userv1.RegisterUserServiceServer(s, userhandler.NewServer(deps.Users, p))
	sessionv1.RegisterSessionServiceServer(s, sessionhandler.NewServer(deps.Sessions, p))
	organizationv1.RegisterOrganizationServiceServer(s, organizationhandler.NewServer(deps.Organizations, deps.Memberships, p))
	membershipv1.RegisterMembershipServiceServer(s, membershiphandler.NewServer(deps.Memberships, p))
	policyv1.RegisterPolicyServiceServer(s, policyhandler.NewServer(deps.Policies, p))
	auditv1.RegisterAuditServiceServer(s, audithandler.NewServer(deps.Audit, p))

	productv1.RegisterProductServiceServer(s, producthandler.NewServer(deps.Products, deps.Organizations, p, deps.Cache))
	ideav1.RegisterIdeaServiceServer(s, ideahandler.NewServer(deps.Ideas, deps.Products, p))
	deliveryv1.RegisterDeliveryServiceServer(s, deliveryhandler.NewServer(deps.Delivery, deps.Products, deps.Memberships, p, deps.Cache))
	roadmapv1.RegisterRoadmapServiceServer(s, roadmaphandler.NewServer(deps.Roadmap, deps.Products, deps.Ideas, p, deps.Cache))
	okrv1.RegisterOKRServiceServer(s, okrhandler.NewServer(deps.OKRs, deps.Products, deps.Memberships, p))
	experimentv1.RegisterExperimentServiceServer(s, experimenthandler.NewServer(deps.Experiments, deps.Products, deps.Ideas, p))
	documentv1.RegisterDocumentServiceServer(s, documenthandler.NewServer(deps.Documents, deps.Products, deps.Blobs, p, deps.MaxAttachmentBytes, deps.Log))
	personav1.RegisterPersonaServiceServer(s, personahandler.NewServer(deps.Personas, deps.Products, p))
	checklistv1.RegisterChecklistServiceServer(s, checklisthandler.NewServer(deps.Checklists, deps.Products, p))

	healthv1.RegisterHealthServiceServer(s, healthhandler.NewServer(deps.HealthPinger, deps.HealthPolicyChecker))
}

// PublicMethods returns the full method names callable without an access token.
func PublicMethods() map[string]bool {
	out := map[string]bool{healthv1.HealthCheckMethod: true}
	for _, m := range authv1.PublicMethods {
		out[m] = true
	}
	return out
}

// ChainConfig configures UnaryChain.
type ChainConfig struct {
	Log     *zap.Logger
	Metrics *metrics.Metrics
	Tokens  *security.TokenProvider
	// Sessions may be nil; then any signed, unexpired access token is accepted.
	Sessions interceptors.SessionValidator
	// Proxies lists the peers whose forwarding headers name the client. Zero trusts none.
	Proxies interceptors.ProxyTrust
}

// UnaryChain returns recovery → client ip → telemetry → errors → auth → request scope as one interceptor.
func UnaryChain(cfg ChainConfig) grpc.UnaryServerInterceptor {
	log := cfg.Log
	if log == nil {
		log = zap.NewNop()
	}
	return interceptors.Chain(
		interceptors.RecoveryUnary(log),
		interceptors.ClientIPUnary(cfg.Proxies),
		interceptors.TelemetryUnary(log, cfg.Metrics, map[string]bool{healthv1.HealthCheckMethod: true}),
		interceptors.ErrorsUnary(log),
		interceptors.AuthUnary(cfg.Tokens, PublicMethods(), cfg.Sessions),
		interceptors.ContextUnary(session.WithScope),
	)
}

// NewGRPCServer returns a gRPC server speaking the JSON codec, traced by otelgrpc and running
// chain on every unary call.
func NewGRPCServer(chain grpc.UnaryServerInterceptor, opts ...grpc.ServerOption) *grpc.Server {
	base := []grpc.ServerOption{
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ForceServerCodec(rpc.Codec()),
		grpc.UnaryInterceptor(chain),
	}
	return grpc.NewServer(append(base, opts...)...)
}

// SessionValidator reports a session active when it exists and is neither revoked nor expired.
func SessionValidator(repo sessionrepo.Repository, now func() time.Time) interceptors.SessionValidator {
	if now == nil {
		now = time.Now
	}
	return func(ctx context.Context, sessionID string) (bool, error) {
		s, err := repo.GetByID(ctx, sessionID)
		if err != nil {
			return false, err
		}
		return s.Active(now()), nil
	}
}
