// Command server runs the ProdMatic gRPC API and its HTTP form gateway.
package main

import (
	"context"
	"crypto"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/foozio/prodmatic-sub002/api/rpc"
	"github.com/foozio/prodmatic-sub002/internal/audit"
	auditrepo "github.com/foozio/prodmatic-sub002/internal/audit/repository"
	"github.com/foozio/prodmatic-sub002/internal/blob"
	s3blob "github.com/foozio/prodmatic-sub002/internal/blob/s3"
	checklistrepo "github.com/foozio/prodmatic-sub002/internal/checklist/repository"
	"github.com/foozio/prodmatic-sub002/internal/config"
	"github.com/foozio/prodmatic-sub002/internal/db"
	deliveryrepo "github.com/foozio/prodmatic-sub002/internal/delivery/repository"
	documentrepo "github.com/foozio/prodmatic-sub002/internal/document/repository"
	experimentrepo "github.com/foozio/prodmatic-sub002/internal/experiment/repository"
	idearepo "github.com/foozio/prodmatic-sub002/internal/idea/repository"
	identityrepo "github.com/foozio/prodmatic-sub002/internal/identity/repository"
	identityservice "github.com/foozio/prodmatic-sub002/internal/identity/service"
	membershiprepo "github.com/foozio/prodmatic-sub002/internal/membership/repository"
	"github.com/foozio/prodmatic-sub002/internal/metrics"
	okrrepo "github.com/foozio/prodmatic-sub002/internal/okr/repository"
	orgrepo "github.com/foozio/prodmatic-sub002/internal/organization/repository"
	personarepo "github.com/foozio/prodmatic-sub002/internal/persona/repository"
	"github.com/foozio/prodmatic-sub002/internal/platform/logging"
	"github.com/foozio/prodmatic-sub002/internal/platform/mutation"
	"github.com/foozio/prodmatic-sub002/internal/platform/rbac"
	"github.com/foozio/prodmatic-sub002/internal/policy/engine"
	policyrepo "github.com/foozio/prodmatic-sub002/internal/policy/repository"
	productrepo "github.com/foozio/prodmatic-sub002/internal/product/repository"
	"github.com/foozio/prodmatic-sub002/internal/revalidate"
	roadmaprepo "github.com/foozio/prodmatic-sub002/internal/roadmap/repository"
	"github.com/foozio/prodmatic-sub002/internal/security"
	"github.com/foozio/prodmatic-sub002/internal/server"
	"github.com/foozio/prodmatic-sub002/internal/server/interceptors"
	"github.com/foozio/prodmatic-sub002/internal/session"
	sessionrepo "github.com/foozio/prodmatic-sub002/internal/session/repository"
	"github.com/foozio/prodmatic-sub002/internal/telemetry"
	"github.com/foozio/prodmatic-sub002/internal/telemetry/otel"
	"github.com/foozio/prodmatic-sub002/internal/telemetry/producer"
	userrepo "github.com/foozio/prodmatic-sub002/internal/user/repository"
	"github.com/foozio/prodmatic-sub002/internal/web"
)

const (
	serviceName  = "prodmatic-api"
	viewCacheTTL = time.Minute
)

// version is stamped at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	log, err := logging.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, cfg, log); err != nil {
		log.Fatal("server exited", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	if cfg.DatabaseURL == "" {
		return errors.New("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
	}

	providers, err := otel.NewProviders(ctx, otel.Options{
		Endpoint:       cfg.OTLPEndpoint,
		Insecure:       cfg.OTLPInsecure,
		ServiceName:    serviceName,
		ServiceVersion: version,
		Environment:    cfg.Env,
		SampleRatio:    cfg.OTelSampleRatio,
	})
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	providers.SetGlobal()

	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("db: %w", err)
	}
	defer conn.Close()

	tokens, err := loadTokens(cfg, log)
	if err != nil {
		return err
	}

	users := userrepo.NewPostgresRepository(conn)
	sessions := sessionrepo.NewPostgresRepository(conn)
	memberships := membershiprepo.NewPostgresRepository(conn)
	policies := policyrepo.NewPostgresRepository(conn)
	audits := auditrepo.NewPostgresRepository(conn)
	tx := db.NewTxManager(conn)
	m := metrics.New()

	kafkaProducer := producer.NewKafkaProducer(cfg.KafkaBrokersList(), cfg.ActivityKafkaTopic)
	emitters := telemetry.Multi{otel.NewEventEmitter(providers.LoggerProvider)}
	if kafkaProducer != nil {
		emitters = append(emitters, kafkaProducer)
	}
	events := telemetry.NewAsync(emitters, log)

	cache := revalidate.NewViewCache(viewCacheTTL)
	invalidators := revalidate.Multi{cache}
	publisher := revalidate.NewPublisher(cfg.KafkaBrokersList(), cfg.RevalidateKafkaTopic)
	if publisher != nil {
		invalidators = append(invalidators, publisher)
	}

	policy := engine.NewOPAEvaluator(policies)
	resolver := session.NewResolver(users, memberships)
	recorder := audit.NewRecorder(audits, interceptors.ClientIP)
	pipeline := mutation.New(mutation.Deps{
		Principals:  resolver,
		Guard:       rbac.NewGuard(session.NewMemoGetter(resolver, memberships)),
		Policy:      policy,
		Tx:          tx,
		Audit:       recorder,
		Invalidator: invalidators,
		Events:      events,
		Metrics:     m,
		Log:         log,
	})

	var verifier identityservice.IDTokenVerifier
	if cfg.OIDCEnabled() {
		v, err := identityservice.NewOIDCVerifier(ctx, cfg.OIDCIssuerURL, cfg.OIDCClientID)
		if err != nil {
			return fmt.Errorf("oidc: %w", err)
		}
		verifier = v
	}
	auth := identityservice.NewAuthService(identityservice.Deps{
		Users:      users,
		Identities: identityrepo.NewPostgresRepository(conn),
		Sessions:   sessions,
		Tx:         tx,
		Hasher:     security.NewHasher(cfg.BcryptCost),
		Tokens:     tokens,
		RefreshTTL: cfg.RefreshTTL(),
		OIDC:       verifier,
		Recorder:   recorder,
		Audit:      audit.NewLogger(recorder, log),
		Log:        log,
	})

	blobs, err := newBlobStore(ctx, cfg)
	if err != nil {
		return err
	}

	chain := server.UnaryChain(server.ChainConfig{
		Log:      log,
		Metrics:  m,
		Tokens:   tokens,
		Sessions: server.SessionValidator(sessions, nil),
		Proxies:  interceptors.NewProxyTrust(cfg.TrustedProxyPrefixes()),
	})
	grpcServer := server.NewGRPCServer(chain)
	registry := rpc.NewRegistry(grpcServer)
	server.RegisterServices(registry, server.Deps{
		Pipeline:            pipeline,
		Auth:                auth,
		Cache:               cache,
		Blobs:               blobs,
		MaxAttachmentBytes:  cfg.MaxAttachmentBytes,
		Audit:               audits,
		Users:               users,
		Sessions:            sessions,
		Organizations:       orgrepo.NewPostgresRepository(conn),
		Memberships:         memberships,
		Policies:            policies,
		Products:            productrepo.NewPostgresRepository(conn),
		Ideas:               idearepo.NewPostgresRepository(conn),
		Delivery:            deliveryrepo.NewPostgresRepository(conn),
		Roadmap:             roadmaprepo.NewPostgresRepository(conn),
		OKRs:                okrrepo.NewPostgresRepository(conn),
		Experiments:         experimentrepo.NewPostgresRepository(conn),
		Documents:           documentrepo.NewPostgresRepository(conn),
		Personas:            personarepo.NewPostgresRepository(conn),
		Checklists:          checklistrepo.NewPostgresRepository(conn),
		HealthPinger:        conn,
		HealthPolicyChecker: policy,
		Log:                 log,
	})

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.GRPCAddr, err)
	}

	var httpServer *http.Server
	if cfg.HTTPAddr != "" {
		httpServer = &http.Server{
			Addr: cfg.HTTPAddr,
			Handler: web.NewRouter(web.Config{
				Registry:       registry,
				Interceptor:    chain,
				Metrics:        m,
				AllowedOrigins: cfg.CORSOrigins(),
				RateLimit:      web.RateLimitConfig{RequestsPerSecond: cfg.RateLimitRPS, Burst: cfg.RateLimitBurst},
				MaxBodyBytes:   2*cfg.MaxAttachmentBytes + (1 << 20),
				Log:            log,
			}),
			ReadHeaderTimeout: 10 * time.Second,
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("gRPC server listening", zap.String("addr", cfg.GRPCAddr))
		return grpcServer.Serve(lis)
	})
	if httpServer != nil {
		g.Go(func() error {
			log.Info("HTTP gateway listening", zap.String("addr", cfg.HTTPAddr))
			if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if httpServer != nil {
			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				log.Warn("http shutdown", zap.Error(err))
			}
		}
		grpcServer.GracefulStop()

		drainCtx, drainCancel := context.WithTimeout(shutdownCtx, telemetry.ShutdownDrainDuration)
		defer drainCancel()
		if err := events.Wait(drainCtx); err != nil {
			log.Warn("activity events not drained", zap.Error(err))
		}
		if err := kafkaProducer.Close(); err != nil {
			log.Warn("kafka producer close", zap.Error(err))
		}
		if err := publisher.Close(); err != nil {
			log.Warn("revalidate publisher close", zap.Error(err))
		}
		if err := providers.Shutdown(shutdownCtx); err != nil {
			log.Warn("otel shutdown", zap.Error(err))
		}
		return nil
	})
	return g.Wait()
}

// loadTokens builds the token provider from configured keys. Without keys, development gets an
// ephemeral key and every other environment fails.
func loadTokens(cfg *config.Config, log *zap.Logger) (*security.TokenProvider, error) {
	var (
		priv crypto.Signer
		pub  crypto.PublicKey
		err  error
	)
	if cfg.JWTPrivateKey == "" || cfg.JWTPublicKey == "" {
		if cfg.Env != "development" {
			return nil, errors.New("JWT_PRIVATE_KEY and JWT_PUBLIC_KEY must be set outside development")
		}
		log.Warn("no JWT keys configured; using an ephemeral signing key")
		priv, pub, err = security.GenerateEphemeralKey()
		if err != nil {
			return nil, fmt.Errorf("jwt key: %w", err)
		}
	} else {
		if priv, err = security.ParsePrivateKey(cfg.JWTPrivateKey); err != nil {
			return nil, fmt.Errorf("JWT_PRIVATE_KEY: %w", err)
		}
		if pub, err = security.ParsePublicKey(cfg.JWTPublicKey); err != nil {
			return nil, fmt.Errorf("JWT_PUBLIC_KEY: %w", err)
		}
	}
	return security.NewTokenProvider(priv, pub, cfg.JWTIssuer, cfg.JWTAudience, cfg.AccessTTL(), cfg.RefreshTTL()), nil
}

func newBlobStore(ctx context.Context, cfg *config.Config) (blob.Store, error) {
	if cfg.BlobDriver != config.BlobDriverS3 {
		return blob.NewMemory(), nil
	}
	store, err := s3blob.New(ctx, s3blob.Config{
		Bucket:          cfg.S3Bucket,
		Region:          cfg.S3Region,
		Endpoint:        cfg.S3Endpoint,
		PathStyle:       cfg.S3PathStyle,
		AccessKeyID:     cfg.S3AccessKeyID,
		SecretAccessKey: cfg.S3SecretAccessKey,
	})
	if err != nil {
		return nil, fmt.Errorf("s3: %w", err)
	}
	return store, nil
}
