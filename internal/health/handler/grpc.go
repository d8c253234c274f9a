package handler

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	healthv1 "github.com/foozio/prodmatic-sub002/api/health/v1"
)

// checkTimeout bounds each dependency check.
const checkTimeout = 2 * time.Second

// Pinger checks database connectivity. *sql.DB implements it.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// PolicyChecker checks that the policy engine can compile and evaluate a module.
type PolicyChecker interface {
	HealthCheck(ctx context.Context) error
}

// Server implements HealthService for readiness and liveness probes.
type Server struct {
	checks map[string]func(context.Context) error
}

// NewServer returns a Health server. A nil dependency is not checked.
func NewServer(db Pinger, policy PolicyChecker) *Server {
	s := &Server{checks: make(map[string]func(context.Context) error)}
	if db != nil {
		s.checks["database"] = db.PingContext
	}
	if policy != nil {
		s.checks["policy"] = policy.HealthCheck
	}
	return s
}

// HealthCheck runs every dependency check concurrently. A failing check makes the status NOT_SERVING;
// it is never returned as an RPC error.
func (s *Server) HealthCheck(ctx context.Context, _ *healthv1.HealthCheckRequest) (*healthv1.HealthCheckResponse, error) {
	var (
		mu      sync.Mutex
		results = make(map[string]string, len(s.checks))
		healthy = true
	)
	g, gctx := errgroup.WithContext(ctx)
	for name, check := range s.checks {
		g.Go(func() error {
			cctx, cancel := context.WithTimeout(gctx, checkTimeout)
			defer cancel()
			res := "ok"
			if err := check(cctx); err != nil {
				res = err.Error()
			}
			mu.Lock()
			defer mu.Unlock()
			results[name] = res
			if res != "ok" {
				healthy = false
			}
			return nil
		})
	}
	_ = g.Wait()

	resp := &healthv1.HealthCheckResponse{Status: healthv1.StatusServing, Checks: results}
	if !healthy {
		resp.Status = healthv1.StatusNotServing
	}
	return resp, nil
}
