package handler

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	healthv1 "github.com/foozio/prodmatic-sub002/api/health/v1"
	"github.com/foozio/prodmatic-sub002/internal/policy/engine"
)

type mockPinger struct {
	pingErr error
}

func (m *mockPinger) PingContext(context.Context) error {
	return m.pingErr
}

type mockPolicyChecker struct {
	healthErr error
}

func (m *mockPolicyChecker) HealthCheck(context.Context) error {
	return m.healthErr
}

func TestHealthCheck(t *testing.T) {
	tests := []struct {
		name   string
		db     Pinger
		policy PolicyChecker
		want   healthv1.ServingStatus
		checks map[string]string
	}{
		{"no dependencies", nil, nil, healthv1.StatusServing, map[string]string{}},
		{"all healthy", &mockPinger{}, &mockPolicyChecker{}, healthv1.StatusServing,
			map[string]string{"database": "ok", "policy": "ok"}},
		{"database down", &mockPinger{pingErr: errors.New("connection refused")}, &mockPolicyChecker{}, healthv1.StatusNotServing,
			map[string]string{"database": "connection refused", "policy": "ok"}},
		{"policy broken", nil, &mockPolicyChecker{healthErr: errors.New("rego compile failed")}, healthv1.StatusNotServing,
			map[string]string{"policy": "rego compile failed"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := NewServer(tt.db, tt.policy).HealthCheck(context.Background(), &healthv1.HealthCheckRequest{})
			require.NoError(t, err)
			assert.Equal(t, tt.want, resp.Status)
			assert.Equal(t, tt.checks, resp.Checks)
		})
	}
}

func TestHealthCheck_RealPolicyEngine(t *testing.T) {
	resp, err := NewServer(nil, engine.NewOPAEvaluator(nil)).HealthCheck(context.Background(), &healthv1.HealthCheckRequest{})
	require.NoError(t, err)
	assert.Equal(t, healthv1.StatusServing, resp.Status)
}
