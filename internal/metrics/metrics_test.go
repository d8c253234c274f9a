package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveMutation(t *testing.T) {
	m := New()
	m.ObserveMutation("task", "create", OutcomeOK)
	m.ObserveMutation("task", "create", OutcomeOK)
	m.ObserveMutation("task", "delete", OutcomeUnauthorized)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Mutations.WithLabelValues("task", "create", OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AuthzDenials.WithLabelValues("task")))
}

func TestObserveMutation_NilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() { m.ObserveMutation("task", "create", OutcomeOK) })
}
