package otel

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.39.0"
	"go.opentelemetry.io/otel/trace"
)

func resourceValue(t *testing.T, p *Providers, key attribute.Key) (string, bool) {
	t.Helper()
	require.NotNil(t, p.Resource)
	v, ok := p.Resource.Set().Value(key)
	return v.AsString(), ok
}

func TestNewProviders_ResourceDescribesService(t *testing.T) {
	p, err := NewProviders(context.Background(), Options{
		ServiceName:    "prodmatic-api",
		ServiceVersion: "1.4.0",
		Environment:    "staging",
		InstanceID:     "api-7",
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Shutdown(context.Background()) })

	for key, want := range map[attribute.Key]string{
		semconv.ServiceNamespaceKey:          ServiceNamespace,
		semconv.ServiceNameKey:               "prodmatic-api",
		semconv.ServiceVersionKey:            "1.4.0",
		semconv.DeploymentEnvironmentNameKey: "staging",
		semconv.ServiceInstanceIDKey:         "api-7",
	} {
		got, ok := resourceValue(t, p, key)
		assert.True(t, ok, key)
		assert.Equal(t, want, got, key)
	}
}

func TestOptions_ResourceDefaults(t *testing.T) {
	res, err := Options{ServiceName: "prodmatic-worker"}.Resource()
	require.NoError(t, err)
	instance, ok := res.Set().Value(semconv.ServiceInstanceIDKey)
	assert.True(t, ok)
	assert.NotEmpty(t, instance.AsString())
	_, ok = res.Set().Value(semconv.DeploymentEnvironmentNameKey)
	assert.False(t, ok, "no environment attribute without APP_ENV")
	_, ok = res.Set().Value(semconv.ServiceVersionKey)
	assert.False(t, ok)
}

func TestOptions_Sampler(t *testing.T) {
	params := func() sdktrace.SamplingParameters {
		return sdktrace.SamplingParameters{ParentContext: context.Background(), TraceID: trace.TraceID{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff}, Name: "rpc"}
	}
	for _, ratio := range []float64{0, -1, 1, 2} {
		got := Options{SampleRatio: ratio}.sampler().ShouldSample(params())
		assert.Equal(t, sdktrace.RecordAndSample, got.Decision, "ratio %v", ratio)
	}
	got := Options{SampleRatio: 0.0001}.sampler().ShouldSample(params())
	assert.Equal(t, sdktrace.Drop, got.Decision, "a high trace id falls outside a tiny ratio")
}

func TestNewProviders_EmptyEndpoint(t *testing.T) {
	for _, endpoint := range []string{"", "   "} {
		p, err := NewProviders(context.Background(), Options{Endpoint: endpoint, ServiceName: "prodmatic-test"})
		require.NoError(t, err)
		require.NotNil(t, p.TracerProvider)
		require.NotNil(t, p.MeterProvider)
		require.NotNil(t, p.LoggerProvider)
		assert.NoError(t, p.Shutdown(context.Background()))
	}
}

func TestCollectorTarget(t *testing.T) {
	tests := []struct {
		endpoint     string
		force        bool
		wantTarget   string
		wantInsecure bool
	}{
		{"localhost:4317", false, "localhost:4317", true},
		{"http://localhost:4317/v1/traces", false, "localhost:4317", true},
		{"https://collector:4317", false, "collector:4317", false},
		{"https://collector:4317", true, "collector:4317", true},
	}
	for _, tt := range tests {
		target, insecure, err := collectorTarget(tt.endpoint, tt.force)
		require.NoError(t, err, tt.endpoint)
		assert.Equal(t, tt.wantTarget, target, tt.endpoint)
		assert.Equal(t, tt.wantInsecure, insecure, tt.endpoint)
	}

	_, _, err := collectorTarget("http://%zz", false)
	assert.Error(t, err)
	_, _, err = collectorTarget("http://", false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing host")
}

func TestNewProviders_InvalidEndpoint(t *testing.T) {
	_, err := NewProviders(context.Background(), Options{Endpoint: "http://", ServiceName: "svc"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing host")
}

func TestNewProviders_Endpoints(t *testing.T) {
	// Exporters dial lazily, so construction succeeds without a collector.
	for _, endpoint := range []string{"localhost:4317", "https://collector:4317"} {
		t.Run(endpoint, func(t *testing.T) {
			p, err := NewProviders(context.Background(), Options{Endpoint: endpoint, ServiceName: "prodmatic-test", Environment: "test"})
			require.NoError(t, err)
			env, _ := resourceValue(t, p, semconv.DeploymentEnvironmentNameKey)
			assert.Equal(t, "test", env)
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			_ = p.Shutdown(ctx)
		})
	}
}

func TestSetGlobal(t *testing.T) {
	prevTP, prevMP := otel.GetTracerProvider(), otel.GetMeterProvider()
	t.Cleanup(func() {
		otel.SetTracerProvider(prevTP)
		otel.SetMeterProvider(prevMP)
	})

	p, err := NewProviders(context.Background(), Options{ServiceName: "prodmatic-test"})
	require.NoError(t, err)
	p.SetGlobal()
	assert.Same(t, p.TracerProvider, otel.GetTracerProvider())
	assert.Same(t, p.MeterProvider, otel.GetMeterProvider())

	assert.NotPanics(t, func() { (&Providers{}).SetGlobal() })
}
