// Package otel configures the OpenTelemetry providers used by the gRPC server and turns
// activity events into OTel log records.
package otel

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.39.0"
)

// ServiceNamespace groups every ProdMatic process in telemetry backends.
const ServiceNamespace = "prodmatic"

// metricInterval is how often the meter provider pushes RPC and pipeline metrics.
const metricInterval = 15 * time.Second

// Providers holds the OpenTelemetry providers and a shutdown function.
type Providers struct {
	TracerProvider *sdktrace.TracerProvider
	MeterProvider  *metric.MeterProvider
	LoggerProvider *sdklog.LoggerProvider
	Resource       *resource.Resource
	Shutdown       func(context.Context) error
}

// Options configures NewProviders.
type Options struct {
	// Endpoint is the collector, as host:port or a URL whose path is ignored. Empty disables export.
	Endpoint string
	// Insecure forces plaintext even for https endpoints.
	Insecure bool

	ServiceName    string
	ServiceVersion string
	// Environment is APP_ENV, reported as deployment.environment.name.
	Environment string
	// InstanceID defaults to the hostname, or a random id when that is unavailable.
	InstanceID string
	// SampleRatio is the share of root spans kept; child spans follow their parent.
	// Values outside (0, 1] keep every trace.
	SampleRatio float64
}

// Resource describes this process to telemetry backends.
func (o Options) Resource() (*resource.Resource, error) {
	instance := o.InstanceID
	if instance == "" {
		if host, err := os.Hostname(); err == nil && host != "" {
			instance = host
		} else {
			instance = uuid.NewString()
		}
	}
	attrs := []attribute.KeyValue{
		semconv.ServiceNamespaceKey.String(ServiceNamespace),
		semconv.ServiceNameKey.String(o.ServiceName),
		semconv.ServiceInstanceIDKey.String(instance),
	}
	if o.ServiceVersion != "" {
		attrs = append(attrs, semconv.ServiceVersionKey.String(o.ServiceVersion))
	}
	if o.Environment != "" {
		attrs = append(attrs, semconv.DeploymentEnvironmentNameKey.String(o.Environment))
	}
	return resource.Merge(resource.Default(), resource.NewWithAttributes(semconv.SchemaURL, attrs...))
}

func (o Options) sampler() sdktrace.Sampler {
	if o.SampleRatio <= 0 || o.SampleRatio >= 1 {
		return sdktrace.ParentBased(sdktrace.AlwaysSample())
	}
	return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(o.SampleRatio))
}

// collectorTarget reduces endpoint to the host:port the OTLP gRPC exporters dial and reports
// whether the connection should skip TLS.
func collectorTarget(endpoint string, forceInsecure bool) (target string, insecure bool, err error) {
	raw := endpoint
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", false, fmt.Errorf("invalid OTLP endpoint %q: %w", raw, err)
	}
	if u.Host == "" {
		return "", false, fmt.Errorf("invalid OTLP endpoint %q: missing host", raw)
	}
	return u.Host, forceInsecure || u.Scheme != "https", nil
}

// NewProviders builds the tracer, meter and logger providers for this process. Every provider
// carries the service resource; without an endpoint nothing is exported and Shutdown only
// flushes in-process state.
func NewProviders(ctx context.Context, opts Options) (*Providers, error) {
	res, err := opts.Resource()
	if err != nil {
		return nil, fmt.Errorf("telemetry: resource: %w", err)
	}
	endpoint := strings.TrimSpace(opts.Endpoint)
	if endpoint == "" {
		tp := sdktrace.NewTracerProvider(sdktrace.WithResource(res), sdktrace.WithSampler(opts.sampler()))
		mp := metric.NewMeterProvider(metric.WithResource(res))
		lp := sdklog.NewLoggerProvider(sdklog.WithResource(res))
		return assemble(res, tp, mp, lp), nil
	}

	target, insecure, err := collectorTarget(endpoint, opts.Insecure)
	if err != nil {
		return nil, err
	}

	traceOpts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(target)}
	metricOpts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(target)}
	logOpts := []otlploggrpc.Option{otlploggrpc.WithEndpoint(target)}
	if insecure {
		traceOpts = append(traceOpts, otlptracegrpc.WithInsecure())
		metricOpts = append(metricOpts, otlpmetricgrpc.WithInsecure())
		logOpts = append(logOpts, otlploggrpc.WithInsecure())
	}

	traceExp, err := otlptracegrpc.New(ctx, traceOpts...)
	if err != nil {
		return nil, fmt.Errorf("telemetry: trace exporter: %w", err)
	}
	metricExp, err := otlpmetricgrpc.New(ctx, metricOpts...)
	if err != nil {
		_ = traceExp.Shutdown(ctx)
		return nil, fmt.Errorf("telemetry: metric exporter: %w", err)
	}
	logExp, err := otlploggrpc.New(ctx, logOpts...)
	if err != nil {
		_ = traceExp.Shutdown(ctx)
		_ = metricExp.Shutdown(ctx)
		return nil, fmt.Errorf("telemetry: log exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithSampler(opts.sampler()),
		sdktrace.WithBatcher(traceExp),
	)
	mp := metric.NewMeterProvider(
		metric.WithResource(res),
		metric.WithReader(metric.NewPeriodicReader(metricExp, metric.WithInterval(metricInterval))),
	)
	lp := sdklog.NewLoggerProvider(
		sdklog.WithResource(res),
		sdklog.WithProcessor(sdklog.NewBatchProcessor(logExp)),
	)
	return assemble(res, tp, mp, lp), nil
}

// assemble wires Shutdown to stop the logger, meter and tracer providers in that order, so
// records emitted while spans close are still flushed.
func assemble(res *resource.Resource, tp *sdktrace.TracerProvider, mp *metric.MeterProvider, lp *sdklog.LoggerProvider) *Providers {
	stops := []struct {
		name string
		fn   func(context.Context) error
	}{
		{"logs", lp.Shutdown},
		{"metrics", mp.Shutdown},
		{"traces", tp.Shutdown},
	}
	return &Providers{
		TracerProvider: tp,
		MeterProvider:  mp,
		LoggerProvider: lp,
		Resource:       res,
		Shutdown: func(ctx context.Context) error {
			var errs []error
			for _, s := range stops {
				if err := s.fn(ctx); err != nil {
					errs = append(errs, fmt.Errorf("telemetry: shutdown %s: %w", s.name, err))
				}
			}
			return errors.Join(errs...)
		},
	}
}

// SetGlobal installs the tracer and meter providers for instrumentation such as otelgrpc.
// The logger provider stays local; activity events reach it through NewEventEmitter.
func (p *Providers) SetGlobal() {
	if p.TracerProvider != nil {
		otel.SetTracerProvider(p.TracerProvider)
	}
	if p.MeterProvider != nil {
		otel.SetMeterProvider(p.MeterProvider)
	}
}
