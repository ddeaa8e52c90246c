// Package tracing installs the OpenTelemetry tracer provider.
package tracing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.27.0"
)

// ShutdownFunc flushes and stops the provider.
type ShutdownFunc func(context.Context) error

// ErrExporter wraps failures building the span exporter.
var ErrExporter = errors.New("tracing exporter")

// Option applies a configuration option to Init.
type Option func(*options)

type options struct {
	enabled     bool
	service     string
	environment string
	version     string
	endpoint    string
	insecure    bool
	ratio       float64
	writer      io.Writer
}

// WithEnabled turns tracing on. Disabled tracing keeps the global no-op provider.
func WithEnabled(v bool) Option { return func(o *options) { o.enabled = v } }

// WithService sets the service.name resource attribute.
func WithService(name string) Option {
	return func(o *options) {
		if name != "" {
			o.service = name
		}
	}
}

// WithEnvironment sets deployment.environment.
func WithEnvironment(env string) Option { return func(o *options) { o.environment = env } }

// WithVersion sets service.version.
func WithVersion(v string) Option { return func(o *options) { o.version = v } }

// WithOTLPEndpoint sends spans over OTLP/HTTP instead of stdout.
func WithOTLPEndpoint(endpoint string, insecure bool) Option {
	return func(o *options) {
		o.endpoint = endpoint
		o.insecure = insecure
	}
}

// WithSampleRatio sets the parent-based sampling ratio.
func WithSampleRatio(r float64) Option {
	return func(o *options) {
		if r >= 0 && r <= 1 {
			o.ratio = r
		}
	}
}

// WithWriter redirects the stdout exporter.
func WithWriter(w io.Writer) Option {
	return func(o *options) {
		if w != nil {
			o.writer = w
		}
	}
}

// Init configures the global tracer provider and propagator. The returned
// shutdown func is always non-nil.
func Init(ctx context.Context, opts ...Option) (ShutdownFunc, error) {
	o := options{service: "promptmatch", ratio: 1, writer: os.Stdout}
	for _, opt := range opts {
		opt(&o)
	}
	noop := func(context.Context) error { return nil }
	if !o.enabled {
		return noop, nil
	}

	exp, err := exporter(ctx, o)
	if err != nil {
		return noop, fmt.Errorf("%w: %w", ErrExporter, err)
	}
	res := resource.NewWithAttributes(semconv.SchemaURL,
		semconv.ServiceNameKey.String(o.service),
		semconv.ServiceVersionKey.String(o.version),
		attribute.String("deployment.environment", o.environment),
	)
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(o.ratio))),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	return tp.Shutdown, nil
}

func exporter(ctx context.Context, o options) (sdktrace.SpanExporter, error) {
	if o.endpoint != "" {
		hopts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(o.endpoint)}
		if o.insecure {
			hopts = append(hopts, otlptracehttp.WithInsecure())
		}
		return otlptracehttp.New(ctx, hopts...)
	}
	return stdouttrace.New(stdouttrace.WithWriter(o.writer))
}
