// Package tracing initializes OpenTelemetry tracing and provides span helpers.
package tracing

import (
	"context"
	"fmt"
	"io"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"google.golang.org/grpc/credentials/insecure"
	utilerrors "k8s.io/apimachinery/pkg/util/errors"

	options "github.com/kart-io/sentinel-iam/pkg/options/tracing"
)

// Provider manages the tracer provider lifecycle.
type Provider struct {
	tracerProvider trace.TracerProvider
	sdk            *sdktrace.TracerProvider
}

// ProviderOption is a functional option for NewProvider.
type ProviderOption func(*providerConfig)

type providerConfig struct {
	version  string
	writer   io.Writer
	exporter sdktrace.SpanExporter
}

// WithServiceVersion sets the service.version resource attribute.
func WithServiceVersion(version string) ProviderOption {
	return func(c *providerConfig) { c.version = version }
}

// WithWriter redirects the stdout exporter.
func WithWriter(w io.Writer) ProviderOption {
	return func(c *providerConfig) { c.writer = w }
}

// WithExporter replaces the configured exporter.
func WithExporter(exp sdktrace.SpanExporter) ProviderOption {
	return func(c *providerConfig) { c.exporter = exp }
}

// NewProvider creates a tracer provider from opts. When tracing is disabled
// the provider hands out no-op tracers and the globals are left untouched.
// Otherwise the provider and the W3C propagators are installed globally.
func NewProvider(opts *options.Options, popts ...ProviderOption) (*Provider, error) {
	if opts == nil {
		opts = options.NewOptions()
	}
	if err := opts.Complete(); err != nil {
		return nil, fmt.Errorf("failed to complete tracing options: %w", err)
	}
	if errs := opts.Validate(); len(errs) > 0 {
		return nil, utilerrors.NewAggregate(errs)
	}

	if !opts.Enabled {
		return &Provider{tracerProvider: noop.NewTracerProvider()}, nil
	}

	cfg := &providerConfig{writer: os.Stdout}
	for _, o := range popts {
		o(cfg)
	}

	res, err := newResource(opts, cfg.version)
	if err != nil {
		return nil, fmt.Errorf("failed to create tracing resource: %w", err)
	}

	exporter := cfg.exporter
	if exporter == nil {
		exporter, err = newExporter(context.Background(), opts, cfg.writer)
		if err != nil {
			return nil, fmt.Errorf("failed to create trace exporter: %w", err)
		}
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithSampler(newSampler(opts)),
		sdktrace.WithBatcher(exporter,
			sdktrace.WithBatchTimeout(opts.BatchTimeout),
			sdktrace.WithExportTimeout(opts.ExportTimeout),
		),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return &Provider{tracerProvider: tp, sdk: tp}, nil
}

// TracerProvider returns the provider handing out tracers.
func (p *Provider) TracerProvider() trace.TracerProvider {
	return p.tracerProvider
}

// Shutdown flushes pending spans and releases the exporter.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.sdk == nil {
		return nil
	}
	return p.sdk.Shutdown(ctx)
}

func newResource(opts *options.Options, version string) (*resource.Resource, error) {
	attrs := []resource.Option{
		resource.WithAttributes(semconv.ServiceName(opts.ServiceName)),
		resource.WithFromEnv(),
		resource.WithTelemetrySDK(),
		resource.WithHost(),
	}
	if version != "" {
		attrs = append(attrs, resource.WithAttributes(semconv.ServiceVersion(version)))
	}
	if opts.Environment != "" {
		attrs = append(attrs, resource.WithAttributes(semconv.DeploymentEnvironment(opts.Environment)))
	}
	return resource.New(context.Background(), attrs...)
}

func newExporter(ctx context.Context, opts *options.Options, w io.Writer) (sdktrace.SpanExporter, error) {
	switch opts.ExporterType {
	case options.ExporterOTLPGRPC:
		grpcOpts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(opts.Endpoint)}
		if opts.Insecure {
			grpcOpts = append(grpcOpts, otlptracegrpc.WithTLSCredentials(insecure.NewCredentials()))
		}
		if len(opts.Headers) > 0 {
			grpcOpts = append(grpcOpts, otlptracegrpc.WithHeaders(opts.Headers))
		}
		return otlptracegrpc.New(ctx, grpcOpts...)

	case options.ExporterOTLPHTTP:
		httpOpts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(opts.Endpoint)}
		if opts.Insecure {
			httpOpts = append(httpOpts, otlptracehttp.WithInsecure())
		}
		if len(opts.Headers) > 0 {
			httpOpts = append(httpOpts, otlptracehttp.WithHeaders(opts.Headers))
		}
		return otlptracehttp.New(ctx, httpOpts...)

	case options.ExporterStdout:
		return stdouttrace.New(stdouttrace.WithWriter(w))

	case options.ExporterNoop:
		return noopExporter{}, nil

	default:
		return nil, fmt.Errorf("unsupported exporter type: %s", opts.ExporterType)
	}
}

// noopExporter drops every span. Spans are still sampled and carry ids.
type noopExporter struct{}

func (noopExporter) ExportSpans(context.Context, []sdktrace.ReadOnlySpan) error { return nil }
func (noopExporter) Shutdown(context.Context) error                             { return nil }

func newSampler(opts *options.Options) sdktrace.Sampler {
	switch opts.SamplerType {
	case options.SamplerAlwaysOn:
		return sdktrace.AlwaysSample()
	case options.SamplerAlwaysOff:
		return sdktrace.NeverSample()
	case options.SamplerRatio:
		return sdktrace.TraceIDRatioBased(opts.SamplerRatio)
	default:
		return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(opts.SamplerRatio))
	}
}
