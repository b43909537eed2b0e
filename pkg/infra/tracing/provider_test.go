package tracing

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	options "github.com/kart-io/sentinel-iam/pkg/options/tracing"
)

func restoreGlobals(t *testing.T) {
	t.Helper()
	tp, prop := otel.GetTracerProvider(), otel.GetTextMapPropagator()
	t.Cleanup(func() {
		otel.SetTracerProvider(tp)
		otel.SetTextMapPropagator(prop)
	})
}

func TestNewProvider_Disabled(t *testing.T) {
	p, err := NewProvider(nil)
	require.NoError(t, err)

	ctx, span := p.TracerProvider().Tracer("test").Start(context.Background(), "op")
	span.End()
	assert.False(t, span.SpanContext().IsValid())
	assert.Empty(t, TraceIDFromContext(ctx))
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestNewProvider_InvalidOptions(t *testing.T) {
	opts := options.NewOptions()
	opts.Enabled = true
	opts.ExporterType = "zipkin"

	_, err := NewProvider(opts)
	assert.ErrorContains(t, err, "invalid exporter type")
}

func TestNewProvider_ExportsOnShutdown(t *testing.T) {
	restoreGlobals(t)

	opts := options.NewOptions()
	opts.Enabled = true
	opts.SamplerType = options.SamplerAlwaysOn
	exp := tracetest.NewInMemoryExporter()

	p, err := NewProvider(opts, WithExporter(exp), WithServiceVersion("v1.2.3"))
	require.NoError(t, err)

	ctx, span := otel.Tracer("test").Start(context.Background(), "authz.Authorize")
	assert.NotEmpty(t, TraceIDFromContext(ctx))
	span.End()

	require.NoError(t, p.Shutdown(context.Background()))
	spans := exp.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "authz.Authorize", spans[0].Name)

	attrs := map[string]string{}
	for _, kv := range spans[0].Resource.Attributes() {
		attrs[string(kv.Key)] = kv.Value.Emit()
	}
	assert.Equal(t, "sentinel-user-center", attrs["service.name"])
	assert.Equal(t, "v1.2.3", attrs["service.version"])
}

func TestNewProvider_Stdout(t *testing.T) {
	restoreGlobals(t)

	opts := options.NewOptions()
	opts.Enabled = true
	opts.ExporterType = options.ExporterStdout
	opts.SamplerType = options.SamplerAlwaysOn
	var buf bytes.Buffer

	p, err := NewProvider(opts, WithWriter(&buf))
	require.NoError(t, err)

	_, span := p.TracerProvider().Tracer("test").Start(context.Background(), "authz.Decide")
	span.End()
	require.NoError(t, p.Shutdown(context.Background()))
	assert.Contains(t, buf.String(), "authz.Decide")
}
