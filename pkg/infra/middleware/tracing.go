package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/kart-io/sentinel-iam/pkg/infra/tracing"
)

// TracerName is the name of the tracer for HTTP middleware.
const TracerName = "github.com/kart-io/sentinel-iam/pkg/infra/middleware"

// HeaderXTraceID carries the trace id of the request back to the client.
const HeaderXTraceID = "X-Trace-ID"

// TracingConfig defines the config for Tracing middleware.
type TracingConfig struct {
	// TracerProvider creates the server spans.
	// Default: the global provider
	TracerProvider trace.TracerProvider

	// Propagator extracts the incoming trace context.
	// Default: the global propagator
	Propagator propagation.TextMapPropagator

	// SkipPaths is a list of paths to skip tracing.
	SkipPaths []string
}

// TracingWithConfig returns a middleware that starts a server span per
// request. The span is named "{method} {route}" and ends after the
// handler chain with the response status recorded.
func TracingWithConfig(config TracingConfig) gin.HandlerFunc {
	if config.TracerProvider == nil {
		config.TracerProvider = otel.GetTracerProvider()
	}
	if config.Propagator == nil {
		config.Propagator = otel.GetTextMapPropagator()
	}
	tracer := config.TracerProvider.Tracer(TracerName)

	skipPaths := make(map[string]struct{}, len(config.SkipPaths))
	for _, path := range config.SkipPaths {
		skipPaths[path] = struct{}{}
	}

	return func(c *gin.Context) {
		req := c.Request
		if _, skip := skipPaths[req.URL.Path]; skip {
			c.Next()
			return
		}

		route := c.FullPath()
		if route == "" {
			route = req.URL.Path
		}

		ctx := config.Propagator.Extract(req.Context(), propagation.HeaderCarrier(req.Header))
		ctx, span := tracer.Start(ctx, fmt.Sprintf("%s %s", req.Method, route),
			trace.WithSpanKind(trace.SpanKindServer))
		defer span.End()

		attrs := []attribute.KeyValue{
			semconv.HTTPMethod(req.Method),
			semconv.HTTPTarget(req.URL.Path),
			attribute.String("http.route", route),
			semconv.ServerAddress(req.Host),
			attribute.String(tracing.HTTPClientIP, c.ClientIP()),
		}
		if ua := req.UserAgent(); ua != "" {
			attrs = append(attrs, semconv.UserAgentOriginal(ua))
		}
		if requestID := GetRequestID(ctx); requestID != "" {
			attrs = append(attrs, attribute.String(tracing.HTTPRequestID, requestID))
		}
		span.SetAttributes(attrs...)

		if span.SpanContext().IsValid() {
			c.Header(HeaderXTraceID, span.SpanContext().TraceID().String())
		}
		c.Request = req.WithContext(ctx)

		c.Next()

		status := c.Writer.Status()
		span.SetAttributes(semconv.HTTPStatusCode(status))
		if status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(status))
		}
		if errs := c.Errors.ByType(gin.ErrorTypeAny); len(errs) > 0 {
			span.RecordError(fmt.Errorf("%s", strings.Join(errs.Errors(), "; ")))
		}
	}
}
