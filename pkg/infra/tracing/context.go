package tracing

import (
	"context"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Span attribute keys shared by the HTTP middleware and the guard.
const (
	HTTPRequestID     = "http.request_id"
	HTTPClientIP      = "http.client_ip"
	AuthzOperation    = "authz.operation"
	AuthzPublic       = "authz.public"
	AuthzAllowed      = "authz.allowed"
	AuthzReason       = "authz.reason"
	AuthzSubject      = "authz.subject"
	AuthzMissingRoles = "authz.missing_roles"
	AuthzMissingPerms = "authz.missing_permissions"
)

// RecordError records err on span and marks the span failed.
func RecordError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// TraceIDFromContext extracts the trace ID from the context.
// Returns an empty string if no trace is active.
func TraceIDFromContext(ctx context.Context) string {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return ""
	}
	return sc.TraceID().String()
}
