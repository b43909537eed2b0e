// Package common holds request metadata shared by the middleware and the
// business layer, so neither has to import the other.
package common

import (
	"context"

	"github.com/kart-io/sentinel-iam/pkg/id"
)

// HeaderXRequestID is the header name for request ID.
const HeaderXRequestID = "X-Request-ID"

type requestIDKey struct{}

type clientInfoKey struct{}

// ClientInfo describes the caller of the current request.
type ClientInfo struct {
	IP        string
	UserAgent string
}

// GetRequestID returns the request ID from the context, or "".
func GetRequestID(ctx context.Context) string {
	if v, ok := ctx.Value(requestIDKey{}).(string); ok {
		return v
	}
	return ""
}

// WithRequestID stores the request ID in the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// GenerateRequestID returns a new ULID request ID.
func GenerateRequestID() string {
	return id.NewULID()
}

// WithClientInfo stores caller metadata in the context.
func WithClientInfo(ctx context.Context, info ClientInfo) context.Context {
	return context.WithValue(ctx, clientInfoKey{}, info)
}

// GetClientInfo returns caller metadata, or the zero value.
func GetClientInfo(ctx context.Context) ClientInfo {
	info, _ := ctx.Value(clientInfoKey{}).(ClientInfo)
	return info
}
