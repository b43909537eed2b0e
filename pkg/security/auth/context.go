package auth

import (
	"context"
)

// contextKey is the type for context keys in this package.
type contextKey string

const (
	claimsKey    contextKey = "auth:claims"
	principalKey contextKey = "auth:principal"
	tokenKey     contextKey = "auth:token"
)

// ContextWithClaims returns a new context with the given claims.
func ContextWithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

// ClaimsFromContext returns the claims from the context.
// Returns nil if no claims are found.
func ClaimsFromContext(ctx context.Context) *Claims {
	if claims, ok := ctx.Value(claimsKey).(*Claims); ok {
		return claims
	}
	return nil
}

// ContextWithPrincipal returns a new context carrying the principal.
func ContextWithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFromContext returns the principal from the context, or nil for
// anonymous requests.
func PrincipalFromContext(ctx context.Context) *Principal {
	if p, ok := ctx.Value(principalKey).(*Principal); ok {
		return p
	}
	return nil
}

// SubjectFromContext returns the principal id, or "" when anonymous.
func SubjectFromContext(ctx context.Context) string {
	if p := PrincipalFromContext(ctx); p != nil {
		return p.ID
	}
	return ""
}

// ContextWithToken returns a new context with the given token string.
func ContextWithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey, token)
}

// TokenFromContext returns the token string from the context.
// Returns empty string if no token is found.
func TokenFromContext(ctx context.Context) string {
	if token, ok := ctx.Value(tokenKey).(string); ok {
		return token
	}
	return ""
}

// InjectAuth injects the principal, its claims and the raw token into ctx.
func InjectAuth(ctx context.Context, p *Principal, claims *Claims, token string) context.Context {
	ctx = ContextWithPrincipal(ctx, p)
	ctx = ContextWithToken(ctx, token)
	if claims != nil {
		ctx = ContextWithClaims(ctx, claims)
	}
	return ctx
}
