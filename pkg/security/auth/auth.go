// Package auth defines the identity types shared by the token verifier,
// the identity resolver and the authorization guard.
//
// The authentication flow:
//  1. AuthService signs a Token for a user after a successful login.
//  2. The client presents it as a bearer credential on each request.
//  3. The identity resolver verifies it into Claims and looks the user up.
//  4. The resulting Principal is injected into the request context.
package auth

import (
	"context"
	"time"
)

// Authenticator issues and validates tokens.
type Authenticator interface {
	// Sign creates a new token for the given subject (the user ID).
	Sign(ctx context.Context, subject string, opts ...SignOption) (Token, error)

	// Verify validates the token and returns the claims.
	// Returns an error if the token is invalid, expired, or revoked.
	Verify(ctx context.Context, tokenString string) (*Claims, error)

	// Refresh issues a new token for a token still inside its refresh window.
	Refresh(ctx context.Context, tokenString string) (Token, error)

	// Revoke invalidates the given token.
	Revoke(ctx context.Context, tokenString string) error

	// Type returns the authenticator type (e.g., "jwt").
	Type() string
}

// Token represents an authentication token with metadata.
type Token interface {
	GetAccessToken() string
	GetTokenType() string
	GetExpiresAt() int64
	GetExpiresIn() int64
}

// Claims represents the authentication claims extracted from a token.
type Claims struct {
	// Subject is the principal that is the subject of the token (user ID).
	Subject string `json:"sub"`

	// Issuer is the token issuer.
	Issuer string `json:"iss,omitempty"`

	// Audience is the intended audience.
	Audience []string `json:"aud,omitempty"`

	// ExpiresAt is the expiration time (Unix timestamp).
	ExpiresAt int64 `json:"exp,omitempty"`

	// IssuedAt is the time when the token was issued (Unix timestamp).
	IssuedAt int64 `json:"iat,omitempty"`

	// NotBefore is the time before which the token is not valid (Unix timestamp).
	NotBefore int64 `json:"nbf,omitempty"`

	// ID is the unique identifier for the token.
	ID string `json:"jti,omitempty"`

	// Extra contains additional custom claims such as the email and role hint.
	Extra map[string]interface{} `json:"extra,omitempty"`
}

// IsExpired returns true if the token has expired.
func (c *Claims) IsExpired() bool {
	if c.ExpiresAt == 0 {
		return false
	}
	return time.Now().Unix() > c.ExpiresAt
}

// GetExtra returns a custom claim value.
func (c *Claims) GetExtra(key string) (interface{}, bool) {
	if c.Extra == nil {
		return nil, false
	}
	v, ok := c.Extra[key]
	return v, ok
}

// GetExtraString returns a custom claim as string.
func (c *Claims) GetExtraString(key string) string {
	if v, ok := c.GetExtra(key); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// SignOption is a functional option for signing tokens.
type SignOption func(*SignOptions)

// SignOptions contains options for token signing.
type SignOptions struct {
	// ExpiresAt overrides the default expiration time.
	ExpiresAt *time.Time

	// Extra contains additional claims to include in the token.
	Extra map[string]interface{}

	// Audience overrides the default audience.
	Audience []string

	// TokenID sets a custom token ID.
	TokenID string
}

// WithExpiresAt sets custom expiration time.
func WithExpiresAt(t time.Time) SignOption {
	return func(o *SignOptions) {
		o.ExpiresAt = &t
	}
}

// WithExtra sets additional claims.
func WithExtra(extra map[string]interface{}) SignOption {
	return func(o *SignOptions) {
		o.Extra = extra
	}
}

// WithAudience sets the token audience.
func WithAudience(aud ...string) SignOption {
	return func(o *SignOptions) {
		o.Audience = aud
	}
}

// WithTokenID sets a custom token ID.
func WithTokenID(id string) SignOption {
	return func(o *SignOptions) {
		o.TokenID = id
	}
}

// BaseToken is a basic Token implementation.
type BaseToken struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresAt   int64  `json:"expires_at"`
	ExpiresIn   int64  `json:"expires_in"`
}

// GetAccessToken returns the access token.
func (t *BaseToken) GetAccessToken() string { return t.AccessToken }

// GetTokenType returns the token type.
func (t *BaseToken) GetTokenType() string { return t.TokenType }

// GetExpiresAt returns the expiration timestamp.
func (t *BaseToken) GetExpiresAt() int64 { return t.ExpiresAt }

// GetExpiresIn returns the duration until expiration.
func (t *BaseToken) GetExpiresIn() int64 { return t.ExpiresIn }
