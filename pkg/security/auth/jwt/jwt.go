// Package jwt implements auth.Authenticator with JSON Web Tokens.
//
// Supported algorithms are HS256/384/512 with a shared secret and
// RS256/384/512 or ES256/384/512 with PEM encoded keys. Revocation is
// delegated to a pluggable Store (memory or redis).
//
// Usage:
//
//	jwtAuth, err := jwt.New(
//	    jwt.WithKey(secret),
//	    jwt.WithExpired(2*time.Hour),
//	    jwt.WithStore(jwt.NewRedisStore(rdb, "")),
//	)
//	token, err := jwtAuth.Sign(ctx, "42", auth.WithExtra(map[string]interface{}{"email": email}))
//	claims, err := jwtAuth.Verify(ctx, token.GetAccessToken())
package jwt

import (
	"context"
	"crypto/x509"
	"encoding/pem"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/kart-io/logger"
	utilerrors "k8s.io/apimachinery/pkg/util/errors"

	"github.com/kart-io/sentinel-iam/pkg/errors"
	"github.com/kart-io/sentinel-iam/pkg/id"
	"github.com/kart-io/sentinel-iam/pkg/security/auth"
)

// JWT implements auth.Authenticator using JSON Web Tokens.
type JWT struct {
	opts   *Options
	store  Store
	method jwt.SigningMethod
	now    func() time.Time
}

var _ auth.Authenticator = (*JWT)(nil)

// Option is a functional option for JWT authenticator.
type Option func(*JWT)

// New creates a new JWT authenticator.
func New(opts ...Option) (*JWT, error) {
	j := &JWT{
		opts: NewOptions(),
		now:  time.Now,
	}

	for _, opt := range opts {
		opt(j)
	}

	if err := j.opts.Complete(); err != nil {
		return nil, fmt.Errorf("complete options: %w", err)
	}

	if err := utilerrors.NewAggregate(j.opts.Validate()); err != nil {
		return nil, fmt.Errorf("validate options: %w", err)
	}

	j.method = jwt.GetSigningMethod(j.opts.SigningMethod)
	if j.method == nil {
		return nil, fmt.Errorf("unsupported signing method: %s", j.opts.SigningMethod)
	}

	return j, nil
}

// WithOptions sets the JWT options.
func WithOptions(opts *Options) Option {
	return func(j *JWT) {
		if opts != nil {
			j.opts = opts
		}
	}
}

// WithKey sets the signing key.
func WithKey(key string) Option {
	return func(j *JWT) {
		j.opts.Key = key
	}
}

// WithSigningMethod sets the signing algorithm.
func WithSigningMethod(method string) Option {
	return func(j *JWT) {
		j.opts.SigningMethod = method
	}
}

// WithExpired sets the token expiration duration.
func WithExpired(d time.Duration) Option {
	return func(j *JWT) {
		j.opts.Expired = d
	}
}

// WithMaxRefresh sets the maximum refresh duration.
func WithMaxRefresh(d time.Duration) Option {
	return func(j *JWT) {
		j.opts.MaxRefresh = d
	}
}

// WithIssuer sets the token issuer.
func WithIssuer(issuer string) Option {
	return func(j *JWT) {
		j.opts.Issuer = issuer
	}
}

// WithAudience sets the token audience.
func WithAudience(audience ...string) Option {
	return func(j *JWT) {
		j.opts.Audience = audience
	}
}

// WithPublicKey sets the public key for RSA/ECDSA algorithms.
func WithPublicKey(key string) Option {
	return func(j *JWT) {
		j.opts.PublicKey = key
	}
}

// WithStore sets the token store for revocation support.
func WithStore(store Store) Option {
	return func(j *JWT) {
		j.store = store
	}
}

// Type returns the authenticator type.
func (j *JWT) Type() string {
	return "jwt"
}

// Sign creates a new token for the given subject.
func (j *JWT) Sign(_ context.Context, subject string, opts ...auth.SignOption) (auth.Token, error) {
	signOpts := &auth.SignOptions{}
	for _, opt := range opts {
		opt(signOpts)
	}

	now := j.now()
	expiresAt := now.Add(j.opts.Expired)
	if signOpts.ExpiresAt != nil {
		expiresAt = *signOpts.ExpiresAt
	}

	tokenID := signOpts.TokenID
	if tokenID == "" {
		tokenID = id.NewULID()
	}

	audience := j.opts.Audience
	if len(signOpts.Audience) > 0 {
		audience = signOpts.Audience
	}

	claims := &customClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    j.opts.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			NotBefore: jwt.NewNumericDate(now),
			ID:        tokenID,
		},
		Extra: signOpts.Extra,
	}
	if len(audience) > 0 {
		claims.Audience = audience
	}

	token := jwt.NewWithClaims(j.method, claims)
	if j.opts.KeyID != "" {
		token.Header["kid"] = j.opts.KeyID
	}

	signingKey, err := j.getSigningKey()
	if err != nil {
		return nil, err
	}
	tokenString, err := token.SignedString(signingKey)
	if err != nil {
		return nil, errors.ErrInternal.WithCause(err).WithMessage("failed to sign token")
	}

	return &auth.BaseToken{
		AccessToken: tokenString,
		TokenType:   "Bearer",
		ExpiresAt:   expiresAt.Unix(),
		ExpiresIn:   int64(expiresAt.Sub(now).Seconds()),
	}, nil
}

// Verify validates signature, expiry and revocation and returns the claims.
func (j *JWT) Verify(ctx context.Context, tokenString string) (*auth.Claims, error) {
	if tokenString == "" {
		return nil, errors.ErrInvalidToken.WithMessage("token is empty")
	}

	parser := jwt.NewParser(jwt.WithValidMethods([]string{j.method.Alg()}))
	claims, err := j.parse(parser, tokenString)
	if err != nil {
		return nil, err
	}

	if !j.acceptsAudience(claims) {
		return nil, errors.ErrInvalidToken.WithMessage("audience mismatch")
	}

	if err := j.checkRevoked(ctx, tokenString); err != nil {
		return nil, err
	}

	return claims.toAuth(), nil
}

// acceptsAudience reports whether the token names at least one configured
// audience. With no configured audience every token passes.
func (j *JWT) acceptsAudience(claims *customClaims) bool {
	if len(j.opts.Audience) == 0 {
		return true
	}
	for _, aud := range j.opts.Audience {
		if claims.VerifyAudience(aud, true) {
			return true
		}
	}
	return false
}

// Refresh creates a new token using a token still inside its refresh window.
// The old token is revoked and the new one gets a fresh token ID.
func (j *JWT) Refresh(ctx context.Context, tokenString string) (auth.Token, error) {
	claims, err := j.verifyForRefresh(ctx, tokenString)
	if err != nil {
		return nil, err
	}

	j.revokeOldToken(ctx, tokenString)

	signOpts := []auth.SignOption{}
	if len(claims.Extra) > 0 {
		signOpts = append(signOpts, auth.WithExtra(claims.Extra))
	}
	if len(claims.Audience) > 0 {
		signOpts = append(signOpts, auth.WithAudience(claims.Audience...))
	}

	return j.Sign(ctx, claims.Subject, signOpts...)
}

// Revoke invalidates the given token until its refresh window closes.
func (j *JWT) Revoke(ctx context.Context, tokenString string) error {
	if j.store == nil {
		return errors.ErrNotImplemented.WithMessage("token revocation requires a store")
	}

	if tokenString == "" {
		return errors.ErrInvalidToken.WithMessage("token is empty")
	}

	parser := jwt.NewParser(jwt.WithValidMethods([]string{j.method.Alg()}), jwt.WithoutClaimsValidation())
	claims, err := j.parse(parser, tokenString)
	if err != nil {
		return err
	}

	if claims.IssuedAt == nil {
		return errors.ErrInvalidToken.WithMessage("missing issued at claim")
	}

	ttl := claims.IssuedAt.Time.Add(j.opts.MaxRefresh).Sub(j.now())
	if ttl <= 0 {
		return nil
	}

	return j.store.Revoke(ctx, tokenString, ttl)
}

func (j *JWT) verifyForRefresh(ctx context.Context, tokenString string) (*auth.Claims, error) {
	if tokenString == "" {
		return nil, errors.ErrInvalidToken.WithMessage("token is empty")
	}

	// Expired tokens may be refreshed, so claims validation is skipped here
	// and the refresh window is enforced explicitly.
	parser := jwt.NewParser(jwt.WithValidMethods([]string{j.method.Alg()}), jwt.WithoutClaimsValidation())
	claims, err := j.parse(parser, tokenString)
	if err != nil {
		return nil, err
	}

	if claims.IssuedAt == nil {
		return nil, errors.ErrInvalidToken.WithMessage("missing issued at claim")
	}
	if j.now().After(claims.IssuedAt.Time.Add(j.opts.MaxRefresh)) {
		return nil, errors.ErrSessionExpired.WithMessage("token refresh period exceeded")
	}

	if err := j.checkRevoked(ctx, tokenString); err != nil {
		return nil, err
	}

	return claims.toAuth(), nil
}

func (j *JWT) parse(parser *jwt.Parser, tokenString string) (*customClaims, error) {
	token, err := parser.ParseWithClaims(tokenString, &customClaims{}, func(token *jwt.Token) (interface{}, error) {
		return j.getVerifyingKey()
	})
	if err != nil {
		return nil, mapParseError(err)
	}

	claims, ok := token.Claims.(*customClaims)
	if !ok || !token.Valid {
		return nil, errors.ErrInvalidToken.WithMessage("invalid claims type")
	}
	return claims, nil
}

func (j *JWT) checkRevoked(ctx context.Context, tokenString string) error {
	if j.store == nil {
		return nil
	}
	revoked, err := j.store.IsRevoked(ctx, tokenString)
	if err != nil {
		return errors.ErrInternal.WithCause(err).WithMessage("failed to check token revocation")
	}
	if revoked {
		return errors.ErrTokenRevoked
	}
	return nil
}

// revokeOldToken attempts to revoke the old token.
// Failures are logged but do not block the refresh process.
func (j *JWT) revokeOldToken(ctx context.Context, tokenString string) {
	if j.store == nil {
		return
	}

	if err := j.Revoke(ctx, tokenString); err != nil {
		logger.Warnw("failed to revoke old token during refresh",
			"error", err,
			"token_prefix", TokenPrefix(tokenString))
	}
}

// TokenPrefix returns the first 16 characters of a token for logging purposes.
func TokenPrefix(tokenString string) string {
	if len(tokenString) > 16 {
		return tokenString[:16] + "..."
	}
	return tokenString
}

func (j *JWT) getSigningKey() (interface{}, error) {
	if j.opts.isHMAC() {
		return []byte(j.opts.Key), nil
	}

	block, _ := pem.Decode([]byte(j.opts.Key))
	if block == nil {
		return nil, errors.ErrInvalidParam.WithMessage("invalid private key PEM format")
	}

	if strings.HasPrefix(j.opts.SigningMethod, "RS") {
		if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
			return key, nil
		}
	} else if key, err := x509.ParseECPrivateKey(block.Bytes); err == nil {
		return key, nil
	}

	key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, errors.ErrInvalidParam.WithCause(err).WithMessage("failed to parse private key")
	}
	return key, nil
}

func (j *JWT) getVerifyingKey() (interface{}, error) {
	if j.opts.isHMAC() {
		return []byte(j.opts.Key), nil
	}

	if j.opts.PublicKey == "" {
		return nil, errors.ErrInvalidParam.WithMessage("public key required for RSA/ECDSA verification")
	}

	block, _ := pem.Decode([]byte(j.opts.PublicKey))
	if block == nil {
		return nil, errors.ErrInvalidParam.WithMessage("invalid public key PEM format")
	}

	key, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, errors.ErrInvalidParam.WithCause(err).WithMessage("failed to parse public key")
	}
	return key, nil
}

// mapParseError maps jwt parse errors onto the Unauthenticated taxonomy.
func mapParseError(err error) *errors.Errno {
	switch {
	case stderrors.Is(err, jwt.ErrTokenExpired):
		return errors.ErrTokenExpired
	case stderrors.Is(err, jwt.ErrTokenSignatureInvalid):
		return errors.ErrInvalidToken.WithMessage("invalid signature")
	case stderrors.Is(err, jwt.ErrTokenMalformed):
		return errors.ErrInvalidToken.WithMessage("malformed token")
	case stderrors.Is(err, jwt.ErrTokenNotValidYet):
		return errors.ErrInvalidToken.WithMessage("token not valid yet")
	default:
		return errors.ErrInvalidToken.WithCause(err)
	}
}

// customClaims extends jwt.RegisteredClaims with extra fields.
type customClaims struct {
	jwt.RegisteredClaims
	Extra map[string]interface{} `json:"extra,omitempty"`
}

func (c *customClaims) toAuth() *auth.Claims {
	out := &auth.Claims{
		Subject:  c.Subject,
		Issuer:   c.Issuer,
		Audience: c.Audience,
		ID:       c.ID,
		Extra:    c.Extra,
	}
	if c.ExpiresAt != nil {
		out.ExpiresAt = c.ExpiresAt.Unix()
	}
	if c.IssuedAt != nil {
		out.IssuedAt = c.IssuedAt.Unix()
	}
	if c.NotBefore != nil {
		out.NotBefore = c.NotBefore.Unix()
	}
	return out
}
