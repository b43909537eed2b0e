// Package identity turns a bearer credential into an auth.Principal.
//
// The resolver verifies the token, parses the subject as a user id and
// looks the user up. It is read-only: it never refreshes or rotates tokens.
package identity

import (
	"context"
	"strconv"
	"strings"

	"github.com/kart-io/sentinel-iam/pkg/errors"
	"github.com/kart-io/sentinel-iam/pkg/security/auth"
)

// BearerScheme is the authorization scheme accepted by ExtractBearer.
const BearerScheme = "Bearer"

// TokenVerifier validates a token and returns its claims.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*auth.Claims, error)
}

// User is the projection of a user record the resolver needs.
type User struct {
	ID        uint64
	Email     string
	Role      string
	ProfileID string
	Active    bool

	// Roles are the names of the roles assigned to the user.
	Roles []string

	// Permissions is the "resource:action" union over Roles.
	Permissions []string
}

// UserLookup finds users by id. An absent user is reported either as a nil
// user or as an error in the NotFound category.
type UserLookup interface {
	FindByID(ctx context.Context, id uint64) (*User, error)
}

// Resolver implements credential to principal resolution.
type Resolver struct {
	verifier TokenVerifier
	users    UserLookup
}

// NewResolver creates a Resolver.
func NewResolver(verifier TokenVerifier, users UserLookup) *Resolver {
	return &Resolver{verifier: verifier, users: users}
}

// ExtractBearer returns the token carried by an Authorization header value.
// The scheme is matched case-insensitively.
func ExtractBearer(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" || strings.EqualFold(header, BearerScheme) {
		return "", errors.ErrMissingToken
	}

	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, BearerScheme) {
		return "", errors.ErrInvalidToken.WithMessage("authorization scheme must be Bearer")
	}

	token = strings.TrimSpace(token)
	if token == "" {
		return "", errors.ErrMissingToken
	}
	return token, nil
}

// Resolve verifies the Authorization header value and loads the principal.
// Errors in the Unauthenticated category are returned for every credential
// problem; lookup failures other than not-found are returned unchanged.
func (r *Resolver) Resolve(ctx context.Context, authorization string) (*auth.Identity, error) {
	token, err := ExtractBearer(authorization)
	if err != nil {
		return nil, err
	}

	claims, err := r.verifier.Verify(ctx, token)
	if err != nil {
		if errors.IsUnauthenticated(err) {
			return nil, err
		}
		return nil, errors.ErrInvalidToken.WithCause(err)
	}

	userID, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil || userID == 0 {
		return nil, errors.ErrInvalidToken.WithMessage("token subject is not a user id")
	}

	user, err := r.users.FindByID(ctx, userID)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, errors.ErrPrincipalNotFound
		}
		return nil, err
	}
	if user == nil || !user.Active {
		return nil, errors.ErrPrincipalNotFound
	}

	return &auth.Identity{
		Principal: NewPrincipal(user, claims),
		Claims:    claims,
		Token:     token,
	}, nil
}

// NewPrincipal projects a user and its verified claims into a Principal.
// Unknown primary roles map to auth.RoleCustom.
func NewPrincipal(user *User, claims *auth.Claims) *auth.Principal {
	role, ok := auth.ParseRole(user.Role)
	if !ok {
		role = auth.RoleCustom
	}

	p := &auth.Principal{
		ID:          strconv.FormatUint(user.ID, 10),
		Email:       user.Email,
		Role:        role,
		ProfileID:   user.ProfileID,
		Roles:       append([]string(nil), user.Roles...),
		Permissions: append([]string(nil), user.Permissions...),
	}

	if claims != nil && len(claims.Extra) > 0 {
		p.Claims = make(map[string]interface{}, len(claims.Extra))
		for k, v := range claims.Extra {
			p.Claims[k] = v
		}
	}
	return p
}
