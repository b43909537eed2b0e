// Package auth binds the authorization guard and the field access filter to gin.
//
// Every route binds a registered operation name and the guard runs before
// the handler:
//
//	users.GET("/:id", auth.Authorize(guard, "user.get"), h.Get)
//
// Handlers shape their payload with Write or FilterResponse so that fields
// restricted by fieldaccess rules are removed for the caller's roles.
package auth

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"

	"github.com/kart-io/sentinel-iam/pkg/errors"
	"github.com/kart-io/sentinel-iam/pkg/security/auth"
	"github.com/kart-io/sentinel-iam/pkg/security/auth/jwt"
	"github.com/kart-io/sentinel-iam/pkg/security/authz/fieldaccess"
	"github.com/kart-io/sentinel-iam/pkg/utils/response"
)

// Gin keys set by Authorize.
const (
	ContextKeyPrincipal = "auth:principal"
	ContextKeyOperation = "auth:operation"
)

// HeaderAuthorization is the header carrying the bearer credential.
const HeaderAuthorization = "Authorization"

// Authorizer is satisfied by *authz.Guard.
type Authorizer interface {
	Authorize(ctx context.Context, operation, credential string) (*auth.Identity, error)
}

// Authorize returns a middleware enforcing the requirement registered for
// operation. On success the principal, claims and token are injected into
// the request context; public operations run with no principal.
func Authorize(guard Authorizer, operation string) gin.HandlerFunc {
	return func(c *gin.Context) {
		credential := c.GetHeader(HeaderAuthorization)

		id, err := guard.Authorize(c.Request.Context(), operation, credential)
		if err != nil {
			errno := errors.FromError(err)
			logAuthFailure(c, operation, credential, errno)
			response.Fail(c, errno)
			return
		}

		c.Set(ContextKeyOperation, operation)
		if id != nil {
			ctx := auth.InjectAuth(c.Request.Context(), id.Principal, id.Claims, id.Token)
			c.Request = c.Request.WithContext(ctx)
			c.Set(ContextKeyPrincipal, id.Principal)
		}

		c.Next()
	}
}

// Principal returns the caller, or nil for anonymous requests.
func Principal(c *gin.Context) *auth.Principal {
	return auth.PrincipalFromContext(c.Request.Context())
}

// Roles returns the caller's role names; anonymous callers are "public".
func Roles(c *gin.Context) []string {
	return Principal(c).RoleNames()
}

// FilterResponse removes the fields of data the caller may not see.
func FilterResponse(c *gin.Context, data interface{}) interface{} {
	return fieldaccess.Filter(data, Roles(c))
}

// Write renders err, or data filtered for the caller.
func Write(c *gin.Context, err error, data interface{}) {
	if err != nil {
		response.Write(c, err, nil)
		return
	}
	response.OK(c, FilterResponse(c, data))
}

// logAuthFailure records guard rejections for security audit. Only a token
// prefix is logged.
func logAuthFailure(c *gin.Context, operation, credential string, errno *errors.Errno) {
	logger.Warnw("authorization rejected",
		"operation", operation,
		"code", errno.Code,
		"reason", errno.MessageEN,
		"remote_addr", c.ClientIP(),
		"path", c.Request.URL.Path,
		"method", c.Request.Method,
		"token_prefix", jwt.TokenPrefix(credential),
	)
}
