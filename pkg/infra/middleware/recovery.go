package middleware

import (
	"fmt"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"

	"github.com/kart-io/sentinel-iam/pkg/errors"
	"github.com/kart-io/sentinel-iam/pkg/utils/response"
)

// RecoveryConfig defines the config for Recovery middleware.
type RecoveryConfig struct {
	// EnableStackTrace includes stack trace in error response (for development).
	EnableStackTrace bool

	// OnPanic is called when a panic occurs.
	OnPanic func(c *gin.Context, err interface{}, stack []byte)
}

// RecoveryWithConfig returns a middleware that recovers from panics and
// renders them as ErrPanic responses.
func RecoveryWithConfig(config RecoveryConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			stack := debug.Stack()

			logger.Errorw("panic recovered",
				"panic", fmt.Sprint(r),
				"path", c.Request.URL.Path,
				"request_id", GetRequestID(c.Request.Context()),
				"stack", string(stack),
			)

			if config.OnPanic != nil {
				config.OnPanic(c, r, stack)
			}

			err := errors.ErrPanic
			if config.EnableStackTrace {
				err = errors.ErrPanic.WithMessage(fmt.Sprintf("panic: %v\n%s", r, stack))
			}
			response.Fail(c, err)
		}()
		c.Next()
	}
}
