package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/kart-io/sentinel-iam/pkg/infra/middleware/common"
	"github.com/kart-io/sentinel-iam/pkg/utils/response"
)

// HeaderXRequestID is re-exported from common.
const HeaderXRequestID = common.HeaderXRequestID

// maxRequestIDLength bounds client supplied request IDs.
const maxRequestIDLength = 64

// RequestID returns a middleware that adds a unique request ID to each request.
// A client supplied X-Request-ID is kept unless it is longer than 64 bytes.
// The request ID is added to:
//   - Response header (X-Request-ID)
//   - Request context (common.GetRequestID)
//   - Gin keys (response.ContextKeyRequestID), picked up by response rendering
//
// It also records the client IP and user agent for audit logging.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(HeaderXRequestID)
		if requestID == "" || len(requestID) > maxRequestIDLength {
			requestID = common.GenerateRequestID()
		}

		c.Header(HeaderXRequestID, requestID)
		c.Set(response.ContextKeyRequestID, requestID)

		ctx := common.WithRequestID(c.Request.Context(), requestID)
		ctx = common.WithClientInfo(ctx, common.ClientInfo{
			IP:        c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
		})
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// GetRequestID returns the request ID from the context.
var GetRequestID = common.GetRequestID
