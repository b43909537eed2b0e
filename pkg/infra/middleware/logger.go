package middleware

import (
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"

	"github.com/kart-io/sentinel-iam/pkg/infra/tracing"
	"github.com/kart-io/sentinel-iam/pkg/security/auth"
)

// fieldsPool is a sync.Pool for reusing fields slices to reduce heap allocations.
var fieldsPool = sync.Pool{
	New: func() interface{} {
		s := make([]interface{}, 0, 16)
		return &s
	},
}

func acquireFields() *[]interface{} {
	return fieldsPool.Get().(*[]interface{})
}

func releaseFields(fields *[]interface{}) {
	*fields = (*fields)[:0]
	fieldsPool.Put(fields)
}

// LoggerConfig defines the config for Logger middleware.
type LoggerConfig struct {
	// SkipPaths is a list of paths to skip logging.
	SkipPaths []string
}

// DefaultLoggerConfig is the default Logger middleware config.
var DefaultLoggerConfig = LoggerConfig{
	SkipPaths: []string{"/healthz"},
}

// Logger returns a middleware that logs HTTP requests.
func Logger() gin.HandlerFunc {
	return LoggerWithConfig(DefaultLoggerConfig)
}

// LoggerWithConfig returns a Logger middleware with custom config.
func LoggerWithConfig(config LoggerConfig) gin.HandlerFunc {
	skipPaths := make(map[string]bool, len(config.SkipPaths))
	for _, path := range config.SkipPaths {
		skipPaths[path] = true
	}

	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if skipPaths[path] {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()
		latency := time.Since(start)

		fields := acquireFields()
		defer releaseFields(fields)

		*fields = append(*fields,
			"method", c.Request.Method,
			"path", path,
			"status", c.Writer.Status(),
			"remote_addr", c.ClientIP(),
			"latency", latency.String(),
			"latency_ms", latency.Milliseconds(),
		)
		if requestID := GetRequestID(c.Request.Context()); requestID != "" {
			*fields = append(*fields, "request_id", requestID)
		}
		if traceID := tracing.TraceIDFromContext(c.Request.Context()); traceID != "" {
			*fields = append(*fields, "trace_id", traceID)
		}
		if subject := auth.SubjectFromContext(c.Request.Context()); subject != "" {
			*fields = append(*fields, "subject", subject)
		}

		switch status := c.Writer.Status(); {
		case status >= 500:
			logger.Errorw("HTTP Request", (*fields)...)
		case status >= 400:
			logger.Warnw("HTTP Request", (*fields)...)
		default:
			logger.Infow("HTTP Request", (*fields)...)
		}
	}
}
