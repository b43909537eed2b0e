package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"

	"github.com/kart-io/sentinel-iam/pkg/errors"
	"github.com/kart-io/sentinel-iam/pkg/infra/middleware/common"
	"github.com/kart-io/sentinel-iam/pkg/infra/tracing"
	"github.com/kart-io/sentinel-iam/pkg/utils/json"
	"github.com/kart-io/sentinel-iam/pkg/utils/response"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) response.Response {
	t.Helper()
	var resp response.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestRequestID_Generated(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())

	var fromCtx string
	var info common.ClientInfo
	r.GET("/", func(c *gin.Context) {
		fromCtx = GetRequestID(c.Request.Context())
		info = common.GetClientInfo(c.Request.Context())
		response.OK(c, nil)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("User-Agent", "probe/1.0")
	w := serve(r, req)

	header := w.Header().Get(HeaderXRequestID)
	assert.Len(t, header, 26)
	assert.Equal(t, header, fromCtx)
	assert.Equal(t, header, decode(t, w).RequestID)
	assert.Equal(t, "probe/1.0", info.UserAgent)
	assert.NotEmpty(t, info.IP)
}

func TestRequestID_Propagated(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderXRequestID, "upstream-id")
	assert.Equal(t, "upstream-id", serve(r, req).Header().Get(HeaderXRequestID))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderXRequestID, strings.Repeat("a", 100))
	assert.Len(t, serve(r, req).Header().Get(HeaderXRequestID), 26)
}

func TestRecovery(t *testing.T) {
	var recovered interface{}
	r := gin.New()
	r.Use(RequestID(), RecoveryWithConfig(RecoveryConfig{
		OnPanic: func(_ *gin.Context, err interface{}, _ []byte) { recovered = err },
	}))
	r.GET("/", func(*gin.Context) { panic("boom") })

	w := serve(r, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, errors.ErrPanic.Code, decode(t, w).Code)
	assert.Equal(t, "boom", recovered)
}

func TestLogger_PassesThrough(t *testing.T) {
	r := gin.New()
	r.Use(Logger())
	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusTeapot) })

	assert.Equal(t, http.StatusOK, serve(r, httptest.NewRequest(http.MethodGet, "/healthz", nil)).Code)
	assert.Equal(t, http.StatusTeapot, serve(r, httptest.NewRequest(http.MethodGet, "/x", nil)).Code)
}

func TestMemoryRateLimiter(t *testing.T) {
	m := NewMemoryRateLimiter(2, time.Hour)
	defer m.Stop()
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		ok, err := m.Allow(ctx, "k")
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, _ := m.Allow(ctx, "k")
	assert.False(t, ok)

	ok, _ = m.Allow(ctx, "other")
	assert.True(t, ok)

	require.NoError(t, m.Reset(ctx, "k"))
	ok, _ = m.Allow(ctx, "k")
	assert.True(t, ok)
}

func TestMemoryRateLimiter_WindowSlides(t *testing.T) {
	m := NewMemoryRateLimiter(1, 20*time.Millisecond)
	defer m.Stop()
	ctx := context.Background()

	ok, _ := m.Allow(ctx, "k")
	assert.True(t, ok)
	ok, _ = m.Allow(ctx, "k")
	assert.False(t, ok)

	time.Sleep(40 * time.Millisecond)
	ok, _ = m.Allow(ctx, "k")
	assert.True(t, ok)
}

func TestMemoryRateLimiter_Cleanup(t *testing.T) {
	m := NewMemoryRateLimiter(1, time.Hour)
	defer m.Stop()

	_, _ = m.Allow(context.Background(), "k")
	m.cleanup(time.Now().Add(3 * time.Hour))

	_, found := m.store.Load("k")
	assert.False(t, found)
}

func TestDropBefore(t *testing.T) {
	now := time.Now()
	reqs := []time.Time{now.Add(-3 * time.Second), now.Add(-2 * time.Second), now}

	assert.Len(t, dropBefore(reqs, now.Add(-time.Minute)), 3)
	assert.Len(t, dropBefore(reqs, now.Add(-2500*time.Millisecond)), 2)
	assert.Empty(t, dropBefore(reqs, now.Add(time.Second)))
}

func TestRedisRateLimiter(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	defer client.Close()

	l := NewRedisRateLimiter(client, 2, time.Minute)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		ok, err := l.Allow(ctx, "k")
		require.NoError(t, err)
		assert.True(t, ok)
	}

	ok, err := l.Allow(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	members, err := mr.ZMembers("iam:ratelimit:k")
	require.NoError(t, err)
	assert.Len(t, members, 2)

	require.NoError(t, l.Reset(ctx, "k"))
	ok, err = l.Allow(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRateLimitMiddleware(t *testing.T) {
	limiter := NewMemoryRateLimiter(1, time.Hour)
	defer limiter.Stop()

	var reached int
	r := gin.New()
	r.Use(RateLimitWithConfig(RateLimitConfig{
		Limit:          1,
		Window:         time.Hour,
		Limiter:        limiter,
		SkipPaths:      []string{"/healthz"},
		OnLimitReached: func(*gin.Context) { reached++ },
	}))
	r.GET("/", func(c *gin.Context) { response.OK(c, nil) })
	r.GET("/healthz", func(c *gin.Context) { response.OK(c, nil) })

	assert.Equal(t, http.StatusOK, serve(r, httptest.NewRequest(http.MethodGet, "/", nil)).Code)

	w := serve(r, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, errors.ErrTooManyRequests.Code, decode(t, w).Code)
	assert.Equal(t, "3600", w.Header().Get("Retry-After"))
	assert.Equal(t, 1, reached)

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, serve(r, httptest.NewRequest(http.MethodGet, "/healthz", nil)).Code)
	}
}

type failingLimiter struct{}

func (failingLimiter) Allow(context.Context, string) (bool, error) {
	return false, assert.AnError
}

func (failingLimiter) Reset(context.Context, string) error { return nil }

func TestRateLimitMiddleware_FailsOpen(t *testing.T) {
	r := gin.New()
	r.Use(RateLimitWithConfig(RateLimitConfig{Limiter: failingLimiter{}}))
	r.GET("/", func(c *gin.Context) { response.OK(c, nil) })

	assert.Equal(t, http.StatusOK, serve(r, httptest.NewRequest(http.MethodGet, "/", nil)).Code)
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name    string
		remote  string
		xff     string
		trusted []string
		want    string
	}{
		{name: "untrusted peer ignores headers", remote: "1.2.3.4:5", xff: "9.9.9.9", want: "1.2.3.4"},
		{name: "trusted ip", remote: "10.0.0.1:5", xff: "9.9.9.9, 10.0.0.1", trusted: []string{"10.0.0.1"}, want: "9.9.9.9"},
		{name: "trusted cidr", remote: "10.1.2.3:5", xff: "8.8.8.8", trusted: []string{"10.0.0.0/8"}, want: "8.8.8.8"},
		{name: "invalid forwarded value", remote: "10.1.2.3:5", xff: "nonsense", trusted: []string{"10.0.0.0/8"}, want: "10.1.2.3"},
		{name: "invalid cidr", remote: "10.1.2.3:5", xff: "8.8.8.8", trusted: []string{"10.0.0.0/99"}, want: "10.1.2.3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := gin.CreateTestContext(httptest.NewRecorder())
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
			c.Request.RemoteAddr = tt.remote
			if tt.xff != "" {
				c.Request.Header.Set("X-Forwarded-For", tt.xff)
			}
			assert.Equal(t, tt.want, ClientIP(c, tt.trusted))
		})
	}
}

func TestTracing(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))

	r := gin.New()
	r.Use(RequestID(), TracingWithConfig(TracingConfig{
		TracerProvider: tp,
		Propagator:     propagation.TraceContext{},
		SkipPaths:      []string{"/healthz"},
	}))
	var traceID string
	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/v1/users/:id", func(c *gin.Context) {
		traceID = tracing.TraceIDFromContext(c.Request.Context())
		c.Status(http.StatusOK)
	})
	r.GET("/boom", func(c *gin.Context) { c.Status(http.StatusServiceUnavailable) })

	serve(r, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Empty(t, sr.Ended())

	const parent = "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01"
	req := httptest.NewRequest(http.MethodGet, "/v1/users/7", nil)
	req.Header.Set("traceparent", parent)
	w := serve(r, req)

	require.Len(t, sr.Ended(), 1)
	span := sr.Ended()[0]
	assert.Equal(t, "GET /v1/users/:id", span.Name())
	assert.Equal(t, trace.SpanKindServer, span.SpanKind())
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", span.SpanContext().TraceID().String())
	assert.Equal(t, "00f067aa0ba902b7", span.Parent().SpanID().String())
	assert.Equal(t, span.SpanContext().TraceID().String(), traceID)
	assert.Equal(t, traceID, w.Header().Get(HeaderXTraceID))
	assert.Equal(t, codes.Unset, span.Status().Code)

	serve(r, httptest.NewRequest(http.MethodGet, "/boom", nil))
	require.Len(t, sr.Ended(), 2)
	assert.Equal(t, codes.Error, sr.Ended()[1].Status().Code)
}
