package usercenter

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"

	dbopts "github.com/kart-io/sentinel-iam/pkg/options/db"
	httpopts "github.com/kart-io/sentinel-iam/pkg/options/http"
	ratelimitopts "github.com/kart-io/sentinel-iam/pkg/options/ratelimit"
	redisopts "github.com/kart-io/sentinel-iam/pkg/options/redis"
	tracingopts "github.com/kart-io/sentinel-iam/pkg/options/tracing"
	"github.com/kart-io/sentinel-iam/pkg/security/auth/jwt"
)

func newTestConfig(t *testing.T) *Config {
	t.Helper()

	httpOpts := httpopts.NewOptions()
	httpOpts.Addr = "127.0.0.1:0"
	httpOpts.Mode = gin.TestMode

	db := dbopts.NewOptions()
	db.Driver = dbopts.DriverSQLite
	db.Path = filepath.Join(t.TempDir(), "iam.db")

	jwtOpts := jwt.NewOptions()
	jwtOpts.Key = strings.Repeat("k", 64)

	rl := ratelimitopts.NewOptions()
	rl.Enabled = false

	return &Config{
		HTTPOptions:      httpOpts,
		JWTOptions:       jwtOpts,
		DBOptions:        db,
		RedisOptions:     redisopts.NewOptions(),
		RateLimitOptions: rl,
		TracingOptions:   tracingopts.NewOptions(),
		SeedDefaults:     true,
		ShutdownTimeout:  5 * time.Second,
	}
}

func get(t *testing.T, h http.Handler, path string) int {
	t.Helper()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w.Code
}

func TestNewServer_Memory(t *testing.T) {
	srv, err := newTestConfig(t).NewServer(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Close() })

	assert.Equal(t, http.StatusOK, get(t, srv.Handler(), "/healthz"))
	assert.Equal(t, http.StatusUnauthorized, get(t, srv.Handler(), "/v1/users"))
	assert.Equal(t, http.StatusNotFound, get(t, srv.Handler(), "/v1/unknown"))

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/users", nil))
	assert.Empty(t, w.Header().Get("X-Trace-ID"))
}

func TestNewServer_RedisRateLimit(t *testing.T) {
	mr := miniredis.RunT(t)
	port, err := strconv.Atoi(mr.Port())
	require.NoError(t, err)

	cfg := newTestConfig(t)
	cfg.RedisOptions.Enabled = true
	cfg.RedisOptions.Host = mr.Host()
	cfg.RedisOptions.Port = port
	cfg.RateLimitOptions.Enabled = true
	cfg.RateLimitOptions.Backend = ratelimitopts.BackendRedis
	cfg.RateLimitOptions.Limit = 2

	srv, err := cfg.NewServer(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Close() })

	assert.Equal(t, http.StatusUnauthorized, get(t, srv.Handler(), "/v1/auth/me"))
	assert.Equal(t, http.StatusUnauthorized, get(t, srv.Handler(), "/v1/auth/me"))
	assert.Equal(t, http.StatusTooManyRequests, get(t, srv.Handler(), "/v1/auth/me"))

	// Health checks are exempt and probe redis too.
	assert.Equal(t, http.StatusOK, get(t, srv.Handler(), "/healthz"))
	mr.Close()
	assert.Equal(t, http.StatusServiceUnavailable, get(t, srv.Handler(), "/healthz"))
}

func TestNewServer_Tracing(t *testing.T) {
	tp, prop := otel.GetTracerProvider(), otel.GetTextMapPropagator()
	t.Cleanup(func() {
		otel.SetTracerProvider(tp)
		otel.SetTextMapPropagator(prop)
	})

	cfg := newTestConfig(t)
	cfg.TracingOptions.Enabled = true
	cfg.TracingOptions.ExporterType = tracingopts.ExporterNoop
	cfg.TracingOptions.SamplerType = tracingopts.SamplerAlwaysOn

	srv, err := cfg.NewServer(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Close() })

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/auth/me", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Len(t, w.Header().Get("X-Trace-ID"), 32)

	w = httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Empty(t, w.Header().Get("X-Trace-ID"))
}

func TestNewServer_RedisLimiterNeedsRedis(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.RateLimitOptions.Enabled = true
	cfg.RateLimitOptions.Backend = ratelimitopts.BackendRedis

	_, err := cfg.NewServer(context.Background())
	assert.ErrorContains(t, err, "requires redis.enabled")
}

func TestNewServer_BadDatabase(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.DBOptions.Driver = "oracle"

	_, err := cfg.NewServer(context.Background())
	assert.Error(t, err)
}

func TestServer_RunStopsOnCancel(t *testing.T) {
	srv, err := newTestConfig(t).NewServer(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
