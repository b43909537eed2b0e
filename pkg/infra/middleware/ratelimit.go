package middleware

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"
	goredis "github.com/redis/go-redis/v9"

	"github.com/kart-io/sentinel-iam/pkg/errors"
	"github.com/kart-io/sentinel-iam/pkg/id"
	"github.com/kart-io/sentinel-iam/pkg/utils/response"
)

// RateLimiter defines the interface for rate limiting implementations.
type RateLimiter interface {
	// Allow reports whether a request with the given key is allowed.
	Allow(ctx context.Context, key string) (bool, error)

	// Reset resets the rate limit counter for the given key.
	Reset(ctx context.Context, key string) error
}

// RateLimitConfig defines the configuration for rate limiting middleware.
type RateLimitConfig struct {
	// Limit is the maximum number of requests allowed within the time window.
	// Default: 100
	Limit int

	// Window is the sliding window duration.
	// Default: 1 minute
	Window time.Duration

	// KeyFunc extracts the rate limit key. Default: client IP.
	KeyFunc func(c *gin.Context) string

	// SkipPaths is a list of paths to skip rate limiting.
	SkipPaths []string

	// OnLimitReached is called when rate limit is exceeded.
	OnLimitReached func(c *gin.Context)

	// Limiter is the rate limiter implementation to use.
	// If nil, a memory-based limiter will be created.
	Limiter RateLimiter

	// TrustedProxies lists proxy IPs or CIDR ranges whose X-Forwarded-For and
	// X-Real-IP headers are honored. Empty means headers are never trusted.
	TrustedProxies []string
}

// DefaultRateLimitConfig is the default rate limit configuration.
var DefaultRateLimitConfig = RateLimitConfig{
	Limit:  100,
	Window: time.Minute,
}

// RateLimit returns a rate limiting middleware with default configuration.
func RateLimit() gin.HandlerFunc {
	return RateLimitWithConfig(DefaultRateLimitConfig)
}

// RateLimitWithConfig returns a rate limiting middleware with custom configuration.
// Limiter failures are logged and the request is let through; this gate sits
// in front of authorization and never replaces it.
func RateLimitWithConfig(config RateLimitConfig) gin.HandlerFunc {
	config = completeRateLimitConfig(config)

	skipPaths := make(map[string]bool, len(config.SkipPaths))
	for _, path := range config.SkipPaths {
		skipPaths[path] = true
	}

	return func(c *gin.Context) {
		if skipPaths[c.Request.URL.Path] {
			c.Next()
			return
		}

		key := config.KeyFunc(c)
		if key == "" {
			key = remoteIP(c.Request.RemoteAddr)
		}

		allowed, err := config.Limiter.Allow(c.Request.Context(), key)
		if err != nil {
			logger.Errorw("rate limiter error",
				"error", err.Error(),
				"key", key,
			)
			c.Next()
			return
		}

		if !allowed {
			if config.OnLimitReached != nil {
				config.OnLimitReached(c)
			}
			c.Header("Retry-After", strconv.Itoa(int(config.Window.Seconds())))
			response.Fail(c, errors.ErrTooManyRequests)
			return
		}

		c.Next()
	}
}

func completeRateLimitConfig(config RateLimitConfig) RateLimitConfig {
	if config.Limit <= 0 {
		config.Limit = DefaultRateLimitConfig.Limit
	}
	if config.Window <= 0 {
		config.Window = DefaultRateLimitConfig.Window
	}
	if config.KeyFunc == nil {
		trusted := config.TrustedProxies
		config.KeyFunc = func(c *gin.Context) string {
			return ClientIP(c, trusted)
		}
	}
	if config.Limiter == nil {
		config.Limiter = NewMemoryRateLimiter(config.Limit, config.Window)
	}
	return config
}

// ClientIP returns the caller IP. Proxy headers are honored only when the
// direct peer is one of trustedProxies, which prevents spoofed keys.
func ClientIP(c *gin.Context, trustedProxies []string) string {
	peer := remoteIP(c.Request.RemoteAddr)
	if !isTrustedProxy(peer, trustedProxies) {
		return peer
	}

	if xff := c.GetHeader("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); net.ParseIP(ip) != nil {
			return ip
		}
	}
	if xri := strings.TrimSpace(c.GetHeader("X-Real-IP")); net.ParseIP(xri) != nil {
		return xri
	}
	return peer
}

func remoteIP(addr string) string {
	ip, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return ip
}

func isTrustedProxy(ip string, trusted []string) bool {
	if len(trusted) == 0 {
		return false
	}
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return false
	}

	for _, entry := range trusted {
		if !strings.Contains(entry, "/") {
			if entry == ip {
				return true
			}
			continue
		}
		_, network, err := net.ParseCIDR(entry)
		if err != nil {
			logger.Warnw("invalid CIDR in trusted proxies",
				"cidr", entry,
				"error", err.Error(),
			)
			continue
		}
		if network.Contains(parsed) {
			return true
		}
	}
	return false
}

// ============================================================================
// Memory Rate Limiter Implementation
// ============================================================================

// MemoryRateLimiter is a sliding-log limiter kept in process memory.
type MemoryRateLimiter struct {
	limit  int
	window time.Duration
	store  sync.Map

	stopCleanup chan struct{}
	cleanupOnce sync.Once
}

type rateLimitEntry struct {
	mu        sync.Mutex
	requests  []time.Time
	lastCheck time.Time
}

// NewMemoryRateLimiter creates a new memory-based rate limiter.
func NewMemoryRateLimiter(limit int, window time.Duration) *MemoryRateLimiter {
	m := &MemoryRateLimiter{
		limit:       limit,
		window:      window,
		stopCleanup: make(chan struct{}),
	}
	go m.cleanupLoop()
	return m
}

// Allow records a request for key if the window still has room.
func (m *MemoryRateLimiter) Allow(_ context.Context, key string) (bool, error) {
	now := time.Now()

	value, _ := m.store.LoadOrStore(key, &rateLimitEntry{})
	entry := value.(*rateLimitEntry)

	entry.mu.Lock()
	defer entry.mu.Unlock()

	entry.lastCheck = now
	entry.requests = dropBefore(entry.requests, now.Add(-m.window))

	if len(entry.requests) >= m.limit {
		return false, nil
	}
	entry.requests = append(entry.requests, now)
	return true, nil
}

// Reset resets the rate limit counter for the given key.
func (m *MemoryRateLimiter) Reset(_ context.Context, key string) error {
	m.store.Delete(key)
	return nil
}

// Stop stops the cleanup goroutine.
func (m *MemoryRateLimiter) Stop() {
	m.cleanupOnce.Do(func() {
		close(m.stopCleanup)
	})
}

func (m *MemoryRateLimiter) cleanupLoop() {
	ticker := time.NewTicker(m.window)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.cleanup(time.Now())
		case <-m.stopCleanup:
			return
		}
	}
}

// cleanup drops keys idle for more than two windows.
func (m *MemoryRateLimiter) cleanup(now time.Time) {
	threshold := now.Add(-2 * m.window)

	m.store.Range(func(key, value interface{}) bool {
		entry := value.(*rateLimitEntry)
		entry.mu.Lock()
		idle := entry.lastCheck.Before(threshold)
		entry.mu.Unlock()

		if idle {
			m.store.Delete(key)
		}
		return true
	})
}

// dropBefore removes the timestamps not after cutoff. requests is sorted.
func dropBefore(requests []time.Time, cutoff time.Time) []time.Time {
	for i, t := range requests {
		if t.After(cutoff) {
			return requests[i:]
		}
	}
	return requests[:0]
}

// ============================================================================
// Redis Rate Limiter Implementation
// ============================================================================

// RedisRateLimiter is a sliding-log limiter on a redis sorted set, shared
// by every instance.
type RedisRateLimiter struct {
	client goredis.UniversalClient
	limit  int
	window time.Duration
	prefix string
}

// NewRedisRateLimiter creates a new Redis-based rate limiter.
func NewRedisRateLimiter(client goredis.UniversalClient, limit int, window time.Duration) *RedisRateLimiter {
	return &RedisRateLimiter{
		client: client,
		limit:  limit,
		window: window,
		prefix: "iam:ratelimit:",
	}
}

// Allow checks if a request with the given key is allowed using Redis.
func (r *RedisRateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	now := time.Now()
	redisKey := r.prefix + key
	member := id.NewULID()

	pipe := r.client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, redisKey, "0", strconv.FormatInt(now.Add(-r.window).UnixNano(), 10))
	countCmd := pipe.ZCard(ctx, redisKey)
	pipe.ZAdd(ctx, redisKey, goredis.Z{Score: float64(now.UnixNano()), Member: member})
	pipe.Expire(ctx, redisKey, 2*r.window)

	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("redis pipeline: %w", err)
	}

	if countCmd.Val() >= int64(r.limit) {
		// Rejected requests do not consume the window.
		if err := r.client.ZRem(ctx, redisKey, member).Err(); err != nil {
			return false, fmt.Errorf("redis zrem: %w", err)
		}
		return false, nil
	}
	return true, nil
}

// Reset resets the rate limit counter for the given key in Redis.
func (r *RedisRateLimiter) Reset(ctx context.Context, key string) error {
	return r.client.Del(ctx, r.prefix+key).Err()
}
