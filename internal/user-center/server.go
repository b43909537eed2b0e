// Package usercenter provides the User Center Service server implementation.
package usercenter

import (
	"context"
	stderrors "errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"

	"github.com/kart-io/sentinel-iam/internal/user-center/biz"
	"github.com/kart-io/sentinel-iam/internal/user-center/handler"
	"github.com/kart-io/sentinel-iam/internal/user-center/router"
	"github.com/kart-io/sentinel-iam/internal/user-center/store"
	"github.com/kart-io/sentinel-iam/pkg/component/database"
	"github.com/kart-io/sentinel-iam/pkg/component/redis"
	"github.com/kart-io/sentinel-iam/pkg/infra/app"
	"github.com/kart-io/sentinel-iam/pkg/infra/middleware"
	"github.com/kart-io/sentinel-iam/pkg/infra/tracing"
	dbopts "github.com/kart-io/sentinel-iam/pkg/options/db"
	httpopts "github.com/kart-io/sentinel-iam/pkg/options/http"
	logopts "github.com/kart-io/sentinel-iam/pkg/options/logger"
	ratelimitopts "github.com/kart-io/sentinel-iam/pkg/options/ratelimit"
	redisopts "github.com/kart-io/sentinel-iam/pkg/options/redis"
	tracingopts "github.com/kart-io/sentinel-iam/pkg/options/tracing"
	"github.com/kart-io/sentinel-iam/pkg/security/auth/identity"
	"github.com/kart-io/sentinel-iam/pkg/security/auth/jwt"
	"github.com/kart-io/sentinel-iam/pkg/security/authz"
)

// Name is the name of the application.
const Name = "sentinel-user-center"

// revocationPrefix namespaces revoked tokens in redis.
const revocationPrefix = "user-center:revoked:"

// Config contains application-related configurations.
type Config struct {
	HTTPOptions      *httpopts.Options
	LogOptions       *logopts.Options
	JWTOptions       *jwt.Options
	DBOptions        *dbopts.Options
	RedisOptions     *redisopts.Options
	RateLimitOptions *ratelimitopts.Options
	TracingOptions   *tracingopts.Options
	// SeedDefaults creates the default roles and permissions on start.
	SeedDefaults    bool
	ShutdownTimeout time.Duration
}

// Server represents the user center server.
type Server struct {
	engine          *gin.Engine
	httpServer      *http.Server
	shutdownTimeout time.Duration

	// closers release resources in reverse order of acquisition.
	closers []func() error
}

// NewServer initializes and returns a new Server instance.
func (cfg *Config) NewServer(ctx context.Context) (srv *Server, err error) {
	// 1. 初始化日志
	if cfg.LogOptions != nil {
		cfg.LogOptions.AddInitialField("service.name", Name)
		cfg.LogOptions.AddInitialField("service.version", app.GetVersion())
		if err := cfg.LogOptions.Init(); err != nil {
			return nil, fmt.Errorf("failed to initialize logger: %w", err)
		}
	}
	logger.Infow("Starting user-center service...", "version", app.GetVersion())

	s := &Server{shutdownTimeout: cfg.ShutdownTimeout}
	defer func() {
		if err != nil {
			_ = s.Close()
		}
	}()

	// 2. 初始化链路追踪
	provider, err := tracing.NewProvider(cfg.TracingOptions, tracing.WithServiceVersion(app.GetVersion()))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}
	s.closers = append(s.closers, func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return provider.Shutdown(ctx)
	})

	// 3. 初始化数据库
	dbClient, err := database.New(ctx, cfg.DBOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	s.closers = append(s.closers, dbClient.Close)
	checks := []handler.HealthCheck{{Name: dbClient.Name(), Check: dbClient.Health()}}

	// 4. 初始化 Redis（可选）
	var redisClient *redis.Client
	if cfg.RedisOptions != nil && cfg.RedisOptions.Enabled {
		redisClient, err = redis.New(ctx, cfg.RedisOptions)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize redis: %w", err)
		}
		s.closers = append(s.closers, redisClient.Close)
		checks = append(checks, handler.HealthCheck{Name: redisClient.Name(), Check: redisClient.Health()})
	}

	// 5. 初始化 Store 层
	st := store.NewStore(dbClient.DB())
	if cfg.DBOptions.AutoMigrate {
		if err := st.AutoMigrate(ctx); err != nil {
			return nil, fmt.Errorf("failed to migrate database: %w", err)
		}
		logger.Info("Database migration completed")
	}

	// 6. 初始化 Biz 层
	audit := biz.NewAuditService(st)
	perms := biz.NewPermissionService(st, audit)
	users := biz.NewUserService(st, perms, audit)
	if cfg.SeedDefaults {
		if err := perms.SeedDefaults(ctx); err != nil {
			return nil, fmt.Errorf("failed to seed default roles: %w", err)
		}
	}

	// 7. 初始化 JWT 认证与授权守卫
	var revocations jwt.Store = jwt.NewMemoryStore()
	if redisClient != nil {
		revocations = jwt.NewRedisStore(redisClient.Client(), revocationPrefix)
	}
	s.closers = append(s.closers, revocations.Close)

	jwtAuth, err := jwt.New(jwt.WithOptions(cfg.JWTOptions), jwt.WithStore(revocations))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize jwt: %w", err)
	}
	resolver := identity.NewResolver(jwtAuth, biz.NewUserLookup(st))
	guard := authz.NewGuard(router.NewRegistry(), resolver, authz.WithTracerProvider(provider.TracerProvider()))
	logger.Info("JWT authentication initialized")

	// 8. 初始化 HTTP 引擎
	gin.SetMode(cfg.HTTPOptions.Mode)
	engine := gin.New()
	engine.Use(middleware.RequestID())
	if tc := cfg.TracingOptions; tc != nil && tc.Enabled {
		engine.Use(middleware.TracingWithConfig(middleware.TracingConfig{
			TracerProvider: provider.TracerProvider(),
			SkipPaths:      tc.SkipPaths,
		}))
	}
	engine.Use(
		middleware.RecoveryWithConfig(middleware.RecoveryConfig{EnableStackTrace: cfg.HTTPOptions.EnableStackTrace}),
		middleware.LoggerWithConfig(middleware.LoggerConfig{SkipPaths: cfg.HTTPOptions.SkipLogPaths}),
	)
	if rl := cfg.RateLimitOptions; rl != nil && rl.Enabled {
		limiter, err := s.newRateLimiter(rl, redisClient)
		if err != nil {
			return nil, err
		}
		engine.Use(middleware.RateLimitWithConfig(middleware.RateLimitConfig{
			Limit:          rl.Limit,
			Window:         rl.Window,
			SkipPaths:      rl.SkipPaths,
			Limiter:        limiter,
			TrustedProxies: rl.TrustedProxies,
		}))
	}

	// 9. 注册路由
	router.Register(engine, guard, &router.Handlers{
		Auth:       handler.NewAuthHandler(biz.NewAuthService(jwtAuth, st, audit)),
		User:       handler.NewUserHandler(users, perms),
		Role:       handler.NewRoleHandler(perms),
		Permission: handler.NewPermissionHandler(perms),
		Audit:      handler.NewAuditHandler(audit),
		Health:     handler.NewHealthHandler(checks...),
	})

	s.engine = engine
	s.httpServer = &http.Server{
		Addr:         cfg.HTTPOptions.Addr,
		Handler:      engine,
		ReadTimeout:  cfg.HTTPOptions.ReadTimeout,
		WriteTimeout: cfg.HTTPOptions.WriteTimeout,
		IdleTimeout:  cfg.HTTPOptions.IdleTimeout,
	}

	logger.Info("User center service is ready")
	return s, nil
}

func (s *Server) newRateLimiter(opts *ratelimitopts.Options, redisClient *redis.Client) (middleware.RateLimiter, error) {
	if opts.Backend == ratelimitopts.BackendRedis {
		if redisClient == nil {
			return nil, fmt.Errorf("rate-limit.backend %q requires redis.enabled", ratelimitopts.BackendRedis)
		}
		return middleware.NewRedisRateLimiter(redisClient.Client(), opts.Limit, opts.Window), nil
	}

	limiter := middleware.NewMemoryRateLimiter(opts.Limit, opts.Window)
	s.closers = append(s.closers, func() error {
		limiter.Stop()
		return nil
	})
	return limiter, nil
}

// Handler returns the HTTP handler serving every route.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves HTTP until ctx is done, then shuts down gracefully and releases
// every resource.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		_ = s.Close()
		return fmt.Errorf("failed to listen on %s: %w", s.httpServer.Addr, err)
	}
	return s.serve(ctx, ln)
}

// serve handles connections on ln until ctx is done.
func (s *Server) serve(ctx context.Context, ln net.Listener) error {
	logger.Infow("HTTP server listening", "addr", ln.Addr().String())

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		logger.Info("Shutting down user-center service...")
	case serveErr = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warnw("HTTP server shutdown incomplete", "error", err.Error())
	}

	if err := s.Close(); err != nil {
		logger.Warnw("failed to release resources", "error", err.Error())
	}
	if serveErr != nil {
		return fmt.Errorf("http server: %w", serveErr)
	}
	logger.Info("User center service stopped")
	return nil
}

// Close flushes pending spans and releases the database, redis and limiter
// resources. It is safe to call more than once.
func (s *Server) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return stderrors.Join(errs...)
}
