// Package options contains flags and options for initializing the user-center server.
package options

import (
	"fmt"
	"time"

	utilerrors "k8s.io/apimachinery/pkg/util/errors"

	usercenter "github.com/kart-io/sentinel-iam/internal/user-center"
	"github.com/kart-io/sentinel-iam/pkg/app/cliflag"
	"github.com/kart-io/sentinel-iam/pkg/component"
	dbopts "github.com/kart-io/sentinel-iam/pkg/options/db"
	httpopts "github.com/kart-io/sentinel-iam/pkg/options/http"
	logopts "github.com/kart-io/sentinel-iam/pkg/options/logger"
	ratelimitopts "github.com/kart-io/sentinel-iam/pkg/options/ratelimit"
	redisopts "github.com/kart-io/sentinel-iam/pkg/options/redis"
	tracingopts "github.com/kart-io/sentinel-iam/pkg/options/tracing"
	"github.com/kart-io/sentinel-iam/pkg/security/auth/jwt"
)

// ServerOptions contains the configuration options for the server.
type ServerOptions struct {
	// HTTPOptions contains HTTP server configuration.
	HTTPOptions *httpopts.Options `json:"http" mapstructure:"http"`

	// LogOptions contains logger configuration.
	LogOptions *logopts.Options `json:"log" mapstructure:"log"`

	// JWTOptions contains JWT authentication configuration.
	JWTOptions *jwt.Options `json:"jwt" mapstructure:"jwt"`

	// DBOptions contains the relational database configuration.
	DBOptions *dbopts.Options `json:"db" mapstructure:"db"`

	// RedisOptions contains Redis configuration.
	RedisOptions *redisopts.Options `json:"redis" mapstructure:"redis"`

	// RateLimitOptions contains the request rate limit configuration.
	RateLimitOptions *ratelimitopts.Options `json:"rate-limit" mapstructure:"rate-limit"`

	// TracingOptions contains the OpenTelemetry tracing configuration.
	TracingOptions *tracingopts.Options `json:"tracing" mapstructure:"tracing"`

	// SeedOptions controls seeding of the default roles and permissions.
	SeedOptions *SeedOptions `json:"seed" mapstructure:"seed"`

	// ShutdownTimeout is the timeout for graceful shutdown.
	ShutdownTimeout time.Duration `json:"shutdown-timeout" mapstructure:"shutdown-timeout"`
}

// NewServerOptions creates a ServerOptions instance with default values.
func NewServerOptions() *ServerOptions {
	return &ServerOptions{
		HTTPOptions:      httpopts.NewOptions(),
		LogOptions:       logopts.NewOptions(),
		JWTOptions:       jwt.NewOptions(),
		DBOptions:        dbopts.NewOptions(),
		RedisOptions:     redisopts.NewOptions(),
		RateLimitOptions: ratelimitopts.NewOptions(),
		TracingOptions:   tracingopts.NewOptions(),
		SeedOptions:      NewSeedOptions(),
		ShutdownTimeout:  30 * time.Second,
	}
}

type namedOptions struct {
	name string
	opts component.ConfigOptions
}

// groups returns every options group in flag order.
func (o *ServerOptions) groups() []namedOptions {
	return []namedOptions{
		{"http", o.HTTPOptions},
		{"log", o.LogOptions},
		{"jwt", o.JWTOptions},
		{"db", o.DBOptions},
		{"redis", o.RedisOptions},
		{"rate-limit", o.RateLimitOptions},
		{"tracing", o.TracingOptions},
		{"seed", o.SeedOptions},
	}
}

// Flags returns flags for a specific server by section name.
func (o *ServerOptions) Flags() (fss cliflag.NamedFlagSets) {
	for _, g := range o.groups() {
		g.opts.AddFlags(fss.FlagSet(g.name))
	}

	// misc flags
	fs := fss.FlagSet("misc")
	fs.DurationVar(&o.ShutdownTimeout, "shutdown-timeout", o.ShutdownTimeout, "Graceful shutdown timeout")

	return fss
}

// Complete completes all the required options.
func (o *ServerOptions) Complete() error {
	for _, g := range o.groups() {
		if err := g.opts.Complete(); err != nil {
			return fmt.Errorf("%s: %w", g.name, err)
		}
	}
	return nil
}

// Validate checks whether the options in ServerOptions are valid.
func (o *ServerOptions) Validate() error {
	errs := []error{}

	for _, g := range o.groups() {
		errs = append(errs, g.opts.Validate()...)
	}
	if o.RateLimitOptions.Enabled && o.RateLimitOptions.Backend == ratelimitopts.BackendRedis && !o.RedisOptions.Enabled {
		errs = append(errs, fmt.Errorf("rate-limit.backend %q requires redis.enabled", ratelimitopts.BackendRedis))
	}
	if o.ShutdownTimeout <= 0 {
		errs = append(errs, fmt.Errorf("shutdown-timeout must be positive"))
	}

	return utilerrors.NewAggregate(errs)
}

// Config builds a usercenter.Config based on ServerOptions.
func (o *ServerOptions) Config() (*usercenter.Config, error) {
	return &usercenter.Config{
		HTTPOptions:      o.HTTPOptions,
		LogOptions:       o.LogOptions,
		JWTOptions:       o.JWTOptions,
		DBOptions:        o.DBOptions,
		RedisOptions:     o.RedisOptions,
		RateLimitOptions: o.RateLimitOptions,
		TracingOptions:   o.TracingOptions,
		SeedDefaults:     o.SeedOptions.Enabled,
		ShutdownTimeout:  o.ShutdownTimeout,
	}, nil
}
