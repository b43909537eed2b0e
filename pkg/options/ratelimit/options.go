// Package ratelimit provides rate limiting middleware options.
package ratelimit

import (
	"fmt"
	"net"
	"time"

	"github.com/spf13/pflag"
)

// Limiter backends.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Options defines the request rate limit applied before authorization.
type Options struct {
	Enabled        bool          `json:"enabled" mapstructure:"enabled"`
	Limit          int           `json:"limit" mapstructure:"limit"`
	Window         time.Duration `json:"window" mapstructure:"window"`
	Backend        string        `json:"backend" mapstructure:"backend"`
	TrustedProxies []string      `json:"trusted-proxies" mapstructure:"trusted-proxies"`
	SkipPaths      []string      `json:"skip-paths" mapstructure:"skip-paths"`
}

// NewOptions creates a new Options object with default values.
func NewOptions() *Options {
	return &Options{
		Enabled:   true,
		Limit:     100,
		Window:    time.Minute,
		Backend:   BackendMemory,
		SkipPaths: []string{"/healthz"},
	}
}

// Complete completes the options.
func (o *Options) Complete() error {
	if o.Backend == "" {
		o.Backend = BackendMemory
	}
	return nil
}

// Validate checks if the options are valid.
func (o *Options) Validate() []error {
	if !o.Enabled {
		return nil
	}

	var errs []error
	if o.Limit <= 0 {
		errs = append(errs, fmt.Errorf("rate-limit.limit must be positive"))
	}
	if o.Window <= 0 {
		errs = append(errs, fmt.Errorf("rate-limit.window must be positive"))
	}
	if o.Backend != BackendMemory && o.Backend != BackendRedis {
		errs = append(errs, fmt.Errorf("rate-limit.backend must be %q or %q", BackendMemory, BackendRedis))
	}
	for _, p := range o.TrustedProxies {
		if net.ParseIP(p) == nil {
			if _, _, err := net.ParseCIDR(p); err != nil {
				errs = append(errs, fmt.Errorf("rate-limit.trusted-proxies: %q is neither an IP nor a CIDR", p))
			}
		}
	}
	return errs
}

// AddFlags adds flags for rate limit options to the specified FlagSet.
func (o *Options) AddFlags(fs *pflag.FlagSet) {
	fs.BoolVar(&o.Enabled, "rate-limit.enabled", o.Enabled, "Enable per-client request rate limiting")
	fs.IntVar(&o.Limit, "rate-limit.limit", o.Limit, "Requests allowed per client within the window")
	fs.DurationVar(&o.Window, "rate-limit.window", o.Window, "Sliding window length")
	fs.StringVar(&o.Backend, "rate-limit.backend", o.Backend, "Limiter backend (memory, redis)")
	fs.StringSliceVar(&o.TrustedProxies, "rate-limit.trusted-proxies", o.TrustedProxies, "Proxies whose X-Forwarded-For header is trusted")
	fs.StringSliceVar(&o.SkipPaths, "rate-limit.skip-paths", o.SkipPaths, "Paths exempt from rate limiting")
}
