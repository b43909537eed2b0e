// Package http provides HTTP server configuration options.
package http

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/pflag"
)

// Options contains HTTP server configuration.
type Options struct {
	// Addr is the address to listen on.
	Addr string `json:"addr" mapstructure:"addr"`
	// ReadTimeout is the maximum duration for reading the entire request.
	ReadTimeout time.Duration `json:"read-timeout" mapstructure:"read-timeout"`
	// WriteTimeout is the maximum duration before timing out writes of the response.
	WriteTimeout time.Duration `json:"write-timeout" mapstructure:"write-timeout"`
	// IdleTimeout is the maximum amount of time to wait for the next request.
	IdleTimeout time.Duration `json:"idle-timeout" mapstructure:"idle-timeout"`
	// Mode is the gin mode (debug, release, test).
	Mode string `json:"mode" mapstructure:"mode"`
	// EnableStackTrace includes panic stack traces in recovery logs.
	EnableStackTrace bool `json:"enable-stack-trace" mapstructure:"enable-stack-trace"`
	// SkipLogPaths are paths the request logger does not log.
	SkipLogPaths []string `json:"skip-log-paths" mapstructure:"skip-log-paths"`
}

// NewOptions creates a new Options with default values.
func NewOptions() *Options {
	return &Options{
		Addr:         ":8080",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
		Mode:         gin.ReleaseMode,
		SkipLogPaths: []string{"/healthz"},
	}
}

// AddFlags adds flags for HTTP options to the specified FlagSet.
func (o *Options) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.Addr, "http.addr", o.Addr, "HTTP server listen address")
	fs.DurationVar(&o.ReadTimeout, "http.read-timeout", o.ReadTimeout, "HTTP server read timeout")
	fs.DurationVar(&o.WriteTimeout, "http.write-timeout", o.WriteTimeout, "HTTP server write timeout")
	fs.DurationVar(&o.IdleTimeout, "http.idle-timeout", o.IdleTimeout, "HTTP server idle timeout")
	fs.StringVar(&o.Mode, "http.mode", o.Mode, "Gin mode (debug, release, test)")
	fs.BoolVar(&o.EnableStackTrace, "http.enable-stack-trace", o.EnableStackTrace, "Log stack traces of recovered panics")
	fs.StringSliceVar(&o.SkipLogPaths, "http.skip-log-paths", o.SkipLogPaths, "Paths excluded from request logging")
}

// Validate validates the HTTP options.
func (o *Options) Validate() []error {
	var errs []error
	if o.Addr == "" {
		errs = append(errs, fmt.Errorf("http.addr cannot be empty"))
	}
	if o.ReadTimeout <= 0 {
		errs = append(errs, fmt.Errorf("http.read-timeout must be positive"))
	}
	if o.WriteTimeout <= 0 {
		errs = append(errs, fmt.Errorf("http.write-timeout must be positive"))
	}
	switch o.Mode {
	case gin.DebugMode, gin.ReleaseMode, gin.TestMode:
	default:
		errs = append(errs, fmt.Errorf("http.mode must be one of debug, release, test"))
	}
	return errs
}

// Complete completes the HTTP options with defaults.
func (o *Options) Complete() error {
	if o.IdleTimeout <= 0 {
		o.IdleTimeout = 2 * o.ReadTimeout
	}
	if o.Mode == "" {
		o.Mode = gin.ReleaseMode
	}
	return nil
}
