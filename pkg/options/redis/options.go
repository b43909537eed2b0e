// Package redis provides Redis connection options.
package redis

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/kart-io/sentinel-iam/pkg/utils/json"
)

// EnvPassword is the environment variable consulted when Password is empty.
const EnvPassword = "REDIS_PASSWORD"

// redactedPassword is the placeholder used when serializing passwords.
const redactedPassword = "[REDACTED]"

// Options defines configuration options for Redis.
type Options struct {
	Enabled      bool          `json:"enabled" mapstructure:"enabled"`
	Host         string        `json:"host" mapstructure:"host"`
	Port         int           `json:"port" mapstructure:"port"`
	Password     string        `json:"-" mapstructure:"password"`
	Database     int           `json:"database" mapstructure:"database"`
	MaxRetries   int           `json:"max-retries" mapstructure:"max-retries"`
	PoolSize     int           `json:"pool-size" mapstructure:"pool-size"`
	MinIdleConns int           `json:"min-idle-conns" mapstructure:"min-idle-conns"`
	DialTimeout  time.Duration `json:"dial-timeout" mapstructure:"dial-timeout"`
	ReadTimeout  time.Duration `json:"read-timeout" mapstructure:"read-timeout"`
	WriteTimeout time.Duration `json:"write-timeout" mapstructure:"write-timeout"`
	PoolTimeout  time.Duration `json:"pool-timeout" mapstructure:"pool-timeout"`
}

type optionsForJSON struct {
	Enabled      bool          `json:"enabled"`
	Host         string        `json:"host"`
	Port         int           `json:"port"`
	Password     string        `json:"password"`
	Database     int           `json:"database"`
	MaxRetries   int           `json:"max-retries"`
	PoolSize     int           `json:"pool-size"`
	MinIdleConns int           `json:"min-idle-conns"`
	DialTimeout  time.Duration `json:"dial-timeout"`
	ReadTimeout  time.Duration `json:"read-timeout"`
	WriteTimeout time.Duration `json:"write-timeout"`
	PoolTimeout  time.Duration `json:"pool-timeout"`
}

// MarshalJSON implements json.Marshaler with password redaction.
func (o *Options) MarshalJSON() ([]byte, error) {
	return json.Marshal(optionsForJSON{
		Enabled:      o.Enabled,
		Host:         o.Host,
		Port:         o.Port,
		Password:     o.redacted(),
		Database:     o.Database,
		MaxRetries:   o.MaxRetries,
		PoolSize:     o.PoolSize,
		MinIdleConns: o.MinIdleConns,
		DialTimeout:  o.DialTimeout,
		ReadTimeout:  o.ReadTimeout,
		WriteTimeout: o.WriteTimeout,
		PoolTimeout:  o.PoolTimeout,
	})
}

// String returns a string representation with password redacted.
func (o *Options) String() string {
	return fmt.Sprintf("Redis{host=%s, port=%d, password=%s, database=%d}",
		o.Host, o.Port, o.redacted(), o.Database)
}

func (o *Options) redacted() string {
	if o.Password == "" {
		return ""
	}
	return redactedPassword
}

// Addr returns host:port.
func (o *Options) Addr() string {
	return fmt.Sprintf("%s:%d", o.Host, o.Port)
}

// NewOptions creates a new Options object with default values.
func NewOptions() *Options {
	return &Options{
		Enabled:      false,
		Host:         "127.0.0.1",
		Port:         6379,
		Database:     0,
		MaxRetries:   3,
		PoolSize:     10,
		MinIdleConns: 0,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolTimeout:  4 * time.Second,
	}
}

// Complete reads the password from the environment when it is not set.
func (o *Options) Complete() error {
	if o.Password == "" {
		o.Password = os.Getenv(EnvPassword)
	}
	return nil
}

// Validate checks if the options are valid.
func (o *Options) Validate() []error {
	if !o.Enabled {
		return nil
	}

	var errs []error
	if o.Host == "" {
		errs = append(errs, fmt.Errorf("redis.host cannot be empty"))
	}
	if o.Port <= 0 || o.Port > 65535 {
		errs = append(errs, fmt.Errorf("redis.port %d is out of range", o.Port))
	}
	if o.Database < 0 {
		errs = append(errs, fmt.Errorf("redis.database must not be negative"))
	}
	if o.PoolSize <= 0 {
		errs = append(errs, fmt.Errorf("redis.pool-size must be positive"))
	}

	if o.Password != "" && os.Getenv(EnvPassword) == "" {
		fmt.Fprintf(os.Stderr, "WARNING: Passing Redis password via CLI is insecure. Use %s environment variable instead.\n", EnvPassword)
	}

	return errs
}

// AddFlags adds flags for Redis options to the specified FlagSet.
func (o *Options) AddFlags(fs *pflag.FlagSet) {
	fs.BoolVar(&o.Enabled, "redis.enabled", o.Enabled, "Use Redis for token revocation and rate limiting")
	fs.StringVar(&o.Host, "redis.host", o.Host, "Redis host")
	fs.IntVar(&o.Port, "redis.port", o.Port, "Redis port")
	fs.StringVar(&o.Password, "redis.password", o.Password, "Redis password (DEPRECATED: use REDIS_PASSWORD env var instead)")
	fs.IntVar(&o.Database, "redis.database", o.Database, "Redis database")
	fs.IntVar(&o.MaxRetries, "redis.max-retries", o.MaxRetries, "Redis max retries")
	fs.IntVar(&o.PoolSize, "redis.pool-size", o.PoolSize, "Redis pool size")
	fs.IntVar(&o.MinIdleConns, "redis.min-idle-conns", o.MinIdleConns, "Redis min idle connections")
	fs.DurationVar(&o.DialTimeout, "redis.dial-timeout", o.DialTimeout, "Redis dial timeout")
	fs.DurationVar(&o.ReadTimeout, "redis.read-timeout", o.ReadTimeout, "Redis read timeout")
	fs.DurationVar(&o.WriteTimeout, "redis.write-timeout", o.WriteTimeout, "Redis write timeout")
	fs.DurationVar(&o.PoolTimeout, "redis.pool-timeout", o.PoolTimeout, "Redis pool timeout")
}
