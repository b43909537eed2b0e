// Package db provides relational database configuration options.
package db

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"
)

// Supported drivers.
const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// EnvPassword is the environment variable consulted when Password is empty.
const EnvPassword = "DB_PASSWORD"

const redactedPassword = "[REDACTED]"

// Options defines configuration options for the relational database.
type Options struct {
	Driver                string        `json:"driver" mapstructure:"driver"`
	Host                  string        `json:"host" mapstructure:"host"`
	Port                  int           `json:"port" mapstructure:"port"`
	Username              string        `json:"username" mapstructure:"username"`
	Password              string        `json:"-" mapstructure:"password"`
	Database              string        `json:"database" mapstructure:"database"`
	SSLMode               string        `json:"ssl-mode" mapstructure:"ssl-mode"`
	Path                  string        `json:"path" mapstructure:"path"`
	MaxIdleConnections    int           `json:"max-idle-connections" mapstructure:"max-idle-connections"`
	MaxOpenConnections    int           `json:"max-open-connections" mapstructure:"max-open-connections"`
	MaxConnectionLifeTime time.Duration `json:"max-connection-life-time" mapstructure:"max-connection-life-time"`
	LogLevel              int           `json:"log-level" mapstructure:"log-level"`
	SlowThreshold         time.Duration `json:"slow-threshold" mapstructure:"slow-threshold"`
	AutoMigrate           bool          `json:"auto-migrate" mapstructure:"auto-migrate"`
}

// NewOptions creates a new Options object with default values.
func NewOptions() *Options {
	return &Options{
		Driver:                DriverSQLite,
		Host:                  "127.0.0.1",
		Port:                  3306,
		Username:              "root",
		Database:              "iam",
		SSLMode:               "disable",
		Path:                  "iam.db",
		MaxIdleConnections:    10,
		MaxOpenConnections:    100,
		MaxConnectionLifeTime: 10 * time.Second,
		LogLevel:              1, // Silent
		SlowThreshold:         200 * time.Millisecond,
		AutoMigrate:           true,
	}
}

// Complete fills the password from the environment and the default port of
// the selected driver.
func (o *Options) Complete() error {
	if o.Password == "" {
		o.Password = os.Getenv(EnvPassword)
	}
	if o.Driver == DriverPostgres && o.Port == 3306 {
		o.Port = 5432
	}
	return nil
}

// Validate checks if the options are valid.
func (o *Options) Validate() []error {
	var errs []error

	switch o.Driver {
	case DriverMySQL, DriverPostgres:
		if o.Host == "" {
			errs = append(errs, fmt.Errorf("db.host is required for driver %s", o.Driver))
		}
		if o.Port <= 0 || o.Port > 65535 {
			errs = append(errs, fmt.Errorf("db.port %d is out of range", o.Port))
		}
		if o.Database == "" {
			errs = append(errs, fmt.Errorf("db.database is required for driver %s", o.Driver))
		}
	case DriverSQLite:
		if o.Path == "" {
			errs = append(errs, fmt.Errorf("db.path is required for driver sqlite"))
		}
	default:
		errs = append(errs, fmt.Errorf("db.driver must be one of mysql, postgres, sqlite, got %q", o.Driver))
	}

	if o.MaxOpenConnections > 0 && o.MaxIdleConnections > o.MaxOpenConnections {
		errs = append(errs, fmt.Errorf("db.max-idle-connections must not exceed db.max-open-connections"))
	}
	if o.LogLevel < 1 || o.LogLevel > 4 {
		errs = append(errs, fmt.Errorf("db.log-level must be between 1 (silent) and 4 (info)"))
	}

	if o.Password != "" && os.Getenv(EnvPassword) == "" {
		fmt.Fprintf(os.Stderr, "WARNING: Passing the database password via CLI is insecure. Use %s environment variable instead.\n", EnvPassword)
	}

	return errs
}

// String returns a string representation with the password redacted.
func (o *Options) String() string {
	password := redactedPassword
	if o.Password == "" {
		password = ""
	}
	if o.Driver == DriverSQLite {
		return fmt.Sprintf("DB{driver=%s, path=%s}", o.Driver, o.Path)
	}
	return fmt.Sprintf("DB{driver=%s, host=%s, port=%d, username=%s, password=%s, database=%s}",
		o.Driver, o.Host, o.Port, o.Username, password, o.Database)
}

// AddFlags adds flags for database options to the specified FlagSet.
func (o *Options) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.Driver, "db.driver", o.Driver, "Database driver (mysql, postgres, sqlite)")
	fs.StringVar(&o.Host, "db.host", o.Host, "Database host")
	fs.IntVar(&o.Port, "db.port", o.Port, "Database port")
	fs.StringVar(&o.Username, "db.username", o.Username, "Database username")
	fs.StringVar(&o.Password, "db.password", o.Password, "Database password (DEPRECATED: use DB_PASSWORD env var instead)")
	fs.StringVar(&o.Database, "db.database", o.Database, "Database name")
	fs.StringVar(&o.SSLMode, "db.ssl-mode", o.SSLMode, "PostgreSQL SSL mode")
	fs.StringVar(&o.Path, "db.path", o.Path, "SQLite database file, or :memory:")
	fs.IntVar(&o.MaxIdleConnections, "db.max-idle-connections", o.MaxIdleConnections, "Database max idle connections")
	fs.IntVar(&o.MaxOpenConnections, "db.max-open-connections", o.MaxOpenConnections, "Database max open connections")
	fs.DurationVar(&o.MaxConnectionLifeTime, "db.max-connection-life-time", o.MaxConnectionLifeTime, "Database max connection life time")
	fs.IntVar(&o.LogLevel, "db.log-level", o.LogLevel, "GORM log level (1 silent, 2 error, 3 warn, 4 info)")
	fs.DurationVar(&o.SlowThreshold, "db.slow-threshold", o.SlowThreshold, "Queries slower than this are logged as warnings")
	fs.BoolVar(&o.AutoMigrate, "db.auto-migrate", o.AutoMigrate, "Create or update tables on startup")
}
