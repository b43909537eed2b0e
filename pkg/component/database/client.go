package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	mysqldriver "gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	options "github.com/kart-io/sentinel-iam/pkg/options/db"
)

// Client wraps gorm.DB for the configured driver.
type Client struct {
	db   *gorm.DB
	opts *options.Options
}

// New opens a database connection, configures the pool and verifies the
// connection with a ping bounded by ctx.
func New(ctx context.Context, opts *options.Options) (*Client, error) {
	if opts == nil {
		return nil, fmt.Errorf("database options cannot be nil")
	}

	dialector, err := openDialector(opts)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         NewGormLogger(gormLogLevel(opts.LogLevel), opts.SlowThreshold, true),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", opts.Driver, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	configurePool(sqlDB, opts)

	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to ping %s: %w", opts.Driver, err)
	}

	return &Client{db: db, opts: opts}, nil
}

// openDialector returns the GORM dialector for the configured driver.
func openDialector(opts *options.Options) (gorm.Dialector, error) {
	switch opts.Driver {
	case options.DriverMySQL:
		return mysqldriver.Open(BuildMySQLDSN(opts)), nil
	case options.DriverPostgres:
		return postgres.Open(BuildPostgresDSN(opts)), nil
	case options.DriverSQLite:
		return sqlite.Open(BuildSQLiteDSN(opts)), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", opts.Driver)
	}
}

func configurePool(sqlDB *sql.DB, opts *options.Options) {
	// A single connection keeps an in-memory SQLite database alive and
	// serializes writers, which SQLite requires anyway.
	if opts.Driver == options.DriverSQLite {
		sqlDB.SetMaxOpenConns(1)
		return
	}
	if opts.MaxIdleConnections > 0 {
		sqlDB.SetMaxIdleConns(opts.MaxIdleConnections)
	}
	if opts.MaxOpenConnections > 0 {
		sqlDB.SetMaxOpenConns(opts.MaxOpenConnections)
	}
	if opts.MaxConnectionLifeTime > 0 {
		sqlDB.SetConnMaxLifetime(opts.MaxConnectionLifeTime)
	}
}

func gormLogLevel(level int) gormlogger.LogLevel {
	switch level {
	case 2:
		return gormlogger.Error
	case 3:
		return gormlogger.Warn
	case 4:
		return gormlogger.Info
	default:
		return gormlogger.Silent
	}
}

// Name returns the driver name.
func (c *Client) Name() string {
	return c.opts.Driver
}

// Ping checks if the connection is alive.
func (c *Client) Ping(ctx context.Context) error {
	sqlDB, err := c.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

// Close closes the connection pool.
func (c *Client) Close() error {
	sqlDB, err := c.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}
	return sqlDB.Close()
}

// Health returns a checker that pings the database and inspects the pool
// with a short timeout.
func (c *Client) Health() func() error {
	return func() error {
		status := CheckHealth(context.Background(), c, 3*time.Second)
		if !status.Healthy {
			return errors.New(status.Error)
		}
		return nil
	}
}

// DB returns the underlying gorm.DB instance.
func (c *Client) DB() *gorm.DB {
	return c.db
}

// SqlDB returns the underlying sql.DB instance.
func (c *Client) SqlDB() (*sql.DB, error) {
	return c.db.DB()
}
