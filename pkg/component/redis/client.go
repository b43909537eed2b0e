// Package redis provides the Redis client shared by the token revocation
// store and the rate limiter.
package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	utilerrors "k8s.io/apimachinery/pkg/util/errors"

	options "github.com/kart-io/sentinel-iam/pkg/options/redis"
)

// Client wraps a go-redis client built from options.
//
// Example usage:
//
//	opts := options.NewOptions()
//	opts.Enabled = true
//
//	client, err := New(ctx, opts)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	store := jwt.NewRedisStore(client.Client())
type Client struct {
	client *goredis.Client
	opts   *options.Options
}

// New creates a Redis client and verifies connectivity with a ping bounded
// by ctx.
func New(ctx context.Context, opts *options.Options) (*Client, error) {
	if opts == nil {
		return nil, fmt.Errorf("redis options cannot be nil")
	}

	if err := utilerrors.NewAggregate(opts.Validate()); err != nil {
		return nil, fmt.Errorf("invalid redis options: %w", err)
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:         opts.Addr(),
		Password:     opts.Password,
		DB:           opts.Database,
		MaxRetries:   opts.MaxRetries,
		PoolSize:     opts.PoolSize,
		MinIdleConns: opts.MinIdleConns,
		DialTimeout:  opts.DialTimeout,
		ReadTimeout:  opts.ReadTimeout,
		WriteTimeout: opts.WriteTimeout,
		PoolTimeout:  opts.PoolTimeout,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return &Client{client: rdb, opts: opts}, nil
}

// Name returns the storage type identifier.
func (c *Client) Name() string {
	return "redis"
}

// Ping checks if the connection to Redis is alive.
func (c *Client) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the Redis connection pool.
func (c *Client) Close() error {
	return c.client.Close()
}

// Health returns a checker that pings Redis with a short timeout.
func (c *Client) Health() func() error {
	return func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		return c.Ping(ctx)
	}
}

// Client returns the underlying go-redis client.
func (c *Client) Client() *goredis.Client {
	return c.client
}

// Options returns the Redis options used by this client.
func (c *Client) Options() *options.Options {
	return c.opts
}
