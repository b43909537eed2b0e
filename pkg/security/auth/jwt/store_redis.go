package jwt

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// DefaultRedisPrefix is the key prefix for revoked token entries.
const DefaultRedisPrefix = "iam:jwt:revoked:"

// RedisStore is a Store shared by every instance behind a load balancer.
type RedisStore struct {
	client goredis.UniversalClient
	prefix string
}

// NewRedisStore creates a new Redis-backed token store.
func NewRedisStore(client goredis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisStore{
		client: client,
		prefix: prefix,
	}
}

// Revoke marks a token as revoked; redis expires the entry after ttl.
func (s *RedisStore) Revoke(ctx context.Context, token string, ttl time.Duration) error {
	if err := s.client.Set(ctx, s.prefix+revocationKey(token), "1", ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// IsRevoked checks whether a revocation entry exists for the token.
func (s *RedisStore) IsRevoked(ctx context.Context, token string) (bool, error) {
	n, err := s.client.Exists(ctx, s.prefix+revocationKey(token)).Result()
	if err != nil {
		return false, fmt.Errorf("redis exists: %w", err)
	}
	return n > 0, nil
}

// Close is a no-op; the client is owned by the caller.
func (s *RedisStore) Close() error {
	return nil
}
