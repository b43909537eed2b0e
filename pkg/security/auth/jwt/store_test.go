package jwt

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_RevokeAndCheck(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()
	ctx := context.Background()

	revoked, err := s.IsRevoked(ctx, "token-a")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, s.Revoke(ctx, "token-a", time.Hour))

	revoked, err = s.IsRevoked(ctx, "token-a")
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, err = s.IsRevoked(ctx, "token-b")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestMemoryStore_Expiration(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()
	ctx := context.Background()

	require.NoError(t, s.Revoke(ctx, "token", 10*time.Millisecond))
	time.Sleep(30 * time.Millisecond)

	revoked, err := s.IsRevoked(ctx, "token")
	require.NoError(t, err)
	assert.False(t, revoked)
	assert.Equal(t, 1, s.Size())

	s.sweep(time.Now())
	assert.Equal(t, 0, s.Size())
}

func TestMemoryStore_SweepKeepsLiveEntries(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()
	ctx := context.Background()

	require.NoError(t, s.Revoke(ctx, "short", time.Millisecond))
	require.NoError(t, s.Revoke(ctx, "long", time.Hour))

	s.sweep(time.Now().Add(time.Minute))
	assert.Equal(t, 1, s.Size())

	revoked, _ := s.IsRevoked(ctx, "long")
	assert.True(t, revoked)
}

func TestMemoryStore_BackgroundSweep(t *testing.T) {
	s := NewMemoryStore(WithCleanupInterval(10 * time.Millisecond))
	defer s.Close()

	require.NoError(t, s.Revoke(context.Background(), "token", time.Millisecond))
	assert.Eventually(t, func() bool { return s.Size() == 0 }, time.Second, 10*time.Millisecond)
}

func TestMemoryStore_CloseTwice(t *testing.T) {
	s := NewMemoryStore()
	assert.NoError(t, s.Close())
	assert.NoError(t, s.Close())
}

func TestMemoryStore_Concurrent(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			_ = s.Revoke(ctx, string(rune('a'+i%26)), time.Hour)
		}(i)
		go func(i int) {
			defer wg.Done()
			_, _ = s.IsRevoked(ctx, string(rune('a'+i%26)))
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 26, s.Size())
}

func TestRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	defer client.Close()

	s := NewRedisStore(client, "")
	ctx := context.Background()

	revoked, err := s.IsRevoked(ctx, "token")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, s.Revoke(ctx, "token", time.Minute))

	revoked, err = s.IsRevoked(ctx, "token")
	require.NoError(t, err)
	assert.True(t, revoked)

	key := DefaultRedisPrefix + revocationKey("token")
	assert.True(t, mr.Exists(key))
	assert.Equal(t, time.Minute, mr.TTL(key))

	mr.FastForward(2 * time.Minute)
	revoked, err = s.IsRevoked(ctx, "token")
	require.NoError(t, err)
	assert.False(t, revoked)
	assert.NoError(t, s.Close())
}

func TestRedisStore_Unavailable(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer client.Close()
	mr.Close()

	_, err := NewRedisStore(client, "x:").IsRevoked(context.Background(), "token")
	assert.Error(t, err)
}
