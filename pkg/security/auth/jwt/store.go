package jwt

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"
)

// Store records revoked tokens until their refresh window closes.
type Store interface {
	Revoke(ctx context.Context, token string, ttl time.Duration) error
	IsRevoked(ctx context.Context, token string) (bool, error)
	Close() error
}

// revocationKey hashes a token so stores never hold the bearer credential.
func revocationKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// MemoryStore is an in-memory Store for single-instance deployments and tests.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]time.Time

	cleanupInterval time.Duration
	stop            chan struct{}
	stopOnce        sync.Once
}

// MemoryStoreOption is a functional option for MemoryStore.
type MemoryStoreOption func(*MemoryStore)

// WithCleanupInterval sets how often expired entries are swept.
func WithCleanupInterval(d time.Duration) MemoryStoreOption {
	return func(s *MemoryStore) {
		if d > 0 {
			s.cleanupInterval = d
		}
	}
}

// NewMemoryStore creates a new in-memory token store.
func NewMemoryStore(opts ...MemoryStoreOption) *MemoryStore {
	s := &MemoryStore{
		entries:         make(map[string]time.Time),
		cleanupInterval: 5 * time.Minute,
		stop:            make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	go s.sweepLoop()

	return s
}

// Revoke marks a token as revoked for ttl.
func (s *MemoryStore) Revoke(_ context.Context, token string, ttl time.Duration) error {
	s.mu.Lock()
	s.entries[revocationKey(token)] = time.Now().Add(ttl)
	s.mu.Unlock()
	return nil
}

// IsRevoked reports whether the token has an unexpired revocation entry.
func (s *MemoryStore) IsRevoked(_ context.Context, token string) (bool, error) {
	s.mu.RLock()
	exp, ok := s.entries[revocationKey(token)]
	s.mu.RUnlock()

	return ok && time.Now().Before(exp), nil
}

// Size returns the number of entries, expired ones included until swept.
func (s *MemoryStore) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Close stops the sweep goroutine. It is safe to call more than once.
func (s *MemoryStore) Close() error {
	s.stopOnce.Do(func() { close(s.stop) })
	return nil
}

func (s *MemoryStore) sweepLoop() {
	ticker := time.NewTicker(s.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sweep(time.Now())
		case <-s.stop:
			return
		}
	}
}

func (s *MemoryStore) sweep(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, exp := range s.entries {
		if now.After(exp) {
			delete(s.entries, key)
		}
	}
}
