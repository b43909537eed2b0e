// Package id generates sortable unique identifiers for requests and tokens.
package id

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// ULIDGenerator generates Universally Unique Lexicographically Sortable Identifiers.
// IDs generated within the same millisecond are monotonically increasing.
type ULIDGenerator struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

// NewULIDGenerator creates a new ULID generator seeded from crypto/rand.
func NewULIDGenerator() *ULIDGenerator {
	return &ULIDGenerator{entropy: ulid.Monotonic(rand.Reader, 0)}
}

// Generate creates a new ULID string.
func (g *ULIDGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), g.entropy).String()
}

var defaultGenerator = NewULIDGenerator()

// NewULID returns a new ULID from the package generator.
func NewULID() string {
	return defaultGenerator.Generate()
}

// IsULID reports whether s parses as a ULID.
func IsULID(s string) bool {
	_, err := ulid.ParseStrict(s)
	return err == nil
}
