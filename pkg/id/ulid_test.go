package id

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestULIDGenerator(t *testing.T) {
	gen := NewULIDGenerator()

	t.Run("Generate", func(t *testing.T) {
		id := gen.Generate()
		assert.Len(t, id, 26)
		assert.True(t, IsULID(id))
	})

	t.Run("Monotonic", func(t *testing.T) {
		prev := gen.Generate()
		for i := 0; i < 100; i++ {
			next := gen.Generate()
			assert.Greater(t, next, prev)
			prev = next
		}
	})
}

func TestIsULID(t *testing.T) {
	assert.True(t, IsULID(NewULID()))
	assert.False(t, IsULID("not-a-ulid"))
	assert.False(t, IsULID(""))
}
