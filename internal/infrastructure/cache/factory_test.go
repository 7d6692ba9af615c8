package cache

import (
	"context"
	"testing"

	"github.com/finanzas/backend/internal/infrastructure/config"
	"github.com/finanzas/backend/internal/infrastructure/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdempotencyStoreFactory(t *testing.T) {
	entities := store.NewMemoryStore()
	unreachable := config.RedisConfig{Host: "127.0.0.1", Port: 1}

	t.Run("store backend", func(t *testing.T) {
		s, err := NewIdempotencyStoreFactory(config.IdempotencyConfig{Backend: BackendStore}, unreachable, entities).CreateStore(context.Background())
		require.NoError(t, err)
		assert.IsType(t, &EntityIdempotencyStore{}, s)
	})

	t.Run("memory backend", func(t *testing.T) {
		s, err := NewIdempotencyStoreFactory(config.IdempotencyConfig{Backend: BackendMemory}, unreachable, entities).CreateStore(context.Background())
		require.NoError(t, err)
		defer s.Close()
		assert.IsType(t, &InMemoryIdempotencyStore{}, s)
	})

	t.Run("redis falls back to store", func(t *testing.T) {
		s, err := NewIdempotencyStoreFactory(config.IdempotencyConfig{Backend: BackendRedis}, unreachable, entities).CreateStore(context.Background())
		require.NoError(t, err)
		assert.IsType(t, &EntityIdempotencyStore{}, s)
	})

	t.Run("redis without fallback fails", func(t *testing.T) {
		_, err := NewIdempotencyStoreFactory(config.IdempotencyConfig{Backend: BackendRedis}, unreachable, entities,
			WithStoreFallback(false)).CreateStore(context.Background())
		assert.Error(t, err)
	})

	t.Run("unknown backend", func(t *testing.T) {
		_, err := NewIdempotencyStoreFactory(config.IdempotencyConfig{Backend: "dynamo"}, unreachable, entities).CreateStore(context.Background())
		assert.Error(t, err)
	})
}
