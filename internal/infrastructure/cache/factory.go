package cache

import (
	"context"
	"fmt"

	"github.com/finanzas/backend/internal/domain/shared"
	"github.com/finanzas/backend/internal/infrastructure/config"
	"github.com/finanzas/backend/internal/infrastructure/store"
	"go.uber.org/zap"
)

// Idempotency backends accepted by configuration
const (
	BackendStore  = "store"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// IdempotencyStoreFactory creates idempotency stores based on configuration
type IdempotencyStoreFactory struct {
	idempotency   config.IdempotencyConfig
	redisConfig   config.RedisConfig
	entities      store.EntityStore
	logger        *zap.Logger
	allowFallback bool
}

// IdempotencyStoreFactoryOption is a functional option for configuring the factory
type IdempotencyStoreFactoryOption func(*IdempotencyStoreFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) IdempotencyStoreFactoryOption {
	return func(f *IdempotencyStoreFactory) {
		f.logger = logger
	}
}

// WithStoreFallback controls whether an unreachable Redis falls back to the
// entity-store backend. Default is true.
func WithStoreFallback(allow bool) IdempotencyStoreFactoryOption {
	return func(f *IdempotencyStoreFactory) {
		f.allowFallback = allow
	}
}

// NewIdempotencyStoreFactory creates a new factory. entities backs the
// "store" backend and the Redis fallback.
func NewIdempotencyStoreFactory(cfg config.IdempotencyConfig, redisCfg config.RedisConfig, entities store.EntityStore, opts ...IdempotencyStoreFactoryOption) *IdempotencyStoreFactory {
	f := &IdempotencyStoreFactory{
		idempotency:   cfg,
		redisConfig:   redisCfg,
		entities:      entities,
		logger:        zap.NewNop(),
		allowFallback: true,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// CreateStore builds the configured backend
func (f *IdempotencyStoreFactory) CreateStore(ctx context.Context) (shared.IdempotencyStore, error) {
	switch f.idempotency.Backend {
	case BackendStore, "":
		f.logger.Info("using entity-store idempotency backend")
		return NewEntityIdempotencyStore(f.entities), nil
	case BackendMemory:
		f.logger.Warn("using in-memory idempotency store; records are lost on restart and not shared across instances")
		return NewInMemoryIdempotencyStore(), nil
	case BackendRedis:
		client, err := DialRedis(ctx, f.redisConfig)
		if err == nil {
			f.logger.Info("using Redis idempotency store", zap.String("addr", f.redisConfig.Addr()))
			return NewRedisIdempotencyStore(client, f.idempotency.KeyPrefix), nil
		}
		if !f.allowFallback {
			return nil, fmt.Errorf("redis required for idempotency but unavailable: %w", err)
		}
		f.logger.Warn("Redis unavailable, falling back to entity-store idempotency backend", zap.Error(err))
		return NewEntityIdempotencyStore(f.entities), nil
	default:
		return nil, fmt.Errorf("unknown idempotency backend %q", f.idempotency.Backend)
	}
}
