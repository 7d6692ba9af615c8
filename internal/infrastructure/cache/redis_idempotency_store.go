package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/finanzas/backend/internal/domain/shared"
	"github.com/finanzas/backend/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
)

// DefaultKeyPrefix namespaces idempotency keys in a shared Redis
const DefaultKeyPrefix = "finz:idempotency:"

// DialTimeout bounds the connectivity check in DialRedis
const DialTimeout = 5 * time.Second

// RedisIdempotencyStore keeps records in Redis so every instance behind the
// balancer sees the same keys. Expiry is delegated to key TTLs.
type RedisIdempotencyStore struct {
	client    redis.UniversalClient
	keyPrefix string
	now       func() time.Time
}

// DialRedis opens a client for cfg and fails unless the server answers a PING
func DialRedis(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	ctx, cancel := context.WithTimeout(ctx, DialTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, errors.Join(fmt.Errorf("redis %s: %w", cfg.Addr(), err), client.Close())
	}
	return client, nil
}

// NewRedisIdempotencyStore takes ownership of client; an empty prefix means
// DefaultKeyPrefix.
func NewRedisIdempotencyStore(client redis.UniversalClient, keyPrefix string) *RedisIdempotencyStore {
	if keyPrefix == "" {
		keyPrefix = DefaultKeyPrefix
	}
	return &RedisIdempotencyStore{client: client, keyPrefix: keyPrefix, now: time.Now}
}

func (s *RedisIdempotencyStore) redisKey(scope, key string) string {
	return s.keyPrefix + scope + ":" + key
}

// Get returns the live record for (scope, key)
func (s *RedisIdempotencyStore) Get(ctx context.Context, scope, key string) (*shared.IdempotencyRecord, error) {
	raw, err := s.client.Get(ctx, s.redisKey(scope, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, shared.NewNotFoundError("idempotency record", key)
	}
	if err != nil {
		return nil, shared.NewTransientError("redis get", err)
	}
	var rec shared.IdempotencyRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("decode idempotency record %s: %w", key, err)
	}
	return &rec, nil
}

// PutIfAbsent writes rec with SETNX, using the time left until ExpiresAt as
// the key TTL. Redis evicts expired records on its own.
func (s *RedisIdempotencyStore) PutIfAbsent(ctx context.Context, rec shared.IdempotencyRecord) (shared.IdempotencyRecord, bool, error) {
	ttl := rec.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return shared.IdempotencyRecord{}, false, shared.NewValidationError("idempotency record %s is already expired", rec.Key)
	}
	payload, err := json.Marshal(rec)
	if err != nil {
		return shared.IdempotencyRecord{}, false, err
	}

	created, err := s.client.SetNX(ctx, s.redisKey(rec.Scope, rec.Key), payload, ttl).Result()
	if err != nil {
		return shared.IdempotencyRecord{}, false, shared.NewTransientError("redis setnx", err)
	}
	if created {
		return rec, true, nil
	}

	existing, err := s.Get(ctx, rec.Scope, rec.Key)
	if err != nil {
		if shared.IsNotFound(err) {
			// evicted between SETNX and GET; the caller retries
			return shared.IdempotencyRecord{}, false, shared.NewConcurrencyError("idempotency record %s vanished during write", rec.Key)
		}
		return shared.IdempotencyRecord{}, false, err
	}
	return *existing, false, nil
}

// Ping reports whether Redis answers
func (s *RedisIdempotencyStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisIdempotencyStore) Close() error {
	return s.client.Close()
}

var _ shared.IdempotencyStore = (*RedisIdempotencyStore)(nil)
