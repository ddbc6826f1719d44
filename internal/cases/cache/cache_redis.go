package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"reunite/internal/cases/models"
	"reunite/pkg/platform/sentinel"
)

const caseKeyPrefix = "case:id:"

// RedisCache caches cases in Redis so multiple instances share lookups.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache constructs a Redis-backed case cache.
func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

func (c *RedisCache) Get(ctx context.Context, id uuid.UUID) (*models.Case, error) {
	raw, err := c.client.Get(ctx, caseKeyPrefix+id.String()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get cached case: %w", err)
	}
	var record models.Case
	if err := json.Unmarshal(raw, &record); err != nil {
		// A corrupt entry behaves like a miss; the next Set repairs it.
		return nil, sentinel.ErrNotFound
	}
	return &record, nil
}

func (c *RedisCache) Set(ctx context.Context, record *models.Case) error {
	if record == nil {
		return nil
	}
	raw, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal case for cache: %w", err)
	}
	if err := c.client.Set(ctx, caseKeyPrefix+record.ID.String(), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("set cached case: %w", err)
	}
	return nil
}

func (c *RedisCache) Invalidate(ctx context.Context, id uuid.UUID) error {
	if err := c.client.Del(ctx, caseKeyPrefix+id.String()).Err(); err != nil {
		return fmt.Errorf("invalidate cached case: %w", err)
	}
	return nil
}
