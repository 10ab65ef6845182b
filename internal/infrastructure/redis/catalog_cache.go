package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wms-platform/audit-service/internal/domain"
)

// catalogKey holds every cached lookup in one hash so an upload can drop them in one DEL
const catalogKey = "audit:catalog"

// CatalogCache caches reference lookups in a Redis hash
type CatalogCache struct {
	client redis.Cmdable
	ttl    time.Duration
}

// NewCatalogCache creates a CatalogCache. The hash expires ttl after the last write.
func NewCatalogCache(client redis.Cmdable, ttl time.Duration) *CatalogCache {
	return &CatalogCache{client: client, ttl: ttl}
}

func (c *CatalogCache) Get(ctx context.Context, key string) (*domain.ReferenceItem, bool, error) {
	raw, err := c.client.HGet(ctx, catalogKey, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read catalog cache: %w", err)
	}

	var item domain.ReferenceItem
	if err := json.Unmarshal(raw, &item); err != nil {
		// A corrupt value is a miss
		return nil, false, nil
	}
	return &item, true, nil
}

func (c *CatalogCache) Set(ctx context.Context, key string, item *domain.ReferenceItem) error {
	raw, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("failed to encode catalog item: %w", err)
	}

	_, err = c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, catalogKey, key, raw)
		if c.ttl > 0 {
			pipe.Expire(ctx, catalogKey, c.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to write catalog cache: %w", err)
	}
	return nil
}

func (c *CatalogCache) Invalidate(ctx context.Context) error {
	if err := c.client.Del(ctx, catalogKey).Err(); err != nil {
		return fmt.Errorf("failed to invalidate catalog cache: %w", err)
	}
	return nil
}
