package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const productKeyPrefix = "catalog:products:detail:"

// Cache keeps product detail payloads in Redis. A nil *Cache is a valid,
// always-missing cache.
type Cache struct {
	client redis.Cmdable
	ttl    time.Duration
}

// NewCache returns nil, disabling caching, when client is nil or ttl is not positive.
func NewCache(client redis.Cmdable, ttl time.Duration) *Cache {
	if client == nil || ttl <= 0 {
		return nil
	}
	return &Cache{client: client, ttl: ttl}
}

func productKey(id string) string { return productKeyPrefix + id }

// Product returns the cached product and whether it was present.
func (c *Cache) Product(ctx context.Context, id string) (Product, bool, error) {
	if c == nil || id == "" {
		return Product{}, false, nil
	}
	data, err := c.client.Get(ctx, productKey(id)).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return Product{}, false, nil
	case err != nil:
		return Product{}, false, err
	}
	var p Product
	if err := json.Unmarshal(data, &p); err != nil {
		// a payload from an older layout; drop it and read through
		_ = c.client.Del(ctx, productKey(id)).Err()
		return Product{}, false, fmt.Errorf("decode cached product %s: %w", id, err)
	}
	return p, true, nil
}

// StoreProduct caches p for the configured TTL.
func (c *Cache) StoreProduct(ctx context.Context, p Product) error {
	if c == nil || p.ID == "" {
		return nil
	}
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, productKey(p.ID), data, c.ttl).Err()
}

// Invalidate drops the cached products.
func (c *Cache) Invalidate(ctx context.Context, ids ...string) error {
	if c == nil || len(ids) == 0 {
		return nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = productKey(id)
	}
	return c.client.Del(ctx, keys...).Err()
}
