package menu

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/wolfman30/salon-booking/pkg/logging"
)

const cacheKey = "salon:menu:v1"

// CachedSource keeps the last successful menu in Redis for ttl.
type CachedSource struct {
	next   Source
	redis  *redis.Client
	ttl    time.Duration
	logger *logging.Logger
}

// NewCachedSource wraps next; a nil client disables caching.
func NewCachedSource(next Source, client *redis.Client, ttl time.Duration, logger *logging.Logger) Source {
	if client == nil || ttl <= 0 {
		return next
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &CachedSource{next: next, redis: client, ttl: ttl, logger: logger}
}

func (c *CachedSource) List(ctx context.Context) ([]Item, error) {
	data, err := c.redis.Get(ctx, cacheKey).Bytes()
	switch {
	case err == nil:
		var items []Item
		if jsonErr := json.Unmarshal(data, &items); jsonErr == nil {
			return items, nil
		}
		c.logger.Warn("menu: discarding corrupt cache entry")
	case !errors.Is(err, redis.Nil):
		c.logger.Warn("menu: cache read failed", "error", err)
	}

	items, err := c.next.List(ctx)
	if err != nil {
		return nil, err
	}
	if data, err := json.Marshal(items); err == nil {
		if err := c.redis.Set(ctx, cacheKey, data, c.ttl).Err(); err != nil {
			c.logger.Warn("menu: cache write failed", "error", err)
		}
	}
	return items, nil
}

// Invalidate drops the cached menu so the next List hits the source.
func (c *CachedSource) Invalidate(ctx context.Context) error {
	return c.redis.Del(ctx, cacheKey).Err()
}
