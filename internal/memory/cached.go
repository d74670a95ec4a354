package memory

import (
	"context"
	"time"

	"github.com/edgeline/edgeline/pkg/cache"
	"go.uber.org/zap"
)

// CachedStore wraps a Store with a read-through cache on context
// lookups. The controller reads its context at the top of every cycle,
// so this keeps the hot path off the database. Writes invalidate
// through the cache.
type CachedStore struct {
	Store

	cache  cache.Cache
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedStore wraps store with a context cache.
func NewCachedStore(store Store, c cache.Cache, ttl time.Duration, logger *zap.Logger) *CachedStore {
	return &CachedStore{
		Store:  store,
		cache:  c,
		ttl:    ttl,
		logger: logger,
	}
}

// SetContext writes through to the store and refreshes the cache.
func (c *CachedStore) SetContext(ctx context.Context, key, value string) error {
	if err := c.Store.SetContext(ctx, key, value); err != nil {
		return err
	}

	c.cache.Set(contextCacheKey(key), value, c.ttl)

	return nil
}

// GetContext serves from the cache when possible.
func (c *CachedStore) GetContext(ctx context.Context, key string) (string, error) {
	if cached, found := c.cache.Get(contextCacheKey(key)); found {
		if value, ok := cached.(string); ok {
			return value, nil
		}
	}

	value, err := c.Store.GetContext(ctx, key)
	if err != nil {
		return "", err
	}

	c.cache.Set(contextCacheKey(key), value, c.ttl)

	return value, nil
}

// Ping reports the backing store's reachability. Stores without a
// ping, like the in-memory one, always pass.
func (c *CachedStore) Ping(ctx context.Context) error {
	if p, ok := c.Store.(interface{ Ping(context.Context) error }); ok {
		return p.Ping(ctx)
	}
	return nil
}

// Close closes the cache and the underlying store.
func (c *CachedStore) Close() error {
	c.cache.Close()
	return c.Store.Close()
}

func contextCacheKey(key string) string {
	return "context:" + key
}
