package patterns

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/haosfm/haos/internal/log"
)

// Cache defaults.
const (
	DefaultExpiration      = 10 * time.Minute
	DefaultCleanupInterval = 30 * time.Minute
)

// memoryCache is a typed view over go-cache.
type memoryCache[V any] struct {
	useCase string
	cache   *gocache.Cache
}

func newMemoryCache[V any](useCase string, defaultExpiration, cleanupInterval time.Duration) *memoryCache[V] {
	return &memoryCache[V]{
		useCase: useCase,
		cache:   gocache.New(defaultExpiration, cleanupInterval),
	}
}

func (c *memoryCache[V]) Get(key string) (V, bool) {
	var zero V
	value, found := c.cache.Get(key)
	if !found {
		return zero, false
	}
	v, ok := value.(V)
	if !ok {
		log.Error(log.CatCache, "wrong type assertion when getting value", "useCase", c.useCase, "key", key)
		return zero, false
	}
	log.Debug(log.CatCache, "cache hit", "useCase", c.useCase, "key", key)
	return v, true
}

func (c *memoryCache[V]) Set(key string, value V, ttl time.Duration) {
	c.cache.Set(key, value, ttl)
}

func (c *memoryCache[V]) Delete(keys ...string) {
	for _, key := range keys {
		c.cache.Delete(key)
	}
	log.Debug(log.CatCache, "cache delete", "useCase", c.useCase, "keys", len(keys))
}

func (c *memoryCache[V]) Flush() {
	c.cache.Flush()
}

func (c *memoryCache[V]) Len() int {
	return c.cache.ItemCount()
}

// readThrough serves hits from cache and fills misses with fn.
// Errors are never cached.
type readThrough[V any] struct {
	cache *memoryCache[V]
	fn    func(ctx context.Context, key string) (V, error)
	skip  bool
}

func (r *readThrough[V]) Get(ctx context.Context, key string, ttl time.Duration) (V, error) {
	if r.skip {
		return r.fn(ctx, key)
	}
	if value, ok := r.cache.Get(key); ok {
		return value, nil
	}
	value, err := r.fn(ctx, key)
	if err != nil {
		return value, err
	}
	r.cache.Set(key, value, ttl)
	return value, nil
}
