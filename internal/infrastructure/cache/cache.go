// Package cache is the shared in-memory response cache used by the price and
// NFT resolvers. Entries expire lazily against an injectable clock; the
// go-cache janitor sweeps expired items in the background.
package cache

import (
	"context"
	"strings"
	"time"

	"nadfolio/internal/pkg/clock"
	"nadfolio/internal/pkg/metrics"

	gocache "github.com/patrickmn/go-cache"
)

const defaultCleanupInterval = 10 * time.Minute

type entry struct {
	value      any
	insertedAt time.Time
	ttl        time.Duration
}

// Cache is a TTL key/value store. Keys are case-insensitive.
type Cache struct {
	store *gocache.Cache
	clock clock.Clock
}

// New creates a Cache. The cleanup interval controls the background sweep only;
// expiry itself is decided on read.
func New(clk clock.Clock, cleanupInterval time.Duration) *Cache {
	if clk == nil {
		clk = clock.Real()
	}
	if cleanupInterval <= 0 {
		cleanupInterval = defaultCleanupInterval
	}
	return &Cache{
		store: gocache.New(gocache.NoExpiration, cleanupInterval),
		clock: clk,
	}
}

// Get returns the value stored under key if it was written less than ttl ago.
func (c *Cache) Get(key string) (any, bool) {
	raw, ok := c.store.Get(normalize(key))
	if !ok {
		return nil, false
	}
	e := raw.(entry)
	if c.clock.Now().Sub(e.insertedAt) >= e.ttl {
		return nil, false
	}
	return e.value, true
}

// Set stores value under key for ttl. The last writer wins.
func (c *Cache) Set(key string, value any, ttl time.Duration) {
	// go-cache's own expiration is wall-clock based; give it slack so the
	// janitor never removes an entry the injected clock still considers fresh.
	c.store.Set(normalize(key), entry{value: value, insertedAt: c.clock.Now(), ttl: ttl}, 2*ttl+defaultCleanupInterval)
}

// Invalidate removes key.
func (c *Cache) Invalidate(key string) {
	c.store.Delete(normalize(key))
}

// Namespace returns a view whose keys are prefixed with prefix.
func (c *Cache) Namespace(prefix string) *Namespace {
	return &Namespace{cache: c, prefix: normalize(prefix)}
}

// Namespace is a prefixed view on a Cache that also records hit/miss metrics.
type Namespace struct {
	cache  *Cache
	prefix string
}

func (n *Namespace) Get(key string) (any, bool) {
	v, ok := n.cache.Get(n.prefix + key)
	result := "miss"
	if ok {
		result = "hit"
	}
	metrics.CacheLookups.WithLabelValues(strings.TrimSuffix(n.prefix, ":"), result).Inc()
	return v, ok
}

func (n *Namespace) Set(key string, value any, ttl time.Duration) {
	n.cache.Set(n.prefix+key, value, ttl)
}

func (n *Namespace) Invalidate(key string) {
	n.cache.Invalidate(n.prefix + key)
}

func normalize(key string) string {
	return strings.ToLower(key)
}

type refreshKey struct{}

// WithRefresh marks ctx as a user-requested refresh: readers skip cached
// values but still store what they fetch.
func WithRefresh(ctx context.Context) context.Context {
	return context.WithValue(ctx, refreshKey{}, true)
}

// IsRefresh reports whether ctx carries the refresh marker.
func IsRefresh(ctx context.Context) bool {
	v, _ := ctx.Value(refreshKey{}).(bool)
	return v
}
