package utils

import (
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// CacheItem is a cached value with its expiry.
type CacheItem struct {
	Data      any
	ExpiresAt time.Time
}

// Cache is a size-bounded LRU with per-entry TTL. Safe for concurrent use.
//
// Entries filled from a slow read belong to a scope, a key prefix with a
// version. Readers take the version before reading the store and fill with
// SetIfCurrent; writers go through Invalidate or Update, which bump it. A
// fill that raced a write is then dropped instead of caching stale data.
type Cache struct {
	lruCache *lru.Cache[string, CacheItem]
	now      func() time.Time

	mu       sync.Mutex
	versions map[string]uint64
}

func NewCache(size int) (*Cache, error) {
	if size <= 0 {
		size = 500
	}
	l, err := lru.New[string, CacheItem](size)
	if err != nil {
		return nil, err
	}
	return &Cache{lruCache: l, now: time.Now, versions: make(map[string]uint64)}, nil
}

// Set stores data under key for ttl.
func (c *Cache) Set(key string, data any, ttl time.Duration) {
	c.lruCache.Add(key, CacheItem{
		Data:      data,
		ExpiresAt: c.now().Add(ttl),
	})
}

// Get returns the cached value, or nil when missing or expired.
func (c *Cache) Get(key string) any {
	val, ok := c.lruCache.Get(key)
	if !ok {
		return nil
	}
	if c.now().After(val.ExpiresAt) {
		c.lruCache.Remove(key)
		return nil
	}
	return val.Data
}

func (c *Cache) Delete(key string) {
	c.lruCache.Remove(key)
}

// DeletePrefix drops every entry whose key starts with prefix.
func (c *Cache) DeletePrefix(prefix string) {
	for _, key := range c.lruCache.Keys() {
		if strings.HasPrefix(key, prefix) {
			c.lruCache.Remove(key)
		}
	}
}

// Version returns the scope's current version. Take it before reading the
// data that will be passed to SetIfCurrent.
func (c *Cache) Version(scope string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.versions[scope]
}

// SetIfCurrent stores data under key only if scope is still at version. It
// reports whether the value was stored.
func (c *Cache) SetIfCurrent(scope string, version uint64, key string, data any, ttl time.Duration) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.versions[scope] != version {
		return false
	}
	c.Set(key, data, ttl)
	return true
}

// Invalidate bumps the scope's version and drops every entry under it.
func (c *Cache) Invalidate(scope string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.versions[scope]++
	c.DeletePrefix(scope)
}

// Update rewrites key in place under the scope's lock and bumps the scope.
// fn receives the live value, or nil; when it returns false the entry is
// dropped.
func (c *Cache) Update(scope, key string, ttl time.Duration, fn func(old any) (any, bool)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.versions[scope]++
	if data, keep := fn(c.Get(key)); keep {
		c.Set(key, data, ttl)
		return
	}
	c.Delete(key)
}
