package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryCache holds serialized canonical fragments in process memory,
// keyed by DocumentKey. Entries expire on their TTL so a re-imaged
// document is eventually reassembled instead of served stale.
type MemoryCache struct {
	fragments *gocache.Cache
}

// NewMemoryCache creates a fragment cache with the given default TTL and
// expired-entry sweep interval
func NewMemoryCache(defaultTTL, cleanupInterval time.Duration) *MemoryCache {
	return &MemoryCache{fragments: gocache.New(defaultTTL, cleanupInterval)}
}

// Get returns the fragment payload stored under a document key
func (c *MemoryCache) Get(key string) ([]byte, bool) {
	val, found := c.fragments.Get(key)
	if !found {
		return nil, false
	}
	payload, ok := val.([]byte)
	return payload, ok
}

// Set stores a fragment payload under a document key. A non-positive TTL
// falls back to the cache default.
func (c *MemoryCache) Set(key string, payload []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = gocache.DefaultExpiration
	}
	c.fragments.Set(key, payload, ttl)
	return nil
}

// Delete evicts one cached fragment
func (c *MemoryCache) Delete(key string) error {
	c.fragments.Delete(key)
	return nil
}

// Clear evicts every cached fragment
func (c *MemoryCache) Clear() error {
	c.fragments.Flush()
	return nil
}
