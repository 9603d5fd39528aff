// File path: internal/workflow/cache.go
package workflow

import (
	"sync"
	"time"
)

type cacheEntry struct {
	value     OptionSet
	expiresAt time.Time
}

// optionsCache keeps filter option lists for a short time so that the form
// does not query the source on every change.
type optionsCache struct {
	mu   sync.RWMutex
	data map[string]cacheEntry
	ttl  time.Duration
}

func newOptionsCache(ttl time.Duration) *optionsCache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &optionsCache{data: make(map[string]cacheEntry), ttl: ttl}
}

func (c *optionsCache) get(key string) (OptionSet, bool) {
	if c == nil {
		return OptionSet{}, false
	}
	c.mu.RLock()
	entry, ok := c.data[key]
	c.mu.RUnlock()
	if !ok {
		return OptionSet{}, false
	}
	if time.Now().After(entry.expiresAt) {
		c.mu.Lock()
		delete(c.data, key)
		c.mu.Unlock()
		return OptionSet{}, false
	}
	return entry.value, true
}

func (c *optionsCache) set(key string, value OptionSet) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.data[key] = cacheEntry{value: value, expiresAt: time.Now().Add(c.ttl)}
	c.mu.Unlock()
}

func (c *optionsCache) clear() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.data = make(map[string]cacheEntry)
	c.mu.Unlock()
}
