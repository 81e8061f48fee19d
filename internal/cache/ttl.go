// Package cache provides a small bounded in-memory cache with per-entry expiry.
package cache

import (
	"strings"
	"sync"
	"time"
)

type entry struct {
	value     interface{}
	storedAt  time.Time
	expiresAt time.Time
}

// TTLCache is safe for concurrent use. When full, the oldest entry is evicted.
type TTLCache struct {
	items   map[string]entry
	maxSize int
	ttl     time.Duration
	now     func() time.Time
	mu      sync.RWMutex
}

// New creates a cache holding at most maxSize entries, each living ttl by default.
func New(maxSize int, ttl time.Duration) *TTLCache {
	if maxSize <= 0 {
		maxSize = 128
	}
	return &TTLCache{
		items:   make(map[string]entry),
		maxSize: maxSize,
		ttl:     ttl,
		now:     time.Now,
	}
}

// Get returns the live value for key.
func (c *TTLCache) Get(key string) (interface{}, bool) {
	c.mu.RLock()
	e, ok := c.items[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if !c.now().Before(e.expiresAt) {
		c.expire(key)
		return nil, false
	}
	return e.value, true
}

// expire removes key if it is still expired; a concurrent Set may have
// replaced it after the read lock was released.
func (c *TTLCache) expire(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.items[key]; ok && !c.now().Before(e.expiresAt) {
		delete(c.items, key)
	}
}

// Set stores value under key with the default TTL.
func (c *TTLCache) Set(key string, value interface{}) {
	c.SetWithTTL(key, value, c.ttl)
}

// SetWithTTL stores value under key for ttl.
func (c *TTLCache) SetWithTTL(key string, value interface{}, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if _, exists := c.items[key]; !exists && len(c.items) >= c.maxSize {
		c.evictLocked(now)
	}
	c.items[key] = entry{value: value, storedAt: now, expiresAt: now.Add(ttl)}
}

// evictLocked drops expired entries, or the oldest one if none expired.
func (c *TTLCache) evictLocked(now time.Time) {
	var oldestKey string
	var oldest time.Time
	expired := false
	for k, e := range c.items {
		if !now.Before(e.expiresAt) {
			delete(c.items, k)
			expired = true
			continue
		}
		if oldestKey == "" || e.storedAt.Before(oldest) {
			oldestKey, oldest = k, e.storedAt
		}
	}
	if !expired && oldestKey != "" {
		delete(c.items, oldestKey)
	}
}

// Delete removes key.
func (c *TTLCache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
}

// DeletePrefix removes every key starting with prefix.
func (c *TTLCache) DeletePrefix(prefix string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.items {
		if strings.HasPrefix(k, prefix) {
			delete(c.items, k)
		}
	}
}

// Clear removes everything.
func (c *TTLCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]entry)
}

// Len reports the number of stored entries, expired ones included.
func (c *TTLCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}
