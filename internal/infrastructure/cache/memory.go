package cache

import (
	"context"
	"sync"
	"time"

	"github.com/tilbudsradar/backend/internal/domain"
)

const defaultCleanupInterval = 10 * time.Minute

// entry is one cached lookup outcome with its expiry
type entry struct {
	value     []byte
	expiresAt time.Time
}

func (e entry) expired(now time.Time) bool {
	return now.After(e.expiresAt)
}

// MemoryCache is a thread-safe in-process cache with TTL support.
// Values are copied on the way in and out so callers cannot mutate stored bytes.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]entry
	now     func() time.Time
	stop    chan struct{}
	once    sync.Once
}

// NewMemoryCache creates a cache that evicts expired entries every interval.
// A non-positive interval uses ten minutes.
func NewMemoryCache(interval time.Duration) *MemoryCache {
	if interval <= 0 {
		interval = defaultCleanupInterval
	}

	c := &MemoryCache{
		entries: make(map[string]entry),
		now:     time.Now,
		stop:    make(chan struct{}),
	}
	go c.janitor(interval)
	return c
}

// Get retrieves a value from the cache
func (c *MemoryCache) Get(ctx context.Context, key string) ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[key]
	if !ok || e.expired(c.now()) {
		return nil, domain.ErrCacheMiss
	}
	return append([]byte(nil), e.value...), nil
}

// Set stores a value with the given TTL. A non-positive TTL stores nothing.
func (c *MemoryCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = entry{
		value:     append([]byte(nil), value...),
		expiresAt: c.now().Add(ttl),
	}
	return nil
}

// Delete removes a value from the cache
func (c *MemoryCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, key)
	return nil
}

// Exists checks if a key exists in the cache and is not expired
func (c *MemoryCache) Exists(ctx context.Context, key string) (bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[key]
	return ok && !e.expired(c.now()), nil
}

// Len returns the number of stored entries, expired ones included until the next sweep
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Clear removes all entries
func (c *MemoryCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]entry)
}

// Close stops the background sweep
func (c *MemoryCache) Close() error {
	c.once.Do(func() { close(c.stop) })
	return nil
}

func (c *MemoryCache) janitor(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.sweep()
		}
	}
}

// sweep drops every expired entry
func (c *MemoryCache) sweep() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for key, e := range c.entries {
		if e.expired(now) {
			delete(c.entries, key)
		}
	}
}
