package knowledge

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"
)

// DefaultCacheTTL is how long a rendered context block stays valid.
const DefaultCacheTTL = 3600 * time.Second

type cacheItem struct {
	value   string
	expires time.Time
}

// contextCache memoizes rendered context blocks keyed by query shape.
// Mutations of the store invalidate it wholesale, entries also expire on
// their own after the ttl.
type contextCache struct {
	mu    sync.Mutex
	items map[string]cacheItem
	ttl   time.Duration

	// now is swappable for tests.
	now func() time.Time
}

func newContextCache(ttl time.Duration) *contextCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &contextCache{
		items: map[string]cacheItem{},
		ttl:   ttl,
		now:   time.Now,
	}
}

// cacheKey builds the lookup key from the query shape. Tag order matters,
// callers pass tags as received.
func cacheKey(topic string, tags []string, messageContext string, limit int) string {
	return topic + ":" + strings.Join(tags, ",") + ":" + messageContext + ":" + strconv.Itoa(limit)
}

func (c *contextCache) get(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	item, ok := c.items[key]
	if !ok {
		return "", false
	}
	if c.now().After(item.expires) {
		delete(c.items, key)
		return "", false
	}
	return item.value, true
}

func (c *contextCache) set(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = cacheItem{value: value, expires: c.now().Add(c.ttl)}
}

func (c *contextCache) invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.items)
}

func (c *contextCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// sweep drops expired items.
func (c *contextCache) sweep() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for key, item := range c.items {
		if now.After(item.expires) {
			delete(c.items, key)
		}
	}
}

// startSweeper sweeps periodically until ctx is done.
func (c *contextCache) startSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = c.ttl
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.sweep()
			}
		}
	}()
}
