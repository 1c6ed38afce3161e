package knowledge

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestContextCache_GetSet(t *testing.T) {
	c := newContextCache(time.Minute)

	key := cacheKey("cavalry", []string{"anti_cavalry"}, "", 5)

	_, ok := c.get(key)
	assert.False(t, ok)

	c.set(key, "block")
	got, ok := c.get(key)
	assert.True(t, ok)
	assert.Equal(t, "block", got)

	// Same inputs in a different shape are a different key.
	_, ok = c.get(cacheKey("cavalry", []string{"anti_cavalry"}, "", 3))
	assert.False(t, ok)
	_, ok = c.get(cacheKey("cavalry", []string{"anti_cavalry"}, "we lost to knights", 5))
	assert.False(t, ok)
}

func TestContextCache_Expiry(t *testing.T) {
	c := newContextCache(time.Minute)

	now := time.Now()
	c.now = func() time.Time { return now }

	c.set("k", "v")

	_, ok := c.get("k")
	assert.True(t, ok)

	now = now.Add(61 * time.Second)
	_, ok = c.get("k")
	assert.False(t, ok, "expired item must miss")
	assert.Equal(t, 0, c.len(), "expired item is dropped on read")
}

func TestContextCache_Invalidate(t *testing.T) {
	c := newContextCache(time.Minute)
	c.set("a", "1")
	c.set("b", "2")

	c.invalidate()
	assert.Equal(t, 0, c.len())
}

func TestContextCache_Sweep(t *testing.T) {
	c := newContextCache(time.Minute)

	now := time.Now()
	c.now = func() time.Time { return now }

	c.set("old", "1")
	now = now.Add(30 * time.Second)
	c.set("fresh", "2")
	now = now.Add(45 * time.Second)

	c.sweep()
	assert.Equal(t, 1, c.len())

	_, ok := c.get("fresh")
	assert.True(t, ok)
}

func TestContextCache_DefaultTTL(t *testing.T) {
	c := newContextCache(0)
	assert.Equal(t, DefaultCacheTTL, c.ttl)
}
