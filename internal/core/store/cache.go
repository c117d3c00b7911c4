package store

import (
	"sync"
	"time"

	"github.com/solatis/fieldcheck/internal/rules"
)

// CompiledCache keeps compiled rule sets by name so stored documents are
// decoded and compiled once. A zero TTL disables expiry; entries then leave
// only through Invalidate.
//
// Every Invalidate and Clear advances the generation. A caller that missed
// reads Generation before loading the document and passes it to Set, which
// drops the entry if the cache was invalidated in between.
type CompiledCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]cacheEntry
	gen     uint64
	now     func() time.Time
}

type cacheEntry struct {
	rules    *rules.CompiledRuleSet
	cachedAt time.Time
}

// NewCompiledCache creates an empty cache.
func NewCompiledCache(ttl time.Duration) *CompiledCache {
	return &CompiledCache{
		ttl:     ttl,
		entries: make(map[string]cacheEntry),
		now:     time.Now,
	}
}

// Get returns the cached rule set, or false on a miss or expiry.
// Compiled rule sets are immutable, so the pointer is shared.
func (c *CompiledCache) Get(name string) (*rules.CompiledRuleSet, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[name]
	if !ok {
		return nil, false
	}
	if c.ttl > 0 && c.now().Sub(e.cachedAt) > c.ttl {
		return nil, false
	}
	return e.rules, true
}

// Generation returns the current invalidation generation.
func (c *CompiledCache) Generation() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.gen
}

// Set stores a compiled rule set under name unless the cache was
// invalidated after gen was read. It reports whether the entry was stored.
func (c *CompiledCache) Set(name string, rs *rules.CompiledRuleSet, gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return false
	}
	c.entries[name] = cacheEntry{rules: rs, cachedAt: c.now()}
	return true
}

// Invalidate drops one entry.
func (c *CompiledCache) Invalidate(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, name)
	c.gen++
}

// Clear drops every entry, e.g. after the preset registry changes.
func (c *CompiledCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]cacheEntry)
	c.gen++
}

// Len returns the number of entries, expired ones included.
func (c *CompiledCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
