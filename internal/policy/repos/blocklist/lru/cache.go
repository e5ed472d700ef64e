package lru

import (
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/fieldreach/sendgate/internal/policy/domain"
	"github.com/fieldreach/sendgate/internal/policy/repos/blocklist"
)

// matchCache is an LRU-backed implementation of blocklist.MatchCache.
// It tracks basic metrics: hits, misses, and evictions.
type matchCache struct {
	lru       *lru.Cache[string, domain.MatchResult]
	hits      uint64
	misses    uint64
	evictions uint64
}

// disabledCache is a no-op MatchCache used when size <= 0.
type disabledCache struct{}

// New creates a MatchCache with the given capacity. If size <= 0, a
// disabled no-op cache is returned that always misses and tracks no metrics.
func New(size int) (blocklist.MatchCache, error) {
	if size <= 0 {
		return &disabledCache{}, nil
	}

	var mc matchCache
	// NewWithEvict observes evictions, including Purge-induced ones.
	cache, err := lru.NewWithEvict(size, func(_ string, _ domain.MatchResult) {
		atomic.AddUint64(&mc.evictions, 1)
	})
	if err != nil {
		return nil, err
	}
	mc.lru = cache
	return &mc, nil
}

// Get looks up a result by normalized target.
func (c *matchCache) Get(target string) (domain.MatchResult, bool) {
	if val, ok := c.lru.Get(target); ok {
		atomic.AddUint64(&c.hits, 1)
		return val, true
	}
	atomic.AddUint64(&c.misses, 1)
	var zero domain.MatchResult
	return zero, false
}

// Put stores a result by normalized target.
func (c *matchCache) Put(target string, m domain.MatchResult) {
	c.lru.Add(target, m)
}

// Len returns the number of entries in the cache.
func (c *matchCache) Len() int { return c.lru.Len() }

// Purge removes all entries.
func (c *matchCache) Purge() { c.lru.Purge() }

// Stats returns hit/miss/eviction counters.
func (c *matchCache) Stats() (hits, misses, evictions uint64) {
	return atomic.LoadUint64(&c.hits), atomic.LoadUint64(&c.misses), atomic.LoadUint64(&c.evictions)
}

func (d *disabledCache) Get(string) (domain.MatchResult, bool) {
	var zero domain.MatchResult
	return zero, false
}

func (d *disabledCache) Put(string, domain.MatchResult) {}

func (d *disabledCache) Len() int { return 0 }

func (d *disabledCache) Purge() {}

func (d *disabledCache) Stats() (uint64, uint64, uint64) { return 0, 0, 0 }
