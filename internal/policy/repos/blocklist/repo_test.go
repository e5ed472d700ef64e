package blocklist

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldreach/sendgate/internal/policy/domain"
)

// mapCache is a trivial MatchCache for tests.
type mapCache struct {
	m      map[string]domain.MatchResult
	hits   uint64
	misses uint64
	purges int
}

func newMapCache() *mapCache { return &mapCache{m: map[string]domain.MatchResult{}} }

func (c *mapCache) Get(target string) (domain.MatchResult, bool) {
	r, ok := c.m[target]
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	return r, ok
}
func (c *mapCache) Put(target string, m domain.MatchResult) { c.m[target] = m }
func (c *mapCache) Len() int                                { return len(c.m) }
func (c *mapCache) Purge() {
	c.m = map[string]domain.MatchResult{}
	c.purges++
}
func (c *mapCache) Stats() (uint64, uint64, uint64) { return c.hits, c.misses, 0 }

// setBloom is an exact-set "bloom" with no false positives, which makes the
// prefilter's behavior observable in tests.
type setBloom struct {
	keys    map[string]bool
	queries int
}

func (b *setBloom) Add(key []byte) { b.keys[string(key)] = true }
func (b *setBloom) MightContain(key []byte) bool {
	b.queries++
	return b.keys[string(key)]
}
func (b *setBloom) Clear() { b.keys = map[string]bool{} }

type setBloomFactory struct{ last *setBloom }

func (f *setBloomFactory) New(_ uint64, _ float64) BloomFilter {
	f.last = &setBloom{keys: map[string]bool{}}
	return f.last
}

func testRules() []domain.DomainRule {
	return []domain.DomainRule{
		{RuleMeta: domain.RuleMeta{Name: "exact example", Enabled: true}, Pattern: "example.com"},
		{RuleMeta: domain.RuleMeta{Name: "competitor subtree", Enabled: true}, Pattern: "*.competitor.io", Wildcard: true},
	}
}

func newTestRepo() (Repository, *mapCache, *setBloomFactory) {
	cache := newMapCache()
	factory := &setBloomFactory{}
	repo := NewRepository(cache, factory, 0.01)
	repo.UpdateAll(testRules())
	return repo, cache, factory
}

func TestRepository_MatchSemantics(t *testing.T) {
	repo, _, _ := newTestRepo()

	m := repo.Match("example.com")
	require.True(t, m.Matched)
	assert.Equal(t, "exact example", m.Rule.Name)

	m = repo.Match("www.example.com")
	require.True(t, m.Matched, "www is stripped during normalization")

	m = repo.Match("a.b.competitor.io")
	require.True(t, m.Matched)
	assert.Equal(t, "competitor subtree", m.Rule.Name)

	assert.False(t, repo.Match("competitor.io").Matched, "wildcard never matches its base")
	assert.False(t, repo.Match("unrelated.org").Matched)
}

func TestRepository_InvalidTargetFailsClosed(t *testing.T) {
	repo, cache, _ := newTestRepo()

	m := repo.Match("http://127.0.0.1/")
	assert.True(t, m.Matched)
	assert.True(t, m.Invalid)
	assert.Equal(t, 0, cache.Len(), "invalid targets are not cached")
}

func TestRepository_BloomEarlyAllow(t *testing.T) {
	repo, cache, _ := newTestRepo()

	m := repo.Match("unrelated.org")
	assert.False(t, m.Matched)
	// Definite negative: neither cache consulted nor result stored.
	assert.Equal(t, 0, cache.Len())
	hits, misses, _ := cache.Stats()
	assert.Zero(t, hits+misses)
}

func TestRepository_CacheHitOnRepeat(t *testing.T) {
	repo, cache, _ := newTestRepo()

	first := repo.Match("foo.competitor.io")
	require.True(t, first.Matched)
	second := repo.Match("foo.competitor.io")
	require.True(t, second.Matched)

	hits, _, _ := cache.Stats()
	assert.Equal(t, uint64(1), hits)
	assert.Equal(t, first.Rule.Name, second.Rule.Name)
}

func TestRepository_UpdateAllSwapsSnapshot(t *testing.T) {
	repo, cache, _ := newTestRepo()

	require.True(t, repo.Match("example.com").Matched)
	require.Equal(t, 1, cache.Len())

	repo.UpdateAll([]domain.DomainRule{
		{RuleMeta: domain.RuleMeta{Name: "only org", Enabled: true}, Pattern: "example.org"},
	})

	assert.Equal(t, 0, cache.Len(), "snapshot update purges the cache")
	assert.False(t, repo.Match("example.com").Matched)
	assert.True(t, repo.Match("example.org").Matched)
	assert.Equal(t, 1, repo.Stats().Rules)
}

func TestRepository_NoBloomStillAuthoritative(t *testing.T) {
	cache := newMapCache()
	repo := NewRepository(cache, &setBloomFactory{}, 0.01)
	// No UpdateAll yet: no bloom, no rules.
	assert.False(t, repo.Match("example.com").Matched)
}

func TestRepository_FirstMatchWinsAcrossKinds(t *testing.T) {
	cache := newMapCache()
	repo := NewRepository(cache, &setBloomFactory{}, 0.01)
	repo.UpdateAll([]domain.DomainRule{
		{RuleMeta: domain.RuleMeta{Name: "wild first", Enabled: true}, Pattern: "*.example.com", Wildcard: true},
		{RuleMeta: domain.RuleMeta{Name: "exact later", Enabled: true}, Pattern: "foo.example.com"},
	})

	m := repo.Match("foo.example.com")
	require.True(t, m.Matched)
	assert.Equal(t, "wild first", m.Rule.Name)
}
