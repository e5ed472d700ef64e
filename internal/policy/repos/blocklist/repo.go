// Package blocklist composes a match cache and a Bloom prefilter over an
// immutable domain-rule snapshot. Lists with a handful of rules never
// notice it; tenants with tens of thousands of blocked organizations get
// an early-allow for the common case of an unlisted recipient.
package blocklist

import (
	"strings"
	"sync"

	"github.com/fieldreach/sendgate/internal/policy/common/utils"
	"github.com/fieldreach/sendgate/internal/policy/domain"
)

// repository applies a bloom → cache → scan pipeline on reads and performs
// atomic snapshot swaps on writes.
type repository struct {
	mu      sync.RWMutex
	rules   []domain.DomainRule
	cache   MatchCache
	bloom   BloomFilter
	factory BloomFactory
	fpRate  float64
}

// NewRepository constructs a Repository. fpRate is the target
// false-positive rate for the Bloom filter when rebuilding.
func NewRepository(cache MatchCache, factory BloomFactory, fpRate float64) Repository {
	return &repository{cache: cache, factory: factory, fpRate: fpRate}
}

// Match returns the blocklist result for target. An unparseable target is
// blocked (fail closed) and bypasses the cache.
func (r *repository) Match(target string) domain.MatchResult {
	cn, err := utils.NormalizeTarget(target)
	if err != nil {
		return domain.InvalidTargetMatch()
	}
	// 1) Bloom: early-allow on a definite negative.
	if !r.checkBloom(cn) {
		return domain.EmptyMatch()
	}
	// 2) Cache.
	if m, ok := r.checkCache(cn); ok {
		return m
	}
	// 3) Linear scan, first match wins.
	m := r.scan(cn)
	// 4) Remember the outcome.
	r.updateCache(cn, m)
	return m
}

// UpdateAll atomically replaces the rule snapshot, rebuilds the Bloom
// filter, and purges the cache.
func (r *repository) UpdateAll(rules []domain.DomainRule) {
	snapshot := make([]domain.DomainRule, len(rules))
	copy(snapshot, rules)

	bf := r.factory.New(uint64(len(snapshot)), r.fpRate)
	for _, ru := range snapshot {
		// Keys keep the "*." prefix so a wildcard anchor can never alias an
		// exact pattern for the same labels.
		bf.Add([]byte(ru.Pattern))
	}

	r.mu.Lock()
	r.rules = snapshot
	r.bloom = bf
	r.cache.Purge()
	r.mu.Unlock()
}

// Stats reports cache counters and the current snapshot size.
func (r *repository) Stats() RepoStats {
	hits, misses, evictions := r.cache.Stats()
	r.mu.RLock()
	n := len(r.rules)
	r.mu.RUnlock()
	return RepoStats{Hits: hits, Misses: misses, Evictions: evictions, Rules: n}
}

// checkBloom returns true when the snapshot might contain a match for cn
// (consult the scan), false on a definite negative. A missing bloom means
// always consult.
func (r *repository) checkBloom(cn string) bool {
	r.mu.RLock()
	bf := r.bloom
	r.mu.RUnlock()
	if bf == nil {
		return true
	}
	if bf.MightContain([]byte(cn)) {
		return true
	}
	// Wildcard anchors: any proper suffix of cn at a label boundary.
	rest := cn
	for {
		i := strings.IndexByte(rest, '.')
		if i < 0 {
			return false
		}
		rest = rest[i+1:]
		if rest == "" {
			return false
		}
		if bf.MightContain([]byte("*." + rest)) {
			return true
		}
	}
}

func (r *repository) checkCache(cn string) (domain.MatchResult, bool) {
	r.mu.RLock()
	m, ok := r.cache.Get(cn)
	r.mu.RUnlock()
	return m, ok
}

func (r *repository) scan(cn string) domain.MatchResult {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for i := range r.rules {
		if r.rules[i].Matches(cn) {
			return domain.MatchResult{Matched: true, Rule: &r.rules[i]}
		}
	}
	return domain.EmptyMatch()
}

func (r *repository) updateCache(cn string, m domain.MatchResult) {
	r.mu.Lock()
	r.cache.Put(cn, m)
	r.mu.Unlock()
}
