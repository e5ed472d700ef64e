package blocklist

import "github.com/fieldreach/sendgate/internal/policy/domain"

// MatchCache caches match results by normalized target with basic metrics.
type MatchCache interface {
	Get(target string) (domain.MatchResult, bool)
	Put(target string, m domain.MatchResult)
	Len() int
	Purge()
	Stats() (hits, misses, evictions uint64)
}

// BloomFilter is the minimal interface the repository needs from Bloom
// filters.
type BloomFilter interface {
	Add(key []byte)
	MightContain(key []byte) bool
	Clear()
}

// BloomFactory builds a BloomFilter sized for n keys at the target
// false-positive rate.
type BloomFactory interface {
	New(n uint64, fpRate float64) BloomFilter
}

// RepoStats exposes repository-level cache counters and snapshot size.
type RepoStats struct {
	Hits      uint64
	Misses    uint64
	Evictions uint64
	Rules     int
}

// Repository answers domain-blocklist matches against an immutable rule
// snapshot, fronted by a match cache and a Bloom prefilter for large lists.
// Semantics are exactly those of the pure matcher; the repository only
// short-circuits definite misses.
type Repository interface {
	Match(target string) domain.MatchResult
	UpdateAll(rules []domain.DomainRule)
	Stats() RepoStats
}
