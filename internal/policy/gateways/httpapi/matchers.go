package httpapi

import (
	"sync"
	"time"

	"github.com/fieldreach/sendgate/internal/policy/domain"
	"github.com/fieldreach/sendgate/internal/policy/repos/blocklist"
	"github.com/fieldreach/sendgate/internal/policy/repos/blocklist/bloom"
	"github.com/fieldreach/sendgate/internal/policy/repos/blocklist/lru"
	"github.com/fieldreach/sendgate/internal/policy/repos/snapshot"
)

// matcherSet keeps one blocklist repository per list so repeated advisory
// lookups hit the decision cache and the Bloom prefilter instead of
// rescanning the rule slice. Repositories are rebuilt when the snapshot
// they were built from changes.
type matcherSet struct {
	mu        sync.Mutex
	byList    map[string]*listMatcher
	cacheSize int
	fpRate    float64
}

type listMatcher struct {
	repo blocklist.Repository
	asOf time.Time
}

// NewMatcherSet builds a matcherSet whose per-list repositories use an LRU
// decision cache of cacheSize entries and a Bloom prefilter at fpRate.
// Non-positive arguments fall back to defaults.
func NewMatcherSet(cacheSize int, fpRate float64) *matcherSet {
	if cacheSize <= 0 {
		cacheSize = 4096
	}
	if fpRate <= 0 || fpRate >= 1 {
		fpRate = 0.01
	}
	return &matcherSet{
		byList:    make(map[string]*listMatcher),
		cacheSize: cacheSize,
		fpRate:    fpRate,
	}
}

func (m *matcherSet) match(listID string, snap snapshot.RuleSnapshot, target string) domain.MatchResult {
	m.mu.Lock()
	lm, ok := m.byList[listID]
	if !ok {
		// size is validated in NewMatcherSet, so lru.New cannot fail here.
		cache, _ := lru.New(m.cacheSize)
		lm = &listMatcher{repo: blocklist.NewRepository(cache, bloom.NewFactory(), m.fpRate)}
		m.byList[listID] = lm
	}
	if !lm.asOf.Equal(snap.UpdatedAt) {
		lm.repo.UpdateAll(domain.ActiveDomainRules(snap.Domains))
		lm.asOf = snap.UpdatedAt
	}
	m.mu.Unlock()

	return lm.repo.Match(target)
}
