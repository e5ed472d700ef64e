// Package scheduler re-runs the eligibility decision on a timer for
// advisory consumers (UI banners, disabled submit buttons). It owns no
// policy logic: every tick calls the same pure engine the authoritative
// write path uses, just with a possibly stale rule snapshot. Nothing here
// is ever the source of truth for whether a send is recorded.
package scheduler

import (
	"sync"
	"time"

	"github.com/fieldreach/sendgate/internal/policy/common/clock"
	"github.com/fieldreach/sendgate/internal/policy/common/log"
	"github.com/fieldreach/sendgate/internal/policy/domain"
	"github.com/fieldreach/sendgate/internal/policy/services/engine"
)

// DefaultInterval is the re-evaluation period when none is configured.
const DefaultInterval = 60 * time.Second

// Snapshot is an immutable view of the rules an advisory consumer watches.
type Snapshot struct {
	Temporal []domain.TemporalRule
	Domains  []domain.DomainRule
	Target   string // optional recipient; empty means temporal-only checks
	Zone     *time.Location
}

// Options configures a Scheduler. Zero fields get defaults.
type Options struct {
	Clock      clock.Clock
	Interval   time.Duration
	Logger     log.Logger
	OnDecision func(domain.Decision)
}

// Scheduler evaluates a rule snapshot immediately on Start, then on a fixed
// interval, and again whenever the snapshot is replaced. A single goroutine
// runs all evaluations, so ticks never overlap.
type Scheduler struct {
	clk        clock.Clock
	interval   time.Duration
	logger     log.Logger
	onDecision func(domain.Decision)

	mu       sync.Mutex
	snapshot Snapshot
	latest   domain.Decision
	started  bool

	kick     chan struct{}
	stopChan chan struct{}
	doneChan chan struct{}
	stopOnce sync.Once
}

// New creates a Scheduler watching the given snapshot.
func New(snap Snapshot, opts Options) *Scheduler {
	if opts.Clock == nil {
		opts.Clock = clock.RealClock{}
	}
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.Logger == nil {
		opts.Logger = log.GetLogger()
	}
	return &Scheduler{
		clk:        opts.Clock,
		interval:   opts.Interval,
		logger:     opts.Logger,
		onDecision: opts.OnDecision,
		snapshot:   snap,
		kick:       make(chan struct{}, 1),
		stopChan:   make(chan struct{}),
		doneChan:   make(chan struct{}),
	}
}

// Start evaluates once synchronously, then begins the timer loop.
// Calling Start twice is a no-op.
func (s *Scheduler) Start() {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return
	}
	s.started = true
	s.mu.Unlock()

	s.evaluate()

	go func() {
		ticker := time.NewTicker(s.interval)
		// The timer is a scoped resource: released on every exit path.
		defer ticker.Stop()
		defer close(s.doneChan)
		for {
			select {
			case <-ticker.C:
				s.evaluate()
			case <-s.kick:
				s.evaluate()
			case <-s.stopChan:
				return
			}
		}
	}()
}

// Stop cancels the timer unconditionally and waits for the loop to exit.
// Safe to call more than once.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	started := s.started
	s.mu.Unlock()
	if !started {
		return
	}
	s.stopOnce.Do(func() { close(s.stopChan) })
	<-s.doneChan
}

// UpdateRules replaces the watched snapshot and triggers an immediate
// re-evaluation on the scheduler goroutine.
func (s *Scheduler) UpdateRules(snap Snapshot) {
	s.mu.Lock()
	s.snapshot = snap
	s.mu.Unlock()
	select {
	case s.kick <- struct{}{}:
	default:
		// A re-evaluation is already pending; it will see the new snapshot.
	}
}

// Latest returns the most recent decision.
func (s *Scheduler) Latest() domain.Decision {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest
}

func (s *Scheduler) evaluate() {
	s.mu.Lock()
	snap := s.snapshot
	s.mu.Unlock()

	dec := engine.Decide(snap.Temporal, snap.Domains, snap.Target, s.clk.Now(), snap.Zone)

	s.mu.Lock()
	s.latest = dec
	s.mu.Unlock()

	s.logger.Debug(map[string]any{
		"blocked": dec.Blocked,
		"reasons": len(dec.Reasons),
	}, "advisory eligibility re-evaluated")

	if s.onDecision != nil {
		s.onDecision(dec)
	}
}
