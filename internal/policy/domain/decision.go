package domain

import (
	"time"

	"github.com/google/uuid"
)

// Reason identifies one rule that contributed to a blocked decision.
type Reason struct {
	RuleID   uuid.UUID
	RuleName string
	Kind     RuleKind
	Text     string // rule boundary in human-readable form
}

// Decision is the aggregated outcome of evaluating a rule snapshot at one
// instant. It is a fresh value on every evaluation and never mutated.
//
// NextEligibleAt is only meaningful for temporal blocks: a domain block has
// no reopening time, it holds until the rule is removed. The zero time means
// no temporal bound applies.
type Decision struct {
	Blocked        bool
	Reasons        []Reason
	NextEligibleAt time.Time
}

// Allowed returns an unblocked decision.
func Allowed() Decision { return Decision{} }

// HasNextEligible reports whether a temporal reopening bound is known.
func (d Decision) HasNextEligible() bool { return !d.NextEligibleAt.IsZero() }

// MatchResult is the outcome of testing a target against the domain
// blocklist. Invalid marks a target that failed normalization; matching
// fails closed in that case, so Matched is also true.
type MatchResult struct {
	Matched bool
	Rule    *DomainRule
	Invalid bool
}

// EmptyMatch returns a no-match result.
func EmptyMatch() MatchResult { return MatchResult{} }

// InvalidTargetMatch returns the fail-closed result for an unparseable target.
func InvalidTargetMatch() MatchResult { return MatchResult{Matched: true, Invalid: true} }
