// Package engine implements the send-eligibility decision functions. All
// three entry points are pure: given the same rules, target, and instant
// they return the same Decision, with no shared state and no side effects.
//
// Callers pass rule snapshots that were already filtered for enabled,
// non-deleted rules at the loading boundary. Both the advisory UI path and
// the authoritative server write path call the same functions; only the
// clock and the snapshot differ.
package engine

import (
	"fmt"
	"time"

	"github.com/fieldreach/sendgate/internal/policy/common/utils"
	"github.com/fieldreach/sendgate/internal/policy/domain"
)

// EvaluateTemporal tests an instant against the temporal no-send rules.
// now is shifted into loc before matching; a nil loc means UTC, never the
// ambient process zone, so client and server decisions cannot drift apart.
//
// The decision's NextEligibleAt is the minimum candidate across matched
// rules. A structurally present but malformed rule blocks (fail closed)
// instead of being skipped: a false "allowed" is the unsafe direction.
func EvaluateTemporal(rules []domain.TemporalRule, now time.Time, loc *time.Location) domain.Decision {
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)

	var dec domain.Decision
	var next time.Time
	for _, r := range rules {
		if err := r.Validate(); err != nil {
			dec.Blocked = true
			dec.Reasons = append(dec.Reasons, domain.Reason{
				RuleID:   r.Meta().ID,
				RuleName: r.Meta().Name,
				Kind:     r.Kind(),
				Text:     "rule could not be evaluated",
			})
			continue
		}
		matched, candidate := r.MatchAt(local)
		if !matched {
			continue
		}
		dec.Blocked = true
		dec.Reasons = append(dec.Reasons, domain.Reason{
			RuleID:   r.Meta().ID,
			RuleName: r.Meta().Name,
			Kind:     r.Kind(),
			Text:     r.Describe(),
		})
		if !candidate.IsZero() && (next.IsZero() || candidate.Before(next)) {
			next = candidate
		}
	}
	dec.NextEligibleAt = next
	return dec
}

// MatchDomain tests a recipient target against the domain blocklist in
// stable input order; the first match wins. A target that fails
// normalization is reported as matched with Invalid set: blocked, never
// silently allowed.
func MatchDomain(rules []domain.DomainRule, target string) domain.MatchResult {
	normalized, err := utils.NormalizeTarget(target)
	if err != nil {
		return domain.InvalidTargetMatch()
	}
	for i := range rules {
		if rules[i].Matches(normalized) {
			return domain.MatchResult{Matched: true, Rule: &rules[i]}
		}
	}
	return domain.EmptyMatch()
}

// Decide composes both rule families into one Decision. The domain side is
// only consulted when a target is supplied. NextEligibleAt comes from the
// temporal side alone: a domain block has no reopening time, it holds until
// the rule is removed.
func Decide(temporal []domain.TemporalRule, domains []domain.DomainRule, target string, now time.Time, loc *time.Location) domain.Decision {
	dec := EvaluateTemporal(temporal, now, loc)
	if target == "" {
		return dec
	}
	return Compose(dec, MatchDomain(domains, target))
}

// Compose merges a domain-match outcome into a temporal decision. Callers
// that resolve the match through a caching repository use this instead of
// Decide.
func Compose(dec domain.Decision, m domain.MatchResult) domain.Decision {
	switch {
	case m.Invalid:
		dec.Blocked = true
		dec.Reasons = append(dec.Reasons, domain.Reason{
			Kind: domain.KindDomainBlock,
			Text: "recipient target is not a valid domain",
		})
	case m.Matched:
		dec.Blocked = true
		dec.Reasons = append(dec.Reasons, domain.Reason{
			RuleID:   m.Rule.ID,
			RuleName: m.Rule.Name,
			Kind:     domain.KindDomainBlock,
			Text:     fmt.Sprintf("recipient domain matches blocked pattern %s", m.Rule.Pattern),
		})
	}
	return dec
}
