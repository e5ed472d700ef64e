// Package domain contains the pure value types of the send-eligibility
// engine: rule variants, their matching arithmetic, and the Decision output.
// Nothing here performs I/O or reads the wall clock; callers inject time.
package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// RuleKind identifies the variant of a no-send rule.
type RuleKind uint8

const (
	// KindDayOfWeek blocks on a recurring set of ISO weekdays.
	KindDayOfWeek RuleKind = iota
	// KindTimeRange blocks during a daily wall-clock window, possibly
	// wrapping past midnight.
	KindTimeRange
	// KindSpecificDate blocks on a single calendar date.
	KindSpecificDate
	// KindDateRange blocks on an inclusive calendar-date span.
	KindDateRange
	// KindDomainBlock blocks submissions to a recipient domain pattern.
	KindDomainBlock
)

// String returns a stable string representation of the rule kind.
func (k RuleKind) String() string {
	switch k {
	case KindDayOfWeek:
		return "day_of_week"
	case KindTimeRange:
		return "time_range"
	case KindSpecificDate:
		return "specific_date"
	case KindDateRange:
		return "date_range"
	case KindDomainBlock:
		return "domain_block"
	default:
		return fmt.Sprintf("RuleKind(%d)", k)
	}
}

// ParseRuleKind converts a string into a RuleKind. Accepts the String()
// values, case-insensitive.
func ParseRuleKind(s string) (RuleKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "day_of_week":
		return KindDayOfWeek, nil
	case "time_range":
		return KindTimeRange, nil
	case "specific_date":
		return KindSpecificDate, nil
	case "date_range":
		return KindDateRange, nil
	case "domain_block":
		return KindDomainBlock, nil
	default:
		return 0, fmt.Errorf("unsupported RuleKind: %q", s)
	}
}

// RuleMeta carries the fields shared by every rule variant.
type RuleMeta struct {
	ID        uuid.UUID
	Name      string
	Enabled   bool
	DeletedAt *time.Time // soft delete; non-nil rules are never evaluated
}

// Active reports whether the rule participates in evaluation. Inactive rules
// are filtered once, at the boundary where a snapshot is loaded, never inside
// the evaluator.
func (m RuleMeta) Active() bool {
	return m.Enabled && m.DeletedAt == nil
}

// ActiveTemporal returns the subset of rules that are enabled and not
// soft-deleted, preserving input order.
func ActiveTemporal(rules []TemporalRule) []TemporalRule {
	out := make([]TemporalRule, 0, len(rules))
	for _, r := range rules {
		if r.Meta().Active() {
			out = append(out, r)
		}
	}
	return out
}

// ActiveDomainRules returns the subset of domain rules that are enabled and
// not soft-deleted, preserving input order.
func ActiveDomainRules(rules []DomainRule) []DomainRule {
	out := make([]DomainRule, 0, len(rules))
	for _, r := range rules {
		if r.Active() {
			out = append(out, r)
		}
	}
	return out
}
