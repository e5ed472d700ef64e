package domain

import (
	"fmt"
	"strings"
)

// DomainRule blocks submissions to a recipient organization's domain.
//
// Pattern is stored in canonical form (lowercase, no surrounding junk, no
// stripped-away "www." label); normalization happens at the rule-management
// boundary, not here. A wildcard pattern is exactly "*." followed by the
// base labels and matches strict subdomains of the base at any depth, never
// the base itself.
type DomainRule struct {
	RuleMeta
	Pattern  string
	Wildcard bool
	Memo     string
}

// NewDomainRule constructs a DomainRule from an already-normalized pattern
// and validates its shape.
func NewDomainRule(meta RuleMeta, pattern string, wildcard bool, memo string) (DomainRule, error) {
	r := DomainRule{
		RuleMeta: meta,
		Pattern:  strings.TrimSpace(pattern),
		Wildcard: wildcard,
		Memo:     memo,
	}
	if err := r.Validate(); err != nil {
		return DomainRule{}, err
	}
	return r, nil
}

// Validate checks the structural invariants of the stored pattern.
func (r DomainRule) Validate() error {
	if r.Pattern == "" {
		return fmt.Errorf("domain rule %q has an empty pattern", r.Name)
	}
	if r.Pattern != strings.ToLower(r.Pattern) {
		return fmt.Errorf("domain rule %q pattern is not lowercase: %q", r.Name, r.Pattern)
	}
	hasPrefix := strings.HasPrefix(r.Pattern, "*.")
	if r.Wildcard != hasPrefix {
		return fmt.Errorf("domain rule %q wildcard flag does not match pattern %q", r.Name, r.Pattern)
	}
	rest := strings.TrimPrefix(r.Pattern, "*.")
	if rest == "" || strings.Contains(rest, "*") {
		return fmt.Errorf("domain rule %q has an invalid wildcard pattern %q", r.Name, r.Pattern)
	}
	return nil
}

// Base returns the label sequence a wildcard rule anchors on. For exact
// rules it is the pattern itself.
func (r DomainRule) Base() string {
	return strings.TrimPrefix(r.Pattern, "*.")
}

// Matches tests an already-normalized target domain against the rule.
func (r DomainRule) Matches(target string) bool {
	if !r.Wildcard {
		return target == r.Pattern
	}
	base := r.Base()
	return target != base && strings.HasSuffix(target, "."+base)
}
