package snapshot

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/fieldreach/sendgate/internal/policy/domain"
)

// StoredRule is the persisted wire form of a rule. Kind tags which payload
// fields are meaningful; this flat shape exists only at the storage
// boundary and decoding immediately produces the typed rule variants.
type StoredRule struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Kind      string     `json:"kind"`
	Enabled   bool       `json:"enabled"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`

	Days     []int  `json:"days,omitempty"`
	Start    string `json:"start,omitempty"`
	End      string `json:"end,omitempty"`
	Date     string `json:"date,omitempty"`
	Pattern  string `json:"pattern,omitempty"`
	Wildcard bool   `json:"wildcard,omitempty"`
	Memo     string `json:"memo,omitempty"`
}

// storedSnapshot is the persisted per-list value.
type storedSnapshot struct {
	Zone      string       `json:"zone,omitempty"`
	UpdatedAt time.Time    `json:"updated_at"`
	Rules     []StoredRule `json:"rules"`
}

// RuleSnapshot is a decoded per-list rule set plus its zone, ready for the
// engine.
type RuleSnapshot struct {
	Temporal  []domain.TemporalRule
	Domains   []domain.DomainRule
	Zone      string
	UpdatedAt time.Time
}

// EncodeTemporal converts a rule variant to its wire form.
func EncodeTemporal(r domain.TemporalRule) StoredRule {
	m := r.Meta()
	out := StoredRule{
		ID:        m.ID.String(),
		Name:      m.Name,
		Kind:      r.Kind().String(),
		Enabled:   m.Enabled,
		DeletedAt: m.DeletedAt,
	}
	switch v := r.(type) {
	case domain.DayOfWeekRule:
		out.Days = v.Days.ISODays()
	case domain.TimeRangeRule:
		out.Start = v.Start.String()
		out.End = v.End.String()
	case domain.SpecificDateRule:
		out.Date = v.Date.String()
	case domain.DateRangeRule:
		out.Start = v.Start.String()
		out.End = v.End.String()
	}
	return out
}

// EncodeDomainRule converts a domain-blocklist rule to its wire form.
func EncodeDomainRule(r domain.DomainRule) StoredRule {
	return StoredRule{
		ID:        r.ID.String(),
		Name:      r.Name,
		Kind:      domain.KindDomainBlock.String(),
		Enabled:   r.Enabled,
		DeletedAt: r.DeletedAt,
		Pattern:   r.Pattern,
		Wildcard:  r.Wildcard,
		Memo:      r.Memo,
	}
}

// DecodeTemporal converts a wire rule back to its variant. A rule whose
// payload fails to parse decodes to a MalformedRule: the engine then fails
// closed on it instead of this layer silently dropping a restriction.
func DecodeTemporal(sr StoredRule) (domain.TemporalRule, error) {
	kind, err := domain.ParseRuleKind(sr.Kind)
	if err != nil {
		return nil, err
	}
	if kind == domain.KindDomainBlock {
		return nil, fmt.Errorf("rule %q is not a temporal rule", sr.Name)
	}
	meta, err := decodeMeta(sr)
	if err != nil {
		return nil, err
	}

	malformed := func(cause error) domain.TemporalRule {
		return domain.MalformedRule{RuleMeta: meta, Reported: kind, Err: cause}
	}

	switch kind {
	case domain.KindDayOfWeek:
		days, err := domain.NewWeekdaySet(sr.Days...)
		if err != nil || days.IsEmpty() {
			return malformed(fmt.Errorf("invalid weekday set %v", sr.Days)), nil
		}
		return domain.DayOfWeekRule{RuleMeta: meta, Days: days}, nil
	case domain.KindTimeRange:
		start, err := domain.ParseClockTime(sr.Start)
		if err != nil {
			return malformed(err), nil
		}
		end, err := domain.ParseClockTime(sr.End)
		if err != nil {
			return malformed(err), nil
		}
		return domain.TimeRangeRule{RuleMeta: meta, Start: start, End: end}, nil
	case domain.KindSpecificDate:
		date, err := domain.ParseCivilDate(sr.Date)
		if err != nil {
			return malformed(err), nil
		}
		return domain.SpecificDateRule{RuleMeta: meta, Date: date}, nil
	default: // domain.KindDateRange
		start, err := domain.ParseCivilDate(sr.Start)
		if err != nil {
			return malformed(err), nil
		}
		end, err := domain.ParseCivilDate(sr.End)
		if err != nil {
			return malformed(err), nil
		}
		return domain.DateRangeRule{RuleMeta: meta, Start: start, End: end}, nil
	}
}

// DecodeDomainRule converts a wire rule back to a DomainRule. Patterns are
// validated on the way in; a pattern this layer cannot trust is an error,
// not a silently narrowed rule.
func DecodeDomainRule(sr StoredRule) (domain.DomainRule, error) {
	kind, err := domain.ParseRuleKind(sr.Kind)
	if err != nil {
		return domain.DomainRule{}, err
	}
	if kind != domain.KindDomainBlock {
		return domain.DomainRule{}, fmt.Errorf("rule %q is not a domain rule", sr.Name)
	}
	meta, err := decodeMeta(sr)
	if err != nil {
		return domain.DomainRule{}, err
	}
	return domain.NewDomainRule(meta, sr.Pattern, sr.Wildcard, sr.Memo)
}

func decodeMeta(sr StoredRule) (domain.RuleMeta, error) {
	id, err := uuid.Parse(sr.ID)
	if err != nil {
		return domain.RuleMeta{}, fmt.Errorf("rule %q has invalid id: %w", sr.Name, err)
	}
	return domain.RuleMeta{
		ID:        id,
		Name:      sr.Name,
		Enabled:   sr.Enabled,
		DeletedAt: sr.DeletedAt,
	}, nil
}

func encodeSnapshot(snap RuleSnapshot) storedSnapshot {
	out := storedSnapshot{Zone: snap.Zone, UpdatedAt: snap.UpdatedAt}
	for _, r := range snap.Temporal {
		out.Rules = append(out.Rules, EncodeTemporal(r))
	}
	for _, r := range snap.Domains {
		out.Rules = append(out.Rules, EncodeDomainRule(r))
	}
	return out
}

func decodeSnapshot(stored storedSnapshot) (RuleSnapshot, error) {
	out := RuleSnapshot{Zone: stored.Zone, UpdatedAt: stored.UpdatedAt}
	for _, sr := range stored.Rules {
		kind, err := domain.ParseRuleKind(sr.Kind)
		if err != nil {
			return RuleSnapshot{}, err
		}
		if kind == domain.KindDomainBlock {
			dr, err := DecodeDomainRule(sr)
			if err != nil {
				return RuleSnapshot{}, err
			}
			out.Domains = append(out.Domains, dr)
			continue
		}
		tr, err := DecodeTemporal(sr)
		if err != nil {
			return RuleSnapshot{}, err
		}
		out.Temporal = append(out.Temporal, tr)
	}
	return out, nil
}
