package domain

import (
	"fmt"
	"time"
)

// TemporalRule is the sealed union of the time-based no-send rule variants.
// Each variant carries only its own payload; there are no nullable sibling
// fields shared across kinds.
//
// MatchAt takes a local time (already shifted into the list's zone) and
// reports whether the rule blocks at that instant, plus the earliest local
// instant at which the rule may stop blocking. The candidate is a
// converging bound, not a scan: for recurring rules it points at the next
// natural re-check boundary and the caller re-evaluates there.
type TemporalRule interface {
	Meta() RuleMeta
	Kind() RuleKind
	Validate() error
	MatchAt(local time.Time) (matched bool, nextEligible time.Time)

	// Describe returns the rule's concrete boundary in human-readable form,
	// e.g. `no-send window 22:00:00 to 08:00:00`.
	Describe() string

	sealed()
}

// DayOfWeekRule blocks on a recurring set of weekdays.
type DayOfWeekRule struct {
	RuleMeta
	Days WeekdaySet
}

func (r DayOfWeekRule) Meta() RuleMeta { return r.RuleMeta }
func (r DayOfWeekRule) Kind() RuleKind { return KindDayOfWeek }
func (DayOfWeekRule) sealed()          {}

func (r DayOfWeekRule) Validate() error {
	if r.Days.IsEmpty() {
		return fmt.Errorf("day-of-week rule %q has no days", r.Name)
	}
	return nil
}

// MatchAt blocks when the local weekday is in the set. The candidate is
// midnight of the next calendar day: if several consecutive days are blocked
// the caller re-checks daily and converges without scanning forward.
func (r DayOfWeekRule) MatchAt(local time.Time) (bool, time.Time) {
	if !r.Days.Contains(local.Weekday()) {
		return false, time.Time{}
	}
	next := time.Date(local.Year(), local.Month(), local.Day()+1, 0, 0, 0, 0, local.Location())
	return true, next
}

func (r DayOfWeekRule) Describe() string {
	return fmt.Sprintf("no-send days %s", r.Days)
}

// TimeRangeRule blocks during a daily wall-clock window, inclusive at both
// ends. Start > End is not an error: it denotes a window wrapping past
// midnight, e.g. 22:00:00 to 06:00:00.
type TimeRangeRule struct {
	RuleMeta
	Start ClockTime
	End   ClockTime
}

func (r TimeRangeRule) Meta() RuleMeta { return r.RuleMeta }
func (r TimeRangeRule) Kind() RuleKind { return KindTimeRange }
func (TimeRangeRule) sealed()          {}

func (r TimeRangeRule) Validate() error {
	if err := r.Start.Validate(); err != nil {
		return fmt.Errorf("time-range rule %q: %w", r.Name, err)
	}
	if err := r.End.Validate(); err != nil {
		return fmt.Errorf("time-range rule %q: %w", r.Name, err)
	}
	return nil
}

func (r TimeRangeRule) MatchAt(local time.Time) (bool, time.Time) {
	t := local.Hour()*3600 + local.Minute()*60 + local.Second()
	s := r.Start.SecondOfDay()
	e := r.End.SecondOfDay()

	if s <= e {
		if t < s || t > e {
			return false, time.Time{}
		}
		candidate := r.End.On(local, 0)
		// Guards the window having already closed earlier this same second
		// (or the caller's clock being skewed past the end).
		if !candidate.After(local) {
			candidate = r.End.On(local, 1)
		}
		return true, candidate
	}

	// Wrapping window: blocked late evening through early morning.
	switch {
	case t <= e:
		// Morning half; the current window ends today.
		return true, r.End.On(local, 0)
	case t >= s:
		// Evening half; the current window ends tomorrow morning.
		return true, r.End.On(local, 1)
	default:
		return false, time.Time{}
	}
}

func (r TimeRangeRule) Describe() string {
	return fmt.Sprintf("no-send window %s to %s", r.Start, r.End)
}

// SpecificDateRule blocks on exactly one calendar date.
type SpecificDateRule struct {
	RuleMeta
	Date CivilDate
}

func (r SpecificDateRule) Meta() RuleMeta { return r.RuleMeta }
func (r SpecificDateRule) Kind() RuleKind { return KindSpecificDate }
func (SpecificDateRule) sealed()          {}

func (r SpecificDateRule) Validate() error {
	if err := r.Date.Validate(); err != nil {
		return fmt.Errorf("specific-date rule %q: %w", r.Name, err)
	}
	return nil
}

func (r SpecificDateRule) MatchAt(local time.Time) (bool, time.Time) {
	if CivilDateOf(local) != r.Date {
		return false, time.Time{}
	}
	return true, r.Date.Next().MidnightIn(local.Location())
}

func (r SpecificDateRule) Describe() string {
	return fmt.Sprintf("no-send date %s", r.Date)
}

// DateRangeRule blocks on an inclusive span of calendar dates.
type DateRangeRule struct {
	RuleMeta
	Start CivilDate
	End   CivilDate
}

func (r DateRangeRule) Meta() RuleMeta { return r.RuleMeta }
func (r DateRangeRule) Kind() RuleKind { return KindDateRange }
func (DateRangeRule) sealed()          {}

func (r DateRangeRule) Validate() error {
	if err := r.Start.Validate(); err != nil {
		return fmt.Errorf("date-range rule %q: %w", r.Name, err)
	}
	if err := r.End.Validate(); err != nil {
		return fmt.Errorf("date-range rule %q: %w", r.Name, err)
	}
	if r.Start.Compare(r.End) > 0 {
		return fmt.Errorf("date-range rule %q: start %s is after end %s", r.Name, r.Start, r.End)
	}
	return nil
}

func (r DateRangeRule) MatchAt(local time.Time) (bool, time.Time) {
	d := CivilDateOf(local)
	if r.Start.Compare(d) > 0 || d.Compare(r.End) > 0 {
		return false, time.Time{}
	}
	return true, r.End.Next().MidnightIn(local.Location())
}

func (r DateRangeRule) Describe() string {
	return fmt.Sprintf("no-send period %s to %s", r.Start, r.End)
}

// MalformedRule stands in for a rule whose payload could not be decoded at a
// loading boundary. The evaluator must never panic on bad data and a false
// "allowed" is the unsafe direction for a compliance gate, so a malformed
// rule always matches.
type MalformedRule struct {
	RuleMeta
	Reported RuleKind
	Err      error
}

func (r MalformedRule) Meta() RuleMeta { return r.RuleMeta }
func (r MalformedRule) Kind() RuleKind { return r.Reported }
func (MalformedRule) sealed()          {}

func (r MalformedRule) Validate() error {
	if r.Err != nil {
		return r.Err
	}
	return fmt.Errorf("rule %q is malformed", r.Name)
}

func (r MalformedRule) MatchAt(time.Time) (bool, time.Time) {
	return true, time.Time{}
}

func (r MalformedRule) Describe() string {
	return "rule could not be evaluated"
}
