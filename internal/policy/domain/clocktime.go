package domain

import (
	"fmt"
	"time"
)

// ClockTime is a local wall-clock time of day with second precision.
type ClockTime struct {
	Hour   int
	Minute int
	Second int
}

// ParseClockTime parses "HH:MM:SS" (24h).
func ParseClockTime(s string) (ClockTime, error) {
	t, err := time.Parse("15:04:05", s)
	if err != nil {
		return ClockTime{}, fmt.Errorf("invalid time of day %q: %w", s, err)
	}
	return ClockTime{Hour: t.Hour(), Minute: t.Minute(), Second: t.Second()}, nil
}

// Validate checks field ranges.
func (t ClockTime) Validate() error {
	if t.Hour < 0 || t.Hour > 23 || t.Minute < 0 || t.Minute > 59 || t.Second < 0 || t.Second > 59 {
		return fmt.Errorf("time of day out of range: %s", t)
	}
	return nil
}

// SecondOfDay returns seconds elapsed since local midnight.
func (t ClockTime) SecondOfDay() int {
	return t.Hour*3600 + t.Minute*60 + t.Second
}

// On materializes the clock time on ref's calendar date in ref's location,
// shifted by dayOffset days.
func (t ClockTime) On(ref time.Time, dayOffset int) time.Time {
	return time.Date(ref.Year(), ref.Month(), ref.Day()+dayOffset,
		t.Hour, t.Minute, t.Second, 0, ref.Location())
}

// String renders "HH:MM:SS".
func (t ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", t.Hour, t.Minute, t.Second)
}
