package domain

import (
	"fmt"
	"strings"
	"time"
)

// WeekdaySet is a bitmask of ISO 8601 weekdays (1=Mon .. 7=Sun).
// The zero value is the empty set.
type WeekdaySet uint8

var isoNames = [8]string{"", "mon", "tue", "wed", "thu", "fri", "sat", "sun"}

// NewWeekdaySet builds a set from ISO day numbers. Out-of-range numbers are
// rejected.
func NewWeekdaySet(isoDays ...int) (WeekdaySet, error) {
	var s WeekdaySet
	for _, d := range isoDays {
		if d < 1 || d > 7 {
			return 0, fmt.Errorf("iso weekday out of range: %d", d)
		}
		s |= 1 << (d - 1)
	}
	return s, nil
}

// ISOWeekday converts a time.Weekday (Sunday=0) to ISO numbering (Mon=1..Sun=7).
func ISOWeekday(d time.Weekday) int {
	if d == time.Sunday {
		return 7
	}
	return int(d)
}

// Contains reports whether the set includes the given weekday.
func (s WeekdaySet) Contains(d time.Weekday) bool {
	return s&(1<<(ISOWeekday(d)-1)) != 0
}

// IsEmpty reports whether no day is set.
func (s WeekdaySet) IsEmpty() bool { return s == 0 }

// ISODays lists the set's days in ascending ISO order.
func (s WeekdaySet) ISODays() []int {
	days := make([]int, 0, 7)
	for d := 1; d <= 7; d++ {
		if s&(1<<(d-1)) != 0 {
			days = append(days, d)
		}
	}
	return days
}

// String renders the set as a comma-joined day list, e.g. "sat,sun".
func (s WeekdaySet) String() string {
	names := make([]string, 0, 7)
	for _, d := range s.ISODays() {
		names = append(names, isoNames[d])
	}
	return strings.Join(names, ",")
}
