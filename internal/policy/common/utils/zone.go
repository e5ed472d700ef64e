package utils

import "time"

// LocationOrUTC resolves an IANA zone name for rule evaluation. Empty or
// unresolvable names degrade to UTC so a bad zone setting cannot block a
// list's sends forever, and so evaluation never falls back to the ambient
// process zone.
func LocationOrUTC(zone string) *time.Location {
	if zone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return time.UTC
	}
	return loc
}
