// Package timeparse parses and formats the HH:MM time-of-day strings
// used throughout the configuration schema, generalizing the teacher's
// internal.ParseTime (which parsed directly into a carbon.Carbon pinned
// to "today") into a pure types.TimeOfDay value with no date component.
package timeparse

import (
	"fmt"
	"time"

	"github.com/flowbed/floodcycle/types"
)

// ParseTimeOfDay parses a "HH:MM" string (24-hour, accepting a leading
// zero or not) into a types.TimeOfDay.
func ParseTimeOfDay(s string) (types.TimeOfDay, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return types.TimeOfDay{}, fmt.Errorf("failed to parse time string %q; format must be HH:MM: %w", s, err)
	}
	return types.TimeOfDay{Hour: t.Hour(), Minute: t.Minute()}, nil
}

// Format renders a TimeOfDay back to "HH:MM". Combined with
// ParseTimeOfDay this satisfies spec.md §8 invariant 8:
// format(parse(s)) == normalize(s) for every valid HH:MM.
func Format(t types.TimeOfDay) string {
	return t.String()
}

// ParseDuration parses a duration string such as "2h30m", matching the
// teacher's internal.ParseDuration but returning an error instead of
// panicking: the core never panics on configuration input (spec.md §7,
// configuration errors are collected, not fatal-by-panic).
func ParseDuration(s string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("couldn't parse duration %q: %w", s, err)
	}
	return d, nil
}

// Clamp restricts v to [min, max].
func Clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
