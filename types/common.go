// Package types holds the value types shared across the scheduling,
// device, and environment packages. None of these types carry behavior
// beyond simple formatting and comparison; the packages that consume them
// own all control flow.
package types

import "fmt"

// DurationString represents a duration, such as "2s" or "24h".
// See https://pkg.go.dev/time#ParseDuration for all valid time units.
type DurationString string

// TimeOfDay is a wall-clock time within a single day, with minute
// resolution (matching the HH:MM granularity used throughout the
// configuration schema).
type TimeOfDay struct {
	Hour   int // 0-23
	Minute int // 0-59
}

// String renders the time as zero-padded "HH:MM".
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// Minutes returns the time of day as minutes since midnight.
func (t TimeOfDay) Minutes() int {
	return t.Hour*60 + t.Minute
}

// Before reports whether t occurs earlier in the day than other.
func (t TimeOfDay) Before(other TimeOfDay) bool {
	return t.Minutes() < other.Minutes()
}

// Equal reports whether t and other denote the same minute of the day.
func (t TimeOfDay) Equal(other TimeOfDay) bool {
	return t.Minutes() == other.Minutes()
}

// AddMinutes returns the time of day shifted by the given number of
// minutes, wrapping past midnight.
func AddMinutes(t TimeOfDay, minutes float64) TimeOfDay {
	const minutesPerDay = 24 * 60
	total := t.Minutes() + int(minutes)
	total %= minutesPerDay
	if total < 0 {
		total += minutesPerDay
	}
	return TimeOfDay{Hour: total / 60, Minute: total % 60}
}

// TimeRange is a pair of wall-clock times, possibly wrapping past
// midnight when End is before Start.
type TimeRange struct {
	Start TimeOfDay
	End   TimeOfDay
}

// Contains reports whether t falls within the range, treating a range
// whose End is before its Start as wrapping past midnight.
func (r TimeRange) Contains(t TimeOfDay) bool {
	if r.Start.Minutes() <= r.End.Minutes() {
		return (!t.Before(r.Start) || t.Equal(r.Start)) && (t.Before(r.End) || t.Equal(r.End))
	}
	// wraps midnight
	return !t.Before(r.Start) || t.Before(r.End) || t.Equal(r.End)
}

// Period names the four adaptive daylight partitions of a day.
type Period string

const (
	PeriodMorning Period = "morning"
	PeriodDay     Period = "day"
	PeriodEvening Period = "evening"
	PeriodNight   Period = "night"
)

// Item is a priority queue entry, matching the shape used by
// github.com/Workiva/go-datastructures/queue.PriorityQueue: lower
// Priority values are popped first. Packages that push Items onto a
// queue.PriorityQueue wrap this type with a Compare method (see
// internal/scheduling/eventqueue.go), the same way app.go wraps
// types.Item for the daily-schedule and interval queues.
type Item struct {
	Value    interface{}
	Priority float64
}
