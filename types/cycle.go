package types

import "sort"

// Cycle is a single flood event: ON for FloodMinutes starting at OnTime,
// then OFF for OffMinutes before the next cycle is due.
//
// The Annotations carried on adaptive cycles are purely informational:
// per spec.md §3, the execution loop must never branch on them.
type Cycle struct {
	OnTime       TimeOfDay
	FloodMinutes float64
	OffMinutes   float64

	Annotations *CycleAnnotations
}

// CycleAnnotations records why the adaptive synthesizer chose this
// cycle's duration. Nil for interval cycles; literal time-of-day cycles
// carry only the Deviation flag.
type CycleAnnotations struct {
	Period         Period
	TemperatureC   *float64
	HumidityPct    *float64
	TempFactor     float64
	HumidityFactor float64
	// Deviation is set by the time-of-day scheduler when a configured
	// cycle's flood or off minutes were clamped into bounds; it is never
	// populated by synthesis or by internal/adaptive.Validate.
	Deviation bool
}

// SchedulePlan is an ordered, immutable list of cycles for a single local
// day. Construct with NewSchedulePlan, which sorts and validates
// uniqueness of on-times.
type SchedulePlan struct {
	cycles []Cycle
}

// NewSchedulePlan sorts cycles by OnTime and rejects duplicate on-times,
// per the SchedulePlan invariant in spec.md §3.
func NewSchedulePlan(cycles []Cycle) (SchedulePlan, error) {
	sorted := make([]Cycle, len(cycles))
	copy(sorted, cycles)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].OnTime.Before(sorted[j].OnTime)
	})

	for i := 1; i < len(sorted); i++ {
		if sorted[i].OnTime.Equal(sorted[i-1].OnTime) {
			return SchedulePlan{}, &DuplicateOnTimeError{OnTime: sorted[i].OnTime}
		}
	}

	return SchedulePlan{cycles: sorted}, nil
}

// Cycles returns the plan's cycles in on-time order. The returned slice
// is a copy; mutating it does not affect the plan.
func (p SchedulePlan) Cycles() []Cycle {
	out := make([]Cycle, len(p.cycles))
	copy(out, p.cycles)
	return out
}

// Len reports the number of cycles in the plan.
func (p SchedulePlan) Len() int {
	return len(p.cycles)
}

// Empty reports whether the plan has no cycles.
func (p SchedulePlan) Empty() bool {
	return len(p.cycles) == 0
}

// DuplicateOnTimeError is returned by NewSchedulePlan when two cycles
// share an on-time.
type DuplicateOnTimeError struct {
	OnTime TimeOfDay
}

func (e *DuplicateOnTimeError) Error() string {
	return "duplicate on_time in schedule plan: " + e.OnTime.String()
}
