// Package adaptive implements the synthesizer of spec.md §4.6: a pure
// function from (configuration, daylight, environmental sample) to a
// SchedulePlan, with no dependence on any previously-installed plan.
package adaptive

import "github.com/flowbed/floodcycle/types"

// Band is one partition of a temperature or humidity band list. Min is
// inclusive, Max is exclusive; a nil Min/Max means the band is
// unbounded on that side.
type Band struct {
	Min    *float64
	Max    *float64
	Factor float64
}

// contains reports whether v falls in [Min, Max).
func (b Band) contains(v float64) bool {
	if b.Min != nil && v < *b.Min {
		return false
	}
	if b.Max != nil && v >= *b.Max {
		return false
	}
	return true
}

// Factor returns the multiplier for v, or 1.0 if v is nil (unknown
// reading), per spec.md §4.6. If no band covers v it also returns 1.0;
// band coverage is checked at configuration time (see Validate in the
// config package), per spec.md §8 invariant 7.
func Factor(bands []Band, v *float64) float64 {
	if v == nil {
		return 1.0
	}
	for _, b := range bands {
		if b.contains(*v) {
			return b.Factor
		}
	}
	// Defensive fallback for a caller that skipped validation: treat an
	// uncovered input as neutral rather than synthesizing garbage.
	return 1.0
}

// DefaultTemperatureBands matches spec.md §4.6's defaults.
func DefaultTemperatureBands() []Band {
	f15, f25, f30 := 15.0, 25.0, 30.0
	return []Band{
		{Max: &f15, Factor: 1.15},        // cold, <15C
		{Min: &f15, Max: &f25, Factor: 1.0}, // normal, 15-25C
		{Min: &f25, Max: &f30, Factor: 0.85}, // warm, 25-30C
		{Min: &f30, Factor: 0.70},         // hot, >30C
	}
}

// DefaultHumidityBands matches spec.md §4.6's defaults.
func DefaultHumidityBands() []Band {
	f40, f70 := 40.0, 70.0
	return []Band{
		{Max: &f40, Factor: 0.9},
		{Min: &f40, Max: &f70, Factor: 1.0},
		{Min: &f70, Factor: 1.1},
	}
}

// PeriodFrequencies gives the base off-duration (minutes) per daylight
// period, before temperature/humidity/daylight factors are applied.
type PeriodFrequencies map[types.Period]float64

// DefaultPeriodFrequencies matches spec.md §4.6's example.
func DefaultPeriodFrequencies() PeriodFrequencies {
	return PeriodFrequencies{
		types.PeriodMorning: 18,
		types.PeriodDay:     28,
		types.PeriodEvening: 18,
		types.PeriodNight:   118,
	}
}

// Constraints bounds the synthesized plan's flood/off durations, per
// spec.md §4.3's clamp table generalized to the adaptive synthesizer's
// own constraint block (spec.md §4.6).
type Constraints struct {
	MinWait     float64
	MaxWait     float64
	MinFlood    float64
	MaxFlood    float64
	FloodMinutes float64
}

// DefaultConstraints matches the time-of-day bounds table of spec.md
// §4.3, which the adaptive synthesizer reuses as its own defaults.
func DefaultConstraints() Constraints {
	return Constraints{
		MinWait:      5,
		MaxWait:      180,
		MinFlood:     2,
		MaxFlood:     15,
		FloodMinutes: 2,
	}
}

// Config is the full input to Synthesize beyond (daylight, sample).
type Config struct {
	TODFrequencies    PeriodFrequencies
	TemperatureBands  []Band
	HumidityBands     []Band
	PeriodFactors     map[types.Period]float64 // optional, from daylight adaptor; 1.0 if absent
	Constraints       Constraints
}
