package types

import "time"

// EnvironmentalSample is a single outdoor-weather observation. Nil
// fields indicate the value is currently unknown (never fetched, or
// stale past the staleness budget in spec.md §4.5).
type EnvironmentalSample struct {
	TemperatureC *float64
	HumidityPct  *float64
	SampleTime   time.Time
	StationID    *string
	StationName  *string
}

// Unknown reports whether neither temperature nor humidity is known.
// The adaptive synthesizer treats this the same as a sample with both
// factors forced to 1.0 (spec.md §8, invariant 6).
func (s EnvironmentalSample) Unknown() bool {
	return s.TemperatureC == nil && s.HumidityPct == nil
}

// DaylightInfo is the sunrise/sunset/day-length result for one local
// date at one location.
type DaylightInfo struct {
	Date             time.Time // local midnight of the date in question
	Sunrise          TimeOfDay
	Sunset           TimeOfDay
	DayLengthMinutes float64
}

// Station is a named weather station used for "auto" station
// resolution (nearest-station lookup by great-circle distance).
type Station struct {
	ID        string
	Name      string
	Latitude  float64
	Longitude float64
}
