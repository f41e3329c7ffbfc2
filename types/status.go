package types

import "time"

// SchedulerState is one of the five machine states in spec.md §4.1.
// Idle and Waiting are equivalent; implementations may expose either
// (this module always reports Waiting).
type SchedulerState string

const (
	StateIdle    SchedulerState = "idle"
	StateFlood   SchedulerState = "flood"
	StateDrain   SchedulerState = "drain"
	StateWaiting SchedulerState = "waiting"
	StateStopped SchedulerState = "stopped"
)

// EnvironmentStatus is the environmental slice of a Status snapshot.
type EnvironmentStatus struct {
	TemperatureC      *float64
	HumidityPct       *float64
	StationID         *string
	StationName       *string
	Sunrise           *TimeOfDay
	Sunset            *TimeOfDay
	AdaptationEnabled bool
	AdaptiveEnabled   bool
}

// Status is a point-in-time snapshot of a running scheduler, safe to
// read concurrently with execution (spec.md §4.1, §5).
type Status struct {
	Running            bool
	State              SchedulerState
	NextEventTime      *time.Time
	TimeUntilNextCycle *time.Duration
	CurrentPeriod      *Period
	LastCycle          *Cycle
	Device             DeviceSnapshot
	Environment        EnvironmentStatus
}
