// Package config loads and validates the on-disk configuration schema
// of spec.md §6, generalizing the teacher's NewAppRequest struct (a
// handful of flat fields) into a nested YAML document with its own
// validation pass, the way a multi-device, multi-strategy system needs.
package config

// Raw is the YAML-decoded configuration document, before validation
// and normalization. Field names mirror spec.md §6's table exactly.
type Raw struct {
	Devices       DevicesSection `yaml:"devices"`
	GrowingSystem GrowingSystem  `yaml:"growing_system"`
	Schedule      Schedule       `yaml:"schedule"`
}

type DevicesSection struct {
	Devices []Device `yaml:"devices"`
}

// Device describes one actuator. Credentials values may reference
// environment variables as "${VAR}"; Load interpolates them from the
// process environment (optionally loaded from a .env sidecar via
// godotenv) before YAML parsing.
type Device struct {
	DeviceID      string            `yaml:"device_id"`
	Name          string            `yaml:"name"`
	Brand         string            `yaml:"brand"`
	Type          string            `yaml:"type"`
	Address       string            `yaml:"address"`
	Credentials   map[string]string `yaml:"credentials"`
	AutoDiscovery bool              `yaml:"auto_discovery"`
}

type GrowingSystem struct {
	Type            string `yaml:"type"` // "flood_drain" or "nft"
	PrimaryDeviceID string `yaml:"primary_device_id"`
}

type Schedule struct {
	Type ScheduleType `yaml:"type"`

	// interval strategy (spec.md §4.2)
	FloodMinutes    float64            `yaml:"flood_minutes"`
	DrainMinutes    float64            `yaml:"drain_minutes"`
	IntervalMinutes float64            `yaml:"interval_minutes"`
	ActiveHours     *ActiveHoursConfig `yaml:"active_hours"`

	// time-of-day strategy (spec.md §4.3); flood_minutes shared above
	Cycles []CycleConfig `yaml:"cycles"`

	Adaptation AdaptationConfig `yaml:"adaptation"`
}

// ScheduleType mirrors internal/scheduling.ScheduleType's string
// values; kept distinct here so the config package has no dependency
// on internal/scheduling's construction types.
type ScheduleType string

const (
	ScheduleInterval  ScheduleType = "interval"
	ScheduleTimeBased ScheduleType = "time_based"
	ScheduleNFT       ScheduleType = "nft"
)

type ActiveHoursConfig struct {
	Start string `yaml:"start"`
	End   string `yaml:"end"`
}

type CycleConfig struct {
	OnTime     string  `yaml:"on_time"`
	OffMinutes float64 `yaml:"off_minutes"`
}

type AdaptationConfig struct {
	Enabled     bool              `yaml:"enabled"`
	Location    LocationConfig    `yaml:"location"`
	Temperature TemperatureConfig `yaml:"temperature"`
	Daylight    DaylightConfig    `yaml:"daylight"`
	Adaptive    AdaptiveConfig    `yaml:"adaptive"`
}

type LocationConfig struct {
	Postcode string `yaml:"postcode"`
	Timezone string `yaml:"timezone"`
}

type TemperatureConfig struct {
	Enabled               bool    `yaml:"enabled"`
	Source                string  `yaml:"source"` // feed URL, or "auto"
	StationID             string  `yaml:"station_id"`
	UpdateIntervalMinutes float64 `yaml:"update_interval_minutes"`
}

type DaylightConfig struct {
	Enabled       bool               `yaml:"enabled"`
	ShiftSchedule bool               `yaml:"shift_schedule"`
	PeriodFactors map[string]float64 `yaml:"period_factors"` // keyed by types.Period string value
}

type AdaptiveConfig struct {
	Enabled          bool               `yaml:"enabled"`
	TODFrequencies   map[string]float64 `yaml:"tod_frequencies"` // keyed by types.Period string value
	TemperatureBands []BandConfig       `yaml:"temperature_bands"`
	HumidityBands    []BandConfig       `yaml:"humidity_bands"`
	Constraints      ConstraintsConfig  `yaml:"constraints"`
}

type BandConfig struct {
	Min    *float64 `yaml:"min"`
	Max    *float64 `yaml:"max"`
	Factor float64  `yaml:"factor"`
}

type ConstraintsConfig struct {
	MinWait      float64 `yaml:"min_wait"`
	MaxWait      float64 `yaml:"max_wait"`
	MinFlood     float64 `yaml:"min_flood"`
	MaxFlood     float64 `yaml:"max_flood"`
	FloodMinutes float64 `yaml:"flood_minutes"`
}
