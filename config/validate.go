package config

import (
	"fmt"
	"time"

	flooderrors "github.com/flowbed/floodcycle/errors"
	"github.com/flowbed/floodcycle/internal/adaptive"
	"github.com/flowbed/floodcycle/internal/environment"
	"github.com/flowbed/floodcycle/internal/scheduling"
	"github.com/flowbed/floodcycle/internal/timeparse"
	"github.com/flowbed/floodcycle/types"
)

// Normalized is the validated, strongly-typed configuration the rest of
// the system consumes — scheduling.NewScheduler's FactoryConfig plus
// the device and environment wiring the factory itself doesn't own.
type Normalized struct {
	Device  Device
	Factory scheduling.FactoryConfig
	Env     *EnvironmentSetup // nil unless schedule.adaptation.enabled
}

// EnvironmentSetup is the validated subset of schedule.adaptation
// needed to construct an internal/environment.Service.
type EnvironmentSetup struct {
	Postcode        string
	Timezone        string
	StationID       string
	Weather         environment.WeatherConfig
	AdaptiveEnabled bool
}

// Validate normalizes raw into a Normalized configuration, collecting
// every schema/bounds violation it finds rather than stopping at the
// first (spec.md §7: ConfigurationError is fatal at startup and carries
// the full violation list).
func Validate(raw Raw) (Normalized, error) {
	var violations []string
	addf := func(format string, args ...interface{}) {
		violations = append(violations, fmt.Sprintf(format, args...))
	}

	device, ok := findPrimaryDevice(raw)
	if !ok {
		addf("growing_system.primary_device_id %q does not match any devices.devices[].device_id", raw.GrowingSystem.PrimaryDeviceID)
	}
	if raw.GrowingSystem.Type != "flood_drain" && raw.GrowingSystem.Type != "nft" {
		addf("growing_system.type must be one of {flood_drain, nft}, got %q", raw.GrowingSystem.Type)
	}

	factory := scheduling.FactoryConfig{Type: toSchedulerType(raw.Schedule.Type)}

	switch raw.Schedule.Type {
	case ScheduleInterval:
		ic, errs := validateInterval(raw.Schedule)
		violations = append(violations, errs...)
		factory.Interval = ic

	case ScheduleTimeBased:
		tc, errs := validateTimeOfDay(raw.Schedule)
		violations = append(violations, errs...)
		factory.TimeOfDay = tc

	case ScheduleNFT:
		// Construction-time NotImplemented, not a configuration
		// violation: let the factory reject it (spec.md §7).

	default:
		addf("schedule.type must be one of {interval, time_based, nft}, got %q", raw.Schedule.Type)
	}

	var env *EnvironmentSetup
	if raw.Schedule.Adaptation.Enabled {
		var errs []string
		env, errs = validateAdaptation(raw.Schedule.Adaptation)
		violations = append(violations, errs...)

		factory.AdaptationEnabled = true
		factory.AdaptiveEnabled = raw.Schedule.Adaptation.Adaptive.Enabled
		if factory.AdaptiveEnabled && len(raw.Schedule.Cycles) > 0 {
			addf("schedule.cycles must not be set when schedule.adaptation.adaptive.enabled is true: the cycle list is synthesized, not literal")
		}
		if factory.AdaptiveEnabled {
			ac, errs := validateAdaptive(raw.Schedule.Adaptation)
			violations = append(violations, errs...)
			factory.Adaptive = ac
			factory.RefreshInterval = weatherRefreshInterval(raw.Schedule.Adaptation.Temperature.UpdateIntervalMinutes)
		}
	}

	if len(violations) > 0 {
		return Normalized{}, &flooderrors.ConfigurationError{Violations: violations}
	}
	return Normalized{Device: device, Factory: factory, Env: env}, nil
}

func findPrimaryDevice(raw Raw) (Device, bool) {
	for _, d := range raw.Devices.Devices {
		if d.DeviceID == raw.GrowingSystem.PrimaryDeviceID {
			return d, true
		}
	}
	return Device{}, false
}

func toSchedulerType(t ScheduleType) scheduling.ScheduleType {
	switch t {
	case ScheduleInterval:
		return scheduling.ScheduleInterval
	case ScheduleTimeBased:
		return scheduling.ScheduleTimeBased
	case ScheduleNFT:
		return scheduling.ScheduleNFT
	default:
		return scheduling.ScheduleType(t)
	}
}

func validateInterval(s Schedule) (scheduling.IntervalConfig, []string) {
	var errs []string
	ic := scheduling.IntervalConfig{
		FloodMinutes:    s.FloodMinutes,
		DrainMinutes:    s.DrainMinutes,
		IntervalMinutes: s.IntervalMinutes,
	}
	if s.FloodMinutes <= 0 {
		errs = append(errs, "schedule.flood_minutes must be positive")
	}
	if s.DrainMinutes < 0 {
		errs = append(errs, "schedule.drain_minutes must be non-negative")
	}
	if s.IntervalMinutes <= 0 {
		errs = append(errs, "schedule.interval_minutes must be positive")
	}
	if s.IntervalMinutes < s.FloodMinutes+s.DrainMinutes {
		errs = append(errs, "schedule.interval_minutes must be at least flood_minutes+drain_minutes")
	}
	if s.ActiveHours != nil {
		start, err := timeparse.ParseTimeOfDay(s.ActiveHours.Start)
		if err != nil {
			errs = append(errs, "schedule.active_hours.start: "+err.Error())
		}
		end, err := timeparse.ParseTimeOfDay(s.ActiveHours.End)
		if err != nil {
			errs = append(errs, "schedule.active_hours.end: "+err.Error())
		}
		if err == nil {
			ic.ActiveHours = &types.TimeRange{Start: start, End: end}
		}
	}
	return ic, errs
}

func validateTimeOfDay(s Schedule) (scheduling.TimeOfDayConfig, []string) {
	var errs []string
	tc := scheduling.TimeOfDayConfig{FloodMinutes: s.FloodMinutes}
	if s.FloodMinutes <= 0 {
		errs = append(errs, "schedule.flood_minutes must be positive")
	}
	if len(s.Cycles) == 0 && !(s.Adaptation.Enabled && s.Adaptation.Adaptive.Enabled) {
		errs = append(errs, "schedule.cycles must not be empty for schedule.type=time_based")
	}
	for i, c := range s.Cycles {
		onTime, err := timeparse.ParseTimeOfDay(c.OnTime)
		if err != nil {
			errs = append(errs, fmt.Sprintf("schedule.cycles[%d].on_time: %v", i, err))
			continue
		}
		tc.Cycles = append(tc.Cycles, scheduling.ConfiguredCycle{OnTime: onTime, OffMinutes: c.OffMinutes})
	}
	return tc, errs
}

func validateAdaptation(a AdaptationConfig) (*EnvironmentSetup, []string) {
	var errs []string
	if a.Location.Postcode == "" {
		errs = append(errs, "schedule.adaptation.location.postcode is required when adaptation is enabled")
	}
	if a.Location.Timezone == "" {
		errs = append(errs, "schedule.adaptation.location.timezone is required when adaptation is enabled")
	}
	stationID := a.Temperature.StationID
	if stationID == "" {
		stationID = "auto"
	}
	return &EnvironmentSetup{
		Postcode:  a.Location.Postcode,
		Timezone:  a.Location.Timezone,
		StationID: stationID,
		Weather: environment.WeatherConfig{
			FeedURL:               a.Temperature.Source,
			UpdateIntervalMinutes: a.Temperature.UpdateIntervalMinutes,
		},
		AdaptiveEnabled: a.Adaptive.Enabled,
	}, errs
}

func validateAdaptive(a AdaptationConfig) (adaptive.Config, []string) {
	var errs []string
	cfg := adaptive.Config{
		Constraints: adaptive.DefaultConstraints(),
	}

	if len(a.Adaptive.TODFrequencies) == 0 {
		cfg.TODFrequencies = adaptive.DefaultPeriodFrequencies()
	} else {
		cfg.TODFrequencies = adaptive.PeriodFrequencies{}
		for k, v := range a.Adaptive.TODFrequencies {
			p, err := parsePeriod(k)
			if err != nil {
				errs = append(errs, "schedule.adaptation.adaptive.tod_frequencies: "+err.Error())
				continue
			}
			cfg.TODFrequencies[p] = v
		}
	}

	if len(a.Adaptive.TemperatureBands) == 0 {
		cfg.TemperatureBands = adaptive.DefaultTemperatureBands()
	} else {
		cfg.TemperatureBands = toBands(a.Adaptive.TemperatureBands)
	}
	if len(a.Adaptive.HumidityBands) == 0 {
		cfg.HumidityBands = adaptive.DefaultHumidityBands()
	} else {
		cfg.HumidityBands = toBands(a.Adaptive.HumidityBands)
	}
	if !bandsCoverAllReals(cfg.TemperatureBands) {
		errs = append(errs, "schedule.adaptation.adaptive.temperature_bands must cover the full real line (spec.md §8 invariant 7)")
	}
	if !bandsCoverAllReals(cfg.HumidityBands) {
		errs = append(errs, "schedule.adaptation.adaptive.humidity_bands must cover the full real line (spec.md §8 invariant 7)")
	}

	if a.Daylight.PeriodFactors != nil {
		cfg.PeriodFactors = map[types.Period]float64{}
		for k, v := range a.Daylight.PeriodFactors {
			p, err := parsePeriod(k)
			if err != nil {
				errs = append(errs, "schedule.adaptation.daylight.period_factors: "+err.Error())
				continue
			}
			cfg.PeriodFactors[p] = v
		}
	}

	c := a.Adaptive.Constraints
	if c != (ConstraintsConfig{}) {
		cfg.Constraints = adaptive.Constraints{
			MinWait:      c.MinWait,
			MaxWait:      c.MaxWait,
			MinFlood:     c.MinFlood,
			MaxFlood:     c.MaxFlood,
			FloodMinutes: c.FloodMinutes,
		}
	}

	return cfg, errs
}

func toBands(in []BandConfig) []adaptive.Band {
	out := make([]adaptive.Band, len(in))
	for i, b := range in {
		out[i] = adaptive.Band{Min: b.Min, Max: b.Max, Factor: b.Factor}
	}
	return out
}

// bandsCoverAllReals is a coarse sanity check: at least one band must be
// unbounded below and at least one unbounded above. Gaps or overlaps
// between the bounded bands are not checked; the bands are assumed
// contiguous, as the default tables are.
func bandsCoverAllReals(bands []adaptive.Band) bool {
	if len(bands) == 0 {
		return false
	}
	hasLow, hasHigh := false, false
	for _, b := range bands {
		if b.Min == nil {
			hasLow = true
		}
		if b.Max == nil {
			hasHigh = true
		}
	}
	return hasLow && hasHigh
}

func parsePeriod(s string) (types.Period, error) {
	switch types.Period(s) {
	case types.PeriodMorning, types.PeriodDay, types.PeriodEvening, types.PeriodNight:
		return types.Period(s), nil
	default:
		return "", unknownPeriodError(s)
	}
}

type unknownPeriodError string

func (e unknownPeriodError) Error() string {
	return "unknown period " + string(e) + ", must be one of {morning, day, evening, night}"
}

// weatherRefreshInterval returns the cadence the adaptive re-synthesis
// loop should poll on, matching WeatherProvider's own
// update_interval_minutes default of 60m.
func weatherRefreshInterval(updateIntervalMinutes float64) time.Duration {
	if updateIntervalMinutes > 0 {
		return time.Duration(updateIntervalMinutes * float64(time.Minute))
	}
	return 60 * time.Minute
}
