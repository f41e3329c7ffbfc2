package scheduling

import (
	"log/slog"
	"time"

	flooderrors "github.com/flowbed/floodcycle/errors"
	"github.com/flowbed/floodcycle/internal/adaptive"
	"github.com/flowbed/floodcycle/internal/clock"
	"github.com/flowbed/floodcycle/internal/device"
	"github.com/flowbed/floodcycle/internal/environment"
)

// ScheduleType enumerates the configuration schema's schedule.type
// values (spec.md §6).
type ScheduleType string

const (
	ScheduleInterval  ScheduleType = "interval"
	ScheduleTimeBased ScheduleType = "time_based"
	ScheduleNFT       ScheduleType = "nft"
)

// FactoryConfig is the validated configuration the factory dispatches
// on, mirroring the recognized-options table of spec.md §6.
type FactoryConfig struct {
	Type ScheduleType

	Interval IntervalConfig

	TimeOfDay TimeOfDayConfig

	AdaptationEnabled bool
	AdaptiveEnabled   bool
	Adaptive          adaptive.Config
	RefreshInterval   time.Duration
}

// NewScheduler selects and constructs a strategy from validated
// configuration, per spec.md §4.7. It never partially constructs a
// scheduler: any construction failure is returned before any goroutine
// starts.
func NewScheduler(cfg FactoryConfig, env *environment.Service, ctrl device.Controller, clk clock.Clock, log *slog.Logger) (Scheduler, error) {
	switch cfg.Type {
	case ScheduleInterval:
		return NewIntervalScheduler(cfg.Interval, ctrl, clk, log)

	case ScheduleTimeBased:
		if cfg.AdaptationEnabled && cfg.AdaptiveEnabled {
			return NewAdaptiveScheduler(cfg.Adaptive, env, cfg.RefreshInterval, ctrl, clk, log)
		}
		return NewTimeOfDayScheduler(cfg.TimeOfDay, ctrl, clk, log)

	case ScheduleNFT:
		return nil, flooderrors.NotImplemented

	default:
		return nil, &flooderrors.ConfigurationError{Violations: []string{"schedule.type: unrecognized value " + string(cfg.Type)}}
	}
}
