package scheduling

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dromara/carbon/v2"

	"github.com/flowbed/floodcycle/internal/clock"
	"github.com/flowbed/floodcycle/internal/device"
	"github.com/flowbed/floodcycle/types"
)

// IntervalConfig is the configuration of spec.md §4.2.
type IntervalConfig struct {
	FloodMinutes    float64
	DrainMinutes    float64
	IntervalMinutes float64
	ActiveHours     *types.TimeRange // optional
}

// IntervalScheduler implements the fixed-interval strategy of spec.md
// §4.2 on top of the shared engine. Unlike the alternating-segment
// IntervalTrigger of interval.go (which always fires strictly after its
// epoch), S1 requires the very first ON at the reference instant itself
// ("Timeline observed from t0=00:00:00: ON at 00:00:00..."), so the
// cadence here is computed directly rather than through that trigger.
type IntervalScheduler struct {
	*engine
	cfg    IntervalConfig
	epoch  time.Time
	period time.Duration
}

// NewIntervalScheduler validates cfg and constructs the strategy.
// Construction fails if interval_minutes < flood+drain, per spec.md
// §4.2. The epoch is local midnight of the day the scheduler is
// constructed (not of the day Start() is called), per
// S1/S2's "observed from t0=00:00:00" framing.
func NewIntervalScheduler(cfg IntervalConfig, ctrl device.Controller, clk clock.Clock, log *slog.Logger) (*IntervalScheduler, error) {
	if cfg.FloodMinutes <= 0 || cfg.DrainMinutes < 0 || cfg.IntervalMinutes <= 0 {
		return nil, fmt.Errorf("interval schedule: flood_minutes and interval_minutes must be positive, drain_minutes must be non-negative")
	}
	if cfg.IntervalMinutes < cfg.FloodMinutes+cfg.DrainMinutes {
		return nil, fmt.Errorf("interval schedule: interval_minutes (%v) is less than flood+drain (%v)", cfg.IntervalMinutes, cfg.FloodMinutes+cfg.DrainMinutes)
	}

	epoch := carbon.NewCarbon(clk.Now()).StartOfDay().StdTime()

	return &IntervalScheduler{
		engine: newEngine(ctrl, clk, log),
		cfg:    cfg,
		epoch:  epoch,
		period: time.Duration(cfg.IntervalMinutes * float64(time.Minute)),
	}, nil
}

// onInstant returns the smallest epoch+n*period that is at or after
// `after` (spec.md §8's "on_time == now is due immediately" boundary
// rule applies generally, not just at the epoch: a grid point landing
// exactly on `after` is due now, not skipped to the following one —
// this matters whenever flood+drain == interval, since back-to-back
// cycles land drainEnd exactly on the next grid point every time).
func (s *IntervalScheduler) onInstant(after time.Time) time.Time {
	if !after.After(s.epoch) {
		return s.epoch
	}
	elapsed := after.Sub(s.epoch)
	n := elapsed / s.period
	t := s.epoch.Add(n * s.period)
	for t.Before(after) {
		t = t.Add(s.period)
	}
	return t
}

func (s *IntervalScheduler) Start(ctx context.Context) error { return s.engine.start(ctx, s) }
func (s *IntervalScheduler) Stop() error                     { return s.engine.stop() }
func (s *IntervalScheduler) IsRunning() bool                 { return s.engine.isRunning() }
func (s *IntervalScheduler) State() types.SchedulerState     { return s.engine.currentState() }
func (s *IntervalScheduler) Status() types.Status            { return s.engine.baseStatus() }

// next implements cycleSource. If active_hours is set, a cycle whose
// on-instant falls outside the window is suppressed entirely and the
// engine jumps straight to the window's opening edge (spec.md §4.2, S2:
// the suppressed 00:00 cycle's replacement fires at the window's start,
// 00:05:00 — not at whatever periodic grid slot happens to land inside
// the window) rather than continuing the original cadence; a cycle that
// starts inside the window still runs to completion even if its flood
// extends past the window's end.
func (s *IntervalScheduler) next(after time.Time) (dueCycle, error) {
	nt := s.onInstant(after)
	if s.cfg.ActiveHours != nil {
		tod := types.TimeOfDay{Hour: nt.Hour(), Minute: nt.Minute()}
		if !s.cfg.ActiveHours.Contains(tod) {
			nt = s.nextWindowOpen(nt)
		}
	}
	return s.cycleAt(nt), nil
}

// nextWindowOpen returns the next instant the active-hours window opens
// at or after `after` (today if it hasn't opened yet, tomorrow
// otherwise).
func (s *IntervalScheduler) nextWindowOpen(after time.Time) time.Time {
	start := s.cfg.ActiveHours.Start
	windowStart := carbon.NewCarbon(after).SetTimeMilli(start.Hour, start.Minute, 0, 0).StdTime()
	if !windowStart.After(after) {
		windowStart = carbon.NewCarbon(windowStart).AddDay().StdTime()
	}
	return windowStart
}

func (s *IntervalScheduler) cycleAt(nt time.Time) dueCycle {
	flood := time.Duration(s.cfg.FloodMinutes * float64(time.Minute))
	drain := time.Duration(s.cfg.DrainMinutes * float64(time.Minute))
	return dueCycle{
		onTime: nt,
		flood:  flood,
		drain:  drain,
		cycle: types.Cycle{
			OnTime:       types.TimeOfDay{Hour: nt.Hour(), Minute: nt.Minute()},
			FloodMinutes: s.cfg.FloodMinutes,
			OffMinutes:   s.cfg.DrainMinutes,
		},
	}
}
