// Package floodcycle wires a validated configuration into a running
// scheduler, mirroring the teacher's App/NewApp as the single
// construction point a host process calls into.
package floodcycle

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/flowbed/floodcycle/config"
	flooderrors "github.com/flowbed/floodcycle/errors"
	"github.com/flowbed/floodcycle/internal/clock"
	"github.com/flowbed/floodcycle/internal/device"
	"github.com/flowbed/floodcycle/internal/environment"
	"github.com/flowbed/floodcycle/internal/scheduling"
	"github.com/flowbed/floodcycle/types"
)

// NewAppRequest is everything floodcycle.New needs beyond the validated
// configuration: the geocoding tables a real deployment supplies once
// at startup (spec.md §1 keeps discovery/geocoding data sources out of
// scope for the core itself), and the logger sink.
type NewAppRequest struct {
	Config    config.Normalized
	Postcodes environment.PostcodeTable
	Stations  []types.Station
	Clock     clock.Clock // nil uses clock.New()
	Log       *slog.Logger
}

// App bundles the constructed device controller, optional environmental
// service, and scheduler behind the control surface of spec.md §6.
type App struct {
	ctrl  device.Controller
	env   *environment.Service
	sched scheduling.Scheduler
	log   *slog.Logger
}

// New validates wiring and constructs every component, but starts
// nothing (spec.md §4.7: construction never partially starts a
// goroutine before returning).
func New(req NewAppRequest) (*App, error) {
	clk := req.Clock
	if clk == nil {
		clk = clock.New()
	}
	log := req.Log
	if log == nil {
		log = slog.Default()
	}

	ctrl := device.NewSwitchController(req.Config.Device.Address, nil, device.DefaultRetryPolicy(), clk, log)

	var env *environment.Service
	if req.Config.Env != nil {
		daylight := environment.NewDaylightCalculator(req.Postcodes)
		weather := environment.NewWeatherProvider(req.Config.Env.Weather, environment.NewStationTable(req.Stations), clk, log)
		env = environment.NewService(daylight, weather, req.Config.Env.Postcode, req.Config.Env.Timezone, req.Config.Env.StationID,
			true, req.Config.Env.AdaptiveEnabled, clk, log)
	}

	sched, err := scheduling.NewScheduler(req.Config.Factory, env, ctrl, clk, log)
	if err != nil {
		return nil, fmt.Errorf("constructing scheduler: %w", err)
	}

	return &App{ctrl: ctrl, env: env, sched: sched, log: log}, nil
}

// Start connects the device and starts the scheduler.
func (a *App) Start(ctx context.Context) error {
	if err := a.ctrl.Connect(ctx); err != nil {
		a.log.Warn("device connect failed at startup, scheduler will retry on its own commands", "error", err)
	}
	return a.sched.Start(ctx)
}

// Stop stops the scheduler, which always commands the device off first
// (spec.md §8 invariant 1).
func (a *App) Stop() error {
	return a.sched.Stop()
}

// EmergencyStop issues OFF best-effort and stops scheduling regardless
// of device reachability, per spec.md §7's propagation policy.
func (a *App) EmergencyStop(ctx context.Context) error {
	if err := a.ctrl.TurnOff(ctx); err != nil {
		a.log.Warn("emergency stop: device off command failed, stopping scheduler anyway", "error", err)
	}
	if err := a.sched.Stop(); err != nil && err != flooderrors.ShuttingDown {
		return err
	}
	return nil
}

// Status returns the current scheduler/device/environment snapshot.
func (a *App) Status() types.Status {
	return a.sched.Status()
}

// Replan installs a new literal schedule plan. It is rejected if the
// running scheduler is adaptive (the plan is synthesized, not literal),
// matching spec.md §6's configuration-update rule.
func (a *App) Replan(plan types.SchedulePlan) error {
	if _, adaptive := a.sched.(*scheduling.AdaptiveScheduler); adaptive {
		return &flooderrors.ConfigurationError{Violations: []string{"schedule.cycles must not be set when schedule.adaptation.adaptive.enabled is true: the cycle list is synthesized, not literal"}}
	}
	replanner, ok := a.sched.(interface{ Replan(types.SchedulePlan) })
	if !ok {
		return &flooderrors.ConfigurationError{Violations: []string{"the running scheduler does not accept literal plan updates (interval strategy)"}}
	}
	replanner.Replan(plan)
	return nil
}

// AdaptiveScheduler exposes the underlying adaptive strategy, if that's
// what's running, for callers that need its validation report
// (spec.md §4.6) or re-synthesis controls beyond the common Scheduler
// contract.
func (a *App) AdaptiveScheduler() (*scheduling.AdaptiveScheduler, bool) {
	as, ok := a.sched.(*scheduling.AdaptiveScheduler)
	return as, ok
}
