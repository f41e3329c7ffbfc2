package scheduling

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/flowbed/floodcycle/internal/adaptive"
	"github.com/flowbed/floodcycle/internal/clock"
	"github.com/flowbed/floodcycle/internal/device"
	"github.com/flowbed/floodcycle/internal/environment"
	"github.com/flowbed/floodcycle/types"
)

// AdaptiveScheduler wraps a TimeOfDayScheduler with an environmental
// service and synthesizer, per spec.md §4.7 ("wrap a Time-of-day
// strategy around an Adaptive synthesizer that populates and refreshes
// the cycle list"). It owns the re-synthesis cadence; the underlying
// TimeOfDayScheduler owns execution.
type AdaptiveScheduler struct {
	*TimeOfDayScheduler
	env     *environment.Service
	synth   *adaptive.Synthesizer
	cfg     adaptive.Config
	clk     clock.Clock
	log     *slog.Logger
	refresh time.Duration

	lastSynthDate string
	validation    atomic.Pointer[adaptive.ValidationReport]
}

// NewAdaptiveScheduler constructs the wrapping strategy. The initial
// TimeOfDayConfig's cycle list is ignored (adaptive cycles are
// synthesized, never literal, per spec.md §6's configuration-update
// rule); a single-cycle placeholder keeps construction machinery shared
// with TimeOfDayScheduler until the first Synthesize call replaces it.
func NewAdaptiveScheduler(cfg adaptive.Config, env *environment.Service, refreshInterval time.Duration, ctrl device.Controller, clk clock.Clock, log *slog.Logger) (*AdaptiveScheduler, error) {
	placeholder := TimeOfDayConfig{
		FloodMinutes: cfg.Constraints.FloodMinutes,
		Cycles:       []ConfiguredCycle{{OnTime: types.TimeOfDay{Hour: 0, Minute: 0}, OffMinutes: cfg.Constraints.MaxWait}},
	}
	tod, err := NewTimeOfDayScheduler(placeholder, ctrl, clk, log)
	if err != nil {
		return nil, err
	}

	return &AdaptiveScheduler{
		TimeOfDayScheduler: tod,
		env:                env,
		synth:              adaptive.NewSynthesizer(),
		cfg:                cfg,
		clk:                clk,
		log:                log,
		refresh:            refreshInterval,
	}, nil
}

// Start synthesizes the first plan, installs it, and launches both the
// environmental refresh loop and the re-synthesis loop alongside the
// inherited worker.
func (a *AdaptiveScheduler) Start(ctx context.Context) error {
	if err := a.resynthesize(ctx); err != nil {
		a.log.Warn("initial adaptive synthesis failed, running with placeholder plan", "error", err)
	}

	if err := a.TimeOfDayScheduler.Start(ctx); err != nil {
		return err
	}

	go a.env.RefreshLoop(ctx, a.refresh)
	go a.resynthesizeLoop(ctx)
	return nil
}

// Status layers the environmental slice onto the wrapped
// TimeOfDayScheduler's status, per spec.md §6.
func (a *AdaptiveScheduler) Status() types.Status {
	s := a.TimeOfDayScheduler.Status()
	s.Environment = a.env.Status()
	return s
}

// midnightCheckInterval is how often resynthesizeLoop polls for a local
// date change, independent of the (possibly much longer)
// update_interval_minutes refresh cadence.
const midnightCheckInterval = time.Minute

// resynthesizeLoop re-synthesizes on environmental refresh cadence and
// on local-midnight crossing, per spec.md §4.6's re-synthesis policy.
// It never interrupts an in-progress phase: Replan only swaps the
// pointer the worker reads at its next "waiting" tick (spec.md §5),
// resolving Open Question 1 by following §4.6's own explicit text over
// the conflicting source-path hint it flags.
func (a *AdaptiveScheduler) resynthesizeLoop(ctx context.Context) {
	refreshEvery := a.refresh
	if refreshEvery <= 0 {
		refreshEvery = 15 * time.Minute
	}
	nextRefresh := a.clk.Now().Add(refreshEvery)

	for {
		select {
		case <-a.clk.After(midnightCheckInterval):
			now := a.clk.Now()
			crossedMidnight := a.lastSynthDate != "" && now.Format("2006-01-02") != a.lastSynthDate
			if !crossedMidnight && now.Before(nextRefresh) {
				continue
			}
			if err := a.resynthesize(ctx); err != nil {
				a.log.Warn("adaptive re-synthesis failed, keeping installed plan", "error", err)
			}
			nextRefresh = now.Add(refreshEvery)
		case <-ctx.Done():
			return
		}
	}
}

func (a *AdaptiveScheduler) resynthesize(ctx context.Context) error {
	if err := a.env.Refresh(ctx); err != nil {
		a.log.Warn("adaptive re-synthesis: environmental refresh failed, using cached sample", "error", err)
	}

	daylight := a.env.Daylight()
	sample := a.env.Sample()

	plan, err := a.synth.Synthesize(a.cfg, daylight, sample)
	if err != nil {
		return err
	}

	previous := a.TimeOfDayScheduler.Plan()
	report := adaptive.Validate(plan, &previous)
	a.validation.Store(&report)

	a.TimeOfDayScheduler.Replan(plan)
	a.lastSynthDate = a.clk.Now().Format("2006-01-02")
	return nil
}

// LatestValidation returns the validation report produced by the most
// recent re-synthesis against the plan it replaced, per spec.md §4.6's
// "analytic only" validation surface. Before the first re-synthesis
// this reports a trivial match against an empty reference.
func (a *AdaptiveScheduler) LatestValidation() adaptive.ValidationReport {
	if r := a.validation.Load(); r != nil {
		return *r
	}
	return adaptive.ValidationReport{Matches: true}
}
