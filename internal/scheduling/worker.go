// Package scheduling implements the unified scheduler contract of
// spec.md §4.1 and its three concrete strategies (interval, time-of-day,
// adaptive), sharing one worker state machine.
package scheduling

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/flowbed/floodcycle/internal/clock"
	"github.com/flowbed/floodcycle/internal/device"
	"github.com/flowbed/floodcycle/types"
)

// Scheduler is the common contract of spec.md §4.1, implemented by all
// three strategies with no dynamic dispatch beyond this tagged set.
type Scheduler interface {
	Start(ctx context.Context) error
	Stop() error
	IsRunning() bool
	State() types.SchedulerState
	Status() types.Status
}

// dueCycle is one concrete occurrence returned by a cycleSource: the
// instant flood begins and the flood/drain durations to run.
type dueCycle struct {
	onTime time.Time
	flood  time.Duration
	drain  time.Duration
	cycle  types.Cycle
}

// cycleSource abstracts "what's next": IntervalScheduler computes it
// from a fixed cadence, TimeOfDayScheduler (and AdaptiveScheduler
// through it) pops it from the installed plan.
type cycleSource interface {
	next(after time.Time) (dueCycle, error)
}

// runState is the worker's published, lock-free snapshot of the fields
// spec.md §4.1 assigns to Status() beyond device/environment, which the
// embedding strategy fills in at call time.
type runState struct {
	running            bool
	state              types.SchedulerState
	nextEventTime      *time.Time
	timeUntilNextCycle *time.Duration
	currentPeriod      *types.Period
	lastCycle          *types.Cycle
}

const shutdownBudget = 10 * time.Second
const noCycleRetryInterval = time.Minute

// engine is the shared worker loop. It is embedded by each concrete
// strategy, which supplies a cycleSource and its own Device/Environment
// status sources.
type engine struct {
	ctrl device.Controller
	clk  clock.Clock
	log  *slog.Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}

	state atomic.Pointer[runState]
}

func newEngine(ctrl device.Controller, clk clock.Clock, log *slog.Logger) *engine {
	e := &engine{ctrl: ctrl, clk: clk, log: log}
	e.state.Store(&runState{state: types.StateStopped})
	return e
}

// start is idempotent: a second call while running returns nil without
// spawning a second worker (spec.md §8 invariant 2).
func (e *engine) start(ctx context.Context, source cycleSource) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running {
		return nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	e.done = make(chan struct{})
	e.running = true
	e.state.Store(&runState{running: true, state: types.StateWaiting})

	go e.run(runCtx, source)
	return nil
}

// stop cancels the worker and waits, up to a shutdown budget, for it to
// command the device OFF and return. Idempotent.
func (e *engine) stop() error {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return nil
	}
	cancel := e.cancel
	done := e.done
	e.mu.Unlock()

	cancel()
	select {
	case <-done:
	case <-time.After(shutdownBudget):
		e.log.Warn("scheduler stop exceeded shutdown budget, returning anyway")
	}

	e.mu.Lock()
	e.running = false
	e.mu.Unlock()
	return nil
}

func (e *engine) isRunning() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

func (e *engine) currentState() types.SchedulerState {
	return e.state.Load().state
}

func (e *engine) publish(s runState) {
	e.state.Store(&s)
}

// run is the state machine of spec.md §4.1. It always commands the
// device OFF on exit, regardless of which phase it was interrupted in,
// satisfying invariant 1 (the last command before Stop() is TurnOff).
func (e *engine) run(ctx context.Context, source cycleSource) {
	defer close(e.done)
	defer e.shutdownDevice()

	var lastCycle *types.Cycle

	for {
		now := e.clk.Now()
		due, err := source.next(now)
		if err != nil {
			e.log.Error("scheduler could not determine next cycle", "error", err)
			e.publish(runState{running: true, state: types.StateWaiting, lastCycle: lastCycle})
			select {
			case <-e.clk.After(noCycleRetryInterval):
				continue
			case <-ctx.Done():
				return
			}
		}

		if !e.waitFor(ctx, due.onTime.Sub(now), types.StateWaiting, &due.onTime, due.cycle, lastCycle) {
			return
		}

		e.commandDevice(true)

		floodEnd := due.onTime.Add(due.flood)
		if !e.waitFor(ctx, due.flood, types.StateFlood, &floodEnd, due.cycle, lastCycle) {
			return
		}

		e.commandDevice(false)
		cycle := due.cycle
		lastCycle = &cycle

		drainEnd := floodEnd.Add(due.drain)
		if !e.waitFor(ctx, due.drain, types.StateDrain, &drainEnd, due.cycle, lastCycle) {
			return
		}
	}
}

// waitFor publishes the given phase and blocks until d elapses or ctx is
// cancelled, returning false on cancellation. A negative or zero d fires
// immediately, matching "on_time == now is due at the top of the second"
// (spec.md §8 boundary behaviors).
func (e *engine) waitFor(ctx context.Context, d time.Duration, state types.SchedulerState, until *time.Time, cycle types.Cycle, lastCycle *types.Cycle) bool {
	if d < 0 {
		d = 0
	}
	var period *types.Period
	if cycle.Annotations != nil {
		p := cycle.Annotations.Period
		period = &p
	}
	e.publish(runState{
		running:            true,
		state:              state,
		nextEventTime:      until,
		timeUntilNextCycle: durationPtr(d),
		currentPeriod:      period,
		lastCycle:          lastCycle,
	})

	select {
	case <-e.clk.After(d):
		return true
	case <-ctx.Done():
		return false
	}
}

// commandDevice issues TurnOn/TurnOff. Failures are logged per spec.md
// §4.1's device failure policy: the phase is still considered to have
// advanced, and device state is reconciled at the next opportunity.
func (e *engine) commandDevice(on bool) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownBudget)
	defer cancel()

	var err error
	if on {
		err = e.ctrl.TurnOn(ctx)
	} else {
		err = e.ctrl.TurnOff(ctx)
	}
	if err != nil {
		e.log.Warn("device command did not verify", "on", on, "error", err)
	}
}

// shutdownDevice always commands OFF on worker exit, best-effort: per
// spec.md §4.4 rule 4, an unreachable device does not block shutdown.
func (e *engine) shutdownDevice() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownBudget)
	defer cancel()
	if err := e.ctrl.TurnOff(ctx); err != nil {
		e.log.Warn("could not verify device OFF during shutdown", "error", err)
	}
	e.state.Store(&runState{state: types.StateStopped})
}

func durationPtr(d time.Duration) *time.Duration { return &d }

// baseStatus composes the shared runState fields with a live device
// snapshot. Strategies with an environment source layer in
// EnvironmentStatus themselves.
func (e *engine) baseStatus() types.Status {
	s := e.state.Load()
	return types.Status{
		Running:             s.running,
		State:               s.state,
		NextEventTime:       s.nextEventTime,
		TimeUntilNextCycle:  s.timeUntilNextCycle,
		CurrentPeriod:       s.currentPeriod,
		LastCycle:           s.lastCycle,
		Device:              e.ctrl.Snapshot(),
	}
}
