package scheduling

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Workiva/go-datastructures/queue"
	"github.com/dromara/carbon/v2"

	"github.com/flowbed/floodcycle/internal/clock"
	"github.com/flowbed/floodcycle/internal/device"
	"github.com/flowbed/floodcycle/types"
)

// Bounds are the clamp table of spec.md §4.3, reused unmodified by the
// adaptive synthesizer's own constraints (internal/adaptive.Constraints).
type Bounds struct {
	MinFlood float64
	MaxFlood float64
	MinOff   float64
	MaxOff   float64
}

// DefaultBounds matches spec.md §4.3's defaults.
func DefaultBounds() Bounds {
	return Bounds{MinFlood: 2, MaxFlood: 15, MinOff: 5, MaxOff: 180}
}

// TimeOfDayConfig is the configuration of spec.md §4.3.
type TimeOfDayConfig struct {
	FloodMinutes float64
	Cycles       []ConfiguredCycle
	Bounds       Bounds
}

// ConfiguredCycle is one literal {on_time, off_minutes} entry from
// configuration, before bounds are applied.
type ConfiguredCycle struct {
	OnTime     types.TimeOfDay
	OffMinutes float64
}

// TimeOfDayScheduler implements spec.md §4.3 (and, wrapped by
// AdaptiveScheduler, the adaptive strategy of §4.6) on top of the shared
// engine. The installed plan is held behind an atomic pointer so
// Replan never blocks or interrupts the worker's current phase
// (spec.md §5, §4.6 re-synthesis policy).
type TimeOfDayScheduler struct {
	*engine
	plan atomic.Pointer[types.SchedulePlan]

	// pq holds one entry per cycle, keyed by its next absolute
	// occurrence, the same pop/compute-next/requeue structure
	// schedule.go's runSchedules/popSchedule/requeueSchedule used for
	// the teacher's daily schedules: next() pops the earliest entry,
	// advances it past `after`, and pushes it back in for the
	// following day.
	pqMu sync.Mutex
	pq   *queue.PriorityQueue
}

// pqEntry is the queue.Item payload: a cycle plus the absolute instant
// it is next due.
type pqEntry struct {
	due   time.Time
	cycle types.Cycle
}

// NewTimeOfDayScheduler clamps each configured cycle's flood/off minutes
// into Bounds (emitting a deviation annotation when clamped, per spec.md
// §4.3) and builds the initial plan. An empty cycle list is rejected at
// construction (spec.md §8 boundary behaviors).
func NewTimeOfDayScheduler(cfg TimeOfDayConfig, ctrl device.Controller, clk clock.Clock, log *slog.Logger) (*TimeOfDayScheduler, error) {
	plan, err := buildPlan(cfg)
	if err != nil {
		return nil, err
	}

	s := &TimeOfDayScheduler{engine: newEngine(ctrl, clk, log)}
	s.plan.Store(&plan)
	s.pq = buildQueue(plan.Cycles(), clk.Now())
	return s, nil
}

// buildQueue seeds one entry per cycle, anchored at its next occurrence
// strictly after anchor.
func buildQueue(cycles []types.Cycle, anchor time.Time) *queue.PriorityQueue {
	pq := queue.NewPriorityQueue(len(cycles)+1, false)
	if len(cycles) == 0 {
		return pq
	}
	items := make([]queue.Item, len(cycles))
	for i, c := range cycles {
		due := onTimeAfter(c.OnTime, anchor)
		items[i] = Item{Value: pqEntry{due: due, cycle: c}, Priority: float64(due.Unix())}
	}
	_ = pq.Put(items...)
	return pq
}

// onTimeAfter returns the next absolute instant tod occurs strictly
// after anchor's previous occurrence boundary (today if tod hasn't
// passed yet, tomorrow otherwise, using "at or before anchor" as the
// not-yet-passed test the same as next()'s wrap-around rule).
func onTimeAfter(tod types.TimeOfDay, anchor time.Time) time.Time {
	candidate := carbon.NewCarbon(anchor).SetTimeMilli(tod.Hour, tod.Minute, 0, 0).StdTime()
	if !candidate.After(anchor) {
		candidate = carbon.NewCarbon(candidate).AddDay().StdTime()
	}
	return candidate
}

func buildPlan(cfg TimeOfDayConfig) (types.SchedulePlan, error) {
	if len(cfg.Cycles) == 0 {
		return types.SchedulePlan{}, fmt.Errorf("time-of-day schedule: cycle list must not be empty")
	}
	bounds := cfg.Bounds
	if bounds == (Bounds{}) {
		bounds = DefaultBounds()
	}

	cycles := make([]types.Cycle, 0, len(cfg.Cycles))
	for _, c := range cfg.Cycles {
		flood := clampWithDeviation(cfg.FloodMinutes, bounds.MinFlood, bounds.MaxFlood)
		off := clampWithDeviation(c.OffMinutes, bounds.MinOff, bounds.MaxOff)
		cycles = append(cycles, types.Cycle{
			OnTime:       c.OnTime,
			FloodMinutes: flood.value,
			OffMinutes:   off.value,
			Annotations: &types.CycleAnnotations{
				Deviation: flood.clamped || off.clamped,
			},
		})
	}
	return types.NewSchedulePlan(cycles)
}

type clampResult struct {
	value   float64
	clamped bool
}

func clampWithDeviation(v, min, max float64) clampResult {
	if v < min {
		return clampResult{min, true}
	}
	if v > max {
		return clampResult{max, true}
	}
	return clampResult{v, false}
}

func (s *TimeOfDayScheduler) Start(ctx context.Context) error { return s.engine.start(ctx, s) }
func (s *TimeOfDayScheduler) Stop() error                     { return s.engine.stop() }
func (s *TimeOfDayScheduler) IsRunning() bool                 { return s.engine.isRunning() }
func (s *TimeOfDayScheduler) State() types.SchedulerState     { return s.engine.currentState() }
func (s *TimeOfDayScheduler) Status() types.Status            { return s.engine.baseStatus() }

// Replan atomically installs a new plan and rebuilds the due-time
// queue against it. It is idempotent: installing the same plan twice
// does not perturb the worker (spec.md §8 invariant 9), since the
// worker only observes the new queue at its next "waiting" tick (via
// next()) and this call never blocks on it.
func (s *TimeOfDayScheduler) Replan(plan types.SchedulePlan) {
	s.plan.Store(&plan)
	fresh := buildQueue(plan.Cycles(), s.engine.clk.Now())
	s.pqMu.Lock()
	s.pq = fresh
	s.pqMu.Unlock()
}

// Plan returns the currently installed plan.
func (s *TimeOfDayScheduler) Plan() types.SchedulePlan {
	if p := s.plan.Load(); p != nil {
		return *p
	}
	return types.SchedulePlan{}
}

// next implements cycleSource by popping the queue's earliest entry
// that is due strictly after `after` (entries whose seeded due time has
// already passed are re-seeded at their next occurrence first), and
// pushing it back in for its following occurrence —
// schedule.go's popSchedule/requeueSchedule pattern generalized from
// "one-shot daily callback" to "cycle that recurs every day at the
// same time of day".
//
// The returned drain is always 0: per spec.md §4.3, off_minutes is
// purely informational for this strategy — the engine simply waits
// until the next scheduled on_time, which may be sooner or later than
// off_minutes would suggest (in S3's {23:58,5}/{00:03,5} pair, the
// 00:03 cycle is due 3 minutes after the 23:58 flood ends, despite the
// 23:58 cycle declaring a 5-minute off_minutes). A zero
// drain makes the worker's run loop fall straight through to its
// "waiting" phase and call next() again immediately, which — because
// it consults the live queue rather than the popped entry's own
// off_minutes — always finds whichever cycle is genuinely due next.
// This also gives Open Question 2's off_minutes=0 case identical
// handling to every other off_minutes value, rather than a special
// case.
func (s *TimeOfDayScheduler) next(after time.Time) (dueCycle, error) {
	plan := s.plan.Load()
	if plan == nil || plan.Empty() {
		return dueCycle{}, fmt.Errorf("time-of-day scheduler: no installed plan")
	}

	s.pqMu.Lock()
	defer s.pqMu.Unlock()

	if s.pq == nil || s.pq.Len() == 0 {
		s.pq = buildQueue(plan.Cycles(), after)
	}

	var entry pqEntry
	for {
		popped, err := s.pq.Get(1)
		if err != nil || len(popped) == 0 {
			return dueCycle{}, fmt.Errorf("time-of-day scheduler: queue empty despite non-empty plan")
		}
		entry = popped[0].(Item).Value.(pqEntry)
		if entry.due.After(after) {
			break
		}
		// stale entry: re-seed it at its next occurrence and pop again,
		// so a cycle due sooner than that occurrence is not skipped.
		stale := entry.due
		for !stale.After(after) {
			stale = carbon.NewCarbon(stale).AddDay().StdTime()
		}
		_ = s.pq.Put(Item{Value: pqEntry{due: stale, cycle: entry.cycle}, Priority: float64(stale.Unix())})
	}

	due := entry.due
	nextDue := carbon.NewCarbon(due).AddDay().StdTime()

	_ = s.pq.Put(Item{Value: pqEntry{due: nextDue, cycle: entry.cycle}, Priority: float64(nextDue.Unix())})

	return dueCycle{
		onTime: due,
		flood:  time.Duration(entry.cycle.FloodMinutes * float64(time.Minute)),
		drain:  0,
		cycle:  entry.cycle,
	}, nil
}
