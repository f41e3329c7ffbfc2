package adaptive

import (
	"math"

	"github.com/flowbed/floodcycle/types"
)

// Deviation records one cycle whose off_minutes differs from its
// nearest reference cycle by more than 50%, per spec.md §4.6.
type Deviation struct {
	OnTime         types.TimeOfDay
	SynthesizedOff float64
	ReferenceOff   float64
	PercentDelta   float64
}

// ValidationReport is the analytic-only comparison of a synthesized
// plan against an optional reference plan. It never feeds back into
// synthesis (spec.md §4.6).
type ValidationReport struct {
	Matches    bool
	Deviations []Deviation
	Warnings   []string
}

// Validate compares plan against an optional reference plan (e.g. a
// legacy literal schedule kept around purely for comparison, per design
// note 9's admission of a "base schedule" only as analytic reference).
// A nil reference produces a report with Matches=true and no
// deviations: there is nothing to compare against.
func Validate(plan types.SchedulePlan, reference *types.SchedulePlan) ValidationReport {
	if reference == nil {
		return ValidationReport{Matches: true}
	}

	refCycles := reference.Cycles()
	if len(refCycles) == 0 {
		return ValidationReport{Matches: plan.Empty(), Warnings: []string{"reference plan is empty"}}
	}

	report := ValidationReport{Matches: true}
	for _, c := range plan.Cycles() {
		nearest := nearestByOnTime(refCycles, c.OnTime)
		if nearest.OffMinutes == 0 {
			continue
		}
		delta := math.Abs(c.OffMinutes-nearest.OffMinutes) / nearest.OffMinutes
		if delta > 0.5 {
			report.Matches = false
			report.Deviations = append(report.Deviations, Deviation{
				OnTime:         c.OnTime,
				SynthesizedOff: c.OffMinutes,
				ReferenceOff:   nearest.OffMinutes,
				PercentDelta:   delta * 100,
			})
		}
	}
	return report
}

func nearestByOnTime(cycles []types.Cycle, t types.TimeOfDay) types.Cycle {
	best := cycles[0]
	bestDist := absMinutes(best.OnTime, t)
	for _, c := range cycles[1:] {
		d := absMinutes(c.OnTime, t)
		if d < bestDist {
			best, bestDist = c, d
		}
	}
	return best
}

func absMinutes(a, b types.TimeOfDay) int {
	d := a.Minutes() - b.Minutes()
	if d < 0 {
		return -d
	}
	return d
}
