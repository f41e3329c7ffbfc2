package adaptive

import (
	"github.com/flowbed/floodcycle/internal/timeparse"
	"github.com/flowbed/floodcycle/types"
)

// Synthesizer produces a SchedulePlan for one local day from factors
// alone. Per spec.md §4.6's invariant, Synthesize never reads any
// previously-installed plan — it is a pure function of (cfg, daylight,
// sample), satisfying spec.md §8 invariant 5 (determinism) and
// invariant 6 (unknown readings behave as factor 1.0).
type Synthesizer struct{}

// NewSynthesizer returns a stateless Synthesizer.
func NewSynthesizer() *Synthesizer {
	return &Synthesizer{}
}

// Synthesize implements the algorithm of spec.md §4.6.
func (*Synthesizer) Synthesize(cfg Config, daylight types.DaylightInfo, sample types.EnvironmentalSample) (types.SchedulePlan, error) {
	windows := periodWindows(daylight)

	var cycles []types.Cycle
	for _, period := range []types.Period{types.PeriodMorning, types.PeriodDay, types.PeriodEvening, types.PeriodNight} {
		w := windows[period]
		if w.empty || w.end <= w.start {
			continue
		}

		base, ok := cfg.TODFrequencies[period]
		if !ok {
			base = 0
		}
		tf := Factor(cfg.TemperatureBands, sample.TemperatureC)
		hf := Factor(cfg.HumidityBands, sample.HumidityPct)
		pf := 1.0
		if v, ok := cfg.PeriodFactors[period]; ok && v != 0 {
			pf = v
		}

		// pf divides: tod_frequencies expresses off-duration, and
		// factor > 1 means "more frequent" (shorter off), per spec.md
		// §4.6's tie-break note.
		targetOff := timeparse.Clamp(base*tf*hf/pf, cfg.Constraints.MinWait, cfg.Constraints.MaxWait)
		flood := timeparse.Clamp(cfg.Constraints.FloodMinutes, cfg.Constraints.MinFlood, cfg.Constraints.MaxFlood)

		cursor := w.start
		for cursor+flood+targetOff <= w.end {
			temp := sample.TemperatureC
			humidity := sample.HumidityPct
			cycles = append(cycles, types.Cycle{
				OnTime:       minutesToTimeOfDay(cursor),
				FloodMinutes: flood,
				OffMinutes:   targetOff,
				Annotations: &types.CycleAnnotations{
					Period:         period,
					TemperatureC:   temp,
					HumidityPct:    humidity,
					TempFactor:     tf,
					HumidityFactor: hf,
				},
			})
			cursor += flood + targetOff
		}
	}

	return types.NewSchedulePlan(cycles)
}
