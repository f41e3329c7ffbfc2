package adaptive

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowbed/floodcycle/types"
)

func testConfig() Config {
	return Config{
		TODFrequencies:   DefaultPeriodFrequencies(),
		TemperatureBands: DefaultTemperatureBands(),
		HumidityBands:    DefaultHumidityBands(),
		Constraints:      DefaultConstraints(),
	}
}

func testDaylight() types.DaylightInfo {
	return types.DaylightInfo{
		Sunrise: types.TimeOfDay{Hour: 6, Minute: 30},
		Sunset:  types.TimeOfDay{Hour: 19, Minute: 45},
	}
}

func ptr(f float64) *float64 { return &f }

// invariant 5: Synthesize is a pure function of its three inputs.
func TestSynthesize_Determinism(t *testing.T) {
	cfg := testConfig()
	daylight := testDaylight()
	sample := types.EnvironmentalSample{TemperatureC: ptr(22.0), HumidityPct: ptr(55.0)}

	synth := NewSynthesizer()
	plan1, err := synth.Synthesize(cfg, daylight, sample)
	require.NoError(t, err)
	plan2, err := synth.Synthesize(cfg, daylight, sample)
	require.NoError(t, err)

	assert.Equal(t, plan1.Cycles(), plan2.Cycles())
}

// invariant 6: an unknown reading behaves as factor 1.0, not as an error
// and not as some other default.
func TestSynthesize_UnknownSampleUsesNeutralFactor(t *testing.T) {
	cfg := testConfig()
	daylight := testDaylight()
	unknown := types.EnvironmentalSample{}

	synth := NewSynthesizer()
	plan, err := synth.Synthesize(cfg, daylight, unknown)
	require.NoError(t, err)
	require.False(t, plan.Empty())

	for _, c := range plan.Cycles() {
		assert.Equal(t, 1.0, c.Annotations.TempFactor)
		assert.Equal(t, 1.0, c.Annotations.HumidityFactor)
	}
}

// invariant 7: the default band tables cover the full real line, so
// Factor never falls through to the defensive fallback for an ordinary
// reading.
func TestBands_CoverFullRange(t *testing.T) {
	temps := []float64{-40, -10, 0, 14.9, 15, 20, 24.9, 25, 27, 29.9, 30, 45}
	for _, v := range temps {
		f := Factor(DefaultTemperatureBands(), ptr(v))
		assert.NotZero(t, f, "temperature %v produced zero factor", v)
	}
	humidities := []float64{0, 10, 39.9, 40, 55, 69.9, 70, 90, 100}
	for _, v := range humidities {
		f := Factor(DefaultHumidityBands(), ptr(v))
		assert.NotZero(t, f, "humidity %v produced zero factor", v)
	}
}

// S4: a moderate sample (tf=hf=1.0) over the day period (09:00-19:45
// here, since sunset 19:45 > 18:00 extends it past 18:00) cycles at the
// base 28-minute off-duration plus the 2-minute flood, every 30 minutes.
func TestSynthesize_S4_ModerateSampleDayPeriod(t *testing.T) {
	cfg := testConfig()
	daylight := testDaylight()
	sample := types.EnvironmentalSample{TemperatureC: ptr(20.0), HumidityPct: ptr(50.0)}

	synth := NewSynthesizer()
	plan, err := synth.Synthesize(cfg, daylight, sample)
	require.NoError(t, err)

	var dayCycles []types.Cycle
	for _, c := range plan.Cycles() {
		if c.Annotations.Period == types.PeriodDay {
			dayCycles = append(dayCycles, c)
		}
	}
	require.NotEmpty(t, dayCycles)
	for _, c := range dayCycles {
		assert.Equal(t, 2.0, c.FloodMinutes)
		assert.InDelta(t, 28.0, c.OffMinutes, 0.001)
		assert.Equal(t, 1.0, c.Annotations.TempFactor)
		assert.Equal(t, 1.0, c.Annotations.HumidityFactor)
	}
	if len(dayCycles) > 1 {
		gap := dayCycles[1].OnTime.Minutes() - dayCycles[0].OnTime.Minutes()
		assert.Equal(t, 30, gap)
	}
}

// S5: a hot+dry sample (tf=0.70, hf=0.9) shortens the off-duration to
// base * 0.70 * 0.9 = base * 0.63.
func TestSynthesize_S5_HotDrySampleShortensOff(t *testing.T) {
	cfg := testConfig()
	daylight := testDaylight()
	sample := types.EnvironmentalSample{TemperatureC: ptr(32.0), HumidityPct: ptr(30.0)}

	synth := NewSynthesizer()
	plan, err := synth.Synthesize(cfg, daylight, sample)
	require.NoError(t, err)

	for _, c := range plan.Cycles() {
		if c.Annotations.Period != types.PeriodDay {
			continue
		}
		assert.Equal(t, 0.70, c.Annotations.TempFactor)
		assert.Equal(t, 0.9, c.Annotations.HumidityFactor)
		assert.InDelta(t, 28.0*0.70*0.9, c.OffMinutes, 0.001)
	}
}

func TestSynthesize_PlanSortedAndNonOverlapping(t *testing.T) {
	cfg := testConfig()
	daylight := testDaylight()
	sample := types.EnvironmentalSample{TemperatureC: ptr(26.0), HumidityPct: ptr(75.0)}

	synth := NewSynthesizer()
	plan, err := synth.Synthesize(cfg, daylight, sample)
	require.NoError(t, err)

	cycles := plan.Cycles()
	for i := 1; i < len(cycles); i++ {
		assert.False(t, cycles[i].OnTime.Before(cycles[i-1].OnTime) || cycles[i].OnTime.Equal(cycles[i-1].OnTime))
	}
}
