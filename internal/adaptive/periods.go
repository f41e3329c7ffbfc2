package adaptive

import "github.com/flowbed/floodcycle/types"

const minutesPerDay = 24 * 60

// window is a period's [start, end) in minutes since local midnight.
// end may exceed minutesPerDay for a period that wraps past midnight
// (night), which lets the synthesis cursor walk across the boundary
// with plain arithmetic instead of wrapped time-of-day comparisons.
type window struct {
	start, end float64
	empty      bool
}

// periodWindows computes the four period boundaries for one day's
// DaylightInfo, per spec.md §4.6:
//
//	morning: max(sunrise, 06:00) to 09:00
//	day:     09:00 to max(sunset, 18:00)
//	evening: sunset to 20:00, empty if sunset >= 20:00
//	night:   20:00 to next day's sunrise (wraps midnight)
//
// The morning start rule is a reading of an ambiguous boundary (not one
// of the Open Questions recorded in DESIGN.md): spec.md's own phrasing
// of the morning boundary is self-contradictory once expanded
// literally, so this picks the
// interpretation symmetric with the day boundary's explicit max()
// clamp — never starting morning floods before 06:00.
func periodWindows(d types.DaylightInfo) map[types.Period]window {
	sunrise := float64(d.Sunrise.Minutes())
	sunset := float64(d.Sunset.Minutes())
	six, nine, eighteen, twenty := 360.0, 540.0, 1080.0, 1200.0

	morningStart := sunrise
	if morningStart < six {
		morningStart = six
	}
	dayEnd := sunset
	if dayEnd < eighteen {
		dayEnd = eighteen
	}

	windows := map[types.Period]window{
		types.PeriodMorning: {start: morningStart, end: nine},
		types.PeriodDay:     {start: nine, end: dayEnd},
		types.PeriodEvening: {start: sunset, end: twenty},
		types.PeriodNight:   {start: twenty, end: minutesPerDay + sunrise},
	}

	if sunset >= twenty {
		windows[types.PeriodEvening] = window{start: sunset, end: twenty, empty: true}
	}
	if morningStart >= nine {
		windows[types.PeriodMorning] = window{start: morningStart, end: nine, empty: true}
	}

	return windows
}

// minutesToTimeOfDay converts minutes-since-midnight (which may be >=
// minutesPerDay, for a cursor that has walked into the next day) back
// into a wall-clock TimeOfDay.
func minutesToTimeOfDay(minutes float64) types.TimeOfDay {
	m := int(minutes+0.5) % minutesPerDay // round to the nearest minute
	if m < 0 {
		m += minutesPerDay
	}
	return types.TimeOfDay{Hour: m / 60, Minute: m % 60}
}
