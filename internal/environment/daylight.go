// Package environment implements the environmental data plane of
// spec.md §4.5: a pure daylight calculator and a polling weather
// provider, aggregated behind a single copy-on-read service.
package environment

import (
	"time"

	sunrisecalc "github.com/nathan-osman/go-sunrise"

	flooderrors "github.com/flowbed/floodcycle/errors"
	"github.com/flowbed/floodcycle/types"
)

// Location resolves an opaque postal code to coordinates and a
// timezone, the input DaylightCalculator needs. Supplementing spec.md
// with the concrete postcode table format the original Python
// implementation used for station/postcode lookups (see SPEC_FULL.md
// §3).
type Location struct {
	Postcode string
	Timezone string // IANA timezone name, e.g. "America/Denver"
}

// PostcodeTable maps opaque postal codes to coordinates. Unknown codes
// fail with a LocationUnknown error, per spec.md §4.5.
type PostcodeTable map[string]types.Station

// DaylightCalculator is a pure function of (date, location, timezone):
// no I/O, deterministic for identical inputs (spec.md §8 invariant 5's
// sibling requirement for daylight). Grounded on
// internal/scheduling/daily.go's SunTrigger, which calls the same
// go-sunrise SunriseSunset function; generalized here to return a full
// DaylightInfo rather than just the next trigger time.
type DaylightCalculator struct {
	postcodes PostcodeTable
}

// NewDaylightCalculator builds a calculator over the given postcode
// table.
func NewDaylightCalculator(postcodes PostcodeTable) *DaylightCalculator {
	return &DaylightCalculator{postcodes: postcodes}
}

// Calculate returns sunrise, sunset, and day length for the given local
// date at the location named by postcode, in the given timezone.
func (d *DaylightCalculator) Calculate(date time.Time, postcode string, timezone string) (types.DaylightInfo, error) {
	station, ok := d.postcodes[postcode]
	if !ok {
		return types.DaylightInfo{}, &flooderrors.LocationUnknown{Postcode: postcode}
	}

	loc, err := time.LoadLocation(timezone)
	if err != nil {
		loc = time.UTC
	}

	localDate := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, loc)
	rise, set := sunrisecalc.SunriseSunset(station.Latitude, station.Longitude, localDate.Year(), localDate.Month(), localDate.Day())
	rise, set = rise.In(loc), set.In(loc)

	info := types.DaylightInfo{
		Date:    localDate,
		Sunrise: types.TimeOfDay{Hour: rise.Hour(), Minute: rise.Minute()},
		Sunset:  types.TimeOfDay{Hour: set.Hour(), Minute: set.Minute()},
	}
	info.DayLengthMinutes = float64(info.Sunset.Minutes() - info.Sunrise.Minutes())
	if info.DayLengthMinutes < 0 {
		// local sunset falls past midnight (an earlier clock time
		// than sunrise); wrap the difference by one day rather than
		// producing a negative length.
		info.DayLengthMinutes += 24 * 60
	}
	return info, nil
}

// Resolve returns the coordinates for a postcode, used by "auto"
// weather station resolution.
func (d *DaylightCalculator) Resolve(postcode string) (types.Station, error) {
	station, ok := d.postcodes[postcode]
	if !ok {
		return types.Station{}, &flooderrors.LocationUnknown{Postcode: postcode}
	}
	return station, nil
}
