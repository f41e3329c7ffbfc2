package environment

import (
	"math"

	"github.com/flowbed/floodcycle/types"
)

const earthRadiusKm = 6371.0

// haversineKm returns the great-circle distance between two coordinates
// in kilometers.
func haversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	rad := func(deg float64) float64 { return deg * math.Pi / 180 }
	dLat := rad(lat2 - lat1)
	dLon := rad(lon2 - lon1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rad(lat1))*math.Cos(rad(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c
}

// StationTable is a fixed catalog of known weather stations used to
// resolve "auto" station selection by nearest great-circle distance,
// per spec.md §4.5.
type StationTable struct {
	stations []types.Station
}

// NewStationTable builds a table from the given stations.
func NewStationTable(stations []types.Station) *StationTable {
	return &StationTable{stations: stations}
}

// Nearest returns the station closest to the given coordinates. It
// returns false if the table is empty.
func (t *StationTable) Nearest(lat, lon float64) (types.Station, bool) {
	if len(t.stations) == 0 {
		return types.Station{}, false
	}
	best := t.stations[0]
	bestDist := haversineKm(lat, lon, best.Latitude, best.Longitude)
	for _, s := range t.stations[1:] {
		d := haversineKm(lat, lon, s.Latitude, s.Longitude)
		if d < bestDist {
			best, bestDist = s, d
		}
	}
	return best, true
}

// ByID returns the station with the given ID.
func (t *StationTable) ByID(id string) (types.Station, bool) {
	for _, s := range t.stations {
		if s.ID == id {
			return s, true
		}
	}
	return types.Station{}, false
}
