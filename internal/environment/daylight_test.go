package environment

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowbed/floodcycle/types"
)

func testTable() PostcodeTable {
	return PostcodeTable{
		"80203": {ID: "denver", Name: "Denver, CO", Latitude: 39.7392, Longitude: -104.9903},
	}
}

func TestDaylightCalculator_Determinism(t *testing.T) {
	calc := NewDaylightCalculator(testTable())
	date := time.Date(2026, 6, 21, 0, 0, 0, 0, time.UTC)

	a, err := calc.Calculate(date, "80203", "America/Denver")
	require.NoError(t, err)
	b, err := calc.Calculate(date, "80203", "America/Denver")
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.True(t, a.Sunrise.Before(a.Sunset), "sunrise %v should be before sunset %v", a.Sunrise, a.Sunset)
}

func TestDaylightCalculator_LocationUnknown(t *testing.T) {
	calc := NewDaylightCalculator(testTable())
	_, err := calc.Calculate(time.Now(), "00000", "UTC")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "location_unknown")
}

func TestDaylightCalculator_Resolve(t *testing.T) {
	calc := NewDaylightCalculator(testTable())
	station, err := calc.Resolve("80203")
	require.NoError(t, err)
	assert.Equal(t, types.Station{ID: "denver", Name: "Denver, CO", Latitude: 39.7392, Longitude: -104.9903}, station)
}
