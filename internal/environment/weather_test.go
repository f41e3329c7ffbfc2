package environment

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowbed/floodcycle/internal/clock"
	"github.com/flowbed/floodcycle/types"
)

func newTestStations() *StationTable {
	return NewStationTable([]types.Station{
		{ID: "den", Name: "Denver", Latitude: 39.74, Longitude: -104.99},
		{ID: "nyc", Name: "New York", Latitude: 40.71, Longitude: -74.00},
	})
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(discardWriter{}, nil))
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

func TestWeatherProvider_PollCadenceAndStaleness(t *testing.T) {
	var calls int32
	temp := 22.5
	humidity := 55.0

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		_ = json.NewEncoder(w).Encode(feedObservation{TemperatureC: &temp, HumidityPct: &humidity})
	}))
	defer srv.Close()

	fake := clock.NewFake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	stations := NewStationTable(nil)
	provider := NewWeatherProvider(WeatherConfig{
		FeedURL:               srv.URL,
		UpdateIntervalMinutes: 60,
		MinRefreshMinutes:     30,
	}, stations, fake, testLogger())

	sample, err := provider.Fetch(context.Background(), "KDEN", 0, 0)
	require.NoError(t, err)
	require.NotNil(t, sample.TemperatureC)
	assert.Equal(t, 22.5, *sample.TemperatureC)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))

	// Within the effective interval: served from cache, no new call.
	fake.Advance(10 * time.Minute)
	_, err = provider.Fetch(context.Background(), "KDEN", 0, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))

	// Past the interval: a new poll happens.
	fake.Advance(55 * time.Minute)
	_, err = provider.Fetch(context.Background(), "KDEN", 0, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 2, atomic.LoadInt32(&calls))
}

func TestWeatherProvider_StaleAfterFourIntervals(t *testing.T) {
	temp := 18.0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(feedObservation{TemperatureC: &temp})
	}))

	fake := clock.NewFake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	provider := NewWeatherProvider(WeatherConfig{
		FeedURL:               srv.URL,
		UpdateIntervalMinutes: 10,
		MinRefreshMinutes:     1,
	}, NewStationTable(nil), fake, testLogger())

	_, err := provider.Fetch(context.Background(), "KDEN", 0, 0)
	require.NoError(t, err)

	// Close the server so subsequent polls fail, then advance well past
	// the 4x staleness budget (40 minutes).
	srv.Close()
	fake.Advance(45 * time.Minute)

	sample, err := provider.Fetch(context.Background(), "KDEN", 0, 0)
	require.NoError(t, err)
	assert.Nil(t, sample.TemperatureC)
}

func TestWeatherProvider_AutoResolutionIsMemoized(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		station := r.URL.Query().Get("station")
		assert.Equal(t, "den", station)
		_ = json.NewEncoder(w).Encode(feedObservation{})
	}))
	defer srv.Close()

	fake := clock.NewFake(time.Now())
	stations := newTestStations()
	provider := NewWeatherProvider(WeatherConfig{FeedURL: srv.URL, UpdateIntervalMinutes: 60, MinRefreshMinutes: 30}, stations, fake, testLogger())

	_, err := provider.Fetch(context.Background(), "auto", 39.7, -104.9)
	require.NoError(t, err)
	_, err = provider.Fetch(context.Background(), "auto", 39.7, -104.9)
	require.NoError(t, err)

	// second call should be within cadence (cache served), so only one
	// poll to the server regardless of resolution being memoized.
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}
