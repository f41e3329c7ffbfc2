package environment

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"resty.dev/v3"

	"github.com/flowbed/floodcycle/internal/clock"
	"github.com/flowbed/floodcycle/types"

	flooderrors "github.com/flowbed/floodcycle/errors"
)

// WeatherProvider polls an external meteorological feed for outdoor
// temperature and humidity, generalizing the teacher's
// internal.HttpClient (resty.dev/v3, 30s timeout, retry-with-backoff)
// to the poll/cache/staleness policy of spec.md §4.5.
type WeatherProvider struct {
	client  *resty.Client
	feedURL string

	stations    *StationTable
	updateEvery time.Duration // update_interval_minutes, default 60m
	minRefresh  time.Duration // origin-specified floor, default 30m
	staleAfter  time.Duration // 4x updateEvery

	clk clock.Clock
	log *slog.Logger

	mu            sync.Mutex
	cache         *types.EnvironmentalSample
	lastFetch     time.Time
	lastGoodFetch time.Time
	autoResolved  map[string]types.Station // memoized "auto" resolution keyed by lat,lon
}

// WeatherConfig configures a WeatherProvider, matching
// schedule.adaptation.temperature in spec.md §6.
type WeatherConfig struct {
	FeedURL               string
	UpdateIntervalMinutes float64 // default 60
	MinRefreshMinutes     float64 // default 30
	RequestTimeout        time.Duration // default 10s
}

// NewWeatherProvider builds a provider against the given feed and
// station table.
func NewWeatherProvider(cfg WeatherConfig, stations *StationTable, clk clock.Clock, log *slog.Logger) *WeatherProvider {
	updateEvery := 60 * time.Minute
	if cfg.UpdateIntervalMinutes > 0 {
		updateEvery = time.Duration(cfg.UpdateIntervalMinutes * float64(time.Minute))
	}
	minRefresh := 30 * time.Minute
	if cfg.MinRefreshMinutes > 0 {
		minRefresh = time.Duration(cfg.MinRefreshMinutes * float64(time.Minute))
	}
	timeout := 10 * time.Second
	if cfg.RequestTimeout > 0 {
		timeout = cfg.RequestTimeout
	}

	client := resty.New().
		SetBaseURL(cfg.FeedURL).
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(250 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		AddRetryConditions(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() >= 500
		})

	return &WeatherProvider{
		client:       client,
		feedURL:      cfg.FeedURL,
		stations:     stations,
		updateEvery:  updateEvery,
		minRefresh:   minRefresh,
		staleAfter:   4 * updateEvery,
		clk:          clk,
		log:          log,
		autoResolved: make(map[string]types.Station),
	}
}

// feedObservation is the wire shape returned by the meteorological
// feed.
type feedObservation struct {
	TemperatureC *float64 `json:"temperature_c"`
	HumidityPct  *float64 `json:"humidity_pct"`
}

// Fetch returns the current sample for stationID ("auto" to resolve the
// nearest station to locationLat/locationLon), applying the poll
// cadence, minimum refresh floor, and staleness budget of spec.md
// §4.5. It never returns an error for a transient failure: the previous
// sample (or a null one, once stale) is returned instead, with the
// WeatherUnavailable condition only logged.
func (w *WeatherProvider) Fetch(ctx context.Context, stationID string, locationLat, locationLon float64) (types.EnvironmentalSample, error) {
	resolvedID, resolvedName, err := w.resolveStation(stationID, locationLat, locationLon)
	if err != nil {
		return types.EnvironmentalSample{}, err
	}

	w.mu.Lock()
	now := w.clk.Now()
	effectiveInterval := w.updateEvery
	if w.minRefresh > effectiveInterval {
		effectiveInterval = w.minRefresh
	}
	dueForPoll := w.lastFetch.IsZero() || now.Sub(w.lastFetch) >= effectiveInterval
	w.mu.Unlock()

	if dueForPoll {
		w.poll(ctx, resolvedID, resolvedName)
	}

	return w.servedSample(resolvedID, resolvedName), nil
}

func (w *WeatherProvider) resolveStation(stationID string, lat, lon float64) (id string, name string, err error) {
	if stationID != "auto" {
		return stationID, stationID, nil
	}

	key := fmt.Sprintf("%.4f,%.4f", lat, lon)
	w.mu.Lock()
	if s, ok := w.autoResolved[key]; ok {
		w.mu.Unlock()
		return s.ID, s.Name, nil
	}
	w.mu.Unlock()

	station, ok := w.stations.Nearest(lat, lon)
	if !ok {
		return "", "", fmt.Errorf("no weather stations configured for auto resolution")
	}

	w.mu.Lock()
	w.autoResolved[key] = station
	w.mu.Unlock()
	return station.ID, station.Name, nil
}

func (w *WeatherProvider) poll(ctx context.Context, stationID, stationName string) {
	w.mu.Lock()
	w.lastFetch = w.clk.Now()
	w.mu.Unlock()

	var obs feedObservation
	resp, err := w.client.R().
		SetContext(ctx).
		SetQueryParam("station", stationID).
		SetResult(&obs).
		Get("/observations/latest")

	if err != nil || resp.StatusCode() >= 400 {
		if err == nil {
			err = fmt.Errorf("weather feed returned %s", resp.Status())
		}
		w.log.Warn("weather fetch failed, serving cached sample", "error", unavailable(stationID, err))
		return
	}

	w.mu.Lock()
	now := w.clk.Now()
	id, name := stationID, stationName
	w.cache = &types.EnvironmentalSample{
		TemperatureC: obs.TemperatureC,
		HumidityPct:  obs.HumidityPct,
		SampleTime:   now,
		StationID:    &id,
		StationName:  &name,
	}
	w.lastGoodFetch = now
	w.mu.Unlock()
}

func (w *WeatherProvider) servedSample(stationID, stationName string) types.EnvironmentalSample {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.cache == nil {
		return types.EnvironmentalSample{SampleTime: w.clk.Now(), StationID: &stationID, StationName: &stationName}
	}

	if w.clk.Now().Sub(w.lastGoodFetch) > w.staleAfter {
		return types.EnvironmentalSample{SampleTime: w.clk.Now(), StationID: &stationID, StationName: &stationName}
	}

	return *w.cache
}

// unavailable constructs the logged-only condition for a transient
// fetch failure; kept as a typed value even though Fetch never returns
// it, so callers that want to distinguish "never fetched" from
// "fetched, currently stale" can wrap it explicitly.
func unavailable(stationID string, cause error) error {
	return &flooderrors.WeatherUnavailable{StationID: stationID, Cause: cause}
}
