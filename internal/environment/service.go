package environment

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/flowbed/floodcycle/internal/clock"
	"github.com/flowbed/floodcycle/types"
)

// snapshot is the immutable record published behind Service's atomic
// pointer: a coherent (temperature, humidity, daylight) triple, never a
// torn mix of old and new fields (spec.md §5).
type snapshot struct {
	sample            types.EnvironmentalSample
	daylight          types.DaylightInfo
	adaptationEnabled bool
	adaptiveEnabled   bool
}

// Service aggregates the DaylightCalculator and WeatherProvider behind
// a single-writer/many-reader cache, generalizing the mutex-guarded
// read pattern of internal/connect.HAConnection into an atomic-pointer
// swap so readers never block a concurrent refresh.
type Service struct {
	daylight *DaylightCalculator
	weather  *WeatherProvider

	postcode  string
	timezone  string
	stationID string // "auto" or a specific station id

	current atomic.Pointer[snapshot]

	clk clock.Clock
	log *slog.Logger
}

// NewService builds an EnvironmentalService. adaptationEnabled and
// adaptiveEnabled are carried through unchanged to Status() consumers.
func NewService(daylight *DaylightCalculator, weather *WeatherProvider, postcode, timezone, stationID string, adaptationEnabled, adaptiveEnabled bool, clk clock.Clock, log *slog.Logger) *Service {
	s := &Service{
		daylight:  daylight,
		weather:   weather,
		postcode:  postcode,
		timezone:  timezone,
		stationID: stationID,
		clk:       clk,
		log:       log,
	}
	s.current.Store(&snapshot{adaptationEnabled: adaptationEnabled, adaptiveEnabled: adaptiveEnabled})
	return s
}

// Refresh recomputes today's daylight and polls the weather provider
// (subject to its own cadence/cache), publishing a new coherent
// snapshot atomically.
func (s *Service) Refresh(ctx context.Context) error {
	station, err := s.daylight.Resolve(s.postcode)
	if err != nil {
		return err
	}

	daylight, err := s.daylight.Calculate(s.clk.Now(), s.postcode, s.timezone)
	if err != nil {
		return err
	}

	sample, err := s.weather.Fetch(ctx, s.stationID, station.Latitude, station.Longitude)
	if err != nil {
		s.log.Warn("environmental refresh: weather fetch failed", "error", err)
	}

	prev := s.current.Load()
	next := &snapshot{
		sample:            sample,
		daylight:          daylight,
		adaptationEnabled: prev.adaptationEnabled,
		adaptiveEnabled:   prev.adaptiveEnabled,
	}
	s.current.Store(next)
	return nil
}

// Sample returns a copy of the latest environmental sample.
func (s *Service) Sample() types.EnvironmentalSample {
	return s.current.Load().sample
}

// Daylight returns a copy of the latest daylight info.
func (s *Service) Daylight() types.DaylightInfo {
	return s.current.Load().daylight
}

// Status returns the environmental slice of a scheduler Status
// snapshot (spec.md §6).
func (s *Service) Status() types.EnvironmentStatus {
	cur := s.current.Load()
	sunrise, sunset := cur.daylight.Sunrise, cur.daylight.Sunset
	return types.EnvironmentStatus{
		TemperatureC:      cur.sample.TemperatureC,
		HumidityPct:       cur.sample.HumidityPct,
		StationID:         cur.sample.StationID,
		StationName:       cur.sample.StationName,
		Sunrise:           &sunrise,
		Sunset:            &sunset,
		AdaptationEnabled: cur.adaptationEnabled,
		AdaptiveEnabled:   cur.adaptiveEnabled,
	}
}

// RefreshLoop runs Refresh on the given cadence until ctx is canceled,
// generalizing the teacher's runIntervals/runSchedules cancellation
// pattern (select on a timer vs. ctx.Done()) to a single periodic
// poller task, one per enabled source, per spec.md §5.
func (s *Service) RefreshLoop(ctx context.Context, every time.Duration) {
	if err := s.Refresh(ctx); err != nil {
		s.log.Warn("initial environmental refresh failed", "error", err)
	}
	for {
		select {
		case <-s.clk.After(every):
			if err := s.Refresh(ctx); err != nil {
				s.log.Warn("environmental refresh failed", "error", err)
			}
		case <-ctx.Done():
			return
		}
	}
}
