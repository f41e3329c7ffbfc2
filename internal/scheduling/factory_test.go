package scheduling

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	flooderrors "github.com/flowbed/floodcycle/errors"
	"github.com/flowbed/floodcycle/internal/clock"
	"github.com/flowbed/floodcycle/internal/device"
	"github.com/flowbed/floodcycle/types"
)

func TestNewScheduler_DispatchesInterval(t *testing.T) {
	mock := device.NewMock("mock://pump")
	fake := clock.NewFake(time.Now())
	cfg := FactoryConfig{
		Type:     ScheduleInterval,
		Interval: IntervalConfig{FloodMinutes: 1, DrainMinutes: 1, IntervalMinutes: 5},
	}
	sched, err := NewScheduler(cfg, nil, mock, fake, testLogger())
	require.NoError(t, err)
	_, ok := sched.(*IntervalScheduler)
	assert.True(t, ok)
}

func TestNewScheduler_DispatchesTimeBased(t *testing.T) {
	mock := device.NewMock("mock://pump")
	fake := clock.NewFake(time.Now())
	cfg := FactoryConfig{
		Type: ScheduleTimeBased,
		TimeOfDay: TimeOfDayConfig{
			FloodMinutes: 5,
			Cycles:       []ConfiguredCycle{{OnTime: types.TimeOfDay{Hour: 6, Minute: 0}, OffMinutes: 30}},
		},
	}
	sched, err := NewScheduler(cfg, nil, mock, fake, testLogger())
	require.NoError(t, err)
	_, ok := sched.(*TimeOfDayScheduler)
	assert.True(t, ok)
}

func TestNewScheduler_NFTIsNotImplemented(t *testing.T) {
	mock := device.NewMock("mock://pump")
	fake := clock.NewFake(time.Now())
	_, err := NewScheduler(FactoryConfig{Type: ScheduleNFT}, nil, mock, fake, testLogger())
	assert.True(t, errors.Is(err, flooderrors.NotImplemented))
}

func TestNewScheduler_UnrecognizedTypeIsConfigurationError(t *testing.T) {
	mock := device.NewMock("mock://pump")
	fake := clock.NewFake(time.Now())
	_, err := NewScheduler(FactoryConfig{Type: "bogus"}, nil, mock, fake, testLogger())
	var cfgErr *flooderrors.ConfigurationError
	assert.ErrorAs(t, err, &cfgErr)
}
