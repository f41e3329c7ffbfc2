package scheduling

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowbed/floodcycle/internal/clock"
	"github.com/flowbed/floodcycle/internal/device"
	"github.com/flowbed/floodcycle/types"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// waitForCommandCount polls (with small real sleeps — the clock driving
// the scheduler itself is fake) until the mock has recorded at least n
// commands, or fails the test after timeout.
func waitForCommandCount(t *testing.T, mock *device.Mock, n int, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if len(mock.Commands()) >= n {
			time.Sleep(5 * time.Millisecond) // let the engine register its next wait
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d commands, got %v", n, mock.Commands())
}

// TestIntervalScheduler_S1BasicTimeline reproduces spec.md §8's S1:
// flood=1, drain=2, interval=4 minutes, no active hours.
func TestIntervalScheduler_S1BasicTimeline(t *testing.T) {
	mock := device.NewMock("mock://pump")
	fake := clock.NewFake(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	sched, err := NewIntervalScheduler(IntervalConfig{FloodMinutes: 1, DrainMinutes: 2, IntervalMinutes: 4}, mock, fake, testLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, sched.Start(ctx))

	waitForCommandCount(t, mock, 1, time.Second) // ON 00:00:00
	assert.Equal(t, "on", mock.LastCommand())

	fake.Advance(time.Minute) // -> 00:01:00, flood ends
	waitForCommandCount(t, mock, 2, time.Second)
	assert.Equal(t, "off", mock.LastCommand())

	fake.Advance(3 * time.Minute) // -> 00:04:00, through drain-end (00:03) to next on_time
	waitForCommandCount(t, mock, 3, time.Second)
	assert.Equal(t, "on", mock.LastCommand())

	fake.Advance(time.Minute) // -> 00:05:00
	waitForCommandCount(t, mock, 4, time.Second)
	assert.Equal(t, "off", mock.LastCommand())

	fake.Advance(3 * time.Minute) // -> 00:08:00
	waitForCommandCount(t, mock, 5, time.Second)
	assert.Equal(t, "on", mock.LastCommand())

	require.NoError(t, sched.Stop())
	cmds := mock.Commands()
	assert.Equal(t, "off", cmds[len(cmds)-1], "invariant 1: last command before Stop() is TurnOff")
}

// TestIntervalScheduler_S2ActiveHours reproduces spec.md §8's S2: the
// 00:00 cycle is suppressed by active_hours={00:05,00:10}, first ON at
// 00:05:00.
func TestIntervalScheduler_S2ActiveHours(t *testing.T) {
	mock := device.NewMock("mock://pump")
	fake := clock.NewFake(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	cfg := IntervalConfig{
		FloodMinutes:    1,
		DrainMinutes:    2,
		IntervalMinutes: 4,
		ActiveHours:     &types.TimeRange{Start: types.TimeOfDay{Hour: 0, Minute: 5}, End: types.TimeOfDay{Hour: 0, Minute: 10}},
	}
	sched, err := NewIntervalScheduler(cfg, mock, fake, testLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, sched.Start(ctx))

	// The 00:00 slot is suppressed; nothing should fire until 00:05.
	time.Sleep(5 * time.Millisecond)
	assert.Empty(t, mock.Commands())

	fake.Advance(5 * time.Minute) // -> 00:05:00
	waitForCommandCount(t, mock, 1, time.Second)
	assert.Equal(t, "on", mock.LastCommand())

	require.NoError(t, sched.Stop())
}

func TestIntervalScheduler_RejectsShortInterval(t *testing.T) {
	mock := device.NewMock("mock://pump")
	fake := clock.NewFake(time.Now())
	_, err := NewIntervalScheduler(IntervalConfig{FloodMinutes: 3, DrainMinutes: 3, IntervalMinutes: 4}, mock, fake, testLogger())
	assert.Error(t, err)
}

// invariant 2: two Start() calls with no intervening Stop() do not spawn
// a second worker.
func TestIntervalScheduler_StartIsIdempotent(t *testing.T) {
	mock := device.NewMock("mock://pump")
	fake := clock.NewFake(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	sched, err := NewIntervalScheduler(IntervalConfig{FloodMinutes: 1, DrainMinutes: 1, IntervalMinutes: 10}, mock, fake, testLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, sched.Start(ctx))
	require.NoError(t, sched.Start(ctx))

	waitForCommandCount(t, mock, 1, time.Second)
	// Only one worker running means only one "on" fired at t0, not two.
	onCount := 0
	for _, c := range mock.Commands() {
		if c == "on" {
			onCount++
		}
	}
	assert.Equal(t, 1, onCount)

	require.NoError(t, sched.Stop())
	require.NoError(t, sched.Stop()) // Stop is idempotent too
}
