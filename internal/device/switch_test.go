package device

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowbed/floodcycle/internal/clock"
)

// flappyDevice is a test control-channel server: it only reports its
// actual relay state as "on" once it has received onAttemptsToSucceed
// "on" commands, reproducing spec.md §8's S6 (the device reports OFF on
// the first two verification reads after a TurnOn, then ON on the
// third).
type flappyDevice struct {
	upgrader            websocket.Upgrader
	onAttemptsToSucceed int32
	onAttempts          int32
	actualOn            atomic.Bool
}

func newFlappyDevice(onAttemptsToSucceed int32) *flappyDevice {
	return &flappyDevice{onAttemptsToSucceed: onAttemptsToSucceed}
}

func (f *flappyDevice) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := f.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var req commandRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			return
		}
		switch req.Command {
		case "on":
			n := atomic.AddInt32(&f.onAttempts, 1)
			if n >= f.onAttemptsToSucceed {
				f.actualOn.Store(true)
			}
		case "off":
			f.actualOn.Store(false)
		}
		on := f.actualOn.Load()
		resp := commandResponse{ID: req.ID, Success: true, On: &on}
		payload, _ := json.Marshal(resp)
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			return
		}
	}
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// TestSwitchController_S6VerifyRetrySucceedsOnThirdAttempt reproduces
// spec.md §8's S6: a TurnOn whose first two verification reads report
// OFF succeeds on the third attempt, honoring the 250ms/500ms backoff
// schedule, without the caller ever observing an error.
func TestSwitchController_S6VerifyRetrySucceedsOnThirdAttempt(t *testing.T) {
	dev := newFlappyDevice(3)
	server := httptest.NewServer(dev)
	defer server.Close()

	ctrl := NewSwitchController(wsURL(server), nil, DefaultRetryPolicy(), clock.New(), discardLogger())
	ctx := context.Background()
	require.NoError(t, ctrl.Connect(ctx))

	start := time.Now()
	require.NoError(t, ctrl.TurnOn(ctx))
	elapsed := time.Since(start)

	assert.Equal(t, int32(3), atomic.LoadInt32(&dev.onAttempts))
	// Two backoffs were honored: 250ms then 500ms.
	assert.GreaterOrEqual(t, elapsed, 750*time.Millisecond)

	snap := ctrl.Snapshot()
	require.NotNil(t, snap.On)
	assert.True(t, *snap.On)
}

// TestSwitchController_ExhaustsRetryBudget reproduces the failure branch
// of the same flow: a device that never confirms ON within MaxAttempts
// surfaces a DeviceStateMismatch.
func TestSwitchController_ExhaustsRetryBudget(t *testing.T) {
	dev := newFlappyDevice(100) // never reaches the required attempt count
	server := httptest.NewServer(dev)
	defer server.Close()

	ctrl := NewSwitchController(wsURL(server), nil, DefaultRetryPolicy(), clock.New(), discardLogger())
	ctx := context.Background()
	require.NoError(t, ctrl.Connect(ctx))

	err := ctrl.TurnOn(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "device state mismatch")
}

// TestSwitchController_TurnOffSucceedsImmediately exercises a plain
// successful TurnOff against a device starting on.
func TestSwitchController_TurnOffSucceedsImmediately(t *testing.T) {
	dev := newFlappyDevice(1)
	dev.actualOn.Store(true)
	server := httptest.NewServer(dev)
	defer server.Close()

	ctrl := NewSwitchController(wsURL(server), nil, DefaultRetryPolicy(), clock.New(), discardLogger())
	ctx := context.Background()
	require.NoError(t, ctrl.Connect(ctx))
	require.NoError(t, ctrl.TurnOff(ctx))

	snap := ctrl.Snapshot()
	require.NotNil(t, snap.On)
	assert.False(t, *snap.On)
}
