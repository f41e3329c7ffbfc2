package device

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/flowbed/floodcycle/internal/clock"
	"github.com/flowbed/floodcycle/internal/ids"
	"github.com/flowbed/floodcycle/types"

	flooderrors "github.com/flowbed/floodcycle/errors"
)

// commandRequest and commandResponse are the wire messages exchanged
// with the switched device's control channel, generalizing the
// teacher's BaseServiceRequest/ChannelMessage pair (internal/connect,
// internal/services) from a Home Assistant "call_service" envelope to a
// minimal on/off/query protocol.
type commandRequest struct {
	ID      int64  `json:"id"`
	Command string `json:"command"` // "on", "off", or "query"
}

type commandResponse struct {
	ID      int64 `json:"id"`
	Success bool  `json:"success"`
	On      *bool `json:"on,omitempty"`
}

// SwitchController is a Controller backed by a websocket control
// channel. Commands are serialized with a mutex, matching
// internal/connect.HAConnection.WriteMessage's guard, and every
// state-changing command is followed by a verification read per
// spec.md §4.4.1.
type SwitchController struct {
	address    string
	dialer     *websocket.Dialer
	discoverer Discoverer
	retry      RetryPolicy
	clk        clock.Clock
	log        *slog.Logger

	mu        sync.Mutex
	conn      *websocket.Conn
	connected bool
	lastOn    *bool
	lastSeen  *time.Time
}

// NewSwitchController constructs a controller for the actuator at
// address (a ws:// or wss:// URL). discoverer may be nil.
func NewSwitchController(address string, discoverer Discoverer, retry RetryPolicy, clk clock.Clock, log *slog.Logger) *SwitchController {
	return &SwitchController{
		address:    address,
		dialer:     websocket.DefaultDialer,
		discoverer: discoverer,
		retry:      retry,
		clk:        clk,
		log:        log,
	}
}

// Connect dials the control channel. If the initial dial fails and a
// Discoverer is configured, Connect invokes it once to obtain a
// replacement address and retries, per spec.md §4.4.2.
func (c *SwitchController) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.dial(ctx, c.address); err == nil {
		return nil
	} else if c.discoverer == nil {
		return &flooderrors.DeviceUnreachable{Address: c.address, Cause: err}
	} else {
		c.log.Warn("initial connect failed, attempting discovery", "address", c.address, "error", err)
	}

	newAddr, derr := c.discoverer.Discover(ctx)
	if derr != nil {
		return &flooderrors.DeviceUnreachable{Address: c.address, Cause: fmt.Errorf("discovery failed: %w", derr)}
	}
	if err := c.dial(ctx, newAddr); err != nil {
		return &flooderrors.DeviceUnreachable{Address: newAddr, Cause: err}
	}
	c.address = newAddr
	return nil
}

func (c *SwitchController) dial(ctx context.Context, address string) error {
	u, err := url.Parse(address)
	if err != nil {
		return fmt.Errorf("invalid device address %q: %w", address, err)
	}
	conn, _, err := c.dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		c.connected = false
		return err
	}
	if c.conn != nil {
		_ = c.conn.Close()
	}
	c.conn = conn
	c.connected = true
	return nil
}

// TurnOn commands the device on and verifies, retrying per the
// configured RetryPolicy.
func (c *SwitchController) TurnOn(ctx context.Context) error {
	return c.commandAndVerify(ctx, true)
}

// TurnOff commands the device off and verifies, retrying per the
// configured RetryPolicy. Per spec.md §4.4.4, the caller (the
// scheduler) always issues this on Stop regardless of connectivity.
func (c *SwitchController) TurnOff(ctx context.Context) error {
	return c.commandAndVerify(ctx, false)
}

func (c *SwitchController) commandAndVerify(ctx context.Context, want bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var lastObserved *bool
	var lastErr error

	for attempt := 1; attempt <= c.retry.MaxAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-c.clk.After(c.retry.backoffFor(attempt - 1)):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		if err := c.sendLocked(commandRequest{ID: ids.Next(), Command: onOffWord(want)}); err != nil {
			lastErr = err
			c.connected = false
			continue
		}

		observed, err := c.readStateLocked()
		if err != nil {
			lastErr = err
			c.connected = false
			continue
		}

		lastObserved = observed
		if observed != nil && *observed == want {
			now := c.clk.Now()
			c.lastOn = observed
			c.lastSeen = &now
			return nil
		}
		c.log.Warn("device state mismatch after command, retrying",
			"attempt", attempt, "requested", want, "observed", observed)
	}

	if lastObserved != nil {
		now := c.clk.Now()
		c.lastOn = lastObserved
		c.lastSeen = &now
	}
	if lastErr != nil {
		return &flooderrors.DeviceUnreachable{Address: c.address, Cause: lastErr}
	}
	return &flooderrors.DeviceStateMismatch{Requested: want, Observed: lastObserved}
}

// IsOn issues a query command and returns the verified state, or nil if
// it could not be determined.
func (c *SwitchController) IsOn(ctx context.Context) (*bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.sendLocked(commandRequest{ID: ids.Next(), Command: "query"}); err != nil {
		c.connected = false
		return nil, &flooderrors.DeviceUnreachable{Address: c.address, Cause: err}
	}
	observed, err := c.readStateLocked()
	if err != nil {
		c.connected = false
		return nil, &flooderrors.DeviceUnreachable{Address: c.address, Cause: err}
	}
	now := c.clk.Now()
	c.lastOn = observed
	c.lastSeen = &now
	return observed, nil
}

func (c *SwitchController) sendLocked(req commandRequest) error {
	if c.conn == nil {
		return fmt.Errorf("not connected")
	}
	return c.conn.WriteJSON(req)
}

func (c *SwitchController) readStateLocked() (*bool, error) {
	if c.conn == nil {
		return nil, fmt.Errorf("not connected")
	}
	_, raw, err := c.conn.ReadMessage()
	if err != nil {
		return nil, err
	}
	var resp commandResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("malformed device response: %w", err)
	}
	if !resp.Success {
		return nil, fmt.Errorf("device reported command failure")
	}
	return resp.On, nil
}

// Address returns the device's current control-channel address (which
// may have changed if discovery ran).
func (c *SwitchController) Address() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.address
}

// Connected reports whether the control channel is currently believed
// to be open.
func (c *SwitchController) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// Snapshot returns the current DeviceSnapshot for status reporting.
func (c *SwitchController) Snapshot() types.DeviceSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return types.DeviceSnapshot{
		Reachable:    c.connected,
		On:           c.lastOn,
		LastVerified: c.lastSeen,
		Address:      c.address,
	}
}

func onOffWord(on bool) string {
	if on {
		return "on"
	}
	return "off"
}
