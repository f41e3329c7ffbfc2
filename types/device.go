package types

import "time"

// DeviceSnapshot is a point-in-time read of the switched device's
// reachability and commanded state.
type DeviceSnapshot struct {
	Reachable    bool
	On           *bool // nil means the state could not be verified
	LastVerified *time.Time
	Address      string
}
