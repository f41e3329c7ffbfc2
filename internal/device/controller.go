// Package device implements the narrow device-control contract of
// spec.md §4.4: connect, command, and verify a single electrically
// switched actuator, with the retry/backoff and serialization policy
// the spec requires.
package device

import (
	"context"
	"time"

	"github.com/flowbed/floodcycle/types"
)

// Controller is the contract the scheduling engine drives. Commands are
// serialized per device: implementations must guarantee that concurrent
// callers observe strict ordering (spec.md §4.4.3, §5).
type Controller interface {
	Connect(ctx context.Context) error
	TurnOn(ctx context.Context) error
	TurnOff(ctx context.Context) error
	IsOn(ctx context.Context) (*bool, error) // nil = unknown
	Address() string
	Connected() bool
	Snapshot() types.DeviceSnapshot
}

// Discoverer is the optional LAN auto-discovery collaborator. The core
// calls it at most once per startup attempt, per spec.md §4.4.2; the
// discovery protocol itself is out of scope (spec.md §1).
type Discoverer interface {
	Discover(ctx context.Context) (address string, err error)
}

// RetryPolicy configures the verify-and-retry loop of spec.md §4.4.1.
type RetryPolicy struct {
	MaxAttempts     int
	InitialBackoff  time.Duration
	MaxBackoff      time.Duration
	BackoffMultiple float64
}

// DefaultRetryPolicy matches spec.md §4.4's defaults: N_verify=3,
// 250ms initial backoff, doubling, capped at 2s.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:     3,
		InitialBackoff:  250 * time.Millisecond,
		MaxBackoff:      2 * time.Second,
		BackoffMultiple: 2,
	}
}

// backoffFor returns the backoff duration before retry attempt n
// (1-indexed: the delay before the 2nd attempt is backoffFor(1)).
func (p RetryPolicy) backoffFor(n int) time.Duration {
	d := p.InitialBackoff
	for i := 1; i < n; i++ {
		d = time.Duration(float64(d) * p.BackoffMultiple)
		if d > p.MaxBackoff {
			return p.MaxBackoff
		}
	}
	if d > p.MaxBackoff {
		d = p.MaxBackoff
	}
	return d
}
