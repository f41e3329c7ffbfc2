package device

import (
	"context"
	"sync"

	"github.com/flowbed/floodcycle/types"
)

// Mock is an in-memory Controller used by scheduling tests to assert on
// the sequence of commands issued, without a real network connection.
// Grounded on the teacher's style of table-driven tests over small
// recorder structs (internal/scheduling/*_test.go).
type Mock struct {
	mu       sync.Mutex
	address  string
	on       bool
	commands []string // "connect", "on", "off", "query"

	FailConnect  bool
	FailCommands int // number of subsequent command calls to fail before succeeding
}

// NewMock returns a Mock controller starting in the off state.
func NewMock(address string) *Mock {
	return &Mock{address: address}
}

func (m *Mock) Connect(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.commands = append(m.commands, "connect")
	if m.FailConnect {
		return &DeviceUnreachableStub{Address: m.address}
	}
	return nil
}

func (m *Mock) TurnOn(ctx context.Context) error {
	return m.command(ctx, "on", true)
}

func (m *Mock) TurnOff(ctx context.Context) error {
	return m.command(ctx, "off", false)
}

func (m *Mock) command(ctx context.Context, name string, want bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.commands = append(m.commands, name)
	if m.FailCommands > 0 {
		m.FailCommands--
		return &DeviceUnreachableStub{Address: m.address}
	}
	m.on = want
	return nil
}

func (m *Mock) IsOn(ctx context.Context) (*bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.commands = append(m.commands, "query")
	on := m.on
	return &on, nil
}

func (m *Mock) Address() string { return m.address }
func (m *Mock) Connected() bool { return true }

func (m *Mock) Snapshot() types.DeviceSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	on := m.on
	return types.DeviceSnapshot{Reachable: true, On: &on, Address: m.address}
}

// Commands returns the recorded command sequence for assertions.
func (m *Mock) Commands() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.commands))
	copy(out, m.commands)
	return out
}

// LastCommand returns the most recently issued command, or "" if none.
func (m *Mock) LastCommand() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.commands) == 0 {
		return ""
	}
	return m.commands[len(m.commands)-1]
}

// DeviceUnreachableStub is a minimal error used by Mock so device tests
// don't need to depend on the errors package's richer Cause chain.
type DeviceUnreachableStub struct {
	Address string
}

func (e *DeviceUnreachableStub) Error() string {
	return "mock device unreachable: " + e.Address
}
