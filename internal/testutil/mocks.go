// Package testutil provides shared test doubles for flotilla packages
package testutil

import (
	"context"
	"sync"

	"flotilla/internal/types"
)

// MockSupervisor is an in-memory implementation of the process supervisor
// contract. Services transition between running and stopped through the same
// calls the real docker supervisor would receive, and every call is recorded
// so tests can assert on issued commands.
type MockSupervisor struct {
	mu       sync.Mutex
	statuses map[string]*types.ServiceStatus
	calls    map[string][][]interface{}

	// StartFn overrides Start when set
	StartFn func(ctx context.Context, id string) error
	// StopFn overrides Stop when set
	StopFn func(ctx context.Context, id string, timeoutSeconds int) error
	// StatusFn overrides Status when set
	StatusFn func(ctx context.Context, id string) (*types.ServiceStatus, error)

	// StartErrors fails Start for specific ids
	StartErrors map[string]error
	// StatusError fails every Status call when set
	StatusError error
}

// NewMockSupervisor creates an empty mock supervisor
func NewMockSupervisor() *MockSupervisor {
	return &MockSupervisor{
		statuses:    make(map[string]*types.ServiceStatus),
		calls:       make(map[string][][]interface{}),
		StartErrors: make(map[string]error),
	}
}

// SetStatus seeds the snapshot returned for id
func (m *MockSupervisor) SetStatus(id string, status *types.ServiceStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statuses[id] = status
}

// SetRunning seeds a healthy running snapshot for id
func (m *MockSupervisor) SetRunning(id string) {
	m.SetStatus(id, &types.ServiceStatus{
		ID:      id,
		Status:  types.StatusRunning,
		Running: true,
		Health:  types.HealthNone,
	})
}

// SetExited seeds an exited snapshot with the given exit code
func (m *MockSupervisor) SetExited(id string, exitCode int) {
	m.SetStatus(id, &types.ServiceStatus{
		ID:       id,
		Status:   types.StatusExited,
		Health:   types.HealthNone,
		ExitCode: &exitCode,
	})
}

// Calls returns the recorded argument lists for a method
func (m *MockSupervisor) Calls(method string) [][]interface{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]interface{}(nil), m.calls[method]...)
}

// CallCount returns how many times a method was invoked
func (m *MockSupervisor) CallCount(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls[method])
}

func (m *MockSupervisor) record(method string, args ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls[method] = append(m.calls[method], args)
}

// Start marks the service running unless configured to fail
func (m *MockSupervisor) Start(ctx context.Context, id string) error {
	m.record("Start", id)
	if m.StartFn != nil {
		return m.StartFn(ctx, id)
	}
	if err := m.StartErrors[id]; err != nil {
		return err
	}
	m.SetRunning(id)
	return nil
}

// Stop marks the service exited unless configured to fail
func (m *MockSupervisor) Stop(ctx context.Context, id string, timeoutSeconds int) error {
	m.record("Stop", id, timeoutSeconds)
	if m.StopFn != nil {
		return m.StopFn(ctx, id, timeoutSeconds)
	}
	m.SetExited(id, 0)
	return nil
}

// Status returns the seeded snapshot, or not_found when nothing was seeded
func (m *MockSupervisor) Status(ctx context.Context, id string) (*types.ServiceStatus, error) {
	m.record("Status", id)
	if m.StatusFn != nil {
		return m.StatusFn(ctx, id)
	}
	if m.StatusError != nil {
		return nil, m.StatusError
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	status, ok := m.statuses[id]
	if !ok {
		return types.NotFoundStatus(id), nil
	}
	copied := *status
	return &copied, nil
}
