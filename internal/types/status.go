package types

// StatusKind represents the process-level state reported by the supervisor
type StatusKind string

const (
	StatusRunning  StatusKind = "running"
	StatusExited   StatusKind = "exited"
	StatusNotFound StatusKind = "not_found"
	StatusError    StatusKind = "error"
)

// HealthState represents the probe-level state reported by the supervisor
type HealthState string

const (
	HealthHealthy   HealthState = "healthy"
	HealthUnhealthy HealthState = "unhealthy"
	// HealthNone means the service has no health probe configured
	HealthNone HealthState = "none"
	// HealthUnknown means the probe state could not be determined
	HealthUnknown HealthState = "unknown"
)

// ServiceStatus is a point-in-time snapshot of a service as seen by the
// process supervisor. Snapshots are produced fresh on every poll and never
// mutated in place.
type ServiceStatus struct {
	ID             string      `json:"id"`
	Status         StatusKind  `json:"status"`
	Running        bool        `json:"running"`
	Health         HealthState `json:"health"`
	ExitCode       *int        `json:"exit_code,omitempty"`
	PublishedPorts []string    `json:"published_ports,omitempty"`
}

// NotFoundStatus returns the canonical snapshot for a service the supervisor
// has no record of. "Never started" and "stopped and removed" look identical
// to callers.
func NotFoundStatus(id string) *ServiceStatus {
	return &ServiceStatus{
		ID:     id,
		Status: StatusNotFound,
		Health: HealthUnknown,
	}
}
