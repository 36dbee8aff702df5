// Package types provides common type definitions shared across flotilla layers
package types

// LifecycleConfig carries supervisor-specific start/stop parameters. The
// orchestration core never interprets these fields; they are passed through to
// the process supervisor verbatim.
type LifecycleConfig struct {
	ContainerName string `json:"container_name,omitempty" yaml:"container_name,omitempty"`
	StopTimeout   int    `json:"stop_timeout,omitempty" yaml:"stop_timeout,omitempty"`
}

// HealthCheckConfig declares whether and how a service's health is probed.
// The probe parameters themselves are opaque to the core and are configured on
// the container; the core only reads the probe result.
type HealthCheckConfig struct {
	Enabled  bool   `json:"enabled" yaml:"enabled"`
	Endpoint string `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
	Interval string `json:"interval,omitempty" yaml:"interval,omitempty"`
}

// ServiceManifest is the declared identity and shape of a managed service.
// Manifests are immutable once registered; re-registration replaces the whole
// manifest.
type ServiceManifest struct {
	ID           string            `json:"id" yaml:"id"`
	Version      string            `json:"version" yaml:"version"`
	Port         int               `json:"port,omitempty" yaml:"port,omitempty"`
	Dependencies []string          `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`
	Lifecycle    LifecycleConfig   `json:"lifecycle,omitempty" yaml:"lifecycle,omitempty"`
	HealthCheck  HealthCheckConfig `json:"health_check,omitempty" yaml:"health_check,omitempty"`
}

// ContainerName returns the supervisor-level name for the service. Manifests
// may override it via lifecycle config; the default is the service id.
func (m *ServiceManifest) ContainerName() string {
	if m.Lifecycle.ContainerName != "" {
		return m.Lifecycle.ContainerName
	}
	return m.ID
}

// Clone returns a deep copy so registry callers cannot mutate stored state.
func (m *ServiceManifest) Clone() *ServiceManifest {
	c := *m
	c.Dependencies = append([]string(nil), m.Dependencies...)
	return &c
}
