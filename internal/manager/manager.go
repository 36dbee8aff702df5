// Package manager performs service lifecycle operations against the process
// supervisor, using the registry's resolver to order multi-service operations
// and to find dependents for cascade-stop.
package manager

import (
	"context"
	"fmt"
	"time"

	"flotilla/internal/constants"
	"flotilla/internal/errors"
	"flotilla/internal/logger"
	"flotilla/internal/registry"
	"flotilla/internal/supervisor"
	"flotilla/internal/types"
)

// Options bounds the convergence loops. Timeouts here are attempt budgets
// with fixed inter-attempt delays, not wall-clock deadlines; the caller's
// context provides cancellation.
type Options struct {
	StartPollAttempts  int
	StartPollDelay     time.Duration
	RestartSettleDelay time.Duration
	HealthPollAttempts int
	HealthPollDelay    time.Duration
	StopTimeoutSeconds int
}

// DefaultOptions returns the standard lifecycle budgets
func DefaultOptions() Options {
	return Options{
		StartPollAttempts:  constants.DefaultStartPollAttempts,
		StartPollDelay:     constants.DefaultStartPollDelay,
		RestartSettleDelay: constants.DefaultRestartSettleDelay,
		HealthPollAttempts: constants.DefaultHealthPollAttempts,
		HealthPollDelay:    constants.DefaultHealthPollDelay,
		StopTimeoutSeconds: constants.DefaultStopTimeoutSeconds,
	}
}

// RestartResult reports the outcome of a restart. Degraded means the process
// came back up but never reached its configured health check within the
// attempt budget; it is a success for attempt-counting purposes.
type RestartResult struct {
	Degraded bool
}

// Manager handles service lifecycle operations
type Manager struct {
	registry *registry.Registry
	sup      supervisor.Supervisor
	opts     Options
}

// New creates a new service manager
func New(reg *registry.Registry, sup supervisor.Supervisor, opts Options) *Manager {
	if opts.StartPollAttempts <= 0 {
		opts = DefaultOptions()
	}
	return &Manager{
		registry: reg,
		sup:      sup,
		opts:     opts,
	}
}

// GetServiceStatus is a read-through to the supervisor. Unknown services
// yield a not_found snapshot; only supervisor faults produce an error.
func (m *Manager) GetServiceStatus(ctx context.Context, id string) (*types.ServiceStatus, error) {
	status, err := m.sup.Status(ctx, m.containerName(id))
	if err != nil {
		return nil, err
	}
	// Snapshots are keyed by service id, not supervisor-level name.
	status.ID = id
	return status, nil
}

// containerName maps a service id to its supervisor-level name. Unregistered
// ids map to themselves.
func (m *Manager) containerName(id string) string {
	if manifest, err := m.registry.Get(id); err == nil {
		return manifest.ContainerName()
	}
	return id
}

// StartService issues a start command, then polls supervisor status up to a
// bounded number of attempts until running is observed. A non-zero exit
// before reaching running fails immediately; an exhausted budget fails with a
// convergence timeout.
func (m *Manager) StartService(ctx context.Context, id string) error {
	manifest, err := m.registry.Get(id)
	if err != nil {
		return err
	}

	if err := m.sup.Start(ctx, manifest.ContainerName()); err != nil {
		return errors.StartFailed(id, err)
	}

	for attempt := 0; attempt < m.opts.StartPollAttempts; attempt++ {
		status, err := m.sup.Status(ctx, manifest.ContainerName())
		if err != nil {
			return errors.StartFailed(id, err)
		}

		if status.Running {
			logger.WithFields(logger.Fields{
				"service":  id,
				"attempts": attempt + 1,
			}).Debugf("Service reached running state")
			return nil
		}
		if status.Status == types.StatusExited && status.ExitCode != nil && *status.ExitCode != 0 {
			return errors.StartFailed(id,
				errors.NewWithDetails(errors.ErrStartFailed, "process exited before reaching running state",
					statusDetail(status)))
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(m.opts.StartPollDelay):
		}
	}

	return errors.ConvergenceTimeout(id, m.opts.StartPollAttempts)
}

// StartWithDependencies resolves the transitive dependencies of id and starts
// them strictly in resolved order before starting id itself. Already-running
// services are skipped. The whole operation aborts on the first failure;
// dependency failures are fatal to the parent start, not retried here.
func (m *Manager) StartWithDependencies(ctx context.Context, id string) error {
	if m.registry.HasCircularDependency(id) {
		return errors.CircularDependency(id, nil)
	}

	deps := m.registry.ResolveDependencies(id)
	for _, dep := range deps {
		status, err := m.sup.Status(ctx, m.containerName(dep))
		if err != nil {
			return errors.DependencyFailed(id, dep, err)
		}
		if status.Running {
			continue
		}
		if err := m.StartService(ctx, dep); err != nil {
			return errors.DependencyFailed(id, dep, err)
		}
	}

	status, err := m.sup.Status(ctx, m.containerName(id))
	if err != nil {
		return errors.StartFailed(id, err)
	}
	if status.Running {
		return nil
	}
	return m.StartService(ctx, id)
}

// StopService issues a graceful stop with the given timeout. Stopping an
// already-stopped service succeeds without a supervisor stop call.
func (m *Manager) StopService(ctx context.Context, id string, timeoutSeconds int) error {
	manifest, err := m.registry.Get(id)
	if err != nil {
		return err
	}

	status, err := m.sup.Status(ctx, manifest.ContainerName())
	if err != nil {
		return errors.StopFailed(id, err)
	}
	if !status.Running {
		return nil
	}

	if timeoutSeconds <= 0 {
		timeoutSeconds = m.opts.StopTimeoutSeconds
	}
	if err := m.sup.Stop(ctx, manifest.ContainerName(), timeoutSeconds); err != nil {
		return errors.StopFailed(id, err)
	}
	return nil
}

// StopDependents stops every service that transitively depends on id and
// returns the list actually stopped. Used to pre-empt cascading failures
// before a shared dependency goes down. Individual stop failures are logged
// and do not abort the rest of the sweep.
func (m *Manager) StopDependents(ctx context.Context, id string) []string {
	var stopped []string
	for _, dependent := range m.registry.Dependents(id) {
		status, err := m.sup.Status(ctx, m.containerName(dependent))
		if err != nil {
			logger.WithFields(logger.Fields{
				"service":   id,
				"dependent": dependent,
			}).WithError(err).Warn("Could not query dependent status during cascade stop")
			continue
		}
		if !status.Running {
			continue
		}
		if err := m.StopService(ctx, dependent, m.opts.StopTimeoutSeconds); err != nil {
			logger.WithFields(logger.Fields{
				"service":   id,
				"dependent": dependent,
			}).WithError(err).Warn("Failed to stop dependent during cascade stop")
			continue
		}
		stopped = append(stopped, dependent)
	}
	return stopped
}

// RestartService stops the service, waits a fixed settle delay, then starts
// it again. When the manifest enables health checking, the restart
// additionally polls health up to a bounded budget; a process that comes up
// but never reports healthy is a degraded success, not a failure.
func (m *Manager) RestartService(ctx context.Context, id string) (*RestartResult, error) {
	manifest, err := m.registry.Get(id)
	if err != nil {
		return nil, err
	}

	if err := m.StopService(ctx, id, m.opts.StopTimeoutSeconds); err != nil {
		return nil, err
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(m.opts.RestartSettleDelay):
	}

	if err := m.StartService(ctx, id); err != nil {
		return nil, err
	}

	if !manifest.HealthCheck.Enabled {
		return &RestartResult{}, nil
	}

	for attempt := 0; attempt < m.opts.HealthPollAttempts; attempt++ {
		status, err := m.sup.Status(ctx, manifest.ContainerName())
		if err == nil && status.Health == types.HealthHealthy {
			return &RestartResult{}, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(m.opts.HealthPollDelay):
		}
	}

	logger.WithFields(logger.Fields{
		"service":  id,
		"attempts": m.opts.HealthPollAttempts,
	}).Warn("Service restarted but health check did not converge")
	return &RestartResult{Degraded: true}, nil
}

func statusDetail(status *types.ServiceStatus) string {
	if status.ExitCode != nil {
		return fmt.Sprintf("exit code %d", *status.ExitCode)
	}
	return string(status.Status)
}
