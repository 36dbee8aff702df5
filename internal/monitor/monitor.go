// Package monitor runs the health supervision loop: it periodically samples
// every registered service through the lifecycle manager, detects health
// transitions, contains failures by cascade-stopping dependents, and drives
// automatic restarts with exponential backoff.
package monitor

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"flotilla/internal/constants"
	"flotilla/internal/events"
	"flotilla/internal/logger"
	"flotilla/internal/manager"
	"flotilla/internal/registry"
	"flotilla/internal/types"
)

// lifecycleManager is the slice of the manager the monitor drives
type lifecycleManager interface {
	GetServiceStatus(ctx context.Context, id string) (*types.ServiceStatus, error)
	RestartService(ctx context.Context, id string) (*manager.RestartResult, error)
	StopDependents(ctx context.Context, id string) []string
}

// Options tunes the supervision loop
type Options struct {
	CheckInterval       time.Duration
	AutoRestart         bool
	MaxRestartAttempts  int
	InitialRestartDelay time.Duration
	BackoffMultiplier   float64
}

// DefaultOptions returns the standard supervision tuning
func DefaultOptions() Options {
	return Options{
		CheckInterval:       constants.DefaultCheckInterval,
		AutoRestart:         true,
		MaxRestartAttempts:  constants.DefaultMaxRestartAttempts,
		InitialRestartDelay: constants.DefaultInitialRestartDelay,
		BackoffMultiplier:   constants.DefaultBackoffMultiplier,
	}
}

// healthState is the monitor's view of one service, with unknown as the
// synthetic prior before the first sample
type healthState int

const (
	stateUnknown healthState = iota
	stateHealthy
	stateUnhealthy
)

// restartTracker holds the bookkeeping of one unhealthy episode. At most one
// timer is pending per service at any time; the incident id groups all events
// of the episode.
type restartTracker struct {
	incident string
	attempts int
	timer    *time.Timer
	inFlight bool
	failed   bool
}

// Monitor is the health supervision loop
type Monitor struct {
	registry *registry.Registry
	manager  lifecycleManager
	bus      *events.Bus
	opts     Options

	mu       sync.Mutex
	states   map[string]healthState
	running  map[string]bool
	deployed map[string]bool
	trackers map[string]*restartTracker
	stopped  bool

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a monitor. The bus may not be nil; callers that do not care
// about events can subscribe nothing.
func New(reg *registry.Registry, mgr lifecycleManager, bus *events.Bus, opts Options) *Monitor {
	if opts.CheckInterval <= 0 {
		opts = DefaultOptions()
	}
	if opts.BackoffMultiplier <= 0 {
		opts.BackoffMultiplier = constants.DefaultBackoffMultiplier
	}
	return &Monitor{
		registry: reg,
		manager:  mgr,
		bus:      bus,
		opts:     opts,
		states:   make(map[string]healthState),
		running:  make(map[string]bool),
		deployed: make(map[string]bool),
		trackers: make(map[string]*restartTracker),
	}
}

// Start launches the supervision loop. It returns immediately; the loop runs
// until Stop is called or the context is cancelled.
func (m *Monitor) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	m.cancel = cancel

	m.wg.Add(1)
	go m.run(ctx)

	logger.WithFields(logger.Fields{
		"interval":     m.opts.CheckInterval.String(),
		"auto_restart": m.opts.AutoRestart,
	}).Info("Health monitor started")
}

// Stop halts the loop, cancels every pending restart timer and waits for
// in-flight work to finish
func (m *Monitor) Stop() {
	m.mu.Lock()
	m.stopped = true
	for _, tracker := range m.trackers {
		if tracker.timer != nil {
			tracker.timer.Stop()
			tracker.timer = nil
		}
	}
	m.mu.Unlock()

	if m.cancel != nil {
		m.cancel()
	}
	m.wg.Wait()
	logger.Info("Health monitor stopped")
}

func (m *Monitor) run(ctx context.Context) {
	defer m.wg.Done()

	ticker := time.NewTicker(m.opts.CheckInterval)
	defer ticker.Stop()

	m.sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.sweep(ctx)
		}
	}
}

// sweep samples every registered service concurrently and feeds the results
// through the transition logic. It returns once the whole pass is done so
// sweeps never overlap.
func (m *Monitor) sweep(ctx context.Context) {
	var wg sync.WaitGroup
	for _, manifest := range m.registry.All() {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			m.check(ctx, id)
		}(manifest.ID)
	}
	wg.Wait()
}

func (m *Monitor) check(ctx context.Context, id string) {
	status, err := m.manager.GetServiceStatus(ctx, id)
	if err != nil {
		logger.WithField("service", id).WithError(err).Warn("Health check could not query status")
		return
	}
	m.observe(ctx, id, status)
}

// isHealthy reduces a status snapshot to the monitor's binary signal. With a
// configured probe the probe verdict decides; without one a running process
// counts as healthy.
func isHealthy(status *types.ServiceStatus, probed bool) bool {
	if !status.Running {
		return false
	}
	if probed {
		return status.Health == types.HealthHealthy
	}
	return true
}

// observe applies one status sample, firing edge-triggered transitions
func (m *Monitor) observe(ctx context.Context, id string, status *types.ServiceStatus) {
	probed := false
	if manifest, err := m.registry.Get(id); err == nil {
		probed = manifest.HealthCheck.Enabled
	}
	next := stateUnhealthy
	if isHealthy(status, probed) {
		next = stateHealthy
	}

	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return
	}
	prev := m.states[id]
	m.states[id] = next
	m.running[id] = status.Running
	if status.Status != types.StatusNotFound {
		m.deployed[id] = true
	}
	m.mu.Unlock()

	if next == stateHealthy {
		if prev != stateHealthy {
			m.onHealthy(id, prev)
		}
		return
	}

	if prev != stateUnhealthy {
		m.onUnhealthy(ctx, id, status)
	} else if m.opts.AutoRestart {
		// Still unhealthy on a later sweep, keep driving the restart budget.
		m.scheduleRestart(ctx, id)
	}
}

// onHealthy handles a transition into healthy. Recoveries reset the restart
// budget; the very first healthy sample is silent.
func (m *Monitor) onHealthy(id string, prev healthState) {
	m.mu.Lock()
	if tracker, ok := m.trackers[id]; ok {
		if tracker.timer != nil {
			tracker.timer.Stop()
		}
		delete(m.trackers, id)
	}
	m.mu.Unlock()

	if prev != stateUnhealthy {
		return
	}

	logger.WithField("service", id).Info("Service recovered")
	m.bus.Publish(events.New(events.ServiceHealthy, id))
}

// onUnhealthy handles a transition into unhealthy: emit the event, contain
// the failure by stopping dependents when the process is confirmed down, and
// schedule an automatic restart when enabled.
func (m *Monitor) onUnhealthy(ctx context.Context, id string, status *types.ServiceStatus) {
	incident := m.openIncident(id)

	logger.WithFields(logger.Fields{
		"service":  id,
		"running":  status.Running,
		"incident": incident,
	}).Warn("Service became unhealthy")
	event := events.New(events.ServiceUnhealthy, id)
	event.Incident = incident
	m.bus.Publish(event)

	// A process that still runs but fails its probe may recover on its own;
	// dependents are only stopped once the process is confirmed down.
	if !status.Running {
		if stopped := m.manager.StopDependents(ctx, id); len(stopped) > 0 {
			event := events.New(events.DependencyCascade, id)
			event.Incident = incident
			event.Affected = stopped
			logger.WithFields(logger.Fields{
				"service":  id,
				"affected": stopped,
				"incident": incident,
			}).Warn("Stopped dependents of failed service")
			m.bus.Publish(event)
		}
	}

	if m.opts.AutoRestart {
		m.scheduleRestart(ctx, id)
	}
}

// scheduleRestart arms the restart timer for id with exponential backoff.
// When the attempt budget is exhausted it emits a single restart-failed event
// and gives up until the service recovers by other means.
func (m *Monitor) scheduleRestart(ctx context.Context, id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stopped {
		return
	}
	if !m.deployed[id] {
		// A service the supervisor has never had a record of cannot be
		// restarted into existence.
		return
	}

	tracker := m.trackerLocked(id)
	if tracker.timer != nil || tracker.inFlight {
		// A restart is already pending or running, never stack them.
		return
	}
	if tracker.attempts >= m.opts.MaxRestartAttempts {
		if !tracker.failed {
			tracker.failed = true
			logger.WithFields(logger.Fields{
				"service":  id,
				"attempts": tracker.attempts,
			}).Errorf("Giving up on automatic restarts")
			event := events.New(events.ServiceRestartFailed, id)
			event.Incident = tracker.incident
			event.Attempt = tracker.attempts
			m.bus.Publish(event)
		}
		return
	}

	delay := m.backoffDelay(tracker.attempts)
	logger.WithFields(logger.Fields{
		"service": id,
		"attempt": tracker.attempts + 1,
		"delay":   delay.String(),
	}).Info("Scheduling automatic restart")

	tracker.timer = time.AfterFunc(delay, func() {
		m.attemptRestart(ctx, id)
	})
}

// backoffDelay computes the delay before attempt number attempts+1
func (m *Monitor) backoffDelay(attempts int) time.Duration {
	factor := math.Pow(m.opts.BackoffMultiplier, float64(attempts))
	return time.Duration(float64(m.opts.InitialRestartDelay) * factor)
}

// attemptRestart fires when a restart timer expires. Restarts are deferred
// without consuming an attempt while any dependency is down, since restarting
// into a missing dependency would burn the budget for nothing.
func (m *Monitor) attemptRestart(ctx context.Context, id string) {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return
	}
	tracker, ok := m.trackers[id]
	if !ok {
		m.mu.Unlock()
		return
	}
	tracker.timer = nil
	deferred := m.dependencyDownLocked(id)
	if !deferred {
		tracker.inFlight = true
		m.wg.Add(1)
	}
	m.mu.Unlock()

	if deferred {
		logger.WithField("service", id).Info("Restart deferred, dependency is down")
		m.rearm(ctx, id)
		return
	}
	defer m.wg.Done()

	result, err := m.manager.RestartService(ctx, id)
	if err != nil {
		logger.WithField("service", id).WithError(err).Warn("Automatic restart failed")
		m.mu.Lock()
		if tracker, ok := m.trackers[id]; ok {
			tracker.attempts++
			tracker.inFlight = false
		}
		m.mu.Unlock()
		m.scheduleRestart(ctx, id)
		return
	}

	m.mu.Lock()
	attempt := 1
	incident := ""
	if tracker, ok := m.trackers[id]; ok {
		tracker.attempts++
		tracker.inFlight = false
		attempt = tracker.attempts
		incident = tracker.incident
	}
	m.mu.Unlock()

	if result.Degraded {
		logger.WithField("service", id).Warn("Service restarted but is not yet healthy")
	} else {
		logger.WithField("service", id).Info("Service restarted")
	}
	event := events.New(events.ServiceRestarted, id)
	event.Incident = incident
	event.Attempt = attempt
	m.bus.Publish(event)
}

// rearm re-schedules a deferred restart with the current backoff delay,
// without consuming an attempt
func (m *Monitor) rearm(ctx context.Context, id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopped {
		return
	}
	tracker, ok := m.trackers[id]
	if !ok || tracker.timer != nil {
		return
	}
	tracker.timer = time.AfterFunc(m.backoffDelay(tracker.attempts), func() {
		m.attemptRestart(ctx, id)
	})
}

// openIncident returns the incident id of the service's current unhealthy
// episode, opening a new one when none is active
func (m *Monitor) openIncident(id string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.trackerLocked(id).incident
}

// trackerLocked returns the service's episode tracker, creating it with a
// fresh incident id when absent. Callers hold m.mu.
func (m *Monitor) trackerLocked(id string) *restartTracker {
	tracker, ok := m.trackers[id]
	if !ok {
		tracker = &restartTracker{incident: uuid.New().String()}
		m.trackers[id] = tracker
	}
	return tracker
}

// dependencyDownLocked reports whether any dependency of id was not running
// at its last sample. Callers hold m.mu.
func (m *Monitor) dependencyDownLocked(id string) bool {
	for _, dep := range m.registry.ResolveDependencies(id) {
		if running, sampled := m.running[dep]; sampled && !running {
			return true
		}
	}
	return false
}
