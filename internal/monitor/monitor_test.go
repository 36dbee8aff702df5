package monitor

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"flotilla/internal/events"
	"flotilla/internal/manager"
	"flotilla/internal/registry"
	"flotilla/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeManager is a scriptable lifecycle manager
type fakeManager struct {
	mu         sync.Mutex
	statuses   map[string]*types.ServiceStatus
	restarts   []string
	restartErr map[string]error
	// restartHeals flips the status to healthy after a successful restart
	restartHeals bool
	dependents   map[string][]string
	cascades     []string
}

func newFakeManager() *fakeManager {
	return &fakeManager{
		statuses:   make(map[string]*types.ServiceStatus),
		restartErr: make(map[string]error),
		dependents: make(map[string][]string),
	}
}

func (f *fakeManager) setStatus(id string, running bool, health types.HealthState) {
	f.mu.Lock()
	defer f.mu.Unlock()
	kind := types.StatusExited
	if running {
		kind = types.StatusRunning
	}
	f.statuses[id] = &types.ServiceStatus{ID: id, Status: kind, Running: running, Health: health}
}

func (f *fakeManager) GetServiceStatus(ctx context.Context, id string) (*types.ServiceStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if status, ok := f.statuses[id]; ok {
		copied := *status
		return &copied, nil
	}
	return types.NotFoundStatus(id), nil
}

func (f *fakeManager) RestartService(ctx context.Context, id string) (*manager.RestartResult, error) {
	f.mu.Lock()
	f.restarts = append(f.restarts, id)
	err := f.restartErr[id]
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	if f.restartHeals {
		f.setStatus(id, true, types.HealthHealthy)
	}
	return &manager.RestartResult{}, nil
}

func (f *fakeManager) StopDependents(ctx context.Context, id string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cascades = append(f.cascades, id)
	return f.dependents[id]
}

func (f *fakeManager) restartsOf(id string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, restarted := range f.restarts {
		if restarted == id {
			count++
		}
	}
	return count
}

func (f *fakeManager) cascadeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.cascades)
}

// collector records published events
type collector struct {
	mu     sync.Mutex
	events []events.Event
}

func (c *collector) handle(e events.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
}

func (c *collector) countOf(eventType events.Type, serviceID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	count := 0
	for _, e := range c.events {
		if e.Type == eventType && e.ServiceID == serviceID {
			count++
		}
	}
	return count
}

func (c *collector) firstOf(eventType events.Type) (events.Event, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, e := range c.events {
		if e.Type == eventType {
			return e, true
		}
	}
	return events.Event{}, false
}

func testMonitorOptions() Options {
	return Options{
		CheckInterval:       5 * time.Millisecond,
		AutoRestart:         true,
		MaxRestartAttempts:  3,
		InitialRestartDelay: time.Millisecond,
		BackoffMultiplier:   1.0,
	}
}

func setup(t *testing.T, opts Options, manifests ...*types.ServiceManifest) (*Monitor, *fakeManager, *collector) {
	t.Helper()
	reg := registry.New()
	for _, m := range manifests {
		require.NoError(t, reg.Register(m))
	}
	fake := newFakeManager()
	bus := events.NewBus()
	recorder := &collector{}
	bus.Subscribe(recorder.handle)
	return New(reg, fake, bus, opts), fake, recorder
}

func manifest(id string, deps ...string) *types.ServiceManifest {
	return &types.ServiceManifest{ID: id, Version: "1.0.0", Dependencies: deps}
}

// probedManifest declares a service whose health is decided by its probe
func probedManifest(id string, deps ...string) *types.ServiceManifest {
	m := manifest(id, deps...)
	m.HealthCheck = types.HealthCheckConfig{Enabled: true}
	return m
}

func sample(m *Monitor, id string, running bool, health types.HealthState) {
	kind := types.StatusExited
	if running {
		kind = types.StatusRunning
	}
	m.observe(context.Background(), id, &types.ServiceStatus{
		ID: id, Status: kind, Running: running, Health: health,
	})
}

func TestObserve_UnhealthyEdgeEmitsOnce(t *testing.T) {
	opts := testMonitorOptions()
	opts.AutoRestart = false
	mon, _, recorder := setup(t, opts, probedManifest("api"))

	sample(mon, "api", true, types.HealthUnhealthy)
	sample(mon, "api", true, types.HealthUnhealthy)
	sample(mon, "api", true, types.HealthUnhealthy)

	assert.Equal(t, 1, recorder.countOf(events.ServiceUnhealthy, "api"))
}

func TestObserve_FirstHealthySampleIsSilent(t *testing.T) {
	mon, _, recorder := setup(t, testMonitorOptions(), manifest("api"))

	sample(mon, "api", true, types.HealthHealthy)
	sample(mon, "api", true, types.HealthHealthy)

	assert.Equal(t, 0, recorder.countOf(events.ServiceHealthy, "api"))
}

func TestObserve_RecoveryEmitsHealthy(t *testing.T) {
	opts := testMonitorOptions()
	opts.AutoRestart = false
	mon, _, recorder := setup(t, opts, probedManifest("api"))

	sample(mon, "api", true, types.HealthUnhealthy)
	sample(mon, "api", true, types.HealthHealthy)

	assert.Equal(t, 1, recorder.countOf(events.ServiceHealthy, "api"))
}

func TestObserve_RunningWithoutProbeIsHealthy(t *testing.T) {
	opts := testMonitorOptions()
	opts.AutoRestart = false
	mon, _, recorder := setup(t, opts, manifest("api"))

	sample(mon, "api", true, types.HealthNone)
	sample(mon, "api", false, types.HealthNone)

	assert.Equal(t, 1, recorder.countOf(events.ServiceUnhealthy, "api"))
}

func TestObserve_ProbedServiceIsUnhealthyUntilProbeConfirms(t *testing.T) {
	opts := testMonitorOptions()
	opts.AutoRestart = false
	mon, _, recorder := setup(t, opts, probedManifest("api"))

	// The process is up but the probe has not reported healthy yet.
	sample(mon, "api", true, types.HealthUnknown)
	sample(mon, "api", true, types.HealthUnknown)

	assert.Equal(t, 1, recorder.countOf(events.ServiceUnhealthy, "api"))

	sample(mon, "api", true, types.HealthHealthy)
	assert.Equal(t, 1, recorder.countOf(events.ServiceHealthy, "api"))
}

func TestObserve_UnprobedServiceIgnoresStrayProbeState(t *testing.T) {
	opts := testMonitorOptions()
	opts.AutoRestart = false
	mon, _, recorder := setup(t, opts, manifest("api"))

	sample(mon, "api", true, types.HealthUnhealthy)

	assert.Equal(t, 0, recorder.countOf(events.ServiceUnhealthy, "api"))
}

func TestAutoRestart_RestartsAndEmits(t *testing.T) {
	mon, fake, recorder := setup(t, testMonitorOptions(), probedManifest("api"))
	fake.restartHeals = true

	sample(mon, "api", true, types.HealthUnhealthy)

	require.Eventually(t, func() bool {
		return fake.restartsOf("api") == 1
	}, time.Second, time.Millisecond)

	require.Eventually(t, func() bool {
		return recorder.countOf(events.ServiceRestarted, "api") == 1
	}, time.Second, time.Millisecond)

	restarted, ok := recorder.firstOf(events.ServiceRestarted)
	require.True(t, ok)
	assert.Equal(t, 1, restarted.Attempt)
	mon.Stop()
}

func TestAutoRestart_BudgetExhaustedEmitsFailureOnce(t *testing.T) {
	opts := testMonitorOptions()
	opts.MaxRestartAttempts = 2
	mon, fake, recorder := setup(t, opts, probedManifest("api"))
	fake.restartErr["api"] = fmt.Errorf("still broken")

	sample(mon, "api", true, types.HealthUnhealthy)

	require.Eventually(t, func() bool {
		return recorder.countOf(events.ServiceRestartFailed, "api") == 1
	}, time.Second, time.Millisecond)
	assert.Equal(t, 2, fake.restartsOf("api"))

	// Further unhealthy samples must not restart again or re-emit the failure.
	sample(mon, "api", true, types.HealthUnhealthy)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 2, fake.restartsOf("api"))
	assert.Equal(t, 1, recorder.countOf(events.ServiceRestartFailed, "api"))
	mon.Stop()
}

func TestAutoRestart_RecoveryResetsBudget(t *testing.T) {
	opts := testMonitorOptions()
	opts.MaxRestartAttempts = 1
	mon, fake, recorder := setup(t, opts, probedManifest("api"))
	fake.restartHeals = true

	sample(mon, "api", true, types.HealthUnhealthy)
	require.Eventually(t, func() bool {
		return fake.restartsOf("api") == 1
	}, time.Second, time.Millisecond)

	// Recovery clears the tracker, a later failure gets a fresh budget.
	sample(mon, "api", true, types.HealthHealthy)
	sample(mon, "api", true, types.HealthUnhealthy)
	require.Eventually(t, func() bool {
		return fake.restartsOf("api") == 2
	}, time.Second, time.Millisecond)
	assert.Equal(t, 0, recorder.countOf(events.ServiceRestartFailed, "api"))
	mon.Stop()
}

func TestCascade_StopsDependentsWhenProcessDown(t *testing.T) {
	opts := testMonitorOptions()
	opts.AutoRestart = false
	mon, fake, recorder := setup(t, opts,
		manifest("db"),
		manifest("api", "db"),
	)
	fake.dependents["db"] = []string{"api"}

	sample(mon, "db", false, types.HealthNone)
	sample(mon, "db", false, types.HealthNone)

	assert.Equal(t, 1, fake.cascadeCount(), "cascade fires on the edge only")
	require.Equal(t, 1, recorder.countOf(events.DependencyCascade, "db"))
	cascade, ok := recorder.firstOf(events.DependencyCascade)
	require.True(t, ok)
	assert.Equal(t, []string{"api"}, cascade.Affected)
}

func TestCascade_SkippedWhileProcessStillRuns(t *testing.T) {
	opts := testMonitorOptions()
	opts.AutoRestart = false
	mon, fake, recorder := setup(t, opts, probedManifest("db"), manifest("api", "db"))
	fake.dependents["db"] = []string{"api"}

	// Probe failure with the process up may recover on its own.
	sample(mon, "db", true, types.HealthUnhealthy)

	assert.Equal(t, 0, fake.cascadeCount())
	assert.Equal(t, 0, recorder.countOf(events.DependencyCascade, "db"))
}

func TestCascade_NoEventWithoutAffectedServices(t *testing.T) {
	opts := testMonitorOptions()
	opts.AutoRestart = false
	mon, fake, recorder := setup(t, opts, manifest("db"))

	sample(mon, "db", false, types.HealthNone)

	assert.Equal(t, 1, fake.cascadeCount())
	assert.Equal(t, 0, recorder.countOf(events.DependencyCascade, "db"))
}

func TestRestart_DeferredWhileDependencyDown(t *testing.T) {
	opts := testMonitorOptions()
	opts.MaxRestartAttempts = 1
	mon, fake, recorder := setup(t, opts, manifest("api", "db"))

	mon.mu.Lock()
	mon.running["db"] = false
	mon.mu.Unlock()

	sample(mon, "api", false, types.HealthNone)

	// The timer keeps re-arming without burning the single attempt.
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 0, fake.restartsOf("api"))
	assert.Equal(t, 0, recorder.countOf(events.ServiceRestartFailed, "api"))

	mon.mu.Lock()
	mon.running["db"] = true
	mon.mu.Unlock()

	require.Eventually(t, func() bool {
		return fake.restartsOf("api") == 1
	}, time.Second, time.Millisecond)
	assert.Equal(t, 0, recorder.countOf(events.ServiceRestartFailed, "api"))
	mon.Stop()
}

func TestAutoRestart_SkipsNeverDeployedService(t *testing.T) {
	mon, fake, recorder := setup(t, testMonitorOptions(), manifest("api"))

	// The supervisor has no record of the service; nothing exists to restart.
	mon.observe(context.Background(), "api", types.NotFoundStatus("api"))
	mon.observe(context.Background(), "api", types.NotFoundStatus("api"))

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 1, recorder.countOf(events.ServiceUnhealthy, "api"))
	assert.Equal(t, 0, fake.restartsOf("api"))
	assert.Equal(t, 0, recorder.countOf(events.ServiceRestartFailed, "api"))
}

func TestAutoRestart_RunningToNotFoundExhaustsBudget(t *testing.T) {
	mon, fake, recorder := setup(t, testMonitorOptions(), manifest("api"))
	fake.restartErr["api"] = fmt.Errorf("no such container")

	sample(mon, "api", true, types.HealthNone)
	mon.observe(context.Background(), "api", types.NotFoundStatus("api"))

	require.Eventually(t, func() bool {
		return recorder.countOf(events.ServiceRestartFailed, "api") == 1
	}, time.Second, time.Millisecond)
	assert.Equal(t, 3, fake.restartsOf("api"))

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 3, fake.restartsOf("api"))
	mon.Stop()
}

func TestIncident_GroupsEpisodeEvents(t *testing.T) {
	opts := testMonitorOptions()
	mon, fake, recorder := setup(t, opts, probedManifest("api"))
	fake.restartHeals = true

	sample(mon, "api", true, types.HealthUnhealthy)
	require.Eventually(t, func() bool {
		return recorder.countOf(events.ServiceRestarted, "api") == 1
	}, time.Second, time.Millisecond)

	unhealthy, ok := recorder.firstOf(events.ServiceUnhealthy)
	require.True(t, ok)
	restarted, ok := recorder.firstOf(events.ServiceRestarted)
	require.True(t, ok)

	assert.NotEmpty(t, unhealthy.Incident)
	assert.Equal(t, unhealthy.Incident, restarted.Incident)

	// Recovery closes the incident, the next episode gets a fresh id.
	sample(mon, "api", true, types.HealthHealthy)
	sample(mon, "api", true, types.HealthUnhealthy)

	recorder.mu.Lock()
	var second string
	for _, e := range recorder.events {
		if e.Type == events.ServiceUnhealthy && e.Incident != unhealthy.Incident {
			second = e.Incident
		}
	}
	recorder.mu.Unlock()
	assert.NotEmpty(t, second)
	mon.Stop()
}

func TestStop_CancelsPendingRestart(t *testing.T) {
	opts := testMonitorOptions()
	opts.InitialRestartDelay = 50 * time.Millisecond
	mon, fake, _ := setup(t, opts, probedManifest("api"))

	sample(mon, "api", true, types.HealthUnhealthy)
	mon.Stop()

	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, 0, fake.restartsOf("api"))
}

func TestLoop_SweepsAndRecovers(t *testing.T) {
	mon, fake, recorder := setup(t, testMonitorOptions(), probedManifest("api"))
	fake.restartHeals = true
	fake.setStatus("api", true, types.HealthUnhealthy)

	mon.Start(context.Background())
	defer mon.Stop()

	require.Eventually(t, func() bool {
		return recorder.countOf(events.ServiceUnhealthy, "api") == 1 &&
			recorder.countOf(events.ServiceRestarted, "api") == 1 &&
			recorder.countOf(events.ServiceHealthy, "api") == 1
	}, 2*time.Second, time.Millisecond)

	assert.Equal(t, 1, fake.restartsOf("api"))
}

func TestBackoffDelay(t *testing.T) {
	opts := testMonitorOptions()
	opts.InitialRestartDelay = 5 * time.Second
	opts.BackoffMultiplier = 2.0
	mon, _, _ := setup(t, opts, manifest("api"))

	assert.Equal(t, 5*time.Second, mon.backoffDelay(0))
	assert.Equal(t, 10*time.Second, mon.backoffDelay(1))
	assert.Equal(t, 20*time.Second, mon.backoffDelay(2))
}
