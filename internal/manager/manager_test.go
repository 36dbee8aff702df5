package manager

import (
	"context"
	"fmt"
	"testing"
	"time"

	"flotilla/internal/errors"
	"flotilla/internal/registry"
	"flotilla/internal/testutil"
	"flotilla/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testOptions() Options {
	return Options{
		StartPollAttempts:  3,
		StartPollDelay:     time.Millisecond,
		RestartSettleDelay: time.Millisecond,
		HealthPollAttempts: 3,
		HealthPollDelay:    time.Millisecond,
		StopTimeoutSeconds: 10,
	}
}

func manifest(id string, deps ...string) *types.ServiceManifest {
	return &types.ServiceManifest{
		ID:           id,
		Version:      "1.0.0",
		Dependencies: deps,
	}
}

func newManager(t *testing.T, manifests ...*types.ServiceManifest) (*Manager, *testutil.MockSupervisor) {
	t.Helper()
	reg := registry.New()
	for _, m := range manifests {
		require.NoError(t, reg.Register(m))
	}
	sup := testutil.NewMockSupervisor()
	return New(reg, sup, testOptions()), sup
}

func TestStartService_Converges(t *testing.T) {
	mgr, sup := newManager(t, manifest("postgres"))

	err := mgr.StartService(context.Background(), "postgres")
	require.NoError(t, err)

	assert.Equal(t, 1, sup.CallCount("Start"))
	assert.Equal(t, 1, sup.CallCount("Status"))
}

func TestStartService_ConvergesAfterSeveralPolls(t *testing.T) {
	mgr, sup := newManager(t, manifest("postgres"))

	polls := 0
	sup.StatusFn = func(ctx context.Context, id string) (*types.ServiceStatus, error) {
		polls++
		if polls < 3 {
			return &types.ServiceStatus{ID: id, Status: types.StatusExited, Health: types.HealthNone}, nil
		}
		return &types.ServiceStatus{ID: id, Status: types.StatusRunning, Running: true, Health: types.HealthNone}, nil
	}

	err := mgr.StartService(context.Background(), "postgres")
	require.NoError(t, err)
	assert.Equal(t, 3, polls)
}

func TestStartService_FailsFastOnNonZeroExit(t *testing.T) {
	mgr, sup := newManager(t, manifest("postgres"))

	exitCode := 1
	sup.StatusFn = func(ctx context.Context, id string) (*types.ServiceStatus, error) {
		return &types.ServiceStatus{
			ID:       id,
			Status:   types.StatusExited,
			Health:   types.HealthNone,
			ExitCode: &exitCode,
		}, nil
	}

	err := mgr.StartService(context.Background(), "postgres")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrStartFailed))
	// One status call, no further polling after a confirmed crash.
	assert.Equal(t, 1, sup.CallCount("Status"))
}

func TestStartService_ConvergenceTimeout(t *testing.T) {
	mgr, sup := newManager(t, manifest("postgres"))

	sup.StatusFn = func(ctx context.Context, id string) (*types.ServiceStatus, error) {
		// Created but never running, exit code still zero.
		return &types.ServiceStatus{ID: id, Status: types.StatusExited, Health: types.HealthNone}, nil
	}

	err := mgr.StartService(context.Background(), "postgres")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrConvergenceTimeout))
	assert.Equal(t, 3, sup.CallCount("Status"))
}

func TestStartService_UnknownService(t *testing.T) {
	mgr, sup := newManager(t)

	err := mgr.StartService(context.Background(), "ghost")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrServiceNotFound))
	assert.Equal(t, 0, sup.CallCount("Start"))
}

func TestStartWithDependencies_StartsInResolvedOrder(t *testing.T) {
	mgr, sup := newManager(t,
		manifest("postgres"),
		manifest("cache", "postgres"),
		manifest("api", "cache", "postgres"),
	)

	err := mgr.StartWithDependencies(context.Background(), "api")
	require.NoError(t, err)

	var started []string
	for _, call := range sup.Calls("Start") {
		started = append(started, call[0].(string))
	}
	assert.Equal(t, []string{"postgres", "cache", "api"}, started)
}

func TestStartWithDependencies_SkipsRunningDependency(t *testing.T) {
	mgr, sup := newManager(t,
		manifest("postgres"),
		manifest("api", "postgres"),
	)
	sup.SetRunning("postgres")

	err := mgr.StartWithDependencies(context.Background(), "api")
	require.NoError(t, err)

	var started []string
	for _, call := range sup.Calls("Start") {
		started = append(started, call[0].(string))
	}
	assert.Equal(t, []string{"api"}, started)
}

func TestStartWithDependencies_AlreadyRunningTargetIsNoop(t *testing.T) {
	mgr, sup := newManager(t, manifest("postgres"))
	sup.SetRunning("postgres")

	err := mgr.StartWithDependencies(context.Background(), "postgres")
	require.NoError(t, err)
	assert.Equal(t, 0, sup.CallCount("Start"))
}

func TestStartWithDependencies_AbortsOnFirstFailure(t *testing.T) {
	mgr, sup := newManager(t,
		manifest("postgres"),
		manifest("cache", "postgres"),
		manifest("api", "postgres", "cache"),
	)
	sup.StartErrors["postgres"] = fmt.Errorf("boom")

	err := mgr.StartWithDependencies(context.Background(), "api")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrDependencyFailed))

	// cache and api must never be attempted once postgres fails.
	var started []string
	for _, call := range sup.Calls("Start") {
		started = append(started, call[0].(string))
	}
	assert.Equal(t, []string{"postgres"}, started)
}

func TestStartWithDependencies_RefusesCycle(t *testing.T) {
	mgr, sup := newManager(t,
		manifest("a", "b"),
		manifest("b", "a"),
	)

	err := mgr.StartWithDependencies(context.Background(), "a")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCircularDependency))
	assert.Equal(t, 0, sup.CallCount("Start"))
}

func TestStopService_Running(t *testing.T) {
	mgr, sup := newManager(t, manifest("postgres"))
	sup.SetRunning("postgres")

	err := mgr.StopService(context.Background(), "postgres", 30)
	require.NoError(t, err)

	calls := sup.Calls("Stop")
	require.Len(t, calls, 1)
	assert.Equal(t, "postgres", calls[0][0])
	assert.Equal(t, 30, calls[0][1])
}

func TestStopService_AlreadyStoppedIsIdempotent(t *testing.T) {
	mgr, sup := newManager(t, manifest("postgres"))
	sup.SetExited("postgres", 0)

	err := mgr.StopService(context.Background(), "postgres", 0)
	require.NoError(t, err)
	assert.Equal(t, 0, sup.CallCount("Stop"), "stopped services must not receive a stop command")
}

func TestStopService_NeverStartedIsIdempotent(t *testing.T) {
	mgr, sup := newManager(t, manifest("postgres"))

	err := mgr.StopService(context.Background(), "postgres", 0)
	require.NoError(t, err)
	assert.Equal(t, 0, sup.CallCount("Stop"))
}

func TestStopService_DefaultTimeout(t *testing.T) {
	mgr, sup := newManager(t, manifest("postgres"))
	sup.SetRunning("postgres")

	err := mgr.StopService(context.Background(), "postgres", 0)
	require.NoError(t, err)

	calls := sup.Calls("Stop")
	require.Len(t, calls, 1)
	assert.Equal(t, 10, calls[0][1])
}

func TestStopDependents(t *testing.T) {
	mgr, sup := newManager(t,
		manifest("postgres"),
		manifest("cache", "postgres"),
		manifest("api", "cache"),
		manifest("metrics"),
	)
	sup.SetRunning("postgres")
	sup.SetRunning("cache")
	sup.SetRunning("api")
	sup.SetRunning("metrics")

	stopped := mgr.StopDependents(context.Background(), "postgres")
	assert.ElementsMatch(t, []string{"cache", "api"}, stopped)

	// metrics does not depend on postgres and must stay untouched
	for _, call := range sup.Calls("Stop") {
		assert.NotEqual(t, "metrics", call[0])
	}
}

func TestStopDependents_SkipsStoppedServices(t *testing.T) {
	mgr, sup := newManager(t,
		manifest("postgres"),
		manifest("cache", "postgres"),
		manifest("api", "postgres"),
	)
	sup.SetRunning("postgres")
	sup.SetRunning("api")
	sup.SetExited("cache", 0)

	stopped := mgr.StopDependents(context.Background(), "postgres")
	assert.Equal(t, []string{"api"}, stopped)
}

func TestRestartService_StopThenStart(t *testing.T) {
	mgr, sup := newManager(t, manifest("postgres"))
	sup.SetRunning("postgres")

	result, err := mgr.RestartService(context.Background(), "postgres")
	require.NoError(t, err)
	assert.False(t, result.Degraded)

	assert.Equal(t, 1, sup.CallCount("Stop"))
	assert.Equal(t, 1, sup.CallCount("Start"))
}

func TestRestartService_HealthConverges(t *testing.T) {
	m := manifest("api")
	m.HealthCheck = types.HealthCheckConfig{Enabled: true, Endpoint: "/healthz"}
	mgr, sup := newManager(t, m)

	healthPolls := 0
	sup.StatusFn = func(ctx context.Context, id string) (*types.ServiceStatus, error) {
		status := &types.ServiceStatus{ID: id, Status: types.StatusRunning, Running: true, Health: types.HealthUnknown}
		if sup.CallCount("Start") > 0 {
			healthPolls++
			if healthPolls > 2 {
				status.Health = types.HealthHealthy
			}
		}
		return status, nil
	}

	result, err := mgr.RestartService(context.Background(), "api")
	require.NoError(t, err)
	assert.False(t, result.Degraded)
}

func TestRestartService_DegradedWhenHealthNeverConverges(t *testing.T) {
	m := manifest("api")
	m.HealthCheck = types.HealthCheckConfig{Enabled: true, Endpoint: "/healthz"}
	mgr, sup := newManager(t, m)

	sup.StatusFn = func(ctx context.Context, id string) (*types.ServiceStatus, error) {
		return &types.ServiceStatus{
			ID:      id,
			Status:  types.StatusRunning,
			Running: true,
			Health:  types.HealthUnhealthy,
		}, nil
	}

	result, err := mgr.RestartService(context.Background(), "api")
	require.NoError(t, err, "a process that is up but unhealthy is a degraded success")
	assert.True(t, result.Degraded)
}

func TestGetServiceStatus_UsesContainerName(t *testing.T) {
	m := manifest("postgres")
	m.Lifecycle.ContainerName = "flotilla-postgres"
	mgr, sup := newManager(t, m)
	sup.SetRunning("flotilla-postgres")

	status, err := mgr.GetServiceStatus(context.Background(), "postgres")
	require.NoError(t, err)
	assert.Equal(t, "postgres", status.ID, "snapshots are keyed by service id")
	assert.True(t, status.Running)

	calls := sup.Calls("Status")
	require.Len(t, calls, 1)
	assert.Equal(t, "flotilla-postgres", calls[0][0])
}
