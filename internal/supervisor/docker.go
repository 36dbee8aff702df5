package supervisor

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"flotilla/internal/errors"
	"flotilla/internal/types"
)

// DockerSupervisor realizes the Supervisor contract by shelling out to the
// docker CLI. Service ids map to container names.
type DockerSupervisor struct {
	executor CommandExecutor
}

// NewDocker creates a docker-backed supervisor
func NewDocker(executor CommandExecutor) *DockerSupervisor {
	if executor == nil {
		executor = &DefaultCommandExecutor{}
	}
	return &DockerSupervisor{executor: executor}
}

// IsAvailable checks if docker is available on the system
func (s *DockerSupervisor) IsAvailable(ctx context.Context) bool {
	cmd := s.executor.CommandContext(ctx, "docker", "--version")
	return cmd.Run() == nil
}

// Start issues a start command for the container backing id
func (s *DockerSupervisor) Start(ctx context.Context, id string) error {
	if err := validateID(id); err != nil {
		return err
	}
	cmd := s.executor.CommandContext(ctx, "docker", "start", id)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return errors.SupervisorFailure("start", id,
			fmt.Errorf("%w, output: %s", err, strings.TrimSpace(string(output))))
	}
	return nil
}

// Stop issues a graceful stop with the given timeout
func (s *DockerSupervisor) Stop(ctx context.Context, id string, timeoutSeconds int) error {
	if err := validateID(id); err != nil {
		return err
	}
	cmd := s.executor.CommandContext(ctx, "docker", "stop", "-t", fmt.Sprintf("%d", timeoutSeconds), id)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return errors.SupervisorFailure("stop", id,
			fmt.Errorf("%w, output: %s", err, strings.TrimSpace(string(output))))
	}
	return nil
}

// healthInfo mirrors docker's State.Health block
type healthInfo struct {
	Status string `json:"Status"`
}

// portBinding mirrors one entry of docker's NetworkSettings.Ports map
type portBinding struct {
	HostIP   string `json:"HostIp"`
	HostPort string `json:"HostPort"`
}

// inspectEntry is the subset of `docker inspect` output the core reads
type inspectEntry struct {
	State struct {
		Status   string      `json:"Status"`
		Running  bool        `json:"Running"`
		ExitCode int         `json:"ExitCode"`
		Health   *healthInfo `json:"Health"`
	} `json:"State"`
	NetworkSettings struct {
		Ports map[string][]portBinding `json:"Ports"`
	} `json:"NetworkSettings"`
}

// Status inspects the container backing id and returns a fresh snapshot.
// Unknown ids produce a not_found snapshot, never an error.
func (s *DockerSupervisor) Status(ctx context.Context, id string) (*types.ServiceStatus, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	cmd := s.executor.CommandContext(ctx, "docker", "inspect", id)
	output, err := cmd.CombinedOutput()
	if err != nil {
		if isNoSuchObject(string(output)) {
			return types.NotFoundStatus(id), nil
		}
		return nil, errors.SupervisorFailure("inspect", id,
			fmt.Errorf("%w, output: %s", err, strings.TrimSpace(string(output))))
	}

	var entries []inspectEntry
	if err := json.Unmarshal(output, &entries); err != nil {
		return nil, errors.SupervisorFailure("inspect", id,
			fmt.Errorf("unparseable inspect output: %w", err))
	}
	if len(entries) == 0 {
		return types.NotFoundStatus(id), nil
	}

	entry := entries[0]
	status := &types.ServiceStatus{
		ID:      id,
		Running: entry.State.Running,
		Health:  parseHealth(entry.State.Health),
	}

	if entry.State.Running {
		status.Status = types.StatusRunning
		status.PublishedPorts = parsePorts(entry.NetworkSettings.Ports)
	} else {
		status.Status = types.StatusExited
		exitCode := entry.State.ExitCode
		status.ExitCode = &exitCode
	}

	return status, nil
}

// isNoSuchObject recognizes docker's "no such container" failure, which is a
// normal not_found answer rather than a supervisor fault
func isNoSuchObject(output string) bool {
	return strings.Contains(output, "No such object") ||
		strings.Contains(output, "No such container")
}

func parseHealth(health *healthInfo) types.HealthState {
	if health == nil {
		return types.HealthNone
	}
	switch health.Status {
	case "healthy":
		return types.HealthHealthy
	case "unhealthy":
		return types.HealthUnhealthy
	default:
		// "starting" and anything docker adds later
		return types.HealthUnknown
	}
}

func parsePorts(ports map[string][]portBinding) []string {
	var out []string
	for containerPort, bindings := range ports {
		for _, b := range bindings {
			if b.HostPort == "" {
				continue
			}
			out = append(out, fmt.Sprintf("%s->%s", b.HostPort, containerPort))
		}
	}
	sort.Strings(out)
	return out
}
