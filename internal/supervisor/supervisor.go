// Package supervisor abstracts the external process supervisor that actually
// starts, stops and inspects the processes behind managed services. The
// orchestration core consumes this capability; it never implements process
// management itself.
package supervisor

import (
	"context"
	"os/exec"

	"flotilla/internal/types"
)

// Supervisor is the narrow contract the orchestration core depends on.
//
// Status must return a not_found snapshot rather than an error when the
// supervisor has no record of the id, so callers can treat "never started"
// uniformly with "stopped".
type Supervisor interface {
	Start(ctx context.Context, id string) error
	Stop(ctx context.Context, id string, timeoutSeconds int) error
	Status(ctx context.Context, id string) (*types.ServiceStatus, error)
}

// CommandExecutor abstracts command execution for testing
type CommandExecutor interface {
	CommandContext(ctx context.Context, name string, args ...string) *exec.Cmd
}

// DefaultCommandExecutor executes commands on the host
type DefaultCommandExecutor struct{}

func (e *DefaultCommandExecutor) CommandContext(ctx context.Context, name string, args ...string) *exec.Cmd {
	return exec.CommandContext(ctx, name, args...)
}
