// Package cli assembles the flotilla command tree over the shared operations
// layer
package cli

import (
	"context"

	"github.com/spf13/cobra"

	"flotilla/internal/cli/commands"
)

// Manager handles CLI operations
type Manager struct {
	deps    *commands.Deps
	rootCmd *cobra.Command
}

// New creates a new CLI manager wired to the given dependencies
func New(deps *commands.Deps) *Manager {
	m := &Manager{
		deps:    deps,
		rootCmd: createRootCommand(),
	}
	m.setupCommands()
	return m
}

// Execute executes the CLI with the given arguments
func (m *Manager) Execute(args []string) error {
	return m.ExecuteWithContext(context.Background(), args)
}

// ExecuteWithContext executes the CLI with the given arguments and context
func (m *Manager) ExecuteWithContext(ctx context.Context, args []string) error {
	m.rootCmd.SetArgs(args)
	return m.rootCmd.ExecuteContext(ctx)
}

// setupCommands sets up all CLI commands
func (m *Manager) setupCommands() {
	m.rootCmd.AddCommand(commands.ServiceCommand(m.deps))
	m.rootCmd.AddCommand(commands.CatalogCommand(m.deps))
	m.rootCmd.AddCommand(commands.EventsCommand(m.deps))
	m.rootCmd.AddCommand(commands.MonitorCommand(m.deps))
	m.rootCmd.AddCommand(commands.ServerCommand(m.deps))
}
