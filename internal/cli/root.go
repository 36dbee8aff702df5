package cli

import (
	"github.com/spf13/cobra"
)

// createRootCommand creates the root command with global flags
func createRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "flotilla",
		Short: "Service orchestration and health supervision for containerized services",
		Long: `flotilla manages a fleet of long-running containerized services: it starts
them in dependency order, watches their health, restarts failed services with
exponential backoff, and stops dependents before a shared dependency goes
down. Lifecycle events are journaled and streamed over the API.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Default to showing help if no subcommand
			return cmd.Help()
		},
	}

	return rootCmd
}
