package commands

import (
	"github.com/spf13/cobra"

	"flotilla/internal/monitor"
	"flotilla/internal/server"
)

// ServerCommand creates the API server command
func ServerCommand(deps *Deps) *cobra.Command {
	var (
		port        int
		withMonitor bool
	)

	serverCmd := &cobra.Command{
		Use:   "server",
		Short: "Run the flotilla API server",
		Long: `Serves the service lifecycle API, the event journal and a websocket
stream of live lifecycle events. By default the health supervision loop runs
alongside the server.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := server.DefaultConfig()
			if port != 0 {
				cfg.Port = port
			} else if deps.Config.Server.Port != 0 {
				cfg.Port = deps.Config.Server.Port
			}

			if withMonitor {
				monitorCfg := deps.Config.Monitor
				mon := monitor.New(deps.Registry, deps.Manager, deps.Bus, monitor.Options{
					CheckInterval:       monitorCfg.CheckInterval,
					AutoRestart:         monitorCfg.AutoRestartEnabled(),
					MaxRestartAttempts:  monitorCfg.MaxRestartAttempts,
					InitialRestartDelay: monitorCfg.InitialRestartDelay,
					BackoffMultiplier:   monitorCfg.BackoffMultiplier,
				})
				mon.Start(cmd.Context())
				defer mon.Stop()
			}

			srv := server.New(cfg, deps.Ops, deps.Bus)
			return srv.Start(cmd.Context())
		},
	}

	serverCmd.Flags().IntVarP(&port, "port", "p", 0, "Port to listen on (defaults to the configured port)")
	serverCmd.Flags().BoolVar(&withMonitor, "monitor", true, "Run the health supervision loop alongside the server")

	return serverCmd
}
