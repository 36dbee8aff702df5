package commands

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"flotilla/internal/logger"
	"flotilla/internal/monitor"
)

// MonitorCommand creates the foreground health supervision command
func MonitorCommand(deps *Deps) *cobra.Command {
	var (
		interval            time.Duration
		autoRestart         bool
		maxRestartAttempts  int
		initialRestartDelay time.Duration
		backoffMultiplier   float64
	)

	monitorCmd := &cobra.Command{
		Use:   "monitor",
		Short: "Run the health supervision loop in the foreground",
		Long: `Periodically checks every service in the catalog, restarts unhealthy
services with exponential backoff, and stops dependents when a shared
dependency goes down. Runs until interrupted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := monitor.Options{
				CheckInterval:       interval,
				AutoRestart:         autoRestart,
				MaxRestartAttempts:  maxRestartAttempts,
				InitialRestartDelay: initialRestartDelay,
				BackoffMultiplier:   backoffMultiplier,
			}

			mon := monitor.New(deps.Registry, deps.Manager, deps.Bus, opts)
			mon.Start(cmd.Context())
			defer mon.Stop()

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
			select {
			case <-quit:
				logger.Info("Interrupted, stopping monitor")
			case <-cmd.Context().Done():
			}
			return nil
		},
	}

	cfg := deps.Config.Monitor
	monitorCmd.Flags().DurationVar(&interval, "interval", cfg.CheckInterval, "Health check interval")
	monitorCmd.Flags().BoolVar(&autoRestart, "auto-restart", cfg.AutoRestartEnabled(), "Automatically restart unhealthy services")
	monitorCmd.Flags().IntVar(&maxRestartAttempts, "max-restart-attempts", cfg.MaxRestartAttempts, "Restart attempts before giving up")
	monitorCmd.Flags().DurationVar(&initialRestartDelay, "initial-restart-delay", cfg.InitialRestartDelay, "Delay before the first restart attempt")
	monitorCmd.Flags().Float64Var(&backoffMultiplier, "backoff-multiplier", cfg.BackoffMultiplier, "Backoff growth factor between restart attempts")

	return monitorCmd
}
