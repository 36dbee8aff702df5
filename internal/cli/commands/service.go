package commands

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"flotilla/internal/logger"
	"flotilla/internal/operations"
	"flotilla/internal/types"
)

// ServiceCommand creates the service management command tree
func ServiceCommand(deps *Deps) *cobra.Command {
	serviceCmd := &cobra.Command{
		Use:   "service",
		Short: "Manage services",
	}

	listCmd := &cobra.Command{
		Use:     "list",
		Short:   "List all services with their status",
		Aliases: []string{"ls"},
		RunE: func(cmd *cobra.Command, args []string) error {
			return listServices(cmd.Context(), deps.Ops)
		},
	}
	serviceCmd.AddCommand(listCmd)

	statusCmd := &cobra.Command{
		Use:   "status <service>",
		Short: "Show detailed status of a service",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return serviceStatus(cmd.Context(), deps.Ops, args[0])
		},
	}
	serviceCmd.AddCommand(statusCmd)

	startCmd := &cobra.Command{
		Use:   "start <service>",
		Short: "Start a service",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			withDeps, _ := cmd.Flags().GetBool("with-deps")
			if err := deps.Ops.StartService(cmd.Context(), args[0], withDeps); err != nil {
				return err
			}
			fmt.Printf("Started %s\n", args[0])
			return nil
		},
	}
	startCmd.Flags().Bool("with-deps", true, "Start transitive dependencies first")
	serviceCmd.AddCommand(startCmd)

	stopCmd := &cobra.Command{
		Use:   "stop <service>",
		Short: "Stop a service",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			withDependents, _ := cmd.Flags().GetBool("with-dependents")
			timeout, _ := cmd.Flags().GetInt("timeout")

			stopped, err := deps.Ops.StopService(cmd.Context(), args[0], withDependents, timeout)
			if len(stopped) > 0 {
				logger.WithField("services", strings.Join(stopped, ", ")).Info("Stopped dependents")
			}
			if err != nil {
				return err
			}
			fmt.Printf("Stopped %s\n", args[0])
			return nil
		},
	}
	stopCmd.Flags().Bool("with-dependents", false, "Stop dependent services first")
	stopCmd.Flags().IntP("timeout", "t", 0, "Graceful stop timeout in seconds (0 uses the default)")
	serviceCmd.AddCommand(stopCmd)

	restartCmd := &cobra.Command{
		Use:   "restart <service>",
		Short: "Restart a service",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := deps.Ops.RestartService(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if result.Degraded {
				fmt.Printf("Restarted %s (health check has not converged yet)\n", args[0])
			} else {
				fmt.Printf("Restarted %s\n", args[0])
			}
			return nil
		},
	}
	serviceCmd.AddCommand(restartCmd)

	depsCmd := &cobra.Command{
		Use:   "deps <service>",
		Short: "Show the ordered dependency closure of a service",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			order := deps.Ops.ResolveDependencies(args[0])
			if len(order) == 0 {
				fmt.Printf("%s has no dependencies\n", args[0])
				return nil
			}
			for i, dep := range order {
				fmt.Printf("%d. %s\n", i+1, dep)
			}
			return nil
		},
	}
	serviceCmd.AddCommand(depsCmd)

	return serviceCmd
}

func listServices(ctx context.Context, ops *operations.ServiceOperations) error {
	services, err := ops.ListServices(ctx)
	if err != nil {
		return err
	}
	if len(services) == 0 {
		fmt.Println("No services in the catalog")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tVERSION\tSTATUS\tHEALTH\tPORTS")
	for _, svc := range services {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			svc.Manifest.ID,
			svc.Manifest.Version,
			svc.Status.Status,
			svc.Status.Health,
			strings.Join(svc.Status.PublishedPorts, ","),
		)
	}
	return w.Flush()
}

func serviceStatus(ctx context.Context, ops *operations.ServiceOperations, id string) error {
	info, err := ops.GetService(ctx, id)
	if err != nil {
		return err
	}

	fmt.Printf("Service:      %s\n", info.Manifest.ID)
	fmt.Printf("Version:      %s\n", info.Manifest.Version)
	fmt.Printf("Status:       %s\n", info.Status.Status)
	fmt.Printf("Health:       %s\n", info.Status.Health)
	if info.Status.Status == types.StatusExited && info.Status.ExitCode != nil {
		fmt.Printf("Exit code:    %d\n", *info.Status.ExitCode)
	}
	if len(info.Status.PublishedPorts) > 0 {
		fmt.Printf("Ports:        %s\n", strings.Join(info.Status.PublishedPorts, ", "))
	}
	if len(info.Manifest.Dependencies) > 0 {
		fmt.Printf("Dependencies: %s\n", strings.Join(info.Manifest.Dependencies, ", "))
	}
	return nil
}
