package commands

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"flotilla/internal/config"
	"flotilla/internal/logger"
)

// CatalogCommand creates the catalog inspection commands
func CatalogCommand(deps *Deps) *cobra.Command {
	catalogCmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect the service catalog",
	}

	var catalogPath string

	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate the service catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := catalogPath
			if path == "" {
				path = deps.Config.Catalog.Path
			}

			catalog, err := config.LoadCatalog(path)
			if err != nil {
				return err
			}

			warnings, err := catalog.Validate()
			for _, warning := range warnings {
				logger.Warn(warning)
			}
			if err != nil {
				return err
			}

			fmt.Printf("Catalog %s is valid (%d services, %d warnings)\n",
				path, len(catalog.Services), len(warnings))
			return nil
		},
	}
	validateCmd.Flags().StringVarP(&catalogPath, "file", "f", "", "Catalog file to validate (defaults to the configured catalog)")
	catalogCmd.AddCommand(validateCmd)

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Show the declared services",
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tVERSION\tPORT\tDEPENDENCIES\tHEALTH CHECK")
			for _, manifest := range deps.Registry.All() {
				healthCheck := "disabled"
				if manifest.HealthCheck.Enabled {
					healthCheck = manifest.HealthCheck.Endpoint
				}
				port := ""
				if manifest.Port != 0 {
					port = fmt.Sprintf("%d", manifest.Port)
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
					manifest.ID,
					manifest.Version,
					port,
					strings.Join(manifest.Dependencies, ","),
					healthCheck,
				)
			}
			return w.Flush()
		},
	}
	catalogCmd.AddCommand(showCmd)

	return catalogCmd
}
