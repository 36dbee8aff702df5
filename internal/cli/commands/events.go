package commands

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"flotilla/internal/db"
)

// EventsCommand creates the event journal listing command
func EventsCommand(deps *Deps) *cobra.Command {
	var (
		serviceID string
		eventType string
		page      int
		pageSize  int
	)

	eventsCmd := &cobra.Command{
		Use:   "events",
		Short: "List journaled lifecycle events",
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := db.EventFilter{ServiceID: serviceID, Type: eventType}
			options := db.DefaultPaginationOptions()
			options.Page = page
			options.PageSize = pageSize

			result, err := deps.Ops.ListEvents(cmd.Context(), filter, options)
			if err != nil {
				return err
			}
			if result.TotalItems == 0 {
				fmt.Println("No events recorded")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "TIME\tTYPE\tSERVICE\tDETAILS")
			for _, record := range result.Data {
				details := ""
				if record.Attempt > 0 {
					details = fmt.Sprintf("attempt %d", record.Attempt)
				}
				if affected := record.AffectedServices(); len(affected) > 0 {
					details = "stopped " + strings.Join(affected, ", ")
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
					record.CreatedAt.Local().Format(time.RFC3339),
					record.Type,
					record.ServiceID,
					details,
				)
			}
			if err := w.Flush(); err != nil {
				return err
			}

			fmt.Printf("\nPage %d of %d (%d events)\n", result.Page, result.TotalPages, result.TotalItems)
			return nil
		},
	}

	eventsCmd.Flags().StringVarP(&serviceID, "service", "s", "", "Filter by service id")
	eventsCmd.Flags().StringVar(&eventType, "type", "", "Filter by event type")
	eventsCmd.Flags().IntVar(&page, "page", 1, "Page number")
	eventsCmd.Flags().IntVar(&pageSize, "page-size", 20, "Events per page")

	return eventsCmd
}
