package cli

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/example/appraise/internal/ports/primary"
	"github.com/example/appraise/internal/wire"
)

// CampaignCmd returns the campaign command with all subcommands attached.
func CampaignCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "campaign",
		Short: "Inspect campaigns",
	}
	cmd.AddCommand(campaignStatusCmd())
	cmd.AddCommand(campaignLogCmd())
	return cmd
}

func campaignStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <name>",
		Short: "Show batch progress and staffing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := wire.CampaignStatusService().CampaignStatus(NewContext(), args[0])
			if err != nil {
				return err
			}
			printCampaignStatus(cmd.OutOrStdout(), status)
			return nil
		},
	}
}

func printCampaignStatus(out io.Writer, s *primary.CampaignStatus) {
	color.New(color.Bold).Fprintf(out, "%s", s.Name)
	fmt.Fprintf(out, " (%s, #%d, owner %s)\n", s.CampaignID, s.CampaignNo, s.Owner)
	fmt.Fprintf(out, "%d annotators\n\n", s.Annotators)

	if len(s.Batches) == 0 {
		fmt.Fprintln(out, "No batches registered.")
		return
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "BATCH\tFILE\tSTATUS\tTYPE\tITEMS\tDROPPED\tASSIGNED\tDONE\tSTAFFED")
	for _, b := range s.Batches {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\t%d\t%d\t%d/%d\n",
			b.BatchID, b.FileName, b.Status, b.TaskType,
			b.Items, b.Dropped, b.Assigned, b.Completed, b.FullyStaffed, b.Items)
	}
	w.Flush()
}

func campaignLogCmd() *cobra.Command {
	var filters primary.LogFilters

	cmd := &cobra.Command{
		Use:   "log <name>",
		Short: "Show what start-campaign runs changed",
		Long: `Show the audit trail of start-campaign runs for a campaign: entities
created and batch status changes, oldest first.

Examples:
  appraise campaign log wmt24
  appraise campaign log wmt24 --type batch -n 20`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filters.Campaign = args[0]
			entries, err := wire.LogService().ListLogs(NewContext(), filters)
			if err != nil {
				return fmt.Errorf("failed to fetch logs: %w", err)
			}
			printLogEntries(cmd.OutOrStdout(), entries)
			return nil
		},
	}

	cmd.Flags().StringVar(&filters.RunID, "run", "", "Filter by run ID")
	cmd.Flags().StringVar(&filters.EntityType, "type", "", "Filter by entity type (campaign, batch, credential)")
	cmd.Flags().IntVarP(&filters.Limit, "limit", "n", 50, "Number of entries to show")
	return cmd
}

func printLogEntries(out io.Writer, entries []*primary.LogEntry) {
	if len(entries) == 0 {
		fmt.Fprintln(out, "No log entries found.")
		return
	}

	// Print in reverse order (oldest first) for tail view
	for i := len(entries) - 1; i >= 0; i-- {
		printLogEntry(out, entries[i])
	}
}

func printLogEntry(out io.Writer, entry *primary.LogEntry) {
	// Format: timestamp | actor | action | entity_type/entity_id | detail
	actorStr := entry.ActorID
	if actorStr == "" {
		actorStr = "-"
	}

	fmt.Fprintf(out, "%s | %-12s | %s %-6s | %s/%s",
		formatTimestamp(entry.CreatedAt),
		actorStr,
		getActionIcon(entry.Action),
		entry.Action,
		entry.EntityType,
		entry.EntityID,
	)
	if entry.Detail != "" {
		fmt.Fprintf(out, " -> %s", entry.Detail)
	}
	fmt.Fprintln(out)
}

func getActionIcon(action string) string {
	switch action {
	case "create":
		return "+"
	case "status":
		return "~"
	default:
		return "?"
	}
}

func formatTimestamp(ts string) string {
	t, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		return ts
	}
	return t.Local().Format("2006-01-02 15:04:05")
}
