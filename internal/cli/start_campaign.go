package cli

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/example/appraise/internal/core/tasktype"
	"github.com/example/appraise/internal/ports/primary"
	"github.com/example/appraise/internal/wire"
)

// StartCampaignCmd returns the start-campaign command
func StartCampaignCmd() *cobra.Command {
	var req primary.StartCampaignRequest

	cmd := &cobra.Command{
		Use:   "start-campaign <manifest> <campaign-type>",
		Short: "Register a campaign, ingest batches and issue credentials",
		Long: fmt.Sprintf(`Run every campaign setup stage from a manifest:

  1. create or reuse the campaign, team, annotators, markets and metadata
  2. register and validate batches from --batches-json
  3. assign items to annotators up to the task quota
  4. issue login credentials and export them

Every stage commits on its own. Running the command again with the same
inputs creates nothing new and finishes stages a failed run left undone.

Campaign types: %s

Examples:
  appraise start-campaign manifest.json Direct --batches-json batches.json --csv-output logins.csv
  appraise start-campaign manifest.json Pairwise --xlsx-output logins.xlsx --task-confirmation-tokens`,
			strings.Join(tasktype.Names(), ", ")),
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			req.ManifestPath = args[0]
			req.TaskType = args[1]

			summary, err := wire.PipelineService().StartCampaign(NewContext(), req)
			if summary != nil {
				printRunSummary(cmd.OutOrStdout(), summary)
			}
			return err
		},
	}

	cmd.Flags().StringVar(&req.BatchesPath, "batches-json", "", "Batch file (JSON, CSV or TSV)")
	cmd.Flags().StringVar(&req.CSVOutput, "csv-output", "", "Write credentials to this .csv file")
	cmd.Flags().StringVar(&req.XLSXOutput, "xlsx-output", "", "Write credentials to this .xlsx file")
	cmd.Flags().BoolVar(&req.IncludeCompleted, "include-completed", false, "Also staff inactive annotators and top up items with completed work")
	cmd.Flags().BoolVar(&req.ConfirmationTokens, "task-confirmation-tokens", false, "Issue task confirmation tokens (needs secret_key)")
	cmd.Flags().IntVar(&req.MaxCount, "max-count", 0, "Process at most N new batches (0 = no limit)")

	return cmd
}

func printRunSummary(out io.Writer, s *primary.RunSummary) {
	bold := color.New(color.Bold)
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)

	fmt.Fprintln(out)
	if s.Campaign != nil {
		bold.Fprintf(out, "Campaign %s", s.Campaign.Name)
		fmt.Fprintf(out, " (%s, owner %s)\n", s.Campaign.CampaignID, s.Campaign.Owner)

		kinds := make([]string, 0, len(s.Campaign.Counts))
		for k := range s.Campaign.Counts {
			kinds = append(kinds, k)
		}
		sort.Strings(kinds)
		for _, k := range kinds {
			t := s.Campaign.Counts[k]
			fmt.Fprintf(out, "  %-10s %s created, %d reused\n", k, green.Sprint(t.Created), t.Reused)
		}
	}

	if s.Ingest != nil && len(s.Ingest.Batches) > 0 {
		fmt.Fprintln(out)
		bold.Fprintln(out, "Batches")
		for _, b := range s.Ingest.Batches {
			state := b.Status
			if !b.Created {
				state += " (reused)"
			}
			fmt.Fprintf(out, "  %-10s %-32s %s  %d items", b.BatchID, b.FileName, statusColor(b.Status).Sprint(state), b.Items)
			if b.Dropped > 0 {
				fmt.Fprintf(out, ", %s dropped", yellow.Sprint(b.Dropped))
			}
			fmt.Fprintln(out)
			for _, v := range b.Violations {
				fmt.Fprintf(out, "      %s\n", v)
			}
		}
	}

	if s.Agenda != nil && len(s.Agenda.Batches) > 0 {
		fmt.Fprintln(out)
		bold.Fprintln(out, "Agendas")
		for _, b := range s.Agenda.Batches {
			marker := yellow.Sprint("short")
			if b.Staffed {
				marker = green.Sprint("staffed")
			}
			fmt.Fprintf(out, "  %-10s %s  %d assigned, %d planned, pool %d\n", b.BatchID, marker, b.Assigned, b.Planned, b.Pool)
		}
	}

	if len(s.Credentials) > 0 {
		created := 0
		for _, c := range s.Credentials {
			if c.Created {
				created++
			}
		}
		fmt.Fprintln(out)
		bold.Fprintln(out, "Credentials")
		fmt.Fprintf(out, "  %d annotators, %s new\n", len(s.Credentials), green.Sprint(created))
		for _, path := range s.Exported {
			fmt.Fprintf(out, "  written to %s\n", path)
		}
	}

	if len(s.Warnings) > 0 {
		fmt.Fprintln(out)
		yellow.Fprintf(out, "%d warning(s):\n", len(s.Warnings))
		for _, w := range s.Warnings {
			fmt.Fprintf(out, "  ! %s\n", w)
		}
	}
	fmt.Fprintf(out, "\nrun %s\n", s.RunID)
}

func statusColor(status string) *color.Color {
	switch status {
	case "validated", "staffed":
		return color.New(color.FgGreen)
	case "invalid":
		return color.New(color.FgRed)
	default:
		return color.New(color.FgYellow)
	}
}
