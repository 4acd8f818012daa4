package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/example/appraise/internal/adapters/annotclient"
	"github.com/example/appraise/internal/core/tasktype"
	"github.com/example/appraise/internal/wire"
)

// MakeAnnotationCmd returns the make-annotation command
func MakeAnnotationCmd() *cobra.Command {
	var baseURL string

	cmd := &cobra.Command{
		Use:   "make-annotation <user:password> <campaign-type>",
		Short: "Complete one task as an annotator",
		Long: `Fetch the annotator's next task and submit a score of 99 for it,
the way a browser session would. Useful for smoke-testing a campaign.

The login may separate user and password with any of " ,:/".
Without --url the task endpoints are served in-process.

Examples:
  appraise make-annotation engdeu0101:s3cret Direct
  appraise make-annotation "engdeu0101 s3cret" Pairwise --url http://127.0.0.1:8080`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			username, password, err := annotclient.ParseLogin(args[0])
			if err != nil {
				return err
			}
			h, err := tasktype.Lookup(args[1])
			if err != nil {
				return err
			}

			res, err := wire.AnnotationClient(baseURL).MakeAnnotation(NewContext(), username, password, h.Type())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s %s item %s (%s)\n", color.New(color.FgGreen).Sprint("✓"), res.URL, res.Receipt.ItemID, res.Task.Campaign)
			fmt.Fprintf(out, "  completed at %s\n", res.Receipt.CompletedAt)
			if res.Receipt.Token != "" {
				fmt.Fprintf(out, "  token %s\n", res.Receipt.Token)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&baseURL, "url", "", "Base URL of a running appraise serve")
	return cmd
}
