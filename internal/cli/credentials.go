package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/example/appraise/internal/core/tasktype"
	"github.com/example/appraise/internal/wire"
)

// CredentialsCmd returns the credentials command with all subcommands attached.
func CredentialsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "credentials",
		Short: "Manage annotator logins",
	}
	cmd.AddCommand(credentialsResetCmd())
	cmd.AddCommand(credentialsVerifyCmd())
	return cmd
}

func credentialsResetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset <username> <campaign>",
		Short: "Generate a new password for one annotator",
		Long: `Generate a new password for an annotator of a campaign. The old password
stops working immediately for new logins.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cred, err := wire.CredentialService().Reset(NewContext(), args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\t%s\n", color.New(color.FgGreen).Sprint("✓"), cred.Username, cred.Password)
			return nil
		},
	}
}

func credentialsVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify <token> <username> <campaign> <campaign-type>",
		Short: "Check a task confirmation token",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := tasktype.Lookup(args[3])
			if err != nil {
				return err
			}
			ok, err := wire.CredentialService().VerifyToken(args[0], args[1], args[2], h.Type())
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("token does not match %s in %s", args[1], args[2])
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s token valid\n", color.New(color.FgGreen).Sprint("✓"))
			return nil
		},
	}
}
