package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/example/appraise/internal/db"
	"github.com/example/appraise/internal/wire"
)

// MigrateCmd returns the migrate command
func MigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the campaign ledger",
		Long: `Apply pending schema migrations to the database at db.path.
Every other command does this on first use; migrate only reports it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := db.GetDB()
			if err != nil {
				return err
			}
			version, err := db.CurrentVersion(conn)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s at schema version %d\n", wire.Settings().DB.Path, version)
			return nil
		},
	}
}
