// Package cli provides the appraise commands.
package cli

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/example/appraise/internal/config"
	"github.com/example/appraise/internal/logging"
	"github.com/example/appraise/internal/version"
	"github.com/example/appraise/internal/wire"
)

var (
	configFile string
	verbose    bool
	logger     = zap.NewNop()
)

// RootCmd returns the appraise root command with every subcommand attached.
func RootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "appraise",
		Short:   "Set up and run human evaluation campaigns",
		Version: version.String(),
		Long: `appraise registers annotation campaigns from a manifest, ingests batches
of items, assigns them to annotators, and issues login credentials.
It also serves the task endpoints annotators work against.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			settings, err := config.Load(configFile)
			if err != nil {
				return err
			}
			logger, err = logging.New(logging.Options{
				Level:   settings.Log.Level,
				File:    settings.Log.File,
				Verbose: verbose,
			})
			if err != nil {
				return err
			}
			wire.Configure(settings, logger)
			DetectAndStoreActor()
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file (default: ./appraise.yaml or ~/.appraise/appraise.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Debug logging")

	rootCmd.AddCommand(StartCampaignCmd())
	rootCmd.AddCommand(MakeAnnotationCmd())
	rootCmd.AddCommand(ServeCmd())
	rootCmd.AddCommand(CampaignCmd())
	rootCmd.AddCommand(CredentialsCmd())
	rootCmd.AddCommand(MigrateCmd())
	return rootCmd
}

// Shutdown closes the database and flushes the logger. main calls it once
// after the command returns.
func Shutdown() {
	if err := wire.Close(); err != nil {
		logger.Warn("failed to close database", zap.Error(err))
	}
	_ = logger.Sync()
}
