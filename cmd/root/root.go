// Package root contains the root command for the application
package root

import (
	"fmt"

	"ledgercat/internal/config"
	"ledgercat/internal/logging"

	"github.com/spf13/cobra"
)

var (
	// Cfg is the loaded application configuration, available to all
	// subcommands after PersistentPreRunE.
	Cfg *config.Config

	// Log is the shared logger instance for commands
	Log logging.Logger = logging.NewLogrusAdapter("info", "text")

	dataDir  string
	logLevel string

	// Cmd is the root command
	Cmd = &cobra.Command{
		Use:   "ledgercat",
		Short: "A transaction ledger with automatic categorization.",
		Long: `ledgercat maintains a deduplicated ledger of bank transactions,
classifies them into a user-editable category taxonomy, and retrains
its classifier from the categorized ledger on demand.`,
		Run: func(cmd *cobra.Command, args []string) {
			Log.Info("Welcome to ledgercat!")
			Log.Info("Use --help to see available commands")
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.InitializeConfig()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}

			// Flags override config file and environment values
			if dataDir != "" {
				cfg.Data.Directory = dataDir
			}
			if logLevel != "" {
				cfg.Log.Level = logLevel
			}

			Cfg = cfg
			Log = logging.NewLogrusAdapter(cfg.Log.Level, cfg.Log.Format)
			return nil
		},
	}
)

// Init registers persistent flags on the root command.
func Init() {
	Cmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "Directory holding the ledger, taxonomy and model files")
	Cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
}
