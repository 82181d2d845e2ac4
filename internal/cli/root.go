// Package cli provides the owlynn operator commands.
package cli

import (
	"owlynn-be/internal/config"
	"owlynn-be/internal/pkg/logger"

	"github.com/spf13/cobra"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	cfg *config.Config
	log logger.ILogger
)

var rootCmd = &cobra.Command{
	Use:   "owlynn",
	Short: "Operator tools for the Owlynn assistant backend",
	Long: `Operator tools for the Owlynn assistant backend.

Run maintenance jobs against the configured stores, follow the event
stream, or smoke test a running API.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		cfg = config.Load()
		log = logger.NewZapLogger(cfg.App.LogFilePath, cfg.IsProduction())
	},
}

func init() {
	rootCmd.AddCommand(cleanupCmd)
	rootCmd.AddCommand(eventsCmd)
	rootCmd.AddCommand(smokeCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
