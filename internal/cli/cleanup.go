package cli

import (
	"fmt"

	"owlynn-be/internal/repository/unitofwork"
	"owlynn-be/internal/service"
	"owlynn-be/pkg/database"
	"owlynn-be/pkg/events"
	pktNats "owlynn-be/pkg/nats"
	"owlynn-be/pkg/rag/memory"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var cleanupDays int

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Delete durable conversation snapshots older than --days",
	Long: `Delete durable conversation snapshots older than --days.

Only the relational tier is touched; fast tier entries expire on their own.

Examples:
  owlynn cleanup
  owlynn cleanup --days 7`,
	Args: cobra.NoArgs,
	RunE: runCleanup,
}

func init() {
	cleanupCmd.Flags().IntVarP(&cleanupDays, "days", "d", 0, "maximum snapshot age in days (default CLEANUP_MAX_AGE_DAYS)")
}

func runCleanup(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	db, err := database.NewGormDBFromDSN(cfg.DatabaseDSN())
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}

	mem := memory.NewManager(nil, memory.NewGormDurableStore(unitofwork.NewRepositoryFactory(db)), nil,
		memory.WithLogger(log),
	)

	var publisher events.Publisher
	if cfg.App.NatsURL != "" {
		p, err := pktNats.NewPublisher(cfg.App.NatsURL, log)
		if err != nil {
			color.Yellow("Events disabled: %v", err)
		} else {
			defer p.Close()
			publisher = p
		}
	}

	days := cleanupDays
	if days <= 0 {
		days = cfg.Memory.CleanupMaxAgeDays
	}

	svc := service.NewCleanupService(mem, publisher, cfg.Memory.CleanupSchedule, cfg.Memory.CleanupMaxAgeDays, log)
	n, err := svc.RunOnce(ctx, days)
	if err != nil {
		color.Red("Cleanup failed: %v", err)
		return err
	}

	color.Green("Removed %d conversation snapshots older than %d days", n, days)
	return nil
}
