package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/SscSPs/erp_ledger/internal/adapters/database/pgsql"
	portssvc "github.com/SscSPs/erp_ledger/internal/core/ports/services"
	"github.com/SscSPs/erp_ledger/internal/core/services"
	"github.com/SscSPs/erp_ledger/internal/platform/config"
	"github.com/SscSPs/erp_ledger/pkg/database"
	"github.com/spf13/cobra"
)

var version = "1.0.0"

// app is what every subcommand shares: configuration and a logger.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "ledgerctl",
		Short: "Operational tasks for the ledger",
		Long: `ledgerctl runs maintenance tasks against the ledger's PostgreSQL database:
schema migrations, resuming interrupted batches, closing periods and reading
the audit trail. Configuration comes from the same environment as the server.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig()
			if err != nil {
				return err
			}
			if cfg.DatabaseURL == "" {
				return fmt.Errorf("PGSQL_URL environment variable is required")
			}
			a.cfg = cfg
			a.logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))
			slog.SetDefault(a.logger)
			return nil
		},
	}

	root.AddCommand(
		newMigrateCmd(a),
		newResumeBatchesCmd(a),
		newClosePeriodCmd(a),
		newAuditCmd(a),
	)
	return root
}

// withServices connects to the database and hands fn the service container.
// Batches run synchronously so a command returns only after its work is done.
func (a *app) withServices(ctx context.Context, fn func(*portssvc.ServiceContainer) error) error {
	pool, err := database.NewPgxPool(ctx, a.cfg.DatabaseURL, true)
	if err != nil {
		return err
	}
	defer database.ClosePgxPool(pool)

	cfg := *a.cfg
	cfg.BatchSync = true
	return fn(services.NewServiceContainer(&cfg, pgsql.NewRepositoryProvider(pool)))
}
