package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/SscSPs/erp_ledger/internal/core/domain"
	portssvc "github.com/SscSPs/erp_ledger/internal/core/ports/services"
	"github.com/SscSPs/erp_ledger/pkg/database"
	"github.com/spf13/cobra"
)

func newMigrateCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or revert schema migrations",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			RunE: func(cmd *cobra.Command, args []string) error {
				return database.Migrate(a.logger, a.cfg.DatabaseURL, a.cfg.MigrationsPath, database.Up)
			},
		},
		&cobra.Command{
			Use:   "down",
			Short: "Revert the most recent migration",
			RunE: func(cmd *cobra.Command, args []string) error {
				return database.Migrate(a.logger, a.cfg.DatabaseURL, a.cfg.MigrationsPath, database.Down)
			},
		},
	)
	return cmd
}

func newResumeBatchesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "resume-batches",
		Short: "Process every PENDING or PROCESSING batch to completion",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withServices(cmd.Context(), func(svc *portssvc.ServiceContainer) error {
				n, err := svc.Batch.ResumeUnfinished(cmd.Context())
				if err != nil {
					return err
				}
				a.logger.Info("Batches resumed", slog.Int("count", n))
				return nil
			})
		},
	}
}

func newClosePeriodCmd(a *app) *cobra.Command {
	var companyID, userID string
	cmd := &cobra.Command{
		Use:     "close-period PERIOD_ID",
		Short:   "Close an accounting period",
		Example: `  ledgerctl close-period 3f1c... --company acme --user ops`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withServices(cmd.Context(), func(svc *portssvc.ServiceContainer) error {
				period, err := svc.Period.ClosePeriod(cmd.Context(), companyID, userID, args[0])
				if err != nil {
					return err
				}
				return printJSON(period)
			})
		},
	}
	cmd.Flags().StringVar(&companyID, "company", "", "Company the period belongs to")
	cmd.Flags().StringVar(&userID, "user", "ledgerctl", "User recorded as closing the period")
	_ = cmd.MarkFlagRequired("company")
	return cmd
}

func newAuditCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Read the audit trail",
	}

	var (
		companyID string
		filter    domain.AuditFilter
		action    string
		limit     int
		token     string
	)
	list := &cobra.Command{
		Use:   "list",
		Short: "List audit records, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			filter.Action = domain.AuditAction(action)
			var next *string
			if token != "" {
				next = &token
			}
			return a.withServices(cmd.Context(), func(svc *portssvc.ServiceContainer) error {
				records, nextToken, err := svc.Audit.List(cmd.Context(), companyID, filter, limit, next)
				if err != nil {
					return err
				}
				if err := printJSON(records); err != nil {
					return err
				}
				if nextToken != nil {
					fmt.Fprintf(os.Stderr, "next page: --token %s\n", *nextToken)
				}
				return nil
			})
		},
	}
	list.Flags().StringVar(&companyID, "company", "", "Company to list")
	list.Flags().StringVar(&filter.EntityType, "entity-type", "", "Only records of this entity type")
	list.Flags().StringVar(&filter.EntityID, "entity-id", "", "Only records of this entity")
	list.Flags().StringVar(&action, "action", "", "Only records of this action")
	list.Flags().IntVar(&limit, "limit", 50, "Page size")
	list.Flags().StringVar(&token, "token", "", "Token of the page to read")
	_ = list.MarkFlagRequired("company")

	cmd.AddCommand(list)
	return cmd
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
