package services

import (
	"time"

	"github.com/SscSPs/erp_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/erp_ledger/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/erp_ledger/internal/core/ports/services"
	"github.com/SscSPs/erp_ledger/internal/platform/config"
)

// NewServiceContainer creates a new service container with properly initialized dependencies
func NewServiceContainer(cfg *config.Config, repos portsrepo.RepositoryProvider) *portssvc.ServiceContainer {
	return NewServiceContainerWithClock(cfg, repos, nil)
}

// NewServiceContainerWithClock is NewServiceContainer with every service reading time from clock.
func NewServiceContainerWithClock(cfg *config.Config, repos portsrepo.RepositoryProvider, clock func() time.Time) *portssvc.ServiceContainer {
	container := &portssvc.ServiceContainer{}

	// The audit recorder first since every other service appends to it
	container.Audit = NewAuditService(repos.AuditRepo, clock)

	container.Chart = NewChartService(
		repos.TxManager,
		repos.AccountRepo,
		repos.JournalRepo,
		WithAccountCache(cfg.AccountCacheSize, cfg.AccountCacheTTL),
		WithChartAuditor(container.Audit),
		WithChartClock(clock),
	)

	container.Period = NewPeriodService(
		repos.TxManager,
		repos.PeriodRepo,
		repos.JournalRepo,
		WithPeriodAuditor(container.Audit),
		WithPeriodClock(clock),
	)

	container.Ledger = NewLedgerService(
		repos.TxManager,
		repos.JournalRepo,
		container.Chart,
		container.Period,
		WithRateProvider(repos.ExchangeRateRepo),
		WithBaseCurrency(cfg.BaseCurrency),
		WithLedgerAuditor(container.Audit),
		WithLedgerClock(clock),
	)

	batchOptions := []BatchServiceOption{
		WithBatchConcurrency(cfg.BatchConcurrency),
		WithBatchWorkers(cfg.BatchWorkers),
		WithBatchAuditor(container.Audit),
		WithBatchClock(clock),
	}
	if cfg.BatchSync {
		batchOptions = append(batchOptions, WithSynchronousBatches())
	}
	container.Batch = NewBatchService(repos.TxManager, repos.BatchRepo, container.Ledger, batchOptions...)

	container.Reconciliation = NewReconciliationService(
		repos.TxManager,
		repos.ReconciliationRepo,
		repos.JournalRepo,
		container.Chart,
		WithMatchPolicy(domain.MatchPolicy{
			WindowDays:      cfg.ReconMatchWindowDays,
			AmountTolerance: cfg.ReconAmountTolerance,
		}),
		WithReconciliationAuditor(container.Audit),
		WithReconciliationClock(clock),
	)

	return container
}
