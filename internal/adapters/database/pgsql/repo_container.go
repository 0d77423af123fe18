package pgsql

import (
	portsrepo "github.com/SscSPs/erp_ledger/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5/pgxpool"
)

// NewRepositoryProvider creates a new RepositoryProvider with all the repositories
// sharing one pool and one transaction manager.
func NewRepositoryProvider(dbPool *pgxpool.Pool) portsrepo.RepositoryProvider {
	return portsrepo.RepositoryProvider{
		TxManager:          NewTxManager(dbPool),
		AccountRepo:        newPgxAccountRepository(dbPool),
		PeriodRepo:         newPgxPeriodRepository(dbPool),
		JournalRepo:        newPgxJournalRepository(dbPool),
		BatchRepo:          newPgxBatchRepository(dbPool),
		ReconciliationRepo: newPgxReconciliationRepository(dbPool),
		AuditRepo:          newPgxAuditRepository(dbPool),
		ExchangeRateRepo:   newPgxExchangeRateRepository(dbPool),
	}
}
