package repositories

import (
	"context"
	"time"

	"github.com/SscSPs/erp_ledger/internal/core/domain"
)

// ReconciliationReader defines read operations for reconciliations
type ReconciliationReader interface {
	// FindReconciliationByID retrieves a reconciliation without locking it.
	FindReconciliationByID(ctx context.Context, reconciliationID string) (*domain.Reconciliation, error)

	// FindActiveOverlapping returns IN_PROGRESS or COMPLETED reconciliations of the account
	// whose [from, to] range intersects the given one.
	FindActiveOverlapping(ctx context.Context, companyID, accountID string, from, to time.Time) ([]domain.Reconciliation, error)

	// ListItems returns the reconciliation's items in Seq order.
	ListItems(ctx context.Context, reconciliationID string) ([]domain.ReconciliationItem, error)
}

// ReconciliationLocker defines the row locks taken inside a transaction.
type ReconciliationLocker interface {
	// FindReconciliationForUpdate reads a reconciliation holding an exclusive row lock.
	FindReconciliationForUpdate(ctx context.Context, reconciliationID string) (*domain.Reconciliation, error)
}

// ReconciliationWriter defines write operations for reconciliations
type ReconciliationWriter interface {
	// SaveReconciliation persists a new reconciliation.
	SaveReconciliation(ctx context.Context, recon domain.Reconciliation) error

	// UpdateReconciliation stores a changed reconciliation when the stored version equals expectedVersion.
	UpdateReconciliation(ctx context.Context, recon domain.Reconciliation, expectedVersion int64) error

	// SaveItems appends new items.
	SaveItems(ctx context.Context, items []domain.ReconciliationItem) error

	// UpdateItems stores the match state of existing items.
	UpdateItems(ctx context.Context, items []domain.ReconciliationItem) error
}

// ReconciliationRepositoryFacade combines all reconciliation-related repository interfaces
type ReconciliationRepositoryFacade interface {
	ReconciliationReader
	ReconciliationLocker
	ReconciliationWriter
}
