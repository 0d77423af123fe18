package repositories

import (
	"context"
	"time"

	"github.com/SscSPs/erp_ledger/internal/core/domain"
)

// PeriodReader defines read operations for accounting periods
type PeriodReader interface {
	// FindPeriodByID retrieves a period without locking it.
	FindPeriodByID(ctx context.Context, periodID string) (*domain.AccountingPeriod, error)

	// FindPeriodForDate returns the company's period containing at, if any.
	FindPeriodForDate(ctx context.Context, companyID string, at time.Time) (*domain.AccountingPeriod, error)

	// ListPeriods returns the company's periods ordered by start.
	ListPeriods(ctx context.Context, companyID string) ([]domain.AccountingPeriod, error)

	// FindOverlappingPeriods returns the company's periods intersecting [start, end).
	FindOverlappingPeriods(ctx context.Context, companyID string, start, end time.Time) ([]domain.AccountingPeriod, error)
}

// PeriodLocker defines the row locks taken inside a transaction.
type PeriodLocker interface {
	// FindPeriodForShare reads a period holding a shared lock; posting uses it.
	FindPeriodForShare(ctx context.Context, periodID string) (*domain.AccountingPeriod, error)

	// FindPeriodForUpdate reads a period holding an exclusive lock; closing uses it.
	FindPeriodForUpdate(ctx context.Context, periodID string) (*domain.AccountingPeriod, error)

	// LockCompanyPeriods serialises period creation for a company until the transaction ends.
	LockCompanyPeriods(ctx context.Context, companyID string) error
}

// PeriodWriter defines write operations for accounting periods
type PeriodWriter interface {
	// SavePeriod persists a new period. Overlap enforced by storage yields apperrors.PeriodOverlap.
	SavePeriod(ctx context.Context, period domain.AccountingPeriod) error

	// UpdatePeriod stores a changed period when the stored version equals expectedVersion.
	UpdatePeriod(ctx context.Context, period domain.AccountingPeriod, expectedVersion int64) error
}

// PeriodRepositoryFacade combines all period-related repository interfaces
type PeriodRepositoryFacade interface {
	PeriodReader
	PeriodLocker
	PeriodWriter
}
