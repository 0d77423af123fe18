package services

import (
	"context"
	"time"

	"github.com/SscSPs/erp_ledger/internal/core/domain"
)

// PeriodReaderSvc defines read operations on accounting periods
type PeriodReaderSvc interface {
	GetPeriod(ctx context.Context, companyID, periodID string) (*domain.AccountingPeriod, error)
	ListPeriods(ctx context.Context, companyID string) ([]domain.AccountingPeriod, error)
	FindPeriodForDate(ctx context.Context, companyID string, at time.Time) (*domain.AccountingPeriod, error)

	// IsOpen reports whether the period exists, is not closed and contains at.
	IsOpen(ctx context.Context, periodID string, at time.Time) (bool, error)

	// RequireOpen is the gate used by posting. It takes a shared lock on the period when
	// called inside a transaction and returns UnknownPeriod, PeriodClosed or
	// EntryDateOutsidePeriod.
	RequireOpen(ctx context.Context, companyID, periodID string, at time.Time) (*domain.AccountingPeriod, error)
}

// PeriodWriterSvc defines write operations on accounting periods
type PeriodWriterSvc interface {
	OpenPeriod(ctx context.Context, companyID, userID, name string, start, end time.Time) (*domain.AccountingPeriod, error)

	// ClosePeriod closes the period for good. Closing a closed period is a no-op.
	ClosePeriod(ctx context.Context, companyID, userID, periodID string) (*domain.AccountingPeriod, error)
}

// PeriodSvcFacade combines all period service interfaces
type PeriodSvcFacade interface {
	PeriodReaderSvc
	PeriodWriterSvc
}
