package services

import (
	"context"
	"time"

	"github.com/SscSPs/erp_ledger/internal/core/domain"
	"github.com/shopspring/decimal"
)

// ReconciliationReaderSvc defines read operations on reconciliations
type ReconciliationReaderSvc interface {
	GetReconciliation(ctx context.Context, companyID, reconciliationID string) (*domain.Reconciliation, error)
	ListItems(ctx context.Context, companyID, reconciliationID string) ([]domain.ReconciliationItem, error)
}

// ReconciliationMatcherSvc defines the in-progress work on a reconciliation
type ReconciliationMatcherSvc interface {
	// StartReconciliation snapshots the account's posted lines in [from, to]. bookBalance,
	// when given, must equal the snapshot balance.
	StartReconciliation(ctx context.Context, companyID, userID, accountID string, from, to time.Time, bookBalance *decimal.Decimal) (*domain.Reconciliation, error)
	ImportStatementLines(ctx context.Context, companyID, userID, reconciliationID string, lines []domain.StatementLine) (*domain.Reconciliation, error)
	AddAdjustment(ctx context.Context, companyID, userID, reconciliationID string, date time.Time, description string, amount decimal.Decimal) (*domain.ReconciliationItem, error)
	AutoMatch(ctx context.Context, companyID, userID, reconciliationID string, policy *domain.MatchPolicy) (*domain.MatchReport, error)
	ManualMatch(ctx context.Context, companyID, userID, reconciliationID, bookItemID, statementItemID string) (*domain.MatchResult, error)
	Unmatch(ctx context.Context, companyID, userID, reconciliationID, itemID string) (*domain.Reconciliation, error)
}

// ReconciliationLifecycleSvc defines the review transitions
type ReconciliationLifecycleSvc interface {
	Complete(ctx context.Context, companyID, userID, reconciliationID string, acceptDifference bool) (*domain.Reconciliation, error)
	Approve(ctx context.Context, companyID, userID, reconciliationID string) (*domain.Reconciliation, error)
	Reject(ctx context.Context, companyID, userID, reconciliationID, reason string) (*domain.Reconciliation, error)
	Cancel(ctx context.Context, companyID, userID, reconciliationID string) (*domain.Reconciliation, error)
}

// ReconciliationSvcFacade combines all reconciliation service interfaces
type ReconciliationSvcFacade interface {
	ReconciliationReaderSvc
	ReconciliationMatcherSvc
	ReconciliationLifecycleSvc
}
