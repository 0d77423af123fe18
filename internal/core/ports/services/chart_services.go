package services

import (
	"context"

	"github.com/SscSPs/erp_ledger/internal/core/domain"
)

// RegisterAccountInput carries the fields of a new account.
type RegisterAccountInput struct {
	Code               string
	Name               string
	Category           domain.AccountCategory
	CurrencyCode       string
	ParentAccountID    *string
	IsPostedRestricted bool
}

// UpdateAccountInput carries optional changes to an account. Nil fields are left as is.
type UpdateAccountInput struct {
	Name            *string
	Code            *string
	Category        *domain.AccountCategory
	ExpectedVersion int64
}

// ChartReaderSvc defines read operations on the chart of accounts
type ChartReaderSvc interface {
	// GetAccount retrieves an account of the company.
	GetAccount(ctx context.Context, companyID, accountID string) (*domain.Account, error)

	// ListAccounts retrieves a paginated list of the company's accounts.
	ListAccounts(ctx context.Context, companyID string, limit, offset int) ([]domain.Account, error)

	// ResolvePostable loads the accounts referenced by lines, in line order, and fails with
	// UnknownAccount or RestrictedAccount carrying the first offending line index.
	ResolvePostable(ctx context.Context, companyID string, accountIDs []string) (map[string]domain.Account, error)
}

// ChartWriterSvc defines write operations on the chart of accounts
type ChartWriterSvc interface {
	RegisterAccount(ctx context.Context, companyID, userID string, in RegisterAccountInput) (*domain.Account, error)
	UpdateAccount(ctx context.Context, companyID, userID, accountID string, in UpdateAccountInput) (*domain.Account, error)
	Reparent(ctx context.Context, companyID, userID, accountID string, parentAccountID *string) (*domain.Account, error)
	SetPostingRestriction(ctx context.Context, companyID, userID, accountID string, restricted bool) (*domain.Account, error)
}

// ChartSvcFacade combines all chart-of-accounts service interfaces
type ChartSvcFacade interface {
	ChartReaderSvc
	ChartWriterSvc
}
