package dto

import (
	"time"

	"github.com/SscSPs/erp_ledger/internal/core/domain"
	portssvc "github.com/SscSPs/erp_ledger/internal/core/ports/services"
)

// RegisterAccountRequest defines the data needed to register a new account.
type RegisterAccountRequest struct {
	Code               string                 `json:"code" binding:"required,max=32"`
	Name               string                 `json:"name" binding:"required,max=255"`
	Category           domain.AccountCategory `json:"category" binding:"required,oneof=ASSET LIABILITY EQUITY REVENUE EXPENSE"`
	CurrencyCode       string                 `json:"currencyCode" binding:"required,len=3"`
	ParentAccountID    *string                `json:"parentAccountID"` // Optional, use pointer for nullability
	IsPostedRestricted bool                   `json:"isPostedRestricted"`
}

// ToInput converts the request to the service input.
func (r RegisterAccountRequest) ToInput() portssvc.RegisterAccountInput {
	return portssvc.RegisterAccountInput{
		Code:               r.Code,
		Name:               r.Name,
		Category:           r.Category,
		CurrencyCode:       r.CurrencyCode,
		ParentAccountID:    r.ParentAccountID,
		IsPostedRestricted: r.IsPostedRestricted,
	}
}

// UpdateAccountRequest defines the data allowed for updating an account.
// Use pointers to distinguish between zero-value updates and fields not provided.
type UpdateAccountRequest struct {
	Name            *string                 `json:"name" binding:"omitempty,max=255"`
	Code            *string                 `json:"code" binding:"omitempty,max=32"`
	Category        *domain.AccountCategory `json:"category" binding:"omitempty,oneof=ASSET LIABILITY EQUITY REVENUE EXPENSE"`
	ExpectedVersion int64                   `json:"expectedVersion" binding:"required,min=1"`
}

// ToInput converts the request to the service input.
func (r UpdateAccountRequest) ToInput() portssvc.UpdateAccountInput {
	return portssvc.UpdateAccountInput{
		Name:            r.Name,
		Code:            r.Code,
		Category:        r.Category,
		ExpectedVersion: r.ExpectedVersion,
	}
}

// ReparentAccountRequest moves an account under another parent; null detaches it.
type ReparentAccountRequest struct {
	ParentAccountID *string `json:"parentAccountID"`
}

// SetPostingRestrictionRequest toggles whether lines may post to the account.
type SetPostingRestrictionRequest struct {
	Restricted *bool `json:"restricted" binding:"required"`
}

// AccountResponse defines the data returned for an account.
type AccountResponse struct {
	AccountID          string                 `json:"accountID"`
	CompanyID          string                 `json:"companyID"`
	Code               string                 `json:"code"`
	Name               string                 `json:"name"`
	Category           domain.AccountCategory `json:"category"`
	CurrencyCode       string                 `json:"currencyCode"`
	ParentAccountID    *string                `json:"parentAccountID,omitempty"`
	IsPostedRestricted bool                   `json:"isPostedRestricted"`
	Version            int64                  `json:"version"`
	CreatedAt          time.Time              `json:"createdAt"`
	CreatedBy          string                 `json:"createdBy"`
	LastUpdatedAt      time.Time              `json:"lastUpdatedAt"`
	LastUpdatedBy      string                 `json:"lastUpdatedBy"`
}

// ToAccountResponse converts a domain.Account to AccountResponse DTO
func ToAccountResponse(acc *domain.Account) AccountResponse {
	return AccountResponse{
		AccountID:          acc.AccountID,
		CompanyID:          acc.CompanyID,
		Code:               acc.Code,
		Name:               acc.Name,
		Category:           acc.Category,
		CurrencyCode:       acc.CurrencyCode,
		ParentAccountID:    acc.ParentAccountID,
		IsPostedRestricted: acc.IsPostedRestricted,
		Version:            acc.Version,
		CreatedAt:          acc.CreatedAt,
		CreatedBy:          acc.CreatedBy,
		LastUpdatedAt:      acc.LastUpdatedAt,
		LastUpdatedBy:      acc.LastUpdatedBy,
	}
}

// ToListAccountResponse converts a slice of domain.Account to a slice of AccountResponse DTOs
func ToListAccountResponse(accounts []domain.Account) []AccountResponse {
	res := make([]AccountResponse, len(accounts))
	for i := range accounts {
		res[i] = ToAccountResponse(&accounts[i])
	}
	return res
}

// ListAccountsParams defines query parameters for listing accounts.
type ListAccountsParams struct {
	Limit  int `form:"limit,default=20" binding:"min=0,max=500"`
	Offset int `form:"offset,default=0" binding:"min=0"`
}

// ListAccountsResponse wraps the list of accounts.
type ListAccountsResponse struct {
	Accounts []AccountResponse `json:"accounts"`
}
