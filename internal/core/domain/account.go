package domain

// AccountCategory defines the fundamental accounting type of an account.
type AccountCategory string

const (
	Asset     AccountCategory = "ASSET"
	Liability AccountCategory = "LIABILITY"
	Equity    AccountCategory = "EQUITY"
	Revenue   AccountCategory = "REVENUE"
	Expense   AccountCategory = "EXPENSE"
)

// IsValid reports whether c is one of the five known categories.
func (c AccountCategory) IsValid() bool {
	switch c {
	case Asset, Liability, Equity, Revenue, Expense:
		return true
	}
	return false
}

// IsDebitNormal reports whether the category increases with debits (ASSET, EXPENSE).
func (c AccountCategory) IsDebitNormal() bool {
	return c == Asset || c == Expense
}

// Account represents a chart-of-accounts entry owned by a company.
type Account struct {
	AccountID          string          `json:"accountID"`
	CompanyID          string          `json:"companyID"`
	Code               string          `json:"code"` // unique per company
	Name               string          `json:"name"`
	Category           AccountCategory `json:"category"`
	CurrencyCode       string          `json:"currencyCode"`
	ParentAccountID    *string         `json:"parentAccountID,omitempty"`
	IsPostedRestricted bool            `json:"isPostedRestricted"` // header/summary accounts
	Version            int64           `json:"version"`
	AuditFields
}
