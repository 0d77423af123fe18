package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ExchangeRate represents the rate to convert one unit of FromCurrency into ToCurrency.
// Rates are populated externally and only read by the ledger.
type ExchangeRate struct {
	ExchangeRateID   string          `json:"exchangeRateID"`
	FromCurrencyCode string          `json:"fromCurrencyCode"`
	ToCurrencyCode   string          `json:"toCurrencyCode"`
	Rate             decimal.Decimal `json:"rate"`
	DateEffective    time.Time       `json:"dateEffective"`
	CreatedAt        time.Time       `json:"createdAt"`
	CreatedBy        string          `json:"createdBy"`
}
