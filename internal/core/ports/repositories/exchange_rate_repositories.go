package repositories

import (
	"context"
	"time"

	"github.com/SscSPs/erp_ledger/internal/core/domain"
	"github.com/shopspring/decimal"
)

// RateProvider supplies conversion rates into the company base currency.
type RateProvider interface {
	// FindRate returns the latest rate from -> to effective on or before at.
	// apperrors.ErrNotFound is returned when no rate is known.
	FindRate(ctx context.Context, fromCurrencyCode, toCurrencyCode string, at time.Time) (decimal.Decimal, error)
}

// ExchangeRateWriter defines write operations for exchange rate data
type ExchangeRateWriter interface {
	// SaveExchangeRate persists a new exchange rate.
	SaveExchangeRate(ctx context.Context, rate domain.ExchangeRate) error
}

// ExchangeRateRepositoryFacade combines all exchange rate-related repository interfaces
type ExchangeRateRepositoryFacade interface {
	RateProvider
	ExchangeRateWriter
}
