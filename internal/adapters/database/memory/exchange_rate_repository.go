package memory

import (
	"context"
	"time"

	"github.com/SscSPs/erp_ledger/internal/apperrors"
	"github.com/SscSPs/erp_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/erp_ledger/internal/core/ports/repositories"
	"github.com/shopspring/decimal"
)

type exchangeRateRepository struct {
	store *Store
}

var _ portsrepo.ExchangeRateRepositoryFacade = (*exchangeRateRepository)(nil)

func (r *exchangeRateRepository) FindRate(ctx context.Context, fromCurrencyCode, toCurrencyCode string, at time.Time) (decimal.Decimal, error) {
	var best *domain.ExchangeRate
	err := r.store.read(ctx, func(st *state) error {
		for _, rate := range st.rates {
			if rate.FromCurrencyCode != fromCurrencyCode || rate.ToCurrencyCode != toCurrencyCode {
				continue
			}
			if rate.DateEffective.After(at) {
				continue
			}
			if best == nil || rate.DateEffective.After(best.DateEffective) {
				best = &rate
			}
		}
		return nil
	})
	if err != nil {
		return decimal.Zero, err
	}
	if best == nil {
		return decimal.Zero, apperrors.ErrNotFound
	}
	return best.Rate, nil
}

func (r *exchangeRateRepository) SaveExchangeRate(ctx context.Context, rate domain.ExchangeRate) error {
	return r.store.write(ctx, func(st *state) error {
		st.rates = append(st.rates, rate)
		return nil
	})
}
