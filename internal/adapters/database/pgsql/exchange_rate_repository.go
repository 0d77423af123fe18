package pgsql

import (
	"context"
	"time"

	"github.com/SscSPs/erp_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/erp_ledger/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type PgxExchangeRateRepository struct {
	BaseRepository
}

func newPgxExchangeRateRepository(pool *pgxpool.Pool) *PgxExchangeRateRepository {
	return &PgxExchangeRateRepository{BaseRepository: BaseRepository{Pool: pool}}
}

var _ portsrepo.ExchangeRateRepositoryFacade = (*PgxExchangeRateRepository)(nil)

// FindRate returns the latest rate effective on or before at.
func (r *PgxExchangeRateRepository) FindRate(ctx context.Context, fromCurrencyCode, toCurrencyCode string, at time.Time) (decimal.Decimal, error) {
	query := `
		SELECT rate
		FROM exchange_rates
		WHERE from_currency_code = $1 AND to_currency_code = $2 AND date_effective <= $3
		ORDER BY date_effective DESC, created_at DESC
		LIMIT 1;
	`
	var rate decimal.Decimal
	err := r.db(ctx).QueryRow(ctx, query, fromCurrencyCode, toCurrencyCode, at).Scan(&rate)
	if err != nil {
		return decimal.Zero, mapError("find exchange rate "+fromCurrencyCode+"/"+toCurrencyCode, err)
	}
	return rate, nil
}

// SaveExchangeRate persists a new exchange rate.
func (r *PgxExchangeRateRepository) SaveExchangeRate(ctx context.Context, rate domain.ExchangeRate) error {
	query := `
		INSERT INTO exchange_rates (exchange_rate_id, from_currency_code, to_currency_code, rate, date_effective, created_at, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7);
	`
	_, err := r.db(ctx).Exec(ctx, query,
		rate.ExchangeRateID,
		rate.FromCurrencyCode,
		rate.ToCurrencyCode,
		rate.Rate,
		rate.DateEffective,
		rate.CreatedAt,
		rate.CreatedBy,
	)
	return mapError("save exchange rate "+rate.ExchangeRateID, err)
}
