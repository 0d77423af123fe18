package pgsql

import (
	"context"
	"errors"

	"github.com/SscSPs/erp_ledger/internal/apperrors"
	"github.com/SscSPs/erp_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/erp_ledger/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgxAccountRepository struct {
	BaseRepository
}

// newPgxAccountRepository creates a new repository for account data.
func newPgxAccountRepository(pool *pgxpool.Pool) *PgxAccountRepository {
	return &PgxAccountRepository{BaseRepository: BaseRepository{Pool: pool}}
}

// Ensure PgxAccountRepository implements portsrepo.AccountRepositoryFacade
var _ portsrepo.AccountRepositoryFacade = (*PgxAccountRepository)(nil)

const accountColumns = `
	account_id, company_id, code, name, category, currency_code, parent_account_id,
	is_posted_restricted, version, created_at, created_by, last_updated_at, last_updated_by`

func scanAccount(row pgx.Row) (domain.Account, error) {
	var acc domain.Account
	err := row.Scan(
		&acc.AccountID,
		&acc.CompanyID,
		&acc.Code,
		&acc.Name,
		&acc.Category,
		&acc.CurrencyCode,
		&acc.ParentAccountID,
		&acc.IsPostedRestricted,
		&acc.Version,
		&acc.CreatedAt,
		&acc.CreatedBy,
		&acc.LastUpdatedAt,
		&acc.LastUpdatedBy,
	)
	return acc, err
}

func collectAccounts(rows pgx.Rows) ([]domain.Account, error) {
	defer rows.Close()
	accounts := []domain.Account{}
	for rows.Next() {
		acc, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, acc)
	}
	return accounts, rows.Err()
}

// FindAccountByID retrieves an account by its ID.
func (r *PgxAccountRepository) FindAccountByID(ctx context.Context, accountID string) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE account_id = $1;`
	acc, err := scanAccount(r.db(ctx).QueryRow(ctx, query, accountID))
	if err != nil {
		return nil, mapError("find account "+accountID, err)
	}
	return &acc, nil
}

// FindAccountByCode retrieves an account by its code within a company.
func (r *PgxAccountRepository) FindAccountByCode(ctx context.Context, companyID, code string) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE company_id = $1 AND code = $2;`
	acc, err := scanAccount(r.db(ctx).QueryRow(ctx, query, companyID, code))
	if err != nil {
		return nil, mapError("find account by code "+code, err)
	}
	return &acc, nil
}

// FindAccountsByIDs retrieves multiple accounts in one round trip.
func (r *PgxAccountRepository) FindAccountsByIDs(ctx context.Context, accountIDs []string) (map[string]domain.Account, error) {
	out := make(map[string]domain.Account, len(accountIDs))
	if len(accountIDs) == 0 {
		return out, nil
	}
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE account_id = ANY($1);`
	rows, err := r.db(ctx).Query(ctx, query, accountIDs)
	if err != nil {
		return nil, mapError("find accounts by ids", err)
	}
	accounts, err := collectAccounts(rows)
	if err != nil {
		return nil, mapError("scan accounts", err)
	}
	for _, acc := range accounts {
		out[acc.AccountID] = acc
	}
	return out, nil
}

// ListAccounts retrieves a paginated list of a company's accounts ordered by code.
func (r *PgxAccountRepository) ListAccounts(ctx context.Context, companyID string, limit int, offset int) ([]domain.Account, error) {
	query := `SELECT ` + accountColumns + `
		FROM accounts
		WHERE company_id = $1
		ORDER BY code
		LIMIT NULLIF($2, 0) OFFSET $3;`
	rows, err := r.db(ctx).Query(ctx, query, companyID, max(limit, 0), max(offset, 0))
	if err != nil {
		return nil, mapError("list accounts", err)
	}
	accounts, err := collectAccounts(rows)
	if err != nil {
		return nil, mapError("scan accounts", err)
	}
	return accounts, nil
}

// ListChildAccounts returns the direct children of an account.
func (r *PgxAccountRepository) ListChildAccounts(ctx context.Context, parentAccountID string) ([]domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE parent_account_id = $1 ORDER BY code;`
	rows, err := r.db(ctx).Query(ctx, query, parentAccountID)
	if err != nil {
		return nil, mapError("list child accounts", err)
	}
	accounts, err := collectAccounts(rows)
	if err != nil {
		return nil, mapError("scan accounts", err)
	}
	return accounts, nil
}

// SaveAccount inserts a new account.
func (r *PgxAccountRepository) SaveAccount(ctx context.Context, account domain.Account) error {
	query := `
		INSERT INTO accounts (
			account_id, company_id, code, name, category, currency_code, parent_account_id,
			is_posted_restricted, version, created_at, created_by, last_updated_at, last_updated_by
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13);
	`
	_, err := r.db(ctx).Exec(ctx, query,
		account.AccountID,
		account.CompanyID,
		account.Code,
		account.Name,
		account.Category,
		account.CurrencyCode,
		account.ParentAccountID,
		account.IsPostedRestricted,
		account.Version,
		account.CreatedAt,
		account.CreatedBy,
		account.LastUpdatedAt,
		account.LastUpdatedBy,
	)
	return mapError("save account "+account.AccountID, err)
}

// UpdateAccount stores the account when its stored version equals expectedVersion.
func (r *PgxAccountRepository) UpdateAccount(ctx context.Context, account domain.Account, expectedVersion int64) error {
	query := `
		UPDATE accounts
		SET code = $3, name = $4, category = $5, parent_account_id = $6, is_posted_restricted = $7,
		    version = $8, last_updated_at = $9, last_updated_by = $10
		WHERE account_id = $1 AND version = $2;
	`
	tag, err := r.db(ctx).Exec(ctx, query,
		account.AccountID,
		expectedVersion,
		account.Code,
		account.Name,
		account.Category,
		account.ParentAccountID,
		account.IsPostedRestricted,
		account.Version,
		account.LastUpdatedAt,
		account.LastUpdatedBy,
	)
	if err != nil {
		return mapError("update account "+account.AccountID, err)
	}
	if tag.RowsAffected() == 0 {
		return r.missingOrStale(ctx, "account", account.AccountID,
			`SELECT 1 FROM accounts WHERE account_id = $1;`)
	}
	return nil
}

// missingOrStale tells a vanished row from a version mismatch after a zero-row update.
func (r *BaseRepository) missingOrStale(ctx context.Context, entity, id, existsQuery string) error {
	var one int
	err := r.db(ctx).QueryRow(ctx, existsQuery, id).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.ErrNotFound
	}
	if err != nil {
		return mapError("check "+entity+" "+id, err)
	}
	return apperrors.Stale(entity, id)
}
