package pgsql

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/SscSPs/erp_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/erp_ledger/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgxJournalRepository struct {
	BaseRepository
}

// newPgxJournalRepository creates a new repository for journal entries and their lines.
func newPgxJournalRepository(pool *pgxpool.Pool) *PgxJournalRepository {
	return &PgxJournalRepository{BaseRepository: BaseRepository{Pool: pool}}
}

var _ portsrepo.JournalRepositoryFacade = (*PgxJournalRepository)(nil)

const entryColumns = `
	e.entry_id, e.company_id, e.period_id, e.description, e.entry_date, e.currency_code,
	e.exchange_rate, e.base_amount, e.status, e.reversal_of_id, e.reversed_by_id,
	e.posted_at, e.posted_by, e.version, e.created_at, e.created_by, e.last_updated_at, e.last_updated_by`

const lineColumns = `line_id, entry_id, line_no, account_id, debit, credit, narrative`

const insertLineQuery = `
	INSERT INTO journal_lines (line_id, entry_id, line_no, account_id, debit, credit, narrative)
	VALUES ($1, $2, $3, $4, $5, $6, $7);
`

func scanEntry(row pgx.Row) (domain.JournalEntry, error) {
	var e domain.JournalEntry
	err := row.Scan(
		&e.EntryID,
		&e.CompanyID,
		&e.PeriodID,
		&e.Description,
		&e.EntryDate,
		&e.CurrencyCode,
		&e.ExchangeRate,
		&e.BaseAmount,
		&e.Status,
		&e.ReversalOfID,
		&e.ReversedByID,
		&e.PostedAt,
		&e.PostedBy,
		&e.Version,
		&e.CreatedAt,
		&e.CreatedBy,
		&e.LastUpdatedAt,
		&e.LastUpdatedBy,
	)
	e.EntryDate = e.EntryDate.UTC()
	return e, err
}

func scanLine(row pgx.Row) (domain.JournalLine, error) {
	var l domain.JournalLine
	err := row.Scan(&l.LineID, &l.EntryID, &l.LineNo, &l.AccountID, &l.Debit, &l.Credit, &l.Narrative)
	return l, err
}

// loadLines fetches the lines of every given entry in one query and attaches them.
func (r *PgxJournalRepository) loadLines(ctx context.Context, entries []domain.JournalEntry) error {
	if len(entries) == 0 {
		return nil
	}
	ids := make([]string, len(entries))
	index := make(map[string]int, len(entries))
	for i, e := range entries {
		ids[i] = e.EntryID
		index[e.EntryID] = i
		entries[i].Lines = []domain.JournalLine{}
	}
	query := `SELECT ` + lineColumns + ` FROM journal_lines WHERE entry_id = ANY($1) ORDER BY entry_id, line_no;`
	rows, err := r.db(ctx).Query(ctx, query, ids)
	if err != nil {
		return mapError("load journal lines", err)
	}
	defer rows.Close()
	for rows.Next() {
		l, err := scanLine(rows)
		if err != nil {
			return mapError("scan journal line", err)
		}
		i := index[l.EntryID]
		entries[i].Lines = append(entries[i].Lines, l)
	}
	return mapError("iterate journal lines", rows.Err())
}

func (r *PgxJournalRepository) findEntry(ctx context.Context, entryID string, lock bool) (*domain.JournalEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM journal_entries e WHERE e.entry_id = $1`
	if lock && inTx(ctx) {
		query += ` FOR UPDATE`
	}
	entry, err := scanEntry(r.db(ctx).QueryRow(ctx, query+`;`, entryID))
	if err != nil {
		return nil, mapError("find journal entry "+entryID, err)
	}
	entries := []domain.JournalEntry{entry}
	if err := r.loadLines(ctx, entries); err != nil {
		return nil, err
	}
	return &entries[0], nil
}

// FindEntryByID retrieves an entry together with its lines.
func (r *PgxJournalRepository) FindEntryByID(ctx context.Context, entryID string) (*domain.JournalEntry, error) {
	return r.findEntry(ctx, entryID, false)
}

// FindEntryForUpdate locks the entry row until the surrounding transaction ends.
func (r *PgxJournalRepository) FindEntryForUpdate(ctx context.Context, entryID string) (*domain.JournalEntry, error) {
	return r.findEntry(ctx, entryID, true)
}

// ListEntries retrieves a company's entries matching filter, newest first.
func (r *PgxJournalRepository) ListEntries(ctx context.Context, companyID string, filter domain.EntryFilter) ([]domain.JournalEntry, error) {
	conds := []string{"e.company_id = $1"}
	args := []any{companyID}
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if filter.PeriodID != "" {
		conds = append(conds, "e.period_id = "+arg(filter.PeriodID))
	}
	if filter.Status != "" {
		conds = append(conds, "e.status = "+arg(filter.Status))
	}
	if filter.From != nil {
		conds = append(conds, "e.entry_date >= "+arg(domain.DateOnly(*filter.From)))
	}
	if filter.To != nil {
		conds = append(conds, "e.entry_date <= "+arg(domain.DateOnly(*filter.To)))
	}
	if filter.AccountID != "" {
		conds = append(conds, "EXISTS (SELECT 1 FROM journal_lines l WHERE l.entry_id = e.entry_id AND l.account_id = "+arg(filter.AccountID)+")")
	}
	query := `SELECT ` + entryColumns + `
		FROM journal_entries e
		WHERE ` + strings.Join(conds, " AND ") + `
		ORDER BY e.entry_date DESC, e.created_at DESC, e.entry_id DESC`
	if filter.Limit > 0 {
		query += " LIMIT " + arg(filter.Limit)
	}
	if filter.Offset > 0 {
		query += " OFFSET " + arg(filter.Offset)
	}

	rows, err := r.db(ctx).Query(ctx, query+";", args...)
	if err != nil {
		return nil, mapError("list journal entries", err)
	}
	entries := []domain.JournalEntry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			rows.Close()
			return nil, mapError("scan journal entry", err)
		}
		entries = append(entries, e)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, mapError("iterate journal entries", err)
	}
	if err := r.loadLines(ctx, entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *PgxJournalRepository) CountEntriesByStatus(ctx context.Context, periodID string, status domain.JournalStatus) (int, error) {
	var n int
	err := r.db(ctx).QueryRow(ctx,
		`SELECT count(*) FROM journal_entries WHERE period_id = $1 AND status = $2;`, periodID, status).Scan(&n)
	return n, mapError("count journal entries", err)
}

func (r *PgxJournalRepository) AccountHasLines(ctx context.Context, accountID string) (bool, error) {
	var found bool
	err := r.db(ctx).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM journal_lines WHERE account_id = $1);`, accountID).Scan(&found)
	return found, mapError("check account lines", err)
}

// ListPostedLines returns the account's lines of posted or reversed entries dated in [from, to].
func (r *PgxJournalRepository) ListPostedLines(ctx context.Context, companyID, accountID string, from, to time.Time) ([]domain.PostedLine, error) {
	query := `
		SELECT l.line_id, l.entry_id, l.line_no, l.account_id, l.debit, l.credit, l.narrative,
		       e.entry_date, e.description
		FROM journal_lines l
		JOIN journal_entries e ON e.entry_id = l.entry_id
		WHERE e.company_id = $1 AND l.account_id = $2
		  AND e.status IN ('POSTED', 'REVERSED')
		  AND e.entry_date BETWEEN $3 AND $4
		ORDER BY e.entry_date, l.entry_id, l.line_no;
	`
	rows, err := r.db(ctx).Query(ctx, query, companyID, accountID, domain.DateOnly(from), domain.DateOnly(to))
	if err != nil {
		return nil, mapError("list posted lines", err)
	}
	defer rows.Close()
	lines := []domain.PostedLine{}
	for rows.Next() {
		var pl domain.PostedLine
		if err := rows.Scan(
			&pl.LineID, &pl.EntryID, &pl.LineNo, &pl.AccountID, &pl.Debit, &pl.Credit, &pl.Narrative,
			&pl.EntryDate, &pl.Description,
		); err != nil {
			return nil, mapError("scan posted line", err)
		}
		pl.EntryDate = pl.EntryDate.UTC()
		lines = append(lines, pl)
	}
	return lines, mapError("iterate posted lines", rows.Err())
}

func queueLines(batch *pgx.Batch, lines []domain.JournalLine) {
	for _, l := range lines {
		batch.Queue(insertLineQuery,
			l.LineID,
			l.EntryID,
			l.LineNo,
			l.AccountID,
			l.Debit,
			l.Credit,
			l.Narrative,
		)
	}
}

// SaveEntry inserts the header and queues every line in one pgx batch.
func (r *PgxJournalRepository) SaveEntry(ctx context.Context, entry domain.JournalEntry) error {
	batch := &pgx.Batch{}
	batch.Queue(`
		INSERT INTO journal_entries (
			entry_id, company_id, period_id, description, entry_date, currency_code, exchange_rate,
			base_amount, status, reversal_of_id, reversed_by_id, posted_at, posted_by, version,
			created_at, created_by, last_updated_at, last_updated_by
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18);`,
		entry.EntryID,
		entry.CompanyID,
		entry.PeriodID,
		entry.Description,
		entry.EntryDate,
		entry.CurrencyCode,
		entry.ExchangeRate,
		entry.BaseAmount,
		entry.Status,
		entry.ReversalOfID,
		entry.ReversedByID,
		entry.PostedAt,
		entry.PostedBy,
		entry.Version,
		entry.CreatedAt,
		entry.CreatedBy,
		entry.LastUpdatedAt,
		entry.LastUpdatedBy,
	)
	queueLines(batch, entry.Lines)

	br := r.db(ctx).SendBatch(ctx, batch)
	// Close the batch results, checking for errors during execution
	if err := br.Close(); err != nil {
		return mapError("save journal entry "+entry.EntryID, err)
	}
	return nil
}

// UpdateEntry stores header fields when the stored version matches. Lines are untouched.
func (r *PgxJournalRepository) UpdateEntry(ctx context.Context, entry domain.JournalEntry, expectedVersion int64) error {
	query := `
		UPDATE journal_entries
		SET period_id = $3, description = $4, entry_date = $5, currency_code = $6, exchange_rate = $7,
		    base_amount = $8, status = $9, reversal_of_id = $10, reversed_by_id = $11,
		    posted_at = $12, posted_by = $13, version = $14, last_updated_at = $15, last_updated_by = $16
		WHERE entry_id = $1 AND version = $2;
	`
	tag, err := r.db(ctx).Exec(ctx, query,
		entry.EntryID,
		expectedVersion,
		entry.PeriodID,
		entry.Description,
		entry.EntryDate,
		entry.CurrencyCode,
		entry.ExchangeRate,
		entry.BaseAmount,
		entry.Status,
		entry.ReversalOfID,
		entry.ReversedByID,
		entry.PostedAt,
		entry.PostedBy,
		entry.Version,
		entry.LastUpdatedAt,
		entry.LastUpdatedBy,
	)
	if err != nil {
		return mapError("update journal entry "+entry.EntryID, err)
	}
	if tag.RowsAffected() == 0 {
		return r.missingOrStale(ctx, "journal entry", entry.EntryID,
			`SELECT 1 FROM journal_entries WHERE entry_id = $1;`)
	}
	return nil
}

// ReplaceLines deletes the entry's lines and inserts the given ones.
func (r *PgxJournalRepository) ReplaceLines(ctx context.Context, entryID string, lines []domain.JournalLine) error {
	batch := &pgx.Batch{}
	batch.Queue(`DELETE FROM journal_lines WHERE entry_id = $1;`, entryID)
	queueLines(batch, lines)

	br := r.db(ctx).SendBatch(ctx, batch)
	if err := br.Close(); err != nil {
		return mapError("replace lines of journal entry "+entryID, err)
	}
	return nil
}
