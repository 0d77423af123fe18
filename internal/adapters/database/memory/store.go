// Package memory is an in-process storage adapter with the same transactional contract as
// the Postgres adapter. A transaction works on a copy of the state and swaps it in on
// commit; one mutex serialises transactions, which subsumes the row locks.
package memory

import (
	"context"
	"maps"
	"sync"

	"github.com/SscSPs/erp_ledger/internal/apperrors"
	"github.com/SscSPs/erp_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/erp_ledger/internal/core/ports/repositories"
)

type state struct {
	accounts map[string]domain.Account
	periods  map[string]domain.AccountingPeriod
	entries  map[string]domain.JournalEntry
	batches  map[string]domain.Batch
	recons   map[string]domain.Reconciliation
	items    map[string][]domain.ReconciliationItem
	audits   []domain.AuditRecord
	rates    []domain.ExchangeRate
}

func newState() *state {
	return &state{
		accounts: map[string]domain.Account{},
		periods:  map[string]domain.AccountingPeriod{},
		entries:  map[string]domain.JournalEntry{},
		batches:  map[string]domain.Batch{},
		recons:   map[string]domain.Reconciliation{},
		items:    map[string][]domain.ReconciliationItem{},
	}
}

// clone copies the maps. Slice-valued fields are shared, so writers must never modify a
// stored slice in place.
func (s *state) clone() *state {
	return &state{
		accounts: maps.Clone(s.accounts),
		periods:  maps.Clone(s.periods),
		entries:  maps.Clone(s.entries),
		batches:  maps.Clone(s.batches),
		recons:   maps.Clone(s.recons),
		items:    maps.Clone(s.items),
		audits:   s.audits[:len(s.audits):len(s.audits)],
		rates:    s.rates[:len(s.rates):len(s.rates)],
	}
}

type txKey struct{}

type memTx struct {
	state *state
}

func txFrom(ctx context.Context) *memTx {
	tx, _ := ctx.Value(txKey{}).(*memTx)
	return tx
}

// Store holds the whole dataset.
type Store struct {
	mu          sync.Mutex
	state       *state
	unavailable error
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{state: newState()}
}

var _ portsrepo.TransactionManager = (*Store)(nil)

// SetUnavailable makes every following operation fail with StorageUnavailable until
// called again with nil.
func (s *Store) SetUnavailable(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unavailable = err
}

// WithinTx implements portsrepo.TransactionManager.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if txFrom(ctx) != nil {
		return fn(ctx)
	}
	if err := ctx.Err(); err != nil {
		return apperrors.Unavailable("begin transaction", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.unavailable != nil {
		return apperrors.Unavailable("begin transaction", s.unavailable)
	}

	tx := &memTx{state: s.state.clone()}
	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		return err
	}
	s.state = tx.state
	return nil
}

// read runs fn against the transaction's state, or the committed state under the lock.
func (s *Store) read(ctx context.Context, fn func(st *state) error) error {
	if tx := txFrom(ctx); tx != nil {
		return fn(tx.state)
	}
	if err := ctx.Err(); err != nil {
		return apperrors.Unavailable("read", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.unavailable != nil {
		return apperrors.Unavailable("read", s.unavailable)
	}
	return fn(s.state)
}

// write runs fn in the caller's transaction or in a transaction of its own.
func (s *Store) write(ctx context.Context, fn func(st *state) error) error {
	return s.WithinTx(ctx, func(ctx context.Context) error {
		return fn(txFrom(ctx).state)
	})
}

// NewRepositoryProvider wires every memory repository over one store.
func NewRepositoryProvider(store *Store) portsrepo.RepositoryProvider {
	return portsrepo.RepositoryProvider{
		TxManager:          store,
		AccountRepo:        &accountRepository{store: store},
		PeriodRepo:         &periodRepository{store: store},
		JournalRepo:        &journalRepository{store: store},
		BatchRepo:          &batchRepository{store: store},
		ReconciliationRepo: &reconciliationRepository{store: store},
		AuditRepo:          &auditRepository{store: store},
		ExchangeRateRepo:   &exchangeRateRepository{store: store},
	}
}
