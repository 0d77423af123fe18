package services_test

import (
	"context"
	"sync"
	"time"

	"github.com/SscSPs/erp_ledger/internal/adapters/database/memory"
	"github.com/SscSPs/erp_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/erp_ledger/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/erp_ledger/internal/core/ports/services"
	"github.com/SscSPs/erp_ledger/internal/core/services"
	"github.com/SscSPs/erp_ledger/internal/platform/config"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

// stepClock returns strictly increasing instants so audit ordering is deterministic.
type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Millisecond)
	return c.now
}

func testConfig() *config.Config {
	return &config.Config{
		StorageDriver:        config.StorageMemory,
		BaseCurrency:         "USD",
		BatchConcurrency:     4,
		BatchWorkers:         0,
		BatchSync:            true,
		ReconMatchWindowDays: 3,
		ReconAmountTolerance: decimal.Zero,
		AccountCacheSize:     128,
		AccountCacheTTL:      time.Minute,
	}
}

// ledgerFixture wires every service over one in-memory store for a single company.
type ledgerFixture struct {
	suite.Suite
	ctx       context.Context
	store     *memory.Store
	repos     portsrepo.RepositoryProvider
	svc       *portssvc.ServiceContainer
	clock     *stepClock
	companyID string
	userID    string
}

func (f *ledgerFixture) SetupTest() {
	f.ctx = context.Background()
	f.store = memory.NewStore()
	f.repos = memory.NewRepositoryProvider(f.store)
	f.clock = &stepClock{now: time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)}
	f.svc = services.NewServiceContainerWithClock(testConfig(), f.repos, f.clock.Now)
	f.companyID = uuid.NewString()
	f.userID = uuid.NewString()
}

func (f *ledgerFixture) TearDownTest() {
	f.Require().NoError(f.svc.Batch.Shutdown(f.ctx))
}

func day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
}

func amount(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func debit(accountID, value string) domain.DraftLine {
	return domain.DraftLine{AccountID: accountID, Debit: amount(value), Credit: decimal.Zero}
}

func credit(accountID, value string) domain.DraftLine {
	return domain.DraftLine{AccountID: accountID, Debit: decimal.Zero, Credit: amount(value)}
}

func (f *ledgerFixture) account(code string, category domain.AccountCategory) domain.Account {
	acc, err := f.svc.Chart.RegisterAccount(f.ctx, f.companyID, f.userID, portssvc.RegisterAccountInput{
		Code:         code,
		Name:         code + " account",
		Category:     category,
		CurrencyCode: "USD",
	})
	f.Require().NoError(err)
	return *acc
}

func (f *ledgerFixture) period(name string, start, end time.Time) domain.AccountingPeriod {
	p, err := f.svc.Period.OpenPeriod(f.ctx, f.companyID, f.userID, name, start, end)
	f.Require().NoError(err)
	return *p
}

func (f *ledgerFixture) post(periodID string, at time.Time, lines ...domain.DraftLine) domain.JournalEntry {
	entry, err := f.svc.Ledger.PostEntry(f.ctx, f.companyID, f.userID, domain.JournalEntryDraft{
		PeriodID:    periodID,
		Description: "test entry",
		EntryDate:   at,
		Lines:       lines,
	})
	f.Require().NoError(err)
	return *entry
}

func (f *ledgerFixture) draft(periodID string, at time.Time, lines ...domain.DraftLine) domain.JournalEntry {
	entry, err := f.svc.Ledger.CreateDraft(f.ctx, f.companyID, f.userID, domain.JournalEntryDraft{
		PeriodID:    periodID,
		Description: "draft entry",
		EntryDate:   at,
		Lines:       lines,
	})
	f.Require().NoError(err)
	return *entry
}

func (f *ledgerFixture) audits(entityID string, action domain.AuditAction) []domain.AuditRecord {
	records, _, err := f.svc.Audit.List(f.ctx, f.companyID, domain.AuditFilter{EntityID: entityID, Action: action}, 200, nil)
	f.Require().NoError(err)
	return records
}
