package services_test

import (
	"sync"
	"testing"

	"github.com/SscSPs/erp_ledger/internal/apperrors"
	"github.com/SscSPs/erp_ledger/internal/core/domain"
	portssvc "github.com/SscSPs/erp_ledger/internal/core/ports/services"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type LedgerServiceTestSuite struct {
	ledgerFixture
	cash    domain.Account
	revenue domain.Account
	march   domain.AccountingPeriod
}

func (suite *LedgerServiceTestSuite) SetupTest() {
	suite.ledgerFixture.SetupTest()
	suite.cash = suite.account("1000", domain.Asset)
	suite.revenue = suite.account("4000", domain.Revenue)
	suite.march = suite.period("2024-03", day(2024, 3, 1), day(2024, 4, 1))
}

func (suite *LedgerServiceTestSuite) balancedDraft(entryID string) domain.JournalEntryDraft {
	return domain.JournalEntryDraft{
		EntryID:     entryID,
		PeriodID:    suite.march.PeriodID,
		Description: "cash sale",
		EntryDate:   day(2024, 3, 10),
		Lines: []domain.DraftLine{
			debit(suite.cash.AccountID, "100"),
			credit(suite.revenue.AccountID, "100"),
		},
	}
}

func (suite *LedgerServiceTestSuite) TestPostEntry_BalancedEntryPosts() {
	entry := suite.post(suite.march.PeriodID, day(2024, 3, 10),
		debit(suite.cash.AccountID, "100"), credit(suite.revenue.AccountID, "100"))

	suite.Equal(domain.Posted, entry.Status)
	suite.Require().NotNil(entry.PostedAt)
	suite.Equal(suite.userID, *entry.PostedBy)
	suite.True(entry.ExchangeRate.Equal(decimal.NewFromInt(1)))
	suite.Equal("100.00", entry.BaseAmount.StringFixed(2))

	stored, err := suite.svc.Ledger.GetEntry(suite.ctx, suite.companyID, entry.EntryID)
	suite.Require().NoError(err)
	suite.Len(stored.Lines, 2)
	d, c := stored.Totals()
	suite.True(d.Equal(c))
	suite.Len(suite.audits(entry.EntryID, domain.ActionEntryPosted), 1)
}

func (suite *LedgerServiceTestSuite) TestPostEntry_ClosedPeriodRefused() {
	_, err := suite.svc.Period.ClosePeriod(suite.ctx, suite.companyID, suite.userID, suite.march.PeriodID)
	suite.Require().NoError(err)

	entryID := uuid.NewString()
	entry, err := suite.svc.Ledger.PostEntry(suite.ctx, suite.companyID, suite.userID, suite.balancedDraft(entryID))

	suite.Nil(entry)
	suite.ErrorIs(err, apperrors.PeriodClosed)
	suite.ErrorIs(err, apperrors.ErrValidation)
	_, err = suite.svc.Ledger.GetEntry(suite.ctx, suite.companyID, entryID)
	suite.ErrorIs(err, apperrors.UnknownEntry)
	suite.Empty(suite.audits(entryID, ""))
}

func (suite *LedgerServiceTestSuite) TestPostEntry_UnbalancedCarriesDifference() {
	draft := suite.balancedDraft(uuid.NewString())
	draft.Lines[1] = credit(suite.revenue.AccountID, "90")

	_, err := suite.svc.Ledger.PostEntry(suite.ctx, suite.companyID, suite.userID, draft)

	suite.Require().ErrorIs(err, apperrors.UnbalancedEntry)
	le, ok := apperrors.AsLedgerError(err)
	suite.Require().True(ok)
	suite.Equal(draft.EntryID, le.EntryID)
	suite.Require().NotNil(le.Difference)
	suite.Equal("10.00", le.Difference.StringFixed(2))
	suite.Require().NotNil(le.Debit)
	suite.Require().NotNil(le.Credit)
	suite.Equal("100.00", le.Debit.StringFixed(2))
	suite.Equal("90.00", le.Credit.StringFixed(2))

	_, err = suite.svc.Ledger.GetEntry(suite.ctx, suite.companyID, draft.EntryID)
	suite.ErrorIs(err, apperrors.UnknownEntry)
}

func (suite *LedgerServiceTestSuite) TestPostEntry_InvalidLineReportsIndex() {
	draft := suite.balancedDraft("")
	draft.Lines = append(draft.Lines, domain.DraftLine{
		AccountID: suite.cash.AccountID,
		Debit:     amount("5"),
		Credit:    amount("5"),
	})

	_, err := suite.svc.Ledger.PostEntry(suite.ctx, suite.companyID, suite.userID, draft)

	suite.Require().ErrorIs(err, apperrors.InvalidLine)
	le, _ := apperrors.AsLedgerError(err)
	suite.Require().NotNil(le.LineIndex)
	suite.Equal(2, *le.LineIndex)
}

func (suite *LedgerServiceTestSuite) TestPostEntry_SubCentAmounts() {
	draft := suite.balancedDraft(uuid.NewString())
	draft.Lines = []domain.DraftLine{
		debit(suite.cash.AccountID, "100.004"),
		credit(suite.revenue.AccountID, "100"),
	}

	_, err := suite.svc.Ledger.PostEntry(suite.ctx, suite.companyID, suite.userID, draft)

	suite.Require().ErrorIs(err, apperrors.InvalidLine)
	le, _ := apperrors.AsLedgerError(err)
	suite.Require().NotNil(le.LineIndex)
	suite.Equal(0, *le.LineIndex)
	_, err = suite.svc.Ledger.GetEntry(suite.ctx, suite.companyID, draft.EntryID)
	suite.ErrorIs(err, apperrors.UnknownEntry)

	draft.Lines[0] = debit(suite.cash.AccountID, "100.0000")
	_, err = suite.svc.Ledger.PostEntry(suite.ctx, suite.companyID, suite.userID, draft)
	suite.Require().NoError(err)
	stored, err := suite.svc.Ledger.GetEntry(suite.ctx, suite.companyID, draft.EntryID)
	suite.Require().NoError(err)
	d, c := stored.Totals()
	suite.True(d.Equal(c))
}

func (suite *LedgerServiceTestSuite) TestPostEntry_NoLinesIsInvalid() {
	draft := suite.balancedDraft("")
	draft.Lines = nil

	_, err := suite.svc.Ledger.PostEntry(suite.ctx, suite.companyID, suite.userID, draft)
	suite.ErrorIs(err, apperrors.InvalidLine)
}

func (suite *LedgerServiceTestSuite) TestPostEntry_CheckOrder() {
	// Unknown account wins over the imbalance
	draft := suite.balancedDraft("")
	draft.Lines = []domain.DraftLine{
		debit(suite.cash.AccountID, "100"),
		credit(uuid.NewString(), "90"),
	}
	_, err := suite.svc.Ledger.PostEntry(suite.ctx, suite.companyID, suite.userID, draft)
	suite.Require().ErrorIs(err, apperrors.UnknownAccount)
	le, _ := apperrors.AsLedgerError(err)
	suite.Require().NotNil(le.LineIndex)
	suite.Equal(1, *le.LineIndex)

	// A closed period wins over the unknown account
	_, err = suite.svc.Period.ClosePeriod(suite.ctx, suite.companyID, suite.userID, suite.march.PeriodID)
	suite.Require().NoError(err)
	_, err = suite.svc.Ledger.PostEntry(suite.ctx, suite.companyID, suite.userID, draft)
	suite.ErrorIs(err, apperrors.PeriodClosed)
}

func (suite *LedgerServiceTestSuite) TestPostEntry_DateOutsidePeriod() {
	draft := suite.balancedDraft("")
	draft.EntryDate = day(2024, 4, 1)

	_, err := suite.svc.Ledger.PostEntry(suite.ctx, suite.companyID, suite.userID, draft)
	suite.ErrorIs(err, apperrors.EntryDateOutsidePeriod)
}

func (suite *LedgerServiceTestSuite) TestPostEntry_RestrictedAccount() {
	header := suite.account("1", domain.Asset)
	_, err := suite.svc.Chart.SetPostingRestriction(suite.ctx, suite.companyID, suite.userID, header.AccountID, true)
	suite.Require().NoError(err)

	draft := suite.balancedDraft("")
	draft.Lines[0].AccountID = header.AccountID

	_, err = suite.svc.Ledger.PostEntry(suite.ctx, suite.companyID, suite.userID, draft)
	suite.Require().ErrorIs(err, apperrors.RestrictedAccount)
	le, _ := apperrors.AsLedgerError(err)
	suite.Equal(header.AccountID, le.AccountID)
	suite.Equal(0, *le.LineIndex)
}

func (suite *LedgerServiceTestSuite) TestPostEntry_OtherCompanyAccountIsUnknown() {
	other := suite.companyID
	suite.companyID = uuid.NewString()
	foreign := suite.account("1000", domain.Asset)
	suite.companyID = other

	draft := suite.balancedDraft("")
	draft.Lines[0].AccountID = foreign.AccountID
	_, err := suite.svc.Ledger.PostEntry(suite.ctx, suite.companyID, suite.userID, draft)
	suite.ErrorIs(err, apperrors.UnknownAccount)
}

func (suite *LedgerServiceTestSuite) TestPostEntry_Idempotent() {
	draft := suite.balancedDraft(uuid.NewString())

	first, err := suite.svc.Ledger.PostEntry(suite.ctx, suite.companyID, suite.userID, draft)
	suite.Require().NoError(err)
	before, _, err := suite.svc.Audit.List(suite.ctx, suite.companyID, domain.AuditFilter{}, 200, nil)
	suite.Require().NoError(err)

	second, err := suite.svc.Ledger.PostEntry(suite.ctx, suite.companyID, suite.userID, draft)
	suite.Require().NoError(err)

	suite.Equal(first.EntryID, second.EntryID)
	suite.Equal(first.Version, second.Version)
	suite.Equal(first.PostedAt, second.PostedAt)
	after, _, err := suite.svc.Audit.List(suite.ctx, suite.companyID, domain.AuditFilter{}, 200, nil)
	suite.Require().NoError(err)
	suite.Len(after, len(before))
}

func (suite *LedgerServiceTestSuite) TestPostEntry_ConcurrentSameID() {
	draft := suite.balancedDraft(uuid.NewString())

	var wg sync.WaitGroup
	results := make([]*domain.JournalEntry, 8)
	errs := make([]error, 8)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = suite.svc.Ledger.PostEntry(suite.ctx, suite.companyID, suite.userID, draft)
		}()
	}
	wg.Wait()

	for i := range results {
		suite.Require().NoError(errs[i])
		suite.Equal(draft.EntryID, results[i].EntryID)
		suite.Equal(results[0].Version, results[i].Version)
	}
	suite.Len(suite.audits(draft.EntryID, domain.ActionEntryPosted), 1)
}

func (suite *LedgerServiceTestSuite) TestPostedEntriesAlwaysBalance() {
	amounts := []string{"10", "0.01", "999.99", "42.5", "7"}
	for i, a := range amounts {
		draft := suite.balancedDraft("")
		draft.Lines = []domain.DraftLine{debit(suite.cash.AccountID, a), credit(suite.revenue.AccountID, a)}
		if i%2 == 1 {
			draft.Lines[1] = credit(suite.revenue.AccountID, "1")
		}
		_, _ = suite.svc.Ledger.PostEntry(suite.ctx, suite.companyID, suite.userID, draft)
	}

	posted, err := suite.svc.Ledger.ListEntries(suite.ctx, suite.companyID, domain.EntryFilter{Status: domain.Posted})
	suite.Require().NoError(err)
	suite.Len(posted, 3)
	for _, e := range posted {
		d, c := e.Totals()
		suite.True(d.Equal(c), "entry %s is unbalanced", e.EntryID)
	}
}

func (suite *LedgerServiceTestSuite) TestDraftLifecycle() {
	draft := suite.draft(suite.march.PeriodID, day(2024, 3, 5),
		debit(suite.cash.AccountID, "20"), credit(suite.revenue.AccountID, "20"))
	suite.Equal(domain.Draft, draft.Status)
	suite.Equal(int64(1), draft.Version)

	_, err := suite.svc.Ledger.UpdateDraft(suite.ctx, suite.companyID, suite.userID, draft.EntryID,
		domain.JournalEntryDraft{Description: "late edit"}, 7)
	suite.ErrorIs(err, apperrors.ConcurrentModification)

	updated, err := suite.svc.Ledger.UpdateDraft(suite.ctx, suite.companyID, suite.userID, draft.EntryID,
		domain.JournalEntryDraft{Lines: []domain.DraftLine{
			debit(suite.cash.AccountID, "25"), credit(suite.revenue.AccountID, "25"),
		}}, 1)
	suite.Require().NoError(err)
	suite.Equal(int64(2), updated.Version)
	suite.Equal("25.00", updated.Lines[0].Debit.StringFixed(2))
	suite.Equal("draft entry", updated.Description)

	posted, err := suite.svc.Ledger.PostDraft(suite.ctx, suite.companyID, suite.userID, draft.EntryID)
	suite.Require().NoError(err)
	suite.Equal(domain.Posted, posted.Status)
	suite.Equal(int64(3), posted.Version)
	suite.Equal("25.00", posted.BaseAmount.StringFixed(2))

	_, err = suite.svc.Ledger.UpdateDraft(suite.ctx, suite.companyID, suite.userID, draft.EntryID,
		domain.JournalEntryDraft{Description: "too late"}, 3)
	suite.ErrorIs(err, apperrors.InvalidTransition)
}

func (suite *LedgerServiceTestSuite) TestPostDraft_UnknownAndCancelled() {
	_, err := suite.svc.Ledger.PostDraft(suite.ctx, suite.companyID, suite.userID, uuid.NewString())
	suite.ErrorIs(err, apperrors.UnknownEntry)

	draft := suite.draft(suite.march.PeriodID, day(2024, 3, 5),
		debit(suite.cash.AccountID, "20"), credit(suite.revenue.AccountID, "20"))
	cancelled, err := suite.svc.Ledger.CancelDraft(suite.ctx, suite.companyID, suite.userID, draft.EntryID)
	suite.Require().NoError(err)
	suite.Equal(domain.Cancelled, cancelled.Status)

	_, err = suite.svc.Ledger.PostDraft(suite.ctx, suite.companyID, suite.userID, draft.EntryID)
	suite.ErrorIs(err, apperrors.InvalidTransition)
	_, err = suite.svc.Ledger.CancelDraft(suite.ctx, suite.companyID, suite.userID, draft.EntryID)
	suite.ErrorIs(err, apperrors.InvalidTransition)
}

func (suite *LedgerServiceTestSuite) TestReversePosted_MirrorsLines() {
	original := suite.post(suite.march.PeriodID, day(2024, 3, 10),
		debit(suite.cash.AccountID, "100"), credit(suite.revenue.AccountID, "100"))

	reversal, err := suite.svc.Ledger.ReversePosted(suite.ctx, suite.companyID, suite.userID, original.EntryID, portssvc.ReverseOptions{})
	suite.Require().NoError(err)

	suite.Equal(domain.Posted, reversal.Status)
	suite.Require().NotNil(reversal.ReversalOfID)
	suite.Equal(original.EntryID, *reversal.ReversalOfID)
	suite.Equal(original.EntryDate, reversal.EntryDate)
	suite.Require().Len(reversal.Lines, len(original.Lines))
	for i := range original.Lines {
		suite.Equal(original.Lines[i].AccountID, reversal.Lines[i].AccountID)
		suite.True(original.Lines[i].Debit.Equal(reversal.Lines[i].Credit))
		suite.True(original.Lines[i].Credit.Equal(reversal.Lines[i].Debit))
	}

	net := map[string]decimal.Decimal{}
	for _, l := range append(original.Lines, reversal.Lines...) {
		net[l.AccountID] = net[l.AccountID].Add(l.Debit).Sub(l.Credit)
	}
	for accountID, n := range net {
		suite.True(n.IsZero(), "account %s does not net to zero", accountID)
	}

	stored, err := suite.svc.Ledger.GetEntry(suite.ctx, suite.companyID, original.EntryID)
	suite.Require().NoError(err)
	suite.Equal(domain.Reversed, stored.Status)
	suite.Require().NotNil(stored.ReversedByID)
	suite.Equal(reversal.EntryID, *stored.ReversedByID)
	suite.Len(suite.audits(original.EntryID, domain.ActionEntryReversed), 1)

	_, err = suite.svc.Ledger.ReversePosted(suite.ctx, suite.companyID, suite.userID, original.EntryID, portssvc.ReverseOptions{})
	suite.ErrorIs(err, apperrors.InvalidTransition)
	_, err = suite.svc.Ledger.ReversePosted(suite.ctx, suite.companyID, suite.userID, reversal.EntryID, portssvc.ReverseOptions{})
	suite.ErrorIs(err, apperrors.InvalidTransition)
}

func (suite *LedgerServiceTestSuite) TestReversePosted_IntoLaterPeriod() {
	april := suite.period("2024-04", day(2024, 4, 1), day(2024, 5, 1))
	original := suite.post(suite.march.PeriodID, day(2024, 3, 10),
		debit(suite.cash.AccountID, "100"), credit(suite.revenue.AccountID, "100"))

	reversal, err := suite.svc.Ledger.ReversePosted(suite.ctx, suite.companyID, suite.userID, original.EntryID,
		portssvc.ReverseOptions{PeriodID: april.PeriodID, Description: "undo sale"})
	suite.Require().NoError(err)
	suite.Equal(april.PeriodID, reversal.PeriodID)
	suite.Equal(day(2024, 4, 1), reversal.EntryDate)
	suite.Equal("undo sale", reversal.Description)
}

func (suite *LedgerServiceTestSuite) TestReversePosted_ClosedTargetRefused() {
	april := suite.period("2024-04", day(2024, 4, 1), day(2024, 5, 1))
	original := suite.post(suite.march.PeriodID, day(2024, 3, 10),
		debit(suite.cash.AccountID, "100"), credit(suite.revenue.AccountID, "100"))
	_, err := suite.svc.Period.ClosePeriod(suite.ctx, suite.companyID, suite.userID, april.PeriodID)
	suite.Require().NoError(err)

	_, err = suite.svc.Ledger.ReversePosted(suite.ctx, suite.companyID, suite.userID, original.EntryID,
		portssvc.ReverseOptions{PeriodID: april.PeriodID})
	suite.ErrorIs(err, apperrors.PeriodClosed)

	stored, err := suite.svc.Ledger.GetEntry(suite.ctx, suite.companyID, original.EntryID)
	suite.Require().NoError(err)
	suite.Equal(domain.Posted, stored.Status)
	suite.Nil(stored.ReversedByID)
}

func (suite *LedgerServiceTestSuite) TestPostEntry_ForeignCurrencyUsesRate() {
	err := suite.repos.ExchangeRateRepo.SaveExchangeRate(suite.ctx, domain.ExchangeRate{
		ExchangeRateID:   uuid.NewString(),
		FromCurrencyCode: "EUR",
		ToCurrencyCode:   "USD",
		Rate:             amount("1.1"),
		DateEffective:    day(2024, 3, 1),
	})
	suite.Require().NoError(err)

	draft := suite.balancedDraft("")
	draft.CurrencyCode = "eur"
	entry, err := suite.svc.Ledger.PostEntry(suite.ctx, suite.companyID, suite.userID, draft)
	suite.Require().NoError(err)
	suite.Equal("EUR", entry.CurrencyCode)
	suite.Equal("1.1", entry.ExchangeRate.String())
	suite.Equal("110.00", entry.BaseAmount.StringFixed(2))

	draft.CurrencyCode = "GBP"
	_, err = suite.svc.Ledger.PostEntry(suite.ctx, suite.companyID, suite.userID, draft)
	suite.ErrorIs(err, apperrors.ErrValidation)
}

func (suite *LedgerServiceTestSuite) TestGetEntry_OtherCompanyIsUnknown() {
	entry := suite.post(suite.march.PeriodID, day(2024, 3, 10),
		debit(suite.cash.AccountID, "100"), credit(suite.revenue.AccountID, "100"))

	_, err := suite.svc.Ledger.GetEntry(suite.ctx, uuid.NewString(), entry.EntryID)
	suite.ErrorIs(err, apperrors.UnknownEntry)
	suite.ErrorIs(err, apperrors.ErrNotFound)
}

func TestLedgerServiceTestSuite(t *testing.T) {
	suite.Run(t, new(LedgerServiceTestSuite))
}
