package services_test

import (
	"testing"

	"github.com/SscSPs/erp_ledger/internal/apperrors"
	"github.com/SscSPs/erp_ledger/internal/core/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type ReconciliationServiceTestSuite struct {
	ledgerFixture
	bank    domain.Account
	fees    domain.Account
	revenue domain.Account
	march   domain.AccountingPeriod
}

func (suite *ReconciliationServiceTestSuite) SetupTest() {
	suite.ledgerFixture.SetupTest()
	suite.bank = suite.account("1010", domain.Asset)
	suite.fees = suite.account("6100", domain.Expense)
	suite.revenue = suite.account("4000", domain.Revenue)
	suite.march = suite.period("2024-03", day(2024, 3, 1), day(2024, 4, 1))
}

// payment books money leaving the bank on the given day.
func (suite *ReconciliationServiceTestSuite) payment(d int, value string) {
	suite.post(suite.march.PeriodID, day(2024, 3, d), debit(suite.fees.AccountID, value), credit(suite.bank.AccountID, value))
}

// receipt books money arriving in the bank on the given day.
func (suite *ReconciliationServiceTestSuite) receipt(d int, value string) {
	suite.post(suite.march.PeriodID, day(2024, 3, d), debit(suite.bank.AccountID, value), credit(suite.revenue.AccountID, value))
}

func (suite *ReconciliationServiceTestSuite) start() domain.Reconciliation {
	rec, err := suite.svc.Reconciliation.StartReconciliation(suite.ctx, suite.companyID, suite.userID,
		suite.bank.AccountID, day(2024, 3, 1), day(2024, 3, 31), nil)
	suite.Require().NoError(err)
	return *rec
}

func (suite *ReconciliationServiceTestSuite) importLines(recID string, lines ...domain.StatementLine) domain.Reconciliation {
	rec, err := suite.svc.Reconciliation.ImportStatementLines(suite.ctx, suite.companyID, suite.userID, recID, lines)
	suite.Require().NoError(err)
	return *rec
}

func stmtLine(d int, value, ref string) domain.StatementLine {
	return domain.StatementLine{Date: day(2024, 3, d), Amount: amount(value), ExternalReference: ref, Description: ref}
}

func (suite *ReconciliationServiceTestSuite) itemsOf(recID string, itemType domain.ItemType) []domain.ReconciliationItem {
	items, err := suite.svc.Reconciliation.ListItems(suite.ctx, suite.companyID, recID)
	suite.Require().NoError(err)
	var out []domain.ReconciliationItem
	for _, it := range items {
		if it.ItemType == itemType {
			out = append(out, it)
		}
	}
	return out
}

func (suite *ReconciliationServiceTestSuite) TestStartReconciliation_SnapshotsBookLines() {
	suite.payment(9, "50")
	suite.receipt(20, "200")
	suite.post(suite.march.PeriodID, day(2024, 3, 21), debit(suite.fees.AccountID, "5"), credit(suite.revenue.AccountID, "5"))

	rec := suite.start()

	suite.Equal(domain.ReconInProgress, rec.Status)
	suite.Equal(domain.Asset, rec.AccountCategory)
	suite.Equal("150.00", rec.BookBalance.StringFixed(2))
	suite.Nil(rec.StatementBalance)
	suite.Equal(2, rec.UnreconciledCount)
	suite.Zero(rec.ReconciledCount)

	books := suite.itemsOf(rec.ReconciliationID, domain.ItemBook)
	suite.Require().Len(books, 2)
	suite.Equal(1, books[0].Seq)
	suite.Equal(day(2024, 3, 9), books[0].TransactionDate)
	suite.Equal("50.00", books[0].Credit.StringFixed(2))
	suite.NotNil(books[0].EntryID)
	suite.Len(suite.audits(rec.ReconciliationID, domain.ActionReconStarted), 1)
}

func (suite *ReconciliationServiceTestSuite) TestStartReconciliation_Checks() {
	suite.receipt(20, "200")

	wrong := decimal.NewFromInt(199)
	_, err := suite.svc.Reconciliation.StartReconciliation(suite.ctx, suite.companyID, suite.userID,
		suite.bank.AccountID, day(2024, 3, 1), day(2024, 3, 31), &wrong)
	suite.ErrorIs(err, apperrors.ErrValidation)

	_, err = suite.svc.Reconciliation.StartReconciliation(suite.ctx, suite.companyID, suite.userID,
		suite.bank.AccountID, day(2024, 3, 31), day(2024, 3, 1), nil)
	suite.ErrorIs(err, apperrors.ErrValidation)

	_, err = suite.svc.Reconciliation.StartReconciliation(suite.ctx, suite.companyID, suite.userID,
		uuid.NewString(), day(2024, 3, 1), day(2024, 3, 31), nil)
	suite.ErrorIs(err, apperrors.UnknownAccount)

	right := decimal.NewFromInt(200)
	_, err = suite.svc.Reconciliation.StartReconciliation(suite.ctx, suite.companyID, suite.userID,
		suite.bank.AccountID, day(2024, 3, 1), day(2024, 3, 31), &right)
	suite.Require().NoError(err)

	_, err = suite.svc.Reconciliation.StartReconciliation(suite.ctx, suite.companyID, suite.userID,
		suite.bank.AccountID, day(2024, 3, 15), day(2024, 4, 15), nil)
	suite.ErrorIs(err, apperrors.ErrConflict)
}

func (suite *ReconciliationServiceTestSuite) TestImportStatementLines() {
	rec := suite.start()

	rec = suite.importLines(rec.ReconciliationID, stmtLine(10, "-50", "TX1"), stmtLine(12, "75", "TX2"))
	suite.Require().NotNil(rec.StatementBalance)
	suite.Equal("25.00", rec.StatementBalance.StringFixed(2))
	suite.True(rec.Difference.Equal(rec.BookBalance.Sub(*rec.StatementBalance)))

	stmts := suite.itemsOf(rec.ReconciliationID, domain.ItemStatement)
	suite.Require().Len(stmts, 2)
	suite.Equal("50.00", stmts[0].Credit.StringFixed(2))
	suite.True(stmts[0].Debit.IsZero())
	suite.Equal("TX1", *stmts[0].ExternalReference)

	_, err := suite.svc.Reconciliation.ImportStatementLines(suite.ctx, suite.companyID, suite.userID, rec.ReconciliationID,
		[]domain.StatementLine{stmtLine(14, "5", "TX1")})
	suite.ErrorIs(err, apperrors.ErrDuplicate)

	_, err = suite.svc.Reconciliation.ImportStatementLines(suite.ctx, suite.companyID, suite.userID, rec.ReconciliationID,
		[]domain.StatementLine{stmtLine(14, "0", "TX3")})
	suite.ErrorIs(err, apperrors.ErrValidation)

	_, err = suite.svc.Reconciliation.ImportStatementLines(suite.ctx, suite.companyID, suite.userID, rec.ReconciliationID,
		[]domain.StatementLine{stmtLine(14, "5", " ")})
	suite.ErrorIs(err, apperrors.ErrValidation)

	suite.Len(suite.itemsOf(rec.ReconciliationID, domain.ItemStatement), 2)
}

func (suite *ReconciliationServiceTestSuite) TestAutoMatch_PairsByAmountAndDate() {
	suite.payment(9, "50")
	suite.receipt(20, "200")
	rec := suite.start()
	rec = suite.importLines(rec.ReconciliationID, stmtLine(10, "-50", "TX1"))

	report, err := suite.svc.Reconciliation.AutoMatch(suite.ctx, suite.companyID, suite.userID, rec.ReconciliationID, nil)
	suite.Require().NoError(err)

	suite.Require().Len(report.Matched, 1)
	pair := report.Matched[0]
	suite.Equal("-50", pair.Amount.String())
	suite.Equal(1, pair.DateDeltaDays)
	suite.Empty(report.UnmatchedStatementIDs)
	suite.Len(report.UnmatchedBookIDs, 1)
	suite.Equal(2, report.ReconciledCount)
	suite.Equal(1, report.UnreconciledCount)
	suite.Equal("200.00", report.Difference.StringFixed(2))

	items, err := suite.svc.Reconciliation.ListItems(suite.ctx, suite.companyID, rec.ReconciliationID)
	suite.Require().NoError(err)
	for _, it := range items {
		if it.ItemID == pair.BookItemID || it.ItemID == pair.StatementItemID {
			suite.True(it.IsReconciled)
			suite.Require().NotNil(it.MatchedItemID)
			suite.Require().NotNil(it.ReconciledBy)
			suite.Equal(suite.userID, *it.ReconciledBy)
		} else {
			suite.False(it.IsReconciled)
		}
	}

	again, err := suite.svc.Reconciliation.AutoMatch(suite.ctx, suite.companyID, suite.userID, rec.ReconciliationID, nil)
	suite.Require().NoError(err)
	suite.Empty(again.Matched)
	suite.Equal(2, again.ReconciledCount)
}

func (suite *ReconciliationServiceTestSuite) TestAutoMatch_WindowAndTolerance() {
	suite.receipt(20, "200")
	rec := suite.start()
	suite.importLines(rec.ReconciliationID, stmtLine(15, "200.02", "TX1"))

	report, err := suite.svc.Reconciliation.AutoMatch(suite.ctx, suite.companyID, suite.userID, rec.ReconciliationID, nil)
	suite.Require().NoError(err)
	suite.Empty(report.Matched)
	suite.Len(report.UnmatchedStatementIDs, 1)

	_, err = suite.svc.Reconciliation.AutoMatch(suite.ctx, suite.companyID, suite.userID, rec.ReconciliationID,
		&domain.MatchPolicy{WindowDays: -1})
	suite.ErrorIs(err, apperrors.ErrValidation)

	report, err = suite.svc.Reconciliation.AutoMatch(suite.ctx, suite.companyID, suite.userID, rec.ReconciliationID,
		&domain.MatchPolicy{WindowDays: 5, AmountTolerance: amount("0.05")})
	suite.Require().NoError(err)
	suite.Require().Len(report.Matched, 1)
	suite.Equal(5, report.Matched[0].DateDeltaDays)
}

func (suite *ReconciliationServiceTestSuite) TestAutoMatch_PrefersClosestDateThenOrder() {
	suite.receipt(5, "30")
	suite.receipt(8, "30")
	suite.receipt(10, "40")
	suite.receipt(12, "40")
	rec := suite.start()
	suite.importLines(rec.ReconciliationID, stmtLine(7, "30", "A"), stmtLine(11, "40", "B"))
	books := suite.itemsOf(rec.ReconciliationID, domain.ItemBook)
	suite.Require().Len(books, 4)

	report, err := suite.svc.Reconciliation.AutoMatch(suite.ctx, suite.companyID, suite.userID, rec.ReconciliationID, nil)
	suite.Require().NoError(err)
	suite.Require().Len(report.Matched, 2)

	// 2024-03-08 is one day from the statement, 2024-03-05 two
	suite.Equal(books[1].ItemID, report.Matched[0].BookItemID)
	// equidistant: the earlier book item wins
	suite.Equal(books[2].ItemID, report.Matched[1].BookItemID)
}

func (suite *ReconciliationServiceTestSuite) TestManualMatchAndUnmatch() {
	suite.receipt(20, "200")
	rec := suite.start()
	suite.importLines(rec.ReconciliationID, stmtLine(25, "199", "TX1"))
	book := suite.itemsOf(rec.ReconciliationID, domain.ItemBook)[0]
	stmt := suite.itemsOf(rec.ReconciliationID, domain.ItemStatement)[0]

	_, err := suite.svc.Reconciliation.ManualMatch(suite.ctx, suite.companyID, suite.userID, rec.ReconciliationID, stmt.ItemID, book.ItemID)
	suite.ErrorIs(err, apperrors.ErrValidation)
	_, err = suite.svc.Reconciliation.ManualMatch(suite.ctx, suite.companyID, suite.userID, rec.ReconciliationID, book.ItemID, book.ItemID)
	suite.ErrorIs(err, apperrors.ErrValidation)
	_, err = suite.svc.Reconciliation.ManualMatch(suite.ctx, suite.companyID, suite.userID, rec.ReconciliationID, book.ItemID, uuid.NewString())
	suite.ErrorIs(err, apperrors.ErrNotFound)

	result, err := suite.svc.Reconciliation.ManualMatch(suite.ctx, suite.companyID, suite.userID, rec.ReconciliationID, book.ItemID, stmt.ItemID)
	suite.Require().NoError(err)
	suite.Equal("1.00", result.Delta.StringFixed(2))
	suite.Equal(5, result.Pair.DateDeltaDays)
	suite.Equal(2, result.Reconciliation.ReconciledCount)
	suite.Zero(result.Reconciliation.UnreconciledCount)
	suite.Equal("1.00", result.Reconciliation.Difference.StringFixed(2))

	_, err = suite.svc.Reconciliation.ManualMatch(suite.ctx, suite.companyID, suite.userID, rec.ReconciliationID, book.ItemID, stmt.ItemID)
	suite.ErrorIs(err, apperrors.ErrConflict)

	unmatched, err := suite.svc.Reconciliation.Unmatch(suite.ctx, suite.companyID, suite.userID, rec.ReconciliationID, stmt.ItemID)
	suite.Require().NoError(err)
	suite.Zero(unmatched.ReconciledCount)
	suite.Equal(2, unmatched.UnreconciledCount)

	_, err = suite.svc.Reconciliation.Unmatch(suite.ctx, suite.companyID, suite.userID, rec.ReconciliationID, book.ItemID)
	suite.ErrorIs(err, apperrors.ErrConflict)
}

func (suite *ReconciliationServiceTestSuite) TestAdjustmentMatchesStatementFee() {
	rec := suite.start()
	suite.importLines(rec.ReconciliationID, stmtLine(28, "-12.50", "FEE"))

	adj, err := suite.svc.Reconciliation.AddAdjustment(suite.ctx, suite.companyID, suite.userID, rec.ReconciliationID,
		day(2024, 3, 28), "bank charge", amount("-12.50"))
	suite.Require().NoError(err)
	suite.Equal(domain.ItemAdjustment, adj.ItemType)
	suite.Equal("12.50", adj.Credit.StringFixed(2))
	suite.Equal(2, adj.Seq)

	_, err = suite.svc.Reconciliation.AddAdjustment(suite.ctx, suite.companyID, suite.userID, rec.ReconciliationID,
		day(2024, 3, 28), "nothing", decimal.Zero)
	suite.ErrorIs(err, apperrors.ErrValidation)

	stmt := suite.itemsOf(rec.ReconciliationID, domain.ItemStatement)[0]
	result, err := suite.svc.Reconciliation.ManualMatch(suite.ctx, suite.companyID, suite.userID, rec.ReconciliationID, adj.ItemID, stmt.ItemID)
	suite.Require().NoError(err)
	suite.True(result.Delta.IsZero())

	// Adjustments never move the balances
	got, err := suite.svc.Reconciliation.GetReconciliation(suite.ctx, suite.companyID, rec.ReconciliationID)
	suite.Require().NoError(err)
	suite.True(got.BookBalance.IsZero())
	suite.Equal("-12.50", got.StatementBalance.StringFixed(2))
}

func (suite *ReconciliationServiceTestSuite) TestCompleteApproveLifecycle() {
	suite.payment(9, "50")
	suite.receipt(20, "200")
	rec := suite.start()

	_, err := suite.svc.Reconciliation.Complete(suite.ctx, suite.companyID, suite.userID, rec.ReconciliationID, true)
	suite.ErrorIs(err, apperrors.ReconciliationNotReady)

	suite.importLines(rec.ReconciliationID, stmtLine(10, "-50", "TX1"))
	_, err = suite.svc.Reconciliation.AutoMatch(suite.ctx, suite.companyID, suite.userID, rec.ReconciliationID, nil)
	suite.Require().NoError(err)

	_, err = suite.svc.Reconciliation.Complete(suite.ctx, suite.companyID, suite.userID, rec.ReconciliationID, false)
	suite.Require().ErrorIs(err, apperrors.ReconciliationNotReady)
	le, _ := apperrors.AsLedgerError(err)
	suite.Require().NotNil(le.Count)
	suite.Equal(1, *le.Count)
	suite.Require().NotNil(le.Difference)
	suite.Equal("200.00", le.Difference.StringFixed(2))

	_, err = suite.svc.Reconciliation.Approve(suite.ctx, suite.companyID, suite.userID, rec.ReconciliationID)
	suite.ErrorIs(err, apperrors.InvalidTransition)

	completed, err := suite.svc.Reconciliation.Complete(suite.ctx, suite.companyID, suite.userID, rec.ReconciliationID, true)
	suite.Require().NoError(err)
	suite.Equal(domain.ReconCompleted, completed.Status)
	suite.NotNil(completed.CompletedAt)

	_, err = suite.svc.Reconciliation.ImportStatementLines(suite.ctx, suite.companyID, suite.userID, rec.ReconciliationID,
		[]domain.StatementLine{stmtLine(22, "200", "TX2")})
	suite.ErrorIs(err, apperrors.InvalidTransition)

	approved, err := suite.svc.Reconciliation.Approve(suite.ctx, suite.companyID, suite.userID, rec.ReconciliationID)
	suite.Require().NoError(err)
	suite.Equal(domain.ReconApproved, approved.Status)
	suite.Require().NotNil(approved.ApprovedBy)
	suite.Equal(suite.userID, *approved.ApprovedBy)

	_, err = suite.svc.Reconciliation.Cancel(suite.ctx, suite.companyID, suite.userID, rec.ReconciliationID)
	suite.ErrorIs(err, apperrors.InvalidTransition)
}

func (suite *ReconciliationServiceTestSuite) TestRejectReturnsToWork() {
	rec := suite.start()
	suite.importLines(rec.ReconciliationID, stmtLine(10, "1", "TX1"))
	_, err := suite.svc.Reconciliation.Complete(suite.ctx, suite.companyID, suite.userID, rec.ReconciliationID, true)
	suite.Require().NoError(err)

	_, err = suite.svc.Reconciliation.Reject(suite.ctx, suite.companyID, suite.userID, rec.ReconciliationID, " ")
	suite.ErrorIs(err, apperrors.ErrValidation)

	rejected, err := suite.svc.Reconciliation.Reject(suite.ctx, suite.companyID, suite.userID, rec.ReconciliationID, "statement missing a page")
	suite.Require().NoError(err)
	suite.Equal(domain.ReconInProgress, rejected.Status)
	suite.Require().NotNil(rejected.RejectionReason)
	suite.Equal("statement missing a page", *rejected.RejectionReason)
	suite.Nil(rejected.CompletedAt)

	_, err = suite.svc.Reconciliation.ImportStatementLines(suite.ctx, suite.companyID, suite.userID, rec.ReconciliationID,
		[]domain.StatementLine{stmtLine(11, "2", "TX2")})
	suite.NoError(err)
}

func (suite *ReconciliationServiceTestSuite) TestCancelClearsMatches() {
	suite.payment(9, "50")
	rec := suite.start()
	suite.importLines(rec.ReconciliationID, stmtLine(10, "-50", "TX1"))
	_, err := suite.svc.Reconciliation.AutoMatch(suite.ctx, suite.companyID, suite.userID, rec.ReconciliationID, nil)
	suite.Require().NoError(err)

	cancelled, err := suite.svc.Reconciliation.Cancel(suite.ctx, suite.companyID, suite.userID, rec.ReconciliationID)
	suite.Require().NoError(err)
	suite.Equal(domain.ReconCancelled, cancelled.Status)
	suite.Zero(cancelled.ReconciledCount)

	items, err := suite.svc.Reconciliation.ListItems(suite.ctx, suite.companyID, rec.ReconciliationID)
	suite.Require().NoError(err)
	for _, it := range items {
		suite.False(it.IsReconciled)
		suite.Nil(it.MatchedItemID)
	}

	// A cancelled session no longer blocks the range
	_, err = suite.svc.Reconciliation.StartReconciliation(suite.ctx, suite.companyID, suite.userID,
		suite.bank.AccountID, day(2024, 3, 1), day(2024, 3, 31), nil)
	suite.NoError(err)
}

func (suite *ReconciliationServiceTestSuite) TestOtherCompanyCannotSeeReconciliation() {
	rec := suite.start()

	_, err := suite.svc.Reconciliation.GetReconciliation(suite.ctx, uuid.NewString(), rec.ReconciliationID)
	suite.ErrorIs(err, apperrors.ErrNotFound)
	_, err = suite.svc.Reconciliation.AutoMatch(suite.ctx, uuid.NewString(), suite.userID, rec.ReconciliationID, nil)
	suite.ErrorIs(err, apperrors.ErrNotFound)
}

func TestReconciliationServiceTestSuite(t *testing.T) {
	suite.Run(t, new(ReconciliationServiceTestSuite))
}
