package services_test

import (
	"testing"

	"github.com/SscSPs/erp_ledger/internal/apperrors"
	"github.com/SscSPs/erp_ledger/internal/core/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
)

type PeriodServiceTestSuite struct {
	ledgerFixture
}

func (suite *PeriodServiceTestSuite) TestOpenPeriod_RejectsOverlap() {
	march := suite.period("2024-03", day(2024, 3, 1), day(2024, 4, 1))

	_, err := suite.svc.Period.OpenPeriod(suite.ctx, suite.companyID, suite.userID, "mid-march", day(2024, 3, 15), day(2024, 4, 15))
	suite.Require().ErrorIs(err, apperrors.PeriodOverlap)
	le, _ := apperrors.AsLedgerError(err)
	suite.Equal(march.PeriodID, le.PeriodID)

	// Half-open ranges: April may start where March ends
	april := suite.period("2024-04", day(2024, 4, 1), day(2024, 5, 1))
	suite.False(april.IsClosed)
	suite.Len(suite.audits(april.PeriodID, domain.ActionPeriodOpened), 1)

	// Another company is unaffected
	_, err = suite.svc.Period.OpenPeriod(suite.ctx, uuid.NewString(), suite.userID, "2024-03", day(2024, 3, 1), day(2024, 4, 1))
	suite.NoError(err)
}

func (suite *PeriodServiceTestSuite) TestOpenPeriod_Validation() {
	_, err := suite.svc.Period.OpenPeriod(suite.ctx, suite.companyID, suite.userID, "empty", day(2024, 3, 1), day(2024, 3, 1))
	suite.ErrorIs(err, apperrors.ErrValidation)

	_, err = suite.svc.Period.OpenPeriod(suite.ctx, suite.companyID, suite.userID, "backwards", day(2024, 4, 1), day(2024, 3, 1))
	suite.ErrorIs(err, apperrors.ErrValidation)

	_, err = suite.svc.Period.OpenPeriod(suite.ctx, suite.companyID, suite.userID, "  ", day(2024, 3, 1), day(2024, 4, 1))
	suite.ErrorIs(err, apperrors.ErrValidation)
}

func (suite *PeriodServiceTestSuite) TestClosePeriod_BlockedByDrafts() {
	march := suite.period("2024-03", day(2024, 3, 1), day(2024, 4, 1))
	cash := suite.account("1000", domain.Asset)
	sales := suite.account("4000", domain.Revenue)
	draft := suite.draft(march.PeriodID, day(2024, 3, 3), debit(cash.AccountID, "5"), credit(sales.AccountID, "5"))

	_, err := suite.svc.Period.ClosePeriod(suite.ctx, suite.companyID, suite.userID, march.PeriodID)
	suite.Require().ErrorIs(err, apperrors.PeriodHasOpenEntries)
	le, _ := apperrors.AsLedgerError(err)
	suite.Require().NotNil(le.Count)
	suite.Equal(1, *le.Count)

	_, err = suite.svc.Ledger.CancelDraft(suite.ctx, suite.companyID, suite.userID, draft.EntryID)
	suite.Require().NoError(err)

	closed, err := suite.svc.Period.ClosePeriod(suite.ctx, suite.companyID, suite.userID, march.PeriodID)
	suite.Require().NoError(err)
	suite.True(closed.IsClosed)
	suite.Require().NotNil(closed.ClosedBy)
	suite.Equal(suite.userID, *closed.ClosedBy)

	again, err := suite.svc.Period.ClosePeriod(suite.ctx, suite.companyID, suite.userID, march.PeriodID)
	suite.Require().NoError(err)
	suite.Equal(closed.Version, again.Version)
	suite.Len(suite.audits(march.PeriodID, domain.ActionPeriodClosed), 1)
}

func (suite *PeriodServiceTestSuite) TestClosedPeriodRefusesWrites() {
	march := suite.period("2024-03", day(2024, 3, 1), day(2024, 4, 1))
	cash := suite.account("1000", domain.Asset)
	sales := suite.account("4000", domain.Revenue)
	_, err := suite.svc.Period.ClosePeriod(suite.ctx, suite.companyID, suite.userID, march.PeriodID)
	suite.Require().NoError(err)

	draft := domain.JournalEntryDraft{
		PeriodID:    march.PeriodID,
		Description: "late",
		EntryDate:   day(2024, 3, 31),
		Lines:       []domain.DraftLine{debit(cash.AccountID, "1"), credit(sales.AccountID, "1")},
	}
	_, err = suite.svc.Ledger.PostEntry(suite.ctx, suite.companyID, suite.userID, draft)
	suite.ErrorIs(err, apperrors.PeriodClosed)
	_, err = suite.svc.Ledger.CreateDraft(suite.ctx, suite.companyID, suite.userID, draft)
	suite.ErrorIs(err, apperrors.PeriodClosed)
}

func (suite *PeriodServiceTestSuite) TestClosePeriod_UnknownOrForeign() {
	_, err := suite.svc.Period.ClosePeriod(suite.ctx, suite.companyID, suite.userID, uuid.NewString())
	suite.ErrorIs(err, apperrors.UnknownPeriod)

	march := suite.period("2024-03", day(2024, 3, 1), day(2024, 4, 1))
	_, err = suite.svc.Period.ClosePeriod(suite.ctx, uuid.NewString(), suite.userID, march.PeriodID)
	suite.ErrorIs(err, apperrors.UnknownPeriod)
}

func (suite *PeriodServiceTestSuite) TestIsOpen() {
	march := suite.period("2024-03", day(2024, 3, 1), day(2024, 4, 1))

	tests := []struct {
		name     string
		periodID string
		date     int
		want     bool
	}{
		{name: "first day", periodID: march.PeriodID, date: 1, want: true},
		{name: "last day", periodID: march.PeriodID, date: 31, want: true},
		{name: "unknown period", periodID: uuid.NewString(), date: 10, want: false},
	}
	for _, tt := range tests {
		suite.Run(tt.name, func() {
			open, err := suite.svc.Period.IsOpen(suite.ctx, tt.periodID, day(2024, 3, tt.date))
			suite.Require().NoError(err)
			suite.Equal(tt.want, open)
		})
	}

	open, err := suite.svc.Period.IsOpen(suite.ctx, march.PeriodID, day(2024, 4, 1))
	suite.Require().NoError(err)
	suite.False(open, "end is exclusive")

	_, err = suite.svc.Period.ClosePeriod(suite.ctx, suite.companyID, suite.userID, march.PeriodID)
	suite.Require().NoError(err)
	open, err = suite.svc.Period.IsOpen(suite.ctx, march.PeriodID, day(2024, 3, 10))
	suite.Require().NoError(err)
	suite.False(open)
}

func (suite *PeriodServiceTestSuite) TestRequireOpen() {
	march := suite.period("2024-03", day(2024, 3, 1), day(2024, 4, 1))

	p, err := suite.svc.Period.RequireOpen(suite.ctx, suite.companyID, march.PeriodID, day(2024, 3, 10))
	suite.Require().NoError(err)
	suite.Equal(march.PeriodID, p.PeriodID)

	_, err = suite.svc.Period.RequireOpen(suite.ctx, uuid.NewString(), march.PeriodID, day(2024, 3, 10))
	suite.ErrorIs(err, apperrors.UnknownPeriod)

	_, err = suite.svc.Period.RequireOpen(suite.ctx, suite.companyID, "", day(2024, 3, 10))
	suite.ErrorIs(err, apperrors.UnknownPeriod)

	_, err = suite.svc.Period.RequireOpen(suite.ctx, suite.companyID, march.PeriodID, day(2024, 2, 29))
	suite.ErrorIs(err, apperrors.EntryDateOutsidePeriod)
}

func (suite *PeriodServiceTestSuite) TestFindPeriodForDate() {
	march := suite.period("2024-03", day(2024, 3, 1), day(2024, 4, 1))

	p, err := suite.svc.Period.FindPeriodForDate(suite.ctx, suite.companyID, day(2024, 3, 20))
	suite.Require().NoError(err)
	suite.Equal(march.PeriodID, p.PeriodID)

	_, err = suite.svc.Period.FindPeriodForDate(suite.ctx, suite.companyID, day(2024, 5, 1))
	suite.ErrorIs(err, apperrors.UnknownPeriod)

	periods, err := suite.svc.Period.ListPeriods(suite.ctx, suite.companyID)
	suite.Require().NoError(err)
	suite.Len(periods, 1)
}

func TestPeriodServiceTestSuite(t *testing.T) {
	suite.Run(t, new(PeriodServiceTestSuite))
}
