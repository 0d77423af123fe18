package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/SscSPs/erp_ledger/internal/adapters/database/memory"
	"github.com/SscSPs/erp_ledger/internal/apperrors"
	"github.com/SscSPs/erp_ledger/internal/core/domain"
	portssvc "github.com/SscSPs/erp_ledger/internal/core/ports/services"
	"github.com/SscSPs/erp_ledger/internal/core/services"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// MockAccountRepository is a mock type for the AccountRepositoryFacade interface
type MockAccountRepository struct {
	mock.Mock
}

func (m *MockAccountRepository) FindAccountByID(ctx context.Context, accountID string) (*domain.Account, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}

func (m *MockAccountRepository) FindAccountByCode(ctx context.Context, companyID, code string) (*domain.Account, error) {
	args := m.Called(ctx, companyID, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}

func (m *MockAccountRepository) FindAccountsByIDs(ctx context.Context, accountIDs []string) (map[string]domain.Account, error) {
	args := m.Called(ctx, accountIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]domain.Account), args.Error(1)
}

func (m *MockAccountRepository) ListAccounts(ctx context.Context, companyID string, limit int, offset int) ([]domain.Account, error) {
	args := m.Called(ctx, companyID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Account), args.Error(1)
}

func (m *MockAccountRepository) ListChildAccounts(ctx context.Context, parentAccountID string) ([]domain.Account, error) {
	args := m.Called(ctx, parentAccountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Account), args.Error(1)
}

func (m *MockAccountRepository) SaveAccount(ctx context.Context, account domain.Account) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

func (m *MockAccountRepository) UpdateAccount(ctx context.Context, account domain.Account, expectedVersion int64) error {
	args := m.Called(ctx, account, expectedVersion)
	return args.Error(0)
}

// MockJournalReader is a mock type for the JournalReader interface
type MockJournalReader struct {
	mock.Mock
}

func (m *MockJournalReader) FindEntryByID(ctx context.Context, entryID string) (*domain.JournalEntry, error) {
	args := m.Called(ctx, entryID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.JournalEntry), args.Error(1)
}

func (m *MockJournalReader) ListEntries(ctx context.Context, companyID string, filter domain.EntryFilter) ([]domain.JournalEntry, error) {
	args := m.Called(ctx, companyID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.JournalEntry), args.Error(1)
}

func (m *MockJournalReader) CountEntriesByStatus(ctx context.Context, periodID string, status domain.JournalStatus) (int, error) {
	args := m.Called(ctx, periodID, status)
	return args.Int(0), args.Error(1)
}

func (m *MockJournalReader) AccountHasLines(ctx context.Context, accountID string) (bool, error) {
	args := m.Called(ctx, accountID)
	return args.Bool(0), args.Error(1)
}

// passThroughTx runs the unit of work without a transaction.
type passThroughTx struct{}

func (passThroughTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// --- Test Suite Setup ---

type ChartServiceTestSuite struct {
	suite.Suite
	ctx         context.Context
	mockRepo    *MockAccountRepository
	mockJournal *MockJournalReader
	service     portssvc.ChartSvcFacade
	companyID   string
	userID      string
}

func (suite *ChartServiceTestSuite) SetupTest() {
	suite.ctx = context.Background()
	suite.mockRepo = new(MockAccountRepository)
	suite.mockJournal = new(MockJournalReader)
	suite.service = services.NewChartService(passThroughTx{}, suite.mockRepo, suite.mockJournal,
		services.WithAccountCache(16, time.Minute))
	suite.companyID = uuid.NewString()
	suite.userID = uuid.NewString()
}

func (suite *ChartServiceTestSuite) stored(code string, category domain.AccountCategory) *domain.Account {
	return &domain.Account{
		AccountID:    uuid.NewString(),
		CompanyID:    suite.companyID,
		Code:         code,
		Name:         code + " account",
		Category:     category,
		CurrencyCode: "USD",
		Version:      1,
	}
}

// --- Test Cases ---

func (suite *ChartServiceTestSuite) TestRegisterAccount_Success() {
	suite.mockRepo.On("SaveAccount", suite.ctx, mock.AnythingOfType("domain.Account")).Return(nil).Once()

	acc, err := suite.service.RegisterAccount(suite.ctx, suite.companyID, suite.userID, portssvc.RegisterAccountInput{
		Code:         " 1000 ",
		Name:         "Cash",
		Category:     domain.Asset,
		CurrencyCode: "usd",
	})

	suite.Require().NoError(err)
	suite.NotEmpty(acc.AccountID)
	suite.Equal("1000", acc.Code)
	suite.Equal("USD", acc.CurrencyCode)
	suite.Equal(int64(1), acc.Version)
	suite.Equal(suite.userID, acc.CreatedBy)
	suite.mockRepo.AssertExpectations(suite.T())
}

func (suite *ChartServiceTestSuite) TestRegisterAccount_Validation() {
	tests := []struct {
		name string
		in   portssvc.RegisterAccountInput
	}{
		{name: "unknown category", in: portssvc.RegisterAccountInput{Code: "1", Name: "x", Category: "BOGUS", CurrencyCode: "USD"}},
		{name: "missing code", in: portssvc.RegisterAccountInput{Name: "x", Category: domain.Asset, CurrencyCode: "USD"}},
		{name: "missing name", in: portssvc.RegisterAccountInput{Code: "1", Category: domain.Asset, CurrencyCode: "USD"}},
		{name: "bad currency", in: portssvc.RegisterAccountInput{Code: "1", Name: "x", Category: domain.Asset, CurrencyCode: "DOLLAR"}},
	}
	for _, tt := range tests {
		suite.Run(tt.name, func() {
			_, err := suite.service.RegisterAccount(suite.ctx, suite.companyID, suite.userID, tt.in)
			suite.ErrorIs(err, apperrors.ErrValidation)
		})
	}
	suite.mockRepo.AssertNotCalled(suite.T(), "SaveAccount", mock.Anything, mock.Anything)
}

func (suite *ChartServiceTestSuite) TestRegisterAccount_DuplicateCode() {
	suite.mockRepo.On("SaveAccount", suite.ctx, mock.AnythingOfType("domain.Account")).Return(apperrors.ErrDuplicate).Once()

	acc, err := suite.service.RegisterAccount(suite.ctx, suite.companyID, suite.userID, portssvc.RegisterAccountInput{
		Code: "1000", Name: "Cash", Category: domain.Asset, CurrencyCode: "USD",
	})

	suite.Nil(acc)
	suite.ErrorIs(err, apperrors.ErrDuplicate)
}

func (suite *ChartServiceTestSuite) TestResolvePostable_UsesCache() {
	cash := suite.stored("1000", domain.Asset)
	sales := suite.stored("4000", domain.Revenue)
	suite.mockRepo.On("FindAccountsByIDs", suite.ctx, []string{cash.AccountID, sales.AccountID}).
		Return(map[string]domain.Account{cash.AccountID: *cash, sales.AccountID: *sales}, nil).Once()

	for range 3 {
		resolved, err := suite.service.ResolvePostable(suite.ctx, suite.companyID,
			[]string{cash.AccountID, sales.AccountID, cash.AccountID})
		suite.Require().NoError(err)
		suite.Len(resolved, 2)
	}
	suite.mockRepo.AssertExpectations(suite.T())
}

func (suite *ChartServiceTestSuite) TestResolvePostable_UnknownAccountCarriesLine() {
	cash := suite.stored("1000", domain.Asset)
	missing := uuid.NewString()
	suite.mockRepo.On("FindAccountsByIDs", suite.ctx, []string{cash.AccountID, missing}).
		Return(map[string]domain.Account{cash.AccountID: *cash}, nil).Once()

	_, err := suite.service.ResolvePostable(suite.ctx, suite.companyID, []string{cash.AccountID, missing})

	suite.Require().ErrorIs(err, apperrors.UnknownAccount)
	le, ok := apperrors.AsLedgerError(err)
	suite.Require().True(ok)
	suite.Equal(missing, le.AccountID)
	suite.Require().NotNil(le.LineIndex)
	suite.Equal(1, *le.LineIndex)
}

func (suite *ChartServiceTestSuite) TestResolvePostable_ForeignAccountIsUnknown() {
	foreign := suite.stored("1000", domain.Asset)
	foreign.CompanyID = uuid.NewString()
	suite.mockRepo.On("FindAccountsByIDs", suite.ctx, []string{foreign.AccountID}).
		Return(map[string]domain.Account{foreign.AccountID: *foreign}, nil).Once()

	_, err := suite.service.ResolvePostable(suite.ctx, suite.companyID, []string{foreign.AccountID})
	suite.ErrorIs(err, apperrors.UnknownAccount)
}

func (suite *ChartServiceTestSuite) TestGetAccount_NotFound() {
	id := uuid.NewString()
	suite.mockRepo.On("FindAccountByID", suite.ctx, id).Return(nil, apperrors.ErrNotFound).Once()

	_, err := suite.service.GetAccount(suite.ctx, suite.companyID, id)
	suite.ErrorIs(err, apperrors.UnknownAccount)
	suite.ErrorIs(err, apperrors.ErrNotFound)
}

func (suite *ChartServiceTestSuite) TestUpdateAccount_RenameSkipsLineCheck() {
	acc := suite.stored("1000", domain.Asset)
	suite.mockRepo.On("FindAccountByID", suite.ctx, acc.AccountID).Return(acc, nil).Once()
	suite.mockRepo.On("UpdateAccount", suite.ctx, mock.MatchedBy(func(a domain.Account) bool {
		return a.Name == "Petty cash" && a.Version == 2
	}), int64(1)).Return(nil).Once()

	name := "Petty cash"
	updated, err := suite.service.UpdateAccount(suite.ctx, suite.companyID, suite.userID, acc.AccountID,
		portssvc.UpdateAccountInput{Name: &name, ExpectedVersion: 1})

	suite.Require().NoError(err)
	suite.Equal("Petty cash", updated.Name)
	suite.mockJournal.AssertNotCalled(suite.T(), "AccountHasLines", mock.Anything, mock.Anything)
	suite.mockRepo.AssertExpectations(suite.T())
}

func (suite *ChartServiceTestSuite) TestUpdateAccount_CategoryFixedOnceUsed() {
	acc := suite.stored("1000", domain.Asset)
	suite.mockRepo.On("FindAccountByID", suite.ctx, acc.AccountID).Return(acc, nil).Once()
	suite.mockJournal.On("AccountHasLines", suite.ctx, acc.AccountID).Return(true, nil).Once()

	category := domain.Liability
	_, err := suite.service.UpdateAccount(suite.ctx, suite.companyID, suite.userID, acc.AccountID,
		portssvc.UpdateAccountInput{Category: &category})

	suite.ErrorIs(err, apperrors.ErrConflict)
	suite.mockRepo.AssertNotCalled(suite.T(), "UpdateAccount", mock.Anything, mock.Anything, mock.Anything)
}

func (suite *ChartServiceTestSuite) TestUpdateAccount_StaleVersion() {
	acc := suite.stored("1000", domain.Asset)
	acc.Version = 3
	suite.mockRepo.On("FindAccountByID", suite.ctx, acc.AccountID).Return(acc, nil).Once()

	name := "Cash"
	_, err := suite.service.UpdateAccount(suite.ctx, suite.companyID, suite.userID, acc.AccountID,
		portssvc.UpdateAccountInput{Name: &name, ExpectedVersion: 2})
	suite.ErrorIs(err, apperrors.ConcurrentModification)
}

func (suite *ChartServiceTestSuite) TestSetPostingRestriction_InvalidatesCache() {
	acc := suite.stored("1000", domain.Asset)
	suite.mockRepo.On("FindAccountsByIDs", suite.ctx, []string{acc.AccountID}).
		Return(map[string]domain.Account{acc.AccountID: *acc}, nil).Once()
	_, err := suite.service.ResolvePostable(suite.ctx, suite.companyID, []string{acc.AccountID})
	suite.Require().NoError(err)

	suite.mockRepo.On("FindAccountByID", suite.ctx, acc.AccountID).Return(acc, nil).Once()
	suite.mockRepo.On("UpdateAccount", suite.ctx, mock.AnythingOfType("domain.Account"), int64(1)).Return(nil).Once()
	_, err = suite.service.SetPostingRestriction(suite.ctx, suite.companyID, suite.userID, acc.AccountID, true)
	suite.Require().NoError(err)

	restricted := *acc
	restricted.IsPostedRestricted = true
	suite.mockRepo.On("FindAccountsByIDs", suite.ctx, []string{acc.AccountID}).
		Return(map[string]domain.Account{acc.AccountID: restricted}, nil).Once()
	_, err = suite.service.ResolvePostable(suite.ctx, suite.companyID, []string{acc.AccountID})
	suite.ErrorIs(err, apperrors.RestrictedAccount)
}

func (suite *ChartServiceTestSuite) TestResolvePostable_ReadOverlappingUpdateIsNotCached() {
	acc := suite.stored("1000", domain.Asset)
	suite.mockRepo.On("FindAccountByID", suite.ctx, acc.AccountID).Return(acc, nil).Once()
	suite.mockRepo.On("UpdateAccount", suite.ctx, mock.AnythingOfType("domain.Account"), int64(1)).Return(nil).Once()

	// The restriction commits while the first read is in flight.
	suite.mockRepo.On("FindAccountsByIDs", suite.ctx, []string{acc.AccountID}).
		Run(func(mock.Arguments) {
			_, err := suite.service.SetPostingRestriction(suite.ctx, suite.companyID, suite.userID, acc.AccountID, true)
			suite.Require().NoError(err)
		}).
		Return(map[string]domain.Account{acc.AccountID: *acc}, nil).Once()
	_, err := suite.service.ResolvePostable(suite.ctx, suite.companyID, []string{acc.AccountID})
	suite.Require().NoError(err)

	restricted := *acc
	restricted.IsPostedRestricted = true
	restricted.Version = 2
	suite.mockRepo.On("FindAccountsByIDs", suite.ctx, []string{acc.AccountID}).
		Return(map[string]domain.Account{acc.AccountID: restricted}, nil).Once()
	_, err = suite.service.ResolvePostable(suite.ctx, suite.companyID, []string{acc.AccountID})
	suite.ErrorIs(err, apperrors.RestrictedAccount)
	suite.mockRepo.AssertExpectations(suite.T())
}

func TestChartServiceTestSuite(t *testing.T) {
	suite.Run(t, new(ChartServiceTestSuite))
}

func TestReparent_RejectsCycles(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	repos := memory.NewRepositoryProvider(store)
	chart := services.NewChartService(repos.TxManager, repos.AccountRepo, repos.JournalRepo)
	companyID, userID := uuid.NewString(), uuid.NewString()

	register := func(code string, parent *string) *domain.Account {
		acc, err := chart.RegisterAccount(ctx, companyID, userID, portssvc.RegisterAccountInput{
			Code: code, Name: code, Category: domain.Asset, CurrencyCode: "USD", ParentAccountID: parent,
		})
		require.NoError(t, err)
		return acc
	}
	root := register("1", nil)
	mid := register("10", &root.AccountID)
	leaf := register("100", &mid.AccountID)

	_, err := chart.Reparent(ctx, companyID, userID, root.AccountID, &leaf.AccountID)
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = chart.Reparent(ctx, companyID, userID, root.AccountID, &root.AccountID)
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	moved, err := chart.Reparent(ctx, companyID, userID, leaf.AccountID, &root.AccountID)
	require.NoError(t, err)
	require.NotNil(t, moved.ParentAccountID)
	assert.Equal(t, root.AccountID, *moved.ParentAccountID)
	assert.Equal(t, int64(2), moved.Version)

	_, err = chart.Reparent(ctx, companyID, userID, leaf.AccountID, &[]string{uuid.NewString()}[0])
	assert.ErrorIs(t, err, apperrors.UnknownAccount)
}
