package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/SscSPs/erp_ledger/internal/apperrors"
	"github.com/SscSPs/erp_ledger/internal/core/domain"
	portssvc "github.com/SscSPs/erp_ledger/internal/core/ports/services"
	"github.com/SscSPs/erp_ledger/internal/dto"
	"github.com/SscSPs/erp_ledger/internal/handlers"
	"github.com/SscSPs/erp_ledger/internal/middleware"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

// --- Mock ChartService ---
type MockChartService struct {
	mock.Mock
}

func (m *MockChartService) GetAccount(ctx context.Context, companyID, accountID string) (*domain.Account, error) {
	args := m.Called(ctx, companyID, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}
func (m *MockChartService) ListAccounts(ctx context.Context, companyID string, limit, offset int) ([]domain.Account, error) {
	args := m.Called(ctx, companyID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Account), args.Error(1)
}
func (m *MockChartService) ResolvePostable(ctx context.Context, companyID string, accountIDs []string) (map[string]domain.Account, error) {
	args := m.Called(ctx, companyID, accountIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]domain.Account), args.Error(1)
}
func (m *MockChartService) RegisterAccount(ctx context.Context, companyID, userID string, in portssvc.RegisterAccountInput) (*domain.Account, error) {
	args := m.Called(ctx, companyID, userID, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}
func (m *MockChartService) UpdateAccount(ctx context.Context, companyID, userID, accountID string, in portssvc.UpdateAccountInput) (*domain.Account, error) {
	args := m.Called(ctx, companyID, userID, accountID, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}
func (m *MockChartService) Reparent(ctx context.Context, companyID, userID, accountID string, parentAccountID *string) (*domain.Account, error) {
	args := m.Called(ctx, companyID, userID, accountID, parentAccountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}
func (m *MockChartService) SetPostingRestriction(ctx context.Context, companyID, userID, accountID string, restricted bool) (*domain.Account, error) {
	args := m.Called(ctx, companyID, userID, accountID, restricted)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}

// Ensure mock implements the interface
var _ portssvc.ChartSvcFacade = (*MockChartService)(nil)

// --- Mock LedgerService ---
type MockLedgerService struct {
	mock.Mock
}

func (m *MockLedgerService) entry(args mock.Arguments) (*domain.JournalEntry, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.JournalEntry), args.Error(1)
}
func (m *MockLedgerService) GetEntry(ctx context.Context, companyID, entryID string) (*domain.JournalEntry, error) {
	return m.entry(m.Called(ctx, companyID, entryID))
}
func (m *MockLedgerService) ListEntries(ctx context.Context, companyID string, filter domain.EntryFilter) ([]domain.JournalEntry, error) {
	args := m.Called(ctx, companyID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.JournalEntry), args.Error(1)
}
func (m *MockLedgerService) CreateDraft(ctx context.Context, companyID, userID string, draft domain.JournalEntryDraft) (*domain.JournalEntry, error) {
	return m.entry(m.Called(ctx, companyID, userID, draft))
}
func (m *MockLedgerService) UpdateDraft(ctx context.Context, companyID, userID, entryID string, draft domain.JournalEntryDraft, expectedVersion int64) (*domain.JournalEntry, error) {
	return m.entry(m.Called(ctx, companyID, userID, entryID, draft, expectedVersion))
}
func (m *MockLedgerService) CancelDraft(ctx context.Context, companyID, userID, entryID string) (*domain.JournalEntry, error) {
	return m.entry(m.Called(ctx, companyID, userID, entryID))
}
func (m *MockLedgerService) PostEntry(ctx context.Context, companyID, userID string, draft domain.JournalEntryDraft) (*domain.JournalEntry, error) {
	return m.entry(m.Called(ctx, companyID, userID, draft))
}
func (m *MockLedgerService) PostDraft(ctx context.Context, companyID, userID, entryID string) (*domain.JournalEntry, error) {
	return m.entry(m.Called(ctx, companyID, userID, entryID))
}
func (m *MockLedgerService) ReversePosted(ctx context.Context, companyID, userID, entryID string, opts portssvc.ReverseOptions) (*domain.JournalEntry, error) {
	return m.entry(m.Called(ctx, companyID, userID, entryID, opts))
}

var _ portssvc.LedgerSvcFacade = (*MockLedgerService)(nil)

// --- Mock BatchService ---
type MockBatchService struct {
	mock.Mock
}

func (m *MockBatchService) SubmitBatch(ctx context.Context, companyID, userID string, entryIDs []string) (*domain.Batch, error) {
	args := m.Called(ctx, companyID, userID, entryIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Batch), args.Error(1)
}
func (m *MockBatchService) ProcessBatch(ctx context.Context, batchID string) (*domain.Batch, error) {
	args := m.Called(ctx, batchID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Batch), args.Error(1)
}
func (m *MockBatchService) GetBatchStatus(ctx context.Context, companyID, batchID string) (*domain.Batch, error) {
	args := m.Called(ctx, companyID, batchID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Batch), args.Error(1)
}
func (m *MockBatchService) DiscardBatch(ctx context.Context, companyID, userID, batchID string) error {
	return m.Called(ctx, companyID, userID, batchID).Error(0)
}
func (m *MockBatchService) ResumeUnfinished(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}
func (m *MockBatchService) Shutdown(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

var _ portssvc.BatchSvcFacade = (*MockBatchService)(nil)

// --- Mock PeriodService ---
type MockPeriodService struct {
	mock.Mock
}

func (m *MockPeriodService) period(args mock.Arguments) (*domain.AccountingPeriod, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AccountingPeriod), args.Error(1)
}
func (m *MockPeriodService) GetPeriod(ctx context.Context, companyID, periodID string) (*domain.AccountingPeriod, error) {
	return m.period(m.Called(ctx, companyID, periodID))
}
func (m *MockPeriodService) ListPeriods(ctx context.Context, companyID string) ([]domain.AccountingPeriod, error) {
	args := m.Called(ctx, companyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.AccountingPeriod), args.Error(1)
}
func (m *MockPeriodService) FindPeriodForDate(ctx context.Context, companyID string, at time.Time) (*domain.AccountingPeriod, error) {
	return m.period(m.Called(ctx, companyID, at))
}
func (m *MockPeriodService) IsOpen(ctx context.Context, periodID string, at time.Time) (bool, error) {
	args := m.Called(ctx, periodID, at)
	return args.Bool(0), args.Error(1)
}
func (m *MockPeriodService) RequireOpen(ctx context.Context, companyID, periodID string, at time.Time) (*domain.AccountingPeriod, error) {
	return m.period(m.Called(ctx, companyID, periodID, at))
}
func (m *MockPeriodService) OpenPeriod(ctx context.Context, companyID, userID, name string, start, end time.Time) (*domain.AccountingPeriod, error) {
	return m.period(m.Called(ctx, companyID, userID, name, start, end))
}
func (m *MockPeriodService) ClosePeriod(ctx context.Context, companyID, userID, periodID string) (*domain.AccountingPeriod, error) {
	return m.period(m.Called(ctx, companyID, userID, periodID))
}

var _ portssvc.PeriodSvcFacade = (*MockPeriodService)(nil)

// --- Test Suite ---
type HandlerTestSuite struct {
	suite.Suite
	router      *gin.Engine
	chart       *MockChartService
	ledger      *MockLedgerService
	batches     *MockBatchService
	periods     *MockPeriodService
	jwtSecret   string
	userID      string
	companyID   string
	bearerToken string
}

// generateTestToken creates a signed JWT carrying the user and company.
func (suite *HandlerTestSuite) generateTestToken(userID, companyID string) string {
	claims := middleware.LedgerClaims{
		CompanyID: companyID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "ledger-test",
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(1 * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(suite.jwtSecret))
	if err != nil {
		suite.FailNow("Failed to sign test token", err.Error())
	}
	return signed
}

func (suite *HandlerTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	suite.router = gin.New()
	suite.jwtSecret = "test-secret-key-that-is-long-enough"
	suite.userID = uuid.NewString()
	suite.companyID = uuid.NewString()
	suite.bearerToken = suite.generateTestToken(suite.userID, suite.companyID)

	suite.chart = new(MockChartService)
	suite.ledger = new(MockLedgerService)
	suite.batches = new(MockBatchService)
	suite.periods = new(MockPeriodService)

	v1 := suite.router.Group("/api/v1", middleware.AuthMiddleware(suite.jwtSecret, "ledger-test"))
	handlers.RegisterAccountRoutes(v1, suite.chart)
	handlers.RegisterEntryRoutes(v1, suite.ledger)
	handlers.RegisterBatchRoutes(v1, suite.batches)
	handlers.RegisterPeriodRoutes(v1, suite.periods)
}

func (suite *HandlerTestSuite) do(method, url string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		suite.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req, _ := http.NewRequest(method, url, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+suite.bearerToken)
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)
	return w
}

func (suite *HandlerTestSuite) decodeError(w *httptest.ResponseRecorder) dto.ErrorResponse {
	var resp dto.ErrorResponse
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

// --- Test Cases ---

func (suite *HandlerTestSuite) TestRegisterAccount_Success() {
	in := portssvc.RegisterAccountInput{Code: "1000", Name: "Cash", Category: domain.Asset, CurrencyCode: "USD"}
	acc := &domain.Account{AccountID: uuid.NewString(), CompanyID: suite.companyID, Code: "1000", Name: "Cash", Category: domain.Asset, CurrencyCode: "USD", Version: 1}
	suite.chart.On("RegisterAccount", mock.Anything, suite.companyID, suite.userID, in).Return(acc, nil).Once()

	w := suite.do(http.MethodPost, "/api/v1/accounts", map[string]any{
		"code": "1000", "name": "Cash", "category": "ASSET", "currencyCode": "USD",
	})

	suite.Equal(http.StatusCreated, w.Code)
	var resp dto.AccountResponse
	suite.NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	suite.Equal(acc.AccountID, resp.AccountID)
	suite.Equal(domain.Asset, resp.Category)
	suite.chart.AssertExpectations(suite.T())
}

func (suite *HandlerTestSuite) TestRegisterAccount_ValidationFailure() {
	w := suite.do(http.MethodPost, "/api/v1/accounts", map[string]any{
		"code": "1000", "category": "CASH", "currencyCode": "USD",
	})

	suite.Equal(http.StatusBadRequest, w.Code)
	resp := suite.decodeError(w)
	suite.Equal("required", resp.Fields["Name"])
	suite.Equal("oneof", resp.Fields["Category"])
	suite.chart.AssertNotCalled(suite.T(), "RegisterAccount")
}

func (suite *HandlerTestSuite) TestUpdateAccount_StaleVersion() {
	accountID := uuid.NewString()
	suite.chart.On("UpdateAccount", mock.Anything, suite.companyID, suite.userID, accountID, mock.AnythingOfType("services.UpdateAccountInput")).
		Return(nil, apperrors.Stale("account", accountID)).Once()

	w := suite.do(http.MethodPatch, "/api/v1/accounts/"+accountID, map[string]any{"name": "Petty cash", "expectedVersion": 3})

	suite.Equal(http.StatusConflict, w.Code)
	suite.Equal(string(apperrors.ConcurrentModification), suite.decodeError(w).Kind)
}

func (suite *HandlerTestSuite) TestPostEntry_UnbalancedIsUnprocessable() {
	ledgerErr := apperrors.NewLedgerError(apperrors.UnbalancedEntry, "entry does not balance").
		WithAmounts(decimal.NewFromInt(100), decimal.NewFromInt(90))
	suite.ledger.On("PostEntry", mock.Anything, suite.companyID, suite.userID, mock.MatchedBy(func(d domain.JournalEntryDraft) bool {
		return len(d.Lines) == 2 && d.Lines[0].Debit.Equal(decimal.NewFromInt(100))
	})).Return(nil, ledgerErr).Once()

	w := suite.do(http.MethodPost, "/api/v1/entries", map[string]any{
		"periodID":  uuid.NewString(),
		"entryDate": "2026-01-15T00:00:00Z",
		"lines": []map[string]any{
			{"accountID": uuid.NewString(), "debit": "100"},
			{"accountID": uuid.NewString(), "credit": "90"},
		},
	})

	suite.Equal(http.StatusUnprocessableEntity, w.Code)
	resp := suite.decodeError(w)
	suite.Equal(string(apperrors.UnbalancedEntry), resp.Kind)
	suite.Equal("100.00", resp.Details["debit"])
	suite.Equal("90.00", resp.Details["credit"])
	suite.ledger.AssertExpectations(suite.T())
}

func (suite *HandlerTestSuite) TestPostEntry_StorageUnavailable() {
	suite.ledger.On("PostEntry", mock.Anything, suite.companyID, suite.userID, mock.Anything).
		Return(nil, apperrors.Unavailable("post entry", context.DeadlineExceeded)).Once()

	w := suite.do(http.MethodPost, "/api/v1/entries", map[string]any{
		"periodID":  uuid.NewString(),
		"entryDate": "2026-01-15T00:00:00Z",
		"lines":     []map[string]any{{"accountID": uuid.NewString(), "debit": "1"}},
	})

	suite.Equal(http.StatusServiceUnavailable, w.Code)
	suite.Equal(string(apperrors.StorageUnavailable), suite.decodeError(w).Kind)
}

func (suite *HandlerTestSuite) TestGetEntry_NotFound() {
	entryID := uuid.NewString()
	suite.ledger.On("GetEntry", mock.Anything, suite.companyID, entryID).
		Return(nil, apperrors.NewLedgerError(apperrors.UnknownEntry, "journal entry %s not found", entryID).WithEntry(entryID)).Once()

	w := suite.do(http.MethodGet, "/api/v1/entries/"+entryID, nil)

	suite.Equal(http.StatusNotFound, w.Code)
	resp := suite.decodeError(w)
	suite.Equal(string(apperrors.UnknownEntry), resp.Kind)
	suite.Equal(entryID, resp.Details["entryID"])
}

func (suite *HandlerTestSuite) TestReverseEntry_WithoutBody() {
	entryID := uuid.NewString()
	reversalID := uuid.NewString()
	suite.ledger.On("ReversePosted", mock.Anything, suite.companyID, suite.userID, entryID, portssvc.ReverseOptions{}).
		Return(&domain.JournalEntry{EntryID: reversalID, ReversalOfID: &entryID, Status: domain.Posted}, nil).Once()

	w := suite.do(http.MethodPost, "/api/v1/entries/"+entryID+"/reverse", nil)

	suite.Equal(http.StatusCreated, w.Code)
	var resp dto.JournalEntryResponse
	suite.NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	suite.Equal(reversalID, resp.EntryID)
	suite.ledger.AssertExpectations(suite.T())
}

func (suite *HandlerTestSuite) TestSubmitBatch_Accepted() {
	ids := []string{uuid.NewString(), uuid.NewString()}
	batch := &domain.Batch{BatchID: uuid.NewString(), Status: domain.BatchPending, TotalCount: 2}
	suite.batches.On("SubmitBatch", mock.Anything, suite.companyID, suite.userID, ids).Return(batch, nil).Once()

	w := suite.do(http.MethodPost, "/api/v1/batches", map[string]any{"entryIDs": ids})

	suite.Equal(http.StatusAccepted, w.Code)
	var resp dto.BatchResponse
	suite.NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	suite.Equal(domain.BatchPending, resp.Status)
	suite.Empty(resp.Errors)
}

func (suite *HandlerTestSuite) TestSubmitBatch_EmptyRejected() {
	w := suite.do(http.MethodPost, "/api/v1/batches", map[string]any{"entryIDs": []string{}})

	suite.Equal(http.StatusBadRequest, w.Code)
	suite.batches.AssertNotCalled(suite.T(), "SubmitBatch")
}

func (suite *HandlerTestSuite) TestClosePeriod_HasDrafts() {
	periodID := uuid.NewString()
	suite.periods.On("ClosePeriod", mock.Anything, suite.companyID, suite.userID, periodID).
		Return(nil, apperrors.NewLedgerError(apperrors.PeriodHasOpenEntries, "period has drafts").WithPeriod(periodID).WithCount(2)).Once()

	w := suite.do(http.MethodPost, "/api/v1/periods/"+periodID+"/close", nil)

	suite.Equal(http.StatusConflict, w.Code)
	resp := suite.decodeError(w)
	suite.Equal(string(apperrors.PeriodHasOpenEntries), resp.Kind)
	suite.EqualValues(2, resp.Details["count"])
}

func (suite *HandlerTestSuite) TestIsOpen_InvalidDate() {
	w := suite.do(http.MethodGet, "/api/v1/periods/"+uuid.NewString()+"/is-open?at=2026-13-01", nil)

	suite.Equal(http.StatusBadRequest, w.Code)
	suite.Equal("datetime", suite.decodeError(w).Fields["At"])
	suite.periods.AssertNotCalled(suite.T(), "IsOpen")
}

func (suite *HandlerTestSuite) TestMissingToken() {
	req, _ := http.NewRequest(http.MethodGet, "/api/v1/accounts", nil)
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)

	suite.Equal(http.StatusUnauthorized, w.Code)
	suite.chart.AssertNotCalled(suite.T(), "ListAccounts")
}

func (suite *HandlerTestSuite) TestTokenWithoutCompany() {
	suite.bearerToken = suite.generateTestToken(suite.userID, "")

	w := suite.do(http.MethodGet, "/api/v1/accounts", nil)

	suite.Equal(http.StatusUnauthorized, w.Code)
}

func (suite *HandlerTestSuite) TestTokenFromWrongIssuer() {
	claims := middleware.LedgerClaims{
		CompanyID:        suite.companyID,
		RegisteredClaims: jwt.RegisteredClaims{Issuer: "someone-else", Subject: suite.userID},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(suite.jwtSecret))
	suite.Require().NoError(err)
	suite.bearerToken = signed

	w := suite.do(http.MethodGet, "/api/v1/accounts", nil)

	suite.Equal(http.StatusUnauthorized, w.Code)
}

// --- Run Test Suite ---
func TestHandlers(t *testing.T) {
	suite.Run(t, new(HandlerTestSuite))
}
