package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"

	"github.com/Shubhamjamliya/Today-My-Dreams-sub000/internal/domain/commission"
	"github.com/Shubhamjamliya/Today-My-Dreams-sub000/internal/domain/ledgerevent"
	"github.com/Shubhamjamliya/Today-My-Dreams-sub000/internal/domain/seller"
	"github.com/Shubhamjamliya/Today-My-Dreams-sub000/internal/domain/withdrawal"
	"github.com/Shubhamjamliya/Today-My-Dreams-sub000/internal/ledger"
	"github.com/Shubhamjamliya/Today-My-Dreams-sub000/internal/ledger_api/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type MockCommissionLedger struct {
	mock.Mock
}

func (m *MockCommissionLedger) entry(args mock.Arguments) (*commission.Entry, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*commission.Entry), args.Error(1)
}

func (m *MockCommissionLedger) Record(ctx context.Context, in ledger.RecordInput) (*commission.Entry, error) {
	return m.entry(m.Called(ctx, in))
}

func (m *MockCommissionLedger) Confirm(ctx context.Context, entryID, adminID uuid.UUID, correlationID string) (*commission.Entry, error) {
	return m.entry(m.Called(ctx, entryID, adminID, correlationID))
}

func (m *MockCommissionLedger) Cancel(ctx context.Context, entryID, adminID uuid.UUID, reason, correlationID string) (*commission.Entry, error) {
	return m.entry(m.Called(ctx, entryID, adminID, reason, correlationID))
}

func (m *MockCommissionLedger) Refund(ctx context.Context, entryID, adminID uuid.UUID, reason, correlationID string) (*commission.Entry, error) {
	return m.entry(m.Called(ctx, entryID, adminID, reason, correlationID))
}

func (m *MockCommissionLedger) Get(ctx context.Context, entryID uuid.UUID, owner *uuid.UUID) (*commission.Entry, error) {
	return m.entry(m.Called(ctx, entryID, owner))
}

func (m *MockCommissionLedger) Query(ctx context.Context, filter commission.Filter, page ledger.Page) (*ledger.EntryPage, error) {
	args := m.Called(ctx, filter, page)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.EntryPage), args.Error(1)
}

type MockWithdrawalWorkflow struct {
	mock.Mock
}

func (m *MockWithdrawalWorkflow) request(args mock.Arguments) (*withdrawal.Request, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*withdrawal.Request), args.Error(1)
}

func (m *MockWithdrawalWorkflow) Request(ctx context.Context, sellerID uuid.UUID, amount int64, notes, correlationID string) (*withdrawal.Request, error) {
	return m.request(m.Called(ctx, sellerID, amount, notes, correlationID))
}

func (m *MockWithdrawalWorkflow) Cancel(ctx context.Context, withdrawalID, sellerID uuid.UUID, correlationID string) (*withdrawal.Request, error) {
	return m.request(m.Called(ctx, withdrawalID, sellerID, correlationID))
}

func (m *MockWithdrawalWorkflow) Approve(ctx context.Context, withdrawalID, adminID uuid.UUID, paymentReference, notes, correlationID string) (*withdrawal.Request, error) {
	return m.request(m.Called(ctx, withdrawalID, adminID, paymentReference, notes, correlationID))
}

func (m *MockWithdrawalWorkflow) Complete(ctx context.Context, withdrawalID, adminID uuid.UUID, paymentReference, notes, correlationID string) (*withdrawal.Request, error) {
	return m.request(m.Called(ctx, withdrawalID, adminID, paymentReference, notes, correlationID))
}

func (m *MockWithdrawalWorkflow) Reject(ctx context.Context, withdrawalID, adminID uuid.UUID, reason, correlationID string) (*withdrawal.Request, error) {
	return m.request(m.Called(ctx, withdrawalID, adminID, reason, correlationID))
}

func (m *MockWithdrawalWorkflow) List(ctx context.Context, filter withdrawal.Filter, page ledger.Page) (*ledger.WithdrawalPage, error) {
	args := m.Called(ctx, filter, page)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.WithdrawalPage), args.Error(1)
}

type MockBalanceProjection struct {
	mock.Mock
}

func (m *MockBalanceProjection) Balance(ctx context.Context, sellerID uuid.UUID) (*ledger.Balance, error) {
	args := m.Called(ctx, sellerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Balance), args.Error(1)
}

func (m *MockBalanceProjection) Dashboard(ctx context.Context, sellerID uuid.UUID, months int) (*ledger.Dashboard, error) {
	args := m.Called(ctx, sellerID, months)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Dashboard), args.Error(1)
}

func (m *MockBalanceProjection) UpdatePayoutProfile(ctx context.Context, sellerID uuid.UUID, details seller.BankDetails) (*ledger.Balance, error) {
	args := m.Called(ctx, sellerID, details)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Balance), args.Error(1)
}

type MockBalanceReconciler struct {
	mock.Mock
}

func (m *MockBalanceReconciler) Refresh(ctx context.Context, sellerID uuid.UUID, actorID *uuid.UUID, correlationID string) (int64, error) {
	args := m.Called(ctx, sellerID, actorID, correlationID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockBalanceReconciler) RecalculateAll(ctx context.Context, actorID *uuid.UUID, correlationID string) (*ledger.RecalculateReport, error) {
	args := m.Called(ctx, actorID, correlationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.RecalculateReport), args.Error(1)
}

type MockAuditLog struct {
	mock.Mock
}

func (m *MockAuditLog) ListBySeller(ctx context.Context, sellerID uuid.UUID, limit, offset int) ([]*ledgerevent.Event, error) {
	args := m.Called(ctx, sellerID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*ledgerevent.Event), args.Error(1)
}

func (m *MockAuditLog) CountBySeller(ctx context.Context, sellerID uuid.UUID) (int64, error) {
	args := m.Called(ctx, sellerID)
	return args.Get(0).(int64), args.Error(1)
}

const testCorrelationID = "corr-test"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func setupTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	RegisterValidators()
	r := gin.New()
	r.Use(middleware.CorrelationID())
	return r
}

// doRequest sends body as JSON when it is not nil.
func doRequest(r *gin.Engine, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	}
	req, _ := http.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set(middleware.CorrelationIDHeader, testCorrelationID)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

type testResponse struct {
	Data          json.RawMessage `json:"data"`
	Error         *ErrorInfo      `json:"error"`
	CorrelationID string          `json:"correlation_id"`
	Meta          *MetaInfo       `json:"meta"`
}

func decodeResponse(rr *httptest.ResponseRecorder) testResponse {
	var resp testResponse
	_ = json.Unmarshal(rr.Body.Bytes(), &resp)
	return resp
}
