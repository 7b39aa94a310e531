package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/Shubhamjamliya/Today-My-Dreams-sub000/internal/domain/commission"
	"github.com/Shubhamjamliya/Today-My-Dreams-sub000/internal/domain/shared"
	"github.com/Shubhamjamliya/Today-My-Dreams-sub000/internal/platform/metrics"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockCommissionLedger struct {
	mock.Mock
}

func (m *MockCommissionLedger) ApplyOrderEvent(ctx context.Context, event *shared.OrderEvent) (*commission.Entry, error) {
	args := m.Called(ctx, event)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*commission.Entry), args.Error(1)
}

func testEvent() *shared.OrderEvent {
	return &shared.OrderEvent{
		EventID:        uuid.New(),
		Type:           shared.OrderEventPaid,
		OrderID:        "ORD-42",
		SellerID:       uuid.New(),
		OrderAmount:    decimal.RequireFromString("997"),
		CommissionRate: decimal.RequireFromString("0.3"),
		CorrelationID:  "corr-42",
		OccurredAt:     time.Now().UTC(),
	}
}

func TestProcessingService_ProcessOrderEvent(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))

	tests := []struct {
		name        string
		entry       *commission.Entry
		ledgerErr   error
		wantErr     bool
		wantOutcome string
	}{
		{"applied", &commission.Entry{ID: uuid.New(), Status: commission.StatusPending, Amount: 30000}, nil, false, metrics.OutcomeSuccess},
		{"refund without commission", nil, nil, false, metrics.OutcomeSuccess},
		{"invalid event is acknowledged", nil, shared.ErrMissingOrderID, false, metrics.OutcomeRejected},
		{"bad rate is acknowledged", nil, shared.ErrRateOutOfRange, false, metrics.OutcomeRejected},
		{"invalid transition is acknowledged", nil, shared.ErrInvalidTransition{ID: uuid.New()}, false, metrics.OutcomeRejected},
		{"reconciliation failure is retried", nil, shared.ErrReconciliationFailure{Err: errors.New("timeout")}, true, metrics.OutcomeError},
		{"database failure is retried", nil, errors.New("connection reset"), true, metrics.OutcomeError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ledger := &MockCommissionLedger{}
			m := metrics.NewLedgerMetrics(prometheus.NewRegistry())
			svc := NewProcessingService(ledger, m, logger)
			event := testEvent()

			ledger.On("ApplyOrderEvent", mock.Anything, event).Return(tt.entry, tt.ledgerErr).Once()

			err := svc.ProcessOrderEvent(context.Background(), event)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.ledgerErr)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, float64(1), testutil.ToFloat64(m.OrderEventsTotal.WithLabelValues(string(event.Type), tt.wantOutcome)))
			ledger.AssertExpectations(t)
		})
	}
}

func TestIsRejected(t *testing.T) {
	assert.True(t, IsRejected(commission.ErrDuplicateOrderEntry{OrderID: "ORD-1"}))
	assert.True(t, IsRejected(shared.ErrUnknownOrderEventType))
	assert.False(t, IsRejected(shared.ErrReconciliationFailure{}))
	assert.False(t, IsRejected(context.DeadlineExceeded))
}
