// Package metrics exposes Prometheus instruments for the ledger services.
// All Record methods are safe to call on a nil *LedgerMetrics.
package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Shubhamjamliya/Today-My-Dreams-sub000/internal/domain/shared"
)

const (
	OutcomeSuccess  = "success"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

type LedgerMetrics struct {
	OperationsTotal         *prometheus.CounterVec
	OperationDuration       *prometheus.HistogramVec
	AmountTotal             *prometheus.CounterVec
	BalanceCorrectionsTotal prometheus.Counter
	RecalculateFailures     prometheus.Counter
	OrderEventsTotal        *prometheus.CounterVec
	OutboxPublishedTotal    *prometheus.CounterVec
	CacheRequestsTotal      *prometheus.CounterVec
}

// NewLedgerMetrics registers the instruments on reg.
func NewLedgerMetrics(reg prometheus.Registerer) *LedgerMetrics {
	factory := promauto.With(reg)

	return &LedgerMetrics{
		OperationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_operations_total",
				Help: "Balance-mutating ledger operations by outcome",
			},
			[]string{"operation", "outcome"},
		),

		OperationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ledger_operation_duration_seconds",
				Help:    "Duration of ledger operations including the reconciliation step",
				Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms .. ~2s
			},
			[]string{"operation"},
		),

		AmountTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_amount_paise_total",
				Help: "Money moved by successful ledger operations, in paise",
			},
			[]string{"operation"},
		),

		BalanceCorrectionsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "ledger_balance_corrections_total",
				Help: "Refreshes that changed the cached available commission",
			},
		),

		RecalculateFailures: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "ledger_recalculate_failures_total",
				Help: "Sellers that failed during a bulk recalculation",
			},
		),

		OrderEventsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_order_events_total",
				Help: "Order events consumed by type and outcome",
			},
			[]string{"type", "outcome"},
		),

		OutboxPublishedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_outbox_messages_total",
				Help: "Outbox messages handled by the poller",
			},
			[]string{"outcome"},
		),

		CacheRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_summary_cache_requests_total",
				Help: "Dashboard summary cache lookups",
			},
			[]string{"result"},
		),
	}
}

// Outcome classifies an operation error for the outcome label.
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.Is(err, shared.ErrInvalidTransition{}),
		errors.Is(err, shared.ErrInsufficientBalance{}),
		errors.Is(err, shared.ErrIncompletePayoutProfile{}),
		errors.Is(err, shared.ErrNotFound):
		return OutcomeRejected
	default:
		return OutcomeError
	}
}

func (m *LedgerMetrics) RecordOperation(operation string, started time.Time, amount int64, err error) {
	if m == nil {
		return
	}
	outcome := Outcome(err)
	m.OperationsTotal.WithLabelValues(operation, outcome).Inc()
	m.OperationDuration.WithLabelValues(operation).Observe(time.Since(started).Seconds())
	if outcome == OutcomeSuccess && amount > 0 {
		m.AmountTotal.WithLabelValues(operation).Add(float64(amount))
	}
}

func (m *LedgerMetrics) RecordBalanceCorrection() {
	if m == nil {
		return
	}
	m.BalanceCorrectionsTotal.Inc()
}

func (m *LedgerMetrics) RecordRecalculateFailures(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.RecalculateFailures.Add(float64(n))
}

func (m *LedgerMetrics) RecordOrderEvent(eventType, outcome string) {
	if m == nil {
		return
	}
	m.OrderEventsTotal.WithLabelValues(eventType, outcome).Inc()
}

func (m *LedgerMetrics) RecordOutboxMessage(outcome string) {
	if m == nil {
		return
	}
	m.OutboxPublishedTotal.WithLabelValues(outcome).Inc()
}

func (m *LedgerMetrics) RecordCacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheRequestsTotal.WithLabelValues(result).Inc()
}
