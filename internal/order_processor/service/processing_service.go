package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Shubhamjamliya/Today-My-Dreams-sub000/internal/domain/commission"
	"github.com/Shubhamjamliya/Today-My-Dreams-sub000/internal/domain/shared"
	"github.com/Shubhamjamliya/Today-My-Dreams-sub000/internal/platform/metrics"
)

// rejectedEventErrors can never succeed on redelivery.
var rejectedEventErrors = []error{
	shared.ErrUnknownOrderEventType,
	shared.ErrMissingOrderID,
	shared.ErrMissingSellerID,
	shared.ErrNegativeAmount,
	shared.ErrAmountPrecision,
	shared.ErrAmountOverflow,
	shared.ErrRateOutOfRange,
	shared.ErrRatePrecision,
	commission.ErrNegativeAmount,
	commission.ErrDuplicateOrderEntry{},
	shared.ErrInvalidTransition{},
}

// IsRejected reports whether err is a business-rule failure rather than an
// infrastructure one.
func IsRejected(err error) bool {
	for _, target := range rejectedEventErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

type ProcessingServiceImpl struct {
	ledger  CommissionLedger
	metrics *metrics.LedgerMetrics
	logger  *slog.Logger
}

func NewProcessingService(ledger CommissionLedger, m *metrics.LedgerMetrics, logger *slog.Logger) *ProcessingServiceImpl {
	return &ProcessingServiceImpl{
		ledger:  ledger,
		metrics: m,
		logger:  logger,
	}
}

func (s *ProcessingServiceImpl) ProcessOrderEvent(ctx context.Context, event *shared.OrderEvent) error {
	logger := s.logger
	if event.CorrelationID != "" {
		logger = s.logger.With("correlation_id", event.CorrelationID)
	}

	logger.Info("Processing order event",
		"event_id", event.EventID.String(),
		"type", string(event.Type),
		"order_id", event.OrderID,
		"seller_id", event.SellerID.String())

	entry, err := s.ledger.ApplyOrderEvent(ctx, event)
	if err != nil {
		if IsRejected(err) {
			s.metrics.RecordOrderEvent(string(event.Type), metrics.OutcomeRejected)
			logger.Warn("Order event rejected, acknowledging",
				"event_id", event.EventID.String(),
				"order_id", event.OrderID,
				"error", err)
			return nil
		}
		s.metrics.RecordOrderEvent(string(event.Type), metrics.OutcomeError)
		logger.Error("Failed to apply order event",
			"event_id", event.EventID.String(),
			"order_id", event.OrderID,
			"error", err)
		return fmt.Errorf("failed to apply order event %s: %w", event.EventID, err)
	}
	s.metrics.RecordOrderEvent(string(event.Type), metrics.OutcomeSuccess)

	if entry == nil {
		logger.Info("Order event produced no commission change", "event_id", event.EventID.String())
		return nil
	}
	logger.Info("Order event applied",
		"event_id", event.EventID.String(),
		"entry_id", entry.ID.String(),
		"status", string(entry.Status),
		"amount", entry.Amount)
	return nil
}
