package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/Shubhamjamliya/Today-My-Dreams-sub000/internal/domain/shared"
	"github.com/Shubhamjamliya/Today-My-Dreams-sub000/internal/order_processor/service"
	"github.com/Shubhamjamliya/Today-My-Dreams-sub000/internal/platform/messaging/producers"
)

// OrderEventHandler decodes order lifecycle events from Kafka and hands them
// to the processing service.
type OrderEventHandler struct {
	processingService service.ProcessingService
	dlq               producers.DeadLetterPublisher
	logger            *slog.Logger
}

func NewOrderEventHandler(logger *slog.Logger, processingService service.ProcessingService, dlq producers.DeadLetterPublisher) *OrderEventHandler {
	return &OrderEventHandler{
		processingService: processingService,
		dlq:               dlq,
		logger:            logger,
	}
}

// HandleMessage returns nil when the offset may be committed. Payloads that do
// not decode are parked in the DLQ; if that fails too the message is retried.
func (h *OrderEventHandler) HandleMessage(ctx context.Context, key []byte, value []byte) error {
	var event shared.OrderEvent
	if err := json.Unmarshal(value, &event); err != nil {
		h.logger.Error("Failed to decode order event",
			"error", err,
			"message_key", string(key),
		)

		if h.dlq != nil {
			reason := "undecodable order event: " + err.Error()
			dlqErr := h.dlq.PublishToDLQ(ctx, string(key), value, reason)
			if dlqErr == nil {
				return nil
			}
			h.logger.Error("Failed to publish undecodable order event to DLQ",
				"dlq_error", dlqErr,
				"message_key", string(key),
			)
		}
		return fmt.Errorf("failed to decode order event: %w", err)
	}

	if err := h.processingService.ProcessOrderEvent(ctx, &event); err != nil {
		return fmt.Errorf("processing order event %s failed: %w", event.EventID, err)
	}
	return nil
}
