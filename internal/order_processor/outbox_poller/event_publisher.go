package outbox_poller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Shubhamjamliya/Today-My-Dreams-sub000/internal/domain/ledgerevent"
	"github.com/Shubhamjamliya/Today-My-Dreams-sub000/internal/domain/outbox"
	"github.com/Shubhamjamliya/Today-My-Dreams-sub000/internal/domain/shared"
	"github.com/Shubhamjamliya/Today-My-Dreams-sub000/internal/platform/messaging/producers"
)

// ErrUndecodablePayload marks outbox rows that no retry can fix.
var ErrUndecodablePayload = errors.New("undecodable outbox payload")

// EventPublisher delivers one outbox message to its destinations.
type EventPublisher interface {
	Publish(ctx context.Context, message *outbox.Message) error
}

// LedgerEventPublisher appends the event to the audit log, then publishes it
// to the ledger events topic. Both steps are idempotent on the event id, so a
// retry after a partial failure is safe.
type LedgerEventPublisher struct {
	outboxRepo outbox.Repository
	auditLog   ledgerevent.Repository
	producer   producers.MessagePublisher
	logger     *slog.Logger
}

func NewLedgerEventPublisher(outboxRepo outbox.Repository, auditLog ledgerevent.Repository, producer producers.MessagePublisher, logger *slog.Logger) *LedgerEventPublisher {
	return &LedgerEventPublisher{
		outboxRepo: outboxRepo,
		auditLog:   auditLog,
		producer:   producer,
		logger:     logger,
	}
}

func (p *LedgerEventPublisher) Publish(ctx context.Context, message *outbox.Message) error {
	event, err := message.Event()
	if err != nil {
		p.logger.Error("Failed to decode ledger event from outbox payload",
			"outbox_id", message.ID, "event_id", message.EventID.String(), "error", err)
		if updateErr := p.outboxRepo.UpdateStatus(ctx, message.ID, shared.OutboxStatusFailedToPublish); updateErr != nil {
			p.logger.Error("Failed to mark undecodable outbox message", "outbox_id", message.ID, "error", updateErr)
		}
		return fmt.Errorf("%w: outbox %d: %v", ErrUndecodablePayload, message.ID, err)
	}

	logger := p.logger
	if event.CorrelationID != "" {
		logger = p.logger.With("correlation_id", event.CorrelationID)
	}

	if err := p.auditLog.Append(ctx, event); err != nil {
		return fmt.Errorf("failed to append ledger event %s to audit log: %w", event.EventID, err)
	}

	if p.producer != nil {
		headers := map[string]string{
			"event-type": string(event.Type),
			"event-id":   event.EventID.String(),
		}
		if err := p.producer.Publish(ctx, event.SellerID.String(), event, headers); err != nil {
			return fmt.Errorf("failed to publish ledger event %s: %w", event.EventID, err)
		}
	}

	if err := p.outboxRepo.UpdateStatus(ctx, message.ID, shared.OutboxStatusProcessed); err != nil {
		logger.Error("Failed to mark outbox message as PROCESSED", "outbox_id", message.ID, "error", err)
		return fmt.Errorf("ledger event %s delivered, but failed to mark outbox %d as PROCESSED: %w", event.EventID, message.ID, err)
	}

	logger.Info("Ledger event delivered",
		"outbox_id", message.ID,
		"event_id", event.EventID.String(),
		"type", string(event.Type),
		"seller_id", event.SellerID.String())
	return nil
}
