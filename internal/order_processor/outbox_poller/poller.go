package outbox_poller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Shubhamjamliya/Today-My-Dreams-sub000/internal/config"
	"github.com/Shubhamjamliya/Today-My-Dreams-sub000/internal/domain/outbox"
	"github.com/Shubhamjamliya/Today-My-Dreams-sub000/internal/domain/shared"
	"github.com/Shubhamjamliya/Today-My-Dreams-sub000/internal/platform/metrics"
)

// Poller drains the ledger outbox in creation order.
type Poller struct {
	outboxRepo       outbox.Repository
	publisher        EventPublisher
	metrics          *metrics.LedgerMetrics
	logger           *slog.Logger
	pollInterval     time.Duration
	batchSize        int
	maxRetryAttempts int
}

func NewPoller(cfg *config.OutboxConfig, outboxRepo outbox.Repository, publisher EventPublisher, m *metrics.LedgerMetrics, logger *slog.Logger) *Poller {
	return &Poller{
		outboxRepo:       outboxRepo,
		publisher:        publisher,
		metrics:          m,
		logger:           logger,
		pollInterval:     cfg.PollingInterval,
		batchSize:        cfg.BatchSize,
		maxRetryAttempts: cfg.MaxRetryAttempts,
	}
}

// Start polls until ctx is canceled.
func (p *Poller) Start(ctx context.Context) {
	p.logger.Info("Starting outbox poller",
		"poll_interval", p.pollInterval.String(),
		"batch_size", p.batchSize,
		"max_retry_attempts", p.maxRetryAttempts,
	)
	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Outbox poller stopping")
			return
		case <-ticker.C:
			if err := p.processPendingMessages(ctx); err != nil {
				p.logger.Error("Failed to process outbox batch", "error", err)
			}
		}
	}
}

func (p *Poller) processPendingMessages(ctx context.Context) error {
	messages, err := p.outboxRepo.GetPending(ctx, p.batchSize, p.maxRetryAttempts)
	if err != nil {
		return fmt.Errorf("failed to get pending outbox messages: %w", err)
	}
	if len(messages) == 0 {
		return nil
	}

	p.logger.Debug("Fetched pending outbox messages", "count", len(messages))

	for _, msg := range messages {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		err := p.publisher.Publish(ctx, msg)
		if err == nil {
			p.metrics.RecordOutboxMessage(metrics.OutcomeSuccess)
			continue
		}

		p.logger.Error("Failed to deliver outbox message",
			"outbox_id", msg.ID,
			"event_id", msg.EventID.String(),
			"attempts", msg.Attempts,
			"error", err,
		)
		if errors.Is(err, ErrUndecodablePayload) {
			p.metrics.RecordOutboxMessage(metrics.OutcomeRejected)
			continue
		}

		if errInc := p.outboxRepo.IncrementAttempts(ctx, msg.ID); errInc != nil {
			p.logger.Error("Failed to increment outbox attempts", "outbox_id", msg.ID, "error", errInc)
			continue
		}

		msg.IncrementAttempts()

		if msg.Exhausted(p.maxRetryAttempts) {
			p.logger.Warn("Outbox message exhausted its retries, marking as FAILED_TO_PUBLISH",
				"outbox_id", msg.ID,
				"event_id", msg.EventID.String(),
				"attempts", msg.Attempts,
			)
			p.metrics.RecordOutboxMessage(metrics.OutcomeError)
			if errUpdate := p.outboxRepo.UpdateStatus(ctx, msg.ID, shared.OutboxStatusFailedToPublish); errUpdate != nil {
				p.logger.Error("Failed to mark outbox message as FAILED_TO_PUBLISH", "outbox_id", msg.ID, "error", errUpdate)
			}
		}
	}
	return nil
}
