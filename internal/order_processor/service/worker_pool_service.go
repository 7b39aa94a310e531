package service

import (
	"context"
	"log/slog"

	"github.com/Shubhamjamliya/Today-My-Dreams-sub000/internal/domain/shared"
	"github.com/panjf2000/ants/v2"
)

// WorkerPoolProcessingService bounds how many order events hit the database at
// once. Callers block until their event has been processed.
type WorkerPoolProcessingService struct {
	baseService ProcessingService
	pool        *ants.Pool
	logger      *slog.Logger
}

type WorkerPoolConfig struct {
	Size int
}

func NewWorkerPoolProcessingService(baseService ProcessingService, config WorkerPoolConfig, logger *slog.Logger) (*WorkerPoolProcessingService, error) {
	pool, err := ants.NewPool(config.Size)
	if err != nil {
		return nil, err
	}

	return &WorkerPoolProcessingService{
		baseService: baseService,
		pool:        pool,
		logger:      logger,
	}, nil
}

func (s *WorkerPoolProcessingService) ProcessOrderEvent(ctx context.Context, event *shared.OrderEvent) error {
	eventCopy := *event
	result := make(chan error, 1)

	if err := s.pool.Submit(func() {
		result <- s.baseService.ProcessOrderEvent(ctx, &eventCopy)
	}); err != nil {
		s.logger.Error("Failed to submit order event to worker pool",
			"event_id", event.EventID.String(),
			"error", err)
		return err
	}

	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown releases the pool without waiting for running tasks.
func (s *WorkerPoolProcessingService) Shutdown() {
	s.logger.Info("Shutting down worker pool", "running_workers", s.pool.Running())
	s.pool.Release()
}

func (s *WorkerPoolProcessingService) Running() int {
	return s.pool.Running()
}

func (s *WorkerPoolProcessingService) Capacity() int {
	return s.pool.Cap()
}
