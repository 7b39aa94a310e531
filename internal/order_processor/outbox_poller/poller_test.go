package outbox_poller

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/Shubhamjamliya/Today-My-Dreams-sub000/internal/config"
	"github.com/Shubhamjamliya/Today-My-Dreams-sub000/internal/domain/outbox"
	"github.com/Shubhamjamliya/Today-My-Dreams-sub000/internal/domain/shared"
	"github.com/Shubhamjamliya/Today-My-Dreams-sub000/internal/platform/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestPoller_ProcessPendingMessages(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	cfg := &config.OutboxConfig{
		PollingInterval:  time.Second,
		BatchSize:        10,
		MaxRetryAttempts: 3,
	}

	first, _ := newOutboxMessage(1, 0)
	second, _ := newOutboxMessage(2, 0)
	lastTry, _ := newOutboxMessage(3, 2)
	broken := &outbox.Message{ID: 4, Payload: []byte("{")}

	tests := []struct {
		name          string
		setupMocks    func(repo *MockOutboxRepo, publisher *MockEventPublisher)
		expectedError string
		delivered     float64
		failed        float64
	}{
		{
			name: "delivers every pending message",
			setupMocks: func(repo *MockOutboxRepo, publisher *MockEventPublisher) {
				repo.On("GetPending", mock.Anything, 10, 3).Return([]*outbox.Message{first, second}, nil).Once()
				publisher.On("Publish", mock.Anything, first).Return(nil).Once()
				publisher.On("Publish", mock.Anything, second).Return(nil).Once()
			},
			delivered: 2,
		},
		{
			name: "pending query fails",
			setupMocks: func(repo *MockOutboxRepo, publisher *MockEventPublisher) {
				repo.On("GetPending", mock.Anything, 10, 3).Return(nil, errors.New("db error")).Once()
			},
			expectedError: "failed to get pending outbox messages",
		},
		{
			name: "nothing pending",
			setupMocks: func(repo *MockOutboxRepo, publisher *MockEventPublisher) {
				repo.On("GetPending", mock.Anything, 10, 3).Return([]*outbox.Message{}, nil).Once()
			},
		},
		{
			name: "failed delivery is retried later",
			setupMocks: func(repo *MockOutboxRepo, publisher *MockEventPublisher) {
				repo.On("GetPending", mock.Anything, 10, 3).Return([]*outbox.Message{first, second}, nil).Once()
				publisher.On("Publish", mock.Anything, first).Return(errors.New("broker down")).Once()
				repo.On("IncrementAttempts", mock.Anything, int64(1)).Return(nil).Once()
				publisher.On("Publish", mock.Anything, second).Return(nil).Once()
			},
			delivered: 1,
		},
		{
			name: "last attempt marks message failed",
			setupMocks: func(repo *MockOutboxRepo, publisher *MockEventPublisher) {
				repo.On("GetPending", mock.Anything, 10, 3).Return([]*outbox.Message{lastTry}, nil).Once()
				publisher.On("Publish", mock.Anything, lastTry).Return(errors.New("broker down")).Once()
				repo.On("IncrementAttempts", mock.Anything, int64(3)).Return(nil).Once()
				repo.On("UpdateStatus", mock.Anything, int64(3), shared.OutboxStatusFailedToPublish).Return(nil).Once()
			},
			failed: 1,
		},
		{
			name: "undecodable payload is not retried",
			setupMocks: func(repo *MockOutboxRepo, publisher *MockEventPublisher) {
				repo.On("GetPending", mock.Anything, 10, 3).Return([]*outbox.Message{broken}, nil).Once()
				publisher.On("Publish", mock.Anything, broken).Return(fmt.Errorf("%w: outbox 4", ErrUndecodablePayload)).Once()
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &MockOutboxRepo{}
			publisher := &MockEventPublisher{}
			m := metrics.NewLedgerMetrics(prometheus.NewRegistry())
			tt.setupMocks(repo, publisher)

			poller := NewPoller(cfg, repo, publisher, m, logger)
			err := poller.processPendingMessages(context.Background())

			if tt.expectedError != "" {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectedError)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.delivered, testutil.ToFloat64(m.OutboxPublishedTotal.WithLabelValues(metrics.OutcomeSuccess)))
			assert.Equal(t, tt.failed, testutil.ToFloat64(m.OutboxPublishedTotal.WithLabelValues(metrics.OutcomeError)))

			repo.AssertExpectations(t)
			publisher.AssertExpectations(t)
		})
	}
}

func TestPoller_StartStopsOnCancel(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	cfg := &config.OutboxConfig{
		PollingInterval:  5 * time.Millisecond,
		BatchSize:        10,
		MaxRetryAttempts: 3,
	}

	repo := &MockOutboxRepo{}
	repo.On("GetPending", mock.Anything, 10, 3).Return([]*outbox.Message{}, nil)
	poller := NewPoller(cfg, repo, &MockEventPublisher{}, nil, logger)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		poller.Start(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool {
		return len(repo.Calls) > 0
	}, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("poller did not stop")
	}
}
