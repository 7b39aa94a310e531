package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Shubhamjamliya/Today-My-Dreams-sub000/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockProcessingService struct {
	mock.Mock
}

func (m *MockProcessingService) ProcessOrderEvent(ctx context.Context, event *shared.OrderEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func TestWorkerPoolProcessingService_ProcessOrderEvent(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))

	t.Run("ReturnsBaseResult", func(t *testing.T) {
		base := &MockProcessingService{}
		svc, err := NewWorkerPoolProcessingService(base, WorkerPoolConfig{Size: 2}, logger)
		require.NoError(t, err)
		defer svc.Shutdown()

		event := testEvent()
		failure := errors.New("db down")
		base.On("ProcessOrderEvent", mock.Anything, mock.MatchedBy(func(e *shared.OrderEvent) bool {
			return e.EventID == event.EventID
		})).Return(failure).Once()

		assert.ErrorIs(t, svc.ProcessOrderEvent(context.Background(), event), failure)
		base.AssertExpectations(t)
	})

	t.Run("ReturnsWhenContextEnds", func(t *testing.T) {
		release := make(chan struct{})
		base := &MockProcessingService{}
		base.On("ProcessOrderEvent", mock.Anything, mock.Anything).Run(func(mock.Arguments) { <-release }).Return(nil)

		svc, err := NewWorkerPoolProcessingService(base, WorkerPoolConfig{Size: 1}, logger)
		require.NoError(t, err)
		defer svc.Shutdown()
		defer close(release)

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		assert.ErrorIs(t, svc.ProcessOrderEvent(ctx, testEvent()), context.DeadlineExceeded)
	})

	t.Run("BoundsConcurrency", func(t *testing.T) {
		var running, peak int32
		base := &MockProcessingService{}
		base.On("ProcessOrderEvent", mock.Anything, mock.Anything).Run(func(mock.Arguments) {
			n := atomic.AddInt32(&running, 1)
			for {
				p := atomic.LoadInt32(&peak)
				if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			atomic.AddInt32(&running, -1)
		}).Return(nil)

		svc, err := NewWorkerPoolProcessingService(base, WorkerPoolConfig{Size: 3}, logger)
		require.NoError(t, err)
		defer svc.Shutdown()
		assert.Equal(t, 3, svc.Capacity())

		var wg sync.WaitGroup
		for i := 0; i < 12; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				assert.NoError(t, svc.ProcessOrderEvent(context.Background(), testEvent()))
			}()
		}
		wg.Wait()

		assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(3))
	})
}
