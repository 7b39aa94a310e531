package outbox

import (
	"context"
	"strconv"

	"github.com/Shubhamjamliya/Today-My-Dreams-sub000/internal/domain/shared"
	"github.com/jackc/pgx/v5"
)

type Repository interface {
	Create(ctx context.Context, message *Message) error
	// GetPending returns the oldest pending messages below the attempt limit.
	GetPending(ctx context.Context, limit, maxAttempts int) ([]*Message, error)
	UpdateStatus(ctx context.Context, id int64, status shared.OutboxStatus) error
	IncrementAttempts(ctx context.Context, id int64) error
	WithTx(tx pgx.Tx) Repository
}

// ErrMessageNotFound indicates a missing outbox message.
type ErrMessageNotFound struct {
	ID int64
}

func (e ErrMessageNotFound) Error() string {
	return "outbox message not found: " + strconv.FormatInt(e.ID, 10)
}

func (e ErrMessageNotFound) Is(target error) bool {
	return target == shared.ErrNotFound
}
