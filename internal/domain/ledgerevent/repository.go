package ledgerevent

import (
	"context"

	"github.com/google/uuid"
)

// Repository is the append-only audit log.
type Repository interface {
	// Append is idempotent on EventID.
	Append(ctx context.Context, event *Event) error
	ListBySeller(ctx context.Context, sellerID uuid.UUID, limit, offset int) ([]*Event, error)
	CountBySeller(ctx context.Context, sellerID uuid.UUID) (int64, error)
}
