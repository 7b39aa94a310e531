package withdrawal

import (
	"context"
	"time"

	"github.com/Shubhamjamliya/Today-My-Dreams-sub000/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Filter narrows a withdrawal listing. Zero values mean "any".
type Filter struct {
	SellerID *uuid.UUID
	Status   Status
	From     *time.Time
	To       *time.Time
}

// Totals are the per-status sums that reduce the available balance.
type Totals struct {
	Completed int64 `json:"completed"`
	Pending   int64 `json:"pending"`
}

type Repository interface {
	Create(ctx context.Context, req *Request) error
	GetByID(ctx context.Context, id uuid.UUID) (*Request, error)
	// UpdateStatus persists a transition only if the stored status still equals from.
	UpdateStatus(ctx context.Context, req *Request, from Status) error
	List(ctx context.Context, filter Filter, limit, offset int) ([]*Request, error)
	Count(ctx context.Context, filter Filter) (int64, error)
	SumByStatus(ctx context.Context, sellerID uuid.UUID) (Totals, error)
	WithTx(tx pgx.Tx) Repository
}

// ErrRequestNotFound indicates a missing withdrawal request.
type ErrRequestNotFound struct {
	RequestID uuid.UUID
}

func (e ErrRequestNotFound) Error() string {
	return "withdrawal request not found: " + e.RequestID.String()
}

func (e ErrRequestNotFound) Is(target error) bool {
	if target == shared.ErrNotFound {
		return true
	}
	t, ok := target.(ErrRequestNotFound)
	if !ok {
		return false
	}
	return t.RequestID == uuid.Nil || t.RequestID == e.RequestID
}
