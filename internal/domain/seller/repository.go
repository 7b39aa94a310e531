package seller

import (
	"context"

	"github.com/Shubhamjamliya/Today-My-Dreams-sub000/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type Repository interface {
	// EnsureExists creates the seller row if it is missing and is a no-op otherwise.
	EnsureExists(ctx context.Context, id uuid.UUID) error
	GetByID(ctx context.Context, id uuid.UUID) (*Account, error)
	// LockForUpdate takes the row lock that serializes balance mutations for a seller.
	LockForUpdate(ctx context.Context, id uuid.UUID) (*Account, error)
	UpdateBankDetails(ctx context.Context, id uuid.UUID, details BankDetails) error
	IncrementTotalCommission(ctx context.Context, id uuid.UUID, amount int64) error
	SetAvailableCommission(ctx context.Context, id uuid.UUID, amount int64, version int) error
	// ListIDs pages through sellers in id order starting after afterID.
	ListIDs(ctx context.Context, afterID uuid.UUID, limit int) ([]uuid.UUID, error)
	WithTx(tx pgx.Tx) Repository
}

// ErrSellerNotFound indicates a missing seller.
type ErrSellerNotFound struct {
	SellerID uuid.UUID
}

func (e ErrSellerNotFound) Error() string {
	return "seller not found: " + e.SellerID.String()
}

func (e ErrSellerNotFound) Is(target error) bool {
	if target == shared.ErrNotFound {
		return true
	}
	t, ok := target.(ErrSellerNotFound)
	if !ok {
		return false
	}
	return t.SellerID == uuid.Nil || t.SellerID == e.SellerID
}

// ErrConcurrentModification indicates a version mismatch on the projection row.
type ErrConcurrentModification struct {
	SellerID uuid.UUID
}

func (e ErrConcurrentModification) Error() string {
	return "concurrent modification detected for seller: " + e.SellerID.String()
}
