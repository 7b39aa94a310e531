package service

import (
	"context"

	"github.com/Shubhamjamliya/Today-My-Dreams-sub000/internal/domain/commission"
	"github.com/Shubhamjamliya/Today-My-Dreams-sub000/internal/domain/shared"
)

// ProcessingService applies one order lifecycle event. A nil error means the
// event may be acknowledged, including when it was rejected on business rules.
type ProcessingService interface {
	ProcessOrderEvent(ctx context.Context, event *shared.OrderEvent) error
}

// CommissionLedger is implemented by ledger.Store.
type CommissionLedger interface {
	ApplyOrderEvent(ctx context.Context, event *shared.OrderEvent) (*commission.Entry, error)
}
