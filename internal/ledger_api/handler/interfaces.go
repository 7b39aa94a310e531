package handler

import (
	"context"

	"github.com/Shubhamjamliya/Today-My-Dreams-sub000/internal/domain/commission"
	"github.com/Shubhamjamliya/Today-My-Dreams-sub000/internal/domain/ledgerevent"
	"github.com/Shubhamjamliya/Today-My-Dreams-sub000/internal/domain/seller"
	"github.com/Shubhamjamliya/Today-My-Dreams-sub000/internal/domain/withdrawal"
	"github.com/Shubhamjamliya/Today-My-Dreams-sub000/internal/ledger"
	"github.com/google/uuid"
)

// CommissionLedger is implemented by *ledger.Store.
type CommissionLedger interface {
	Record(ctx context.Context, in ledger.RecordInput) (*commission.Entry, error)
	Confirm(ctx context.Context, entryID, adminID uuid.UUID, correlationID string) (*commission.Entry, error)
	Cancel(ctx context.Context, entryID, adminID uuid.UUID, reason, correlationID string) (*commission.Entry, error)
	Refund(ctx context.Context, entryID, adminID uuid.UUID, reason, correlationID string) (*commission.Entry, error)
	Get(ctx context.Context, entryID uuid.UUID, owner *uuid.UUID) (*commission.Entry, error)
	Query(ctx context.Context, filter commission.Filter, page ledger.Page) (*ledger.EntryPage, error)
}

// WithdrawalWorkflow is implemented by *ledger.WithdrawalWorkflow.
type WithdrawalWorkflow interface {
	Request(ctx context.Context, sellerID uuid.UUID, amount int64, notes, correlationID string) (*withdrawal.Request, error)
	Cancel(ctx context.Context, withdrawalID, sellerID uuid.UUID, correlationID string) (*withdrawal.Request, error)
	Approve(ctx context.Context, withdrawalID, adminID uuid.UUID, paymentReference, notes, correlationID string) (*withdrawal.Request, error)
	Complete(ctx context.Context, withdrawalID, adminID uuid.UUID, paymentReference, notes, correlationID string) (*withdrawal.Request, error)
	Reject(ctx context.Context, withdrawalID, adminID uuid.UUID, reason, correlationID string) (*withdrawal.Request, error)
	List(ctx context.Context, filter withdrawal.Filter, page ledger.Page) (*ledger.WithdrawalPage, error)
}

// BalanceProjection is implemented by *ledger.Projection.
type BalanceProjection interface {
	Balance(ctx context.Context, sellerID uuid.UUID) (*ledger.Balance, error)
	Dashboard(ctx context.Context, sellerID uuid.UUID, months int) (*ledger.Dashboard, error)
	UpdatePayoutProfile(ctx context.Context, sellerID uuid.UUID, details seller.BankDetails) (*ledger.Balance, error)
}

// BalanceReconciler is implemented by *ledger.Reconciler.
type BalanceReconciler interface {
	Refresh(ctx context.Context, sellerID uuid.UUID, actorID *uuid.UUID, correlationID string) (int64, error)
	RecalculateAll(ctx context.Context, actorID *uuid.UUID, correlationID string) (*ledger.RecalculateReport, error)
}

// AuditLog is the read side of the ledger event history.
type AuditLog interface {
	ListBySeller(ctx context.Context, sellerID uuid.UUID, limit, offset int) ([]*ledgerevent.Event, error)
	CountBySeller(ctx context.Context, sellerID uuid.UUID) (int64, error)
}
