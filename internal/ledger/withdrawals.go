package ledger

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Shubhamjamliya/Today-My-Dreams-sub000/internal/domain/commission"
	"github.com/Shubhamjamliya/Today-My-Dreams-sub000/internal/domain/ledgerevent"
	"github.com/Shubhamjamliya/Today-My-Dreams-sub000/internal/domain/shared"
	"github.com/Shubhamjamliya/Today-My-Dreams-sub000/internal/domain/withdrawal"
	"github.com/Shubhamjamliya/Today-My-Dreams-sub000/internal/platform/metrics"
)

// WithdrawalWorkflow admits cash-out requests against the balance computed
// from the ledger and moves them through review.
type WithdrawalWorkflow struct {
	reconciler *Reconciler
	repos      Repositories
	metrics    *metrics.LedgerMetrics
	logger     *slog.Logger
}

// Request admits a withdrawal if the seller has a complete payout profile and
// the amount does not exceed the available commission computed inside the
// seller's serialized transaction.
func (w *WithdrawalWorkflow) Request(ctx context.Context, sellerID uuid.UUID, amount int64, notes, correlationID string) (*withdrawal.Request, error) {
	started := time.Now()
	logger := w.logger
	if correlationID != "" {
		logger = w.logger.With("correlation_id", correlationID)
	}

	if amount <= 0 {
		w.metrics.RecordOperation("request_withdrawal", started, 0, withdrawal.ErrNonPositiveAmount)
		return nil, withdrawal.ErrNonPositiveAmount
	}

	var req *withdrawal.Request
	_, err := w.reconciler.mutate(ctx, sellerID, correlationID, func(ctx context.Context, m *mutation) error {
		draft, err := withdrawal.NewRequest(m.account, amount, notes)
		if err != nil {
			return err
		}

		available, err := w.reconciler.computeAvailable(ctx, m.repos, sellerID)
		if err != nil {
			return err
		}
		if amount > available {
			logger.Warn("Withdrawal exceeds available commission",
				"seller_id", sellerID.String(),
				"available", available,
				"requested", amount)
			return shared.ErrInsufficientBalance{SellerID: sellerID, Available: available, Requested: amount}
		}

		if err := m.repos.Withdrawals.Create(ctx, draft); err != nil {
			return err
		}
		m.emit(ledgerevent.New(sellerID, ledgerevent.WithdrawalRequested, amount).
			WithWithdrawal(draft.ID).
			WithActor(&sellerID, notes))
		req = draft
		return nil
	})
	w.metrics.RecordOperation("request_withdrawal", started, amount, err)
	if err != nil {
		return nil, err
	}

	logger.Info("Withdrawal requested",
		"withdrawal_id", req.ID.String(),
		"seller_id", sellerID.String(),
		"amount", amount)
	return req, nil
}

// Cancel is seller-initiated and frees the reserved amount.
func (w *WithdrawalWorkflow) Cancel(ctx context.Context, withdrawalID, sellerID uuid.UUID, correlationID string) (*withdrawal.Request, error) {
	return w.transition(ctx, withdrawalTransition{
		operation:     "cancel_withdrawal",
		withdrawalID:  withdrawalID,
		owner:         &sellerID,
		correlationID: correlationID,
		eventType:     ledgerevent.WithdrawalCancelled,
		actor:         &sellerID,
		apply: func(r *withdrawal.Request) error {
			return r.Cancel(sellerID)
		},
	})
}

// Approve marks the payout as sent and appends a confirmed WITHDRAWN entry.
func (w *WithdrawalWorkflow) Approve(ctx context.Context, withdrawalID, adminID uuid.UUID, paymentReference, notes, correlationID string) (*withdrawal.Request, error) {
	return w.complete(ctx, "approve_withdrawal", withdrawalID, adminID, paymentReference, notes, correlationID)
}

// Complete is the admin "mark as paid" action; it is the same transition as Approve.
func (w *WithdrawalWorkflow) Complete(ctx context.Context, withdrawalID, adminID uuid.UUID, paymentReference, notes, correlationID string) (*withdrawal.Request, error) {
	return w.complete(ctx, "complete_withdrawal", withdrawalID, adminID, paymentReference, notes, correlationID)
}

func (w *WithdrawalWorkflow) complete(ctx context.Context, operation string, withdrawalID, adminID uuid.UUID, paymentReference, notes, correlationID string) (*withdrawal.Request, error) {
	return w.transition(ctx, withdrawalTransition{
		operation:     operation,
		withdrawalID:  withdrawalID,
		correlationID: correlationID,
		eventType:     ledgerevent.WithdrawalCompleted,
		actor:         &adminID,
		reason:        notes,
		apply: func(r *withdrawal.Request) error {
			return r.Approve(adminID, paymentReference, notes)
		},
		after: w.recordPayout,
	})
}

func (w *WithdrawalWorkflow) Reject(ctx context.Context, withdrawalID, adminID uuid.UUID, reason, correlationID string) (*withdrawal.Request, error) {
	return w.transition(ctx, withdrawalTransition{
		operation:     "reject_withdrawal",
		withdrawalID:  withdrawalID,
		correlationID: correlationID,
		eventType:     ledgerevent.WithdrawalRejected,
		actor:         &adminID,
		reason:        reason,
		apply: func(r *withdrawal.Request) error {
			return r.Reject(adminID, reason)
		},
	})
}

type withdrawalTransition struct {
	operation     string
	withdrawalID  uuid.UUID
	owner         *uuid.UUID
	correlationID string
	eventType     ledgerevent.Type
	actor         *uuid.UUID
	reason        string
	apply         func(r *withdrawal.Request) error
	after         func(ctx context.Context, m *mutation, r *withdrawal.Request) error
}

func (w *WithdrawalWorkflow) transition(ctx context.Context, tr withdrawalTransition) (*withdrawal.Request, error) {
	started := time.Now()

	current, err := w.Get(ctx, tr.withdrawalID, tr.owner)
	if err != nil {
		w.metrics.RecordOperation(tr.operation, started, 0, err)
		return nil, err
	}

	var updated *withdrawal.Request
	_, err = w.reconciler.mutate(ctx, current.SellerID, tr.correlationID, func(ctx context.Context, m *mutation) error {
		req, err := m.repos.Withdrawals.GetByID(ctx, tr.withdrawalID)
		if err != nil {
			return err
		}

		from := req.Status
		if err := tr.apply(req); err != nil {
			w.logger.Warn("Rejected withdrawal transition",
				"withdrawal_id", req.ID.String(),
				"status", string(from),
				"operation", tr.operation,
				"error", err)
			return err
		}
		if err := m.repos.Withdrawals.UpdateStatus(ctx, req, from); err != nil {
			return err
		}
		if tr.after != nil {
			if err := tr.after(ctx, m, req); err != nil {
				return err
			}
		}

		m.emit(ledgerevent.New(req.SellerID, tr.eventType, req.Amount).
			WithWithdrawal(req.ID).
			WithActor(tr.actor, tr.reason))
		updated = req
		return nil
	})
	w.metrics.RecordOperation(tr.operation, started, current.Amount, err)
	if err != nil {
		return nil, err
	}

	w.logger.Info("Withdrawal transitioned",
		"withdrawal_id", updated.ID.String(),
		"seller_id", updated.SellerID.String(),
		"status", string(updated.Status))
	return updated, nil
}

// recordPayout writes the WITHDRAWN audit entry. It does not count towards
// the available balance, which already excludes completed withdrawals.
func (w *WithdrawalWorkflow) recordPayout(ctx context.Context, m *mutation, req *withdrawal.Request) error {
	entry, err := commission.NewEntry(req.SellerID, commission.TypeWithdrawn, req.Amount, commission.StatusConfirmed)
	if err != nil {
		return err
	}
	entry.WithdrawalID = &req.ID
	entry.ProcessedBy = req.ProcessedBy
	if req.PaymentReference != "" {
		entry.Notes = "payment reference " + req.PaymentReference
	}
	return m.repos.Commissions.Create(ctx, entry)
}

// Get returns one request. With a non-nil owner, requests of other sellers are
// reported as not found.
func (w *WithdrawalWorkflow) Get(ctx context.Context, withdrawalID uuid.UUID, owner *uuid.UUID) (*withdrawal.Request, error) {
	req, err := w.repos.Withdrawals.GetByID(ctx, withdrawalID)
	if err != nil {
		return nil, err
	}
	if owner != nil && req.SellerID != *owner {
		return nil, withdrawal.ErrRequestNotFound{RequestID: withdrawalID}
	}
	return req, nil
}

func (w *WithdrawalWorkflow) List(ctx context.Context, filter withdrawal.Filter, page Page) (*WithdrawalPage, error) {
	requests, err := w.repos.Withdrawals.List(ctx, filter, page.Limit, page.Offset)
	if err != nil {
		return nil, err
	}
	total, err := w.repos.Withdrawals.Count(ctx, filter)
	if err != nil {
		return nil, err
	}
	if requests == nil {
		requests = []*withdrawal.Request{}
	}
	return &WithdrawalPage{Requests: requests, Total: total, Limit: page.Limit, Offset: page.Offset}, nil
}
