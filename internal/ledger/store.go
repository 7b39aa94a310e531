package ledger

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Shubhamjamliya/Today-My-Dreams-sub000/internal/domain/commission"
	"github.com/Shubhamjamliya/Today-My-Dreams-sub000/internal/domain/ledgerevent"
	"github.com/Shubhamjamliya/Today-My-Dreams-sub000/internal/domain/shared"
	"github.com/Shubhamjamliya/Today-My-Dreams-sub000/internal/platform/metrics"
)

// ErrReservedEntryType is returned when a caller tries to record a WITHDRAWN
// entry directly. Those are written when a withdrawal is approved.
var ErrReservedEntryType = errors.New("withdrawn entries are created by withdrawal approval")

const orderRefundedReason = "order refunded"

// Store records commission entries and moves them through their states.
type Store struct {
	reconciler   *Reconciler
	repos        Repositories
	metrics      *metrics.LedgerMetrics
	logger       *slog.Logger
	roundingUnit int64
}

// RecordInput describes a new ledger entry. When Amount is nil the entry must
// be EARNED and its amount is derived from OrderAmount and RateBps.
type RecordInput struct {
	SellerID      uuid.UUID
	OrderID       *string
	Type          commission.EntryType
	Amount        *int64
	OrderAmount   int64
	RateBps       int32
	Status        commission.Status // empty means CONFIRMED
	ActorID       *uuid.UUID
	Notes         string
	CorrelationID string
}

// Record appends an entry and increases the seller's lifetime total for
// credits. A second EARNED entry for the same order is not created; the
// existing one is returned instead.
func (s *Store) Record(ctx context.Context, in RecordInput) (*commission.Entry, error) {
	started := time.Now()
	entry, err := s.record(ctx, in)
	s.metrics.RecordOperation("record", started, entryAmount(entry), err)
	return entry, err
}

func (s *Store) record(ctx context.Context, in RecordInput) (*commission.Entry, error) {
	if in.Type == commission.TypeWithdrawn {
		return nil, ErrReservedEntryType
	}
	if !in.Type.Valid() {
		return nil, commission.ErrInvalidEntryType
	}
	if in.Status == "" {
		in.Status = commission.StatusConfirmed
	}
	amount, err := s.resolveAmount(in)
	if err != nil {
		return nil, err
	}

	if err := s.repos.Sellers.EnsureExists(ctx, in.SellerID); err != nil {
		return nil, err
	}

	var entry *commission.Entry
	_, err = s.reconciler.mutate(ctx, in.SellerID, in.CorrelationID, func(ctx context.Context, m *mutation) error {
		var err error
		entry, err = s.recordLocked(ctx, m, in, amount)
		return err
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *Store) resolveAmount(in RecordInput) (int64, error) {
	if in.Amount != nil {
		return *in.Amount, nil
	}
	if in.Type != commission.TypeEarned {
		return 0, commission.ErrMissingAmount
	}
	if in.OrderAmount < 0 {
		return 0, commission.ErrNegativeAmount
	}
	return commission.ComputeEarned(in.OrderAmount, in.RateBps, s.roundingUnit), nil
}

func (s *Store) recordLocked(ctx context.Context, m *mutation, in RecordInput, amount int64) (*commission.Entry, error) {
	if in.Type == commission.TypeEarned && in.OrderID != nil {
		existing, err := m.repos.Commissions.GetByOrder(ctx, in.SellerID, *in.OrderID, commission.TypeEarned)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			s.logger.Info("Commission already recorded for order",
				"seller_id", in.SellerID.String(),
				"order_id", *in.OrderID,
				"entry_id", existing.ID.String(),
				"status", string(existing.Status))
			return existing, nil
		}
	}

	entry, err := commission.NewEntry(in.SellerID, in.Type, amount, in.Status)
	if err != nil {
		return nil, err
	}
	entry.OrderID = in.OrderID
	entry.Notes = in.Notes
	entry.ProcessedBy = in.ActorID
	if in.Type == commission.TypeEarned {
		entry.OrderAmount = in.OrderAmount
		entry.CommissionRateBps = in.RateBps
	}

	if err := m.repos.Commissions.Create(ctx, entry); err != nil {
		return nil, err
	}
	if entry.Type.IsCredit() {
		if err := m.repos.Sellers.IncrementTotalCommission(ctx, in.SellerID, entry.Amount); err != nil {
			return nil, err
		}
	}

	m.emit(ledgerevent.New(in.SellerID, ledgerevent.CommissionRecorded, entry.Amount).
		WithEntry(entry.ID, entry.OrderID).
		WithActor(in.ActorID, in.Notes))

	s.logger.Info("Commission entry recorded",
		"seller_id", in.SellerID.String(),
		"entry_id", entry.ID.String(),
		"type", string(entry.Type),
		"status", string(entry.Status),
		"amount", entry.Amount)
	return entry, nil
}

// Confirm moves a pending entry to CONFIRMED. uuid.Nil stands for the order pipeline.
func (s *Store) Confirm(ctx context.Context, entryID, adminID uuid.UUID, correlationID string) (*commission.Entry, error) {
	return s.transition(ctx, "confirm", entryID, correlationID, func(ctx context.Context, m *mutation) (*commission.Entry, error) {
		return s.transitionLocked(ctx, m, entryID, ledgerevent.CommissionConfirmed, adminID, "", func(e *commission.Entry) error {
			return e.Confirm(adminID)
		})
	})
}

// Cancel moves a pending entry to CANCELLED.
func (s *Store) Cancel(ctx context.Context, entryID, adminID uuid.UUID, reason, correlationID string) (*commission.Entry, error) {
	return s.transition(ctx, "cancel", entryID, correlationID, func(ctx context.Context, m *mutation) (*commission.Entry, error) {
		return s.transitionLocked(ctx, m, entryID, ledgerevent.CommissionCancelled, adminID, reason, func(e *commission.Entry) error {
			return e.Cancel(adminID, reason)
		})
	})
}

// Refund moves a confirmed entry to REFUNDED, taking it out of the balance.
func (s *Store) Refund(ctx context.Context, entryID, adminID uuid.UUID, reason, correlationID string) (*commission.Entry, error) {
	return s.transition(ctx, "refund", entryID, correlationID, func(ctx context.Context, m *mutation) (*commission.Entry, error) {
		return s.transitionLocked(ctx, m, entryID, ledgerevent.CommissionRefunded, adminID, reason, func(e *commission.Entry) error {
			return e.Refund(adminID, reason)
		})
	})
}

func (s *Store) transition(ctx context.Context, operation string, entryID uuid.UUID, correlationID string, fn func(ctx context.Context, m *mutation) (*commission.Entry, error)) (*commission.Entry, error) {
	started := time.Now()

	current, err := s.repos.Commissions.GetByID(ctx, entryID)
	if err != nil {
		s.metrics.RecordOperation(operation, started, 0, err)
		return nil, err
	}

	var updated *commission.Entry
	_, err = s.reconciler.mutate(ctx, current.SellerID, correlationID, func(ctx context.Context, m *mutation) error {
		var err error
		updated, err = fn(ctx, m)
		return err
	})
	s.metrics.RecordOperation(operation, started, entryAmount(updated), err)
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// transitionLocked re-reads the entry under the seller lock so the guard sees
// the latest committed status.
func (s *Store) transitionLocked(ctx context.Context, m *mutation, entryID uuid.UUID, eventType ledgerevent.Type, actor uuid.UUID, reason string, apply func(e *commission.Entry) error) (*commission.Entry, error) {
	entry, err := m.repos.Commissions.GetByID(ctx, entryID)
	if err != nil {
		return nil, err
	}

	from := entry.Status
	if err := apply(entry); err != nil {
		s.logger.Warn("Rejected commission transition",
			"entry_id", entryID.String(),
			"status", string(from),
			"error", err)
		return nil, err
	}
	if err := m.repos.Commissions.UpdateStatus(ctx, entry, from); err != nil {
		return nil, err
	}

	m.emit(ledgerevent.New(entry.SellerID, eventType, entry.Amount).
		WithEntry(entry.ID, entry.OrderID).
		WithActor(actorRef(actor), reason))

	s.logger.Info("Commission entry transitioned",
		"entry_id", entry.ID.String(),
		"seller_id", entry.SellerID.String(),
		"from", string(from),
		"to", string(entry.Status))
	return entry, nil
}

// ApplyOrderEvent maps an order lifecycle event onto the order's EARNED entry:
// paid records it pending, completed confirms it (recording it confirmed when
// the paid event never arrived), refunded cancels or refunds it. Events that
// find the entry already past that step change nothing. A refund for an order
// without commission returns nil, nil.
func (s *Store) ApplyOrderEvent(ctx context.Context, event *shared.OrderEvent) (*commission.Entry, error) {
	if err := event.Validate(); err != nil {
		return nil, err
	}

	in := RecordInput{
		SellerID:      event.SellerID,
		OrderID:       &event.OrderID,
		Type:          commission.TypeEarned,
		CorrelationID: event.CorrelationID,
	}
	var amount int64
	if event.Type != shared.OrderEventRefunded {
		orderAmount, rateBps, err := event.Amounts()
		if err != nil {
			return nil, err
		}
		in.OrderAmount = orderAmount
		in.RateBps = rateBps
		amount = commission.ComputeEarned(orderAmount, rateBps, s.roundingUnit)
	}

	started := time.Now()
	operation := strings.ToLower(string(event.Type))

	if err := s.repos.Sellers.EnsureExists(ctx, event.SellerID); err != nil {
		s.metrics.RecordOperation(operation, started, 0, err)
		return nil, err
	}

	var entry *commission.Entry
	_, err := s.reconciler.mutate(ctx, event.SellerID, event.CorrelationID, func(ctx context.Context, m *mutation) error {
		var err error
		entry, err = s.applyOrderLocked(ctx, m, event, in, amount)
		return err
	})
	s.metrics.RecordOperation(operation, started, entryAmount(entry), err)
	if err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *Store) applyOrderLocked(ctx context.Context, m *mutation, event *shared.OrderEvent, in RecordInput, amount int64) (*commission.Entry, error) {
	if event.Type == shared.OrderEventPaid {
		in.Status = commission.StatusPending
		return s.recordLocked(ctx, m, in, amount)
	}

	existing, err := m.repos.Commissions.GetByOrder(ctx, event.SellerID, event.OrderID, commission.TypeEarned)
	if err != nil {
		return nil, err
	}

	switch event.Type {
	case shared.OrderEventCompleted:
		if existing == nil {
			in.Status = commission.StatusConfirmed
			return s.recordLocked(ctx, m, in, amount)
		}
		if existing.Status == commission.StatusPending {
			return s.transitionLocked(ctx, m, existing.ID, ledgerevent.CommissionConfirmed, uuid.Nil, "", func(e *commission.Entry) error {
				return e.Confirm(uuid.Nil)
			})
		}

	case shared.OrderEventRefunded:
		if existing == nil {
			s.logger.Info("Refund for order without commission", "order_id", event.OrderID, "seller_id", event.SellerID.String())
			return nil, nil
		}
		switch existing.Status {
		case commission.StatusPending:
			return s.transitionLocked(ctx, m, existing.ID, ledgerevent.CommissionCancelled, uuid.Nil, orderRefundedReason, func(e *commission.Entry) error {
				return e.Cancel(uuid.Nil, orderRefundedReason)
			})
		case commission.StatusConfirmed:
			return s.transitionLocked(ctx, m, existing.ID, ledgerevent.CommissionRefunded, uuid.Nil, orderRefundedReason, func(e *commission.Entry) error {
				return e.Refund(uuid.Nil, orderRefundedReason)
			})
		}
	}

	s.logger.Info("Order event leaves commission unchanged",
		"order_id", event.OrderID,
		"event_type", string(event.Type),
		"status", string(existing.Status))
	return existing, nil
}

// Get returns one entry. With a non-nil owner, entries of other sellers are
// reported as not found.
func (s *Store) Get(ctx context.Context, entryID uuid.UUID, owner *uuid.UUID) (*commission.Entry, error) {
	entry, err := s.repos.Commissions.GetByID(ctx, entryID)
	if err != nil {
		return nil, err
	}
	if owner != nil && entry.SellerID != *owner {
		return nil, commission.ErrEntryNotFound{EntryID: entryID}
	}
	return entry, nil
}

func (s *Store) Query(ctx context.Context, filter commission.Filter, page Page) (*EntryPage, error) {
	entries, err := s.repos.Commissions.List(ctx, filter, page.Limit, page.Offset)
	if err != nil {
		return nil, err
	}
	total, err := s.repos.Commissions.Count(ctx, filter)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []*commission.Entry{}
	}
	return &EntryPage{Entries: entries, Total: total, Limit: page.Limit, Offset: page.Offset}, nil
}

func (s *Store) Summarize(ctx context.Context, sellerID uuid.UUID) (*commission.Summary, error) {
	return s.repos.Commissions.Summarize(ctx, sellerID)
}

// MonthlyRollup returns confirmed earnings for each of the last months calendar
// months, oldest first, with zero for months without earnings.
func (s *Store) MonthlyRollup(ctx context.Context, sellerID uuid.UUID, months int) ([]commission.MonthlyTotal, error) {
	months = normalizeMonths(months)

	now := time.Now().UTC()
	since := commission.RollupStart(now, months)
	totals, err := s.repos.Commissions.MonthlyRollup(ctx, sellerID, since)
	if err != nil {
		return nil, err
	}
	return commission.FillMonths(totals, since, now), nil
}

func normalizeMonths(months int) int {
	if months < 1 {
		return DefaultRollupMonths
	}
	if months > MaxRollupMonths {
		return MaxRollupMonths
	}
	return months
}

func entryAmount(entry *commission.Entry) int64 {
	if entry == nil {
		return 0
	}
	return entry.Amount
}

func actorRef(actor uuid.UUID) *uuid.UUID {
	if actor == uuid.Nil {
		return nil
	}
	return &actor
}
