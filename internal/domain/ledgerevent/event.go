package ledgerevent

import (
	"time"

	"github.com/google/uuid"
)

// Type names a committed ledger mutation.
type Type string

const (
	CommissionRecorded  Type = "COMMISSION_RECORDED"
	CommissionConfirmed Type = "COMMISSION_CONFIRMED"
	CommissionCancelled Type = "COMMISSION_CANCELLED"
	CommissionRefunded  Type = "COMMISSION_REFUNDED"
	WithdrawalRequested Type = "WITHDRAWAL_REQUESTED"
	WithdrawalCancelled Type = "WITHDRAWAL_CANCELLED"
	WithdrawalCompleted Type = "WITHDRAWAL_COMPLETED"
	WithdrawalRejected  Type = "WITHDRAWAL_REJECTED"
	BalanceRecalculated Type = "BALANCE_RECALCULATED"
)

// Event is written to the outbox inside the mutating transaction and later
// appended to the audit log and the ledger events topic.
type Event struct {
	EventID        uuid.UUID  `json:"event_id" bson:"event_id"`
	SellerID       uuid.UUID  `json:"seller_id" bson:"seller_id"`
	Type           Type       `json:"type" bson:"type"`
	EntryID        *uuid.UUID `json:"entry_id,omitempty" bson:"entry_id,omitempty"`
	WithdrawalID   *uuid.UUID `json:"withdrawal_id,omitempty" bson:"withdrawal_id,omitempty"`
	OrderID        string     `json:"order_id,omitempty" bson:"order_id,omitempty"`
	Amount         int64      `json:"amount" bson:"amount"`
	AvailableAfter int64      `json:"available_after" bson:"available_after"`
	ActorID        *uuid.UUID `json:"actor_id,omitempty" bson:"actor_id,omitempty"`
	Reason         string     `json:"reason,omitempty" bson:"reason,omitempty"`
	CorrelationID  string     `json:"correlation_id,omitempty" bson:"correlation_id,omitempty"`
	OccurredAt     time.Time  `json:"occurred_at" bson:"occurred_at"`
}

func New(sellerID uuid.UUID, eventType Type, amount int64) *Event {
	return &Event{
		EventID:    uuid.New(),
		SellerID:   sellerID,
		Type:       eventType,
		Amount:     amount,
		OccurredAt: time.Now().UTC(),
	}
}

func (e *Event) WithEntry(id uuid.UUID, orderID *string) *Event {
	e.EntryID = &id
	if orderID != nil {
		e.OrderID = *orderID
	}
	return e
}

func (e *Event) WithWithdrawal(id uuid.UUID) *Event {
	e.WithdrawalID = &id
	return e
}

func (e *Event) WithActor(actor *uuid.UUID, reason string) *Event {
	e.ActorID = actor
	e.Reason = reason
	return e
}
