package commission

import (
	"errors"
	"time"

	"github.com/Shubhamjamliya/Today-My-Dreams-sub000/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EntryType classifies a money movement attributed to a seller.
type EntryType string

const (
	TypeEarned    EntryType = "EARNED"
	TypeBonus     EntryType = "BONUS"
	TypeDeducted  EntryType = "DEDUCTED"
	TypeWithdrawn EntryType = "WITHDRAWN"
	TypeRefunded  EntryType = "REFUNDED"
	TypeAdjusted  EntryType = "ADJUSTED"
)

// Status of a commission entry. CANCELLED and REFUNDED are terminal.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusConfirmed Status = "CONFIRMED"
	StatusCancelled Status = "CANCELLED"
	StatusRefunded  Status = "REFUNDED"
)

var (
	ErrInvalidEntryType = errors.New("invalid commission entry type")
	ErrInvalidStatus    = errors.New("invalid commission status")
	ErrNegativeAmount   = errors.New("commission amount must not be negative")
	ErrMissingAmount    = errors.New("amount is required for non-earned entries")
)

var transitions = map[Status][]Status{
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusRefunded},
}

// Entry is one ledger line. Once it leaves PENDING only the
// CONFIRMED -> REFUNDED change is possible.
type Entry struct {
	ID                uuid.UUID  `json:"id"`
	SellerID          uuid.UUID  `json:"seller_id"`
	OrderID           *string    `json:"order_id,omitempty"`
	Type              EntryType  `json:"type"`
	Amount            int64      `json:"amount"` // paise
	CommissionRateBps int32      `json:"commission_rate_bps,omitempty"`
	OrderAmount       int64      `json:"order_amount,omitempty"`
	Status            Status     `json:"status"`
	WithdrawalID      *uuid.UUID `json:"withdrawal_id,omitempty"`
	ProcessedBy       *uuid.UUID `json:"processed_by,omitempty"`
	Notes             string     `json:"notes,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	ConfirmedAt       *time.Time `json:"confirmed_at,omitempty"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

func (t EntryType) Valid() bool {
	switch t {
	case TypeEarned, TypeBonus, TypeDeducted, TypeWithdrawn, TypeRefunded, TypeAdjusted:
		return true
	}
	return false
}

// IsCredit reports whether the type adds to the seller's earnings.
func (t EntryType) IsCredit() bool {
	return t == TypeEarned || t == TypeBonus
}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCancelled, StatusRefunded:
		return true
	}
	return false
}

func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// ComputeEarned returns round(orderAmount * rate / unit) * unit, with half
// away from zero rounding. All values are in paise except the rate.
func ComputeEarned(orderAmount int64, rateBps int32, roundingUnit int64) int64 {
	if roundingUnit <= 0 {
		roundingUnit = 1
	}
	raw := decimal.NewFromInt(orderAmount).Mul(shared.BasisPointsToRate(rateBps))
	unit := decimal.NewFromInt(roundingUnit)
	return raw.Div(unit).Round(0).Mul(unit).IntPart()
}

// NewEntry builds a fresh entry in the given status.
func NewEntry(sellerID uuid.UUID, entryType EntryType, amount int64, status Status) (*Entry, error) {
	if !entryType.Valid() {
		return nil, ErrInvalidEntryType
	}
	if status != StatusPending && status != StatusConfirmed {
		return nil, ErrInvalidStatus
	}
	if amount < 0 {
		return nil, ErrNegativeAmount
	}

	now := time.Now().UTC()
	e := &Entry{
		ID:        uuid.New(),
		SellerID:  sellerID,
		Type:      entryType,
		Amount:    amount,
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if status == StatusConfirmed {
		e.ConfirmedAt = &now
	}
	return e, nil
}

func (e *Entry) transition(to Status, actor uuid.UUID) error {
	if !e.Status.CanTransitionTo(to) {
		return shared.ErrInvalidTransition{
			Entity: "commission entry",
			ID:     e.ID,
			From:   string(e.Status),
			To:     string(to),
		}
	}
	now := time.Now().UTC()
	e.Status = to
	// uuid.Nil is the order pipeline acting on its own
	if actor != uuid.Nil {
		e.ProcessedBy = &actor
	}
	e.UpdatedAt = now
	if to == StatusConfirmed {
		e.ConfirmedAt = &now
	}
	return nil
}

// Confirm moves a pending entry to CONFIRMED.
func (e *Entry) Confirm(adminID uuid.UUID) error {
	return e.transition(StatusConfirmed, adminID)
}

// Cancel moves a pending entry to CANCELLED and keeps the reason in Notes.
func (e *Entry) Cancel(adminID uuid.UUID, reason string) error {
	if err := e.transition(StatusCancelled, adminID); err != nil {
		return err
	}
	e.appendNote(reason)
	return nil
}

// Refund moves a confirmed entry to REFUNDED.
func (e *Entry) Refund(adminID uuid.UUID, reason string) error {
	if err := e.transition(StatusRefunded, adminID); err != nil {
		return err
	}
	e.appendNote(reason)
	return nil
}

func (e *Entry) appendNote(note string) {
	if note == "" {
		return
	}
	if e.Notes == "" {
		e.Notes = note
		return
	}
	e.Notes = e.Notes + "; " + note
}
