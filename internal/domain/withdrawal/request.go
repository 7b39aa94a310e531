package withdrawal

import (
	"errors"
	"time"

	"github.com/Shubhamjamliya/Today-My-Dreams-sub000/internal/domain/seller"
	"github.com/Shubhamjamliya/Today-My-Dreams-sub000/internal/domain/shared"
	"github.com/google/uuid"
)

// Status of a withdrawal request. Everything except PENDING is terminal.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusCompleted Status = "COMPLETED"
	StatusRejected  Status = "REJECTED"
	StatusCancelled Status = "CANCELLED"
)

var ErrNonPositiveAmount = errors.New("withdrawal amount must be greater than zero")

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusCompleted, StatusRejected, StatusCancelled:
		return true
	}
	return false
}

// Request is a seller cash-out attempt. Requests are never deleted.
type Request struct {
	ID                  uuid.UUID          `json:"id"`
	SellerID            uuid.UUID          `json:"seller_id"`
	Amount              int64              `json:"amount"` // paise
	Status              Status             `json:"status"`
	BankDetailsSnapshot seller.BankDetails `json:"bank_details_snapshot"`
	SellerNotes         string             `json:"seller_notes,omitempty"`
	AdminNotes          string             `json:"admin_notes,omitempty"`
	RejectionReason     string             `json:"rejection_reason,omitempty"`
	PaymentReference    string             `json:"payment_reference,omitempty"`
	ProcessedBy         *uuid.UUID         `json:"processed_by,omitempty"`
	RequestedAt         time.Time          `json:"requested_at"`
	ProcessedAt         *time.Time         `json:"processed_at,omitempty"`
	UpdatedAt           time.Time          `json:"updated_at"`
}

// NewRequest builds a pending request with a copy of the seller's bank details.
func NewRequest(account *seller.Account, amount int64, notes string) (*Request, error) {
	if amount <= 0 {
		return nil, ErrNonPositiveAmount
	}
	if !account.BankDetails.Complete() {
		return nil, shared.ErrIncompletePayoutProfile{SellerID: account.ID}
	}

	now := time.Now().UTC()
	return &Request{
		ID:                  uuid.New(),
		SellerID:            account.ID,
		Amount:              amount,
		Status:              StatusPending,
		BankDetailsSnapshot: account.BankDetails,
		SellerNotes:         notes,
		RequestedAt:         now,
		UpdatedAt:           now,
	}, nil
}

func (r *Request) finish(to Status) error {
	if r.Status != StatusPending {
		return shared.ErrInvalidTransition{
			Entity: "withdrawal",
			ID:     r.ID,
			From:   string(r.Status),
			To:     string(to),
		}
	}
	now := time.Now().UTC()
	r.Status = to
	r.ProcessedAt = &now
	r.UpdatedAt = now
	return nil
}

// Approve marks the payout as sent. Admin "complete" uses the same transition.
func (r *Request) Approve(adminID uuid.UUID, paymentReference, notes string) error {
	if err := r.finish(StatusCompleted); err != nil {
		return err
	}
	r.ProcessedBy = &adminID
	r.PaymentReference = paymentReference
	r.AdminNotes = notes
	return nil
}

func (r *Request) Reject(adminID uuid.UUID, reason string) error {
	if err := r.finish(StatusRejected); err != nil {
		return err
	}
	r.ProcessedBy = &adminID
	r.RejectionReason = reason
	return nil
}

// Cancel is seller-initiated. A request owned by someone else is reported as
// not found so its existence is not disclosed.
func (r *Request) Cancel(sellerID uuid.UUID) error {
	if r.SellerID != sellerID {
		return ErrRequestNotFound{RequestID: r.ID}
	}
	return r.finish(StatusCancelled)
}
