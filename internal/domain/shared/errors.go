package shared

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrNotFound is matched by every typed not-found error in the domain packages.
var ErrNotFound = errors.New("not found")

// ErrInvalidTransition is returned when a status change is not allowed from
// the entity's current state. The entity is left untouched.
type ErrInvalidTransition struct {
	Entity string
	ID     uuid.UUID
	From   string
	To     string
}

func (e ErrInvalidTransition) Error() string {
	return fmt.Sprintf("invalid %s transition for %s: %s -> %s", e.Entity, e.ID, e.From, e.To)
}

// Is matches any ErrInvalidTransition when the target carries no ID.
func (e ErrInvalidTransition) Is(target error) bool {
	t, ok := target.(ErrInvalidTransition)
	if !ok {
		return false
	}
	return t.ID == uuid.Nil || t.ID == e.ID
}

// ErrInsufficientBalance is returned when a withdrawal asks for more than the
// seller's available commission at admission time.
type ErrInsufficientBalance struct {
	SellerID  uuid.UUID
	Available int64
	Requested int64
}

func (e ErrInsufficientBalance) Error() string {
	return fmt.Sprintf("insufficient balance for seller %s: available %d, requested %d", e.SellerID, e.Available, e.Requested)
}

func (e ErrInsufficientBalance) Is(target error) bool {
	_, ok := target.(ErrInsufficientBalance)
	return ok
}

// ErrIncompletePayoutProfile is returned when a seller without usable bank
// details requests a withdrawal.
type ErrIncompletePayoutProfile struct {
	SellerID uuid.UUID
}

func (e ErrIncompletePayoutProfile) Error() string {
	return "payout profile incomplete for seller: " + e.SellerID.String()
}

func (e ErrIncompletePayoutProfile) Is(target error) bool {
	_, ok := target.(ErrIncompletePayoutProfile)
	return ok
}

// ErrReconciliationFailure wraps a failure of the recompute-and-write step.
// The operation that triggered it did not commit.
type ErrReconciliationFailure struct {
	SellerID uuid.UUID
	Err      error
}

func (e ErrReconciliationFailure) Error() string {
	return fmt.Sprintf("reconciliation failed for seller %s: %v", e.SellerID, e.Err)
}

func (e ErrReconciliationFailure) Unwrap() error {
	return e.Err
}

func (e ErrReconciliationFailure) Is(target error) bool {
	_, ok := target.(ErrReconciliationFailure)
	return ok
}
