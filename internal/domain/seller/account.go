package seller

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var ErrNegativeBalance = errors.New("available commission must not be negative")

// BankDetails is the seller's payout profile. A snapshot of it travels with
// every withdrawal request.
type BankDetails struct {
	AccountHolder string `json:"account_holder,omitempty"`
	AccountNumber string `json:"account_number,omitempty"`
	IFSC          string `json:"ifsc,omitempty"`
	BankName      string `json:"bank_name,omitempty"`
	UPIID         string `json:"upi_id,omitempty"`
}

// Complete reports whether a payout can be sent: either a full bank account
// or a UPI id.
func (b BankDetails) Complete() bool {
	if strings.TrimSpace(b.UPIID) != "" {
		return true
	}
	return strings.TrimSpace(b.AccountHolder) != "" &&
		strings.TrimSpace(b.AccountNumber) != "" &&
		strings.TrimSpace(b.IFSC) != ""
}

// Masked hides all but the last four digits of the account number.
func (b BankDetails) Masked() BankDetails {
	n := len(b.AccountNumber)
	if n > 4 {
		b.AccountNumber = strings.Repeat("X", n-4) + b.AccountNumber[n-4:]
	}
	return b
}

// Account is the seller-side projection of the ledger. TotalCommission and
// AvailableCommission are derived values; the ledger is authoritative.
type Account struct {
	ID                  uuid.UUID   `json:"id"`
	BankDetails         BankDetails `json:"bank_details"`
	TotalCommission     int64       `json:"total_commission"`     // paise
	AvailableCommission int64       `json:"available_commission"` // paise
	Version             int         `json:"version"`
	CreatedAt           time.Time   `json:"created_at"`
	UpdatedAt           time.Time   `json:"updated_at"`
}

func NewAccount(id uuid.UUID) *Account {
	now := time.Now().UTC()
	return &Account{
		ID:        id,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
