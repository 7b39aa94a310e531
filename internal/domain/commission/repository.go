package commission

import (
	"context"
	"time"

	"github.com/Shubhamjamliya/Today-My-Dreams-sub000/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Filter narrows a ledger query. Zero values mean "any".
type Filter struct {
	SellerID *uuid.UUID
	Type     EntryType
	Status   Status
	From     *time.Time
	To       *time.Time
}

// Summary aggregates a seller's ledger, all values in paise.
type Summary struct {
	TotalEarned     int64 `json:"total_earned"`
	TotalDeducted   int64 `json:"total_deducted"`
	PendingAmount   int64 `json:"pending_amount"`
	ConfirmedAmount int64 `json:"confirmed_amount"`
}

// MonthlyTotal is confirmed earnings for one calendar month.
type MonthlyTotal struct {
	Month  time.Time `json:"month"`
	Amount int64     `json:"amount"`
	Count  int       `json:"count"`
}

type Repository interface {
	Create(ctx context.Context, entry *Entry) error
	GetByID(ctx context.Context, id uuid.UUID) (*Entry, error)
	// GetByOrder returns nil, nil when the seller has no entry of that type for the order.
	GetByOrder(ctx context.Context, sellerID uuid.UUID, orderID string, entryType EntryType) (*Entry, error)
	// UpdateStatus persists a transition only if the stored status still equals from.
	UpdateStatus(ctx context.Context, entry *Entry, from Status) error
	List(ctx context.Context, filter Filter, limit, offset int) ([]*Entry, error)
	Count(ctx context.Context, filter Filter) (int64, error)
	// SumConfirmedCredits is the EARNED+BONUS confirmed total used by reconciliation.
	SumConfirmedCredits(ctx context.Context, sellerID uuid.UUID) (int64, error)
	Summarize(ctx context.Context, sellerID uuid.UUID) (*Summary, error)
	MonthlyRollup(ctx context.Context, sellerID uuid.UUID, since time.Time) ([]MonthlyTotal, error)
	WithTx(tx pgx.Tx) Repository
}

// ErrEntryNotFound indicates a missing commission entry.
type ErrEntryNotFound struct {
	EntryID uuid.UUID
}

func (e ErrEntryNotFound) Error() string {
	return "commission entry not found: " + e.EntryID.String()
}

func (e ErrEntryNotFound) Is(target error) bool {
	if target == shared.ErrNotFound {
		return true
	}
	t, ok := target.(ErrEntryNotFound)
	if !ok {
		return false
	}
	return t.EntryID == uuid.Nil || t.EntryID == e.EntryID
}

// ErrDuplicateOrderEntry indicates a second EARNED entry for the same order.
type ErrDuplicateOrderEntry struct {
	SellerID uuid.UUID
	OrderID  string
}

func (e ErrDuplicateOrderEntry) Error() string {
	return "commission already recorded for order " + e.OrderID + " of seller " + e.SellerID.String()
}

func (e ErrDuplicateOrderEntry) Is(target error) bool {
	_, ok := target.(ErrDuplicateOrderEntry)
	return ok
}

// FillMonths returns one MonthlyTotal per calendar month from the month of
// since through the month of now, using zero for months with no earnings.
func FillMonths(totals []MonthlyTotal, since, now time.Time) []MonthlyTotal {
	byMonth := make(map[time.Time]MonthlyTotal, len(totals))
	for _, t := range totals {
		byMonth[monthStart(t.Month)] = t
	}

	var out []MonthlyTotal
	for m := monthStart(since); !m.After(monthStart(now)); m = m.AddDate(0, 1, 0) {
		if t, ok := byMonth[m]; ok {
			t.Month = m
			out = append(out, t)
			continue
		}
		out = append(out, MonthlyTotal{Month: m})
	}
	return out
}

// RollupStart is the first day of the month months-1 months before now.
func RollupStart(now time.Time, months int) time.Time {
	if months < 1 {
		months = 1
	}
	return monthStart(now).AddDate(0, -(months - 1), 0)
}

func monthStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}
