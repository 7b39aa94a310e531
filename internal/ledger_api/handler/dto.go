package handler

import (
	"time"

	"github.com/Shubhamjamliya/Today-My-Dreams-sub000/internal/domain/commission"
	"github.com/Shubhamjamliya/Today-My-Dreams-sub000/internal/domain/ledgerevent"
	"github.com/Shubhamjamliya/Today-My-Dreams-sub000/internal/domain/seller"
	"github.com/Shubhamjamliya/Today-My-Dreams-sub000/internal/domain/shared"
	"github.com/Shubhamjamliya/Today-My-Dreams-sub000/internal/domain/withdrawal"
	"github.com/Shubhamjamliya/Today-My-Dreams-sub000/internal/ledger"
	"github.com/google/uuid"
)

// Money crosses the API as decimal rupee strings such as "1250.50".

// PayoutProfileRequest replaces the seller's payout details.
type PayoutProfileRequest struct {
	AccountHolder string `json:"account_holder" binding:"max=120"`
	AccountNumber string `json:"account_number" binding:"omitempty,numeric,min=9,max=18"`
	IFSC          string `json:"ifsc" binding:"omitempty,ifsc"`
	BankName      string `json:"bank_name" binding:"max=120"`
	UPIID         string `json:"upi_id" binding:"omitempty,upi"`
}

type RequestWithdrawalRequest struct {
	Amount string `json:"amount" binding:"required,money"`
	Notes  string `json:"notes" binding:"max=500"`
}

// RecordCommissionRequest is a manual admin entry. EARNED entries may give
// order_amount and commission_rate instead of amount.
type RecordCommissionRequest struct {
	SellerID       string `json:"seller_id" binding:"required,uuid"`
	OrderID        string `json:"order_id" binding:"max=64"`
	Type           string `json:"type" binding:"required,oneof=EARNED BONUS DEDUCTED REFUNDED ADJUSTED"`
	Amount         string `json:"amount" binding:"omitempty,money"`
	OrderAmount    string `json:"order_amount" binding:"omitempty,money"`
	CommissionRate string `json:"commission_rate" binding:"omitempty,rate"`
	Status         string `json:"status" binding:"omitempty,oneof=PENDING CONFIRMED"`
	Notes          string `json:"notes" binding:"max=500"`
}

type ReasonRequest struct {
	Reason string `json:"reason" binding:"max=500"`
}

type RejectWithdrawalRequest struct {
	Reason string `json:"reason" binding:"required,max=500"`
}

type SettleWithdrawalRequest struct {
	PaymentReference string `json:"payment_reference" binding:"max=100"`
	Notes            string `json:"notes" binding:"max=500"`
}

// PaginationParams represents pagination parameters for list endpoints
type PaginationParams struct {
	Page    int `form:"page,default=1" binding:"min=1"`
	PerPage int `form:"per_page,default=20" binding:"min=1,max=100"`
}

func (p PaginationParams) toPage() ledger.Page {
	return ledger.Page{Limit: p.PerPage, Offset: (p.Page - 1) * p.PerPage}
}

type CommissionQuery struct {
	PaginationParams
	SellerID string    `form:"seller_id" binding:"omitempty,uuid"`
	Type     string    `form:"type" binding:"omitempty,oneof=EARNED BONUS DEDUCTED WITHDRAWN REFUNDED ADJUSTED"`
	Status   string    `form:"status" binding:"omitempty,oneof=PENDING CONFIRMED CANCELLED REFUNDED"`
	From     time.Time `form:"from" time_format:"2006-01-02" time_utc:"1"`
	To       time.Time `form:"to" time_format:"2006-01-02" time_utc:"1"`
}

func (q CommissionQuery) filter() commission.Filter {
	f := commission.Filter{
		Type:   commission.EntryType(q.Type),
		Status: commission.Status(q.Status),
	}
	f.From, f.To = dateRange(q.From, q.To)
	return f
}

type WithdrawalQuery struct {
	PaginationParams
	SellerID string    `form:"seller_id" binding:"omitempty,uuid"`
	Status   string    `form:"status" binding:"omitempty,oneof=PENDING COMPLETED REJECTED CANCELLED"`
	From     time.Time `form:"from" time_format:"2006-01-02" time_utc:"1"`
	To       time.Time `form:"to" time_format:"2006-01-02" time_utc:"1"`
}

func (q WithdrawalQuery) filter() withdrawal.Filter {
	f := withdrawal.Filter{Status: withdrawal.Status(q.Status)}
	f.From, f.To = dateRange(q.From, q.To)
	return f
}

type SummaryQuery struct {
	Months int `form:"months" binding:"omitempty,min=1"`
}

// dateRange makes "to" inclusive of the whole day.
func dateRange(from, to time.Time) (*time.Time, *time.Time) {
	var f, t *time.Time
	if !from.IsZero() {
		v := from.UTC()
		f = &v
	}
	if !to.IsZero() {
		v := to.UTC().AddDate(0, 0, 1)
		t = &v
	}
	return f, t
}

type BankDetailsResponse struct {
	AccountHolder string `json:"account_holder,omitempty"`
	AccountNumber string `json:"account_number,omitempty"`
	IFSC          string `json:"ifsc,omitempty"`
	BankName      string `json:"bank_name,omitempty"`
	UPIID         string `json:"upi_id,omitempty"`
}

type BalanceResponse struct {
	SellerID              string              `json:"seller_id"`
	TotalCommission       string              `json:"total_commission"`
	AvailableCommission   string              `json:"available_commission"`
	PayoutProfileComplete bool                `json:"payout_profile_complete"`
	BankDetails           BankDetailsResponse `json:"bank_details"`
	UpdatedAt             string              `json:"updated_at"`
}

type EntryResponse struct {
	ID             string  `json:"id"`
	SellerID       string  `json:"seller_id"`
	OrderID        *string `json:"order_id,omitempty"`
	Type           string  `json:"type"`
	Amount         string  `json:"amount"`
	OrderAmount    string  `json:"order_amount,omitempty"`
	CommissionRate string  `json:"commission_rate,omitempty"`
	Status         string  `json:"status"`
	WithdrawalID   string  `json:"withdrawal_id,omitempty"`
	ProcessedBy    string  `json:"processed_by,omitempty"`
	Notes          string  `json:"notes,omitempty"`
	CreatedAt      string  `json:"created_at"`
	ConfirmedAt    string  `json:"confirmed_at,omitempty"`
	UpdatedAt      string  `json:"updated_at"`
}

type WithdrawalResponse struct {
	ID               string              `json:"id"`
	SellerID         string              `json:"seller_id"`
	Amount           string              `json:"amount"`
	Status           string              `json:"status"`
	BankDetails      BankDetailsResponse `json:"bank_details"`
	SellerNotes      string              `json:"seller_notes,omitempty"`
	AdminNotes       string              `json:"admin_notes,omitempty"`
	RejectionReason  string              `json:"rejection_reason,omitempty"`
	PaymentReference string              `json:"payment_reference,omitempty"`
	ProcessedBy      string              `json:"processed_by,omitempty"`
	RequestedAt      string              `json:"requested_at"`
	ProcessedAt      string              `json:"processed_at,omitempty"`
}

type MonthResponse struct {
	Month  string `json:"month"`
	Amount string `json:"amount"`
	Count  int    `json:"count"`
}

type DashboardResponse struct {
	Balance              BalanceResponse `json:"balance"`
	TotalEarned          string          `json:"total_earned"`
	TotalDeducted        string          `json:"total_deducted"`
	PendingCommission    string          `json:"pending_commission"`
	ConfirmedCommission  string          `json:"confirmed_commission"`
	CompletedWithdrawals string          `json:"completed_withdrawals"`
	PendingWithdrawals   string          `json:"pending_withdrawals"`
	Monthly              []MonthResponse `json:"monthly"`
	GeneratedAt          string          `json:"generated_at"`
}

type AuditEventResponse struct {
	EventID        string `json:"event_id"`
	Type           string `json:"type"`
	EntryID        string `json:"entry_id,omitempty"`
	WithdrawalID   string `json:"withdrawal_id,omitempty"`
	OrderID        string `json:"order_id,omitempty"`
	Amount         string `json:"amount"`
	AvailableAfter string `json:"available_after"`
	ActorID        string `json:"actor_id,omitempty"`
	Reason         string `json:"reason,omitempty"`
	CorrelationID  string `json:"correlation_id,omitempty"`
	OccurredAt     string `json:"occurred_at"`
}

type ReconcileResponse struct {
	SellerID            string `json:"seller_id"`
	AvailableCommission string `json:"available_commission"`
}

func mapBankDetails(b seller.BankDetails) BankDetailsResponse {
	return BankDetailsResponse{
		AccountHolder: b.AccountHolder,
		AccountNumber: b.AccountNumber,
		IFSC:          b.IFSC,
		BankName:      b.BankName,
		UPIID:         b.UPIID,
	}
}

func mapBalanceToResponse(b *ledger.Balance) BalanceResponse {
	return BalanceResponse{
		SellerID:              b.SellerID.String(),
		TotalCommission:       shared.FormatMinorUnits(b.TotalCommission),
		AvailableCommission:   shared.FormatMinorUnits(b.AvailableCommission),
		PayoutProfileComplete: b.PayoutProfileComplete,
		BankDetails:           mapBankDetails(b.BankDetails),
		UpdatedAt:             formatTime(b.UpdatedAt),
	}
}

func mapEntryToResponse(e *commission.Entry) EntryResponse {
	resp := EntryResponse{
		ID:           e.ID.String(),
		SellerID:     e.SellerID.String(),
		OrderID:      e.OrderID,
		Type:         string(e.Type),
		Amount:       shared.FormatMinorUnits(e.Amount),
		Status:       string(e.Status),
		WithdrawalID: optionalID(e.WithdrawalID),
		ProcessedBy:  optionalID(e.ProcessedBy),
		Notes:        e.Notes,
		CreatedAt:    formatTime(e.CreatedAt),
		ConfirmedAt:  optionalTime(e.ConfirmedAt),
		UpdatedAt:    formatTime(e.UpdatedAt),
	}
	if e.OrderAmount > 0 {
		resp.OrderAmount = shared.FormatMinorUnits(e.OrderAmount)
		resp.CommissionRate = shared.BasisPointsToRate(e.CommissionRateBps).StringFixed(4)
	}
	return resp
}

func mapEntries(entries []*commission.Entry) []EntryResponse {
	out := make([]EntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, mapEntryToResponse(e))
	}
	return out
}

// mapWithdrawalToResponse masks the bank snapshot for sellers; admins need
// the full account number to send the payout.
func mapWithdrawalToResponse(r *withdrawal.Request, mask bool) WithdrawalResponse {
	details := r.BankDetailsSnapshot
	if mask {
		details = details.Masked()
	}
	return WithdrawalResponse{
		ID:               r.ID.String(),
		SellerID:         r.SellerID.String(),
		Amount:           shared.FormatMinorUnits(r.Amount),
		Status:           string(r.Status),
		BankDetails:      mapBankDetails(details),
		SellerNotes:      r.SellerNotes,
		AdminNotes:       r.AdminNotes,
		RejectionReason:  r.RejectionReason,
		PaymentReference: r.PaymentReference,
		ProcessedBy:      optionalID(r.ProcessedBy),
		RequestedAt:      formatTime(r.RequestedAt),
		ProcessedAt:      optionalTime(r.ProcessedAt),
	}
}

func mapWithdrawals(requests []*withdrawal.Request, mask bool) []WithdrawalResponse {
	out := make([]WithdrawalResponse, 0, len(requests))
	for _, r := range requests {
		out = append(out, mapWithdrawalToResponse(r, mask))
	}
	return out
}

func mapDashboardToResponse(d *ledger.Dashboard) DashboardResponse {
	monthly := make([]MonthResponse, 0, len(d.Monthly))
	for _, m := range d.Monthly {
		monthly = append(monthly, MonthResponse{
			Month:  m.Month.Format("2006-01"),
			Amount: shared.FormatMinorUnits(m.Amount),
			Count:  m.Count,
		})
	}
	return DashboardResponse{
		Balance:              mapBalanceToResponse(&d.Balance),
		TotalEarned:          shared.FormatMinorUnits(d.Summary.TotalEarned),
		TotalDeducted:        shared.FormatMinorUnits(d.Summary.TotalDeducted),
		PendingCommission:    shared.FormatMinorUnits(d.Summary.PendingAmount),
		ConfirmedCommission:  shared.FormatMinorUnits(d.Summary.ConfirmedAmount),
		CompletedWithdrawals: shared.FormatMinorUnits(d.Withdrawals.Completed),
		PendingWithdrawals:   shared.FormatMinorUnits(d.Withdrawals.Pending),
		Monthly:              monthly,
		GeneratedAt:          formatTime(d.GeneratedAt),
	}
}

func mapAuditEvents(events []*ledgerevent.Event) []AuditEventResponse {
	out := make([]AuditEventResponse, 0, len(events))
	for _, e := range events {
		out = append(out, AuditEventResponse{
			EventID:        e.EventID.String(),
			Type:           string(e.Type),
			EntryID:        optionalID(e.EntryID),
			WithdrawalID:   optionalID(e.WithdrawalID),
			OrderID:        e.OrderID,
			Amount:         shared.FormatMinorUnits(e.Amount),
			AvailableAfter: shared.FormatMinorUnits(e.AvailableAfter),
			ActorID:        optionalID(e.ActorID),
			Reason:         e.Reason,
			CorrelationID:  e.CorrelationID,
			OccurredAt:     formatTime(e.OccurredAt),
		})
	}
	return out
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func optionalTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return formatTime(*t)
}

func optionalID(id *uuid.UUID) string {
	if id == nil {
		return ""
	}
	return id.String()
}
