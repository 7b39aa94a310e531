package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/Shubhamjamliya/Today-My-Dreams-sub000/internal/domain/commission"
	"github.com/Shubhamjamliya/Today-My-Dreams-sub000/internal/domain/shared"
	"github.com/Shubhamjamliya/Today-My-Dreams-sub000/internal/domain/withdrawal"
	"github.com/Shubhamjamliya/Today-My-Dreams-sub000/internal/ledger"
	"github.com/Shubhamjamliya/Today-My-Dreams-sub000/internal/ledger_api/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var errMissingAmount = errors.New("amount, or order_amount with commission_rate, is required")

// AdminHandler serves back-office operations across all sellers.
type AdminHandler struct {
	commissions CommissionLedger
	withdrawals WithdrawalWorkflow
	reconciler  BalanceReconciler
	auditLog    AuditLog
	logger      *slog.Logger
}

func NewAdminHandler(logger *slog.Logger, commissions CommissionLedger, withdrawals WithdrawalWorkflow, reconciler BalanceReconciler, auditLog AuditLog) *AdminHandler {
	return &AdminHandler{
		commissions: commissions,
		withdrawals: withdrawals,
		reconciler:  reconciler,
		auditLog:    auditLog,
		logger:      logger,
	}
}

func (h *AdminHandler) ListCommissions(c *gin.Context) {
	var q CommissionQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		RespondBadRequest(c, "Invalid query: "+err.Error())
		return
	}

	filter := q.filter()
	if q.SellerID != "" {
		sellerID := uuid.MustParse(q.SellerID)
		filter.SellerID = &sellerID
	}

	page, err := h.commissions.Query(c.Request.Context(), filter, q.toPage())
	if err != nil {
		respondLedgerError(c, h.logger, "admin_list_commissions", err)
		return
	}
	RespondWithPaginatedData(c, http.StatusOK, mapEntries(page.Entries), q.Page, q.PerPage, page.Total)
}

// RecordCommission appends a manual entry. An EARNED entry without an
// explicit amount is computed from order_amount and commission_rate.
func (h *AdminHandler) RecordCommission(c *gin.Context) {
	var req RecordCommissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	in, err := recordInput(req)
	if err != nil {
		RespondBadRequest(c, err.Error())
		return
	}
	adminID := middleware.AdminID(c)
	in.ActorID = &adminID
	in.CorrelationID = middleware.GetCorrelationID(c)

	entry, err := h.commissions.Record(c.Request.Context(), in)
	if err != nil {
		respondLedgerError(c, h.logger, "record_commission", err)
		return
	}

	h.logger.Info("Manual commission entry recorded",
		"admin_id", adminID.String(),
		"seller_id", entry.SellerID.String(),
		"entry_id", entry.ID.String(),
		"type", string(entry.Type),
		"amount", entry.Amount,
	)
	RespondCreated(c, mapEntryToResponse(entry))
}

func recordInput(req RecordCommissionRequest) (ledger.RecordInput, error) {
	in := ledger.RecordInput{
		SellerID: uuid.MustParse(req.SellerID),
		Type:     commission.EntryType(req.Type),
		Status:   commission.Status(req.Status),
		Notes:    req.Notes,
	}
	if req.OrderID != "" {
		orderID := req.OrderID
		in.OrderID = &orderID
	}

	if req.Amount != "" {
		amount, err := shared.ParseMinorUnits(req.Amount)
		if err != nil {
			return in, err
		}
		in.Amount = &amount
		return in, nil
	}

	if req.OrderAmount == "" || req.CommissionRate == "" {
		return in, errMissingAmount
	}
	orderAmount, err := shared.ParseMinorUnits(req.OrderAmount)
	if err != nil {
		return in, err
	}
	rate, err := decimal.NewFromString(req.CommissionRate)
	if err != nil {
		return in, shared.ErrRateOutOfRange
	}
	rateBps, err := shared.RateToBasisPoints(rate)
	if err != nil {
		return in, err
	}
	in.OrderAmount = orderAmount
	in.RateBps = rateBps
	return in, nil
}

func (h *AdminHandler) ConfirmCommission(c *gin.Context) {
	entryID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	entry, err := h.commissions.Confirm(c.Request.Context(), entryID, middleware.AdminID(c), middleware.GetCorrelationID(c))
	if err != nil {
		respondLedgerError(c, h.logger, "confirm_commission", err)
		return
	}
	RespondOK(c, mapEntryToResponse(entry))
}

func (h *AdminHandler) CancelCommission(c *gin.Context) {
	entryID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req ReasonRequest
	if !bindOptionalJSON(c, &req) {
		return
	}

	entry, err := h.commissions.Cancel(c.Request.Context(), entryID, middleware.AdminID(c), req.Reason, middleware.GetCorrelationID(c))
	if err != nil {
		respondLedgerError(c, h.logger, "cancel_commission", err)
		return
	}
	RespondOK(c, mapEntryToResponse(entry))
}

func (h *AdminHandler) RefundCommission(c *gin.Context) {
	entryID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req ReasonRequest
	if !bindOptionalJSON(c, &req) {
		return
	}

	entry, err := h.commissions.Refund(c.Request.Context(), entryID, middleware.AdminID(c), req.Reason, middleware.GetCorrelationID(c))
	if err != nil {
		respondLedgerError(c, h.logger, "refund_commission", err)
		return
	}
	RespondOK(c, mapEntryToResponse(entry))
}

func (h *AdminHandler) ListWithdrawals(c *gin.Context) {
	var q WithdrawalQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		RespondBadRequest(c, "Invalid query: "+err.Error())
		return
	}

	var sellerID *uuid.UUID
	if q.SellerID != "" {
		id := uuid.MustParse(q.SellerID)
		sellerID = &id
	}
	h.listWithdrawals(c, q, sellerID)
}

func (h *AdminHandler) SellerWithdrawals(c *gin.Context) {
	sellerID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var q WithdrawalQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		RespondBadRequest(c, "Invalid query: "+err.Error())
		return
	}
	h.listWithdrawals(c, q, &sellerID)
}

func (h *AdminHandler) listWithdrawals(c *gin.Context, q WithdrawalQuery, sellerID *uuid.UUID) {
	filter := q.filter()
	filter.SellerID = sellerID

	page, err := h.withdrawals.List(c.Request.Context(), filter, q.toPage())
	if err != nil {
		respondLedgerError(c, h.logger, "admin_list_withdrawals", err)
		return
	}
	RespondWithPaginatedData(c, http.StatusOK, mapWithdrawals(page.Requests, false), q.Page, q.PerPage, page.Total)
}

// ApproveWithdrawal and CompleteWithdrawal both settle the request.
func (h *AdminHandler) ApproveWithdrawal(c *gin.Context) {
	h.settleWithdrawal(c, "approve_withdrawal", h.withdrawals.Approve)
}

func (h *AdminHandler) CompleteWithdrawal(c *gin.Context) {
	h.settleWithdrawal(c, "complete_withdrawal", h.withdrawals.Complete)
}

type settleFunc func(ctx context.Context, withdrawalID, adminID uuid.UUID, paymentReference, notes, correlationID string) (*withdrawal.Request, error)

func (h *AdminHandler) settleWithdrawal(c *gin.Context, operation string, settle settleFunc) {
	withdrawalID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req SettleWithdrawalRequest
	if !bindOptionalJSON(c, &req) {
		return
	}

	adminID := middleware.AdminID(c)
	request, err := settle(c.Request.Context(), withdrawalID, adminID, req.PaymentReference, req.Notes, middleware.GetCorrelationID(c))
	if err != nil {
		respondLedgerError(c, h.logger, operation, err)
		return
	}

	h.logger.Info("Withdrawal settled",
		"admin_id", adminID.String(),
		"withdrawal_id", request.ID.String(),
		"seller_id", request.SellerID.String(),
		"amount", request.Amount,
	)
	RespondOK(c, mapWithdrawalToResponse(request, false))
}

func (h *AdminHandler) RejectWithdrawal(c *gin.Context) {
	withdrawalID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req RejectWithdrawalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	request, err := h.withdrawals.Reject(c.Request.Context(), withdrawalID, middleware.AdminID(c), req.Reason, middleware.GetCorrelationID(c))
	if err != nil {
		respondLedgerError(c, h.logger, "reject_withdrawal", err)
		return
	}
	RespondOK(c, mapWithdrawalToResponse(request, false))
}

// ReconcileSeller recomputes one seller's available commission from the ledger.
func (h *AdminHandler) ReconcileSeller(c *gin.Context) {
	sellerID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	adminID := middleware.AdminID(c)
	available, err := h.reconciler.Refresh(c.Request.Context(), sellerID, &adminID, middleware.GetCorrelationID(c))
	if err != nil {
		respondLedgerError(c, h.logger, "reconcile_seller", err)
		return
	}
	RespondOK(c, ReconcileResponse{
		SellerID:            sellerID.String(),
		AvailableCommission: shared.FormatMinorUnits(available),
	})
}

// RecalculateAll runs synchronously; the report lists sellers that failed.
func (h *AdminHandler) RecalculateAll(c *gin.Context) {
	adminID := middleware.AdminID(c)
	report, err := h.reconciler.RecalculateAll(c.Request.Context(), &adminID, middleware.GetCorrelationID(c))
	if err != nil {
		respondLedgerError(c, h.logger, "recalculate_all", err)
		return
	}
	RespondOK(c, report)
}

func (h *AdminHandler) SellerAudit(c *gin.Context) {
	sellerID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var q PaginationParams
	if err := c.ShouldBindQuery(&q); err != nil {
		RespondBadRequest(c, "Invalid query: "+err.Error())
		return
	}

	ctx := c.Request.Context()
	page := q.toPage()
	events, err := h.auditLog.ListBySeller(ctx, sellerID, page.Limit, page.Offset)
	if err != nil {
		respondLedgerError(c, h.logger, "seller_audit", err)
		return
	}
	total, err := h.auditLog.CountBySeller(ctx, sellerID)
	if err != nil {
		respondLedgerError(c, h.logger, "seller_audit", err)
		return
	}
	RespondWithPaginatedData(c, http.StatusOK, mapAuditEvents(events), q.Page, q.PerPage, total)
}

// bindOptionalJSON accepts an empty body.
func bindOptionalJSON(c *gin.Context, dst any) bool {
	if c.Request.ContentLength == 0 {
		return true
	}
	if err := c.ShouldBindJSON(dst); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return false
	}
	return true
}
