package handler

import (
	"log/slog"
	"net/http"

	"github.com/Shubhamjamliya/Today-My-Dreams-sub000/internal/domain/seller"
	"github.com/Shubhamjamliya/Today-My-Dreams-sub000/internal/domain/shared"
	"github.com/Shubhamjamliya/Today-My-Dreams-sub000/internal/ledger_api/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// SellerHandler serves the authenticated seller's own ledger. Every lookup is
// scoped to the caller; other sellers' records are reported as not found.
type SellerHandler struct {
	commissions CommissionLedger
	withdrawals WithdrawalWorkflow
	projection  BalanceProjection
	logger      *slog.Logger
}

func NewSellerHandler(logger *slog.Logger, commissions CommissionLedger, withdrawals WithdrawalWorkflow, projection BalanceProjection) *SellerHandler {
	return &SellerHandler{
		commissions: commissions,
		withdrawals: withdrawals,
		projection:  projection,
		logger:      logger,
	}
}

func (h *SellerHandler) GetBalance(c *gin.Context) {
	sellerID := middleware.SellerID(c)

	balance, err := h.projection.Balance(c.Request.Context(), sellerID)
	if err != nil {
		respondLedgerError(c, h.logger, "get_balance", err)
		return
	}
	RespondOK(c, mapBalanceToResponse(balance))
}

// UpdatePayoutProfile replaces the payout details. Existing withdrawal
// requests keep the snapshot taken when they were made.
func (h *SellerHandler) UpdatePayoutProfile(c *gin.Context) {
	var req PayoutProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	details := seller.BankDetails{
		AccountHolder: req.AccountHolder,
		AccountNumber: req.AccountNumber,
		IFSC:          req.IFSC,
		BankName:      req.BankName,
		UPIID:         req.UPIID,
	}
	balance, err := h.projection.UpdatePayoutProfile(c.Request.Context(), middleware.SellerID(c), details)
	if err != nil {
		respondLedgerError(c, h.logger, "update_payout_profile", err)
		return
	}
	RespondOK(c, mapBalanceToResponse(balance))
}

func (h *SellerHandler) ListCommissions(c *gin.Context) {
	var q CommissionQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		RespondBadRequest(c, "Invalid query: "+err.Error())
		return
	}

	sellerID := middleware.SellerID(c)
	filter := q.filter()
	filter.SellerID = &sellerID

	page, err := h.commissions.Query(c.Request.Context(), filter, q.toPage())
	if err != nil {
		respondLedgerError(c, h.logger, "list_commissions", err)
		return
	}
	RespondWithPaginatedData(c, http.StatusOK, mapEntries(page.Entries), q.Page, q.PerPage, page.Total)
}

func (h *SellerHandler) CommissionSummary(c *gin.Context) {
	var q SummaryQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		RespondBadRequest(c, "Invalid query: "+err.Error())
		return
	}

	dashboard, err := h.projection.Dashboard(c.Request.Context(), middleware.SellerID(c), q.Months)
	if err != nil {
		respondLedgerError(c, h.logger, "commission_summary", err)
		return
	}
	RespondOK(c, mapDashboardToResponse(dashboard))
}

func (h *SellerHandler) GetCommission(c *gin.Context) {
	entryID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	sellerID := middleware.SellerID(c)
	entry, err := h.commissions.Get(c.Request.Context(), entryID, &sellerID)
	if err != nil {
		respondLedgerError(c, h.logger, "get_commission", err)
		return
	}
	RespondOK(c, mapEntryToResponse(entry))
}

func (h *SellerHandler) RequestWithdrawal(c *gin.Context) {
	var req RequestWithdrawalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	amount, err := shared.ParseMinorUnits(req.Amount)
	if err != nil {
		RespondBadRequest(c, err.Error())
		return
	}

	sellerID := middleware.SellerID(c)
	request, err := h.withdrawals.Request(c.Request.Context(), sellerID, amount, req.Notes, middleware.GetCorrelationID(c))
	if err != nil {
		respondLedgerError(c, h.logger, "request_withdrawal", err)
		return
	}

	h.logger.Info("Withdrawal requested",
		"seller_id", sellerID.String(),
		"withdrawal_id", request.ID.String(),
		"amount", request.Amount,
	)
	RespondCreated(c, mapWithdrawalToResponse(request, true))
}

func (h *SellerHandler) ListWithdrawals(c *gin.Context) {
	var q WithdrawalQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		RespondBadRequest(c, "Invalid query: "+err.Error())
		return
	}

	sellerID := middleware.SellerID(c)
	filter := q.filter()
	filter.SellerID = &sellerID

	page, err := h.withdrawals.List(c.Request.Context(), filter, q.toPage())
	if err != nil {
		respondLedgerError(c, h.logger, "list_withdrawals", err)
		return
	}
	RespondWithPaginatedData(c, http.StatusOK, mapWithdrawals(page.Requests, true), q.Page, q.PerPage, page.Total)
}

func (h *SellerHandler) CancelWithdrawal(c *gin.Context) {
	withdrawalID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	request, err := h.withdrawals.Cancel(c.Request.Context(), withdrawalID, middleware.SellerID(c), middleware.GetCorrelationID(c))
	if err != nil {
		respondLedgerError(c, h.logger, "cancel_withdrawal", err)
		return
	}
	RespondOK(c, mapWithdrawalToResponse(request, true))
}

// parseIDParam writes a 400 and returns false when the path parameter is not a UUID.
func parseIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	raw := c.Param(name)
	id, err := uuid.Parse(raw)
	if err != nil {
		RespondBadRequest(c, "Invalid "+name+": "+raw)
		return uuid.Nil, false
	}
	return id, true
}
