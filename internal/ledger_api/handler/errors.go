package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/Shubhamjamliya/Today-My-Dreams-sub000/internal/domain/commission"
	"github.com/Shubhamjamliya/Today-My-Dreams-sub000/internal/domain/shared"
	"github.com/Shubhamjamliya/Today-My-Dreams-sub000/internal/domain/withdrawal"
	"github.com/Shubhamjamliya/Today-My-Dreams-sub000/internal/ledger"
	"github.com/gin-gonic/gin"
)

// validationErrors are input problems the ledger detects after binding.
var validationErrors = []error{
	commission.ErrInvalidEntryType,
	commission.ErrInvalidStatus,
	commission.ErrNegativeAmount,
	commission.ErrMissingAmount,
	ledger.ErrReservedEntryType,
	withdrawal.ErrNonPositiveAmount,
	shared.ErrNegativeAmount,
	shared.ErrAmountPrecision,
	shared.ErrAmountOverflow,
	shared.ErrRateOutOfRange,
	shared.ErrRatePrecision,
	shared.ErrInvalidAmountStr,
}

// respondLedgerError maps a ledger error to a status code. Only unexpected
// errors are logged at ERROR; rejections are part of normal traffic.
func respondLedgerError(c *gin.Context, logger *slog.Logger, operation string, err error) {
	var (
		insufficient shared.ErrInsufficientBalance
		transition   shared.ErrInvalidTransition
		reconcile    shared.ErrReconciliationFailure
	)

	switch {
	case errors.As(err, &reconcile):
		logger.Error("Balance reconciliation failed, operation rolled back",
			"operation", operation,
			"seller_id", reconcile.SellerID.String(),
			"error", err,
		)
		RespondWithError(c, http.StatusInternalServerError, "RECONCILIATION_FAILED", "The ledger could not be reconciled; nothing was changed")
	case errors.Is(err, shared.ErrNotFound):
		RespondNotFound(c, err.Error())
	case errors.As(err, &transition):
		RespondWithErrorDetails(c, http.StatusConflict, "INVALID_TRANSITION", err.Error(), map[string]string{
			"from": transition.From,
			"to":   transition.To,
		})
	case errors.As(err, &insufficient):
		RespondWithErrorDetails(c, http.StatusUnprocessableEntity, "INSUFFICIENT_BALANCE", "Requested amount exceeds available commission", map[string]string{
			"available": shared.FormatMinorUnits(insufficient.Available),
			"requested": shared.FormatMinorUnits(insufficient.Requested),
		})
	case errors.Is(err, shared.ErrIncompletePayoutProfile{}):
		RespondWithError(c, http.StatusUnprocessableEntity, "PAYOUT_PROFILE_INCOMPLETE", "Add bank account details or a UPI id before requesting a withdrawal")
	case isValidationError(err):
		RespondBadRequest(c, err.Error())
	default:
		logger.Error("Ledger operation failed", "operation", operation, "error", err)
		RespondInternalError(c)
	}
}

func isValidationError(err error) bool {
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
