package ledger_api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/Shubhamjamliya/Today-My-Dreams-sub000/internal/ledger_api/handler"
	"github.com/Shubhamjamliya/Today-My-Dreams-sub000/internal/ledger_api/middleware"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func setupRouter(
	logger *slog.Logger,
	r *gin.Engine,
	sellerHandler *handler.SellerHandler,
	adminHandler *handler.AdminHandler,
	gatherer prometheus.Gatherer,
	ready func(ctx context.Context) error,
) {
	r.Use(middleware.CorrelationID())
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logger(logger))

	v1 := r.Group("/api/v1")
	{
		sellerRoutes := v1.Group("/seller", middleware.RequireSeller())
		{
			sellerRoutes.GET("/balance", sellerHandler.GetBalance)
			sellerRoutes.PUT("/payout-profile", sellerHandler.UpdatePayoutProfile)

			sellerRoutes.GET("/commissions", sellerHandler.ListCommissions)
			sellerRoutes.GET("/commissions/summary", sellerHandler.CommissionSummary)
			sellerRoutes.GET("/commissions/:id", sellerHandler.GetCommission)

			sellerRoutes.POST("/withdrawals", sellerHandler.RequestWithdrawal)
			sellerRoutes.GET("/withdrawals", sellerHandler.ListWithdrawals)
			sellerRoutes.POST("/withdrawals/:id/cancel", sellerHandler.CancelWithdrawal)
		}

		adminRoutes := v1.Group("/admin", middleware.RequireAdmin())
		{
			adminRoutes.GET("/commissions", adminHandler.ListCommissions)
			adminRoutes.POST("/commissions", adminHandler.RecordCommission)
			adminRoutes.POST("/commissions/:id/confirm", adminHandler.ConfirmCommission)
			adminRoutes.POST("/commissions/:id/cancel", adminHandler.CancelCommission)
			adminRoutes.POST("/commissions/:id/refund", adminHandler.RefundCommission)

			adminRoutes.GET("/withdrawals", adminHandler.ListWithdrawals)
			adminRoutes.POST("/withdrawals/:id/approve", adminHandler.ApproveWithdrawal)
			adminRoutes.POST("/withdrawals/:id/complete", adminHandler.CompleteWithdrawal)
			adminRoutes.POST("/withdrawals/:id/reject", adminHandler.RejectWithdrawal)

			adminRoutes.GET("/sellers/:id/withdrawals", adminHandler.SellerWithdrawals)
			adminRoutes.POST("/sellers/:id/reconcile", adminHandler.ReconcileSeller)
			adminRoutes.GET("/sellers/:id/audit", adminHandler.SellerAudit)

			adminRoutes.POST("/reconciliation/recalculate-all", adminHandler.RecalculateAll)
		}
	}

	r.GET("/health", func(c *gin.Context) {
		if ready != nil {
			if err := ready(c.Request.Context()); err != nil {
				logger.Warn("Health check failed", "error", err)
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "timestamp": time.Now().UTC()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC()})
	})

	if gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}
}
