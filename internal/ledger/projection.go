package ledger

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Shubhamjamliya/Today-My-Dreams-sub000/internal/domain/commission"
	"github.com/Shubhamjamliya/Today-My-Dreams-sub000/internal/domain/seller"
	"github.com/Shubhamjamliya/Today-My-Dreams-sub000/internal/domain/withdrawal"
	"github.com/Shubhamjamliya/Today-My-Dreams-sub000/internal/platform/metrics"
)

// Projection serves the seller's cached balance fields and dashboard. It never
// writes the balance; that is the Reconciler's job.
type Projection struct {
	repos   Repositories
	store   *Store
	cache   DashboardCache
	metrics *metrics.LedgerMetrics
	logger  *slog.Logger
}

type Balance struct {
	SellerID              uuid.UUID          `json:"seller_id"`
	TotalCommission       int64              `json:"total_commission"`
	AvailableCommission   int64              `json:"available_commission"`
	PayoutProfileComplete bool               `json:"payout_profile_complete"`
	BankDetails           seller.BankDetails `json:"bank_details"`
	UpdatedAt             time.Time          `json:"updated_at"`
}

type Dashboard struct {
	Balance     Balance                   `json:"balance"`
	Summary     commission.Summary        `json:"summary"`
	Withdrawals withdrawal.Totals         `json:"withdrawals"`
	Monthly     []commission.MonthlyTotal `json:"monthly"`
	Months      int                       `json:"months"`
	GeneratedAt time.Time                 `json:"generated_at"`
}

func balanceOf(account *seller.Account) *Balance {
	return &Balance{
		SellerID:              account.ID,
		TotalCommission:       account.TotalCommission,
		AvailableCommission:   account.AvailableCommission,
		PayoutProfileComplete: account.BankDetails.Complete(),
		BankDetails:           account.BankDetails.Masked(),
		UpdatedAt:             account.UpdatedAt,
	}
}

// Balance reads the projection row as last written by the Reconciler.
func (p *Projection) Balance(ctx context.Context, sellerID uuid.UUID) (*Balance, error) {
	account, err := p.repos.Sellers.GetByID(ctx, sellerID)
	if err != nil {
		return nil, err
	}
	return balanceOf(account), nil
}

// Dashboard combines the balance, ledger totals and monthly earnings. Results
// are cached until the seller's next committed mutation.
func (p *Projection) Dashboard(ctx context.Context, sellerID uuid.UUID, months int) (*Dashboard, error) {
	months = normalizeMonths(months)

	var cached Dashboard
	hit, err := p.cache.Get(ctx, sellerID, months, &cached)
	if err != nil {
		p.logger.Warn("Dashboard cache unavailable, building from ledger", "seller_id", sellerID.String(), "error", err)
	}
	p.metrics.RecordCacheLookup(hit)
	if hit {
		return &cached, nil
	}

	dashboard, err := p.buildDashboard(ctx, sellerID, months)
	if err != nil {
		return nil, err
	}

	if err := p.cache.Set(ctx, sellerID, months, dashboard); err != nil {
		p.logger.Warn("Failed to cache dashboard", "seller_id", sellerID.String(), "error", err)
	}
	return dashboard, nil
}

func (p *Projection) buildDashboard(ctx context.Context, sellerID uuid.UUID, months int) (*Dashboard, error) {
	balance, err := p.Balance(ctx, sellerID)
	if err != nil {
		return nil, err
	}
	summary, err := p.store.Summarize(ctx, sellerID)
	if err != nil {
		return nil, err
	}
	totals, err := p.repos.Withdrawals.SumByStatus(ctx, sellerID)
	if err != nil {
		return nil, err
	}
	monthly, err := p.store.MonthlyRollup(ctx, sellerID, months)
	if err != nil {
		return nil, err
	}

	return &Dashboard{
		Balance:     *balance,
		Summary:     *summary,
		Withdrawals: totals,
		Monthly:     monthly,
		Months:      months,
		GeneratedAt: time.Now().UTC(),
	}, nil
}

// UpdatePayoutProfile stores the seller's bank details, creating the seller if
// the ledger has not seen it yet. Pending withdrawals keep their snapshot.
func (p *Projection) UpdatePayoutProfile(ctx context.Context, sellerID uuid.UUID, details seller.BankDetails) (*Balance, error) {
	if err := p.repos.Sellers.EnsureExists(ctx, sellerID); err != nil {
		return nil, err
	}
	if err := p.repos.Sellers.UpdateBankDetails(ctx, sellerID, details); err != nil {
		return nil, err
	}
	if err := p.cache.Invalidate(ctx, sellerID); err != nil {
		p.logger.Warn("Failed to invalidate dashboard cache", "seller_id", sellerID.String(), "error", err)
	}

	p.logger.Info("Payout profile updated",
		"seller_id", sellerID.String(),
		"complete", details.Complete())
	return p.Balance(ctx, sellerID)
}
