package ledger

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/panjf2000/ants/v2"

	"github.com/Shubhamjamliya/Today-My-Dreams-sub000/internal/domain/ledgerevent"
	"github.com/Shubhamjamliya/Today-My-Dreams-sub000/internal/domain/outbox"
	"github.com/Shubhamjamliya/Today-My-Dreams-sub000/internal/domain/seller"
	"github.com/Shubhamjamliya/Today-My-Dreams-sub000/internal/domain/shared"
	"github.com/Shubhamjamliya/Today-My-Dreams-sub000/internal/platform/metrics"
)

// ComputeAvailable is the balance rule: confirmed EARNED and BONUS credits
// minus completed and pending withdrawals, never below zero.
func ComputeAvailable(confirmedCredits, completedWithdrawals, pendingWithdrawals int64) int64 {
	available := confirmedCredits - completedWithdrawals - pendingWithdrawals
	if available < 0 {
		return 0
	}
	return available
}

// Reconciler is the only writer of the cached available commission.
type Reconciler struct {
	db          TxRunner
	repos       Repositories
	locks       *sellerLocks
	cache       DashboardCache
	metrics     *metrics.LedgerMetrics
	logger      *slog.Logger
	concurrency int
	pageSize    int
}

// mutation is what a balance-mutating operation sees inside its transaction.
type mutation struct {
	repos         Repositories
	account       *seller.Account
	correlationID string
	events        []*ledgerevent.Event
	refreshOnly   bool
	refreshActor  *uuid.UUID
}

func (m *mutation) emit(event *ledgerevent.Event) {
	event.CorrelationID = m.correlationID
	m.events = append(m.events, event)
}

// mutate runs fn with the seller locked, then recomputes and stores the
// available commission and queues fn's events in the outbox, all in one
// transaction. A failing recompute rolls back fn's changes too and is reported
// as ErrReconciliationFailure.
func (r *Reconciler) mutate(ctx context.Context, sellerID uuid.UUID, correlationID string, fn func(ctx context.Context, m *mutation) error) (int64, error) {
	logger := r.logger
	if correlationID != "" {
		logger = r.logger.With("correlation_id", correlationID)
	}

	release := r.locks.lock(sellerID)
	defer release()

	var available int64
	err := r.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		repos := r.repos.withTx(tx)

		account, err := repos.Sellers.LockForUpdate(ctx, sellerID)
		if err != nil {
			return err
		}

		m := &mutation{repos: repos, account: account, correlationID: correlationID}
		if err := fn(ctx, m); err != nil {
			return err
		}

		available, err = r.computeAvailable(ctx, repos, sellerID)
		if err == nil {
			err = repos.Sellers.SetAvailableCommission(ctx, sellerID, available, account.Version)
		}
		if err != nil {
			logger.Error("Failed to reconcile available commission",
				"seller_id", sellerID.String(),
				"error", err)
			return shared.ErrReconciliationFailure{SellerID: sellerID, Err: err}
		}

		if m.refreshOnly && available != account.AvailableCommission {
			m.emit(ledgerevent.New(sellerID, ledgerevent.BalanceRecalculated, available-account.AvailableCommission).
				WithActor(m.refreshActor, "cached balance corrected"))
		}

		for _, event := range m.events {
			event.AvailableAfter = available
			msg, err := outbox.NewMessage(event)
			if err != nil {
				return fmt.Errorf("failed to encode ledger event: %w", err)
			}
			if err := repos.Outbox.Create(ctx, msg); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	if err := r.cache.Invalidate(ctx, sellerID); err != nil {
		logger.Warn("Failed to invalidate dashboard cache", "seller_id", sellerID.String(), "error", err)
	}

	logger.Debug("Seller balance reconciled", "seller_id", sellerID.String(), "available", available)
	return available, nil
}

func (r *Reconciler) computeAvailable(ctx context.Context, repos Repositories, sellerID uuid.UUID) (int64, error) {
	credits, err := repos.Commissions.SumConfirmedCredits(ctx, sellerID)
	if err != nil {
		return 0, err
	}
	totals, err := repos.Withdrawals.SumByStatus(ctx, sellerID)
	if err != nil {
		return 0, err
	}
	return ComputeAvailable(credits, totals.Completed, totals.Pending), nil
}

// Available computes the balance from the ledger without touching the cache.
func (r *Reconciler) Available(ctx context.Context, sellerID uuid.UUID) (int64, error) {
	if _, err := r.repos.Sellers.GetByID(ctx, sellerID); err != nil {
		return 0, err
	}
	return r.computeAvailable(ctx, r.repos, sellerID)
}

// Refresh recomputes the seller's available commission and stores it. Calling
// it again without an intervening mutation stores the same value.
func (r *Reconciler) Refresh(ctx context.Context, sellerID uuid.UUID, actorID *uuid.UUID, correlationID string) (int64, error) {
	available, _, err := r.refresh(ctx, sellerID, actorID, correlationID)
	return available, err
}

func (r *Reconciler) refresh(ctx context.Context, sellerID uuid.UUID, actorID *uuid.UUID, correlationID string) (int64, bool, error) {
	started := time.Now()
	var previous int64

	available, err := r.mutate(ctx, sellerID, correlationID, func(ctx context.Context, m *mutation) error {
		previous = m.account.AvailableCommission
		m.refreshOnly = true
		m.refreshActor = actorID
		return nil
	})
	r.metrics.RecordOperation("refresh", started, 0, err)
	if err != nil {
		return 0, false, err
	}

	changed := available != previous
	if changed {
		r.metrics.RecordBalanceCorrection()
		r.logger.Warn("Cached available commission corrected",
			"seller_id", sellerID.String(),
			"previous", previous,
			"available", available,
			"actor_id", actorLabel(actorID))
	}
	return available, changed, nil
}

type SellerFailure struct {
	SellerID uuid.UUID `json:"seller_id"`
	Error    string    `json:"error"`
}

type RecalculateReport struct {
	Processed  int             `json:"processed"`
	Corrected  int             `json:"corrected"`
	Failed     []SellerFailure `json:"failed"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt time.Time       `json:"finished_at"`
}

// RecalculateAll refreshes every seller. A seller that fails is reported and
// skipped; only a failure to list sellers stops the run early.
func (r *Reconciler) RecalculateAll(ctx context.Context, actorID *uuid.UUID, correlationID string) (*RecalculateReport, error) {
	report := &RecalculateReport{StartedAt: time.Now().UTC(), Failed: []SellerFailure{}}

	pool, err := ants.NewPool(r.concurrency)
	if err != nil {
		return nil, fmt.Errorf("failed to create recalculation pool: %w", err)
	}
	defer pool.Release()

	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	recordResult := func(sellerID uuid.UUID, changed bool, err error) {
		mu.Lock()
		defer mu.Unlock()
		report.Processed++
		if err != nil {
			report.Failed = append(report.Failed, SellerFailure{SellerID: sellerID, Error: err.Error()})
			return
		}
		if changed {
			report.Corrected++
		}
	}

	r.logger.Info("Starting balance recalculation for all sellers",
		"actor_id", actorLabel(actorID),
		"concurrency", r.concurrency)

	var listErr error
	after := uuid.Nil
	for {
		if err := ctx.Err(); err != nil {
			listErr = err
			break
		}

		ids, err := r.repos.Sellers.ListIDs(ctx, after, r.pageSize)
		if err != nil {
			listErr = fmt.Errorf("failed to list sellers: %w", err)
			break
		}

		for _, id := range ids {
			sellerID := id
			wg.Add(1)
			submitErr := pool.Submit(func() {
				defer wg.Done()
				_, changed, err := r.refresh(ctx, sellerID, actorID, correlationID)
				recordResult(sellerID, changed, err)
			})
			if submitErr != nil {
				wg.Done()
				recordResult(sellerID, false, submitErr)
			}
		}

		if len(ids) < r.pageSize {
			break
		}
		after = ids[len(ids)-1]
	}

	wg.Wait()

	sort.Slice(report.Failed, func(i, j int) bool {
		return bytes.Compare(report.Failed[i].SellerID[:], report.Failed[j].SellerID[:]) < 0
	})
	report.FinishedAt = time.Now().UTC()
	r.metrics.RecordRecalculateFailures(len(report.Failed))

	r.logger.Info("Balance recalculation finished",
		"processed", report.Processed,
		"corrected", report.Corrected,
		"failed", len(report.Failed),
		"duration", report.FinishedAt.Sub(report.StartedAt).String())

	if listErr != nil {
		r.logger.Error("Balance recalculation stopped early", "error", listErr)
		return report, listErr
	}
	return report, nil
}

func actorLabel(actorID *uuid.UUID) string {
	if actorID == nil {
		return "system"
	}
	return actorID.String()
}
