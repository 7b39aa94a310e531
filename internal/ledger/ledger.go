// Package ledger owns every change to a seller's commission ledger and
// withdrawal requests. Each balance-mutating operation runs under a per-seller
// lock inside one database transaction that also recomputes the cached
// available commission and writes the resulting ledger events to the outbox.
package ledger

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/Shubhamjamliya/Today-My-Dreams-sub000/internal/domain/commission"
	"github.com/Shubhamjamliya/Today-My-Dreams-sub000/internal/domain/outbox"
	"github.com/Shubhamjamliya/Today-My-Dreams-sub000/internal/domain/seller"
	"github.com/Shubhamjamliya/Today-My-Dreams-sub000/internal/domain/withdrawal"
	"github.com/Shubhamjamliya/Today-My-Dreams-sub000/internal/platform/metrics"
)

// DefaultRoundingUnit is ₹10 in paise.
const DefaultRoundingUnit int64 = 1000

const (
	DefaultRollupMonths   = 12
	MaxRollupMonths       = 36
	defaultRecalcWorkers  = 8
	defaultRecalcPageSize = 200
)

// TxRunner is implemented by persistence.PostgresDB.
type TxRunner interface {
	ExecuteTx(ctx context.Context, fn func(tx pgx.Tx) error) error
}

// DashboardCache is implemented by cache.SummaryCache.
type DashboardCache interface {
	Get(ctx context.Context, sellerID uuid.UUID, months int, dst any) (bool, error)
	Set(ctx context.Context, sellerID uuid.UUID, months int, value any) error
	Invalidate(ctx context.Context, sellerID uuid.UUID) error
}

type Repositories struct {
	Sellers     seller.Repository
	Commissions commission.Repository
	Withdrawals withdrawal.Repository
	Outbox      outbox.Repository
}

func (r Repositories) withTx(tx pgx.Tx) Repositories {
	return Repositories{
		Sellers:     r.Sellers.WithTx(tx),
		Commissions: r.Commissions.WithTx(tx),
		Withdrawals: r.Withdrawals.WithTx(tx),
		Outbox:      r.Outbox.WithTx(tx),
	}
}

type Options struct {
	CommissionRoundingUnit int64
	RecalculateConcurrency int
	RecalculatePageSize    int
}

func (o Options) withDefaults() Options {
	if o.CommissionRoundingUnit <= 0 {
		o.CommissionRoundingUnit = DefaultRoundingUnit
	}
	if o.RecalculateConcurrency <= 0 {
		o.RecalculateConcurrency = defaultRecalcWorkers
	}
	if o.RecalculatePageSize <= 0 {
		o.RecalculatePageSize = defaultRecalcPageSize
	}
	return o
}

// Page is a limit/offset window over a listing.
type Page struct {
	Limit  int
	Offset int
}

type EntryPage struct {
	Entries []*commission.Entry `json:"entries"`
	Total   int64               `json:"total"`
	Limit   int                 `json:"limit"`
	Offset  int                 `json:"offset"`
}

type WithdrawalPage struct {
	Requests []*withdrawal.Request `json:"requests"`
	Total    int64                 `json:"total"`
	Limit    int                   `json:"limit"`
	Offset   int                   `json:"offset"`
}

// Service wires the four collaborating components over one set of repositories.
type Service struct {
	Store       *Store
	Withdrawals *WithdrawalWorkflow
	Reconciler  *Reconciler
	Projection  *Projection
}

// New builds the ledger components. cache and m may be nil.
func New(db TxRunner, repos Repositories, cache DashboardCache, m *metrics.LedgerMetrics, logger *slog.Logger, opts Options) *Service {
	opts = opts.withDefaults()
	if cache == nil {
		cache = noopCache{}
	}

	reconciler := &Reconciler{
		db:          db,
		repos:       repos,
		locks:       newSellerLocks(),
		cache:       cache,
		metrics:     m,
		logger:      logger.With("component", "reconciler"),
		concurrency: opts.RecalculateConcurrency,
		pageSize:    opts.RecalculatePageSize,
	}
	store := &Store{
		reconciler:   reconciler,
		repos:        repos,
		metrics:      m,
		logger:       logger.With("component", "ledger_store"),
		roundingUnit: opts.CommissionRoundingUnit,
	}
	workflow := &WithdrawalWorkflow{
		reconciler: reconciler,
		repos:      repos,
		metrics:    m,
		logger:     logger.With("component", "withdrawal_workflow"),
	}
	projection := &Projection{
		repos:   repos,
		store:   store,
		cache:   cache,
		metrics: m,
		logger:  logger.With("component", "projection"),
	}

	return &Service{
		Store:       store,
		Withdrawals: workflow,
		Reconciler:  reconciler,
		Projection:  projection,
	}
}

type noopCache struct{}

func (noopCache) Get(context.Context, uuid.UUID, int, any) (bool, error) { return false, nil }
func (noopCache) Set(context.Context, uuid.UUID, int, any) error { return nil }
func (noopCache) Invalidate(context.Context, uuid.UUID) error { return nil }
