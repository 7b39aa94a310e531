package postgres

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/Shubhamjamliya/Today-My-Dreams-sub000/internal/domain/commission"
	"github.com/Shubhamjamliya/Today-My-Dreams-sub000/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var entryRowColumns = []string{"id", "seller_id", "order_id", "type", "amount", "commission_rate_bps", "order_amount",
	"status", "withdrawal_id", "processed_by", "notes", "created_at", "confirmed_at", "updated_at"}

func sampleEntry(t *testing.T) *commission.Entry {
	t.Helper()
	e, err := commission.NewEntry(uuid.New(), commission.TypeEarned, 30000, commission.StatusPending)
	require.NoError(t, err)
	orderID := "ORD-1001"
	e.OrderID = &orderID
	e.OrderAmount = 99700
	e.CommissionRateBps = 3000
	return e
}

func TestCommissionRepository_Create(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &CommissionRepository{querier: mock, logger: newTestLogger()}
	e := sampleEntry(t)

	t.Run("success", func(t *testing.T) {
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO commission_entries")).
			WithArgs(e.ID, e.SellerID, e.OrderID, e.Type, e.Amount, e.CommissionRateBps, e.OrderAmount, e.Status,
				e.WithdrawalID, e.ProcessedBy, e.Notes, e.CreatedAt, e.ConfirmedAt, e.UpdatedAt).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		assert.NoError(t, repo.Create(ctx, e))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("duplicate order", func(t *testing.T) {
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO commission_entries")).
			WithArgs(e.ID, e.SellerID, e.OrderID, e.Type, e.Amount, e.CommissionRateBps, e.OrderAmount, e.Status,
				e.WithdrawalID, e.ProcessedBy, e.Notes, e.CreatedAt, e.ConfirmedAt, e.UpdatedAt).
			WillReturnError(&pgconn.PgError{Code: "23505"})

		err := repo.Create(ctx, e)
		assert.ErrorIs(t, err, commission.ErrDuplicateOrderEntry{})
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestCommissionRepository_GetByID(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &CommissionRepository{querier: mock, logger: newTestLogger()}
	e := sampleEntry(t)

	t.Run("found", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta("FROM commission_entries")).
			WithArgs(e.ID).
			WillReturnRows(pgxmock.NewRows(entryRowColumns).AddRow(
				e.ID, e.SellerID, e.OrderID, e.Type, e.Amount, e.CommissionRateBps, e.OrderAmount, e.Status,
				e.WithdrawalID, e.ProcessedBy, e.Notes, e.CreatedAt, e.ConfirmedAt, e.UpdatedAt))

		got, err := repo.GetByID(ctx, e.ID)
		require.NoError(t, err)
		assert.Equal(t, e, got)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta("FROM commission_entries")).WithArgs(e.ID).WillReturnError(pgx.ErrNoRows)

		got, err := repo.GetByID(ctx, e.ID)
		assert.Nil(t, got)
		assert.ErrorIs(t, err, commission.ErrEntryNotFound{EntryID: e.ID})
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestCommissionRepository_GetByOrder_Missing(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &CommissionRepository{querier: mock, logger: newTestLogger()}
	sellerID := uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta("WHERE seller_id = $1 AND order_id = $2 AND type = $3")).
		WithArgs(sellerID, "ORD-404", commission.TypeEarned).
		WillReturnError(pgx.ErrNoRows)

	got, err := repo.GetByOrder(ctx, sellerID, "ORD-404", commission.TypeEarned)
	assert.NoError(t, err)
	assert.Nil(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCommissionRepository_UpdateStatus(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &CommissionRepository{querier: mock, logger: newTestLogger()}
	e := sampleEntry(t)
	require.NoError(t, e.Confirm(uuid.New()))
	query := regexp.QuoteMeta("WHERE id = $6 AND status = $7")

	t.Run("guarded update applied", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(e.Status, e.ProcessedBy, e.Notes, e.ConfirmedAt, e.UpdatedAt, e.ID, commission.StatusPending).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		assert.NoError(t, repo.UpdateStatus(ctx, e, commission.StatusPending))
	})

	t.Run("stored status moved on", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(e.Status, e.ProcessedBy, e.Notes, e.ConfirmedAt, e.UpdatedAt, e.ID, commission.StatusPending).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		err := repo.UpdateStatus(ctx, e, commission.StatusPending)
		assert.ErrorIs(t, err, shared.ErrInvalidTransition{})
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCommissionRepository_ListWithFilter(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &CommissionRepository{querier: mock, logger: newTestLogger()}
	sellerID := uuid.New()
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	filter := commission.Filter{SellerID: &sellerID, Status: commission.StatusConfirmed, From: &from}

	mock.ExpectQuery(regexp.QuoteMeta("WHERE seller_id = $1 AND status = $2 AND created_at >= $3")).
		WithArgs(sellerID, commission.StatusConfirmed, from, 20, 40).
		WillReturnRows(pgxmock.NewRows(entryRowColumns))

	entries, err := repo.List(ctx, filter, 20, 40)
	require.NoError(t, err)
	assert.Empty(t, entries)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM commission_entries WHERE seller_id = $1 AND status = $2 AND created_at >= $3")).
		WithArgs(sellerID, commission.StatusConfirmed, from).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(3)))

	count, err := repo.Count(ctx, filter)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEntryWhere_NoFilter(t *testing.T) {
	where, args := entryWhere(commission.Filter{})
	assert.Empty(t, where)
	assert.Empty(t, args)
}

func TestCommissionRepository_Aggregates(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &CommissionRepository{querier: mock, logger: newTestLogger()}
	sellerID := uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta("COALESCE(SUM(amount), 0)::BIGINT")).
		WithArgs(sellerID).
		WillReturnRows(pgxmock.NewRows([]string{"sum"}).AddRow(int64(80000)))

	total, err := repo.SumConfirmedCredits(ctx, sellerID)
	require.NoError(t, err)
	assert.Equal(t, int64(80000), total)

	mock.ExpectQuery(regexp.QuoteMeta("FILTER (WHERE type = 'DEDUCTED'")).
		WithArgs(sellerID).
		WillReturnRows(pgxmock.NewRows([]string{"earned", "deducted", "pending", "confirmed"}).
			AddRow(int64(95000), int64(2000), int64(15000), int64(80000)))

	summary, err := repo.Summarize(ctx, sellerID)
	require.NoError(t, err)
	assert.Equal(t, &commission.Summary{TotalEarned: 95000, TotalDeducted: 2000, PendingAmount: 15000, ConfirmedAmount: 80000}, summary)

	since := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("date_trunc('month'")).
		WithArgs(sellerID, since).
		WillReturnRows(pgxmock.NewRows([]string{"month", "sum", "count"}).
			AddRow(since, int64(30000), 1))

	rollup, err := repo.MonthlyRollup(ctx, sellerID, since)
	require.NoError(t, err)
	require.Len(t, rollup, 1)
	assert.Equal(t, int64(30000), rollup[0].Amount)

	assert.NoError(t, mock.ExpectationsWereMet())
}
