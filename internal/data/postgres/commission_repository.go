package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Shubhamjamliya/Today-My-Dreams-sub000/internal/domain/commission"
	"github.com/Shubhamjamliya/Today-My-Dreams-sub000/internal/domain/shared"
	"github.com/Shubhamjamliya/Today-My-Dreams-sub000/internal/platform/persistence"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

const entryColumns = `id, seller_id, order_id, type, amount, commission_rate_bps, order_amount, status,
		withdrawal_id, processed_by, notes, created_at, confirmed_at, updated_at`

// CommissionRepository stores commission entries.
type CommissionRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

func NewCommissionRepository(logger *slog.Logger, db *persistence.PostgresDB) commission.Repository {
	return &CommissionRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

func (r *CommissionRepository) WithTx(tx pgx.Tx) commission.Repository {
	return &CommissionRepository{
		querier: tx,
		logger:  r.logger,
	}
}

func (r *CommissionRepository) Create(ctx context.Context, e *commission.Entry) error {
	query := `
		INSERT INTO commission_entries (` + entryColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	_, err := r.querier.Exec(ctx, query,
		e.ID,
		e.SellerID,
		e.OrderID,
		e.Type,
		e.Amount,
		e.CommissionRateBps,
		e.OrderAmount,
		e.Status,
		e.WithdrawalID,
		e.ProcessedBy,
		e.Notes,
		e.CreatedAt,
		e.ConfirmedAt,
		e.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation && e.OrderID != nil {
			return commission.ErrDuplicateOrderEntry{SellerID: e.SellerID, OrderID: *e.OrderID}
		}
		r.logger.Error("Failed to create commission entry", "entry_id", e.ID.String(), "error", err)
		return fmt.Errorf("failed to create commission entry: %w", err)
	}
	return nil
}

func scanEntry(row pgx.Row) (*commission.Entry, error) {
	var e commission.Entry
	err := row.Scan(
		&e.ID,
		&e.SellerID,
		&e.OrderID,
		&e.Type,
		&e.Amount,
		&e.CommissionRateBps,
		&e.OrderAmount,
		&e.Status,
		&e.WithdrawalID,
		&e.ProcessedBy,
		&e.Notes,
		&e.CreatedAt,
		&e.ConfirmedAt,
		&e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *CommissionRepository) GetByID(ctx context.Context, id uuid.UUID) (*commission.Entry, error) {
	query := `SELECT ` + entryColumns + `
		FROM commission_entries
		WHERE id = $1
	`

	e, err := scanEntry(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, commission.ErrEntryNotFound{EntryID: id}
		}
		r.logger.Error("Failed to get commission entry", "entry_id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get commission entry: %w", err)
	}
	return e, nil
}

func (r *CommissionRepository) GetByOrder(ctx context.Context, sellerID uuid.UUID, orderID string, entryType commission.EntryType) (*commission.Entry, error) {
	query := `SELECT ` + entryColumns + `
		FROM commission_entries
		WHERE seller_id = $1 AND order_id = $2 AND type = $3
		ORDER BY created_at DESC
		LIMIT 1
	`

	e, err := scanEntry(r.querier.QueryRow(ctx, query, sellerID, orderID, entryType))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error("Failed to get commission entry by order", "order_id", orderID, "error", err)
		return nil, fmt.Errorf("failed to get commission entry by order: %w", err)
	}
	return e, nil
}

func (r *CommissionRepository) UpdateStatus(ctx context.Context, e *commission.Entry, from commission.Status) error {
	query := `
		UPDATE commission_entries
		SET status = $1, processed_by = $2, notes = $3, confirmed_at = $4, updated_at = $5
		WHERE id = $6 AND status = $7
	`

	result, err := r.querier.Exec(ctx, query,
		e.Status,
		e.ProcessedBy,
		e.Notes,
		e.ConfirmedAt,
		e.UpdatedAt,
		e.ID,
		from,
	)
	if err != nil {
		r.logger.Error("Failed to update commission status", "entry_id", e.ID.String(), "error", err)
		return fmt.Errorf("failed to update commission status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return shared.ErrInvalidTransition{
			Entity: "commission entry",
			ID:     e.ID,
			From:   string(from),
			To:     string(e.Status),
		}
	}
	return nil
}

// entryWhere renders the filter as SQL predicates starting at placeholder $1.
func entryWhere(f commission.Filter) (string, []interface{}) {
	var (
		conds []string
		args  []interface{}
	)
	add := func(cond string, arg interface{}) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if f.SellerID != nil {
		add("seller_id = $%d", *f.SellerID)
	}
	if f.Type != "" {
		add("type = $%d", f.Type)
	}
	if f.Status != "" {
		add("status = $%d", f.Status)
	}
	if f.From != nil {
		add("created_at >= $%d", *f.From)
	}
	if f.To != nil {
		add("created_at < $%d", *f.To)
	}

	if len(conds) == 0 {
		return "", nil
	}
	return "WHERE " + strings.Join(conds, " AND "), args
}

func (r *CommissionRepository) List(ctx context.Context, filter commission.Filter, limit, offset int) ([]*commission.Entry, error) {
	where, args := entryWhere(filter)
	query := fmt.Sprintf(`SELECT %s
		FROM commission_entries
		%s
		ORDER BY created_at DESC, id DESC
		LIMIT $%d OFFSET $%d`, entryColumns, where, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.querier.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list commission entries", "error", err)
		return nil, fmt.Errorf("failed to list commission entries: %w", err)
	}
	defer rows.Close()

	var entries []*commission.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			r.logger.Error("Failed to scan commission entry", "error", err)
			return nil, fmt.Errorf("failed to scan commission entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating commission entries: %w", err)
	}
	return entries, nil
}

func (r *CommissionRepository) Count(ctx context.Context, filter commission.Filter) (int64, error) {
	where, args := entryWhere(filter)
	query := `SELECT COUNT(*) FROM commission_entries ` + where

	var count int64
	if err := r.querier.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		r.logger.Error("Failed to count commission entries", "error", err)
		return 0, fmt.Errorf("failed to count commission entries: %w", err)
	}
	return count, nil
}

func (r *CommissionRepository) SumConfirmedCredits(ctx context.Context, sellerID uuid.UUID) (int64, error) {
	query := `
		SELECT COALESCE(SUM(amount), 0)::BIGINT
		FROM commission_entries
		WHERE seller_id = $1 AND status = 'CONFIRMED' AND type IN ('EARNED', 'BONUS')
	`

	var total int64
	if err := r.querier.QueryRow(ctx, query, sellerID).Scan(&total); err != nil {
		r.logger.Error("Failed to sum confirmed credits", "seller_id", sellerID.String(), "error", err)
		return 0, fmt.Errorf("failed to sum confirmed credits: %w", err)
	}
	return total, nil
}

func (r *CommissionRepository) Summarize(ctx context.Context, sellerID uuid.UUID) (*commission.Summary, error) {
	query := `
		SELECT
			COALESCE(SUM(amount) FILTER (WHERE type IN ('EARNED', 'BONUS') AND status IN ('PENDING', 'CONFIRMED')), 0)::BIGINT,
			COALESCE(SUM(amount) FILTER (WHERE type = 'DEDUCTED' AND status = 'CONFIRMED'), 0)::BIGINT,
			COALESCE(SUM(amount) FILTER (WHERE type IN ('EARNED', 'BONUS') AND status = 'PENDING'), 0)::BIGINT,
			COALESCE(SUM(amount) FILTER (WHERE type IN ('EARNED', 'BONUS') AND status = 'CONFIRMED'), 0)::BIGINT
		FROM commission_entries
		WHERE seller_id = $1
	`

	var s commission.Summary
	err := r.querier.QueryRow(ctx, query, sellerID).Scan(
		&s.TotalEarned,
		&s.TotalDeducted,
		&s.PendingAmount,
		&s.ConfirmedAmount,
	)
	if err != nil {
		r.logger.Error("Failed to summarize commissions", "seller_id", sellerID.String(), "error", err)
		return nil, fmt.Errorf("failed to summarize commissions: %w", err)
	}
	return &s, nil
}

func (r *CommissionRepository) MonthlyRollup(ctx context.Context, sellerID uuid.UUID, since time.Time) ([]commission.MonthlyTotal, error) {
	query := `
		SELECT date_trunc('month', created_at AT TIME ZONE 'UTC') AS month,
			SUM(amount)::BIGINT,
			COUNT(*)
		FROM commission_entries
		WHERE seller_id = $1 AND status = 'CONFIRMED' AND type IN ('EARNED', 'BONUS') AND created_at >= $2
		GROUP BY month
		ORDER BY month ASC
	`

	rows, err := r.querier.Query(ctx, query, sellerID, since)
	if err != nil {
		r.logger.Error("Failed to roll up commissions", "seller_id", sellerID.String(), "error", err)
		return nil, fmt.Errorf("failed to roll up commissions: %w", err)
	}
	defer rows.Close()

	var totals []commission.MonthlyTotal
	for rows.Next() {
		var t commission.MonthlyTotal
		if err := rows.Scan(&t.Month, &t.Amount, &t.Count); err != nil {
			return nil, fmt.Errorf("failed to scan monthly total: %w", err)
		}
		totals = append(totals, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating monthly totals: %w", err)
	}
	return totals, nil
}
