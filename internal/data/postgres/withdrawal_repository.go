package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Shubhamjamliya/Today-My-Dreams-sub000/internal/domain/shared"
	"github.com/Shubhamjamliya/Today-My-Dreams-sub000/internal/domain/withdrawal"
	"github.com/Shubhamjamliya/Today-My-Dreams-sub000/internal/platform/persistence"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const withdrawalColumns = `id, seller_id, amount, status, bank_details_snapshot, seller_notes, admin_notes,
		rejection_reason, payment_reference, processed_by, requested_at, processed_at, updated_at`

// WithdrawalRepository stores withdrawal requests. Rows are never deleted.
type WithdrawalRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

func NewWithdrawalRepository(logger *slog.Logger, db *persistence.PostgresDB) withdrawal.Repository {
	return &WithdrawalRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

func (r *WithdrawalRepository) WithTx(tx pgx.Tx) withdrawal.Repository {
	return &WithdrawalRepository{
		querier: tx,
		logger:  r.logger,
	}
}

func (r *WithdrawalRepository) Create(ctx context.Context, req *withdrawal.Request) error {
	snapshot, err := json.Marshal(req.BankDetailsSnapshot)
	if err != nil {
		return fmt.Errorf("failed to encode bank details snapshot: %w", err)
	}

	query := `
		INSERT INTO withdrawal_requests (` + withdrawalColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err = r.querier.Exec(ctx, query,
		req.ID,
		req.SellerID,
		req.Amount,
		req.Status,
		snapshot,
		req.SellerNotes,
		req.AdminNotes,
		req.RejectionReason,
		req.PaymentReference,
		req.ProcessedBy,
		req.RequestedAt,
		req.ProcessedAt,
		req.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create withdrawal request", "withdrawal_id", req.ID.String(), "error", err)
		return fmt.Errorf("failed to create withdrawal request: %w", err)
	}
	return nil
}

func scanWithdrawal(row pgx.Row) (*withdrawal.Request, error) {
	var (
		req      withdrawal.Request
		snapshot []byte
	)
	err := row.Scan(
		&req.ID,
		&req.SellerID,
		&req.Amount,
		&req.Status,
		&snapshot,
		&req.SellerNotes,
		&req.AdminNotes,
		&req.RejectionReason,
		&req.PaymentReference,
		&req.ProcessedBy,
		&req.RequestedAt,
		&req.ProcessedAt,
		&req.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(snapshot) > 0 {
		if err := json.Unmarshal(snapshot, &req.BankDetailsSnapshot); err != nil {
			return nil, fmt.Errorf("failed to decode bank details snapshot: %w", err)
		}
	}
	return &req, nil
}

func (r *WithdrawalRepository) GetByID(ctx context.Context, id uuid.UUID) (*withdrawal.Request, error) {
	query := `SELECT ` + withdrawalColumns + `
		FROM withdrawal_requests
		WHERE id = $1
	`

	req, err := scanWithdrawal(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, withdrawal.ErrRequestNotFound{RequestID: id}
		}
		r.logger.Error("Failed to get withdrawal request", "withdrawal_id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get withdrawal request: %w", err)
	}
	return req, nil
}

func (r *WithdrawalRepository) UpdateStatus(ctx context.Context, req *withdrawal.Request, from withdrawal.Status) error {
	query := `
		UPDATE withdrawal_requests
		SET status = $1, admin_notes = $2, rejection_reason = $3, payment_reference = $4,
			processed_by = $5, processed_at = $6, updated_at = $7
		WHERE id = $8 AND status = $9
	`

	result, err := r.querier.Exec(ctx, query,
		req.Status,
		req.AdminNotes,
		req.RejectionReason,
		req.PaymentReference,
		req.ProcessedBy,
		req.ProcessedAt,
		req.UpdatedAt,
		req.ID,
		from,
	)
	if err != nil {
		r.logger.Error("Failed to update withdrawal status", "withdrawal_id", req.ID.String(), "error", err)
		return fmt.Errorf("failed to update withdrawal status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return shared.ErrInvalidTransition{
			Entity: "withdrawal",
			ID:     req.ID,
			From:   string(from),
			To:     string(req.Status),
		}
	}
	return nil
}

func withdrawalWhere(f withdrawal.Filter) (string, []interface{}) {
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
	if f.Status != "" {
		add("status = $%d", f.Status)
	}
	if f.From != nil {
		add("requested_at >= $%d", *f.From)
	}
	if f.To != nil {
		add("requested_at < $%d", *f.To)
	}

	if len(conds) == 0 {
		return "", nil
	}
	return "WHERE " + strings.Join(conds, " AND "), args
}

func (r *WithdrawalRepository) List(ctx context.Context, filter withdrawal.Filter, limit, offset int) ([]*withdrawal.Request, error) {
	where, args := withdrawalWhere(filter)
	query := fmt.Sprintf(`SELECT %s
		FROM withdrawal_requests
		%s
		ORDER BY requested_at DESC, id DESC
		LIMIT $%d OFFSET $%d`, withdrawalColumns, where, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.querier.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list withdrawal requests", "error", err)
		return nil, fmt.Errorf("failed to list withdrawal requests: %w", err)
	}
	defer rows.Close()

	var requests []*withdrawal.Request
	for rows.Next() {
		req, err := scanWithdrawal(rows)
		if err != nil {
			r.logger.Error("Failed to scan withdrawal request", "error", err)
			return nil, fmt.Errorf("failed to scan withdrawal request: %w", err)
		}
		requests = append(requests, req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating withdrawal requests: %w", err)
	}
	return requests, nil
}

func (r *WithdrawalRepository) Count(ctx context.Context, filter withdrawal.Filter) (int64, error) {
	where, args := withdrawalWhere(filter)
	query := `SELECT COUNT(*) FROM withdrawal_requests ` + where

	var count int64
	if err := r.querier.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		r.logger.Error("Failed to count withdrawal requests", "error", err)
		return 0, fmt.Errorf("failed to count withdrawal requests: %w", err)
	}
	return count, nil
}

func (r *WithdrawalRepository) SumByStatus(ctx context.Context, sellerID uuid.UUID) (withdrawal.Totals, error) {
	query := `
		SELECT
			COALESCE(SUM(amount) FILTER (WHERE status = 'COMPLETED'), 0)::BIGINT,
			COALESCE(SUM(amount) FILTER (WHERE status = 'PENDING'), 0)::BIGINT
		FROM withdrawal_requests
		WHERE seller_id = $1
	`

	var totals withdrawal.Totals
	if err := r.querier.QueryRow(ctx, query, sellerID).Scan(&totals.Completed, &totals.Pending); err != nil {
		r.logger.Error("Failed to sum withdrawals", "seller_id", sellerID.String(), "error", err)
		return withdrawal.Totals{}, fmt.Errorf("failed to sum withdrawals: %w", err)
	}
	return totals, nil
}
