// Package postgres implements the ledger repositories on PostgreSQL. Every
// repository can be rebound to an open transaction with WithTx.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Shubhamjamliya/Today-My-Dreams-sub000/internal/domain/seller"
	"github.com/Shubhamjamliya/Today-My-Dreams-sub000/internal/platform/persistence"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const sellerColumns = `id, account_holder, account_number, ifsc, bank_name, upi_id,
		total_commission, available_commission, version, created_at, updated_at`

// SellerRepository stores the seller projection row.
type SellerRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

func NewSellerRepository(logger *slog.Logger, db *persistence.PostgresDB) seller.Repository {
	return &SellerRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

func (r *SellerRepository) WithTx(tx pgx.Tx) seller.Repository {
	return &SellerRepository{
		querier: tx,
		logger:  r.logger,
	}
}

func (r *SellerRepository) EnsureExists(ctx context.Context, id uuid.UUID) error {
	query := `
		INSERT INTO sellers (id)
		VALUES ($1)
		ON CONFLICT (id) DO NOTHING
	`

	if _, err := r.querier.Exec(ctx, query, id); err != nil {
		r.logger.Error("Failed to ensure seller", "seller_id", id.String(), "error", err)
		return fmt.Errorf("failed to ensure seller: %w", err)
	}
	return nil
}

func scanSeller(row pgx.Row) (*seller.Account, error) {
	var acc seller.Account
	err := row.Scan(
		&acc.ID,
		&acc.BankDetails.AccountHolder,
		&acc.BankDetails.AccountNumber,
		&acc.BankDetails.IFSC,
		&acc.BankDetails.BankName,
		&acc.BankDetails.UPIID,
		&acc.TotalCommission,
		&acc.AvailableCommission,
		&acc.Version,
		&acc.CreatedAt,
		&acc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &acc, nil
}

func (r *SellerRepository) GetByID(ctx context.Context, id uuid.UUID) (*seller.Account, error) {
	query := `SELECT ` + sellerColumns + `
		FROM sellers
		WHERE id = $1
	`

	acc, err := scanSeller(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, seller.ErrSellerNotFound{SellerID: id}
		}
		r.logger.Error("Failed to get seller", "seller_id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get seller: %w", err)
	}
	return acc, nil
}

// LockForUpdate must run inside a transaction; the lock is held until commit.
func (r *SellerRepository) LockForUpdate(ctx context.Context, id uuid.UUID) (*seller.Account, error) {
	query := `SELECT ` + sellerColumns + `
		FROM sellers
		WHERE id = $1
		FOR UPDATE
	`

	acc, err := scanSeller(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, seller.ErrSellerNotFound{SellerID: id}
		}
		r.logger.Error("Failed to lock seller for update", "seller_id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to lock seller for update: %w", err)
	}
	return acc, nil
}

func (r *SellerRepository) UpdateBankDetails(ctx context.Context, id uuid.UUID, details seller.BankDetails) error {
	query := `
		UPDATE sellers
		SET account_holder = $1, account_number = $2, ifsc = $3, bank_name = $4, upi_id = $5,
			updated_at = NOW()
		WHERE id = $6
	`

	result, err := r.querier.Exec(ctx, query,
		details.AccountHolder,
		details.AccountNumber,
		details.IFSC,
		details.BankName,
		details.UPIID,
		id,
	)
	if err != nil {
		r.logger.Error("Failed to update bank details", "seller_id", id.String(), "error", err)
		return fmt.Errorf("failed to update bank details: %w", err)
	}
	if result.RowsAffected() == 0 {
		return seller.ErrSellerNotFound{SellerID: id}
	}
	return nil
}

func (r *SellerRepository) IncrementTotalCommission(ctx context.Context, id uuid.UUID, amount int64) error {
	query := `
		UPDATE sellers
		SET total_commission = total_commission + $1, updated_at = NOW()
		WHERE id = $2
	`

	result, err := r.querier.Exec(ctx, query, amount, id)
	if err != nil {
		r.logger.Error("Failed to increment total commission", "seller_id", id.String(), "error", err)
		return fmt.Errorf("failed to increment total commission: %w", err)
	}
	if result.RowsAffected() == 0 {
		return seller.ErrSellerNotFound{SellerID: id}
	}
	return nil
}

// SetAvailableCommission overwrites the cached balance, guarded by version.
func (r *SellerRepository) SetAvailableCommission(ctx context.Context, id uuid.UUID, amount int64, version int) error {
	if amount < 0 {
		return seller.ErrNegativeBalance
	}

	query := `
		UPDATE sellers
		SET available_commission = $1, version = version + 1, updated_at = NOW()
		WHERE id = $2 AND version = $3
	`

	result, err := r.querier.Exec(ctx, query, amount, id, version)
	if err != nil {
		r.logger.Error("Failed to set available commission", "seller_id", id.String(), "error", err)
		return fmt.Errorf("failed to set available commission: %w", err)
	}
	if result.RowsAffected() == 0 {
		return seller.ErrConcurrentModification{SellerID: id}
	}
	return nil
}

func (r *SellerRepository) ListIDs(ctx context.Context, afterID uuid.UUID, limit int) ([]uuid.UUID, error) {
	query := `
		SELECT id
		FROM sellers
		WHERE id > $1
		ORDER BY id ASC
		LIMIT $2
	`

	rows, err := r.querier.Query(ctx, query, afterID, limit)
	if err != nil {
		r.logger.Error("Failed to list seller ids", "error", err)
		return nil, fmt.Errorf("failed to list seller ids: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan seller id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating seller ids: %w", err)
	}
	return ids, nil
}
