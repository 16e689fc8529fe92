package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"gitlab.com/yelinaung/payments-bot/internal/models"
)

// ReceiptRepository stores check screenshots with their OCR results.
// Unrecognized receipts are kept with a zero amount for later review.
type ReceiptRepository struct {
	pool *pgxpool.Pool
}

// NewReceiptRepository creates a new ReceiptRepository.
func NewReceiptRepository(pool *pgxpool.Pool) *ReceiptRepository {
	return &ReceiptRepository{pool: pool}
}

// Save records one receipt image reference and its extracted amount.
func (r *ReceiptRepository) Save(ctx context.Context, fileID string, amount decimal.Decimal, rawText string) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO receipts (file_id, amount, raw_text) VALUES ($1, $2, $3)
	`, fileID, amount, rawText)
	if err != nil {
		return fmt.Errorf("failed to save receipt: %w", err)
	}
	return nil
}

// Recent returns the newest n receipts, newest first.
func (r *ReceiptRepository) Recent(ctx context.Context, n int) ([]models.Receipt, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, file_id, amount, COALESCE(raw_text, ''), created_at
		FROM receipts ORDER BY id DESC LIMIT $1
	`, n)
	if err != nil {
		return nil, fmt.Errorf("failed to query receipts: %w", err)
	}
	defer rows.Close()

	var receipts []models.Receipt
	for rows.Next() {
		var rec models.Receipt
		if err := rows.Scan(&rec.ID, &rec.FileID, &rec.Amount, &rec.RawText, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan receipt: %w", err)
		}
		receipts = append(receipts, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate receipts: %w", err)
	}
	return receipts, nil
}
