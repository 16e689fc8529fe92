// Package repository contains the persistence layer for the ledger,
// settings and receipt records.
package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"gitlab.com/yelinaung/payments-bot/internal/models"
)

// LedgerRepository handles the singleton balance counters and the
// transaction history. Every counter mutation is a single SQL statement so
// concurrent writers from the two chat surfaces cannot lose updates.
type LedgerRepository struct {
	pool *pgxpool.Pool
}

// NewLedgerRepository creates a new LedgerRepository.
func NewLedgerRepository(pool *pgxpool.Pool) *LedgerRepository {
	return &LedgerRepository{pool: pool}
}

// GetBalance reads the current totals row.
func (r *LedgerRepository) GetBalance(ctx context.Context) (*models.BalanceSnapshot, error) {
	var snap models.BalanceSnapshot
	err := r.pool.QueryRow(ctx, `
		SELECT incoming, checks, max_balance FROM totals WHERE id = 1
	`).Scan(&snap.Incoming, &snap.Checks, &snap.MaxBalance)
	if err != nil {
		return nil, fmt.Errorf("failed to read totals: %w", err)
	}
	return &snap, nil
}

// UnmatchedWithdrawals reads the count of withdrawals not yet paired with a check.
func (r *LedgerRepository) UnmatchedWithdrawals(ctx context.Context) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `
		SELECT unmatched_withdrawals FROM totals WHERE id = 1
	`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to read unmatched withdrawals: %w", err)
	}
	return count, nil
}

// AddIncome credits incoming funds and refreshes the balance high-water mark.
func (r *LedgerRepository) AddIncome(ctx context.Context, amount decimal.Decimal) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin income transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		UPDATE totals SET
			incoming = incoming + $1,
			max_balance = GREATEST(max_balance, incoming + $1 - checks)
		WHERE id = 1
	`, amount)
	if err != nil {
		return fmt.Errorf("failed to add income: %w", err)
	}

	if err := insertTransaction(ctx, tx, models.TransactionIncome, amount); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// AddWithdrawal records an outgoing-funds event and bumps the unmatched
// withdrawal counter. Withdrawals carry negative amounts and do not touch
// the totals; they are matched later by checks.
func (r *LedgerRepository) AddWithdrawal(ctx context.Context, amount decimal.Decimal) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin withdrawal transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		UPDATE totals SET unmatched_withdrawals = unmatched_withdrawals + 1 WHERE id = 1
	`)
	if err != nil {
		return fmt.Errorf("failed to bump unmatched withdrawals: %w", err)
	}

	if err := insertTransaction(ctx, tx, models.TransactionWithdrawal, amount); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// AddCheck debits the spent total, pairs one outstanding withdrawal
// (floored at zero) and refreshes the high-water mark.
func (r *LedgerRepository) AddCheck(ctx context.Context, amount decimal.Decimal) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin check transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		UPDATE totals SET
			checks = checks + $1,
			unmatched_withdrawals = GREATEST(0, unmatched_withdrawals - 1),
			max_balance = GREATEST(max_balance, incoming - (checks + $1))
		WHERE id = 1
	`, amount)
	if err != nil {
		return fmt.Errorf("failed to add check: %w", err)
	}

	if err := insertTransaction(ctx, tx, models.TransactionCheck, amount); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// ResetAll zeroes every counter and clears the history and stored receipts.
func (r *LedgerRepository) ResetAll(ctx context.Context) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin reset transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	statements := []string{
		`UPDATE totals SET incoming = 0, checks = 0, max_balance = 0, unmatched_withdrawals = 0 WHERE id = 1`,
		`DELETE FROM transactions`,
		`DELETE FROM receipts`,
	}
	for _, stmt := range statements {
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to reset ledger: %w", err)
		}
	}

	return tx.Commit(ctx)
}

// DailyBalances returns the per-day net movement (income minus checks) for
// the last days, oldest first. Days without transactions are omitted.
func (r *LedgerRepository) DailyBalances(ctx context.Context, days int) ([]models.DailyBalance, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT date_trunc('day', created_at) AS day,
		       COALESCE(SUM(CASE WHEN type = 'income' THEN amount
		                         WHEN type = 'check' THEN -amount
		                         ELSE 0 END), 0) AS net
		FROM transactions
		WHERE created_at >= NOW() - make_interval(days => $1)
		GROUP BY day
		ORDER BY day
	`, days)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily balances: %w", err)
	}
	defer rows.Close()

	var series []models.DailyBalance
	for rows.Next() {
		var point models.DailyBalance
		var day time.Time
		if err := rows.Scan(&day, &point.Net); err != nil {
			return nil, fmt.Errorf("failed to scan daily balance: %w", err)
		}
		point.Day = day
		series = append(series, point)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate daily balances: %w", err)
	}
	return series, nil
}

func insertTransaction(ctx context.Context, tx pgx.Tx, txType string, amount decimal.Decimal) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO transactions (type, amount) VALUES ($1, $2)
	`, txType, amount)
	if err != nil {
		return fmt.Errorf("failed to record %s transaction: %w", txType, err)
	}
	return nil
}
