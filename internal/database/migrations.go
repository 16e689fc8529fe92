package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// RunMigrations creates the database schema and seeds the singleton rows.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS totals (
			id INTEGER PRIMARY KEY,
			incoming NUMERIC(14, 2) NOT NULL DEFAULT 0,
			checks NUMERIC(14, 2) NOT NULL DEFAULT 0,
			max_balance NUMERIC(14, 2) NOT NULL DEFAULT 0,
			unmatched_withdrawals INTEGER NOT NULL DEFAULT 0 CHECK (unmatched_withdrawals >= 0)
		)`,

		`CREATE TABLE IF NOT EXISTS transactions (
			id SERIAL PRIMARY KEY,
			type TEXT NOT NULL,
			amount NUMERIC(14, 2) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS receipts (
			id SERIAL PRIMARY KEY,
			file_id TEXT NOT NULL,
			amount NUMERIC(14, 2) NOT NULL DEFAULT 0,
			raw_text TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS settings (
			id INTEGER PRIMARY KEY,
			auto_reset_time TEXT NOT NULL DEFAULT '',
			withdrawal_threshold INTEGER NOT NULL DEFAULT 5,
			balance_threshold NUMERIC(14, 2) NOT NULL DEFAULT -1000,
			alert_rate INTEGER NOT NULL DEFAULT 5,
			emergency_enabled BOOLEAN NOT NULL DEFAULT TRUE
		)`,

		`CREATE INDEX IF NOT EXISTS idx_transactions_created_at ON transactions(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_type ON transactions(type)`,

		`INSERT INTO totals (id) VALUES (1) ON CONFLICT (id) DO NOTHING`,
		`INSERT INTO settings (id) VALUES (1) ON CONFLICT (id) DO NOTHING`,
	}

	for i, migration := range migrations {
		if _, err := pool.Exec(ctx, migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}

	return nil
}
