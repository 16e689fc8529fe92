package database

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
)

// TestDB returns a database connection pool for testing.
// Skips the test if TEST_DATABASE_URL is not set.
func TestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()

	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping integration test")
	}

	ctx := context.Background()
	pool, err := Connect(ctx, dbURL)
	if err != nil {
		t.Fatalf("failed to connect to test database: %v", err)
	}

	t.Cleanup(func() {
		pool.Close()
	})

	return pool
}

// ResetState zeroes the singleton rows and clears history tables so each
// test starts from a freshly initialized ledger.
func ResetState(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()

	ctx := context.Background()
	statements := []string{
		`UPDATE totals SET incoming = 0, checks = 0, max_balance = 0, unmatched_withdrawals = 0 WHERE id = 1`,
		`UPDATE settings SET auto_reset_time = '', withdrawal_threshold = 5, balance_threshold = -1000, alert_rate = 5, emergency_enabled = TRUE WHERE id = 1`,
		`TRUNCATE TABLE transactions`,
		`TRUNCATE TABLE receipts`,
	}
	for _, stmt := range statements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			t.Fatalf("failed to reset test state: %v", err)
		}
	}
}
