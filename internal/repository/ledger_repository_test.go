package repository

import (
	"context"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gitlab.com/yelinaung/payments-bot/internal/database"
)

func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	pool := database.TestDB(t)

	ctx := context.Background()
	if err := database.RunMigrations(ctx, pool); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}
	database.ResetState(t, pool)

	t.Cleanup(func() {
		database.ResetState(t, pool)
	})

	return pool
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestLedgerCounters(t *testing.T) {
	pool := testPool(t)
	repo := NewLedgerRepository(pool)
	ctx := context.Background()

	t.Run("fresh ledger is zero", func(t *testing.T) {
		snap, err := repo.GetBalance(ctx)
		require.NoError(t, err)
		require.True(t, snap.Incoming.IsZero())
		require.True(t, snap.Checks.IsZero())
		require.True(t, snap.MaxBalance.IsZero())

		unmatched, err := repo.UnmatchedWithdrawals(ctx)
		require.NoError(t, err)
		require.Equal(t, 0, unmatched)
	})

	t.Run("income raises balance and high-water mark", func(t *testing.T) {
		require.NoError(t, repo.AddIncome(ctx, dec("1200.00")))

		snap, err := repo.GetBalance(ctx)
		require.NoError(t, err)
		require.True(t, snap.Incoming.Equal(dec("1200.00")))
		require.True(t, snap.Balance().Equal(dec("1200.00")))
		require.True(t, snap.MaxBalance.Equal(dec("1200.00")))
	})

	t.Run("check debits but keeps the high-water mark", func(t *testing.T) {
		require.NoError(t, repo.AddCheck(ctx, dec("450.50")))

		snap, err := repo.GetBalance(ctx)
		require.NoError(t, err)
		require.True(t, snap.Balance().Equal(dec("749.50")))
		require.True(t, snap.MaxBalance.Equal(dec("1200.00")))
	})

	t.Run("withdrawal bumps the unmatched counter without touching totals", func(t *testing.T) {
		require.NoError(t, repo.AddWithdrawal(ctx, dec("-300")))

		snap, err := repo.GetBalance(ctx)
		require.NoError(t, err)
		require.True(t, snap.Balance().Equal(dec("749.50")))

		unmatched, err := repo.UnmatchedWithdrawals(ctx)
		require.NoError(t, err)
		require.Equal(t, 1, unmatched)
	})

	t.Run("check pairs one withdrawal", func(t *testing.T) {
		require.NoError(t, repo.AddCheck(ctx, dec("300")))

		unmatched, err := repo.UnmatchedWithdrawals(ctx)
		require.NoError(t, err)
		require.Equal(t, 0, unmatched)
	})

	t.Run("unmatched counter floors at zero", func(t *testing.T) {
		require.NoError(t, repo.AddCheck(ctx, dec("10")))
		require.NoError(t, repo.AddCheck(ctx, dec("10")))

		unmatched, err := repo.UnmatchedWithdrawals(ctx)
		require.NoError(t, err)
		require.Equal(t, 0, unmatched)
	})
}

func TestLedgerReset(t *testing.T) {
	pool := testPool(t)
	repo := NewLedgerRepository(pool)
	receipts := NewReceiptRepository(pool)
	ctx := context.Background()

	require.NoError(t, repo.AddIncome(ctx, dec("500")))
	require.NoError(t, repo.AddWithdrawal(ctx, dec("-100")))
	require.NoError(t, receipts.Save(ctx, "file-1", dec("100"), "чек"))

	require.NoError(t, repo.ResetAll(ctx))

	snap, err := repo.GetBalance(ctx)
	require.NoError(t, err)
	require.True(t, snap.Incoming.IsZero())
	require.True(t, snap.MaxBalance.IsZero())

	unmatched, err := repo.UnmatchedWithdrawals(ctx)
	require.NoError(t, err)
	require.Equal(t, 0, unmatched)

	series, err := repo.DailyBalances(ctx, 30)
	require.NoError(t, err)
	require.Empty(t, series)

	recent, err := receipts.Recent(ctx, 10)
	require.NoError(t, err)
	require.Empty(t, recent)
}

func TestDailyBalances(t *testing.T) {
	pool := testPool(t)
	repo := NewLedgerRepository(pool)
	ctx := context.Background()

	require.NoError(t, repo.AddIncome(ctx, dec("1000")))
	require.NoError(t, repo.AddCheck(ctx, dec("400")))
	require.NoError(t, repo.AddWithdrawal(ctx, dec("-999")))

	series, err := repo.DailyBalances(ctx, 30)
	require.NoError(t, err)
	require.Len(t, series, 1, "all of today's activity lands on one day")
	// Withdrawals are informational and do not move the net.
	require.True(t, series[0].Net.Equal(dec("600")))
}

func TestConcurrentCounterUpdates(t *testing.T) {
	pool := testPool(t)
	repo := NewLedgerRepository(pool)
	ctx := context.Background()

	const workers = 8
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = repo.AddIncome(ctx, dec("10"))
			_ = repo.AddWithdrawal(ctx, dec("-5"))
		}()
	}
	wg.Wait()

	snap, err := repo.GetBalance(ctx)
	require.NoError(t, err)
	require.True(t, snap.Incoming.Equal(dec("80")), "no lost updates, got %s", snap.Incoming)

	unmatched, err := repo.UnmatchedWithdrawals(ctx)
	require.NoError(t, err)
	require.Equal(t, workers, unmatched)
}

func TestReceiptRepository(t *testing.T) {
	pool := testPool(t)
	repo := NewReceiptRepository(pool)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, "file-a", dec("150.00"), "Переказ 150.00 UAH"))
	require.NoError(t, repo.Save(ctx, "file-b", decimal.Zero, "размыто"))

	recent, err := repo.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	// Newest first.
	require.Equal(t, "file-b", recent[0].FileID)
	require.True(t, recent[0].Amount.IsZero())
	require.Equal(t, "file-a", recent[1].FileID)
	require.True(t, recent[1].Amount.Equal(dec("150.00")))

	one, err := repo.Recent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, one, 1)
}
