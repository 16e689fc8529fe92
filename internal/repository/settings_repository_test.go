package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gitlab.com/yelinaung/payments-bot/internal/models"
)

func TestSettingsDefaults(t *testing.T) {
	pool := testPool(t)
	repo := NewSettingsRepository(pool)

	s, err := repo.Get(context.Background())
	require.NoError(t, err)

	require.Equal(t, "", s.AutoResetTime)
	require.Equal(t, 5, s.WithdrawalThreshold)
	require.True(t, s.BalanceThreshold.Equal(dec("-1000")))
	require.Equal(t, 5, s.AlertRate)
	require.True(t, s.EmergencyEnabled)
	require.NoError(t, s.Validate())
}

func TestSettingsSetters(t *testing.T) {
	pool := testPool(t)
	repo := NewSettingsRepository(pool)
	ctx := context.Background()

	t.Run("auto reset time", func(t *testing.T) {
		require.NoError(t, repo.SetAutoResetTime(ctx, "09:30"))
		s, err := repo.Get(ctx)
		require.NoError(t, err)
		require.Equal(t, "09:30", s.AutoResetTime)

		require.Error(t, repo.SetAutoResetTime(ctx, "25:00"))
		require.Error(t, repo.SetAutoResetTime(ctx, "noon"))

		// Empty disables the auto reset.
		require.NoError(t, repo.SetAutoResetTime(ctx, ""))
		s, err = repo.Get(ctx)
		require.NoError(t, err)
		require.Equal(t, "", s.AutoResetTime)
	})

	t.Run("withdrawal threshold", func(t *testing.T) {
		require.NoError(t, repo.SetWithdrawalThreshold(ctx, 12))
		s, err := repo.Get(ctx)
		require.NoError(t, err)
		require.Equal(t, 12, s.WithdrawalThreshold)

		require.Error(t, repo.SetWithdrawalThreshold(ctx, 0))
		require.Error(t, repo.SetWithdrawalThreshold(ctx, -3))
	})

	t.Run("balance threshold", func(t *testing.T) {
		require.NoError(t, repo.SetBalanceThreshold(ctx, dec("-2500.75")))
		s, err := repo.Get(ctx)
		require.NoError(t, err)
		require.True(t, s.BalanceThreshold.Equal(dec("-2500.75")))
	})

	t.Run("alert rate", func(t *testing.T) {
		require.NoError(t, repo.SetAlertRate(ctx, models.MaxAlertRate))
		s, err := repo.Get(ctx)
		require.NoError(t, err)
		require.Equal(t, models.MaxAlertRate, s.AlertRate)

		require.Error(t, repo.SetAlertRate(ctx, 0))
		require.Error(t, repo.SetAlertRate(ctx, models.MaxAlertRate+1))
	})

	t.Run("emergency kill switch", func(t *testing.T) {
		require.NoError(t, repo.SetEmergencyEnabled(ctx, false))
		s, err := repo.Get(ctx)
		require.NoError(t, err)
		require.False(t, s.EmergencyEnabled)

		require.NoError(t, repo.SetEmergencyEnabled(ctx, true))
		s, err = repo.Get(ctx)
		require.NoError(t, err)
		require.True(t, s.EmergencyEnabled)
	})

	t.Run("rejected values leave the row untouched", func(t *testing.T) {
		require.NoError(t, repo.SetWithdrawalThreshold(ctx, 7))
		require.Error(t, repo.SetWithdrawalThreshold(ctx, -1))

		s, err := repo.Get(ctx)
		require.NoError(t, err)
		require.Equal(t, 7, s.WithdrawalThreshold)
	})
}
