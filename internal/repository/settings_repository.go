package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"gitlab.com/yelinaung/payments-bot/internal/models"
)

// SettingsRepository handles the singleton alert settings record. Each
// setter validates its value before persisting, so readers always see
// in-range settings.
type SettingsRepository struct {
	pool *pgxpool.Pool
}

// NewSettingsRepository creates a new SettingsRepository.
func NewSettingsRepository(pool *pgxpool.Pool) *SettingsRepository {
	return &SettingsRepository{pool: pool}
}

// Get reads the current settings.
func (r *SettingsRepository) Get(ctx context.Context) (*models.Settings, error) {
	var s models.Settings
	err := r.pool.QueryRow(ctx, `
		SELECT auto_reset_time, withdrawal_threshold, balance_threshold, alert_rate, emergency_enabled
		FROM settings WHERE id = 1
	`).Scan(&s.AutoResetTime, &s.WithdrawalThreshold, &s.BalanceThreshold, &s.AlertRate, &s.EmergencyEnabled)
	if err != nil {
		return nil, fmt.Errorf("failed to read settings: %w", err)
	}
	return &s, nil
}

// SetAutoResetTime stores the daily reset time. An empty value disables the
// auto reset.
func (r *SettingsRepository) SetAutoResetTime(ctx context.Context, value string) error {
	if value != "" {
		if _, err := models.ParseResetTime(value); err != nil {
			return err
		}
	}
	return r.update(ctx, `UPDATE settings SET auto_reset_time = $1 WHERE id = 1`, value)
}

// SetWithdrawalThreshold stores the unmatched-withdrawal trigger threshold.
func (r *SettingsRepository) SetWithdrawalThreshold(ctx context.Context, value int) error {
	if value <= 0 {
		return fmt.Errorf("withdrawal threshold must be positive, got %d", value)
	}
	return r.update(ctx, `UPDATE settings SET withdrawal_threshold = $1 WHERE id = 1`, value)
}

// SetBalanceThreshold stores the balance trigger threshold.
func (r *SettingsRepository) SetBalanceThreshold(ctx context.Context, value decimal.Decimal) error {
	return r.update(ctx, `UPDATE settings SET balance_threshold = $1 WHERE id = 1`, value)
}

// SetAlertRate stores the broadcast frequency in messages per minute.
func (r *SettingsRepository) SetAlertRate(ctx context.Context, value int) error {
	if value < models.MinAlertRate || value > models.MaxAlertRate {
		return fmt.Errorf("alert rate must be between %d and %d, got %d",
			models.MinAlertRate, models.MaxAlertRate, value)
	}
	return r.update(ctx, `UPDATE settings SET alert_rate = $1 WHERE id = 1`, value)
}

// SetEmergencyEnabled flips the master kill switch.
func (r *SettingsRepository) SetEmergencyEnabled(ctx context.Context, value bool) error {
	return r.update(ctx, `UPDATE settings SET emergency_enabled = $1 WHERE id = 1`, value)
}

func (r *SettingsRepository) update(ctx context.Context, sql string, arg any) error {
	if _, err := r.pool.Exec(ctx, sql, arg); err != nil {
		return fmt.Errorf("failed to update settings: %w", err)
	}
	return nil
}
