// Package ledger is the single mutation funnel for the balance counters.
// Both chat surfaces (admin bot and passive listener) go through it, and
// every successful mutation schedules exactly one alert evaluation.
package ledger

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"gitlab.com/yelinaung/payments-bot/internal/logger"
	"gitlab.com/yelinaung/payments-bot/internal/models"
)

// Store is the durable counter contract the service mutates.
type Store interface {
	GetBalance(ctx context.Context) (*models.BalanceSnapshot, error)
	UnmatchedWithdrawals(ctx context.Context) (int, error)
	AddIncome(ctx context.Context, amount decimal.Decimal) error
	AddWithdrawal(ctx context.Context, amount decimal.Decimal) error
	AddCheck(ctx context.Context, amount decimal.Decimal) error
	ResetAll(ctx context.Context) error
	DailyBalances(ctx context.Context, days int) ([]models.DailyBalance, error)
}

// Notifier schedules an alert evaluation. Never blocks.
type Notifier interface {
	Notify()
}

// Stopper stops an active alert session. Used on reset.
type Stopper interface {
	Stop()
}

// Service validates and applies ledger mutations.
type Service struct {
	store    Store
	notifier Notifier
	stopper  Stopper
}

// NewService creates the mutation funnel.
func NewService(store Store, notifier Notifier, stopper Stopper) *Service {
	return &Service{store: store, notifier: notifier, stopper: stopper}
}

// AddIncome credits a top-up. The amount must be positive.
func (s *Service) AddIncome(ctx context.Context, amount decimal.Decimal) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("income amount must be positive, got %s", amount.StringFixed(2))
	}
	if err := s.store.AddIncome(ctx, amount); err != nil {
		return err
	}
	logger.Log.Info().Str("amount", amount.StringFixed(2)).Msg("Income recorded")
	s.notifier.Notify()
	return nil
}

// AddWithdrawal records an outgoing-funds event. The amount must be negative.
func (s *Service) AddWithdrawal(ctx context.Context, amount decimal.Decimal) error {
	if amount.GreaterThanOrEqual(decimal.Zero) {
		return fmt.Errorf("withdrawal amount must be negative, got %s", amount.StringFixed(2))
	}
	if err := s.store.AddWithdrawal(ctx, amount); err != nil {
		return err
	}
	logger.Log.Info().Str("amount", amount.StringFixed(2)).Msg("Withdrawal recorded")
	s.notifier.Notify()
	return nil
}

// AddCheck debits a confirmed receipt and pairs one outstanding withdrawal.
// The amount must be positive.
func (s *Service) AddCheck(ctx context.Context, amount decimal.Decimal) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("check amount must be positive, got %s", amount.StringFixed(2))
	}
	if err := s.store.AddCheck(ctx, amount); err != nil {
		return err
	}
	logger.Log.Info().Str("amount", amount.StringFixed(2)).Msg("Check recorded")
	s.notifier.Notify()
	return nil
}

// Reset zeroes all counters, clears history and stops any active alert.
// Unlike the add-mutations it does not schedule an evaluation: a zero
// balance satisfies the at-or-above trigger, so a queued evaluation would
// restart the session the stop just tore down.
func (s *Service) Reset(ctx context.Context) error {
	if err := s.store.ResetAll(ctx); err != nil {
		return err
	}
	s.stopper.Stop()
	logger.Log.Info().Msg("Ledger reset")
	return nil
}

// Balance reads the current totals.
func (s *Service) Balance(ctx context.Context) (*models.BalanceSnapshot, error) {
	return s.store.GetBalance(ctx)
}

// UnmatchedWithdrawals reads the outstanding withdrawal count.
func (s *Service) UnmatchedWithdrawals(ctx context.Context) (int, error) {
	return s.store.UnmatchedWithdrawals(ctx)
}

// DailyBalances reads the balance history series for charting.
func (s *Service) DailyBalances(ctx context.Context, days int) ([]models.DailyBalance, error) {
	return s.store.DailyBalances(ctx, days)
}
