// Package models defines the domain entities for the payments watcher.
package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Currency is the single currency the ledger operates in.
const Currency = "UAH"

// Transaction types recorded in the ledger history.
const (
	TransactionIncome     = "income"
	TransactionWithdrawal = "withdrawal"
	TransactionCheck      = "check"
)

// Check amount plausibility window. OCR results outside this range are
// treated as misreads and not credited against withdrawals.
var (
	MinCheckAmount = decimal.NewFromInt(1)
	MaxCheckAmount = decimal.NewFromInt(50000)
)

// Alert rate bounds, messages per minute.
const (
	MinAlertRate = 1
	MaxAlertRate = 60
)

// Settings is the singleton alert configuration record.
type Settings struct {
	// AutoResetTime is the daily reset time in HH:MM, empty when disabled.
	AutoResetTime string
	// WithdrawalThreshold triggers the alert when the number of withdrawals
	// without a matching check reaches it.
	WithdrawalThreshold int
	// BalanceThreshold triggers the alert when the live balance is at or
	// above it. Typically negative; the comparison is inclusive.
	BalanceThreshold decimal.Decimal
	// AlertRate is the broadcast frequency in messages per minute.
	AlertRate int
	// EmergencyEnabled is the master kill switch for the alert system.
	EmergencyEnabled bool
}

// DefaultSettings returns the settings seeded at first boot.
func DefaultSettings() *Settings {
	return &Settings{
		WithdrawalThreshold: 5,
		BalanceThreshold:    decimal.NewFromInt(-1000),
		AlertRate:           5,
		EmergencyEnabled:    true,
	}
}

// Validate checks the settings against their allowed ranges.
func (s *Settings) Validate() error {
	if s.WithdrawalThreshold <= 0 {
		return fmt.Errorf("withdrawal threshold must be positive, got %d", s.WithdrawalThreshold)
	}
	if s.AlertRate < MinAlertRate || s.AlertRate > MaxAlertRate {
		return fmt.Errorf("alert rate must be between %d and %d, got %d", MinAlertRate, MaxAlertRate, s.AlertRate)
	}
	if s.AutoResetTime != "" {
		if _, err := ParseResetTime(s.AutoResetTime); err != nil {
			return err
		}
	}
	return nil
}

// ResetTime is a parsed HH:MM auto-reset time.
type ResetTime struct {
	Hour   int
	Minute int
}

// ParseResetTime parses an HH:MM string. The whole input must be the time;
// trailing text is rejected.
func ParseResetTime(raw string) (ResetTime, error) {
	var rt ResetTime
	hourPart, minutePart, ok := strings.Cut(raw, ":")
	if !ok {
		return rt, fmt.Errorf("auto reset time must be HH:MM, got %q", raw)
	}
	hour, err := strconv.Atoi(hourPart)
	if err != nil {
		return rt, fmt.Errorf("auto reset time must be HH:MM, got %q", raw)
	}
	minute, err := strconv.Atoi(minutePart)
	if err != nil {
		return rt, fmt.Errorf("auto reset time must be HH:MM, got %q", raw)
	}
	rt.Hour, rt.Minute = hour, minute
	if rt.Hour < 0 || rt.Hour > 23 || rt.Minute < 0 || rt.Minute > 59 {
		return rt, fmt.Errorf("auto reset time out of range: %q", raw)
	}
	return rt, nil
}

// BalanceSnapshot is a point-in-time read of the ledger totals.
type BalanceSnapshot struct {
	Incoming   decimal.Decimal
	Checks     decimal.Decimal
	MaxBalance decimal.Decimal
}

// Balance returns the live net funds figure, incoming minus checks.
func (b *BalanceSnapshot) Balance() decimal.Decimal {
	return b.Incoming.Sub(b.Checks)
}

// Transaction is one ledger history entry.
type Transaction struct {
	ID        int
	Type      string
	Amount    decimal.Decimal
	CreatedAt time.Time
}

// Receipt is a stored check screenshot with its OCR result.
type Receipt struct {
	ID        int
	FileID    string
	Amount    decimal.Decimal
	RawText   string
	CreatedAt time.Time
}

// DailyBalance is one point of the balance history series.
type DailyBalance struct {
	Day time.Time
	Net decimal.Decimal
}
