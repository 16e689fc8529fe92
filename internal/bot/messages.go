package bot

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gitlab.com/yelinaung/payments-bot/internal/alert"
	"gitlab.com/yelinaung/payments-bot/internal/models"
)

const divider = "═══════════════════════"

// balanceStatus maps the live balance to a short status line.
func balanceStatus(balance decimal.Decimal) (string, string) {
	switch {
	case balance.GreaterThan(decimal.NewFromInt(1000)):
		return "🟢", "Stable"
	case balance.GreaterThanOrEqual(decimal.Zero):
		return "✅", "Positive"
	case balance.GreaterThanOrEqual(decimal.NewFromInt(-500)):
		return "⚠️", "Low"
	default:
		return "🔴", "Critical"
	}
}

// formatBalance renders the balance view.
func formatBalance(snap *models.BalanceSnapshot, unmatched int) string {
	balance := snap.Balance()
	emoji, status := balanceStatus(balance)

	var sb strings.Builder
	sb.WriteString("🏦 <b>BALANCE</b>\n")
	sb.WriteString(divider + "\n\n")
	fmt.Fprintf(&sb, "💵 Top-ups: <code>%s %s</code>\n", snap.Incoming.StringFixed(2), models.Currency)
	fmt.Fprintf(&sb, "🧾 Checks: <code>%s %s</code>\n", snap.Checks.StringFixed(2), models.Currency)
	fmt.Fprintf(&sb, "📈 Max balance: <code>%s %s</code>\n", snap.MaxBalance.StringFixed(2), models.Currency)
	fmt.Fprintf(&sb, "📊 Withdrawals without checks: <code>%d</code>\n\n", unmatched)
	fmt.Fprintf(&sb, "%s Balance: <code>%s %s</code> — %s", emoji, balance.StringFixed(2), models.Currency, status)
	return sb.String()
}

// formatSettings renders the settings view.
func formatSettings(s *models.Settings) string {
	enabled := "✅ Enabled"
	if !s.EmergencyEnabled {
		enabled = "❌ Disabled"
	}
	resetTime := s.AutoResetTime
	if resetTime == "" {
		resetTime = "⚠️ not set"
	}

	var sb strings.Builder
	sb.WriteString("⚙️ <b>SETTINGS</b>\n")
	sb.WriteString(divider + "\n\n")
	fmt.Fprintf(&sb, "⏰ Auto reset: %s\n", resetTime)
	fmt.Fprintf(&sb, "🚨 Alerts: %s\n", enabled)
	fmt.Fprintf(&sb, "📋 Withdrawal limit: <code>%d</code>\n", s.WithdrawalThreshold)
	fmt.Fprintf(&sb, "💸 Balance limit: <code>%s %s</code>\n", s.BalanceThreshold.StringFixed(2), models.Currency)
	fmt.Fprintf(&sb, "📢 Alert rate: <code>%d</code>/min", s.AlertRate)
	return sb.String()
}

// formatStatus renders the system status view.
func formatStatus(snap *models.BalanceSnapshot, status *alert.Status) string {
	enabled := "🟢 Enabled"
	if !status.Enabled {
		enabled = "🔴 Disabled"
	}
	broadcasting := "💤 Idle"
	if status.Active {
		broadcasting = "🚨 Broadcasting"
	}

	var sb strings.Builder
	sb.WriteString("🛠️ <b>STATUS</b>\n")
	sb.WriteString(divider + "\n\n")
	fmt.Fprintf(&sb, "Balance: <code>%s %s</code>\n", snap.Balance().StringFixed(2), models.Currency)
	fmt.Fprintf(&sb, "Alert system: %s\n", enabled)
	fmt.Fprintf(&sb, "Broadcast: %s\n", broadcasting)
	if status.Active {
		fmt.Fprintf(&sb, "Alerts sent: <code>%d</code>\n", status.AlertsSent)
		if !status.LastAlertAt.IsZero() {
			fmt.Fprintf(&sb, "Last alert: <code>%s</code>\n", status.LastAlertAt.Format(time.TimeOnly))
		}
	}
	return sb.String()
}

// formatHelp renders the help view.
func formatHelp() string {
	return `🤖 <b>HELP</b>

📥 Top-ups: bank notifications are recognized automatically
🧾 Checks: send a receipt photo
🚨 Alerts: broadcast when critical conditions are met
📈 /chart — 30-day balance history
📢 /testalert — verify alert delivery`
}

// formatResetConfirmation renders the wipe warning.
func formatResetConfirmation() string {
	return `⚠️ <b>RESET ALL DATA?</b>

This will zero the balance, clear the transaction history and stored receipts, and stop any active alert.`
}

// formatResetDone renders the post-reset summary.
func formatResetDone() string {
	return `✅ <b>RESET COMPLETE</b>

• Balance zeroed
• History cleared
• Alerts stopped`
}
