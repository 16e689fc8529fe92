package alert

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gitlab.com/yelinaung/payments-bot/internal/models"
)

// SeverityTier maps a balance range to alert wording. Tiers are checked in
// order; a balance at or above Min falls into that tier.
type SeverityTier struct {
	Min   decimal.Decimal
	Emoji string
	Label string
}

// DefaultTiers is the product tiering: most severe when the balance is most
// negative. The cutoffs are configuration, not protocol.
var DefaultTiers = []SeverityTier{
	{Min: decimal.NewFromInt(1000), Emoji: "🟢", Label: "STABLE"},
	{Min: decimal.Zero, Emoji: "✅", Label: "POSITIVE"},
	{Min: decimal.NewFromInt(-500), Emoji: "⚠️", Label: "LOW"},
}

// criticalTier catches every balance below the last configured cutoff.
var criticalTier = SeverityTier{Emoji: "🔴", Label: "CRITICAL"}

// severityFor picks the tier for a balance.
func severityFor(tiers []SeverityTier, balance decimal.Decimal) SeverityTier {
	for _, tier := range tiers {
		if balance.GreaterThanOrEqual(tier.Min) {
			return tier
		}
	}
	return criticalTier
}

// composeAlert builds one broadcast message from the live ledger state.
func composeAlert(tiers []SeverityTier, balance decimal.Decimal, unmatched int, reasons []string, count int, at time.Time) string {
	tier := severityFor(tiers, balance)

	var sb strings.Builder
	sb.WriteString("🚨 <b>EMERGENCY: STOP TRAFFIC!</b> 🚨\n\n")
	sb.WriteString("⛔️ <b>(do not restart until cleared by the operator)</b> ⛔️\n\n")
	fmt.Fprintf(&sb, "%s Severity: <b>%s</b>\n", tier.Emoji, tier.Label)
	fmt.Fprintf(&sb, "💰 Balance: <code>%s %s</code>\n", balance.StringFixed(2), models.Currency)
	fmt.Fprintf(&sb, "📊 Withdrawals without checks: <code>%d</code>\n\n", unmatched)

	sb.WriteString("Triggered by:\n")
	for _, reason := range reasons {
		fmt.Fprintf(&sb, "• %s\n", reason)
	}

	fmt.Fprintf(&sb, "\n🕒 %s · alert #%d", at.Format("15:04:05"), count)
	return sb.String()
}

// composeHalted is the force-stop notice.
func composeHalted(at time.Time) string {
	return fmt.Sprintf(
		"🔕 <b>ALERTS HALTED</b>\n\nEmergency broadcasting was stopped manually at %s.",
		at.Format("15:04:05"),
	)
}

// composeTest is the connectivity-check message.
func composeTest(at time.Time) string {
	return fmt.Sprintf(
		"📢 <b>TEST ALERT</b>\n\nAlert delivery works. Sent at %s.",
		at.Format("15:04:05"),
	)
}
