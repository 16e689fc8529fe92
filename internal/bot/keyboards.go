package bot

import (
	"fmt"

	"github.com/go-telegram/bot/models"
)

// Callback data values for the inline menus.
const (
	cbBalance         = "balance"
	cbSettings        = "settings"
	cbStatus          = "status"
	cbHelp            = "help"
	cbBack            = "back"
	cbTestAlert       = "test_alert"
	cbToggleEmergency = "toggle_emergency"
	cbReset           = "reset"
	cbResetConfirm    = "reset_confirm"
	cbSetTime         = "set_time"
	cbSetWLimit       = "set_wlimit"
	cbSetBLimit       = "set_blimit"
	cbSetRate         = "set_rate"

	cbTimePrefix   = "time_"
	cbWLimitPrefix = "wlimit_"
	cbBLimitPrefix = "blimit_"
	cbRatePrefix   = "rate_"

	// manualValue under a prefix switches the chat to typed input.
	manualValue = "manual"
	// offValue under the time prefix disables the auto reset.
	offValue = "off"
)

// mainMenuKeyboard is the top-level admin menu.
func mainMenuKeyboard() *models.InlineKeyboardMarkup {
	return &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{
			{
				{Text: "💰 Balance", CallbackData: cbBalance},
				{Text: "🛠️ Status", CallbackData: cbStatus},
			},
			{
				{Text: "⚙️ Settings", CallbackData: cbSettings},
				{Text: "📖 Help", CallbackData: cbHelp},
			},
		},
	}
}

// settingsMenuKeyboard lists the editable settings.
func settingsMenuKeyboard(emergencyEnabled bool) *models.InlineKeyboardMarkup {
	toggleText := "🔴 Disable alerts"
	if !emergencyEnabled {
		toggleText = "🟢 Enable alerts"
	}
	return &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{
			{
				{Text: "⏰ Auto reset time", CallbackData: cbSetTime},
				{Text: "📋 Withdrawal limit", CallbackData: cbSetWLimit},
			},
			{
				{Text: "💸 Balance limit", CallbackData: cbSetBLimit},
				{Text: "📢 Alert rate", CallbackData: cbSetRate},
			},
			{
				{Text: toggleText, CallbackData: cbToggleEmergency},
			},
			{
				{Text: "📢 Test alert", CallbackData: cbTestAlert},
				{Text: "🔄 Reset data", CallbackData: cbReset},
			},
			{
				{Text: "⬅️ Back", CallbackData: cbBack},
			},
		},
	}
}

// resetConfirmKeyboard asks for explicit confirmation before wiping data.
func resetConfirmKeyboard() *models.InlineKeyboardMarkup {
	return &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{
			{
				{Text: "✅ Yes, reset everything", CallbackData: cbResetConfirm},
				{Text: "❌ Cancel", CallbackData: cbSettings},
			},
		},
	}
}

// backToMainKeyboard is a single back button.
func backToMainKeyboard() *models.InlineKeyboardMarkup {
	return &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{
			{{Text: "⬅️ Back", CallbackData: cbBack}},
		},
	}
}

// timeQuickSetKeyboard offers common reset times.
func timeQuickSetKeyboard() *models.InlineKeyboardMarkup {
	times := []string{"00:00", "06:00", "09:00", "12:00", "18:00", "21:00"}
	var rows [][]models.InlineKeyboardButton
	for i := 0; i < len(times); i += 3 {
		var row []models.InlineKeyboardButton
		for _, t := range times[i:min(i+3, len(times))] {
			row = append(row, models.InlineKeyboardButton{Text: t, CallbackData: cbTimePrefix + t})
		}
		rows = append(rows, row)
	}
	rows = append(rows,
		[]models.InlineKeyboardButton{
			{Text: "✏️ Enter manually", CallbackData: cbTimePrefix + manualValue},
			{Text: "🚫 Disable", CallbackData: cbTimePrefix + offValue},
		},
		[]models.InlineKeyboardButton{{Text: "⬅️ Back", CallbackData: cbSettings}},
	)
	return &models.InlineKeyboardMarkup{InlineKeyboard: rows}
}

// withdrawalLimitQuickSetKeyboard offers common withdrawal-count limits.
func withdrawalLimitQuickSetKeyboard() *models.InlineKeyboardMarkup {
	return quickSetKeyboard(cbWLimitPrefix, []int{3, 5, 10, 15, 20, 30})
}

// balanceLimitQuickSetKeyboard offers common balance thresholds.
func balanceLimitQuickSetKeyboard() *models.InlineKeyboardMarkup {
	return quickSetKeyboard(cbBLimitPrefix, []int{-500, -1000, -2000, -5000, -10000, 0})
}

// alertRateQuickSetKeyboard offers common broadcast rates.
func alertRateQuickSetKeyboard() *models.InlineKeyboardMarkup {
	return quickSetKeyboard(cbRatePrefix, []int{1, 2, 5, 10, 20, 60})
}

func quickSetKeyboard(prefix string, values []int) *models.InlineKeyboardMarkup {
	var rows [][]models.InlineKeyboardButton
	for i := 0; i < len(values); i += 3 {
		var row []models.InlineKeyboardButton
		for _, v := range values[i:min(i+3, len(values))] {
			row = append(row, models.InlineKeyboardButton{
				Text:         fmt.Sprintf("%d", v),
				CallbackData: fmt.Sprintf("%s%d", prefix, v),
			})
		}
		rows = append(rows, row)
	}
	rows = append(rows,
		[]models.InlineKeyboardButton{{Text: "✏️ Enter manually", CallbackData: prefix + manualValue}},
		[]models.InlineKeyboardButton{{Text: "⬅️ Back", CallbackData: cbSettings}},
	)
	return &models.InlineKeyboardMarkup{InlineKeyboard: rows}
}
