package bot

import (
	"testing"

	"github.com/go-telegram/bot/models"
	"github.com/stretchr/testify/require"
)

func flattenCallbacks(markup *models.InlineKeyboardMarkup) []string {
	var data []string
	for _, row := range markup.InlineKeyboard {
		for _, button := range row {
			data = append(data, button.CallbackData)
		}
	}
	return data
}

func TestMainMenuKeyboard(t *testing.T) {
	t.Parallel()

	data := flattenCallbacks(mainMenuKeyboard())
	require.ElementsMatch(t, []string{cbBalance, cbStatus, cbSettings, cbHelp}, data)
}

func TestSettingsMenuKeyboard(t *testing.T) {
	t.Parallel()

	data := flattenCallbacks(settingsMenuKeyboard(true))
	require.Contains(t, data, cbSetTime)
	require.Contains(t, data, cbSetWLimit)
	require.Contains(t, data, cbSetBLimit)
	require.Contains(t, data, cbSetRate)
	require.Contains(t, data, cbToggleEmergency)
	require.Contains(t, data, cbTestAlert)
	require.Contains(t, data, cbReset)
	require.Contains(t, data, cbBack)

	// The toggle caption reflects the current state.
	var enabledCaption, disabledCaption string
	for _, row := range settingsMenuKeyboard(true).InlineKeyboard {
		for _, button := range row {
			if button.CallbackData == cbToggleEmergency {
				enabledCaption = button.Text
			}
		}
	}
	for _, row := range settingsMenuKeyboard(false).InlineKeyboard {
		for _, button := range row {
			if button.CallbackData == cbToggleEmergency {
				disabledCaption = button.Text
			}
		}
	}
	require.Contains(t, enabledCaption, "Disable")
	require.Contains(t, disabledCaption, "Enable")
}

func TestResetConfirmKeyboard(t *testing.T) {
	t.Parallel()

	data := flattenCallbacks(resetConfirmKeyboard())
	require.Contains(t, data, cbResetConfirm)
	// Cancel routes back to settings, not to a destructive action.
	require.Contains(t, data, cbSettings)
}

func TestQuickSetKeyboards(t *testing.T) {
	t.Parallel()

	t.Run("time picker", func(t *testing.T) {
		t.Parallel()
		data := flattenCallbacks(timeQuickSetKeyboard())
		require.Contains(t, data, cbTimePrefix+"00:00")
		require.Contains(t, data, cbTimePrefix+manualValue)
		require.Contains(t, data, cbTimePrefix+offValue)
	})

	t.Run("withdrawal limits", func(t *testing.T) {
		t.Parallel()
		data := flattenCallbacks(withdrawalLimitQuickSetKeyboard())
		require.Contains(t, data, cbWLimitPrefix+"5")
		require.Contains(t, data, cbWLimitPrefix+manualValue)
	})

	t.Run("balance limits carry the sign", func(t *testing.T) {
		t.Parallel()
		data := flattenCallbacks(balanceLimitQuickSetKeyboard())
		require.Contains(t, data, cbBLimitPrefix+"-1000")
		require.Contains(t, data, cbBLimitPrefix+"0")
	})

	t.Run("alert rates stay within bounds", func(t *testing.T) {
		t.Parallel()
		data := flattenCallbacks(alertRateQuickSetKeyboard())
		require.Contains(t, data, cbRatePrefix+"1")
		require.Contains(t, data, cbRatePrefix+"60")
	})
}
