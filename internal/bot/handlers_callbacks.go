package bot

import (
	"context"
	"strconv"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/shopspring/decimal"
	"gitlab.com/yelinaung/payments-bot/internal/logger"
)

// answerCallback acknowledges the button press so the client stops spinning.
func answerCallback(ctx context.Context, tg TelegramAPI, update *models.Update, text string) {
	if update.CallbackQuery == nil {
		return
	}
	_, _ = tg.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: update.CallbackQuery.ID,
		Text:            text,
	})
}

// callbackChat extracts the chat and message the pressed keyboard lives in.
func callbackChat(update *models.Update) (chatID int64, messageID int, ok bool) {
	if update.CallbackQuery == nil || update.CallbackQuery.Message.Message == nil {
		return 0, 0, false
	}
	msg := update.CallbackQuery.Message.Message
	return msg.Chat.ID, msg.ID, true
}

// editView swaps the menu message in place.
func editView(ctx context.Context, tg TelegramAPI, chatID int64, messageID int, text string, markup models.ReplyMarkup) {
	_, err := tg.EditMessageText(ctx, &bot.EditMessageTextParams{
		ChatID:      chatID,
		MessageID:   messageID,
		Text:        text,
		ParseMode:   models.ParseModeHTML,
		ReplyMarkup: markup,
	})
	if err != nil {
		logger.Log.Error().Err(err).Int64("chat_id", chatID).Msg("Failed to edit view")
	}
}

// handleBalanceCallback shows the current balance.
func (b *Bot) handleBalanceCallback(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleBalanceCallbackCore(ctx, tgBot, update)
}

// handleBalanceCallbackCore is the testable implementation of handleBalanceCallback.
func (b *Bot) handleBalanceCallbackCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	chatID, messageID, ok := callbackChat(update)
	if !ok {
		return
	}

	snap, err := b.svc.Balance(ctx)
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to read balance")
		answerCallback(ctx, tg, update, "❌ Failed to load data")
		return
	}
	unmatched, err := b.svc.UnmatchedWithdrawals(ctx)
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to read unmatched withdrawals")
		answerCallback(ctx, tg, update, "❌ Failed to load data")
		return
	}

	answerCallback(ctx, tg, update, "💰 Balance")
	editView(ctx, tg, chatID, messageID, formatBalance(snap, unmatched), mainMenuKeyboard())
}

// handleSettingsCallback shows the settings menu.
func (b *Bot) handleSettingsCallback(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleSettingsCallbackCore(ctx, tgBot, update)
}

// handleSettingsCallbackCore is the testable implementation of handleSettingsCallback.
func (b *Bot) handleSettingsCallbackCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	chatID, messageID, ok := callbackChat(update)
	if !ok {
		return
	}

	settings, err := b.settingsRepo.Get(ctx)
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to read settings")
		answerCallback(ctx, tg, update, "❌ Failed to load settings")
		return
	}

	answerCallback(ctx, tg, update, "⚙️ Settings")
	editView(ctx, tg, chatID, messageID, formatSettings(settings), settingsMenuKeyboard(settings.EmergencyEnabled))
}

// handleStatusCallback shows the alert system status.
func (b *Bot) handleStatusCallback(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleStatusCallbackCore(ctx, tgBot, update)
}

// handleStatusCallbackCore is the testable implementation of handleStatusCallback.
func (b *Bot) handleStatusCallbackCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	chatID, messageID, ok := callbackChat(update)
	if !ok {
		return
	}

	snap, err := b.svc.Balance(ctx)
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to read balance")
		answerCallback(ctx, tg, update, "❌ Failed to load status")
		return
	}
	status, err := b.alerts.Status(ctx)
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to read alert status")
		answerCallback(ctx, tg, update, "❌ Failed to load status")
		return
	}

	answerCallback(ctx, tg, update, "🛠️ Status")
	editView(ctx, tg, chatID, messageID, formatStatus(snap, status), backToMainKeyboard())
}

// handleHelpCallback shows the help view.
func (b *Bot) handleHelpCallback(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleHelpCallbackCore(ctx, tgBot, update)
}

// handleHelpCallbackCore is the testable implementation of handleHelpCallback.
func (b *Bot) handleHelpCallbackCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	chatID, messageID, ok := callbackChat(update)
	if !ok {
		return
	}
	answerCallback(ctx, tg, update, "📖 Help")
	editView(ctx, tg, chatID, messageID, formatHelp(), backToMainKeyboard())
}

// handleBackCallback returns to the main menu.
func (b *Bot) handleBackCallback(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleBackCallbackCore(ctx, tgBot, update)
}

// handleBackCallbackCore is the testable implementation of handleBackCallback.
func (b *Bot) handleBackCallbackCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	chatID, messageID, ok := callbackChat(update)
	if !ok {
		return
	}
	b.setPending(chatID, pendingNone)
	answerCallback(ctx, tg, update, "🏠 Main menu")
	editView(ctx, tg, chatID, messageID, "🤖 <b>Payments Bot</b>", mainMenuKeyboard())
}

// handleTestAlertCallback sends a test alert from the settings menu.
func (b *Bot) handleTestAlertCallback(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleTestAlertCallbackCore(ctx, tgBot, update)
}

// handleTestAlertCallbackCore is the testable implementation of handleTestAlertCallback.
func (b *Bot) handleTestAlertCallbackCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if err := b.alerts.SendTest(ctx); err != nil {
		logger.Log.Error().Err(err).Msg("Test alert failed")
		answerCallback(ctx, tg, update, "❌ Test alert failed")
		return
	}
	answerCallback(ctx, tg, update, "✅ Test alert delivered")
}

// handleToggleEmergencyCallback flips the alert kill switch.
func (b *Bot) handleToggleEmergencyCallback(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleToggleEmergencyCallbackCore(ctx, tgBot, update)
}

// handleToggleEmergencyCallbackCore is the testable implementation of
// handleToggleEmergencyCallback.
func (b *Bot) handleToggleEmergencyCallbackCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	chatID, messageID, ok := callbackChat(update)
	if !ok {
		return
	}

	settings, err := b.settingsRepo.Get(ctx)
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to read settings")
		answerCallback(ctx, tg, update, "❌ Toggle failed")
		return
	}

	newState := !settings.EmergencyEnabled
	if err := b.settingsRepo.SetEmergencyEnabled(ctx, newState); err != nil {
		logger.Log.Error().Err(err).Msg("Failed to toggle alert system")
		answerCallback(ctx, tg, update, "❌ Toggle failed")
		return
	}

	if newState {
		// Conditions may already hold when the switch comes back on.
		b.alerts.Notify()
		answerCallback(ctx, tg, update, "🟢 Alerts enabled")
	} else {
		b.alerts.ForceStop(ctx)
		answerCallback(ctx, tg, update, "🔴 Alerts disabled")
	}

	settings.EmergencyEnabled = newState
	editView(ctx, tg, chatID, messageID, formatSettings(settings), settingsMenuKeyboard(newState))
}

// handleResetCallback shows the reset confirmation step.
func (b *Bot) handleResetCallback(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleResetCallbackCore(ctx, tgBot, update)
}

// handleResetCallbackCore is the testable implementation of handleResetCallback.
func (b *Bot) handleResetCallbackCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	chatID, messageID, ok := callbackChat(update)
	if !ok {
		return
	}
	answerCallback(ctx, tg, update, "⚠️ Confirm reset")
	editView(ctx, tg, chatID, messageID, formatResetConfirmation(), resetConfirmKeyboard())
}

// handleResetConfirmCallback wipes the ledger.
func (b *Bot) handleResetConfirmCallback(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleResetConfirmCallbackCore(ctx, tgBot, update)
}

// handleResetConfirmCallbackCore is the testable implementation of
// handleResetConfirmCallback.
func (b *Bot) handleResetConfirmCallbackCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	chatID, messageID, ok := callbackChat(update)
	if !ok {
		return
	}

	if err := b.svc.Reset(ctx); err != nil {
		logger.Log.Error().Err(err).Msg("Manual reset failed")
		answerCallback(ctx, tg, update, "❌ Reset failed")
		return
	}

	answerCallback(ctx, tg, update, "🔄 Data reset")
	editView(ctx, tg, chatID, messageID, formatResetDone(), backToMainKeyboard())
}

// handleSetTimeCallback shows the auto-reset time picker.
func (b *Bot) handleSetTimeCallback(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.showQuickSet(ctx, tgBot, update, "⏰ <b>AUTO RESET TIME</b>\n\nPick a time or enter one manually (HH:MM):", timeQuickSetKeyboard())
}

// handleSetWithdrawalLimitCallback shows the withdrawal limit picker.
func (b *Bot) handleSetWithdrawalLimitCallback(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.showQuickSet(ctx, tgBot, update, "📋 <b>WITHDRAWAL LIMIT</b>\n\nAlert when this many withdrawals have no check:", withdrawalLimitQuickSetKeyboard())
}

// handleSetBalanceLimitCallback shows the balance limit picker.
func (b *Bot) handleSetBalanceLimitCallback(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.showQuickSet(ctx, tgBot, update, "💸 <b>BALANCE LIMIT</b>\n\nAlert when the balance reaches this mark:", balanceLimitQuickSetKeyboard())
}

// handleSetAlertRateCallback shows the alert rate picker.
func (b *Bot) handleSetAlertRateCallback(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.showQuickSet(ctx, tgBot, update, "📢 <b>ALERT RATE</b>\n\nMessages per minute (1-60):", alertRateQuickSetKeyboard())
}

func (b *Bot) showQuickSet(ctx context.Context, tg TelegramAPI, update *models.Update, text string, markup models.ReplyMarkup) {
	chatID, messageID, ok := callbackChat(update)
	if !ok {
		return
	}
	answerCallback(ctx, tg, update, "")
	editView(ctx, tg, chatID, messageID, text, markup)
}

// handleTimeValueCallback applies a picked auto-reset time.
func (b *Bot) handleTimeValueCallback(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleQuickSetValue(ctx, tgBot, update, cbTimePrefix, pendingResetTime, func(value string) error {
		if value == offValue {
			value = ""
		}
		return b.settingsRepo.SetAutoResetTime(ctx, value)
	})
}

// handleWithdrawalLimitValueCallback applies a picked withdrawal limit.
func (b *Bot) handleWithdrawalLimitValueCallback(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleQuickSetValue(ctx, tgBot, update, cbWLimitPrefix, pendingWithdrawalLimit, func(value string) error {
		n, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		return b.settingsRepo.SetWithdrawalThreshold(ctx, n)
	})
}

// handleBalanceLimitValueCallback applies a picked balance limit.
func (b *Bot) handleBalanceLimitValueCallback(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleQuickSetValue(ctx, tgBot, update, cbBLimitPrefix, pendingBalanceLimit, func(value string) error {
		d, err := decimal.NewFromString(value)
		if err != nil {
			return err
		}
		return b.settingsRepo.SetBalanceThreshold(ctx, d)
	})
}

// handleAlertRateValueCallback applies a picked alert rate.
func (b *Bot) handleAlertRateValueCallback(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleQuickSetValue(ctx, tgBot, update, cbRatePrefix, pendingAlertRate, func(value string) error {
		n, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		return b.settingsRepo.SetAlertRate(ctx, n)
	})
}

// handleQuickSetValue parses the value suffix of a quick-set callback.
// The manual value switches the chat to typed input instead.
func (b *Bot) handleQuickSetValue(ctx context.Context, tg TelegramAPI, update *models.Update, prefix string, manual pendingInput, apply func(string) error) {
	chatID, messageID, ok := callbackChat(update)
	if !ok {
		return
	}
	value := strings.TrimPrefix(update.CallbackQuery.Data, prefix)

	if value == manualValue {
		b.setPending(chatID, manual)
		answerCallback(ctx, tg, update, "✏️ Type the value")
		editView(ctx, tg, chatID, messageID, "✏️ Send the new value as a message.", backToMainKeyboard())
		return
	}

	if err := apply(value); err != nil {
		logger.Log.Warn().Err(err).Str("value", value).Msg("Rejected settings value")
		answerCallback(ctx, tg, update, "❌ Invalid value")
		return
	}

	// Thresholds may have moved past the current state in either direction.
	b.alerts.Notify()

	settings, err := b.settingsRepo.Get(ctx)
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to reload settings")
		answerCallback(ctx, tg, update, "✅ Saved")
		return
	}
	answerCallback(ctx, tg, update, "✅ Saved")
	editView(ctx, tg, chatID, messageID, formatSettings(settings), settingsMenuKeyboard(settings.EmergencyEnabled))
}
