package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/shopspring/decimal"
	"gitlab.com/yelinaung/payments-bot/internal/banking"
	"gitlab.com/yelinaung/payments-bot/internal/logger"
	appmodels "gitlab.com/yelinaung/payments-bot/internal/models"
)

// handleSettingsInputCore applies a typed settings value. The chat was put
// into input mode by a "manual" quick-set button.
func (b *Bot) handleSettingsInputCore(ctx context.Context, tg TelegramAPI, msg *models.Message, kind pendingInput) {
	text := strings.TrimSpace(msg.Text)

	var err error
	switch kind {
	case pendingResetTime:
		err = b.settingsRepo.SetAutoResetTime(ctx, text)
	case pendingWithdrawalLimit:
		var n int
		if n, err = strconv.Atoi(text); err == nil {
			err = b.settingsRepo.SetWithdrawalThreshold(ctx, n)
		}
	case pendingBalanceLimit:
		var d decimal.Decimal
		if d, err = decimal.NewFromString(strings.ReplaceAll(text, ",", ".")); err == nil {
			err = b.settingsRepo.SetBalanceThreshold(ctx, d)
		}
	case pendingAlertRate:
		var n int
		if n, err = strconv.Atoi(text); err == nil {
			err = b.settingsRepo.SetAlertRate(ctx, n)
		}
	default:
		return
	}

	if err != nil {
		logger.Log.Warn().Err(err).Str("value", text).Msg("Rejected typed settings value")
		// Keep the chat in input mode so the user can retry.
		b.setPending(msg.Chat.ID, kind)
		b.reply(ctx, tg, msg.Chat.ID, "❌ Invalid value, try again or press Back.", backToMainKeyboard())
		return
	}

	b.alerts.Notify()

	settings, serr := b.settingsRepo.Get(ctx)
	if serr != nil {
		logger.Log.Error().Err(serr).Msg("Failed to reload settings")
		b.reply(ctx, tg, msg.Chat.ID, "✅ Saved.", backToMainKeyboard())
		return
	}
	b.reply(ctx, tg, msg.Chat.ID, formatSettings(settings), settingsMenuKeyboard(settings.EmergencyEnabled))
}

// handleBankTextCore treats a forwarded bank notification as a ledger entry.
// Returns false when the text carries no recognizable amount.
func (b *Bot) handleBankTextCore(ctx context.Context, tg TelegramAPI, msg *models.Message) bool {
	amount, ok := banking.ExtractAmount(msg.Text)
	if !ok {
		return false
	}
	if amount.IsZero() {
		b.reply(ctx, tg, msg.Chat.ID, "❌ A zero amount cannot be recorded.", nil)
		return true
	}

	var err error
	var confirmation string
	if amount.IsPositive() {
		err = b.svc.AddIncome(ctx, amount)
		confirmation = fmt.Sprintf("📥 Income recorded: <b>%s %s</b>", amount.StringFixed(2), appmodels.Currency)
	} else {
		err = b.svc.AddWithdrawal(ctx, amount)
		confirmation = fmt.Sprintf("📤 Withdrawal recorded: <b>%s %s</b>", amount.StringFixed(2), appmodels.Currency)
	}
	if err != nil {
		logger.Log.Error().Err(err).Str("amount", amount.String()).Msg("Failed to record bank notification")
		b.reply(ctx, tg, msg.Chat.ID, "❌ Failed to record the transaction.", nil)
		return true
	}

	snap, serr := b.svc.Balance(ctx)
	if serr != nil {
		logger.Log.Error().Err(serr).Msg("Failed to read balance after bank notification")
		b.reply(ctx, tg, msg.Chat.ID, confirmation, nil)
		return true
	}
	text := confirmation + fmt.Sprintf("\n💰 Balance: <b>%s %s</b>", snap.Balance().StringFixed(2), appmodels.Currency)
	b.reply(ctx, tg, msg.Chat.ID, text, nil)
	return true
}

// reply sends a standalone HTML message to a chat.
func (b *Bot) reply(ctx context.Context, tg TelegramAPI, chatID int64, text string, markup models.ReplyMarkup) {
	_, err := tg.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:      chatID,
		Text:        text,
		ParseMode:   models.ParseModeHTML,
		ReplyMarkup: markup,
	})
	if err != nil {
		logger.Log.Error().Err(err).Int64("chat_id", chatID).Msg("Failed to send reply")
	}
}
