package bot

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"gitlab.com/yelinaung/payments-bot/internal/logger"
)

// chartDays is the window of the /chart balance history.
const chartDays = 30

// handleStart handles the /start command.
func (b *Bot) handleStart(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleStartCore(ctx, tgBot, update)
}

// handleStartCore is the testable implementation of handleStart.
func (b *Bot) handleStartCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil {
		return
	}

	firstName := ""
	if update.Message.From != nil {
		firstName = update.Message.From.FirstName
	}
	greeting := "🤖 <b>Payments Bot</b>\n\nWelcome"
	if firstName != "" {
		greeting += ", " + firstName
	}
	greeting += "!"

	_, err := tg.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:      update.Message.Chat.ID,
		Text:        greeting,
		ParseMode:   models.ParseModeHTML,
		ReplyMarkup: mainMenuKeyboard(),
	})
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to send start message")
	}
}

// handleHelp handles the /help command.
func (b *Bot) handleHelp(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleHelpCore(ctx, tgBot, update)
}

// handleHelpCore is the testable implementation of handleHelp.
func (b *Bot) handleHelpCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil {
		return
	}
	_, err := tg.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:      update.Message.Chat.ID,
		Text:        formatHelp(),
		ParseMode:   models.ParseModeHTML,
		ReplyMarkup: mainMenuKeyboard(),
	})
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to send help message")
	}
}

// handleChart handles the /chart command: renders the 30-day balance
// history as a PNG document.
func (b *Bot) handleChart(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleChartCore(ctx, tgBot, update)
}

// handleChartCore is the testable implementation of handleChart.
func (b *Bot) handleChartCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	series, err := b.svc.DailyBalances(ctx, chartDays)
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to load balance history")
		_, _ = tg.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   "❌ Failed to load balance history.",
		})
		return
	}

	chartData, err := GenerateBalanceChart(series)
	if err != nil {
		_, _ = tg.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   "📊 No transactions to chart yet.",
		})
		return
	}

	filename := fmt.Sprintf("balance_%s.png", time.Now().Format("2006-01-02"))
	_, err = tg.SendDocument(ctx, &bot.SendDocumentParams{
		ChatID:   chatID,
		Document: &models.InputFileUpload{Filename: filename, Data: bytes.NewReader(chartData)},
		Caption:  fmt.Sprintf("📈 Balance history, last %d days", chartDays),
	})
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to send balance chart")
	}
}

// handleTestAlert handles the /testalert command.
func (b *Bot) handleTestAlert(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleTestAlertCore(ctx, tgBot, update)
}

// handleTestAlertCore is the testable implementation of handleTestAlert.
func (b *Bot) handleTestAlertCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	if err := b.alerts.SendTest(ctx); err != nil {
		logger.Log.Error().Err(err).Msg("Test alert failed")
		_, _ = tg.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   "❌ Could not deliver the test alert to any chat.",
		})
		return
	}

	_, _ = tg.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   "✅ Test alert delivered.",
	})
}
