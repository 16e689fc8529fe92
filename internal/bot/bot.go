// Package bot provides the interactive admin Telegram bot.
package bot

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"
	"github.com/jackc/pgx/v5/pgxpool"
	"gitlab.com/yelinaung/payments-bot/internal/alert"
	"gitlab.com/yelinaung/payments-bot/internal/config"
	"gitlab.com/yelinaung/payments-bot/internal/gemini"
	"gitlab.com/yelinaung/payments-bot/internal/ledger"
	"gitlab.com/yelinaung/payments-bot/internal/logger"
	"gitlab.com/yelinaung/payments-bot/internal/repository"
)

// pendingInput tracks which setting a chat is currently typing in.
type pendingInput int

const (
	pendingNone pendingInput = iota
	pendingResetTime
	pendingWithdrawalLimit
	pendingBalanceLimit
	pendingAlertRate
)

// Bot wraps the Telegram bot with application dependencies.
type Bot struct {
	bot          *bot.Bot
	cfg          *config.Config
	svc          *ledger.Service
	alerts       *alert.Engine
	settingsRepo *repository.SettingsRepository
	receiptRepo  *repository.ReceiptRepository
	geminiClient *gemini.Client

	pendingMu sync.Mutex
	pending   map[int64]pendingInput
}

// New creates the admin bot together with the alert engine and the ledger
// mutation funnel it feeds.
func New(cfg *config.Config, pool *pgxpool.Pool, geminiClient *gemini.Client) (*Bot, error) {
	b := &Bot{
		cfg:          cfg,
		settingsRepo: repository.NewSettingsRepository(pool),
		receiptRepo:  repository.NewReceiptRepository(pool),
		geminiClient: geminiClient,
		pending:      make(map[int64]pendingInput),
	}

	opts := []bot.Option{
		bot.WithMiddlewares(b.adminMiddleware),
		bot.WithDefaultHandler(b.defaultHandler),
	}

	telegramBot, err := bot.New(cfg.TelegramBotToken, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}
	b.bot = telegramBot

	ledgerRepo := repository.NewLedgerRepository(pool)
	b.alerts = alert.New(telegramBot, ledgerRepo, b.settingsRepo, cfg.AlertChatIDs)
	b.svc = ledger.NewService(ledgerRepo, b.alerts, b.alerts)

	b.registerHandlers()

	return b, nil
}

// Start begins polling for updates.
func (b *Bot) Start(ctx context.Context) {
	logger.Log.Info().Msg("Bot started polling")
	b.bot.Start(ctx)
}

// Alerts exposes the alert engine for the scheduler and shutdown path.
func (b *Bot) Alerts() *alert.Engine {
	return b.alerts
}

// Ledger exposes the mutation funnel for the passive listener and scheduler.
func (b *Bot) Ledger() *ledger.Service {
	return b.svc
}

// Settings exposes the settings store for the scheduler.
func (b *Bot) Settings() *repository.SettingsRepository {
	return b.settingsRepo
}

// Receipts exposes the receipt store for the passive listener.
func (b *Bot) Receipts() *repository.ReceiptRepository {
	return b.receiptRepo
}

// registerHandlers sets up command and callback handlers.
func (b *Bot) registerHandlers() {
	b.bot.RegisterHandler(bot.HandlerTypeMessageText, "/start", bot.MatchTypePrefix, b.handleStart)
	b.bot.RegisterHandler(bot.HandlerTypeMessageText, "/help", bot.MatchTypePrefix, b.handleHelp)
	b.bot.RegisterHandler(bot.HandlerTypeMessageText, "/chart", bot.MatchTypePrefix, b.handleChart)
	b.bot.RegisterHandler(bot.HandlerTypeMessageText, "/testalert", bot.MatchTypePrefix, b.handleTestAlert)

	exact := map[string]bot.HandlerFunc{
		cbBalance:         b.handleBalanceCallback,
		cbSettings:        b.handleSettingsCallback,
		cbStatus:          b.handleStatusCallback,
		cbHelp:            b.handleHelpCallback,
		cbBack:            b.handleBackCallback,
		cbTestAlert:       b.handleTestAlertCallback,
		cbToggleEmergency: b.handleToggleEmergencyCallback,
		cbReset:           b.handleResetCallback,
		cbResetConfirm:    b.handleResetConfirmCallback,
		cbSetTime:         b.handleSetTimeCallback,
		cbSetWLimit:       b.handleSetWithdrawalLimitCallback,
		cbSetBLimit:       b.handleSetBalanceLimitCallback,
		cbSetRate:         b.handleSetAlertRateCallback,
	}
	for data, handler := range exact {
		b.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, data, bot.MatchTypeExact, handler)
	}

	b.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, cbTimePrefix, bot.MatchTypePrefix, b.handleTimeValueCallback)
	b.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, cbWLimitPrefix, bot.MatchTypePrefix, b.handleWithdrawalLimitValueCallback)
	b.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, cbBLimitPrefix, bot.MatchTypePrefix, b.handleBalanceLimitValueCallback)
	b.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, cbRatePrefix, bot.MatchTypePrefix, b.handleAlertRateValueCallback)
}

// adminMiddleware drops every update that does not come from an admin.
func (b *Bot) adminMiddleware(next bot.HandlerFunc) bot.HandlerFunc {
	return func(ctx context.Context, tgBot *bot.Bot, update *tgmodels.Update) {
		userID := extractUserID(update)
		if userID == 0 {
			return
		}

		if !b.cfg.IsAdmin(userID) {
			logger.Log.Warn().
				Str("user_hash", logger.HashUserID(userID)).
				Msg("Blocked non-admin user")
			if update.Message != nil {
				_, _ = tgBot.SendMessage(ctx, &bot.SendMessageParams{
					ChatID: update.Message.Chat.ID,
					Text:   "⛔ Access denied.",
				})
			}
			return
		}

		logUserAction(userID, update)
		next(ctx, tgBot, update)
	}
}

// logUserAction logs the admin's input.
func logUserAction(userID int64, update *tgmodels.Update) {
	switch {
	case update.Message != nil:
		msg := update.Message
		event := logger.Log.Info().
			Str("user_hash", logger.HashUserID(userID)).
			Int64("chat_id", msg.Chat.ID)
		if msg.Text != "" {
			event = event.Str("text", msg.Text)
		}
		if len(msg.Photo) > 0 {
			event = event.Str("type", "photo")
		}
		if msg.Document != nil {
			event = event.Str("type", "document").Str("filename", msg.Document.FileName)
		}
		event.Msg("Admin input")

	case update.CallbackQuery != nil:
		logger.Log.Info().
			Str("user_hash", logger.HashUserID(userID)).
			Str("data", update.CallbackQuery.Data).
			Msg("Callback query")
	}
}

// extractUserID gets the user ID from various update types.
func extractUserID(update *tgmodels.Update) int64 {
	if update.Message != nil && update.Message.From != nil {
		return update.Message.From.ID
	}
	if update.CallbackQuery != nil {
		return update.CallbackQuery.From.ID
	}
	if update.EditedMessage != nil && update.EditedMessage.From != nil {
		return update.EditedMessage.From.ID
	}
	return 0
}

// setPending records which setting the chat is about to type in.
func (b *Bot) setPending(chatID int64, kind pendingInput) {
	b.pendingMu.Lock()
	defer b.pendingMu.Unlock()
	if kind == pendingNone {
		delete(b.pending, chatID)
		return
	}
	b.pending[chatID] = kind
}

// takePending pops the pending input kind for a chat.
func (b *Bot) takePending(chatID int64) pendingInput {
	b.pendingMu.Lock()
	defer b.pendingMu.Unlock()
	kind := b.pending[chatID]
	delete(b.pending, chatID)
	return kind
}

// defaultHandler routes non-command messages: settings input when one is
// pending, receipt photos, then free-text bank notifications.
func (b *Bot) defaultHandler(ctx context.Context, tgBot *bot.Bot, update *tgmodels.Update) {
	b.defaultHandlerCore(ctx, tgBot, update)
}

// defaultHandlerCore is the testable implementation of defaultHandler.
func (b *Bot) defaultHandlerCore(ctx context.Context, tg TelegramAPI, update *tgmodels.Update) {
	if update.Message == nil {
		return
	}
	msg := update.Message

	if len(msg.Photo) > 0 || isImageDocument(msg.Document) {
		b.handleReceiptCore(ctx, tg, update)
		return
	}

	if msg.Text == "" {
		return
	}

	if kind := b.takePending(msg.Chat.ID); kind != pendingNone {
		b.handleSettingsInputCore(ctx, tg, msg, kind)
		return
	}

	if b.handleBankTextCore(ctx, tg, msg) {
		return
	}

	_, err := tg.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:      msg.Chat.ID,
		Text:        "❓ I didn't recognize that. Send a bank notification like <code>+300,00₴ MONO Direct</code>, a receipt photo, or use the menu.",
		ParseMode:   tgmodels.ParseModeHTML,
		ReplyMarkup: mainMenuKeyboard(),
	})
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to send default response")
	}
}
