package bot

import (
	"context"
	"testing"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"gitlab.com/yelinaung/payments-bot/internal/alert"
	"gitlab.com/yelinaung/payments-bot/internal/config"
	"gitlab.com/yelinaung/payments-bot/internal/database"
	"gitlab.com/yelinaung/payments-bot/internal/ledger"
	"gitlab.com/yelinaung/payments-bot/internal/repository"
)

// TestDB is a convenience wrapper around database.TestDB for bot tests.
func TestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	pool := database.TestDB(t)

	ctx := context.Background()
	if err := database.RunMigrations(ctx, pool); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}
	database.ResetState(t, pool)

	t.Cleanup(func() {
		database.ResetState(t, pool)
	})

	return pool
}

// discardSender drops alert broadcasts so handler tests never depend on them.
type discardSender struct{}

func (discardSender) SendMessage(context.Context, *tgbot.SendMessageParams) (*models.Message, error) {
	return &models.Message{}, nil
}

// setupTestBot creates a Bot instance for testing with database.
//
//nolint:unused // Used in test files
func setupTestBot(t *testing.T, pool *pgxpool.Pool) *Bot {
	t.Helper()

	cfg := &config.Config{
		TelegramBotToken: "test-token",
		DatabaseURL:      "test-url",
		AdminUserIDs:     []int64{123456},
		AlertChatIDs:     []int64{-100999},
	}

	b := &Bot{
		cfg:          cfg,
		settingsRepo: repository.NewSettingsRepository(pool),
		receiptRepo:  repository.NewReceiptRepository(pool),
		geminiClient: nil, // No Gemini client for handler tests
		pending:      make(map[int64]pendingInput),
	}

	ledgerRepo := repository.NewLedgerRepository(pool)
	b.alerts = alert.New(discardSender{}, ledgerRepo, b.settingsRepo, cfg.AlertChatIDs)
	b.svc = ledger.NewService(ledgerRepo, b.alerts, b.alerts)

	t.Cleanup(b.alerts.Stop)

	return b
}

// callbackUpdate builds a callback query update as the client would send it.
//
//nolint:unused // Used in test files
func callbackUpdate(chatID int64, data string) *models.Update {
	return &models.Update{
		CallbackQuery: &models.CallbackQuery{
			ID:   "cb-1",
			Data: data,
			From: models.User{ID: chatID},
			Message: models.MaybeInaccessibleMessage{
				Message: &models.Message{
					ID:   42,
					Chat: models.Chat{ID: chatID},
				},
			},
		},
	}
}

// mustParseDecimal parses a decimal string or panics (for test data).
//
//nolint:unused // Used in test files
func mustParseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic("invalid decimal in test: " + s)
	}
	return d
}
