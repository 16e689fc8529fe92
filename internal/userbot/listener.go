// Package userbot runs a passive MTProto listener on the operational group
// chats. The regular bot only sees what is sent to it directly; the listener
// picks up bank notifications and check photos posted by other members of the
// monitored chats and books them automatically.
package userbot

import (
	"context"
	"fmt"

	"github.com/gotd/td/session"
	"github.com/gotd/td/telegram"
	"github.com/gotd/td/tg"
	"github.com/shopspring/decimal"
	"gitlab.com/yelinaung/payments-bot/internal/config"
	"gitlab.com/yelinaung/payments-bot/internal/gemini"
	"gitlab.com/yelinaung/payments-bot/internal/ledger"
	"gitlab.com/yelinaung/payments-bot/internal/logger"
)

// ReceiptStore persists the check photos the listener books.
type ReceiptStore interface {
	Save(ctx context.Context, fileID string, amount decimal.Decimal, rawText string) error
}

// Listener watches the top-up and checks chats through a user account session.
type Listener struct {
	appID       int
	appHash     string
	sessionFile string

	topUpChatID  int64
	checksChatID int64

	svc      *ledger.Service
	receipts ReceiptStore
	gemini   *gemini.Client

	api *tg.Client
}

// New builds a listener from the userbot section of the configuration.
// The Gemini client may be nil, check photos are then stored without an amount.
func New(cfg *config.Config, svc *ledger.Service, receipts ReceiptStore, gem *gemini.Client) *Listener {
	return &Listener{
		appID:        cfg.AppID,
		appHash:      cfg.AppHash,
		sessionFile:  cfg.SessionFile,
		topUpChatID:  bareChannelID(cfg.TopUpChatID),
		checksChatID: bareChannelID(cfg.ChecksChatID),
		svc:          svc,
		receipts:     receipts,
		gemini:       gem,
	}
}

// Run connects to Telegram and blocks until the context is cancelled.
// The session file must already hold an authorized user session; interactive
// login is done once, outside the bot process.
func (l *Listener) Run(ctx context.Context) error {
	dispatcher := tg.NewUpdateDispatcher()
	dispatcher.OnNewMessage(l.onNewMessage)
	dispatcher.OnNewChannelMessage(l.onNewChannelMessage)

	client := telegram.NewClient(l.appID, l.appHash, telegram.Options{
		SessionStorage: &session.FileStorage{Path: l.sessionFile},
		UpdateHandler:  dispatcher,
	})

	return client.Run(ctx, func(ctx context.Context) error {
		status, err := client.Auth().Status(ctx)
		if err != nil {
			return fmt.Errorf("auth status: %w", err)
		}
		if !status.Authorized {
			return fmt.Errorf("session %s is not authorized, log in first", l.sessionFile)
		}

		l.api = client.API()
		logger.Log.Info().
			Int64("top_up_chat", l.topUpChatID).
			Int64("checks_chat", l.checksChatID).
			Msg("Userbot listener connected")

		<-ctx.Done()
		return ctx.Err()
	})
}

// bareChannelID strips the -100 prefix Bot API uses for supergroup IDs.
// MTProto peers carry the bare positive ID.
func bareChannelID(id int64) int64 {
	if id < 0 {
		id = -id
		const marker = int64(1000000000000)
		if id > marker {
			id -= marker
		}
	}
	return id
}
