// Package main is the entry point for the payments bookkeeping Telegram bot.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"gitlab.com/yelinaung/payments-bot/internal/bot"
	"gitlab.com/yelinaung/payments-bot/internal/config"
	"gitlab.com/yelinaung/payments-bot/internal/database"
	"gitlab.com/yelinaung/payments-bot/internal/gemini"
	"gitlab.com/yelinaung/payments-bot/internal/logger"
	"gitlab.com/yelinaung/payments-bot/internal/scheduler"
	"gitlab.com/yelinaung/payments-bot/internal/userbot"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "version" {
		fmt.Printf("payments-bot %s (commit: %s, built: %s)\n", version, commit, date)
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to load config")
	}

	logger.SetLevel(cfg.LogLevel)
	logger.InitHashSalt()

	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer pool.Close()

	if err := database.RunMigrations(ctx, pool); err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to run migrations")
	}

	logger.Log.Info().Msg("Database initialized successfully")

	var geminiClient *gemini.Client
	if cfg.GeminiAPIKey != "" {
		geminiClient, err = gemini.NewClient(ctx, cfg.GeminiAPIKey)
		if err != nil {
			logger.Log.Fatal().Err(err).Msg("Failed to create Gemini client")
		}
	} else {
		logger.Log.Warn().Msg("GEMINI_API_KEY not set, receipt recognition disabled")
	}

	telegramBot, err := bot.New(cfg, pool, geminiClient)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to create bot")
	}

	go telegramBot.Alerts().Run(ctx)
	go scheduler.New(telegramBot.Settings(), telegramBot.Ledger(), cfg.Location()).Run(ctx)

	if cfg.UserbotEnabled() {
		listener := userbot.New(cfg, telegramBot.Ledger(), telegramBot.Receipts(), geminiClient)
		go func() {
			if err := listener.Run(ctx); err != nil && ctx.Err() == nil {
				logger.Log.Error().Err(err).Msg("Userbot listener stopped")
			}
		}()
	} else {
		logger.Log.Info().Msg("Userbot credentials not set, chat listener disabled")
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan
		logger.Log.Info().Msg("Shutting down...")
		telegramBot.Alerts().Stop()
		cancel()
	}()

	telegramBot.Start(ctx)
}
