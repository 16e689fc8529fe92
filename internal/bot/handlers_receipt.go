package bot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/shopspring/decimal"
	"gitlab.com/yelinaung/payments-bot/internal/gemini"
	"gitlab.com/yelinaung/payments-bot/internal/logger"
	appmodels "gitlab.com/yelinaung/payments-bot/internal/models"
)

const downloadTimeout = 30 * time.Second

// isImageDocument reports whether an attached document is a photo sent as a file.
func isImageDocument(doc *models.Document) bool {
	return doc != nil && strings.HasPrefix(doc.MimeType, "image/")
}

// handleReceiptCore runs OCR on an attached check photo and books the amount.
func (b *Bot) handleReceiptCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	msg := update.Message
	chatID := msg.Chat.ID

	if b.geminiClient == nil {
		b.reply(ctx, tg, chatID, "🖼️ Receipt recognition is not configured.", nil)
		return
	}

	fileID, mimeType := receiptAttachment(msg)
	if fileID == "" {
		return
	}

	b.reply(ctx, tg, chatID, "🔍 Reading the check...", nil)

	imageBytes, err := b.downloadFile(ctx, tg, fileID)
	if err != nil {
		logger.Log.Error().Err(err).Str("chat", logger.HashChatID(chatID)).Msg("Failed to download receipt photo")
		b.reply(ctx, tg, chatID, "❌ Could not download the photo, try again.", nil)
		return
	}

	data, err := b.geminiClient.ParseReceipt(ctx, imageBytes, mimeType)
	if err != nil || !data.HasAmount() {
		if err != nil {
			logger.Log.Warn().Err(err).Msg("Receipt recognition failed")
		}
		// Keep the photo on record even when the amount is unreadable.
		rawText := ""
		if data != nil {
			rawText = data.RawText
		}
		if serr := b.receiptRepo.Save(ctx, fileID, decimal.Zero, rawText); serr != nil {
			logger.Log.Error().Err(serr).Msg("Failed to store unrecognized receipt")
		}
		b.reply(ctx, tg, chatID, "❌ Could not read an amount from the check. Send the amount as text if needed.", nil)
		return
	}

	if err := b.bookCheck(ctx, fileID, data); err != nil {
		if errors.Is(err, errCheckOutOfRange) {
			b.reply(ctx, tg, chatID, fmt.Sprintf("⚠️ Amount %s %s is outside the accepted check range (%s-%s).",
				data.Amount.StringFixed(2), appmodels.Currency, appmodels.MinCheckAmount, appmodels.MaxCheckAmount), nil)
			return
		}
		logger.Log.Error().Err(err).Msg("Failed to record check")
		b.reply(ctx, tg, chatID, "❌ Failed to record the check.", nil)
		return
	}

	snap, serr := b.svc.Balance(ctx)
	if serr != nil {
		logger.Log.Error().Err(serr).Msg("Failed to read balance after check")
		b.reply(ctx, tg, chatID, fmt.Sprintf("✅ Check recorded: <b>%s %s</b>", data.Amount.StringFixed(2), appmodels.Currency), nil)
		return
	}
	b.reply(ctx, tg, chatID, fmt.Sprintf("✅ Check recorded: <b>%s %s</b>\n💰 Balance: <b>%s %s</b>",
		data.Amount.StringFixed(2), appmodels.Currency, snap.Balance().StringFixed(2), appmodels.Currency), nil)
}

var errCheckOutOfRange = errors.New("check amount outside accepted range")

// bookCheck validates the recognized amount and writes both the ledger entry
// and the receipt record.
func (b *Bot) bookCheck(ctx context.Context, fileID string, data *gemini.ReceiptData) error {
	if data.Amount.LessThan(appmodels.MinCheckAmount) || data.Amount.GreaterThan(appmodels.MaxCheckAmount) {
		return errCheckOutOfRange
	}
	if err := b.svc.AddCheck(ctx, data.Amount); err != nil {
		return err
	}
	return b.receiptRepo.Save(ctx, fileID, data.Amount, data.RawText)
}

// receiptAttachment picks the file to OCR from a message. Photos come in
// several resolutions, the last entry is the largest.
func receiptAttachment(msg *models.Message) (fileID, mimeType string) {
	if len(msg.Photo) > 0 {
		return msg.Photo[len(msg.Photo)-1].FileID, "image/jpeg"
	}
	if isImageDocument(msg.Document) {
		return msg.Document.FileID, msg.Document.MimeType
	}
	return "", ""
}

// downloadFile fetches a Telegram file by its ID.
func (b *Bot) downloadFile(ctx context.Context, tg TelegramAPI, fileID string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, downloadTimeout)
	defer cancel()

	file, err := tg.GetFile(ctx, &bot.GetFileParams{FileID: fileID})
	if err != nil {
		return nil, fmt.Errorf("get file: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, tg.FileDownloadLink(file), nil)
	if err != nil {
		return nil, fmt.Errorf("build download request: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download file: unexpected status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
