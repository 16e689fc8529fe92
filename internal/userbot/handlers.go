package userbot

import (
	"bytes"
	"context"
	"fmt"
	"strconv"

	"github.com/gotd/td/telegram/downloader"
	"github.com/gotd/td/tg"
	"github.com/shopspring/decimal"
	"gitlab.com/yelinaung/payments-bot/internal/banking"
	"gitlab.com/yelinaung/payments-bot/internal/gemini"
	"gitlab.com/yelinaung/payments-bot/internal/logger"
	"gitlab.com/yelinaung/payments-bot/internal/models"
)

// onNewMessage handles traffic in basic (non-supergroup) chats.
func (l *Listener) onNewMessage(ctx context.Context, e tg.Entities, u *tg.UpdateNewMessage) error {
	msg, ok := u.Message.(*tg.Message)
	if !ok || msg.Out {
		return nil
	}
	l.route(ctx, peerID(msg.PeerID), msg)
	return nil
}

// onNewChannelMessage handles traffic in supergroups and channels.
func (l *Listener) onNewChannelMessage(ctx context.Context, e tg.Entities, u *tg.UpdateNewChannelMessage) error {
	msg, ok := u.Message.(*tg.Message)
	if !ok || msg.Out {
		return nil
	}
	l.route(ctx, peerID(msg.PeerID), msg)
	return nil
}

// route dispatches a message by the chat it arrived in. Everything outside
// the two monitored chats is ignored.
func (l *Listener) route(ctx context.Context, chatID int64, msg *tg.Message) {
	switch chatID {
	case l.topUpChatID:
		l.handleBankMessage(ctx, msg)
	case l.checksChatID:
		l.handleCheckMessage(ctx, msg)
	}
}

// handleBankMessage books a bank notification posted to the top-up chat.
// Screenshotted notifications carry no text, so a photo with no parseable
// caption falls back to OCR.
func (l *Listener) handleBankMessage(ctx context.Context, msg *tg.Message) {
	amount, ok := banking.ExtractAmount(msg.Message)
	if !ok {
		amount, ok = l.bankAmountFromPhoto(ctx, msg)
	}
	if !ok || amount.IsZero() {
		return
	}

	var err error
	if amount.IsPositive() {
		err = l.svc.AddIncome(ctx, amount)
	} else {
		err = l.svc.AddWithdrawal(ctx, amount)
	}
	if err != nil {
		logger.Log.Error().Err(err).Str("amount", amount.String()).Msg("Userbot failed to book bank notification")
		return
	}
	logger.Log.Info().Str("amount", amount.String()).Msg("Userbot booked bank notification")
}

// bankAmountFromPhoto reads a screenshotted bank notification.
func (l *Listener) bankAmountFromPhoto(ctx context.Context, msg *tg.Message) (decimal.Decimal, bool) {
	photo := messagePhoto(msg)
	if photo == nil || l.gemini == nil {
		return decimal.Zero, false
	}

	imageBytes, err := l.downloadPhoto(ctx, photo)
	if err != nil {
		logger.Log.Error().Err(err).Int64("photo_id", photo.ID).Msg("Userbot failed to download bank screenshot")
		return decimal.Zero, false
	}

	data, err := l.gemini.ParseReceipt(ctx, imageBytes, "image/jpeg")
	if err != nil || !data.HasAmount() {
		logger.Log.Warn().AnErr("error", err).Int64("photo_id", photo.ID).Msg("Userbot could not read an amount from bank screenshot")
		return decimal.Zero, false
	}
	if amount, ok := banking.ExtractAmount(data.RawText); ok {
		return amount, true
	}
	// The screenshot amount alone does not carry a direction; treat it as income,
	// matching how the bank renders top-ups without a sign.
	return data.Amount, true
}

// handleCheckMessage runs OCR on a check photo posted to the checks chat.
// Every photo leaves a receipt record: unreadable ones with a zero amount,
// so the admin can audit what the listener could not book.
func (l *Listener) handleCheckMessage(ctx context.Context, msg *tg.Message) {
	photo := messagePhoto(msg)
	if photo == nil {
		return
	}
	fileID := strconv.FormatInt(photo.ID, 10)

	if l.gemini == nil {
		logger.Log.Warn().Msg("Check photo seen but receipt recognition is not configured")
		l.saveReceipt(ctx, fileID, decimal.Zero, "")
		return
	}

	imageBytes, err := l.downloadPhoto(ctx, photo)
	if err != nil {
		logger.Log.Error().Err(err).Int64("photo_id", photo.ID).Msg("Userbot failed to download check photo")
		return
	}

	data, err := l.gemini.ParseReceipt(ctx, imageBytes, "image/jpeg")
	l.bookCheck(ctx, fileID, data, err)
}

// bookCheck books a recognized check and persists the receipt record.
func (l *Listener) bookCheck(ctx context.Context, fileID string, data *gemini.ReceiptData, parseErr error) {
	var rawText string
	if data != nil {
		rawText = data.RawText
	}

	if parseErr != nil || data == nil || !data.HasAmount() {
		logger.Log.Warn().AnErr("error", parseErr).Str("file_id", fileID).Msg("Userbot could not read an amount from check photo")
		l.saveReceipt(ctx, fileID, decimal.Zero, rawText)
		return
	}

	if data.Amount.LessThan(models.MinCheckAmount) || data.Amount.GreaterThan(models.MaxCheckAmount) {
		logger.Log.Warn().Str("amount", data.Amount.String()).Msg("Userbot ignored check outside accepted range")
		return
	}

	if err := l.svc.AddCheck(ctx, data.Amount); err != nil {
		logger.Log.Error().Err(err).Str("amount", data.Amount.String()).Msg("Userbot failed to book check")
		return
	}
	l.saveReceipt(ctx, fileID, data.Amount, rawText)
	logger.Log.Info().Str("amount", data.Amount.String()).Msg("Userbot booked check")
}

// saveReceipt persists a receipt record; storage failures do not undo the booking.
func (l *Listener) saveReceipt(ctx context.Context, fileID string, amount decimal.Decimal, rawText string) {
	if err := l.receipts.Save(ctx, fileID, amount, rawText); err != nil {
		logger.Log.Error().Err(err).Str("file_id", fileID).Msg("Userbot failed to store receipt record")
	}
}

// downloadPhoto fetches the largest available size of a photo.
func (l *Listener) downloadPhoto(ctx context.Context, photo *tg.Photo) ([]byte, error) {
	sizeType := largestSizeType(photo.Sizes)
	if sizeType == "" {
		return nil, fmt.Errorf("photo %d has no downloadable sizes", photo.ID)
	}

	var buf bytes.Buffer
	_, err := downloader.NewDownloader().Download(l.api, &tg.InputPhotoFileLocation{
		ID:            photo.ID,
		AccessHash:    photo.AccessHash,
		FileReference: photo.FileReference,
		ThumbSize:     sizeType,
	}).Stream(ctx, &buf)
	if err != nil {
		return nil, fmt.Errorf("download photo %d: %w", photo.ID, err)
	}
	return buf.Bytes(), nil
}

// messagePhoto extracts the photo from a message, if any.
func messagePhoto(msg *tg.Message) *tg.Photo {
	media, ok := msg.Media.(*tg.MessageMediaPhoto)
	if !ok {
		return nil
	}
	photoClass, ok := media.GetPhoto()
	if !ok {
		return nil
	}
	photo, ok := photoClass.(*tg.Photo)
	if !ok {
		return nil
	}
	return photo
}

// largestSizeType picks the size type with the biggest resolution.
func largestSizeType(sizes []tg.PhotoSizeClass) string {
	var best string
	bestArea := -1
	for _, s := range sizes {
		switch size := s.(type) {
		case *tg.PhotoSize:
			if area := size.W * size.H; area > bestArea {
				bestArea = area
				best = size.Type
			}
		case *tg.PhotoSizeProgressive:
			if area := size.W * size.H; area > bestArea {
				bestArea = area
				best = size.Type
			}
		}
	}
	return best
}

// peerID returns the bare numeric ID of any peer kind.
func peerID(peer tg.PeerClass) int64 {
	switch p := peer.(type) {
	case *tg.PeerChannel:
		return p.ChannelID
	case *tg.PeerChat:
		return p.ChatID
	case *tg.PeerUser:
		return p.UserID
	}
	return 0
}
