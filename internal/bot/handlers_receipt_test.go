package bot

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-telegram/bot/models"
	"github.com/stretchr/testify/require"
	"gitlab.com/yelinaung/payments-bot/internal/bot/mocks"
	"gitlab.com/yelinaung/payments-bot/internal/gemini"
	"google.golang.org/genai"
)

// stubGenerator returns a fixed Gemini answer.
type stubGenerator struct {
	text string
	err  error
}

func (s *stubGenerator) GenerateContent(
	ctx context.Context,
	model string,
	contents []*genai.Content,
	config *genai.GenerateContentConfig,
) (*genai.GenerateContentResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: &genai.Content{Parts: []*genai.Part{{Text: s.text}}}},
		},
	}, nil
}

func photoUpdate(chatID int64, fileID string) *models.Update {
	return &models.Update{
		Message: &models.Message{
			ID:   9,
			Chat: models.Chat{ID: chatID},
			From: &models.User{ID: chatID},
			Photo: []models.PhotoSize{
				{FileID: fileID + "-small", Width: 90, Height: 90},
				{FileID: fileID, Width: 800, Height: 800},
			},
		},
	}
}

// fileServer serves fake photo bytes for download.
func fileServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte{0xFF, 0xD8, 0xFF, 0xE0})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestHandleReceiptCore(t *testing.T) {
	pool := TestDB(t)
	b := setupTestBot(t, pool)
	ctx := context.Background()

	t.Run("recognized check is booked and stored", func(t *testing.T) {
		b.geminiClient = gemini.NewClientWithGenerator(&stubGenerator{
			text: `{"amount": "450.50", "raw_text": "Переказ 450.50 UAH", "date": "2026-08-30", "confidence": 0.9}`,
		})
		mockBot := mocks.NewMockBot()
		mockBot.FileDownloadLinkToReturn = fileServer(t).URL

		require.NoError(t, b.svc.AddWithdrawal(ctx, mustParseDecimal("-450.50")))

		b.handleReceiptCore(ctx, mockBot, photoUpdate(12345, "photo-1"))

		require.Contains(t, mockBot.LastSentMessage().Text, "Check recorded")
		require.Contains(t, mockBot.LastSentMessage().Text, "450.50 UAH")

		// The check paired off the withdrawal.
		unmatched, err := b.svc.UnmatchedWithdrawals(ctx)
		require.NoError(t, err)
		require.Equal(t, 0, unmatched)

		receipts, err := b.receiptRepo.Recent(ctx, 1)
		require.NoError(t, err)
		require.Len(t, receipts, 1)
		require.Equal(t, "photo-1", receipts[0].FileID)
		require.True(t, receipts[0].Amount.Equal(mustParseDecimal("450.50")))
	})

	t.Run("amount outside the accepted window is rejected", func(t *testing.T) {
		b.geminiClient = gemini.NewClientWithGenerator(&stubGenerator{
			text: `{"amount": "999999", "raw_text": "мусор", "confidence": 0.2}`,
		})
		mockBot := mocks.NewMockBot()
		mockBot.FileDownloadLinkToReturn = fileServer(t).URL

		snapBefore, err := b.svc.Balance(ctx)
		require.NoError(t, err)

		b.handleReceiptCore(ctx, mockBot, photoUpdate(12345, "photo-2"))

		require.Contains(t, mockBot.LastSentMessage().Text, "outside the accepted check range")

		snapAfter, err := b.svc.Balance(ctx)
		require.NoError(t, err)
		require.True(t, snapBefore.Checks.Equal(snapAfter.Checks), "rejected check must not book")
	})

	t.Run("unreadable photo is stored with zero amount", func(t *testing.T) {
		b.geminiClient = gemini.NewClientWithGenerator(&stubGenerator{
			text: `{"amount": "0", "raw_text": "размыто", "confidence": 0.05}`,
		})
		mockBot := mocks.NewMockBot()
		mockBot.FileDownloadLinkToReturn = fileServer(t).URL

		b.handleReceiptCore(ctx, mockBot, photoUpdate(12345, "photo-3"))

		require.Contains(t, mockBot.LastSentMessage().Text, "Could not read an amount")

		receipts, err := b.receiptRepo.Recent(ctx, 1)
		require.NoError(t, err)
		require.Len(t, receipts, 1)
		require.True(t, receipts[0].Amount.IsZero())
		require.Equal(t, "размыто", receipts[0].RawText)
	})

	t.Run("without gemini configured the photo is declined", func(t *testing.T) {
		b.geminiClient = nil
		mockBot := mocks.NewMockBot()

		b.handleReceiptCore(ctx, mockBot, photoUpdate(12345, "photo-4"))

		require.Equal(t, 1, mockBot.SentMessageCount())
		require.Contains(t, mockBot.LastSentMessage().Text, "not configured")
	})
}

func TestIsImageDocument(t *testing.T) {
	t.Parallel()

	require.True(t, isImageDocument(&models.Document{MimeType: "image/png"}))
	require.True(t, isImageDocument(&models.Document{MimeType: "image/jpeg"}))
	require.False(t, isImageDocument(&models.Document{MimeType: "application/pdf"}))
	require.False(t, isImageDocument(nil))
}

func TestReceiptAttachment(t *testing.T) {
	t.Parallel()

	t.Run("largest photo size wins", func(t *testing.T) {
		t.Parallel()
		fileID, mime := receiptAttachment(photoUpdate(1, "big").Message)
		require.Equal(t, "big", fileID)
		require.Equal(t, "image/jpeg", mime)
	})

	t.Run("image document", func(t *testing.T) {
		t.Parallel()
		fileID, mime := receiptAttachment(&models.Message{
			Document: &models.Document{FileID: "doc-1", MimeType: "image/png"},
		})
		require.Equal(t, "doc-1", fileID)
		require.Equal(t, "image/png", mime)
	})

	t.Run("no attachment", func(t *testing.T) {
		t.Parallel()
		fileID, _ := receiptAttachment(&models.Message{Text: "hi"})
		require.Empty(t, fileID)
	})
}
