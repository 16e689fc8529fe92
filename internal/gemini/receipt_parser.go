package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"google.golang.org/genai"
)

// ParseReceiptTimeout is the timeout for Gemini API calls.
const ParseReceiptTimeout = 30 * time.Second

// ErrParseTimeout indicates the Gemini API call timed out.
var ErrParseTimeout = errors.New("receipt parsing timed out")

// ErrNoAmount indicates no payment amount could be extracted from the image.
var ErrNoAmount = errors.New("no amount extracted from receipt")

// ReceiptData contains the extracted data from a payment receipt image.
type ReceiptData struct {
	// Amount is the paid total, zero when unreadable.
	Amount decimal.Decimal
	// RawText is the visible text of the receipt, kept for audit.
	RawText    string
	Date       time.Time
	Confidence float64
}

// HasAmount reports whether a usable amount was extracted.
func (r *ReceiptData) HasAmount() bool {
	return !r.Amount.IsZero()
}

// receiptResponse is the JSON structure returned by Gemini.
type receiptResponse struct {
	Amount     string  `json:"amount"`
	RawText    string  `json:"raw_text"`
	Date       string  `json:"date"`
	Confidence float64 `json:"confidence"`
}

// ParseReceipt extracts the paid amount from a payment receipt image.
// It applies a 30-second timeout to the API call.
func (c *Client) ParseReceipt(ctx context.Context, imageBytes []byte, mimeType string) (*ReceiptData, error) {
	if len(imageBytes) == 0 {
		return nil, fmt.Errorf("image data is required")
	}

	if mimeType == "" {
		mimeType = "image/jpeg"
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, ParseReceiptTimeout)
	defer cancel()

	resp, err := c.generator.GenerateContent(timeoutCtx, ModelName, []*genai.Content{
		{
			Parts: []*genai.Part{
				{InlineData: &genai.Blob{MIMEType: mimeType, Data: imageBytes}},
				{Text: receiptPrompt},
			},
		},
	}, nil)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, ErrParseTimeout
		}
		return nil, fmt.Errorf("failed to generate content: %w", err)
	}

	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, fmt.Errorf("no response from Gemini")
	}

	var textContent string
	for _, part := range resp.Candidates[0].Content.Parts {
		if part.Text != "" {
			textContent += part.Text
		}
	}

	if textContent == "" {
		return nil, fmt.Errorf("empty response from Gemini")
	}

	data, err := parseReceiptResponse(textContent)
	if err != nil {
		return nil, err
	}

	if !data.HasAmount() {
		return data, ErrNoAmount
	}

	return data, nil
}

const receiptPrompt = `Analyze this payment receipt image and extract the following information.
Return ONLY a JSON object with no additional text or markdown formatting.

Required fields:
- amount: The total amount paid in UAH (numeric string, e.g., "1540.60")
- raw_text: All visible text from the receipt as a single string
- date: The payment date in YYYY-MM-DD format
- confidence: Your confidence in the extraction accuracy (0.0 to 1.0)

If a field cannot be determined, use an empty string for text fields, "0" for amount, or 0.0 for confidence.

Example response:
{"amount": "1540.60", "raw_text": "Переказ 1540.60 UAH ...", "date": "2026-08-30", "confidence": 0.95}`

func parseReceiptResponse(response string) (*ReceiptData, error) {
	response = strings.TrimSpace(response)
	response = strings.TrimPrefix(response, "```json")
	response = strings.TrimPrefix(response, "```")
	response = strings.TrimSuffix(response, "```")
	response = strings.TrimSpace(response)

	var rr receiptResponse
	if err := json.Unmarshal([]byte(response), &rr); err != nil {
		return nil, fmt.Errorf("failed to parse receipt response: %w", err)
	}

	data := &ReceiptData{
		RawText:    rr.RawText,
		Confidence: rr.Confidence,
	}

	if rr.Amount != "" && rr.Amount != "0" {
		amount, err := decimal.NewFromString(rr.Amount)
		if err != nil {
			return nil, fmt.Errorf("failed to parse amount %q: %w", rr.Amount, err)
		}
		data.Amount = amount
	}

	if rr.Date != "" {
		date, err := time.Parse("2006-01-02", rr.Date)
		if err == nil {
			data.Date = date
		}
	}

	return data, nil
}
