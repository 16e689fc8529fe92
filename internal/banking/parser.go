// Package banking extracts payment amounts from bank notification text.
package banking

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// Recognized notification shapes, most specific first:
//
//	"+300,00₴ MONO Direct"
//	"-150 грн"
//	"Зачисление: 200.50 UAH"
var amountPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)[-+]?\d+[.,]\d+\s*₴`),
	regexp.MustCompile(`(?i)[-+]?\d+\s*₴`),
	regexp.MustCompile(`(?i)[-+]?\d+[.,]\d+\s*(?:грн|UAH)`),
	regexp.MustCompile(`(?i)[-+]?\d+\s*(?:грн|UAH)`),
}

var numberRegex = regexp.MustCompile(`[-+]?\d+[.,]?\d*`)

// ExtractAmount finds the first currency-tagged amount in a bank
// notification. The sign is preserved: positive amounts are top-ups,
// negative ones withdrawals. Returns false when no amount is present.
func ExtractAmount(text string) (decimal.Decimal, bool) {
	for _, pattern := range amountPatterns {
		match := pattern.FindString(text)
		if match == "" {
			continue
		}

		numStr := numberRegex.FindString(match)
		if numStr == "" {
			continue
		}

		numStr = strings.ReplaceAll(numStr, ",", ".")
		amount, err := decimal.NewFromString(numStr)
		if err != nil {
			continue
		}
		return amount, true
	}
	return decimal.Decimal{}, false
}
