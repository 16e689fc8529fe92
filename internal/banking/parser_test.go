package banking

import (
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestExtractAmount(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  string
		found bool
	}{
		{
			name:  "mono top-up with hryvnia sign",
			input: "+300,00₴ MONO Direct",
			want:  "300.00",
			found: true,
		},
		{
			name:  "withdrawal with hryvnia sign",
			input: "-150,50₴ Переказ",
			want:  "-150.50",
			found: true,
		},
		{
			name:  "integer amount with грн",
			input: "-150 грн",
			want:  "-150",
			found: true,
		},
		{
			name:  "decimal amount with UAH",
			input: "Зачисление: 200.50 UAH",
			want:  "200.50",
			found: true,
		},
		{
			name:  "uah suffix is case insensitive",
			input: "+75.25 uah",
			want:  "75.25",
			found: true,
		},
		{
			name:  "integer amount with hryvnia sign no space",
			input: "+500₴",
			want:  "500",
			found: true,
		},
		{
			name:  "amount embedded in a long notification",
			input: "Карта *1234. Поповнення +1250,75₴ від ФОП Іванов. Баланс 3000₴",
			want:  "1250.75",
			found: true,
		},
		{
			name:  "comma decimal separator",
			input: "+19,99 грн",
			want:  "19.99",
			found: true,
		},
		{
			name:  "no currency marker",
			input: "Your code is 123456",
			found: false,
		},
		{
			name:  "plain number without currency",
			input: "250.00",
			found: false,
		},
		{
			name:  "empty string",
			input: "",
			found: false,
		},
		{
			name:  "currency word without number",
			input: "грн грн грн",
			found: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			amount, found := ExtractAmount(tt.input)
			require.Equal(t, tt.found, found)
			if tt.found {
				require.True(t, amount.Equal(decimal.RequireFromString(tt.want)),
					"got %s, want %s", amount, tt.want)
			}
		})
	}
}

func TestExtractAmountPrefersDecimalMatch(t *testing.T) {
	t.Parallel()

	// The integer pattern must not truncate "300,50₴" to "300".
	amount, found := ExtractAmount("+300,50₴ MONO")
	require.True(t, found)
	require.True(t, amount.Equal(decimal.RequireFromString("300.50")))
}

func TestExtractAmountRoundTrip(t *testing.T) {
	t.Parallel()

	suffixes := []string{"₴", " грн", " UAH"}

	rapid.Check(t, func(t *rapid.T) {
		units := rapid.Int64Range(-99999, 99999).Draw(t, "units")
		cents := rapid.Int64Range(0, 99).Draw(t, "cents")
		suffix := rapid.SampledFrom(suffixes).Draw(t, "suffix")

		want := decimal.NewFromInt(units)
		if units < 0 {
			want = want.Sub(decimal.NewFromInt(cents).Div(decimal.NewFromInt(100)))
		} else {
			want = want.Add(decimal.NewFromInt(cents).Div(decimal.NewFromInt(100)))
		}

		sign := ""
		if units >= 0 {
			sign = "+"
		}
		text := fmt.Sprintf("%s%s,%02d%s Оплата", sign, decimal.NewFromInt(units), cents, suffix)

		got, found := ExtractAmount(text)
		if !found {
			t.Fatalf("no amount found in %q", text)
		}
		if !got.Equal(want) {
			t.Fatalf("extracted %s from %q, want %s", got, text, want)
		}
	})
}
