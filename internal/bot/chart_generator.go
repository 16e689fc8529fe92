package bot

import (
	"fmt"

	"github.com/go-analyze/charts"
	"github.com/shopspring/decimal"
	"gitlab.com/yelinaung/payments-bot/internal/models"
)

// GenerateBalanceChart renders the daily net balance series as a line chart.
// Returns PNG image as bytes.
func GenerateBalanceChart(series []models.DailyBalance) ([]byte, error) {
	if len(series) == 0 {
		return nil, fmt.Errorf("no balance history to chart")
	}

	labels := make([]string, 0, len(series))
	values := make([]float64, 0, len(series))
	running := decimal.Zero
	for _, point := range series {
		running = running.Add(point.Net)
		labels = append(labels, point.Day.Format("02.01"))
		values = append(values, running.InexactFloat64())
	}

	p, err := charts.LineRender(
		[][]float64{values},
		charts.TitleOptionFunc(charts.TitleOption{
			Text: "Balance, " + models.Currency,
		}),
		charts.XAxisLabelsOptionFunc(labels),
		charts.LegendLabelsOptionFunc([]string{"Balance"}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create chart: %w", err)
	}

	buf, err := p.Bytes()
	if err != nil {
		return nil, fmt.Errorf("failed to render chart: %w", err)
	}

	return buf, nil
}
