package report

import (
	"bytes"
	"fmt"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/cmansell/fairval/internal/models"
)

// renderProjectionChart renders a PNG of the forecast cash flows and their
// present values over the projection horizon. Two series: projected cash
// flow (blue solid) and present value (gray dashed). Returns raw PNG bytes.
func renderProjectionChart(result *models.ValuationResult) ([]byte, error) {
	series := result.Projection.Series
	if len(series) < 2 {
		return nil, fmt.Errorf("need at least 2 projection periods, got %d", len(series))
	}

	xValues := make([]float64, len(series))
	cashY := make([]float64, len(series))
	pvY := make([]float64, len(series))

	for i, p := range series {
		xValues[i] = float64(p.Period)
		cashY[i] = p.CashFlow
		pvY[i] = p.PresentValue
	}

	cashSeries := chart.ContinuousSeries{
		Name: "Projected FCF",
		Style: chart.Style{
			StrokeColor: drawing.ColorFromHex("2563eb"), // blue-600
			StrokeWidth: 2.5,
		},
		XValues: xValues,
		YValues: cashY,
	}

	pvSeries := chart.ContinuousSeries{
		Name: "Present Value",
		Style: chart.Style{
			StrokeColor:     drawing.ColorFromHex("9ca3af"), // gray-400
			StrokeWidth:     1.5,
			StrokeDashArray: []float64{5.0, 3.0},
		},
		XValues: xValues,
		YValues: pvY,
	}

	graph := chart.Chart{
		Title:  fmt.Sprintf("%s Cash Flow Projection", result.Security.Symbol),
		Width:  900,
		Height: 400,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 10, Right: 20, Bottom: 10},
		},
		XAxis: chart.XAxis{
			TickPosition: chart.TickPositionBetweenTicks,
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return fmt.Sprintf("Y%.0f", f)
				}
				return ""
			},
		},
		YAxis: chart.YAxis{
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return formatCompact(f)
				}
				return ""
			},
		},
		Series: []chart.Series{
			cashSeries,
			pvSeries,
		},
	}

	graph.Elements = []chart.Renderable{
		chart.LegendLeft(&graph),
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("chart render failed: %w", err)
	}
	return buf.Bytes(), nil
}

// formatCompact abbreviates large currency amounts for axis labels.
func formatCompact(v float64) string {
	abs := v
	if abs < 0 {
		abs = -abs
	}
	switch {
	case abs >= 1e9:
		return fmt.Sprintf("%.1fB", v/1e9)
	case abs >= 1e6:
		return fmt.Sprintf("%.1fM", v/1e6)
	case abs >= 1e3:
		return fmt.Sprintf("%.0fk", v/1e3)
	default:
		return fmt.Sprintf("%.0f", v)
	}
}
