package report

import (
	"bytes"
	"encoding/csv"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cmansell/fairval/internal/common"
	"github.com/cmansell/fairval/internal/models"
)

func sampleReport() *models.ValuationReport {
	projection := models.CashFlowProjection{
		Series: []models.ProjectedCashFlow{
			{Period: 1, CashFlow: 105, GrowthRate: 0.05, PresentValue: 96},
			{Period: 2, CashFlow: 110, GrowthRate: 0.05, PresentValue: 92},
			{Period: 3, CashFlow: 116, GrowthRate: 0.05, PresentValue: 89},
		},
		TerminalValue:   1900,
		PVTerminal:      800,
		EnterpriseValue: 1077,
	}

	return &models.ValuationReport{
		RunID:     "run-1",
		Portfolio: "growth",
		StartedAt: time.Now().UTC(),
		Elapsed:   1500 * time.Millisecond,
		Entries: []models.ValuationEntry{
			{
				Security: models.ParseSecurityIdentifier("AAPL"),
				Result: &models.ValuationResult{
					Security:       models.ParseSecurityIdentifier("AAPL"),
					Name:           "Apple Inc",
					CurrentPrice:   190,
					IntrinsicValue: 215.5,
					UpsideDownside: 0.134,
					IRR:            0.162,
					Verdict:        models.VerdictUndervalued,
					Confidence:     models.ConfidenceFull,
					Rate: models.ResolvedRate{
						WACC: 0.095, Industry: "Consumer Electronics",
						Country: models.CountryUS, Source: models.RateSourceExact,
					},
					Projection: projection,
				},
			},
			{
				Security: models.ParseSecurityIdentifier("XOM"),
				Result: &models.ValuationResult{
					Security:       models.ParseSecurityIdentifier("XOM"),
					Name:           "Exxon Mobil Corporation International",
					CurrentPrice:   110,
					IntrinsicValue: 95,
					UpsideDownside: -0.136,
					IRR:            0.08,
					Verdict:        models.VerdictOvervalued,
					Confidence:     models.ConfidenceReduced,
					Rate: models.ResolvedRate{
						WACC: 0.0892, Industry: "Energy",
						Country: models.CountryUS, Source: models.RateSourceDefault,
					},
					Projection: projection,
				},
			},
			{
				Security: models.ParseSecurityIdentifier("BAD_TICKER"),
				ErrText:  "BAD_TICKER: data unavailable: fundamentals not found",
			},
		},
	}
}

func newTestService(t *testing.T) *Service {
	t.Helper()
	return NewService(common.ReportConfig{OutputDir: t.TempDir()}, common.NewSilentLogger())
}

func TestRenderText(t *testing.T) {
	svc := newTestService(t)
	out := svc.RenderText(sampleReport())

	assert.Contains(t, out, "Valuation Report: growth")
	assert.Contains(t, out, "AAPL")
	assert.Contains(t, out, "undervalued")
	assert.Contains(t, out, "overvalued*", "reduced confidence is starred")
	assert.Contains(t, out, "BAD_TICKER")
	assert.Contains(t, out, "FAILED: BAD_TICKER: data unavailable")
	assert.Contains(t, out, "Securities: 2 valued, 1 failed")
	assert.Contains(t, out, "Verdicts:   1 undervalued, 0 fair, 1 overvalued")
	assert.Contains(t, out, "reduced confidence: no balance-sheet data")

	longName := "Exxon Mobil Corporation International"
	assert.NotContains(t, out, longName, "long names are truncated")
}

func TestRenderTextNoFailures(t *testing.T) {
	report := sampleReport()
	report.Entries = report.Entries[:1]
	report.Portfolio = ""

	svc := newTestService(t)
	out := svc.RenderText(report)

	assert.Contains(t, out, "Valuation Report\n")
	assert.Contains(t, out, "Securities: 1 valued, 0 failed")
	assert.NotContains(t, out, "FAILED")
	assert.NotContains(t, out, "reduced confidence")
}

func TestWriteCSV(t *testing.T) {
	svc := newTestService(t)

	path, err := svc.WriteCSV(sampleReport(), "report.csv")
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	rows, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 4, "header plus one row per entry")

	assert.Equal(t, "symbol", rows[0][0])
	assert.Equal(t, "AAPL", rows[1][0])
	assert.Equal(t, "215.50", rows[1][3])
	assert.Equal(t, "undervalued", rows[1][6])
	assert.Equal(t, "exact", rows[1][8])

	// Failure row carries only symbol and error.
	last := rows[3]
	assert.Equal(t, "BAD_TICKER", last[0])
	assert.Contains(t, last[len(last)-1], "data unavailable")
	assert.Empty(t, last[2])
}

func TestWriteChart(t *testing.T) {
	svc := newTestService(t)
	report := sampleReport()

	path, err := svc.WriteChart(report.Entries[0].Result, "aapl.png")
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Greater(t, len(data), 8)
	assert.True(t, bytes.HasPrefix(data, []byte("\x89PNG")), "output is a PNG")
	assert.True(t, strings.HasSuffix(path, "aapl.png"))
}

func TestWriteChartTooFewPeriods(t *testing.T) {
	svc := newTestService(t)
	result := &models.ValuationResult{
		Security: models.ParseSecurityIdentifier("X"),
		Projection: models.CashFlowProjection{
			Series: []models.ProjectedCashFlow{{Period: 1, CashFlow: 100}},
		},
	}

	_, err := svc.WriteChart(result, "x.png")
	assert.Error(t, err)
}

func TestFormatCompact(t *testing.T) {
	assert.Equal(t, "1.5B", formatCompact(1.5e9))
	assert.Equal(t, "12.3M", formatCompact(12.3e6))
	assert.Equal(t, "45k", formatCompact(45_000))
	assert.Equal(t, "950", formatCompact(950))
	assert.Equal(t, "-2.0B", formatCompact(-2e9))
}
