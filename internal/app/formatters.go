package app

import (
	"fmt"
	"strings"

	"github.com/cmansell/fairval/internal/models"
)

// formatValuationResult formats one valuation as markdown
func formatValuationResult(r *models.ValuationResult) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("# Valuation: %s", r.Security.Symbol))
	if r.Name != "" {
		sb.WriteString(fmt.Sprintf(" (%s)", r.Name))
	}
	sb.WriteString("\n\n")

	sb.WriteString(fmt.Sprintf("**Verdict:** %s\n", strings.ToUpper(string(r.Verdict))))
	sb.WriteString(fmt.Sprintf("**Current Price:** %.2f\n", r.CurrentPrice))
	sb.WriteString(fmt.Sprintf("**Intrinsic Value:** %.2f per share (%+.1f%%)\n", r.IntrinsicValue, r.UpsideDownside*100))
	sb.WriteString(fmt.Sprintf("**IRR at current price:** %.2f%%\n", r.IRR*100))
	sb.WriteString(fmt.Sprintf("**Discount Rate:** %.2f%% (%s match: %s, %s)\n",
		r.Rate.WACC*100, r.Rate.Source, r.Rate.Industry, r.Rate.Country))
	if r.Confidence == models.ConfidenceReduced {
		sb.WriteString("**Confidence:** reduced (no balance-sheet data; enterprise value used directly)\n")
	}
	sb.WriteString("\n")

	sb.WriteString("## Projection\n\n")
	sb.WriteString(fmt.Sprintf("- Latest FCF: %s\n", formatMoney(r.LatestFCF)))
	sb.WriteString(fmt.Sprintf("- Terminal value: %s (PV %s)\n",
		formatMoney(r.Projection.TerminalValue), formatMoney(r.Projection.PVTerminal)))
	sb.WriteString(fmt.Sprintf("- Enterprise value: %s\n", formatMoney(r.Projection.EnterpriseValue)))
	sb.WriteString(fmt.Sprintf("- Perpetual growth: %.2f%%\n", r.PerpetualGrowthRate*100))
	if len(r.GrowthRates) > 0 {
		sb.WriteString(fmt.Sprintf("- Growth path: %.1f%% in year 1 tapering to %.1f%% in year %d\n",
			r.GrowthRates[0]*100, r.GrowthRates[len(r.GrowthRates)-1]*100, len(r.GrowthRates)))
	}

	return sb.String()
}

// formatValuationReport formats a batch report as a markdown table
func formatValuationReport(report *models.ValuationReport) string {
	var sb strings.Builder

	if report.Portfolio != "" {
		sb.WriteString(fmt.Sprintf("# Portfolio Valuation: %s\n\n", report.Portfolio))
	} else {
		sb.WriteString("# Batch Valuation\n\n")
	}

	sb.WriteString("| Symbol | Price | Intrinsic | Upside | IRR | Verdict | Rate |\n")
	sb.WriteString("|--------|-------:|----------:|-------:|-----:|---------|------|\n")

	var failures []models.ValuationEntry
	for _, entry := range report.Entries {
		if entry.Failed() {
			failures = append(failures, entry)
			continue
		}
		r := entry.Result
		verdict := string(r.Verdict)
		if r.Confidence == models.ConfidenceReduced {
			verdict += "*"
		}
		sb.WriteString(fmt.Sprintf("| %s | %.2f | %.2f | %+.1f%% | %.1f%% | %s | %.2f%% %s |\n",
			r.Security.Symbol, r.CurrentPrice, r.IntrinsicValue,
			r.UpsideDownside*100, r.IRR*100, verdict,
			r.Rate.WACC*100, r.Rate.Source))
	}

	if len(failures) > 0 {
		sb.WriteString("\n## Failures\n\n")
		for _, entry := range failures {
			sb.WriteString(fmt.Sprintf("- **%s**: %s\n", entry.Security.Symbol, entry.ErrText))
		}
	}

	succeeded := len(report.Succeeded())
	sb.WriteString(fmt.Sprintf("\n%d valued, %d failed", succeeded, len(report.Entries)-succeeded))
	if report.Elapsed > 0 {
		sb.WriteString(fmt.Sprintf(" in %.1fs", report.Elapsed.Seconds()))
	}
	sb.WriteString("\n")

	if hasReduced(report) {
		sb.WriteString("\n_* reduced confidence: valued without balance-sheet adjustments._\n")
	}

	return sb.String()
}

// formatSensitivityGrid formats the WACC×growth grid as markdown
func formatSensitivityGrid(cells []models.SensitivityCell) string {
	if len(cells) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("## Sensitivity\n\n")
	sb.WriteString("| WACC | Growth | Intrinsic | Upside |\n")
	sb.WriteString("|-----:|-------:|----------:|-------:|\n")
	for _, c := range cells {
		sb.WriteString(fmt.Sprintf("| %.2f%% | %.2f%% | %.2f | %+.1f%% |\n",
			c.WACC*100, c.GrowthRate*100, c.IntrinsicValue, c.UpsideDownside*100))
	}
	return sb.String()
}

// formatPortfolioList formats portfolio definitions as markdown
func formatPortfolioList(portfolios []*models.PortfolioDefinition) string {
	if len(portfolios) == 0 {
		return "No portfolios configured."
	}

	var sb strings.Builder
	sb.WriteString("# Portfolios\n\n")
	for _, p := range portfolios {
		sb.WriteString(fmt.Sprintf("## %s\n", p.Name))
		if p.Description != "" {
			sb.WriteString(p.Description + "\n")
		}
		sb.WriteString(fmt.Sprintf("Securities (%d): %s\n\n", len(p.Symbols), strings.Join(p.Symbols, ", ")))
	}
	return strings.TrimRight(sb.String(), "\n") + "\n"
}

// formatIndustryList formats dataset industry labels as markdown
func formatIndustryList(country models.Country, industries []string) string {
	if len(industries) == 0 {
		return fmt.Sprintf("No industries in the %s rate dataset.", country)
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("# %s Industries (%d)\n\n", country, len(industries)))
	for _, industry := range industries {
		sb.WriteString("- " + industry + "\n")
	}
	return sb.String()
}

func formatMoney(v float64) string {
	abs := v
	sign := ""
	if abs < 0 {
		abs = -abs
		sign = "-"
	}
	switch {
	case abs >= 1e12:
		return fmt.Sprintf("%s%.2fT", sign, abs/1e12)
	case abs >= 1e9:
		return fmt.Sprintf("%s%.2fB", sign, abs/1e9)
	case abs >= 1e6:
		return fmt.Sprintf("%s%.2fM", sign, abs/1e6)
	default:
		return fmt.Sprintf("%s%.2f", sign, abs)
	}
}

func hasReduced(report *models.ValuationReport) bool {
	for _, r := range report.Succeeded() {
		if r.Confidence == models.ConfidenceReduced {
			return true
		}
	}
	return false
}
