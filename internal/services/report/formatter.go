package report

import (
	"fmt"
	"strings"

	"github.com/cmansell/fairval/internal/models"
)

// RenderText renders a console report: one line per security, failures
// inline, and a statistics footer.
func (s *Service) RenderText(report *models.ValuationReport) string {
	var sb strings.Builder

	title := "Valuation Report"
	if report.Portfolio != "" {
		title = fmt.Sprintf("Valuation Report: %s", report.Portfolio)
	}
	sb.WriteString(title)
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", len(title)))
	sb.WriteString("\n\n")

	fmt.Fprintf(&sb, "%-12s %-24s %10s %10s %8s %7s %-12s %-14s\n",
		"SYMBOL", "NAME", "PRICE", "VALUE", "UPSIDE", "IRR", "VERDICT", "RATE")
	sb.WriteString(strings.Repeat("-", 104))
	sb.WriteString("\n")

	for _, entry := range report.Entries {
		if entry.Failed() {
			fmt.Fprintf(&sb, "%-12s FAILED: %s\n", entry.Security.Symbol, entry.ErrText)
			continue
		}

		r := entry.Result
		rate := fmt.Sprintf("%.2f%% %s", r.Rate.WACC*100, r.Rate.Source)
		name := r.Name
		if len(name) > 24 {
			name = name[:21] + "..."
		}
		verdict := string(r.Verdict)
		if r.Confidence == models.ConfidenceReduced {
			verdict += "*"
		}
		fmt.Fprintf(&sb, "%-12s %-24s %10.2f %10.2f %+7.1f%% %6.1f%% %-12s %-14s\n",
			r.Security.Symbol, name,
			r.CurrentPrice, r.IntrinsicValue,
			r.UpsideDownside*100, r.IRR*100,
			verdict, rate)
	}

	sb.WriteString("\n")
	s.writeStatistics(&sb, report)

	if hasReducedConfidence(report) {
		sb.WriteString("\n* reduced confidence: no balance-sheet data, enterprise value used directly\n")
	}

	return sb.String()
}

func (s *Service) writeStatistics(sb *strings.Builder, report *models.ValuationReport) {
	succeeded := report.Succeeded()
	failed := len(report.Entries) - len(succeeded)

	fmt.Fprintf(sb, "Securities: %d valued, %d failed", len(succeeded), failed)
	if report.Elapsed > 0 {
		fmt.Fprintf(sb, " (%.1fs)", report.Elapsed.Seconds())
	}
	sb.WriteString("\n")

	if len(succeeded) == 0 {
		return
	}

	var undervalued, fair, overvalued int
	var sumUpside float64
	for _, r := range succeeded {
		sumUpside += r.UpsideDownside
		switch r.Verdict {
		case models.VerdictUndervalued:
			undervalued++
		case models.VerdictFair:
			fair++
		case models.VerdictOvervalued:
			overvalued++
		}
	}

	fmt.Fprintf(sb, "Verdicts:   %d undervalued, %d fair, %d overvalued\n",
		undervalued, fair, overvalued)
	fmt.Fprintf(sb, "Avg upside: %+.1f%%\n", sumUpside/float64(len(succeeded))*100)
}

func hasReducedConfidence(report *models.ValuationReport) bool {
	for _, r := range report.Succeeded() {
		if r.Confidence == models.ConfidenceReduced {
			return true
		}
	}
	return false
}
