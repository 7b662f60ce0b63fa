package models

import "time"

// MinHistoryPeriods is the minimum cash-flow history required for growth
// estimation. Snapshots with fewer periods are declined.
const MinHistoryPeriods = 3

// FinancialSnapshot holds the per-security inputs to a valuation, as
// supplied by the market-data provider. The engine treats it as read-only
// and fetches it fresh per valuation call.
type FinancialSnapshot struct {
	Security SecurityIdentifier `json:"security"`
	Name     string             `json:"name"`
	Industry string             `json:"industry"` // industry label as reported by the provider
	Sector   string             `json:"sector"`
	Currency string             `json:"currency"` // quote currency of CurrentPrice
	// FinancialsCurrency is the currency the cash-flow figures are
	// denominated in. Cross-listed securities report statements in a
	// different currency than the quote; the provider converts them when an
	// exchange rate is available, leaving this equal to Currency. A
	// remaining mismatch flags the valuation reduced-confidence.
	FinancialsCurrency string  `json:"financials_currency,omitempty"`
	CurrentPrice       float64 `json:"current_price"`
	SharesOutstanding  float64 `json:"shares_outstanding"`
	LatestFCF          float64 `json:"latest_fcf"`
	// FCFHistory is ordered oldest first, most recent last.
	FCFHistory []float64 `json:"fcf_history"`
	// NetCash is cash minus debt for the equity bridge. HasBalanceSheet
	// reports whether it was available; when false the enterprise value is
	// used directly and the result is flagged reduced-confidence.
	NetCash         float64   `json:"net_cash"`
	HasBalanceSheet bool      `json:"has_balance_sheet"`
	FetchedAt       time.Time `json:"fetched_at"`
}

// CurrencyMismatch reports whether the cash-flow figures are still
// denominated in a different currency than the quote.
func (s *FinancialSnapshot) CurrencyMismatch() bool {
	return s.FinancialsCurrency != "" && s.Currency != "" && s.FinancialsCurrency != s.Currency
}

// HistoricalGrowthRate returns the average period-over-period growth rate of
// the cash-flow history, and whether it could be computed. Pairs with a
// non-positive starting value are skipped; at least two valid consecutive
// periods are required.
func (s *FinancialSnapshot) HistoricalGrowthRate() (float64, bool) {
	if len(s.FCFHistory) < 2 {
		return 0, false
	}

	var sum float64
	var n int
	for i := 1; i < len(s.FCFHistory); i++ {
		prev := s.FCFHistory[i-1]
		if prev <= 0 {
			continue
		}
		sum += (s.FCFHistory[i] - prev) / prev
		n++
	}

	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}
