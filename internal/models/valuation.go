package models

import "time"

// Verdict is the qualitative classification of a valuation.
type Verdict string

const (
	VerdictOvervalued  Verdict = "overvalued"
	VerdictFair        Verdict = "fair"
	VerdictUndervalued Verdict = "undervalued"
)

// Confidence reports how complete the equity bridge was.
type Confidence string

const (
	// ConfidenceFull means net cash/debt adjustments were applied.
	ConfidenceFull Confidence = "full"
	// ConfidenceReduced means enterprise value was used directly because
	// balance-sheet adjustments were unavailable.
	ConfidenceReduced Confidence = "reduced"
)

// ProjectedCashFlow is one forecast period's cash flow with its present value.
type ProjectedCashFlow struct {
	Period       int     `json:"period"` // 1-indexed forecast period
	CashFlow     float64 `json:"cash_flow"`
	GrowthRate   float64 `json:"growth_rate"`
	PresentValue float64 `json:"present_value"`
}

// CashFlowProjection is the full projected series plus terminal value.
// Derived per valuation call, never persisted.
type CashFlowProjection struct {
	Series          []ProjectedCashFlow `json:"series"`
	TerminalValue   float64             `json:"terminal_value"`
	PVTerminal      float64             `json:"pv_terminal"`
	EnterpriseValue float64             `json:"enterprise_value"`
}

// RateSource records which resolver tier supplied the discount rate.
type RateSource string

const (
	RateSourceExact        RateSource = "exact"
	RateSourceFuzzy        RateSource = "fuzzy"
	RateSourceCrossCountry RateSource = "cross_country"
	RateSourceDefault      RateSource = "default"
)

// ResolvedRate is a discount rate with its provenance.
type ResolvedRate struct {
	WACC     float64    `json:"wacc"`
	Industry string     `json:"industry"` // dataset industry label that matched
	Country  Country    `json:"country"`  // dataset region the rate came from
	Source   RateSource `json:"source"`
}

// ValuationResult is the immutable output of valuing one security.
type ValuationResult struct {
	Security            SecurityIdentifier `json:"security"`
	Name                string             `json:"name"`
	CurrentPrice        float64            `json:"current_price"`
	IntrinsicValue      float64            `json:"intrinsic_value"` // per share
	UpsideDownside      float64            `json:"upside_downside"` // fractional deviation from price
	IRR                 float64            `json:"irr"`
	Verdict             Verdict            `json:"verdict"`
	Confidence          Confidence         `json:"confidence"`
	Rate                ResolvedRate       `json:"rate"`
	GrowthRates         []float64          `json:"growth_rates"`
	PerpetualGrowthRate float64            `json:"perpetual_growth_rate"`
	LatestFCF           float64            `json:"latest_fcf"`
	SharesOutstanding   float64            `json:"shares_outstanding"`
	Projection          CashFlowProjection `json:"projection"`
	ValuedAt            time.Time          `json:"valued_at"`
}

// ValuationEntry pairs one security with its result or failure, preserving
// batch input order.
type ValuationEntry struct {
	Security SecurityIdentifier `json:"security"`
	Result   *ValuationResult   `json:"result,omitempty"`
	Err      error              `json:"-"`
	ErrText  string             `json:"error,omitempty"`
}

// Failed reports whether this entry carries an error instead of a result.
func (e ValuationEntry) Failed() bool {
	return e.Err != nil || e.ErrText != ""
}

// ValuationReport is a batch of valuation entries with run metadata.
type ValuationReport struct {
	RunID     string           `json:"run_id"`
	Portfolio string           `json:"portfolio,omitempty"`
	Entries   []ValuationEntry `json:"entries"`
	StartedAt time.Time        `json:"started_at"`
	Elapsed   time.Duration    `json:"elapsed"`
}

// Succeeded returns the successful results in input order.
func (r *ValuationReport) Succeeded() []*ValuationResult {
	out := make([]*ValuationResult, 0, len(r.Entries))
	for _, e := range r.Entries {
		if !e.Failed() && e.Result != nil {
			out = append(out, e.Result)
		}
	}
	return out
}

// SensitivityCell is one intrinsic value in a WACC×growth grid.
type SensitivityCell struct {
	WACC           float64 `json:"wacc"`
	GrowthRate     float64 `json:"growth_rate"`
	IntrinsicValue float64 `json:"intrinsic_value"`
	UpsideDownside float64 `json:"upside_downside"`
}
