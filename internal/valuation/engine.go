package valuation

import (
	"fmt"
	"time"

	"github.com/cmansell/fairval/internal/common"
	"github.com/cmansell/fairval/internal/models"
)

// Engine composes growth projection, cash-flow projection, present value,
// IRR and classification into a single per-security valuation. It is pure
// and CPU-bound: given a snapshot and a resolved rate it performs no I/O,
// so calls are safe to run concurrently.
type Engine struct {
	forecastYears int
	perpetualRate float64
	growthMode    GrowthMode
	growthFloor   float64
	irrLower      float64
	irrUpper      float64
	classifier    *Classifier
}

// NewEngine builds an engine from configuration, validating the
// classification thresholds up front.
func NewEngine(cfg common.EngineConfig) (*Engine, error) {
	classifier, err := NewThresholdClassifier(cfg.OvervaluedBelow, cfg.UndervaluedAbove)
	if err != nil {
		return nil, fmt.Errorf("invalid classification thresholds: %w", err)
	}
	return &Engine{
		forecastYears: cfg.ForecastYears,
		perpetualRate: cfg.PerpetualGrowthRate,
		growthMode:    GrowthMode(cfg.GrowthMode),
		growthFloor:   cfg.GrowthFloor,
		irrLower:      cfg.IRRLowerBound,
		irrUpper:      cfg.IRRUpperBound,
		classifier:    classifier,
	}, nil
}

// Value prices one security from its snapshot and discount rate.
//
// Failure modes per the error taxonomy: DataUnavailableError for
// insufficient history, DomainError for inputs the model cannot price,
// NoConvergenceError when the IRR search fails.
func (e *Engine) Value(snapshot *models.FinancialSnapshot, rate models.ResolvedRate) (*models.ValuationResult, error) {
	if err := e.validate(snapshot); err != nil {
		return nil, err
	}

	historical, ok := snapshot.HistoricalGrowthRate()
	growth := ProjectGrowth(historical, ok, e.growthMode, e.forecastYears, e.perpetualRate, e.growthFloor)

	projection, err := Project(snapshot.LatestFCF, growth, e.perpetualRate, rate.WACC)
	if err != nil {
		if de, isDomain := err.(*models.DomainError); isDomain {
			de.Security = snapshot.Security
		}
		return nil, err
	}

	equityValue := projection.EnterpriseValue
	confidence := models.ConfidenceReduced
	if snapshot.HasBalanceSheet {
		equityValue += snapshot.NetCash
		confidence = models.ConfidenceFull
	}
	// An unconverted statement currency makes the intrinsic-vs-price
	// comparison unit-inconsistent, so the result cannot be full confidence.
	if snapshot.CurrencyMismatch() {
		confidence = models.ConfidenceReduced
	}
	intrinsic := equityValue / snapshot.SharesOutstanding

	irr, err := e.solveIRR(snapshot, projection)
	if err != nil {
		if nce, isNC := err.(*models.NoConvergenceError); isNC {
			nce.Security = snapshot.Security
		}
		return nil, err
	}

	return &models.ValuationResult{
		Security:            snapshot.Security,
		Name:                snapshot.Name,
		CurrentPrice:        snapshot.CurrentPrice,
		IntrinsicValue:      intrinsic,
		UpsideDownside:      (intrinsic - snapshot.CurrentPrice) / snapshot.CurrentPrice,
		IRR:                 irr,
		Verdict:             e.classifier.Classify(irr),
		Confidence:          confidence,
		Rate:                rate,
		GrowthRates:         growth,
		PerpetualGrowthRate: e.perpetualRate,
		LatestFCF:           snapshot.LatestFCF,
		SharesOutstanding:   snapshot.SharesOutstanding,
		Projection:          projection,
		ValuedAt:            time.Now().UTC(),
	}, nil
}

func (e *Engine) validate(snapshot *models.FinancialSnapshot) error {
	if len(snapshot.FCFHistory) < models.MinHistoryPeriods {
		return &models.DataUnavailableError{
			Security: snapshot.Security,
			Cause: fmt.Sprintf("need %d periods of cash-flow history, have %d",
				models.MinHistoryPeriods, len(snapshot.FCFHistory)),
		}
	}
	if snapshot.LatestFCF <= 0 {
		return &models.DomainError{
			Security: snapshot.Security,
			Cause:    fmt.Sprintf("non-positive latest free cash flow %.2f", snapshot.LatestFCF),
		}
	}
	if snapshot.SharesOutstanding <= 0 {
		return &models.DataUnavailableError{
			Security: snapshot.Security,
			Cause:    "shares outstanding missing",
		}
	}
	if snapshot.CurrentPrice <= 0 {
		return &models.DataUnavailableError{
			Security: snapshot.Security,
			Cause:    "current price missing",
		}
	}
	return nil
}

// solveIRR builds the per-share cash-flow series: the initial outlay is the
// negative of the current price, followed by the projected per-share cash
// flows, with the terminal value folded into the final period.
func (e *Engine) solveIRR(snapshot *models.FinancialSnapshot, p models.CashFlowProjection) (float64, error) {
	flows := make([]float64, 0, len(p.Series)+1)
	flows = append(flows, -snapshot.CurrentPrice)
	for i, cf := range p.Series {
		perShare := cf.CashFlow / snapshot.SharesOutstanding
		if i == len(p.Series)-1 {
			perShare += p.TerminalValue / snapshot.SharesOutstanding
		}
		flows = append(flows, perShare)
	}
	return SolveIRR(flows, e.irrLower, e.irrUpper)
}

// Sensitivity values the snapshot over a WACC×growth grid around the base
// rate, returning intrinsic values for each scenario. Scenarios the model
// cannot price are skipped.
func (e *Engine) Sensitivity(snapshot *models.FinancialSnapshot, base models.ResolvedRate, waccRange, growthRange float64) []models.SensitivityCell {
	historical, ok := snapshot.HistoricalGrowthRate()
	if !ok {
		historical = e.perpetualRate
	}

	waccs := []float64{base.WACC - waccRange, base.WACC, base.WACC + waccRange}
	growths := []float64{historical - growthRange, historical, historical + growthRange}

	var cells []models.SensitivityCell
	for _, w := range waccs {
		for _, g := range growths {
			rates := ProjectGrowth(g, true, e.growthMode, e.forecastYears, e.perpetualRate, e.growthFloor)
			projection, err := Project(snapshot.LatestFCF, rates, e.perpetualRate, w)
			if err != nil {
				continue
			}
			equity := projection.EnterpriseValue
			if snapshot.HasBalanceSheet {
				equity += snapshot.NetCash
			}
			intrinsic := equity / snapshot.SharesOutstanding
			cells = append(cells, models.SensitivityCell{
				WACC:           w,
				GrowthRate:     g,
				IntrinsicValue: intrinsic,
				UpsideDownside: (intrinsic - snapshot.CurrentPrice) / snapshot.CurrentPrice,
			})
		}
	}
	return cells
}
