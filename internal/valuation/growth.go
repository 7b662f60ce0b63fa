// Package valuation implements the DCF valuation engine: growth projection,
// cash-flow projection, present value, IRR and classification.
package valuation

// GrowthMode selects how forward growth rates are derived.
type GrowthMode string

const (
	// GrowthModeTapering holds the historical rate for the first half of the
	// horizon, then decays linearly to the perpetual rate by the final
	// period. This is the default.
	GrowthModeTapering GrowthMode = "tapering"
	// GrowthModeFlat uses the perpetual rate for every period.
	GrowthModeFlat GrowthMode = "flat"
)

// ProjectGrowth derives one growth rate per forecast period.
//
// In tapering mode the sequence is non-increasing from the historical rate
// down to the perpetual rate. When the historical rate is unavailable, below
// the configured floor, or below the perpetual rate, every period is clamped
// to the perpetual rate.
func ProjectGrowth(historicalRate float64, ok bool, mode GrowthMode, years int, perpetualRate, floor float64) []float64 {
	rates := make([]float64, years)

	if mode == GrowthModeFlat || !ok || historicalRate < floor || historicalRate < perpetualRate {
		for i := range rates {
			rates[i] = perpetualRate
		}
		return rates
	}

	hold := years / 2
	decay := years - hold
	for i := 0; i < years; i++ {
		period := i + 1
		if period <= hold {
			rates[i] = historicalRate
			continue
		}
		// Linear interpolation from historical to perpetual, reaching the
		// perpetual rate exactly at the final period.
		f := float64(period-hold) / float64(decay)
		rates[i] = historicalRate*(1-f) + perpetualRate*f
	}

	return rates
}
