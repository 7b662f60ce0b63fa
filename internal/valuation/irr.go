package valuation

import (
	"math"

	"github.com/cmansell/fairval/internal/models"
)

const (
	irrMaxIterations = 200
	irrNPVTolerance  = 1e-6
	irrRateTolerance = 1e-12
)

// NPV returns the net present value of a cash-flow series at the given rate.
// Index 0 is the initial outlay at t=0 and is not discounted.
func NPV(rate float64, cashFlows []float64) float64 {
	var npv float64
	for i, cf := range cashFlows {
		npv += cf / math.Pow(1+rate, float64(i))
	}
	return npv
}

// SolveIRR finds the rate at which the series' NPV is zero, by bisection
// over [lower, upper]. cashFlows[0] is the initial outlay (negative) and
// later entries the projected inflows.
//
// It fails with NoConvergenceError when the NPV function does not change
// sign within the bounds (all flows same sign, or the root lies outside) or
// the iteration cap is exceeded.
func SolveIRR(cashFlows []float64, lower, upper float64) (float64, error) {
	fLow := NPV(lower, cashFlows)
	fHigh := NPV(upper, cashFlows)

	if fLow == 0 {
		return lower, nil
	}
	if fHigh == 0 {
		return upper, nil
	}
	if fLow*fHigh > 0 {
		return 0, &models.NoConvergenceError{
			Cause: "npv does not change sign within search bounds",
		}
	}

	for i := 0; i < irrMaxIterations; i++ {
		mid := (lower + upper) / 2
		fMid := NPV(mid, cashFlows)

		if math.Abs(fMid) < irrNPVTolerance || (upper-lower)/2 < irrRateTolerance {
			return mid, nil
		}

		if fLow*fMid < 0 {
			upper = mid
		} else {
			lower = mid
			fLow = fMid
		}
	}

	return 0, &models.NoConvergenceError{Cause: "iteration cap exceeded"}
}
