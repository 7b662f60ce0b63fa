package valuation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProjectGrowth_TaperingIsNonIncreasing(t *testing.T) {
	rates := ProjectGrowth(0.15, true, GrowthModeTapering, 10, 0.025, 0.0)

	assert.Len(t, rates, 10)
	for i := 1; i < len(rates); i++ {
		assert.LessOrEqual(t, rates[i], rates[i-1], "period %d", i+1)
	}
	assert.InDelta(t, 0.15, rates[0], 1e-12)
	assert.InDelta(t, 0.025, rates[9], 1e-12, "final period must reach the perpetual rate")
}

func TestProjectGrowth_TaperingHoldsHistoricalForFirstHalf(t *testing.T) {
	rates := ProjectGrowth(0.20, true, GrowthModeTapering, 10, 0.025, 0.0)

	for i := 0; i < 5; i++ {
		assert.InDelta(t, 0.20, rates[i], 1e-12, "period %d", i+1)
	}
	assert.Less(t, rates[5], 0.20)
}

func TestProjectGrowth_FlatMode(t *testing.T) {
	rates := ProjectGrowth(0.30, true, GrowthModeFlat, 10, 0.025, 0.0)

	for i, r := range rates {
		assert.InDelta(t, 0.025, r, 1e-12, "period %d", i+1)
	}
}

func TestProjectGrowth_ClampsWhenHistoricalUnavailable(t *testing.T) {
	rates := ProjectGrowth(0, false, GrowthModeTapering, 10, 0.025, 0.0)

	for _, r := range rates {
		assert.InDelta(t, 0.025, r, 1e-12)
	}
}

func TestProjectGrowth_ClampsBelowFloor(t *testing.T) {
	// Historical shrinkage below the floor collapses to the perpetual rate.
	rates := ProjectGrowth(-0.40, true, GrowthModeTapering, 10, 0.025, -0.10)

	for _, r := range rates {
		assert.InDelta(t, 0.025, r, 1e-12)
	}
}

func TestProjectGrowth_ClampsBelowPerpetualRate(t *testing.T) {
	rates := ProjectGrowth(0.01, true, GrowthModeTapering, 10, 0.025, 0.0)

	for _, r := range rates {
		assert.InDelta(t, 0.025, r, 1e-12)
	}
}

func TestProjectGrowth_OddHorizon(t *testing.T) {
	rates := ProjectGrowth(0.10, true, GrowthModeTapering, 5, 0.02, 0.0)

	assert.Len(t, rates, 5)
	assert.InDelta(t, 0.10, rates[0], 1e-12)
	assert.InDelta(t, 0.02, rates[4], 1e-12)
	for i := 1; i < len(rates); i++ {
		assert.LessOrEqual(t, rates[i], rates[i-1])
	}
}
