package valuation

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cmansell/fairval/internal/models"
)

func flatGrowth(rate float64, years int) []float64 {
	rates := make([]float64, years)
	for i := range rates {
		rates[i] = rate
	}
	return rates
}

func TestProject_ProducesFullSeriesAndFiniteTerminal(t *testing.T) {
	p, err := Project(1_000_000, flatGrowth(0.05, 10), 0.025, 0.09)
	require.NoError(t, err)

	require.Len(t, p.Series, 10)
	for i, cf := range p.Series {
		assert.Equal(t, i+1, cf.Period)
		assert.Greater(t, cf.CashFlow, 0.0)
		assert.Greater(t, cf.PresentValue, 0.0)
		assert.False(t, math.IsInf(cf.CashFlow, 0))
	}
	assert.False(t, math.IsInf(p.TerminalValue, 0))
	assert.Greater(t, p.TerminalValue, 0.0)
	assert.Greater(t, p.EnterpriseValue, 0.0)
}

func TestProject_CompoundsGrowth(t *testing.T) {
	p, err := Project(100, flatGrowth(0.10, 3), 0.02, 0.10)
	require.NoError(t, err)

	assert.InDelta(t, 110.0, p.Series[0].CashFlow, 1e-9)
	assert.InDelta(t, 121.0, p.Series[1].CashFlow, 1e-9)
	assert.InDelta(t, 133.1, p.Series[2].CashFlow, 1e-9)
}

func TestProject_RejectsNonConvergentPerpetuity(t *testing.T) {
	_, err := Project(1_000_000, flatGrowth(0.05, 10), 0.025, 0.025)
	var domainErr *models.DomainError
	require.True(t, errors.As(err, &domainErr))

	_, err = Project(1_000_000, flatGrowth(0.05, 10), 0.05, 0.03)
	require.True(t, errors.As(err, &domainErr))
}

func TestProject_RejectsNonPositiveBase(t *testing.T) {
	_, err := Project(-5, flatGrowth(0.05, 10), 0.025, 0.09)
	var domainErr *models.DomainError
	require.True(t, errors.As(err, &domainErr))
}

// Reference scenario: base FCF 100M, flat growth at the perpetual rate 2.5%,
// discount rate 9.2%. Enterprise value verified against a hand-computed
// value: Σ FCF_t/1.092^t + terminal/1.092^10 with
// terminal = FCF_10 × 1.025 / (0.092 − 0.025).
func TestProject_ReferenceEnterpriseValue(t *testing.T) {
	const base = 100_000_000.0
	const wantEV = 1_529_850_746.2686548
	const wantTerminal = 1_958_338_295.2257693

	p, err := Project(base, flatGrowth(0.025, 10), 0.025, 0.092)
	require.NoError(t, err)

	assert.InEpsilon(t, wantTerminal, p.TerminalValue, 1e-6)
	assert.InEpsilon(t, wantEV, p.EnterpriseValue, 1e-6)
}
