package valuation

import (
	"fmt"
	"math"

	"github.com/cmansell/fairval/internal/models"
)

// Project builds the projected cash-flow series and terminal value from a
// base cash flow, and discounts both to present value.
//
// Each period compounds the previous by (1 + growth[i]). The terminal value
// applies the Gordon-growth formula to the final period. The discount rate
// must exceed the terminal growth rate or the perpetuity does not converge;
// that is validated here, never clamped.
func Project(base float64, growth []float64, terminalGrowth, discountRate float64) (models.CashFlowProjection, error) {
	var p models.CashFlowProjection

	if base <= 0 {
		return p, &models.DomainError{Cause: fmt.Sprintf("non-positive base cash flow %.2f", base)}
	}
	if discountRate <= terminalGrowth {
		return p, &models.DomainError{Cause: fmt.Sprintf(
			"discount rate %.4f must exceed terminal growth %.4f", discountRate, terminalGrowth)}
	}

	p.Series = make([]models.ProjectedCashFlow, len(growth))
	cf := base
	var pvSum float64
	for i, g := range growth {
		cf *= 1 + g
		period := i + 1
		pv := cf / math.Pow(1+discountRate, float64(period))
		p.Series[i] = models.ProjectedCashFlow{
			Period:       period,
			CashFlow:     cf,
			GrowthRate:   g,
			PresentValue: pv,
		}
		pvSum += pv
	}

	final := p.Series[len(p.Series)-1].CashFlow
	p.TerminalValue = final * (1 + terminalGrowth) / (discountRate - terminalGrowth)
	p.PVTerminal = p.TerminalValue / math.Pow(1+discountRate, float64(len(growth)))
	p.EnterpriseValue = pvSum + p.PVTerminal

	return p, nil
}
