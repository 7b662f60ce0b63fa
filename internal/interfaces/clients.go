// Package interfaces defines service contracts for fairval
package interfaces

import (
	"context"

	"github.com/cmansell/fairval/internal/models"
)

// MarketDataClient retrieves per-security financial inputs. Implementations
// fail with models.DataUnavailableError when the security is unknown or its
// history is insufficient; the engine surfaces that verbatim per security.
type MarketDataClient interface {
	// FetchSnapshot retrieves a fresh FinancialSnapshot for a security.
	FetchSnapshot(ctx context.Context, id models.SecurityIdentifier) (*models.FinancialSnapshot, error)
}

// ExchangeRateClient supplies spot conversion rates between currencies, used
// to normalize statement currencies onto the quote currency.
type ExchangeRateClient interface {
	// Rate returns the multiplier that converts an amount in from-currency
	// into to-currency.
	Rate(ctx context.Context, from, to string) (float64, error)
}

// AssistantClient narrates valuation output in natural language.
type AssistantClient interface {
	// ExplainReport produces a plain-language summary of a valuation report.
	ExplainReport(ctx context.Context, report *models.ValuationReport) (string, error)

	// AnswerQuestion answers a free-form question grounded in a report.
	AnswerQuestion(ctx context.Context, report *models.ValuationReport, question string) (string, error)
}
