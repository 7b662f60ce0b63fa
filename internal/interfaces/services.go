package interfaces

import (
	"context"

	"github.com/cmansell/fairval/internal/models"
)

// ValuationService is the engine's request/response surface, consumed by
// every front end (CLI report, HTTP server, MCP tools, assistant).
type ValuationService interface {
	// ValueOne values a single security.
	ValueOne(ctx context.Context, id models.SecurityIdentifier) (*models.ValuationResult, error)

	// ValueMany values securities in input order with partial-failure
	// semantics: one bad security never aborts the batch.
	ValueMany(ctx context.Context, ids []models.SecurityIdentifier) (*models.ValuationReport, error)

	// ValuePortfolio resolves a named portfolio and values its members.
	// Fails with models.PortfolioNotFoundError for unknown names.
	ValuePortfolio(ctx context.Context, name string) (*models.ValuationReport, error)

	// Sensitivity values one security across a WACC×growth grid.
	Sensitivity(ctx context.Context, id models.SecurityIdentifier) ([]models.SensitivityCell, error)
}

// RateService exposes the discount-rate dataset to front ends.
type RateService interface {
	// ListIndustries returns the dataset industry labels for a country.
	ListIndustries(ctx context.Context, country models.Country) ([]string, error)

	// IndustryWACC returns one industry's rate. Fails with
	// models.IndustryNotFoundError when the label is absent.
	IndustryWACC(ctx context.Context, country models.Country, industry string) (float64, error)

	// RefreshDataset rebuilds and atomically publishes the dataset.
	RefreshDataset(ctx context.Context) error

	// RefreshIfStale refreshes only when the dataset is older than the
	// configured maximum age. Returns whether a refresh ran.
	RefreshIfStale(ctx context.Context) (bool, error)
}

// PortfolioService resolves portfolio definitions for the engine.
type PortfolioService interface {
	// ResolvePortfolio returns the member identifiers of a named portfolio.
	ResolvePortfolio(ctx context.Context, name string) ([]models.SecurityIdentifier, error)

	// ListPortfolios returns all portfolio definitions.
	ListPortfolios(ctx context.Context) ([]*models.PortfolioDefinition, error)

	// SeedFromFile loads portfolio definitions from the configured JSON
	// file into the store, without overwriting newer store entries.
	SeedFromFile(ctx context.Context, path string) error
}

// ReportService renders valuation reports for human consumption.
type ReportService interface {
	// RenderText renders a console report with summary statistics.
	RenderText(report *models.ValuationReport) string

	// WriteCSV writes the report as CSV and returns the file path.
	WriteCSV(report *models.ValuationReport, filename string) (string, error)

	// WriteChart renders a per-security projection chart PNG and returns
	// the file path.
	WriteChart(result *models.ValuationResult, filename string) (string, error)
}
