package app

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/cmansell/fairval/internal/common"
	"github.com/cmansell/fairval/internal/interfaces"
	"github.com/cmansell/fairval/internal/models"
)

// handleGetVersion implements the get_version tool
func handleGetVersion() server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		result := fmt.Sprintf("fairval MCP Server\nVersion: %s\nBuild: %s\nCommit: %s\nStatus: OK",
			common.GetVersion(), common.GetBuild(), common.GetGitCommit())
		return textResult(result), nil
	}
}

// handleValueSecurity implements the value_security tool
func handleValueSecurity(valuationService interfaces.ValuationService, logger *common.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		symbol, err := request.RequireString("symbol")
		if err != nil || symbol == "" {
			return errorResult("Error: symbol parameter is required"), nil
		}

		id := models.ParseSecurityIdentifier(symbol)

		result, err := valuationService.ValueOne(ctx, id)
		if err != nil {
			logger.Error().Err(err).Str("symbol", symbol).Msg("Valuation failed")
			return errorResult(fmt.Sprintf("Valuation error: %v", err)), nil
		}

		markdown := formatValuationResult(result)

		if request.GetBool("include_sensitivity", false) {
			cells, err := valuationService.Sensitivity(ctx, id)
			if err != nil {
				logger.Warn().Err(err).Str("symbol", symbol).Msg("Sensitivity grid failed")
			} else {
				markdown += "\n" + formatSensitivityGrid(cells)
			}
		}

		return textResult(markdown), nil
	}
}

// handleValueSecurities implements the value_securities tool
func handleValueSecurities(valuationService interfaces.ValuationService, logger *common.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		symbols := request.GetStringSlice("symbols", nil)
		if len(symbols) == 0 {
			return errorResult("Error: symbols parameter is required"), nil
		}

		ids := make([]models.SecurityIdentifier, len(symbols))
		for i, s := range symbols {
			ids[i] = models.ParseSecurityIdentifier(s)
		}

		report, err := valuationService.ValueMany(ctx, ids)
		if err != nil {
			logger.Error().Err(err).Int("symbols", len(symbols)).Msg("Batch valuation failed")
			return errorResult(fmt.Sprintf("Valuation error: %v", err)), nil
		}

		return textResult(formatValuationReport(report)), nil
	}
}

// handleValuePortfolio implements the value_portfolio tool
func handleValuePortfolio(valuationService interfaces.ValuationService, assistant interfaces.AssistantClient, logger *common.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		portfolioName, err := request.RequireString("portfolio_name")
		if err != nil || portfolioName == "" {
			return errorResult("Error: portfolio_name parameter is required"), nil
		}

		report, err := valuationService.ValuePortfolio(ctx, portfolioName)
		if err != nil {
			logger.Error().Err(err).Str("portfolio", portfolioName).Msg("Portfolio valuation failed")
			return errorResult(fmt.Sprintf("Valuation error: %v", err)), nil
		}

		markdown := formatValuationReport(report)

		if request.GetBool("explain", false) {
			if assistant == nil {
				markdown += "\n_AI summary unavailable: assistant not configured._\n"
			} else if summary, err := assistant.ExplainReport(ctx, report); err != nil {
				logger.Warn().Err(err).Msg("Report explanation failed")
			} else {
				markdown += "\n## Summary\n\n" + summary + "\n"
			}
		}

		return textResult(markdown), nil
	}
}

// handleListPortfolios implements the list_portfolios tool
func handleListPortfolios(portfolioService interfaces.PortfolioService, logger *common.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		portfolios, err := portfolioService.ListPortfolios(ctx)
		if err != nil {
			logger.Error().Err(err).Msg("List portfolios failed")
			return errorResult(fmt.Sprintf("Error listing portfolios: %v", err)), nil
		}

		return textResult(formatPortfolioList(portfolios)), nil
	}
}

// handleListIndustries implements the list_industries tool
func handleListIndustries(rateService interfaces.RateService, logger *common.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		country := models.Country(request.GetString("country", string(models.CountryUS)))

		industries, err := rateService.ListIndustries(ctx, country)
		if err != nil {
			logger.Error().Err(err).Str("country", string(country)).Msg("List industries failed")
			return errorResult(fmt.Sprintf("Error listing industries: %v", err)), nil
		}

		return textResult(formatIndustryList(country, industries)), nil
	}
}

// handleRefreshRates implements the refresh_rates tool
func handleRefreshRates(rateService interfaces.RateService, logger *common.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if request.GetBool("force", false) {
			if err := rateService.RefreshDataset(ctx); err != nil {
				logger.Error().Err(err).Msg("Rate refresh failed")
				return errorResult(fmt.Sprintf("Refresh error: %v", err)), nil
			}
			return textResult("Discount-rate dataset refreshed and published."), nil
		}

		ran, err := rateService.RefreshIfStale(ctx)
		if err != nil {
			logger.Error().Err(err).Msg("Rate refresh failed")
			return errorResult(fmt.Sprintf("Refresh error: %v", err)), nil
		}
		if !ran {
			return textResult("Dataset is fresh; no refresh needed. Use force to refresh anyway."), nil
		}
		return textResult("Discount-rate dataset refreshed and published."), nil
	}
}

// handleExportReport implements the export_report tool
func handleExportReport(valuationService interfaces.ValuationService, reportService interfaces.ReportService, logger *common.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		portfolioName, err := request.RequireString("portfolio_name")
		if err != nil || portfolioName == "" {
			return errorResult("Error: portfolio_name parameter is required"), nil
		}

		filename := request.GetString("filename", portfolioName+".csv")

		report, err := valuationService.ValuePortfolio(ctx, portfolioName)
		if err != nil {
			logger.Error().Err(err).Str("portfolio", portfolioName).Msg("Portfolio valuation failed")
			return errorResult(fmt.Sprintf("Valuation error: %v", err)), nil
		}

		path, err := reportService.WriteCSV(report, filename)
		if err != nil {
			logger.Error().Err(err).Str("filename", filename).Msg("CSV export failed")
			return errorResult(fmt.Sprintf("Export error: %v", err)), nil
		}

		return textResult(fmt.Sprintf("Report exported: %s (%d securities, %d failed)",
			path, len(report.Entries), len(report.Entries)-len(report.Succeeded()))), nil
	}
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(text),
		},
	}
}

func errorResult(message string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(message),
		},
		IsError: true,
	}
}
