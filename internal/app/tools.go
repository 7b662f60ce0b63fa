package app

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// createGetVersionTool returns the get_version tool definition
func createGetVersionTool() mcp.Tool {
	return mcp.NewTool("get_version",
		mcp.WithDescription("Get the fairval MCP server version and status. Use this to verify connectivity."),
	)
}

// createValueSecurityTool returns the value_security tool definition
func createValueSecurityTool() mcp.Tool {
	return mcp.NewTool("value_security",
		mcp.WithDescription("Run a discounted cash flow valuation for one security: intrinsic value per share, IRR at the current price, and an undervalued/fair/overvalued verdict. Exchange suffixes select the market (e.g. 600519.SS, 0700.HK, 7203.T; no suffix means US)."),
		mcp.WithString("symbol",
			mcp.Required(),
			mcp.Description("Ticker symbol with optional exchange suffix (e.g. 'AAPL', '600519.SS')"),
		),
		mcp.WithBoolean("include_sensitivity",
			mcp.Description("Include a WACC x growth sensitivity grid (default: false)"),
		),
	)
}

// createValueSecuritiesTool returns the value_securities tool definition
func createValueSecuritiesTool() mcp.Tool {
	return mcp.NewTool("value_securities",
		mcp.WithDescription("Run discounted cash flow valuations for a batch of securities. Failures are reported per security and never abort the batch."),
		mcp.WithArray("symbols",
			mcp.Required(),
			mcp.WithStringItems(),
			mcp.Description("Ticker symbols with optional exchange suffixes"),
		),
	)
}

// createValuePortfolioTool returns the value_portfolio tool definition
func createValuePortfolioTool() mcp.Tool {
	return mcp.NewTool("value_portfolio",
		mcp.WithDescription("Value every security in a named portfolio and summarize the verdicts."),
		mcp.WithString("portfolio_name",
			mcp.Required(),
			mcp.Description("Name of the portfolio to value"),
		),
		mcp.WithBoolean("explain",
			mcp.Description("Append a plain-language AI summary of the report (default: false)"),
		),
	)
}

// createListPortfoliosTool returns the list_portfolios tool definition
func createListPortfoliosTool() mcp.Tool {
	return mcp.NewTool("list_portfolios",
		mcp.WithDescription("List the configured portfolios and their member securities."),
	)
}

// createListIndustriesTool returns the list_industries tool definition
func createListIndustriesTool() mcp.Tool {
	return mcp.NewTool("list_industries",
		mcp.WithDescription("List the industry labels in the discount-rate dataset for a country."),
		mcp.WithString("country",
			mcp.Description("Dataset country: US, China, or Japan (default: US)"),
		),
	)
}

// createRefreshRatesTool returns the refresh_rates tool definition
func createRefreshRatesTool() mcp.Tool {
	return mcp.NewTool("refresh_rates",
		mcp.WithDescription("Rebuild the discount-rate dataset from its source files and publish it atomically. In-flight valuations keep the previous dataset."),
		mcp.WithBoolean("force",
			mcp.Description("Refresh even if the current dataset is fresh (default: false)"),
		),
	)
}

// createExportReportTool returns the export_report tool definition
func createExportReportTool() mcp.Tool {
	return mcp.NewTool("export_report",
		mcp.WithDescription("Value a portfolio and export the report as CSV, returning the file path."),
		mcp.WithString("portfolio_name",
			mcp.Required(),
			mcp.Description("Name of the portfolio to value and export"),
		),
		mcp.WithString("filename",
			mcp.Description("Output filename (default: <portfolio>.csv)"),
		),
	)
}
