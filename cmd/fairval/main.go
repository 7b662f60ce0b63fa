package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/cmansell/fairval/internal/app"
	"github.com/cmansell/fairval/internal/models"
)

func main() {
	var (
		configPath     = flag.String("config", "", "path to fairval.toml (defaults to FAIRVAL_CONFIG or config/fairval.toml)")
		portfolioName  = flag.String("portfolio", "", "value a named portfolio instead of ticker arguments")
		csvOut         = flag.Bool("csv", false, "write the report as CSV to the configured output directory")
		chartOut       = flag.Bool("chart", false, "write a projection chart PNG per valued security")
		explain        = flag.Bool("explain", false, "append an AI summary of the report")
		listPortfolios = flag.Bool("list-portfolios", false, "list configured portfolios and exit")
		listIndustries = flag.String("list-industries", "", "list rate dataset industries for a country (US, China, Japan) and exit")
		refreshRates   = flag.Bool("refresh-rates", false, "force a discount-rate dataset refresh and exit")
	)
	flag.Usage = usage
	flag.Parse()

	a, err := app.NewApp(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fairval: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	switch {
	case *listPortfolios:
		err = runListPortfolios(ctx, a)
	case *listIndustries != "":
		err = runListIndustries(ctx, a, models.Country(*listIndustries))
	case *refreshRates:
		err = runRefreshRates(ctx, a)
	case *portfolioName != "":
		err = runPortfolio(ctx, a, *portfolioName, *csvOut, *chartOut, *explain)
	case flag.NArg() > 0:
		err = runSymbols(ctx, a, flag.Args(), *csvOut, *chartOut, *explain)
	default:
		usage()
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "fairval: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage:
  fairval [flags] SYMBOL [SYMBOL...]
  fairval [flags] -portfolio NAME

Flags:
`)
	flag.PrintDefaults()
}

func runSymbols(ctx context.Context, a *app.App, symbols []string, csvOut, chartOut, explain bool) error {
	ids := make([]models.SecurityIdentifier, 0, len(symbols))
	for _, s := range symbols {
		ids = append(ids, models.ParseSecurityIdentifier(s))
	}

	report, err := a.ValuationService.ValueMany(ctx, ids)
	if err != nil {
		return err
	}
	return emitReport(ctx, a, report, csvOut, chartOut, explain)
}

func runPortfolio(ctx context.Context, a *app.App, name string, csvOut, chartOut, explain bool) error {
	report, err := a.ValuationService.ValuePortfolio(ctx, name)
	if err != nil {
		return err
	}
	return emitReport(ctx, a, report, csvOut, chartOut, explain)
}

func emitReport(ctx context.Context, a *app.App, report *models.ValuationReport, csvOut, chartOut, explain bool) error {
	fmt.Print(a.ReportService.RenderText(report))

	if csvOut {
		name := report.Portfolio
		if name == "" {
			name = "valuation"
		}
		path, err := a.ReportService.WriteCSV(report, name+".csv")
		if err != nil {
			return fmt.Errorf("csv export: %w", err)
		}
		fmt.Printf("\nCSV written: %s\n", path)
	}

	if chartOut {
		for _, result := range report.Succeeded() {
			filename := strings.ReplaceAll(result.Security.Symbol, ".", "_") + ".png"
			path, err := a.ReportService.WriteChart(result, filename)
			if err != nil {
				fmt.Fprintf(os.Stderr, "chart for %s: %v\n", result.Security.Symbol, err)
				continue
			}
			fmt.Printf("Chart written: %s\n", path)
		}
	}

	if explain {
		if a.Assistant == nil {
			fmt.Fprintln(os.Stderr, "explain: no assistant configured (set clients.gemini.api_key)")
			return nil
		}
		summary, err := a.Assistant.ExplainReport(ctx, report)
		if err != nil {
			return fmt.Errorf("explain: %w", err)
		}
		fmt.Printf("\n%s\n", summary)
	}

	return nil
}

func runListPortfolios(ctx context.Context, a *app.App) error {
	portfolios, err := a.PortfolioService.ListPortfolios(ctx)
	if err != nil {
		return err
	}
	if len(portfolios) == 0 {
		fmt.Println("No portfolios configured.")
		return nil
	}
	for _, p := range portfolios {
		fmt.Printf("%-16s %3d securities", p.Name, len(p.Symbols))
		if p.Description != "" {
			fmt.Printf("  %s", p.Description)
		}
		fmt.Println()
	}
	return nil
}

func runListIndustries(ctx context.Context, a *app.App, country models.Country) error {
	industries, err := a.RateService.ListIndustries(ctx, country)
	if err != nil {
		return err
	}
	if len(industries) == 0 {
		fmt.Printf("No industries in the %s rate dataset.\n", country)
		return nil
	}
	for _, industry := range industries {
		wacc, err := a.RateService.IndustryWACC(ctx, country, industry)
		if err != nil {
			fmt.Println(industry)
			continue
		}
		fmt.Printf("%-48s %.2f%%\n", industry, wacc*100)
	}
	return nil
}

func runRefreshRates(ctx context.Context, a *app.App) error {
	if err := a.RateService.RefreshDataset(ctx); err != nil {
		return err
	}
	fmt.Println("Discount-rate dataset refreshed.")
	return nil
}
