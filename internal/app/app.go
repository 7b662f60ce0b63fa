// Package app wires configuration, storage, clients, services, and the MCP
// server into the shared core used by every binary.
package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mark3labs/mcp-go/server"

	"github.com/cmansell/fairval/internal/clients/eodhd"
	"github.com/cmansell/fairval/internal/clients/fxrates"
	"github.com/cmansell/fairval/internal/clients/gemini"
	"github.com/cmansell/fairval/internal/common"
	"github.com/cmansell/fairval/internal/interfaces"
	"github.com/cmansell/fairval/internal/models"
	"github.com/cmansell/fairval/internal/rates"
	"github.com/cmansell/fairval/internal/services/portfolio"
	"github.com/cmansell/fairval/internal/services/rate"
	"github.com/cmansell/fairval/internal/services/report"
	"github.com/cmansell/fairval/internal/services/valuation"
	"github.com/cmansell/fairval/internal/storage/surrealdb"
)

// App holds all initialized services, clients, and the MCP server.
// It is the shared core used by cmd/fairval, cmd/fairval-server, and
// cmd/fairval-mcp.
type App struct {
	Config           *common.Config
	Logger           *common.Logger
	Storage          interfaces.StorageManager
	MarketClient     interfaces.MarketDataClient
	Assistant        interfaces.AssistantClient
	Resolver         *rates.Resolver
	ValuationService interfaces.ValuationService
	RateService      interfaces.RateService
	PortfolioService interfaces.PortfolioService
	ReportService    interfaces.ReportService
	MCPServer        *server.MCPServer
	StartupTime      time.Time

	schedulerCancel context.CancelFunc
}

// getBinaryDir returns the directory containing the executable.
func getBinaryDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}

// NewApp initializes storage, clients, the rate cache, services, and the
// MCP server. configPath may be empty, in which case the default resolution
// logic is used.
func NewApp(configPath string) (*App, error) {
	startupStart := time.Now()

	// Load version from .version file (fallback if ldflags not set)
	common.LoadVersionFromFile()

	binDir := getBinaryDir()

	// Load configuration - check provided path, FAIRVAL_CONFIG, then binary dir, then fallback
	if configPath == "" {
		configPath = os.Getenv("FAIRVAL_CONFIG")
	}
	if configPath == "" {
		configPath = filepath.Join(binDir, "fairval.toml")
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			configPath = "config/fairval.toml" // fallback for development
		}
	}

	config, err := common.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger := common.NewLoggerFromConfig(config.Logging)

	storageManager, err := surrealdb.NewManager(logger, config)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	ctx := context.Background()

	// Initialize API clients
	var marketClient interfaces.MarketDataClient
	if config.Clients.EODHD.APIKey != "" {
		opts := []eodhd.ClientOption{
			eodhd.WithLogger(logger),
			eodhd.WithRateLimit(config.Clients.EODHD.RateLimit),
			eodhd.WithTimeout(config.Clients.EODHD.GetTimeout()),
		}
		if config.Clients.EODHD.BaseURL != "" {
			opts = append(opts, eodhd.WithBaseURL(config.Clients.EODHD.BaseURL))
		}
		if !config.Clients.FXRates.Disabled {
			fxOpts := []fxrates.ClientOption{
				fxrates.WithLogger(logger),
				fxrates.WithCacheTTL(config.Clients.FXRates.GetCacheTTL()),
			}
			if config.Clients.FXRates.BaseURL != "" {
				fxOpts = append(fxOpts, fxrates.WithBaseURL(config.Clients.FXRates.BaseURL))
			}
			opts = append(opts, eodhd.WithExchangeRates(fxrates.NewClient(fxOpts...)))
		}
		marketClient = eodhd.NewClient(config.Clients.EODHD.APIKey, opts...)
	} else {
		logger.Warn().Msg("EODHD API key not configured - valuations will be unavailable")
	}

	var assistant interfaces.AssistantClient
	if config.Clients.Gemini.APIKey != "" {
		geminiClient, err := gemini.NewClient(ctx, config.Clients.Gemini.APIKey,
			gemini.WithLogger(logger),
			gemini.WithModel(config.Clients.Gemini.Model),
		)
		if err != nil {
			logger.Warn().Err(err).Msg("Failed to initialize Gemini client")
		} else {
			assistant = geminiClient
		}
	}

	// Bootstrap the discount-rate cache: empty dataset first, then publish
	// the persisted or freshly-refreshed one.
	reference := models.Country(config.Rates.ReferenceCountry)
	if reference == "" {
		reference = models.CountryUS
	}
	resolver := rates.NewResolver(
		rates.NewDataset(nil, config.Rates.DefaultWACC),
		reference,
		logger,
	)
	updater := rates.NewUpdater(storageManager.RateStore(), resolver, config.Rates, logger)
	if err := updater.Load(ctx); err != nil {
		logger.Warn().Err(err).Msg("Rate dataset load failed, resolver serves the default rate only")
	}

	// Initialize services
	portfolioService := portfolio.NewService(storageManager, logger)
	if config.Portfolios.Path != "" {
		if err := portfolioService.SeedFromFile(ctx, config.Portfolios.Path); err != nil {
			logger.Warn().Err(err).Str("path", config.Portfolios.Path).Msg("Portfolio seeding failed")
		}
	}

	rateService := rate.NewService(resolver, updater, logger)
	reportService := report.NewService(config.Report, logger)

	valuationService, err := valuation.NewService(config.Engine, marketClient, resolver, portfolioService, logger)
	if err != nil {
		storageManager.Close()
		return nil, fmt.Errorf("failed to initialize valuation service: %w", err)
	}

	// Create MCP server
	mcpServer := server.NewMCPServer(
		"fairval",
		common.GetVersion(),
		server.WithToolCapabilities(true),
	)

	a := &App{
		Config:           config,
		Logger:           logger,
		Storage:          storageManager,
		MarketClient:     marketClient,
		Assistant:        assistant,
		Resolver:         resolver,
		ValuationService: valuationService,
		RateService:      rateService,
		PortfolioService: portfolioService,
		ReportService:    reportService,
		MCPServer:        mcpServer,
		StartupTime:      startupStart,
	}

	a.registerTools()

	logger.Info().Dur("startup", time.Since(startupStart)).Msg("App initialized")

	return a, nil
}

// Close releases all resources held by the App.
func (a *App) Close() {
	if a.schedulerCancel != nil {
		a.schedulerCancel()
		a.schedulerCancel = nil
	}
	if a.Storage != nil {
		a.Storage.Close()
		a.Storage = nil
	}
}

// StartRateScheduler launches the background staleness check goroutine.
func (a *App) StartRateScheduler() {
	schedulerCtx, cancel := context.WithCancel(context.Background())
	a.schedulerCancel = cancel
	go startRateScheduler(schedulerCtx, a.RateService, a.Logger, a.Config.Rates.GetRefreshInterval())
}

// registerTools registers all MCP tools on the App's MCPServer.
func (a *App) registerTools() {
	s := a.MCPServer
	logger := a.Logger

	s.AddTool(createGetVersionTool(), handleGetVersion())
	s.AddTool(createValueSecurityTool(), handleValueSecurity(a.ValuationService, logger))
	s.AddTool(createValueSecuritiesTool(), handleValueSecurities(a.ValuationService, logger))
	s.AddTool(createValuePortfolioTool(), handleValuePortfolio(a.ValuationService, a.Assistant, logger))
	s.AddTool(createListPortfoliosTool(), handleListPortfolios(a.PortfolioService, logger))
	s.AddTool(createListIndustriesTool(), handleListIndustries(a.RateService, logger))
	s.AddTool(createRefreshRatesTool(), handleRefreshRates(a.RateService, logger))
	s.AddTool(createExportReportTool(), handleExportReport(a.ValuationService, a.ReportService, logger))
}
