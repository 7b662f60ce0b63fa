// Package common provides shared utilities for fairval
package common

import (
	"fmt"
	"os"
	"strconv"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Config holds all configuration for fairval
type Config struct {
	Environment string         `toml:"environment"`
	Engine      EngineConfig   `toml:"engine"`
	Server      ServerConfig   `toml:"server"`
	Storage     StorageConfig  `toml:"storage"`
	Clients     ClientsConfig  `toml:"clients"`
	Rates       RatesConfig    `toml:"rates"`
	Portfolios  PortfolioFiles `toml:"portfolios"`
	Report      ReportConfig   `toml:"report"`
	Logging     LoggingConfig  `toml:"logging"`
}

// EngineConfig holds the valuation model parameters.
type EngineConfig struct {
	ForecastYears       int     `toml:"forecast_years"`
	PerpetualGrowthRate float64 `toml:"perpetual_growth_rate"`
	GrowthMode          string  `toml:"growth_mode"` // "tapering" (default) or "flat"
	GrowthFloor         float64 `toml:"growth_floor"`
	IRRLowerBound       float64 `toml:"irr_lower_bound"`
	IRRUpperBound       float64 `toml:"irr_upper_bound"`
	// Classification bands as ordered upper bounds on IRR.
	OvervaluedBelow  float64 `toml:"overvalued_below"`
	UndervaluedAbove float64 `toml:"undervalued_above"`
	// Batch valuation parallelism (bounded by provider rate limits).
	MaxWorkers int `toml:"max_workers"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// StorageConfig holds SurrealDB connection configuration.
type StorageConfig struct {
	Address   string `toml:"address"`
	Username  string `toml:"username"`
	Password  string `toml:"password"`
	Namespace string `toml:"namespace"`
	Database  string `toml:"database"`
	DataPath  string `toml:"data_path"` // fallback path for raw exports (charts, CSV)
}

// ClientsConfig holds API client configurations
type ClientsConfig struct {
	EODHD   EODHDConfig   `toml:"eodhd"`
	Gemini  GeminiConfig  `toml:"gemini"`
	FXRates FXRatesConfig `toml:"fxrates"`
}

// EODHDConfig holds EODHD API configuration
type EODHDConfig struct {
	BaseURL   string `toml:"base_url"`
	APIKey    string `toml:"api_key"`
	RateLimit int    `toml:"rate_limit"`
	Timeout   string `toml:"timeout"`
}

// GetTimeout parses and returns the timeout duration
func (c *EODHDConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// GeminiConfig holds Gemini API configuration
type GeminiConfig struct {
	APIKey string `toml:"api_key"`
	Model  string `toml:"model"`
}

// FXRatesConfig holds exchange-rate API configuration. The provider is
// keyless, so the client is enabled unless explicitly disabled.
type FXRatesConfig struct {
	BaseURL  string `toml:"base_url"`
	CacheTTL string `toml:"cache_ttl"`
	Disabled bool   `toml:"disabled"`
}

// GetCacheTTL parses and returns the rate-table cache duration
func (c *FXRatesConfig) GetCacheTTL() time.Duration {
	d, err := time.ParseDuration(c.CacheTTL)
	if err != nil {
		return time.Hour
	}
	return d
}

// RatesConfig holds discount-rate dataset configuration.
type RatesConfig struct {
	DataDir          string `toml:"data_dir"`           // directory holding per-country WACC CSV files
	SecurityIndex    string `toml:"security_index"`     // CSV mapping securities to country/industry
	MaxAgeDays       int    `toml:"max_age_days"`       // dataset staleness threshold
	RefreshInterval  string `toml:"refresh_interval"`   // how often the scheduler checks staleness
	DefaultWACC      float64 `toml:"default_wacc"`      // final fallback discount rate
	ReferenceCountry string `toml:"reference_country"`  // cross-country fallback dataset
}

// GetRefreshInterval parses and returns the scheduler interval.
func (c *RatesConfig) GetRefreshInterval() time.Duration {
	d, err := time.ParseDuration(c.RefreshInterval)
	if err != nil {
		return 6 * time.Hour
	}
	return d
}

// PortfolioFiles holds portfolio definition configuration.
type PortfolioFiles struct {
	Path string `toml:"path"` // JSON file of named portfolios, seeded into the store on startup
}

// ReportConfig holds report output configuration.
type ReportConfig struct {
	OutputDir string `toml:"output_dir"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// NewDefaultConfig returns a Config with sensible defaults
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Engine: EngineConfig{
			ForecastYears:       10,
			PerpetualGrowthRate: 0.025,
			GrowthMode:          "tapering",
			GrowthFloor:         0.0,
			IRRLowerBound:       -0.99,
			IRRUpperBound:       10.0,
			OvervaluedBelow:     0.10,
			UndervaluedAbove:    0.15,
			MaxWorkers:          4,
		},
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 4270,
		},
		Storage: StorageConfig{
			Address:   "ws://localhost:8000",
			Username:  "root",
			Password:  "root",
			Namespace: "fairval",
			Database:  "fairval",
			DataPath:  "data/output",
		},
		Clients: ClientsConfig{
			EODHD: EODHDConfig{
				BaseURL:   "https://eodhd.com/api",
				RateLimit: 5,
				Timeout:   "30s",
			},
			Gemini: GeminiConfig{
				Model: "gemini-2.0-flash",
			},
			FXRates: FXRatesConfig{
				BaseURL:  "https://api.exchangerate-api.com/v4",
				CacheTTL: "1h",
			},
		},
		Rates: RatesConfig{
			DataDir:          "data/rates",
			SecurityIndex:    "data/rates/security_index.csv",
			MaxAgeDays:       30,
			RefreshInterval:  "6h",
			DefaultWACC:      0.0892,
			ReferenceCountry: "US",
		},
		Portfolios: PortfolioFiles{
			Path: "data/portfolios.json",
		},
		Report: ReportConfig{
			OutputDir: "output",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// LoadConfig loads configuration from files with environment overrides.
// Later files override earlier ones; missing files are skipped.
func LoadConfig(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for _, path := range paths {
		if path == "" {
			continue
		}

		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("FAIRVAL_ENV"); env != "" {
		config.Environment = env
	}

	if host := os.Getenv("FAIRVAL_HOST"); host != "" {
		config.Server.Host = host
	}

	if port := os.Getenv("FAIRVAL_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}

	if level := os.Getenv("FAIRVAL_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	if key := os.Getenv("FAIRVAL_EODHD_API_KEY"); key != "" {
		config.Clients.EODHD.APIKey = key
	}

	if key := os.Getenv("FAIRVAL_GEMINI_API_KEY"); key != "" {
		config.Clients.Gemini.APIKey = key
	}

	if addr := os.Getenv("FAIRVAL_STORAGE_ADDRESS"); addr != "" {
		config.Storage.Address = addr
	}
}

// Validate checks the model parameters for values the engine cannot work with.
func (c *Config) Validate() error {
	e := c.Engine
	if e.ForecastYears <= 0 {
		return fmt.Errorf("engine.forecast_years must be positive, got %d", e.ForecastYears)
	}
	if e.PerpetualGrowthRate >= c.Rates.DefaultWACC {
		return fmt.Errorf("engine.perpetual_growth_rate (%.4f) must be below rates.default_wacc (%.4f)",
			e.PerpetualGrowthRate, c.Rates.DefaultWACC)
	}
	if e.GrowthMode != "tapering" && e.GrowthMode != "flat" {
		return fmt.Errorf("engine.growth_mode must be \"tapering\" or \"flat\", got %q", e.GrowthMode)
	}
	if e.IRRLowerBound >= e.IRRUpperBound {
		return fmt.Errorf("engine IRR bounds inverted: [%.2f, %.2f]", e.IRRLowerBound, e.IRRUpperBound)
	}
	if e.OvervaluedBelow >= e.UndervaluedAbove {
		return fmt.Errorf("engine classification thresholds overlap: overvalued_below %.4f >= undervalued_above %.4f",
			e.OvervaluedBelow, e.UndervaluedAbove)
	}
	if e.MaxWorkers <= 0 {
		return fmt.Errorf("engine.max_workers must be positive, got %d", e.MaxWorkers)
	}
	return nil
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production" || c.Environment == "prod"
}
