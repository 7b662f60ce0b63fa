// Package eodhd provides a client for the EODHD API
package eodhd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/cmansell/fairval/internal/common"
	"github.com/cmansell/fairval/internal/interfaces"
	"github.com/cmansell/fairval/internal/models"
)

// flexFloat64 handles JSON values that may be either a number or a string.
type flexFloat64 float64

func (f *flexFloat64) UnmarshalJSON(data []byte) error {
	var num float64
	if err := json.Unmarshal(data, &num); err == nil {
		*f = flexFloat64(num)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if s == "" || s == "N/A" {
			*f = 0
			return nil
		}
		num, err := strconv.ParseFloat(s, 64)
		if err != nil {
			*f = 0
			return nil
		}
		*f = flexFloat64(num)
		return nil
	}
	return fmt.Errorf("cannot unmarshal %s into float64", string(data))
}

const (
	DefaultBaseURL   = "https://eodhd.com/api"
	DefaultTimeout   = 30 * time.Second
	DefaultRateLimit = 10 // requests per second
)

// Client implements the MarketDataClient interface against EODHD.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *common.Logger
	limiter    *rate.Limiter
	fx         interfaces.ExchangeRateClient
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithBaseURL sets the base URL
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithLogger sets the logger
func WithLogger(logger *common.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRateLimit sets the rate limit
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
	}
}

// WithTimeout sets the HTTP timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithExchangeRates sets the client used to convert statement currencies
// onto the quote currency
func WithExchangeRates(fx interfaces.ExchangeRateClient) ClientOption {
	return func(c *Client) {
		c.fx = fx
	}
}

// NewClient creates a new EODHD client
func NewClient(apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		logger:  common.NewSilentLogger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// APIError represents an API error
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("EODHD API error: %s (status: %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

// get performs a rate-limited GET request
func (c *Client) get(ctx context.Context, path string, params url.Values, result interface{}) error {
	// Wait for rate limiter
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	// Add API key
	if params == nil {
		params = url.Values{}
	}
	params.Set("api_token", c.apiKey)
	params.Set("fmt", "json")

	reqURL := fmt.Sprintf("%s%s?%s", c.baseURL, path, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	c.logger.Debug().Str("url", c.baseURL+path).Msg("EODHD API request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    string(body),
			Endpoint:   path,
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

// FetchSnapshot retrieves fundamentals and the live quote for a security
// and assembles the valuation inputs. A 404 from either endpoint becomes a
// models.DataUnavailableError so batch callers can capture it per security.
func (c *Client) FetchSnapshot(ctx context.Context, id models.SecurityIdentifier) (*models.FinancialSnapshot, error) {
	fundamentals, err := c.getFundamentals(ctx, id.Symbol)
	if err != nil {
		return nil, wrapUnavailable(id, "fundamentals", err)
	}

	quote, err := c.getRealTimeQuote(ctx, id.Symbol)
	if err != nil {
		return nil, wrapUnavailable(id, "quote", err)
	}

	snapshot := &models.FinancialSnapshot{
		Security:          id,
		Name:              fundamentals.General.Name,
		Industry:          fundamentals.General.Industry,
		Sector:            fundamentals.General.Sector,
		Currency:          fundamentals.General.CurrencyCode,
		CurrentPrice:      float64(quote.Close),
		SharesOutstanding: float64(fundamentals.SharesStats.SharesOutstanding),
		FetchedAt:         time.Now().UTC(),
	}

	snapshot.FCFHistory = yearlyFreeCashFlows(fundamentals.Financials.CashFlow.Yearly)
	if len(snapshot.FCFHistory) > 0 {
		snapshot.LatestFCF = snapshot.FCFHistory[len(snapshot.FCFHistory)-1]
	}

	if netCash, ok := latestNetCash(fundamentals.Financials.BalanceSheet.Yearly); ok {
		snapshot.NetCash = netCash
		snapshot.HasBalanceSheet = true
	}

	c.normalizeCurrency(ctx, snapshot, statementCurrency(fundamentals))

	c.logger.Debug().
		Str("symbol", id.Symbol).
		Int("fcf_periods", len(snapshot.FCFHistory)).
		Bool("balance_sheet", snapshot.HasBalanceSheet).
		Msg("Snapshot assembled")

	return snapshot, nil
}

// statementCurrency returns the currency the financial statements are
// reported in, falling back to the quote currency when the provider omits it.
func statementCurrency(f *fundamentalsResponse) string {
	if c := f.Financials.CashFlow.CurrencySymbol; c != "" {
		return c
	}
	if c := f.Financials.BalanceSheet.CurrencySymbol; c != "" {
		return c
	}
	return f.General.CurrencyCode
}

// normalizeCurrency converts the cash-flow figures into the quote currency
// for cross-listed securities, where statements come back in a different
// currency than the price (HK listings with CNY statements, ADRs). When no
// rate can be obtained the figures are left as-is and FinancialsCurrency
// keeps the mismatch visible so downstream flags the result
// reduced-confidence.
func (c *Client) normalizeCurrency(ctx context.Context, snapshot *models.FinancialSnapshot, stmtCurrency string) {
	snapshot.FinancialsCurrency = stmtCurrency
	if stmtCurrency == "" || stmtCurrency == snapshot.Currency {
		snapshot.FinancialsCurrency = snapshot.Currency
		return
	}

	if c.fx == nil {
		c.logger.Warn().
			Str("symbol", snapshot.Security.Symbol).
			Str("statements", stmtCurrency).
			Str("quote", snapshot.Currency).
			Msg("No exchange rate client configured, statement currency left unconverted")
		return
	}

	fxRate, err := c.fx.Rate(ctx, stmtCurrency, snapshot.Currency)
	if err != nil {
		c.logger.Warn().Err(err).
			Str("symbol", snapshot.Security.Symbol).
			Str("statements", stmtCurrency).
			Str("quote", snapshot.Currency).
			Msg("Exchange rate unavailable, statement currency left unconverted")
		return
	}

	snapshot.LatestFCF *= fxRate
	for i := range snapshot.FCFHistory {
		snapshot.FCFHistory[i] *= fxRate
	}
	snapshot.NetCash *= fxRate
	snapshot.FinancialsCurrency = snapshot.Currency

	c.logger.Debug().
		Str("symbol", snapshot.Security.Symbol).
		Str("from", stmtCurrency).
		Str("to", snapshot.Currency).
		Float64("rate", fxRate).
		Msg("Statement currency converted")
}

// wrapUnavailable converts 404s into the typed per-security error; other
// failures pass through for retry handling upstream.
func wrapUnavailable(id models.SecurityIdentifier, cause string, err error) error {
	if apiErr, ok := err.(*APIError); ok && apiErr.StatusCode == http.StatusNotFound {
		return &models.DataUnavailableError{Security: id, Cause: cause + " not found", Err: err}
	}
	return fmt.Errorf("fetch %s for %s: %w", cause, id.Symbol, err)
}

// getFundamentals retrieves fundamental data
func (c *Client) getFundamentals(ctx context.Context, ticker string) (*fundamentalsResponse, error) {
	path := fmt.Sprintf("/fundamentals/%s", ticker)

	var resp fundamentalsResponse
	if err := c.get(ctx, path, nil, &resp); err != nil {
		return nil, err
	}

	return &resp, nil
}

// getRealTimeQuote retrieves the delayed live quote
func (c *Client) getRealTimeQuote(ctx context.Context, ticker string) (*realTimeResponse, error) {
	path := fmt.Sprintf("/real-time/%s", ticker)

	var resp realTimeResponse
	if err := c.get(ctx, path, nil, &resp); err != nil {
		return nil, err
	}

	return &resp, nil
}

// yearlyFreeCashFlows orders the yearly cash-flow statements oldest first
// and extracts free cash flow, deriving it from operating cash flow minus
// capital expenditure when the provider omits the precomputed field.
func yearlyFreeCashFlows(yearly map[string]cashFlowStatement) []float64 {
	if len(yearly) == 0 {
		return nil
	}

	dates := make([]string, 0, len(yearly))
	for date := range yearly {
		dates = append(dates, date)
	}
	sort.Strings(dates)

	flows := make([]float64, 0, len(dates))
	for _, date := range dates {
		stmt := yearly[date]
		fcf := float64(stmt.FreeCashFlow)
		if fcf == 0 && stmt.TotalCashFromOperatingActivities != 0 {
			// capitalExpenditures is reported as a positive outflow
			fcf = float64(stmt.TotalCashFromOperatingActivities) - float64(stmt.CapitalExpenditures)
		}
		flows = append(flows, fcf)
	}

	return flows
}

// latestNetCash computes cash plus short-term investments minus total debt
// from the most recent yearly balance sheet.
func latestNetCash(yearly map[string]balanceSheetStatement) (float64, bool) {
	if len(yearly) == 0 {
		return 0, false
	}

	var latest string
	for date := range yearly {
		if date > latest {
			latest = date
		}
	}

	stmt := yearly[latest]
	cash := float64(stmt.CashAndShortTermInvestments)
	if cash == 0 {
		cash = float64(stmt.Cash)
	}
	debt := float64(stmt.ShortLongTermDebtTotal)
	if debt == 0 {
		debt = float64(stmt.ShortTermDebt) + float64(stmt.LongTermDebt)
	}

	if cash == 0 && debt == 0 {
		return 0, false
	}
	return cash - debt, true
}

// fundamentalsResponse represents the API response structure
type fundamentalsResponse struct {
	General struct {
		Code         string `json:"Code"`
		Name         string `json:"Name"`
		Type         string `json:"Type"` // "Common Stock", "ETF", etc.
		Sector       string `json:"Sector"`
		Industry     string `json:"Industry"`
		CurrencyCode string `json:"CurrencyCode"`
	} `json:"General"`
	SharesStats struct {
		SharesOutstanding flexFloat64 `json:"SharesOutstanding"`
	} `json:"SharesStats"`
	Financials struct {
		CashFlow struct {
			CurrencySymbol string                       `json:"currency_symbol"`
			Yearly         map[string]cashFlowStatement `json:"yearly"`
		} `json:"Cash_Flow"`
		BalanceSheet struct {
			CurrencySymbol string                           `json:"currency_symbol"`
			Yearly         map[string]balanceSheetStatement `json:"yearly"`
		} `json:"Balance_Sheet"`
	} `json:"Financials"`
}

type cashFlowStatement struct {
	Date                             string      `json:"date"`
	FreeCashFlow                     flexFloat64 `json:"freeCashFlow"`
	TotalCashFromOperatingActivities flexFloat64 `json:"totalCashFromOperatingActivities"`
	CapitalExpenditures              flexFloat64 `json:"capitalExpenditures"`
}

type balanceSheetStatement struct {
	Date                        string      `json:"date"`
	Cash                        flexFloat64 `json:"cash"`
	CashAndShortTermInvestments flexFloat64 `json:"cashAndShortTermInvestments"`
	ShortTermDebt               flexFloat64 `json:"shortTermDebt"`
	LongTermDebt                flexFloat64 `json:"longTermDebt"`
	ShortLongTermDebtTotal      flexFloat64 `json:"shortLongTermDebtTotal"`
}

// realTimeResponse represents the delayed quote payload
type realTimeResponse struct {
	Code      string      `json:"code"`
	Close     flexFloat64 `json:"close"`
	Timestamp int64       `json:"timestamp"`
}

// Ensure Client implements MarketDataClient
var _ interfaces.MarketDataClient = (*Client)(nil)
