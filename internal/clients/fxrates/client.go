// Package fxrates provides a client for a keyless exchange-rate API
package fxrates

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/cmansell/fairval/internal/common"
	"github.com/cmansell/fairval/internal/interfaces"
)

const (
	DefaultBaseURL  = "https://api.exchangerate-api.com/v4"
	DefaultTimeout  = 10 * time.Second
	DefaultCacheTTL = time.Hour
)

// Client implements ExchangeRateClient against the exchangerate-api latest
// endpoint. Rate tables are cached per base currency so a batch of
// conversions in the same currency pair costs one request.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *common.Logger
	cacheTTL   time.Duration

	mu     sync.Mutex
	tables map[string]rateTable
}

type rateTable struct {
	rates     map[string]float64
	fetchedAt time.Time
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

// WithTimeout sets the HTTP timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithCacheTTL sets how long a fetched rate table stays fresh
func WithCacheTTL(ttl time.Duration) ClientOption {
	return func(c *Client) {
		c.cacheTTL = ttl
	}
}

// NewClient creates a new exchange-rate client
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		logger:   common.NewSilentLogger(),
		cacheTTL: DefaultCacheTTL,
		tables:   make(map[string]rateTable),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Rate returns the multiplier converting from-currency into to-currency,
// fetching the base currency's rate table when the cache is stale.
func (c *Client) Rate(ctx context.Context, from, to string) (float64, error) {
	if from == to {
		return 1.0, nil
	}

	table, err := c.table(ctx, from)
	if err != nil {
		return 0, err
	}

	rate, ok := table[to]
	if !ok || rate == 0 {
		return 0, fmt.Errorf("no exchange rate for %s -> %s", from, to)
	}
	return rate, nil
}

func (c *Client) table(ctx context.Context, base string) (map[string]float64, error) {
	c.mu.Lock()
	cached, ok := c.tables[base]
	c.mu.Unlock()
	if ok && time.Since(cached.fetchedAt) < c.cacheTTL {
		return cached.rates, nil
	}

	rates, err := c.fetchTable(ctx, base)
	if err != nil {
		// A stale table beats no table when the provider is down.
		if ok {
			c.logger.Warn().Err(err).Str("base", base).Msg("Exchange rate refresh failed, serving stale table")
			return cached.rates, nil
		}
		return nil, err
	}

	c.mu.Lock()
	c.tables[base] = rateTable{rates: rates, fetchedAt: time.Now()}
	c.mu.Unlock()

	c.logger.Debug().Str("base", base).Int("pairs", len(rates)).Msg("Exchange rate table refreshed")
	return rates, nil
}

func (c *Client) fetchTable(ctx context.Context, base string) (map[string]float64, error) {
	reqURL := fmt.Sprintf("%s/latest/%s", c.baseURL, base)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("exchange rate API error for %s: status %d: %s", base, resp.StatusCode, string(body))
	}

	var payload struct {
		Base  string             `json:"base"`
		Rates map[string]float64 `json:"rates"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(payload.Rates) == 0 {
		return nil, fmt.Errorf("empty rate table for %s", base)
	}

	return payload.Rates, nil
}

// Ensure Client implements ExchangeRateClient
var _ interfaces.ExchangeRateClient = (*Client)(nil)
