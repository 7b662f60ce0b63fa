package eodhd

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/cmansell/fairval/internal/models"
)

func fundamentalsFixture() map[string]interface{} {
	return map[string]interface{}{
		"General": map[string]interface{}{
			"Code":         "AAPL",
			"Name":         "Apple Inc",
			"Type":         "Common Stock",
			"Sector":       "Technology",
			"Industry":     "Consumer Electronics",
			"CurrencyCode": "USD",
		},
		"SharesStats": map[string]interface{}{
			"SharesOutstanding": 15200000000.0,
		},
		"Financials": map[string]interface{}{
			"Cash_Flow": map[string]interface{}{
				"yearly": map[string]interface{}{
					"2023-09-30": map[string]interface{}{
						"date":         "2023-09-30",
						"freeCashFlow": "99584000000.00",
					},
					"2021-09-30": map[string]interface{}{
						"date":                             "2021-09-30",
						"totalCashFromOperatingActivities": "104038000000.00",
						"capitalExpenditures":              "11085000000.00",
					},
					"2022-09-30": map[string]interface{}{
						"date":         "2022-09-30",
						"freeCashFlow": "111443000000.00",
					},
				},
			},
			"Balance_Sheet": map[string]interface{}{
				"yearly": map[string]interface{}{
					"2022-09-30": map[string]interface{}{
						"date": "2022-09-30",
						"cashAndShortTermInvestments": "48304000000.00",
						"shortLongTermDebtTotal":      "120069000000.00",
					},
					"2023-09-30": map[string]interface{}{
						"date": "2023-09-30",
						"cashAndShortTermInvestments": "61555000000.00",
						"shortLongTermDebtTotal":      "111088000000.00",
					},
				},
			},
		},
	}
}

func snapshotServer(t *testing.T, fundamentals map[string]interface{}) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasPrefix(r.URL.Path, "/fundamentals/"):
			json.NewEncoder(w).Encode(fundamentals)
		case strings.HasPrefix(r.URL.Path, "/real-time/"):
			json.NewEncoder(w).Encode(map[string]interface{}{
				"code":      "AAPL.US",
				"close":     189.95,
				"timestamp": int64(1711670340),
			})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			http.NotFound(w, r)
		}
	}))
}

func TestFetchSnapshot_AssemblesInputs(t *testing.T) {
	srv := snapshotServer(t, fundamentalsFixture())
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL))
	snapshot, err := client.FetchSnapshot(context.Background(), models.ParseSecurityIdentifier("AAPL"))
	if err != nil {
		t.Fatalf("FetchSnapshot failed: %v", err)
	}

	if snapshot.Name != "Apple Inc" {
		t.Errorf("expected name Apple Inc, got %s", snapshot.Name)
	}
	if snapshot.Industry != "Consumer Electronics" {
		t.Errorf("expected industry Consumer Electronics, got %s", snapshot.Industry)
	}
	if snapshot.CurrentPrice != 189.95 {
		t.Errorf("expected price 189.95, got %.2f", snapshot.CurrentPrice)
	}
	if snapshot.SharesOutstanding != 15200000000 {
		t.Errorf("expected 15.2B shares, got %.0f", snapshot.SharesOutstanding)
	}

	// History must come back oldest first, with the derived 2021 value
	// (operating cash flow minus capex) leading.
	want := []float64{104038000000 - 11085000000, 111443000000, 99584000000}
	if len(snapshot.FCFHistory) != len(want) {
		t.Fatalf("expected %d history periods, got %d", len(want), len(snapshot.FCFHistory))
	}
	for i, w := range want {
		if snapshot.FCFHistory[i] != w {
			t.Errorf("history[%d]: expected %.0f, got %.0f", i, w, snapshot.FCFHistory[i])
		}
	}
	if snapshot.LatestFCF != 99584000000 {
		t.Errorf("expected latest FCF from most recent year, got %.0f", snapshot.LatestFCF)
	}

	// Net cash from the most recent balance sheet year.
	if !snapshot.HasBalanceSheet {
		t.Fatal("expected balance sheet data")
	}
	wantNetCash := 61555000000.0 - 111088000000.0
	if snapshot.NetCash != wantNetCash {
		t.Errorf("expected net cash %.0f, got %.0f", wantNetCash, snapshot.NetCash)
	}
}

func TestFetchSnapshot_NoBalanceSheet(t *testing.T) {
	fundamentals := fundamentalsFixture()
	fundamentals["Financials"].(map[string]interface{})["Balance_Sheet"] = map[string]interface{}{}

	srv := snapshotServer(t, fundamentals)
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL))
	snapshot, err := client.FetchSnapshot(context.Background(), models.ParseSecurityIdentifier("AAPL"))
	if err != nil {
		t.Fatalf("FetchSnapshot failed: %v", err)
	}

	if snapshot.HasBalanceSheet {
		t.Error("expected HasBalanceSheet=false when the provider omits it")
	}
	if snapshot.NetCash != 0 {
		t.Errorf("expected zero net cash, got %.0f", snapshot.NetCash)
	}
}

type stubFX struct {
	rate  float64
	err   error
	calls []string
}

func (s *stubFX) Rate(ctx context.Context, from, to string) (float64, error) {
	s.calls = append(s.calls, from+"->"+to)
	if s.err != nil {
		return 0, s.err
	}
	return s.rate, nil
}

func crossListedFixture() map[string]interface{} {
	fundamentals := fundamentalsFixture()
	fundamentals["General"].(map[string]interface{})["CurrencyCode"] = "HKD"
	fundamentals["Financials"].(map[string]interface{})["Cash_Flow"].(map[string]interface{})["currency_symbol"] = "CNY"
	return fundamentals
}

func TestFetchSnapshot_ConvertsStatementCurrency(t *testing.T) {
	srv := snapshotServer(t, crossListedFixture())
	defer srv.Close()

	fx := &stubFX{rate: 1.1}
	client := NewClient("test-key", WithBaseURL(srv.URL), WithExchangeRates(fx))
	snapshot, err := client.FetchSnapshot(context.Background(), models.ParseSecurityIdentifier("0700.HK"))
	if err != nil {
		t.Fatalf("FetchSnapshot failed: %v", err)
	}

	if len(fx.calls) != 1 || fx.calls[0] != "CNY->HKD" {
		t.Fatalf("expected one CNY->HKD rate lookup, got %v", fx.calls)
	}

	if snapshot.FinancialsCurrency != "HKD" {
		t.Errorf("expected converted statements flagged as HKD, got %s", snapshot.FinancialsCurrency)
	}
	if snapshot.CurrencyMismatch() {
		t.Error("expected no remaining currency mismatch after conversion")
	}
	rate := fx.rate
	if want := 99584000000.0 * rate; snapshot.LatestFCF != want {
		t.Errorf("expected converted latest FCF %.0f, got %.0f", want, snapshot.LatestFCF)
	}
	if want := 111443000000.0 * rate; snapshot.FCFHistory[1] != want {
		t.Errorf("expected converted history %.0f, got %.0f", want, snapshot.FCFHistory[1])
	}
	if want := (61555000000.0 - 111088000000.0) * rate; snapshot.NetCash != want {
		t.Errorf("expected converted net cash %.0f, got %.0f", want, snapshot.NetCash)
	}
}

func TestFetchSnapshot_KeepsMismatchWhenRateUnavailable(t *testing.T) {
	srv := snapshotServer(t, crossListedFixture())
	defer srv.Close()

	fx := &stubFX{err: errors.New("provider down")}
	client := NewClient("test-key", WithBaseURL(srv.URL), WithExchangeRates(fx))
	snapshot, err := client.FetchSnapshot(context.Background(), models.ParseSecurityIdentifier("0700.HK"))
	if err != nil {
		t.Fatalf("FetchSnapshot failed: %v", err)
	}

	if snapshot.FinancialsCurrency != "CNY" {
		t.Errorf("expected statements still flagged CNY, got %s", snapshot.FinancialsCurrency)
	}
	if !snapshot.CurrencyMismatch() {
		t.Error("expected a currency mismatch when the rate lookup fails")
	}
	if snapshot.LatestFCF != 99584000000 {
		t.Errorf("expected raw latest FCF, got %.0f", snapshot.LatestFCF)
	}
}

func TestFetchSnapshot_NoConversionForMatchingCurrencies(t *testing.T) {
	srv := snapshotServer(t, fundamentalsFixture())
	defer srv.Close()

	fx := &stubFX{rate: 2.0}
	client := NewClient("test-key", WithBaseURL(srv.URL), WithExchangeRates(fx))
	snapshot, err := client.FetchSnapshot(context.Background(), models.ParseSecurityIdentifier("AAPL"))
	if err != nil {
		t.Fatalf("FetchSnapshot failed: %v", err)
	}

	if len(fx.calls) != 0 {
		t.Errorf("expected no rate lookups for matching currencies, got %v", fx.calls)
	}
	if snapshot.FinancialsCurrency != "USD" {
		t.Errorf("expected statements flagged USD, got %s", snapshot.FinancialsCurrency)
	}
	if snapshot.LatestFCF != 99584000000 {
		t.Errorf("expected unscaled latest FCF, got %.0f", snapshot.LatestFCF)
	}
}

func TestFetchSnapshot_UnknownSecurity(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL))
	_, err := client.FetchSnapshot(context.Background(), models.ParseSecurityIdentifier("NOPE"))
	if err == nil {
		t.Fatal("expected an error for an unknown security")
	}

	var unavailable *models.DataUnavailableError
	if !errors.As(err, &unavailable) {
		t.Fatalf("expected DataUnavailableError, got %T: %v", err, err)
	}
	if unavailable.Security.Symbol != "NOPE" {
		t.Errorf("expected error stamped with symbol NOPE, got %s", unavailable.Security.Symbol)
	}
}

func TestGet_SendsAPIToken(t *testing.T) {
	var capturedQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capturedQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{})
	}))
	defer srv.Close()

	client := NewClient("secret-token", WithBaseURL(srv.URL))
	var out map[string]interface{}
	if err := client.get(context.Background(), "/fundamentals/AAPL", nil, &out); err != nil {
		t.Fatalf("get failed: %v", err)
	}

	if !strings.Contains(capturedQuery, "api_token=secret-token") {
		t.Errorf("expected api_token in query, got %s", capturedQuery)
	}
	if !strings.Contains(capturedQuery, "fmt=json") {
		t.Errorf("expected fmt=json in query, got %s", capturedQuery)
	}
}
