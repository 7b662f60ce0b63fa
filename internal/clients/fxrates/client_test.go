package fxrates

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func rateServer(t *testing.T, hits *int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*hits++
		if !strings.HasPrefix(r.URL.Path, "/latest/") {
			t.Errorf("unexpected path %s", r.URL.Path)
			http.NotFound(w, r)
			return
		}
		base := strings.TrimPrefix(r.URL.Path, "/latest/")
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"base": base,
			"rates": map[string]float64{
				"HKD": 1.089,
				"USD": 0.139,
			},
		})
	}))
}

func TestRate_SameCurrency(t *testing.T) {
	var hits int
	srv := rateServer(t, &hits)
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL))
	rate, err := client.Rate(context.Background(), "USD", "USD")
	if err != nil {
		t.Fatalf("Rate failed: %v", err)
	}
	if rate != 1.0 {
		t.Errorf("expected 1.0 for identical currencies, got %f", rate)
	}
	if hits != 0 {
		t.Errorf("identical currencies must not hit the API, got %d requests", hits)
	}
}

func TestRate_FetchesAndCaches(t *testing.T) {
	var hits int
	srv := rateServer(t, &hits)
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL))

	rate, err := client.Rate(context.Background(), "CNY", "HKD")
	if err != nil {
		t.Fatalf("Rate failed: %v", err)
	}
	if rate != 1.089 {
		t.Errorf("expected 1.089, got %f", rate)
	}

	// Second pair off the same base must come from the cached table.
	if _, err := client.Rate(context.Background(), "CNY", "USD"); err != nil {
		t.Fatalf("Rate failed: %v", err)
	}
	if hits != 1 {
		t.Errorf("expected a single API request for a cached base, got %d", hits)
	}
}

func TestRate_UnknownCurrency(t *testing.T) {
	var hits int
	srv := rateServer(t, &hits)
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL))
	if _, err := client.Rate(context.Background(), "CNY", "XXX"); err == nil {
		t.Fatal("expected an error for a currency absent from the table")
	}
}

func TestRate_ServesStaleTableOnRefreshFailure(t *testing.T) {
	var hits int
	var fail bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		if fail {
			http.Error(w, "upstream down", http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"base":  "CNY",
			"rates": map[string]float64{"HKD": 1.089},
		})
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL), WithCacheTTL(time.Nanosecond))

	if _, err := client.Rate(context.Background(), "CNY", "HKD"); err != nil {
		t.Fatalf("Rate failed: %v", err)
	}

	fail = true
	rate, err := client.Rate(context.Background(), "CNY", "HKD")
	if err != nil {
		t.Fatalf("expected the stale table to be served, got error: %v", err)
	}
	if rate != 1.089 {
		t.Errorf("expected stale rate 1.089, got %f", rate)
	}
}

func TestRate_ErrorWithNoCachedTable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL))
	if _, err := client.Rate(context.Background(), "CNY", "HKD"); err == nil {
		t.Fatal("expected an error when no table was ever fetched")
	}
}
