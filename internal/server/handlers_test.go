package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/cmansell/fairval/internal/app"
	"github.com/cmansell/fairval/internal/common"
	"github.com/cmansell/fairval/internal/interfaces"
	"github.com/cmansell/fairval/internal/models"
)

// mockValuationService implements interfaces.ValuationService for testing.
type mockValuationService struct {
	valueOne       func(ctx context.Context, id models.SecurityIdentifier) (*models.ValuationResult, error)
	valueMany      func(ctx context.Context, ids []models.SecurityIdentifier) (*models.ValuationReport, error)
	valuePortfolio func(ctx context.Context, name string) (*models.ValuationReport, error)
	sensitivity    func(ctx context.Context, id models.SecurityIdentifier) ([]models.SensitivityCell, error)
}

func (m *mockValuationService) ValueOne(ctx context.Context, id models.SecurityIdentifier) (*models.ValuationResult, error) {
	return m.valueOne(ctx, id)
}

func (m *mockValuationService) ValueMany(ctx context.Context, ids []models.SecurityIdentifier) (*models.ValuationReport, error) {
	return m.valueMany(ctx, ids)
}

func (m *mockValuationService) ValuePortfolio(ctx context.Context, name string) (*models.ValuationReport, error) {
	return m.valuePortfolio(ctx, name)
}

func (m *mockValuationService) Sensitivity(ctx context.Context, id models.SecurityIdentifier) ([]models.SensitivityCell, error) {
	if m.sensitivity != nil {
		return m.sensitivity(ctx, id)
	}
	return nil, nil
}

// mockRateService implements interfaces.RateService for testing.
type mockRateService struct {
	listIndustries func(ctx context.Context, country models.Country) ([]string, error)
	refresh        func(ctx context.Context) error
	refreshIfStale func(ctx context.Context) (bool, error)
}

func (m *mockRateService) ListIndustries(ctx context.Context, country models.Country) ([]string, error) {
	return m.listIndustries(ctx, country)
}

func (m *mockRateService) IndustryWACC(ctx context.Context, country models.Country, industry string) (float64, error) {
	return 0, nil
}

func (m *mockRateService) RefreshDataset(ctx context.Context) error {
	if m.refresh != nil {
		return m.refresh(ctx)
	}
	return nil
}

func (m *mockRateService) RefreshIfStale(ctx context.Context) (bool, error) {
	if m.refreshIfStale != nil {
		return m.refreshIfStale(ctx)
	}
	return false, nil
}

// mockPortfolioService implements interfaces.PortfolioService for testing.
type mockPortfolioService struct {
	listPortfolios func(ctx context.Context) ([]*models.PortfolioDefinition, error)
}

func (m *mockPortfolioService) ResolvePortfolio(ctx context.Context, name string) ([]models.SecurityIdentifier, error) {
	return nil, nil
}

func (m *mockPortfolioService) ListPortfolios(ctx context.Context) ([]*models.PortfolioDefinition, error) {
	if m.listPortfolios != nil {
		return m.listPortfolios(ctx)
	}
	return nil, nil
}

func (m *mockPortfolioService) SeedFromFile(ctx context.Context, path string) error {
	return nil
}

func newTestServer(valuationSvc interfaces.ValuationService) *Server {
	return newTestServerWith(valuationSvc, &mockRateService{}, &mockPortfolioService{})
}

func newTestServerWith(valuationSvc interfaces.ValuationService, rateSvc interfaces.RateService, portfolioSvc interfaces.PortfolioService) *Server {
	logger := common.NewSilentLogger()
	a := &app.App{
		Config:           common.NewDefaultConfig(),
		Logger:           logger,
		ValuationService: valuationSvc,
		RateService:      rateSvc,
		PortfolioService: portfolioSvc,
	}
	return &Server{app: a, logger: logger}
}

func testResult(symbol string) *models.ValuationResult {
	return &models.ValuationResult{
		Security:       models.ParseSecurityIdentifier(symbol),
		Name:           "Test Corp",
		CurrentPrice:   100,
		IntrinsicValue: 130,
		UpsideDownside: 0.3,
		IRR:            0.18,
		Verdict:        models.VerdictUndervalued,
		Confidence:     models.ConfidenceFull,
	}
}

func TestHandleValuationGet_ReturnsResult(t *testing.T) {
	svc := &mockValuationService{
		valueOne: func(ctx context.Context, id models.SecurityIdentifier) (*models.ValuationResult, error) {
			return testResult(id.Symbol), nil
		},
	}

	srv := newTestServer(svc)
	req := httptest.NewRequest(http.MethodGet, "/api/valuations/AAPL", nil)
	rec := httptest.NewRecorder()

	srv.handleValuationGet(rec, req, "AAPL")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var got struct {
		Result models.ValuationResult `json:"result"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if got.Result.Security.Symbol != "AAPL" {
		t.Errorf("expected symbol AAPL, got %q", got.Result.Security.Symbol)
	}
	if got.Result.Verdict != models.VerdictUndervalued {
		t.Errorf("expected verdict undervalued, got %q", got.Result.Verdict)
	}
}

func TestHandleValuationGet_DataUnavailable_Returns404(t *testing.T) {
	svc := &mockValuationService{
		valueOne: func(ctx context.Context, id models.SecurityIdentifier) (*models.ValuationResult, error) {
			return nil, &models.DataUnavailableError{Security: id, Cause: "unknown symbol"}
		},
	}

	srv := newTestServer(svc)
	req := httptest.NewRequest(http.MethodGet, "/api/valuations/NOPE", nil)
	rec := httptest.NewRecorder()

	srv.handleValuationGet(rec, req, "NOPE")

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rec.Code)
	}
}

func TestHandleValuationGet_DomainError_Returns422(t *testing.T) {
	svc := &mockValuationService{
		valueOne: func(ctx context.Context, id models.SecurityIdentifier) (*models.ValuationResult, error) {
			return nil, &models.DomainError{Security: id, Cause: "latest free cash flow is not positive"}
		},
	}

	srv := newTestServer(svc)
	req := httptest.NewRequest(http.MethodGet, "/api/valuations/LOSS", nil)
	rec := httptest.NewRecorder()

	srv.handleValuationGet(rec, req, "LOSS")

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected status 422, got %d", rec.Code)
	}
}

func TestHandleValuationGet_WithSensitivity(t *testing.T) {
	svc := &mockValuationService{
		valueOne: func(ctx context.Context, id models.SecurityIdentifier) (*models.ValuationResult, error) {
			return testResult(id.Symbol), nil
		},
		sensitivity: func(ctx context.Context, id models.SecurityIdentifier) ([]models.SensitivityCell, error) {
			return []models.SensitivityCell{{WACC: 0.09, GrowthRate: 0.1, IntrinsicValue: 120}}, nil
		},
	}

	srv := newTestServer(svc)
	req := httptest.NewRequest(http.MethodGet, "/api/valuations/AAPL?sensitivity=true", nil)
	rec := httptest.NewRecorder()

	srv.handleValuationGet(rec, req, "AAPL")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "sensitivity") {
		t.Errorf("expected sensitivity cells in response, got %s", rec.Body.String())
	}
}

func TestHandleValuationBatch_ReturnsReport(t *testing.T) {
	svc := &mockValuationService{
		valueMany: func(ctx context.Context, ids []models.SecurityIdentifier) (*models.ValuationReport, error) {
			entries := make([]models.ValuationEntry, 0, len(ids))
			for _, id := range ids {
				entries = append(entries, models.ValuationEntry{Security: id, Result: testResult(id.Symbol)})
			}
			return &models.ValuationReport{RunID: "run-1", Entries: entries}, nil
		},
	}

	srv := newTestServer(svc)
	body := strings.NewReader(`{"symbols": ["AAPL", "600519.SS"]}`)
	req := httptest.NewRequest(http.MethodPost, "/api/valuations", body)
	rec := httptest.NewRecorder()

	srv.handleValuationBatch(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var got models.ValuationReport
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(got.Entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(got.Entries))
	}
}

func TestHandleValuationBatch_EmptySymbols_Returns400(t *testing.T) {
	srv := newTestServer(&mockValuationService{})
	body := strings.NewReader(`{"symbols": []}`)
	req := httptest.NewRequest(http.MethodPost, "/api/valuations", body)
	rec := httptest.NewRecorder()

	srv.handleValuationBatch(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
}

func TestHandleValuationBatch_RequiresPost(t *testing.T) {
	srv := newTestServer(&mockValuationService{})
	req := httptest.NewRequest(http.MethodGet, "/api/valuations", nil)
	rec := httptest.NewRecorder()

	srv.handleValuationBatch(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected status 405, got %d", rec.Code)
	}
}

func TestHandlePortfolioValuation_NotFound(t *testing.T) {
	svc := &mockValuationService{
		valuePortfolio: func(ctx context.Context, name string) (*models.ValuationReport, error) {
			return nil, &models.PortfolioNotFoundError{Name: name, Available: []string{"growth"}}
		},
	}

	srv := newTestServer(svc)
	req := httptest.NewRequest(http.MethodPost, "/api/portfolios/missing/valuation", nil)
	rec := httptest.NewRecorder()

	srv.handlePortfolioValuation(rec, req, "missing")

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rec.Code)
	}
}

func TestHandlePortfolioValuation_ExplainWithoutAssistant(t *testing.T) {
	svc := &mockValuationService{
		valuePortfolio: func(ctx context.Context, name string) (*models.ValuationReport, error) {
			return &models.ValuationReport{RunID: "run-1", Portfolio: name}, nil
		},
	}

	srv := newTestServer(svc)
	body := strings.NewReader(`{"explain": true}`)
	req := httptest.NewRequest(http.MethodPost, "/api/portfolios/growth/valuation", body)
	rec := httptest.NewRecorder()

	srv.handlePortfolioValuation(rec, req, "growth")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "assistant not configured") {
		t.Errorf("expected explanation_error in response, got %s", rec.Body.String())
	}
}

func TestHandlePortfolioList(t *testing.T) {
	portfolioSvc := &mockPortfolioService{
		listPortfolios: func(ctx context.Context) ([]*models.PortfolioDefinition, error) {
			return []*models.PortfolioDefinition{{Name: "growth", Symbols: []string{"AAPL"}}}, nil
		},
	}

	srv := newTestServerWith(&mockValuationService{}, &mockRateService{}, portfolioSvc)
	req := httptest.NewRequest(http.MethodGet, "/api/portfolios", nil)
	rec := httptest.NewRecorder()

	srv.handlePortfolioList(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "growth") {
		t.Errorf("expected portfolio list in response, got %s", rec.Body.String())
	}
}

func TestHandleIndustryList_CountryParam(t *testing.T) {
	var gotCountry models.Country
	rateSvc := &mockRateService{
		listIndustries: func(ctx context.Context, country models.Country) ([]string, error) {
			gotCountry = country
			return []string{"Banking"}, nil
		},
	}

	srv := newTestServerWith(&mockValuationService{}, rateSvc, &mockPortfolioService{})
	req := httptest.NewRequest(http.MethodGet, "/api/industries?country=China", nil)
	rec := httptest.NewRecorder()

	srv.handleIndustryList(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if gotCountry != models.CountryChina {
		t.Errorf("expected country China, got %q", gotCountry)
	}
}

func TestHandleIndustryList_DefaultsToUS(t *testing.T) {
	var gotCountry models.Country
	rateSvc := &mockRateService{
		listIndustries: func(ctx context.Context, country models.Country) ([]string, error) {
			gotCountry = country
			return nil, nil
		},
	}

	srv := newTestServerWith(&mockValuationService{}, rateSvc, &mockPortfolioService{})
	req := httptest.NewRequest(http.MethodGet, "/api/industries", nil)
	rec := httptest.NewRecorder()

	srv.handleIndustryList(rec, req)

	if gotCountry != models.CountryUS {
		t.Errorf("expected country US, got %q", gotCountry)
	}
}

func TestHandleRateRefresh_Force(t *testing.T) {
	forced := false
	rateSvc := &mockRateService{
		refresh: func(ctx context.Context) error {
			forced = true
			return nil
		},
	}

	srv := newTestServerWith(&mockValuationService{}, rateSvc, &mockPortfolioService{})
	body := strings.NewReader(`{"force": true}`)
	req := httptest.NewRequest(http.MethodPost, "/api/rates/refresh", body)
	rec := httptest.NewRecorder()

	srv.handleRateRefresh(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if !forced {
		t.Error("expected forced refresh to run")
	}
}

func TestHandleRateRefresh_Stale(t *testing.T) {
	rateSvc := &mockRateService{
		refreshIfStale: func(ctx context.Context) (bool, error) {
			return false, nil
		},
	}

	srv := newTestServerWith(&mockValuationService{}, rateSvc, &mockPortfolioService{})
	req := httptest.NewRequest(http.MethodPost, "/api/rates/refresh", nil)
	rec := httptest.NewRecorder()

	srv.handleRateRefresh(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"refreshed":false`) {
		t.Errorf("expected refreshed false, got %s", rec.Body.String())
	}
}

func TestHandleHealth(t *testing.T) {
	srv := newTestServer(&mockValuationService{})
	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()

	srv.handleHealth(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"status":"ok"`) {
		t.Errorf("unexpected health body: %s", rec.Body.String())
	}
}

// mockAssistant implements interfaces.AssistantClient for testing.
type mockAssistant struct {
	answer func(ctx context.Context, report *models.ValuationReport, question string) (string, error)
}

func (m *mockAssistant) ExplainReport(ctx context.Context, report *models.ValuationReport) (string, error) {
	return "", nil
}

func (m *mockAssistant) AnswerQuestion(ctx context.Context, report *models.ValuationReport, question string) (string, error) {
	return m.answer(ctx, report, question)
}

func TestHandlePortfolioQuestion_NoAssistant_Returns501(t *testing.T) {
	svc := &mockValuationService{
		valuePortfolio: func(ctx context.Context, name string) (*models.ValuationReport, error) {
			return &models.ValuationReport{Portfolio: name}, nil
		},
	}

	srv := newTestServer(svc)
	body := strings.NewReader(`{"question": "which holding looks cheapest?"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/portfolios/growth/question", body)
	rec := httptest.NewRecorder()

	srv.handlePortfolioQuestion(rec, req, "growth")

	if rec.Code != http.StatusNotImplemented {
		t.Fatalf("expected status 501, got %d", rec.Code)
	}
}

func TestHandlePortfolioQuestion_Success(t *testing.T) {
	svc := &mockValuationService{
		valuePortfolio: func(ctx context.Context, name string) (*models.ValuationReport, error) {
			return &models.ValuationReport{Portfolio: name}, nil
		},
	}
	srv := newTestServer(svc)
	srv.app.Assistant = &mockAssistant{
		answer: func(ctx context.Context, report *models.ValuationReport, question string) (string, error) {
			if report.Portfolio != "growth" {
				t.Errorf("expected report for growth, got %q", report.Portfolio)
			}
			return "AAPL has the highest IRR.", nil
		},
	}

	body := strings.NewReader(`{"question": "which holding looks cheapest?"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/portfolios/growth/question", body)
	rec := httptest.NewRecorder()

	srv.handlePortfolioQuestion(rec, req, "growth")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "AAPL has the highest IRR.") {
		t.Errorf("expected answer in response, got %s", rec.Body.String())
	}
}

func TestHandlePortfolioQuestion_MissingQuestion_Returns400(t *testing.T) {
	srv := newTestServer(&mockValuationService{})
	srv.app.Assistant = &mockAssistant{}

	body := strings.NewReader(`{}`)
	req := httptest.NewRequest(http.MethodPost, "/api/portfolios/growth/question", body)
	rec := httptest.NewRecorder()

	srv.handlePortfolioQuestion(rec, req, "growth")

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
}
