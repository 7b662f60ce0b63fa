package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/cmansell/fairval/internal/models"
)

// --- Valuation handlers ---

func (s *Server) handleValuationGet(w http.ResponseWriter, r *http.Request, symbol string) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	id := models.ParseSecurityIdentifier(symbol)

	result, err := s.app.ValuationService.ValueOne(r.Context(), id)
	if err != nil {
		var unavailable *models.DataUnavailableError
		if errors.As(err, &unavailable) {
			WriteError(w, http.StatusNotFound, err.Error())
			return
		}
		var domain *models.DomainError
		if errors.As(err, &domain) {
			WriteError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Valuation error: %v", err))
		return
	}

	response := map[string]interface{}{
		"result": result,
	}

	if includeSensitivity(r) {
		cells, err := s.app.ValuationService.Sensitivity(r.Context(), id)
		if err != nil {
			s.logger.Warn().Err(err).Str("symbol", id.Symbol).Msg("Sensitivity grid failed")
		} else {
			response["sensitivity"] = cells
		}
	}

	WriteJSON(w, http.StatusOK, response)
}

func (s *Server) handleValuationBatch(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req struct {
		Symbols []string `json:"symbols"`
	}
	if !DecodeJSON(w, r, &req) {
		return
	}
	if len(req.Symbols) == 0 {
		WriteError(w, http.StatusBadRequest, "symbols is required")
		return
	}

	ids := make([]models.SecurityIdentifier, 0, len(req.Symbols))
	for _, sym := range req.Symbols {
		ids = append(ids, models.ParseSecurityIdentifier(sym))
	}

	report, err := s.app.ValuationService.ValueMany(r.Context(), ids)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Valuation error: %v", err))
		return
	}

	WriteJSON(w, http.StatusOK, report)
}

// --- Portfolio handlers ---

func (s *Server) handlePortfolioList(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	portfolios, err := s.app.PortfolioService.ListPortfolios(r.Context())
	if err != nil {
		WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Error listing portfolios: %v", err))
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"portfolios": portfolios,
	})
}

func (s *Server) handlePortfolioValuation(w http.ResponseWriter, r *http.Request, name string) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req struct {
		Explain bool `json:"explain"`
	}
	if r.Body != nil {
		decodeOptionalJSON(r, &req)
	}

	report, err := s.app.ValuationService.ValuePortfolio(r.Context(), name)
	if err != nil {
		var notFound *models.PortfolioNotFoundError
		if errors.As(err, &notFound) {
			WriteError(w, http.StatusNotFound, err.Error())
			return
		}
		WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Valuation error: %v", err))
		return
	}

	response := map[string]interface{}{
		"report": report,
	}

	if req.Explain {
		if s.app.Assistant == nil {
			response["explanation_error"] = "assistant not configured"
		} else if explanation, err := s.app.Assistant.ExplainReport(r.Context(), report); err != nil {
			s.logger.Warn().Err(err).Str("portfolio", name).Msg("Report explanation failed")
			response["explanation_error"] = err.Error()
		} else {
			response["explanation"] = explanation
		}
	}

	WriteJSON(w, http.StatusOK, response)
}

func (s *Server) handlePortfolioQuestion(w http.ResponseWriter, r *http.Request, name string) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	if s.app.Assistant == nil {
		WriteError(w, http.StatusNotImplemented, "assistant not configured")
		return
	}

	var req struct {
		Question string `json:"question"`
	}
	if !DecodeJSON(w, r, &req) {
		return
	}
	if req.Question == "" {
		WriteError(w, http.StatusBadRequest, "question is required")
		return
	}

	report, err := s.app.ValuationService.ValuePortfolio(r.Context(), name)
	if err != nil {
		var notFound *models.PortfolioNotFoundError
		if errors.As(err, &notFound) {
			WriteError(w, http.StatusNotFound, err.Error())
			return
		}
		WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Valuation error: %v", err))
		return
	}

	answer, err := s.app.Assistant.AnswerQuestion(r.Context(), report, req.Question)
	if err != nil {
		WriteError(w, http.StatusBadGateway, fmt.Sprintf("Assistant error: %v", err))
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"portfolio": name,
		"question":  req.Question,
		"answer":    answer,
	})
}

// --- Rate handlers ---

func (s *Server) handleIndustryList(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	country := models.CountryUS
	if c := r.URL.Query().Get("country"); c != "" {
		country = models.Country(c)
	}

	industries, err := s.app.RateService.ListIndustries(r.Context(), country)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Error listing industries: %v", err))
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"country":    country,
		"industries": industries,
	})
}

func (s *Server) handleRateRefresh(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req struct {
		Force bool `json:"force"`
	}
	if r.Body != nil {
		decodeOptionalJSON(r, &req)
	}

	if req.Force {
		if err := s.app.RateService.RefreshDataset(r.Context()); err != nil {
			WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Refresh error: %v", err))
			return
		}
		WriteJSON(w, http.StatusOK, map[string]interface{}{"refreshed": true, "forced": true})
		return
	}

	refreshed, err := s.app.RateService.RefreshIfStale(r.Context())
	if err != nil {
		WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Refresh error: %v", err))
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{"refreshed": refreshed, "forced": false})
}

// includeSensitivity reads the ?sensitivity= query flag.
func includeSensitivity(r *http.Request) bool {
	v, err := strconv.ParseBool(r.URL.Query().Get("sensitivity"))
	return err == nil && v
}

// decodeOptionalJSON decodes a request body when present, ignoring errors.
// Used for endpoints whose body carries only optional flags.
func decodeOptionalJSON(r *http.Request, v interface{}) {
	if r.Body == nil {
		return
	}
	json.NewDecoder(r.Body).Decode(v)
}
