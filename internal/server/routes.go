package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/cmansell/fairval/internal/common"
)

// registerRoutes sets up all REST API routes on the mux.
func (s *Server) registerRoutes(mux *http.ServeMux) {
	// System
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/version", s.handleVersion)
	mux.HandleFunc("/api/config", s.handleConfig)
	mux.HandleFunc("/api/shutdown", s.handleShutdown)

	// Valuations
	mux.HandleFunc("/api/valuations/", s.routeValuations)
	mux.HandleFunc("/api/valuations", s.handleValuationBatch)

	// Portfolios
	mux.HandleFunc("/api/portfolios/", s.routePortfolios)
	mux.HandleFunc("/api/portfolios", s.handlePortfolioList)

	// Discount rates
	mux.HandleFunc("/api/industries", s.handleIndustryList)
	mux.HandleFunc("/api/rates/refresh", s.handleRateRefresh)
}

// routeValuations dispatches /api/valuations/{symbol} to the single-security handler.
func (s *Server) routeValuations(w http.ResponseWriter, r *http.Request) {
	symbol := strings.TrimPrefix(r.URL.Path, "/api/valuations/")
	if symbol == "" || strings.Contains(symbol, "/") {
		WriteError(w, http.StatusNotFound, "Not found")
		return
	}
	s.handleValuationGet(w, r, symbol)
}

// routePortfolios dispatches /api/portfolios/{name}/valuation.
func (s *Server) routePortfolios(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/portfolios/")
	if path == "" {
		WriteError(w, http.StatusBadRequest, "portfolio name is required in path")
		return
	}

	name, subpath, _ := strings.Cut(path, "/")
	if name == "" {
		WriteError(w, http.StatusBadRequest, "portfolio name is required in path")
		return
	}

	switch subpath {
	case "valuation":
		s.handlePortfolioValuation(w, r, name)
	case "question":
		s.handlePortfolioQuestion(w, r, name)
	default:
		WriteError(w, http.StatusNotFound, "Not found")
	}
}

// --- System handlers ---

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodHead) {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodHead) {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{
		"version": common.GetVersion(),
		"build":   common.GetBuild(),
		"commit":  common.GetGitCommit(),
	})
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"environment":       s.app.Config.Environment,
		"storage_address":   s.app.Config.Storage.Address,
		"storage_namespace": s.app.Config.Storage.Namespace,
		"storage_database":  s.app.Config.Storage.Database,
		"logging_level":     s.app.Config.Logging.Level,
		"max_workers":       s.app.Config.Engine.MaxWorkers,
		"eodhd_configured":  s.app.MarketClient != nil,
		"gemini_configured": s.app.Assistant != nil,
	})
}

// handleShutdown handles POST /api/shutdown (dev mode only).
func (s *Server) handleShutdown(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	if s.app.Config.IsProduction() {
		WriteError(w, http.StatusForbidden, "Shutdown endpoint disabled in production")
		return
	}

	s.logger.Info().Msg("Shutdown requested via HTTP endpoint")

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Shutting down gracefully...\n"))

	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}

	if s.shutdownChan != nil {
		go func() {
			time.Sleep(100 * time.Millisecond)
			s.shutdownChan <- struct{}{}
		}()
	}
}
