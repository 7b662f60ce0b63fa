// Package report renders valuation reports for human consumption
package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/cmansell/fairval/internal/common"
	"github.com/cmansell/fairval/internal/interfaces"
	"github.com/cmansell/fairval/internal/models"
)

// Service implements ReportService.
type Service struct {
	outputDir string
	logger    *common.Logger
}

// NewService creates a new report service
func NewService(cfg common.ReportConfig, logger *common.Logger) *Service {
	return &Service{
		outputDir: cfg.OutputDir,
		logger:    logger,
	}
}

// WriteCSV writes one row per entry, successes and failures both, and
// returns the file path.
func (s *Service) WriteCSV(report *models.ValuationReport, filename string) (string, error) {
	if err := os.MkdirAll(s.outputDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output dir: %w", err)
	}

	path := filepath.Join(s.outputDir, filename)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := []string{
		"symbol", "name", "price", "intrinsic_value", "upside_pct",
		"irr_pct", "verdict", "wacc_pct", "rate_source", "rate_industry",
		"confidence", "error",
	}
	if err := w.Write(header); err != nil {
		return "", fmt.Errorf("failed to write header: %w", err)
	}

	for _, entry := range report.Entries {
		if entry.Failed() {
			row := make([]string, len(header))
			row[0] = entry.Security.Symbol
			row[len(row)-1] = entry.ErrText
			if err := w.Write(row); err != nil {
				return "", fmt.Errorf("failed to write row: %w", err)
			}
			continue
		}

		r := entry.Result
		row := []string{
			r.Security.Symbol,
			r.Name,
			strconv.FormatFloat(r.CurrentPrice, 'f', 2, 64),
			strconv.FormatFloat(r.IntrinsicValue, 'f', 2, 64),
			strconv.FormatFloat(r.UpsideDownside*100, 'f', 1, 64),
			strconv.FormatFloat(r.IRR*100, 'f', 2, 64),
			string(r.Verdict),
			strconv.FormatFloat(r.Rate.WACC*100, 'f', 2, 64),
			string(r.Rate.Source),
			r.Rate.Industry,
			string(r.Confidence),
			"",
		}
		if err := w.Write(row); err != nil {
			return "", fmt.Errorf("failed to write row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("failed to flush csv: %w", err)
	}

	s.logger.Info().Str("path", path).Int("rows", len(report.Entries)).Msg("CSV report written")
	return path, nil
}

// WriteChart renders the projection chart PNG for one result and returns
// the file path.
func (s *Service) WriteChart(result *models.ValuationResult, filename string) (string, error) {
	if err := os.MkdirAll(s.outputDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output dir: %w", err)
	}

	png, err := renderProjectionChart(result)
	if err != nil {
		return "", err
	}

	path := filepath.Join(s.outputDir, filename)
	if err := os.WriteFile(path, png, 0o644); err != nil {
		return "", fmt.Errorf("failed to write chart %s: %w", path, err)
	}

	s.logger.Info().Str("path", path).Str("symbol", result.Security.Symbol).Msg("Projection chart written")
	return path, nil
}

// Ensure Service implements ReportService
var _ interfaces.ReportService = (*Service)(nil)
