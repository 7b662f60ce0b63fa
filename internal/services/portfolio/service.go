// Package portfolio provides portfolio definition management
package portfolio

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/cmansell/fairval/internal/common"
	"github.com/cmansell/fairval/internal/interfaces"
	"github.com/cmansell/fairval/internal/models"
)

// Service implements PortfolioService over the portfolio store.
type Service struct {
	storage interfaces.StorageManager
	logger  *common.Logger
}

// NewService creates a new portfolio service
func NewService(storage interfaces.StorageManager, logger *common.Logger) *Service {
	return &Service{
		storage: storage,
		logger:  logger,
	}
}

// ResolvePortfolio returns the member identifiers of a named portfolio.
func (s *Service) ResolvePortfolio(ctx context.Context, name string) ([]models.SecurityIdentifier, error) {
	p, err := s.storage.PortfolioStore().GetPortfolio(ctx, name)
	if err != nil {
		return nil, err
	}
	return p.Identifiers(), nil
}

// ListPortfolios returns all portfolio definitions sorted by name.
func (s *Service) ListPortfolios(ctx context.Context) ([]*models.PortfolioDefinition, error) {
	portfolios, err := s.storage.PortfolioStore().ListPortfolios(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list portfolios: %w", err)
	}
	sort.Slice(portfolios, func(i, j int) bool { return portfolios[i].Name < portfolios[j].Name })
	return portfolios, nil
}

// SeedFromFile loads portfolio definitions from a JSON file into the store.
// Existing store entries win over the file: seeding fills gaps on first run
// without clobbering definitions edited through the API since.
func (s *Service) SeedFromFile(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			s.logger.Debug().Str("path", path).Msg("No portfolio seed file")
			return nil
		}
		return fmt.Errorf("failed to read portfolio file %s: %w", path, err)
	}

	var file models.PortfolioFile
	if err := json.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse portfolio file %s: %w", path, err)
	}

	store := s.storage.PortfolioStore()
	var seeded int
	for name, entry := range file.Portfolios {
		if _, err := store.GetPortfolio(ctx, name); err == nil {
			continue
		}

		p := &models.PortfolioDefinition{
			Name:        name,
			Description: entry.Description,
			Symbols:     entry.Stocks,
			UpdatedAt:   time.Now().UTC(),
		}
		if err := store.SavePortfolio(ctx, p); err != nil {
			return fmt.Errorf("failed to seed portfolio %q: %w", name, err)
		}
		seeded++
	}

	s.logger.Info().Str("path", path).Int("seeded", seeded).Int("total", len(file.Portfolios)).
		Msg("Portfolio seed file processed")
	return nil
}

// Ensure Service implements PortfolioService
var _ interfaces.PortfolioService = (*Service)(nil)
