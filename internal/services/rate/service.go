// Package rate exposes the discount-rate dataset to front ends
package rate

import (
	"context"

	"github.com/cmansell/fairval/internal/common"
	"github.com/cmansell/fairval/internal/interfaces"
	"github.com/cmansell/fairval/internal/models"
	"github.com/cmansell/fairval/internal/rates"
)

// Service implements RateService over the resolver and updater.
type Service struct {
	resolver *rates.Resolver
	updater  *rates.Updater
	logger   *common.Logger
}

// NewService creates a new rate service
func NewService(resolver *rates.Resolver, updater *rates.Updater, logger *common.Logger) *Service {
	return &Service{
		resolver: resolver,
		updater:  updater,
		logger:   logger,
	}
}

// ListIndustries returns the dataset industry labels for a country.
func (s *Service) ListIndustries(ctx context.Context, country models.Country) ([]string, error) {
	return s.resolver.Dataset().Industries(country), nil
}

// IndustryWACC returns one industry's rate by exact normalized lookup.
func (s *Service) IndustryWACC(ctx context.Context, country models.Country, industry string) (float64, error) {
	wacc, ok := s.resolver.Dataset().IndustryWACC(country, industry)
	if !ok {
		return 0, &models.IndustryNotFoundError{Industry: industry, Country: country}
	}
	return wacc, nil
}

// RefreshDataset rebuilds and atomically publishes the dataset.
func (s *Service) RefreshDataset(ctx context.Context) error {
	return s.updater.Refresh(ctx)
}

// RefreshIfStale refreshes only when the dataset is older than the
// configured maximum age.
func (s *Service) RefreshIfStale(ctx context.Context) (bool, error) {
	return s.updater.RefreshIfStale(ctx)
}

// Ensure Service implements RateService
var _ interfaces.RateService = (*Service)(nil)
