package surrealdb

import (
	"context"
	"fmt"

	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/cmansell/fairval/internal/common"
	"github.com/cmansell/fairval/internal/models"
)

type PortfolioStore struct {
	db     *surrealdb.DB
	logger *common.Logger
}

func NewPortfolioStore(db *surrealdb.DB, logger *common.Logger) *PortfolioStore {
	return &PortfolioStore{
		db:     db,
		logger: logger,
	}
}

func (s *PortfolioStore) GetPortfolio(ctx context.Context, name string) (*models.PortfolioDefinition, error) {
	p, err := surrealdb.Select[models.PortfolioDefinition](ctx, s.db, surrealmodels.NewRecordID("portfolio", name))
	if err != nil {
		return nil, fmt.Errorf("failed to select portfolio: %w", err)
	}
	if p == nil || p.Name == "" {
		available, listErr := s.listNames(ctx)
		if listErr != nil {
			s.logger.Warn().Err(listErr).Msg("Failed to list portfolios for error context")
		}
		return nil, &models.PortfolioNotFoundError{Name: name, Available: available}
	}
	return p, nil
}

func (s *PortfolioStore) SavePortfolio(ctx context.Context, p *models.PortfolioDefinition) error {
	sql := "UPSERT type::record('portfolio', $id) CONTENT $portfolio"
	vars := map[string]any{"id": p.Name, "portfolio": p}

	for attempt := 1; attempt <= 3; attempt++ {
		_, err := surrealdb.Query[[]models.PortfolioDefinition](ctx, s.db, sql, vars)
		if err == nil {
			return nil
		}
		if attempt == 3 {
			return fmt.Errorf("failed to save portfolio after retries: %w", err)
		}
	}
	return nil
}

func (s *PortfolioStore) ListPortfolios(ctx context.Context) ([]*models.PortfolioDefinition, error) {
	list, err := surrealdb.Select[[]models.PortfolioDefinition](ctx, s.db, surrealmodels.Table("portfolio"))
	if err != nil {
		return nil, fmt.Errorf("failed to list portfolios: %w", err)
	}

	var portfolios []*models.PortfolioDefinition
	if list != nil {
		for i := range *list {
			if (*list)[i].Name != "" {
				portfolios = append(portfolios, &(*list)[i])
			}
		}
	}
	return portfolios, nil
}

func (s *PortfolioStore) DeletePortfolio(ctx context.Context, name string) error {
	_, err := surrealdb.Delete[models.PortfolioDefinition](ctx, s.db, surrealmodels.NewRecordID("portfolio", name))
	if err != nil {
		return fmt.Errorf("failed to delete portfolio: %w", err)
	}
	return nil
}

func (s *PortfolioStore) listNames(ctx context.Context) ([]string, error) {
	list, err := s.ListPortfolios(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(list))
	for _, p := range list {
		names = append(names, p.Name)
	}
	return names, nil
}
