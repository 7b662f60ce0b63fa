// Package valuation provides the valuation orchestration service
package valuation

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cmansell/fairval/internal/common"
	"github.com/cmansell/fairval/internal/interfaces"
	"github.com/cmansell/fairval/internal/models"
	"github.com/cmansell/fairval/internal/rates"
	"github.com/cmansell/fairval/internal/valuation"
)

const (
	// Sensitivity grid half-widths around the base scenario.
	sensitivityWACCRange   = 0.01
	sensitivityGrowthRange = 0.02
)

// Service implements ValuationService. It owns the fetch → resolve → value
// pipeline and the batch worker pool; the engine itself stays pure.
type Service struct {
	engine     *valuation.Engine
	market     interfaces.MarketDataClient
	resolver   *rates.Resolver
	portfolios interfaces.PortfolioService
	maxWorkers int
	logger     *common.Logger
}

// NewService creates a new valuation service
func NewService(
	cfg common.EngineConfig,
	market interfaces.MarketDataClient,
	resolver *rates.Resolver,
	portfolios interfaces.PortfolioService,
	logger *common.Logger,
) (*Service, error) {
	engine, err := valuation.NewEngine(cfg)
	if err != nil {
		return nil, err
	}

	maxWorkers := cfg.MaxWorkers
	if maxWorkers <= 0 {
		maxWorkers = 1
	}

	return &Service{
		engine:     engine,
		market:     market,
		resolver:   resolver,
		portfolios: portfolios,
		maxWorkers: maxWorkers,
		logger:     logger,
	}, nil
}

// ValueOne values a single security.
func (s *Service) ValueOne(ctx context.Context, id models.SecurityIdentifier) (*models.ValuationResult, error) {
	if s.market == nil {
		return nil, &models.DataUnavailableError{Security: id, Cause: "market data provider not configured"}
	}

	snapshot, err := s.market.FetchSnapshot(ctx, id)
	if err != nil {
		return nil, err
	}

	rate := s.resolver.Resolve(id, snapshot.Industry)

	result, err := s.engine.Value(snapshot, rate)
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("symbol", id.Symbol).
		Float64("intrinsic", result.IntrinsicValue).
		Float64("irr", result.IRR).
		Str("verdict", string(result.Verdict)).
		Str("rate_source", string(rate.Source)).
		Msg("Security valued")

	return result, nil
}

// ValueMany values securities concurrently with partial-failure semantics:
// each failure is captured in its entry and never aborts the batch. Entries
// come back in input order regardless of completion order.
func (s *Service) ValueMany(ctx context.Context, ids []models.SecurityIdentifier) (*models.ValuationReport, error) {
	report := &models.ValuationReport{
		RunID:     uuid.NewString(),
		Entries:   make([]models.ValuationEntry, len(ids)),
		StartedAt: time.Now().UTC(),
	}

	workers := s.maxWorkers
	if workers > len(ids) {
		workers = len(ids)
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				id := ids[i]
				entry := models.ValuationEntry{Security: id}

				result, err := s.ValueOne(ctx, id)
				if err != nil {
					entry.Err = err
					entry.ErrText = err.Error()
					s.logger.Warn().Str("symbol", id.Symbol).Err(err).Msg("Valuation failed")
				} else {
					entry.Result = result
				}
				report.Entries[i] = entry
			}
		}()
	}

	for i := range ids {
		select {
		case jobs <- i:
		case <-ctx.Done():
			// Jobs are dispatched in input order, so everything from i on
			// was never handed to a worker. Mark those entries cancelled
			// rather than leaving holes in the report.
			close(jobs)
			wg.Wait()
			for j := i; j < len(ids); j++ {
				report.Entries[j] = models.ValuationEntry{
					Security: ids[j],
					Err:      ctx.Err(),
					ErrText:  ctx.Err().Error(),
				}
			}
			report.Elapsed = time.Since(report.StartedAt)
			return report, ctx.Err()
		}
	}
	close(jobs)
	wg.Wait()

	report.Elapsed = time.Since(report.StartedAt)

	succeeded := len(report.Succeeded())
	s.logger.Info().
		Str("run_id", report.RunID).
		Int("total", len(ids)).
		Int("succeeded", succeeded).
		Int("failed", len(ids)-succeeded).
		Dur("elapsed", report.Elapsed).
		Msg("Batch valuation complete")

	return report, nil
}

// ValuePortfolio resolves a named portfolio and values its members.
func (s *Service) ValuePortfolio(ctx context.Context, name string) (*models.ValuationReport, error) {
	ids, err := s.portfolios.ResolvePortfolio(ctx, name)
	if err != nil {
		return nil, err
	}

	report, err := s.ValueMany(ctx, ids)
	if report != nil {
		report.Portfolio = name
	}
	return report, err
}

// Sensitivity values one security across a WACC×growth grid.
func (s *Service) Sensitivity(ctx context.Context, id models.SecurityIdentifier) ([]models.SensitivityCell, error) {
	if s.market == nil {
		return nil, &models.DataUnavailableError{Security: id, Cause: "market data provider not configured"}
	}

	snapshot, err := s.market.FetchSnapshot(ctx, id)
	if err != nil {
		return nil, err
	}

	rate := s.resolver.Resolve(id, snapshot.Industry)

	// The base scenario must be priceable before fanning out.
	if _, err := s.engine.Value(snapshot, rate); err != nil {
		return nil, err
	}

	return s.engine.Sensitivity(snapshot, rate, sensitivityWACCRange, sensitivityGrowthRange), nil
}

// Ensure Service implements ValuationService
var _ interfaces.ValuationService = (*Service)(nil)
