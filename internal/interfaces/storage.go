package interfaces

import (
	"context"

	"github.com/cmansell/fairval/internal/models"
)

// StorageManager provides access to the storage areas.
type StorageManager interface {
	RateStore() RateStore
	PortfolioStore() PortfolioStore
	SystemKV() SystemKV

	// Close releases the underlying connection.
	Close() error
}

// RateStore persists the discount-rate dataset between processes. The
// in-memory dataset is rebuilt from the stored record on startup; queries
// never touch the store.
type RateStore interface {
	// GetDataset returns the persisted dataset record, or nil when absent.
	GetDataset(ctx context.Context) (*models.RateDatasetRecord, error)

	// SaveDataset replaces the persisted dataset record.
	SaveDataset(ctx context.Context, rec *models.RateDatasetRecord) error

	// GetSecurityIndex returns the persisted security index entries.
	GetSecurityIndex(ctx context.Context) ([]models.SecurityIndexEntry, error)

	// SaveSecurityIndex replaces the persisted security index.
	SaveSecurityIndex(ctx context.Context, entries []models.SecurityIndexEntry) error
}

// PortfolioStore persists portfolio definitions.
type PortfolioStore interface {
	// GetPortfolio returns a portfolio by name. Fails with
	// models.PortfolioNotFoundError when absent.
	GetPortfolio(ctx context.Context, name string) (*models.PortfolioDefinition, error)

	// SavePortfolio creates or replaces a portfolio definition.
	SavePortfolio(ctx context.Context, p *models.PortfolioDefinition) error

	// ListPortfolios returns all portfolio definitions.
	ListPortfolios(ctx context.Context) ([]*models.PortfolioDefinition, error)

	// DeletePortfolio removes a portfolio definition.
	DeletePortfolio(ctx context.Context, name string) error
}

// SystemKV is a small string key-value area for runtime settings.
type SystemKV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
}
