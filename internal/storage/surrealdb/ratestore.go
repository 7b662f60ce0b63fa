package surrealdb

import (
	"context"
	"fmt"

	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/cmansell/fairval/internal/common"
	"github.com/cmansell/fairval/internal/models"
)

// The dataset is stored as a single record: it is always read and replaced
// whole, so there is nothing to gain from per-entry rows.
const rateDatasetID = "current"

type RateStore struct {
	db     *surrealdb.DB
	logger *common.Logger
}

func NewRateStore(db *surrealdb.DB, logger *common.Logger) *RateStore {
	return &RateStore{
		db:     db,
		logger: logger,
	}
}

func (s *RateStore) GetDataset(ctx context.Context) (*models.RateDatasetRecord, error) {
	rec, err := surrealdb.Select[models.RateDatasetRecord](ctx, s.db, surrealmodels.NewRecordID("rate_dataset", rateDatasetID))
	if err != nil {
		return nil, fmt.Errorf("failed to select rate dataset: %w", err)
	}
	if rec == nil || len(rec.Entries) == 0 {
		return nil, nil
	}
	return rec, nil
}

func (s *RateStore) SaveDataset(ctx context.Context, rec *models.RateDatasetRecord) error {
	sql := "UPSERT type::record('rate_dataset', $id) CONTENT $rec"
	vars := map[string]any{"id": rateDatasetID, "rec": rec}

	for attempt := 1; attempt <= 3; attempt++ {
		_, err := surrealdb.Query[[]models.RateDatasetRecord](ctx, s.db, sql, vars)
		if err == nil {
			s.logger.Debug().Int("entries", len(rec.Entries)).Msg("Rate dataset saved")
			return nil
		}
		if attempt == 3 {
			return fmt.Errorf("failed to save rate dataset after retries: %w", err)
		}
	}
	return nil
}

// securityIndexRecord wraps the index entries in one record for the same
// read-whole/replace-whole reason as the dataset.
type securityIndexRecord struct {
	Entries []models.SecurityIndexEntry `json:"entries"`
}

func (s *RateStore) GetSecurityIndex(ctx context.Context) ([]models.SecurityIndexEntry, error) {
	rec, err := surrealdb.Select[securityIndexRecord](ctx, s.db, surrealmodels.NewRecordID("security_index", rateDatasetID))
	if err != nil {
		return nil, fmt.Errorf("failed to select security index: %w", err)
	}
	if rec == nil {
		return nil, nil
	}
	return rec.Entries, nil
}

func (s *RateStore) SaveSecurityIndex(ctx context.Context, entries []models.SecurityIndexEntry) error {
	sql := "UPSERT type::record('security_index', $id) CONTENT $rec"
	vars := map[string]any{"id": rateDatasetID, "rec": securityIndexRecord{Entries: entries}}

	for attempt := 1; attempt <= 3; attempt++ {
		_, err := surrealdb.Query[[]securityIndexRecord](ctx, s.db, sql, vars)
		if err == nil {
			s.logger.Debug().Int("securities", len(entries)).Msg("Security index saved")
			return nil
		}
		if attempt == 3 {
			return fmt.Errorf("failed to save security index after retries: %w", err)
		}
	}
	return nil
}
