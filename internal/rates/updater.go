package rates

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/cmansell/fairval/internal/common"
	"github.com/cmansell/fairval/internal/interfaces"
	"github.com/cmansell/fairval/internal/models"
)

// regionFiles maps dataset region to its source CSV within the data
// directory. Each file carries industry,wacc rows for one country.
var regionFiles = map[models.Country]string{
	models.CountryUS:    "wacc_us.csv",
	models.CountryChina: "wacc_china.csv",
	models.CountryJapan: "wacc_japan.csv",
}

// Updater owns the load/refresh boundary of the discount-rate dataset.
// Refresh builds a complete new dataset and publishes it through the
// resolver's atomic swap; the previous dataset keeps serving reads until
// the swap lands.
type Updater struct {
	store       interfaces.RateStore
	resolver    *Resolver
	dataDir     string
	indexPath   string
	maxAge      time.Duration
	defaultWACC float64
	logger      *common.Logger
}

// NewUpdater creates an updater bound to a resolver and rate store.
func NewUpdater(store interfaces.RateStore, resolver *Resolver, cfg common.RatesConfig, logger *common.Logger) *Updater {
	return &Updater{
		store:       store,
		resolver:    resolver,
		dataDir:     cfg.DataDir,
		indexPath:   cfg.SecurityIndex,
		maxAge:      time.Duration(cfg.MaxAgeDays) * 24 * time.Hour,
		defaultWACC: cfg.DefaultWACC,
		logger:      logger,
	}
}

// Load publishes the persisted dataset, refreshing from source files when
// the store is empty or stale.
func (u *Updater) Load(ctx context.Context) error {
	rec, err := u.store.GetDataset(ctx)
	if err != nil {
		u.logger.Warn().Err(err).Msg("Rate store read failed, refreshing from files")
		rec = nil
	}

	if rec == nil || rec.Stale(u.maxAge, time.Now()) {
		if err := u.Refresh(ctx); err != nil {
			if rec == nil {
				return fmt.Errorf("no persisted dataset and refresh failed: %w", err)
			}
			// A stale dataset still beats none.
			u.logger.Warn().Err(err).Msg("Refresh failed, keeping stale dataset")
			u.resolver.Publish(NewDatasetFromRecord(rec))
		}
	} else {
		u.resolver.Publish(NewDatasetFromRecord(rec))
	}

	u.loadIndex(ctx)
	return nil
}

// loadIndex publishes the persisted security index, falling back to the
// CSV source. A missing index is not fatal: the resolver then relies on
// provider-supplied industry labels.
func (u *Updater) loadIndex(ctx context.Context) {
	entries, err := u.store.GetSecurityIndex(ctx)
	if err == nil && len(entries) > 0 {
		u.resolver.PublishIndex(NewSecurityIndex(entries))
		return
	}

	ix, err := LoadSecurityIndexCSV(u.indexPath)
	if err != nil {
		u.logger.Warn().Err(err).Str("path", u.indexPath).Msg("Security index unavailable")
		return
	}
	u.resolver.PublishIndex(ix)
}

// RefreshIfStale refreshes only when the published dataset is older than
// the configured maximum age. Returns whether a refresh ran.
func (u *Updater) RefreshIfStale(ctx context.Context) (bool, error) {
	dataset := u.resolver.Dataset()
	if dataset != nil && !dataset.RefreshedAt().IsZero() &&
		time.Since(dataset.RefreshedAt()) <= u.maxAge {
		return false, nil
	}
	if err := u.Refresh(ctx); err != nil {
		return false, err
	}
	return true, nil
}

// Refresh rebuilds the dataset from the per-region CSV files, persists the
// record, and atomically publishes the new dataset.
func (u *Updater) Refresh(ctx context.Context) error {
	entries, source, err := u.readRegionFiles()
	if err != nil {
		return err
	}

	rec := &models.RateDatasetRecord{
		Entries:     entries,
		DefaultWACC: u.defaultWACC,
		Source:      source,
		RefreshedAt: time.Now().UTC(),
	}

	if err := u.store.SaveDataset(ctx, rec); err != nil {
		u.logger.Warn().Err(err).Msg("Persisting rate dataset failed, publishing in-memory only")
	}

	u.resolver.Publish(NewDatasetFromRecord(rec))

	if ix, err := LoadSecurityIndexCSV(u.indexPath); err == nil {
		u.resolver.PublishIndex(ix)
		if entries := ix.Entries(); len(entries) > 0 {
			if err := u.store.SaveSecurityIndex(ctx, entries); err != nil {
				u.logger.Warn().Err(err).Msg("Persisting security index failed")
			}
		}
	}

	return nil
}

// readRegionFiles parses every present region CSV. When no file exists the
// curated keyword table seeds a minimal US dataset so the resolver stays
// total.
func (u *Updater) readRegionFiles() ([]models.RateEntry, string, error) {
	var entries []models.RateEntry
	var loaded []string

	for country, file := range regionFiles {
		path := filepath.Join(u.dataDir, file)
		regionEntries, err := parseRegionCSV(path, country)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return nil, "", err
		}
		entries = append(entries, regionEntries...)
		loaded = append(loaded, file)
	}

	if len(entries) == 0 {
		u.logger.Warn().Str("dir", u.dataDir).Msg("No region WACC files found, seeding curated defaults")
		return seedEntries(), "seed", nil
	}

	return entries, strings.Join(loaded, ","), nil
}

// parseRegionCSV reads industry,wacc rows. Rates above 1 are treated as
// percentages. Summary rows (Total/Average) are dropped.
func parseRegionCSV(path string, country models.Country) ([]models.RateEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	var entries []models.RateEntry
	header := true
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
		if header {
			header = false
			continue
		}
		if len(record) < 2 {
			continue
		}

		industry := strings.TrimSpace(record[0])
		if industry == "" || strings.EqualFold(industry, "total") ||
			strings.Contains(strings.ToLower(industry), "average") {
			continue
		}

		wacc, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(record[1]), "%"), 64)
		if err != nil {
			continue
		}
		if wacc > 1 {
			wacc /= 100
		}
		if wacc <= 0 {
			continue
		}

		entries = append(entries, models.RateEntry{
			Country:  country,
			Industry: industry,
			WACC:     wacc,
		})
	}

	return entries, nil
}

// seedEntries is the curated industry keyword table used only when no
// region file is available.
func seedEntries() []models.RateEntry {
	seeds := []struct {
		industry string
		wacc     float64
	}{
		{"Software", 0.095},
		{"Technology", 0.095},
		{"Internet", 0.11},
		{"Advertising", 0.085},
		{"Banking", 0.075},
		{"Insurance", 0.08},
		{"Retail", 0.09},
		{"Energy", 0.08},
		{"Healthcare", 0.085},
		{"Manufacturing", 0.085},
		{"Real Estate", 0.075},
		{"Utilities", 0.065},
		{"Telecom", 0.07},
		{"Consumer Products", 0.085},
		{"Media", 0.09},
		{"Pharmaceuticals", 0.085},
		{"Biotechnology", 0.12},
		{"Automotive", 0.09},
		{"Transportation", 0.085},
		{"Industrial", 0.085},
	}

	entries := make([]models.RateEntry, 0, len(seeds))
	for _, s := range seeds {
		entries = append(entries, models.RateEntry{
			Country:  models.CountryUS,
			Industry: s.industry,
			WACC:     s.wacc,
		})
	}
	return entries
}
