package models

import "time"

// RateEntry is one (country, industry) → WACC mapping in the discount-rate
// dataset.
type RateEntry struct {
	Country  Country `json:"country"`
	Industry string  `json:"industry"`
	WACC     float64 `json:"wacc"`
}

// RateDatasetRecord is the persisted form of the dataset: the full entry
// list plus refresh metadata. The in-memory dataset is rebuilt from it on
// load and atomically published; the record itself is never queried.
type RateDatasetRecord struct {
	Entries     []RateEntry `json:"entries"`
	DefaultWACC float64     `json:"default_wacc"`
	Source      string      `json:"source"`
	RefreshedAt time.Time   `json:"refreshed_at"`
}

// Stale reports whether the record is older than maxAge.
func (r *RateDatasetRecord) Stale(maxAge time.Duration, now time.Time) bool {
	if r.RefreshedAt.IsZero() {
		return true
	}
	return now.Sub(r.RefreshedAt) > maxAge
}

// SecurityIndexEntry maps a known security to its country and industry
// label, precomputed from the exchange listing index.
type SecurityIndexEntry struct {
	Symbol   string  `json:"symbol"`
	Name     string  `json:"name"`
	Country  Country `json:"country"`
	Industry string  `json:"industry"`
}
