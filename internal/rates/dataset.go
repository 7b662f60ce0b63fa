// Package rates implements the tiered discount-rate (WACC) resolution cache.
//
// The dataset is built once, immutable afterwards, and queried many times;
// refresh swaps in a whole new dataset rather than editing in place, so
// concurrent readers never need locks.
package rates

import (
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/cmansell/fairval/internal/models"
)

// labelEntry is one industry label with its precomputed normalized form,
// kept in dataset iteration order for deterministic fuzzy tie-breaks.
type labelEntry struct {
	raw        string
	normalized string
	tokens     []string
	wacc       float64
}

// countryIndex holds one country's slice of the dataset.
type countryIndex struct {
	exact  map[string]labelEntry // keyed by normalized label
	labels []labelEntry
}

// Dataset is the immutable (country, industry) → WACC mapping plus the
// scalar default rate.
type Dataset struct {
	countries   map[models.Country]*countryIndex
	defaultWACC float64
	source      string
	refreshedAt time.Time
}

// NewDataset builds a dataset from entries. Later duplicates of the same
// (country, normalized industry) pair are ignored so iteration order stays
// stable.
func NewDataset(entries []models.RateEntry, defaultWACC float64) *Dataset {
	d := &Dataset{
		countries:   make(map[models.Country]*countryIndex),
		defaultWACC: defaultWACC,
	}

	for _, e := range entries {
		normalized := Normalize(e.Industry)
		if normalized == "" {
			continue
		}

		ci := d.countries[e.Country]
		if ci == nil {
			ci = &countryIndex{exact: make(map[string]labelEntry)}
			d.countries[e.Country] = ci
		}
		if _, dup := ci.exact[normalized]; dup {
			continue
		}

		entry := labelEntry{
			raw:        e.Industry,
			normalized: normalized,
			tokens:     strings.Fields(normalized),
			wacc:       e.WACC,
		}
		ci.exact[normalized] = entry
		ci.labels = append(ci.labels, entry)
	}

	return d
}

// NewDatasetFromRecord rebuilds a dataset from its persisted form.
func NewDatasetFromRecord(rec *models.RateDatasetRecord) *Dataset {
	d := NewDataset(rec.Entries, rec.DefaultWACC)
	d.source = rec.Source
	d.refreshedAt = rec.RefreshedAt
	return d
}

// DefaultWACC returns the scalar fallback rate.
func (d *Dataset) DefaultWACC() float64 { return d.defaultWACC }

// RefreshedAt returns when the dataset was built.
func (d *Dataset) RefreshedAt() time.Time { return d.refreshedAt }

// Source describes where the dataset came from.
func (d *Dataset) Source() string { return d.source }

// Len returns the total entry count across countries.
func (d *Dataset) Len() int {
	var n int
	for _, ci := range d.countries {
		n += len(ci.labels)
	}
	return n
}

// Countries returns the countries present, sorted for stable output.
func (d *Dataset) Countries() []models.Country {
	out := make([]models.Country, 0, len(d.countries))
	for c := range d.countries {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Industries returns the raw industry labels for a country in dataset order.
func (d *Dataset) Industries(country models.Country) []string {
	ci := d.countries[country]
	if ci == nil {
		return nil
	}
	out := make([]string, len(ci.labels))
	for i, e := range ci.labels {
		out[i] = e.raw
	}
	return out
}

// IndustryWACC looks up an industry's rate by exact normalized match.
func (d *Dataset) IndustryWACC(country models.Country, industry string) (float64, bool) {
	ci := d.countries[country]
	if ci == nil {
		return 0, false
	}
	e, ok := ci.exact[Normalize(industry)]
	if !ok {
		return 0, false
	}
	return e.wacc, true
}

// Normalize case-folds a label, strips punctuation, and collapses
// whitespace, so matching is reproducible: "Retail (Online)" and
// "retail  online" normalize identically.
func Normalize(label string) string {
	var b strings.Builder
	b.Grow(len(label))

	lastSpace := true
	for _, r := range strings.ToLower(label) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastSpace = false
		default:
			if !lastSpace {
				b.WriteRune(' ')
				lastSpace = true
			}
		}
	}

	return strings.TrimSpace(b.String())
}
