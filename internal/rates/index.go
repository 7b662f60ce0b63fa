package rates

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/cmansell/fairval/internal/models"
)

// SecurityIndex is the precomputed symbol → (country, industry) mapping
// covering the exchange listing universe. It lets the resolver hit tier 1
// directly for tens of thousands of securities without consulting the
// market-data provider's industry label. Immutable after load.
type SecurityIndex struct {
	entries map[string]models.SecurityIndexEntry
}

// NewSecurityIndex builds an index from entries, keyed by upper-cased symbol.
func NewSecurityIndex(entries []models.SecurityIndexEntry) *SecurityIndex {
	ix := &SecurityIndex{entries: make(map[string]models.SecurityIndexEntry, len(entries))}
	for _, e := range entries {
		symbol := strings.ToUpper(strings.TrimSpace(e.Symbol))
		if symbol == "" {
			continue
		}
		if _, dup := ix.entries[symbol]; dup {
			continue
		}
		e.Symbol = symbol
		ix.entries[symbol] = e
	}
	return ix
}

// Lookup returns the index entry for a symbol, case-insensitively.
func (ix *SecurityIndex) Lookup(symbol string) (models.SecurityIndexEntry, bool) {
	e, ok := ix.entries[strings.ToUpper(strings.TrimSpace(symbol))]
	return e, ok
}

// Len returns the number of indexed securities.
func (ix *SecurityIndex) Len() int { return len(ix.entries) }

// Entries returns a copy of the indexed entries for persistence.
func (ix *SecurityIndex) Entries() []models.SecurityIndexEntry {
	out := make([]models.SecurityIndexEntry, 0, len(ix.entries))
	for _, e := range ix.entries {
		out = append(out, e)
	}
	return out
}

// Search returns up to limit symbols whose symbol or name contains the
// query, case-insensitively.
func (ix *SecurityIndex) Search(query string, limit int) []models.SecurityIndexEntry {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil
	}

	var out []models.SecurityIndexEntry
	for _, e := range ix.entries {
		if strings.Contains(strings.ToLower(e.Symbol), q) ||
			strings.Contains(strings.ToLower(e.Name), q) {
			out = append(out, e)
			if len(out) >= limit {
				break
			}
		}
	}
	return out
}

// LoadSecurityIndexCSV reads a security index file with columns
// symbol,name,country,industry (header row required).
func LoadSecurityIndexCSV(path string) (*SecurityIndex, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open security index %s: %w", path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	var entries []models.SecurityIndexEntry
	header := true
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse security index %s: %w", path, err)
		}
		if header {
			header = false
			continue
		}
		if len(record) < 4 {
			continue
		}
		entries = append(entries, models.SecurityIndexEntry{
			Symbol:   record[0],
			Name:     record[1],
			Country:  models.Country(strings.TrimSpace(record[2])),
			Industry: record[3],
		})
	}

	return NewSecurityIndex(entries), nil
}
