package rates

import (
	"strings"
	"sync/atomic"

	"github.com/cmansell/fairval/internal/common"
	"github.com/cmansell/fairval/internal/models"
)

// Resolver maps a security to a discount rate through four ordered tiers:
// exact (country, industry) match, fuzzy same-country match, the same two
// tiers against the reference country, then the scalar default. It is a
// total function: Resolve always returns a usable rate.
//
// The dataset and security index pointers are swapped atomically on
// refresh, so Resolve is safe for concurrent use without locking.
type Resolver struct {
	dataset   atomic.Pointer[Dataset]
	index     atomic.Pointer[SecurityIndex]
	reference models.Country
	logger    *common.Logger
}

// NewResolver creates a resolver over an initial dataset.
func NewResolver(dataset *Dataset, reference models.Country, logger *common.Logger) *Resolver {
	r := &Resolver{
		reference: reference,
		logger:    logger,
	}
	r.dataset.Store(dataset)
	return r
}

// Publish atomically swaps in a new dataset. Readers in flight keep the
// dataset they already loaded; they never observe a partial update.
func (r *Resolver) Publish(dataset *Dataset) {
	r.dataset.Store(dataset)
	r.logger.Info().
		Int("entries", dataset.Len()).
		Str("source", dataset.Source()).
		Msg("Discount-rate dataset published")
}

// PublishIndex atomically swaps in a new security index.
func (r *Resolver) PublishIndex(index *SecurityIndex) {
	r.index.Store(index)
	r.logger.Info().Int("securities", index.Len()).Msg("Security index published")
}

// Dataset returns the currently published dataset.
func (r *Resolver) Dataset() *Dataset {
	return r.dataset.Load()
}

// Resolve returns the discount rate for a security. The industry argument
// is the label reported by the market-data provider, used when the
// security is absent from the precomputed index. The identifier's exchange
// suffix fixes the country once; all four tiers reuse it.
func (r *Resolver) Resolve(id models.SecurityIdentifier, industry string) models.ResolvedRate {
	region := id.DatasetRegion()

	// The precomputed index carries the dataset's own industry label for
	// known securities, which makes tier 1 the common path.
	if ix := r.index.Load(); ix != nil {
		if entry, ok := ix.Lookup(id.Symbol); ok && entry.Industry != "" {
			industry = entry.Industry
		}
	}

	dataset := r.dataset.Load()

	if rate, ok := r.resolveIn(dataset, region, industry); ok {
		return rate
	}

	if region != r.reference {
		if rate, ok := r.resolveIn(dataset, r.reference, industry); ok {
			rate.Source = models.RateSourceCrossCountry
			return rate
		}
	}

	return models.ResolvedRate{
		WACC:     dataset.DefaultWACC(),
		Industry: industry,
		Country:  region,
		Source:   models.RateSourceDefault,
	}
}

// resolveIn runs tiers 1 and 2 against a single country's entries.
func (r *Resolver) resolveIn(dataset *Dataset, country models.Country, industry string) (models.ResolvedRate, bool) {
	ci := dataset.countries[country]
	if ci == nil {
		return models.ResolvedRate{}, false
	}

	normalized := Normalize(industry)
	if normalized == "" {
		return models.ResolvedRate{}, false
	}

	// Tier 1: exact normalized match.
	if e, ok := ci.exact[normalized]; ok {
		return models.ResolvedRate{
			WACC:     e.wacc,
			Industry: e.raw,
			Country:  country,
			Source:   models.RateSourceExact,
		}, true
	}

	// Tier 2: fuzzy match over this country's labels.
	if e, ok := fuzzyMatch(ci.labels, normalized); ok {
		return models.ResolvedRate{
			WACC:     e.wacc,
			Industry: e.raw,
			Country:  country,
			Source:   models.RateSourceFuzzy,
		}, true
	}

	return models.ResolvedRate{}, false
}

// fuzzyMatch scores candidates by token overlap, with substring containment
// counting as full overlap. Ties break on the smallest label-length
// distance, then on dataset iteration order, so results are deterministic.
func fuzzyMatch(labels []labelEntry, normalized string) (labelEntry, bool) {
	queryTokens := strings.Fields(normalized)

	var best labelEntry
	bestScore := 0.0
	bestDistance := 0
	found := false

	for _, candidate := range labels {
		score := matchScore(normalized, queryTokens, candidate)
		if score <= 0 {
			continue
		}

		distance := labelDistance(normalized, candidate.normalized)
		if !found || score > bestScore || (score == bestScore && distance < bestDistance) {
			best = candidate
			bestScore = score
			bestDistance = distance
			found = true
		}
	}

	return best, found
}

func matchScore(normalized string, queryTokens []string, candidate labelEntry) float64 {
	// Substring containment either way is the strongest fuzzy signal.
	if strings.Contains(candidate.normalized, normalized) || strings.Contains(normalized, candidate.normalized) {
		return 1.0
	}

	if len(queryTokens) == 0 || len(candidate.tokens) == 0 {
		return 0
	}

	candidateSet := make(map[string]struct{}, len(candidate.tokens))
	for _, t := range candidate.tokens {
		candidateSet[t] = struct{}{}
	}

	var overlap int
	for _, t := range queryTokens {
		if _, ok := candidateSet[t]; ok {
			overlap++
		}
	}
	if overlap == 0 {
		return 0
	}

	denom := len(queryTokens)
	if len(candidate.tokens) > denom {
		denom = len(candidate.tokens)
	}
	return float64(overlap) / float64(denom)
}

func labelDistance(a, b string) int {
	if len(a) > len(b) {
		return len(a) - len(b)
	}
	return len(b) - len(a)
}
