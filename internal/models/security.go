// Package models defines the data model for fairval
package models

import "strings"

// Country identifies the market a security trades in, derived from its
// exchange suffix. It selects the discount-rate dataset region.
type Country string

const (
	CountryUS       Country = "US"
	CountryChina    Country = "China"
	CountryHongKong Country = "Hong Kong"
	CountryTaiwan   Country = "Taiwan"
	CountryJapan    Country = "Japan"
)

// suffixCountry maps exchange suffixes to countries. Unsuffixed tickers
// are treated as US listings.
var suffixCountry = map[string]Country{
	"SZ": CountryChina,    // Shenzhen
	"SS": CountryChina,    // Shanghai
	"HK": CountryHongKong, // Hong Kong
	"TW": CountryTaiwan,   // Taiwan (TWSE and TPEX)
	"T":  CountryJapan,    // Tokyo
}

// SecurityIdentifier is a ticker symbol plus an optional exchange suffix.
// It is immutable and used as the unit of batch iteration and cache lookup.
type SecurityIdentifier struct {
	Symbol  string  `json:"symbol"`  // full symbol as supplied, e.g. "AAPL", "600519.SS"
	Ticker  string  `json:"ticker"`  // symbol without suffix
	Suffix  string  `json:"suffix"`  // exchange suffix without the dot, empty for US
	Country Country `json:"country"` // market implied by the suffix
}

// ParseSecurityIdentifier normalizes a raw symbol into a SecurityIdentifier.
// The suffix deterministically implies the country, so country resolution
// happens once here and is reused across all resolver tiers.
func ParseSecurityIdentifier(raw string) SecurityIdentifier {
	symbol := strings.ToUpper(strings.TrimSpace(raw))

	id := SecurityIdentifier{
		Symbol:  symbol,
		Ticker:  symbol,
		Country: CountryUS,
	}

	if i := strings.LastIndex(symbol, "."); i > 0 && i < len(symbol)-1 {
		suffix := symbol[i+1:]
		if country, ok := suffixCountry[suffix]; ok {
			id.Ticker = symbol[:i]
			id.Suffix = suffix
			id.Country = country
		}
	}

	return id
}

// DatasetRegion maps the listing country onto a discount-rate dataset region.
// Hong Kong and Taiwan listings use the China dataset, matching how the
// rate dataset is published.
func (id SecurityIdentifier) DatasetRegion() Country {
	switch id.Country {
	case CountryHongKong, CountryTaiwan:
		return CountryChina
	default:
		return id.Country
	}
}

func (id SecurityIdentifier) String() string {
	return id.Symbol
}
