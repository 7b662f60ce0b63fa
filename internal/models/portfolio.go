package models

import "time"

// PortfolioDefinition is a named, ordered set of securities. Externally
// configured; the engine treats it as an opaque list to iterate over.
type PortfolioDefinition struct {
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Symbols     []string  `json:"symbols"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Identifiers parses the member symbols in order.
func (p *PortfolioDefinition) Identifiers() []SecurityIdentifier {
	ids := make([]SecurityIdentifier, 0, len(p.Symbols))
	for _, s := range p.Symbols {
		ids = append(ids, ParseSecurityIdentifier(s))
	}
	return ids
}

// PortfolioFile is the on-disk seed format for portfolio definitions.
type PortfolioFile struct {
	Portfolios map[string]PortfolioFileEntry `json:"portfolios"`
}

// PortfolioFileEntry is one portfolio in the seed file.
type PortfolioFileEntry struct {
	Description string   `json:"description"`
	Stocks      []string `json:"stocks"`
}
