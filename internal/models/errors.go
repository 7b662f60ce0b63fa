package models

import "fmt"

// Per-security errors are captured into batch results and never abort a
// batch. Configuration-level errors (PortfolioNotFound, IndustryNotFound)
// abort only the request that named the missing resource.

// DataUnavailableError reports missing or insufficient upstream data for a
// security. Recoverable by retry or skip.
type DataUnavailableError struct {
	Security SecurityIdentifier
	Cause    string
	Err      error
}

func (e *DataUnavailableError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: data unavailable: %s: %v", e.Security, e.Cause, e.Err)
	}
	return fmt.Sprintf("%s: data unavailable: %s", e.Security, e.Cause)
}

func (e *DataUnavailableError) Unwrap() error { return e.Err }

// DomainError reports inputs the valuation model cannot price: a
// non-positive base cash flow, or a discount rate at or below the terminal
// growth rate. Not retryable.
type DomainError struct {
	Security SecurityIdentifier
	Cause    string
}

func (e *DomainError) Error() string {
	if e.Security.Symbol == "" {
		return fmt.Sprintf("valuation domain error: %s", e.Cause)
	}
	return fmt.Sprintf("%s: valuation domain error: %s", e.Security, e.Cause)
}

// NoConvergenceError reports that the IRR search failed to bracket or
// converge on a root within its bounds and iteration cap.
type NoConvergenceError struct {
	Security SecurityIdentifier
	Cause    string
}

func (e *NoConvergenceError) Error() string {
	if e.Security.Symbol == "" {
		return fmt.Sprintf("irr did not converge: %s", e.Cause)
	}
	return fmt.Sprintf("%s: irr did not converge: %s", e.Security, e.Cause)
}

// PortfolioNotFoundError reports a request for an unknown portfolio.
type PortfolioNotFoundError struct {
	Name      string
	Available []string
}

func (e *PortfolioNotFoundError) Error() string {
	return fmt.Sprintf("portfolio %q not found (available: %v)", e.Name, e.Available)
}

// IndustryNotFoundError reports a request for an industry label absent from
// the discount-rate dataset.
type IndustryNotFoundError struct {
	Industry string
	Country  Country
}

func (e *IndustryNotFoundError) Error() string {
	return fmt.Sprintf("industry %q not found in %s rate dataset", e.Industry, e.Country)
}
