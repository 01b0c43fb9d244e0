// Package entity defines the domain models for the strategy feature.
package entity

import "github.com/shopspring/decimal"

// Recommendation is a ticker suggested by a strategy.
type Recommendation struct {
	Ticker       string
	Reason       string
	CurrentPrice decimal.Decimal
}

// UnpricedCandidate is a candidate that could not be priced.
type UnpricedCandidate struct {
	Ticker string
	Kind   string
}

// Result is the outcome of one recommendation request.
type Result struct {
	Strategy        string
	Recommendations []Recommendation
	Unpriced        []UnpricedCandidate
}
