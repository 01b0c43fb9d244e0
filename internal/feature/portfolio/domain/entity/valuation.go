package entity

import "github.com/shopspring/decimal"

// PositionValue is the priced view of a single holding.
type PositionValue struct {
	Ticker                string
	Shares                decimal.Decimal
	CurrentPrice          decimal.Decimal
	PreviousClose         decimal.Decimal
	DailyChange           decimal.Decimal
	DailyChangePercentage decimal.Decimal
	Value                 decimal.Decimal
}

// UnpricedTicker records a holding that could not be valued and why.
// Kind is one of "not_found", "timeout" or "upstream_unavailable".
type UnpricedTicker struct {
	Ticker string
	Kind   string
}

// Valuation is the current value of a user's portfolio.
// Unpriced holdings are excluded from TotalValue rather than counted as zero.
type Valuation struct {
	Positions  []PositionValue
	TotalValue decimal.Decimal
	Unpriced   []UnpricedTicker
}

// Complete reports whether every holding was priced.
func (v Valuation) Complete() bool {
	return len(v.Unpriced) == 0
}
