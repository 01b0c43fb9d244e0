// Package entity defines the domain models for the marketdata feature.
package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Quote is the latest known price of a ticker at a point in time.
// Quotes are values: once produced by the market data client they are never mutated.
type Quote struct {
	Ticker     string          // Uppercase ticker symbol (e.g., "AAPL")
	Price      decimal.Decimal // Last traded or closing price
	ObservedAt time.Time       // When the price was observed
}

// DailyClose is one daily closing price.
type DailyClose struct {
	Date  time.Time       // Trading day (UTC midnight)
	Close decimal.Decimal // Closing price
}

// HistoricalSeries is the trailing window of daily closes for one ticker,
// ordered by date ascending.
type HistoricalSeries struct {
	Ticker string
	Closes []DailyClose
}

// Len returns the number of closes in the series.
func (h HistoricalSeries) Len() int {
	return len(h.Closes)
}

// Last returns the most recent close, or false if the series is empty.
func (h HistoricalSeries) Last() (DailyClose, bool) {
	if len(h.Closes) == 0 {
		return DailyClose{}, false
	}
	return h.Closes[len(h.Closes)-1], true
}

// PreviousClose returns the second most recent close, or false if the
// series holds fewer than two points.
func (h HistoricalSeries) PreviousClose() (DailyClose, bool) {
	if len(h.Closes) < 2 {
		return DailyClose{}, false
	}
	return h.Closes[len(h.Closes)-2], true
}

// QuoteResult is the per-ticker outcome of a batch price fetch.
// Exactly one of Quote or Err is meaningful.
type QuoteResult struct {
	Quote Quote
	Err   error
}

// HistoryResult is the per-ticker outcome of a batch history fetch.
type HistoryResult struct {
	Series HistoricalSeries
	Err    error
}
