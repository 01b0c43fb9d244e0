// Package dto はmarketdataフィーチャーのHTTPレスポンスを定義します。
package dto

import (
	"time"

	"finance_backend/internal/feature/marketdata/domain/entity"
)

// DailyCloseRes は日足終値1件のレスポンスです。
type DailyCloseRes struct {
	Date  string  `json:"Date"`
	Close float64 `json:"Close"`
}

// QuoteRes は最新価格のレスポンスです。
type QuoteRes struct {
	Ticker     string  `json:"ticker"`
	Price      float64 `json:"price"`
	ObservedAt string  `json:"observed_at"`
}

// FromSeries は履歴をレスポンスに変換します。
func FromSeries(s entity.HistoricalSeries) []DailyCloseRes {
	out := make([]DailyCloseRes, 0, len(s.Closes))
	for _, c := range s.Closes {
		out = append(out, DailyCloseRes{
			Date:  c.Date.UTC().Format("2006-01-02"),
			Close: c.Close.Round(2).InexactFloat64(),
		})
	}
	return out
}

// FromQuote は最新価格をレスポンスに変換します。
func FromQuote(q entity.Quote) QuoteRes {
	return QuoteRes{
		Ticker:     q.Ticker,
		Price:      q.Price.Round(2).InexactFloat64(),
		ObservedAt: q.ObservedAt.UTC().Format(time.RFC3339),
	}
}
