// Package dto はportfolioフィーチャーのHTTPトランスポート層のデータ転送オブジェクトを定義します。
package dto

import (
	"github.com/shopspring/decimal"

	"finance_backend/internal/feature/portfolio/domain/entity"
)

// AddHoldingReq は /api/portfolio/add のリクエストボディです。
// 数値は JSON の数値または文字列のどちらでも受け付けます。
type AddHoldingReq struct {
	Ticker string           `json:"ticker" binding:"required"`
	Shares *decimal.Decimal `json:"shares" binding:"required"`
	Price  *decimal.Decimal `json:"price" binding:"required"`
}

// PositionRes は保有銘柄1件の評価結果です。
type PositionRes struct {
	Ticker                string  `json:"ticker"`
	Shares                float64 `json:"shares"`
	CurrentPrice          float64 `json:"current_price"`
	PreviousClose         float64 `json:"previous_close"`
	DailyChange           float64 `json:"daily_change"`
	DailyChangePercentage float64 `json:"daily_change_percentage"`
	Value                 float64 `json:"value"`
}

// UnpricedRes は評価できなかった銘柄とその理由です。
type UnpricedRes struct {
	Ticker string `json:"ticker"`
	Error  string `json:"error"`
}

// ValuationRes は /api/portfolio/value のレスポンスボディです。
type ValuationRes struct {
	Portfolio  []PositionRes `json:"portfolio"`
	TotalValue float64       `json:"total_value"`
	Unpriced   []UnpricedRes `json:"unpriced"`
}

// FromValuation はドメインの評価結果をレスポンスに変換します。
func FromValuation(v entity.Valuation) ValuationRes {
	out := ValuationRes{
		Portfolio:  make([]PositionRes, 0, len(v.Positions)),
		TotalValue: v.TotalValue.InexactFloat64(),
		Unpriced:   make([]UnpricedRes, 0, len(v.Unpriced)),
	}
	for _, p := range v.Positions {
		out.Portfolio = append(out.Portfolio, PositionRes{
			Ticker:                p.Ticker,
			Shares:                p.Shares.InexactFloat64(),
			CurrentPrice:          p.CurrentPrice.InexactFloat64(),
			PreviousClose:         p.PreviousClose.InexactFloat64(),
			DailyChange:           p.DailyChange.InexactFloat64(),
			DailyChangePercentage: p.DailyChangePercentage.InexactFloat64(),
			Value:                 p.Value.InexactFloat64(),
		})
	}
	for _, u := range v.Unpriced {
		out.Unpriced = append(out.Unpriced, UnpricedRes{Ticker: u.Ticker, Error: u.Kind})
	}
	return out
}
