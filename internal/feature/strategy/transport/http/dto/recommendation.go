// Package dto はstrategyフィーチャーのリクエストとレスポンスを定義します。
package dto

import "finance_backend/internal/feature/strategy/domain/entity"

// RecommendationReq は推奨銘柄リクエストです。strategy を省略すると growth になります。
type RecommendationReq struct {
	Strategy string `json:"strategy"`
}

type RecommendationRes struct {
	Ticker       string  `json:"ticker"`
	Reason       string  `json:"reason"`
	CurrentPrice float64 `json:"current_price"`
}

type UnpricedRes struct {
	Ticker string `json:"ticker"`
	Error  string `json:"error"`
}

type RecommendationsRes struct {
	Strategy        string              `json:"strategy"`
	Recommendations []RecommendationRes `json:"recommendations"`
	Unpriced        []UnpricedRes       `json:"unpriced"`
}

func FromResult(r entity.Result) RecommendationsRes {
	out := RecommendationsRes{
		Strategy:        r.Strategy,
		Recommendations: make([]RecommendationRes, 0, len(r.Recommendations)),
		Unpriced:        make([]UnpricedRes, 0, len(r.Unpriced)),
	}
	for _, rec := range r.Recommendations {
		out.Recommendations = append(out.Recommendations, RecommendationRes{
			Ticker:       rec.Ticker,
			Reason:       rec.Reason,
			CurrentPrice: rec.CurrentPrice.InexactFloat64(),
		})
	}
	for _, u := range r.Unpriced {
		out.Unpriced = append(out.Unpriced, UnpricedRes{Ticker: u.Ticker, Error: u.Kind})
	}
	return out
}
