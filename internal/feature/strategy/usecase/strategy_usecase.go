// Package usecase は投資戦略に基づく推奨銘柄の生成を実装します。
package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	mddomain "finance_backend/internal/feature/marketdata/domain"
	mdentity "finance_backend/internal/feature/marketdata/domain/entity"
	"finance_backend/internal/feature/strategy/domain"
	"finance_backend/internal/feature/strategy/domain/entity"
)

// TickerLister はユーザーの保有銘柄を返します。
type TickerLister interface {
	TickersByUser(ctx context.Context, userID uint) ([]string, error)
}

// PriceSource は複数銘柄の最新価格を返します（通常は PriceCache）。
type PriceSource interface {
	GetMany(ctx context.Context, tickers []string) map[string]mdentity.QuoteResult
}

type strategyUsecase struct {
	catalog  *domain.Catalog
	holdings TickerLister
	prices   PriceSource
}

func NewStrategyUsecase(catalog *domain.Catalog, holdings TickerLister, prices PriceSource) *strategyUsecase {
	return &strategyUsecase{catalog: catalog, holdings: holdings, prices: prices}
}

// Recommend は戦略の候補銘柄のうち、ユーザーが保有していないものを現在価格付きで返します。
// 価格を取得できなかった候補は Unpriced に記録されます。
func (u *strategyUsecase) Recommend(ctx context.Context, userID uint, strategy string) (entity.Result, error) {
	strategy = strings.TrimSpace(strategy)
	if strategy == "" {
		strategy = domain.DefaultStrategy
	}
	st, err := u.catalog.Lookup(strategy)
	if err != nil {
		return entity.Result{}, err
	}

	held, err := u.holdings.TickersByUser(ctx, userID)
	if err != nil {
		return entity.Result{}, fmt.Errorf("list holdings: %w", err)
	}
	owned := make(map[string]struct{}, len(held))
	for _, t := range held {
		owned[mddomain.NormalizeTicker(t)] = struct{}{}
	}

	candidates := make([]domain.Candidate, 0, len(st.Candidates))
	tickers := make([]string, 0, len(st.Candidates))
	for _, c := range st.Candidates {
		if _, ok := owned[c.Ticker]; ok {
			continue
		}
		candidates = append(candidates, c)
		tickers = append(tickers, c.Ticker)
	}

	out := entity.Result{
		Strategy:        st.Name,
		Recommendations: []entity.Recommendation{},
		Unpriced:        []entity.UnpricedCandidate{},
	}
	if len(tickers) == 0 {
		return out, nil
	}

	quotes := u.prices.GetMany(ctx, tickers)
	for _, c := range candidates {
		q, ok := quotes[c.Ticker]
		if !ok || q.Err != nil {
			err := q.Err
			if !ok {
				err = fmt.Errorf("%w: %s", mddomain.ErrNotFound, c.Ticker)
			}
			slog.Warn("recommendation candidate could not be priced", "strategy", st.Name, "ticker", c.Ticker, "error", err)
			out.Unpriced = append(out.Unpriced, entity.UnpricedCandidate{Ticker: c.Ticker, Kind: mddomain.Kind(err)})
			continue
		}
		out.Recommendations = append(out.Recommendations, entity.Recommendation{
			Ticker:       c.Ticker,
			Reason:       st.ReasonFor(c),
			CurrentPrice: q.Quote.Price.Round(2),
		})
	}
	return out, nil
}
