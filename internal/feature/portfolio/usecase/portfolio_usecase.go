// Package usecase はポートフォリオ操作のビジネスロジックを実装します。
package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	mddomain "finance_backend/internal/feature/marketdata/domain"
	mdentity "finance_backend/internal/feature/marketdata/domain/entity"
	"finance_backend/internal/feature/portfolio/domain"
	"finance_backend/internal/feature/portfolio/domain/entity"
)

// historyParallelism は評価時に並行して取得する履歴の最大数です。
const historyParallelism = 4

var hundred = decimal.NewFromInt(100)

// HoldingRepository は保有銘柄の永続化レイヤーを抽象化します。
// Goの慣例に従い、インターフェースは利用者（usecase）側で定義します。
type HoldingRepository interface {
	// Add は保有銘柄を追加します。同じ銘柄が既にあれば株数を加算します。
	Add(ctx context.Context, h entity.Holding) error
	// ListByUser はユーザーの保有銘柄をティッカー順に返します。
	ListByUser(ctx context.Context, userID uint) ([]entity.Holding, error)
}

// PriceSource は価格キャッシュの読み取り操作です。
type PriceSource interface {
	GetMany(ctx context.Context, tickers []string) map[string]mdentity.QuoteResult
	History(ctx context.Context, ticker string) (mdentity.HistoricalSeries, error)
}

// portfolioUsecase はポートフォリオ操作のユースケースを定義します。
type portfolioUsecase struct {
	repo   HoldingRepository
	prices PriceSource
}

// NewPortfolioUsecase はportfolioUsecaseの新しいインスタンスを生成します。
func NewPortfolioUsecase(repo HoldingRepository, prices PriceSource) *portfolioUsecase {
	return &portfolioUsecase{repo: repo, prices: prices}
}

// AddHolding はユーザーのポートフォリオに株式を追加します。
func (u *portfolioUsecase) AddHolding(ctx context.Context, userID uint, ticker string, shares, price decimal.Decimal) error {
	ticker = mddomain.NormalizeTicker(ticker)
	if ticker == "" || !shares.IsPositive() || !price.IsPositive() {
		return domain.ErrInvalidHolding
	}
	if err := u.repo.Add(ctx, entity.Holding{
		UserID: userID,
		Ticker: ticker,
		Shares: shares,
		Price:  price,
	}); err != nil {
		return fmt.Errorf("add holding %s: %w", ticker, err)
	}
	return nil
}

// Value はユーザーのポートフォリオを現在価格で評価します。
// 価格を取得できなかった銘柄は Unpriced に記録され、合計には含まれません。
func (u *portfolioUsecase) Value(ctx context.Context, userID uint) (entity.Valuation, error) {
	holdings, err := u.repo.ListByUser(ctx, userID)
	if err != nil {
		return entity.Valuation{}, fmt.Errorf("list holdings: %w", err)
	}

	out := entity.Valuation{
		Positions:  []entity.PositionValue{},
		TotalValue: decimal.Zero,
		Unpriced:   []entity.UnpricedTicker{},
	}
	if len(holdings) == 0 {
		return out, nil
	}

	tickers := make([]string, 0, len(holdings))
	for _, h := range holdings {
		tickers = append(tickers, h.Ticker)
	}
	quotes := u.prices.GetMany(ctx, tickers)

	// 前日終値は履歴の最後から2番目の終値を使う
	previous := make(map[string]decimal.Decimal, len(holdings))
	var mu sync.Mutex
	g := new(errgroup.Group)
	g.SetLimit(historyParallelism)
	for _, h := range holdings {
		if quotes[h.Ticker].Err != nil {
			continue
		}
		g.Go(func() error {
			series, err := u.prices.History(ctx, h.Ticker)
			if err != nil {
				slog.Warn("history unavailable; using current price as previous close",
					"ticker", h.Ticker, "error", err)
				return nil
			}
			if pc, ok := series.PreviousClose(); ok {
				mu.Lock()
				previous[h.Ticker] = pc.Close
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	total := decimal.Zero
	for _, h := range holdings {
		q := quotes[h.Ticker]
		if q.Err != nil {
			slog.Warn("holding could not be priced", "user_id", userID, "ticker", h.Ticker, "error", q.Err)
			out.Unpriced = append(out.Unpriced, entity.UnpricedTicker{Ticker: h.Ticker, Kind: mddomain.Kind(q.Err)})
			continue
		}

		current := q.Quote.Price
		prev, ok := previous[h.Ticker]
		if !ok {
			prev = current
		}
		change := current.Sub(prev)
		pct := decimal.Zero
		if !prev.IsZero() {
			pct = change.Div(prev).Mul(hundred)
		}
		value := current.Mul(h.Shares)
		total = total.Add(value)

		out.Positions = append(out.Positions, entity.PositionValue{
			Ticker:                h.Ticker,
			Shares:                h.Shares,
			CurrentPrice:          current.Round(2),
			PreviousClose:         prev.Round(2),
			DailyChange:           change.Round(2),
			DailyChangePercentage: pct.Round(2),
			Value:                 value.Round(2),
		})
	}
	out.TotalValue = total.Round(2)
	return out, nil
}
