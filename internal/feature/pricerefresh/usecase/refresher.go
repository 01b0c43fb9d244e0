// Package usecase は保有銘柄の最終価格を定期的に更新する処理を実装します。
package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"finance_backend/internal/feature/marketdata/domain"
	"finance_backend/internal/feature/marketdata/domain/entity"
)

// HoldingStore は価格更新の対象となる保有銘柄の永続化レイヤーです。
// Goの慣例に従い、インターフェースは利用者（usecase）側で定義します。
type HoldingStore interface {
	// DistinctTickers は少なくとも1人のユーザーが保有する銘柄を返します。
	DistinctTickers(ctx context.Context) ([]string, error)
	// UpdatePriceByTicker は銘柄を保有する全行の最終価格を更新します。
	UpdatePriceByTicker(ctx context.Context, ticker string, price decimal.Decimal) (int64, error)
}

// Quoter は複数銘柄の最新価格を取得します。
type Quoter interface {
	FetchLatestPrices(ctx context.Context, tickers []string) map[string]entity.QuoteResult
}

// Report は1回の更新処理の結果です。
type Report struct {
	Tickers  int           // 対象銘柄数
	Updated  int           // 価格を更新できた銘柄数
	Failed   []string      // 取得または保存に失敗した銘柄
	Duration time.Duration // 処理時間
	Err      error         // 対象銘柄の一覧を取得できなかった場合のエラー
}

// Refresher は保有銘柄の最終価格を一括で更新します。
// 保有銘柄の作成や削除は行いません。
type Refresher struct {
	store  HoldingStore
	quoter Quoter
	log    *slog.Logger
}

// NewRefresher は新しい Refresher を作成します。logger が nil の場合は slog.Default を使います。
func NewRefresher(store HoldingStore, quoter Quoter, logger *slog.Logger) *Refresher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Refresher{store: store, quoter: quoter, log: logger}
}

// RefreshAll は全保有銘柄の価格を1回のバッチ取得で更新します。
// 銘柄ごとの失敗は警告ログを出して読み飛ばし、エラーとしては返しません。
func (r *Refresher) RefreshAll(ctx context.Context) Report {
	start := time.Now()
	var rep Report

	tickers, err := r.store.DistinctTickers(ctx)
	if err != nil {
		r.log.Error("price refresh: failed to list tickers", "error", err)
		rep.Err = fmt.Errorf("list tickers: %w", err)
		rep.Duration = time.Since(start)
		return rep
	}
	rep.Tickers = len(tickers)
	if len(tickers) == 0 {
		rep.Duration = time.Since(start)
		return rep
	}

	results := r.quoter.FetchLatestPrices(ctx, tickers)
	for _, t := range tickers {
		res, ok := results[t]
		if !ok {
			res.Err = fmt.Errorf("%w: %s missing from batch result", domain.ErrNotFound, t)
		}
		if res.Err != nil {
			// 1つの銘柄で失敗しても処理を止めずに次の銘柄へ
			r.log.Warn("price refresh: quote unavailable", "ticker", t, "error", res.Err)
			rep.Failed = append(rep.Failed, t)
			continue
		}
		if _, err := r.store.UpdatePriceByTicker(ctx, t, res.Quote.Price); err != nil {
			r.log.Warn("price refresh: failed to store price", "ticker", t, "error", err)
			rep.Failed = append(rep.Failed, t)
			continue
		}
		rep.Updated++
	}

	rep.Duration = time.Since(start)
	r.log.Info("price refresh finished",
		"tickers", rep.Tickers, "updated", rep.Updated, "failed", len(rep.Failed), "duration", rep.Duration)
	return rep
}
