// Package usecase は保有銘柄に関する通知の生成と取得を実装します。
package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	mdentity "finance_backend/internal/feature/marketdata/domain/entity"
	"finance_backend/internal/feature/notifications/domain/entity"
)

const (
	// EarningsLookahead は決算予定を通知する期間です。
	EarningsLookahead = 7 * 24 * time.Hour
	tickerParallelism = 4
)

// DropThreshold is the daily change (in percent) at or below which a drop notification is created.
var DropThreshold = decimal.NewFromInt(-5)

var hundred = decimal.NewFromInt(100)

// NotificationRepository は通知の永続化を抽象化します。
type NotificationRepository interface {
	CreateBatch(ctx context.Context, ns []entity.Notification) error
	ListByUser(ctx context.Context, userID uint) ([]entity.Notification, error)
}

// TickerLister はユーザーの保有銘柄を返します。
type TickerLister interface {
	TickersByUser(ctx context.Context, userID uint) ([]string, error)
}

// HistorySource は日足履歴を返します（通常は PriceCache）。
type HistorySource interface {
	History(ctx context.Context, ticker string) (mdentity.HistoricalSeries, error)
}

// EarningsSource は次回の決算日を返します。
type EarningsSource interface {
	NextEarningsDate(ctx context.Context, ticker string) (time.Time, bool, error)
}

// GenerateResult は通知生成の結果です。
type GenerateResult struct {
	Created []entity.Notification
	Failed  []string // データを取得できなかった銘柄
}

type notificationUsecase struct {
	repo     NotificationRepository
	holdings TickerLister
	history  HistorySource
	earnings EarningsSource
	now      func() time.Time
}

func NewNotificationUsecase(repo NotificationRepository, holdings TickerLister, history HistorySource, earnings EarningsSource) *notificationUsecase {
	return &notificationUsecase{
		repo:     repo,
		holdings: holdings,
		history:  history,
		earnings: earnings,
		now:      time.Now,
	}
}

// List はユーザーの通知を新しい順に返します。
func (u *notificationUsecase) List(ctx context.Context, userID uint) ([]entity.Notification, error) {
	ns, err := u.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return ns, nil
}

// Generate は保有銘柄ごとに値下がりと決算予定を確認し、通知を保存します。
// 銘柄ごとの失敗は Failed に記録し、他の銘柄の処理は続けます。
func (u *notificationUsecase) Generate(ctx context.Context, userID uint) (GenerateResult, error) {
	tickers, err := u.holdings.TickersByUser(ctx, userID)
	if err != nil {
		return GenerateResult{}, fmt.Errorf("list holdings: %w", err)
	}

	now := u.now()
	perTicker := make([][]entity.Notification, len(tickers))
	errs := make([]error, len(tickers))

	g := new(errgroup.Group)
	g.SetLimit(tickerParallelism)
	for i, t := range tickers {
		g.Go(func() error {
			perTicker[i], errs[i] = u.forTicker(ctx, userID, t, now)
			return nil
		})
	}
	_ = g.Wait()

	res := GenerateResult{Created: []entity.Notification{}, Failed: []string{}}
	for i, t := range tickers {
		if errs[i] != nil {
			slog.Warn("failed to generate notifications", "user_id", userID, "ticker", t, "error", errs[i])
			res.Failed = append(res.Failed, t)
			continue
		}
		res.Created = append(res.Created, perTicker[i]...)
	}

	if err := u.repo.CreateBatch(ctx, res.Created); err != nil {
		return GenerateResult{}, fmt.Errorf("save notifications: %w", err)
	}
	return res, nil
}

func (u *notificationUsecase) forTicker(ctx context.Context, userID uint, ticker string, now time.Time) ([]entity.Notification, error) {
	series, err := u.history.History(ctx, ticker)
	if err != nil {
		return nil, fmt.Errorf("history: %w", err)
	}
	earningsAt, hasEarnings, err := u.earnings.NextEarningsDate(ctx, ticker)
	if err != nil {
		return nil, fmt.Errorf("earnings: %w", err)
	}

	var out []entity.Notification
	if pct, ok := dailyChange(series); ok && pct.LessThanOrEqual(DropThreshold) {
		out = append(out, entity.Notification{
			UserID:    userID,
			Ticker:    ticker,
			Message:   fmt.Sprintf("%s dropped by %s%% today.", ticker, pct.Abs().StringFixed(2)),
			Timestamp: now,
		})
	}
	if hasEarnings && withinLookahead(earningsAt, now) {
		out = append(out, entity.Notification{
			UserID:    userID,
			Ticker:    ticker,
			Message:   fmt.Sprintf("%s has an earnings report on %s.", ticker, earningsAt.Format(time.DateOnly)),
			Timestamp: now,
		})
	}
	return out, nil
}

// dailyChange は直近2つの終値から変化率（%）を求めます。
func dailyChange(s mdentity.HistoricalSeries) (decimal.Decimal, bool) {
	last, ok := s.Last()
	if !ok {
		return decimal.Zero, false
	}
	prev, ok := s.PreviousClose()
	if !ok || prev.Close.IsZero() {
		return decimal.Zero, false
	}
	return last.Close.Sub(prev.Close).Div(prev.Close).Mul(hundred), true
}

// withinLookahead reports whether date falls in [today, today+7d], compared by calendar day in UTC.
func withinLookahead(date, now time.Time) bool {
	today := truncateDay(now)
	d := truncateDay(date)
	return !d.Before(today) && !d.After(today.Add(EarningsLookahead))
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
