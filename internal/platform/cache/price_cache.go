// Package cache provides the in-process price cache and Redis-backed response caches.
package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"finance_backend/internal/feature/marketdata/domain"
	"finance_backend/internal/feature/marketdata/domain/entity"
)

const (
	// DefaultTTL は価格キャッシュの既定の有効期間です。
	DefaultTTL = 600 * time.Second
	// DefaultCapacity はキー空間ごとの既定の最大エントリ数です。
	DefaultCapacity = 100
	// DefaultHistoryWindow は約6か月分の営業日数です。
	DefaultHistoryWindow = 126
)

// MarketClient はPriceCacheが利用するマーケットデータ取得のインターフェースです。
type MarketClient interface {
	FetchLatestPrice(ctx context.Context, ticker string) (entity.Quote, error)
	FetchHistory(ctx context.Context, ticker string, window int) (entity.HistoricalSeries, error)
	FetchLatestPrices(ctx context.Context, tickers []string) map[string]entity.QuoteResult
}

// Options はPriceCacheの設定です。ゼロ値のフィールドには既定値が使われます。
type Options struct {
	TTL               time.Duration
	Capacity          int
	HistoryWindow     int
	ServeStaleOnError bool // 再取得に失敗した場合に期限切れの値を返す
	Now               func() time.Time
	Logger            *slog.Logger
}

type cached[T any] struct {
	value     T
	fetchedAt time.Time
}

// PriceCache は最新価格と日足履歴をTTL付きでメモリに保持します。
// 価格と履歴は別々のLRUに格納され、互いのエントリを追い出すことはありません。
// 同じキーへの同時ミスは1回の取得にまとめられます。
type PriceCache struct {
	client    MarketClient
	quotes    *lru.Cache[string, cached[entity.Quote]]
	histories *lru.Cache[string, cached[entity.HistoricalSeries]]
	group     singleflight.Group // 履歴の同時ミスをまとめる

	flightMu sync.Mutex
	inflight map[string]*quoteFlight // 取得中の価格

	ttl        time.Duration
	window     int
	serveStale bool
	now        func() time.Time
	log        *slog.Logger
}

// NewPriceCache は client を使って値を取得するPriceCacheを生成します。
func NewPriceCache(client MarketClient, opts Options) (*PriceCache, error) {
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.Capacity <= 0 {
		opts.Capacity = DefaultCapacity
	}
	if opts.HistoryWindow <= 0 {
		opts.HistoryWindow = DefaultHistoryWindow
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	quotes, err := lru.New[string, cached[entity.Quote]](opts.Capacity)
	if err != nil {
		return nil, fmt.Errorf("create quote cache: %w", err)
	}
	histories, err := lru.New[string, cached[entity.HistoricalSeries]](opts.Capacity)
	if err != nil {
		return nil, fmt.Errorf("create history cache: %w", err)
	}

	return &PriceCache{
		client:     client,
		quotes:     quotes,
		histories:  histories,
		inflight:   make(map[string]*quoteFlight),
		ttl:        opts.TTL,
		window:     opts.HistoryWindow,
		serveStale: opts.ServeStaleOnError,
		now:        opts.Now,
		log:        opts.Logger,
	}, nil
}

// Get は ticker の最新価格を返します。TTL内のエントリがあれば外部APIを呼びません。
func (c *PriceCache) Get(ctx context.Context, ticker string) (entity.Quote, error) {
	ticker = domain.NormalizeTicker(ticker)
	if ticker == "" {
		return entity.Quote{}, fmt.Errorf("%w: empty ticker", domain.ErrNotFound)
	}
	if e, ok := c.quotes.Get(ticker); ok && c.fresh(e.fetchedAt) {
		return e.value, nil
	}
	r := c.loadQuotes(ctx, []string{ticker}, false)[ticker]
	return r.Quote, r.Err
}

// History は ticker の日足履歴（固定ウィンドウ）を返します。
func (c *PriceCache) History(ctx context.Context, ticker string) (entity.HistoricalSeries, error) {
	ticker = domain.NormalizeTicker(ticker)
	if ticker == "" {
		return entity.HistoricalSeries{}, fmt.Errorf("%w: empty ticker", domain.ErrNotFound)
	}
	return load(ctx, c, c.histories, "history:"+ticker, ticker, func(ctx context.Context) (entity.HistoricalSeries, error) {
		return c.client.FetchHistory(ctx, ticker, c.window)
	})
}

// GetMany は複数銘柄の最新価格を返します。
// キャッシュにない銘柄は1回のバッチ取得でまとめて取得し、銘柄ごとの失敗は他に影響しません。
func (c *PriceCache) GetMany(ctx context.Context, tickers []string) map[string]entity.QuoteResult {
	out := make(map[string]entity.QuoteResult, len(tickers))
	var misses []string
	for _, t := range tickers {
		t = domain.NormalizeTicker(t)
		if t == "" {
			continue
		}
		if _, done := out[t]; done {
			continue
		}
		if e, ok := c.quotes.Get(t); ok && c.fresh(e.fetchedAt) {
			out[t] = entity.QuoteResult{Quote: e.value}
			continue
		}
		out[t] = entity.QuoteResult{}
		misses = append(misses, t)
	}
	if len(misses) == 0 {
		return out
	}
	for t, r := range c.loadQuotes(ctx, misses, true) {
		out[t] = r
	}
	return out
}

// quoteFlight は1銘柄分の進行中の価格取得です。
type quoteFlight struct {
	done chan struct{}
	res  entity.QuoteResult
}

// loadQuotes はキャッシュにない銘柄の価格を取得します。
// 既に取得中の銘柄はその取得の完了を待ち、残りは自分が1回の取得でまとめて取得します。
// Get と GetMany は同じ取得表を共有するため、同じ銘柄への同時ミスは常に1回の外部呼び出しになります。
func (c *PriceCache) loadQuotes(ctx context.Context, tickers []string, batch bool) map[string]entity.QuoteResult {
	flights := make(map[string]*quoteFlight, len(tickers))
	out := make(map[string]entity.QuoteResult, len(tickers))
	var lead []string

	c.flightMu.Lock()
	for _, t := range tickers {
		if f, ok := c.inflight[t]; ok {
			flights[t] = f
			continue
		}
		// 直前に別の取得が完了して格納している可能性があるため再確認する
		if e, ok := c.quotes.Peek(t); ok && c.fresh(e.fetchedAt) {
			out[t] = entity.QuoteResult{Quote: e.value}
			continue
		}
		f := &quoteFlight{done: make(chan struct{})}
		c.inflight[t] = f
		flights[t] = f
		lead = append(lead, t)
	}
	c.flightMu.Unlock()

	if len(lead) > 0 {
		// 呼び出し元の ctx が終了しても共有の取得処理はクライアント側のタイムアウトまで継続する
		go c.fetchQuotes(context.WithoutCancel(ctx), lead, flights, batch)
	}

	for t, f := range flights {
		select {
		case <-ctx.Done():
			err := ctx.Err()
			if errors.Is(err, context.DeadlineExceeded) {
				err = fmt.Errorf("%w: %s: %w", domain.ErrTimeout, t, err)
			}
			out[t] = entity.QuoteResult{Err: err}
		case <-f.done:
			out[t] = f.res
		}
		if out[t].Err == nil {
			continue
		}
		if stale, ok := c.staleQuote(t, out[t].Err); ok {
			out[t] = entity.QuoteResult{Quote: stale}
		}
	}
	return out
}

// fetchQuotes は lead の銘柄を取得し、結果を格納してから待機中の呼び出しに通知します。
func (c *PriceCache) fetchQuotes(ctx context.Context, lead []string, flights map[string]*quoteFlight, batch bool) {
	fetched := c.fetchLead(ctx, lead, batch)

	for _, t := range lead {
		r, ok := fetched[t]
		if !ok {
			r = entity.QuoteResult{Err: fmt.Errorf("%w: %s missing from batch result", domain.ErrNotFound, t)}
		}
		if r.Err == nil {
			c.quotes.Add(t, cached[entity.Quote]{value: r.Quote, fetchedAt: c.now()})
		}
		f := flights[t]
		f.res = r

		c.flightMu.Lock()
		delete(c.inflight, t)
		c.flightMu.Unlock()
		close(f.done)
	}
}

func (c *PriceCache) fetchLead(ctx context.Context, lead []string, batch bool) (fetched map[string]entity.QuoteResult) {
	defer func() {
		if p := recover(); p != nil {
			c.log.Error("quote fetch panicked", "tickers", lead, "panic", p)
			fetched = make(map[string]entity.QuoteResult, len(lead))
			for _, t := range lead {
				fetched[t] = entity.QuoteResult{Err: fmt.Errorf("%w: %s: quote fetch panicked", domain.ErrUpstreamUnavailable, t)}
			}
		}
	}()
	if batch {
		return c.client.FetchLatestPrices(ctx, lead)
	}
	q, err := c.client.FetchLatestPrice(ctx, lead[0])
	return map[string]entity.QuoteResult{lead[0]: {Quote: q, Err: err}}
}

// Len はキャッシュされている価格と履歴の件数を返します。
func (c *PriceCache) Len() (quotes, histories int) {
	return c.quotes.Len(), c.histories.Len()
}

func (c *PriceCache) fresh(fetchedAt time.Time) bool {
	return c.now().Sub(fetchedAt) <= c.ttl
}

func (c *PriceCache) staleQuote(ticker string, cause error) (entity.Quote, bool) {
	if !c.serveStale {
		return entity.Quote{}, false
	}
	e, ok := c.quotes.Peek(ticker)
	if !ok {
		return entity.Quote{}, false
	}
	c.log.Warn("serving stale quote after refetch failure",
		"ticker", ticker, "fetched_at", e.fetchedAt, "error", cause)
	return e.value, true
}

// load は keyspace から値を返し、期限切れまたは未登録なら singleflight 経由で取得します。
// 呼び出し元の ctx が終了しても共有の取得処理はクライアント側のタイムアウトまで継続します。
func load[T any](
	ctx context.Context,
	c *PriceCache,
	keyspace *lru.Cache[string, cached[T]],
	flightKey, ticker string,
	fetch func(context.Context) (T, error),
) (T, error) {
	var zero T
	if e, ok := keyspace.Get(ticker); ok && c.fresh(e.fetchedAt) {
		return e.value, nil
	}

	fetchCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(flightKey, func() (any, error) {
		// 待機中に別の呼び出しが格納している可能性があるため再確認する
		if e, ok := keyspace.Peek(ticker); ok && c.fresh(e.fetchedAt) {
			return e.value, nil
		}
		v, err := fetch(fetchCtx)
		if err != nil {
			return nil, err
		}
		keyspace.Add(ticker, cached[T]{value: v, fetchedAt: c.now()})
		return v, nil
	})

	select {
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return zero, fmt.Errorf("%w: %s: %w", domain.ErrTimeout, ticker, ctx.Err())
		}
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err == nil {
			return res.Val.(T), nil
		}
		if c.serveStale {
			if e, ok := keyspace.Peek(ticker); ok {
				c.log.Warn("serving stale value after refetch failure",
					"key", flightKey, "fetched_at", e.fetchedAt, "error", res.Err)
				return e.value, nil
			}
		}
		return zero, res.Err
	}
}
