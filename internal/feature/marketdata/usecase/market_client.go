// Package usecase implements the market data client that sits between the
// application and an external quote provider.
package usecase

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"finance_backend/internal/feature/marketdata/domain"
	"finance_backend/internal/feature/marketdata/domain/entity"
	"finance_backend/internal/shared/ratelimiter"
)

const (
	// DefaultTimeout bounds a single provider round trip.
	DefaultTimeout = 10 * time.Second
	// DefaultHistoryWindow is six months of trading days.
	DefaultHistoryWindow = 126
	// defaultMaxParallel bounds fan-out for providers without a native batch endpoint.
	defaultMaxParallel = 4
)

// Provider is the adapter boundary to an external quote provider.
// Following Go convention: interfaces are defined by the consumer (usecase), not the provider (platform).
type Provider interface {
	// Name identifies the provider in logs.
	Name() string
	// LatestPrice returns the most recent price of ticker.
	LatestPrice(ctx context.Context, ticker string) (entity.Quote, error)
	// DailyHistory returns up to days daily closes, ordered by date ascending.
	DailyHistory(ctx context.Context, ticker string, days int) (entity.HistoricalSeries, error)
}

// BatchPriceProvider is implemented by providers that can price many tickers in one round trip.
// A returned error means the whole round trip failed; per-ticker failures go in the map.
type BatchPriceProvider interface {
	LatestPrices(ctx context.Context, tickers []string) (map[string]entity.QuoteResult, error)
}

// EarningsProvider is implemented by providers that publish an earnings calendar.
type EarningsProvider interface {
	NextEarningsDate(ctx context.Context, ticker string) (time.Time, bool, error)
}

// Options configures a Client.
type Options struct {
	Timeout     time.Duration       // per-call deadline; DefaultTimeout when zero
	Limiter     ratelimiter.Limiter // optional outbound rate limiter
	MaxParallel int                 // fan-out bound for batch calls without native batching
}

// Client wraps a Provider with deadlines, rate limiting, error classification
// and batch variants. It never retries: a failed call surfaces immediately.
type Client struct {
	provider    Provider
	limiter     ratelimiter.Limiter
	timeout     time.Duration
	maxParallel int
}

// NewClient creates a Client around provider.
func NewClient(provider Provider, opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MaxParallel <= 0 {
		opts.MaxParallel = defaultMaxParallel
	}
	return &Client{
		provider:    provider,
		limiter:     opts.Limiter,
		timeout:     opts.Timeout,
		maxParallel: opts.MaxParallel,
	}
}

// ProviderName returns the name of the underlying provider.
func (c *Client) ProviderName() string {
	return c.provider.Name()
}

// FetchLatestPrice returns the latest quote for ticker.
func (c *Client) FetchLatestPrice(ctx context.Context, ticker string) (entity.Quote, error) {
	ticker = domain.NormalizeTicker(ticker)
	if ticker == "" {
		return entity.Quote{}, fmt.Errorf("%w: empty ticker", domain.ErrNotFound)
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.wait(ctx); err != nil {
		return entity.Quote{}, classify(ticker, err)
	}
	q, err := c.provider.LatestPrice(ctx, ticker)
	if err != nil {
		return entity.Quote{}, classify(ticker, err)
	}
	q.Ticker = ticker
	return q, nil
}

// FetchHistory returns up to window daily closes for ticker, oldest first.
// An empty series is reported as domain.ErrNotFound.
func (c *Client) FetchHistory(ctx context.Context, ticker string, window int) (entity.HistoricalSeries, error) {
	ticker = domain.NormalizeTicker(ticker)
	if ticker == "" {
		return entity.HistoricalSeries{}, fmt.Errorf("%w: empty ticker", domain.ErrNotFound)
	}
	if window <= 0 {
		window = DefaultHistoryWindow
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.wait(ctx); err != nil {
		return entity.HistoricalSeries{}, classify(ticker, err)
	}
	s, err := c.provider.DailyHistory(ctx, ticker, window)
	if err != nil {
		return entity.HistoricalSeries{}, classify(ticker, err)
	}
	if len(s.Closes) == 0 {
		return entity.HistoricalSeries{}, fmt.Errorf("%w: no history for %s", domain.ErrNotFound, ticker)
	}
	s.Ticker = ticker
	return s, nil
}

// FetchLatestPrices prices every ticker. The result holds one entry per distinct
// normalized ticker; a failure for one ticker never affects the others.
func (c *Client) FetchLatestPrices(ctx context.Context, tickers []string) map[string]entity.QuoteResult {
	tickers = normalizeAll(tickers)
	out := make(map[string]entity.QuoteResult, len(tickers))
	if len(tickers) == 0 {
		return out
	}

	if bp, ok := c.provider.(BatchPriceProvider); ok {
		return c.fetchBatch(ctx, bp, tickers)
	}

	var mu sync.Mutex
	g := new(errgroup.Group)
	g.SetLimit(c.maxParallel)
	for _, t := range tickers {
		g.Go(func() error {
			q, err := c.FetchLatestPrice(ctx, t)
			mu.Lock()
			out[t] = entity.QuoteResult{Quote: q, Err: err}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// FetchHistories fetches the history of every ticker with per-ticker isolation.
func (c *Client) FetchHistories(ctx context.Context, tickers []string, window int) map[string]entity.HistoryResult {
	tickers = normalizeAll(tickers)
	out := make(map[string]entity.HistoryResult, len(tickers))

	var mu sync.Mutex
	g := new(errgroup.Group)
	g.SetLimit(c.maxParallel)
	for _, t := range tickers {
		g.Go(func() error {
			s, err := c.FetchHistory(ctx, t, window)
			mu.Lock()
			out[t] = entity.HistoryResult{Series: s, Err: err}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// NextEarningsDate returns the next scheduled earnings date of ticker.
// ok is false when the provider has no earnings calendar or no upcoming date.
func (c *Client) NextEarningsDate(ctx context.Context, ticker string) (time.Time, bool, error) {
	ep, ok := c.provider.(EarningsProvider)
	if !ok {
		return time.Time{}, false, nil
	}
	ticker = domain.NormalizeTicker(ticker)
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.wait(ctx); err != nil {
		return time.Time{}, false, classify(ticker, err)
	}
	d, found, err := ep.NextEarningsDate(ctx, ticker)
	if err != nil {
		return time.Time{}, false, classify(ticker, err)
	}
	return d, found, nil
}

// fetchBatch issues a single round trip for all tickers.
func (c *Client) fetchBatch(ctx context.Context, bp BatchPriceProvider, tickers []string) map[string]entity.QuoteResult {
	out := make(map[string]entity.QuoteResult, len(tickers))

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	err := c.wait(ctx)
	var res map[string]entity.QuoteResult
	if err == nil {
		res, err = bp.LatestPrices(ctx, tickers)
	}
	for _, t := range tickers {
		if err != nil {
			out[t] = entity.QuoteResult{Err: classify(t, err)}
			continue
		}
		r, ok := res[t]
		switch {
		case !ok:
			out[t] = entity.QuoteResult{Err: fmt.Errorf("%w: %s missing from batch response", domain.ErrNotFound, t)}
		case r.Err != nil:
			out[t] = entity.QuoteResult{Err: classify(t, r.Err)}
		default:
			r.Quote.Ticker = t
			out[t] = r
		}
	}
	return out
}

func (c *Client) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(ctx)
}

// classify maps a provider or transport error onto the domain error kinds.
func classify(ticker string, err error) error {
	if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrTimeout) || errors.Is(err, domain.ErrUpstreamUnavailable) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s: %w", domain.ErrTimeout, ticker, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %s: %w", domain.ErrTimeout, ticker, err)
	}
	return fmt.Errorf("%w: %s: %w", domain.ErrUpstreamUnavailable, ticker, err)
}

// normalizeAll normalizes and de-duplicates tickers, keeping first-seen order.
func normalizeAll(tickers []string) []string {
	seen := make(map[string]struct{}, len(tickers))
	out := make([]string, 0, len(tickers))
	for _, t := range tickers {
		t = domain.NormalizeTicker(t)
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
