// Package yahoo provides a quote provider backed by the public Yahoo Finance chart API.
package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"finance_backend/internal/feature/marketdata/domain"
	"finance_backend/internal/feature/marketdata/domain/entity"
	"finance_backend/internal/feature/marketdata/usecase"
	"finance_backend/internal/platform/config"
)

const (
	// DefaultBaseURL is the public Yahoo Finance endpoint.
	DefaultBaseURL = "https://query1.finance.yahoo.com"
	// maxBodyBytes caps how much of a chart response is read.
	maxBodyBytes = 4 << 20
)

// Config holds configuration for the Yahoo Finance client.
type Config struct {
	BaseURL string
}

// LoadConfig loads Yahoo configuration from environment variables.
func LoadConfig() Config {
	return Config{BaseURL: config.String("YAHOO_BASE_URL", DefaultBaseURL)}
}

// Market implements usecase.Provider using the Yahoo Finance chart API.
// Yahoo has no batch price endpoint, so the market data client fans out per ticker.
type Market struct {
	cfg     Config
	client  *http.Client
	now     func() time.Time
	maxBody int64
}

var _ usecase.Provider = (*Market)(nil)

// NewMarket creates a Yahoo Finance provider.
func NewMarket(cfg Config, client *http.Client) *Market {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	return &Market{cfg: cfg, client: client, now: time.Now, maxBody: maxBodyBytes}
}

func (m *Market) Name() string { return "yahoo" }

// chartResponse is the response structure from Yahoo Finance chart API.
type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol             string   `json:"symbol"`
				RegularMarketPrice *float64 `json:"regularMarketPrice"`
				RegularMarketTime  int64    `json:"regularMarketTime"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close []*float64 `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// LatestPrice returns the regular market price reported in the chart metadata.
func (m *Market) LatestPrice(ctx context.Context, ticker string) (entity.Quote, error) {
	chart, err := m.fetchChart(ctx, ticker, "1d", "1d")
	if err != nil {
		return entity.Quote{}, err
	}
	meta := chart.Chart.Result[0].Meta
	if meta.RegularMarketPrice == nil {
		return entity.Quote{}, fmt.Errorf("%w: yahoo returned no price for %s", domain.ErrNotFound, ticker)
	}
	return entity.Quote{
		Ticker:     ticker,
		Price:      decimal.NewFromFloat(*meta.RegularMarketPrice),
		ObservedAt: m.now(),
	}, nil
}

// DailyHistory returns up to days daily closes ordered by date ascending.
func (m *Market) DailyHistory(ctx context.Context, ticker string, days int) (entity.HistoricalSeries, error) {
	// Yahoo range: max "2y" for daily interval
	rng := "2y"
	switch {
	case days <= 30:
		rng = "1mo"
	case days <= 90:
		rng = "3mo"
	case days <= 180:
		rng = "6mo"
	case days <= 365:
		rng = "1y"
	}
	chart, err := m.fetchChart(ctx, ticker, "1d", rng)
	if err != nil {
		return entity.HistoricalSeries{}, err
	}

	result := chart.Chart.Result[0]
	var closesRaw []*float64
	if len(result.Indicators.Quote) > 0 {
		closesRaw = result.Indicators.Quote[0].Close
	}
	closes := make([]entity.DailyClose, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		if i >= len(closesRaw) || closesRaw[i] == nil {
			continue // skip null bars (holidays etc.)
		}
		t := time.Unix(ts, 0).UTC()
		closes = append(closes, entity.DailyClose{
			Date:  time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC),
			Close: decimal.NewFromFloat(*closesRaw[i]),
		})
	}
	sort.Slice(closes, func(i, j int) bool { return closes[i].Date.Before(closes[j].Date) })

	// Trim to requested count
	if days > 0 && len(closes) > days {
		closes = closes[len(closes)-days:]
	}
	return entity.HistoricalSeries{Ticker: ticker, Closes: closes}, nil
}

func (m *Market) fetchChart(ctx context.Context, ticker, interval, rng string) (*chartResponse, error) {
	u := fmt.Sprintf("%s/v8/finance/chart/%s?interval=%s&range=%s",
		strings.TrimRight(m.cfg.BaseURL, "/"), url.PathEscape(ticker), interval, rng)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("yahoo fetch: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Warn("failed to close response body", "error", err)
		}
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, m.maxBody+1))
	if err != nil {
		return nil, fmt.Errorf("yahoo read body: %w", err)
	}
	if int64(len(body)) > m.maxBody {
		return nil, fmt.Errorf("%w: yahoo %s: response exceeds %d bytes", domain.ErrUpstreamUnavailable, ticker, m.maxBody)
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: yahoo %s: status 404", domain.ErrNotFound, ticker)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("yahoo: status %d", resp.StatusCode)
	}

	var chart chartResponse
	if err := json.Unmarshal(body, &chart); err != nil {
		return nil, fmt.Errorf("yahoo decode: %w", err)
	}
	if e := chart.Chart.Error; e != nil {
		if e.Code == "Not Found" {
			return nil, fmt.Errorf("%w: yahoo %s: %s", domain.ErrNotFound, ticker, e.Description)
		}
		return nil, fmt.Errorf("yahoo api error: %s", e.Description)
	}
	if len(chart.Chart.Result) == 0 {
		return nil, fmt.Errorf("%w: yahoo returned no data for %s", domain.ErrNotFound, ticker)
	}
	return &chart, nil
}
