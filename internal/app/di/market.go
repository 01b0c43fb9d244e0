// Package di provides dependency injection factories for creating application components.
package di

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	mdusecase "finance_backend/internal/feature/marketdata/usecase"
	"finance_backend/internal/platform/cache"
	"finance_backend/internal/platform/config"
	"finance_backend/internal/platform/externalapi/twelvedata"
	"finance_backend/internal/platform/externalapi/yahoo"
	infrahttp "finance_backend/internal/platform/http"
	"finance_backend/internal/shared/ratelimiter"
)

const (
	ProviderTwelveData = "twelvedata"
	ProviderYahoo      = "yahoo"
)

// MarketConfig selects and tunes the market data provider.
type MarketConfig struct {
	Provider           string
	Timeout            time.Duration
	RateLimitPerMinute int // 0 = unlimited
	MaxParallel        int
}

// LoadMarketConfig loads market configuration from environment variables.
func LoadMarketConfig() MarketConfig {
	return MarketConfig{
		Provider:           strings.ToLower(config.String("MARKET_PROVIDER", ProviderTwelveData)),
		Timeout:            config.Duration("MARKET_TIMEOUT", mdusecase.DefaultTimeout),
		RateLimitPerMinute: config.Int("RATE_LIMIT_PER_MINUTE", 0),
		MaxParallel:        config.Int("MARKET_MAX_PARALLEL", 4),
	}
}

// NewProvider creates the configured quote provider with its HTTP client.
func NewProvider(cfg MarketConfig) (mdusecase.Provider, error) {
	httpClient := infrahttp.NewHTTPClient(cfg.Timeout)
	switch cfg.Provider {
	case ProviderTwelveData, "":
		tdCfg := twelvedata.LoadConfig()
		if tdCfg.TwelveDataAPIKey == "" {
			slog.Warn("TWELVE_DATA_API_KEY is not set; requests will be rejected by the provider")
		}
		return twelvedata.NewTwelveDataMarket(tdCfg, httpClient), nil
	case ProviderYahoo:
		return yahoo.NewMarket(yahoo.LoadConfig(), httpClient), nil
	default:
		return nil, fmt.Errorf("unknown MARKET_PROVIDER %q", cfg.Provider)
	}
}

// NewMarketClient wraps the configured provider with deadlines and rate limiting.
func NewMarketClient(cfg MarketConfig) (*mdusecase.Client, error) {
	provider, err := NewProvider(cfg)
	if err != nil {
		return nil, err
	}
	opts := mdusecase.Options{
		Timeout:     cfg.Timeout,
		MaxParallel: cfg.MaxParallel,
	}
	if cfg.RateLimitPerMinute > 0 {
		opts.Limiter = ratelimiter.NewRateLimiter(cfg.RateLimitPerMinute, time.Minute)
	}
	slog.Info("market data client configured",
		"provider", provider.Name(), "timeout", cfg.Timeout, "rate_limit_per_minute", cfg.RateLimitPerMinute)
	return mdusecase.NewClient(provider, opts), nil
}

// LoadPriceCacheOptions loads the in-process price cache settings.
func LoadPriceCacheOptions(logger *slog.Logger) cache.Options {
	return cache.Options{
		TTL:               config.Duration("PRICE_CACHE_TTL", cache.DefaultTTL),
		Capacity:          config.Int("PRICE_CACHE_CAPACITY", cache.DefaultCapacity),
		HistoryWindow:     config.Int("PRICE_HISTORY_WINDOW", cache.DefaultHistoryWindow),
		ServeStaleOnError: config.Bool("PRICE_CACHE_SERVE_STALE", false),
		Logger:            logger,
	}
}
