package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"finance_backend/internal/feature/portfolio/domain/entity"
)

// DefaultValuationTTL はポートフォリオ評価結果の既定のキャッシュ期間です。
const DefaultValuationTTL = 5 * time.Minute

// PortfolioService はキャッシュ対象となるポートフォリオ操作です。
type PortfolioService interface {
	AddHolding(ctx context.Context, userID uint, ticker string, shares, price decimal.Decimal) error
	Value(ctx context.Context, userID uint) (entity.Valuation, error)
}

// CachingPortfolio decorates a PortfolioService with a per-user Redis cache of valuations.
// Only complete valuations are cached, so a transient pricing failure is never
// served for the whole TTL.
type CachingPortfolio struct {
	inner     PortfolioService
	rdb       *redis.Client
	ttl       time.Duration
	namespace string
}

var _ PortfolioService = (*CachingPortfolio)(nil)

// NewCachingPortfolio decorates a PortfolioService with Redis caching.
// If ttl is 0, it defaults to 5 minutes. If namespace is empty, it uses "portfolio_value".
func NewCachingPortfolio(rdb *redis.Client, ttl time.Duration, inner PortfolioService, namespace string) *CachingPortfolio {
	if ttl <= 0 {
		ttl = DefaultValuationTTL
	}
	if namespace == "" {
		namespace = "portfolio_value"
	}
	return &CachingPortfolio{
		inner:     inner,
		rdb:       rdb,
		ttl:       ttl,
		namespace: namespace,
	}
}

// AddHolding adds the holding and invalidates the user's cached valuation.
func (c *CachingPortfolio) AddHolding(ctx context.Context, userID uint, ticker string, shares, price decimal.Decimal) error {
	if err := c.inner.AddHolding(ctx, userID, ticker, shares, price); err != nil {
		return err
	}
	if c.rdb == nil {
		return nil
	}
	// Best effort: don't fail if cache deletion fails
	if err := c.rdb.Del(ctx, c.cacheKey(userID)).Err(); err != nil {
		slog.Warn("failed to invalidate valuation cache", "user_id", userID, "error", err)
	}
	return nil
}

// Value returns the cached valuation when present, otherwise computes it.
func (c *CachingPortfolio) Value(ctx context.Context, userID uint) (entity.Valuation, error) {
	// Bypass cache if Redis is not configured
	if c.rdb == nil {
		return c.inner.Value(ctx, userID)
	}

	key := c.cacheKey(userID)

	// 1) Check cache
	if b, err := c.rdb.Get(ctx, key).Bytes(); err == nil && len(b) > 0 {
		var out entity.Valuation
		if err := json.Unmarshal(b, &out); err == nil {
			return out, nil
		}
		// Delete corrupted cache entry
		_ = c.rdb.Del(ctx, key).Err()
	}

	// 2) Compute from live prices
	out, err := c.inner.Value(ctx, userID)
	if err != nil {
		return entity.Valuation{}, err
	}

	// 3) Store in cache (best effort, complete valuations only)
	if out.Complete() {
		if b, err := json.Marshal(out); err == nil {
			_ = c.rdb.Set(ctx, key, b, c.ttl).Err()
		}
	}

	return out, nil
}

// cacheKey generates a cache key for a user's valuation.
func (c *CachingPortfolio) cacheKey(userID uint) string {
	return fmt.Sprintf("%s:%d", c.namespace, userID)
}
