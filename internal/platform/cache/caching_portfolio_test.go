package cache

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/shopspring/decimal"

	"finance_backend/internal/feature/portfolio/domain/entity"
)

// mockPortfolioService はテスト用のPortfolioServiceモック実装です。
type mockPortfolioService struct {
	addFn   func(ctx context.Context, userID uint, ticker string, shares, price decimal.Decimal) error
	valueFn func(ctx context.Context, userID uint) (entity.Valuation, error)
}

func (m *mockPortfolioService) AddHolding(ctx context.Context, userID uint, ticker string, shares, price decimal.Decimal) error {
	if m.addFn != nil {
		return m.addFn(ctx, userID, ticker, shares, price)
	}
	return nil
}

func (m *mockPortfolioService) Value(ctx context.Context, userID uint) (entity.Valuation, error) {
	if m.valueFn != nil {
		return m.valueFn(ctx, userID)
	}
	return entity.Valuation{}, nil
}

func completeValuation() entity.Valuation {
	return entity.Valuation{
		Positions: []entity.PositionValue{{
			Ticker:       "AAPL",
			Shares:       decimal.NewFromInt(10),
			CurrentPrice: decimal.RequireFromString("110.5"),
			Value:        decimal.RequireFromString("1105"),
		}},
		TotalValue: decimal.RequireFromString("1105"),
		Unpriced:   []entity.UnpricedTicker{},
	}
}

// TestNewCachingPortfolio_Defaults はデフォルト値（TTLとnamespace）が正しく設定されることを検証します。
func TestNewCachingPortfolio_Defaults(t *testing.T) {
	t.Parallel()

	c := NewCachingPortfolio(nil, 0, &mockPortfolioService{}, "")
	if c.ttl != DefaultValuationTTL {
		t.Errorf("expected TTL %v, got %v", DefaultValuationTTL, c.ttl)
	}
	if c.namespace != "portfolio_value" {
		t.Errorf("expected namespace portfolio_value, got %q", c.namespace)
	}
}

// TestCachingPortfolio_Value_NilRedis はRedisがnilの場合にキャッシュをバイパスすることを検証します。
func TestCachingPortfolio_Value_NilRedis(t *testing.T) {
	t.Parallel()

	calls := 0
	inner := &mockPortfolioService{valueFn: func(ctx context.Context, userID uint) (entity.Valuation, error) {
		calls++
		return completeValuation(), nil
	}}
	c := NewCachingPortfolio(nil, time.Minute, inner, "pv")

	for range 2 {
		if _, err := c.Value(context.Background(), 1); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if calls != 2 {
		t.Errorf("expected inner to be called twice, got %d", calls)
	}
}

// TestCachingPortfolio_Value_CacheHit はキャッシュヒット時に内部サービスを呼ばないことを検証します。
func TestCachingPortfolio_Value_CacheHit(t *testing.T) {
	t.Parallel()

	rdb, mock := redismock.NewClientMock()
	defer func() { _ = rdb.Close() }()

	cached, _ := json.Marshal(completeValuation())
	mock.ExpectGet("pv:7").SetVal(string(cached))

	innerCalled := false
	inner := &mockPortfolioService{valueFn: func(ctx context.Context, userID uint) (entity.Valuation, error) {
		innerCalled = true
		return entity.Valuation{}, nil
	}}

	c := NewCachingPortfolio(rdb, time.Minute, inner, "pv")
	v, err := c.Value(context.Background(), 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if innerCalled {
		t.Error("inner service should not be called on cache hit")
	}
	if !v.TotalValue.Equal(decimal.RequireFromString("1105")) {
		t.Errorf("unexpected total %s", v.TotalValue)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled mock expectations: %v", err)
	}
}

// TestCachingPortfolio_Value_CacheMiss は完全な評価結果のみがキャッシュに保存されることを検証します。
func TestCachingPortfolio_Value_CacheMiss(t *testing.T) {
	t.Parallel()

	rdb, mock := redismock.NewClientMock()
	defer func() { _ = rdb.Close() }()

	v := completeValuation()
	expectedJSON, _ := json.Marshal(v)

	mock.ExpectGet("pv:7").RedisNil()
	mock.ExpectSet("pv:7", expectedJSON, time.Minute).SetVal("OK")

	inner := &mockPortfolioService{valueFn: func(ctx context.Context, userID uint) (entity.Valuation, error) {
		return v, nil
	}}

	c := NewCachingPortfolio(rdb, time.Minute, inner, "pv")
	if _, err := c.Value(context.Background(), 7); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled mock expectations: %v", err)
	}
}

// TestCachingPortfolio_Value_PartialNotCached は評価できない銘柄を含む結果がキャッシュされないことを検証します。
func TestCachingPortfolio_Value_PartialNotCached(t *testing.T) {
	t.Parallel()

	rdb, mock := redismock.NewClientMock()
	defer func() { _ = rdb.Close() }()

	partial := completeValuation()
	partial.Unpriced = []entity.UnpricedTicker{{Ticker: "GONE", Kind: "timeout"}}

	mock.ExpectGet("pv:7").RedisNil()
	// No SET expected

	inner := &mockPortfolioService{valueFn: func(ctx context.Context, userID uint) (entity.Valuation, error) {
		return partial, nil
	}}

	c := NewCachingPortfolio(rdb, time.Minute, inner, "pv")
	v, err := c.Value(context.Background(), 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(v.Unpriced) != 1 {
		t.Errorf("expected unpriced entry to be returned, got %+v", v.Unpriced)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled mock expectations: %v", err)
	}
}

// TestCachingPortfolio_Value_InnerError は内部サービスのエラーが伝播されることを検証します。
func TestCachingPortfolio_Value_InnerError(t *testing.T) {
	t.Parallel()

	rdb, mock := redismock.NewClientMock()
	defer func() { _ = rdb.Close() }()

	expectedErr := errors.New("database error")
	mock.ExpectGet("pv:7").RedisNil()

	inner := &mockPortfolioService{valueFn: func(ctx context.Context, userID uint) (entity.Valuation, error) {
		return entity.Valuation{}, expectedErr
	}}

	c := NewCachingPortfolio(rdb, time.Minute, inner, "pv")
	if _, err := c.Value(context.Background(), 7); !errors.Is(err, expectedErr) {
		t.Errorf("expected error %v, got %v", expectedErr, err)
	}
}

// TestCachingPortfolio_Value_CorruptedCache は破損したキャッシュを削除して再計算することを検証します。
func TestCachingPortfolio_Value_CorruptedCache(t *testing.T) {
	t.Parallel()

	rdb, mock := redismock.NewClientMock()
	defer func() { _ = rdb.Close() }()

	v := completeValuation()
	expectedJSON, _ := json.Marshal(v)

	mock.ExpectGet("pv:7").SetVal("invalid json")
	mock.ExpectDel("pv:7").SetVal(1)
	mock.ExpectSet("pv:7", expectedJSON, time.Minute).SetVal("OK")

	inner := &mockPortfolioService{valueFn: func(ctx context.Context, userID uint) (entity.Valuation, error) {
		return v, nil
	}}

	c := NewCachingPortfolio(rdb, time.Minute, inner, "pv")
	if _, err := c.Value(context.Background(), 7); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled mock expectations: %v", err)
	}
}

// TestCachingPortfolio_AddHolding_Invalidates は銘柄追加後にユーザーのキャッシュが削除されることを検証します。
func TestCachingPortfolio_AddHolding_Invalidates(t *testing.T) {
	t.Parallel()

	rdb, mock := redismock.NewClientMock()
	defer func() { _ = rdb.Close() }()

	mock.ExpectDel("pv:7").SetVal(1)

	c := NewCachingPortfolio(rdb, time.Minute, &mockPortfolioService{}, "pv")
	if err := c.AddHolding(context.Background(), 7, "AAPL", decimal.NewFromInt(1), decimal.NewFromInt(1)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled mock expectations: %v", err)
	}
}

// TestCachingPortfolio_AddHolding_InnerError はエラー時にキャッシュを削除しないことを検証します。
func TestCachingPortfolio_AddHolding_InnerError(t *testing.T) {
	t.Parallel()

	rdb, mock := redismock.NewClientMock()
	defer func() { _ = rdb.Close() }()

	expectedErr := errors.New("upsert error")
	inner := &mockPortfolioService{addFn: func(ctx context.Context, userID uint, ticker string, shares, price decimal.Decimal) error {
		return expectedErr
	}}

	c := NewCachingPortfolio(rdb, time.Minute, inner, "pv")
	err := c.AddHolding(context.Background(), 7, "AAPL", decimal.NewFromInt(1), decimal.NewFromInt(1))
	if !errors.Is(err, expectedErr) {
		t.Errorf("expected error %v, got %v", expectedErr, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled mock expectations: %v", err)
	}
}
