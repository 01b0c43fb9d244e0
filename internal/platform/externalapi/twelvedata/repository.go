package twelvedata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"finance_backend/internal/feature/marketdata/domain"
	"finance_backend/internal/feature/marketdata/domain/entity"
	"finance_backend/internal/feature/marketdata/usecase"
	"finance_backend/internal/platform/externalapi/twelvedata/dto"
)

// TwelveDataMarket はTwelve Data外部APIから株価データを取得するProvider実装です。
type TwelveDataMarket struct {
	cfg    Config
	client *http.Client
	now    func() time.Time
}

// TwelveDataMarketが各Providerインターフェースを実装していることをコンパイル時に検証します。
var (
	_ usecase.Provider           = (*TwelveDataMarket)(nil)
	_ usecase.BatchPriceProvider = (*TwelveDataMarket)(nil)
	_ usecase.EarningsProvider   = (*TwelveDataMarket)(nil)
)

// NewTwelveDataMarket は指定された設定とHTTPクライアントでTwelveDataMarketの新しいインスタンスを生成します。
func NewTwelveDataMarket(cfg Config, client *http.Client) *TwelveDataMarket {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.MaxBatch <= 0 {
		cfg.MaxBatch = DefaultMaxBatch
	}
	return &TwelveDataMarket{cfg: cfg, client: client, now: time.Now}
}

// Name はログ出力用のプロバイダー名を返します。
func (t *TwelveDataMarket) Name() string { return "twelvedata" }

// LatestPrice は /price エンドポイントから最新価格を取得します。
func (t *TwelveDataMarket) LatestPrice(ctx context.Context, ticker string) (entity.Quote, error) {
	var body dto.PriceResponse
	if err := t.get(ctx, "price", url.Values{"symbol": {ticker}}, &body); err != nil {
		return entity.Quote{}, err
	}
	if err := apiError(ticker, body.ErrorFields); err != nil {
		return entity.Quote{}, err
	}
	return t.toQuote(ticker, body.Price)
}

// LatestPrices は1回のリクエストで複数銘柄の最新価格を取得します。
// 銘柄ごとのエラーは結果マップに格納され、通信自体の失敗のみがエラーとして返されます。
// MaxBatch を超える場合は分割して順に取得し、失敗した分割の銘柄にはそのエラーを格納します。
func (t *TwelveDataMarket) LatestPrices(ctx context.Context, tickers []string) (map[string]entity.QuoteResult, error) {
	if len(tickers) <= t.cfg.MaxBatch {
		return t.latestPricesChunk(ctx, tickers)
	}
	out := make(map[string]entity.QuoteResult, len(tickers))
	for chunk := range slices.Chunk(tickers, t.cfg.MaxBatch) {
		res, err := t.latestPricesChunk(ctx, chunk)
		for _, ticker := range chunk {
			if err != nil {
				out[ticker] = entity.QuoteResult{Err: err}
				continue
			}
			if r, ok := res[ticker]; ok {
				out[ticker] = r
			}
		}
	}
	return out, nil
}

func (t *TwelveDataMarket) latestPricesChunk(ctx context.Context, tickers []string) (map[string]entity.QuoteResult, error) {
	out := make(map[string]entity.QuoteResult, len(tickers))
	if len(tickers) == 0 {
		return out, nil
	}
	// 1銘柄の場合はレスポンスがネストされないため単体取得を使う
	if len(tickers) == 1 {
		var p dto.PriceResponse
		if err := t.get(ctx, "price", url.Values{"symbol": {tickers[0]}}, &p); err != nil {
			if !errors.Is(err, domain.ErrNotFound) {
				return nil, err
			}
			out[tickers[0]] = entity.QuoteResult{Err: err}
			return out, nil
		}
		out[tickers[0]] = t.priceResult(tickers[0], p)
		return out, nil
	}

	var raw json.RawMessage
	if err := t.get(ctx, "price", url.Values{"symbol": {strings.Join(tickers, ",")}}, &raw); err != nil {
		return nil, err
	}
	// リクエスト全体のエラー（APIキー不正など）はトップレベルに status が入る
	var top dto.ErrorFields
	if err := json.Unmarshal(raw, &top); err == nil {
		if err := apiError(strings.Join(tickers, ","), top); err != nil {
			return nil, err
		}
	}
	var body map[string]dto.PriceResponse
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, fmt.Errorf("twelvedata decode batch price: %w", err)
	}

	for _, ticker := range tickers {
		p, ok := body[ticker]
		if !ok {
			out[ticker] = entity.QuoteResult{Err: fmt.Errorf("%w: twelvedata returned no entry for %s", domain.ErrNotFound, ticker)}
			continue
		}
		out[ticker] = t.priceResult(ticker, p)
	}
	return out, nil
}

// DailyHistory は /time_series エンドポイントから日足の終値を取得し、日付の昇順で返します。
func (t *TwelveDataMarket) DailyHistory(ctx context.Context, ticker string, days int) (entity.HistoricalSeries, error) {
	q := url.Values{}
	q.Set("symbol", ticker)
	q.Set("interval", "1day")
	q.Set("outputsize", strconv.Itoa(days))

	var body dto.TimeSeriesResponse
	if err := t.get(ctx, "time_series", q, &body); err != nil {
		return entity.HistoricalSeries{}, err
	}
	if err := apiError(ticker, body.ErrorFields); err != nil {
		return entity.HistoricalSeries{}, err
	}

	closes := make([]entity.DailyClose, 0, len(body.Values))
	for _, v := range body.Values {
		// タイムスタンプをパース
		tm, err := parseDate(v.Datetime)
		if err != nil {
			return entity.HistoricalSeries{}, err
		}
		// 終値をパース
		c, err := decimal.NewFromString(v.Close)
		if err != nil {
			return entity.HistoricalSeries{}, fmt.Errorf("parse close %q: %w", v.Close, err)
		}
		closes = append(closes, entity.DailyClose{Date: tm, Close: c})
	}
	// Twelve Dataは新しい順で返すため昇順に並べ替える
	sort.Slice(closes, func(i, j int) bool { return closes[i].Date.Before(closes[j].Date) })

	return entity.HistoricalSeries{Ticker: ticker, Closes: closes}, nil
}

// NextEarningsDate は /earnings エンドポイントから本日以降で最も近い決算発表日を返します。
func (t *TwelveDataMarket) NextEarningsDate(ctx context.Context, ticker string) (time.Time, bool, error) {
	var body dto.EarningsResponse
	if err := t.get(ctx, "earnings", url.Values{"symbol": {ticker}}, &body); err != nil {
		return time.Time{}, false, err
	}
	if err := apiError(ticker, body.ErrorFields); err != nil {
		return time.Time{}, false, err
	}

	now := t.now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	var (
		next  time.Time
		found bool
	)
	for _, e := range body.Earnings {
		d, err := parseDate(e.Date)
		if err != nil {
			slog.Warn("skipping unparsable earnings date", "ticker", ticker, "date", e.Date, "error", err)
			continue
		}
		if d.Before(today) {
			continue
		}
		if !found || d.Before(next) {
			next, found = d, true
		}
	}
	return next, found, nil
}

// get はGETリクエストを実行し、JSONレスポンスを out にデコードします。
func (t *TwelveDataMarket) get(ctx context.Context, path string, q url.Values, out any) error {
	q.Set("apikey", t.cfg.TwelveDataAPIKey)

	// URLを生成
	u := fmt.Sprintf("%s/%s?%s", strings.TrimRight(t.cfg.BaseURL, "/"), path, q.Encode())

	// リクエストオブジェクトを作成
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}

	// リクエストを実行
	res, err := t.client.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		if err := res.Body.Close(); err != nil {
			slog.Warn("failed to close response body", "error", err)
		}
	}()

	if res.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: twelvedata http %d", domain.ErrNotFound, res.StatusCode)
	}
	if res.StatusCode >= 400 {
		return fmt.Errorf("twelvedata http %d", res.StatusCode)
	}

	// JSONレスポンスをDTOにデコード
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("twelvedata decode %s: %w", path, err)
	}
	return nil
}

// toQuote は価格文字列をQuoteに変換します。
func (t *TwelveDataMarket) toQuote(ticker, price string) (entity.Quote, error) {
	if price == "" {
		return entity.Quote{}, fmt.Errorf("%w: twelvedata returned no price for %s", domain.ErrNotFound, ticker)
	}
	p, err := decimal.NewFromString(price)
	if err != nil {
		return entity.Quote{}, fmt.Errorf("parse price %q: %w", price, err)
	}
	return entity.Quote{Ticker: ticker, Price: p, ObservedAt: t.now()}, nil
}

// apiError はTwelve Dataのエラーペイロードをエラーに変換します。
// 銘柄不明（code 400/404）は domain.ErrNotFound として扱います。
func apiError(ticker string, e dto.ErrorFields) error {
	if e.Status != "error" {
		return nil
	}
	if e.Code == http.StatusBadRequest || e.Code == http.StatusNotFound {
		return fmt.Errorf("%w: twelvedata %s: %s", domain.ErrNotFound, ticker, e.Message)
	}
	return fmt.Errorf("twelvedata: %s", e.Message)
}

// priceResult は1銘柄分の /price ペイロードを結果に変換します。
func (t *TwelveDataMarket) priceResult(ticker string, p dto.PriceResponse) entity.QuoteResult {
	if err := apiError(ticker, p.ErrorFields); err != nil {
		return entity.QuoteResult{Err: err}
	}
	q, err := t.toQuote(ticker, p.Price)
	return entity.QuoteResult{Quote: q, Err: err}
}

func parseDate(s string) (time.Time, error) {
	tm, err := time.Parse("2006-01-02 15:04:05", s)
	if err != nil {
		tm, err = time.Parse("2006-01-02", s)
		if err != nil {
			return time.Time{}, fmt.Errorf("parse time %q: %w", s, err)
		}
	}
	return tm, nil
}
