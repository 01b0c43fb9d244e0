package twelvedata

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"finance_backend/internal/feature/marketdata/domain"
)

func newTestMarket(t *testing.T, h http.HandlerFunc) *TwelveDataMarket {
	t.Helper()
	server := httptest.NewServer(h)
	t.Cleanup(server.Close)

	market := NewTwelveDataMarket(Config{TwelveDataAPIKey: "test-key", BaseURL: server.URL}, server.Client())
	market.now = func() time.Time { return time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC) }
	return market
}

func TestNewTwelveDataMarket(t *testing.T) {
	t.Parallel()

	market := NewTwelveDataMarket(Config{TwelveDataAPIKey: "test-key"}, &http.Client{})

	if market == nil {
		t.Fatal("expected non-nil market")
	}
	if market.cfg.BaseURL != DefaultBaseURL {
		t.Errorf("expected default base URL %q, got %q", DefaultBaseURL, market.cfg.BaseURL)
	}
	if market.Name() != "twelvedata" {
		t.Errorf("unexpected name %q", market.Name())
	}
}

func TestTwelveDataMarket_LatestPrice_Success(t *testing.T) {
	t.Parallel()

	market := newTestMarket(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/price" {
			t.Errorf("expected path /price, got %s", r.URL.Path)
		}
		if r.URL.Query().Get("symbol") != "AAPL" {
			t.Errorf("expected symbol AAPL, got %s", r.URL.Query().Get("symbol"))
		}
		if r.URL.Query().Get("apikey") != "test-key" {
			t.Errorf("expected apikey test-key, got %s", r.URL.Query().Get("apikey"))
		}
		_, _ = w.Write([]byte(`{"price":"187.42000"}`))
	})

	q, err := market.LatestPrice(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.Price.String() != "187.42" {
		t.Errorf("expected price 187.42, got %s", q.Price)
	}
	if q.Ticker != "AAPL" {
		t.Errorf("expected ticker AAPL, got %s", q.Ticker)
	}
	if q.ObservedAt.IsZero() {
		t.Error("expected ObservedAt to be set")
	}
}

func TestTwelveDataMarket_LatestPrice_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		status       int
		body         string
		wantNotFound bool
	}{
		{"unknown symbol payload", http.StatusOK, `{"status":"error","code":400,"message":"**symbol** not found: ZZZZ"}`, true},
		{"http not found", http.StatusNotFound, `{}`, true},
		{"rate limited payload", http.StatusOK, `{"status":"error","code":429,"message":"run out of API credits"}`, false},
		{"server error", http.StatusInternalServerError, `{}`, false},
		{"empty price", http.StatusOK, `{}`, true},
		{"invalid json", http.StatusOK, `{invalid`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			market := newTestMarket(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := market.LatestPrice(context.Background(), "ZZZZ")
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if got := errors.Is(err, domain.ErrNotFound); got != tt.wantNotFound {
				t.Errorf("errors.Is(err, ErrNotFound) = %v, want %v (err=%v)", got, tt.wantNotFound, err)
			}
		})
	}
}

func TestTwelveDataMarket_LatestPrices_Batch(t *testing.T) {
	t.Parallel()

	calls := 0
	market := newTestMarket(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if got := r.URL.Query().Get("symbol"); got != "AAPL,MSFT,ZZZZ" {
			t.Errorf("expected comma separated symbols, got %s", got)
		}
		_, _ = w.Write([]byte(`{
			"AAPL": {"price": "190.10"},
			"MSFT": {"price": "410.55"},
			"ZZZZ": {"status": "error", "code": 404, "message": "symbol not found"}
		}`))
	})

	res, err := market.LatestPrices(context.Background(), []string{"AAPL", "MSFT", "ZZZZ"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 upstream call, got %d", calls)
	}
	if res["AAPL"].Err != nil || res["AAPL"].Quote.Price.String() != "190.1" {
		t.Errorf("unexpected AAPL result: %+v", res["AAPL"])
	}
	if res["MSFT"].Err != nil || res["MSFT"].Quote.Price.String() != "410.55" {
		t.Errorf("unexpected MSFT result: %+v", res["MSFT"])
	}
	if !errors.Is(res["ZZZZ"].Err, domain.ErrNotFound) {
		t.Errorf("expected ZZZZ not found, got %v", res["ZZZZ"].Err)
	}
}

func TestTwelveDataMarket_LatestPrices_MissingEntry(t *testing.T) {
	t.Parallel()

	market := newTestMarket(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"AAPL": {"price": "190.10"}}`))
	})

	res, err := market.LatestPrices(context.Background(), []string{"AAPL", "MSFT"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !errors.Is(res["MSFT"].Err, domain.ErrNotFound) {
		t.Errorf("expected MSFT not found, got %v", res["MSFT"].Err)
	}
}

func TestTwelveDataMarket_LatestPrices_SingleTicker(t *testing.T) {
	t.Parallel()

	market := newTestMarket(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"price":"12.5"}`))
	})

	res, err := market.LatestPrices(context.Background(), []string{"KO"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res["KO"].Err != nil || res["KO"].Quote.Price.String() != "12.5" {
		t.Errorf("unexpected KO result: %+v", res["KO"])
	}
}

func TestTwelveDataMarket_LatestPrices_RequestFailure(t *testing.T) {
	t.Parallel()

	market := newTestMarket(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"error","code":401,"message":"invalid api key"}`))
	})

	_, err := market.LatestPrices(context.Background(), []string{"AAPL", "MSFT"})
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !strings.Contains(err.Error(), "invalid api key") {
		t.Errorf("expected error to mention api key, got %v", err)
	}
}

func TestTwelveDataMarket_DailyHistory_Success(t *testing.T) {
	t.Parallel()

	market := newTestMarket(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/time_series" {
			t.Errorf("expected path /time_series, got %s", r.URL.Path)
		}
		if r.URL.Query().Get("interval") != "1day" {
			t.Errorf("expected interval 1day, got %s", r.URL.Query().Get("interval"))
		}
		if r.URL.Query().Get("outputsize") != "126" {
			t.Errorf("expected outputsize 126, got %s", r.URL.Query().Get("outputsize"))
		}
		_, _ = w.Write([]byte(`{
			"meta": {"symbol": "AAPL", "interval": "1day"},
			"values": [
				{"datetime": "2025-01-15", "close": "154.50"},
				{"datetime": "2025-01-14 09:30:00", "close": "150.00"}
			],
			"status": "ok"
		}`))
	})

	series, err := market.DailyHistory(context.Background(), "AAPL", 126)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if series.Len() != 2 {
		t.Fatalf("expected 2 closes, got %d", series.Len())
	}
	// 昇順に並べ替えられていること
	if !series.Closes[0].Date.Before(series.Closes[1].Date) {
		t.Errorf("expected ascending dates, got %v then %v", series.Closes[0].Date, series.Closes[1].Date)
	}
	if series.Closes[1].Close.String() != "154.5" {
		t.Errorf("expected last close 154.5, got %s", series.Closes[1].Close)
	}
}

func TestTwelveDataMarket_DailyHistory_InvalidData(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
	}{
		{"invalid date", `{"values":[{"datetime":"15/01/2025","close":"1"}]}`},
		{"invalid close", `{"values":[{"datetime":"2025-01-15","close":"abc"}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			market := newTestMarket(t, func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			})
			if _, err := market.DailyHistory(context.Background(), "AAPL", 5); err == nil {
				t.Fatal("expected error, got nil")
			}
		})
	}
}

func TestTwelveDataMarket_NextEarningsDate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		body      string
		wantFound bool
		wantDate  string
	}{
		{
			name:      "earliest future date",
			body:      `{"earnings":[{"date":"2025-04-30"},{"date":"2025-01-20"},{"date":"2024-10-30"}]}`,
			wantFound: true,
			wantDate:  "2025-01-20",
		},
		{
			name:      "today counts",
			body:      `{"earnings":[{"date":"2025-01-15"}]}`,
			wantFound: true,
			wantDate:  "2025-01-15",
		},
		{
			name: "only past dates",
			body: `{"earnings":[{"date":"2024-10-30"}]}`,
		},
		{
			name: "no earnings",
			body: `{"earnings":[]}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			market := newTestMarket(t, func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			})
			d, found, err := market.NextEarningsDate(context.Background(), "AAPL")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if found != tt.wantFound {
				t.Fatalf("found = %v, want %v", found, tt.wantFound)
			}
			if found && d.Format("2006-01-02") != tt.wantDate {
				t.Errorf("date = %s, want %s", d.Format("2006-01-02"), tt.wantDate)
			}
		})
	}
}

func TestTwelveDataMarket_ContextCanceled(t *testing.T) {
	t.Parallel()

	market := newTestMarket(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		_, _ = w.Write([]byte(`{"price":"1"}`))
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := market.LatestPrice(ctx, "AAPL")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}

func TestTwelveDataMarket_LatestPrices_SplitsLargeBatches(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	var symbols []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got := r.URL.Query().Get("symbol")
		mu.Lock()
		symbols = append(symbols, got)
		mu.Unlock()
		switch got {
		case "AAPL,MSFT":
			_, _ = w.Write([]byte(`{"AAPL": {"price": "190.10"}, "MSFT": {"price": "410.55"}}`))
		case "KO":
			_, _ = w.Write([]byte(`{"price": "60.25"}`))
		default:
			t.Errorf("unexpected symbol list %q", got)
		}
	}))
	t.Cleanup(server.Close)
	market := NewTwelveDataMarket(Config{TwelveDataAPIKey: "test-key", BaseURL: server.URL, MaxBatch: 2}, server.Client())

	res, err := market.LatestPrices(context.Background(), []string{"AAPL", "MSFT", "KO"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(symbols) != 2 {
		t.Errorf("expected 2 upstream calls, got %v", symbols)
	}
	for ticker, want := range map[string]string{"AAPL": "190.1", "MSFT": "410.55", "KO": "60.25"} {
		if res[ticker].Err != nil || res[ticker].Quote.Price.String() != want {
			t.Errorf("unexpected %s result: %+v", ticker, res[ticker])
		}
	}
}

func TestTwelveDataMarket_LatestPrices_FailedChunkIsPerTicker(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("symbol") == "KO" {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"AAPL": {"price": "190.10"}, "MSFT": {"price": "410.55"}}`))
	}))
	t.Cleanup(server.Close)
	market := NewTwelveDataMarket(Config{TwelveDataAPIKey: "test-key", BaseURL: server.URL, MaxBatch: 2}, server.Client())

	res, err := market.LatestPrices(context.Background(), []string{"AAPL", "MSFT", "KO"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res["AAPL"].Err != nil {
		t.Errorf("unexpected AAPL error: %v", res["AAPL"].Err)
	}
	if res["KO"].Err == nil {
		t.Error("expected KO to carry the chunk error")
	}
}
