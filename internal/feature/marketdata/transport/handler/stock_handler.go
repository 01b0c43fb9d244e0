// Package handler はmarketdataフィーチャーのHTTPハンドラーを提供します。
package handler

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"finance_backend/internal/api"
	"finance_backend/internal/feature/marketdata/domain/entity"
	"finance_backend/internal/feature/marketdata/transport/http/dto"
)

// PriceReader は価格キャッシュの読み取りインターフェースです。
// Goの慣例に従い、インターフェースは利用者（handler）側で定義します。
type PriceReader interface {
	Get(ctx context.Context, ticker string) (entity.Quote, error)
	History(ctx context.Context, ticker string) (entity.HistoricalSeries, error)
}

// StockHandler は株価データのHTTPリクエストを処理します。
type StockHandler struct {
	prices PriceReader
}

// NewStockHandler は指定された価格キャッシュでStockHandlerの新しいインスタンスを生成します。
func NewStockHandler(prices PriceReader) *StockHandler {
	return &StockHandler{prices: prices}
}

// History は銘柄の約6か月分の日足終値を返します。
//
// エンドポイント例:
// GET /api/stock/history/AAPL
func (h *StockHandler) History(c *gin.Context) {
	ticker := c.Param("ticker")

	series, err := h.prices.History(c.Request.Context(), ticker)
	if err != nil {
		slog.Warn("failed to fetch history", "ticker", ticker, "error", err)
		c.JSON(api.MarketErrorStatus(err), api.ErrorResponse{
			Error: fmt.Sprintf("failed to fetch historical data for %s: %v", ticker, err),
		})
		return
	}

	c.JSON(http.StatusOK, dto.FromSeries(series))
}

// Quote は銘柄の最新価格を返します。
//
// エンドポイント例:
// GET /api/stock/quote/AAPL
func (h *StockHandler) Quote(c *gin.Context) {
	ticker := c.Param("ticker")

	q, err := h.prices.Get(c.Request.Context(), ticker)
	if err != nil {
		slog.Warn("failed to fetch quote", "ticker", ticker, "error", err)
		c.JSON(api.MarketErrorStatus(err), api.ErrorResponse{
			Error: fmt.Sprintf("failed to fetch price for %s: %v", ticker, err),
		})
		return
	}

	c.JSON(http.StatusOK, dto.FromQuote(q))
}
