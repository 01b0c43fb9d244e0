// Package handler はportfolioフィーチャーのHTTPハンドラーを提供します。
package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"finance_backend/internal/api"
	mddomain "finance_backend/internal/feature/marketdata/domain"
	"finance_backend/internal/feature/portfolio/domain"
	"finance_backend/internal/feature/portfolio/domain/entity"
	"finance_backend/internal/feature/portfolio/transport/http/dto"
	jwtmw "finance_backend/internal/platform/jwt"
)

// PortfolioUsecase はポートフォリオ操作のユースケースインターフェースを定義します。
// Goの慣例に従い、インターフェースは利用者（handler）側で定義します。
type PortfolioUsecase interface {
	AddHolding(ctx context.Context, userID uint, ticker string, shares, price decimal.Decimal) error
	Value(ctx context.Context, userID uint) (entity.Valuation, error)
}

// PortfolioHandler はポートフォリオのHTTPリクエストを処理します。
type PortfolioHandler struct {
	uc PortfolioUsecase
}

// NewPortfolioHandler は指定されたusecaseでPortfolioHandlerの新しいインスタンスを生成します。
func NewPortfolioHandler(uc PortfolioUsecase) *PortfolioHandler {
	return &PortfolioHandler{uc: uc}
}

// Add はポートフォリオに株式を追加します。
//
// エンドポイント例:
// POST /api/portfolio/add {"ticker":"AAPL","shares":10,"price":150}
func (h *PortfolioHandler) Add(c *gin.Context) {
	userID, ok := jwtmw.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "invalid token"})
		return
	}

	var req dto.AddHoldingReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: domain.ErrInvalidHolding.Error()})
		return
	}

	if err := h.uc.AddHolding(c.Request.Context(), userID, req.Ticker, *req.Shares, *req.Price); err != nil {
		if errors.Is(err, domain.ErrInvalidHolding) {
			c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
			return
		}
		slog.Error("failed to add holding", "user_id", userID, "ticker", req.Ticker, "error", err)
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "error adding stock to portfolio"})
		return
	}

	c.JSON(http.StatusOK, api.MessageResponse{
		Message: fmt.Sprintf("%s shares of %s added to portfolio at price %s.", req.Shares, mddomain.NormalizeTicker(req.Ticker), req.Price),
	})
}

// Value はポートフォリオの現在の評価額を返します。
//
// エンドポイント例:
// GET /api/portfolio/value
func (h *PortfolioHandler) Value(c *gin.Context) {
	userID, ok := jwtmw.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "invalid token"})
		return
	}

	v, err := h.uc.Value(c.Request.Context(), userID)
	if err != nil {
		slog.Error("failed to value portfolio", "user_id", userID, "error", err)
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "failed to value portfolio"})
		return
	}

	c.JSON(http.StatusOK, dto.FromValuation(v))
}
