// Package handler はstrategyフィーチャーのHTTPハンドラーを提供します。
package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"finance_backend/internal/api"
	"finance_backend/internal/feature/strategy/domain"
	"finance_backend/internal/feature/strategy/domain/entity"
	"finance_backend/internal/feature/strategy/transport/http/dto"
	jwtmw "finance_backend/internal/platform/jwt"
)

// StrategyUsecase は推奨銘柄のユースケースインターフェースを定義します。
type StrategyUsecase interface {
	Recommend(ctx context.Context, userID uint, strategy string) (entity.Result, error)
}

type StrategyHandler struct {
	uc StrategyUsecase
}

func NewStrategyHandler(uc StrategyUsecase) *StrategyHandler {
	return &StrategyHandler{uc: uc}
}

// Recommendations は戦略に基づく推奨銘柄を返します。
//
// エンドポイント例:
// POST /api/strategy/recommendations {"strategy":"dividend"}
func (h *StrategyHandler) Recommendations(c *gin.Context) {
	userID, ok := jwtmw.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "invalid token"})
		return
	}

	var req dto.RecommendationReq
	// ボディなしは既定の戦略として扱う
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "invalid request body"})
		return
	}

	res, err := h.uc.Recommend(c.Request.Context(), userID, req.Strategy)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidStrategy) {
			c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "Invalid strategy"})
			return
		}
		slog.Error("failed to generate recommendations", "user_id", userID, "strategy", req.Strategy, "error", err)
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to generate recommendations"})
		return
	}
	c.JSON(http.StatusOK, dto.FromResult(res))
}
