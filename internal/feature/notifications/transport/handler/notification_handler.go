// Package handler はnotificationsフィーチャーのHTTPハンドラーを提供します。
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"finance_backend/internal/api"
	"finance_backend/internal/feature/notifications/domain/entity"
	"finance_backend/internal/feature/notifications/transport/http/dto"
	"finance_backend/internal/feature/notifications/usecase"
	jwtmw "finance_backend/internal/platform/jwt"
)

// NotificationUsecase は通知のユースケースインターフェースを定義します。
type NotificationUsecase interface {
	List(ctx context.Context, userID uint) ([]entity.Notification, error)
	Generate(ctx context.Context, userID uint) (usecase.GenerateResult, error)
}

type NotificationHandler struct {
	uc NotificationUsecase
}

func NewNotificationHandler(uc NotificationUsecase) *NotificationHandler {
	return &NotificationHandler{uc: uc}
}

// List はユーザーの通知を新しい順に返します。
//
// エンドポイント例:
// GET /api/notifications
func (h *NotificationHandler) List(c *gin.Context) {
	userID, ok := jwtmw.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "invalid token"})
		return
	}

	ns, err := h.uc.List(c.Request.Context(), userID)
	if err != nil {
		slog.Error("failed to list notifications", "user_id", userID, "error", err)
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "failed to fetch notifications"})
		return
	}
	c.JSON(http.StatusOK, dto.FromNotifications(ns))
}

// Generate は保有銘柄の通知を生成します。
//
// エンドポイント例:
// POST /api/notifications/generate
func (h *NotificationHandler) Generate(c *gin.Context) {
	userID, ok := jwtmw.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "invalid token"})
		return
	}

	res, err := h.uc.Generate(c.Request.Context(), userID)
	if err != nil {
		slog.Error("failed to generate notifications", "user_id", userID, "error", err)
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "failed to generate notifications"})
		return
	}
	c.JSON(http.StatusOK, dto.FromGenerateResult(res))
}
