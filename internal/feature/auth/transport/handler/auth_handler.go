// Package handler はauthフィーチャーのHTTPハンドラーを提供します。
package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"finance_backend/internal/api"
	"finance_backend/internal/feature/auth/domain"
	"finance_backend/internal/feature/auth/transport/http/dto"
)

// AuthUsecase は認証操作のユースケースを定義します。
// Goの慣例に従い、インターフェースはプロバイダー（usecase）ではなくコンシューマー（handler）が定義します。
type AuthUsecase interface {
	// Register は新規ユーザーを登録します。
	Register(ctx context.Context, username, email, password string) error
	// Login はユーザーを認証し、成功時にJWTトークンを返します。
	Login(ctx context.Context, username, password string) (string, error)
}

// AuthHandler は認証操作のHTTPリクエストを処理します。
type AuthHandler struct {
	auth AuthUsecase
}

// NewAuthHandler はAuthHandlerの新しいインスタンスを生成します。
func NewAuthHandler(auth AuthUsecase) *AuthHandler {
	return &AuthHandler{auth: auth}
}

func registerError(msg string) api.StatusMessageResponse {
	return api.StatusMessageResponse{Status: "error", Message: msg}
}

// Register はユーザー登録APIエンドポイントを処理します。
// - 必須項目の欠落やメール形式の誤りは400
// - ユーザー名またはメールアドレスの重複は400
// - 成功時は201
func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.RegisterReq
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Warn("registration failed: invalid request", "error", err, "remote_addr", c.ClientIP())
		c.JSON(http.StatusBadRequest, registerError(bindMessage(err)))
		return
	}

	if err := h.auth.Register(c.Request.Context(), req.Username, req.Email, req.Password); err != nil {
		switch {
		case errors.Is(err, domain.ErrUserAlreadyExists):
			slog.Warn("registration failed: duplicate user", "username", req.Username, "remote_addr", c.ClientIP())
			c.JSON(http.StatusBadRequest, registerError("Username or email already exists."))
		case errors.Is(err, domain.ErrWeakPassword):
			c.JSON(http.StatusBadRequest, registerError("Password must be at least 8 characters long."))
		default:
			slog.Error("registration failed", "username", req.Username, "error", err)
			c.JSON(http.StatusInternalServerError, registerError("Internal server error."))
		}
		return
	}

	slog.Info("user registered", "username", req.Username, "remote_addr", c.ClientIP())
	c.JSON(http.StatusCreated, api.StatusMessageResponse{Status: "success", Message: "User registered successfully!"})
}

// Login はユーザーログインAPIエンドポイントを処理します。
// - 必須項目の欠落は400
// - 認証失敗時は401（ユーザー列挙を防ぐため理由は区別しない）
// - 成功時はJWTトークン付きで200
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginReq
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Warn("login failed: missing fields", "error", err, "remote_addr", c.ClientIP())
		c.JSON(http.StatusBadRequest, api.MessageResponse{Message: "Username and password are required."})
		return
	}

	token, err := h.auth.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			slog.Warn("login failed: invalid credentials", "username", req.Username, "remote_addr", c.ClientIP())
			c.JSON(http.StatusUnauthorized, api.MessageResponse{Message: "Invalid credentials."})
			return
		}
		slog.Error("login failed", "username", req.Username, "error", err)
		c.JSON(http.StatusInternalServerError, api.MessageResponse{Message: "Internal server error."})
		return
	}

	slog.Info("user login successful", "username", req.Username, "remote_addr", c.ClientIP())
	c.JSON(http.StatusOK, api.TokenResponse{Token: token})
}

// bindMessage はバインドエラーを利用者向けのメッセージに変換します。
func bindMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			if fe.Tag() == "email" {
				return "Invalid email address."
			}
		}
	}
	return "All fields are required."
}
