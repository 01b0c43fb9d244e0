// Package router はアプリケーションのHTTPルーティングを定義します。
package router

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"finance_backend/internal/app/di"
	platformhandler "finance_backend/internal/platform/http/handler"
	jwtmw "finance_backend/internal/platform/jwt"
)

// NewRouter はすべてのエンドポイントを登録したGinエンジンを返します。
func NewRouter(h di.Handlers, health *platformhandler.HealthHandler, jwtSecret string) *gin.Engine {
	r := gin.Default()
	// ブラウザからの認証付きリクエスト（Authorization ヘッダー）を許可する
	corsCfg := cors.DefaultConfig()
	corsCfg.AllowAllOrigins = true
	corsCfg.AddAllowHeaders("Authorization")
	r.Use(cors.New(corsCfg))

	// 認証不要
	// 導通確認用
	r.GET("/healthz", health.Health)
	r.HEAD("/healthz", health.Health)

	api := r.Group("/api")
	// 新規ユーザー登録
	api.POST("/register", h.Auth.Register)
	// ログイン（JWT 発行）
	api.POST("/login", h.Auth.Login)

	// 認証必須のルート
	auth := api.Group("/")
	auth.Use(jwtmw.AuthRequired(jwtSecret))
	{
		auth.GET("/stock/history/:ticker", h.Stock.History)
		auth.GET("/stock/quote/:ticker", h.Stock.Quote)

		auth.POST("/portfolio/add", h.Portfolio.Add)
		auth.GET("/portfolio/value", h.Portfolio.Value)

		auth.GET("/notifications", h.Notifications.List)
		auth.POST("/notifications/generate", h.Notifications.Generate)

		auth.POST("/strategy/recommendations", h.Strategy.Recommendations)
	}

	return r
}
