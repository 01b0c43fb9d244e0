package router

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"finance_backend/internal/app/di"
	authhandler "finance_backend/internal/feature/auth/transport/handler"
	mdhandler "finance_backend/internal/feature/marketdata/transport/handler"
	notificationhandler "finance_backend/internal/feature/notifications/transport/handler"
	portfoliohandler "finance_backend/internal/feature/portfolio/transport/handler"
	strategyhandler "finance_backend/internal/feature/strategy/transport/handler"
	platformhandler "finance_backend/internal/platform/http/handler"
)

func newTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := di.Handlers{
		Auth:          authhandler.NewAuthHandler(nil),
		Stock:         mdhandler.NewStockHandler(nil),
		Portfolio:     portfoliohandler.NewPortfolioHandler(nil),
		Notifications: notificationhandler.NewNotificationHandler(nil),
		Strategy:      strategyhandler.NewStrategyHandler(nil),
	}
	return NewRouter(h, platformhandler.NewHealthHandler(nil), "test-secret")
}

func TestRouter_Healthz(t *testing.T) {
	r := newTestRouter()

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouter_ProtectedRoutesRequireToken(t *testing.T) {
	r := newTestRouter()

	routes := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/stock/history/AAPL"},
		{http.MethodGet, "/api/stock/quote/AAPL"},
		{http.MethodPost, "/api/portfolio/add"},
		{http.MethodGet, "/api/portfolio/value"},
		{http.MethodGet, "/api/notifications"},
		{http.MethodPost, "/api/notifications/generate"},
		{http.MethodPost, "/api/strategy/recommendations"},
	}
	for _, rt := range routes {
		t.Run(rt.method+" "+rt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(rt.method, rt.path, nil))

			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.JSONEq(t, `{"error":"token is missing"}`, w.Body.String())
		})
	}
}

func TestRouter_PublicAuthRoutes(t *testing.T) {
	r := newTestRouter()

	for _, path := range []string{"/api/register", "/api/login"} {
		t.Run(path, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(`{}`))
			req.Header.Set("Content-Type", "application/json")
			r.ServeHTTP(w, req)

			// 必須項目の欠落で400になる（認証は要求されない）
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestRouter_CORSPreflightAllowsAuthorization(t *testing.T) {
	r := newTestRouter()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, "/api/portfolio/value", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	req.Header.Set("Access-Control-Request-Headers", "authorization")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, strings.ToLower(w.Header().Get("Access-Control-Allow-Headers")), "authorization")
}
