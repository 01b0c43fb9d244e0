package api

import (
	"errors"
	"net/http"

	"finance_backend/internal/feature/marketdata/domain"
)

// MarketErrorStatus はマーケットデータのエラー種別をHTTPステータスに変換します。
func MarketErrorStatus(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrTimeout):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}
