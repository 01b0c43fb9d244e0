// Package api はフィーチャー間で共有するHTTPレスポンスの型を定義します。
package api

// ErrorResponse はエラー時のレスポンスボディです。
type ErrorResponse struct {
	Error string `json:"error"`
}

// MessageResponse は処理結果のメッセージのみを返すレスポンスボディです。
type MessageResponse struct {
	Message string `json:"message"`
}

// StatusMessageResponse はステータス付きのメッセージレスポンスです。
type StatusMessageResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// TokenResponse はログイン成功時のレスポンスボディです。
type TokenResponse struct {
	Token string `json:"token"`
}
