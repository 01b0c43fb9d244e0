package dto

import (
	"time"

	"finance_backend/internal/feature/notifications/domain/entity"
	"finance_backend/internal/feature/notifications/usecase"
)

// NotificationRes は通知1件のレスポンスです。
type NotificationRes struct {
	ID        uint      `json:"id"`
	UserID    uint      `json:"user_id"`
	Ticker    string    `json:"ticker"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// GenerateRes は通知生成のレスポンスです。
type GenerateRes struct {
	Status  string   `json:"status"`
	Message string   `json:"message"`
	Created int      `json:"created"`
	Failed  []string `json:"failed"`
}

func FromNotifications(ns []entity.Notification) []NotificationRes {
	out := make([]NotificationRes, 0, len(ns))
	for _, n := range ns {
		out = append(out, NotificationRes{
			ID:        n.ID,
			UserID:    n.UserID,
			Ticker:    n.Ticker,
			Message:   n.Message,
			Timestamp: n.Timestamp.UTC(),
		})
	}
	return out
}

func FromGenerateResult(r usecase.GenerateResult) GenerateRes {
	failed := r.Failed
	if failed == nil {
		failed = []string{}
	}
	return GenerateRes{
		Status:  "success",
		Message: "Notifications generated.",
		Created: len(r.Created),
		Failed:  failed,
	}
}
