package adapters

import (
	"context"
	"time"

	"gorm.io/gorm"

	"finance_backend/internal/feature/notifications/domain/entity"
	"finance_backend/internal/feature/notifications/usecase"
)

type notificationGorm struct {
	db *gorm.DB
}

var _ usecase.NotificationRepository = (*notificationGorm)(nil)

func NewNotificationRepository(db *gorm.DB) *notificationGorm {
	return &notificationGorm{db: db}
}

type NotificationModel struct {
	ID        uint      `gorm:"primaryKey"`
	UserID    uint      `gorm:"not null;index:notification_user_ts,priority:1"`
	Ticker    string    `gorm:"size:32;not null"`
	Message   string    `gorm:"type:text;not null"`
	Timestamp time.Time `gorm:"not null;index:notification_user_ts,priority:2"`
}

func (NotificationModel) TableName() string {
	return "notifications"
}

// CreateBatch saves all notifications in a single insert.
func (r *notificationGorm) CreateBatch(ctx context.Context, ns []entity.Notification) error {
	if len(ns) == 0 {
		return nil
	}
	rows := make([]NotificationModel, 0, len(ns))
	for _, n := range ns {
		rows = append(rows, NotificationModel{
			UserID:    n.UserID,
			Ticker:    n.Ticker,
			Message:   n.Message,
			Timestamp: n.Timestamp,
		})
	}
	return r.db.WithContext(ctx).Create(&rows).Error
}

// ListByUser returns the user's notifications, newest first.
func (r *notificationGorm) ListByUser(ctx context.Context, userID uint) ([]entity.Notification, error) {
	var rows []NotificationModel
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("timestamp DESC").
		Order("id DESC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]entity.Notification, 0, len(rows))
	for _, m := range rows {
		out = append(out, entity.Notification{
			ID:        m.ID,
			UserID:    m.UserID,
			Ticker:    m.Ticker,
			Message:   m.Message,
			Timestamp: m.Timestamp,
		})
	}
	return out, nil
}
