package repositories

import (
	"context"

	"gorm.io/gorm"

	"github.com/nimbuscrm/crm-backend/internal/core/workflow"
	"github.com/nimbuscrm/crm-backend/internal/modules/crm/models"
)

// NotificationRepo implements workflow.NotificationStore
type NotificationRepo struct {
	db *gorm.DB
}

// NewNotificationRepo creates a new notification repository
func NewNotificationRepo(db *gorm.DB) *NotificationRepo {
	return &NotificationRepo{db: db}
}

func (r *NotificationRepo) CreateNotification(ctx context.Context, notification *workflow.Notification) error {
	row := models.Notification{
		TenantID: notification.TenantID,
		UserID:   notification.UserID,
		Title:    notification.Title,
		Body:     notification.Body,
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return err
	}
	notification.ID = row.ID
	return nil
}
