package models

import (
	"time"

	"github.com/google/uuid"
)

// Notification is an in-app notification row. Delivery to the user is the
// notification subsystem's concern; the workflow engine only inserts rows.
type Notification struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	TenantID  uuid.UUID `json:"tenant_id" gorm:"type:uuid;not null;index"`
	UserID    uuid.UUID `json:"user_id" gorm:"type:uuid;not null;index"`
	Title     string    `json:"title" gorm:"type:varchar(255);not null"`
	Body      string    `json:"body" gorm:"type:text"`
	IsRead    bool      `json:"is_read" gorm:"default:false;index"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime;index:,sort:desc"`
}

// TableName specifies the table name for Notification
func (Notification) TableName() string {
	return "crm_notifications"
}
