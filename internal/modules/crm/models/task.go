package models

import (
	"time"

	"github.com/google/uuid"
)

// Task is a CRM task, typically created by the create_task workflow action
type Task struct {
	ID          uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	TenantID    uuid.UUID  `json:"tenant_id" gorm:"type:uuid;not null;index"`
	Subject     string     `json:"subject" gorm:"type:varchar(255);not null"`
	Description string     `json:"description" gorm:"type:text"`
	Status      string     `json:"status" gorm:"type:varchar(20);not null;default:'open'"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	AssignedTo  *uuid.UUID `json:"assigned_to,omitempty" gorm:"type:uuid;index"`
	RelatedType string     `json:"related_type,omitempty" gorm:"type:varchar(50)"`
	RelatedID   *uuid.UUID `json:"related_id,omitempty" gorm:"type:uuid;index"`
	CreatedAt   time.Time  `json:"created_at" gorm:"autoCreateTime;index:,sort:desc"`
	UpdatedAt   time.Time  `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName specifies the table name for Task
func (Task) TableName() string {
	return "crm_tasks"
}
