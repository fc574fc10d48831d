package repositories

import (
	"context"

	"gorm.io/gorm"

	"github.com/nimbuscrm/crm-backend/internal/core/workflow"
	"github.com/nimbuscrm/crm-backend/internal/modules/crm/models"
)

// TaskRepo implements workflow.TaskStore
type TaskRepo struct {
	db *gorm.DB
}

// NewTaskRepo creates a new task repository
func NewTaskRepo(db *gorm.DB) *TaskRepo {
	return &TaskRepo{db: db}
}

func (r *TaskRepo) CreateTask(ctx context.Context, task *workflow.Task) error {
	dueDate := task.DueDate
	row := models.Task{
		TenantID:    task.TenantID,
		Subject:     task.Subject,
		Description: task.Description,
		Status:      "open",
		DueDate:     &dueDate,
		AssignedTo:  task.AssignedTo,
		RelatedType: string(task.RelatedType),
		RelatedID:   &task.RelatedID,
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return err
	}
	task.ID = row.ID
	return nil
}
