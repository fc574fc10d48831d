package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/nimbuscrm/crm-backend/internal/core/workflow"
	"github.com/nimbuscrm/crm-backend/internal/modules/crm/models"
)

// ExecutionRepo persists the engine's audit trail and serves execution
// history queries for the API
type ExecutionRepo interface {
	workflow.ExecutionStore
	FindByWorkflowID(workflowID uuid.UUID, limit int) ([]models.WorkflowExecution, error)
	FindActionLogs(executionID uuid.UUID) ([]models.WorkflowActionLog, error)
}

type executionRepo struct {
	db *gorm.DB
}

// NewExecutionRepo creates a new execution repository
func NewExecutionRepo(db *gorm.DB) ExecutionRepo {
	return &executionRepo{db: db}
}

func (r *executionRepo) CreateExecution(ctx context.Context, execution *workflow.Execution) error {
	row := models.WorkflowExecution{
		WorkflowID:     execution.WorkflowID,
		TenantID:       execution.TenantID,
		EntityType:     string(execution.EntityType),
		EntityID:       execution.EntityID,
		TriggerEvent:   execution.TriggerEvent,
		TriggerPayload: datatypes.JSON(marshalJSON(execution.TriggerPayload)),
		Status:         string(execution.Status),
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return err
	}
	execution.ID = row.ID
	return nil
}

func (r *executionRepo) UpdateExecution(ctx context.Context, execution *workflow.Execution) error {
	updates := map[string]interface{}{
		"status":        string(execution.Status),
		"error_message": execution.ErrorMessage,
	}
	if !execution.StartedAt.IsZero() {
		updates["started_at"] = execution.StartedAt
	}
	if execution.CompletedAt != nil {
		updates["completed_at"] = *execution.CompletedAt
	}
	return r.db.WithContext(ctx).Model(&models.WorkflowExecution{}).
		Where("id = ?", execution.ID).
		Updates(updates).Error
}

func (r *executionRepo) CreateActionLog(ctx context.Context, log *workflow.ActionLog) error {
	var startedAt *time.Time
	if !log.StartedAt.IsZero() {
		startedAt = &log.StartedAt
	}
	row := models.WorkflowActionLog{
		ExecutionID: log.ExecutionID,
		ActionID:    log.ActionID,
		ActionType:  string(log.ActionType),
		Status:      string(log.Status),
		Input:       datatypes.JSON(marshalJSON(log.Input)),
		StartedAt:   startedAt,
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return err
	}
	log.ID = row.ID
	return nil
}

func (r *executionRepo) UpdateActionLog(ctx context.Context, log *workflow.ActionLog) error {
	updates := map[string]interface{}{
		"status":        string(log.Status),
		"error_message": log.ErrorMessage,
	}
	if log.Output != nil {
		updates["output"] = datatypes.JSON(marshalJSON(log.Output))
	}
	if log.CompletedAt != nil {
		updates["completed_at"] = *log.CompletedAt
	}
	return r.db.WithContext(ctx).Model(&models.WorkflowActionLog{}).
		Where("id = ?", log.ID).
		Updates(updates).Error
}

func (r *executionRepo) FindByWorkflowID(workflowID uuid.UUID, limit int) ([]models.WorkflowExecution, error) {
	var executions []models.WorkflowExecution
	query := r.db.Where("workflow_id = ?", workflowID).Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&executions).Error
	return executions, err
}

func (r *executionRepo) FindActionLogs(executionID uuid.UUID) ([]models.WorkflowActionLog, error) {
	var logs []models.WorkflowActionLog
	err := r.db.Where("execution_id = ?", executionID).Order("started_at ASC").Find(&logs).Error
	return logs, err
}
