package repositories

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/nimbuscrm/crm-backend/internal/core/workflow"
	"github.com/nimbuscrm/crm-backend/internal/modules/crm/models"
)

// WorkflowRepo covers workflow authoring CRUD plus the engine's workflow
// store contract (active-workflow lookup and run-once markers)
type WorkflowRepo interface {
	Create(wf *models.Workflow) error
	FindByID(id uuid.UUID) (*models.Workflow, error)
	FindByTenantID(tenantID uuid.UUID) ([]models.Workflow, error)
	FindScheduledActive() ([]models.Workflow, error)
	Update(wf *models.Workflow) error
	ReplaceConditions(workflowID uuid.UUID, conditions []models.WorkflowCondition) error
	ReplaceActions(workflowID uuid.UUID, actions []models.WorkflowAction) error
	Delete(id uuid.UUID) error

	ActiveWorkflows(ctx context.Context, trigger workflow.TriggerType, entityType workflow.EntityType) ([]workflow.Workflow, error)
	HasRunForRecord(ctx context.Context, workflowID uuid.UUID, entityType workflow.EntityType, entityID uuid.UUID) (bool, error)
	MarkRunForRecord(ctx context.Context, workflowID uuid.UUID, entityType workflow.EntityType, entityID uuid.UUID) error
}

type workflowRepo struct {
	db *gorm.DB
}

// NewWorkflowRepo creates a new workflow repository
func NewWorkflowRepo(db *gorm.DB) WorkflowRepo {
	return &workflowRepo{db: db}
}

func (r *workflowRepo) Create(wf *models.Workflow) error {
	return r.db.Create(wf).Error
}

func (r *workflowRepo) FindByID(id uuid.UUID) (*models.Workflow, error) {
	var wf models.Workflow
	err := r.db.
		Preload("Conditions", func(db *gorm.DB) *gorm.DB { return db.Order("condition_group, position") }).
		Preload("Actions", func(db *gorm.DB) *gorm.DB { return db.Order("position") }).
		Where("id = ?", id).First(&wf).Error
	if err != nil {
		return nil, err
	}
	return &wf, nil
}

func (r *workflowRepo) FindByTenantID(tenantID uuid.UUID) ([]models.Workflow, error) {
	var workflows []models.Workflow
	err := r.db.
		Preload("Conditions").
		Preload("Actions").
		Where("tenant_id = ?", tenantID).
		Order("created_at DESC").
		Find(&workflows).Error
	return workflows, err
}

func (r *workflowRepo) FindScheduledActive() ([]models.Workflow, error) {
	var workflows []models.Workflow
	err := r.db.
		Preload("Conditions").
		Preload("Actions").
		Where("trigger_type = ? AND is_active = ?", string(workflow.TriggerScheduled), true).
		Find(&workflows).Error
	return workflows, err
}

func (r *workflowRepo) Update(wf *models.Workflow) error {
	return r.db.Omit("Conditions", "Actions").Save(wf).Error
}

func (r *workflowRepo) ReplaceConditions(workflowID uuid.UUID, conditions []models.WorkflowCondition) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("workflow_id = ?", workflowID).Delete(&models.WorkflowCondition{}).Error; err != nil {
			return err
		}
		if len(conditions) == 0 {
			return nil
		}
		for i := range conditions {
			conditions[i].WorkflowID = workflowID
		}
		return tx.Create(&conditions).Error
	})
}

func (r *workflowRepo) ReplaceActions(workflowID uuid.UUID, actions []models.WorkflowAction) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("workflow_id = ?", workflowID).Delete(&models.WorkflowAction{}).Error; err != nil {
			return err
		}
		if len(actions) == 0 {
			return nil
		}
		for i := range actions {
			actions[i].WorkflowID = workflowID
		}
		return tx.Create(&actions).Error
	})
}

func (r *workflowRepo) Delete(id uuid.UUID) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("workflow_id = ?", id).Delete(&models.WorkflowCondition{}).Error; err != nil {
			return err
		}
		if err := tx.Where("workflow_id = ?", id).Delete(&models.WorkflowAction{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&models.Workflow{}).Error
	})
}

func (r *workflowRepo) ActiveWorkflows(ctx context.Context, trigger workflow.TriggerType, entityType workflow.EntityType) ([]workflow.Workflow, error) {
	var rows []models.Workflow
	err := r.db.WithContext(ctx).
		Preload("Conditions").
		Preload("Actions").
		Where("trigger_type = ? AND entity_type = ? AND is_active = ?", string(trigger), string(entityType), true).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	workflows := make([]workflow.Workflow, 0, len(rows))
	for _, row := range rows {
		workflows = append(workflows, ToEngineWorkflow(row))
	}
	return workflows, nil
}

func (r *workflowRepo) HasRunForRecord(ctx context.Context, workflowID uuid.UUID, entityType workflow.EntityType, entityID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.WorkflowRunMarker{}).
		Where("workflow_id = ? AND entity_type = ? AND entity_id = ?", workflowID, string(entityType), entityID).
		Count(&count).Error
	return count > 0, err
}

// MarkRunForRecord relies on the composite unique index: a conflicting insert
// from a concurrent run becomes a no-op, so the marker check-then-write race
// converges on a single run instead of an error.
func (r *workflowRepo) MarkRunForRecord(ctx context.Context, workflowID uuid.UUID, entityType workflow.EntityType, entityID uuid.UUID) error {
	marker := models.WorkflowRunMarker{
		WorkflowID: workflowID,
		EntityType: string(entityType),
		EntityID:   entityID,
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&marker).Error
}
