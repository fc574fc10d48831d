package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/datatypes"

	"github.com/nimbuscrm/crm-backend/internal/core/workflow"
	"github.com/nimbuscrm/crm-backend/internal/modules/crm/models"
	"github.com/nimbuscrm/crm-backend/internal/modules/crm/repositories"
)

// WorkflowService handles workflow authoring and wires CRM events into the
// execution engine
type WorkflowService struct {
	workflowRepo  repositories.WorkflowRepo
	executionRepo repositories.ExecutionRepo
	records       workflow.RecordStore
	engine        *workflow.Engine
	scheduler     *workflow.Scheduler
}

// NewWorkflowService creates a new workflow service
func NewWorkflowService(
	workflowRepo repositories.WorkflowRepo,
	executionRepo repositories.ExecutionRepo,
	records workflow.RecordStore,
	engine *workflow.Engine,
	scheduler *workflow.Scheduler,
) *WorkflowService {
	return &WorkflowService{
		workflowRepo:  workflowRepo,
		executionRepo: executionRepo,
		records:       records,
		engine:        engine,
		scheduler:     scheduler,
	}
}

// Initialize loads scheduled workflows into the cron scheduler and starts it
func (s *WorkflowService) Initialize() error {
	workflows, err := s.workflowRepo.FindScheduledActive()
	if err != nil {
		return fmt.Errorf("failed to load scheduled workflows: %w", err)
	}

	for _, wf := range workflows {
		if err := s.scheduleWorkflow(&wf); err != nil {
			log.Warn().Err(err).
				Str("workflow_id", wf.ID.String()).
				Str("workflow", wf.Name).
				Msg("failed to schedule workflow")
		}
	}

	s.scheduler.Start()
	log.Info().Int("scheduled", len(workflows)).Msg("workflow service initialized")
	return nil
}

// Shutdown stops the scheduler
func (s *WorkflowService) Shutdown() {
	s.scheduler.Stop()
}

// CreateWorkflow persists a new workflow with its conditions and actions
func (s *WorkflowService) CreateWorkflow(tenantID uuid.UUID, req CreateWorkflowRequest) (*models.Workflow, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}

	wf := &models.Workflow{
		TenantID:         tenantID,
		Name:             req.Name,
		Description:      req.Description,
		TriggerType:      req.TriggerType,
		EntityType:       req.EntityType,
		Schedule:         req.Schedule,
		IsActive:         isActive,
		RunOncePerRecord: req.RunOncePerRecord,
		Conditions:       conditionRows(req.Conditions),
		Actions:          actionRows(req.Actions),
	}

	if err := s.workflowRepo.Create(wf); err != nil {
		return nil, fmt.Errorf("failed to create workflow: %w", err)
	}

	if wf.TriggerType == string(workflow.TriggerScheduled) && wf.IsActive {
		if err := s.scheduleWorkflow(wf); err != nil {
			log.Warn().Err(err).Str("workflow_id", wf.ID.String()).Msg("failed to schedule workflow")
		}
	}

	log.Info().
		Str("workflow_id", wf.ID.String()).
		Str("workflow", wf.Name).
		Msg("workflow created")
	return wf, nil
}

// ListWorkflows lists all workflows for a tenant
func (s *WorkflowService) ListWorkflows(tenantID uuid.UUID) ([]models.Workflow, error) {
	return s.workflowRepo.FindByTenantID(tenantID)
}

// GetWorkflow retrieves a workflow by ID
func (s *WorkflowService) GetWorkflow(workflowID uuid.UUID) (*models.Workflow, error) {
	return s.workflowRepo.FindByID(workflowID)
}

// UpdateWorkflow applies a partial update, replacing conditions and actions
// wholesale when provided
func (s *WorkflowService) UpdateWorkflow(workflowID uuid.UUID, req UpdateWorkflowRequest) (*models.Workflow, error) {
	wf, err := s.workflowRepo.FindByID(workflowID)
	if err != nil {
		return nil, fmt.Errorf("workflow not found: %w", err)
	}

	if req.Name != nil {
		wf.Name = *req.Name
	}
	if req.Description != nil {
		wf.Description = *req.Description
	}
	if req.TriggerType != nil {
		wf.TriggerType = *req.TriggerType
	}
	if req.EntityType != nil {
		wf.EntityType = *req.EntityType
	}
	if req.Schedule != nil {
		wf.Schedule = *req.Schedule
	}
	if req.RunOncePerRecord != nil {
		wf.RunOncePerRecord = *req.RunOncePerRecord
	}

	wasActive := wf.IsActive
	if req.IsActive != nil {
		wf.IsActive = *req.IsActive
	}

	if err := s.workflowRepo.Update(wf); err != nil {
		return nil, fmt.Errorf("failed to update workflow: %w", err)
	}

	if req.Conditions != nil {
		if err := s.workflowRepo.ReplaceConditions(workflowID, conditionRows(req.Conditions)); err != nil {
			return nil, fmt.Errorf("failed to update conditions: %w", err)
		}
	}
	if req.Actions != nil {
		if err := s.workflowRepo.ReplaceActions(workflowID, actionRows(req.Actions)); err != nil {
			return nil, fmt.Errorf("failed to update actions: %w", err)
		}
	}

	if wf.TriggerType == string(workflow.TriggerScheduled) {
		switch {
		case wf.IsActive && (!wasActive || req.Schedule != nil):
			if err := s.scheduleWorkflow(wf); err != nil {
				log.Warn().Err(err).Str("workflow_id", wf.ID.String()).Msg("failed to reschedule workflow")
			}
		case wasActive && !wf.IsActive:
			s.scheduler.Unschedule(wf.ID)
		}
	}

	return s.workflowRepo.FindByID(workflowID)
}

// DeleteWorkflow removes a workflow and unschedules it if needed
func (s *WorkflowService) DeleteWorkflow(workflowID uuid.UUID) error {
	wf, err := s.workflowRepo.FindByID(workflowID)
	if err != nil {
		return fmt.Errorf("workflow not found: %w", err)
	}

	if wf.TriggerType == string(workflow.TriggerScheduled) {
		s.scheduler.Unschedule(workflowID)
	}

	if err := s.workflowRepo.Delete(workflowID); err != nil {
		return fmt.Errorf("failed to delete workflow: %w", err)
	}

	log.Info().
		Str("workflow_id", workflowID.String()).
		Str("workflow", wf.Name).
		Msg("workflow deleted")
	return nil
}

// HandleEvent fans a CRM event out to matching workflows in the background.
// The triggering business operation must never fail because a workflow
// failed, so the caller gets nil once the trigger context is accepted.
func (s *WorkflowService) HandleEvent(trigger workflow.TriggerContext) error {
	if !workflow.IsKnownEntityType(trigger.EntityType) {
		return fmt.Errorf("unknown entity type: %s", trigger.EntityType)
	}
	if trigger.Trigger == "" {
		return fmt.Errorf("trigger is required")
	}

	go func() {
		if err := s.engine.HandleTrigger(context.Background(), trigger); err != nil {
			log.Error().Err(err).
				Str("trigger", string(trigger.Trigger)).
				Str("entity_type", string(trigger.EntityType)).
				Msg("trigger processing failed")
		}
	}()

	return nil
}

// ExecuteWorkflow runs one workflow synchronously against one record,
// loading the record snapshot when the request does not carry one
func (s *WorkflowService) ExecuteWorkflow(ctx context.Context, workflowID uuid.UUID, req ExecuteWorkflowRequest) error {
	wf, err := s.workflowRepo.FindByID(workflowID)
	if err != nil {
		return fmt.Errorf("workflow not found: %w", err)
	}
	if !wf.IsActive {
		return fmt.Errorf("workflow is not active")
	}

	record := req.Record
	if record == nil {
		record, err = s.records.Get(ctx, wf.TenantID, workflow.EntityType(wf.EntityType), req.EntityID)
		if err != nil {
			return fmt.Errorf("failed to load record: %w", err)
		}
	}

	trigger := workflow.TriggerContext{
		TenantID:   wf.TenantID,
		UserID:     req.UserID,
		EntityType: workflow.EntityType(wf.EntityType),
		EntityID:   req.EntityID,
		Trigger:    workflow.TriggerType(wf.TriggerType),
		Record:     record,
		Payload:    req.Payload,
	}

	return s.engine.ExecuteWorkflow(ctx, repositories.ToEngineWorkflow(*wf), trigger)
}

// GetExecutions retrieves execution history for a workflow
func (s *WorkflowService) GetExecutions(workflowID uuid.UUID, limit int) ([]models.WorkflowExecution, error) {
	return s.executionRepo.FindByWorkflowID(workflowID, limit)
}

// GetActionLogs retrieves the per-action audit trail for an execution
func (s *WorkflowService) GetActionLogs(executionID uuid.UUID) ([]models.WorkflowActionLog, error) {
	return s.executionRepo.FindActionLogs(executionID)
}

// scheduleWorkflow registers a scheduled-trigger workflow with the cron
// scheduler. The job refetches the workflow so edits take effect on the next
// tick.
func (s *WorkflowService) scheduleWorkflow(wf *models.Workflow) error {
	if wf.Schedule == "" {
		return fmt.Errorf("schedule is empty for workflow %s", wf.ID)
	}

	workflowID := wf.ID
	job := func() {
		fresh, err := s.workflowRepo.FindByID(workflowID)
		if err != nil {
			log.Error().Err(err).Str("workflow_id", workflowID.String()).Msg("failed to load scheduled workflow")
			return
		}
		if !fresh.IsActive {
			return
		}

		trigger := workflow.TriggerContext{
			TenantID:   fresh.TenantID,
			EntityType: workflow.EntityType(fresh.EntityType),
			Trigger:    workflow.TriggerScheduled,
			Record:     map[string]interface{}{},
			Payload:    map[string]interface{}{"triggered_by": "schedule", "schedule": fresh.Schedule},
		}

		if err := s.engine.ExecuteWorkflow(context.Background(), repositories.ToEngineWorkflow(*fresh), trigger); err != nil {
			log.Error().Err(err).Str("workflow_id", workflowID.String()).Msg("scheduled workflow execution failed")
		}
	}

	return s.scheduler.Schedule(wf.ID, wf.Schedule, job)
}

func conditionRows(inputs []ConditionInput) []models.WorkflowCondition {
	rows := make([]models.WorkflowCondition, 0, len(inputs))
	for _, in := range inputs {
		rows = append(rows, models.WorkflowCondition{
			Field:           in.Field,
			Operator:        in.Operator,
			Value:           datatypes.JSON(marshalValue(in.Value)),
			ValueSet:        datatypes.JSON(marshalValue(in.Values)),
			ConditionGroup:  in.ConditionGroup,
			Position:        in.Position,
			LogicalOperator: in.LogicalOperator,
		})
	}
	return rows
}

func actionRows(inputs []ActionInput) []models.WorkflowAction {
	rows := make([]models.WorkflowAction, 0, len(inputs))
	for _, in := range inputs {
		rows = append(rows, models.WorkflowAction{
			ActionType:   in.ActionType,
			Config:       datatypes.JSON(marshalValue(in.Config)),
			DelayMinutes: in.DelayMinutes,
			StopOnError:  in.StopOnError,
			Position:     in.Position,
		})
	}
	return rows
}
