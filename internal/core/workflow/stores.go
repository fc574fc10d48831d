package workflow

import (
	"context"

	"github.com/google/uuid"
)

// WorkflowStore provides workflow definitions and run-once markers.
// MarkRunForRecord must treat a duplicate (workflow, entity type, entity id)
// insert as already-run, not as an error, so concurrent trigger deliveries
// converge on a single run.
type WorkflowStore interface {
	ActiveWorkflows(ctx context.Context, trigger TriggerType, entityType EntityType) ([]Workflow, error)
	HasRunForRecord(ctx context.Context, workflowID uuid.UUID, entityType EntityType, entityID uuid.UUID) (bool, error)
	MarkRunForRecord(ctx context.Context, workflowID uuid.UUID, entityType EntityType, entityID uuid.UUID) error
}

// ExecutionStore persists the audit trail: executions and per-action logs
type ExecutionStore interface {
	CreateExecution(ctx context.Context, execution *Execution) error
	UpdateExecution(ctx context.Context, execution *Execution) error
	CreateActionLog(ctx context.Context, log *ActionLog) error
	UpdateActionLog(ctx context.Context, log *ActionLog) error
}

// RecordStore reads and mutates CRM records, tenant scoped, per entity type
type RecordStore interface {
	Get(ctx context.Context, tenantID uuid.UUID, entityType EntityType, id uuid.UUID) (map[string]interface{}, error)
	UpdateField(ctx context.Context, tenantID uuid.UUID, entityType EntityType, id uuid.UUID, field string, value interface{}) error
	Insert(ctx context.Context, tenantID uuid.UUID, entityType EntityType, fields map[string]interface{}) (uuid.UUID, error)
}

// TaskStore inserts CRM tasks. CreateTask fills in the task ID.
type TaskStore interface {
	CreateTask(ctx context.Context, task *Task) error
}

// NotificationStore inserts in-app notification rows
type NotificationStore interface {
	CreateNotification(ctx context.Context, notification *Notification) error
}

// UserStore resolves assignment candidates
type UserStore interface {
	TeamMemberIDs(ctx context.Context, tenantID uuid.UUID, teamID uuid.UUID) ([]uuid.UUID, error)
}

// DelayQueue persists delayed actions for later resumption by the worker
type DelayQueue interface {
	EnqueueDelayedAction(ctx context.Context, delayed *DelayedAction) error
}

// Stores bundles every external collaborator the engine needs
type Stores struct {
	Workflows     WorkflowStore
	Executions    ExecutionStore
	Records       RecordStore
	Tasks         TaskStore
	Notifications NotificationStore
	Users         UserStore
	Delays        DelayQueue
}
