package workflow

import (
	"time"

	"github.com/google/uuid"
)

// TriggerType identifies what kind of CRM event fires a workflow
type TriggerType string

const (
	TriggerOnCreate  TriggerType = "on_create"
	TriggerOnUpdate  TriggerType = "on_update"
	TriggerScheduled TriggerType = "scheduled"
)

// EntityType identifies which CRM record table a workflow targets
type EntityType string

const (
	EntityLead    EntityType = "lead"
	EntityContact EntityType = "contact"
	EntityDeal    EntityType = "deal"
	EntityAccount EntityType = "account"
)

// KnownEntityTypes lists every entity type the engine can operate on
var KnownEntityTypes = []EntityType{EntityLead, EntityContact, EntityDeal, EntityAccount}

// IsKnownEntityType reports whether the entity type maps to a CRM record table
func IsKnownEntityType(e EntityType) bool {
	for _, known := range KnownEntityTypes {
		if e == known {
			return true
		}
	}
	return false
}

// Operator is a condition comparison operator
type Operator string

const (
	OpEquals      Operator = "equals"
	OpNotEquals   Operator = "not_equals"
	OpContains    Operator = "contains"
	OpNotContains Operator = "not_contains"
	OpGreaterThan Operator = "greater_than"
	OpLessThan    Operator = "less_than"
	OpIsNull      Operator = "is_null"
	OpIsNotNull   Operator = "is_not_null"
	OpIn          Operator = "in"
	OpNotIn       Operator = "not_in"
)

// ActionType identifies which handler executes an action
type ActionType string

const (
	ActionCreateTask       ActionType = "create_task"
	ActionUpdateField      ActionType = "update_field"
	ActionAssignOwner      ActionType = "assign_owner"
	ActionSendNotification ActionType = "send_notification"
	ActionWebhookCall      ActionType = "webhook_call"
	ActionSendEmail        ActionType = "send_email"
	ActionCreateRecord     ActionType = "create_record"
)

// Status is the execution state machine for executions and action logs.
// Transitions are monotonic: pending -> running -> completed|failed.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// TriggerContext is the immutable snapshot of tenant, record and event
// metadata passed into the engine for one triggering event.
type TriggerContext struct {
	TenantID   uuid.UUID              `json:"tenant_id"`
	UserID     *uuid.UUID             `json:"user_id,omitempty"`
	EntityType EntityType             `json:"entity_type"`
	EntityID   uuid.UUID              `json:"entity_id"`
	Trigger    TriggerType            `json:"trigger"`
	Record     map[string]interface{} `json:"record"`
	Payload    map[string]interface{} `json:"payload,omitempty"`
}

// Condition is a single predicate against one record field
type Condition struct {
	Field           string        `json:"field"`
	Operator        Operator      `json:"operator"`
	Value           interface{}   `json:"value,omitempty"`
	Values          []interface{} `json:"values,omitempty"` // for in / not_in
	ConditionGroup  int           `json:"condition_group"`
	Position        int           `json:"position"`
	LogicalOperator string        `json:"logical_operator,omitempty"` // "AND" or "OR", combines with the previous condition in the group
}

// Action is a single side-effecting step in a workflow's pipeline
type Action struct {
	ID           uuid.UUID              `json:"id"`
	ActionType   ActionType             `json:"action_type"`
	Config       map[string]interface{} `json:"config"`
	DelayMinutes int                    `json:"delay_minutes"`
	StopOnError  bool                   `json:"stop_on_error"`
	Position     int                    `json:"position"`
}

// Workflow is the engine's read-only view of a tenant-authored automation
type Workflow struct {
	ID               uuid.UUID   `json:"id"`
	TenantID         uuid.UUID   `json:"tenant_id"`
	Name             string      `json:"name"`
	TriggerType      TriggerType `json:"trigger_type"`
	EntityType       EntityType  `json:"entity_type"`
	IsActive         bool        `json:"is_active"`
	RunOncePerRecord bool        `json:"run_once_per_record"`
	Conditions       []Condition `json:"conditions"`
	Actions          []Action    `json:"actions"`
}

// Execution is one run of one workflow against one record
type Execution struct {
	ID             uuid.UUID              `json:"id"`
	WorkflowID     uuid.UUID              `json:"workflow_id"`
	TenantID       uuid.UUID              `json:"tenant_id"`
	EntityType     EntityType             `json:"entity_type"`
	EntityID       uuid.UUID              `json:"entity_id"`
	TriggerEvent   string                 `json:"trigger_event"`
	TriggerPayload map[string]interface{} `json:"trigger_payload,omitempty"`
	Status         Status                 `json:"status"`
	ErrorMessage   string                 `json:"error_message,omitempty"`
	StartedAt      time.Time              `json:"started_at"`
	CompletedAt    *time.Time             `json:"completed_at,omitempty"`
}

// ActionLog is one row per action attempt within an execution. It is written
// in running state before the handler is invoked, so a crash mid-action still
// leaves a detectable record.
type ActionLog struct {
	ID           uuid.UUID              `json:"id"`
	ExecutionID  uuid.UUID              `json:"execution_id"`
	ActionID     uuid.UUID              `json:"action_id"`
	ActionType   ActionType             `json:"action_type"`
	Status       Status                 `json:"status"`
	Input        map[string]interface{} `json:"input,omitempty"`
	Output       map[string]interface{} `json:"output,omitempty"`
	ErrorMessage string                 `json:"error_message,omitempty"`
	StartedAt    time.Time              `json:"started_at"`
	CompletedAt  *time.Time             `json:"completed_at,omitempty"`
}

// ActionResult is the uniform outcome of one action dispatch
type ActionResult struct {
	Success bool                   `json:"success"`
	Output  map[string]interface{} `json:"output,omitempty"`
	Error   string                 `json:"error,omitempty"`
}

func failure(msg string) ActionResult {
	return ActionResult{Success: false, Error: msg}
}

func success(output map[string]interface{}) ActionResult {
	return ActionResult{Success: true, Output: output}
}

// Task is a CRM task created by the create_task action
type Task struct {
	ID          uuid.UUID  `json:"id"`
	TenantID    uuid.UUID  `json:"tenant_id"`
	Subject     string     `json:"subject"`
	Description string     `json:"description"`
	DueDate     time.Time  `json:"due_date"`
	AssignedTo  *uuid.UUID `json:"assigned_to,omitempty"`
	RelatedType EntityType `json:"related_type"`
	RelatedID   uuid.UUID  `json:"related_id"`
}

// Notification is an in-app notification row created by send_notification
type Notification struct {
	ID       uuid.UUID `json:"id"`
	TenantID uuid.UUID `json:"tenant_id"`
	UserID   uuid.UUID `json:"user_id"`
	Title    string    `json:"title"`
	Body     string    `json:"body"`
}

// DelayedAction is a durable queue entry for an action whose delay_minutes
// deferred it out of the synchronous pipeline. The action and trigger context
// are snapshotted so later edits to the workflow cannot change what runs.
type DelayedAction struct {
	ID          uuid.UUID      `json:"id"`
	WorkflowID  uuid.UUID      `json:"workflow_id"`
	ExecutionID uuid.UUID      `json:"execution_id"`
	TenantID    uuid.UUID      `json:"tenant_id"`
	Action      Action         `json:"action"`
	Trigger     TriggerContext `json:"trigger"`
	DueAt       time.Time      `json:"due_at"`
}
