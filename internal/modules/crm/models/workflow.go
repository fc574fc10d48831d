package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Workflow is a tenant-authored automation definition. The engine treats it
// as read-only; authoring happens through the API.
type Workflow struct {
	ID               uuid.UUID           `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	TenantID         uuid.UUID           `json:"tenant_id" gorm:"type:uuid;not null;index"`
	Name             string              `json:"name" gorm:"type:varchar(255);not null"`
	Description      string              `json:"description" gorm:"type:text"`
	TriggerType      string              `json:"trigger_type" gorm:"type:varchar(50);not null;index"` // 'on_create', 'on_update', 'scheduled'
	EntityType       string              `json:"entity_type" gorm:"type:varchar(50);not null;index"`  // 'lead', 'contact', 'deal', 'account'
	Schedule         string              `json:"schedule,omitempty" gorm:"type:varchar(100)"`         // cron expression for scheduled triggers
	IsActive         bool                `json:"is_active" gorm:"default:true;index"`
	RunOncePerRecord bool                `json:"run_once_per_record" gorm:"default:false"`
	Conditions       []WorkflowCondition `json:"conditions" gorm:"foreignKey:WorkflowID;constraint:OnDelete:CASCADE"`
	Actions          []WorkflowAction    `json:"actions" gorm:"foreignKey:WorkflowID;constraint:OnDelete:CASCADE"`
	CreatedAt        time.Time           `json:"created_at" gorm:"autoCreateTime;index:,sort:desc"`
	UpdatedAt        time.Time           `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName specifies the table name for Workflow
func (Workflow) TableName() string {
	return "crm_workflows"
}

// WorkflowCondition is one predicate row in a workflow's rule tree
type WorkflowCondition struct {
	ID              uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	WorkflowID      uuid.UUID      `json:"workflow_id" gorm:"type:uuid;not null;index"`
	Field           string         `json:"field" gorm:"type:varchar(100);not null"`
	Operator        string         `json:"operator" gorm:"type:varchar(30);not null"`
	Value           datatypes.JSON `json:"value,omitempty" gorm:"type:jsonb"`
	ValueSet        datatypes.JSON `json:"values,omitempty" gorm:"type:jsonb"` // for in / not_in
	ConditionGroup  int            `json:"condition_group" gorm:"not null;default:0"`
	Position        int            `json:"position" gorm:"not null;default:0"`
	LogicalOperator string         `json:"logical_operator" gorm:"type:varchar(3);default:'AND'"`
}

// TableName specifies the table name for WorkflowCondition
func (WorkflowCondition) TableName() string {
	return "crm_workflow_conditions"
}

// WorkflowAction is one ordered side-effecting step
type WorkflowAction struct {
	ID           uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	WorkflowID   uuid.UUID      `json:"workflow_id" gorm:"type:uuid;not null;index"`
	ActionType   string         `json:"action_type" gorm:"type:varchar(50);not null"`
	Config       datatypes.JSON `json:"config" gorm:"type:jsonb;not null;default:'{}'"`
	DelayMinutes int            `json:"delay_minutes" gorm:"not null;default:0"`
	StopOnError  bool           `json:"stop_on_error" gorm:"not null;default:false"`
	Position     int            `json:"position" gorm:"not null;default:0"`
}

// TableName specifies the table name for WorkflowAction
func (WorkflowAction) TableName() string {
	return "crm_workflow_actions"
}

// WorkflowExecution is the audit record for one run of one workflow against
// one record
type WorkflowExecution struct {
	ID             uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	WorkflowID     uuid.UUID      `json:"workflow_id" gorm:"type:uuid;not null;index"`
	TenantID       uuid.UUID      `json:"tenant_id" gorm:"type:uuid;not null;index"`
	EntityType     string         `json:"entity_type" gorm:"type:varchar(50);not null"`
	EntityID       uuid.UUID      `json:"entity_id" gorm:"type:uuid;not null;index"`
	TriggerEvent   string         `json:"trigger_event" gorm:"type:varchar(50);not null"`
	TriggerPayload datatypes.JSON `json:"trigger_payload,omitempty" gorm:"type:jsonb"`
	Status         string         `json:"status" gorm:"type:varchar(20);not null;default:'pending';index"`
	ErrorMessage   string         `json:"error_message,omitempty" gorm:"type:text"`
	StartedAt      *time.Time     `json:"started_at,omitempty"`
	CompletedAt    *time.Time     `json:"completed_at,omitempty"`
	CreatedAt      time.Time      `json:"created_at" gorm:"autoCreateTime;index:,sort:desc"`
}

// TableName specifies the table name for WorkflowExecution
func (WorkflowExecution) TableName() string {
	return "crm_workflow_executions"
}

// WorkflowActionLog is one row per action attempt within an execution
type WorkflowActionLog struct {
	ID           uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ExecutionID  uuid.UUID      `json:"execution_id" gorm:"type:uuid;not null;index"`
	ActionID     uuid.UUID      `json:"action_id" gorm:"type:uuid"`
	ActionType   string         `json:"action_type" gorm:"type:varchar(50);not null"`
	Status       string         `json:"status" gorm:"type:varchar(20);not null;default:'pending'"`
	Input        datatypes.JSON `json:"input,omitempty" gorm:"type:jsonb"`
	Output       datatypes.JSON `json:"output,omitempty" gorm:"type:jsonb"`
	ErrorMessage string         `json:"error_message,omitempty" gorm:"type:text"`
	StartedAt    *time.Time     `json:"started_at,omitempty"`
	CompletedAt  *time.Time     `json:"completed_at,omitempty"`
}

// TableName specifies the table name for WorkflowActionLog
func (WorkflowActionLog) TableName() string {
	return "crm_workflow_action_logs"
}

// WorkflowRunMarker enforces run-once-per-record. The composite unique index
// turns a concurrent double-insert into a conflict the repository treats as
// "already run".
type WorkflowRunMarker struct {
	ID         uuid.UUID `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	WorkflowID uuid.UUID `json:"workflow_id" gorm:"type:uuid;not null;uniqueIndex:idx_run_once_marker"`
	EntityType string    `json:"entity_type" gorm:"type:varchar(50);not null;uniqueIndex:idx_run_once_marker"`
	EntityID   uuid.UUID `json:"entity_id" gorm:"type:uuid;not null;uniqueIndex:idx_run_once_marker"`
	CreatedAt  time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// TableName specifies the table name for WorkflowRunMarker
func (WorkflowRunMarker) TableName() string {
	return "crm_workflow_run_markers"
}
