package services

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/nimbuscrm/crm-backend/internal/core/workflow"
)

// ConditionInput describes one condition row in a create or update request
type ConditionInput struct {
	Field           string        `json:"field"`
	Operator        string        `json:"operator"`
	Value           interface{}   `json:"value,omitempty"`
	Values          []interface{} `json:"values,omitempty"`
	ConditionGroup  int           `json:"condition_group"`
	Position        int           `json:"position"`
	LogicalOperator string        `json:"logical_operator,omitempty"`
}

// ActionInput describes one action row in a create or update request
type ActionInput struct {
	ActionType   string                 `json:"action_type"`
	Config       map[string]interface{} `json:"config"`
	DelayMinutes int                    `json:"delay_minutes"`
	StopOnError  bool                   `json:"stop_on_error"`
	Position     int                    `json:"position"`
}

// CreateWorkflowRequest is the payload for creating a workflow
type CreateWorkflowRequest struct {
	Name             string           `json:"name"`
	Description      string           `json:"description,omitempty"`
	TriggerType      string           `json:"trigger_type"`
	EntityType       string           `json:"entity_type"`
	Schedule         string           `json:"schedule,omitempty"`
	IsActive         *bool            `json:"is_active,omitempty"`
	RunOncePerRecord bool             `json:"run_once_per_record"`
	Conditions       []ConditionInput `json:"conditions,omitempty"`
	Actions          []ActionInput    `json:"actions,omitempty"`
}

// UpdateWorkflowRequest is the payload for a partial workflow update.
// Conditions and Actions replace the existing sets when present.
type UpdateWorkflowRequest struct {
	Name             *string          `json:"name,omitempty"`
	Description      *string          `json:"description,omitempty"`
	TriggerType      *string          `json:"trigger_type,omitempty"`
	EntityType       *string          `json:"entity_type,omitempty"`
	Schedule         *string          `json:"schedule,omitempty"`
	IsActive         *bool            `json:"is_active,omitempty"`
	RunOncePerRecord *bool            `json:"run_once_per_record,omitempty"`
	Conditions       []ConditionInput `json:"conditions,omitempty"`
	Actions          []ActionInput    `json:"actions,omitempty"`
}

// ExecuteWorkflowRequest is the payload for a manual workflow run. Record is
// optional; when omitted the current row is loaded from the entity table.
type ExecuteWorkflowRequest struct {
	EntityID uuid.UUID              `json:"entity_id"`
	UserID   *uuid.UUID             `json:"user_id,omitempty"`
	Record   map[string]interface{} `json:"record,omitempty"`
	Payload  map[string]interface{} `json:"payload,omitempty"`
}

var validTriggerTypes = map[string]bool{
	string(workflow.TriggerOnCreate):  true,
	string(workflow.TriggerOnUpdate):  true,
	string(workflow.TriggerScheduled): true,
}

// Validate checks structural requirements before the workflow is persisted
func (r CreateWorkflowRequest) Validate() error {
	if r.Name == "" {
		return fmt.Errorf("name is required")
	}
	if !validTriggerTypes[r.TriggerType] {
		return fmt.Errorf("invalid trigger_type: %s", r.TriggerType)
	}
	if !workflow.IsKnownEntityType(workflow.EntityType(r.EntityType)) {
		return fmt.Errorf("invalid entity_type: %s", r.EntityType)
	}
	if r.TriggerType == string(workflow.TriggerScheduled) {
		if r.Schedule == "" {
			return fmt.Errorf("schedule is required for scheduled workflows")
		}
		if _, err := cron.ParseStandard(r.Schedule); err != nil {
			return fmt.Errorf("invalid schedule %q: %w", r.Schedule, err)
		}
	}
	for i, action := range r.Actions {
		if action.ActionType == "" {
			return fmt.Errorf("actions[%d]: action_type is required", i)
		}
		if action.DelayMinutes < 0 {
			return fmt.Errorf("actions[%d]: delay_minutes must not be negative", i)
		}
	}
	for i, condition := range r.Conditions {
		if condition.Field == "" {
			return fmt.Errorf("conditions[%d]: field is required", i)
		}
		if condition.Operator == "" {
			return fmt.Errorf("conditions[%d]: operator is required", i)
		}
	}
	return nil
}

func marshalValue(value interface{}) []byte {
	if value == nil {
		return nil
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return nil
	}
	return raw
}
