package repositories

import (
	"encoding/json"

	"github.com/nimbuscrm/crm-backend/internal/core/workflow"
	"github.com/nimbuscrm/crm-backend/internal/modules/crm/models"
)

// ToEngineWorkflow maps a stored workflow (JSONB rows) onto the engine's
// read-only view
func ToEngineWorkflow(m models.Workflow) workflow.Workflow {
	wf := workflow.Workflow{
		ID:               m.ID,
		TenantID:         m.TenantID,
		Name:             m.Name,
		TriggerType:      workflow.TriggerType(m.TriggerType),
		EntityType:       workflow.EntityType(m.EntityType),
		IsActive:         m.IsActive,
		RunOncePerRecord: m.RunOncePerRecord,
	}

	for _, c := range m.Conditions {
		wf.Conditions = append(wf.Conditions, toEngineCondition(c))
	}
	for _, a := range m.Actions {
		wf.Actions = append(wf.Actions, toEngineAction(a))
	}
	return wf
}

func toEngineCondition(m models.WorkflowCondition) workflow.Condition {
	condition := workflow.Condition{
		Field:           m.Field,
		Operator:        workflow.Operator(m.Operator),
		ConditionGroup:  m.ConditionGroup,
		Position:        m.Position,
		LogicalOperator: m.LogicalOperator,
	}
	if len(m.Value) > 0 {
		_ = json.Unmarshal(m.Value, &condition.Value)
	}
	if len(m.ValueSet) > 0 {
		_ = json.Unmarshal(m.ValueSet, &condition.Values)
	}
	return condition
}

func toEngineAction(m models.WorkflowAction) workflow.Action {
	action := workflow.Action{
		ID:           m.ID,
		ActionType:   workflow.ActionType(m.ActionType),
		Config:       map[string]interface{}{},
		DelayMinutes: m.DelayMinutes,
		StopOnError:  m.StopOnError,
		Position:     m.Position,
	}
	if len(m.Config) > 0 {
		_ = json.Unmarshal(m.Config, &action.Config)
	}
	return action
}

func marshalJSON(value interface{}) []byte {
	if value == nil {
		return nil
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return nil
	}
	return raw
}
