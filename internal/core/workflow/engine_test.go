package workflow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildWorkflow(actions ...Action) Workflow {
	return Workflow{
		ID:          uuid.New(),
		TenantID:    uuid.New(),
		Name:        "test workflow",
		TriggerType: TriggerOnCreate,
		EntityType:  EntityLead,
		IsActive:    true,
		Actions:     actions,
	}
}

func TestEngine_ExecuteWorkflow_CompletesAndLogsActions(t *testing.T) {
	wf := buildWorkflow(
		Action{ID: uuid.New(), ActionType: ActionUpdateField, Position: 0, Config: map[string]interface{}{
			"field_name": "status", "field_value": "contacted",
		}},
		Action{ID: uuid.New(), ActionType: ActionCreateTask, Position: 1, Config: map[string]interface{}{
			"subject": "Follow up with {{record.name}}",
		}},
	)

	stores := newTestStores(wf)
	engine := NewEngine(stores.bundle(), Options{Clock: fixedClock()})

	trigger := TriggerContext{
		TenantID:   wf.TenantID,
		EntityType: EntityLead,
		EntityID:   uuid.New(),
		Trigger:    TriggerOnCreate,
		Record:     map[string]interface{}{"name": "Jordan Lee", "status": "new"},
	}

	require.NoError(t, engine.ExecuteWorkflow(context.Background(), wf, trigger))

	require.Len(t, stores.executions.executions, 1)
	execution := stores.executions.executions[0]
	assert.Equal(t, StatusCompleted, execution.Status)
	assert.NotNil(t, execution.CompletedAt)

	require.Len(t, stores.executions.actionLogs, 2)
	assert.Equal(t, ActionUpdateField, stores.executions.actionLogs[0].ActionType)
	assert.Equal(t, StatusCompleted, stores.executions.actionLogs[0].Status)
	assert.Equal(t, ActionCreateTask, stores.executions.actionLogs[1].ActionType)
	assert.Equal(t, StatusCompleted, stores.executions.actionLogs[1].Status)

	// The update_field result is visible to the later create_task template
	require.Len(t, stores.tasks.tasks, 1)
	assert.Equal(t, "Follow up with Jordan Lee", stores.tasks.tasks[0].Subject)
}

func TestEngine_ExecuteWorkflow_ConditionGateSkips(t *testing.T) {
	wf := buildWorkflow(Action{ID: uuid.New(), ActionType: ActionCreateTask, Config: map[string]interface{}{"subject": "x"}})
	wf.Conditions = []Condition{
		{Field: "status", Operator: OpEquals, Value: "qualified"},
	}

	stores := newTestStores(wf)
	engine := NewEngine(stores.bundle(), Options{Clock: fixedClock()})

	trigger := TriggerContext{
		TenantID:   wf.TenantID,
		EntityType: EntityLead,
		EntityID:   uuid.New(),
		Trigger:    TriggerOnCreate,
		Record:     map[string]interface{}{"status": "new"},
	}

	require.NoError(t, engine.ExecuteWorkflow(context.Background(), wf, trigger))

	// A skip creates neither execution rows nor side effects
	assert.Empty(t, stores.executions.executions)
	assert.Empty(t, stores.tasks.tasks)
}

func TestEngine_ExecuteWorkflow_StopOnErrorHalts(t *testing.T) {
	brokenTeam := uuid.New() // team with no members
	wf := buildWorkflow(
		Action{ID: uuid.New(), ActionType: ActionAssignOwner, Position: 0, StopOnError: true, Config: map[string]interface{}{
			"team_id": brokenTeam.String(),
		}},
		Action{ID: uuid.New(), ActionType: ActionCreateTask, Position: 1, Config: map[string]interface{}{
			"subject": "never created",
		}},
	)

	stores := newTestStores(wf)
	engine := NewEngine(stores.bundle(), Options{Clock: fixedClock()})

	trigger := TriggerContext{
		TenantID:   wf.TenantID,
		EntityType: EntityLead,
		EntityID:   uuid.New(),
		Trigger:    TriggerOnCreate,
		Record:     map[string]interface{}{},
	}

	err := engine.ExecuteWorkflow(context.Background(), wf, trigger)
	require.Error(t, err)

	require.Len(t, stores.executions.executions, 1)
	assert.Equal(t, StatusFailed, stores.executions.executions[0].Status)
	assert.NotEmpty(t, stores.executions.executions[0].ErrorMessage)

	// Only the failing action got a log; the pipeline stopped before the task
	require.Len(t, stores.executions.actionLogs, 1)
	assert.Equal(t, StatusFailed, stores.executions.actionLogs[0].Status)
	assert.Empty(t, stores.tasks.tasks)
}

func TestEngine_ExecuteWorkflow_NonStoppingFailureContinues(t *testing.T) {
	brokenTeam := uuid.New()
	wf := buildWorkflow(
		Action{ID: uuid.New(), ActionType: ActionAssignOwner, Position: 0, StopOnError: false, Config: map[string]interface{}{
			"team_id": brokenTeam.String(),
		}},
		Action{ID: uuid.New(), ActionType: ActionCreateTask, Position: 1, Config: map[string]interface{}{
			"subject": "still created",
		}},
	)

	stores := newTestStores(wf)
	engine := NewEngine(stores.bundle(), Options{Clock: fixedClock()})

	trigger := TriggerContext{
		TenantID:   wf.TenantID,
		EntityType: EntityLead,
		EntityID:   uuid.New(),
		Trigger:    TriggerOnCreate,
		Record:     map[string]interface{}{},
	}

	require.NoError(t, engine.ExecuteWorkflow(context.Background(), wf, trigger))

	require.Len(t, stores.executions.actionLogs, 2)
	assert.Equal(t, StatusFailed, stores.executions.actionLogs[0].Status)
	assert.Equal(t, StatusCompleted, stores.executions.actionLogs[1].Status)

	// A non-stopping failure still lets the execution complete
	assert.Equal(t, StatusCompleted, stores.executions.executions[0].Status)
	require.Len(t, stores.tasks.tasks, 1)
}

func TestEngine_ExecuteWorkflow_RunOncePerRecord(t *testing.T) {
	wf := buildWorkflow(Action{ID: uuid.New(), ActionType: ActionCreateTask, Config: map[string]interface{}{"subject": "once"}})
	wf.RunOncePerRecord = true

	stores := newTestStores(wf)
	engine := NewEngine(stores.bundle(), Options{Clock: fixedClock()})

	trigger := TriggerContext{
		TenantID:   wf.TenantID,
		EntityType: EntityLead,
		EntityID:   uuid.New(),
		Trigger:    TriggerOnCreate,
		Record:     map[string]interface{}{},
	}

	require.NoError(t, engine.ExecuteWorkflow(context.Background(), wf, trigger))
	require.NoError(t, engine.ExecuteWorkflow(context.Background(), wf, trigger))

	// Second run is a no-op: one execution, one task
	assert.Len(t, stores.executions.executions, 1)
	assert.Len(t, stores.tasks.tasks, 1)

	// A different record still runs
	other := trigger
	other.EntityID = uuid.New()
	require.NoError(t, engine.ExecuteWorkflow(context.Background(), wf, other))
	assert.Len(t, stores.executions.executions, 2)
}

func TestEngine_ExecuteWorkflow_MarkerNotWrittenOnStopFailure(t *testing.T) {
	brokenTeam := uuid.New()
	wf := buildWorkflow(Action{ID: uuid.New(), ActionType: ActionAssignOwner, StopOnError: true, Config: map[string]interface{}{
		"team_id": brokenTeam.String(),
	}})
	wf.RunOncePerRecord = true

	stores := newTestStores(wf)
	engine := NewEngine(stores.bundle(), Options{Clock: fixedClock()})

	trigger := TriggerContext{
		TenantID:   wf.TenantID,
		EntityType: EntityLead,
		EntityID:   uuid.New(),
		Trigger:    TriggerOnCreate,
		Record:     map[string]interface{}{},
	}

	require.Error(t, engine.ExecuteWorkflow(context.Background(), wf, trigger))

	// Failed run leaves no marker, so the workflow may run again later
	assert.Empty(t, stores.workflows.markers)
}

func TestEngine_ExecuteWorkflow_DelayedActionEnqueued(t *testing.T) {
	wf := buildWorkflow(
		Action{ID: uuid.New(), ActionType: ActionSendNotification, Position: 0, DelayMinutes: 30, Config: map[string]interface{}{
			"notify_owner": true, "title": "later",
		}},
		Action{ID: uuid.New(), ActionType: ActionCreateTask, Position: 1, Config: map[string]interface{}{
			"subject": "now",
		}},
	)

	stores := newTestStores(wf)
	engine := NewEngine(stores.bundle(), Options{Clock: fixedClock()})

	trigger := TriggerContext{
		TenantID:   wf.TenantID,
		EntityType: EntityLead,
		EntityID:   uuid.New(),
		Trigger:    TriggerOnCreate,
		Record:     map[string]interface{}{"owner_id": uuid.New().String()},
	}

	require.NoError(t, engine.ExecuteWorkflow(context.Background(), wf, trigger))

	// The delayed action goes to the queue, not the synchronous path
	require.Len(t, stores.delays.enqueued, 1)
	delayed := stores.delays.enqueued[0]
	assert.Equal(t, wf.ID, delayed.WorkflowID)
	assert.Equal(t, ActionSendNotification, delayed.Action.ActionType)
	assert.Equal(t, fixedClock()().Add(30*time.Minute), delayed.DueAt)
	assert.Empty(t, stores.notifications.notifications)

	// The immediate action ran and only it was logged
	require.Len(t, stores.tasks.tasks, 1)
	require.Len(t, stores.executions.actionLogs, 1)
	assert.Equal(t, ActionCreateTask, stores.executions.actionLogs[0].ActionType)

	// Execution completes without waiting for the delayed action
	assert.Equal(t, StatusCompleted, stores.executions.executions[0].Status)
}

func TestEngine_RunDelayedAction(t *testing.T) {
	stores := newTestStores()
	engine := NewEngine(stores.bundle(), Options{Clock: fixedClock()})

	executionID := uuid.New()
	ownerID := uuid.New()
	delayed := &DelayedAction{
		WorkflowID:  uuid.New(),
		ExecutionID: executionID,
		TenantID:    uuid.New(),
		Action: Action{
			ID:         uuid.New(),
			ActionType: ActionSendNotification,
			Config: map[string]interface{}{
				"notify_owner": true,
				"title":        "Reminder for {{record.name}}",
			},
		},
		Trigger: TriggerContext{
			EntityType: EntityLead,
			Record:     map[string]interface{}{"name": "Jordan Lee", "owner_id": ownerID.String()},
		},
	}

	require.NoError(t, engine.RunDelayedAction(context.Background(), delayed))

	require.Len(t, stores.notifications.notifications, 1)
	assert.Equal(t, "Reminder for Jordan Lee", stores.notifications.notifications[0].Title)

	// The action log lands on the original execution
	require.Len(t, stores.executions.actionLogs, 1)
	assert.Equal(t, executionID, stores.executions.actionLogs[0].ExecutionID)
	assert.Equal(t, StatusCompleted, stores.executions.actionLogs[0].Status)
}

func TestEngine_RunDelayedAction_FailureReturnsError(t *testing.T) {
	stores := newTestStores()
	engine := NewEngine(stores.bundle(), Options{Clock: fixedClock()})

	delayed := &DelayedAction{
		ExecutionID: uuid.New(),
		Action: Action{
			ActionType: ActionWebhookCall,
			Config:     map[string]interface{}{}, // missing url
		},
		Trigger: TriggerContext{Record: map[string]interface{}{}},
	}

	err := engine.RunDelayedAction(context.Background(), delayed)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "url is required")
}

func TestEngine_HandleTrigger_RunsMatchingWorkflows(t *testing.T) {
	matching := buildWorkflow(Action{ID: uuid.New(), ActionType: ActionCreateTask, Config: map[string]interface{}{"subject": "a"}})
	wrongTrigger := buildWorkflow(Action{ID: uuid.New(), ActionType: ActionCreateTask, Config: map[string]interface{}{"subject": "b"}})
	wrongTrigger.TriggerType = TriggerOnUpdate
	inactive := buildWorkflow(Action{ID: uuid.New(), ActionType: ActionCreateTask, Config: map[string]interface{}{"subject": "c"}})
	inactive.IsActive = false

	stores := newTestStores(matching, wrongTrigger, inactive)
	engine := NewEngine(stores.bundle(), Options{Clock: fixedClock()})

	trigger := TriggerContext{
		TenantID:   matching.TenantID,
		EntityType: EntityLead,
		EntityID:   uuid.New(),
		Trigger:    TriggerOnCreate,
		Record:     map[string]interface{}{},
	}

	require.NoError(t, engine.HandleTrigger(context.Background(), trigger))
	assert.Len(t, stores.executions.executions, 1)
	assert.Len(t, stores.tasks.tasks, 1)
}

func TestEngine_HandleTrigger_WorkflowFailureDoesNotBlockSiblings(t *testing.T) {
	brokenTeam := uuid.New()
	failing := buildWorkflow(Action{ID: uuid.New(), ActionType: ActionAssignOwner, StopOnError: true, Config: map[string]interface{}{
		"team_id": brokenTeam.String(),
	}})
	healthy := buildWorkflow(Action{ID: uuid.New(), ActionType: ActionCreateTask, Config: map[string]interface{}{"subject": "survives"}})

	stores := newTestStores(failing, healthy)
	engine := NewEngine(stores.bundle(), Options{Clock: fixedClock()})

	trigger := TriggerContext{
		TenantID:   failing.TenantID,
		EntityType: EntityLead,
		EntityID:   uuid.New(),
		Trigger:    TriggerOnCreate,
		Record:     map[string]interface{}{},
	}

	require.NoError(t, engine.HandleTrigger(context.Background(), trigger))
	require.Len(t, stores.tasks.tasks, 1)
	assert.Equal(t, "survives", stores.tasks.tasks[0].Subject)
}

func TestEngine_ExecuteWorkflow_MarkerWriteFailureSurfaces(t *testing.T) {
	wf := buildWorkflow(Action{ID: uuid.New(), ActionType: ActionSendEmail, Config: map[string]interface{}{}})
	wf.RunOncePerRecord = true

	stores := newTestStores(wf)
	stores.workflows.markErr = errors.New("marker table unavailable")
	engine := NewEngine(stores.bundle(), Options{Clock: fixedClock()})

	trigger := TriggerContext{
		TenantID:   wf.TenantID,
		EntityType: EntityLead,
		EntityID:   uuid.New(),
		Trigger:    TriggerOnCreate,
		Record:     map[string]interface{}{},
	}

	err := engine.ExecuteWorkflow(context.Background(), wf, trigger)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run marker")
}

func TestEngine_UnknownActionTypeFailsAction(t *testing.T) {
	wf := buildWorkflow(Action{ID: uuid.New(), ActionType: ActionType("teleport"), Config: map[string]interface{}{}})

	stores := newTestStores(wf)
	engine := NewEngine(stores.bundle(), Options{Clock: fixedClock()})

	trigger := TriggerContext{
		TenantID:   wf.TenantID,
		EntityType: EntityLead,
		EntityID:   uuid.New(),
		Trigger:    TriggerOnCreate,
		Record:     map[string]interface{}{},
	}

	require.NoError(t, engine.ExecuteWorkflow(context.Background(), wf, trigger))

	require.Len(t, stores.executions.actionLogs, 1)
	assert.Equal(t, StatusFailed, stores.executions.actionLogs[0].Status)
	assert.Contains(t, stores.executions.actionLogs[0].ErrorMessage, "unknown action type")
	// Non-stopping by default, so the execution still completes
	assert.Equal(t, StatusCompleted, stores.executions.executions[0].Status)
}
