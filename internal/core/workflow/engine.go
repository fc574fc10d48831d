package workflow

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// DefaultWebhookTimeout bounds the webhook_call action so a slow external
// endpoint cannot stall the trigger-processing loop.
const DefaultWebhookTimeout = 10 * time.Second

// Options tune the engine; the zero value selects sensible defaults
type Options struct {
	WebhookTimeout time.Duration      // 0 means DefaultWebhookTimeout
	Assigner       AssignmentStrategy // nil means random assignment
	Clock          func() time.Time   // nil means time.Now
}

// Engine is the workflow execution orchestrator. It is invoked synchronously
// per triggering event and processes matching workflows sequentially; actions
// mutate shared tenant data, so there is deliberately no intra-trigger
// parallelism.
type Engine struct {
	stores    Stores
	evaluator *ConditionEvaluator
	resolver  *PlaceholderResolver
	handlers  map[ActionType]ActionHandler
	now       func() time.Time
}

// NewEngine wires the orchestrator with its store collaborators
func NewEngine(stores Stores, opts Options) *Engine {
	if opts.WebhookTimeout <= 0 {
		opts.WebhookTimeout = DefaultWebhookTimeout
	}
	if opts.Assigner == nil {
		opts.Assigner = NewRandomAssigner()
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}

	resolver := &PlaceholderResolver{now: opts.Clock}

	engine := &Engine{
		stores:    stores,
		evaluator: NewConditionEvaluator(),
		resolver:  resolver,
		now:       opts.Clock,
	}

	engine.handlers = map[ActionType]ActionHandler{
		ActionCreateTask:       &createTaskHandler{tasks: stores.Tasks, resolver: resolver, now: opts.Clock},
		ActionUpdateField:      &updateFieldHandler{records: stores.Records, resolver: resolver},
		ActionAssignOwner:      &assignOwnerHandler{records: stores.Records, users: stores.Users, strategy: opts.Assigner},
		ActionSendNotification: &sendNotificationHandler{notifications: stores.Notifications, resolver: resolver},
		ActionWebhookCall:      &webhookHandler{client: &http.Client{Timeout: opts.WebhookTimeout}, resolver: resolver},
		ActionCreateRecord:     &createRecordHandler{records: stores.Records, resolver: resolver},
		ActionSendEmail:        &sendEmailHandler{},
	}

	return engine
}

// Resolver exposes the engine's placeholder resolver
func (e *Engine) Resolver() *PlaceholderResolver {
	return e.resolver
}

// HandleTrigger is the top-level entry point: it fetches all active workflows
// matching the trigger and entity type and runs each one independently. One
// workflow's failure is logged and never blocks sibling workflows.
func (e *Engine) HandleTrigger(ctx context.Context, trigger TriggerContext) error {
	workflows, err := e.stores.Workflows.ActiveWorkflows(ctx, trigger.Trigger, trigger.EntityType)
	if err != nil {
		return fmt.Errorf("failed to load workflows for trigger %s/%s: %w", trigger.Trigger, trigger.EntityType, err)
	}

	log.Debug().
		Str("trigger", string(trigger.Trigger)).
		Str("entity_type", string(trigger.EntityType)).
		Int("workflows", len(workflows)).
		Msg("processing trigger")

	for _, wf := range workflows {
		if err := e.ExecuteWorkflow(ctx, wf, trigger); err != nil {
			log.Error().Err(err).
				Str("workflow_id", wf.ID.String()).
				Str("workflow", wf.Name).
				Msg("workflow execution failed")
		}
	}

	return nil
}

// ExecuteWorkflow runs one workflow against one trigger context: idempotency
// check, condition gate, then the ordered action pipeline with its audit
// trail. A skip (already run, or conditions unmet) creates no execution row.
func (e *Engine) ExecuteWorkflow(ctx context.Context, wf Workflow, trigger TriggerContext) error {
	if wf.RunOncePerRecord {
		ran, err := e.stores.Workflows.HasRunForRecord(ctx, wf.ID, trigger.EntityType, trigger.EntityID)
		if err != nil {
			return fmt.Errorf("failed to check run marker: %w", err)
		}
		if ran {
			log.Debug().
				Str("workflow_id", wf.ID.String()).
				Str("entity_id", trigger.EntityID.String()).
				Msg("workflow already ran for record, skipping")
			return nil
		}
	}

	if !e.evaluator.EvaluateAll(wf.Conditions, trigger.Record) {
		log.Debug().
			Str("workflow_id", wf.ID.String()).
			Msg("conditions not met, skipping")
		return nil
	}

	execution := &Execution{
		WorkflowID:     wf.ID,
		TenantID:       trigger.TenantID,
		EntityType:     trigger.EntityType,
		EntityID:       trigger.EntityID,
		TriggerEvent:   string(trigger.Trigger),
		TriggerPayload: trigger.Payload,
		Status:         StatusPending,
	}
	if err := e.stores.Executions.CreateExecution(ctx, execution); err != nil {
		return fmt.Errorf("failed to create execution record: %w", err)
	}

	execution.Status = StatusRunning
	execution.StartedAt = e.now()
	if err := e.stores.Executions.UpdateExecution(ctx, execution); err != nil {
		return e.failExecution(ctx, execution, fmt.Errorf("failed to start execution: %w", err))
	}

	log.Info().
		Str("workflow_id", wf.ID.String()).
		Str("workflow", wf.Name).
		Str("execution_id", execution.ID.String()).
		Msg("executing workflow")

	actions := make([]Action, len(wf.Actions))
	copy(actions, wf.Actions)
	sort.SliceStable(actions, func(i, j int) bool {
		return actions[i].Position < actions[j].Position
	})

	for _, action := range actions {
		if action.DelayMinutes > 0 {
			e.enqueueDelayed(ctx, wf, execution, action, trigger)
			continue
		}

		result := e.runAction(ctx, execution.ID, action, trigger)

		if !result.Success && action.StopOnError {
			return e.failExecution(ctx, execution, fmt.Errorf("%s", result.Error))
		}
	}

	completedAt := e.now()
	execution.Status = StatusCompleted
	execution.CompletedAt = &completedAt
	if err := e.stores.Executions.UpdateExecution(ctx, execution); err != nil {
		return fmt.Errorf("failed to complete execution: %w", err)
	}

	// The marker is written only after a full pass through the action list,
	// whether or not individual non-stopping actions failed.
	if wf.RunOncePerRecord {
		if err := e.stores.Workflows.MarkRunForRecord(ctx, wf.ID, trigger.EntityType, trigger.EntityID); err != nil {
			return fmt.Errorf("failed to write run marker: %w", err)
		}
	}

	log.Info().
		Str("execution_id", execution.ID.String()).
		Msg("workflow execution completed")
	return nil
}

// RunDelayedAction re-enters the pipeline at single-action granularity for a
// queue entry that has come due, writing action logs against the original
// execution. A failed delayed action cannot retroactively fail an execution
// that already completed; the action log carries the outcome.
func (e *Engine) RunDelayedAction(ctx context.Context, delayed *DelayedAction) error {
	log.Info().
		Str("workflow_id", delayed.WorkflowID.String()).
		Str("execution_id", delayed.ExecutionID.String()).
		Str("action_type", string(delayed.Action.ActionType)).
		Msg("running delayed action")

	result := e.runAction(ctx, delayed.ExecutionID, delayed.Action, delayed.Trigger)
	if !result.Success {
		return fmt.Errorf("delayed action %s failed: %s", delayed.Action.ActionType, result.Error)
	}
	return nil
}

// runAction dispatches one action, bracketed by its action-log row. The log
// writes are best-effort: a failed write is logged but never masks the
// action's own result.
func (e *Engine) runAction(ctx context.Context, executionID uuid.UUID, action Action, trigger TriggerContext) ActionResult {
	actionLog := &ActionLog{
		ExecutionID: executionID,
		ActionID:    action.ID,
		ActionType:  action.ActionType,
		Status:      StatusRunning,
		Input:       action.Config,
		StartedAt:   e.now(),
	}
	if err := e.stores.Executions.CreateActionLog(ctx, actionLog); err != nil {
		log.Warn().Err(err).
			Str("execution_id", executionID.String()).
			Msg("failed to create action log")
	}

	result := e.dispatch(ctx, action, trigger)

	completedAt := e.now()
	actionLog.CompletedAt = &completedAt
	actionLog.Output = result.Output
	if result.Success {
		actionLog.Status = StatusCompleted
	} else {
		actionLog.Status = StatusFailed
		actionLog.ErrorMessage = result.Error
		log.Warn().
			Str("action_type", string(action.ActionType)).
			Str("error", result.Error).
			Msg("action failed")
	}
	if err := e.stores.Executions.UpdateActionLog(ctx, actionLog); err != nil {
		log.Warn().Err(err).
			Str("execution_id", executionID.String()).
			Msg("failed to update action log")
	}

	return result
}

// dispatch routes the action to its registered handler
func (e *Engine) dispatch(ctx context.Context, action Action, trigger TriggerContext) ActionResult {
	handler, ok := e.handlers[action.ActionType]
	if !ok {
		return failure(fmt.Sprintf("unknown action type: %s", action.ActionType))
	}
	return handler.Execute(ctx, action, trigger)
}

// enqueueDelayed persists a durable queue entry for a delayed action instead
// of dispatching it on the synchronous path. Enqueue failures are logged and
// do not stop the rest of the pipeline.
func (e *Engine) enqueueDelayed(ctx context.Context, wf Workflow, execution *Execution, action Action, trigger TriggerContext) {
	delayed := &DelayedAction{
		WorkflowID:  wf.ID,
		ExecutionID: execution.ID,
		TenantID:    trigger.TenantID,
		Action:      action,
		Trigger:     trigger,
		DueAt:       e.now().Add(time.Duration(action.DelayMinutes) * time.Minute),
	}
	if err := e.stores.Delays.EnqueueDelayedAction(ctx, delayed); err != nil {
		log.Error().Err(err).
			Str("execution_id", execution.ID.String()).
			Str("action_type", string(action.ActionType)).
			Msg("failed to enqueue delayed action")
		return
	}

	log.Debug().
		Str("execution_id", execution.ID.String()).
		Str("action_type", string(action.ActionType)).
		Time("due_at", delayed.DueAt).
		Msg("delayed action enqueued")
}

// failExecution marks the execution failed and returns the original error
func (e *Engine) failExecution(ctx context.Context, execution *Execution, cause error) error {
	completedAt := e.now()
	execution.Status = StatusFailed
	execution.ErrorMessage = cause.Error()
	execution.CompletedAt = &completedAt

	if err := e.stores.Executions.UpdateExecution(ctx, execution); err != nil {
		log.Error().Err(err).
			Str("execution_id", execution.ID.String()).
			Msg("failed to persist failed execution status")
	}
	return cause
}
