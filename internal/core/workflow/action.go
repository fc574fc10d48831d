package workflow

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ActionHandler executes one action kind. Handlers convert every internal
// problem (missing config, unreachable endpoint, unresolvable user) into a
// failure result; they never return errors and never panic.
type ActionHandler interface {
	Execute(ctx context.Context, action Action, trigger TriggerContext) ActionResult
}

// createTaskHandler inserts a CRM task with templated subject/description
type createTaskHandler struct {
	tasks    TaskStore
	resolver *PlaceholderResolver
	now      func() time.Time
}

func (h *createTaskHandler) Execute(ctx context.Context, action Action, trigger TriggerContext) ActionResult {
	subject := h.resolver.Resolve(configString(action.Config, "subject"), trigger)
	description := h.resolver.Resolve(configString(action.Config, "description"), trigger)

	dueDays := configInt(action.Config, "due_days")
	today := h.now().Truncate(24 * time.Hour)
	dueDate := today.AddDate(0, 0, dueDays)

	assignedTo := trigger.UserID
	if id, ok := configUUID(action.Config, "assign_to"); ok {
		assignedTo = &id
	}

	task := &Task{
		TenantID:    trigger.TenantID,
		Subject:     subject,
		Description: description,
		DueDate:     dueDate,
		AssignedTo:  assignedTo,
		RelatedType: trigger.EntityType,
		RelatedID:   trigger.EntityID,
	}

	if err := h.tasks.CreateTask(ctx, task); err != nil {
		return failure(fmt.Sprintf("failed to create task: %v", err))
	}

	return success(map[string]interface{}{"task_id": task.ID.String()})
}

// updateFieldHandler writes a single templated field on the triggering record
type updateFieldHandler struct {
	records  RecordStore
	resolver *PlaceholderResolver
}

func (h *updateFieldHandler) Execute(ctx context.Context, action Action, trigger TriggerContext) ActionResult {
	fieldName := configString(action.Config, "field_name")
	if fieldName == "" {
		return failure("field_name is required for update_field action")
	}

	value := h.resolver.Resolve(stringify(action.Config["field_value"]), trigger)

	if err := h.records.UpdateField(ctx, trigger.TenantID, trigger.EntityType, trigger.EntityID, fieldName, value); err != nil {
		return failure(fmt.Sprintf("failed to update field %s: %v", fieldName, err))
	}

	// Later actions in the pipeline see the new value
	trigger.Record[fieldName] = value

	return success(map[string]interface{}{"field_name": fieldName, "field_value": value})
}

// assignOwnerHandler resolves a new owner either directly or from a team via
// the configured assignment strategy, then updates the record's owner field
type assignOwnerHandler struct {
	records  RecordStore
	users    UserStore
	strategy AssignmentStrategy
}

func (h *assignOwnerHandler) Execute(ctx context.Context, action Action, trigger TriggerContext) ActionResult {
	ownerID, ok := configUUID(action.Config, "user_id")

	if !ok {
		teamID, hasTeam := configUUID(action.Config, "team_id")
		if !hasTeam {
			return failure("assign_owner requires user_id or team_id")
		}

		members, err := h.users.TeamMemberIDs(ctx, trigger.TenantID, teamID)
		if err != nil {
			return failure(fmt.Sprintf("failed to load team members: %v", err))
		}

		ownerID, ok = h.strategy.Pick(teamID, members)
		if !ok {
			return failure(fmt.Sprintf("no assignable user found in team %s", teamID))
		}
	}

	if err := h.records.UpdateField(ctx, trigger.TenantID, trigger.EntityType, trigger.EntityID, "owner_id", ownerID.String()); err != nil {
		return failure(fmt.Sprintf("failed to assign owner: %v", err))
	}

	trigger.Record["owner_id"] = ownerID.String()

	return success(map[string]interface{}{"owner_id": ownerID.String()})
}

// sendNotificationHandler inserts one notification row per deduplicated
// recipient: the record's current owner plus any explicitly listed users
type sendNotificationHandler struct {
	notifications NotificationStore
	resolver      *PlaceholderResolver
}

func (h *sendNotificationHandler) Execute(ctx context.Context, action Action, trigger TriggerContext) ActionResult {
	recipients := make(map[uuid.UUID]struct{})

	if configBool(action.Config, "notify_owner") {
		if ownerID, err := uuid.Parse(stringify(trigger.Record["owner_id"])); err == nil {
			recipients[ownerID] = struct{}{}
		}
	}

	if ids, ok := action.Config["user_ids"].([]interface{}); ok {
		for _, raw := range ids {
			if userID, err := uuid.Parse(stringify(raw)); err == nil {
				recipients[userID] = struct{}{}
			}
		}
	}

	if len(recipients) == 0 {
		return failure("no notification recipients resolved")
	}

	title := h.resolver.Resolve(configString(action.Config, "title"), trigger)
	body := h.resolver.Resolve(configString(action.Config, "body"), trigger)

	sent := 0
	for userID := range recipients {
		notification := &Notification{
			TenantID: trigger.TenantID,
			UserID:   userID,
			Title:    title,
			Body:     body,
		}
		if err := h.notifications.CreateNotification(ctx, notification); err != nil {
			return failure(fmt.Sprintf("failed to create notification for %s: %v", userID, err))
		}
		sent++
	}

	return success(map[string]interface{}{"recipients": sent})
}

// webhookHandler issues an outbound HTTP call. Transport errors and non-2xx
// responses are failure results, never propagated errors, so a broken
// endpoint degrades a single action instead of the trigger pipeline.
type webhookHandler struct {
	client   *http.Client
	resolver *PlaceholderResolver
}

func (h *webhookHandler) Execute(ctx context.Context, action Action, trigger TriggerContext) ActionResult {
	url := configString(action.Config, "url")
	if url == "" {
		return failure("url is required for webhook_call action")
	}

	method := strings.ToUpper(configString(action.Config, "method"))
	if method == "" {
		method = http.MethodPost
	}

	var body []byte
	if template := configString(action.Config, "body_template"); template != "" {
		body = []byte(h.resolver.Resolve(template, trigger))
	} else {
		var err error
		body, err = json.Marshal(trigger.Record)
		if err != nil {
			return failure(fmt.Sprintf("failed to marshal request body: %v", err))
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(body))
	if err != nil {
		return failure(fmt.Sprintf("failed to build webhook request: %v", err))
	}

	if headers, ok := action.Config["headers"].(map[string]interface{}); ok {
		for key, value := range headers {
			req.Header.Set(key, stringify(value))
		}
	}
	if req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return failure(fmt.Sprintf("webhook request failed: %v", err))
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return failure(fmt.Sprintf("webhook returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody))))
	}

	return success(map[string]interface{}{"status_code": resp.StatusCode})
}

// createRecordHandler inserts a new CRM record built from field mappings;
// mapping values wrapped in {{...}} go through the placeholder resolver
type createRecordHandler struct {
	records  RecordStore
	resolver *PlaceholderResolver
}

func (h *createRecordHandler) Execute(ctx context.Context, action Action, trigger TriggerContext) ActionResult {
	entityType := EntityType(configString(action.Config, "record_entity_type"))
	if !IsKnownEntityType(entityType) {
		return failure(fmt.Sprintf("unknown record_entity_type: %s", entityType))
	}

	fields := make(map[string]interface{})
	if mappings, ok := action.Config["field_mappings"].(map[string]interface{}); ok {
		for field, raw := range mappings {
			if template, isString := raw.(string); isString && strings.Contains(template, "{{") {
				fields[field] = h.resolver.Resolve(template, trigger)
			} else {
				fields[field] = raw
			}
		}
	}

	recordID, err := h.records.Insert(ctx, trigger.TenantID, entityType, fields)
	if err != nil {
		return failure(fmt.Sprintf("failed to create %s record: %v", entityType, err))
	}

	return success(map[string]interface{}{"record_id": recordID.String()})
}

// sendEmailHandler is a stub: mail delivery belongs to the external mail
// integration, so the action succeeds without sending anything
type sendEmailHandler struct{}

func (h *sendEmailHandler) Execute(_ context.Context, _ Action, _ TriggerContext) ActionResult {
	log.Debug().Msg("send_email action invoked, mail integration not wired")
	return success(map[string]interface{}{"status": "skipped", "note": "email delivery not configured"})
}

func configString(config map[string]interface{}, key string) string {
	value, _ := config[key].(string)
	return value
}

func configBool(config map[string]interface{}, key string) bool {
	value, _ := config[key].(bool)
	return value
}

func configInt(config map[string]interface{}, key string) int {
	num, err := toFloat64(config[key])
	if err != nil {
		return 0
	}
	return int(num)
}

func configUUID(config map[string]interface{}, key string) (uuid.UUID, bool) {
	raw := configString(config, key)
	if raw == "" {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}
