package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/nimbuscrm/crm-backend/internal/core/workflow"
	"github.com/nimbuscrm/crm-backend/internal/modules/crm/services"
)

// EventHandler ingests CRM record events and hands them to the workflow engine
type EventHandler struct {
	workflowService *services.WorkflowService
}

// NewEventHandler creates a new event handler
func NewEventHandler(workflowService *services.WorkflowService) *EventHandler {
	return &EventHandler{
		workflowService: workflowService,
	}
}

// EventRequest is the payload for a CRM record event
type EventRequest struct {
	TenantID   uuid.UUID              `json:"tenant_id"`
	UserID     *uuid.UUID             `json:"user_id,omitempty"`
	EntityType string                 `json:"entity_type"`
	EntityID   uuid.UUID              `json:"entity_id"`
	Trigger    string                 `json:"trigger"`
	Record     map[string]interface{} `json:"record"`
	Payload    map[string]interface{} `json:"payload,omitempty"`
}

// HandleEvent godoc
// @Summary Submit a CRM record event
// @Description Accept a record event and run matching workflows in the background. The event is always accepted; workflow outcomes are reported through execution logs, never to the event producer.
// @Tags Events
// @Accept json
// @Produce json
// @Param event body EventRequest true "Record event"
// @Success 202 {object} map[string]interface{}
// @Failure 400 {object} map[string]string
// @Router /events [post]
func (h *EventHandler) HandleEvent(c *fiber.Ctx) error {
	var req EventRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}

	if req.TenantID == uuid.Nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "tenant_id is required",
		})
	}
	if req.EntityID == uuid.Nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "entity_id is required",
		})
	}

	trigger := workflow.TriggerContext{
		TenantID:   req.TenantID,
		UserID:     req.UserID,
		EntityType: workflow.EntityType(req.EntityType),
		EntityID:   req.EntityID,
		Trigger:    workflow.TriggerType(req.Trigger),
		Record:     req.Record,
		Payload:    req.Payload,
	}
	if trigger.Record == nil {
		trigger.Record = map[string]interface{}{}
	}

	if err := h.workflowService.HandleEvent(trigger); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"status":  "accepted",
		"message": "Event queued for workflow processing",
	})
}
