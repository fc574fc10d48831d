package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/nimbuscrm/crm-backend/internal/modules/crm/services"
)

// WorkflowHandler handles workflow-related requests
type WorkflowHandler struct {
	workflowService *services.WorkflowService
}

// NewWorkflowHandler creates a new workflow handler
func NewWorkflowHandler(workflowService *services.WorkflowService) *WorkflowHandler {
	return &WorkflowHandler{
		workflowService: workflowService,
	}
}

// CreateWorkflow godoc
// @Summary Create a new workflow
// @Description Create an automation workflow for a tenant
// @Tags Workflows
// @Accept json
// @Produce json
// @Param tenant_id query string true "Tenant ID"
// @Param workflow body services.CreateWorkflowRequest true "Workflow details"
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} map[string]string
// @Failure 500 {object} map[string]string
// @Router /workflows [post]
func (h *WorkflowHandler) CreateWorkflow(c *fiber.Ctx) error {
	tenantIDStr := c.Query("tenant_id")
	if tenantIDStr == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "tenant_id is required",
		})
	}

	tenantID, err := uuid.Parse(tenantIDStr)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid tenant_id format",
		})
	}

	var req services.CreateWorkflowRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}

	if err := req.Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	createdWorkflow, err := h.workflowService.CreateWorkflow(tenantID, req)
	if err != nil {
		log.Error().Err(err).Msg("failed to create workflow")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to create workflow",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"status":  "success",
		"message": "Workflow created successfully",
		"data":    createdWorkflow,
	})
}

// ListWorkflows godoc
// @Summary List workflows for a tenant
// @Description Retrieve all workflows belonging to a tenant
// @Tags Workflows
// @Produce json
// @Param tenant_id query string true "Tenant ID"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]string
// @Failure 500 {object} map[string]string
// @Router /workflows [get]
func (h *WorkflowHandler) ListWorkflows(c *fiber.Ctx) error {
	tenantIDStr := c.Query("tenant_id")
	if tenantIDStr == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "tenant_id is required",
		})
	}

	tenantID, err := uuid.Parse(tenantIDStr)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid tenant_id format",
		})
	}

	workflows, err := h.workflowService.ListWorkflows(tenantID)
	if err != nil {
		log.Error().Err(err).Msg("failed to list workflows")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to retrieve workflows",
		})
	}

	return c.JSON(fiber.Map{
		"status": "success",
		"count":  len(workflows),
		"data":   workflows,
	})
}

// GetWorkflow godoc
// @Summary Get workflow by ID
// @Description Retrieve a specific workflow with its conditions and actions
// @Tags Workflows
// @Produce json
// @Param id path string true "Workflow ID"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /workflows/{id} [get]
func (h *WorkflowHandler) GetWorkflow(c *fiber.Ctx) error {
	workflowID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid workflow id format",
		})
	}

	wf, err := h.workflowService.GetWorkflow(workflowID)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "workflow not found",
		})
	}

	return c.JSON(fiber.Map{
		"status": "success",
		"data":   wf,
	})
}

// UpdateWorkflow godoc
// @Summary Update a workflow
// @Description Apply a partial update to an existing workflow
// @Tags Workflows
// @Accept json
// @Produce json
// @Param id path string true "Workflow ID"
// @Param workflow body services.UpdateWorkflowRequest true "Updated workflow details"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]string
// @Failure 500 {object} map[string]string
// @Router /workflows/{id} [put]
func (h *WorkflowHandler) UpdateWorkflow(c *fiber.Ctx) error {
	workflowID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid workflow id format",
		})
	}

	var req services.UpdateWorkflowRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}

	updatedWorkflow, err := h.workflowService.UpdateWorkflow(workflowID, req)
	if err != nil {
		log.Error().Err(err).Msg("failed to update workflow")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to update workflow",
		})
	}

	return c.JSON(fiber.Map{
		"status":  "success",
		"message": "Workflow updated successfully",
		"data":    updatedWorkflow,
	})
}

// DeleteWorkflow godoc
// @Summary Delete a workflow
// @Description Delete a workflow and its conditions and actions
// @Tags Workflows
// @Produce json
// @Param id path string true "Workflow ID"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]string
// @Failure 500 {object} map[string]string
// @Router /workflows/{id} [delete]
func (h *WorkflowHandler) DeleteWorkflow(c *fiber.Ctx) error {
	workflowID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid workflow id format",
		})
	}

	if err := h.workflowService.DeleteWorkflow(workflowID); err != nil {
		log.Error().Err(err).Msg("failed to delete workflow")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to delete workflow",
		})
	}

	return c.JSON(fiber.Map{
		"status":  "success",
		"message": "Workflow deleted successfully",
	})
}

// ExecuteWorkflow godoc
// @Summary Manually execute a workflow
// @Description Run a workflow against one record, bypassing its trigger
// @Tags Workflows
// @Accept json
// @Produce json
// @Param id path string true "Workflow ID"
// @Param request body services.ExecuteWorkflowRequest true "Execution target"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]string
// @Failure 500 {object} map[string]string
// @Router /workflows/{id}/execute [post]
func (h *WorkflowHandler) ExecuteWorkflow(c *fiber.Ctx) error {
	workflowID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid workflow id format",
		})
	}

	var req services.ExecuteWorkflowRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}

	if req.EntityID == uuid.Nil && req.Record == nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "entity_id is required",
		})
	}

	if req.Payload == nil {
		req.Payload = make(map[string]interface{})
	}
	req.Payload["triggered_by"] = "manual"

	if err := h.workflowService.ExecuteWorkflow(c.Context(), workflowID, req); err != nil {
		log.Error().Err(err).Str("workflow_id", workflowID.String()).Msg("failed to execute workflow")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to execute workflow",
		})
	}

	return c.JSON(fiber.Map{
		"status":  "success",
		"message": "Workflow executed",
	})
}

// GetWorkflowExecutions godoc
// @Summary Get workflow execution history
// @Description Retrieve recent executions for a workflow
// @Tags Workflows
// @Produce json
// @Param id path string true "Workflow ID"
// @Param limit query int false "Limit number of results" default(50)
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]string
// @Failure 500 {object} map[string]string
// @Router /workflows/{id}/executions [get]
func (h *WorkflowHandler) GetWorkflowExecutions(c *fiber.Ctx) error {
	workflowID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid workflow id format",
		})
	}

	limit := c.QueryInt("limit", 50)

	executions, err := h.workflowService.GetExecutions(workflowID, limit)
	if err != nil {
		log.Error().Err(err).Msg("failed to get executions")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to retrieve executions",
		})
	}

	return c.JSON(fiber.Map{
		"status": "success",
		"count":  len(executions),
		"data":   executions,
	})
}

// GetExecutionActions godoc
// @Summary Get action logs for an execution
// @Description Retrieve the per-action audit trail of one execution
// @Tags Workflows
// @Produce json
// @Param id path string true "Execution ID"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]string
// @Failure 500 {object} map[string]string
// @Router /executions/{id}/actions [get]
func (h *WorkflowHandler) GetExecutionActions(c *fiber.Ctx) error {
	executionID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid execution id format",
		})
	}

	logs, err := h.workflowService.GetActionLogs(executionID)
	if err != nil {
		log.Error().Err(err).Msg("failed to get action logs")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to retrieve action logs",
		})
	}

	return c.JSON(fiber.Map{
		"status": "success",
		"count":  len(logs),
		"data":   logs,
	})
}
