package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/renderdeck/api/internal/model"
	"github.com/renderdeck/api/internal/service"
	"github.com/renderdeck/api/pkg/response"
)

type TaskHandler struct {
	service   *service.TaskService
	validator *validator.Validate
}

func NewTaskHandler(svc *service.TaskService, v *validator.Validate) *TaskHandler {
	return &TaskHandler{
		service:   svc,
		validator: v,
	}
}

// Submit handles POST /api/tasks
func (h *TaskHandler) Submit(c *fiber.Ctx) error {
	var req model.SubmitTaskRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	task, err := h.service.Submit(c.Context(), &req)
	if err != nil {
		if errors.Is(err, service.ErrNotConfigured) {
			return response.NotConfigured(c, "API key missing. Configure in Settings.")
		}
		return response.GatewayError(c, err.Error())
	}

	return response.Accepted(c, task)
}

// List handles GET /api/tasks
func (h *TaskHandler) List(c *fiber.Ctx) error {
	return response.OK(c, h.service.List())
}

// Get handles GET /api/tasks/:taskId
func (h *TaskHandler) Get(c *fiber.Ctx) error {
	taskID := c.Params("taskId")
	if taskID == "" {
		return response.ValidationError(c, "Task ID is required", nil)
	}

	task, err := h.service.Get(taskID)
	if err != nil {
		return response.NotFound(c, "Task not found")
	}
	return response.OK(c, task)
}

// Artifact handles GET /api/tasks/:taskId/artifact
func (h *TaskHandler) Artifact(c *fiber.Ctx) error {
	taskID := c.Params("taskId")
	if taskID == "" {
		return response.ValidationError(c, "Task ID is required", nil)
	}

	artifact, err := h.service.Artifact(taskID)
	if err != nil {
		return response.NotFound(c, "Task not found")
	}
	return response.OK(c, artifact)
}

// MarkRead handles POST /api/tasks/:taskId/read
func (h *TaskHandler) MarkRead(c *fiber.Ctx) error {
	taskID := c.Params("taskId")
	if taskID == "" {
		return response.ValidationError(c, "Task ID is required", nil)
	}

	if err := h.service.MarkRead(taskID); err != nil {
		return response.NotFound(c, "Task not found")
	}
	return response.NoContent(c)
}

// Reset handles DELETE /api/tasks
func (h *TaskHandler) Reset(c *fiber.Ctx) error {
	h.service.Reset()
	return response.NoContent(c)
}

// Logs handles GET /api/logs
func (h *TaskHandler) Logs(c *fiber.Ctx) error {
	return response.OK(c, fiber.Map{
		"lines": h.service.Logs(),
	})
}

func formatValidationErrors(err error) interface{} {
	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		errors := make(map[string]string)
		for _, e := range validationErrors {
			errors[e.Field()] = e.Tag()
		}
		return errors
	}
	return nil
}
