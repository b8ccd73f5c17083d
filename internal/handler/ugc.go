package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/renderdeck/api/internal/model"
	"github.com/renderdeck/api/internal/service"
	"github.com/renderdeck/api/pkg/response"
)

type UGCHandler struct {
	service   *service.UGCService
	validator *validator.Validate
}

func NewUGCHandler(svc *service.UGCService, v *validator.Validate) *UGCHandler {
	return &UGCHandler{
		service:   svc,
		validator: v,
	}
}

// Start handles POST /api/ugc/start
func (h *UGCHandler) Start(c *fiber.Ctx) error {
	var req model.UGCStartRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	result, err := h.service.StartRun(c.Context(), &req)
	if err != nil {
		return response.ServiceError(c, err.Error())
	}

	return response.Accepted(c, result)
}

// Status handles GET /api/ugc/status/:runId
func (h *UGCHandler) Status(c *fiber.Ctx) error {
	runID := c.Params("runId")
	if runID == "" {
		return response.ValidationError(c, "Run ID is required", nil)
	}

	result, err := h.service.GetStatus(c.Context(), runID)
	if err != nil {
		if errors.Is(err, service.ErrRunNotFound) {
			return response.NotFound(c, "Run not found")
		}
		return response.ServiceError(c, err.Error())
	}

	return response.OK(c, result)
}

// Result handles GET /api/ugc/result/:runId
func (h *UGCHandler) Result(c *fiber.Ctx) error {
	runID := c.Params("runId")
	if runID == "" {
		return response.ValidationError(c, "Run ID is required", nil)
	}

	result, err := h.service.GetResult(c.Context(), runID)
	if err != nil {
		if errors.Is(err, service.ErrRunNotFound) {
			return response.NotFound(c, "Run not found")
		}
		if errors.Is(err, service.ErrRunNotCompleted) {
			return response.ValidationError(c, "Run not completed yet", nil)
		}
		return response.ServiceError(c, err.Error())
	}

	return response.OK(c, result)
}

// Estimate handles POST /api/ugc/estimate
func (h *UGCHandler) Estimate(c *fiber.Ctx) error {
	var req model.UGCEstimateRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	return response.OK(c, h.service.Estimate(&req))
}
