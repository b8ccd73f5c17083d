package handler

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/renderdeck/api/internal/client"
	"github.com/renderdeck/api/internal/store"
	"github.com/renderdeck/api/pkg/response"
)

// SettingsHandler manages the operator's session credential. The key lives
// only in process memory; restarting the service clears it unless supplied
// via configuration.
type SettingsHandler struct {
	kie  *client.KieClient
	alog *store.ActivityLog
}

func NewSettingsHandler(kie *client.KieClient, alog *store.ActivityLog) *SettingsHandler {
	return &SettingsHandler{
		kie:  kie,
		alog: alog,
	}
}

// Get handles GET /api/settings
func (h *SettingsHandler) Get(c *fiber.Ctx) error {
	return response.OK(c, fiber.Map{
		"configured": h.kie.IsConfigured(),
		"apiKey":     h.kie.MaskedAPIKey(),
	})
}

// Update handles PUT /api/settings
func (h *SettingsHandler) Update(c *fiber.Ctx) error {
	var req struct {
		APIKey string `json:"apiKey"`
	}
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}
	if strings.TrimSpace(req.APIKey) == "" {
		return response.ValidationError(c, "apiKey is required", nil)
	}

	h.kie.SetAPIKey(req.APIKey)
	h.alog.Appendf("System Configuration Updated: API Key Saved.")

	return response.OK(c, fiber.Map{
		"configured": true,
		"apiKey":     h.kie.MaskedAPIKey(),
	})
}

// Credits handles GET /api/credits
func (h *SettingsHandler) Credits(c *fiber.Ctx) error {
	if !h.kie.IsConfigured() {
		return response.NotConfigured(c, "API key missing. Configure in Settings.")
	}

	credits, err := h.kie.GetCredits(c.Context())
	if err != nil {
		return response.GatewayError(c, err.Error())
	}

	return response.OK(c, fiber.Map{
		"credits": credits,
	})
}
