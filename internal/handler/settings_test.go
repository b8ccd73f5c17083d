package handler

import (
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/renderdeck/api/internal/client"
	"github.com/renderdeck/api/internal/config"
	"github.com/renderdeck/api/internal/store"
)

func setupSettingsApp(apiKey string) (*fiber.App, *store.ActivityLog) {
	kie := client.NewKieClient(&config.KieConfig{APIKey: apiKey})
	alog := store.NewActivityLog(store.DefaultLogCapacity, nil)
	h := NewSettingsHandler(kie, alog)

	app := fiber.New()
	app.Get("/api/settings", h.Get)
	app.Put("/api/settings", h.Update)
	app.Get("/api/credits", h.Credits)
	return app, alog
}

func TestSettingsGet_Unconfigured(t *testing.T) {
	app, _ := setupSettingsApp("")

	resp := doJSON(t, app, http.MethodGet, "/api/settings", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	body := parseBody(t, resp)
	if body["configured"] != false {
		t.Errorf("expected configured=false, got %v", body["configured"])
	}
	if body["apiKey"] != "" {
		t.Errorf("expected empty masked key, got %v", body["apiKey"])
	}
}

func TestSettingsUpdate(t *testing.T) {
	app, alog := setupSettingsApp("")

	resp := doJSON(t, app, http.MethodPut, "/api/settings", `{"apiKey":"sk-live-7890"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	body := parseBody(t, resp)
	if body["configured"] != true {
		t.Errorf("expected configured=true, got %v", body["configured"])
	}
	if body["apiKey"] != "****7890" {
		t.Errorf("expected masked key ****7890, got %v", body["apiKey"])
	}

	lines := alog.Lines()
	if len(lines) != 1 {
		t.Fatalf("expected 1 log line, got %d", len(lines))
	}
}

func TestSettingsUpdate_EmptyKey(t *testing.T) {
	app, _ := setupSettingsApp("")

	resp := doJSON(t, app, http.MethodPut, "/api/settings", `{"apiKey":"   "}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for blank key, got %d", resp.StatusCode)
	}
}

func TestCredits_NotConfigured(t *testing.T) {
	app, _ := setupSettingsApp("")

	resp := doJSON(t, app, http.MethodGet, "/api/credits", "")
	if resp.StatusCode != http.StatusPreconditionFailed {
		t.Fatalf("expected 412, got %d", resp.StatusCode)
	}
	if code := errorCode(t, resp); code != "NOT_CONFIGURED" {
		t.Errorf("expected NOT_CONFIGURED, got %q", code)
	}
}
