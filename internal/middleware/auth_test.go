package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/renderdeck/api/internal/auth"
)

const testSecret = "middleware-test-secret"

func setupAuthApp() *fiber.App {
	m := NewAuthMiddleware(testSecret)
	app := fiber.New()
	app.Get("/protected", m.Authenticate(), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"userId": GetUserID(c)})
	})
	return app
}

func TestAuthenticate_ValidToken(t *testing.T) {
	app := setupAuthApp()

	token, err := auth.IssueSessionToken("user-42", "op@example.com", testSecret, time.Hour)
	if err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

func TestAuthenticate_MissingHeader(t *testing.T) {
	app := setupAuthApp()

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestAuthenticate_BadFormat(t *testing.T) {
	app := setupAuthApp()

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Token abc")
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for non-bearer scheme, got %d", resp.StatusCode)
	}
}

func TestAuthenticate_WrongSecret(t *testing.T) {
	app := setupAuthApp()

	token, err := auth.IssueSessionToken("user-42", "op@example.com", "other-secret", time.Hour)
	if err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for foreign signature, got %d", resp.StatusCode)
	}
}
