package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "unit-test-secret"

func TestSessionToken_RoundTrip(t *testing.T) {
	token, err := IssueSessionToken("user-1", "op@example.com", testSecret, time.Hour)
	if err != nil {
		t.Fatalf("IssueSessionToken: %v", err)
	}

	claims, err := ValidateSessionToken(token, testSecret)
	if err != nil {
		t.Fatalf("ValidateSessionToken: %v", err)
	}
	if claims.UserID != "user-1" || claims.Email != "op@example.com" {
		t.Errorf("unexpected claims %+v", claims)
	}
}

func TestSessionToken_WrongSecret(t *testing.T) {
	token, err := IssueSessionToken("user-1", "op@example.com", testSecret, time.Hour)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := ValidateSessionToken(token, "other-secret"); err == nil {
		t.Error("expected validation failure with wrong secret")
	}
}

func TestSessionToken_Expired(t *testing.T) {
	token, err := IssueSessionToken("user-1", "op@example.com", testSecret, -time.Minute)
	if err != nil {
		t.Fatal(err)
	}

	_, err = ValidateSessionToken(token, testSecret)
	if !errors.Is(err, jwt.ErrTokenExpired) {
		t.Errorf("expected expiry error, got %v", err)
	}
}

func TestSessionToken_Garbage(t *testing.T) {
	if _, err := ValidateSessionToken("not-a-jwt", testSecret); err == nil {
		t.Error("expected error for malformed token")
	}
}
