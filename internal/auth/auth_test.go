package auth

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"

	"metadesk-backend/internal/engine"
	"metadesk-backend/internal/metadata"
)

const secret = "test-secret"

func TestAccessTokenRoundTrip(t *testing.T) {
	token, err := GenerateAccessToken(metadata.UserContext{ID: "u1", OrganizationID: "org1", Roles: []string{"admin"}}, secret, 0)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	claims, err := ParseAccessToken(token, secret)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	user := claims.User()
	if user.ID != "u1" || user.Organization() != "org1" || !user.IsAdmin() {
		t.Fatalf("unexpected user %+v", user)
	}

	if _, err := ParseAccessToken(token, "other-secret"); err == nil {
		t.Fatal("expected a signature error for the wrong secret")
	}

	fallback, _ := GenerateAccessToken(metadata.UserContext{ID: "u1"}, secret, -time.Minute)
	if _, err := ParseAccessToken(fallback, secret); err != nil {
		t.Fatalf("negative ttl falls back to the default ttl, got %v", err)
	}
}

func testApp(mw fiber.Handler) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: engine.ErrorHandler(nil)})
	app.Get("/", mw, func(c *fiber.Ctx) error {
		user, _ := c.Locals("user").(*metadata.UserContext)
		if user == nil {
			return c.SendString("anonymous")
		}
		return c.SendString(user.Organization())
	})
	return app
}

func TestAuthMiddleware(t *testing.T) {
	app := testApp(AuthMiddleware(secret))
	token, _ := GenerateAccessToken(metadata.UserContext{ID: "u1", OrganizationID: "org1"}, secret, time.Minute)

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"missing", "", 401},
		{"wrong scheme", "Basic abc", 401},
		{"garbage", "Bearer abc", 401},
		{"valid", "Bearer " + token, 200},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := app.Test(req, -1)
			if err != nil {
				t.Fatalf("request failed: %v", err)
			}
			if resp.StatusCode != tt.status {
				t.Fatalf("expected %d, got %d", tt.status, resp.StatusCode)
			}
		})
	}
}

func TestRequireAPIKey(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		hash   string
		key    string
		status int
	}{
		{"disabled", "", "s3cret", 403},
		{"missing key", string(hash), "", 401},
		{"wrong key", string(hash), "nope", 401},
		{"valid key", string(hash), "s3cret", 200},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := testApp(RequireAPIKey(tt.hash))
			req := httptest.NewRequest("GET", "/", nil)
			if tt.key != "" {
				req.Header.Set(HeaderAPIKey, tt.key)
			}
			resp, err := app.Test(req, -1)
			if err != nil {
				t.Fatalf("request failed: %v", err)
			}
			if resp.StatusCode != tt.status {
				t.Fatalf("expected %d, got %d", tt.status, resp.StatusCode)
			}
		})
	}
}

func TestHashAPIKey(t *testing.T) {
	hash, err := HashAPIKey("k")
	if err != nil {
		t.Fatal(err)
	}
	if !CheckAPIKey("k", hash) || CheckAPIKey("x", hash) {
		t.Fatal("hash does not verify its own key only")
	}
}
