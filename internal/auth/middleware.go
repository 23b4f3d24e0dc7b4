package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"metadesk-backend/internal/engine"
)

// HeaderAPIKey carries the agent API key.
const HeaderAPIKey = "X-API-Key"

// AuthMiddleware returns a Fiber middleware that validates JWT tokens
// and sets the UserContext on the request.
func AuthMiddleware(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get("Authorization")
		if header == "" {
			return engine.UnauthorizedError("Missing auth token")
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return engine.UnauthorizedError("Invalid auth header format")
		}

		claims, err := ParseAccessToken(parts[1], secret)
		if err != nil {
			return engine.UnauthorizedError("Invalid or expired token")
		}

		c.Locals("user", claims.User())
		return c.Next()
	}
}

// RequireAPIKey guards the agent endpoints. An empty hash disables them.
func RequireAPIKey(hash string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if hash == "" {
			return engine.ForbiddenError("Agent access is disabled")
		}
		key := c.Get(HeaderAPIKey)
		if key == "" {
			return engine.UnauthorizedError("Missing API key")
		}
		if !CheckAPIKey(key, hash) {
			return engine.UnauthorizedError("Invalid API key")
		}
		return c.Next()
	}
}
