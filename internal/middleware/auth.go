package middleware

import (
	"papertrade-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// RequireAuth rejects requests without a valid account in the session.
func RequireAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := AccountID(c); !ok {
			return response.Unauthorized(c, "Unauthorized")
		}
		return c.Next()
	}
}

// GetAccount returns the session account from Locals (nil if not logged in).
func GetAccount(c *fiber.Ctx) interface{} {
	return c.Locals(accountLocal)
}

// AccountID parses the account id out of the session.
func AccountID(c *fiber.Ctx) (uuid.UUID, bool) {
	m, ok := GetAccount(c).(map[string]interface{})
	if !ok {
		return uuid.Nil, false
	}
	s, _ := m["account_id"].(string)
	id, err := uuid.Parse(s)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, false
	}
	return id, true
}
