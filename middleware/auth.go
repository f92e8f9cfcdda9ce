// middleware/auth.go
package middleware

import (
	"strings"

	"game-session-service/services"

	"github.com/gofiber/fiber/v2"
)

const (
	UserIDLocal   = "user_id"
	DeviceIDLocal = "device_id"
)

// UserContextMiddleware extracts the user identity set by Gateway. Requests without
// X-User-ID are rejected with authentication_required.
func UserContextMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := strings.TrimSpace(c.Get("X-User-ID"))
		if userID == "" {
			return services.ErrAuthenticationRequired()
		}

		c.Locals(UserIDLocal, userID)
		c.Locals(DeviceIDLocal, strings.TrimSpace(c.Get("X-Device-ID")))
		return c.Next()
	}
}

// UserID returns the identity attached by UserContextMiddleware.
func UserID(c *fiber.Ctx) string {
	id, _ := c.Locals(UserIDLocal).(string)
	return id
}

// DeviceID returns the client device fingerprint, if the gateway forwarded one.
func DeviceID(c *fiber.Ctx) string {
	id, _ := c.Locals(DeviceIDLocal).(string)
	return id
}
