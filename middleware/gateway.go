// middleware/gateway.go
package middleware

import (
	"crypto/subtle"
	"log"
	"strings"

	"game-session-service/services"

	"github.com/gofiber/fiber/v2"
)

// GatewayAuthMiddleware admits only requests carrying the gateway's service token.
// /health stays open for load balancer health checks.
func GatewayAuthMiddleware(expectedToken string) fiber.Handler {
	if expectedToken == "" {
		log.Fatal("❌ GAME_SERVICE_TOKEN is not set — service cannot authenticate Gateway")
	}
	expected := []byte(expectedToken)

	return func(c *fiber.Ctx) error {
		if c.Path() == "/health" {
			return c.Next()
		}

		header := c.Get(fiber.HeaderAuthorization)
		if header == "" {
			log.Printf("🚫 [GATEWAY_AUTH] Missing Authorization header for %s", c.Path())
			return services.ErrGatewayUnauthorized("gateway authentication token missing")
		}

		// "Bearer <token>" or the raw token
		token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
		if subtle.ConstantTimeCompare([]byte(token), expected) != 1 {
			log.Printf("❌ [GATEWAY_AUTH] Invalid token for %s from %s", c.Path(), c.IP())
			return services.ErrGatewayUnauthorized("invalid gateway authentication token")
		}
		return c.Next()
	}
}
