// middleware/rate_limit.go
package middleware

import (
	"log"

	"game-session-service/services"

	"github.com/gofiber/fiber/v2"
)

// RateLimit checks the per-user and per-IP buckets for action before the handler runs.
// Limiter backend failures fail open: availability wins over throttling.
func RateLimit(action string, limiter services.RateLimiter) fiber.Handler {
	return func(c *fiber.Ctx) error {
		keys := []string{
			action + ":user:" + UserID(c),
			action + ":ip:" + c.IP(),
		}
		for _, key := range keys {
			decision, err := limiter.Allow(c.UserContext(), key)
			if err != nil {
				log.Printf("⚠️  [RATE_LIMIT] limiter unavailable for %s: %v", key, err)
				continue
			}
			if !decision.Allowed {
				log.Printf("🚫 [RATE_LIMIT] %s throttled for %s", key, decision.RetryAfter)
				return services.ErrRateLimited(decision.RetryAfter)
			}
		}
		return c.Next()
	}
}
