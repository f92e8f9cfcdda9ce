// handlers/errors.go
package handlers

import (
	"errors"
	"log"
	"math"
	"strconv"

	"game-session-service/services"

	"github.com/gofiber/fiber/v2"
)

var kindStatus = map[services.ErrorKind]int{
	services.KindAuthenticationRequired: fiber.StatusUnauthorized,
	services.KindNotFound:               fiber.StatusNotFound,
	services.KindForbidden:              fiber.StatusForbidden,
	services.KindBadRequest:             fiber.StatusBadRequest,
	services.KindConflict:               fiber.StatusConflict,
	services.KindRateLimited:            fiber.StatusTooManyRequests,
	services.KindServerError:            fiber.StatusInternalServerError,
}

// ErrorHandler is the Fiber error handler: every handler and middleware returns errors
// and this renders them as {"error": code, "message": text}.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var se *services.ServiceError
	if errors.As(err, &se) {
		status, ok := kindStatus[se.Kind]
		if !ok {
			status = fiber.StatusInternalServerError
		}
		body := fiber.Map{"error": se.Code, "message": se.Message}

		if se.Kind == services.KindServerError {
			log.Printf("❌ [HTTP] %s %s: %v", c.Method(), c.Path(), err)
			body["message"] = "internal error"
		}
		if se.Kind == services.KindRateLimited {
			secs := int(math.Ceil(se.RetryAfter.Seconds()))
			if secs < 1 {
				secs = 1
			}
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(secs))
			body["retryAfter"] = secs
		}
		return c.Status(status).JSON(body)
	}

	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(fiber.Map{"error": codeForStatus(fe.Code), "message": fe.Message})
	}

	log.Printf("❌ [HTTP] %s %s: %v", c.Method(), c.Path(), err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error":   services.CodeServerError,
		"message": "internal error",
	})
}

func codeForStatus(status int) string {
	switch status {
	case fiber.StatusNotFound:
		return services.CodeNotFound
	case fiber.StatusBadRequest, fiber.StatusMethodNotAllowed, fiber.StatusRequestEntityTooLarge:
		return services.CodeBadRequest
	default:
		return services.CodeServerError
	}
}
