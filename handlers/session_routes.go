// handlers/session_routes.go
package handlers

import (
	"time"

	"game-session-service/middleware"
	"game-session-service/services"

	"github.com/gofiber/fiber/v2"
)

type SessionHandler struct {
	manager *services.SessionManager
}

// SessionView is what a client may see of its own session.
type SessionView struct {
	SessionID   string     `json:"sessionId"`
	GameID      string     `json:"gameId"`
	Status      string     `json:"status"`
	StartedAt   time.Time  `json:"startedAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	Score       int64      `json:"score"`
	DurationMs  int64      `json:"durationMs"`
}

func SetupSessionRoutes(app *fiber.App, manager *services.SessionManager, startLimiter, signLimiter services.RateLimiter) {
	h := &SessionHandler{manager: manager}

	// 🔐 Every session route needs the gateway-supplied user identity
	secured := app.Group("/sessions", middleware.UserContextMiddleware())

	secured.Post("/start", middleware.RateLimit("start", startLimiter), h.Start)
	secured.Post("/sign", middleware.RateLimit("sign", signLimiter), h.Sign)
	secured.Post("/complete", h.Complete)
	secured.Get("/:id", h.Get)
}

func (h *SessionHandler) Start(c *fiber.Ctx) error {
	var req StartRequest
	if err := decodeStrict(c, &req); err != nil {
		return err
	}
	res, err := h.manager.Start(c.UserContext(), services.StartInput{
		UserID:        middleware.UserID(c),
		GameSlug:      req.GameSlug,
		ClientVersion: req.ClientVersion,
		IP:            c.IP(),
		DeviceID:      middleware.DeviceID(c),
	})
	if err != nil {
		return err
	}
	return c.JSON(res)
}

func (h *SessionHandler) Sign(c *fiber.Ctx) error {
	var req SignRequest
	if err := decodeStrict(c, &req); err != nil {
		return err
	}
	res, err := h.manager.Sign(c.UserContext(), services.SignInput{
		UserID:        middleware.UserID(c),
		SessionID:     req.SessionID,
		Score:         *req.Score,
		DurationMs:    *req.DurationMs,
		Nonce:         req.Nonce,
		ClientVersion: req.ClientVersion,
	})
	if err != nil {
		return err
	}
	return c.JSON(res)
}

func (h *SessionHandler) Complete(c *fiber.Ctx) error {
	var req CompleteRequest
	if err := decodeStrict(c, &req); err != nil {
		return err
	}
	res, err := h.manager.Complete(c.UserContext(), services.CompleteInput{
		UserID:     middleware.UserID(c),
		SessionID:  req.SessionID,
		Score:      *req.Score,
		DurationMs: *req.DurationMs,
		Nonce:      req.Nonce,
		Signature:  req.Signature,
		IP:         c.IP(),
	})
	if err != nil {
		return err
	}
	return c.JSON(res)
}

func (h *SessionHandler) Get(c *fiber.Ctx) error {
	s, err := h.manager.Session(c.UserContext(), middleware.UserID(c), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(SessionView{
		SessionID:   s.ID,
		GameID:      s.GameID,
		Status:      string(s.Status),
		StartedAt:   s.StartedAt,
		CompletedAt: s.CompletedAt,
		Score:       s.Score,
		DurationMs:  s.DurationMs,
	})
}
