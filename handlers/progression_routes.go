// handlers/progression_routes.go
package handlers

import (
	"game-session-service/middleware"
	"game-session-service/services"

	"github.com/gofiber/fiber/v2"
)

func rankName(rank int) string {
	switch rank {
	case 2:
		return "Silver"
	case 3:
		return "Gold"
	case 4:
		return "Platinum"
	case 5:
		return "Diamond"
	default:
		return "Bronze"
	}
}

func SetupProgressionRoutes(app *fiber.App, progressionService *services.ProgressionService) {
	securedGroup := app.Group("/user", middleware.UserContextMiddleware())

	securedGroup.Get("/progress", func(c *fiber.Ctx) error {
		prog, err := progressionService.GetProgress(c.UserContext(), middleware.UserID(c))
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{
			"xp":                 prog.TotalXP,
			"level":              prog.Level,
			"rank":               prog.Rank,
			"rank_name":          rankName(prog.Rank),
			"sessions_completed": prog.SessionsCompleted,
			"last_level_up_at":   prog.LastLevelUpAt,
			"last_rank_up_at":    prog.LastRankUpAt,
		})
	})
}
