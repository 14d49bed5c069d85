// handlers/progress_routes.go
package handlers

import (
	"errors"

	"treasure-hunt-api/middleware"
	"treasure-hunt-api/services"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

func SetupProgressRoutes(app *fiber.App, db *gorm.DB, authService *services.AuthService, progressionService *services.ProgressionService) {
	progress := app.Group("/api/v1/progress", middleware.RequireAuth(authService, db))

	progress.Post("/stages/:id/unlock", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		prog, err := progressionService.UnlockStage(userID, c.Params("id"))
		if err != nil {
			switch {
			case errors.Is(err, gorm.ErrRecordNotFound):
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "stage not found"})
			case errors.Is(err, services.ErrContentNotJoined), errors.Is(err, services.ErrStageLocked):
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
			default:
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "unlock failed", "cause": err.Error()})
			}
		}
		return c.JSON(prog)
	})

	progress.Post("/stages/:id/clear", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		type Req struct {
			PlayTimeSec *int `json:"play_time_sec"`
		}
		var req Req
		if err := c.BodyParser(&req); err != nil && len(c.Body()) > 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid JSON",
				"cause": err.Error(),
			})
		}

		outcome, err := progressionService.ClearStage(userID, c.Params("id"), req.PlayTimeSec)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "stage not found"})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "clear failed", "cause": err.Error()})
		}
		return c.JSON(outcome)
	})

	progress.Post("/contents/:id/claim-reward", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		ledgerID, balance, err := progressionService.ClaimContentReward(userID, c.Params("id"))
		if err != nil {
			switch {
			case errors.Is(err, gorm.ErrRecordNotFound):
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "content not found"})
			case errors.Is(err, services.ErrContentNotCleared), errors.Is(err, services.ErrRewardAlreadyTaken):
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
			default:
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "claim failed", "cause": err.Error()})
			}
		}
		return c.JSON(fiber.Map{
			"ledger_id":   ledgerID,
			"new_balance": balance,
		})
	})
}
