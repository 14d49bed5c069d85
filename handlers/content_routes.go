// handlers/content_routes.go
package handlers

import (
	"errors"
	"time"

	"treasure-hunt-api/middleware"
	"treasure-hunt-api/models"
	"treasure-hunt-api/services"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

func SetupContentRoutes(app *fiber.App, db *gorm.DB, authService *services.AuthService, progressionService *services.ProgressionService) {
	contents := app.Group("/api/v1/contents", middleware.RequireAuth(authService, db))

	// Open contents currently inside their window, filtered by exposure tab.
	contents.Get("/", func(c *fiber.Ctx) error {
		exposure := c.Query("exposure_type")

		q := db.Model(&models.Content{}).Where("is_open = ?", true)
		if exposure != "" {
			q = q.Where("exposure_type = ?", exposure)
		}

		var rows []models.Content
		if err := q.Order("created_at DESC").Find(&rows).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error", "cause": err.Error()})
		}

		now := time.Now()
		available := make([]models.Content, 0, len(rows))
		for _, row := range rows {
			if row.AvailableAt(now) {
				available = append(available, row)
			}
		}
		return c.JSON(available)
	})

	contents.Get("/:id", func(c *fiber.Ctx) error {
		var content models.Content
		if err := db.Where("id = ?", c.Params("id")).First(&content).Error; err != nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "content not found"})
		}

		var stages []models.Stage
		if err := db.Where("content_id = ? AND is_open = ?", content.ID, true).
			Order("stage_no ASC").
			Find(&stages).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error", "cause": err.Error()})
		}

		return c.JSON(fiber.Map{
			"content": content,
			"stages":  stages,
		})
	})

	contents.Get("/:id/progress", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		contentID := c.Params("id")

		prog, err := progressionService.ContentProgress(userID, contentID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error", "cause": err.Error()})
		}
		stages, err := progressionService.StageProgressList(userID, contentID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error", "cause": err.Error()})
		}
		return c.JSON(fiber.Map{
			"content": prog,
			"stages":  stages,
		})
	})

	contents.Post("/:id/join", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		prog, err := progressionService.JoinContent(userID, c.Params("id"))
		if err != nil {
			switch {
			case errors.Is(err, gorm.ErrRecordNotFound):
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "content not found"})
			case errors.Is(err, services.ErrContentClosed), errors.Is(err, services.ErrPrerequisiteContent):
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
			default:
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "join failed", "cause": err.Error()})
			}
		}
		return c.JSON(prog)
	})

	contents.Post("/:id/leave", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		if err := progressionService.LeaveContent(userID, c.Params("id")); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not joined"})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "leave failed", "cause": err.Error()})
		}
		return c.JSON(fiber.Map{"message": "left content"})
	})

	stages := app.Group("/api/v1/stages", middleware.RequireAuth(authService, db))

	stages.Get("/:id", func(c *fiber.Ctx) error {
		var stage models.Stage
		if err := db.Where("id = ?", c.Params("id")).First(&stage).Error; err != nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "stage not found"})
		}

		var puzzles []models.StagePuzzle
		db.Where("stage_id = ?", stage.ID).Find(&puzzles)
		var presets []models.StageUnlockPreset
		db.Where("stage_id = ?", stage.ID).Find(&presets)

		usesNFC, err := stageUsesNFC(db, stage.ID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error", "cause": err.Error()})
		}

		return c.JSON(fiber.Map{
			"stage":          stage,
			"puzzles":        puzzles,
			"unlock_presets": presets,
			"uses_nfc":       usesNFC,
		})
	})

	stages.Get("/:id/hints", func(c *fiber.Ctx) error {
		stageID := c.Params("id")
		var count int64
		if err := db.Model(&models.Stage{}).Where("id = ?", stageID).Count(&count).Error; err != nil || count == 0 {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "stage not found"})
		}

		var hints []models.StageHint
		if err := db.Where("stage_id = ?", stageID).Order("order_no ASC").Find(&hints).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error", "cause": err.Error()})
		}

		out := make([]fiber.Map, 0, len(hints))
		for _, h := range hints {
			var images []models.HintImage
			db.Where("hint_id = ?", h.ID).Order("order_no ASC").Find(&images)
			out = append(out, fiber.Map{
				"hint":   h,
				"images": images,
			})
		}
		return c.JSON(out)
	})
}

// stageUsesNFC is derived, never stored: a stage uses NFC when any of its
// hints binds a tag.
func stageUsesNFC(db *gorm.DB, stageID string) (bool, error) {
	var count int64
	err := db.Model(&models.StageHint{}).
		Where("stage_id = ? AND nfc_id IS NOT NULL", stageID).
		Count(&count).Error
	return count > 0, err
}
