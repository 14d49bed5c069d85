// handlers/admin_contents.go
package handlers

import (
	"time"

	"treasure-hunt-api/middleware"
	"treasure-hunt-api/models"
	"treasure-hunt-api/services"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type contentBody struct {
	Title         *string    `json:"title"`
	Description   *string    `json:"description"`
	ContentType   *string    `json:"content_type"`
	ExposureType  *string    `json:"exposure_type"`
	StartAt       *time.Time `json:"start_at"`
	EndAt         *time.Time `json:"end_at"`
	IsAlwaysOn    *bool      `json:"is_always_on"`
	StageCount    *int       `json:"stage_count"`
	IsSequential  *bool      `json:"is_sequential"`
	RewardCoin    *int       `json:"reward_coin"`
	CenterLat     *float64   `json:"center_lat"`
	CenterLon     *float64   `json:"center_lon"`
	NextContentID *string    `json:"next_content_id"`
	IsOpen        *bool      `json:"is_open"`
}

func SetupAdminContentRoutes(app *fiber.App, db *gorm.DB, authService *services.AuthService) {
	admin := app.Group("/api/v1/admin/contents", middleware.RequireAuth(authService, db), middleware.RequireAdmin(db))

	admin.Get("/", func(c *fiber.Ctx) error {
		page := c.QueryInt("page", 1)
		size := c.QueryInt("size", 20)
		if page < 1 {
			page = 1
		}
		if size < 1 || size > 100 {
			size = 20
		}

		var total int64
		if err := db.Model(&models.Content{}).Count(&total).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error", "cause": err.Error()})
		}
		var rows []models.Content
		if err := db.Order("created_at DESC").Limit(size).Offset((page - 1) * size).Find(&rows).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error", "cause": err.Error()})
		}
		return c.JSON(fiber.Map{"items": rows, "page": page, "size": size, "total": total})
	})

	admin.Get("/:id", func(c *fiber.Ctx) error {
		var content models.Content
		if err := db.Where("id = ?", c.Params("id")).First(&content).Error; err != nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "content not found"})
		}
		var stages []models.Stage
		db.Where("content_id = ?", content.ID).Order("stage_no ASC").Find(&stages)
		var prereqs []models.ContentPrerequisite
		db.Where("content_id = ?", content.ID).Find(&prereqs)
		return c.JSON(fiber.Map{
			"content":       content,
			"stages":        stages,
			"prerequisites": prereqs,
		})
	})

	admin.Post("/", func(c *fiber.Ctx) error {
		var req contentBody
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON", "cause": err.Error()})
		}
		if req.Title == nil || *req.Title == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "title is required"})
		}
		if req.ContentType == nil ||
			(models.ContentType(*req.ContentType) != models.ContentTypeStory &&
				models.ContentType(*req.ContentType) != models.ContentTypeDomination) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "content_type must be story or domination"})
		}
		if req.StageCount != nil && (*req.StageCount < 1 || *req.StageCount > 10) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "stage_count must be between 1 and 10"})
		}

		adminUserID := c.Locals("user_id").(string)
		content := models.Content{
			Title:       *req.Title,
			Description: req.Description,
			ContentType: models.ContentType(*req.ContentType),
			StartAt:     req.StartAt,
			EndAt:       req.EndAt,
			StageCount:  req.StageCount,
			CenterLat:   req.CenterLat,
			CenterLon:   req.CenterLon,
			CreatedBy:   &adminUserID,
		}
		if req.ExposureType != nil {
			content.ExposureType = *req.ExposureType
		} else {
			content.ExposureType = "main"
		}
		if req.IsAlwaysOn != nil {
			content.IsAlwaysOn = *req.IsAlwaysOn
		}
		if req.IsSequential != nil {
			content.IsSequential = *req.IsSequential
		} else {
			content.IsSequential = true
		}
		if req.RewardCoin != nil {
			content.RewardCoin = *req.RewardCoin
		}
		if req.IsOpen != nil {
			content.IsOpen = *req.IsOpen
		} else {
			content.IsOpen = true
		}
		if err := applyNextContent(db, &content, req.NextContentID, ""); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}

		if err := db.Create(&content).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "create failed", "cause": err.Error()})
		}
		return c.Status(fiber.StatusCreated).JSON(content)
	})

	admin.Patch("/:id", func(c *fiber.Ctx) error {
		var content models.Content
		if err := db.Where("id = ?", c.Params("id")).First(&content).Error; err != nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "content not found"})
		}

		var req contentBody
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON", "cause": err.Error()})
		}

		if req.Title != nil {
			content.Title = *req.Title
		}
		if req.Description != nil {
			content.Description = req.Description
		}
		if req.ExposureType != nil {
			content.ExposureType = *req.ExposureType
		}
		if req.StartAt != nil {
			content.StartAt = req.StartAt
		}
		if req.EndAt != nil {
			content.EndAt = req.EndAt
		}
		if req.IsAlwaysOn != nil {
			content.IsAlwaysOn = *req.IsAlwaysOn
		}
		if req.StageCount != nil {
			if *req.StageCount < 1 || *req.StageCount > 10 {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "stage_count must be between 1 and 10"})
			}
			content.StageCount = req.StageCount
		}
		if req.IsSequential != nil {
			content.IsSequential = *req.IsSequential
		}
		if req.RewardCoin != nil {
			content.RewardCoin = *req.RewardCoin
		}
		if req.CenterLat != nil {
			content.CenterLat = req.CenterLat
		}
		if req.CenterLon != nil {
			content.CenterLon = req.CenterLon
		}
		if req.IsOpen != nil {
			content.IsOpen = *req.IsOpen
		}
		if req.NextContentID != nil {
			if err := applyNextContent(db, &content, req.NextContentID, content.ID); err != nil {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
			}
		}

		if err := db.Save(&content).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "update failed", "cause": err.Error()})
		}
		return c.JSON(content)
	})

	admin.Delete("/:id", func(c *fiber.Ctx) error {
		res := db.Where("id = ?", c.Params("id")).Delete(&models.Content{})
		if res.Error != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "delete failed", "cause": res.Error.Error()})
		}
		if res.RowsAffected == 0 {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "content not found"})
		}
		return c.JSON(fiber.Map{"message": "content deleted"})
	})

	admin.Put("/:id/prerequisites", func(c *fiber.Ctx) error {
		contentID := c.Params("id")
		var count int64
		if err := db.Model(&models.Content{}).Where("id = ?", contentID).Count(&count).Error; err != nil || count == 0 {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "content not found"})
		}

		type Req struct {
			RequiredContentIDs []string `json:"required_content_ids"`
		}
		var req Req
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON", "cause": err.Error()})
		}
		for _, id := range req.RequiredContentIDs {
			if id == contentID {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "content cannot require itself"})
			}
		}

		err := db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Where("content_id = ?", contentID).Delete(&models.ContentPrerequisite{}).Error; err != nil {
				return err
			}
			for _, id := range req.RequiredContentIDs {
				p := models.ContentPrerequisite{
					ContentID:         contentID,
					RequiredContentID: id,
					Requirement:       "cleared",
				}
				if err := tx.Create(&p).Error; err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "update failed", "cause": err.Error()})
		}
		return c.JSON(fiber.Map{"message": "prerequisites updated"})
	})
}

// applyNextContent keeps has_next_content and next_content_id consistent and
// rejects self-chains.
func applyNextContent(db *gorm.DB, content *models.Content, nextID *string, selfID string) error {
	if nextID == nil || *nextID == "" {
		content.HasNextContent = false
		content.NextContentID = nil
		return nil
	}
	if selfID != "" && *nextID == selfID {
		return errInvalidNextContent
	}
	var count int64
	if err := db.Model(&models.Content{}).Where("id = ?", *nextID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return errInvalidNextContent
	}
	content.HasNextContent = true
	content.NextContentID = nextID
	return nil
}

var errInvalidNextContent = fiber.NewError(fiber.StatusBadRequest, "next_content_id must reference another existing content")
