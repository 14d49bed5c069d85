// handlers/admin_nfc.go
package handlers

import (
	"treasure-hunt-api/middleware"
	"treasure-hunt-api/models"
	"treasure-hunt-api/services"
	"treasure-hunt-api/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

func SetupAdminNFCRoutes(app *fiber.App, db *gorm.DB, authService *services.AuthService) {
	admin := app.Group("/api/v1/admin/nfc-tags", middleware.RequireAuth(authService, db), middleware.RequireAdmin(db))

	admin.Get("/", func(c *fiber.Ctx) error {
		page := c.QueryInt("page", 1)
		size := c.QueryInt("size", 20)
		if page < 1 {
			page = 1
		}
		if size < 1 || size > 100 {
			size = 20
		}

		q := db.Model(&models.NFCTag{})
		if category := c.Query("category"); category != "" {
			q = q.Where("category = ?", category)
		}

		var total int64
		if err := q.Count(&total).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error", "cause": err.Error()})
		}
		var tags []models.NFCTag
		if err := q.Order("created_at DESC").Limit(size).Offset((page - 1) * size).Find(&tags).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error", "cause": err.Error()})
		}
		return c.JSON(fiber.Map{"items": tags, "page": page, "size": size, "total": total})
	})

	admin.Get("/:id", func(c *fiber.Ctx) error {
		var tag models.NFCTag
		if err := db.Where("id = ?", c.Params("id")).First(&tag).Error; err != nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "NFC tag not found"})
		}
		return c.JSON(tag)
	})

	admin.Post("/", func(c *fiber.Ctx) error {
		type Req struct {
			UDID          string   `json:"udid"`
			TagName       string   `json:"tag_name"`
			Address       *string  `json:"address"`
			FloorLocation *string  `json:"floor_location"`
			MediaURL      *string  `json:"media_url"`
			LinkURL       *string  `json:"link_url"`
			Latitude      *float64 `json:"latitude"`
			Longitude     *float64 `json:"longitude"`
			TapMessage    *string  `json:"tap_message"`
			PointReward   int      `json:"point_reward"`
			CooldownSec   int      `json:"cooldown_sec"`
			UseLimit      *int     `json:"use_limit"`
			IsActive      *bool    `json:"is_active"`
			Category      *string  `json:"category"`
		}
		var req Req
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON", "cause": err.Error()})
		}
		if req.UDID == "" || req.TagName == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "udid and tag_name are required"})
		}

		var count int64
		if err := db.Model(&models.NFCTag{}).Where("udid = ?", req.UDID).Count(&count).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error", "cause": err.Error()})
		}
		if count > 0 {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "udid already registered"})
		}

		tag := models.NFCTag{
			UDID:          req.UDID,
			TagName:       req.TagName,
			Address:       req.Address,
			FloorLocation: req.FloorLocation,
			MediaURL:      req.MediaURL,
			LinkURL:       req.LinkURL,
			Latitude:      req.Latitude,
			Longitude:     req.Longitude,
			TapMessage:    req.TapMessage,
			PointReward:   req.PointReward,
			CooldownSec:   req.CooldownSec,
			UseLimit:      req.UseLimit,
			Category:      req.Category,
			IsActive:      true,
		}
		if req.IsActive != nil {
			tag.IsActive = *req.IsActive
		}

		if err := db.Create(&tag).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "create failed", "cause": err.Error()})
		}
		return c.Status(fiber.StatusCreated).JSON(tag)
	})

	admin.Patch("/:id", func(c *fiber.Ctx) error {
		var tag models.NFCTag
		if err := db.Where("id = ?", c.Params("id")).First(&tag).Error; err != nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "NFC tag not found"})
		}

		var req map[string]interface{}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON", "cause": err.Error()})
		}

		// UDID is immutable once printed on a physical tag.
		allowed := map[string]bool{
			"tag_name": true, "address": true, "floor_location": true,
			"media_url": true, "link_url": true, "latitude": true,
			"longitude": true, "tap_message": true, "point_reward": true,
			"cooldown_sec": true, "use_limit": true, "is_active": true,
			"category": true,
		}
		updates := map[string]interface{}{}
		for k, v := range req {
			if allowed[k] {
				updates[k] = v
			}
		}
		if len(updates) == 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "nothing to update"})
		}

		if err := db.Model(&models.NFCTag{}).Where("id = ?", tag.ID).Updates(updates).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "update failed", "cause": err.Error()})
		}
		db.Where("id = ?", tag.ID).First(&tag)
		return c.JSON(tag)
	})

	admin.Delete("/:id", func(c *fiber.Ctx) error {
		res := db.Where("id = ?", c.Params("id")).Delete(&models.NFCTag{})
		if res.Error != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "delete failed", "cause": res.Error.Error()})
		}
		if res.RowsAffected == 0 {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "NFC tag not found"})
		}
		return c.JSON(fiber.Map{"message": "NFC tag deleted"})
	})

	// Generates (or regenerates) the printable QR fallback for a tag and
	// stores the image URL on the row.
	admin.Post("/:id/qr", func(c *fiber.Ctx) error {
		var tag models.NFCTag
		if err := db.Where("id = ?", c.Params("id")).First(&tag).Error; err != nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "NFC tag not found"})
		}

		url, err := utils.GenerateQRImage(map[string]any{
			"type": "nfc_tag",
			"udid": tag.UDID,
		}, tag.ID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "QR generation failed", "cause": err.Error()})
		}

		if err := db.Model(&models.NFCTag{}).Where("id = ?", tag.ID).Update("qr_image_url", url).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "update failed", "cause": err.Error()})
		}
		return c.JSON(fiber.Map{"qr_image_url": url})
	})

	logs := app.Group("/api/v1/admin/scan-logs", middleware.RequireAuth(authService, db), middleware.RequireAdmin(db))

	logs.Get("/", func(c *fiber.Ctx) error {
		page := c.QueryInt("page", 1)
		size := c.QueryInt("size", 50)
		if page < 1 {
			page = 1
		}
		if size < 1 || size > 200 {
			size = 50
		}

		q := db.Model(&models.NFCScanLog{})
		if userID := c.Query("user_id"); userID != "" {
			q = q.Where("user_id = ?", userID)
		}
		if nfcID := c.Query("nfc_id"); nfcID != "" {
			q = q.Where("nfc_id = ?", nfcID)
		}
		if allowed := c.Query("allowed"); allowed != "" {
			q = q.Where("allowed = ?", allowed == "true")
		}

		var total int64
		if err := q.Count(&total).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error", "cause": err.Error()})
		}
		var rows []models.NFCScanLog
		if err := q.Order("scanned_at DESC").Limit(size).Offset((page - 1) * size).Find(&rows).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error", "cause": err.Error()})
		}
		return c.JSON(fiber.Map{"items": rows, "page": page, "size": size, "total": total})
	})
}
