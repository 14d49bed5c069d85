// handlers/admin_misc.go
package handlers

import (
	"fmt"
	"path/filepath"
	"time"

	"treasure-hunt-api/middleware"
	"treasure-hunt-api/models"
	"treasure-hunt-api/services"
	"treasure-hunt-api/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

func SetupAdminMiscRoutes(app *fiber.App, db *gorm.DB, authService *services.AuthService) {
	admin := app.Group("/api/v1/admin", middleware.RequireAuth(authService, db), middleware.RequireAdmin(db))

	admin.Get("/dashboard", func(c *fiber.Ctx) error {
		today := time.Now().Truncate(24 * time.Hour)

		var totalUsers, activeUsers int64
		db.Model(&models.User{}).Count(&totalUsers)
		db.Model(&models.User{}).Where("status = ?", models.UserStatusActive).Count(&activeUsers)

		var todayRedemptions, totalRedemptions int64
		db.Model(&models.RewardLedger{}).
			Where("store_reward_id IS NOT NULL AND created_at >= ?", today).
			Count(&todayRedemptions)
		db.Model(&models.RewardLedger{}).
			Where("store_reward_id IS NOT NULL").
			Count(&totalRedemptions)

		var pointsSpent *int
		db.Model(&models.RewardLedger{}).
			Where("store_reward_id IS NOT NULL").
			Select("SUM(-coin_delta)").
			Scan(&pointsSpent)
		spent := 0
		if pointsSpent != nil {
			spent = *pointsSpent
		}

		var lowStock []models.StoreReward
		db.Where("stock_qty IS NOT NULL AND stock_qty <= ? AND is_active = ?", 5, true).
			Find(&lowStock)

		var todayScans int64
		db.Model(&models.NFCScanLog{}).
			Where("allowed = ? AND scanned_at >= ?", true, today).
			Count(&todayScans)

		return c.JSON(fiber.Map{
			"total_users":       totalUsers,
			"active_users":      activeUsers,
			"today_redemptions": todayRedemptions,
			"total_redemptions": totalRedemptions,
			"points_spent":      spent,
			"today_scans":       todayScans,
			"low_stock_rewards": lowStock,
		})
	})

	admin.Get("/reward-ledger", func(c *fiber.Ctx) error {
		page := c.QueryInt("page", 1)
		size := c.QueryInt("size", 50)
		if page < 1 {
			page = 1
		}
		if size < 1 || size > 200 {
			size = 50
		}

		q := db.Model(&models.RewardLedger{})
		if userID := c.Query("user_id"); userID != "" {
			q = q.Where("user_id = ?", userID)
		}
		if c.Query("type") == "spend" {
			q = q.Where("coin_delta < 0")
		} else if c.Query("type") == "earn" {
			q = q.Where("coin_delta > 0")
		}

		var total int64
		if err := q.Count(&total).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error", "cause": err.Error()})
		}

		order := "created_at DESC"
		if c.Query("sort") == "oldest" {
			order = "created_at ASC"
		}
		var rows []models.RewardLedger
		if err := q.Order(order).Limit(size).Offset((page - 1) * size).Find(&rows).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error", "cause": err.Error()})
		}
		return c.JSON(fiber.Map{"items": rows, "page": page, "size": size, "total": total})
	})

	admin.Get("/notifications", func(c *fiber.Ctx) error {
		var rows []models.Notification
		if err := db.Order("created_at DESC").Find(&rows).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error", "cause": err.Error()})
		}
		return c.JSON(rows)
	})

	admin.Post("/notifications", func(c *fiber.Ctx) error {
		type Req struct {
			Title               string     `json:"title"`
			Content             string     `json:"content"`
			NotificationType    string     `json:"notification_type"`
			StartAt             *time.Time `json:"start_at"`
			EndAt               *time.Time `json:"end_at"`
			Status              *string    `json:"status"`
			ShowPopupOnAppStart *bool      `json:"show_popup_on_app_start"`
		}
		var req Req
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON", "cause": err.Error()})
		}
		if req.Title == "" || len(req.Title) > 200 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "title is required (max 200 chars)"})
		}
		if req.Content == "" || len([]rune(req.Content)) > 500 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "content is required (max 500 chars)"})
		}
		switch req.NotificationType {
		case "system", "event", "promotion":
		default:
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "notification_type must be system, event or promotion"})
		}
		if req.StartAt == nil || req.EndAt == nil || !req.EndAt.After(*req.StartAt) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "start_at and end_at are required and end_at must be after start_at"})
		}

		n := models.Notification{
			Title:            req.Title,
			Content:          req.Content,
			NotificationType: req.NotificationType,
			StartAt:          *req.StartAt,
			EndAt:            *req.EndAt,
			Status:           models.NotificationStatusDraft,
		}
		if req.Status != nil {
			switch models.NotificationStatus(*req.Status) {
			case models.NotificationStatusDraft, models.NotificationStatusScheduled:
				n.Status = models.NotificationStatus(*req.Status)
			default:
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "status must be draft or scheduled on create"})
			}
		}
		if req.ShowPopupOnAppStart != nil {
			n.ShowPopupOnAppStart = *req.ShowPopupOnAppStart
		}

		if err := db.Create(&n).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "create failed", "cause": err.Error()})
		}
		return c.Status(fiber.StatusCreated).JSON(n)
	})

	admin.Patch("/notifications/:id", func(c *fiber.Ctx) error {
		var n models.Notification
		if err := db.Where("id = ?", c.Params("id")).First(&n).Error; err != nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "notification not found"})
		}

		var req map[string]interface{}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON", "cause": err.Error()})
		}

		allowed := map[string]bool{
			"title": true, "content": true, "notification_type": true,
			"start_at": true, "end_at": true, "status": true,
			"show_popup_on_app_start": true,
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

		if err := db.Model(&models.Notification{}).Where("id = ?", n.ID).Updates(updates).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "update failed", "cause": err.Error()})
		}
		db.Where("id = ?", n.ID).First(&n)
		return c.JSON(n)
	})

	admin.Delete("/notifications/:id", func(c *fiber.Ctx) error {
		res := db.Where("id = ?", c.Params("id")).Delete(&models.Notification{})
		if res.Error != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "delete failed", "cause": res.Error.Error()})
		}
		if res.RowsAffected == 0 {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "notification not found"})
		}
		return c.JSON(fiber.Map{"message": "notification deleted"})
	})

	// Image upload for content/stage/store assets. R2 when configured, local
	// uploads dir otherwise.
	admin.Post("/uploads", func(c *fiber.Ctx) error {
		fileHeader, err := c.FormFile("file")
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "file is required"})
		}
		if fileHeader.Size > 10*1024*1024 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "file exceeds 10MB limit"})
		}

		ext := filepath.Ext(fileHeader.Filename)
		switch ext {
		case ".png", ".jpg", ".jpeg", ".gif", ".webp":
		default:
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "unsupported file type"})
		}

		filename := fmt.Sprintf("%s%s", uuid.NewString(), ext)

		if utils.R2Enabled() {
			url, err := utils.UploadFileToR2(fileHeader, "images/"+filename)
			if err != nil {
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "upload failed", "cause": err.Error()})
			}
			return c.JSON(fiber.Map{"url": url})
		}

		if err := utils.EnsureUploadDir(); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "upload failed", "cause": err.Error()})
		}
		destPath := utils.GetUploadPath(filename)
		if err := utils.SaveFile(fileHeader, destPath); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "upload failed", "cause": err.Error()})
		}
		return c.JSON(fiber.Map{"url": "/uploads/" + filename})
	})
}
