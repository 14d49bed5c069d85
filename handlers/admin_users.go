// handlers/admin_users.go
package handlers

import (
	"treasure-hunt-api/middleware"
	"treasure-hunt-api/models"
	"treasure-hunt-api/services"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

func SetupAdminUserRoutes(app *fiber.App, db *gorm.DB, authService *services.AuthService, ledgerService *services.LedgerService) {
	admin := app.Group("/api/v1/admin/users", middleware.RequireAuth(authService, db), middleware.RequireAdmin(db))

	admin.Get("/", func(c *fiber.Ctx) error {
		page := c.QueryInt("page", 1)
		size := c.QueryInt("size", 20)
		if page < 1 {
			page = 1
		}
		if size < 1 || size > 100 {
			size = 20
		}

		q := db.Model(&models.User{})
		if status := c.Query("status"); status != "" {
			q = q.Where("status = ?", status)
		}
		if search := c.Query("search"); search != "" {
			like := "%" + search + "%"
			q = q.Where("login_id LIKE ? OR email LIKE ? OR nickname LIKE ?", like, like, like)
		}

		var total int64
		if err := q.Count(&total).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error", "cause": err.Error()})
		}

		var users []models.User
		if err := q.Order("created_at DESC").Limit(size).Offset((page - 1) * size).Find(&users).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error", "cause": err.Error()})
		}
		return c.JSON(fiber.Map{
			"items": users,
			"page":  page,
			"size":  size,
			"total": total,
		})
	})

	admin.Get("/:id", func(c *fiber.Ctx) error {
		var user models.User
		if err := db.Where("id = ?", c.Params("id")).First(&user).Error; err != nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "user not found"})
		}

		entries, total, err := ledgerService.History(user.ID, 1, 10)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error", "cause": err.Error()})
		}
		return c.JSON(fiber.Map{
			"user":           user,
			"recent_rewards": entries,
			"reward_count":   total,
		})
	})

	admin.Patch("/:id", func(c *fiber.Ctx) error {
		type Req struct {
			Status   *string `json:"status"`
			Nickname *string `json:"nickname"`
		}
		var req Req
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid JSON",
				"cause": err.Error(),
			})
		}

		updates := map[string]interface{}{}
		if req.Status != nil {
			switch models.UserStatus(*req.Status) {
			case models.UserStatusActive, models.UserStatusBlocked, models.UserStatusDeleted:
				updates["status"] = *req.Status
			default:
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid status"})
			}
		}
		if req.Nickname != nil {
			updates["nickname"] = *req.Nickname
		}
		if len(updates) == 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "nothing to update"})
		}

		res := db.Model(&models.User{}).Where("id = ?", c.Params("id")).Updates(updates)
		if res.Error != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "update failed", "cause": res.Error.Error()})
		}
		if res.RowsAffected == 0 {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "user not found"})
		}

		var user models.User
		db.Where("id = ?", c.Params("id")).First(&user)
		return c.JSON(user)
	})

	// Manual balance correction. The ledger stays append-only: this adds a
	// signed entry, it never edits one.
	admin.Post("/:id/adjust-points", func(c *fiber.Ctx) error {
		type Req struct {
			CoinDelta int    `json:"coin_delta"`
			Note      string `json:"note"`
		}
		var req Req
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid JSON",
				"cause": err.Error(),
			})
		}
		if req.CoinDelta == 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "coin_delta must be non-zero"})
		}
		if req.Note == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "note is required for manual adjustments"})
		}

		var user models.User
		if err := db.Where("id = ?", c.Params("id")).First(&user).Error; err != nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "user not found"})
		}

		ledgerID, balance, err := ledgerService.AdjustPoints(user.ID, req.CoinDelta, req.Note)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "adjustment failed", "cause": err.Error()})
		}
		return c.JSON(fiber.Map{
			"ledger_id":   ledgerID,
			"new_balance": balance,
		})
	})
}
