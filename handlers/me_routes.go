// handlers/me_routes.go
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

func SetupMeRoutes(app *fiber.App, db *gorm.DB, authService *services.AuthService, ledgerService *services.LedgerService) {
	me := app.Group("/api/v1/me", middleware.RequireAuth(authService, db))

	me.Get("/", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		var user models.User
		if err := db.Where("id = ?", userID).First(&user).Error; err != nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "user not found"})
		}
		return c.JSON(user)
	})

	me.Patch("/", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		type Req struct {
			Nickname *string `json:"nickname"`
			Email    *string `json:"email"`
		}
		var req Req
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid JSON",
				"cause": err.Error(),
			})
		}

		updates := map[string]interface{}{}
		if req.Nickname != nil {
			updates["nickname"] = *req.Nickname
		}
		if req.Email != nil {
			var count int64
			if err := db.Model(&models.User{}).
				Where("email = ? AND id <> ?", *req.Email, userID).
				Count(&count).Error; err != nil {
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error", "cause": err.Error()})
			}
			if count > 0 {
				return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "email already in use"})
			}
			updates["email"] = *req.Email
			updates["email_verified"] = false
		}
		if len(updates) == 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "nothing to update"})
		}

		if err := db.Model(&models.User{}).Where("id = ?", userID).Updates(updates).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "update failed", "cause": err.Error()})
		}

		var user models.User
		db.Where("id = ?", userID).First(&user)
		return c.JSON(user)
	})

	me.Put("/password", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		type Req struct {
			CurrentPassword string `json:"current_password"`
			NewPassword     string `json:"new_password"`
		}
		var req Req
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid JSON",
				"cause": err.Error(),
			})
		}

		if err := authService.ChangePassword(userID, req.CurrentPassword, req.NewPassword); err != nil {
			if errors.Is(err, services.ErrInvalidCredentials) {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "current password is wrong"})
			}
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		return c.JSON(fiber.Map{"message": "password changed"})
	})

	me.Get("/identities", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		var identities []models.AuthIdentity
		if err := db.Where("user_id = ?", userID).Find(&identities).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error", "cause": err.Error()})
		}
		return c.JSON(identities)
	})

	me.Get("/rewards", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		page := c.QueryInt("page", 1)
		size := c.QueryInt("size", 20)

		entries, total, err := ledgerService.History(userID, page, size)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error", "cause": err.Error()})
		}
		balance, err := ledgerService.Balance(userID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error", "cause": err.Error()})
		}
		return c.JSON(fiber.Map{
			"items":   entries,
			"page":    page,
			"size":    size,
			"total":   total,
			"balance": balance,
		})
	})

	// Soft delete. The purge worker hard-deletes after 30 days.
	me.Delete("/", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		now := time.Now()
		err := db.Model(&models.User{}).Where("id = ?", userID).Updates(map[string]interface{}{
			"status":     models.UserStatusDeleted,
			"deleted_at": now,
		}).Error
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "delete failed", "cause": err.Error()})
		}
		return c.JSON(fiber.Map{"message": "account deleted"})
	})
}
