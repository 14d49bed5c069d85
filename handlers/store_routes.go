// handlers/store_routes.go
package handlers

import (
	"encoding/json"
	"errors"

	"treasure-hunt-api/middleware"
	"treasure-hunt-api/models"
	"treasure-hunt-api/services"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

func SetupStoreRoutes(app *fiber.App, db *gorm.DB, authService *services.AuthService, redemptionService *services.RedemptionService, notificationService *services.NotificationService, idemStore services.IdempotencyStore) {
	stores := app.Group("/api/v1/stores", middleware.RequireAuth(authService, db))

	stores.Get("/", func(c *fiber.Ctx) error {
		var rows []models.Store
		if err := db.Where("is_active = ?", true).Order("name ASC").Find(&rows).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error", "cause": err.Error()})
		}
		return c.JSON(rows)
	})

	stores.Get("/:id/rewards", func(c *fiber.Ctx) error {
		var store models.Store
		if err := db.Where("id = ? AND is_active = ?", c.Params("id"), true).First(&store).Error; err != nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "store not found"})
		}
		var rewards []models.StoreReward
		if err := db.Where("store_id = ? AND is_active = ?", store.ID, true).Find(&rewards).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error", "cause": err.Error()})
		}
		return c.JSON(fiber.Map{
			"store":   store,
			"rewards": rewards,
		})
	})

	rewards := app.Group("/api/v1/store-rewards", middleware.RequireAuth(authService, db))

	rewards.Get("/:id", func(c *fiber.Ctx) error {
		var reward models.StoreReward
		if err := db.Where("id = ?", c.Params("id")).First(&reward).Error; err != nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "store reward not found"})
		}
		return c.JSON(reward)
	})

	rewards.Post("/:id/redeem", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		idemKey := c.Get("Idempotency-Key")
		if idemKey != "" {
			if cached, ok := idemStore.Get(c.Context(), userID, idemKey); ok {
				c.Set("Content-Type", "application/json")
				return c.Send(cached)
			}
		}

		result, err := redemptionService.Redeem(userID, c.Params("id"))
		if err != nil {
			var insufficient *services.InsufficientFundsError
			switch {
			case errors.Is(err, gorm.ErrRecordNotFound):
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "store reward not found"})
			case errors.Is(err, services.ErrRewardInactive), errors.Is(err, services.ErrOutOfStock):
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
			case errors.As(err, &insufficient):
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error":      "포인트가 부족합니다",
					"balance":    insufficient.Balance,
					"price_coin": insufficient.PriceCoin,
					"shortfall":  insufficient.PriceCoin - insufficient.Balance,
				})
			default:
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "redemption failed", "cause": err.Error()})
			}
		}

		if idemKey != "" {
			if body, merr := json.Marshal(result); merr == nil {
				idemStore.Set(c.Context(), userID, idemKey, body)
			}
		}
		return c.JSON(result)
	})

	notifications := app.Group("/api/v1/notifications", middleware.RequireAuth(authService, db))

	notifications.Get("/", func(c *fiber.Ctx) error {
		rows, err := notificationService.PublishedList()
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error", "cause": err.Error()})
		}
		return c.JSON(rows)
	})

	notifications.Get("/:id", func(c *fiber.Ctx) error {
		n, err := notificationService.GetAndCountView(c.Params("id"))
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "notification not found"})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error", "cause": err.Error()})
		}
		return c.JSON(n)
	})
}
