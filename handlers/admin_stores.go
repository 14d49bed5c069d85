// handlers/admin_stores.go
package handlers

import (
	"treasure-hunt-api/middleware"
	"treasure-hunt-api/models"
	"treasure-hunt-api/services"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

func SetupAdminStoreRoutes(app *fiber.App, db *gorm.DB, authService *services.AuthService) {
	admin := app.Group("/api/v1/admin/stores", middleware.RequireAuth(authService, db), middleware.RequireAdmin(db))

	admin.Get("/", func(c *fiber.Ctx) error {
		var rows []models.Store
		if err := db.Order("name ASC").Find(&rows).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error", "cause": err.Error()})
		}
		return c.JSON(rows)
	})

	admin.Post("/", func(c *fiber.Ctx) error {
		type Req struct {
			Name        string   `json:"name"`
			Address     *string  `json:"address"`
			Description *string  `json:"description"`
			Latitude    *float64 `json:"latitude"`
			Longitude   *float64 `json:"longitude"`
			IsActive    *bool    `json:"is_active"`
		}
		var req Req
		if err := c.BodyParser(&req); err != nil || req.Name == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "name is required"})
		}

		store := models.Store{
			Name:        req.Name,
			Address:     req.Address,
			Description: req.Description,
			Latitude:    req.Latitude,
			Longitude:   req.Longitude,
			IsActive:    true,
		}
		if req.IsActive != nil {
			store.IsActive = *req.IsActive
		}
		if err := db.Create(&store).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "create failed", "cause": err.Error()})
		}
		return c.Status(fiber.StatusCreated).JSON(store)
	})

	admin.Patch("/:id", func(c *fiber.Ctx) error {
		var store models.Store
		if err := db.Where("id = ?", c.Params("id")).First(&store).Error; err != nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "store not found"})
		}

		var req map[string]interface{}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON", "cause": err.Error()})
		}

		allowed := map[string]bool{
			"name": true, "address": true, "description": true,
			"latitude": true, "longitude": true, "is_active": true,
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

		if err := db.Model(&models.Store{}).Where("id = ?", store.ID).Updates(updates).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "update failed", "cause": err.Error()})
		}
		db.Where("id = ?", store.ID).First(&store)
		return c.JSON(store)
	})

	admin.Delete("/:id", func(c *fiber.Ctx) error {
		res := db.Where("id = ?", c.Params("id")).Delete(&models.Store{})
		if res.Error != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "delete failed", "cause": res.Error.Error()})
		}
		if res.RowsAffected == 0 {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "store not found"})
		}
		return c.JSON(fiber.Map{"message": "store deleted"})
	})

	admin.Post("/:id/rewards", func(c *fiber.Ctx) error {
		storeID := c.Params("id")
		var count int64
		if err := db.Model(&models.Store{}).Where("id = ?", storeID).Count(&count).Error; err != nil || count == 0 {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "store not found"})
		}

		type Req struct {
			ProductName string  `json:"product_name"`
			Description *string `json:"description"`
			ImageURL    *string `json:"image_url"`
			PriceCoin   int     `json:"price_coin"`
			StockQty    *int    `json:"stock_qty"`
			IsActive    *bool   `json:"is_active"`
		}
		var req Req
		if err := c.BodyParser(&req); err != nil || req.ProductName == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "product_name is required"})
		}
		if req.PriceCoin < 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "price_coin must not be negative"})
		}
		if req.StockQty != nil && *req.StockQty < 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "stock_qty must not be negative"})
		}

		reward := models.StoreReward{
			StoreID:         storeID,
			ProductName:     req.ProductName,
			Description:     req.Description,
			ImageURL:        req.ImageURL,
			PriceCoin:       req.PriceCoin,
			StockQty:        req.StockQty,
			InitialQuantity: req.StockQty,
			IsActive:        true,
		}
		if req.IsActive != nil {
			reward.IsActive = *req.IsActive
		}
		if err := db.Create(&reward).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "create failed", "cause": err.Error()})
		}
		return c.Status(fiber.StatusCreated).JSON(reward)
	})

	rewards := app.Group("/api/v1/admin/store-rewards", middleware.RequireAuth(authService, db), middleware.RequireAdmin(db))

	rewards.Patch("/:id", func(c *fiber.Ctx) error {
		var reward models.StoreReward
		if err := db.Where("id = ?", c.Params("id")).First(&reward).Error; err != nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "store reward not found"})
		}

		var req map[string]interface{}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON", "cause": err.Error()})
		}

		allowed := map[string]bool{
			"product_name": true, "description": true, "image_url": true,
			"price_coin": true, "stock_qty": true, "is_active": true,
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

		if err := db.Model(&models.StoreReward{}).Where("id = ?", reward.ID).Updates(updates).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "update failed", "cause": err.Error()})
		}
		db.Where("id = ?", reward.ID).First(&reward)
		return c.JSON(reward)
	})

	rewards.Delete("/:id", func(c *fiber.Ctx) error {
		res := db.Where("id = ?", c.Params("id")).Delete(&models.StoreReward{})
		if res.Error != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "delete failed", "cause": res.Error.Error()})
		}
		if res.RowsAffected == 0 {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "store reward not found"})
		}
		return c.JSON(fiber.Map{"message": "store reward deleted"})
	})
}
