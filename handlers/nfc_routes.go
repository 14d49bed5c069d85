// handlers/nfc_routes.go
package handlers

import (
	"encoding/json"

	"treasure-hunt-api/middleware"
	"treasure-hunt-api/models"
	"treasure-hunt-api/services"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

func SetupNFCRoutes(app *fiber.App, db *gorm.DB, authService *services.AuthService, scanService *services.ScanService, idemStore services.IdempotencyStore) {
	nfc := app.Group("/api/v1/nfc", middleware.RequireAuth(authService, db))

	nfc.Post("/scan", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		type Req struct {
			UDID   string  `json:"udid"`
			HintID *string `json:"hint_id"`
		}
		var req Req
		if err := c.BodyParser(&req); err != nil || req.UDID == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "udid is required"})
		}

		// A retried request with the same Idempotency-Key replays the first
		// outcome instead of scanning twice.
		idemKey := c.Get("Idempotency-Key")
		if idemKey != "" {
			if cached, ok := idemStore.Get(c.Context(), userID, idemKey); ok {
				c.Set("Content-Type", "application/json")
				return c.Send(cached)
			}
		}

		result, err := scanService.Scan(userID, req.UDID, req.HintID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "scan failed", "cause": err.Error()})
		}

		if idemKey != "" {
			if body, merr := json.Marshal(result); merr == nil {
				idemStore.Set(c.Context(), userID, idemKey, body)
			}
		}
		return c.JSON(result)
	})

	nfc.Post("/verify-location", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		type Req struct {
			HintID    string   `json:"hint_id"`
			Latitude  *float64 `json:"latitude"`
			Longitude *float64 `json:"longitude"`
		}
		var req Req
		if err := c.BodyParser(&req); err != nil || req.HintID == "" || req.Latitude == nil || req.Longitude == nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "hint_id, latitude and longitude are required"})
		}

		result, err := scanService.VerifyLocation(userID, req.HintID, *req.Latitude, *req.Longitude)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "verification failed", "cause": err.Error()})
		}
		return c.JSON(result)
	})

	// Tag metadata by udid, for the tap screen. Inactive tags still resolve
	// here; the gate only applies to scans.
	nfc.Get("/tags/:udid", func(c *fiber.Ctx) error {
		var tag models.NFCTag
		if err := db.Where("udid = ?", c.Params("udid")).First(&tag).Error; err != nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "NFC tag not found"})
		}
		return c.JSON(tag)
	})
}
