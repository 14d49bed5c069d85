package middleware

import (
	"log"
	"strings"

	"treasure-hunt-api/models"
	"treasure-hunt-api/services"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// RequireAuth validates the Bearer access token and attaches identity to the
// request context: user_id, login_id, and role/admin_id when present.
func RequireAuth(auth *services.AuthService, db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "missing Authorization header",
			})
		}

		token := strings.TrimPrefix(authHeader, "Bearer ")
		if token == authHeader {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Authorization header must be a Bearer token",
			})
		}

		claims, err := auth.VerifyToken(token)
		if err != nil || claims.Type != "access" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid or expired token",
			})
		}

		// Blocked and soft-deleted accounts lose access immediately, not at
		// token expiry.
		var user models.User
		if err := db.Select("id", "status").Where("id = ?", claims.UserID).First(&user).Error; err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "account not found",
			})
		}
		if !user.IsActive() {
			log.Printf("🚫 [AUTH] Rejected %s user %s on %s", user.Status, claims.UserID, c.Path())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "account is blocked or deleted",
			})
		}

		c.Locals("user_id", claims.UserID)
		c.Locals("login_id", claims.LoginID)
		c.Locals("role", claims.Role)
		c.Locals("admin_id", claims.AdminID)
		return c.Next()
	}
}

// RequireAdmin gates operator routes with a live Admin row lookup, so a
// revoked grant takes effect on the next request rather than at token expiry.
// The user is authenticated by then, so a missing grant is 403, not 401.
func RequireAdmin(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, _ := c.Locals("user_id").(string)
		var admin models.Admin
		if err := db.Where("user_id = ?", userID).First(&admin).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
					"error": "admin access required",
				})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to verify admin access", "cause": err.Error(),
			})
		}
		c.Locals("role", admin.Role)
		c.Locals("admin_id", admin.ID)
		return c.Next()
	}
}
