// handlers/auth_routes.go
package handlers

import (
	"errors"

	"treasure-hunt-api/services"

	"github.com/gofiber/fiber/v2"
)

func SetupAuthRoutes(app *fiber.App, authService *services.AuthService) {
	auth := app.Group("/api/v1/auth")

	auth.Post("/register", func(c *fiber.Ctx) error {
		type Req struct {
			LoginID  string  `json:"login_id"`
			Password string  `json:"password"`
			Email    *string `json:"email"`
			Nickname *string `json:"nickname"`
		}
		var req Req
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid JSON",
				"cause": err.Error(),
			})
		}

		user, err := authService.Register(req.LoginID, req.Password, req.Email, req.Nickname)
		if err != nil {
			switch {
			case errors.Is(err, services.ErrLoginIDTaken), errors.Is(err, services.ErrEmailTaken):
				return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
			case errors.Is(err, services.ErrInvalidLoginID):
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
			default:
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
			}
		}
		return c.Status(fiber.StatusCreated).JSON(user)
	})

	auth.Post("/login", func(c *fiber.Ctx) error {
		type Req struct {
			LoginID  string `json:"login_id"`
			Password string `json:"password"`
		}
		var req Req
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid JSON",
				"cause": err.Error(),
			})
		}

		user, pair, err := authService.Login(req.LoginID, req.Password)
		if err != nil {
			if errors.Is(err, services.ErrUserNotActive) {
				return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": err.Error()})
			}
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid credentials"})
		}
		return c.JSON(fiber.Map{
			"user":   user,
			"tokens": pair,
		})
	})

	auth.Post("/refresh", func(c *fiber.Ctx) error {
		type Req struct {
			RefreshToken string `json:"refresh_token"`
		}
		var req Req
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid JSON",
				"cause": err.Error(),
			})
		}

		pair, err := authService.Refresh(req.RefreshToken)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid refresh token"})
		}
		return c.JSON(pair)
	})

	auth.Post("/forgot-password", func(c *fiber.Ctx) error {
		type Req struct {
			Email string `json:"email"`
		}
		var req Req
		if err := c.BodyParser(&req); err != nil || req.Email == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "email is required"})
		}

		// Same response whether or not the address exists.
		authService.ForgotPassword(req.Email)
		return c.JSON(fiber.Map{
			"message": "if the address is registered, a temporary password has been sent",
		})
	})
}
