package middleware

import (
	"fmt"
	"net/http/httptest"
	"testing"

	"treasure-hunt-api/models"
	"treasure-hunt-api/services"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var testDBSeq int

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	testDBSeq++
	dsn := fmt.Sprintf("file:mwtestdb%d?mode=memory&cache=shared", testDBSeq)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.AuthIdentity{}, &models.Admin{}))
	return db
}

// newAdminApp wires a minimal app with one admin-gated route and returns a
// logged-in operator's access token.
func newAdminApp(t *testing.T) (*fiber.App, *gorm.DB, string) {
	t.Helper()
	t.Setenv("JWT_SECRET", "middleware-test-secret")
	db := newTestDB(t)
	auth := services.NewAuthService(db, nil)

	user, err := auth.Register("operator1", "password123", nil, nil)
	require.NoError(t, err)
	require.NoError(t, db.Create(&models.Admin{UserID: user.ID, Role: "admin"}).Error)

	_, tokens, err := auth.Login("operator1", "password123")
	require.NoError(t, err)

	app := fiber.New()
	app.Get("/admin-only", RequireAuth(auth, db), RequireAdmin(db), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"role": c.Locals("role")})
	})
	return app, db, tokens.AccessToken
}

func TestRequireAdminAllowsGrantedUser(t *testing.T) {
	app, _, token := newAdminApp(t)

	req := httptest.NewRequest("GET", "/admin-only", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestRequireAdminRejectsRevokedGrant(t *testing.T) {
	app, db, token := newAdminApp(t)

	// Revoking the grant must take effect on the next request, not at token
	// expiry: the gate checks the Admin row live, not the role claim.
	require.NoError(t, db.Where("role = ?", "admin").Delete(&models.Admin{}).Error)

	req := httptest.NewRequest("GET", "/admin-only", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestRequireAdminRejectsPlainUser(t *testing.T) {
	t.Setenv("JWT_SECRET", "middleware-test-secret")
	db := newTestDB(t)
	auth := services.NewAuthService(db, nil)

	_, err := auth.Register("player1", "password123", nil, nil)
	require.NoError(t, err)
	_, tokens, err := auth.Login("player1", "password123")
	require.NoError(t, err)

	app := fiber.New()
	app.Get("/admin-only", RequireAuth(auth, db), RequireAdmin(db), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	req := httptest.NewRequest("GET", "/admin-only", nil)
	req.Header.Set("Authorization", "Bearer "+tokens.AccessToken)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}
