package handlers

import (
	"encoding/json"
	"fmt"
	"io"
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
	dsn := fmt.Sprintf("file:handlertestdb%d?mode=memory&cache=shared", testDBSeq)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.AuthIdentity{},
		&models.Admin{},
		&models.RewardLedger{},
		&models.Store{},
		&models.StoreReward{},
		&models.Notification{},
	))
	return db
}

func newStoreApp(t *testing.T) (*fiber.App, *gorm.DB, string) {
	t.Helper()
	t.Setenv("JWT_SECRET", "handler-test-secret")
	db := newTestDB(t)
	auth := services.NewAuthService(db, nil)
	ledger := services.NewLedgerService(db)
	redemption := services.NewRedemptionService(db, ledger)
	notifications := services.NewNotificationService(db)

	_, err := auth.Register("shopper1", "password123", nil, nil)
	require.NoError(t, err)
	_, tokens, err := auth.Login("shopper1", "password123")
	require.NoError(t, err)

	app := fiber.New()
	SetupStoreRoutes(app, db, auth, redemption, notifications, services.NewMemoryIdempotencyStore())
	return app, db, tokens.AccessToken
}

func TestRedeemInsufficientFundsResponse(t *testing.T) {
	app, db, token := newStoreApp(t)

	store := models.Store{Name: "Test Store"}
	require.NoError(t, db.Create(&store).Error)
	reward := models.StoreReward{StoreID: store.ID, ProductName: "Sticker Pack", PriceCoin: 50, IsActive: true}
	require.NoError(t, db.Create(&reward).Error)

	req := httptest.NewRequest("POST", "/api/v1/store-rewards/"+reward.ID+"/redeem", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &body))
	require.Equal(t, "포인트가 부족합니다", body["error"])
	require.EqualValues(t, 0, body["balance"])
	require.EqualValues(t, 50, body["price_coin"])
	require.EqualValues(t, 50, body["shortfall"])

	// Denial leaves no ledger trace.
	var entries int64
	require.NoError(t, db.Model(&models.RewardLedger{}).Count(&entries).Error)
	require.Zero(t, entries)
}
