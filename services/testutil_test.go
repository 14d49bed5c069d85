package services

import (
	"fmt"
	"testing"

	"treasure-hunt-api/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var testDBSeq int

// newTestDB opens a fresh in-memory sqlite database with the full schema.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	testDBSeq++
	dsn := fmt.Sprintf("file:testdb%d?mode=memory&cache=shared", testDBSeq)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.AuthIdentity{},
		&models.Admin{},
		&models.Content{},
		&models.ContentPrerequisite{},
		&models.Stage{},
		&models.StageHint{},
		&models.HintImage{},
		&models.StagePuzzle{},
		&models.StageUnlockPreset{},
		&models.NFCTag{},
		&models.NFCScanLog{},
		&models.UserContentProgress{},
		&models.UserStageProgress{},
		&models.RewardLedger{},
		&models.Store{},
		&models.StoreReward{},
		&models.Notification{},
	))
	return db
}

func createTestUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()
	user := models.User{
		ID:      uuid.NewString(),
		LoginID: "user_" + uuid.NewString()[:8],
		Status:  models.UserStatusActive,
	}
	require.NoError(t, db.Create(&user).Error)
	return &user
}

func createTestContent(t *testing.T, db *gorm.DB, rewardCoin int) *models.Content {
	t.Helper()
	content := models.Content{
		ID:           uuid.NewString(),
		Title:        "Old Town Hunt",
		ContentType:  models.ContentTypeStory,
		ExposureType: "main",
		IsAlwaysOn:   true,
		IsSequential: true,
		RewardCoin:   rewardCoin,
		IsOpen:       true,
	}
	require.NoError(t, db.Create(&content).Error)
	return &content
}

func createTestStage(t *testing.T, db *gorm.DB, contentID, stageNo string) *models.Stage {
	t.Helper()
	stage := models.Stage{
		ID:        uuid.NewString(),
		ContentID: contentID,
		StageNo:   stageNo,
		Title:     "Stage " + stageNo,
		IsOpen:    true,
	}
	require.NoError(t, db.Create(&stage).Error)
	return &stage
}

func createTestTag(t *testing.T, db *gorm.DB, reward, cooldownSec int, useLimit *int) *models.NFCTag {
	t.Helper()
	tag := models.NFCTag{
		ID:          uuid.NewString(),
		UDID:        "udid-" + uuid.NewString()[:8],
		TagName:     "Fountain Tag",
		PointReward: reward,
		CooldownSec: cooldownSec,
		UseLimit:    useLimit,
		IsActive:    true,
	}
	require.NoError(t, db.Create(&tag).Error)
	return &tag
}

func createTestHint(t *testing.T, db *gorm.DB, stageID string, nfcID *string, orderNo int) *models.StageHint {
	t.Helper()
	hint := models.StageHint{
		ID:      uuid.NewString(),
		StageID: stageID,
		Preset:  "text",
		OrderNo: orderNo,
		NFCID:   nfcID,
	}
	require.NoError(t, db.Create(&hint).Error)
	return &hint
}

func intPtr(n int) *int { return &n }
