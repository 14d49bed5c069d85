package services

import (
	"testing"

	"treasure-hunt-api/models"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newProgressionService(t *testing.T) (*ProgressionService, *LedgerService) {
	t.Helper()
	db := newTestDB(t)
	ledger := NewLedgerService(db)
	return NewProgressionService(db, ledger), ledger
}

func TestJoinContentIdempotent(t *testing.T) {
	svc, _ := newProgressionService(t)
	user := createTestUser(t, svc.DB)
	content := createTestContent(t, svc.DB, 0)

	first, err := svc.JoinContent(user.ID, content.ID)
	require.NoError(t, err)
	require.Equal(t, models.ContentStatusInProgress, first.Status)
	require.NotNil(t, first.JoinedAt)

	second, err := svc.JoinContent(user.ID, content.ID)
	require.NoError(t, err)
	require.Equal(t, first.JoinedAt.Unix(), second.JoinedAt.Unix())

	var count int64
	require.NoError(t, svc.DB.Model(&models.UserContentProgress{}).
		Where("user_id = ?", user.ID).Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestJoinClosedContentRejected(t *testing.T) {
	svc, _ := newProgressionService(t)
	user := createTestUser(t, svc.DB)
	content := createTestContent(t, svc.DB, 0)
	require.NoError(t, svc.DB.Model(&models.Content{}).Where("id = ?", content.ID).Update("is_open", false).Error)

	_, err := svc.JoinContent(user.ID, content.ID)
	require.ErrorIs(t, err, ErrContentClosed)
}

func TestJoinRequiresPrerequisiteContent(t *testing.T) {
	svc, _ := newProgressionService(t)
	user := createTestUser(t, svc.DB)
	first := createTestContent(t, svc.DB, 0)
	second := createTestContent(t, svc.DB, 0)
	require.NoError(t, svc.DB.Create(&models.ContentPrerequisite{
		ContentID:         second.ID,
		RequiredContentID: first.ID,
		Requirement:       "cleared",
	}).Error)

	_, err := svc.JoinContent(user.ID, second.ID)
	require.ErrorIs(t, err, ErrPrerequisiteContent)

	// Clearing the first content opens the second.
	_, err = svc.JoinContent(user.ID, first.ID)
	require.NoError(t, err)
	stage := createTestStage(t, svc.DB, first.ID, "1")
	_, err = svc.ClearStage(user.ID, stage.ID, nil)
	require.NoError(t, err)

	_, err = svc.JoinContent(user.ID, second.ID)
	require.NoError(t, err)
}

func TestLeaveAndRejoin(t *testing.T) {
	svc, _ := newProgressionService(t)
	user := createTestUser(t, svc.DB)
	content := createTestContent(t, svc.DB, 0)

	_, err := svc.JoinContent(user.ID, content.ID)
	require.NoError(t, err)
	require.NoError(t, svc.LeaveContent(user.ID, content.ID))

	prog, err := svc.ContentProgress(user.ID, content.ID)
	require.NoError(t, err)
	require.Equal(t, models.ContentStatusLeft, prog.Status)

	rejoined, err := svc.JoinContent(user.ID, content.ID)
	require.NoError(t, err)
	require.Equal(t, models.ContentStatusInProgress, rejoined.Status)
}

func TestContentProgressNotStarted(t *testing.T) {
	svc, _ := newProgressionService(t)
	user := createTestUser(t, svc.DB)
	content := createTestContent(t, svc.DB, 0)

	prog, err := svc.ContentProgress(user.ID, content.ID)
	require.NoError(t, err)
	require.Equal(t, "not_started", prog.Status)
}

func TestUnlockStageRequiresJoin(t *testing.T) {
	svc, _ := newProgressionService(t)
	user := createTestUser(t, svc.DB)
	content := createTestContent(t, svc.DB, 0)
	stage := createTestStage(t, svc.DB, content.ID, "1")

	_, err := svc.UnlockStage(user.ID, stage.ID)
	require.ErrorIs(t, err, ErrContentNotJoined)

	_, err = svc.JoinContent(user.ID, content.ID)
	require.NoError(t, err)

	prog, err := svc.UnlockStage(user.ID, stage.ID)
	require.NoError(t, err)
	require.Equal(t, models.StageStatusUnlocked, prog.Status)
}

func TestUnlockHiddenStageRequiresPrerequisite(t *testing.T) {
	svc, _ := newProgressionService(t)
	user := createTestUser(t, svc.DB)
	content := createTestContent(t, svc.DB, 0)
	gate := createTestStage(t, svc.DB, content.ID, "1")
	hidden := createTestStage(t, svc.DB, content.ID, "2")
	require.NoError(t, svc.DB.Model(&models.Stage{}).Where("id = ?", hidden.ID).
		Updates(map[string]interface{}{"unlock_stage_id": gate.ID, "is_hidden": true}).Error)

	_, err := svc.JoinContent(user.ID, content.ID)
	require.NoError(t, err)

	_, err = svc.UnlockStage(user.ID, hidden.ID)
	require.ErrorIs(t, err, ErrStageLocked)

	_, err = svc.ClearStage(user.ID, gate.ID, nil)
	require.NoError(t, err)

	prog, err := svc.UnlockStage(user.ID, hidden.ID)
	require.NoError(t, err)
	require.Equal(t, models.StageStatusUnlocked, prog.Status)
}

func TestClearStageWithoutUnlockIsPermitted(t *testing.T) {
	svc, _ := newProgressionService(t)
	user := createTestUser(t, svc.DB)
	content := createTestContent(t, svc.DB, 0)
	stageA := createTestStage(t, svc.DB, content.ID, "1")
	createTestStage(t, svc.DB, content.ID, "2")

	outcome, err := svc.ClearStage(user.ID, stageA.ID, nil)
	require.NoError(t, err)
	require.Equal(t, models.StageStatusCleared, outcome.Status)
	require.False(t, outcome.AlreadyCleared)
	require.False(t, outcome.ContentCleared)

	var prog models.UserStageProgress
	require.NoError(t, svc.DB.Where("user_id = ? AND stage_id = ?", user.ID, stageA.ID).First(&prog).Error)
	require.Equal(t, models.StageStatusCleared, prog.Status)
	require.NotNil(t, prog.ClearedAt)
}

func TestClearStageIdempotent(t *testing.T) {
	svc, ledger := newProgressionService(t)
	user := createTestUser(t, svc.DB)
	content := createTestContent(t, svc.DB, 0)
	stage := createTestStage(t, svc.DB, content.ID, "1")

	// Seed a stage-tagged reward as if a scan granted it.
	err := svc.DB.Transaction(func(tx *gorm.DB) error {
		_, _, err := ledger.Append(tx, user.ID, 10, "NFC scan reward", LedgerTags{StageID: &stage.ID})
		return err
	})
	require.NoError(t, err)

	first, err := svc.ClearStage(user.ID, stage.ID, nil)
	require.NoError(t, err)
	require.Len(t, first.RewardEntries, 1)

	second, err := svc.ClearStage(user.ID, stage.ID, nil)
	require.NoError(t, err)
	require.True(t, second.AlreadyCleared)
	require.Len(t, second.RewardEntries, 1)

	// Re-clear granted nothing new.
	bal, err := ledger.Balance(user.ID)
	require.NoError(t, err)
	require.Equal(t, 10, bal)
}

func TestClearStageBestTimeOnlyImproves(t *testing.T) {
	svc, _ := newProgressionService(t)
	user := createTestUser(t, svc.DB)
	content := createTestContent(t, svc.DB, 0)
	stage := createTestStage(t, svc.DB, content.ID, "1")

	first, err := svc.ClearStage(user.ID, stage.ID, intPtr(120))
	require.NoError(t, err)
	require.Equal(t, 120, *first.BestTimeSec)

	worse, err := svc.ClearStage(user.ID, stage.ID, intPtr(200))
	require.NoError(t, err)
	require.Equal(t, 120, *worse.BestTimeSec)

	better, err := svc.ClearStage(user.ID, stage.ID, intPtr(90))
	require.NoError(t, err)
	require.Equal(t, 90, *better.BestTimeSec)
}

func TestContentClearAggregation(t *testing.T) {
	svc, _ := newProgressionService(t)
	user := createTestUser(t, svc.DB)
	content := createTestContent(t, svc.DB, 100)
	next := createTestContent(t, svc.DB, 0)
	require.NoError(t, svc.DB.Model(&models.Content{}).Where("id = ?", content.ID).
		Updates(map[string]interface{}{"has_next_content": true, "next_content_id": next.ID}).Error)

	stageA := createTestStage(t, svc.DB, content.ID, "1")
	stageB := createTestStage(t, svc.DB, content.ID, "2")

	_, err := svc.JoinContent(user.ID, content.ID)
	require.NoError(t, err)

	outcome, err := svc.ClearStage(user.ID, stageA.ID, nil)
	require.NoError(t, err)
	require.False(t, outcome.ContentCleared)

	outcome, err = svc.ClearStage(user.ID, stageB.ID, nil)
	require.NoError(t, err)
	require.True(t, outcome.ContentCleared)
	require.NotNil(t, outcome.NextContentID)
	require.Equal(t, next.ID, *outcome.NextContentID)

	prog, err := svc.ContentProgress(user.ID, content.ID)
	require.NoError(t, err)
	require.Equal(t, models.ContentStatusCleared, prog.Status)
	require.NotNil(t, prog.ClearedAt)
}

func TestContentClearDoesNotAutoGrantBonus(t *testing.T) {
	svc, ledger := newProgressionService(t)
	user := createTestUser(t, svc.DB)
	content := createTestContent(t, svc.DB, 100)
	stage := createTestStage(t, svc.DB, content.ID, "1")

	_, err := svc.JoinContent(user.ID, content.ID)
	require.NoError(t, err)
	outcome, err := svc.ClearStage(user.ID, stage.ID, nil)
	require.NoError(t, err)
	require.True(t, outcome.ContentCleared)

	bal, err := ledger.Balance(user.ID)
	require.NoError(t, err)
	require.Zero(t, bal)
}

func TestClaimContentRewardOnce(t *testing.T) {
	svc, ledger := newProgressionService(t)
	user := createTestUser(t, svc.DB)
	content := createTestContent(t, svc.DB, 100)
	stage := createTestStage(t, svc.DB, content.ID, "1")

	// Not cleared yet.
	_, _, err := svc.ClaimContentReward(user.ID, content.ID)
	require.ErrorIs(t, err, ErrContentNotCleared)

	_, err = svc.JoinContent(user.ID, content.ID)
	require.NoError(t, err)
	_, err = svc.ClearStage(user.ID, stage.ID, nil)
	require.NoError(t, err)

	_, bal, err := svc.ClaimContentReward(user.ID, content.ID)
	require.NoError(t, err)
	require.Equal(t, 100, bal)

	_, _, err = svc.ClaimContentReward(user.ID, content.ID)
	require.ErrorIs(t, err, ErrRewardAlreadyTaken)

	bal, err = ledger.Balance(user.ID)
	require.NoError(t, err)
	require.Equal(t, 100, bal)
}
