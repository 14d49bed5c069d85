package services

import (
	"errors"
	"time"

	"treasure-hunt-api/models"

	"gorm.io/gorm"
)

// Business rule violations surfaced to the handler layer as 400s.
var (
	ErrContentClosed       = errors.New("content is not open")
	ErrContentNotJoined    = errors.New("content not joined")
	ErrStageLocked         = errors.New("prerequisite stage not cleared")
	ErrContentNotCleared   = errors.New("content not cleared")
	ErrRewardAlreadyTaken  = errors.New("content reward already claimed")
	ErrPrerequisiteContent = errors.New("prerequisite content not cleared")
)

// ClearOutcome is returned by ClearStage so the app can show the reward and
// route the player onward.
type ClearOutcome struct {
	StageID        string                `json:"stage_id"`
	Status         string                `json:"status"`
	AlreadyCleared bool                  `json:"already_cleared"`
	RewardEntries  []models.RewardLedger `json:"reward_entries,omitempty"`
	ContentCleared bool                  `json:"content_cleared"`
	NextContentID  *string               `json:"next_content_id,omitempty"`
	BestTimeSec    *int                  `json:"best_time_sec,omitempty"`
}

// ProgressionService drives the content and stage state machines.
type ProgressionService struct {
	DB     *gorm.DB
	Ledger *LedgerService
}

func NewProgressionService(db *gorm.DB, ledger *LedgerService) *ProgressionService {
	return &ProgressionService{DB: db, Ledger: ledger}
}

// JoinContent enters the user into a content. Repeat joins are idempotent and
// return the existing row; a user who previously left re-enters in place.
func (s *ProgressionService) JoinContent(userID, contentID string) (*models.UserContentProgress, error) {
	var prog models.UserContentProgress
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var content models.Content
		if err := tx.Where("id = ?", contentID).First(&content).Error; err != nil {
			return err
		}
		now := time.Now()
		if !content.AvailableAt(now) {
			return ErrContentClosed
		}

		if err := s.checkContentPrereqs(tx, userID, contentID); err != nil {
			return err
		}

		err := tx.Where("user_id = ? AND content_id = ?", userID, contentID).First(&prog).Error
		if err == nil {
			if prog.Status == models.ContentStatusLeft {
				prog.Status = models.ContentStatusInProgress
				return tx.Save(&prog).Error
			}
			return nil
		}
		if err != gorm.ErrRecordNotFound {
			return err
		}

		prog = models.UserContentProgress{
			UserID:    userID,
			ContentID: contentID,
			Status:    models.ContentStatusInProgress,
			JoinedAt:  &now,
		}
		return tx.Create(&prog).Error
	})
	if err != nil {
		return nil, err
	}
	return &prog, nil
}

func (s *ProgressionService) checkContentPrereqs(tx *gorm.DB, userID, contentID string) error {
	var prereqs []models.ContentPrerequisite
	if err := tx.Where("content_id = ?", contentID).Find(&prereqs).Error; err != nil {
		return err
	}
	for _, p := range prereqs {
		var cleared int64
		err := tx.Model(&models.UserContentProgress{}).
			Where("user_id = ? AND content_id = ? AND status = ?", userID, p.RequiredContentID, models.ContentStatusCleared).
			Count(&cleared).Error
		if err != nil {
			return err
		}
		if cleared == 0 {
			return ErrPrerequisiteContent
		}
	}
	return nil
}

// LeaveContent marks the run left. Progress rows are kept.
func (s *ProgressionService) LeaveContent(userID, contentID string) error {
	res := s.DB.Model(&models.UserContentProgress{}).
		Where("user_id = ? AND content_id = ?", userID, contentID).
		Update("status", models.ContentStatusLeft)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ContentProgress returns the user's run state; a missing row reads as
// not_started rather than 404.
func (s *ProgressionService) ContentProgress(userID, contentID string) (*models.UserContentProgress, error) {
	var prog models.UserContentProgress
	err := s.DB.Where("user_id = ? AND content_id = ?", userID, contentID).First(&prog).Error
	if err == gorm.ErrRecordNotFound {
		return &models.UserContentProgress{UserID: userID, ContentID: contentID, Status: "not_started"}, nil
	}
	if err != nil {
		return nil, err
	}
	return &prog, nil
}

// UnlockStage moves a stage to unlocked. Requires a joined content and, for
// hidden stages, a cleared unlock prerequisite. Re-unlock is a no-op.
func (s *ProgressionService) UnlockStage(userID, stageID string) (*models.UserStageProgress, error) {
	var prog models.UserStageProgress
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var stage models.Stage
		if err := tx.Where("id = ?", stageID).First(&stage).Error; err != nil {
			return err
		}

		var joined int64
		err := tx.Model(&models.UserContentProgress{}).
			Where("user_id = ? AND content_id = ? AND status <> ?", userID, stage.ContentID, models.ContentStatusLeft).
			Count(&joined).Error
		if err != nil {
			return err
		}
		if joined == 0 {
			return ErrContentNotJoined
		}

		if stage.UnlockStageID != nil {
			var cleared int64
			err := tx.Model(&models.UserStageProgress{}).
				Where("user_id = ? AND stage_id = ? AND status = ?", userID, *stage.UnlockStageID, models.StageStatusCleared).
				Count(&cleared).Error
			if err != nil {
				return err
			}
			if cleared == 0 {
				return ErrStageLocked
			}
		}

		err = tx.Where("user_id = ? AND stage_id = ?", userID, stageID).First(&prog).Error
		if err == nil {
			// Already unlocked / in progress / cleared. Leave it alone.
			return nil
		}
		if err != gorm.ErrRecordNotFound {
			return err
		}

		now := time.Now()
		prog = models.UserStageProgress{
			UserID:   userID,
			StageID:  stageID,
			Status:   models.StageStatusUnlocked,
			UnlockAt: &now,
		}
		return tx.Create(&prog).Error
	})
	if err != nil {
		return nil, err
	}
	return &prog, nil
}

// ClearStage marks a stage cleared. Deliberately permissive: no locked guard,
// a missing progress row is created directly cleared. Re-clearing grants
// nothing and echoes the rewards already recorded for the stage.
func (s *ProgressionService) ClearStage(userID, stageID string, playTimeSec *int) (*ClearOutcome, error) {
	outcome := &ClearOutcome{StageID: stageID, Status: models.StageStatusCleared}
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var stage models.Stage
		if err := tx.Where("id = ?", stageID).First(&stage).Error; err != nil {
			return err
		}

		now := time.Now()
		var prog models.UserStageProgress
		err := tx.Where("user_id = ? AND stage_id = ?", userID, stageID).First(&prog).Error
		switch {
		case err == gorm.ErrRecordNotFound:
			prog = models.UserStageProgress{
				UserID:    userID,
				StageID:   stageID,
				Status:    models.StageStatusCleared,
				UnlockAt:  &now,
				ClearedAt: &now,
			}
			if playTimeSec != nil {
				prog.BestTimeSec = playTimeSec
			}
			if err := tx.Create(&prog).Error; err != nil {
				return err
			}
		case err != nil:
			return err
		case prog.Status == models.StageStatusCleared:
			outcome.AlreadyCleared = true
			if playTimeSec != nil && (prog.BestTimeSec == nil || *playTimeSec < *prog.BestTimeSec) {
				if err := tx.Model(&models.UserStageProgress{}).
					Where("user_id = ? AND stage_id = ?", userID, stageID).
					Update("best_time_sec", *playTimeSec).Error; err != nil {
					return err
				}
				prog.BestTimeSec = playTimeSec
			}
		default:
			updates := map[string]interface{}{
				"status":     models.StageStatusCleared,
				"cleared_at": now,
			}
			if playTimeSec != nil && (prog.BestTimeSec == nil || *playTimeSec < *prog.BestTimeSec) {
				updates["best_time_sec"] = *playTimeSec
				prog.BestTimeSec = playTimeSec
			}
			if err := tx.Model(&models.UserStageProgress{}).
				Where("user_id = ? AND stage_id = ?", userID, stageID).
				Updates(updates).Error; err != nil {
				return err
			}
		}
		outcome.BestTimeSec = prog.BestTimeSec

		var entries []models.RewardLedger
		if err := tx.Where("user_id = ? AND stage_id = ?", userID, stageID).
			Order("created_at ASC").
			Find(&entries).Error; err != nil {
			return err
		}
		outcome.RewardEntries = entries

		if err := tx.Model(&models.UserContentProgress{}).
			Where("user_id = ? AND content_id = ?", userID, stage.ContentID).
			Update("last_stage_no", stage.StageNo).Error; err != nil {
			return err
		}

		cleared, err := s.allMainStagesCleared(tx, userID, stage.ContentID)
		if err != nil {
			return err
		}
		if cleared {
			outcome.ContentCleared = true
			if err := tx.Model(&models.UserContentProgress{}).
				Where("user_id = ? AND content_id = ? AND status <> ?", userID, stage.ContentID, models.ContentStatusCleared).
				Updates(map[string]interface{}{
					"status":     models.ContentStatusCleared,
					"cleared_at": now,
				}).Error; err != nil {
				return err
			}
			var content models.Content
			if err := tx.Where("id = ?", stage.ContentID).First(&content).Error; err != nil {
				return err
			}
			if content.HasNextContent {
				outcome.NextContentID = content.NextContentID
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return outcome, nil
}

// allMainStagesCleared reports whether every open top-level stage of the
// content is cleared for the user. Hidden sub-stages do not gate content
// completion.
func (s *ProgressionService) allMainStagesCleared(tx *gorm.DB, userID, contentID string) (bool, error) {
	var stageIDs []string
	err := tx.Model(&models.Stage{}).
		Where("content_id = ? AND parent_stage_id IS NULL AND is_open = ?", contentID, true).
		Pluck("id", &stageIDs).Error
	if err != nil {
		return false, err
	}
	if len(stageIDs) == 0 {
		return false, nil
	}

	var cleared int64
	err = tx.Model(&models.UserStageProgress{}).
		Where("user_id = ? AND stage_id IN ? AND status = ?", userID, stageIDs, models.StageStatusCleared).
		Count(&cleared).Error
	if err != nil {
		return false, err
	}
	return cleared == int64(len(stageIDs)), nil
}

// ClaimContentReward grants the content completion bonus once. The guard is
// the ledger itself: an existing content-tagged entry means the bonus was
// already taken, whatever the balance has done since.
func (s *ProgressionService) ClaimContentReward(userID, contentID string) (int64, int, error) {
	var ledgerID int64
	var newBalance int
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var content models.Content
		if err := tx.Where("id = ?", contentID).First(&content).Error; err != nil {
			return err
		}

		var prog models.UserContentProgress
		if err := tx.Where("user_id = ? AND content_id = ?", userID, contentID).First(&prog).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return ErrContentNotCleared
			}
			return err
		}
		if prog.Status != models.ContentStatusCleared {
			return ErrContentNotCleared
		}

		var user models.User
		if err := forUpdate(tx).Where("id = ?", userID).First(&user).Error; err != nil {
			return err
		}

		var claimed int64
		err := tx.Model(&models.RewardLedger{}).
			Where("user_id = ? AND content_id = ?", userID, contentID).
			Count(&claimed).Error
		if err != nil {
			return err
		}
		if claimed > 0 {
			return ErrRewardAlreadyTaken
		}

		id, bal, err := s.Ledger.Append(tx, userID, content.RewardCoin, "Content clear reward: "+content.Title, LedgerTags{ContentID: &contentID})
		if err != nil {
			return err
		}
		ledgerID = id
		newBalance = bal
		return nil
	})
	if err != nil {
		return 0, 0, err
	}
	return ledgerID, newBalance, nil
}

// StageProgressList returns the user's per-stage rows for one content.
func (s *ProgressionService) StageProgressList(userID, contentID string) ([]models.UserStageProgress, error) {
	var stageIDs []string
	if err := s.DB.Model(&models.Stage{}).
		Where("content_id = ?", contentID).
		Pluck("id", &stageIDs).Error; err != nil {
		return nil, err
	}
	if len(stageIDs) == 0 {
		return []models.UserStageProgress{}, nil
	}
	var rows []models.UserStageProgress
	err := s.DB.Where("user_id = ? AND stage_id IN ?", userID, stageIDs).Find(&rows).Error
	return rows, err
}
