package services

import (
	"time"

	"treasure-hunt-api/models"
	"treasure-hunt-api/utils"

	"gorm.io/gorm"
)

// ScanResult is the outcome of an NFC scan or location verification attempt.
// Denials are results, not errors: the client branches on Allowed.
type ScanResult struct {
	Allowed     bool              `json:"allowed"`
	Reason      string            `json:"reason,omitempty"`
	CooldownSec int               `json:"cooldown_sec,omitempty"`
	RewardCoin  int               `json:"reward_coin,omitempty"`
	NewBalance  int               `json:"new_balance,omitempty"`
	Tag         *models.NFCTag    `json:"tag,omitempty"`
	Hint        *models.StageHint `json:"hint,omitempty"`
	Next        *ScanNext         `json:"next,omitempty"`
}

// ScanNext tells the app where to go after a successful attempt: the next
// hint in order within the same stage, or the stage itself when none remain.
type ScanNext struct {
	Kind    string  `json:"kind"` // hint|stage
	HintID  *string `json:"hint_id,omitempty"`
	StageID string  `json:"stage_id"`
}

// ScanService admits NFC scans and GPS location checks, logs attempts, and
// grants the attached coin rewards through the ledger.
type ScanService struct {
	DB     *gorm.DB
	Ledger *LedgerService
}

func NewScanService(db *gorm.DB, ledger *LedgerService) *ScanService {
	return &ScanService{DB: db, Ledger: ledger}
}

// Scan runs the full admission gate for one tag tap. Every attempt, allowed
// or denied, leaves an nfc_scan_logs row. Checks run in a fixed order: tag
// existence, active flag, cooldown, use limit.
func (s *ScanService) Scan(userID, udid string, hintID *string) (*ScanResult, error) {
	var result *ScanResult
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var tag models.NFCTag
		if err := tx.Where("udid = ?", udid).First(&tag).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				r, lerr := s.deny(tx, userID, nil, hintID, "NFC tag not found", 0)
				result = r
				return lerr
			}
			return err
		}

		if !tag.IsActive {
			r, lerr := s.deny(tx, userID, &tag.ID, hintID, "NFC tag is not active", 0)
			result = r
			return lerr
		}

		now := time.Now()

		if tag.CooldownSec > 0 {
			var last models.NFCScanLog
			err := tx.Where("user_id = ? AND nfc_id = ? AND allowed = ?", userID, tag.ID, true).
				Order("scanned_at DESC").
				First(&last).Error
			if err == nil {
				elapsed := now.Sub(last.ScannedAt)
				window := time.Duration(tag.CooldownSec) * time.Second
				if elapsed < window {
					remaining := int((window - elapsed).Seconds())
					r, lerr := s.deny(tx, userID, &tag.ID, hintID, "Cooldown active", remaining)
					result = r
					return lerr
				}
			} else if err != gorm.ErrRecordNotFound {
				return err
			}
		}

		if tag.HasUseLimit() {
			var used int64
			if err := tx.Model(&models.NFCScanLog{}).
				Where("user_id = ? AND nfc_id = ? AND allowed = ?", userID, tag.ID, true).
				Count(&used).Error; err != nil {
				return err
			}
			if used >= int64(*tag.UseLimit) {
				r, lerr := s.deny(tx, userID, &tag.ID, hintID, "Usage limit reached", 0)
				result = r
				return lerr
			}
		}

		hint, err := s.resolveHint(tx, tag.ID, hintID)
		if err != nil {
			return err
		}

		okLog := models.NFCScanLog{
			UserID:    &userID,
			NFCID:     &tag.ID,
			Allowed:   true,
			ScannedAt: now,
		}
		if hint != nil {
			okLog.HintID = &hint.ID
		}
		if err := tx.Create(&okLog).Error; err != nil {
			return err
		}

		r := &ScanResult{Allowed: true, Tag: &tag, Hint: hint}

		if tag.PointReward > 0 {
			var user models.User
			if err := forUpdate(tx).Where("id = ?", userID).First(&user).Error; err != nil {
				return err
			}
			tags := LedgerTags{}
			if hint != nil {
				tags.StageID = &hint.StageID
			}
			_, bal, err := s.Ledger.Append(tx, userID, tag.PointReward, "NFC scan reward: "+tag.TagName, tags)
			if err != nil {
				return err
			}
			r.RewardCoin = tag.PointReward
			r.NewBalance = bal
		}

		if hint != nil {
			if err := s.advanceStage(tx, userID, hint.StageID, true); err != nil {
				return err
			}
			next, err := s.nextAdvisory(tx, hint)
			if err != nil {
				return err
			}
			r.Next = next
		}

		result = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// VerifyLocation admits a GPS proximity check against a hint's geofence.
// Unlike the NFC gate it enforces no cooldown and writes no scan logs; that
// asymmetry is a property of this admission path, not an omission.
func (s *ScanService) VerifyLocation(userID, hintID string, lat, lon float64) (*ScanResult, error) {
	var result *ScanResult
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var hint models.StageHint
		if err := tx.Where("id = ?", hintID).First(&hint).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				result = &ScanResult{Allowed: false, Reason: "Hint not found"}
				return nil
			}
			return err
		}

		if !hint.HasGeofence() {
			result = &ScanResult{Allowed: false, Reason: "Hint has no location target"}
			return nil
		}

		if !utils.WithinRadius(*hint.TargetLat, *hint.TargetLon, lat, lon, *hint.RadiusM) {
			result = &ScanResult{Allowed: false, Reason: "Out of range"}
			return nil
		}

		r := &ScanResult{Allowed: true, Hint: &hint}

		if hint.RewardCoin > 0 {
			var user models.User
			if err := forUpdate(tx).Where("id = ?", userID).First(&user).Error; err != nil {
				return err
			}
			_, bal, err := s.Ledger.Append(tx, userID, hint.RewardCoin, "Location verification reward", LedgerTags{StageID: &hint.StageID})
			if err != nil {
				return err
			}
			r.RewardCoin = hint.RewardCoin
			r.NewBalance = bal
		}

		if err := s.advanceStage(tx, userID, hint.StageID, false); err != nil {
			return err
		}

		next, err := s.nextAdvisory(tx, &hint)
		if err != nil {
			return err
		}
		r.Next = next

		result = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// deny logs a refused attempt and shapes the denial result. The log write
// shares the surrounding transaction.
func (s *ScanService) deny(tx *gorm.DB, userID string, nfcID, hintID *string, reason string, cooldownSec int) (*ScanResult, error) {
	entry := models.NFCScanLog{
		UserID:  &userID,
		NFCID:   nfcID,
		HintID:  hintID,
		Allowed: false,
		Reason:  &reason,
	}
	if err := tx.Create(&entry).Error; err != nil {
		return nil, err
	}
	return &ScanResult{Allowed: false, Reason: reason, CooldownSec: cooldownSec}, nil
}

// resolveHint trusts a client-supplied hint id, otherwise falls back to the
// at-most-one hint bound to the tag. A tag with no hint is a plain
// checkpoint; nil is fine.
func (s *ScanService) resolveHint(tx *gorm.DB, nfcID string, hintID *string) (*models.StageHint, error) {
	var hint models.StageHint
	var err error
	if hintID != nil && *hintID != "" {
		err = tx.Where("id = ?", *hintID).First(&hint).Error
	} else {
		err = tx.Where("nfc_id = ?", nfcID).First(&hint).Error
	}
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &hint, nil
}

// advanceStage upserts the user's stage progress to in_progress and, on NFC
// paths, bumps the tap counter. A cleared stage stays cleared.
func (s *ScanService) advanceStage(tx *gorm.DB, userID, stageID string, countNFC bool) error {
	var prog models.UserStageProgress
	err := tx.Where("user_id = ? AND stage_id = ?", userID, stageID).First(&prog).Error
	if err == gorm.ErrRecordNotFound {
		now := time.Now()
		prog = models.UserStageProgress{
			UserID:   userID,
			StageID:  stageID,
			Status:   models.StageStatusInProgress,
			UnlockAt: &now,
		}
		if countNFC {
			prog.NFCCount = 1
		}
		return tx.Create(&prog).Error
	}
	if err != nil {
		return err
	}

	updates := map[string]interface{}{}
	if prog.Status != models.StageStatusCleared {
		updates["status"] = models.StageStatusInProgress
	}
	if countNFC {
		updates["nfc_count"] = prog.NFCCount + 1
	}
	if len(updates) == 0 {
		return nil
	}
	return tx.Model(&models.UserStageProgress{}).
		Where("user_id = ? AND stage_id = ?", userID, stageID).
		Updates(updates).Error
}

// nextAdvisory points the app at the next hint by order within the stage, or
// at the stage itself when the finished hint was the last one.
func (s *ScanService) nextAdvisory(tx *gorm.DB, current *models.StageHint) (*ScanNext, error) {
	var next models.StageHint
	err := tx.Where("stage_id = ? AND order_no > ?", current.StageID, current.OrderNo).
		Order("order_no ASC").
		First(&next).Error
	if err == nil {
		return &ScanNext{Kind: "hint", HintID: &next.ID, StageID: current.StageID}, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, err
	}
	return &ScanNext{Kind: "stage", StageID: current.StageID}, nil
}
