package services

import (
	"treasure-hunt-api/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// forUpdate adds a SELECT ... FOR UPDATE clause on postgres. sqlite (used by
// the test suite) has no row locks; its transactions serialize writes anyway.
func forUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "postgres" {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}

// LedgerTags carries the optional foreign keys attached to a ledger entry.
type LedgerTags struct {
	ContentID     *string
	StageID       *string
	StoreID       *string
	StoreRewardID *string
}

// LedgerService owns the append-only rewards ledger and the cached balance
// on users.points. The ledger is the source of truth; the cache is rewritten
// inside the same transaction as every append so the two can never drift.
type LedgerService struct {
	DB *gorm.DB
}

func NewLedgerService(db *gorm.DB) *LedgerService {
	return &LedgerService{DB: db}
}

// Append inserts a ledger entry and rewrites the user's cached balance, all
// inside the caller's transaction. Returns the new entry id and the new
// balance. The caller is expected to hold (or not need) the user row lock.
func (s *LedgerService) Append(tx *gorm.DB, userID string, coinDelta int, note string, tags LedgerTags) (int64, int, error) {
	entry := models.RewardLedger{
		UserID:        userID,
		CoinDelta:     coinDelta,
		Note:          &note,
		ContentID:     tags.ContentID,
		StageID:       tags.StageID,
		StoreID:       tags.StoreID,
		StoreRewardID: tags.StoreRewardID,
	}
	if err := tx.Create(&entry).Error; err != nil {
		return 0, 0, err
	}

	newBalance, err := s.sumBalance(tx, userID)
	if err != nil {
		return 0, 0, err
	}

	if err := tx.Model(&models.User{}).
		Where("id = ?", userID).
		Update("points", newBalance).Error; err != nil {
		return 0, 0, err
	}

	return entry.ID, newBalance, nil
}

// Balance returns the user's cached balance.
func (s *LedgerService) Balance(userID string) (int, error) {
	var user models.User
	if err := s.DB.Select("points").Where("id = ?", userID).First(&user).Error; err != nil {
		return 0, err
	}
	return user.Points, nil
}

// LedgerSum recomputes the balance from the ledger, bypassing the cache.
func (s *LedgerService) LedgerSum(userID string) (int, error) {
	return s.sumBalance(s.DB, userID)
}

func (s *LedgerService) sumBalance(tx *gorm.DB, userID string) (int, error) {
	var sum *int
	err := tx.Model(&models.RewardLedger{}).
		Where("user_id = ?", userID).
		Select("SUM(coin_delta)").
		Scan(&sum).Error
	if err != nil {
		return 0, err
	}
	if sum == nil {
		return 0, nil
	}
	return *sum, nil
}

// History returns the user's ledger entries, newest first, paginated.
func (s *LedgerService) History(userID string, page, size int) ([]models.RewardLedger, int64, error) {
	if page < 1 {
		page = 1
	}
	if size < 1 || size > 100 {
		size = 20
	}

	var total int64
	if err := s.DB.Model(&models.RewardLedger{}).
		Where("user_id = ?", userID).
		Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var entries []models.RewardLedger
	err := s.DB.Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Limit(size).Offset((page - 1) * size).
		Find(&entries).Error
	return entries, total, err
}

// AdjustPoints appends a manual signed correction entry for a user. Used by
// the admin surface; note is mandatory there.
func (s *LedgerService) AdjustPoints(userID string, coinDelta int, note string) (int64, int, error) {
	var ledgerID int64
	var newBalance int
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := forUpdate(tx).Where("id = ?", userID).First(&user).Error; err != nil {
			return err
		}
		id, bal, err := s.Append(tx, userID, coinDelta, note, LedgerTags{})
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
